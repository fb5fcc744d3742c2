package rest

import (
	"fmt"
	"net/http"

	"github.com/gigbox/gigbox/internal/domain/song"
)

func (a *API) handlePlaylistStatus(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, a.orch.PlaylistStatus())
}

func (a *API) handlePlaylistFull(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, a.orch.FullPlaylist())
}

// handlePlaylistNextResolved returns the song the fallback cursor would
// play next, with its track already resolved, without moving the cursor.
// The bridge pre-buffers from this.
func (a *API) handlePlaylistNextResolved(w http.ResponseWriter, r *http.Request) {
	next := a.orch.PeekNextFallback(r.Context())
	writeJSON(w, http.StatusOK, map[string]*song.Song{"nextSong": next})
}

func (a *API) handlePlaylistSuppressed(w http.ResponseWriter, _ *http.Request) {
	suppressed := a.orch.Suppressed()
	writeJSON(w, http.StatusOK, map[string]any{
		"suppressedSongs": suppressed,
		"suppressedCount": len(suppressed),
	})
}

func (a *API) handlePlaylistThemes(w http.ResponseWriter, _ *http.Request) {
	state := a.library.State()
	writeJSON(w, http.StatusOK, map[string]any{
		"themes":         a.library.Themes(),
		"activePlaylist": state.ActivePlaylist,
		"activeEvent":    state.ActiveEvent,
	})
}

func (a *API) handlePlaylistJump(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Index int `json:"index"`
	}
	if !decodeBody(w, r, &req) {
		return
	}

	if err := a.orch.Jump(req.Index); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid playlist index")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"message": fmt.Sprintf("Jumped to song %d", req.Index+1),
		"index":   req.Index,
	})
}

func (a *API) handlePlaylistSwitch(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Playlist string `json:"playlist"`
	}
	if !decodeBody(w, r, &req) {
		return
	}

	if err := a.orch.SwitchPlaylist(req.Playlist); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid playlist")
		return
	}

	pctx := a.library.Active()
	writeJSON(w, http.StatusOK, map[string]any{
		"success":      true,
		"message":      "Switched to " + pctx.Label,
		"playlist":     pctx.Key,
		"playlistName": pctx.Label,
	})
}

// handlePlaylistEvent activates an event playlist, or ends the current one
// when the body names no event.
func (a *API) handlePlaylistEvent(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Event string `json:"event"`
	}
	if !decodeBody(w, r, &req) {
		return
	}

	if req.Event == "" {
		a.orch.ClearActiveEvent()
		pctx := a.library.Active()
		writeJSON(w, http.StatusOK, map[string]any{
			"success":      true,
			"message":      "Back to " + pctx.Label,
			"playlist":     pctx.Key,
			"playlistName": pctx.Label,
		})
		return
	}

	if err := a.orch.SetActiveEvent(req.Event); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid event")
		return
	}

	pctx := a.library.Active()
	writeJSON(w, http.StatusOK, map[string]any{
		"success":      true,
		"message":      "Switched to " + pctx.Label,
		"event":        req.Event,
		"playlistName": pctx.Label,
	})
}

func (a *API) handlePlaylistSuppress(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Index int `json:"index"`
	}
	if !decodeBody(w, r, &req) {
		return
	}

	entry, count, err := a.orch.Suppress(req.Index)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid playlist index")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"success":         true,
		"message":         fmt.Sprintf("%q suppressed - will be skipped", entry.Label()),
		"suppressedIndex": req.Index,
		"suppressedCount": count,
	})
}

func (a *API) handlePlaylistUnsuppress(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Index int `json:"index"`
	}
	if !decodeBody(w, r, &req) {
		return
	}

	entry, count, err := a.orch.Unsuppress(req.Index)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid playlist index")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"success":           true,
		"message":           fmt.Sprintf("%q restored - will play normally", entry.Label()),
		"unsuppressedIndex": req.Index,
		"suppressedCount":   count,
	})
}

// handlePlaylistReset rewinds the cursor to the start without touching the
// suppression set; rewinding is not a context switch.
func (a *API) handlePlaylistReset(w http.ResponseWriter, _ *http.Request) {
	a.orch.ResetCursor()
	writeJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"message": "Playlist reset to beginning",
		"index":   0,
	})
}

func (a *API) handlePlaylistMove(w http.ResponseWriter, r *http.Request) {
	var req struct {
		From int `json:"from"`
		To   int `json:"to"`
	}
	if !decodeBody(w, r, &req) {
		return
	}

	if err := a.orch.MovePlaylistEntry(req.From, req.To); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid playlist index")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true})
}
