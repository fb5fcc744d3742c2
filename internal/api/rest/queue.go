package rest

import (
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/gigbox/gigbox/internal/app/filter"
	"github.com/gigbox/gigbox/internal/domain/song"
)

func (a *API) handleQueueGet(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, a.orch.Queue())
}

func (a *API) handleQueueStatus(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, a.orch.Status())
}

func (a *API) handleQueueAdd(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Song    *song.Song `json:"song"`
		AddedBy string     `json:"addedBy"`
	}
	if !decodeBody(w, r, &req) {
		return
	}
	if req.Song == nil {
		writeError(w, http.StatusBadRequest, "Invalid song data")
		return
	}
	if req.AddedBy != "" {
		req.Song.AddedBy = req.AddedBy
	}

	outcome := a.orch.AddRequest(req.Song)
	if outcome.Rejection != nil {
		writeJSON(w, rejectionStatus(outcome.Rejection), map[string]string{
			"error":   outcome.Rejection.Code,
			"message": outcome.Rejection.Message,
		})
		return
	}

	if outcome.Parked {
		writeJSON(w, http.StatusOK, map[string]any{
			"success":   true,
			"queueItem": outcome.Song,
			"parked":    true,
			"message":   fmt.Sprintf("%s added to queue! (%d songs waiting)", outcome.Song.Label(), outcome.ParkCount),
		})
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"success":   true,
		"queueItem": outcome.Song,
	})
}

// rejectionStatus maps filter return codes to HTTP statuses. Duplicates are
// a conflict; everything else is a bad request.
func rejectionStatus(result *filter.Result) int {
	if result.Code == "duplicate_song" {
		return http.StatusConflict
	}
	return http.StatusBadRequest
}

func (a *API) handleQueueReorder(w http.ResponseWriter, r *http.Request) {
	var req struct {
		OldIndex int `json:"oldIndex"`
		NewIndex int `json:"newIndex"`
	}
	if !decodeBody(w, r, &req) {
		return
	}

	if err := a.orch.Reorder(req.OldIndex, req.NewIndex); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid queue index")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"queue":   a.orch.Queue().Queue,
	})
}

func (a *API) handleQueueClear(w http.ResponseWriter, _ *http.Request) {
	a.orch.Clear()
	writeJSON(w, http.StatusOK, map[string]any{"success": true})
}

func (a *API) handleQueuePark(w http.ResponseWriter, _ *http.Request) {
	count := a.orch.Park()
	writeJSON(w, http.StatusOK, map[string]any{
		"success":     true,
		"parked":      true,
		"parkedCount": count,
		"message":     "New songs will be parked - playlist will play through",
	})
}

func (a *API) handleQueueParkCurrent(w http.ResponseWriter, _ *http.Request) {
	moved, count := a.orch.ParkCurrent()
	writeJSON(w, http.StatusOK, map[string]any{
		"success":     true,
		"parked":      true,
		"moved":       moved,
		"parkedCount": count,
		"message":     fmt.Sprintf("%d songs moved to parking - playlist will play through", moved),
	})
}

func (a *API) handleQueueUnpark(w http.ResponseWriter, _ *http.Request) {
	unparked := a.orch.Unpark()
	writeJSON(w, http.StatusOK, map[string]any{
		"success":  true,
		"parked":   false,
		"unparked": unparked,
		"message":  fmt.Sprintf("%d songs moved to active queue!", unparked),
	})
}

// handleQueueNext advances playback. Both the DJ's skip path and the
// bridge's natural song-end path land here.
func (a *API) handleQueueNext(w http.ResponseWriter, r *http.Request) {
	snap := a.orch.Advance(r.Context())
	writeJSON(w, http.StatusOK, snap)
}

func (a *API) handleQueueRemove(w http.ResponseWriter, r *http.Request) {
	a.orch.Remove(chi.URLParam(r, "id"))
	writeJSON(w, http.StatusOK, map[string]any{"success": true})
}
