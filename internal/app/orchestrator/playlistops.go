package orchestrator

import (
	"github.com/gigbox/gigbox/internal/app/playlist"
	"github.com/gigbox/gigbox/internal/infra/bus"
)

// PlaylistStatus summarizes the fallback playlist position for the DJ view.
type PlaylistStatus struct {
	CurrentIndex   int             `json:"currentIndex"`
	TotalSongs     int             `json:"totalSongs"`
	CurrentEntry   *playlist.Entry `json:"currentSong"`
	NextEntry      *playlist.Entry `json:"nextSong"`
	FallbackMode   bool            `json:"fallbackMode"`
	ActivePlaylist string          `json:"activePlaylist"`
	ActiveEvent    string          `json:"activeEvent,omitempty"`
	PlaylistName   string          `json:"playlistName"`
	Loop           bool            `json:"loop"`
}

// FullPlaylist is the complete active playlist with cursor context.
type FullPlaylist struct {
	Playlist       []playlist.Entry `json:"playlist"`
	CurrentIndex   int              `json:"currentIndex"`
	TotalSongs     int              `json:"totalSongs"`
	FallbackMode   bool             `json:"fallbackMode"`
	ActivePlaylist string           `json:"activePlaylist"`
	PlaylistName   string           `json:"playlistName"`
	Suppressed     []int            `json:"suppressedSongs"`
}

// activeEntriesLocked loads the active playlist entries, returning the
// context alongside. Load failures yield an empty slice; playlist display
// endpoints degrade instead of erroring.
func (o *Orchestrator) activeEntriesLocked() (playlist.Context, []playlist.Entry) {
	pctx := o.library.Active()
	entries, err := o.library.Entries(pctx.File)
	if err != nil {
		return pctx, nil
	}
	return pctx, entries
}

// PlaylistStatus returns the cursor position over the active playlist. The
// displayed index prefers the currently playing entry over the next one.
func (o *Orchestrator) PlaylistStatus() PlaylistStatus {
	o.mu.Lock()
	defer o.mu.Unlock()

	pctx, entries := o.activeEntriesLocked()
	st := PlaylistStatus{
		TotalSongs:     len(entries),
		FallbackMode:   o.fallbackMode,
		ActivePlaylist: o.library.State().ActivePlaylist,
		ActiveEvent:    o.library.State().ActiveEvent,
		PlaylistName:   pctx.Label,
		Loop:           pctx.Loop,
	}

	display := o.cursor.Current()
	if display < 0 {
		display = o.cursor.Next()
	}
	st.CurrentIndex = display

	if len(entries) == 0 {
		return st
	}
	if display >= 0 && display < len(entries) {
		e := entries[display]
		st.CurrentEntry = &e
	}
	nextIdx := (display + 1) % len(entries)
	n := entries[nextIdx]
	st.NextEntry = &n
	return st
}

// FullPlaylist returns the entire active playlist.
func (o *Orchestrator) FullPlaylist() FullPlaylist {
	o.mu.Lock()
	defer o.mu.Unlock()

	pctx, entries := o.activeEntriesLocked()
	display := o.cursor.Current()
	if display < 0 {
		display = o.cursor.Next()
	}

	return FullPlaylist{
		Playlist:       entries,
		CurrentIndex:   display,
		TotalSongs:     len(entries),
		FallbackMode:   o.fallbackMode,
		ActivePlaylist: o.library.State().ActivePlaylist,
		PlaylistName:   pctx.Label,
		Suppressed:     o.cursor.Suppressed(),
	}
}

// Jump moves the fallback cursor to index; the next advance plays it.
func (o *Orchestrator) Jump(index int) error {
	o.mu.Lock()
	defer o.mu.Unlock()

	_, entries := o.activeEntriesLocked()
	return o.cursor.Jump(index, len(entries))
}

// Suppress marks a playlist index to be skipped until restored. Returns
// the affected entry for the confirmation message.
func (o *Orchestrator) Suppress(index int) (playlist.Entry, int, error) {
	o.mu.Lock()
	defer o.mu.Unlock()

	_, entries := o.activeEntriesLocked()
	if err := o.cursor.Suppress(index, len(entries)); err != nil {
		return playlist.Entry{}, 0, err
	}
	return entries[index], len(o.cursor.Suppressed()), nil
}

// Unsuppress restores a suppressed playlist index.
func (o *Orchestrator) Unsuppress(index int) (playlist.Entry, int, error) {
	o.mu.Lock()
	defer o.mu.Unlock()

	_, entries := o.activeEntriesLocked()
	if err := o.cursor.Unsuppress(index, len(entries)); err != nil {
		return playlist.Entry{}, 0, err
	}
	return entries[index], len(o.cursor.Suppressed()), nil
}

// Suppressed returns the suppressed indices of the active playlist.
func (o *Orchestrator) Suppressed() []int {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.cursor.Suppressed()
}

// ResetCursor rewinds the fallback cursor to the start of the playlist.
// Suppression is kept: resetting position is not a context switch.
func (o *Orchestrator) ResetCursor() {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.cursor.Rewind()
}

// SwitchPlaylist activates another theme's house playlist. The cursor
// resets and the suppression set clears, since its indices belonged to the
// old playlist.
func (o *Orchestrator) SwitchPlaylist(key string) error {
	o.mu.Lock()
	defer o.mu.Unlock()

	if err := o.library.SwitchPlaylist(key); err != nil {
		return err
	}
	o.cursor.Reset()

	pctx := o.library.Active()
	o.publish(bus.EventPlaylistSwitch, bus.PlaylistSwitch{
		Playlist: pctx.Key,
		Message:  "Switched to " + pctx.Label,
	})
	return nil
}

// SetActiveEvent activates an event playlist. Cursor and suppression reset
// as for a playlist switch.
func (o *Orchestrator) SetActiveEvent(id string) error {
	o.mu.Lock()
	defer o.mu.Unlock()

	if err := o.library.SetActiveEvent(id); err != nil {
		return err
	}
	o.cursor.Reset()

	pctx := o.library.Active()
	o.publish(bus.EventPlaylistSwitch, bus.PlaylistSwitch{
		Playlist: o.library.State().ActiveTheme,
		Event:    pctx.Key,
		Message:  "Switched to " + pctx.Label,
	})
	return nil
}

// ClearActiveEvent ends the current event early and returns to the theme
// playlist. Cursor and suppression reset with the context change.
func (o *Orchestrator) ClearActiveEvent() {
	o.mu.Lock()
	defer o.mu.Unlock()

	o.library.ClearActiveEvent()
	o.cursor.Reset()

	pctx := o.library.Active()
	o.publish(bus.EventPlaylistSwitch, bus.PlaylistSwitch{
		Playlist: pctx.Key,
		Message:  "Back to " + pctx.Label,
	})
}

// MovePlaylistEntry reorders the active playlist file and renumbers the
// cursor in the same step, so suppression keeps tracking songs by identity
// across the move.
func (o *Orchestrator) MovePlaylistEntry(from, to int) error {
	o.mu.Lock()
	defer o.mu.Unlock()

	pctx := o.library.Active()
	if err := o.library.MoveEntry(pctx.File, from, to); err != nil {
		return err
	}
	o.cursor.EntryMoved(from, to)
	return nil
}
