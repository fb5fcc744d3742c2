package orchestrator

import (
	"encoding/json"
	"os"
	"sync"
	"time"

	zlog "github.com/rs/zerolog/log"

	"github.com/gigbox/gigbox/internal/domain/song"
)

// History actions.
const (
	ActionPlayed  = "played"
	ActionAdded   = "added"
	ActionSkipped = "skipped"
)

// HistoryEntry records one song event for the post-party export.
type HistoryEntry struct {
	Timestamp time.Time   `json:"timestamp"`
	Action    string      `json:"action"`
	Song      HistorySong `json:"song"`
}

// HistorySong is the trimmed song record kept in history.
type HistorySong struct {
	Title    string      `json:"title"`
	Artist   string      `json:"artist"`
	Duration string      `json:"duration,omitempty"`
	AddedBy  string      `json:"addedBy"`
	Source   song.Source `json:"source"`
	Playlist string      `json:"playlist,omitempty"`
	Type     string      `json:"type,omitempty"`
}

// HistorySummary aggregates history for status and export payloads.
type HistorySummary struct {
	UserSubmissions int `json:"userSubmissions"`
	FallbackSongs   int `json:"fallbackSongs"`
	UniqueUsers     int `json:"uniqueUsers"`
}

// History is the persistent play log. Load failures fall back to an empty
// log and save failures are logged and swallowed; history must never block
// a playback transition.
type History struct {
	file string

	mu      sync.RWMutex
	entries []HistoryEntry
}

// NewHistory loads the play history from file. A missing file starts an
// empty history.
func NewHistory(file string) *History {
	h := &History{file: file}

	raw, err := os.ReadFile(file)
	if err != nil {
		if !os.IsNotExist(err) {
			zlog.Warn().Msgf("failed to read play history, starting empty: error=%v", err)
		}
		return h
	}

	if err := json.Unmarshal(raw, &h.entries); err != nil {
		zlog.Warn().Msgf("malformed play history, starting empty: error=%v", err)
		h.entries = nil
	} else {
		zlog.Info().Msgf("loaded play history: songs=%d", len(h.entries))
	}
	return h
}

// Log appends an entry and persists the log.
func (h *History) Log(s *song.Song, action string) HistoryEntry {
	entry := HistoryEntry{
		Timestamp: now(),
		Action:    action,
		Song: HistorySong{
			Title:    s.Title,
			Artist:   s.Artist,
			Duration: s.Duration,
			AddedBy:  s.AddedBy,
			Source:   s.Source,
			Playlist: s.PlaylistKey,
			Type:     s.EntryType,
		},
	}

	h.mu.Lock()
	h.entries = append(h.entries, entry)
	h.mu.Unlock()

	h.Save()
	return entry
}

// Save rewrites the history file wholesale.
func (h *History) Save() {
	h.mu.RLock()
	raw, err := json.MarshalIndent(h.entries, "", "  ")
	h.mu.RUnlock()
	if err != nil {
		zlog.Warn().Msgf("failed to marshal play history: error=%v", err)
		return
	}
	if err := os.WriteFile(h.file, raw, 0o644); err != nil {
		zlog.Warn().Msgf("failed to save play history: error=%v", err)
	}
}

// Entries returns a copy of the full history.
func (h *History) Entries() []HistoryEntry {
	h.mu.RLock()
	defer h.mu.RUnlock()
	out := make([]HistoryEntry, len(h.entries))
	copy(out, h.entries)
	return out
}

// Len returns the number of history entries.
func (h *History) Len() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.entries)
}

// Summary aggregates the history.
func (h *History) Summary() HistorySummary {
	h.mu.RLock()
	defer h.mu.RUnlock()

	var sum HistorySummary
	users := map[string]struct{}{}
	for _, e := range h.entries {
		switch {
		case e.Song.Source.IsGuestRequest():
			sum.UserSubmissions++
		case e.Song.Source.IsFallback():
			sum.FallbackSongs++
		}
		users[e.Song.AddedBy] = struct{}{}
	}
	sum.UniqueUsers = len(users)
	return sum
}

// Clear empties the history and persists the empty log.
func (h *History) Clear() {
	h.mu.Lock()
	h.entries = nil
	h.mu.Unlock()
	h.Save()
}
