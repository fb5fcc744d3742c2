package playlist

import (
	"encoding/json"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/cockroachdb/errors"
	zlog "github.com/rs/zerolog/log"
)

// Sentinel errors for selection operations.
var (
	ErrUnknownPlaylist = errors.New("unknown playlist")
	ErrUnknownEvent    = errors.New("unknown event")
)

// Event represents a named fallback playlist configuration selectable at
// runtime. Loop controls infinite repeat vs play-through-once; the inject
// flags control whether played guest requests get appended back into
// playlist files.
type Event struct {
	ID               string `json:"id"`
	Name             string `json:"name"`
	File             string `json:"file"`
	Loop             bool   `json:"loop"`
	AllowUserInject  bool   `json:"allowUserInject"`
	DedupeUserInject bool   `json:"dedupeUserInject"`
	InjectToFallback bool   `json:"injectToFallback"`
}

// Theme groups events around a house playlist that plays when no event is
// active or the active event has run out.
type Theme struct {
	Key    string  `json:"key"`
	Name   string  `json:"name"`
	File   string  `json:"file"`
	Events []Event `json:"events"`
}

// State is the persisted playlist selection. It is read once at startup and
// written on every mutating call so the selection survives restarts.
type State struct {
	ActivePlaylist string    `json:"activePlaylist"`
	ActiveEvent    string    `json:"activeEvent"`
	ActiveTheme    string    `json:"activeTheme"`
	SavedAt        time.Time `json:"savedAt"`
}

// Context describes the playlist the fallback resolver should scan: the
// active event when one is selected, otherwise the active theme's house
// playlist. House playlists always loop.
type Context struct {
	Key     string // event id or theme key
	Label   string // display name
	File    string
	Loop    bool
	IsEvent bool
}

// Library holds the playlist files and the active selection.
type Library struct {
	dir       string
	stateFile string

	mu      sync.RWMutex
	themes  []Theme
	state   State
	entries map[string][]Entry // cache keyed by file name
}

type themesFile struct {
	Themes []Theme `json:"themes"`
}

// NewLibrary loads the theme manifest from dir/themes.json and the persisted
// selection from stateFile. A missing or unreadable state file falls back to
// defaultKey.
func NewLibrary(dir, stateFile, defaultKey string) (*Library, error) {
	raw, err := os.ReadFile(filepath.Join(dir, "themes.json"))
	if err != nil {
		return nil, errors.Wrap(err, "failed to read theme manifest")
	}

	var tf themesFile
	if err := json.Unmarshal(raw, &tf); err != nil {
		return nil, errors.Wrap(err, "failed to parse theme manifest")
	}
	if len(tf.Themes) == 0 {
		return nil, errors.New("theme manifest contains no themes")
	}

	lib := &Library{
		dir:       dir,
		stateFile: stateFile,
		themes:    tf.Themes,
		entries:   map[string][]Entry{},
	}

	lib.state = lib.loadState(defaultKey)
	return lib, nil
}

// loadState reads the persisted selection, falling back to defaultKey when
// the file is missing, malformed, or points at a theme that no longer
// exists.
func (l *Library) loadState(defaultKey string) State {
	fallback := State{ActivePlaylist: defaultKey, ActiveTheme: defaultKey}

	raw, err := os.ReadFile(l.stateFile)
	if err != nil {
		if !os.IsNotExist(err) {
			zlog.Warn().Msgf("failed to read playlist state, using default: error=%v", err)
		}
		return fallback
	}

	var st State
	if err := json.Unmarshal(raw, &st); err != nil {
		zlog.Warn().Msgf("malformed playlist state, using default: error=%v", err)
		return fallback
	}

	if _, ok := l.findThemeLocked(st.ActiveTheme); !ok {
		zlog.Warn().Msgf("persisted theme no longer exists, using default: theme=%s", st.ActiveTheme)
		return fallback
	}
	if st.ActiveEvent != "" {
		if _, _, ok := l.findEventLocked(st.ActiveEvent); !ok {
			zlog.Warn().Msgf("persisted event no longer exists, clearing: event=%s", st.ActiveEvent)
			st.ActiveEvent = ""
		}
	}
	return st
}

// Themes returns the theme manifest.
func (l *Library) Themes() []Theme {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.themes
}

// State returns the current selection.
func (l *Library) State() State {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.state
}

// ActiveEvent returns the active event, if one is selected.
func (l *Library) ActiveEvent() (Event, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	if l.state.ActiveEvent == "" {
		return Event{}, false
	}
	ev, _, ok := l.findEventLocked(l.state.ActiveEvent)
	return ev, ok
}

// Active returns the context the fallback resolver should scan.
func (l *Library) Active() Context {
	l.mu.RLock()
	defer l.mu.RUnlock()

	if l.state.ActiveEvent != "" {
		if ev, _, ok := l.findEventLocked(l.state.ActiveEvent); ok {
			return Context{Key: ev.ID, Label: ev.Name, File: ev.File, Loop: ev.Loop, IsEvent: true}
		}
	}

	th, ok := l.findThemeLocked(l.state.ActiveTheme)
	if !ok {
		th = l.themes[0]
	}
	return Context{Key: th.Key, Label: th.Name, File: th.File, Loop: true}
}

// ThemeContext returns the active theme's house playlist regardless of any
// event selection. Used when a non-looping event runs out.
func (l *Library) ThemeContext() Context {
	l.mu.RLock()
	defer l.mu.RUnlock()

	th, ok := l.findThemeLocked(l.state.ActiveTheme)
	if !ok {
		th = l.themes[0]
	}
	return Context{Key: th.Key, Label: th.Name, File: th.File, Loop: true}
}

// SwitchPlaylist selects a theme's house playlist and clears any active
// event.
func (l *Library) SwitchPlaylist(key string) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if _, ok := l.findThemeLocked(key); !ok {
		return errors.Wrapf(ErrUnknownPlaylist, "key=%s", key)
	}

	l.state.ActivePlaylist = key
	l.state.ActiveTheme = key
	l.state.ActiveEvent = ""
	l.saveStateLocked()
	return nil
}

// SetActiveEvent selects an event. The owning theme becomes the active
// theme so the house playlist takes over when the event runs out.
func (l *Library) SetActiveEvent(id string) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	ev, theme, ok := l.findEventLocked(id)
	if !ok {
		return errors.Wrapf(ErrUnknownEvent, "id=%s", id)
	}

	l.state.ActivePlaylist = ev.ID
	l.state.ActiveTheme = theme.Key
	l.state.ActiveEvent = ev.ID
	l.saveStateLocked()
	return nil
}

// ClearActiveEvent drops the event selection, returning to the theme's
// house playlist.
func (l *Library) ClearActiveEvent() {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.state.ActiveEvent == "" {
		return
	}
	l.state.ActiveEvent = ""
	l.state.ActivePlaylist = l.state.ActiveTheme
	l.saveStateLocked()
}

// Entries returns the entries of a playlist file, loading and caching it on
// first access.
func (l *Library) Entries(file string) ([]Entry, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.entriesLocked(file)
}

// AppendEntry appends an entry to a playlist file and rewrites it.
func (l *Library) AppendEntry(file string, e Entry) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	entries, err := l.entriesLocked(file)
	if err != nil {
		return err
	}
	entries = append(entries, e)
	return l.writeEntriesLocked(file, entries)
}

// ContainsEntry reports whether a playlist file already holds an entry for
// the same song.
func (l *Library) ContainsEntry(file string, e Entry) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	entries, err := l.entriesLocked(file)
	if err != nil {
		return false, err
	}
	for _, have := range entries {
		if have.Same(e) {
			return true, nil
		}
	}
	return false, nil
}

// MoveEntry moves the entry at from to position to and rewrites the file.
// The caller must renumber its cursor with the same indices.
func (l *Library) MoveEntry(file string, from, to int) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	entries, err := l.entriesLocked(file)
	if err != nil {
		return err
	}
	if from < 0 || from >= len(entries) || to < 0 || to >= len(entries) {
		return errors.Newf("move out of range: from=%d to=%d length=%d", from, to, len(entries))
	}
	if from == to {
		return nil
	}

	moved := entries[from]
	entries = append(entries[:from], entries[from+1:]...)
	entries = append(entries[:to], append([]Entry{moved}, entries[to:]...)...)
	return l.writeEntriesLocked(file, entries)
}

func (l *Library) entriesLocked(file string) ([]Entry, error) {
	if cached, ok := l.entries[file]; ok {
		return cached, nil
	}

	raw, err := os.ReadFile(filepath.Join(l.dir, file))
	if err != nil {
		return nil, errors.Wrapf(err, "failed to read playlist file: file=%s", file)
	}

	var entries []Entry
	if err := json.Unmarshal(raw, &entries); err != nil {
		return nil, errors.Wrapf(err, "failed to parse playlist file: file=%s", file)
	}

	l.entries[file] = entries
	return entries, nil
}

// writeEntriesLocked rewrites a playlist file wholesale and refreshes the
// cache.
func (l *Library) writeEntriesLocked(file string, entries []Entry) error {
	raw, err := json.MarshalIndent(entries, "", "  ")
	if err != nil {
		return errors.Wrapf(err, "failed to marshal playlist file: file=%s", file)
	}
	if err := os.WriteFile(filepath.Join(l.dir, file), raw, 0o644); err != nil {
		return errors.Wrapf(err, "failed to write playlist file: file=%s", file)
	}
	l.entries[file] = entries
	return nil
}

// saveStateLocked persists the selection. Write failures are logged and
// swallowed; a failed save must never block a selection change.
func (l *Library) saveStateLocked() {
	l.state.SavedAt = time.Now()

	raw, err := json.MarshalIndent(l.state, "", "  ")
	if err != nil {
		zlog.Warn().Msgf("failed to marshal playlist state: error=%v", err)
		return
	}
	if err := os.WriteFile(l.stateFile, raw, 0o644); err != nil {
		zlog.Warn().Msgf("failed to save playlist state: error=%v", err)
	}
}

func (l *Library) findThemeLocked(key string) (Theme, bool) {
	for _, th := range l.themes {
		if th.Key == key {
			return th, true
		}
	}
	return Theme{}, false
}

func (l *Library) findEventLocked(id string) (Event, Theme, bool) {
	for _, th := range l.themes {
		for _, ev := range th.Events {
			if ev.ID == id {
				return ev, th, true
			}
		}
	}
	return Event{}, Theme{}, false
}
