// Package playlist manages fallback playlists: a library of named playlist
// files grouped into themes and events, the persisted active selection, and
// the playback cursor over the active playlist.
package playlist

import "strings"

// Entry represents one fallback playlist entry. Search is the only required
// field; the rest is optional pre-resolved metadata carried over from
// playlist compilation.
type Entry struct {
	Search      string         `json:"search"`
	Type        string         `json:"type,omitempty"`
	TrackID     string         `json:"videoId,omitempty"`
	Title       string         `json:"title,omitempty"`
	Artist      string         `json:"artist,omitempty"`
	Album       string         `json:"album,omitempty"`
	DurationSec int            `json:"duration_sec,omitempty"`
	Tags        map[string]any `json:"tags,omitempty"`
}

// Same reports whether two entries refer to the same song. Track ids win
// when both entries carry one; otherwise title and artist are compared
// case-insensitively, falling back to the search string.
func (e Entry) Same(other Entry) bool {
	if e.TrackID != "" && other.TrackID != "" {
		return e.TrackID == other.TrackID
	}
	if e.Title != "" && other.Title != "" {
		return strings.EqualFold(e.Title, other.Title) &&
			strings.EqualFold(e.Artist, other.Artist)
	}
	return strings.EqualFold(e.Search, other.Search)
}

// Label returns a display string for logs and status payloads.
func (e Entry) Label() string {
	if e.Title != "" {
		return e.Title + " - " + e.Artist
	}
	return e.Search
}
