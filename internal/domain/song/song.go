// Package song provides the Song domain entity.
package song

import (
	"strings"
	"time"
)

// Source identifies where a song entered the system from.
type Source string

const (
	SourceUser     Source = "user"      // manual guest submission
	SourceYouTube  Source = "youtube"   // guest submission resolved via search
	SourceFallback Source = "fallback"  // pulled from the active fallback playlist
	SourceMicBreak Source = "mic-break" // DJ announcement slot, no audio
)

// NeedsAudio reports whether this source carries a playable track.
func (s Source) NeedsAudio() bool {
	return s != SourceMicBreak
}

// IsFallback reports whether the song came from a fallback playlist.
func (s Source) IsFallback() bool {
	return s == SourceFallback
}

// IsGuestRequest reports whether the song was submitted by a guest.
func (s Source) IsGuestRequest() bool {
	return s == SourceUser || s == SourceYouTube
}

// Song represents one entry in the queue or the currently playing record.
// A Song is never mutated after creation except for its position in the
// queue; PlaylistKey and PlaylistIndex are only meaningful when
// Source is SourceFallback.
type Song struct {
	ID          string    `json:"id"`
	TrackID     string    `json:"trackId,omitempty"` // search-provider id, empty for mic breaks
	Title       string    `json:"title"`
	Artist      string    `json:"artist"`
	Album       string    `json:"album,omitempty"`
	Duration    string    `json:"duration,omitempty"` // display string, e.g. "3:42"
	DurationSec int       `json:"durationSec,omitempty"`
	AlbumArt    string    `json:"albumArt,omitempty"`
	AddedBy     string    `json:"addedBy"`
	AddedAt     time.Time `json:"addedAt"`
	Source      Source    `json:"source"`
	EntryType   string    `json:"type,omitempty"` // playlist entry tag ("dance", "mic-break", ...)

	PlaylistKey   string `json:"playlist,omitempty"`
	PlaylistIndex int    `json:"playlistIndex,omitempty"`
}

// Same reports whether two songs refer to the same track: by TrackID when
// both carry one, otherwise by case-insensitive title+artist.
func (s *Song) Same(other *Song) bool {
	if other == nil {
		return false
	}
	if s.TrackID != "" && other.TrackID != "" {
		return s.TrackID == other.TrackID
	}
	return strings.EqualFold(s.Title, other.Title) &&
		strings.EqualFold(s.Artist, other.Artist)
}

// Label returns the human-readable identification used in user-facing
// messages.
func (s *Song) Label() string {
	return `"` + s.Title + `" by ` + s.Artist
}
