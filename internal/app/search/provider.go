// Package search provides track search across external music providers.
package search

import "context"

// Result represents one search hit from a provider.
type Result struct {
	TrackID      string `json:"videoId"` // provider track id, usable by the audio downloader
	Title        string `json:"title"`
	Artist       string `json:"artist"`
	Album        string `json:"album,omitempty"`
	DurationText string `json:"duration,omitempty"` // display string, e.g. "3:42"
	DurationSec  int    `json:"durationSec,omitempty"`
	ThumbnailURL string `json:"thumbnail,omitempty"`
}

// Provider is the interface for track search providers.
// Implementations must treat upstream failures as their own errors;
// callers treat provider errors as "no result", never as fatal.
type Provider interface {
	// Search resolves a free-text query ("Artist Song") into candidate
	// tracks, best match first.
	Search(ctx context.Context, query string, limit int) ([]Result, error)

	// Name returns the provider name (used in config).
	Name() string
}
