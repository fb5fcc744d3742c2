// Package filter provides the filter chain for queue request validation.
package filter

import "github.com/gigbox/gigbox/internal/domain/song"

// Snapshot is the queue state a filter checks a request against.
type Snapshot struct {
	Queue   []song.Song
	Parked  []song.Song
	Current *song.Song
}

// Result represents the result of a filter check.
type Result struct {
	Accepted bool
	Code     string // e.g., "missing_fields", "duplicate_song"
	Message  string // human-readable rejection reason, shown to the guest
}

// Accept returns an accepted result.
func Accept() Result {
	return Result{Accepted: true}
}

// Reject returns a rejected result with the given code and message.
func Reject(code, message string) Result {
	return Result{Accepted: false, Code: code, Message: message}
}

// Filter is the interface for request filters.
type Filter interface {
	// Name returns the filter name.
	Name() string
	// Description returns a human-readable description.
	Description() string
	// ReturnCodes returns the codes this filter can return.
	ReturnCodes() []string
	// AppliesTo returns true if this filter should be applied to requests
	// from the given source.
	AppliesTo(src song.Source) bool
	// Check performs the filter check. It must not mutate the request or
	// the snapshot.
	Check(req *song.Song, snap Snapshot) Result
}
