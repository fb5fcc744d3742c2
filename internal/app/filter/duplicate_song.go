package filter

import (
	"fmt"

	"github.com/gigbox/gigbox/internal/domain/song"
)

// DuplicateSongFilter rejects requests for songs already queued, parked, or
// playing. Matching follows song identity: track id when both sides carry
// one, otherwise case-insensitive title and artist, so a cover by a
// different artist is allowed.
type DuplicateSongFilter struct{}

// NewDuplicateSongFilter creates a new duplicate song filter.
func NewDuplicateSongFilter() *DuplicateSongFilter {
	return &DuplicateSongFilter{}
}

// Name returns the filter name.
func (f *DuplicateSongFilter) Name() string {
	return "duplicate_song_filter"
}

// Description returns the filter description.
func (f *DuplicateSongFilter) Description() string {
	return "Rejects songs already in the queue, parked, or playing"
}

// ReturnCodes returns possible return codes.
func (f *DuplicateSongFilter) ReturnCodes() []string {
	return []string{"duplicate_song"}
}

// AppliesTo returns which request sources this filter applies to.
// Fallback items and mic breaks may repeat freely.
func (f *DuplicateSongFilter) AppliesTo(src song.Source) bool {
	return src.IsGuestRequest()
}

// Check scans the full queue state for the requested song.
func (f *DuplicateSongFilter) Check(req *song.Song, snap Snapshot) Result {
	if snap.Current != nil && req.Same(snap.Current) {
		return Reject("duplicate_song", fmt.Sprintf("%s is currently playing", req.Label()))
	}
	for i := range snap.Queue {
		if req.Same(&snap.Queue[i]) {
			return Reject("duplicate_song", fmt.Sprintf("%s is already in the queue", req.Label()))
		}
	}
	for i := range snap.Parked {
		if req.Same(&snap.Parked[i]) {
			return Reject("duplicate_song", fmt.Sprintf("%s is already in the parked queue", req.Label()))
		}
	}
	return Accept()
}
