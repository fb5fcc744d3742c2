package filter

import (
	"strings"

	"github.com/gigbox/gigbox/internal/domain/song"
)

// RequiredFieldsFilter rejects requests missing a title or artist.
// Mic breaks are exempt from the artist requirement.
type RequiredFieldsFilter struct{}

// NewRequiredFieldsFilter creates a new required fields filter.
func NewRequiredFieldsFilter() *RequiredFieldsFilter {
	return &RequiredFieldsFilter{}
}

// Name returns the filter name.
func (f *RequiredFieldsFilter) Name() string {
	return "required_fields_filter"
}

// Description returns the filter description.
func (f *RequiredFieldsFilter) Description() string {
	return "Rejects requests without a title or artist"
}

// ReturnCodes returns possible return codes.
func (f *RequiredFieldsFilter) ReturnCodes() []string {
	return []string{"missing_fields"}
}

// AppliesTo returns which request sources this filter applies to.
func (f *RequiredFieldsFilter) AppliesTo(src song.Source) bool {
	return true
}

// Check validates the request fields.
func (f *RequiredFieldsFilter) Check(req *song.Song, snap Snapshot) Result {
	if strings.TrimSpace(req.Title) == "" {
		return Reject("missing_fields", "song title is required")
	}
	if req.Source != song.SourceMicBreak && strings.TrimSpace(req.Artist) == "" {
		return Reject("missing_fields", "artist is required")
	}
	return Accept()
}
