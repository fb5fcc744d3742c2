package playlist

import (
	"sort"

	"github.com/cockroachdb/errors"
)

// ErrIndexOutOfRange is returned by bounds-validated cursor operations.
var ErrIndexOutOfRange = errors.New("playlist index out of range")

// Cursor tracks the playback position over a fallback playlist: the next
// index to try, the index currently playing (-1 when none), and the set of
// suppressed indices to skip until explicitly restored.
//
// The cursor is not goroutine-safe. It is owned by the orchestrator, whose
// command loop serializes all access.
type Cursor struct {
	next       int
	current    int
	suppressed map[int]struct{}
}

// NewCursor creates a cursor positioned at the start of a playlist.
func NewCursor() *Cursor {
	return &Cursor{current: -1, suppressed: map[int]struct{}{}}
}

// Reset returns the cursor to the start and clears suppression. Called when
// the playlist context changes, since suppression indices from the old
// playlist are meaningless in the new one.
func (c *Cursor) Reset() {
	c.next = 0
	c.current = -1
	c.suppressed = map[int]struct{}{}
}

// Rewind returns the cursor to the start of the playlist without touching
// suppression.
func (c *Cursor) Rewind() {
	c.next = 0
	c.current = -1
}

// Next returns the next index the resolver will try.
func (c *Cursor) Next() int {
	return c.next
}

// Current returns the index currently playing, or -1.
func (c *Cursor) Current() int {
	return c.current
}

// Jump moves both the next position and the current index to idx.
func (c *Cursor) Jump(idx, length int) error {
	if idx < 0 || idx >= length {
		return errors.Wrapf(ErrIndexOutOfRange, "index=%d length=%d", idx, length)
	}
	c.next = idx
	c.current = idx
	return nil
}

// Suppress marks idx to be skipped by the resolver.
func (c *Cursor) Suppress(idx, length int) error {
	if idx < 0 || idx >= length {
		return errors.Wrapf(ErrIndexOutOfRange, "index=%d length=%d", idx, length)
	}
	c.suppressed[idx] = struct{}{}
	return nil
}

// Unsuppress restores idx.
func (c *Cursor) Unsuppress(idx, length int) error {
	if idx < 0 || idx >= length {
		return errors.Wrapf(ErrIndexOutOfRange, "index=%d length=%d", idx, length)
	}
	delete(c.suppressed, idx)
	return nil
}

// IsSuppressed reports whether idx is suppressed.
func (c *Cursor) IsSuppressed(idx int) bool {
	_, ok := c.suppressed[idx]
	return ok
}

// Suppressed returns the suppressed indices in ascending order.
func (c *Cursor) Suppressed() []int {
	out := make([]int, 0, len(c.suppressed))
	for idx := range c.suppressed {
		out = append(out, idx)
	}
	sort.Ints(out)
	return out
}

// Candidates returns the indices the resolver should try, in order,
// starting at the next cursor position and skipping suppressed indices.
// When looping it covers at most one full cycle; otherwise it runs through
// the end of the playlist. An empty result means nothing is eligible.
func (c *Cursor) Candidates(length int, loop bool) []int {
	if length == 0 {
		return nil
	}

	var out []int
	if loop {
		for i := 0; i < length; i++ {
			idx := (c.next + i) % length
			if !c.IsSuppressed(idx) {
				out = append(out, idx)
			}
		}
		return out
	}

	for idx := c.next; idx < length; idx++ {
		if !c.IsSuppressed(idx) {
			out = append(out, idx)
		}
	}
	return out
}

// MarkPlayed records idx as the entry now playing and advances the next
// position past it, wrapping when looping. In a non-looping playlist the
// next position may reach length, which exhausts the cursor.
func (c *Cursor) MarkPlayed(idx, length int, loop bool) {
	c.current = idx
	if loop {
		c.next = (idx + 1) % length
		return
	}
	c.next = idx + 1
}

// ClearCurrent drops the currently-playing index without touching the next
// position. Called when playback moves off the fallback playlist.
func (c *Cursor) ClearCurrent() {
	c.current = -1
}

// Renumber remaps every index the cursor holds through remap. remap returns
// the new index for an old one, or ok=false when the entry was removed.
// This is the single place suppression and position survive playlist edits;
// EntryMoved, EntryRemoved, and EntryInserted all funnel through it so the
// set tracks songs by identity, not raw index.
func (c *Cursor) Renumber(remap func(old int) (idx int, ok bool)) {
	resuppressed := make(map[int]struct{}, len(c.suppressed))
	for old := range c.suppressed {
		if idx, ok := remap(old); ok {
			resuppressed[idx] = struct{}{}
		}
	}
	c.suppressed = resuppressed

	if c.current >= 0 {
		if idx, ok := remap(c.current); ok {
			c.current = idx
		} else {
			c.current = -1
		}
	}

	if idx, ok := remap(c.next); ok {
		c.next = idx
	}
	// A removed next entry leaves the position in place: the resolver will
	// simply start at whatever song shifted into that slot.
}

// EntryMoved renumbers the cursor after the playlist entry at from moved to
// position to.
func (c *Cursor) EntryMoved(from, to int) {
	if from == to {
		return
	}
	c.Renumber(func(old int) (int, bool) {
		switch {
		case old == from:
			return to, true
		case from < to && old > from && old <= to:
			return old - 1, true
		case to < from && old >= to && old < from:
			return old + 1, true
		default:
			return old, true
		}
	})
}

// EntryRemoved renumbers the cursor after the playlist entry at idx was
// removed.
func (c *Cursor) EntryRemoved(idx int) {
	c.Renumber(func(old int) (int, bool) {
		switch {
		case old == idx:
			return 0, false
		case old > idx:
			return old - 1, true
		default:
			return old, true
		}
	})
}

// EntryInserted renumbers the cursor after a playlist entry was inserted at
// idx.
func (c *Cursor) EntryInserted(idx int) {
	c.Renumber(func(old int) (int, bool) {
		if old >= idx {
			return old + 1, true
		}
		return old, true
	})
}
