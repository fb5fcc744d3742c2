package playlist

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCursorCandidates(t *testing.T) {
	tests := []struct {
		name       string
		next       int
		suppressed []int
		length     int
		loop       bool
		want       []int
	}{
		{
			name:   "loop wraps one full cycle",
			next:   3,
			length: 5,
			loop:   true,
			want:   []int{3, 4, 0, 1, 2},
		},
		{
			name:       "loop skips suppressed",
			next:       0,
			suppressed: []int{1, 3},
			length:     5,
			loop:       true,
			want:       []int{0, 2, 4},
		},
		{
			name:   "non-loop stops at end",
			next:   3,
			length: 5,
			want:   []int{3, 4},
		},
		{
			name:   "non-loop exhausted",
			next:   5,
			length: 5,
			want:   nil,
		},
		{
			name:       "all suppressed yields nothing",
			next:       0,
			suppressed: []int{0, 1, 2},
			length:     3,
			loop:       true,
			want:       nil,
		},
		{
			name:   "empty playlist",
			length: 0,
			loop:   true,
			want:   nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := NewCursor()
			c.next = tt.next
			for _, idx := range tt.suppressed {
				require.NoError(t, c.Suppress(idx, tt.length))
			}
			assert.Equal(t, tt.want, c.Candidates(tt.length, tt.loop))
		})
	}
}

func TestCursorMarkPlayed(t *testing.T) {
	c := NewCursor()

	c.MarkPlayed(4, 5, true)
	assert.Equal(t, 4, c.Current())
	assert.Equal(t, 0, c.Next(), "loop wraps past the last entry")

	c.MarkPlayed(4, 5, false)
	assert.Equal(t, 5, c.Next(), "non-loop exhausts past the last entry")
	assert.Empty(t, c.Candidates(5, false))
}

func TestCursorJumpBounds(t *testing.T) {
	c := NewCursor()

	require.NoError(t, c.Jump(2, 5))
	assert.Equal(t, 2, c.Next())
	assert.Equal(t, 2, c.Current())

	assert.ErrorIs(t, c.Jump(5, 5), ErrIndexOutOfRange)
	assert.ErrorIs(t, c.Jump(-1, 5), ErrIndexOutOfRange)
	assert.ErrorIs(t, c.Suppress(7, 5), ErrIndexOutOfRange)
}

func TestCursorEntryMoved_SuppressionFollowsSong(t *testing.T) {
	// Suppress the song at index 1, then move it to index 3. The same song
	// must stay suppressed at its new position and nothing else may be.
	c := NewCursor()
	require.NoError(t, c.Suppress(1, 5))

	c.EntryMoved(1, 3)

	assert.Equal(t, []int{3}, c.Suppressed())
	assert.False(t, c.IsSuppressed(1))
}

func TestCursorEntryMoved_ShiftedNeighbors(t *testing.T) {
	tests := []struct {
		name       string
		suppressed []int
		from, to   int
		want       []int
	}{
		{
			name:       "forward move shifts the range down",
			suppressed: []int{0, 2, 4},
			from:       1,
			to:         3,
			want:       []int{0, 1, 4},
		},
		{
			name:       "backward move shifts the range up",
			suppressed: []int{1, 3},
			from:       4,
			to:         1,
			want:       []int{2, 4},
		},
		{
			name:       "move outside the range leaves it alone",
			suppressed: []int{0},
			from:       3,
			to:         4,
			want:       []int{0},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := NewCursor()
			for _, idx := range tt.suppressed {
				require.NoError(t, c.Suppress(idx, 6))
			}
			c.EntryMoved(tt.from, tt.to)
			assert.Equal(t, tt.want, c.Suppressed())
		})
	}
}

func TestCursorEntryRemoved(t *testing.T) {
	c := NewCursor()
	require.NoError(t, c.Suppress(1, 5))
	require.NoError(t, c.Suppress(3, 5))
	c.MarkPlayed(3, 5, true)

	c.EntryRemoved(3)

	assert.Equal(t, []int{1}, c.Suppressed(), "removed entry leaves the set")
	assert.Equal(t, -1, c.Current(), "removed current entry clears current")
}

func TestCursorEntryInserted(t *testing.T) {
	c := NewCursor()
	require.NoError(t, c.Suppress(2, 5))
	c.MarkPlayed(1, 5, true)

	c.EntryInserted(2)

	assert.Equal(t, []int{3}, c.Suppressed())
	assert.Equal(t, 1, c.Current(), "entries before the insertion keep their index")
	assert.Equal(t, 3, c.Next())
}

func TestCursorReset(t *testing.T) {
	c := NewCursor()
	require.NoError(t, c.Suppress(1, 5))
	c.MarkPlayed(2, 5, true)

	c.Reset()

	assert.Equal(t, 0, c.Next())
	assert.Equal(t, -1, c.Current())
	assert.Empty(t, c.Suppressed())
}
