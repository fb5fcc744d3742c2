package orchestrator

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gigbox/gigbox/internal/app/playlist"
	"github.com/gigbox/gigbox/internal/app/search"
	"github.com/gigbox/gigbox/internal/domain/song"
	"github.com/gigbox/gigbox/internal/infra/bus"
)

type fakePublisher struct {
	mu     sync.Mutex
	events []bus.EventType
}

func (p *fakePublisher) Publish(eventType bus.EventType, payload any) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, eventType)
	return nil
}

func (p *fakePublisher) count(eventType bus.EventType) int {
	p.mu.Lock()
	defer p.mu.Unlock()
	n := 0
	for _, e := range p.events {
		if e == eventType {
			n++
		}
	}
	return n
}

// fakeSearcher resolves every query to a deterministic single result unless
// the query is listed as failing.
type fakeSearcher struct {
	failing map[string]bool
	calls   []string
}

func (s *fakeSearcher) Search(ctx context.Context, query string, limit int) ([]search.Result, error) {
	s.calls = append(s.calls, query)
	if s.failing[query] {
		return nil, errors.New("provider unavailable")
	}
	return []search.Result{{
		TrackID:     "vid-" + query,
		Title:       query,
		Artist:      "Artist",
		DurationSec: 200,
	}}, nil
}

func newTestOrchestrator(t *testing.T, searcher Searcher) (*Orchestrator, *fakePublisher) {
	t.Helper()
	dir := t.TempDir()

	manifest := `{
  "themes": [
    {
      "key": "house",
      "name": "House Playlist",
      "file": "house.json",
      "events": [
        {"id": "dinner", "name": "Dinner Set", "file": "dinner.json", "loop": false}
      ]
    }
  ]
}`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "themes.json"), []byte(manifest), 0o644))
	house := `[
  {"search": "song-zero"},
  {"search": "song-one"},
  {"search": "song-two"}
]`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "house.json"), []byte(house), 0o644))
	dinner := `[
  {"search": "dinner-zero"},
  {"search": "dinner-one"}
]`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "dinner.json"), []byte(dinner), 0o644))

	lib, err := playlist.NewLibrary(dir, filepath.Join(dir, "state.json"), "house")
	require.NoError(t, err)

	hist := NewHistory(filepath.Join(dir, "history.json"))
	pub := &fakePublisher{}
	if searcher == nil {
		searcher = &fakeSearcher{}
	}
	return New(lib, hist, searcher, pub), pub
}

func addSong(t *testing.T, o *Orchestrator, title, artist string) *song.Song {
	t.Helper()
	s := song.Song{Title: title, Artist: artist, Source: song.SourceUser}
	outcome := o.AddRequest(&s)
	require.Nil(t, outcome.Rejection)
	return outcome.Song
}

func TestAdvance_QueueThenFallback(t *testing.T) {
	o, pub := newTestOrchestrator(t, nil)
	addSong(t, o, "Song A", "Artist A")
	addSong(t, o, "Song B", "Artist B")

	// First advance starts A; nothing is logged yet because A just started.
	snap := o.Advance(context.Background())
	require.NotNil(t, snap.CurrentlyPlaying)
	assert.Equal(t, "Song A", snap.CurrentlyPlaying.Title)
	assert.Len(t, snap.Queue, 1)
	assert.False(t, snap.FallbackMode)
	assert.Equal(t, 0, o.history.Len())

	// Second advance logs A and starts B.
	snap = o.Advance(context.Background())
	assert.Equal(t, "Song B", snap.CurrentlyPlaying.Title)
	assert.Empty(t, snap.Queue)
	assert.Equal(t, 1, o.history.Len())
	assert.Equal(t, "Song A", o.history.Entries()[0].Song.Title)

	// Third advance logs B; the queue is empty so fallback takes over.
	snap = o.Advance(context.Background())
	require.NotNil(t, snap.CurrentlyPlaying)
	assert.Equal(t, song.SourceFallback, snap.CurrentlyPlaying.Source)
	assert.Equal(t, "song-zero", snap.CurrentlyPlaying.Title)
	assert.Equal(t, 0, snap.CurrentlyPlaying.PlaylistIndex)
	assert.True(t, snap.FallbackMode)
	assert.Equal(t, 2, o.history.Len())
	assert.Equal(t, 1, pub.count(bus.EventFallbackMode))
}

func TestAdvance_LoopWrapsAndSkipsSuppressed(t *testing.T) {
	o, _ := newTestOrchestrator(t, nil)
	_, _, err := o.Suppress(1)
	require.NoError(t, err)

	var played []int
	for i := 0; i < 4; i++ {
		snap := o.Advance(context.Background())
		require.NotNil(t, snap.CurrentlyPlaying)
		played = append(played, snap.CurrentlyPlaying.PlaylistIndex)
	}

	// Index 1 is suppressed; the cursor wraps after 2.
	assert.Equal(t, []int{0, 2, 0, 2}, played)
}

func TestAdvance_SearchFailureSkipsEntry(t *testing.T) {
	searcher := &fakeSearcher{failing: map[string]bool{"song-zero": true}}
	o, _ := newTestOrchestrator(t, searcher)

	snap := o.Advance(context.Background())
	require.NotNil(t, snap.CurrentlyPlaying)
	assert.Equal(t, "song-one", snap.CurrentlyPlaying.Title)
	assert.Equal(t, 1, snap.CurrentlyPlaying.PlaylistIndex)
}

func TestAdvance_AllSuppressedStopsPlayback(t *testing.T) {
	o, _ := newTestOrchestrator(t, nil)
	for i := 0; i < 3; i++ {
		_, _, err := o.Suppress(i)
		require.NoError(t, err)
	}

	snap := o.Advance(context.Background())
	assert.Nil(t, snap.CurrentlyPlaying)
	assert.False(t, snap.FallbackMode)
}

func TestAdvance_EventExhaustionFallsBackToHouse(t *testing.T) {
	o, pub := newTestOrchestrator(t, nil)
	require.NoError(t, o.SetActiveEvent("dinner"))

	first := o.Advance(context.Background())
	assert.Equal(t, "dinner-zero", first.CurrentlyPlaying.Title)
	second := o.Advance(context.Background())
	assert.Equal(t, "dinner-one", second.CurrentlyPlaying.Title)

	// The non-looping event is exhausted; the house playlist takes over.
	third := o.Advance(context.Background())
	require.NotNil(t, third.CurrentlyPlaying)
	assert.Equal(t, "song-zero", third.CurrentlyPlaying.Title)
	assert.Equal(t, "house", third.CurrentlyPlaying.PlaylistKey)
	assert.GreaterOrEqual(t, pub.count(bus.EventPlaylistSwitch), 2)
}

func TestAddRequest_DuplicateConflict(t *testing.T) {
	o, _ := newTestOrchestrator(t, nil)
	addSong(t, o, "September", "Earth Wind & Fire")

	dup := song.Song{Title: "september", Artist: "EARTH WIND & FIRE", Source: song.SourceUser}
	outcome := o.AddRequest(&dup)
	require.NotNil(t, outcome.Rejection)
	assert.Equal(t, "duplicate_song", outcome.Rejection.Code)

	// Also conflicts with the currently playing song.
	o.Advance(context.Background())
	again := song.Song{Title: "September", Artist: "Earth Wind & Fire", Source: song.SourceUser}
	outcome = o.AddRequest(&again)
	require.NotNil(t, outcome.Rejection)
	assert.Contains(t, outcome.Rejection.Message, "currently playing")
}

func TestAddRequest_ParkedRouting(t *testing.T) {
	o, pub := newTestOrchestrator(t, nil)
	o.Park()

	outcome := o.AddRequest(&song.Song{Title: "Song A", Artist: "A", Source: song.SourceUser})
	require.Nil(t, outcome.Rejection)
	assert.True(t, outcome.Parked)
	assert.Equal(t, 1, outcome.ParkCount)
	assert.Empty(t, o.Queue().Queue)
	assert.Equal(t, 1, pub.count(bus.EventParkedQueueUpdated))

	// Mic breaks bypass parking.
	mic := o.AddRequest(&song.Song{Title: "Toast time", Source: song.SourceMicBreak})
	require.Nil(t, mic.Rejection)
	assert.False(t, mic.Parked)
	assert.Len(t, o.Queue().Queue, 1)

	// A parked song still counts for dedupe.
	dup := o.AddRequest(&song.Song{Title: "Song A", Artist: "A", Source: song.SourceUser})
	require.NotNil(t, dup.Rejection)
}

func TestParkCurrentAndUnpark_PreserveOrder(t *testing.T) {
	o, _ := newTestOrchestrator(t, nil)
	addSong(t, o, "One", "A")
	addSong(t, o, "Two", "B")

	moved, parkedCount := o.ParkCurrent()
	assert.Equal(t, 2, moved)
	assert.Equal(t, 2, parkedCount)
	assert.Empty(t, o.Queue().Queue)

	addParked := o.AddRequest(&song.Song{Title: "Three", Artist: "C", Source: song.SourceUser})
	assert.True(t, addParked.Parked)

	unparked := o.Unpark()
	assert.Equal(t, 3, unparked)
	queue := o.Queue().Queue
	require.Len(t, queue, 3)
	assert.Equal(t, []string{"One", "Two", "Three"}, []string{queue[0].Title, queue[1].Title, queue[2].Title})
	assert.Empty(t, o.ParkedQueue())
}

func TestReorderAndRemove(t *testing.T) {
	o, _ := newTestOrchestrator(t, nil)
	a := addSong(t, o, "One", "A")
	addSong(t, o, "Two", "B")
	addSong(t, o, "Three", "C")

	require.NoError(t, o.Reorder(0, 2))
	queue := o.Queue().Queue
	assert.Equal(t, []string{"Two", "Three", "One"}, []string{queue[0].Title, queue[1].Title, queue[2].Title})

	assert.ErrorIs(t, o.Reorder(0, 5), ErrQueueIndexOutOfRange)

	o.Remove(a.ID)
	queue = o.Queue().Queue
	require.Len(t, queue, 2)
	assert.Equal(t, "Two", queue[0].Title)
}

func TestMovePlaylistEntry_SuppressionFollowsSong(t *testing.T) {
	o, _ := newTestOrchestrator(t, nil)
	_, _, err := o.Suppress(0)
	require.NoError(t, err)

	require.NoError(t, o.MovePlaylistEntry(0, 2))

	assert.Equal(t, []int{2}, o.Suppressed())
	full := o.FullPlaylist()
	assert.Equal(t, "song-zero", full.Playlist[2].Search)
}

func TestPeekNextFallback_DoesNotAdvance(t *testing.T) {
	o, _ := newTestOrchestrator(t, nil)

	peeked := o.PeekNextFallback(context.Background())
	require.NotNil(t, peeked)
	assert.Equal(t, "song-zero", peeked.Title)

	// Peeking again and advancing both still see the same entry.
	again := o.PeekNextFallback(context.Background())
	assert.Equal(t, peeked.Title, again.Title)
	snap := o.Advance(context.Background())
	assert.Equal(t, "song-zero", snap.CurrentlyPlaying.Title)
}

func TestJumpAndReset(t *testing.T) {
	o, _ := newTestOrchestrator(t, nil)
	require.NoError(t, o.Jump(2))

	snap := o.Advance(context.Background())
	assert.Equal(t, 2, snap.CurrentlyPlaying.PlaylistIndex)

	o.ResetCursor()
	snap = o.Advance(context.Background())
	assert.Equal(t, 0, snap.CurrentlyPlaying.PlaylistIndex)

	assert.ErrorIs(t, o.Jump(99), playlist.ErrIndexOutOfRange)
}

func TestHistorySummary(t *testing.T) {
	o, _ := newTestOrchestrator(t, nil)
	addSong(t, o, "One", "A")

	o.Advance(context.Background()) // start One
	o.Advance(context.Background()) // log One, start fallback
	o.Advance(context.Background()) // log fallback song

	sum := o.history.Summary()
	assert.Equal(t, 1, sum.UserSubmissions)
	assert.Equal(t, 1, sum.FallbackSongs)
}

func TestCommandLoop_StatusBookkeeping(t *testing.T) {
	o, _ := newTestOrchestrator(t, nil)

	o.handle(statusCommand{status: bus.Status{Position: 42, Duration: 180, IsPlaying: true}})

	st := o.Status()
	assert.Equal(t, 42, st.Position)
	assert.Equal(t, 180, st.Duration)
}
