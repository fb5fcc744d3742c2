// Package orchestrator owns the canonical queue state: the request queue,
// the parked queue, the currently playing song, the fallback playlist
// cursor, and the play history. All mutation flows through methods on the
// Orchestrator, serialized by its mutex; inbound bus events are converted
// to typed commands consumed one at a time by a single loop goroutine.
package orchestrator

import (
	"context"
	"sync"
	"time"

	zlog "github.com/rs/zerolog/log"

	"github.com/gigbox/gigbox/internal/app/filter"
	"github.com/gigbox/gigbox/internal/app/playlist"
	"github.com/gigbox/gigbox/internal/app/search"
	"github.com/gigbox/gigbox/internal/domain/song"
	"github.com/gigbox/gigbox/internal/infra/bus"
)

// Publisher is the outbound side of the event bus.
type Publisher interface {
	Publish(eventType bus.EventType, payload any) error
}

// Searcher resolves a playlist search string to candidate tracks.
type Searcher interface {
	Search(ctx context.Context, query string, limit int) ([]search.Result, error)
}

// Orchestrator is the playback state machine.
type Orchestrator struct {
	mu sync.Mutex

	queue        []song.Song
	parked       []song.Song
	current      *song.Song
	fallbackMode bool
	queueParked  bool

	cursor  *playlist.Cursor
	library *playlist.Library
	history *History
	filters *filter.Chain
	search  Searcher
	pub     Publisher

	lastStatus bus.Status // latest engine heartbeat, for status endpoints

	commands chan command
}

// New creates an orchestrator. The cursor starts at the beginning of the
// persisted active playlist.
func New(lib *playlist.Library, hist *History, searcher Searcher, pub Publisher) *Orchestrator {
	filters := filter.NewChain()
	filters.Add(filter.NewRequiredFieldsFilter())
	filters.Add(filter.NewDuplicateSongFilter())

	return &Orchestrator{
		cursor:   playlist.NewCursor(),
		library:  lib,
		history:  hist,
		filters:  filters,
		search:   searcher,
		pub:      pub,
		commands: make(chan command, 64),
	}
}

// Snapshot is the queue state returned to HTTP clients.
type Snapshot struct {
	Queue            []song.Song `json:"queue"`
	CurrentlyPlaying *song.Song  `json:"currentlyPlaying"`
	FallbackMode     bool        `json:"fallbackMode"`
}

// Queue returns a copy of the current queue state.
func (o *Orchestrator) Queue() Snapshot {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.snapshotLocked()
}

func (o *Orchestrator) snapshotLocked() Snapshot {
	queue := make([]song.Song, len(o.queue))
	copy(queue, o.queue)
	return Snapshot{
		Queue:            queue,
		CurrentlyPlaying: o.current,
		FallbackMode:     o.fallbackMode,
	}
}

// QueueStatus summarizes queue and park state.
type QueueStatus struct {
	Parked           bool       `json:"parked"`
	QueueLength      int        `json:"queueLength"`
	ParkedLength     int        `json:"parkedLength"`
	CurrentlyPlaying *song.Song `json:"currentlyPlaying"`
	FallbackMode     bool       `json:"fallbackMode"`
	Position         int        `json:"position"`
	Duration         int        `json:"duration"`
}

// Status returns the queue status including the latest playback position
// reported by the audio engine.
func (o *Orchestrator) Status() QueueStatus {
	o.mu.Lock()
	defer o.mu.Unlock()
	return QueueStatus{
		Parked:           o.queueParked,
		QueueLength:      len(o.queue),
		ParkedLength:     len(o.parked),
		CurrentlyPlaying: o.current,
		FallbackMode:     o.fallbackMode,
		Position:         o.lastStatus.Position,
		Duration:         o.lastStatus.Duration,
	}
}

// publish sends a bus event, logging and swallowing failures. A broadcast
// failure must never abort the state transition that triggered it.
func (o *Orchestrator) publish(eventType bus.EventType, payload any) {
	if err := o.pub.Publish(eventType, payload); err != nil {
		zlog.Warn().Msgf("failed to publish event: event=%s error=%v", eventType, err)
	}
}

func (o *Orchestrator) publishQueueUpdatedLocked() {
	queue := make([]song.Song, len(o.queue))
	copy(queue, o.queue)
	// Deliberately excludes the currently playing song so clients do not
	// restart playback on queue-only changes.
	o.publish(bus.EventQueueUpdated, bus.QueueUpdate{Queue: queue})
}

func (o *Orchestrator) publishParkedQueueUpdatedLocked() {
	parked := make([]song.Song, len(o.parked))
	copy(parked, o.parked)
	o.publish(bus.EventParkedQueueUpdated, bus.ParkedQueueUpdate{
		ParkedQueue: parked,
		ParkedCount: len(parked),
	})
}

// Flush persists mutable state on shutdown.
func (o *Orchestrator) Flush() {
	o.history.Save()
	zlog.Info().Msgf("orchestrator state flushed")
}

// now is a seam for tests.
var now = time.Now
