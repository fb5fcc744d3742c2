package orchestrator

import (
	"context"

	zlog "github.com/rs/zerolog/log"

	"github.com/gigbox/gigbox/internal/infra/bus"
)

// Bus events are turned into typed commands and consumed one at a time by
// the Run loop, so no handler ever mutates orchestrator state concurrently
// with another.
type command interface {
	isCommand()
}

type statusCommand struct {
	status bus.Status
}

type songEndedCommand struct {
	ended bus.SongEnded
}

type playbackErrorCommand struct {
	failure bus.PlaybackError
}

func (statusCommand) isCommand()        {}
func (songEndedCommand) isCommand()     {}
func (playbackErrorCommand) isCommand() {}

// Subscriber is the inbound side of the event bus.
type Subscriber interface {
	Subscribe(eventType bus.EventType, handler func(*bus.Envelope)) error
}

// Start registers the bus subscriptions feeding the command loop. Call Run
// afterwards to consume them.
func (o *Orchestrator) Start(sub Subscriber) error {
	if err := sub.Subscribe(bus.EventAudioServiceStatus, func(env *bus.Envelope) {
		var st bus.Status
		if err := env.Decode(&st); err != nil {
			zlog.Warn().Msgf("dropping malformed status event: error=%v", err)
			return
		}
		o.enqueue(statusCommand{status: st})
	}); err != nil {
		return err
	}

	if err := sub.Subscribe(bus.EventSongEnded, func(env *bus.Envelope) {
		var ended bus.SongEnded
		if err := env.Decode(&ended); err != nil {
			zlog.Warn().Msgf("dropping malformed songEnded event: error=%v", err)
			return
		}
		o.enqueue(songEndedCommand{ended: ended})
	}); err != nil {
		return err
	}

	return sub.Subscribe(bus.EventPlaybackError, func(env *bus.Envelope) {
		var failure bus.PlaybackError
		if err := env.Decode(&failure); err != nil {
			zlog.Warn().Msgf("dropping malformed playbackError event: error=%v", err)
			return
		}
		o.enqueue(playbackErrorCommand{failure: failure})
	})
}

// enqueue hands a command to the loop. A full channel drops the command;
// status events are periodic and the next heartbeat catches up.
func (o *Orchestrator) enqueue(cmd command) {
	select {
	case o.commands <- cmd:
	default:
		zlog.Warn().Msgf("command queue full, dropping: command=%T", cmd)
	}
}

// Run consumes commands until ctx is cancelled. It is the only consumer of
// the command channel.
func (o *Orchestrator) Run(ctx context.Context) {
	zlog.Info().Msgf("orchestrator command loop started")
	for {
		select {
		case <-ctx.Done():
			zlog.Info().Msgf("orchestrator command loop stopped")
			return
		case cmd := <-o.commands:
			o.handle(cmd)
		}
	}
}

func (o *Orchestrator) handle(cmd command) {
	switch c := cmd.(type) {
	case statusCommand:
		o.mu.Lock()
		o.lastStatus = c.status
		o.mu.Unlock()

	case songEndedCommand:
		// The bridge follows up with an HTTP advance call; this is
		// bookkeeping only.
		if c.ended.Song != nil {
			zlog.Info().Msgf("song ended: song=%s source=%s", c.ended.Song.Label(), c.ended.Source)
		}

	case playbackErrorCommand:
		if c.failure.Song != nil {
			zlog.Warn().Msgf("playback error reported: song=%s error=%s",
				c.failure.Song.Label(), c.failure.Error)
		} else {
			zlog.Warn().Msgf("playback error reported: error=%s", c.failure.Error)
		}
	}
}
