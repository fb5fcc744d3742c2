// Package bridge relays between the event bus and the playback engine. It
// translates bus commands into engine calls, publishes the status heartbeat,
// detects natural song ends and keeps the next track pre-buffered. The
// orchestrator is only ever reached through the bus and one-shot HTTP calls.
package bridge

import (
	"context"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/cockroachdb/errors"
	zlog "github.com/rs/zerolog/log"

	"github.com/gigbox/gigbox/internal/app/player"
	"github.com/gigbox/gigbox/internal/domain/song"
	"github.com/gigbox/gigbox/internal/infra/bus"
)

// serviceName tags bus messages originating from this process so the bridge
// can recognize its own echoes.
const serviceName = "audio-player"

// Engine is the playback engine surface the bridge drives.
type Engine interface {
	Play(ctx context.Context, s *song.Song) error
	Pause()
	Resume(ctx context.Context) error
	Stop()
	ClearLock()
	SetVolume(volume float64)
	Volume() float64
	FadeOut(durationMs, steps int) (float64, error)
	PlayTestAudio(ctx context.Context) error
	PreBuffer(ctx context.Context, s *song.Song) error
	Status() player.Status
}

// Conn is the bus surface the bridge uses.
type Conn interface {
	Publish(eventType bus.EventType, payload any) error
	Subscribe(eventType bus.EventType, handler func(*bus.Envelope)) error
}

// Config holds the bridge settings.
type Config struct {
	ServerURL         string        // orchestrator base URL, e.g. http://localhost:3000
	AdvanceDelay      time.Duration // wait after a song ends before asking for the next
	StatusInterval    time.Duration
	PreBufferInterval time.Duration
}

// Bridge connects one engine to the bus.
type Bridge struct {
	engine Engine
	conn   Conn
	client *http.Client
	cfg    Config

	mu           sync.Mutex
	queue        []song.Song // latest queue snapshot, for the pre-buffer sweep
	lastPlayedID string
	wasPlaying   bool
}

// New creates a bridge. Call Start to subscribe and Run to drive the loops.
func New(engine Engine, conn Conn, cfg Config) *Bridge {
	if cfg.AdvanceDelay <= 0 {
		cfg.AdvanceDelay = time.Second
	}
	if cfg.StatusInterval <= 0 {
		cfg.StatusInterval = time.Second
	}
	if cfg.PreBufferInterval <= 0 {
		cfg.PreBufferInterval = 10 * time.Second
	}
	return &Bridge{
		engine: engine,
		conn:   conn,
		client: &http.Client{Timeout: 10 * time.Second},
		cfg:    cfg,
	}
}

// Start subscribes to the playback command events. Handlers that may block
// (play, fade, test audio) run on their own goroutine; the rest are quick
// engine calls and run inline on the delivery goroutine.
func (b *Bridge) Start(ctx context.Context) error {
	subs := map[bus.EventType]func(*bus.Envelope){
		bus.EventQueueUpdated: b.onQueueUpdated,
		bus.EventNowPlaying:   func(env *bus.Envelope) { b.onNowPlaying(ctx, env) },
		bus.EventPlayCommand:  func(env *bus.Envelope) { b.onPlayCommand(ctx, env) },
		bus.EventPauseCommand: func(*bus.Envelope) {
			b.engine.Pause()
			b.emitStatus(ctx)
		},
		bus.EventResumeCommand: func(*bus.Envelope) {
			if err := b.engine.Resume(ctx); err != nil {
				zlog.Warn().Msgf("resume failed: error=%v", err)
			}
			b.emitStatus(ctx)
		},
		bus.EventStopCommand: func(*bus.Envelope) {
			b.engine.Stop()
			b.emitStatus(ctx)
		},
		bus.EventVolumeCommand: func(env *bus.Envelope) { b.onVolumeCommand(ctx, env) },
		bus.EventSkipCommand:   func(*bus.Envelope) { b.onSkipCommand(ctx) },
		bus.EventFadeCommand:   func(env *bus.Envelope) { go b.onFadeCommand(ctx, env) },
		bus.EventTestAudioCommand: func(*bus.Envelope) {
			go func() {
				if err := b.engine.PlayTestAudio(ctx); err != nil {
					zlog.Warn().Msgf("test audio failed: error=%v", err)
					b.publish(bus.EventPlaybackError, bus.PlaybackError{Error: err.Error()})
					return
				}
				b.emitStatus(ctx)
			}()
		},
	}

	for eventType, handler := range subs {
		if err := b.conn.Subscribe(eventType, handler); err != nil {
			return errors.Wrapf(err, "failed to subscribe bridge to %s", eventType)
		}
	}

	zlog.Info().Msgf("bridge subscribed: server=%s", b.cfg.ServerURL)
	return nil
}

// Run drives the heartbeat and pre-buffer loops until ctx is cancelled.
func (b *Bridge) Run(ctx context.Context) {
	status := time.NewTicker(b.cfg.StatusInterval)
	defer status.Stop()
	preBuffer := time.NewTicker(b.cfg.PreBufferInterval)
	defer preBuffer.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-status.C:
			b.emitStatus(ctx)
		case <-preBuffer.C:
			b.preBufferNext(ctx)
		}
	}
}

func (b *Bridge) onQueueUpdated(env *bus.Envelope) {
	var update bus.QueueUpdate
	if err := env.Decode(&update); err != nil {
		zlog.Warn().Msgf("dropping queue update: error=%v", err)
		return
	}

	b.mu.Lock()
	b.queue = update.Queue
	b.mu.Unlock()
}

// onNowPlaying starts playback for songs announced by the orchestrator. Two
// guards keep the feedback loop from double-playing: messages tagged with
// our own service name are echoes of a play we initiated, and a song id
// matching the last one played is a duplicate announcement of it.
func (b *Bridge) onNowPlaying(ctx context.Context, env *bus.Envelope) {
	var np bus.NowPlaying
	if err := env.Decode(&np); err != nil {
		zlog.Warn().Msgf("dropping nowPlaying event: error=%v", err)
		return
	}

	if np.Song == nil {
		return // playback stopped, nothing to start
	}
	if np.Origin == serviceName {
		zlog.Debug().Msgf("ignoring own nowPlaying echo: song=%s", np.Song.Label())
		return
	}

	b.mu.Lock()
	if np.Song.ID == b.lastPlayedID {
		b.mu.Unlock()
		zlog.Debug().Msgf("ignoring duplicate nowPlaying event: song=%s", np.Song.Label())
		return
	}
	b.lastPlayedID = np.Song.ID
	b.mu.Unlock()

	go b.play(ctx, np.Song)
}

func (b *Bridge) onPlayCommand(ctx context.Context, env *bus.Envelope) {
	var req bus.PlayRequest
	if err := env.Decode(&req); err != nil || req.Song == nil {
		zlog.Warn().Msgf("dropping play command: error=%v", err)
		return
	}

	b.mu.Lock()
	b.lastPlayedID = req.Song.ID
	b.mu.Unlock()

	go b.play(ctx, req.Song)
}

// play starts the song on the engine, echoing nowPlaying on success and
// publishing playbackError on failure so the queue does not stall silently.
func (b *Bridge) play(ctx context.Context, s *song.Song) {
	if err := b.engine.Play(ctx, s); err != nil {
		zlog.Error().Msgf("play failed: song=%s error=%v", s.Label(), err)
		b.publish(bus.EventPlaybackError, bus.PlaybackError{Error: err.Error(), Song: s})
		return
	}

	b.publish(bus.EventNowPlaying, bus.NowPlaying{Song: s, Origin: serviceName})
	b.emitStatus(ctx)
}

func (b *Bridge) onVolumeCommand(ctx context.Context, env *bus.Envelope) {
	var req bus.VolumeRequest
	if err := env.Decode(&req); err != nil {
		zlog.Warn().Msgf("dropping volume command: error=%v", err)
		return
	}
	b.engine.SetVolume(req.Volume)
	b.emitStatus(ctx)
}

// onSkipCommand cuts the current song and asks the orchestrator to advance.
// The advance call handles both queued and fallback playback; the next song
// comes back as a nowPlaying event.
func (b *Bridge) onSkipCommand(ctx context.Context) {
	zlog.Info().Msgf("skip command received")

	b.engine.Stop()
	b.engine.ClearLock()

	if err := b.advance(ctx); err != nil {
		zlog.Warn().Msgf("failed to advance after skip: error=%v", err)
	}
}

// onFadeCommand fades the current song out, advances, and restores the
// pre-fade volume for the next track. Concurrent fades are rejected by the
// engine.
func (b *Bridge) onFadeCommand(ctx context.Context, env *bus.Envelope) {
	var req bus.FadeRequest
	if err := env.Decode(&req); err != nil {
		zlog.Warn().Msgf("dropping fade command: error=%v", err)
		return
	}

	startVolume := b.engine.Volume()
	if b.engine.Status().IsPlaying {
		before, err := b.engine.FadeOut(req.DurationMs, 10)
		if err != nil {
			zlog.Warn().Msgf("fade rejected: error=%v", err)
			return
		}
		startVolume = before
		b.engine.Stop()
		b.engine.ClearLock()
	}

	b.engine.SetVolume(startVolume)

	if err := b.advance(ctx); err != nil {
		zlog.Warn().Msgf("failed to advance after fade: error=%v", err)
	}
	b.emitStatus(ctx)
}

// advance asks the orchestrator for the next song.
func (b *Bridge) advance(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, b.cfg.ServerURL+"/api/queue/next", nil)
	if err != nil {
		return errors.Wrap(err, "failed to build advance request")
	}

	resp, err := b.client.Do(req)
	if err != nil {
		return errors.Wrap(err, "advance request failed")
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	if resp.StatusCode != http.StatusOK {
		return errors.Newf("advance request returned status %d", resp.StatusCode)
	}
	return nil
}

func (b *Bridge) publish(eventType bus.EventType, payload any) {
	if err := b.conn.Publish(eventType, payload); err != nil {
		zlog.Warn().Msgf("failed to publish %s: error=%v", eventType, err)
	}
}
