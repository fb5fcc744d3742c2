package bridge

import (
	"context"
	"time"

	zlog "github.com/rs/zerolog/log"

	"github.com/gigbox/gigbox/internal/app/player"
	"github.com/gigbox/gigbox/internal/domain/song"
	"github.com/gigbox/gigbox/internal/infra/bus"
)

// endOfSong reports whether a status transition is a natural end of track:
// we were playing last tick, now neither playing nor paused, a song is still
// loaded, and it ran long enough that this is not a startup blip. "Long
// enough" means more than 5 seconds in, or within a second of the known
// duration.
func endOfSong(wasPlaying bool, st player.Status) bool {
	if !wasPlaying || st.IsPlaying || st.IsPaused || st.CurrentSong == nil {
		return false
	}
	return st.Position > 5 || (st.Duration > 0 && st.Position >= st.Duration-1)
}

// emitStatus publishes the heartbeat and runs song-end detection on the
// playing-to-stopped edge.
func (b *Bridge) emitStatus(ctx context.Context) {
	st := b.engine.Status()

	b.mu.Lock()
	wasPlaying := b.wasPlaying
	b.wasPlaying = st.IsPlaying
	b.mu.Unlock()

	if endOfSong(wasPlaying, st) {
		b.handleSongEnd(ctx, st.CurrentSong)
	} else if wasPlaying && !st.IsPlaying && !st.IsPaused && st.CurrentSong != nil {
		zlog.Warn().Msgf("ignoring potential false song end: position=%.0f duration=%.0f", st.Position, st.Duration)
	}

	b.publish(bus.EventAudioServiceStatus, bus.Status{
		Service:           serviceName,
		IsPlaying:         st.IsPlaying,
		IsPaused:          st.IsPaused,
		IsBuffering:       st.IsBuffering,
		BufferingProgress: st.BufferingProgress,
		CurrentSong:       st.CurrentSong,
		Volume:            st.Volume,
		Position:          int(st.Position),
		Duration:          int(st.Duration),
		PausedPosition:    int(st.PausedPosition),
		Timestamp:         time.Now().UnixMilli(),
	})
}

// handleSongEnd announces the end and, after a short delay so listeners see
// the songEnded event before the queue moves, asks the orchestrator to
// advance.
func (b *Bridge) handleSongEnd(ctx context.Context, finished *song.Song) {
	zlog.Info().Msgf("song ended: song=%s", finished.Label())
	b.publish(bus.EventSongEnded, bus.SongEnded{Song: finished, Source: serviceName})

	go func() {
		select {
		case <-ctx.Done():
			return
		case <-time.After(b.cfg.AdvanceDelay):
		}
		if err := b.advance(ctx); err != nil {
			zlog.Warn().Msgf("failed to advance after song end: error=%v", err)
		}
	}()
}
