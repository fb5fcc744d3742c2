package orchestrator

import (
	"context"

	"github.com/google/uuid"
	zlog "github.com/rs/zerolog/log"

	"github.com/gigbox/gigbox/internal/app/playlist"
	"github.com/gigbox/gigbox/internal/app/search"
	"github.com/gigbox/gigbox/internal/domain/song"
	"github.com/gigbox/gigbox/internal/infra/bus"
)

// Advance is the central playback transition: log what just played, pop the
// queue head, or fall back to the active playlist, or stop. It never
// returns an error; a failed fallback resolution means "nothing to play",
// and history or persistence failures are logged inside and swallowed.
func (o *Orchestrator) Advance(ctx context.Context) Snapshot {
	o.mu.Lock()
	defer o.mu.Unlock()

	if o.current != nil {
		o.logPlayedLocked(o.current, ActionPlayed)
	}

	if len(o.queue) > 0 {
		next := o.queue[0]
		o.queue = o.queue[1:]
		o.current = &next
		o.fallbackMode = false
		o.cursor.ClearCurrent()

		o.injectLocked(&next)

		o.publish(bus.EventNowPlaying, bus.NowPlaying{Song: o.current})
		o.publishQueueUpdatedLocked()
		zlog.Info().Msgf("advancing to queued song: song=%s addedBy=%s", next.Label(), next.AddedBy)
		return o.snapshotLocked()
	}

	if fallbackSong := o.resolveNextFallbackLocked(ctx); fallbackSong != nil {
		o.current = fallbackSong
		o.fallbackMode = true

		o.publish(bus.EventNowPlaying, bus.NowPlaying{Song: o.current})
		o.publishQueueUpdatedLocked()
		o.publish(bus.EventFallbackMode, bus.FallbackMode{Active: true, Song: o.current})
		zlog.Info().Msgf("advancing to fallback song: song=%s playlist=%s index=%d",
			fallbackSong.Label(), fallbackSong.PlaylistKey, fallbackSong.PlaylistIndex)
		return o.snapshotLocked()
	}

	// Nothing eligible anywhere: playback stops.
	o.current = nil
	o.fallbackMode = false
	o.publish(bus.EventNowPlaying, bus.NowPlaying{Song: nil})
	o.publishQueueUpdatedLocked()
	zlog.Info().Msgf("nothing to play: queue empty and no eligible fallback entry")
	return o.snapshotLocked()
}

// logPlayedLocked records a song in the history. Failures stay inside the
// History type; the transition continues regardless.
func (o *Orchestrator) logPlayedLocked(s *song.Song, action string) {
	o.history.Log(s, action)
	o.publish(bus.EventPlayHistoryUpdate, bus.HistoryUpdate{TotalSongs: o.history.Len()})
}

// injectLocked appends a dequeued guest request into playlist files per the
// active event's inject flags. Persistence failures are logged and
// swallowed.
func (o *Orchestrator) injectLocked(s *song.Song) {
	if !s.Source.IsGuestRequest() {
		return
	}
	ev, ok := o.library.ActiveEvent()
	if !ok || (!ev.AllowUserInject && !ev.InjectToFallback) {
		return
	}

	entry := playlist.Entry{
		Search:      s.Artist + " " + s.Title,
		Type:        s.EntryType,
		TrackID:     s.TrackID,
		Title:       s.Title,
		Artist:      s.Artist,
		Album:       s.Album,
		DurationSec: s.DurationSec,
	}

	targets := make([]string, 0, 2)
	if ev.AllowUserInject {
		targets = append(targets, ev.File)
	}
	if ev.InjectToFallback {
		targets = append(targets, o.library.ThemeContext().File)
	}

	for _, file := range targets {
		if ev.DedupeUserInject {
			found, err := o.library.ContainsEntry(file, entry)
			if err != nil {
				zlog.Warn().Msgf("inject dedupe check failed: file=%s error=%v", file, err)
				continue
			}
			if found {
				continue
			}
		}
		if err := o.library.AppendEntry(file, entry); err != nil {
			zlog.Warn().Msgf("failed to inject song into playlist: file=%s song=%s error=%v",
				file, s.Label(), err)
			continue
		}
		zlog.Info().Msgf("injected song into playlist: file=%s song=%s", file, s.Label())
	}
}

// resolveNextFallbackLocked resolves the next playable fallback song. When
// a non-looping event runs out it clears the event selection and continues
// on the theme's house playlist.
func (o *Orchestrator) resolveNextFallbackLocked(ctx context.Context) *song.Song {
	pctx := o.library.Active()
	if s := o.scanLocked(ctx, pctx, true); s != nil {
		return s
	}

	if pctx.IsEvent && !pctx.Loop {
		zlog.Info().Msgf("event playlist exhausted, returning to house playlist: event=%s", pctx.Key)
		o.library.ClearActiveEvent()
		o.cursor.Reset()

		theme := o.library.Active()
		o.publish(bus.EventPlaylistSwitch, bus.PlaylistSwitch{
			Playlist: theme.Key,
			Message:  "Event finished - back to " + theme.Label,
		})
		return o.scanLocked(ctx, theme, true)
	}
	return nil
}

// scanLocked walks the playlist from the cursor, skipping suppressed
// indices, and resolves the first entry that yields a playable track. A
// failed search skips the entry; the scan is bounded to one cycle by the
// cursor. When advance is false the cursor is left untouched (pre-buffer
// peeks).
func (o *Orchestrator) scanLocked(ctx context.Context, pctx playlist.Context, advance bool) *song.Song {
	entries, err := o.library.Entries(pctx.File)
	if err != nil {
		zlog.Warn().Msgf("failed to load fallback playlist: file=%s error=%v", pctx.File, err)
		return nil
	}

	for _, idx := range o.cursor.Candidates(len(entries), pctx.Loop) {
		entry := entries[idx]

		result, ok := o.resolveEntry(ctx, entry)
		if !ok {
			zlog.Warn().Msgf("fallback entry failed to resolve, skipping: index=%d search=%s", idx, entry.Search)
			continue
		}

		if advance {
			o.cursor.MarkPlayed(idx, len(entries), pctx.Loop)
		}
		return fallbackSong(result, entry, pctx, idx)
	}
	return nil
}

// resolveEntry turns a playlist entry into a concrete track, using the
// entry's pre-resolved metadata when present and the search chain
// otherwise.
func (o *Orchestrator) resolveEntry(ctx context.Context, entry playlist.Entry) (search.Result, bool) {
	if entry.TrackID != "" && entry.Title != "" {
		return search.Result{
			TrackID:     entry.TrackID,
			Title:       entry.Title,
			Artist:      entry.Artist,
			Album:       entry.Album,
			DurationSec: entry.DurationSec,
		}, true
	}

	results, err := o.search.Search(ctx, entry.Search, 1)
	if err != nil || len(results) == 0 {
		return search.Result{}, false
	}
	return results[0], true
}

// fallbackSong synthesizes a queue-item-shaped song from a resolved
// playlist entry, tagged with its playlist index for suppression and resume
// bookkeeping.
func fallbackSong(r search.Result, entry playlist.Entry, pctx playlist.Context, idx int) *song.Song {
	return &song.Song{
		ID:            "fallback-" + uuid.New().String(),
		TrackID:       r.TrackID,
		Title:         r.Title,
		Artist:        r.Artist,
		Album:         r.Album,
		Duration:      r.DurationText,
		DurationSec:   r.DurationSec,
		AlbumArt:      r.ThumbnailURL,
		AddedBy:       pctx.Label,
		AddedAt:       now(),
		Source:        song.SourceFallback,
		EntryType:     entry.Type,
		PlaylistKey:   pctx.Key,
		PlaylistIndex: idx,
	}
}

// PeekNextFallback resolves the next fallback song without moving the
// cursor or touching any state. Used by the pre-buffer loop; nil means
// nothing to pre-buffer.
func (o *Orchestrator) PeekNextFallback(ctx context.Context) *song.Song {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.scanLocked(ctx, o.library.Active(), false)
}
