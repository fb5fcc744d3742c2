package bridge

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/cockroachdb/errors"
	zlog "github.com/rs/zerolog/log"

	"github.com/gigbox/gigbox/internal/domain/song"
)

// preBufferNext downloads the upcoming track's audio ahead of time. The
// second queued song is next in line; with one or zero songs queued the
// orchestrator resolves what the fallback cursor would play instead.
func (b *Bridge) preBufferNext(ctx context.Context) {
	next := b.queuedNext()
	if next == nil {
		resolved, err := b.fetchNextResolved(ctx)
		if err != nil {
			zlog.Debug().Msgf("could not resolve next fallback song: error=%v", err)
			return
		}
		next = resolved
	}

	if next == nil || next.TrackID == "" {
		return
	}

	if err := b.engine.PreBuffer(ctx, next); err != nil {
		zlog.Warn().Msgf("pre-buffer failed: song=%s error=%v", next.Label(), err)
	}
}

func (b *Bridge) queuedNext() *song.Song {
	b.mu.Lock()
	defer b.mu.Unlock()
	if len(b.queue) > 1 {
		next := b.queue[1]
		return &next
	}
	return nil
}

// fetchNextResolved asks the orchestrator what the fallback cursor would
// play next, with the search already performed.
func (b *Bridge) fetchNextResolved(ctx context.Context) (*song.Song, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, b.cfg.ServerURL+"/api/playlist/next-resolved", nil)
	if err != nil {
		return nil, errors.Wrap(err, "failed to build next-resolved request")
	}

	resp, err := b.client.Do(req)
	if err != nil {
		return nil, errors.Wrap(err, "next-resolved request failed")
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, errors.Newf("next-resolved request returned status %d", resp.StatusCode)
	}

	var body struct {
		NextSong *song.Song `json:"nextSong"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, errors.Wrap(err, "failed to decode next-resolved response")
	}
	return body.NextSong, nil
}
