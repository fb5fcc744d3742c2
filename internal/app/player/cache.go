package player

import (
	"context"
	"encoding/json"
	"os"
	"os/exec"
	"path/filepath"
	"regexp"
	"sync"
	"time"

	"github.com/cockroachdb/errors"
	zlog "github.com/rs/zerolog/log"

	"github.com/gigbox/gigbox/internal/domain/song"
)

// minAudioSize is the corruption threshold: anything at or below this is
// treated as a failed download.
const minAudioSize = 1024

const manifestName = "cache-manifest.json"

// spoofed browser identity; some extractors throttle obvious bots.
const downloadUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"

var youtubeIDPattern = regexp.MustCompile(`^[A-Za-z0-9_-]{11}$`)

// ManifestEntry records one cached download.
type ManifestEntry struct {
	TrackID  string      `json:"trackId"`
	Filename string      `json:"filename"`
	Title    string      `json:"title,omitempty"`
	Artist   string      `json:"artist,omitempty"`
	Source   song.Source `json:"source,omitempty"`
	CachedAt time.Time   `json:"cachedAt"`
}

// Cache downloads track audio with yt-dlp and keeps it on disk, indexed by
// track id through a JSON manifest. The manifest is rewritten wholesale on
// each update; last writer wins.
type Cache struct {
	dir     string
	bin     string // yt-dlp
	timeout time.Duration

	mu       sync.Mutex
	manifest map[string]ManifestEntry
}

// NewCache creates the cache, creating dir if needed and loading any
// existing manifest.
func NewCache(dir, bin string, timeout time.Duration) (*Cache, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, errors.Wrap(err, "failed to create cache directory")
	}

	c := &Cache{
		dir:      dir,
		bin:      bin,
		timeout:  timeout,
		manifest: map[string]ManifestEntry{},
	}

	raw, err := os.ReadFile(filepath.Join(dir, manifestName))
	if err == nil {
		if err := json.Unmarshal(raw, &c.manifest); err != nil {
			zlog.Warn().Msgf("malformed cache manifest, starting fresh: error=%v", err)
			c.manifest = map[string]ManifestEntry{}
		}
	} else if !os.IsNotExist(err) {
		zlog.Warn().Msgf("failed to read cache manifest, starting fresh: error=%v", err)
	}
	return c, nil
}

// Path returns the cache path for a track id.
func (c *Cache) Path(trackID string) string {
	return filepath.Join(c.dir, trackID+".mp3")
}

// Lookup returns the cached file for trackID if present and intact. An
// undersized file is deleted and reported as a miss.
func (c *Cache) Lookup(trackID string) (string, bool) {
	path := c.Path(trackID)
	info, err := os.Stat(path)
	if err != nil {
		return "", false
	}
	if info.Size() <= minAudioSize {
		zlog.Warn().Msgf("removing corrupt cached file: file=%s size=%d", filepath.Base(path), info.Size())
		_ = os.Remove(path)
		return "", false
	}
	return path, true
}

// Fetch returns a playable local file for the song, downloading it when
// not cached. A corrupt first download is retried once.
func (c *Cache) Fetch(ctx context.Context, s *song.Song) (string, error) {
	if s.TrackID == "" {
		return "", errors.New("no audio source available")
	}

	if path, ok := c.Lookup(s.TrackID); ok {
		zlog.Debug().Msgf("using cached audio: track=%s", s.TrackID)
		return path, nil
	}

	path, err := c.download(ctx, s)
	if err == nil {
		c.Record(s.TrackID, s, path)
		return path, nil
	}

	zlog.Warn().Msgf("download failed, retrying once: track=%s error=%v", s.TrackID, err)
	path, err = c.download(ctx, s)
	if err != nil {
		return "", err
	}
	c.Record(s.TrackID, s, path)
	return path, nil
}

// download runs yt-dlp. Track ids that are not YouTube video ids (e.g.
// Spotify ids from the metadata fallback provider) are resolved by a
// one-result text search instead of a direct fetch.
func (c *Cache) download(ctx context.Context, s *song.Song) (string, error) {
	path := c.Path(s.TrackID)

	target := "https://www.youtube.com/watch?v=" + s.TrackID
	if !youtubeIDPattern.MatchString(s.TrackID) {
		target = "ytsearch1:" + s.Artist + " " + s.Title
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	args := []string{
		"--extract-audio",
		"--audio-format", "mp3",
		"--audio-quality", "0",
		"--no-update",
		"--user-agent", downloadUserAgent,
		"--referer", "https://www.youtube.com/",
		"--add-header", "Accept-Language:en-US,en;q=0.9",
		"--extractor-retries", "5",
		"--fragment-retries", "5",
		"--retry-sleep", "2",
		"--sleep-interval", "1",
		"--max-sleep-interval", "5",
		"--no-warnings",
		"--quiet",
		"--no-playlist",
		"--output", trimExt(path) + ".%(ext)s",
		target,
	}

	zlog.Info().Msgf("downloading audio: track=%s target=%s", s.TrackID, target)
	if err := exec.CommandContext(ctx, c.bin, args...).Run(); err != nil {
		_ = os.Remove(path)
		if ctx.Err() == context.DeadlineExceeded {
			return "", errors.New("audio download timed out")
		}
		return "", errors.Wrap(err, "audio download failed")
	}

	info, err := os.Stat(path)
	if err != nil {
		return "", errors.Wrap(err, "downloaded file missing")
	}
	if info.Size() <= minAudioSize {
		_ = os.Remove(path)
		return "", errors.Newf("downloaded audio file is empty: size=%d", info.Size())
	}

	zlog.Info().Msgf("audio downloaded: track=%s size=%dKB", s.TrackID, info.Size()/1024)
	return path, nil
}

// Record writes a manifest entry for a cached download.
func (c *Cache) Record(trackID string, s *song.Song, path string) {
	if trackID == "" {
		return
	}

	c.mu.Lock()
	c.manifest[trackID] = ManifestEntry{
		TrackID:  trackID,
		Filename: filepath.Base(path),
		Title:    s.Title,
		Artist:   s.Artist,
		Source:   s.Source,
		CachedAt: time.Now(),
	}
	raw, err := json.MarshalIndent(c.manifest, "", "  ")
	c.mu.Unlock()

	if err != nil {
		zlog.Warn().Msgf("failed to marshal cache manifest: error=%v", err)
		return
	}
	if err := os.WriteFile(filepath.Join(c.dir, manifestName), raw, 0o644); err != nil {
		zlog.Warn().Msgf("failed to save cache manifest: error=%v", err)
	}
}

// Manifest returns a copy of the manifest.
func (c *Cache) Manifest() map[string]ManifestEntry {
	c.mu.Lock()
	defer c.mu.Unlock()

	out := make(map[string]ManifestEntry, len(c.manifest))
	for k, v := range c.manifest {
		out[k] = v
	}
	return out
}

// Clean removes cached audio older than maxAge. The manifest keeps its
// entries; Lookup treats a missing file as a miss anyway.
func (c *Cache) Clean(maxAge time.Duration) {
	files, err := os.ReadDir(c.dir)
	if err != nil {
		return
	}

	cutoff := time.Now().Add(-maxAge)
	for _, f := range files {
		if f.Name() == manifestName {
			continue
		}
		info, err := f.Info()
		if err != nil || info.ModTime().After(cutoff) {
			continue
		}
		if err := os.Remove(filepath.Join(c.dir, f.Name())); err == nil {
			zlog.Debug().Msgf("cleaned cache file: file=%s", f.Name())
		}
	}
}

func trimExt(path string) string {
	return path[:len(path)-len(filepath.Ext(path))]
}
