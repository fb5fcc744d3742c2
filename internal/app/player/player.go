package player

import (
	"context"
	"fmt"
	"math"
	"sync"
	"time"

	"github.com/cockroachdb/errors"
	zlog "github.com/rs/zerolog/log"

	"github.com/gigbox/gigbox/internal/domain/song"
)

// Sentinel errors surfaced to the bridge.
var (
	ErrBusy          = errors.New("another play request is in progress")
	ErrNoAudioSource = errors.New("no audio source available")
)

// seekFramesPerSecond approximates mpg123's MP3 frame rate for the --skip
// seek. Good enough for resume; sample-exact seeking is not needed.
const seekFramesPerSecond = 38.28

// Config holds the playback engine settings.
type Config struct {
	CacheDir        string
	PlayerBin       string
	DownloaderBin   string
	ProberBin       string
	MixerControl    string
	MixerDevice     string
	Gain            int
	DownloadTimeout time.Duration
	InitialVolume   float64
	TestAudioFile   string
}

// Status is a snapshot of the playback session.
type Status struct {
	IsPlaying         bool
	IsPaused          bool
	IsBuffering       bool
	BufferingProgress string
	CurrentSong       *song.Song
	Volume            float64
	Position          float64
	Duration          float64
	PausedPosition    float64
}

// Player is the playback session. Exactly one exists per engine process;
// IsPlaying and IsPaused are never both true, and position survives pause
// but resets on stop and on a new song.
type Player struct {
	decoder Decoder
	mixer   Mixer
	probe   DurationProber
	cache   *Cache

	testFile string
	settle   time.Duration // wait after killing a decoder before starting the next

	mu                sync.Mutex
	current           *song.Song
	isPlaying         bool
	isPaused          bool
	isBuffering       bool
	bufferingProgress string
	volume            float64
	position          float64
	duration          float64
	pausedSong        *song.Song
	pausedPosition    float64
	busy              bool // mutual exclusion between overlapping play calls
	fading            bool
}

// New creates the engine with the real subprocess-backed collaborators.
func New(cfg Config) (*Player, error) {
	cache, err := NewCache(cfg.CacheDir, cfg.DownloaderBin, cfg.DownloadTimeout)
	if err != nil {
		return nil, err
	}

	p := newPlayer(
		NewMPG123Decoder(cfg.PlayerBin, cfg.Gain),
		NewAmixerMixer(cfg.MixerControl, cfg.MixerDevice),
		NewFFProbeProber(cfg.ProberBin),
		cache,
		cfg.TestAudioFile,
		cfg.InitialVolume,
	)
	p.settle = time.Second
	return p, nil
}

// newPlayer wires a player from its parts. Tests inject fakes here.
func newPlayer(dec Decoder, mx Mixer, probe DurationProber, cache *Cache, testFile string, volume float64) *Player {
	return &Player{
		decoder:  dec,
		mixer:    mx,
		probe:    probe,
		cache:    cache,
		testFile: testFile,
		volume:   volume,
	}
}

// Run advances the position clock until ctx is cancelled. Position only
// moves while playing; it keeps its last value otherwise.
func (p *Player) Run(ctx context.Context) {
	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			p.mu.Lock()
			if p.isPlaying && p.duration > 0 {
				p.position++
				if p.position >= p.duration {
					p.position = p.duration
				}
			}
			p.mu.Unlock()
		}
	}
}

// Play starts playback of a song, replacing whatever is playing. A second
// Play while one is still being processed returns ErrBusy without touching
// the session.
func (p *Player) Play(ctx context.Context, s *song.Song) error {
	p.mu.Lock()
	if p.busy {
		p.mu.Unlock()
		zlog.Warn().Msgf("play request blocked, another is in progress: song=%s", s.Label())
		return ErrBusy
	}
	p.busy = true

	// A new song invalidates any paused state so resume cannot resurrect
	// old audio.
	p.isPaused = false
	p.pausedSong = nil
	p.pausedPosition = 0

	p.stopDecoderLocked()
	p.current = s
	p.isBuffering = true
	p.bufferingProgress = fmt.Sprintf("Preparing %s...", s.Title)
	p.mu.Unlock()

	err := p.startPlayback(ctx, s, 0)

	p.mu.Lock()
	p.isBuffering = false
	p.bufferingProgress = ""
	p.busy = false
	p.mu.Unlock()

	if err != nil {
		zlog.Error().Msgf("playback failed: song=%s error=%v", s.Label(), err)
		return err
	}
	zlog.Info().Msgf("playback started: song=%s", s.Label())
	return nil
}

// startPlayback resolves the audio file, probes its duration and spawns
// the decoder from startPosition seconds.
func (p *Player) startPlayback(ctx context.Context, s *song.Song, startPosition float64) error {
	if p.settle > 0 {
		time.Sleep(p.settle)
	}

	if s.TrackID == "" {
		return ErrNoAudioSource
	}

	p.setProgress(fmt.Sprintf("Downloading %s...", s.Title))
	path, err := p.cache.Fetch(ctx, s)
	if err != nil {
		return err
	}

	duration, err := p.probe(ctx, path)
	if err != nil {
		// Play without position tracking rather than refusing outright.
		zlog.Warn().Msgf("duration probe failed, playing untracked: song=%s error=%v", s.Label(), err)
		duration = 0
	} else if duration == 0 {
		return errors.New("audio file has no duration, likely corrupted")
	}

	p.setProgress(fmt.Sprintf("Starting playback of %s...", s.Title))

	skipFrames := 0
	if startPosition > 0 {
		skipFrames = int(math.Floor(startPosition * seekFramesPerSecond))
	}

	done, err := p.decoder.Start(path, skipFrames)
	if err != nil {
		p.mu.Lock()
		p.isPlaying = false
		p.mu.Unlock()
		return err
	}

	p.mu.Lock()
	p.current = s
	p.isPlaying = true
	p.position = startPosition
	p.duration = duration
	p.mu.Unlock()

	go p.watch(done)
	return nil
}

// watch marks the session stopped when the decoder exits on its own. The
// bridge detects the natural song end by diffing status snapshots.
func (p *Player) watch(done <-chan struct{}) {
	<-done

	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.isPlaying {
		return // already stopped or paused through a kill
	}
	p.isPlaying = false
	if p.duration > 0 && p.position < p.duration*0.1 {
		zlog.Warn().Msgf("song ended prematurely: position=%.0f duration=%.0f", p.position, p.duration)
	}
}

// Pause kills the decoder and records the position so Resume can emulate a
// seek-resume. Pausing when nothing is playing is a no-op.
func (p *Player) Pause() {
	p.mu.Lock()
	defer p.mu.Unlock()

	if !p.isPlaying || !p.decoder.Running() {
		zlog.Warn().Msgf("cannot pause, nothing is playing")
		return
	}

	p.pausedSong = p.current
	p.pausedPosition = p.position
	p.isPaused = true
	p.isPlaying = false
	p.decoder.Kill()

	zlog.Info().Msgf("paused: song=%s position=%.0f", p.current.Label(), p.position)
}

// Resume restarts the paused song, seeking to the recorded position. A
// song paused within a second of its end restarts from the beginning.
func (p *Player) Resume(ctx context.Context) error {
	p.mu.Lock()
	if !p.isPaused || p.pausedSong == nil {
		p.mu.Unlock()
		zlog.Warn().Msgf("cannot resume, not paused")
		return nil
	}

	s := p.pausedSong
	start := p.pausedPosition
	if p.duration > 0 && start >= p.duration-1 {
		zlog.Info().Msgf("paused song had ended, restarting from beginning: song=%s", s.Label())
		start = 0
	}

	p.isPaused = false
	p.pausedSong = nil
	p.pausedPosition = 0
	p.mu.Unlock()

	zlog.Info().Msgf("resuming: song=%s position=%.0f", s.Label(), start)
	return p.startPlayback(ctx, s, start)
}

// Stop kills the decoder and resets the session. When paused, the recorded
// position survives so a later Resume still works; otherwise position
// clears to zero.
func (p *Player) Stop() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.stopDecoderLocked()
	p.busy = false
}

func (p *Player) stopDecoderLocked() {
	p.decoder.Kill()
	if strays := p.decoder.Sweep(); strays > 0 {
		zlog.Warn().Msgf("decoder handle tracking missed processes: strays=%d", strays)
	}
	p.isPlaying = false

	if !p.isPaused {
		p.position = 0
		p.pausedSong = nil
		p.pausedPosition = 0
	}
}

// ClearLock force-releases the play mutual exclusion. Skip handling uses
// it when a previous play is still settling.
func (p *Player) ClearLock() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.busy = false
}

// SetVolume clamps to [0,1], stores it, and pushes it to the system mixer.
// Mixer failures keep the in-memory value; the next change retries.
func (p *Player) SetVolume(volume float64) {
	volume = math.Max(0, math.Min(1, volume))

	p.mu.Lock()
	p.volume = volume
	p.mu.Unlock()

	if err := p.mixer.Apply(int(math.Round(volume * 100))); err != nil {
		zlog.Warn().Msgf("failed to apply system volume: error=%v", err)
	}
}

// Volume returns the current volume.
func (p *Player) Volume() float64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.volume
}

// PlayTestAudio plays the configured speaker-test file, replacing current
// playback.
func (p *Player) PlayTestAudio(ctx context.Context) error {
	if p.testFile == "" {
		return errors.New("no test audio file configured")
	}

	p.mu.Lock()
	p.stopDecoderLocked()
	p.mu.Unlock()

	duration, err := p.probe(ctx, p.testFile)
	if err != nil {
		duration = 0
	}

	done, err := p.decoder.Start(p.testFile, 0)
	if err != nil {
		return err
	}

	p.mu.Lock()
	p.isPlaying = true
	p.position = 0
	p.duration = duration
	p.mu.Unlock()

	go p.watch(done)
	zlog.Info().Msgf("test audio started: file=%s", p.testFile)
	return nil
}

// PreBuffer downloads a song's audio into the cache without touching the
// playback session, hiding download latency before the track is needed.
func (p *Player) PreBuffer(ctx context.Context, s *song.Song) error {
	if s.TrackID == "" {
		return ErrNoAudioSource
	}
	if _, ok := p.cache.Lookup(s.TrackID); ok {
		zlog.Debug().Msgf("already cached: song=%s", s.Label())
		return nil
	}

	zlog.Info().Msgf("pre-buffering: song=%s", s.Label())
	if _, err := p.cache.Fetch(ctx, s); err != nil {
		return errors.Wrapf(err, "pre-buffer failed: song=%s", s.Label())
	}
	return nil
}

// Clean removes cached audio older than maxAge.
func (p *Player) Clean(maxAge time.Duration) {
	p.cache.Clean(maxAge)
}

// Status returns a session snapshot.
func (p *Player) Status() Status {
	p.mu.Lock()
	defer p.mu.Unlock()
	return Status{
		IsPlaying:         p.isPlaying,
		IsPaused:          p.isPaused,
		IsBuffering:       p.isBuffering,
		BufferingProgress: p.bufferingProgress,
		CurrentSong:       p.current,
		Volume:            p.volume,
		Position:          p.position,
		Duration:          p.duration,
		PausedPosition:    p.pausedPosition,
	}
}

func (p *Player) setProgress(msg string) {
	p.mu.Lock()
	p.bufferingProgress = msg
	p.mu.Unlock()
}
