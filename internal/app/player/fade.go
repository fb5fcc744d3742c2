package player

import (
	"time"

	"github.com/cockroachdb/errors"
	zlog "github.com/rs/zerolog/log"
)

// ErrFadeInProgress rejects overlapping fades; two ramps fighting over the
// mixer would produce garbage.
var ErrFadeInProgress = errors.New("fade already in progress")

const (
	defaultFadeMs = 2000
	minFadeSteps  = 5
	maxFadeSteps  = 40
	minStepMs     = 50
)

// fadeParams derives the step count and interval for a fade. Steps default
// to one per 100ms clamped to [5,40]; the interval never drops below 50ms.
func fadeParams(durationMs, steps int) (int, time.Duration) {
	if durationMs <= 0 {
		durationMs = defaultFadeMs
	}
	if steps <= 0 {
		steps = durationMs / 100
		if steps < minFadeSteps {
			steps = minFadeSteps
		}
		if steps > maxFadeSteps {
			steps = maxFadeSteps
		}
	}

	stepMs := durationMs / steps
	if stepMs < minStepMs {
		stepMs = minStepMs
	}
	return steps, time.Duration(stepMs) * time.Millisecond
}

// FadeOut ramps the volume linearly to zero over durationMs, applying each
// step to the system mixer, and returns the pre-fade volume so the caller
// can restore it for the next track. steps <= 0 derives the count from the
// duration. A fade while another is in flight returns ErrFadeInProgress.
func (p *Player) FadeOut(durationMs, steps int) (float64, error) {
	p.mu.Lock()
	if p.fading {
		p.mu.Unlock()
		return 0, ErrFadeInProgress
	}
	p.fading = true
	startVolume := p.volume
	p.mu.Unlock()

	defer func() {
		p.mu.Lock()
		p.fading = false
		p.mu.Unlock()
	}()

	if startVolume <= 0 {
		p.SetVolume(0)
		return startVolume, nil
	}

	count, interval := fadeParams(durationMs, steps)
	zlog.Info().Msgf("fading out: durationMs=%d steps=%d interval=%s", durationMs, count, interval)

	for i := 1; i <= count; i++ {
		time.Sleep(interval)
		factor := 1 - float64(i)/float64(count)
		if factor < 0 {
			factor = 0
		}
		p.SetVolume(startVolume * factor)
	}

	p.SetVolume(0)
	return startVolume, nil
}
