package player

import (
	"fmt"
	"os/exec"

	"github.com/cockroachdb/errors"
)

// Mixer applies a volume percentage to the system audio output.
type Mixer interface {
	Apply(percent int) error
}

// amixerMixer drives ALSA through amixer. Without an explicit control it
// tries the common control names in order, since the right one varies by
// sound card.
type amixerMixer struct {
	control string
	device  string
}

// NewAmixerMixer creates a mixer. control and device may be empty.
func NewAmixerMixer(control, device string) Mixer {
	return &amixerMixer{control: control, device: device}
}

var defaultControls = []string{"Master", "PCM", "Speaker", "Headphone"}

func (m *amixerMixer) Apply(percent int) error {
	controls := defaultControls
	if m.control != "" {
		controls = []string{m.control}
	}

	for _, ctl := range controls {
		var args []string
		if m.device != "" {
			args = append(args, "-D", m.device)
		}
		args = append(args, "sset", ctl, fmt.Sprintf("%d%%", percent))

		if err := exec.Command("amixer", args...).Run(); err == nil {
			return nil
		}
	}
	return errors.Newf("no mixer control accepted volume: tried=%v", controls)
}
