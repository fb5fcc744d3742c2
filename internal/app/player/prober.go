package player

import (
	"bytes"
	"context"
	"os/exec"
	"strconv"
	"strings"

	"github.com/cockroachdb/errors"
)

// DurationProber reads an audio file's duration in seconds. A probe
// failure is not fatal: the caller plays without position tracking.
type DurationProber func(ctx context.Context, path string) (float64, error)

// NewFFProbeProber probes with ffprobe.
func NewFFProbeProber(bin string) DurationProber {
	return func(ctx context.Context, path string) (float64, error) {
		cmd := exec.CommandContext(ctx, bin,
			"-v", "quiet",
			"-show_entries", "format=duration",
			"-of", "csv=p=0",
			path)

		var stdout bytes.Buffer
		cmd.Stdout = &stdout
		if err := cmd.Run(); err != nil {
			return 0, errors.Wrap(err, "ffprobe failed")
		}

		duration, err := strconv.ParseFloat(strings.TrimSpace(stdout.String()), 64)
		if err != nil {
			return 0, errors.Wrap(err, "unparsable ffprobe output")
		}
		return duration, nil
	}
}
