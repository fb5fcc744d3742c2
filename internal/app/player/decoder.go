// Package player provides the audio playback engine: the decoder
// subprocess, pause/resume-by-position emulation, volume and fade control,
// and the local download cache. Exactly one playback session exists at a
// time; the single decoder slot and the physical output are owned here and
// nowhere else.
package player

import (
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
	"sync"

	"github.com/cockroachdb/errors"
	zlog "github.com/rs/zerolog/log"
	"github.com/shirou/gopsutil/v3/process"
)

// Decoder owns the single audio subprocess slot.
type Decoder interface {
	// Start spawns the decoder for path, seeking past skipFrames MP3
	// frames. The returned channel closes when the process exits.
	Start(path string, skipFrames int) (<-chan struct{}, error)
	// Kill terminates the owned process immediately. Killing an already
	// exited process is a no-op.
	Kill()
	// Running reports whether the owned process is still alive.
	Running() bool
	// Sweep kills stray decoder processes found in the process table that
	// the owned handle does not cover, returning how many were found. A
	// non-zero count means handle tracking missed a process and is logged
	// as such; the sweep is a safety net, not the cleanup mechanism.
	Sweep() int
}

// mpg123Decoder drives mpg123 through an owned process handle.
type mpg123Decoder struct {
	bin  string
	gain int

	mu  sync.Mutex
	cmd *exec.Cmd
}

// NewMPG123Decoder creates a decoder using the given mpg123 binary.
func NewMPG123Decoder(bin string, gain int) Decoder {
	return &mpg123Decoder{bin: bin, gain: gain}
}

func (d *mpg123Decoder) Start(path string, skipFrames int) (<-chan struct{}, error) {
	args := []string{"-q", "--gain", strconv.Itoa(d.gain)}
	if skipFrames > 0 {
		args = append(args, "--skip", strconv.Itoa(skipFrames))
	}
	args = append(args, path)

	cmd := exec.Command(d.bin, args...)
	if err := cmd.Start(); err != nil {
		return nil, errors.Wrapf(err, "failed to start decoder: bin=%s", d.bin)
	}

	d.mu.Lock()
	d.cmd = cmd
	d.mu.Unlock()

	zlog.Info().Msgf("decoder started: pid=%d file=%s skipFrames=%d", cmd.Process.Pid, filepath.Base(path), skipFrames)

	done := make(chan struct{})
	go func() {
		defer close(done)
		err := cmd.Wait()

		d.mu.Lock()
		if d.cmd == cmd {
			d.cmd = nil
		}
		d.mu.Unlock()

		if err != nil {
			zlog.Debug().Msgf("decoder exited: pid=%d result=%v", cmd.Process.Pid, err)
		} else {
			zlog.Debug().Msgf("decoder exited cleanly: pid=%d", cmd.Process.Pid)
		}
	}()
	return done, nil
}

func (d *mpg123Decoder) Kill() {
	d.mu.Lock()
	cmd := d.cmd
	d.mu.Unlock()

	if cmd == nil || cmd.Process == nil {
		return
	}
	if err := cmd.Process.Kill(); err != nil {
		zlog.Debug().Msgf("decoder kill: pid=%d error=%v", cmd.Process.Pid, err)
	}
}

func (d *mpg123Decoder) Running() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.cmd != nil
}

// Sweep scans the process table for decoder processes the handle does not
// own. Finding one means lifetime tracking failed somewhere; it is killed
// and reported.
func (d *mpg123Decoder) Sweep() int {
	d.mu.Lock()
	var ownPid int
	if d.cmd != nil && d.cmd.Process != nil {
		ownPid = d.cmd.Process.Pid
	}
	d.mu.Unlock()

	procs, err := process.Processes()
	if err != nil {
		zlog.Warn().Msgf("process sweep failed: error=%v", err)
		return 0
	}

	base := filepath.Base(d.bin)
	strays := 0
	for _, p := range procs {
		name, err := p.Name()
		if err != nil || !strings.Contains(name, base) {
			continue
		}
		if int(p.Pid) == ownPid {
			continue
		}
		strays++
		zlog.Warn().Msgf("stray decoder process found, killing: pid=%d name=%s", p.Pid, name)
		if err := p.Kill(); err != nil {
			zlog.Warn().Msgf("failed to kill stray decoder: pid=%d error=%v", p.Pid, err)
		}
	}
	return strays
}
