package audio

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strconv"
	"strings"
	"sync"
	"time"

	"skyvox/internal/ports"
)

// ErrCaptureExited is returned when the capture process dies before producing audio.
var ErrCaptureExited = errors.New("capture process exited before audio started")

const (
	defaultStartupGrace = 250 * time.Millisecond
	defaultStopGrace    = 1200 * time.Millisecond
)

// Microphone streams 16-bit little-endian PCM from an ffmpeg child process.
type Microphone struct {
	command      string
	startupGrace time.Duration
	stopGrace    time.Duration
}

func NewMicrophone(command string) *Microphone {
	if strings.TrimSpace(command) == "" {
		command = "ffmpeg"
	}
	return &Microphone{
		command:      command,
		startupGrace: defaultStartupGrace,
		stopGrace:    defaultStopGrace,
	}
}

// Available reports whether the capture binary can be found.
func (m *Microphone) Available() bool {
	_, err := exec.LookPath(m.command)
	return err == nil
}

func (m *Microphone) Start(ctx context.Context, cfg ports.AudioConfig) (ports.AudioSession, error) {
	cmd := exec.CommandContext(ctx, m.command, captureArgs(cfg)...)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, fmt.Errorf("capture stdout pipe: %w", err)
	}
	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("start %s: %w", m.command, err)
	}

	exited := make(chan error, 1)
	go func() {
		exited <- cmd.Wait()
		close(exited)
	}()

	select {
	case err := <-exited:
		if err != nil {
			return nil, fmt.Errorf("%w: %v: %s", ErrCaptureExited, err, trimmed(stderr.String()))
		}
		return nil, ErrCaptureExited
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-time.After(m.startupGrace):
	}

	return &micSession{
		stdout:    stdout,
		stderr:    &stderr,
		process:   cmd.Process,
		exited:    exited,
		stopGrace: m.stopGrace,
	}, nil
}

func captureArgs(cfg ports.AudioConfig) []string {
	if cfg.SampleRate <= 0 {
		cfg.SampleRate = 16000
	}
	if cfg.Channels <= 0 {
		cfg.Channels = 1
	}
	if cfg.InputFormat == "" {
		cfg.InputFormat = "pulse"
	}
	if cfg.InputDevice == "" {
		cfg.InputDevice = "default"
	}

	return []string{
		"-nostdin",
		"-hide_banner",
		"-loglevel", "warning",
		"-f", cfg.InputFormat,
		"-i", cfg.InputDevice,
		"-ac", strconv.Itoa(cfg.Channels),
		"-ar", strconv.Itoa(cfg.SampleRate),
		"-f", "s16le",
		"-",
	}
}

type micSession struct {
	stdout io.ReadCloser
	stderr *bytes.Buffer

	process   *os.Process
	exited    <-chan error
	stopGrace time.Duration

	stopOnce sync.Once
	stopErr  error
}

func (s *micSession) Read(p []byte) (int, error) {
	return s.stdout.Read(p)
}

func (s *micSession) Close() error {
	return s.Stop()
}

// Stop interrupts the capture process, killing it if it ignores the signal.
func (s *micSession) Stop() error {
	s.stopOnce.Do(func() {
		if s.process != nil {
			_ = s.process.Signal(os.Interrupt)
		}

		select {
		case err, ok := <-s.exited:
			if ok {
				s.stopErr = ignoreExitStatus(err)
			}
		case <-time.After(s.stopGrace):
			if s.process != nil {
				_ = s.process.Kill()
			}
			if err, ok := <-s.exited; ok {
				s.stopErr = ignoreExitStatus(err)
			}
		}

		if err := s.stdout.Close(); err != nil && !errors.Is(err, os.ErrClosed) && s.stopErr == nil {
			s.stopErr = err
		}
		if s.stopErr != nil && s.stderr.Len() > 0 {
			s.stopErr = fmt.Errorf("%w: %s", s.stopErr, trimmed(s.stderr.String()))
		}
	})
	return s.stopErr
}

// ignoreExitStatus drops the non-zero status ffmpeg reports after SIGINT.
func ignoreExitStatus(err error) error {
	if err == nil {
		return nil
	}
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		return nil
	}
	return err
}

func trimmed(s string) string {
	return strings.TrimSpace(s)
}
