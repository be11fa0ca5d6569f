package usecase

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"skyvox/internal/camera"
	"skyvox/internal/domain"
	"skyvox/internal/flight"
	"skyvox/internal/ports"
)

const maxFrameDelta = 250 * time.Millisecond

// CommandSource provides the command sampled at the start of each frame.
type CommandSource interface {
	Current() domain.Command
}

// Loop drives the flight controller and then the follow camera once per frame.
type Loop struct {
	flight   *flight.Controller
	camera   *camera.Follow
	commands CommandSource
	events   ports.EventSink
	interval time.Duration
	logger   *slog.Logger

	mu      sync.Mutex
	seq     uint64
	lastCmd domain.Command
	last    domain.Frame
}

func NewLoop(
	flightController *flight.Controller,
	follow *camera.Follow,
	commands CommandSource,
	events ports.EventSink,
	frameRate int,
	logger *slog.Logger,
) *Loop {
	if frameRate <= 0 {
		frameRate = 60
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Loop{
		flight:   flightController,
		camera:   follow,
		commands: commands,
		events:   sinkOrNop(events),
		interval: time.Second / time.Duration(frameRate),
		logger:   logger.With("component", "loop"),
		lastCmd:  domain.CommandStop,
		last:     domain.Frame{Vehicle: flightController.State(), Camera: follow.Pose()},
	}
}

// AttachOrbit hands the camera look-at basis to a manual orbit control; nil detaches it.
func (l *Loop) AttachOrbit(orbit ports.OrbitControl) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.camera.AttachOrbit(orbit)
}

// Run ticks until ctx is done. Elapsed time is measured between ticks and
// capped so a stalled process does not teleport the vehicle.
func (l *Loop) Run(ctx context.Context) error {
	ticker := time.NewTicker(l.interval)
	defer ticker.Stop()

	l.logger.Info("frame loop started", "interval", l.interval)
	prev := time.Now()
	for {
		select {
		case <-ctx.Done():
			l.logger.Info("frame loop stopped")
			return ctx.Err()
		case now := <-ticker.C:
			elapsed := now.Sub(prev)
			prev = now
			if elapsed > maxFrameDelta {
				elapsed = maxFrameDelta
			}
			l.Step(elapsed.Seconds())
		}
	}
}

// Step runs one frame of dt seconds and emits the resulting frame.
func (l *Loop) Step(dt float64) domain.Frame {
	cmd := l.commands.Current()

	l.mu.Lock()
	if cmd != l.lastCmd {
		if l.flight.Ignored(cmd) {
			l.logger.Debug("command has no effect", "command", cmd, "status", l.flight.State().Status)
		}
		l.lastCmd = cmd
	}
	vehicle := l.flight.Update(cmd, dt)
	cam := l.camera.Update(vehicle.Pose, dt)
	l.seq++
	frame := domain.Frame{Seq: l.seq, Command: cmd, Vehicle: vehicle, Camera: cam}
	l.last = frame
	l.mu.Unlock()

	l.events.FrameRendered(frame)
	return frame
}

// Last returns the most recent frame.
func (l *Loop) Last() domain.Frame {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.last
}
