package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"skyvox/internal/bootstrap"
	"skyvox/internal/domain"
)

// replay feeds a script to the pilot and advances the loop in simulated time.
// Lines are utterances, "wait <duration>" lines advance the clock, and "#"
// starts a comment.
func replay(services *bootstrap.Services, script io.Reader, fps int, tail time.Duration) (domain.Frame, error) {
	if fps <= 0 {
		fps = 60
	}
	dt := 1.0 / float64(fps)
	frame := services.Loop.Last()

	advance := func(d time.Duration) {
		for n := int(d.Seconds() * float64(fps)); n > 0; n-- {
			frame = services.Loop.Step(dt)
		}
	}

	scanner := bufio.NewScanner(script)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		if rest, ok := strings.CutPrefix(line, "wait "); ok {
			d, err := time.ParseDuration(strings.TrimSpace(rest))
			if err != nil {
				return frame, fmt.Errorf("script line %d: %w", lineNo, err)
			}
			advance(d)
			continue
		}
		services.Pilot.HandleUtterance(line)
	}
	if err := scanner.Err(); err != nil {
		return frame, fmt.Errorf("read script: %w", err)
	}

	advance(tail)
	return frame, nil
}

// interactive runs the loop in real time while utterances are typed on stdin.
// It returns when stdin closes, ctx is done, or limit elapses.
func interactive(ctx context.Context, services *bootstrap.Services, stdin io.Reader, limit time.Duration) (domain.Frame, error) {
	if limit > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, limit)
		defer cancel()
	}
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	loopDone := make(chan error, 1)
	go func() { loopDone <- services.Loop.Run(ctx) }()

	lines := make(chan string)
	go func() {
		defer close(lines)
		scanner := bufio.NewScanner(stdin)
		for scanner.Scan() {
			select {
			case lines <- scanner.Text():
			case <-ctx.Done():
				return
			}
		}
	}()

	for {
		select {
		case line, ok := <-lines:
			if !ok {
				cancel()
				<-loopDone
				return services.Loop.Last(), nil
			}
			if line = strings.TrimSpace(line); line != "" {
				services.Pilot.HandleUtterance(line)
			}
		case <-ctx.Done():
			<-loopDone
			return services.Loop.Last(), nil
		}
	}
}

// logSink renders every event as a log line; frames are sampled.
type logSink struct {
	logger *slog.Logger
	every  uint64
}

func newLogSink(logger *slog.Logger, every uint64) *logSink {
	if every == 0 {
		every = 60
	}
	return &logSink{logger: logger.With("component", "sim"), every: every}
}

func (s *logSink) ListeningChanged(status domain.ListeningStatus) {
	s.logger.Info("listening", "supported", status.Supported, "listening", status.Listening, "starting", status.Starting)
}

func (s *logSink) PartialTranscript(text string) {
	if text != "" {
		s.logger.Debug("hearing", "text", text)
	}
}

func (s *logSink) FinalTranscript(raw string) {
	s.logger.Info("heard", "text", raw)
}

func (s *logSink) CommandChanged(command domain.Command, label string) {
	s.logger.Info("command", "command", string(command), "label", label)
}

func (s *logSink) SessionError(err domain.SessionError) {
	s.logger.Warn("recognition error", "kind", string(err.Kind), "code", err.Code, "message", err.Message)
}

func (s *logSink) FrameRendered(frame domain.Frame) {
	if frame.Seq%s.every != 0 {
		return
	}
	p := frame.Vehicle.Pose.Position
	s.logger.Debug("frame",
		"seq", frame.Seq,
		"status", string(frame.Vehicle.Status),
		"x", p.X, "y", p.Y, "z", p.Z,
		"heading", frame.Vehicle.Pose.Heading,
	)
}
