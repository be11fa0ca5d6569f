package usecase

import (
	"log/slog"
	"sync"

	"skyvox/internal/command"
	"skyvox/internal/domain"
	"skyvox/internal/ports"
)

// PilotConfig controls how recognized speech drives the vehicle.
type PilotConfig struct {
	// StopOnListenEnd resets a movement command to stop when listening ends.
	StopOnListenEnd bool
}

// Pilot reduces finalized utterances to the vehicle's current command.
// The current command is last-write-wins and is sampled by the frame loop.
type Pilot struct {
	normalizer ports.Normalizer
	events     ports.EventSink
	cfg        PilotConfig
	logger     *slog.Logger

	mu      sync.RWMutex
	current domain.Command
	label   string
}

func NewPilot(normalizer ports.Normalizer, events ports.EventSink, cfg PilotConfig, logger *slog.Logger) *Pilot {
	if logger == nil {
		logger = slog.Default()
	}
	return &Pilot{
		normalizer: normalizer,
		events:     sinkOrNop(events),
		cfg:        cfg,
		logger:     logger.With("component", "pilot"),
		current:    domain.CommandStop,
		label:      "None",
	}
}

// HandleUtterance parses a finalized transcript and makes it the current command.
func (p *Pilot) HandleUtterance(utterance string) domain.Command {
	text := utterance
	if p.normalizer != nil {
		normalized, err := p.normalizer.Apply(utterance)
		if err != nil {
			p.logger.Warn("transcript normalization failed", "err", err)
		} else {
			text = normalized
		}
	}

	cmd := command.Parse(text)
	p.logger.Debug("parsed utterance", "raw", utterance, "normalized", text, "command", cmd)
	p.set(cmd)
	return cmd
}

// HandleListenStop applies the listen-stop policy.
func (p *Pilot) HandleListenStop() {
	if !p.cfg.StopOnListenEnd {
		return
	}
	if p.Current().IsMovement() {
		p.set(domain.CommandStop)
	}
}

// Current returns the latest command.
func (p *Pilot) Current() domain.Command {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.current
}

// Label returns the human-readable form of the latest command change.
func (p *Pilot) Label() string {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.label
}

func (p *Pilot) set(cmd domain.Command) {
	p.mu.Lock()
	if p.current == cmd {
		p.mu.Unlock()
		return
	}
	prev := p.current
	p.current = cmd
	p.label = cmd.Label()
	label := p.label
	p.mu.Unlock()

	p.logger.Info("command changed", "from", prev, "to", cmd)
	p.events.CommandChanged(cmd, label)
}
