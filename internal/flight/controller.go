// Package flight implements the command-driven vehicle motion state machine.
package flight

import (
	"log/slog"
	"math"

	"skyvox/internal/domain"
)

// Config holds motion tunables. Zero values fall back to DefaultConfig.
type Config struct {
	MoveSpeed       float64 // units/s along the nose axis
	RotationSpeed   float64 // rad/s about +Y
	AltitudeSpeed   float64 // units/s for takeoff, up and down
	LandingSpeed    float64 // units/s while landing
	TakeoffAltitude float64
	LandingTarget   float64
	HoverFloor      float64
	InitialAltitude float64
}

func DefaultConfig() Config {
	return Config{
		MoveSpeed:       6.0,
		RotationSpeed:   math.Pi / 5,
		AltitudeSpeed:   7.0,
		LandingSpeed:    10.0,
		TakeoffAltitude: 25.0,
		LandingTarget:   0.1,
		HoverFloor:      0.5,
		InitialAltitude: 1.0,
	}
}

func (c Config) withDefaults() Config {
	def := DefaultConfig()
	if c.MoveSpeed <= 0 {
		c.MoveSpeed = def.MoveSpeed
	}
	if c.RotationSpeed <= 0 {
		c.RotationSpeed = def.RotationSpeed
	}
	if c.AltitudeSpeed <= 0 {
		c.AltitudeSpeed = def.AltitudeSpeed
	}
	if c.LandingSpeed <= 0 {
		c.LandingSpeed = def.LandingSpeed
	}
	if c.TakeoffAltitude <= 0 {
		c.TakeoffAltitude = def.TakeoffAltitude
	}
	if c.LandingTarget <= 0 {
		c.LandingTarget = def.LandingTarget
	}
	if c.HoverFloor <= 0 {
		c.HoverFloor = def.HoverFloor
	}
	if c.InitialAltitude <= 0 {
		c.InitialAltitude = def.InitialAltitude
	}
	return c
}

// Controller owns the vehicle state. It is driven from a single frame loop
// and is not safe for concurrent use.
type Controller struct {
	cfg    Config
	state  domain.VehicleState
	logger *slog.Logger
}

func NewController(cfg Config, logger *slog.Logger) *Controller {
	if logger == nil {
		logger = slog.Default()
	}
	cfg = cfg.withDefaults()
	return &Controller{
		cfg:    cfg,
		logger: logger.With("component", "flight"),
		state: domain.VehicleState{
			Status: domain.FlightGrounded,
			Pose:   domain.Pose{Position: domain.Vec3{Y: cfg.InitialAltitude}},
		},
	}
}

// State returns a copy of the current vehicle state.
func (c *Controller) State() domain.VehicleState {
	return c.state
}

// Pose returns the current vehicle pose.
func (c *Controller) Pose() domain.Pose {
	return c.state.Pose
}

// Update samples the current command, applies any state transition it
// triggers and then advances the vehicle by dt seconds.
func (c *Controller) Update(cmd domain.Command, dt float64) domain.VehicleState {
	c.applyCommand(cmd)
	if dt > 0 {
		c.step(cmd, dt)
	}
	return c.state
}

func (c *Controller) applyCommand(cmd domain.Command) {
	switch cmd {
	case domain.CommandTakeoff:
		if c.state.Status == domain.FlightGrounded {
			c.state.TargetAltitude = c.cfg.TakeoffAltitude
			c.transition(domain.FlightTakingOff)
		}
	case domain.CommandLand:
		if c.state.Status == domain.FlightFlying || c.state.Status == domain.FlightTakingOff {
			c.state.TargetAltitude = c.cfg.LandingTarget
			c.transition(domain.FlightLanding)
		}
	}
}

func (c *Controller) step(cmd domain.Command, dt float64) {
	pos := &c.state.Pose.Position

	switch c.state.Status {
	case domain.FlightTakingOff:
		pos.Y += c.cfg.AltitudeSpeed * dt
		if pos.Y >= c.state.TargetAltitude {
			pos.Y = c.state.TargetAltitude
			c.transition(domain.FlightFlying)
		}
	case domain.FlightLanding:
		pos.Y -= c.cfg.LandingSpeed * dt
		if pos.Y <= c.state.TargetAltitude {
			pos.Y = c.state.TargetAltitude
			c.transition(domain.FlightGrounded)
		}
	case domain.FlightFlying:
		c.move(cmd, dt)
	}
}

func (c *Controller) move(cmd domain.Command, dt float64) {
	pose := &c.state.Pose
	switch cmd {
	case domain.CommandForward:
		pose.Position = pose.Position.Add(domain.Forward(pose.Heading).Scale(c.cfg.MoveSpeed * dt))
	case domain.CommandBackward:
		pose.Position = pose.Position.Add(domain.Forward(pose.Heading).Scale(-c.cfg.MoveSpeed * dt))
	case domain.CommandLeft:
		pose.Heading += c.cfg.RotationSpeed * dt
	case domain.CommandRight:
		pose.Heading -= c.cfg.RotationSpeed * dt
	case domain.CommandUp:
		pose.Position.Y += c.cfg.AltitudeSpeed * dt
	case domain.CommandDown:
		pose.Position.Y = math.Max(pose.Position.Y-c.cfg.AltitudeSpeed*dt, c.cfg.HoverFloor)
	}
}

func (c *Controller) transition(next domain.FlightStatus) {
	prev := c.state.Status
	c.state.Status = next
	c.logger.Info("flight status changed",
		"from", prev,
		"to", next,
		"altitude", c.state.Pose.Position.Y,
		"target", c.state.TargetAltitude,
	)
}

// Ignored reports whether cmd has no effect in the current status. The UI
// uses it to explain why a spoken command did nothing.
func (c *Controller) Ignored(cmd domain.Command) bool {
	switch cmd {
	case domain.CommandStop:
		return false
	case domain.CommandTakeoff:
		return c.state.Status != domain.FlightGrounded
	case domain.CommandLand:
		return c.state.Status != domain.FlightFlying && c.state.Status != domain.FlightTakingOff
	default:
		return c.state.Status != domain.FlightFlying
	}
}
