// Package camera implements the smoothed chase camera that follows the vehicle.
package camera

import (
	"math"

	"skyvox/internal/domain"
	"skyvox/internal/ports"
)

const (
	DefaultDamping = 0.05
	referenceFPS   = 60.0

	// maxStep bounds the dt a single update may consume so the factor stays below 1.
	maxStep = 1.0
)

// DefaultOffset places the camera behind and above the vehicle in its local frame.
var DefaultOffset = domain.Vec3{X: 0, Y: 4, Z: 10}

// Follow is a frame-rate independent chase camera. It only reads the vehicle
// pose it is given; it never mutates it.
type Follow struct {
	offset  domain.Vec3
	damping float64

	pose   domain.CameraPose
	primed bool
	orbit  ports.OrbitControl
}

func NewFollow(damping float64, offset domain.Vec3) *Follow {
	if damping <= 0 {
		damping = DefaultDamping
	}
	return &Follow{offset: offset, damping: damping}
}

// Place sets the camera position and look-at directly, e.g. from the scene's initial camera.
func (f *Follow) Place(position, lookAt domain.Vec3) {
	f.pose = orient(position, lookAt)
	f.primed = true
}

// AttachOrbit makes a manual orbit control's target the look-at basis. Pass nil to detach.
func (f *Follow) AttachOrbit(orbit ports.OrbitControl) {
	f.orbit = orbit
}

// Pose returns the current camera pose.
func (f *Follow) Pose() domain.CameraPose {
	return f.pose
}

// Ideal returns the position and look-at the camera converges to for a vehicle pose.
func (f *Follow) Ideal(vehicle domain.Pose) (position, lookAt domain.Vec3) {
	lookAt = vehicle.Position
	position = lookAt.Add(f.offset.RotateY(vehicle.Heading))
	return position, lookAt
}

// Factor is the per-frame interpolation weight for a frame of dt seconds.
func (f *Follow) Factor(dt float64) float64 {
	if dt <= 0 {
		return 0
	}
	dt = math.Min(dt, maxStep)
	return 1 - math.Exp(-f.damping*referenceFPS*dt)
}

// Update moves the camera towards its ideal pose behind the vehicle.
func (f *Follow) Update(vehicle domain.Pose, dt float64) domain.CameraPose {
	idealPosition, idealLookAt := f.Ideal(vehicle)
	if !f.primed {
		f.Place(idealPosition, idealLookAt)
	}

	basis := f.pose.LookAt
	if f.orbit != nil {
		basis = f.orbit.Target()
	}

	t := f.Factor(dt)
	position := f.pose.Position.Lerp(idealPosition, t)
	lookAt := basis.Lerp(idealLookAt, t)
	f.pose = orient(position, lookAt)

	if f.orbit != nil {
		f.orbit.SetTarget(lookAt)
	}
	return f.pose
}

// orient points a camera at position towards lookAt. Yaw follows the same
// convention as the vehicle heading: 0 looks down -Z.
func orient(position, lookAt domain.Vec3) domain.CameraPose {
	dir := lookAt.Sub(position)
	pose := domain.CameraPose{Position: position, LookAt: lookAt}
	horizontal := math.Hypot(dir.X, dir.Z)
	if horizontal == 0 && dir.Y == 0 {
		return pose
	}
	pose.Yaw = math.Atan2(-dir.X, -dir.Z)
	pose.Pitch = math.Atan2(dir.Y, horizontal)
	return pose
}

// DefaultStart is the scene camera before the follow rig takes over.
var DefaultStart = domain.Vec3{X: 0, Y: 10, Z: 25}
