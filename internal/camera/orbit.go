package camera

import (
	"sync"

	"skyvox/internal/domain"
)

// Orbit is an OrbitControl whose target is written by the UI and by the follow rig.
type Orbit struct {
	mu     sync.Mutex
	target domain.Vec3
}

func NewOrbit(target domain.Vec3) *Orbit {
	return &Orbit{target: target}
}

func (o *Orbit) Target() domain.Vec3 {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.target
}

func (o *Orbit) SetTarget(target domain.Vec3) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.target = target
}
