package components

import (
	"github.com/decker502/pfx/internal/particle"
	"github.com/decker502/pfx/pkg/ecs"
)

// EjectorComponent is a live ejector. It fires one particle of every
// template in its class each time NextEjectionTime passes.
//
// This is a pure data component following ECS principles - it contains no methods.
type EjectorComponent struct {
	Class  *particle.BaseEjector
	Parent ecs.Handle // parent system

	// Count is the number of ejections left, particle.Infinite for endless
	// ejectors. TotalParticles is the resolved starting count.
	Count          int
	TotalParticles int

	NextEjectionTime int // ms

	// LiveParticles counts valid particles whose parent is this ejector.
	// An ejector is only freed once this drops to zero.
	LiveParticles int
}
