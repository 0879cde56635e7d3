package components

import (
	"github.com/go-gl/mathgl/mgl64"

	"github.com/decker502/pfx/internal/particle"
)

// SystemComponent is a live particle system.
//
// This is a pure data component following ECS principles - it contains no methods.
type SystemComponent struct {
	Class  *particle.BaseSystem
	Handle int // class handle in the store

	Attachment Attachment

	// Normal is the surface normal the system was spawned against. LastNormal
	// survives after the normal source goes away so trails keep their
	// orientation; LastNormalIsCurrent tells whether it is still fresh.
	Normal              mgl64.Vec3
	NormalValid         bool
	LastNormal          mgl64.Vec3
	LastNormalIsCurrent bool

	// Charge scales particle radius for templates with scaleWithCharge.
	Charge float64

	// LazyRemove stops new particles while existing ones finish.
	LazyRemove bool

	// LiveEjectors counts valid ejectors whose parent is this system.
	LiveEjectors int
}
