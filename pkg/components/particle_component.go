package components

import (
	"github.com/go-gl/mathgl/mgl64"

	"github.com/decker502/pfx/internal/particle"
	"github.com/decker502/pfx/pkg/ecs"
	"github.com/decker502/pfx/pkg/utils"
)

// ParticleComponent is a live particle.
//
// Every randomised attribute is resolved once at spawn time and stored here,
// so the per-frame code only interpolates. Times are in milliseconds.
//
// This is a pure data component following ECS principles - it contains no methods.
type ParticleComponent struct {
	Class   *particle.BaseParticle
	Ejector ecs.Handle // parent ejector

	// Lifecycle (生命周期, ms)
	BirthTime    int
	LifeTime     int
	LastEvalTime int

	// Kinematics
	Origin       mgl64.Vec3
	Velocity     mgl64.Vec3
	Acceleration mgl64.Vec3
	AtRest       bool

	// LastAxis keeps a model oriented once it stops moving.
	LastAxis utils.Axis

	// Resolved lerp values (already randomised)
	Radius       particle.LerpValue
	Alpha        particle.LerpValue
	Rotation     particle.LerpValue
	DLightRadius particle.LerpValue
	ColorDelay   int

	// Bounce side effect budgets
	BounceMarkRadius float64
	BounceMarkCount  int
	BounceSoundCount int

	// Display
	Model     int // chosen model handle, 0 for sprites
	FrameLerp int // per particle animation frame time, resolves synced animations
	Anim      LerpFrame

	// Child system spawned for this particle, if any
	Child ecs.Handle

	SortKey uint32
}

// LerpFrame is the model animation state of a particle. Frame is blended
// from OldFrame by 1-BackLerp.
type LerpFrame struct {
	OldFrame     int
	OldFrameTime int
	Frame        int
	FrameTime    int

	// AnimationTime is when the animation started.
	AnimationTime int
	BackLerp      float64
}
