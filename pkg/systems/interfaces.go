package systems

import (
	"github.com/go-gl/mathgl/mgl64"

	"github.com/decker502/pfx/pkg/components"
	"github.com/decker502/pfx/pkg/utils"
	"github.com/decker502/pfx/pkg/world"
)

// World answers collision and entity queries.
type World interface {
	TraceBox(start, end, mins, maxs mgl64.Vec3, ignore int, mask world.Contents) world.Trace
	PointContents(p mgl64.Vec3, ignore int) world.Contents
	Entity(num int) (world.Entity, bool)
}

// TagResolver is implemented by worlds whose entities carry model tags.
type TagResolver interface {
	TagOrientation(num int, tag string) (mgl64.Vec3, utils.Axis, bool)
}

// Scene receives everything a frame renders.
type Scene interface {
	SubmitSprite(s components.SpriteRenderable)
	SubmitModel(m components.ModelRenderable)
	SubmitDynamicLight(l components.DynamicLight)
	// LightForPoint returns the ambient light at p, components in [0, 1].
	LightForPoint(p mgl64.Vec3) mgl64.Vec3
}

// Effects performs the side effects of particles bouncing.
type Effects interface {
	PlaceDecal(d components.Decal)
	PlaySound(origin mgl64.Vec3, sound int)
}

// TrailSpawner starts trail systems that follow particles.
type TrailSpawner interface {
	SpawnTrailSystem(handle int, front components.Attachment) bool
}

// Recorder receives engine statistics. The metrics package implements it.
type Recorder interface {
	SetLive(systems, ejectors, particles int)
	PoolExhausted(pool string)
	ParticleSpawned()
}

type nopRecorder struct{}

func (nopRecorder) SetLive(int, int, int) {}
func (nopRecorder) PoolExhausted(string)  {}
func (nopRecorder) ParticleSpawned()      {}

type nopEffects struct{}

func (nopEffects) PlaceDecal(components.Decal)  {}
func (nopEffects) PlaySound(mgl64.Vec3, int) {}

// PhysicsConfig holds the user toggles that change particle physics.
type PhysicsConfig struct {
	// BounceParticles enables swept collision traces. When false particles
	// are only culled when they end up inside solid or nodrop volumes.
	BounceParticles bool
}

// Frame is the per frame input of the particle system.
type Frame struct {
	Time      int // ms
	FrameTime int // ms since the previous frame

	ViewOrigin  mgl64.Vec3
	ViewAxis    utils.Axis
	ClientNum   int
	ThirdPerson bool

	Physics PhysicsConfig
}
