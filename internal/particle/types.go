// Package particle provides the template data structures and the script
// parser for particle effect descriptions.
//
// A script file holds any number of named systems:
//
//	sparks
//	{
//	  ejector
//	  {
//	    particle
//	    {
//	      shader sync gfx/sparks/spark1 gfx/sparks/spark2
//	      velocityType static
//	      velocityDir linear
//	      velocity 0 0 1 30
//	      velocityMagnitude 200~25%
//	      radius 0 4~50% -
//	      lifeTime 600~20%
//	    }
//	    count 10
//	    delay 0
//	    period 0 50 -
//	  }
//	}
//
// Templates are immutable once loaded; live instances are owned by the
// systems package.
package particle

import "github.com/go-gl/mathgl/mgl64"

const (
	// SameAsInitial marks a LerpValue final that holds the initial value for
	// the whole life of the particle.
	SameAsInitial = -2.0

	// Infinite marks an ejector that never runs out of particles.
	Infinite = -1
)

// MoveType selects where a velocity or acceleration direction comes from.
type MoveType int

const (
	MoveStatic MoveType = iota
	MoveStaticTransform
	MoveTag
	MoveCent
	MoveNormal
	MoveLastNormal
	MoveOpportunisticNormal
)

var moveTypeNames = map[string]MoveType{
	"static":               MoveStatic,
	"static_transform":     MoveStaticTransform,
	"tag":                  MoveTag,
	"cent":                 MoveCent,
	"normal":               MoveNormal,
	"last_normal":          MoveLastNormal,
	"opportunistic_normal": MoveOpportunisticNormal,
}

func (m MoveType) String() string {
	for name, v := range moveTypeNames {
		if v == m {
			return name
		}
	}
	return "unknown"
}

// DirType selects whether a move model follows a direction or heads towards a point.
type DirType int

const (
	DirLinear DirType = iota
	DirPoint
)

func (d DirType) String() string {
	if d == DirPoint {
		return "point"
	}
	return "linear"
}

// LerpValue describes how one scalar attribute animates over a particle's life.
// Each field that can vary carries its own random fraction.
type LerpValue struct {
	Delay         int
	DelayRandFrac float64

	Initial         float64
	InitialRandFrac float64

	Final         float64
	FinalRandFrac float64
}

// MoveValues is the velocity or acceleration model of a particle.
type MoveValues struct {
	Type    MoveType
	DirType DirType

	Dir   mgl64.Vec3
	Point mgl64.Vec3

	// Spread is the cone half-angle in degrees.
	Spread float64

	Magnitude         float64
	MagnitudeRandFrac float64

	ParentVelFrac         float64
	ParentVelFracRandFrac float64
}

// ModelAnimation describes the frame range a model particle plays.
type ModelAnimation struct {
	FirstFrame int
	NumFrames  int
	LoopFrames int
	Reversed   bool

	// FrameLerp is the duration of one frame in milliseconds.
	// A negative value means the animation is stretched over the particle's life.
	FrameLerp int
}

// Synced reports whether the animation length follows the particle lifetime.
func (a ModelAnimation) Synced() bool {
	return a.FrameLerp < 0
}

// Color is an 8-bit RGB triple.
type Color [3]uint8

// White is the default particle and light color.
var White = Color{0xFF, 0xFF, 0xFF}

// BaseParticle is the template every live particle is spawned from.
type BaseParticle struct {
	// Sprite frames (mutually exclusive with Models)
	ShaderNames []string
	Shaders     []int
	Framerate   float64

	// Models
	ModelNames     []string
	Models         []int
	ModelAnimation ModelAnimation

	Displacement       mgl64.Vec3
	RandDisplacement   mgl64.Vec3
	NormalDisplacement float64

	Velocity     MoveValues
	Acceleration MoveValues

	Radius        LerpValue
	PhysicsRadius int
	Alpha         LerpValue
	Rotation      LerpValue

	DynamicLight bool
	DLightRadius LerpValue
	DLightColor  Color
	RealLight    bool

	ColorDelay         int
	ColorDelayRandFrac float64
	InitialColor       Color
	FinalColor         Color

	OverdrawProtection bool
	CullOnStartSolid   bool
	ScaleWithCharge    float64

	BounceFrac         float64
	BounceFracRandFrac float64
	BounceCull         bool

	BounceMarkName           string
	BounceMark               int
	BounceMarkCount          float64
	BounceMarkCountRandFrac  float64
	BounceMarkRadius         float64
	BounceMarkRadiusRandFrac float64

	BounceSoundName          string
	BounceSound              int
	BounceSoundCount         float64
	BounceSoundCountRandFrac float64

	LifeTime         int
	LifeTimeRandFrac float64

	ChildSystemName        string
	ChildSystemHandle      int
	OnDeathSystemName      string
	OnDeathSystemHandle    int
	ChildTrailSystemName   string
	ChildTrailSystemHandle int
}

// newBaseParticle returns a template with the defaults scripts rely on.
func newBaseParticle() *BaseParticle {
	return &BaseParticle{
		InitialColor: White,
		FinalColor:   White,
		DLightColor:  White,
	}
}

// NumFrames is the number of sprite frames.
func (bp *BaseParticle) NumFrames() int { return len(bp.ShaderNames) }

// NumModels is the number of alternative models.
func (bp *BaseParticle) NumModels() int { return len(bp.ModelNames) }

// EjectPeriod controls how often an ejector fires.
type EjectPeriod struct {
	Delay         int
	DelayRandFrac float64

	Initial  int
	Final    int
	RandFrac float64
}

// BaseEjector groups particle templates that are fired together.
type BaseEjector struct {
	Particles []*BaseParticle
	Eject     EjectPeriod

	TotalParticles         int
	TotalParticlesRandFrac float64
}

// IsInfinite reports whether the ejector never exhausts its count.
func (be *BaseEjector) IsInfinite() bool {
	return be.TotalParticles == Infinite
}

// BaseSystem is a named, loadable effect.
type BaseSystem struct {
	Name            string
	Ejectors        []*BaseEjector
	ThirdPersonOnly bool
	Registered      bool

	// File records where the system was defined.
	File string
}
