package render

import (
	"github.com/go-gl/mathgl/mgl64"

	"github.com/decker502/pfx/pkg/components"
)

const (
	// DefaultMaxDecals is how many marks a scene keeps.
	DefaultMaxDecals = 256
	// DefaultDecalLife is how long a mark stays, in ms.
	DefaultDecalLife = 10000
	// decalFade is the fade out time at the end of a mark's life, in ms.
	decalFade = 1000
)

// PlacedDecal is a mark with the time it was placed.
type PlacedDecal struct {
	components.Decal
	Time int
}

// Scene collects one frame of particle output. It implements the particle
// system's scene and the bounce effects' decal sink.
//
// Lights submitted in a frame light the next frame, which is how
// LightForPoint can answer before the frame's own lights are known.
type Scene struct {
	Sprites []components.SpriteRenderable
	Models  []components.ModelRenderable
	Lights  []components.DynamicLight
	Decals  []PlacedDecal

	// Ambient is the light every point receives.
	Ambient mgl64.Vec3

	MaxDecals int
	DecalLife int

	prevLights []components.DynamicLight
	now        int
}

// NewScene creates an empty scene with a dim grey ambient light.
func NewScene() *Scene {
	return &Scene{
		Ambient:   mgl64.Vec3{0.4, 0.4, 0.4},
		MaxDecals: DefaultMaxDecals,
		DecalLife: DefaultDecalLife,
	}
}

// Begin starts a new frame at now (ms): clears the submissions of the
// previous frame and drops expired decals.
func (s *Scene) Begin(now int) {
	s.now = now
	s.prevLights = append(s.prevLights[:0], s.Lights...)
	s.Sprites = s.Sprites[:0]
	s.Models = s.Models[:0]
	s.Lights = s.Lights[:0]

	live := s.Decals[:0]
	for _, d := range s.Decals {
		if now-d.Time < s.DecalLife {
			live = append(live, d)
		}
	}
	s.Decals = live
}

// Now returns the time passed to the last Begin.
func (s *Scene) Now() int { return s.now }

func (s *Scene) SubmitSprite(r components.SpriteRenderable)   { s.Sprites = append(s.Sprites, r) }
func (s *Scene) SubmitModel(m components.ModelRenderable)     { s.Models = append(s.Models, m) }
func (s *Scene) SubmitDynamicLight(l components.DynamicLight) { s.Lights = append(s.Lights, l) }

// PlaceDecal adds a mark, dropping the oldest one when full.
func (s *Scene) PlaceDecal(d components.Decal) {
	if s.MaxDecals <= 0 {
		return
	}
	if len(s.Decals) >= s.MaxDecals {
		copy(s.Decals, s.Decals[1:])
		s.Decals = s.Decals[:len(s.Decals)-1]
	}
	s.Decals = append(s.Decals, PlacedDecal{Decal: d, Time: s.now})
}

// DecalAlpha returns the fade factor of a mark at the current time.
func (s *Scene) DecalAlpha(d PlacedDecal) float64 {
	left := s.DecalLife - (s.now - d.Time)
	if left >= decalFade {
		return 1
	}
	if left <= 0 {
		return 0
	}
	return float64(left) / decalFade
}

// LightForPoint returns the ambient light plus the previous frame's dynamic
// lights at p, each falling off linearly to its radius.
func (s *Scene) LightForPoint(p mgl64.Vec3) mgl64.Vec3 {
	light := s.Ambient
	for _, l := range s.prevLights {
		if l.Radius <= 0 {
			continue
		}
		f := 1 - p.Sub(l.Origin).Len()/l.Radius
		if f <= 0 {
			continue
		}
		light = light.Add(mgl64.Vec3{l.Color[0], l.Color[1], l.Color[2]}.Mul(f))
	}
	return light
}

// Reset drops everything, including marks.
func (s *Scene) Reset() {
	s.Sprites, s.Models, s.Lights, s.Decals, s.prevLights = nil, nil, nil, nil, nil
}
