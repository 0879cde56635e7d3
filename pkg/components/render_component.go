package components

import (
	"image/color"

	"github.com/go-gl/mathgl/mgl64"

	"github.com/decker502/pfx/pkg/utils"
)

// SpriteRenderable is a camera facing quad submitted to a scene.
type SpriteRenderable struct {
	Origin   mgl64.Vec3
	Radius   float64
	Rotation float64 // degrees
	Color    color.RGBA
	Shader   int
	// ShaderTime is the birth time used as the frame time base.
	ShaderTime int
	// Frame is the sprite frame index into the particle's shader list.
	Frame int
	// ThirdPersonOnly hides the sprite from a first person view.
	ThirdPersonOnly bool
}

// ModelRenderable is an oriented model instance submitted to a scene.
type ModelRenderable struct {
	Origin   mgl64.Vec3
	Axis     utils.Axis
	Model    int
	Frame    int
	OldFrame int
	BackLerp float64
	// ThirdPersonOnly hides the model from a first person view.
	ThirdPersonOnly bool
}

// DynamicLight is a point light submitted to a scene.
type DynamicLight struct {
	Origin mgl64.Vec3
	Radius float64
	// Color components are in [0, 1].
	Color [3]float64
}

// Decal is a mark projected onto a surface.
type Decal struct {
	Shader   int
	Origin   mgl64.Vec3
	Normal   mgl64.Vec3
	Rotation float64
	Color    color.RGBA
	Radius   float64
}
