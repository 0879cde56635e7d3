package render

import (
	"image"
	"image/color"

	"github.com/decker502/pfx/pkg/game"
	"github.com/decker502/pfx/pkg/world"
)

// Assets resolves the handles stored in renderables.
// *game.ResourceManager implements it.
type Assets interface {
	SpriteSource(h int) image.Image
	ModelStyle(h int) (size [3]float64, tint color.RGBA)
}

// Frame is everything a renderer draws for one frame.
type Frame struct {
	Scene   *Scene
	Camera  *Camera
	Brushes []world.Brush
	Trails  []*game.Trail

	// FirstPerson hides renderables flagged third person only.
	FirstPerson bool
}

// DrawStats counts what the last draw call produced.
type DrawStats struct {
	Sprites int
	Models  int
	Decals  int
	Culled  int
}
