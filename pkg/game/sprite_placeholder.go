package game

import (
	"hash/fnv"
	"image"
	"image/color"
	"math"
)

// Placeholder shapes for sprites without an image file.
const (
	ShapeDisc   = "disc"
	ShapeRing   = "ring"
	ShapeSpark  = "spark"
	ShapeSquare = "square"
)

// placeholderSize is the edge length of generated sprites in pixels.
const placeholderSize = 32

// placeholderSprite draws a premultiplied soft shape tinted by tint.
func placeholderSprite(shape string, tint color.RGBA) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, placeholderSize, placeholderSize))
	half := float64(placeholderSize) / 2

	for y := 0; y < placeholderSize; y++ {
		for x := 0; x < placeholderSize; x++ {
			dx := (float64(x) + 0.5 - half) / half
			dy := (float64(y) + 0.5 - half) / half
			a := shapeAlpha(shape, dx, dy)
			if a <= 0 {
				continue
			}
			img.SetRGBA(x, y, color.RGBA{
				R: uint8(float64(tint.R) * a),
				G: uint8(float64(tint.G) * a),
				B: uint8(float64(tint.B) * a),
				A: uint8(255 * a),
			})
		}
	}
	return img
}

// shapeAlpha returns the coverage of (dx, dy) in [-1, 1]² for shape.
func shapeAlpha(shape string, dx, dy float64) float64 {
	r := math.Hypot(dx, dy)
	switch shape {
	case ShapeRing:
		d := math.Abs(r - 0.7)
		return clamp01(1 - d/0.25)
	case ShapeSpark:
		// 十字星，中心最亮
		cross := math.Max(clamp01(1-math.Abs(dx)*6), clamp01(1-math.Abs(dy)*6))
		return clamp01(cross*(1-r) + clamp01(1-r*3))
	case ShapeSquare:
		if math.Abs(dx) <= 0.9 && math.Abs(dy) <= 0.9 {
			return 1
		}
		return 0
	default:
		return clamp01(1 - r*r)
	}
}

// nameTint derives a stable bright colour from an asset name, so different
// unconfigured sprites are told apart in the viewer.
func nameTint(name string) color.RGBA {
	h := fnv.New32a()
	h.Write([]byte(name))
	hue := float64(h.Sum32()%360) / 60

	x := 1 - math.Abs(math.Mod(hue, 2)-1)
	var r, g, b float64
	switch int(hue) {
	case 0:
		r, g = 1, x
	case 1:
		r, g = x, 1
	case 2:
		g, b = 1, x
	case 3:
		g, b = x, 1
	case 4:
		r, b = x, 1
	default:
		r, b = 1, x
	}
	// 向白色偏移，粒子颜色会再乘上去
	mix := func(c float64) uint8 { return uint8(255 * (0.5 + 0.5*c)) }
	return color.RGBA{mix(r), mix(g), mix(b), 255}
}

func tintFromConfig(tint []int, fallback color.RGBA) color.RGBA {
	if len(tint) != 3 {
		return fallback
	}
	return color.RGBA{uint8(tint[0]), uint8(tint[1]), uint8(tint[2]), 255}
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
