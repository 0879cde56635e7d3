package render

import (
	"image/color"
	"math"

	"github.com/go-gl/mathgl/mgl64"

	"github.com/decker502/pfx/pkg/components"
	"github.com/decker502/pfx/pkg/utils"
	"github.com/decker502/pfx/pkg/world"
)

// Quad corners are ordered top-left, top-right, bottom-left, bottom-right.
type quad [4]mgl64.Vec3

// spriteQuad returns a camera facing square of half size radius, rotated by
// rotation degrees around the view direction.
func spriteQuad(origin mgl64.Vec3, radius, rotation float64, view utils.Axis) quad {
	rad := mgl64.DegToRad(rotation)
	cos, sin := math.Cos(rad), math.Sin(rad)
	left := view[1].Mul(cos).Add(view[2].Mul(sin)).Mul(radius)
	up := view[2].Mul(cos).Sub(view[1].Mul(sin)).Mul(radius)
	return quad{
		origin.Add(left).Add(up),
		origin.Sub(left).Add(up),
		origin.Add(left).Sub(up),
		origin.Sub(left).Sub(up),
	}
}

// decalQuad returns the square a mark covers on its surface, lifted off
// the surface slightly to avoid z fighting.
func decalQuad(d components.Decal) quad {
	normal, l := utils.Normalize(d.Normal)
	if l == 0 {
		normal = utils.Up
	}
	t1 := utils.PerpendicularVector(normal)
	t1 = utils.RotatePointAroundVector(normal, t1, d.Rotation)
	t2 := normal.Cross(t1)

	origin := d.Origin.Add(normal.Mul(0.25))
	a, b := t1.Mul(d.Radius), t2.Mul(d.Radius)
	return quad{
		origin.Add(a).Add(b),
		origin.Sub(a).Add(b),
		origin.Add(a).Sub(b),
		origin.Sub(a).Sub(b),
	}
}

// boxEdges returns the twelve edges of an oriented box.
func boxEdges(origin mgl64.Vec3, axis utils.Axis, half mgl64.Vec3) [12][2]mgl64.Vec3 {
	var corners [8]mgl64.Vec3
	for i := range corners {
		local := mgl64.Vec3{half[0], half[1], half[2]}
		for k := 0; k < 3; k++ {
			if i&(1<<k) != 0 {
				local[k] = -local[k]
			}
		}
		corners[i] = origin.Add(utils.TransformByAxis(local, axis))
	}

	var edges [12][2]mgl64.Vec3
	n := 0
	for i := range corners {
		for k := 0; k < 3; k++ {
			if j := i | 1<<k; j != i {
				edges[n] = [2]mgl64.Vec3{corners[i], corners[j]}
				n++
			}
		}
	}
	return edges
}

// brushEdges returns the edges of an axis aligned brush.
func brushEdges(b world.Brush) [12][2]mgl64.Vec3 {
	center := b.Mins.Add(b.Maxs).Mul(0.5)
	half := b.Maxs.Sub(b.Mins).Mul(0.5)
	return boxEdges(center, utils.AxisDefault, half)
}

// modelHalfSize returns half the drawn box size of a model. Model axes
// carry the particle's scale, so the box is in model units.
func modelHalfSize(size [3]float64) mgl64.Vec3 {
	return mgl64.Vec3{size[0] / 2, size[1] / 2, size[2] / 2}
}

// brushColor returns the wireframe colour for brush contents.
func brushColor(c world.Contents) color.RGBA {
	switch {
	case c&world.ContentsNoDrop != 0:
		return color.RGBA{160, 40, 40, 255}
	case c&world.ContentsWater != 0:
		return color.RGBA{40, 80, 160, 255}
	}
	return color.RGBA{90, 90, 90, 255}
}

// scaleColor multiplies a colour by f in [0, 1] including alpha.
func scaleColor(c color.RGBA, f float64) color.RGBA {
	f = mgl64.Clamp(f, 0, 1)
	return color.RGBA{uint8(float64(c.R) * f), uint8(float64(c.G) * f), uint8(float64(c.B) * f), uint8(float64(c.A) * f)}
}

// lightColor converts a dynamic light to a translucent premultiplied glow colour.
func lightColor(l components.DynamicLight, alpha float64) color.RGBA {
	alpha = mgl64.Clamp(alpha, 0, 1)
	ch := func(v float64) uint8 { return uint8(255 * mgl64.Clamp(v, 0, 1) * alpha) }
	return color.RGBA{ch(l.Color[0]), ch(l.Color[1]), ch(l.Color[2]), uint8(255 * alpha)}
}

// premultiply converts a straight alpha particle colour to Go's
// premultiplied color.RGBA.
func premultiply(c color.RGBA) color.RGBA {
	a := float64(c.A) / 255
	return color.RGBA{uint8(float64(c.R) * a), uint8(float64(c.G) * a), uint8(float64(c.B) * a), c.A}
}
