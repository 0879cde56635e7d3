package utils

import (
	"math"
	"math/rand"

	"github.com/go-gl/mathgl/mgl64"
)

// Axis is an orientation expressed as three basis vectors (forward, left, up).
type Axis [3]mgl64.Vec3

// AxisDefault is the identity orientation.
var AxisDefault = Axis{
	{1, 0, 0},
	{0, 1, 0},
	{0, 0, 1},
}

// Up is the world up vector.
var Up = mgl64.Vec3{0, 0, 1}

// Normalize returns v scaled to unit length and the original length.
// A zero vector is returned unchanged with length 0 instead of producing NaNs.
func Normalize(v mgl64.Vec3) (mgl64.Vec3, float64) {
	l := v.Len()
	if l == 0 {
		return mgl64.Vec3{}, 0
	}
	return v.Mul(1 / l), l
}

// ProjectPointOnPlane projects p onto the plane through the origin with the given normal.
func ProjectPointOnPlane(p, normal mgl64.Vec3) mgl64.Vec3 {
	n, l := Normalize(normal)
	if l == 0 {
		return p
	}
	return p.Sub(n.Mul(p.Dot(n)))
}

// PerpendicularVector returns a unit vector perpendicular to src.
// The world axis least aligned with src is projected onto src's plane.
func PerpendicularVector(src mgl64.Vec3) mgl64.Vec3 {
	pos := 0
	minElem := math.Inf(1)
	for i := 0; i < 3; i++ {
		if a := math.Abs(src[i]); a < minElem {
			pos = i
			minElem = a
		}
	}

	var temp mgl64.Vec3
	temp[pos] = 1

	p, _ := Normalize(ProjectPointOnPlane(temp, src))
	return p
}

// RotatePointAroundVector rotates point around dir by the given angle in degrees.
func RotatePointAroundVector(dir, point mgl64.Vec3, degrees float64) mgl64.Vec3 {
	axis, l := Normalize(dir)
	if l == 0 {
		return point
	}
	return mgl64.QuatRotate(mgl64.DegToRad(degrees), axis).Rotate(point)
}

// Crandom returns a uniformly distributed value in [-1, 1).
func Crandom(rng *rand.Rand) float64 {
	return 2*rng.Float64() - 1
}

// SpreadVector deflects v by up to spread degrees inside a cone around itself,
// then rolls the result by a random angle around v.
func SpreadVector(v mgl64.Vec3, spread float64, rng *rand.Rand) mgl64.Vec3 {
	randomSpread := Crandom(rng) * spread
	randomRotation := rng.Float64() * 360

	if v.LenSqr() == 0 {
		return v
	}

	p := PerpendicularVector(v)
	r1 := RotatePointAroundVector(p, v, randomSpread)
	return RotatePointAroundVector(v, r1, randomRotation)
}

// TransformByAxis expresses local vector v in the frame described by axis.
func TransformByAxis(v mgl64.Vec3, axis Axis) mgl64.Vec3 {
	return mgl64.Mat3FromCols(axis[0], axis[1], axis[2]).Mul3x1(v)
}

// AxisFromDirection builds an orientation whose forward vector follows dir.
// Vertical or degenerate directions fall back to AxisDefault.
func AxisFromDirection(dir mgl64.Vec3) Axis {
	forward, _ := Normalize(dir)
	if forward[0] == 0 && forward[1] == 0 {
		return AxisDefault
	}

	up, _ := Normalize(ProjectPointOnPlane(Up, forward))
	return Axis{forward, up.Cross(forward), up}
}

// Scale multiplies every basis vector of a by s.
func (a Axis) Scale(s float64) Axis {
	return Axis{a[0].Mul(s), a[1].Mul(s), a[2].Mul(s)}
}
