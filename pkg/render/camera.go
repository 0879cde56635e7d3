// Package render draws what the particle system submits: the Scene collects
// one frame of sprites, models, lights and decals, and the ebiten and gg
// renderers turn it into pixels through a perspective Camera.
package render

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"

	"github.com/decker502/pfx/pkg/utils"
)

const (
	defaultNear = 1.0
	defaultFar  = 8192.0
	maxPitch    = 85.0
)

// Camera is a perspective camera in the engine's Z-up world.
type Camera struct {
	Origin mgl64.Vec3
	Axis   utils.Axis // forward, left, up

	FOV           float64 // horizontal, degrees
	Width, Height int
	Near, Far     float64

	view, proj mgl64.Mat4
	dirty      bool
}

// NewCamera returns a camera at the origin looking down +X.
func NewCamera(width, height int, fov float64) *Camera {
	c := &Camera{
		Axis:   utils.AxisDefault,
		FOV:    fov,
		Width:  width,
		Height: height,
		Near:   defaultNear,
		Far:    defaultFar,
	}
	c.dirty = true
	return c
}

// SetView places the camera.
func (c *Camera) SetView(origin mgl64.Vec3, axis utils.Axis) {
	c.Origin = origin
	c.Axis = axis
	c.dirty = true
}

// SetSize changes the viewport.
func (c *Camera) SetSize(width, height int) {
	if width != c.Width || height != c.Height {
		c.Width, c.Height = width, height
		c.dirty = true
	}
}

// Orbit places the camera distance units from target, looking at it from
// yaw and pitch degrees. Pitch is clamped short of straight up or down.
func (c *Camera) Orbit(target mgl64.Vec3, yaw, pitch, distance float64) {
	forward := viewDirection(yaw, pitch)
	c.SetView(target.Sub(forward.Mul(distance)), utils.AxisFromDirection(forward))
}

// Look places the camera at eye, looking along yaw and pitch degrees.
func (c *Camera) Look(eye mgl64.Vec3, yaw, pitch float64) {
	c.SetView(eye, utils.AxisFromDirection(viewDirection(yaw, pitch)))
}

// viewDirection 返回视线方向，正 pitch 表示向下看
func viewDirection(yaw, pitch float64) mgl64.Vec3 {
	pitch = mgl64.Clamp(pitch, -maxPitch, maxPitch)
	y, p := mgl64.DegToRad(yaw), mgl64.DegToRad(pitch)
	return mgl64.Vec3{math.Cos(p) * math.Cos(y), math.Cos(p) * math.Sin(y), -math.Sin(p)}
}

// FOVY returns the vertical field of view in radians.
func (c *Camera) FOVY() float64 {
	aspect := float64(c.Height) / float64(max(c.Width, 1))
	return 2 * math.Atan(math.Tan(mgl64.DegToRad(c.FOV)/2)*aspect)
}

func (c *Camera) update() {
	if !c.dirty {
		return
	}
	c.view = mgl64.LookAtV(c.Origin, c.Origin.Add(c.Axis[0]), c.Axis[2])
	aspect := float64(max(c.Width, 1)) / float64(max(c.Height, 1))
	c.proj = mgl64.Perspective(c.FOVY(), aspect, c.Near, c.Far)
	c.dirty = false
}

// Depth returns the distance of p in front of the camera plane.
func (c *Camera) Depth(p mgl64.Vec3) float64 {
	return p.Sub(c.Origin).Dot(c.Axis[0])
}

// Project maps a world point to screen pixels. ok is false for points
// closer than the near plane.
func (c *Camera) Project(p mgl64.Vec3) (x, y float64, ok bool) {
	c.update()
	clip := c.proj.Mul4(c.view).Mul4x1(p.Vec4(1))
	if clip.W() < c.Near-1e-6 {
		return 0, 0, false
	}
	ndc := clip.Vec3().Mul(1 / clip.W())
	x = (ndc.X() + 1) / 2 * float64(c.Width)
	y = (1 - ndc.Y()) / 2 * float64(c.Height)
	return x, y, true
}

// ProjectRadius returns the on-screen size of a world length r at p.
func (c *Camera) ProjectRadius(p mgl64.Vec3, r float64) float64 {
	d := c.Depth(p)
	if d < c.Near {
		return 0
	}
	focal := float64(c.Height) / 2 / math.Tan(c.FOVY()/2)
	return r * focal / d
}

// ProjectSegment projects a line segment, clipping it at the near plane.
func (c *Camera) ProjectSegment(a, b mgl64.Vec3) (x0, y0, x1, y1 float64, ok bool) {
	da, db := c.Depth(a), c.Depth(b)
	if da < c.Near && db < c.Near {
		return 0, 0, 0, 0, false
	}
	if da < c.Near {
		a = a.Add(b.Sub(a).Mul((c.Near - da) / (db - da)))
	} else if db < c.Near {
		b = b.Add(a.Sub(b).Mul((c.Near - db) / (da - db)))
	}
	var okA, okB bool
	x0, y0, okA = c.Project(a)
	x1, y1, okB = c.Project(b)
	return x0, y0, x1, y1, okA && okB
}

// Visible reports whether a sphere at p with radius r can touch the screen.
func (c *Camera) Visible(p mgl64.Vec3, r float64) bool {
	if c.Depth(p)+r < c.Near {
		return false
	}
	x, y, ok := c.Project(p)
	if !ok {
		return true
	}
	sr := c.ProjectRadius(p, r)
	return x+sr >= 0 && y+sr >= 0 && x-sr <= float64(c.Width) && y-sr <= float64(c.Height)
}
