// Package world is a small brush based collision world.
//
// Brushes are axis aligned boxes tagged with content flags. It answers the
// two queries the particle engine needs: swept box traces and point contents.
// The viewer uses it as its level; tests use it as a deterministic fake.
package world

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"

	"github.com/decker502/pfx/pkg/utils"
)

// Contents is a bit set describing what fills a volume.
type Contents uint32

const (
	ContentsSolid Contents = 1 << iota
	ContentsWater
	ContentsBody
	// ContentsNoDrop removes anything that falls into it.
	ContentsNoDrop Contents = 1 << 31
)

// EntityNone is the entity number used when a trace hits nothing or world geometry.
const (
	EntityNone  = -1
	EntityWorld = 1022
)

// surfaceClipEpsilon keeps trace end points slightly off the surface they hit.
const surfaceClipEpsilon = 0.125

// Trace is the result of a swept box query.
type Trace struct {
	Fraction   float64 // 1 when nothing was hit
	EndPos     mgl64.Vec3
	Normal     mgl64.Vec3 // plane normal of the surface hit
	EntityNum  int
	StartSolid bool
	AllSolid   bool
	Contents   Contents // contents of the surface hit
}

// Brush is an axis aligned box of uniform contents.
type Brush struct {
	Mins, Maxs mgl64.Vec3
	Contents   Contents
}

// Tag is a named attachment point on an entity, relative to its origin and axes.
type Tag struct {
	Offset mgl64.Vec3
	Axis   utils.Axis
}

// Entity is the slice of entity state effects need.
type Entity struct {
	Number   int
	Valid    bool // present in the current snapshot
	Origin   mgl64.Vec3
	Axis     utils.Axis
	Velocity mgl64.Vec3

	// Solid entities block traces with their bounding box.
	Solid      bool
	Mins, Maxs mgl64.Vec3

	Tags map[string]Tag

	// NoDraw asks for infinite entity effects to be shut down.
	NoDraw bool
	// Effect names the particle system an effect entity carries.
	Effect string
}

// World holds brushes and entities.
type World struct {
	brushes  []Brush
	entities map[int]*Entity
}

// New creates an empty world.
func New() *World {
	return &World{entities: make(map[int]*Entity)}
}

// AddBrush adds a box. Mins and maxs are sorted per axis.
func (w *World) AddBrush(mins, maxs mgl64.Vec3, contents Contents) {
	for k := 0; k < 3; k++ {
		if mins[k] > maxs[k] {
			mins[k], maxs[k] = maxs[k], mins[k]
		}
	}
	w.brushes = append(w.brushes, Brush{Mins: mins, Maxs: maxs, Contents: contents})
}

// Brushes returns every brush in the world.
func (w *World) Brushes() []Brush {
	return w.brushes
}

// SetEntity adds or replaces an entity.
func (w *World) SetEntity(e Entity) {
	if e.Axis == (utils.Axis{}) {
		e.Axis = utils.AxisDefault
	}
	ent := e
	w.entities[e.Number] = &ent
}

// RemoveEntity drops an entity from the snapshot.
func (w *World) RemoveEntity(num int) {
	delete(w.entities, num)
}

// Entity returns the entity with the given number.
func (w *World) Entity(num int) (Entity, bool) {
	e, ok := w.entities[num]
	if !ok {
		return Entity{Number: num}, false
	}
	return *e, true
}

// Entities returns every entity number, unordered.
func (w *World) Entities() []int {
	nums := make([]int, 0, len(w.entities))
	for n := range w.entities {
		nums = append(nums, n)
	}
	return nums
}

// TagOrientation resolves a tag on an entity into world space.
func (w *World) TagOrientation(num int, tag string) (mgl64.Vec3, utils.Axis, bool) {
	e, ok := w.entities[num]
	if !ok {
		return mgl64.Vec3{}, utils.Axis{}, false
	}
	t, ok := e.Tags[tag]
	if !ok {
		return mgl64.Vec3{}, utils.Axis{}, false
	}
	origin := e.Origin.Add(utils.TransformByAxis(t.Offset, e.Axis))
	var axis utils.Axis
	for k := 0; k < 3; k++ {
		axis[k] = utils.TransformByAxis(t.Axis[k], e.Axis)
	}
	return origin, axis, true
}

// PointContents returns the union of the contents of every brush containing p.
func (w *World) PointContents(p mgl64.Vec3, ignore int) Contents {
	var c Contents
	for _, b := range w.brushes {
		if inside(p, b.Mins, b.Maxs) {
			c |= b.Contents
		}
	}
	for _, e := range w.entities {
		if e.Solid && e.Number != ignore && inside(p, e.Origin.Add(e.Mins), e.Origin.Add(e.Maxs)) {
			c |= ContentsBody
		}
	}
	return c
}

func inside(p, mins, maxs mgl64.Vec3) bool {
	return p[0] >= mins[0] && p[0] <= maxs[0] &&
		p[1] >= mins[1] && p[1] <= maxs[1] &&
		p[2] >= mins[2] && p[2] <= maxs[2]
}

// TraceBox sweeps the box [mins, maxs] from start to end and reports the
// first surface whose contents match mask. The entity ignore is skipped.
func (w *World) TraceBox(start, end, mins, maxs mgl64.Vec3, ignore int, mask Contents) Trace {
	tr := Trace{Fraction: 1, EndPos: end, EntityNum: EntityNone}

	test := func(bmins, bmaxs mgl64.Vec3, contents Contents, entity int) {
		if contents&mask == 0 {
			return
		}
		// Minkowski sum, the box becomes a point
		emins := bmins.Sub(maxs)
		emaxs := bmaxs.Sub(mins)

		if inside(start, emins, emaxs) {
			tr.StartSolid = true
			if inside(end, emins, emaxs) {
				tr.AllSolid = true
				tr.Fraction = 0
				tr.EndPos = start
				tr.Contents = contents
				tr.EntityNum = entity
			}
			return
		}

		frac, normal, ok := sweep(start, end, emins, emaxs)
		if !ok || frac >= tr.Fraction {
			return
		}
		tr.Fraction = frac
		tr.Normal = normal
		tr.Contents = contents
		tr.EntityNum = entity
	}

	for _, b := range w.brushes {
		test(b.Mins, b.Maxs, b.Contents, EntityWorld)
		if tr.AllSolid {
			return tr
		}
	}
	for _, e := range w.entities {
		if !e.Solid || e.Number == ignore {
			continue
		}
		test(e.Origin.Add(e.Mins), e.Origin.Add(e.Maxs), ContentsBody, e.Number)
		if tr.AllSolid {
			return tr
		}
	}

	if tr.Fraction < 1 {
		tr.EndPos = start.Add(end.Sub(start).Mul(tr.Fraction))
	}
	return tr
}

// sweep intersects the segment start→end with a box using the slab method.
// It returns the backed off entry fraction and the entry face normal.
func sweep(start, end, mins, maxs mgl64.Vec3) (float64, mgl64.Vec3, bool) {
	dir := end.Sub(start)
	tEnter, tExit := -math.MaxFloat64, math.MaxFloat64
	var normal mgl64.Vec3

	for k := 0; k < 3; k++ {
		if dir[k] == 0 {
			if start[k] < mins[k] || start[k] > maxs[k] {
				return 0, normal, false
			}
			continue
		}
		t1 := (mins[k] - start[k]) / dir[k]
		t2 := (maxs[k] - start[k]) / dir[k]
		var n mgl64.Vec3
		n[k] = -1
		if t1 > t2 {
			t1, t2 = t2, t1
			n[k] = 1
		}
		if t1 > tEnter {
			tEnter = t1
			normal = n
		}
		if t2 < tExit {
			tExit = t2
		}
		if tEnter > tExit {
			return 0, normal, false
		}
	}

	if tEnter < 0 || tEnter > 1 {
		return 0, normal, false
	}

	length := dir.Len()
	frac := tEnter
	if length > 0 {
		frac -= surfaceClipEpsilon / length
	}
	if frac < 0 {
		frac = 0
	}
	return frac, normal, true
}
