package systems

import (
	"github.com/go-gl/mathgl/mgl64"

	"github.com/decker502/pfx/pkg/ecs"
	"github.com/decker502/pfx/pkg/utils"
	"github.com/decker502/pfx/pkg/world"
)

// testSystemDistance is how far in front of the view TestSystem places a system.
const testSystemDistance = 100

// SpawnImpact starts the named system at point, oriented along normal.
// Weapon code calls it when a shot hits a surface.
func (ps *ParticleSystem) SpawnImpact(name string, point, normal mgl64.Vec3) (ecs.Handle, bool) {
	handle := ps.RegisterSystem(name)
	if handle == 0 {
		return ecs.NilHandle, false
	}
	h, ok := ps.SpawnSystem(handle)
	if !ok {
		return ecs.NilHandle, false
	}
	ps.SetNormal(h, normal)
	ps.AttachToPoint(h, point)
	return h, true
}

// TestSystem replaces the test system with the named one, placed in front
// of the current view and facing up.
func (ps *ParticleSystem) TestSystem(name string) bool {
	handle := ps.RegisterSystem(name)
	if handle == 0 {
		return false
	}
	ps.DestroyTestSystem()

	h, ok := ps.SpawnSystem(handle)
	if !ok {
		return false
	}
	origin := ps.frame.ViewOrigin.Add(ps.frame.ViewAxis[0].Mul(testSystemDistance))
	ps.AttachToPoint(h, origin)
	ps.SetNormal(h, utils.Up)
	ps.testSystem = h
	return true
}

// DestroyTestSystem stops the test system, if any.
func (ps *ParticleSystem) DestroyTestSystem() {
	if ps.systems.Valid(ps.testSystem) {
		ps.DestroySystem(ps.testSystem)
	}
	ps.testSystem = ecs.NilHandle
}

// TestSystemHandle returns the current test system.
func (ps *ParticleSystem) TestSystemHandle() ecs.Handle {
	return ps.testSystem
}

type entityEffect struct {
	name    string
	system  ecs.Handle
	missing bool
}

// EntityEffects keeps a particle system running on every entity that names one.
type EntityEffects struct {
	ps      *ParticleSystem
	effects map[int]*entityEffect
}

// NewEntityEffects creates an empty entity effect tracker.
func NewEntityEffects(ps *ParticleSystem) *EntityEffects {
	return &EntityEffects{ps: ps, effects: make(map[int]*entityEffect)}
}

// Update syncs the system of one entity. A hidden entity shuts down its
// endless system; a visible one gets a system if it has none. Systems that
// can't be spawned are remembered and not retried.
func (ee *EntityEffects) Update(e world.Entity) {
	if e.Effect == "" {
		return
	}
	eff, ok := ee.effects[e.Number]
	if !ok || eff.name != e.Effect {
		if ok && ee.ps.IsSystemValid(eff.system) {
			ee.ps.DestroySystem(eff.system)
		}
		eff = &entityEffect{name: e.Effect}
		ee.effects[e.Number] = eff
	}

	valid := ee.ps.IsSystemValid(eff.system)
	if e.NoDraw {
		if valid && ee.ps.IsSystemInfinite(eff.system) {
			ee.ps.DestroySystem(eff.system)
		}
		return
	}

	if valid || eff.missing {
		return
	}

	handle := ee.ps.RegisterSystem(e.Effect)
	if handle == 0 {
		eff.missing = true
		return
	}
	h, ok := ee.ps.SpawnSystem(handle)
	if !ok {
		eff.missing = true
		return
	}
	ee.ps.AttachToEntity(h, e.Number)
	eff.system = h
}

// UpdateAll syncs every entity of w and forgets entities that left it.
func (ee *EntityEffects) UpdateAll(w *world.World) {
	seen := make(map[int]bool, len(ee.effects))
	for _, num := range w.Entities() {
		e, _ := w.Entity(num)
		ee.Update(e)
		seen[num] = true
	}
	for num := range ee.effects {
		if !seen[num] {
			delete(ee.effects, num)
		}
	}
}

// System returns the system running on an entity.
func (ee *EntityEffects) System(num int) (ecs.Handle, bool) {
	eff, ok := ee.effects[num]
	if !ok || !ee.ps.IsSystemValid(eff.system) {
		return ecs.NilHandle, false
	}
	return eff.system, true
}

// Missing reports whether the system of an entity failed to spawn.
func (ee *EntityEffects) Missing(num int) bool {
	eff, ok := ee.effects[num]
	return ok && eff.missing
}
