package systems

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"

	"github.com/decker502/pfx/internal/particle"
	"github.com/decker502/pfx/pkg/components"
	"github.com/decker502/pfx/pkg/ecs"
	"github.com/decker502/pfx/pkg/utils"
)

// SpawnSystem creates a live system from a registered template. The system
// does nothing until it is attached.
func (ps *ParticleSystem) SpawnSystem(handle int) (ecs.Handle, bool) {
	bs := ps.store.System(handle)
	if bs == nil {
		ps.log.Warnf("no particle system with handle %d", handle)
		return ecs.NilHandle, false
	}
	if !bs.Registered {
		ps.log.Warnf("a particle system has not been registered yet: %s", bs.Name)
		return ecs.NilHandle, false
	}

	h, sys, ok := ps.systems.Alloc()
	if !ok {
		ps.poolExhausted(PoolSystems, "MAX_PARTICLE_SYSTEMS")
		return ecs.NilHandle, false
	}
	sys.Class = bs
	sys.Handle = handle
	sys.Attachment = components.NewAttachment()
	sys.LastNormal = utils.Up

	for _, be := range bs.Ejectors {
		ps.spawnEjector(be, h, sys)
	}

	ps.debugf(1, "PS %s created", bs.Name)
	return h, true
}

// spawnEjector starts one ejector of a system.
func (ps *ParticleSystem) spawnEjector(be *particle.BaseEjector, parent ecs.Handle, sys *components.SystemComponent) {
	_, pe, ok := ps.ejectors.Alloc()
	if !ok {
		ps.poolExhausted(PoolEjectors, "MAX_PARTICLE_EJECTORS")
		return
	}
	pe.Class = be
	pe.Parent = parent
	pe.NextEjectionTime = ps.frame.Time +
		int(particle.RandomiseValue(float64(be.Eject.Delay), be.Eject.DelayRandFrac, ps.rng))

	if be.IsInfinite() {
		pe.Count = particle.Infinite
	} else {
		pe.Count = int(math.RoundToEven(particle.RandomiseValue(float64(be.TotalParticles), be.TotalParticlesRandFrac, ps.rng)))
		if pe.Count < 0 {
			pe.Count = 0
		}
	}
	pe.TotalParticles = pe.Count
	sys.LiveEjectors++
}

// ejectPeriod returns the randomised delay until the next ejection. The
// period lerps from initial to final as the ejector runs out of particles.
func (ps *ParticleSystem) ejectPeriod(pe *components.EjectorComponent) int {
	ep := pe.Class.Eject
	frac := 0.0
	if pe.TotalParticles > 0 {
		frac = 1 - float64(pe.Count)/float64(pe.TotalParticles)
	}
	period := int(particle.RandomiseValue(
		particle.LerpValues(float64(ep.Initial), float64(ep.Final), frac),
		ep.RandFrac, ps.rng))

	// an endless ejector must advance the clock or it would never return
	if pe.TotalParticles == particle.Infinite && period < 1 {
		period = 1
	}
	return period
}

// tickEjectors fires every due ejector and retires the ones that are done.
func (ps *ParticleSystem) tickEjectors() {
	now := ps.frame.Time

	for i := 0; i < ps.ejectors.Cap(); i++ {
		pe, ok := ps.ejectors.At(i)
		if !ok {
			continue
		}
		sys, ok := ps.systems.Get(pe.Parent)
		if !ok {
			continue
		}
		h := ps.ejectors.HandleAt(i)

		// an unattached system can't make particles
		if sys.Attachment.Attached && !sys.LazyRemove {
			for pe.NextEjectionTime <= now && (pe.Count > 0 || pe.TotalParticles == particle.Infinite) {
				for _, bp := range pe.Class.Particles {
					ps.spawnParticle(bp, h, pe, sys)
				}
				if pe.Count > 0 {
					pe.Count--
				}
				pe.NextEjectionTime = now + ps.ejectPeriod(pe)
			}
		}

		// particles outlive the tick that exhausted their ejector
		if (pe.Count == 0 || sys.LazyRemove) && pe.LiveParticles == 0 {
			ps.ejectors.FreeAt(i)
			sys.LiveEjectors--
		}
	}
}

// garbageCollectSystems frees systems without ejectors and stops systems
// whose entity has left the snapshot.
func (ps *ParticleSystem) garbageCollectSystems() {
	for i := 0; i < ps.systems.Cap(); i++ {
		sys, ok := ps.systems.At(i)
		if !ok {
			continue
		}

		if sys.LiveEjectors == 0 {
			ps.debugf(1, "PS %s garbage collected", sys.Class.Name)
			if ps.systems.HandleAt(i) == ps.testSystem {
				ps.testSystem = ecs.NilHandle
			}
			ps.systems.FreeAt(i)
			continue
		}

		num := ps.attachmentEntityNum(&sys.Attachment)
		if num >= 0 && num != ps.frame.ClientNum {
			if e, ok := ps.world.Entity(num); !ok || !e.Valid {
				sys.LazyRemove = true
			}
		}
	}
}

// DestroySystem stops a system from spawning. Its particles finish their
// lives and the slot is reclaimed once they are gone.
func (ps *ParticleSystem) DestroySystem(h ecs.Handle) {
	if !ps.systems.Valid(h) {
		ps.log.Warn("tried to destroy a NULL particle system")
		return
	}
	ps.stopEjectors(h)
}

// LazyRemoveSystem stops a system from spawning, like DestroySystem, but also
// keeps it from being revived by entity effects until its particles are gone.
func (ps *ParticleSystem) LazyRemoveSystem(h ecs.Handle) {
	sys, ok := ps.systems.Get(h)
	if !ok {
		return
	}
	sys.LazyRemove = true
}

func (ps *ParticleSystem) stopEjectors(h ecs.Handle) {
	for i := 0; i < ps.ejectors.Cap(); i++ {
		pe, ok := ps.ejectors.At(i)
		if ok && pe.Parent == h {
			pe.TotalParticles = 0
			pe.Count = 0
		}
	}
}

// IsSystemValid reports whether h refers to a live system.
func (ps *ParticleSystem) IsSystemValid(h ecs.Handle) bool {
	return ps.systems.Valid(h)
}

// IsSystemInfinite reports whether any ejector of the system never runs out.
func (ps *ParticleSystem) IsSystemInfinite(h ecs.Handle) bool {
	if !ps.systems.Valid(h) {
		ps.log.Warn("tried to test a NULL particle system")
		return false
	}
	return ps.isInfinite(h)
}

func (ps *ParticleSystem) isInfinite(h ecs.Handle) bool {
	for i := 0; i < ps.ejectors.Cap(); i++ {
		pe, ok := ps.ejectors.At(i)
		if ok && pe.Parent == h && pe.TotalParticles == particle.Infinite {
			return true
		}
	}
	return false
}

// SystemName returns the template name of a live system.
func (ps *ParticleSystem) SystemName(h ecs.Handle) (string, bool) {
	sys, ok := ps.systems.Get(h)
	if !ok {
		return "", false
	}
	return sys.Class.Name, true
}

// SetNormal sets the surface normal a system was spawned against.
func (ps *ParticleSystem) SetNormal(h ecs.Handle, normal mgl64.Vec3) {
	sys, ok := ps.systems.Get(h)
	if !ok {
		ps.log.Warn("tried to modify a NULL particle system")
		return
	}
	n, _ := utils.Normalize(normal)
	sys.Normal = n
	sys.NormalValid = true
	ps.setLastNormal(sys, &n)
}

// SetLastNormal updates the last known normal. A nil normal marks the last
// normal stale while keeping its value.
func (ps *ParticleSystem) SetLastNormal(h ecs.Handle, normal *mgl64.Vec3) {
	sys, ok := ps.systems.Get(h)
	if !ok {
		ps.log.Warn("tried to modify a NULL particle system")
		return
	}
	ps.setLastNormal(sys, normal)
}

func (ps *ParticleSystem) setLastNormal(sys *components.SystemComponent, normal *mgl64.Vec3) {
	if normal == nil {
		sys.LastNormalIsCurrent = false
		return
	}
	sys.LastNormalIsCurrent = true
	sys.LastNormal, _ = utils.Normalize(*normal)
}

// SetCharge sets the charge that scales templates with scaleWithCharge.
func (ps *ParticleSystem) SetCharge(h ecs.Handle, charge float64) {
	sys, ok := ps.systems.Get(h)
	if !ok {
		ps.log.Warn("tried to modify a NULL particle system")
		return
	}
	sys.Charge = charge
}
