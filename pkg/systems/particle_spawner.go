package systems

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"

	"github.com/decker502/pfx/internal/particle"
	"github.com/decker502/pfx/pkg/components"
	"github.com/decker502/pfx/pkg/ecs"
	"github.com/decker502/pfx/pkg/utils"
)

func (ps *ParticleSystem) randomise(value, variance float64) float64 {
	return particle.RandomiseValue(value, variance, ps.rng)
}

// resolveLerp fixes the random parts of a LerpValue for one particle.
func (ps *ParticleSystem) resolveLerp(lv particle.LerpValue) particle.LerpValue {
	out := particle.LerpValue{
		Delay:   int(ps.randomise(float64(lv.Delay), lv.DelayRandFrac)),
		Initial: ps.randomise(lv.Initial, lv.InitialRandFrac),
		Final:   lv.Final,
	}
	if lv.Final != particle.SameAsInitial {
		out.Final = ps.randomise(lv.Final, lv.FinalRandFrac)
	}
	return out
}

// spawnParticle creates one particle of template bp for ejector pe.
//
// The particle is built in a local value first, so a failure to resolve the
// attachment or the velocity leaves the pool untouched.
func (ps *ParticleSystem) spawnParticle(bp *particle.BaseParticle, ejector ecs.Handle, pe *components.EjectorComponent, sys *components.SystemComponent) (ecs.Handle, bool) {
	now := ps.frame.Time
	a := &sys.Attachment

	p := components.ParticleComponent{
		Class:        bp,
		Ejector:      ejector,
		BirthTime:    now,
		LastEvalTime: now,
		LastAxis:     utils.AxisDefault,
	}
	p.LifeTime = int(ps.randomise(float64(bp.LifeTime), bp.LifeTimeRandFrac))
	p.Radius = ps.resolveLerp(bp.Radius)
	p.Alpha = ps.resolveLerp(bp.Alpha)
	p.Rotation = ps.resolveLerp(bp.Rotation)
	p.DLightRadius = ps.resolveLerp(bp.DLightRadius)
	p.ColorDelay = int(ps.randomise(float64(bp.ColorDelay), bp.ColorDelayRandFrac))

	p.BounceMarkRadius = ps.randomise(bp.BounceMarkRadius, bp.BounceMarkRadiusRandFrac)
	p.BounceMarkCount = int(math.RoundToEven(ps.randomise(bp.BounceMarkCount, bp.BounceMarkCountRandFrac)))
	p.BounceSoundCount = int(math.RoundToEven(ps.randomise(bp.BounceSoundCount, bp.BounceSoundCountRandFrac)))

	p.Radius.Initial += bp.ScaleWithCharge * sys.Charge

	if n := len(bp.Models); n > 0 {
		p.Model = bp.Models[ps.rng.Intn(n)]
		anim := bp.ModelAnimation
		p.FrameLerp = anim.FrameLerp
		if anim.Synced() && anim.NumFrames > 0 {
			p.FrameLerp = p.LifeTime / anim.NumFrames
		}
		p.Anim = components.LerpFrame{
			AnimationTime: now,
			FrameTime:     now,
			OldFrameTime:  now,
			Frame:         anim.FirstFrame,
			OldFrame:      anim.FirstFrame,
		}
	}

	point, ok := ps.attachmentPoint(a)
	if !ok {
		return ecs.NilHandle, false
	}

	p.Origin = point
	if axis, ok := ps.attachmentAxis(a); ok {
		p.Origin = p.Origin.Add(utils.TransformByAxis(bp.Displacement, axis))
	} else {
		p.Origin = p.Origin.Add(bp.Displacement)
	}
	for k := 0; k < 3; k++ {
		p.Origin[k] += utils.Crandom(ps.rng) * bp.RandDisplacement[k]
	}

	if !ps.initialVelocity(&p, point, sys) {
		return ecs.NilHandle, false
	}

	mv := &bp.Velocity
	p.Velocity, _ = utils.Normalize(p.Velocity)
	p.Velocity = utils.SpreadVector(p.Velocity, mv.Spread, ps.rng)
	p.Velocity = p.Velocity.Mul(ps.randomise(mv.Magnitude, mv.MagnitudeRandFrac))

	if v, ok := ps.attachmentVelocity(a); ok {
		p.Velocity = p.Velocity.Add(v.Mul(ps.randomise(mv.ParentVelFrac, mv.ParentVelFracRandFrac)))
	}

	h, slot, ok := ps.particles.Alloc()
	if !ok {
		ps.poolExhausted(PoolParticles, "MAX_PARTICLES")
		return ecs.NilHandle, false
	}
	*slot = p
	pe.LiveParticles++
	ps.rec.ParticleSpawned()

	if bp.ChildSystemHandle != 0 {
		if child, ok := ps.SpawnSystem(bp.ChildSystemHandle); ok {
			ps.AttachToParticle(child, h)
			slot.Child = child

			chs, _ := ps.systems.Get(child)
			if sys.LastNormalIsCurrent {
				n := sys.LastNormal
				ps.setLastNormal(chs, &n)
			} else {
				chs.LastNormal = sys.LastNormal
			}
		}
	}

	if bp.ChildTrailSystemHandle != 0 && ps.trails != nil {
		front := components.NewAttachment()
		front.SetParticle(h)
		front.Attached = true
		ps.trails.SpawnTrailSystem(bp.ChildTrailSystemHandle, front)
	}

	return h, true
}

// initialVelocity sets the direction a new particle leaves in. Its length is
// fixed later. Normal move types also push the origin along the normal.
func (ps *ParticleSystem) initialVelocity(p *components.ParticleComponent, attachPoint mgl64.Vec3, sys *components.SystemComponent) bool {
	bp := p.Class
	mv := &bp.Velocity

	switch mv.Type {
	case particle.MoveStatic:
		if mv.DirType == particle.DirPoint {
			p.Velocity = mv.Point.Sub(p.Origin)
		} else {
			p.Velocity = mv.Dir
		}

	case particle.MoveStaticTransform:
		axis, ok := ps.attachmentAxis(&sys.Attachment)
		if !ok {
			return false
		}
		if mv.DirType == particle.DirPoint {
			p.Velocity = utils.TransformByAxis(mv.Point, axis).Sub(p.Origin)
		} else {
			p.Velocity = utils.TransformByAxis(mv.Dir, axis)
		}

	case particle.MoveTag, particle.MoveCent:
		if mv.DirType == particle.DirPoint {
			p.Velocity = attachPoint.Sub(p.Origin)
		} else {
			dir, ok := ps.attachmentDir(&sys.Attachment)
			if !ok {
				return false
			}
			p.Velocity = dir
		}

	case particle.MoveNormal:
		if !sys.NormalValid {
			ps.log.Warn("a particle with velocityType normal has no normal")
			return false
		}
		ps.alongNormal(p, sys.Normal)

	case particle.MoveLastNormal:
		ps.alongNormal(p, sys.LastNormal)

	case particle.MoveOpportunisticNormal:
		if sys.LastNormalIsCurrent {
			ps.alongNormal(p, sys.LastNormal)
		}
	}
	return true
}

func (ps *ParticleSystem) alongNormal(p *components.ParticleComponent, normal mgl64.Vec3) {
	p.Velocity, _ = utils.Normalize(normal)
	p.Origin = p.Origin.Add(p.Velocity.Mul(p.Class.NormalDisplacement))
}
