package systems

import (
	"image/color"

	"github.com/go-gl/mathgl/mgl64"

	"github.com/decker502/pfx/internal/particle"
	"github.com/decker502/pfx/pkg/components"
	"github.com/decker502/pfx/pkg/utils"
	"github.com/decker502/pfx/pkg/world"
)

// maxAccRadius is the distance at which point acceleration fades to its minimum.
const maxAccRadius = 1000.0

// parentSystem returns the system a particle belongs to through its ejector.
func (ps *ParticleSystem) parentSystem(p *components.ParticleComponent) (*components.SystemComponent, bool) {
	pe, ok := ps.ejectors.Get(p.Ejector)
	if !ok {
		return nil, false
	}
	return ps.systems.Get(pe.Parent)
}

// acceleration evaluates the acceleration model of a particle. It returns
// false when the model cannot be evaluated this frame, in which case the
// particle is left untouched.
func (ps *ParticleSystem) acceleration(p *components.ParticleComponent, sys *components.SystemComponent) (mgl64.Vec3, bool) {
	mv := &p.Class.Acceleration
	var acc mgl64.Vec3

	switch mv.Type {
	case particle.MoveStatic:
		if mv.DirType == particle.DirPoint {
			acc = mv.Point.Sub(p.Origin)
		} else {
			acc = mv.Dir
		}

	case particle.MoveStaticTransform:
		axis, ok := ps.attachmentAxis(&sys.Attachment)
		if !ok {
			return acc, false
		}
		if mv.DirType == particle.DirPoint {
			acc = utils.TransformByAxis(mv.Point, axis).Sub(p.Origin)
		} else {
			acc = utils.TransformByAxis(mv.Dir, axis)
		}

	case particle.MoveTag, particle.MoveCent:
		if mv.DirType == particle.DirPoint {
			point, ok := ps.attachmentPoint(&sys.Attachment)
			if !ok {
				return acc, false
			}
			acc = point.Sub(p.Origin)
		} else {
			dir, ok := ps.attachmentDir(&sys.Attachment)
			if !ok {
				return acc, false
			}
			acc = dir
		}

	case particle.MoveNormal:
		if !sys.NormalValid {
			return acc, false
		}
		acc = sys.Normal

	case particle.MoveLastNormal:
		acc = sys.LastNormal

	case particle.MoveOpportunisticNormal:
		if sys.LastNormalIsCurrent {
			acc = sys.LastNormal
		}
	}

	if mv.DirType == particle.DirPoint {
		// pull weakens towards maxAccRadius and is clamped near the point
		r2 := acc.Dot(acc)
		scale := mgl64.Clamp((maxAccRadius-r2)/maxAccRadius, 0.1, 1)
		scale *= ps.randomise(mv.Magnitude, mv.MagnitudeRandFrac)

		acc, _ = utils.Normalize(acc)
		acc = utils.SpreadVector(acc, mv.Spread, ps.rng)
		return acc.Mul(scale), true
	}

	acc, _ = utils.Normalize(acc)
	acc = utils.SpreadVector(acc, mv.Spread, ps.rng)
	return acc.Mul(ps.randomise(mv.Magnitude, mv.MagnitudeRandFrac)), true
}

// evaluatePhysics advances particle i by one frame. It may destroy it.
func (ps *ParticleSystem) evaluatePhysics(i int, p *components.ParticleComponent) {
	if p.AtRest {
		p.Velocity = mgl64.Vec3{}
		return
	}

	sys, ok := ps.parentSystem(p)
	if !ok {
		return
	}
	bp := p.Class

	acc, ok := ps.acceleration(p, sys)
	if !ok {
		return
	}
	p.Acceleration = acc

	var radius float64
	if bp.PhysicsRadius != 0 {
		radius = float64(bp.PhysicsRadius)
	} else {
		radius = particle.LerpValues(p.Radius.Initial, p.Radius.Final,
			particle.CalculateTimeFrac(ps.frame.Time, p.BirthTime, p.LifeTime, p.Radius.Delay))
	}
	maxs := mgl64.Vec3{radius, radius, radius}
	mins := maxs.Mul(-1)

	bounce := ps.randomise(bp.BounceFrac, bp.BounceFracRandFrac)

	dt := float64(ps.frame.Time-p.LastEvalTime) * 0.001
	p.Velocity = p.Velocity.Add(acc.Mul(dt))
	newOrigin := p.Origin.Add(p.Velocity.Mul(dt))
	p.LastEvalTime = ps.frame.Time

	// no particle physics, but at least cull them in solids
	if !ps.frame.Physics.BounceParticles {
		contents := ps.world.PointContents(newOrigin, world.EntityNone)
		if contents&(world.ContentsSolid|world.ContentsNoDrop) != 0 {
			ps.destroyParticle(i, nil)
		} else {
			p.Origin = newOrigin
		}
		return
	}

	ignore := ps.attachmentEntityNum(&sys.Attachment)
	tr := ps.world.TraceBox(p.Origin, newOrigin, mins, maxs, ignore, world.ContentsSolid)

	// not hit anything or not a collider
	if tr.Fraction == 1 || bounce == 0 {
		p.Origin = newOrigin
		if child, ok := ps.systems.Get(p.Child); ok {
			ps.setLastNormal(child, nil)
		}
		return
	}

	if ps.world.PointContents(tr.EndPos, world.EntityNone)&world.ContentsNoDrop != 0 ||
		(bp.CullOnStartSolid && tr.StartSolid) {
		ps.destroyParticle(i, nil)
		return
	}
	if bp.BounceCull {
		n := tr.Normal
		ps.destroyParticle(i, &n)
		return
	}

	// reflect the velocity on the trace plane
	dot := p.Velocity.Dot(tr.Normal)
	p.Velocity = p.Velocity.Sub(tr.Normal.Mul(2 * dot)).Mul(bounce)

	if tr.Normal[2] > 0.5 &&
		(p.Velocity[2] < 40 || p.Velocity[2] < -float64(ps.frame.FrameTime)*p.Velocity[2]) {
		p.AtRest = true
	}

	if bp.BounceMarkName != "" && p.BounceMarkCount > 0 {
		ps.effects.PlaceDecal(components.Decal{
			Shader:   bp.BounceMark,
			Origin:   tr.EndPos,
			Normal:   tr.Normal,
			Rotation: ps.rng.Float64() * 360,
			Color:    color.RGBA{0xFF, 0xFF, 0xFF, 0xFF},
			Radius:   p.BounceMarkRadius,
		})
		p.BounceMarkCount--
	}

	if bp.BounceSoundName != "" && p.BounceSoundCount > 0 {
		ps.effects.PlaySound(tr.EndPos, bp.BounceSound)
		p.BounceSoundCount--
	}

	p.Origin = tr.EndPos

	if !tr.AllSolid {
		if child, ok := ps.systems.Get(p.Child); ok {
			n := tr.Normal
			ps.setLastNormal(child, &n)
		}
	}
}

// destroyParticle kills particle i, spawning its on-death system at the
// particle's position. impactNormal orients the on-death system when set.
func (ps *ParticleSystem) destroyParticle(i int, impactNormal *mgl64.Vec3) {
	p, ok := ps.particles.At(i)
	if !ok {
		return
	}
	bp := p.Class

	if bp.OnDeathSystemHandle != 0 {
		if h, ok := ps.SpawnSystem(bp.OnDeathSystemHandle); ok {
			if impactNormal != nil {
				ps.SetNormal(h, *impactNormal)
			}
			ps.AttachToPoint(h, p.Origin)
		}
	}

	// children attached to a dead particle can't spawn anymore
	if child, ok := ps.systems.Get(p.Child); ok {
		child.LazyRemove = true
	}

	if pe, ok := ps.ejectors.Get(p.Ejector); ok {
		pe.LiveParticles--
	}
	ps.particles.FreeAt(i)
}
