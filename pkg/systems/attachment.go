package systems

import (
	"github.com/go-gl/mathgl/mgl64"

	"github.com/decker502/pfx/pkg/components"
	"github.com/decker502/pfx/pkg/ecs"
	"github.com/decker502/pfx/pkg/utils"
)

// attachmentPoint resolves where an attachment currently is.
func (ps *ParticleSystem) attachmentPoint(a *components.Attachment) (mgl64.Vec3, bool) {
	if !a.Attached {
		return mgl64.Vec3{}, false
	}

	var p mgl64.Vec3
	switch a.Type {
	case components.AttachPoint:
		p = a.Point
	case components.AttachEntity:
		e, ok := ps.world.Entity(a.EntityNum)
		if !ok {
			return p, false
		}
		p = e.Origin
	case components.AttachTag:
		if ps.tags == nil {
			return p, false
		}
		origin, _, ok := ps.tags.TagOrientation(a.EntityNum, a.Tag)
		if !ok {
			return p, false
		}
		p = origin
	case components.AttachParticle:
		part, ok := ps.particles.Get(a.Particle)
		if !ok {
			return p, false
		}
		p = part.Origin
	default:
		return p, false
	}
	return p.Add(a.Offset), true
}

// attachmentAxis returns the orientation of an attachment. Points and
// particles have none.
func (ps *ParticleSystem) attachmentAxis(a *components.Attachment) (utils.Axis, bool) {
	if !a.Attached {
		return utils.Axis{}, false
	}
	switch a.Type {
	case components.AttachEntity:
		e, ok := ps.world.Entity(a.EntityNum)
		if !ok {
			return utils.Axis{}, false
		}
		return e.Axis, true
	case components.AttachTag:
		if ps.tags == nil {
			return utils.Axis{}, false
		}
		_, axis, ok := ps.tags.TagOrientation(a.EntityNum, a.Tag)
		return axis, ok
	}
	return utils.Axis{}, false
}

// attachmentVelocity returns how fast an attachment moves.
func (ps *ParticleSystem) attachmentVelocity(a *components.Attachment) (mgl64.Vec3, bool) {
	if !a.Attached {
		return mgl64.Vec3{}, false
	}
	switch a.Type {
	case components.AttachEntity, components.AttachTag:
		e, ok := ps.world.Entity(a.EntityNum)
		if !ok {
			return mgl64.Vec3{}, false
		}
		return e.Velocity, true
	case components.AttachParticle:
		part, ok := ps.particles.Get(a.Particle)
		if !ok {
			return mgl64.Vec3{}, false
		}
		return part.Velocity, true
	}
	return mgl64.Vec3{}, false
}

// attachmentDir returns the direction an attachment faces.
func (ps *ParticleSystem) attachmentDir(a *components.Attachment) (mgl64.Vec3, bool) {
	switch a.Type {
	case components.AttachEntity, components.AttachTag:
		axis, ok := ps.attachmentAxis(a)
		if !ok {
			return mgl64.Vec3{}, false
		}
		return axis[0], true
	case components.AttachParticle:
		v, ok := ps.attachmentVelocity(a)
		if !ok {
			return mgl64.Vec3{}, false
		}
		dir, _ := utils.Normalize(v)
		return dir, true
	}
	return mgl64.Vec3{}, false
}

// attachmentEntityNum returns the entity an attachment follows, or -1.
func (ps *ParticleSystem) attachmentEntityNum(a *components.Attachment) int {
	switch a.Type {
	case components.AttachEntity, components.AttachTag:
		return a.EntityNum
	}
	return -1
}

func (ps *ParticleSystem) attachment(h ecs.Handle) (*components.Attachment, bool) {
	sys, ok := ps.systems.Get(h)
	if !ok {
		ps.log.Warn("tried to attach a NULL particle system")
		return nil, false
	}
	return &sys.Attachment, true
}

// AttachToPoint fixes a system at a world position and starts it.
func (ps *ParticleSystem) AttachToPoint(h ecs.Handle, point mgl64.Vec3) {
	if a, ok := ps.attachment(h); ok {
		a.SetPoint(point)
		a.Attached = true
	}
}

// AttachToEntity makes a system follow an entity and starts it.
func (ps *ParticleSystem) AttachToEntity(h ecs.Handle, entityNum int) {
	if a, ok := ps.attachment(h); ok {
		a.SetEntity(entityNum)
		a.Attached = true
	}
}

// AttachToTag makes a system follow a tag on an entity model and starts it.
func (ps *ParticleSystem) AttachToTag(h ecs.Handle, entityNum int, tag string) {
	if a, ok := ps.attachment(h); ok {
		a.SetTag(entityNum, tag)
		a.Attached = true
	}
}

// AttachToParticle makes a system follow a particle and starts it.
func (ps *ParticleSystem) AttachToParticle(h ecs.Handle, p ecs.Handle) {
	if a, ok := ps.attachment(h); ok {
		a.SetParticle(p)
		a.Attached = true
	}
}

// SetAttachmentOffset shifts the point a system is attached to.
func (ps *ParticleSystem) SetAttachmentOffset(h ecs.Handle, offset mgl64.Vec3) {
	if a, ok := ps.attachment(h); ok {
		a.Offset = offset
	}
}

// Detach stops a system without destroying it.
func (ps *ParticleSystem) Detach(h ecs.Handle) {
	if a, ok := ps.attachment(h); ok {
		a.Attached = false
	}
}

// SystemOrigin returns where a live, attached system currently is.
func (ps *ParticleSystem) SystemOrigin(h ecs.Handle) (mgl64.Vec3, bool) {
	sys, ok := ps.systems.Get(h)
	if !ok {
		return mgl64.Vec3{}, false
	}
	return ps.attachmentPoint(&sys.Attachment)
}
