package components

import (
	"github.com/go-gl/mathgl/mgl64"

	"github.com/decker502/pfx/pkg/ecs"
)

// AttachmentType selects what an effect is glued to.
type AttachmentType int

const (
	// AttachNone is an attachment that has not been bound yet.
	AttachNone AttachmentType = iota
	// AttachPoint follows a fixed world position.
	AttachPoint
	// AttachEntity follows an entity origin and orientation.
	AttachEntity
	// AttachTag follows a named tag on an entity model.
	AttachTag
	// AttachParticle follows a live particle.
	AttachParticle
)

func (t AttachmentType) String() string {
	switch t {
	case AttachPoint:
		return "point"
	case AttachEntity:
		return "entity"
	case AttachTag:
		return "tag"
	case AttachParticle:
		return "particle"
	}
	return "none"
}

// Attachment describes where a system or trail sits in the world.
// Setting a target does not attach it; Attached is only true after an
// explicit AttachTo call, so an effect can be prepared before it is placed.
//
// This is a pure data component. Queries that can fail (a particle died,
// an entity left the snapshot) are resolved by the particle system.
type Attachment struct {
	Type     AttachmentType
	Attached bool

	Point     mgl64.Vec3 // AttachPoint
	EntityNum int        // AttachEntity, AttachTag
	Tag       string     // AttachTag
	Particle  ecs.Handle // AttachParticle

	// Offset is added to the resolved point, in world space.
	Offset mgl64.Vec3
}

// NewAttachment returns an unbound attachment. EntityNum is -1 so that an
// unbound attachment never matches the local client.
func NewAttachment() Attachment {
	return Attachment{EntityNum: -1}
}

// SetPoint binds the attachment to a fixed position.
func (a *Attachment) SetPoint(p mgl64.Vec3) {
	a.Type = AttachPoint
	a.Point = p
	a.EntityNum = -1
}

// SetEntity binds the attachment to an entity.
func (a *Attachment) SetEntity(num int) {
	a.Type = AttachEntity
	a.EntityNum = num
}

// SetTag binds the attachment to a tag on an entity model.
func (a *Attachment) SetTag(num int, tag string) {
	a.Type = AttachTag
	a.EntityNum = num
	a.Tag = tag
}

// SetParticle binds the attachment to a particle.
func (a *Attachment) SetParticle(h ecs.Handle) {
	a.Type = AttachParticle
	a.Particle = h
	a.EntityNum = -1
}
