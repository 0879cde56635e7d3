package systems

import (
	"github.com/go-gl/mathgl/mgl64"

	"github.com/decker502/pfx/pkg/components"
	"github.com/decker502/pfx/pkg/ecs"
)

// SystemInfo describes a live system for debugging tools.
type SystemInfo struct {
	Handle     ecs.Handle
	Name       string
	Attachment components.AttachmentType
	Attached   bool
	Infinite   bool
	LazyRemove bool
	Ejectors   int
}

// LiveSystems lists every live system in pool order.
func (ps *ParticleSystem) LiveSystems() []SystemInfo {
	out := make([]SystemInfo, 0, ps.systems.Len())
	for i := 0; i < ps.systems.Cap(); i++ {
		sys, ok := ps.systems.At(i)
		if !ok {
			continue
		}
		h := ps.systems.HandleAt(i)
		out = append(out, SystemInfo{
			Handle:     h,
			Name:       sys.Class.Name,
			Attachment: sys.Attachment.Type,
			Attached:   sys.Attachment.Attached,
			Infinite:   ps.isInfinite(h),
			LazyRemove: sys.LazyRemove,
			Ejectors:   sys.LiveEjectors,
		})
	}
	return out
}

// AttachmentPoint resolves an attachment against the current frame. Trail
// systems use it to follow the particles they were spawned for.
func (ps *ParticleSystem) AttachmentPoint(a components.Attachment) (mgl64.Vec3, bool) {
	return ps.attachmentPoint(&a)
}
