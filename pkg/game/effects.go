package game

import (
	"github.com/go-gl/mathgl/mgl64"

	"github.com/decker502/pfx/pkg/components"
)

// DecalSink receives impact marks. The render scenes implement it.
type DecalSink interface {
	PlaceDecal(d components.Decal)
}

// Effects routes particle bounce side effects to the scene and the audio
// manager. Either may be nil.
type Effects struct {
	decals DecalSink
	audio  *AudioManager
}

// NewEffects creates the bounce effects router.
func NewEffects(decals DecalSink, audio *AudioManager) *Effects {
	return &Effects{decals: decals, audio: audio}
}

// PlaceDecal forwards a mark to the decal sink.
func (e *Effects) PlaceDecal(d components.Decal) {
	if e.decals != nil {
		e.decals.PlaceDecal(d)
	}
}

// PlaySound plays a bounce sound at origin.
func (e *Effects) PlaySound(origin mgl64.Vec3, sound int) {
	if e.audio != nil {
		e.audio.PlaySound(origin, sound)
	}
}
