package systems

import (
	"image/color"
	"math"

	"github.com/go-gl/mathgl/mgl64"

	"github.com/decker502/pfx/internal/particle"
	"github.com/decker502/pfx/pkg/components"
	"github.com/decker502/pfx/pkg/utils"
)

// lerpAt evaluates a resolved LerpValue for a particle at the current time.
func (ps *ParticleSystem) lerpAt(p *components.ParticleComponent, lv particle.LerpValue) float64 {
	f := particle.CalculateTimeFrac(ps.frame.Time, p.BirthTime, p.LifeTime, lv.Delay)
	return particle.LerpValues(lv.Initial, lv.Final, f)
}

func toByte(v float64) uint8 {
	return uint8(mgl64.Clamp(math.Round(v), 0, 0xFF))
}

// spriteFrame picks the shader frame. Synced animations spread the frames
// over the particle's life; others loop at the template framerate.
func spriteFrame(bp *particle.BaseParticle, timeFrac float64, life int) int {
	n := len(bp.Shaders)
	if n == 0 {
		return 0
	}
	if bp.Framerate == 0 {
		idx := int(timeFrac * float64(n+1))
		if idx >= n {
			idx = n - 1
		}
		return idx
	}
	idx := int(bp.Framerate*timeFrac*float64(life)*0.001) % n
	if idx < 0 {
		idx += n
	}
	return idx
}

// render submits particle p to the scene.
func (ps *ParticleSystem) render(p *components.ParticleComponent) {
	sys, ok := ps.parentSystem(p)
	if !ok {
		return
	}
	bp := p.Class
	now := ps.frame.Time

	timeFrac := particle.CalculateTimeFrac(now, p.BirthTime, p.LifeTime, 0)
	scale := ps.lerpAt(p, p.Radius)

	thirdPerson := sys.Class.ThirdPersonOnly &&
		ps.attachmentEntityNum(&sys.Attachment) == ps.frame.ClientNum &&
		!ps.frame.ThirdPerson

	switch {
	case len(bp.ShaderNames) > 0:
		// the view inside the sprite would only add overdraw
		if bp.OverdrawProtection && p.Origin.Sub(ps.frame.ViewOrigin).Len() < scale {
			return
		}

		var c color.RGBA
		if bp.RealLight {
			light := ps.scene.LightForPoint(p.Origin)
			c.R = toByte(math.Min(light[0], 1) * 0xFF)
			c.G = toByte(math.Min(light[1], 1) * 0xFF)
			c.B = toByte(math.Min(light[2], 1) * 0xFF)
		} else {
			f := particle.CalculateTimeFrac(now, p.BirthTime, p.LifeTime, p.ColorDelay)
			lerp := func(k int) uint8 {
				a, b := float64(bp.InitialColor[k]), float64(bp.FinalColor[k])
				return toByte(a + f*(b-a))
			}
			c.R, c.G, c.B = lerp(0), lerp(1), lerp(2)
		}
		c.A = toByte(0xFF * ps.lerpAt(p, p.Alpha))

		frame := spriteFrame(bp, timeFrac, p.LifeTime)
		shader := 0
		if frame < len(bp.Shaders) {
			shader = bp.Shaders[frame]
		}

		ps.scene.SubmitSprite(components.SpriteRenderable{
			Origin:          p.Origin,
			Radius:          scale,
			Rotation:        ps.lerpAt(p, p.Rotation),
			Color:           c,
			Shader:          shader,
			ShaderTime:      p.BirthTime,
			Frame:           frame,
			ThirdPersonOnly: thirdPerson,
		})

	case len(bp.ModelNames) > 0:
		var axis utils.Axis
		if p.AtRest {
			axis = p.LastAxis
		} else {
			// direction of travel becomes the forward axis
			axis = utils.AxisFromDirection(p.Velocity)
			p.LastAxis = axis
		}
		if scale != 1 {
			axis = axis.Scale(scale)
		}

		runLerpFrame(&p.Anim, bp.ModelAnimation, p.FrameLerp, now)

		ps.scene.SubmitModel(components.ModelRenderable{
			Origin:          p.Origin,
			Axis:            axis,
			Model:           p.Model,
			Frame:           p.Anim.Frame,
			OldFrame:        p.Anim.OldFrame,
			BackLerp:        p.Anim.BackLerp,
			ThirdPersonOnly: thirdPerson,
		})
	}

	if bp.DynamicLight && !thirdPerson {
		ps.scene.SubmitDynamicLight(components.DynamicLight{
			Origin: p.Origin,
			Radius: ps.lerpAt(p, p.DLightRadius),
			Color: [3]float64{
				float64(bp.DLightColor[0]) / 0xFF,
				float64(bp.DLightColor[1]) / 0xFF,
				float64(bp.DLightColor[2]) / 0xFF,
			},
		})
	}
}
