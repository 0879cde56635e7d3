package systems

import (
	"github.com/decker502/pfx/internal/particle"
	"github.com/decker502/pfx/pkg/components"
)

// runLerpFrame advances a model animation to now. frameLerp is the duration
// of one frame in ms; zero freezes the animation on its first frame.
//
// Non looping animations hold their last frame. BackLerp blends the
// previous frame into the current one as time moves between them.
func runLerpFrame(lf *components.LerpFrame, anim particle.ModelAnimation, frameLerp, now int) {
	if frameLerp <= 0 || anim.NumFrames <= 0 {
		lf.BackLerp = 0
		return
	}

	if now >= lf.FrameTime {
		lf.OldFrame = lf.Frame
		lf.OldFrameTime = lf.FrameTime

		if now < lf.AnimationTime {
			lf.FrameTime = lf.AnimationTime
		} else {
			lf.FrameTime = lf.OldFrameTime + frameLerp
		}

		f := (lf.FrameTime - lf.AnimationTime) / frameLerp
		if f >= anim.NumFrames {
			f -= anim.NumFrames
			if anim.LoopFrames > 0 {
				f %= anim.LoopFrames
				f += anim.NumFrames - anim.LoopFrames
			} else {
				f = anim.NumFrames - 1
				// hold the last frame
				lf.FrameTime = now
			}
		}

		if anim.Reversed {
			lf.Frame = anim.FirstFrame + anim.NumFrames - 1 - f
		} else {
			lf.Frame = anim.FirstFrame + f
		}

		if now > lf.FrameTime {
			lf.FrameTime = now
		}
	}

	if lf.FrameTime > now+200 {
		lf.FrameTime = now
	}
	if lf.OldFrameTime > now {
		lf.OldFrameTime = now
	}

	if lf.FrameTime == lf.OldFrameTime {
		lf.BackLerp = 0
	} else {
		lf.BackLerp = 1 - float64(now-lf.OldFrameTime)/float64(lf.FrameTime-lf.OldFrameTime)
	}
}
