package particle

import (
	"strings"

	"github.com/go-gl/mathgl/mgl64"
)

// parseParticle reads a particle block up to and including its closing brace.
func (p *parser) parseParticle(bp *BaseParticle) error {
	limits := p.store.limits

	for {
		i := p.next()
		if i.typ == itemEOF {
			return p.errorf(i.line, ErrUnexpectedEOF, "particle")
		}
		if i.typ == itemRightBrace {
			return nil
		}

		var err error
		switch keyword := strings.ToLower(i.val); keyword {
		case "bounce":
			var t item
			if t, err = p.word(keyword); err != nil {
				return err
			}
			if strings.EqualFold(t.val, "cull") {
				bp.BounceCull = true
				bp.BounceFrac = -1
				bp.BounceFracRandFrac = 0
				continue
			}
			bp.BounceFrac, bp.BounceFracRandFrac, err = ParseValueAndVariance(t.val, false)
			if err != nil {
				return p.errorf(t.line, err, "bounce")
			}

		case "bouncemark":
			if bp.BounceMarkCount, bp.BounceMarkCountRandFrac, err = p.valueAndVariance(keyword, false); err != nil {
				return err
			}
			if bp.BounceMarkRadius, bp.BounceMarkRadiusRandFrac, err = p.valueAndVariance(keyword, false); err != nil {
				return err
			}
			name, ok := p.wordOnLine()
			if !ok {
				return p.errorf(i.line, ErrUnexpectedEOF, "bounceMark needs a shader name")
			}
			bp.BounceMarkName = name.val

		case "bouncesound":
			if bp.BounceSoundCount, bp.BounceSoundCountRandFrac, err = p.valueAndVariance(keyword, false); err != nil {
				return err
			}
			var t item
			if t, err = p.word(keyword); err != nil {
				return err
			}
			bp.BounceSoundName = t.val

		case "shader":
			if bp.NumModels() > 0 {
				return p.errorf(i.line, ErrShaderAndModel, "")
			}
			var t item
			if t, err = p.word(keyword); err != nil {
				return err
			}
			if strings.EqualFold(t.val, "sync") {
				bp.Framerate = 0
			} else if bp.Framerate, err = parseNumber(t.val, false); err != nil {
				return p.errorf(t.line, err, "shader framerate")
			}
			bp.ShaderNames = p.restOfLine(limits.MaxShaderFrames)

		case "model":
			if bp.NumFrames() > 0 {
				return p.errorf(i.line, ErrShaderAndModel, "")
			}
			bp.ModelNames = p.restOfLine(limits.MaxModels)

		case "modelanimation":
			if err = p.parseModelAnimation(&bp.ModelAnimation); err != nil {
				return err
			}

		case "velocitytype":
			if bp.Velocity.Type, err = p.moveType(keyword); err != nil {
				return err
			}

		case "velocitydir":
			if bp.Velocity.DirType, err = p.dirType(keyword); err != nil {
				return err
			}

		case "velocitymagnitude":
			if bp.Velocity.Magnitude, bp.Velocity.MagnitudeRandFrac, err = p.valueAndVariance(keyword, true); err != nil {
				return err
			}

		case "parentvelocityfraction":
			if bp.Velocity.ParentVelFrac, bp.Velocity.ParentVelFracRandFrac, err = p.valueAndVariance(keyword, false); err != nil {
				return err
			}

		case "velocity":
			if err = p.parseDirection(keyword, &bp.Velocity, false); err != nil {
				return err
			}

		case "velocitypoint":
			if err = p.parseDirection(keyword, &bp.Velocity, true); err != nil {
				return err
			}

		case "accelerationtype":
			if bp.Acceleration.Type, err = p.moveType(keyword); err != nil {
				return err
			}

		case "accelerationdir":
			if bp.Acceleration.DirType, err = p.dirType(keyword); err != nil {
				return err
			}

		case "accelerationmagnitude":
			if bp.Acceleration.Magnitude, bp.Acceleration.MagnitudeRandFrac, err = p.valueAndVariance(keyword, true); err != nil {
				return err
			}

		case "acceleration":
			if err = p.parseDirection(keyword, &bp.Acceleration, false); err != nil {
				return err
			}

		case "accelerationpoint":
			if err = p.parseDirection(keyword, &bp.Acceleration, true); err != nil {
				return err
			}

		case "displacement":
			if err = p.parseDisplacement(bp); err != nil {
				return err
			}

		case "normaldisplacement":
			if bp.NormalDisplacement, err = p.number(keyword, true); err != nil {
				return err
			}

		case "overdrawprotection":
			bp.OverdrawProtection = true

		case "reallight":
			bp.RealLight = true

		case "dynamiclight":
			bp.DynamicLight = true
			if err = p.lerpValue(keyword, &bp.DLightRadius, false); err != nil {
				return err
			}
			if t, ok := p.l.nextOnLine(); ok {
				if t.typ != itemLeftBrace {
					p.l.backup()
				} else if bp.DLightColor, err = p.color(keyword); err != nil {
					return err
				}
			}

		case "cullonstartsolid":
			bp.CullOnStartSolid = true

		case "radius":
			if err = p.lerpValue(keyword, &bp.Radius, false); err != nil {
				return err
			}

		case "physicsradius":
			var r float64
			if r, err = p.number(keyword, false); err != nil {
				return err
			}
			bp.PhysicsRadius = int(r)

		case "alpha":
			if err = p.lerpValue(keyword, &bp.Alpha, false); err != nil {
				return err
			}

		case "color":
			if err = p.parseColor(bp); err != nil {
				return err
			}

		case "rotation":
			if err = p.lerpValue(keyword, &bp.Rotation, true); err != nil {
				return err
			}

		case "lifetime":
			var life float64
			if life, bp.LifeTimeRandFrac, err = p.valueAndVariance(keyword, false); err != nil {
				return err
			}
			bp.LifeTime = int(life)

		case "childsystem":
			if bp.ChildSystemName, err = p.name(keyword); err != nil {
				return err
			}

		case "ondeathsystem":
			if bp.OnDeathSystemName, err = p.name(keyword); err != nil {
				return err
			}

		case "childtrailsystem":
			if bp.ChildTrailSystemName, err = p.name(keyword); err != nil {
				return err
			}

		case "scalewithcharge":
			if bp.ScaleWithCharge, err = p.number(keyword, true); err != nil {
				return err
			}

		default:
			return p.errorf(i.line, ErrUnknownKeyword, "%q in particle", i.val)
		}
	}
}

func (p *parser) name(keyword string) (string, error) {
	t, err := p.word(keyword)
	if err != nil {
		return "", err
	}
	return t.val, nil
}

// parseDirection reads "x y z spread" into either the direction or the point of mv.
// Both forms share one spread angle.
func (p *parser) parseDirection(keyword string, mv *MoveValues, point bool) error {
	v, err := p.vector(keyword)
	if err != nil {
		return err
	}
	if point {
		mv.Point = mgl64.Vec3(v)
	} else {
		mv.Dir = mgl64.Vec3(v)
	}

	t, err := p.word(keyword)
	if err != nil {
		return err
	}
	spread, err := p.spread(keyword, t)
	if err != nil {
		return err
	}
	mv.Spread = spread
	return nil
}

// parseDisplacement reads "x~v y~v z~v [all~v]". Per-axis variances become
// absolute distances; the optional same-line token jitters all three axes.
func (p *parser) parseDisplacement(bp *BaseParticle) error {
	for k := 0; k < 3; k++ {
		v, rf, err := p.valueAndVariance("displacement", true)
		if err != nil {
			return err
		}
		bp.Displacement[k] = v
		bp.RandDisplacement[k] = rf
	}

	var extra float64
	if t, ok := p.wordOnLine(); ok {
		var err error
		if extra, err = p.spread("displacement", t); err != nil {
			return err
		}
	}

	for k := 0; k < 3; k++ {
		if bp.Displacement[k] != 0 {
			bp.RandDisplacement[k] *= bp.Displacement[k]
		}
		bp.RandDisplacement[k] += extra
	}
	return nil
}

// parseColor reads "delay {r g b} ({r g b}|-)".
func (p *parser) parseColor(bp *BaseParticle) error {
	delay, rf, err := p.valueAndVariance("color", false)
	if err != nil {
		return err
	}
	bp.ColorDelay = int(delay)
	bp.ColorDelayRandFrac = rf

	t := p.next()
	if t.typ != itemLeftBrace {
		return p.errorf(t.line, ErrMissingBrace, "color")
	}
	if bp.InitialColor, err = p.color("color"); err != nil {
		return err
	}

	t = p.next()
	switch {
	case t.val == "-":
		bp.FinalColor = bp.InitialColor
	case t.typ == itemLeftBrace:
		if bp.FinalColor, err = p.color("color"); err != nil {
			return err
		}
	default:
		return p.errorf(t.line, ErrMissingBrace, "color final")
	}
	return nil
}

// parseModelAnimation reads "first num loop fps|sync". A negative num plays backwards.
func (p *parser) parseModelAnimation(a *ModelAnimation) error {
	const keyword = "modelAnimation"

	first, err := p.number(keyword, false)
	if err != nil {
		return err
	}
	a.FirstFrame = int(first)

	num, err := p.number(keyword, true)
	if err != nil {
		return err
	}
	a.NumFrames = int(num)
	a.Reversed = false
	if a.NumFrames < 0 {
		a.NumFrames = -a.NumFrames
		a.Reversed = true
	}

	loop, err := p.number(keyword, true)
	if err != nil {
		return err
	}
	a.LoopFrames = int(loop)
	if a.LoopFrames != 0 && a.LoopFrames != a.NumFrames {
		p.store.log.Warnf("%s: modelAnimation loopFrames != numFrames", p.file)
		a.LoopFrames = a.NumFrames
	}

	t, err := p.word(keyword)
	if err != nil {
		return err
	}
	if strings.EqualFold(t.val, "sync") {
		a.FrameLerp = -1
		return nil
	}
	fps, err := parseNumber(t.val, false)
	if err != nil {
		return p.errorf(t.line, err, "%s fps", keyword)
	}
	if fps == 0 {
		fps = 1
	}
	a.FrameLerp = int(1000 / fps)
	return nil
}
