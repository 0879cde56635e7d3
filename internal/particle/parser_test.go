package particle

import (
	"errors"
	"math"
	"testing"

	"github.com/go-gl/mathgl/mgl64"
)

const sparksScript = `
// impact sparks
sparks
{
  thirdPersonOnly
  ejector
  {
    particle
    {
      shader 10 gfx/sparks/spark1 gfx/sparks/spark2 gfx/sparks/spark3
      velocityType      static
      velocityDir       linear
      velocityMagnitude 200~25%
      velocity          0 0 1 ~30
      parentVelocityFraction 0.5
      accelerationType      static
      accelerationDir       linear
      accelerationMagnitude 800
      acceleration          0 0 -1 0
      displacement 0 0 4~50% ~2
      radius   100 4~50% -
      alpha    0 1 0
      rotation 0 ~360 -
      color 0 { 1 0.5 0 } { 0 0 0 }
      dynamicLight 0 60 0 { 1 0.5 0 }
      bounce 0.4~10%
      bounceMark 2 8 gfx/marks/burn
      bounceSound 1 sound/spark.wav
      lifeTime 600~20%
      childSystem smoke
      onDeathSystem puff
      overdrawProtection
      cullOnStartSolid
      physicsRadius 2
      scaleWithCharge 3
    }
    count 10~2
    delay 50
    period 0 20 40
  }
}
`

func newTestStore() *Store {
	return NewStore(DefaultLimits(), nil, nil)
}

// TestParseFile_FullParticle tests every particle keyword lands in the template
func TestParseFile_FullParticle(t *testing.T) {
	s := newTestStore()
	if err := s.ParseFile("scripts/sparks.particle", []byte(sparksScript)); err != nil {
		t.Fatalf("ParseFile failed: %v", err)
	}

	h, ok := s.Lookup("SPARKS")
	if !ok || h != 1 {
		t.Fatalf("Lookup(SPARKS) = %d, %v, want 1, true", h, ok)
	}
	bs := s.System(h)
	if !bs.ThirdPersonOnly {
		t.Error("ThirdPersonOnly not set")
	}
	if len(bs.Ejectors) != 1 || len(bs.Ejectors[0].Particles) != 1 {
		t.Fatalf("got %d ejectors, want 1 with 1 particle", len(bs.Ejectors))
	}

	be := bs.Ejectors[0]
	if be.TotalParticles != 10 || math.Abs(be.TotalParticlesRandFrac-0.2) > 1e-12 {
		t.Errorf("count = %d~%v, want 10~0.2", be.TotalParticles, be.TotalParticlesRandFrac)
	}
	if be.Eject.Delay != 0 || be.Eject.Initial != 20 || be.Eject.Final != 40 {
		t.Errorf("period = %+v, want delay 0 initial 20 final 40", be.Eject)
	}

	bp := be.Particles[0]
	if bp.Framerate != 10 || len(bp.ShaderNames) != 3 || bp.ShaderNames[2] != "gfx/sparks/spark3" {
		t.Errorf("shader = %v @ %v", bp.ShaderNames, bp.Framerate)
	}
	if bp.Velocity.Type != MoveStatic || bp.Velocity.DirType != DirLinear {
		t.Errorf("velocity model = %v/%v", bp.Velocity.Type, bp.Velocity.DirType)
	}
	if bp.Velocity.Magnitude != 200 || bp.Velocity.MagnitudeRandFrac != 0.25 {
		t.Errorf("velocity magnitude = %v~%v", bp.Velocity.Magnitude, bp.Velocity.MagnitudeRandFrac)
	}
	if bp.Velocity.Dir != (mgl64.Vec3{0, 0, 1}) || bp.Velocity.Spread != 30 {
		t.Errorf("velocity = %v spread %v", bp.Velocity.Dir, bp.Velocity.Spread)
	}
	if bp.Velocity.ParentVelFrac != 0.5 {
		t.Errorf("parentVelocityFraction = %v", bp.Velocity.ParentVelFrac)
	}
	if bp.Acceleration.Dir != (mgl64.Vec3{0, 0, -1}) || bp.Acceleration.Magnitude != 800 {
		t.Errorf("acceleration = %v x %v", bp.Acceleration.Dir, bp.Acceleration.Magnitude)
	}

	// 4~50% becomes an absolute 2, plus the trailing ~2 on every axis
	wantRand := mgl64.Vec3{2, 2, 4}
	if bp.Displacement != (mgl64.Vec3{0, 0, 4}) || !bp.RandDisplacement.ApproxEqual(wantRand) {
		t.Errorf("displacement = %v rand %v, want (0,0,4) rand %v", bp.Displacement, bp.RandDisplacement, wantRand)
	}

	if bp.Radius.Delay != 100 || bp.Radius.Initial != 4 || bp.Radius.InitialRandFrac != 0.5 || bp.Radius.Final != SameAsInitial {
		t.Errorf("radius = %+v", bp.Radius)
	}
	if bp.Alpha.Initial != 1 || bp.Alpha.Final != 0 {
		t.Errorf("alpha = %+v", bp.Alpha)
	}
	if bp.Rotation.Initial != 0 || bp.Rotation.InitialRandFrac != 360 {
		t.Errorf("rotation = %+v", bp.Rotation)
	}
	if bp.InitialColor != (Color{255, 128, 0}) || bp.FinalColor != (Color{0, 0, 0}) {
		t.Errorf("color = %v -> %v", bp.InitialColor, bp.FinalColor)
	}
	if !bp.DynamicLight || bp.DLightRadius.Initial != 60 || bp.DLightColor != (Color{255, 128, 0}) {
		t.Errorf("dynamicLight = %v %+v %v", bp.DynamicLight, bp.DLightRadius, bp.DLightColor)
	}
	if bp.BounceFrac != 0.4 || math.Abs(bp.BounceFracRandFrac-0.1) > 1e-12 || bp.BounceCull {
		t.Errorf("bounce = %v~%v cull=%v", bp.BounceFrac, bp.BounceFracRandFrac, bp.BounceCull)
	}
	if bp.BounceMarkCount != 2 || bp.BounceMarkRadius != 8 || bp.BounceMarkName != "gfx/marks/burn" {
		t.Errorf("bounceMark = %v %v %q", bp.BounceMarkCount, bp.BounceMarkRadius, bp.BounceMarkName)
	}
	if bp.BounceSoundCount != 1 || bp.BounceSoundName != "sound/spark.wav" {
		t.Errorf("bounceSound = %v %q", bp.BounceSoundCount, bp.BounceSoundName)
	}
	if bp.LifeTime != 600 || bp.LifeTimeRandFrac != 0.2 {
		t.Errorf("lifeTime = %v~%v", bp.LifeTime, bp.LifeTimeRandFrac)
	}
	if bp.ChildSystemName != "smoke" || bp.OnDeathSystemName != "puff" {
		t.Errorf("children = %q %q", bp.ChildSystemName, bp.OnDeathSystemName)
	}
	if !bp.OverdrawProtection || !bp.CullOnStartSolid || bp.PhysicsRadius != 2 || bp.ScaleWithCharge != 3 {
		t.Errorf("flags = overdraw %v cull %v physicsRadius %v charge %v",
			bp.OverdrawProtection, bp.CullOnStartSolid, bp.PhysicsRadius, bp.ScaleWithCharge)
	}
}

// TestParseFile_Defaults tests a bare particle keeps white color and zero motion
func TestParseFile_Defaults(t *testing.T) {
	s := newTestStore()
	if err := s.ParseFile("d.particle", []byte("bare { { { } } }")); err != nil {
		t.Fatalf("ParseFile failed: %v", err)
	}
	bp := s.System(1).Ejectors[0].Particles[0]
	if bp.InitialColor != White || bp.FinalColor != White || bp.DLightColor != White {
		t.Errorf("default colors = %v %v %v, want white", bp.InitialColor, bp.FinalColor, bp.DLightColor)
	}
	if bp.Velocity.Magnitude != 0 || bp.LifeTime != 0 {
		t.Errorf("unexpected defaults %+v", bp.Velocity)
	}
}

// TestParseFile_Errors tests that malformed scripts are rejected with the right sentinel
func TestParseFile_Errors(t *testing.T) {
	tests := []struct {
		name     string
		script   string
		wantErr  error
		wantLine int
	}{
		{
			name:     "Infinite count with zero period",
			script:   "bad\n{\n  {\n    { lifeTime 100 }\n    count infinite\n    period 500 500 0\n  }\n}",
			wantErr:  ErrInfinitePeriod,
			wantLine: 3,
		},
		{
			name:     "Infinite count without period",
			script:   "bad { { { } count infinite } }",
			wantErr:  ErrInfinitePeriod,
			wantLine: 1,
		},
		{
			name:     "Infinite count with zero capable variance",
			script:   "bad { { count infinite period 0 100~100% 100 } }",
			wantErr:  ErrInfinitePeriod,
			wantLine: 1,
		},
		{
			name:     "Unknown particle keyword",
			script:   "bad\n{\n{\n{\nwobble 3\n}\n}\n}",
			wantErr:  ErrUnknownKeyword,
			wantLine: 5,
		},
		{
			name:     "Unknown system keyword",
			script:   "bad { frobnicate }",
			wantErr:  ErrUnknownKeyword,
			wantLine: 1,
		},
		{
			name:     "Shader after model",
			script:   "bad { { { model models/a.md3\nshader sync gfx/a } } }",
			wantErr:  ErrShaderAndModel,
			wantLine: 2,
		},
		{
			name:     "Bad number",
			script:   "bad { { { radius 0 big 1 } } }",
			wantErr:  ErrInvalidNumber,
			wantLine: 1,
		},
		{
			name:     "Missing color brace",
			script:   "bad { { { color 0 1 1 1 } } }",
			wantErr:  ErrMissingBrace,
			wantLine: 1,
		},
		{
			name:     "Truncated",
			script:   "bad { { { radius 0 1",
			wantErr:  ErrUnexpectedEOF,
			wantLine: 1,
		},
		{
			name:     "Unnamed",
			script:   "{ }",
			wantErr:  ErrUnnamedSystem,
			wantLine: 1,
		},
		{
			name:     "Two names",
			script:   "one two { }",
			wantErr:  ErrAlreadyNamed,
			wantLine: 1,
		},
		{
			name:     "Bad move type",
			script:   "bad { { { velocityType sideways } } }",
			wantErr:  ErrUnknownKeyword,
			wantLine: 1,
		},
		{
			name:     "Too many ejectors",
			script:   "bad { { } { } { } { } { } }",
			wantErr:  ErrLimitReached,
			wantLine: 1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := newTestStore()
			err := s.ParseFile("bad.particle", []byte(tt.script))
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("ParseFile error = %v, want %v", err, tt.wantErr)
			}
			var pe *ParseError
			if !errors.As(err, &pe) {
				t.Fatalf("ParseFile error %v is not a *ParseError", err)
			}
			if pe.Line != tt.wantLine {
				t.Errorf("ParseError line = %d, want %d", pe.Line, tt.wantLine)
			}
			if _, ok := s.Lookup("bad"); ok {
				t.Error("failed system should not be stored")
			}
		})
	}
}

// TestParseFile_KeepsEarlierSystems tests that a failure only drops the rest of the file
func TestParseFile_KeepsEarlierSystems(t *testing.T) {
	s := newTestStore()
	script := "good { { { lifeTime 100 } count 1 } }\nbad { oops }\nlater { }"
	if err := s.ParseFile("mixed.particle", []byte(script)); err == nil {
		t.Fatal("expected an error")
	}
	if _, ok := s.Lookup("good"); !ok {
		t.Error("system before the error was dropped")
	}
	if _, ok := s.Lookup("later"); ok {
		t.Error("system after the error should not be parsed")
	}
}

// TestParseFile_DuplicateName tests the first definition wins
func TestParseFile_DuplicateName(t *testing.T) {
	s := newTestStore()
	script := "dup { thirdPersonOnly }\nDUP { { { bogus } } }\nnext { }"
	if err := s.ParseFile("dup.particle", []byte(script)); err != nil {
		t.Fatalf("ParseFile failed: %v", err)
	}
	if s.Len() != 2 {
		t.Fatalf("Len() = %d, want 2", s.Len())
	}
	h, _ := s.Lookup("dup")
	if !s.System(h).ThirdPersonOnly {
		t.Error("duplicate overwrote the first definition")
	}
	if _, ok := s.Lookup("next"); !ok {
		t.Error("system after duplicate was not parsed")
	}
}

// TestParseFile_SameAsInitialRadius tests "radius 0 10~50% -"
func TestParseFile_SameAsInitialRadius(t *testing.T) {
	s := newTestStore()
	if err := s.ParseFile("r.particle", []byte("r { { { radius 0 10~50% - } } }")); err != nil {
		t.Fatalf("ParseFile failed: %v", err)
	}
	r := s.System(1).Ejectors[0].Particles[0].Radius
	want := LerpValue{Delay: 0, Initial: 10, InitialRandFrac: 0.5, Final: SameAsInitial}
	if r != want {
		t.Errorf("radius = %+v, want %+v", r, want)
	}
}

// TestParseFile_ModelAnimation tests reversed and synced animations
func TestParseFile_ModelAnimation(t *testing.T) {
	tests := []struct {
		name   string
		anim   string
		want   ModelAnimation
		synced bool
	}{
		{"Fixed fps", "0 10 10 20", ModelAnimation{FirstFrame: 0, NumFrames: 10, LoopFrames: 10, FrameLerp: 50}, false},
		{"Reversed", "5 -4 0 10", ModelAnimation{FirstFrame: 5, NumFrames: 4, Reversed: true, FrameLerp: 100}, false},
		{"Sync", "0 8 0 sync", ModelAnimation{NumFrames: 8, FrameLerp: -1}, true},
		{"Loop mismatch", "0 8 3 0", ModelAnimation{NumFrames: 8, LoopFrames: 8, FrameLerp: 1000}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := newTestStore()
			script := "m { { { model models/gib.md3 models/gib2.md3\nmodelAnimation " + tt.anim + " } } }"
			if err := s.ParseFile("m.particle", []byte(script)); err != nil {
				t.Fatalf("ParseFile failed: %v", err)
			}
			bp := s.System(1).Ejectors[0].Particles[0]
			if bp.NumModels() != 2 {
				t.Errorf("NumModels() = %d, want 2", bp.NumModels())
			}
			if bp.ModelAnimation != tt.want {
				t.Errorf("modelAnimation = %+v, want %+v", bp.ModelAnimation, tt.want)
			}
			if bp.ModelAnimation.Synced() != tt.synced {
				t.Errorf("Synced() = %v, want %v", bp.ModelAnimation.Synced(), tt.synced)
			}
		})
	}
}

// TestParseFile_BounceCull tests "bounce cull"
func TestParseFile_BounceCull(t *testing.T) {
	s := newTestStore()
	if err := s.ParseFile("b.particle", []byte("b { { { bounce cull } } }")); err != nil {
		t.Fatalf("ParseFile failed: %v", err)
	}
	bp := s.System(1).Ejectors[0].Particles[0]
	if !bp.BounceCull || bp.BounceFrac != -1 {
		t.Errorf("bounce cull = %v frac %v", bp.BounceCull, bp.BounceFrac)
	}
}

// TestParseFile_PeriodForms tests the delay keyword and the held final period
func TestParseFile_PeriodForms(t *testing.T) {
	s := newTestStore()
	script := "p { { delay 200~10% period 50 300~20% - count infinite } }"
	if err := s.ParseFile("p.particle", []byte(script)); err != nil {
		t.Fatalf("ParseFile failed: %v", err)
	}
	e := s.System(1).Ejectors[0].Eject
	want := EjectPeriod{Delay: 50, Initial: 300, RandFrac: 0.2, Final: SameAsInitial}
	if e != want {
		t.Errorf("eject = %+v, want %+v", e, want)
	}
	if !s.System(1).Ejectors[0].IsInfinite() {
		t.Error("IsInfinite() = false")
	}
}
