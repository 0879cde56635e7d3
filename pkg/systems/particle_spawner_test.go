package systems

import (
	"math"
	"testing"

	"github.com/go-gl/mathgl/mgl64"

	"github.com/decker502/pfx/internal/particle"
	"github.com/decker502/pfx/pkg/components"
	"github.com/decker502/pfx/pkg/ecs"
	"github.com/decker502/pfx/pkg/utils"
	"github.com/decker502/pfx/pkg/world"
)

const spawnScript = `
jitter
{
  ejector
  {
    particle
    {
      shader sync gfx/puff
      radius 0 10~50% -
      lifeTime 1000~20%
    }
    count 1000
    period 0 0 -
  }
}

exact
{
  ejector
  {
    particle
    {
      shader sync gfx/puff
      radius 0 4 8
      alpha 100 1 0
      lifeTime 500
    }
    count 20
    period 0 0 -
  }
}

charged
{
  ejector
  {
    particle
    {
      shader sync gfx/ball
      radius 0 2 -
      scaleWithCharge 3
      lifeTime 500
    }
    count 1
  }
}

jet
{
  ejector
  {
    particle
    {
      shader sync gfx/jet
      velocityType static
      velocityDir linear
      velocity 1 0 0 0
      velocityMagnitude 100
      parentVelocityFraction 0.5
      lifeTime 500
    }
    count 1
  }
}

nozzle
{
  ejector
  {
    particle
    {
      shader sync gfx/jet
      velocityType static_transform
      velocityDir linear
      velocity 1 0 0 0
      velocityMagnitude 100
      displacement 10 0 0
      lifeTime 500
    }
    count 1
  }
}

splash
{
  ejector
  {
    particle
    {
      shader sync gfx/drop
      velocityType normal
      velocityMagnitude 50
      normalDisplacement 4
      lifeTime 500
    }
    count 1
  }
}

maybe
{
  ejector
  {
    particle
    {
      shader sync gfx/drop
      velocityType opportunistic_normal
      velocity 1 0 0 0
      velocityMagnitude 50
      lifeTime 500
    }
    count 1
  }
}

carrier
{
  ejector
  {
    particle
    {
      shader sync gfx/ball
      lifeTime 500
      childSystem exact
      childTrailSystem smoketrail
    }
    count 1
  }
}
`

func vecNear(a, b mgl64.Vec3) bool {
	return a.Sub(b).Len() < 1e-6
}

// TestSpawn_RadiusVariance 测试半径方差与 SameAsInitial
func TestSpawn_RadiusVariance(t *testing.T) {
	cfg := DefaultConfig()
	cfg.MaxParticles = 1000
	te := newTestEngine(t, spawnScript, cfg)
	te.spawnAt(t, "jitter", mgl64.Vec3{})
	te.step(t, 0)

	ps := te.liveParticles()
	if len(ps) != 1000 {
		t.Fatalf("spawned %d particles, want 1000", len(ps))
	}

	lo, hi := math.Inf(1), math.Inf(-1)
	for _, p := range ps {
		r := p.Radius.Initial
		if r < 5 || r > 15 {
			t.Fatalf("initial radius %v outside [5, 15]", r)
		}
		lo, hi = math.Min(lo, r), math.Max(hi, r)

		if p.Radius.Final != particle.SameAsInitial {
			t.Fatalf("final radius = %v, want SameAsInitial", p.Radius.Final)
		}
		for _, now := range []int{0, p.LifeTime / 2, p.LifeTime} {
			te.ps.frame.Time = now
			if got := te.ps.lerpAt(p, p.Radius); got != r {
				t.Fatalf("radius at %d = %v, want constant %v", now, got, r)
			}
		}

		if p.LifeTime < 800 || p.LifeTime > 1200 {
			t.Fatalf("lifetime %d outside [800, 1200]", p.LifeTime)
		}
	}
	if lo > 6 || hi < 14 {
		t.Errorf("radius range [%v, %v] does not cover [5, 15]", lo, hi)
	}
}

// TestSpawn_ZeroVariance 测试没有方差时取值精确
func TestSpawn_ZeroVariance(t *testing.T) {
	te := newTestEngine(t, spawnScript, DefaultConfig())
	te.spawnAt(t, "exact", mgl64.Vec3{})
	te.step(t, 0)

	for _, p := range te.liveParticles() {
		if p.Radius.Initial != 4 || p.Radius.Final != 8 || p.Radius.Delay != 0 {
			t.Errorf("radius = %+v, want 0 4 8", p.Radius)
		}
		if p.Alpha.Delay != 100 || p.Alpha.Initial != 1 || p.Alpha.Final != 0 {
			t.Errorf("alpha = %+v, want 100 1 0", p.Alpha)
		}
		if p.LifeTime != 500 {
			t.Errorf("lifetime = %d, want 500", p.LifeTime)
		}
	}

	p := te.liveParticles()[0]
	tests := []struct {
		now        int
		wantRadius float64
		wantAlpha  float64
	}{
		{0, 4, 1},
		{100, 4.8, 1},
		{300, 6.4, 0.5},
		{500, 8, 0},
	}
	for _, tt := range tests {
		te.ps.frame.Time = tt.now
		if got := te.ps.lerpAt(p, p.Radius); math.Abs(got-tt.wantRadius) > 1e-9 {
			t.Errorf("radius at %d = %v, want %v", tt.now, got, tt.wantRadius)
		}
		if got := te.ps.lerpAt(p, p.Alpha); math.Abs(got-tt.wantAlpha) > 1e-9 {
			t.Errorf("alpha at %d = %v, want %v", tt.now, got, tt.wantAlpha)
		}
	}
}

// TestSpawn_Charge 测试 scaleWithCharge
func TestSpawn_Charge(t *testing.T) {
	te := newTestEngine(t, spawnScript, DefaultConfig())
	h := te.spawnAt(t, "charged", mgl64.Vec3{})
	te.ps.SetCharge(h, 2)
	te.step(t, 0)

	p := te.liveParticles()[0]
	if p.Radius.Initial != 8 {
		t.Errorf("radius = %v, want 2 + 3*2", p.Radius.Initial)
	}
}

// TestSpawn_Velocity 测试各种速度模型
func TestSpawn_Velocity(t *testing.T) {
	// 朝向 +y 的实体
	turned := utils.Axis{{0, 1, 0}, {-1, 0, 0}, {0, 0, 1}}

	tests := []struct {
		name       string
		system     string
		setup      func(te *testEngine, h ecs.Handle)
		wantOrigin mgl64.Vec3
		wantVel    mgl64.Vec3
	}{
		{
			name:       "Static linear",
			system:     "jet",
			setup:      func(te *testEngine, h ecs.Handle) { te.ps.AttachToPoint(h, mgl64.Vec3{0, 0, 10}) },
			wantOrigin: mgl64.Vec3{0, 0, 10},
			wantVel:    mgl64.Vec3{100, 0, 0},
		},
		{
			name:   "Parent velocity",
			system: "jet",
			setup: func(te *testEngine, h ecs.Handle) {
				te.world.SetEntity(world.Entity{Number: 3, Valid: true, Velocity: mgl64.Vec3{0, 40, 0}})
				te.ps.AttachToEntity(h, 3)
			},
			wantOrigin: mgl64.Vec3{},
			wantVel:    mgl64.Vec3{100, 20, 0},
		},
		{
			name:   "Static transform",
			system: "nozzle",
			setup: func(te *testEngine, h ecs.Handle) {
				te.world.SetEntity(world.Entity{Number: 4, Valid: true, Origin: mgl64.Vec3{5, 5, 0}, Axis: turned})
				te.ps.AttachToEntity(h, 4)
			},
			wantOrigin: mgl64.Vec3{5, 15, 0},
			wantVel:    mgl64.Vec3{0, 100, 0},
		},
		{
			name:   "Normal",
			system: "splash",
			setup: func(te *testEngine, h ecs.Handle) {
				te.ps.SetNormal(h, mgl64.Vec3{0, 0, 2})
				te.ps.AttachToPoint(h, mgl64.Vec3{1, 1, 1})
			},
			wantOrigin: mgl64.Vec3{1, 1, 5},
			wantVel:    mgl64.Vec3{0, 0, 50},
		},
		{
			name:   "Opportunistic with a fresh normal",
			system: "maybe",
			setup: func(te *testEngine, h ecs.Handle) {
				n := mgl64.Vec3{0, 1, 0}
				te.ps.SetLastNormal(h, &n)
				te.ps.AttachToPoint(h, mgl64.Vec3{})
			},
			wantVel: mgl64.Vec3{0, 50, 0},
		},
		{
			name:    "Opportunistic without a fresh normal",
			system:  "maybe",
			setup:   func(te *testEngine, h ecs.Handle) { te.ps.AttachToPoint(h, mgl64.Vec3{}) },
			wantVel: mgl64.Vec3{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			te := newTestEngine(t, spawnScript, DefaultConfig())
			h, ok := te.ps.SpawnSystem(te.ps.RegisterSystem(tt.system))
			if !ok {
				t.Fatal("SpawnSystem failed")
			}
			tt.setup(te, h)

			p, ok := te.ps.spawnParticle(te.firstEjector(t))
			if !ok {
				t.Fatal("spawnParticle failed")
			}
			got, _ := te.ps.particles.Get(p)
			if !vecNear(got.Origin, tt.wantOrigin) {
				t.Errorf("origin = %v, want %v", got.Origin, tt.wantOrigin)
			}
			if !vecNear(got.Velocity, tt.wantVel) {
				t.Errorf("velocity = %v, want %v", got.Velocity, tt.wantVel)
			}
		})
	}
}

// TestSpawn_AttachmentFailure 测试附着点无法解析时不占用槽位
func TestSpawn_AttachmentFailure(t *testing.T) {
	tests := []struct {
		name   string
		system string
		setup  func(te *testEngine, h ecs.Handle)
	}{
		{"Normal without normal", "splash", func(te *testEngine, h ecs.Handle) {
			te.ps.AttachToPoint(h, mgl64.Vec3{})
		}},
		{"Transform without axis", "nozzle", func(te *testEngine, h ecs.Handle) {
			te.ps.AttachToPoint(h, mgl64.Vec3{})
		}},
		{"Entity gone", "jet", func(te *testEngine, h ecs.Handle) {
			te.ps.AttachToEntity(h, 12)
		}},
		{"Not attached", "jet", func(te *testEngine, h ecs.Handle) {}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			te := newTestEngine(t, spawnScript, DefaultConfig())
			h, _ := te.ps.SpawnSystem(te.ps.RegisterSystem(tt.system))
			tt.setup(te, h)

			if _, ok := te.ps.spawnParticle(te.firstEjector(t)); ok {
				t.Fatal("spawnParticle succeeded")
			}
			if _, _, p := te.ps.Counts(); p != 0 {
				t.Errorf("failed spawn left %d particles", p)
			}
			pe, _ := te.ps.ejectors.At(0)
			if pe.LiveParticles != 0 {
				t.Errorf("LiveParticles = %d, want 0", pe.LiveParticles)
			}
		})
	}
}

// TestSpawn_Children 测试子系统继承法线以及拖尾系统
func TestSpawn_Children(t *testing.T) {
	te := newTestEngine(t, spawnScript, DefaultConfig())
	// 不做碰撞检测，移动不会清除子系统的法线
	te.bounce = false
	h := te.spawnAt(t, "carrier", mgl64.Vec3{})
	n := mgl64.Vec3{1, 0, 0}
	te.ps.SetLastNormal(h, &n)

	te.step(t, 0)

	p := te.liveParticles()[0]
	child, ok := te.ps.systems.Get(p.Child)
	if !ok {
		t.Fatal("child system not spawned")
	}
	if child.Class.Name != "exact" {
		t.Errorf("child = %s, want exact", child.Class.Name)
	}
	if child.Attachment.Type != components.AttachParticle || !child.Attachment.Attached {
		t.Errorf("child attachment = %+v", child.Attachment)
	}
	if !child.LastNormalIsCurrent || child.LastNormal != n {
		t.Errorf("child last normal = %v (current %v), want %v", child.LastNormal, child.LastNormalIsCurrent, n)
	}

	// 子系统跟随粒子发射
	te.step(t, 16)
	for _, cp := range te.liveParticles() {
		if cp.Class.ShaderNames[0] == "gfx/puff" && cp.Origin != p.Origin {
			t.Errorf("child particle at %v, want parent particle %v", cp.Origin, p.Origin)
		}
	}

	if len(te.trails.spawned) != 1 {
		t.Fatalf("%d trails spawned, want 1", len(te.trails.spawned))
	}
	front := te.trails.spawned[0]
	if front.Type != components.AttachParticle || !front.Attached {
		t.Errorf("trail front = %+v", front)
	}
}

// TestSetLastNormal 测试 nil 法线只清除 current 标记
func TestSetLastNormal(t *testing.T) {
	te := newTestEngine(t, spawnScript, DefaultConfig())
	h, _ := te.ps.SpawnSystem(te.ps.RegisterSystem("jet"))
	sys, _ := te.ps.systems.Get(h)

	if sys.LastNormal != utils.Up || sys.LastNormalIsCurrent {
		t.Fatalf("new system last normal = %v (%v), want stale up", sys.LastNormal, sys.LastNormalIsCurrent)
	}

	n := mgl64.Vec3{0, 3, 4}
	te.ps.SetLastNormal(h, &n)
	if !vecNear(sys.LastNormal, mgl64.Vec3{0, 0.6, 0.8}) || !sys.LastNormalIsCurrent {
		t.Errorf("last normal = %v (%v)", sys.LastNormal, sys.LastNormalIsCurrent)
	}

	te.ps.SetLastNormal(h, nil)
	if !vecNear(sys.LastNormal, mgl64.Vec3{0, 0.6, 0.8}) || sys.LastNormalIsCurrent {
		t.Errorf("after nil: last normal = %v (%v)", sys.LastNormal, sys.LastNormalIsCurrent)
	}
}
