package systems

import (
	"math/rand"
	"strings"
	"testing"

	"github.com/go-gl/mathgl/mgl64"

	"github.com/decker502/pfx/internal/particle"
	"github.com/decker502/pfx/pkg/components"
	"github.com/decker502/pfx/pkg/ecs"
	"github.com/decker502/pfx/pkg/world"
)

// testClientNum 是测试中本地玩家的实体编号
const testClientNum = 99

// testAssets 按名字分配稳定的资源句柄
type testAssets struct {
	handles map[string]int
}

func newTestAssets() *testAssets {
	return &testAssets{handles: make(map[string]int)}
}

func (a *testAssets) register(kind, name string) int {
	key := kind + ":" + strings.ToLower(name)
	if h, ok := a.handles[key]; ok {
		return h
	}
	h := len(a.handles) + 1
	a.handles[key] = h
	return h
}

func (a *testAssets) RegisterSprite(name string) int      { return a.register("sprite", name) }
func (a *testAssets) RegisterModel(name string) int       { return a.register("model", name) }
func (a *testAssets) RegisterSound(name string) int       { return a.register("sound", name) }
func (a *testAssets) RegisterTrailSystem(name string) int { return a.register("trail", name) }

// recordingScene 记录每帧提交的渲染对象
type recordingScene struct {
	sprites []components.SpriteRenderable
	models  []components.ModelRenderable
	lights  []components.DynamicLight
	light   mgl64.Vec3
}

func (s *recordingScene) SubmitSprite(r components.SpriteRenderable)   { s.sprites = append(s.sprites, r) }
func (s *recordingScene) SubmitModel(m components.ModelRenderable)     { s.models = append(s.models, m) }
func (s *recordingScene) SubmitDynamicLight(l components.DynamicLight) { s.lights = append(s.lights, l) }
func (s *recordingScene) LightForPoint(mgl64.Vec3) mgl64.Vec3          { return s.light }

func (s *recordingScene) reset() {
	s.sprites, s.models, s.lights = nil, nil, nil
}

// recordingEffects 记录贴花和音效
type recordingEffects struct {
	decals []components.Decal
	sounds []int
}

func (e *recordingEffects) PlaceDecal(d components.Decal)         { e.decals = append(e.decals, d) }
func (e *recordingEffects) PlaySound(_ mgl64.Vec3, sound int)     { e.sounds = append(e.sounds, sound) }

// recordingTrails 记录拖尾系统的生成
type recordingTrails struct {
	spawned []components.Attachment
}

func (r *recordingTrails) SpawnTrailSystem(_ int, front components.Attachment) bool {
	r.spawned = append(r.spawned, front)
	return true
}

// countingRecorder 统计指标调用
type countingRecorder struct {
	exhausted map[string]int
	spawned   int
	live      [3]int
}

func (r *countingRecorder) SetLive(s, e, p int) { r.live = [3]int{s, e, p} }
func (r *countingRecorder) PoolExhausted(pool string) {
	if r.exhausted == nil {
		r.exhausted = make(map[string]int)
	}
	r.exhausted[pool]++
}
func (r *countingRecorder) ParticleSpawned() { r.spawned++ }

type testEngine struct {
	ps      *ParticleSystem
	world   *world.World
	scene   *recordingScene
	effects *recordingEffects
	trails  *recordingTrails
	rec     *countingRecorder
	bounce  bool
}

// newTestEngine 解析脚本并创建粒子系统
func newTestEngine(t *testing.T, script string, cfg Config) *testEngine {
	t.Helper()

	store := particle.NewStore(particle.DefaultLimits(), newTestAssets(), nil)
	if err := store.ParseFile("test.particle", []byte(script)); err != nil {
		t.Fatalf("ParseFile failed: %v", err)
	}
	store.ResolveReferences()

	te := &testEngine{
		world:   world.New(),
		scene:   &recordingScene{},
		effects: &recordingEffects{},
		trails:  &recordingTrails{},
		rec:     &countingRecorder{},
		bounce:  true,
	}
	te.ps = NewParticleSystem(cfg, Deps{
		Store:    store,
		World:    te.world,
		Scene:    te.scene,
		Effects:  te.effects,
		Trails:   te.trails,
		Recorder: te.rec,
	})
	te.ps.SetRand(rand.New(rand.NewSource(1)))
	return te
}

func (te *testEngine) frame(now int) Frame {
	return Frame{
		Time:      now,
		FrameTime: 16,
		ClientNum: testClientNum,
		Physics:   PhysicsConfig{BounceParticles: te.bounce},
	}
}

// step 运行一帧
func (te *testEngine) step(t *testing.T, now int) {
	t.Helper()
	te.scene.reset()
	te.ps.Update(te.frame(now))
	checkHierarchy(t, te.ps)
}

// spawnAt 注册、生成并把系统放到 point
func (te *testEngine) spawnAt(t *testing.T, name string, point mgl64.Vec3) ecs.Handle {
	t.Helper()
	handle := te.ps.RegisterSystem(name)
	if handle == 0 {
		t.Fatalf("RegisterSystem(%q) failed", name)
	}
	h, ok := te.ps.SpawnSystem(handle)
	if !ok {
		t.Fatalf("SpawnSystem(%q) failed", name)
	}
	te.ps.AttachToPoint(h, point)
	return h
}

// firstEjector 返回第一个发射器及其模板和系统，作为 spawnParticle 的参数
func (te *testEngine) firstEjector(t *testing.T) (*particle.BaseParticle, ecs.Handle, *components.EjectorComponent, *components.SystemComponent) {
	t.Helper()
	pe, ok := te.ps.ejectors.At(0)
	if !ok {
		t.Fatal("no ejector in slot 0")
	}
	sys, ok := te.ps.systems.Get(pe.Parent)
	if !ok {
		t.Fatal("ejector without system")
	}
	return pe.Class.Particles[0], te.ps.ejectors.HandleAt(0), pe, sys
}

// liveParticles 返回所有存活粒子
func (te *testEngine) liveParticles() []*components.ParticleComponent {
	var out []*components.ParticleComponent
	for i := 0; i < te.ps.particles.Cap(); i++ {
		if p, ok := te.ps.particles.At(i); ok {
			out = append(out, p)
		}
	}
	return out
}

// particlesWithShader 返回使用指定贴图的存活粒子
func (te *testEngine) particlesWithShader(name string) []*components.ParticleComponent {
	var out []*components.ParticleComponent
	for _, p := range te.liveParticles() {
		if len(p.Class.ShaderNames) > 0 && p.Class.ShaderNames[0] == name {
			out = append(out, p)
		}
	}
	return out
}

// systemsNamed 返回指定模板的存活系统
func (te *testEngine) systemsNamed(name string) []*components.SystemComponent {
	var out []*components.SystemComponent
	for i := 0; i < te.ps.systems.Cap(); i++ {
		if s, ok := te.ps.systems.At(i); ok && s.Class.Name == name {
			out = append(out, s)
		}
	}
	return out
}

// checkHierarchy 验证父对象总是比子对象活得久，并且计数器与池一致
func checkHierarchy(t *testing.T, ps *ParticleSystem) {
	t.Helper()

	perEjector := make(map[ecs.Handle]int)
	for i := 0; i < ps.particles.Cap(); i++ {
		p, ok := ps.particles.At(i)
		if !ok {
			continue
		}
		if !ps.ejectors.Valid(p.Ejector) {
			t.Fatalf("particle %d outlived its ejector", i)
		}
		perEjector[p.Ejector]++
	}

	perSystem := make(map[ecs.Handle]int)
	for i := 0; i < ps.ejectors.Cap(); i++ {
		pe, ok := ps.ejectors.At(i)
		if !ok {
			continue
		}
		if !ps.systems.Valid(pe.Parent) {
			t.Fatalf("ejector %d outlived its system", i)
		}
		if got := perEjector[ps.ejectors.HandleAt(i)]; got != pe.LiveParticles {
			t.Fatalf("ejector %d LiveParticles = %d, pool has %d", i, pe.LiveParticles, got)
		}
		perSystem[pe.Parent]++
	}

	for i := 0; i < ps.systems.Cap(); i++ {
		sys, ok := ps.systems.At(i)
		if !ok {
			continue
		}
		if got := perSystem[ps.systems.HandleAt(i)]; got != sys.LiveEjectors {
			t.Fatalf("system %d LiveEjectors = %d, pool has %d", i, sys.LiveEjectors, got)
		}
	}
}
