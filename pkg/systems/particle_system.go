package systems

import (
	"io/fs"
	"math/rand"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/decker502/pfx/internal/particle"
	"github.com/decker502/pfx/pkg/components"
	"github.com/decker502/pfx/pkg/ecs"
)

// Pool names reported to the Recorder.
const (
	PoolSystems   = "systems"
	PoolEjectors  = "ejectors"
	PoolParticles = "particles"
)

// Config sizes the live pools.
type Config struct {
	MaxSystems   int
	MaxEjectors  int
	MaxParticles int

	// ParticleGrace is how many frames a freed particle slot stays unusable.
	ParticleGrace int

	// DebugLevel 1 traces system creation and collection, 2 adds per frame counts.
	DebugLevel int

	// Seed seeds the random source. Zero seeds from the clock.
	Seed int64

	// ScriptExt is the extension LoadParticleSystems picks up. Empty means ".particle".
	ScriptExt string
}

// DefaultConfig returns the stock pool sizes.
func DefaultConfig() Config {
	return Config{
		MaxSystems:    48,
		MaxEjectors:   192,
		MaxParticles:  960,
		ParticleGrace: 1,
	}
}

// Deps are the collaborators of the particle system. World, Scene and Store
// are required; the rest default to no-ops.
type Deps struct {
	Store    *particle.Store
	World    World
	Scene    Scene
	Effects  Effects
	Trails   TrailSpawner
	Recorder Recorder
	Logger   *zap.SugaredLogger
}

// ParticleSystem simulates and renders every live particle effect.
//
// Live objects sit in three fixed pools: systems own ejectors own particles,
// by parent handle. A parent is only freed once it has no live children.
// Per frame, Update runs:
//  1. garbage collection of systems and ejectors
//  2. ejector ticks (spawning)
//  3. depth sort
//  4. physics and rendering of every particle, or destruction once expired
//
// ParticleSystem is not safe for concurrent use; drive it from the frame loop.
type ParticleSystem struct {
	store   *particle.Store
	world   World
	tags    TagResolver
	scene   Scene
	effects Effects
	trails  TrailSpawner
	rec     Recorder
	log     *zap.SugaredLogger
	rng     *rand.Rand

	systems   *ecs.Pool[components.SystemComponent]
	ejectors  *ecs.Pool[components.EjectorComponent]
	particles *ecs.Pool[components.ParticleComponent]

	// sort scratch, see particle_sort.go
	order   []int
	sortTmp []int

	frame      Frame
	frameCount int

	testSystem ecs.Handle

	exhausted  map[string]*rate.Sometimes
	scriptExt  string
	DebugLevel int
}

// NewParticleSystem creates a particle system with empty pools.
func NewParticleSystem(cfg Config, deps Deps) *ParticleSystem {
	if cfg.MaxSystems <= 0 || cfg.MaxEjectors <= 0 || cfg.MaxParticles <= 0 {
		def := DefaultConfig()
		cfg.MaxSystems, cfg.MaxEjectors, cfg.MaxParticles = def.MaxSystems, def.MaxEjectors, def.MaxParticles
	}
	seed := cfg.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}

	ps := &ParticleSystem{
		store:      deps.Store,
		world:      deps.World,
		scene:      deps.Scene,
		effects:    deps.Effects,
		trails:     deps.Trails,
		rec:        deps.Recorder,
		log:        deps.Logger,
		rng:        rand.New(rand.NewSource(seed)),
		systems:    ecs.NewPool[components.SystemComponent](cfg.MaxSystems, ecs.NoGrace),
		ejectors:   ecs.NewPool[components.EjectorComponent](cfg.MaxEjectors, ecs.NoGrace),
		particles:  ecs.NewPool[components.ParticleComponent](cfg.MaxParticles, cfg.ParticleGrace),
		order:      make([]int, cfg.MaxParticles),
		sortTmp:    make([]int, cfg.MaxParticles),
		scriptExt:  cfg.ScriptExt,
		DebugLevel: cfg.DebugLevel,
	}
	if ps.scriptExt == "" {
		ps.scriptExt = ".particle"
	}
	if ps.log == nil {
		ps.log = zap.NewNop().Sugar()
	}
	if ps.effects == nil {
		ps.effects = nopEffects{}
	}
	if ps.rec == nil {
		ps.rec = nopRecorder{}
	}
	if tr, ok := deps.World.(TagResolver); ok {
		ps.tags = tr
	}
	ps.exhausted = map[string]*rate.Sometimes{
		PoolSystems:   {First: 1, Interval: time.Second},
		PoolEjectors:  {First: 1, Interval: time.Second},
		PoolParticles: {First: 1, Interval: time.Second},
	}
	ps.resetOrder()
	return ps
}

// SetRand replaces the random source. Tests use it for deterministic runs.
func (ps *ParticleSystem) SetRand(rng *rand.Rand) {
	ps.rng = rng
}

// Store returns the template store.
func (ps *ParticleSystem) Store() *particle.Store {
	return ps.store
}

// Now returns the time of the current frame in milliseconds.
func (ps *ParticleSystem) Now() int {
	return ps.frame.Time
}

// SetTime moves the clock without running a frame. Spawns made before the
// first Update use this time as their birth time.
func (ps *ParticleSystem) SetTime(ms int) {
	ps.frame.Time = ms
}

func (ps *ParticleSystem) debugf(level int, template string, args ...any) {
	if ps.DebugLevel >= level {
		ps.log.Debugf(template, args...)
	}
}

// poolExhausted logs and counts a failed allocation. Logging is throttled,
// the metric is not.
func (ps *ParticleSystem) poolExhausted(pool, limit string) {
	ps.rec.PoolExhausted(pool)
	ps.exhausted[pool].Do(func() {
		ps.log.Warnf("%s hit", limit)
	})
}

// Counts returns the number of live systems, ejectors and particles.
func (ps *ParticleSystem) Counts() (systems, ejectors, particles int) {
	return ps.systems.Len(), ps.ejectors.Len(), ps.particles.Len()
}

// RegisterSystem registers a system and everything it references.
// It returns the template handle, or 0 when no system has that name.
func (ps *ParticleSystem) RegisterSystem(name string) int {
	return ps.store.Register(name)
}

// LoadParticleSystems reloads every script under dir. Live effects are
// drained since they point into the old templates.
func (ps *ParticleSystem) LoadParticleSystems(fsys fs.FS, dir string) error {
	ps.systems.Clear()
	ps.ejectors.Clear()
	ps.particles.Clear()
	ps.resetOrder()
	ps.testSystem = ecs.NilHandle
	return ps.store.Load(fsys, dir, ps.scriptExt)
}

// Update runs one frame.
func (ps *ParticleSystem) Update(frame Frame) {
	ps.frame = frame
	ps.frameCount++
	ps.systems.SetFrame(ps.frameCount)
	ps.ejectors.SetFrame(ps.frameCount)
	ps.particles.SetFrame(ps.frameCount)

	ps.garbageCollectSystems()
	ps.tickEjectors()

	n := ps.compactAndSort()
	for k := 0; k < n; k++ {
		i := ps.order[k]
		p, ok := ps.particles.At(i)
		if !ok {
			// destroyed earlier this frame by a parent or a sibling's on-death effect
			continue
		}
		if p.BirthTime+p.LifeTime > frame.Time {
			ps.evaluatePhysics(i, p)
			if ps.particles.IsValidAt(i) {
				ps.render(p)
			}
		} else {
			ps.destroyParticle(i, nil)
		}
	}

	s, e, p := ps.Counts()
	ps.rec.SetLive(s, e, p)
	ps.debugf(2, "PS: %d  PE: %d  P: %d", s, e, p)
}
