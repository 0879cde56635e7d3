package app

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"math"
	"time"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/hajimehoshi/ebiten/v2/audio"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/zap"

	"github.com/decker502/pfx/internal/particle"
	"github.com/decker502/pfx/pkg/config"
	"github.com/decker502/pfx/pkg/debugserver"
	"github.com/decker502/pfx/pkg/ecs"
	"github.com/decker502/pfx/pkg/game"
	"github.com/decker502/pfx/pkg/metrics"
	"github.com/decker502/pfx/pkg/render"
	"github.com/decker502/pfx/pkg/systems"
	"github.com/decker502/pfx/pkg/utils"
	"github.com/decker502/pfx/pkg/world"
)

// PlayerEntity 是本地玩家的实体编号
const PlayerEntity = 0

// spawnQueueSize 调试服务器生成请求的缓冲大小
const spawnQueueSize = 16

// Options 定义引擎的依赖
type Options struct {
	// Config 引擎配置，nil 使用默认配置
	Config *config.EngineConfig
	// Data 数据根目录，包含脚本和资源清单
	Data fs.FS
	// Logger 为 nil 时不输出日志
	Logger *zap.SugaredLogger
	// Audio 为 nil 时禁用音效
	Audio *audio.Context
	// Settings 为 nil 时使用不持久化的默认设置
	Settings *game.SettingsManager
}

// View 是一帧的观察者状态
type View struct {
	Origin mgl64.Vec3
	Axis   utils.Axis
	// Player 本地玩家的位置
	Player      mgl64.Vec3
	ThirdPerson bool
}

// Engine 把粒子系统和它的协作者组装在一起
//
// 它不依赖窗口，查看器、快照和脚本检查共用同一套组装逻辑。
// Engine 只能在一个 goroutine 中驱动；调试服务器通过 Monitor 和生成队列与它交互。
type Engine struct {
	cfg  *config.EngineConfig
	data fs.FS
	log  *zap.SugaredLogger

	Resources *game.ResourceManager
	Settings  *game.SettingsManager
	Audio     *game.AudioManager
	Trails    *game.TrailManager
	Scene     *render.Scene
	World     *world.World
	Particles *systems.ParticleSystem
	Entities  *systems.EntityEffects
	Metrics   *metrics.Metrics
	Monitor   *debugserver.Monitor

	registry *prometheus.Registry
	spawns   chan debugserver.SpawnRequest
	now      int
}

// NewEngine 创建引擎并加载资源清单，但不加载粒子脚本（见 Reload）
func NewEngine(opts Options) (*Engine, error) {
	cfg := opts.Config
	if cfg == nil {
		cfg = config.DefaultEngineConfig()
	}
	if opts.Data == nil {
		return nil, errors.New("no data file system")
	}
	log := opts.Logger
	if log == nil {
		log = zap.NewNop().Sugar()
	}

	rm := game.NewResourceManager(opts.Data, opts.Audio, log.Named("resources"))
	if cfg.Scripts.Manifest != "" {
		err := rm.LoadResourceConfig(cfg.Scripts.Manifest)
		switch {
		case errors.Is(err, fs.ErrNotExist):
			log.Warnf("no asset manifest at %s, using placeholders", cfg.Scripts.Manifest)
		case err != nil:
			return nil, fmt.Errorf("failed to load asset manifest: %w", err)
		}
	}

	settings := opts.Settings
	if settings == nil {
		settings = game.NewSettingsManager(nil, log)
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector())

	e := &Engine{
		cfg:       cfg,
		data:      opts.Data,
		log:       log,
		Resources: rm,
		Settings:  settings,
		Audio:     game.NewAudioManager(rm, settings, log.Named("audio")),
		Trails:    game.NewTrailManager(rm, game.DefaultMaxTrails, log.Named("trails")),
		Scene:     render.NewScene(),
		World:     world.New(),
		Metrics:   metrics.New(registry),
		Monitor:   &debugserver.Monitor{},
		registry:  registry,
		spawns:    make(chan debugserver.SpawnRequest, spawnQueueSize),
	}
	e.buildWorld()

	store := particle.NewStore(cfg.StoreLimits(), rm, log.Named("store"))
	e.Particles = systems.NewParticleSystem(cfg.SystemsConfig(settings.GetSettings().DebugParticles), systems.Deps{
		Store:    store,
		World:    e.World,
		Scene:    e.Scene,
		Effects:  game.NewEffects(e.Scene, e.Audio),
		Trails:   e.Trails,
		Recorder: e.Metrics,
		Logger:   log.Named("particles"),
	})
	e.Entities = systems.NewEntityEffects(e.Particles)
	return e, nil
}

// buildWorld 放置地板、柱子和一块 nodrop 区域
func (e *Engine) buildWorld() {
	if !e.cfg.Viewer.Floor {
		return
	}
	e.World.AddBrush(mgl64.Vec3{-1024, -1024, -64}, mgl64.Vec3{1024, 1024, 0}, world.ContentsSolid)
	e.World.AddBrush(mgl64.Vec3{-32, 160, 0}, mgl64.Vec3{32, 192, 128}, world.ContentsSolid)
	e.World.AddBrush(mgl64.Vec3{256, -64, 0}, mgl64.Vec3{384, 64, 16}, world.ContentsNoDrop)
}

// Config 返回引擎配置
func (e *Engine) Config() *config.EngineConfig {
	return e.cfg
}

// Now 返回引擎时间（毫秒）
func (e *Engine) Now() int {
	return e.now
}

// Reload 重新加载全部粒子脚本
//
// 存活的效果、拖尾和贴花都会被清空。返回的错误汇总了解析失败的文件，
// 其余文件照常加载。
func (e *Engine) Reload() error {
	err := e.Particles.LoadParticleSystems(e.data, e.cfg.Scripts.Dir)
	e.Entities = systems.NewEntityEffects(e.Particles)
	e.Trails.Clear()
	e.Scene.Reset()

	store := e.Particles.Store()
	e.log.Infof("loaded %d particle systems from %s", store.Len(), e.cfg.Scripts.Dir)
	for _, cycle := range store.Cycles() {
		e.log.Warnf("particle systems reference each other in a cycle: %v", cycle)
	}
	return err
}

// Templates 返回已加载的粒子系统名
func (e *Engine) Templates() []string {
	return e.Particles.Store().Names()
}

// Spawn 在 point 处生成一个带法线的粒子系统
func (e *Engine) Spawn(name string, point, normal mgl64.Vec3) (ecs.Handle, bool) {
	return e.Particles.SpawnImpact(name, point, normal)
}

// AttachToPlayer 在本地玩家身上生成一个粒子系统
func (e *Engine) AttachToPlayer(name string) (ecs.Handle, bool) {
	handle := e.Particles.RegisterSystem(name)
	if handle == 0 {
		return ecs.NilHandle, false
	}
	h, ok := e.Particles.SpawnSystem(handle)
	if !ok {
		return ecs.NilHandle, false
	}
	e.Particles.AttachToEntity(h, PlayerEntity)
	return h, true
}

// SpawnQueue 返回调试服务器使用的生成队列
func (e *Engine) SpawnQueue() chan<- debugserver.SpawnRequest {
	return e.spawns
}

// Gatherer 返回引擎指标所在的注册表
func (e *Engine) Gatherer() prometheus.Gatherer {
	return e.registry
}

// ServeDebug 运行调试 HTTP 服务器直到 ctx 取消
func (e *Engine) ServeDebug(ctx context.Context, addr string) error {
	return debugserver.Serve(ctx, addr, debugserver.Config{
		Monitor:  e.Monitor,
		Spawns:   e.spawns,
		Gatherer: e.registry,
		Logger:   e.log.Named("debug"),
	})
}

// Step 推进一帧
func (e *Engine) Step(frameTime int, view View) {
	start := time.Now()
	e.now += frameTime

	e.drainSpawns()
	e.placeEntities(view)
	e.Entities.UpdateAll(e.World)

	settings := e.Settings.GetSettings()
	e.Particles.DebugLevel = settings.DebugParticles

	e.Scene.Begin(e.now)
	e.Particles.Update(systems.Frame{
		Time:        e.now,
		FrameTime:   frameTime,
		ViewOrigin:  view.Origin,
		ViewAxis:    view.Axis,
		ClientNum:   PlayerEntity,
		ThirdPerson: view.ThirdPerson,
		Physics:     e.Settings.Physics(),
	})
	e.Trails.Update(e.Particles)
	e.Audio.SetListener(view.Origin)

	e.Metrics.ObserveUpdate(time.Since(start))
	e.publish()
}

// drainSpawns 处理调试服务器排队的生成请求
func (e *Engine) drainSpawns() {
	for {
		select {
		case req := <-e.spawns:
			if _, ok := e.Spawn(req.Name, mgl64.Vec3(req.Point), mgl64.Vec3(req.Normal)); !ok {
				e.log.Warnf("debug spawn of %s failed", req.Name)
			}
		default:
			return
		}
	}
}

// placeEntities 更新玩家和配置中的实体
func (e *Engine) placeEntities(view View) {
	e.World.SetEntity(world.Entity{Number: PlayerEntity, Valid: true, Origin: view.Player})

	for _, ec := range e.cfg.Viewer.Entities {
		origin := mgl64.Vec3(ec.Origin)
		ent := world.Entity{Number: ec.Number, Valid: true, Origin: origin, Effect: ec.Effect}
		if ec.Orbit > 0 {
			angle := 2 * math.Pi * float64(e.now%ec.Period) / float64(ec.Period)
			sin, cos := math.Sincos(angle)
			ent.Origin = origin.Add(mgl64.Vec3{cos, sin, 0}.Mul(ec.Orbit))

			// 切线方向即运动方向
			speed := 2 * math.Pi * ec.Orbit * 1000 / float64(ec.Period)
			tangent := mgl64.Vec3{-sin, cos, 0}
			ent.Velocity = tangent.Mul(speed)
			ent.Axis = utils.AxisFromDirection(tangent)
		}
		e.World.SetEntity(ent)
	}
}

// publish 发布调试快照
func (e *Engine) publish() {
	s, ej, p := e.Particles.Counts()
	stats := debugserver.Stats{
		Time:      e.now,
		Systems:   s,
		Ejectors:  ej,
		Particles: p,
		Templates: e.Templates(),
	}
	for _, info := range e.Particles.LiveSystems() {
		stats.Live = append(stats.Live, debugserver.SystemStat{
			Name:       info.Name,
			Attachment: info.Attachment.String(),
			Attached:   info.Attached,
			Infinite:   info.Infinite,
			LazyRemove: info.LazyRemove,
			Ejectors:   info.Ejectors,
		})
	}
	e.Monitor.Publish(stats)
}

// Frame 返回渲染器需要的一帧数据
func (e *Engine) Frame(cam *render.Camera, firstPerson bool) render.Frame {
	return render.Frame{
		Scene:       e.Scene,
		Camera:      cam,
		Brushes:     e.World.Brushes(),
		Trails:      e.Trails.Trails(),
		FirstPerson: firstPerson,
	}
}
