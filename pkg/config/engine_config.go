package config

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/decker502/pfx/internal/particle"
	"github.com/decker502/pfx/pkg/logging"
	"github.com/decker502/pfx/pkg/systems"
	"github.com/decker502/pfx/pkg/world"
)

// EngineConfig 粒子引擎配置
//
// 包含对象池容量、模板上限、脚本目录、日志、查看器窗口和调试服务器的配置。
//
// 配置文件位置: data/config.yaml
type EngineConfig struct {
	// Pools 存活对象池容量
	Pools PoolConfig `yaml:"pools"`

	// Limits 模板数量上限
	Limits LimitConfig `yaml:"limits"`

	// Scripts 粒子脚本位置
	Scripts ScriptConfig `yaml:"scripts"`

	// Log 日志配置
	Log logging.Config `yaml:"log"`

	// Viewer 查看器配置
	Viewer ViewerConfig `yaml:"viewer"`

	// Debug 调试配置
	Debug DebugConfig `yaml:"debug"`
}

// PoolConfig 存活对象池容量
type PoolConfig struct {
	Systems   int `yaml:"systems"`
	Ejectors  int `yaml:"ejectors"`
	Particles int `yaml:"particles"`

	// ParticleGrace 粒子槽位释放后保留的帧数
	ParticleGrace int `yaml:"particleGrace"`
}

// LimitConfig 模板上限，0 表示使用默认值
type LimitConfig struct {
	Systems             int `yaml:"systems"`
	EjectorsPerSystem   int `yaml:"ejectorsPerSystem"`
	ParticlesPerEjector int `yaml:"particlesPerEjector"`
	ShaderFrames        int `yaml:"shaderFrames"`
	Models              int `yaml:"models"`
	Files               int `yaml:"files"`
}

// ScriptConfig 粒子脚本位置
type ScriptConfig struct {
	// Dir 脚本目录（相对于数据根目录）
	Dir string `yaml:"dir"`
	// Ext 脚本扩展名
	Ext string `yaml:"ext"`
	// Manifest 资源清单路径（相对于数据根目录）
	Manifest string `yaml:"manifest"`
}

// ViewerConfig 查看器配置
type ViewerConfig struct {
	Width  int    `yaml:"width"`
	Height int    `yaml:"height"`
	Title  string `yaml:"title"`

	// FOV 水平视野角度
	FOV float64 `yaml:"fov"`
	// CameraDistance 摄像机到原点的初始距离
	CameraDistance float64 `yaml:"cameraDistance"`

	// Floor 是否放置地板，便于观察反弹
	Floor bool `yaml:"floor"`

	// Entities 场景中携带粒子效果的实体
	Entities []EntityConfig `yaml:"entities"`
}

// EntityConfig 场景实体配置
type EntityConfig struct {
	// Number 实体编号，必须唯一且不为 0（0 是本地玩家）
	Number int `yaml:"number"`
	// Origin 实体位置
	Origin [3]float64 `yaml:"origin"`
	// Effect 实体携带的粒子系统名
	Effect string `yaml:"effect"`
	// Orbit 绕 Origin 水平转圈的半径，0 表示静止
	Orbit float64 `yaml:"orbit"`
	// Period 转一圈的时间（毫秒）
	Period int `yaml:"period"`
}

// DebugConfig 调试配置
type DebugConfig struct {
	// Addr 调试 HTTP 服务器地址，空表示不启动
	Addr string `yaml:"addr"`
	// Seed 随机种子，0 表示使用时钟
	Seed int64 `yaml:"seed"`
}

// DefaultEngineConfig 返回默认配置
func DefaultEngineConfig() *EngineConfig {
	pools := systems.DefaultConfig()
	return &EngineConfig{
		Pools: PoolConfig{
			Systems:       pools.MaxSystems,
			Ejectors:      pools.MaxEjectors,
			Particles:     pools.MaxParticles,
			ParticleGrace: pools.ParticleGrace,
		},
		Scripts: ScriptConfig{Dir: "particles", Ext: ".particle", Manifest: "assets.yaml"},
		Log:     logging.Config{Level: "info"},
		Viewer: ViewerConfig{
			Width:          1024,
			Height:         768,
			Title:          "Particle Viewer",
			FOV:            90,
			CameraDistance: 256,
			Floor:          true,
		},
	}
}

// LoadEngineConfig 加载引擎配置
//
// 从指定路径加载 YAML 配置，未配置的字段使用默认值。
//
// 参数:
//   - path: 配置文件路径（如 "data/config.yaml"）
//
// 返回:
//   - *EngineConfig: 加载成功后的配置
//   - error: 读取、解析或验证失败时返回错误
func LoadEngineConfig(path string) (*EngineConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read engine config: %w", err)
	}
	return ParseEngineConfig(data)
}

// ParseEngineConfig 解析 YAML 格式的引擎配置
func ParseEngineConfig(data []byte) (*EngineConfig, error) {
	config := DefaultEngineConfig()
	if err := yaml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("failed to parse engine config: %w", err)
	}

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid engine config: %w", err)
	}
	return config, nil
}

// Validate 验证配置有效性
//
// 检查：
//   - 对象池容量为正，发射器池不小于系统池
//   - 模板上限不为负
//   - 日志级别合法
//   - 窗口尺寸和视野角度在合理范围内
func (c *EngineConfig) Validate() error {
	if c.Pools.Systems <= 0 || c.Pools.Ejectors <= 0 || c.Pools.Particles <= 0 {
		return fmt.Errorf("pool sizes must be positive, got systems=%d ejectors=%d particles=%d",
			c.Pools.Systems, c.Pools.Ejectors, c.Pools.Particles)
	}
	if c.Pools.Ejectors < c.Pools.Systems {
		return fmt.Errorf("pools.ejectors (%d) must be >= pools.systems (%d)", c.Pools.Ejectors, c.Pools.Systems)
	}
	if c.Pools.ParticleGrace < 0 {
		return fmt.Errorf("pools.particleGrace cannot be negative, got %d", c.Pools.ParticleGrace)
	}

	limits := []struct {
		name  string
		value int
	}{
		{"limits.systems", c.Limits.Systems},
		{"limits.ejectorsPerSystem", c.Limits.EjectorsPerSystem},
		{"limits.particlesPerEjector", c.Limits.ParticlesPerEjector},
		{"limits.shaderFrames", c.Limits.ShaderFrames},
		{"limits.models", c.Limits.Models},
		{"limits.files", c.Limits.Files},
	}
	for _, l := range limits {
		if l.value < 0 {
			return fmt.Errorf("%s cannot be negative, got %d", l.name, l.value)
		}
	}

	if c.Scripts.Dir == "" {
		return fmt.Errorf("scripts.dir is required")
	}
	if c.Scripts.Ext != "" && !strings.HasPrefix(c.Scripts.Ext, ".") {
		return fmt.Errorf("scripts.ext must start with '.', got %q", c.Scripts.Ext)
	}

	if _, err := logging.ParseLevel(c.Log.Level); err != nil {
		return fmt.Errorf("log.level: %w", err)
	}

	if c.Viewer.Width <= 0 || c.Viewer.Height <= 0 {
		return fmt.Errorf("viewer size must be positive, got %dx%d", c.Viewer.Width, c.Viewer.Height)
	}
	if c.Viewer.FOV <= 0 || c.Viewer.FOV >= 180 {
		return fmt.Errorf("viewer.fov must be in (0, 180), got %.1f", c.Viewer.FOV)
	}

	seen := make(map[int]bool)
	for i, e := range c.Viewer.Entities {
		if e.Number <= 0 || e.Number >= world.EntityWorld {
			return fmt.Errorf("viewer.entities[%d]: number must be in [1, %d), got %d", i, world.EntityWorld, e.Number)
		}
		if seen[e.Number] {
			return fmt.Errorf("viewer.entities[%d]: duplicate number %d", i, e.Number)
		}
		seen[e.Number] = true
		if e.Effect == "" {
			return fmt.Errorf("viewer.entities[%d]: effect is required", i)
		}
		if e.Orbit < 0 || (e.Orbit > 0 && e.Period <= 0) {
			return fmt.Errorf("viewer.entities[%d]: orbiting entities need a positive period", i)
		}
	}
	return nil
}

// SystemsConfig 转换为粒子系统的对象池配置
func (c *EngineConfig) SystemsConfig(debugLevel int) systems.Config {
	return systems.Config{
		MaxSystems:    c.Pools.Systems,
		MaxEjectors:   c.Pools.Ejectors,
		MaxParticles:  c.Pools.Particles,
		ParticleGrace: c.Pools.ParticleGrace,
		DebugLevel:    debugLevel,
		Seed:          c.Debug.Seed,
		ScriptExt:     c.Scripts.Ext,
	}
}

// StoreLimits 转换为模板上限，未配置的项使用默认值
func (c *EngineConfig) StoreLimits() particle.Limits {
	limits := particle.DefaultLimits()
	override := func(dst *int, v int) {
		if v > 0 {
			*dst = v
		}
	}
	override(&limits.MaxSystems, c.Limits.Systems)
	override(&limits.MaxEjectorsPerSystem, c.Limits.EjectorsPerSystem)
	override(&limits.MaxParticlesPerEjector, c.Limits.ParticlesPerEjector)
	override(&limits.MaxShaderFrames, c.Limits.ShaderFrames)
	override(&limits.MaxModels, c.Limits.Models)
	override(&limits.MaxFiles, c.Limits.Files)
	return limits
}
