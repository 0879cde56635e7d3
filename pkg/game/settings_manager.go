package game

import (
	"fmt"

	"github.com/quasilyte/gdata/v2"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/decker502/pfx/pkg/systems"
)

// MaxDebugParticles 是 debugParticles 的最高级别
const MaxDebugParticles = 2

// ParticleSettings 用户可切换的粒子设置
// 注意：这些设置跨会话保存，与引擎配置文件分离
type ParticleSettings struct {
	// 物理设置
	BounceParticles bool `yaml:"bounceParticles"` // 粒子是否做碰撞反弹

	// 调试设置
	DebugParticles int  `yaml:"debugParticles"` // 0 关闭，1 跟踪系统创建和回收，2 输出每帧计数
	ShowStats      bool `yaml:"showStats"`      // 查看器是否显示统计信息

	// 音效设置
	SoundVolume  float64 `yaml:"soundVolume"`  // 反弹音效音量 0.0 ~ 1.0
	SoundEnabled bool    `yaml:"soundEnabled"` // 反弹音效开关
}

// DefaultSettings 返回默认设置
func DefaultSettings() *ParticleSettings {
	return &ParticleSettings{
		BounceParticles: true,
		DebugParticles:  0,
		ShowStats:       true,
		SoundVolume:     0.8,
		SoundEnabled:    true,
	}
}

// SettingsManager 设置管理器
// 负责粒子设置的加载、保存和内存管理
type SettingsManager struct {
	gdataManager *gdata.Manager    // gdata 跨平台存储管理器，可为 nil（降级模式）
	settings     *ParticleSettings // 当前设置
	log          *zap.SugaredLogger
}

// 存储路径常量
const (
	settingsObject   = "settings"
	settingsProperty = "particles"
)

// NewSettingsManager 创建新的设置管理器实例
//
// 参数：
//   - gdataManager: gdata 跨平台存储管理器，可为 nil（降级模式，仅内存设置）
//   - logger: 日志，可为 nil
//
// 返回：
//   - *SettingsManager: 设置管理器实例（加载失败时使用默认设置）
func NewSettingsManager(gdataManager *gdata.Manager, logger *zap.SugaredLogger) *SettingsManager {
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	sm := &SettingsManager{
		gdataManager: gdataManager,
		settings:     DefaultSettings(),
		log:          logger.Named("settings"),
	}

	// 加载失败不是致命错误，使用默认设置
	if err := sm.Load(); err != nil {
		sm.log.Warnf("failed to load settings: %v (using defaults)", err)
	}
	return sm
}

// Load 从 gdata 加载设置
//
// 如果 gdataManager 为 nil 或数据不存在，使用默认设置
func (sm *SettingsManager) Load() error {
	sm.settings = DefaultSettings()

	// 降级模式：无法持久化
	if sm.gdataManager == nil {
		return nil
	}
	if !sm.gdataManager.ObjectPropExists(settingsObject, settingsProperty) {
		return nil
	}

	data, err := sm.gdataManager.LoadObjectProp(settingsObject, settingsProperty)
	if err != nil {
		return fmt.Errorf("failed to load settings: %w", err)
	}

	// 在默认值上解析，缺失字段保持默认
	loaded := DefaultSettings()
	if err := yaml.Unmarshal(data, loaded); err != nil {
		return fmt.Errorf("failed to unmarshal settings: %w", err)
	}
	loaded.DebugParticles = clampDebug(loaded.DebugParticles)
	loaded.SoundVolume = clampVolume(loaded.SoundVolume)

	sm.settings = loaded
	sm.log.Debug("settings loaded")
	return nil
}

// Save 保存设置到 gdata
//
// 如果 gdataManager 为 nil，返回 nil（降级模式，不报错）
func (sm *SettingsManager) Save() error {
	if sm.gdataManager == nil {
		return nil
	}

	data, err := yaml.Marshal(sm.settings)
	if err != nil {
		return fmt.Errorf("failed to marshal settings: %w", err)
	}
	if err := sm.gdataManager.SaveObjectProp(settingsObject, settingsProperty, data); err != nil {
		return fmt.Errorf("failed to save settings: %w", err)
	}

	sm.log.Debug("settings saved")
	return nil
}

// GetSettings 获取当前设置
func (sm *SettingsManager) GetSettings() *ParticleSettings {
	return sm.settings
}

// Physics 返回当前设置对应的物理配置
func (sm *SettingsManager) Physics() systems.PhysicsConfig {
	return systems.PhysicsConfig{BounceParticles: sm.settings.BounceParticles}
}

// SetBounceParticles 设置碰撞反弹开关
//
// 注意：仅修改内存中的设置，需调用 Save() 方法持久化
func (sm *SettingsManager) SetBounceParticles(enabled bool) {
	sm.settings.BounceParticles = enabled
}

// SetDebugParticles 设置调试级别，限制在 0 ~ MaxDebugParticles
func (sm *SettingsManager) SetDebugParticles(level int) {
	sm.settings.DebugParticles = clampDebug(level)
}

// CycleDebugParticles 切换到下一个调试级别并返回新级别
func (sm *SettingsManager) CycleDebugParticles() int {
	sm.settings.DebugParticles = (sm.settings.DebugParticles + 1) % (MaxDebugParticles + 1)
	return sm.settings.DebugParticles
}

// SetShowStats 设置统计信息显示
func (sm *SettingsManager) SetShowStats(enabled bool) {
	sm.settings.ShowStats = enabled
}

// SetSoundVolume 设置音效音量
//
// 音量值会被限制在 0.0 ~ 1.0 范围内
func (sm *SettingsManager) SetSoundVolume(volume float64) {
	sm.settings.SoundVolume = clampVolume(volume)
}

// SetSoundEnabled 设置音效开关
func (sm *SettingsManager) SetSoundEnabled(enabled bool) {
	sm.settings.SoundEnabled = enabled
}

// SoundGain 返回实际播放音量，关闭音效时为 0
func (sm *SettingsManager) SoundGain() float64 {
	if !sm.settings.SoundEnabled {
		return 0
	}
	return sm.settings.SoundVolume
}

func clampDebug(level int) int {
	if level < 0 {
		return 0
	}
	if level > MaxDebugParticles {
		return MaxDebugParticles
	}
	return level
}

// clampVolume 将音量值限制在 0.0 ~ 1.0 范围内
func clampVolume(volume float64) float64 {
	if volume < 0.0 {
		return 0.0
	}
	if volume > 1.0 {
		return 1.0
	}
	return volume
}
