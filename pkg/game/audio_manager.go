package game

import (
	"errors"

	"github.com/go-gl/mathgl/mgl64"
	"go.uber.org/zap"
)

// DefaultHearingDistance 超过该距离的音效听不到
const DefaultHearingDistance = 1250.0

// AudioManager 音频管理器
// 职责：
//   - 播放粒子反弹音效
//   - 根据听者位置做距离衰减
//   - 应用 SettingsManager 中的音量设置
type AudioManager struct {
	resourceManager *ResourceManager // 资源管理器（用于解码音效）
	settingsManager *SettingsManager // 设置管理器（可为 nil）
	log             *zap.SugaredLogger

	listener        mgl64.Vec3
	hearingDistance float64

	broken map[int]bool // 加载失败的音效，不再重试
	played int
}

// NewAudioManager 创建新的音频管理器
//
// 参数：
//   - rm: ResourceManager 实例（用于加载音效）
//   - sm: SettingsManager 实例（用于读取音量设置，可为 nil）
func NewAudioManager(rm *ResourceManager, sm *SettingsManager, logger *zap.SugaredLogger) *AudioManager {
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	return &AudioManager{
		resourceManager: rm,
		settingsManager: sm,
		log:             logger.Named("audio"),
		hearingDistance: DefaultHearingDistance,
		broken:          make(map[int]bool),
	}
}

// SetListener 设置听者位置（通常是摄像机位置）
func (am *AudioManager) SetListener(origin mgl64.Vec3) {
	am.listener = origin
}

// SetHearingDistance 设置最远可听距离
func (am *AudioManager) SetHearingDistance(d float64) {
	if d > 0 {
		am.hearingDistance = d
	}
}

// Played 返回已播放的音效数量
func (am *AudioManager) Played() int {
	return am.played
}

// Volume 返回在 origin 处播放时的音量
func (am *AudioManager) Volume(origin mgl64.Vec3) float64 {
	gain := 1.0
	if am.settingsManager != nil {
		gain = am.settingsManager.SoundGain()
	}
	d := origin.Sub(am.listener).Len()
	return gain * clamp01(1-d/am.hearingDistance)
}

// PlaySound 在世界坐标 origin 处播放音效
func (am *AudioManager) PlaySound(origin mgl64.Vec3, sound int) {
	if sound == 0 || am.broken[sound] {
		return
	}
	volume := am.Volume(origin)
	if volume <= 0 {
		return
	}

	player, err := am.resourceManager.SoundPlayer(sound)
	if err != nil {
		am.broken[sound] = true
		if !errors.Is(err, ErrNoAudio) {
			name, _ := am.resourceManager.SoundName(sound)
			am.log.Warnf("sound %s: %v", name, err)
		}
		return
	}

	player.SetVolume(volume)
	player.Play()
	am.played++
}
