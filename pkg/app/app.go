// Package app 提供粒子查看器的核心包装器
//
// Engine 组装粒子系统、资源、音效、拖尾、场景和调试服务器，不依赖窗口；
// App 在 Engine 之上实现 ebiten.Game，处理输入、摄像机和绘制。
// 命令行工具的脚本检查和快照也直接使用 Engine。
package app

import (
	"errors"
	"fmt"
	"image/color"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/hajimehoshi/ebiten/v2"
	"github.com/hajimehoshi/ebiten/v2/ebitenutil"
	"github.com/hajimehoshi/ebiten/v2/inpututil"
	"go.uber.org/zap"

	"github.com/decker502/pfx/pkg/config"
	"github.com/decker502/pfx/pkg/render"
	"github.com/decker502/pfx/pkg/utils"
)

// ErrQuit 在用户请求退出时由 Update 返回
var ErrQuit = errors.New("quit requested")

const (
	// eyeHeight 第一人称视点高于玩家位置的距离
	eyeHeight = 48
	// mouseSensitivity 每像素旋转的角度
	mouseSensitivity = 0.3
	minDistance      = 32
	maxDistance      = 2048
)

var backgroundColor = color.RGBA{R: 16, G: 16, B: 24, A: 255}

// App 是粒子查看器，实现 ebiten.Game 接口
type App struct {
	engine   *Engine
	camera   *render.Camera
	renderer *render.EbitenRenderer
	viewer   config.ViewerConfig
	log      *zap.SugaredLogger

	target     mgl64.Vec3
	yaw, pitch float64
	distance   float64

	dragging               bool
	lastMouseX, lastMouseY int

	firstPerson bool
	paused      bool
	// frameAcc 累积不足 1 毫秒的帧时间
	frameAcc float64

	templates []string
	current   int
	status    string
}

// NewApp 创建查看器
//
// 调用前必须已经通过 engine.Reload() 加载了粒子脚本。
func NewApp(engine *Engine, logger *zap.SugaredLogger) *App {
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	viewer := engine.Config().Viewer
	a := &App{
		engine:   engine,
		camera:   render.NewCamera(viewer.Width, viewer.Height, viewer.FOV),
		renderer: render.NewEbitenRenderer(engine.Resources),
		viewer:   viewer,
		log:      logger,
		target:   mgl64.Vec3{0, 0, 16},
		yaw:      -135,
		pitch:    25,
		distance: viewer.CameraDistance,
	}
	a.refreshTemplates()
	a.updateCamera()
	return a
}

// Select 选中指定名字的粒子系统，未找到时返回 false
func (a *App) Select(name string) bool {
	for i, t := range a.templates {
		if t == name {
			a.current = i
			a.status = fmt.Sprintf("Selected: %s", name)
			return true
		}
	}
	return false
}

func (a *App) refreshTemplates() {
	a.templates = a.engine.Templates()
	if a.current >= len(a.templates) {
		a.current = 0
	}
}

func (a *App) currentTemplate() (string, bool) {
	if len(a.templates) == 0 {
		return "", false
	}
	return a.templates[a.current], true
}

// Update 更新查看器
// 每个 tick 调用一次（通常每秒 60 次）
func (a *App) Update() error {
	if inpututil.IsKeyJustPressed(ebiten.KeyQ) || inpututil.IsKeyJustPressed(ebiten.KeyEscape) {
		return ErrQuit
	}

	a.handleEffectKeys()
	a.handleSettingKeys()
	a.handleCamera()

	if a.paused {
		return nil
	}

	a.frameAcc += 1000 / float64(ebiten.TPS())
	frameTime := int(a.frameAcc)
	a.frameAcc -= float64(frameTime)

	a.engine.Step(frameTime, View{
		Origin:      a.camera.Origin,
		Axis:        a.camera.Axis,
		Player:      a.target,
		ThirdPerson: !a.firstPerson,
	})
	return nil
}

// handleEffectKeys 处理选择和生成粒子系统的按键
func (a *App) handleEffectKeys() {
	if n := len(a.templates); n > 0 {
		if inpututil.IsKeyJustPressed(ebiten.KeyArrowRight) {
			a.current = (a.current + 1) % n
			a.status = fmt.Sprintf("Selected: %s", a.templates[a.current])
		}
		if inpututil.IsKeyJustPressed(ebiten.KeyArrowLeft) {
			a.current = (a.current - 1 + n) % n
			a.status = fmt.Sprintf("Selected: %s", a.templates[a.current])
		}
	}

	name, ok := a.currentTemplate()
	if !ok {
		return
	}

	if inpututil.IsKeyJustPressed(ebiten.KeySpace) {
		if _, ok := a.engine.Spawn(name, a.target, utils.Up); ok {
			a.status = fmt.Sprintf("Spawned: %s", name)
		} else {
			a.status = fmt.Sprintf("Failed to spawn %s", name)
		}
	}
	if inpututil.IsKeyJustPressed(ebiten.KeyT) {
		if a.engine.Particles.TestSystem(name) {
			a.status = fmt.Sprintf("Test system: %s", name)
		} else {
			a.status = fmt.Sprintf("Failed to start test system %s", name)
		}
	}
	if inpututil.IsKeyJustPressed(ebiten.KeyX) {
		a.engine.Particles.DestroyTestSystem()
		a.status = "Test system destroyed"
	}
	if inpututil.IsKeyJustPressed(ebiten.KeyG) {
		if _, ok := a.engine.AttachToPlayer(name); ok {
			a.status = fmt.Sprintf("Attached %s to the player", name)
		}
	}
	if inpututil.IsKeyJustPressed(ebiten.KeyR) {
		if err := a.engine.Reload(); err != nil {
			a.log.Warnf("reload: %v", err)
			a.status = "Reloaded with errors, see log"
		} else {
			a.status = "Reloaded particle scripts"
		}
		a.refreshTemplates()
	}
}

// handleSettingKeys 处理设置切换按键，修改会立即保存
func (a *App) handleSettingKeys() {
	sm := a.engine.Settings
	changed := false

	if inpututil.IsKeyJustPressed(ebiten.KeyB) {
		bounce := !sm.GetSettings().BounceParticles
		sm.SetBounceParticles(bounce)
		a.status = fmt.Sprintf("Bounce particles: %v", bounce)
		changed = true
	}
	if inpututil.IsKeyJustPressed(ebiten.KeyD) {
		a.status = fmt.Sprintf("Debug particles: %d", sm.CycleDebugParticles())
		changed = true
	}
	if inpututil.IsKeyJustPressed(ebiten.KeyM) {
		enabled := !sm.GetSettings().SoundEnabled
		sm.SetSoundEnabled(enabled)
		a.status = fmt.Sprintf("Sound: %v", enabled)
		changed = true
	}
	if inpututil.IsKeyJustPressed(ebiten.KeyF1) {
		sm.SetShowStats(!sm.GetSettings().ShowStats)
		changed = true
	}
	if inpututil.IsKeyJustPressed(ebiten.KeyV) {
		a.firstPerson = !a.firstPerson
	}
	if inpututil.IsKeyJustPressed(ebiten.KeyP) {
		a.paused = !a.paused
	}

	if changed {
		if err := sm.Save(); err != nil {
			a.log.Warnf("failed to save settings: %v", err)
		}
	}
}

// handleCamera 右键拖动旋转，滚轮缩放，方向键上下调整俯仰
func (a *App) handleCamera() {
	x, y := ebiten.CursorPosition()
	if ebiten.IsMouseButtonPressed(ebiten.MouseButtonRight) {
		if a.dragging {
			a.yaw -= float64(x-a.lastMouseX) * mouseSensitivity
			a.pitch += float64(y-a.lastMouseY) * mouseSensitivity
		}
		a.dragging = true
	} else {
		a.dragging = false
	}
	a.lastMouseX, a.lastMouseY = x, y

	if ebiten.IsKeyPressed(ebiten.KeyArrowUp) {
		a.pitch++
	}
	if ebiten.IsKeyPressed(ebiten.KeyArrowDown) {
		a.pitch--
	}
	a.pitch = mgl64.Clamp(a.pitch, -85, 85)

	if _, dy := ebiten.Wheel(); dy != 0 {
		a.distance = mgl64.Clamp(a.distance*(1-dy*0.1), minDistance, maxDistance)
	}

	a.updateCamera()
}

func (a *App) updateCamera() {
	if a.firstPerson {
		a.camera.Look(a.target.Add(mgl64.Vec3{0, 0, eyeHeight}), a.yaw, a.pitch)
		return
	}
	a.camera.Orbit(a.target, a.yaw, a.pitch, a.distance)
}

// Draw 绘制画面
func (a *App) Draw(screen *ebiten.Image) {
	screen.Fill(backgroundColor)
	a.renderer.Draw(screen, a.engine.Frame(a.camera, a.firstPerson))

	if a.engine.Settings.GetSettings().ShowStats {
		a.drawUI(screen)
	}
}

// drawUI 绘制状态和按键说明
func (a *App) drawUI(screen *ebiten.Image) {
	s, e, p := a.engine.Particles.Counts()
	stats := a.renderer.Stats()
	settings := a.engine.Settings.GetSettings()

	name, _ := a.currentTemplate()
	lines := []string{
		fmt.Sprintf("Effect %d/%d: %s", a.current+1, len(a.templates), name),
		fmt.Sprintf("Systems: %d  Ejectors: %d  Particles: %d  Trails: %d", s, e, p, a.engine.Trails.Len()),
		fmt.Sprintf("Drawn: %d sprites  %d models  %d decals  (%d culled)", stats.Sprites, stats.Models, stats.Decals, stats.Culled),
		fmt.Sprintf("Bounce: %v  Debug: %d  Sound: %v  FPS: %.0f",
			settings.BounceParticles, settings.DebugParticles, settings.SoundEnabled, ebiten.ActualFPS()),
	}
	if a.paused {
		lines = append(lines, "PAUSED")
	}
	if a.status != "" {
		lines = append(lines, a.status)
	}
	for i, line := range lines {
		ebitenutil.DebugPrintAt(screen, line, 10, 10+i*16)
	}

	controls := []string{
		"<-/-> select  Space spawn  T test system  X destroy test  G attach to player  R reload",
		"B bounce  D debug level  M sound  V first person  P pause  F1 stats  Q quit",
		"Right drag orbit  Wheel zoom  Up/Down pitch",
	}
	y := a.viewer.Height - len(controls)*16 - 10
	for i, line := range controls {
		ebitenutil.DebugPrintAt(screen, line, 10, y+i*16)
	}
}

// DrawFinalScreen 实现 FinalScreenDrawer 接口
// 用于控制全屏时的缩放和 letterbox 颜色
func (a *App) DrawFinalScreen(screen ebiten.FinalScreen, offscreen *ebiten.Image, geoM ebiten.GeoM) {
	screen.Fill(color.Black)
	op := &ebiten.DrawImageOptions{}
	op.GeoM = geoM
	op.Filter = ebiten.FilterLinear
	screen.DrawImage(offscreen, op)
}

// Layout 返回逻辑屏幕尺寸
// 此尺寸独立于实际窗口大小，Ebitengine 会自动处理缩放
func (a *App) Layout(outsideWidth, outsideHeight int) (int, int) {
	return a.viewer.Width, a.viewer.Height
}
