package game

import (
	"image/color"

	"github.com/go-gl/mathgl/mgl64"
	"go.uber.org/zap"

	"github.com/decker502/pfx/pkg/components"
)

// DefaultMaxTrails 同时存在的拖尾上限
const DefaultMaxTrails = 128

// minTrailSegment 新点与上一个点的最小距离
const minTrailSegment = 1.0

// AttachmentResolver 把附着点解析为世界坐标
// 粒子系统实现该接口
type AttachmentResolver interface {
	AttachmentPoint(a components.Attachment) (mgl64.Vec3, bool)
}

// Trail 一条拖尾
type Trail struct {
	Handle int
	Front  components.Attachment
	Points []mgl64.Vec3 // 从旧到新
	Width  float64
	Color  color.RGBA

	// Detached 表示前端已失效，拖尾正在收缩
	Detached bool
	maxLen   int
}

// TrailManager 拖尾系统管理器
// 职责：
//   - 为带 childTrailSystem 的粒子生成拖尾
//   - 每帧记录前端位置
//   - 前端消失后逐帧收缩并回收
type TrailManager struct {
	resources *ResourceManager
	log       *zap.SugaredLogger
	trails    []*Trail
	max       int
	rejected  int
}

// NewTrailManager 创建拖尾管理器
//
// 参数：
//   - rm: 资源管理器（用于拖尾名称和样式）
//   - max: 拖尾上限，<= 0 时使用 DefaultMaxTrails
func NewTrailManager(rm *ResourceManager, max int, logger *zap.SugaredLogger) *TrailManager {
	if max <= 0 {
		max = DefaultMaxTrails
	}
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	return &TrailManager{resources: rm, log: logger.Named("trails"), max: max}
}

// SpawnTrailSystem 生成一条跟随 front 的拖尾
//
// 返回：
//   - bool: 句柄未注册或已达上限时返回 false
func (tm *TrailManager) SpawnTrailSystem(handle int, front components.Attachment) bool {
	if _, ok := tm.resources.TrailSystemName(handle); !ok {
		tm.log.Warnf("unknown trail system handle %d", handle)
		return false
	}
	if len(tm.trails) >= tm.max {
		tm.rejected++
		return false
	}

	style := tm.resources.TrailStyle(handle)
	tm.trails = append(tm.trails, &Trail{
		Handle: handle,
		Front:  front,
		Width:  style.Width,
		Color:  tintFromConfig(style.Tint, color.RGBA{255, 255, 255, 255}),
		maxLen: style.Points,
	})
	return true
}

// Update 记录前端位置并回收收缩完毕的拖尾
func (tm *TrailManager) Update(resolver AttachmentResolver) {
	live := tm.trails[:0]
	for _, tr := range tm.trails {
		if !tr.Detached {
			if p, ok := resolver.AttachmentPoint(tr.Front); ok {
				tr.push(p)
			} else {
				tr.Detached = true
			}
		}
		if tr.Detached && len(tr.Points) > 0 {
			tr.Points = tr.Points[1:]
		}
		if tr.Detached && len(tr.Points) == 0 {
			continue
		}
		live = append(live, tr)
	}
	for i := len(live); i < len(tm.trails); i++ {
		tm.trails[i] = nil
	}
	tm.trails = live
}

func (tr *Trail) push(p mgl64.Vec3) {
	if n := len(tr.Points); n > 0 && tr.Points[n-1].Sub(p).Len() < minTrailSegment {
		tr.Points[n-1] = p
		return
	}
	tr.Points = append(tr.Points, p)
	if len(tr.Points) > tr.maxLen {
		tr.Points = tr.Points[len(tr.Points)-tr.maxLen:]
	}
}

// Trails 返回当前的拖尾，供渲染使用
func (tm *TrailManager) Trails() []*Trail {
	return tm.trails
}

// Len 返回拖尾数量
func (tm *TrailManager) Len() int {
	return len(tm.trails)
}

// Rejected 返回因上限被拒绝的拖尾数量
func (tm *TrailManager) Rejected() int {
	return tm.rejected
}

// Clear 移除所有拖尾（关卡切换时）
func (tm *TrailManager) Clear() {
	tm.trails = nil
}
