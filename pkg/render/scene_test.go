package render

import (
	"testing"

	"github.com/go-gl/mathgl/mgl64"

	"github.com/decker502/pfx/pkg/components"
)

// TestScene_Begin 测试每帧清空提交并保留贴花
func TestScene_Begin(t *testing.T) {
	s := NewScene()
	s.Begin(0)
	s.SubmitSprite(components.SpriteRenderable{Radius: 1})
	s.SubmitModel(components.ModelRenderable{Model: 1})
	s.SubmitDynamicLight(components.DynamicLight{Radius: 10})
	s.PlaceDecal(components.Decal{Shader: 1})

	s.Begin(16)
	if len(s.Sprites) != 0 || len(s.Models) != 0 || len(s.Lights) != 0 {
		t.Errorf("Begin() kept %d sprites, %d models, %d lights", len(s.Sprites), len(s.Models), len(s.Lights))
	}
	if len(s.Decals) != 1 {
		t.Fatalf("%d decals, want 1", len(s.Decals))
	}

	s.Begin(DefaultDecalLife)
	if len(s.Decals) != 0 {
		t.Error("expired decal kept")
	}
}

// TestScene_DecalAlpha 测试贴花淡出
func TestScene_DecalAlpha(t *testing.T) {
	s := NewScene()
	s.Begin(1000)
	s.PlaceDecal(components.Decal{})
	d := s.Decals[0]

	tests := []struct {
		now  int
		want float64
	}{
		{1000, 1},
		{1000 + DefaultDecalLife - decalFade, 1},
		{1000 + DefaultDecalLife - decalFade/2, 0.5},
		{1000 + DefaultDecalLife, 0},
	}
	for _, tt := range tests {
		s.now = tt.now
		if got := s.DecalAlpha(d); got != tt.want {
			t.Errorf("DecalAlpha() at %d = %v, want %v", tt.now, got, tt.want)
		}
	}
}

// TestScene_DecalLimit 测试贴花上限丢弃最旧的
func TestScene_DecalLimit(t *testing.T) {
	s := NewScene()
	s.MaxDecals = 2
	for i := 1; i <= 3; i++ {
		s.PlaceDecal(components.Decal{Shader: i})
	}
	if len(s.Decals) != 2 || s.Decals[0].Shader != 2 || s.Decals[1].Shader != 3 {
		t.Errorf("decals = %+v, want shaders 2 and 3", s.Decals)
	}

	s.MaxDecals = 0
	s.PlaceDecal(components.Decal{Shader: 4})
	if len(s.Decals) != 2 {
		t.Error("decal placed with MaxDecals 0")
	}
}

// TestScene_LightForPoint 测试环境光和上一帧的动态光
func TestScene_LightForPoint(t *testing.T) {
	s := NewScene()
	s.Ambient = mgl64.Vec3{0.1, 0.1, 0.1}
	s.Begin(0)
	s.SubmitDynamicLight(components.DynamicLight{Origin: mgl64.Vec3{}, Radius: 100, Color: [3]float64{1, 0, 0}})

	// 同一帧的光还不生效
	if got := s.LightForPoint(mgl64.Vec3{}); got != s.Ambient {
		t.Errorf("light before Begin = %v, want ambient", got)
	}

	s.Begin(16)
	tests := []struct {
		p    mgl64.Vec3
		want mgl64.Vec3
	}{
		{mgl64.Vec3{}, mgl64.Vec3{1.1, 0.1, 0.1}},
		{mgl64.Vec3{50, 0, 0}, mgl64.Vec3{0.6, 0.1, 0.1}},
		{mgl64.Vec3{200, 0, 0}, mgl64.Vec3{0.1, 0.1, 0.1}},
	}
	for _, tt := range tests {
		got := s.LightForPoint(tt.p)
		if !got.ApproxEqual(tt.want) {
			t.Errorf("LightForPoint(%v) = %v, want %v", tt.p, got, tt.want)
		}
	}
}
