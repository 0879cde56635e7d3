package render

import (
	"bytes"
	"image"
	"image/color"
	"image/png"
	"testing"

	"github.com/go-gl/mathgl/mgl64"

	"github.com/decker502/pfx/pkg/components"
	"github.com/decker502/pfx/pkg/game"
	"github.com/decker502/pfx/pkg/utils"
	"github.com/decker502/pfx/pkg/world"
)

// solidAssets 所有贴图都是白色方块
type solidAssets struct{}

func (solidAssets) SpriteSource(h int) image.Image {
	if h == 0 {
		return nil
	}
	img := image.NewRGBA(image.Rect(0, 0, 2, 2))
	for i := range img.Pix {
		img.Pix[i] = 0xff
	}
	return img
}

func (solidAssets) ModelStyle(int) ([3]float64, color.RGBA) {
	return [3]float64{8, 8, 8}, color.RGBA{0, 255, 0, 255}
}

func newSnapshotFrame() Frame {
	cam := NewCamera(200, 100, 90)
	cam.SetView(mgl64.Vec3{}, utils.AxisDefault)
	s := NewScene()
	s.Begin(0)
	return Frame{Scene: s, Camera: cam}
}

// TestSnapshot_Sprite 测试精灵绘制在投影位置
func TestSnapshot_Sprite(t *testing.T) {
	r := NewSnapshotRenderer(solidAssets{})
	f := newSnapshotFrame()
	f.Scene.SubmitSprite(components.SpriteRenderable{
		Origin: mgl64.Vec3{100, 0, 0},
		Radius: 20,
		Color:  color.RGBA{255, 0, 0, 255},
		Shader: 1,
	})

	img := r.Render(f)
	if img.Bounds().Dx() != 200 || img.Bounds().Dy() != 100 {
		t.Fatalf("snapshot size = %v, want 200x100", img.Bounds())
	}

	cr, cg, _, _ := img.At(100, 50).RGBA()
	if cr>>8 < 200 || cg>>8 > 40 {
		t.Errorf("center pixel = (%d, %d), want red", cr>>8, cg>>8)
	}
	br, bg, bb, _ := img.At(2, 2).RGBA()
	if br>>8 != 16 || bg>>8 != 16 || bb>>8 != 24 {
		t.Errorf("corner pixel = (%d, %d, %d), want the background", br>>8, bg>>8, bb>>8)
	}
	if got := r.Stats().Sprites; got != 1 {
		t.Errorf("Stats().Sprites = %d, want 1", got)
	}
}

// TestSnapshot_Filtering 测试裁剪和第一人称隐藏
func TestSnapshot_Filtering(t *testing.T) {
	r := NewSnapshotRenderer(solidAssets{})
	f := newSnapshotFrame()
	f.FirstPerson = true
	white := color.RGBA{255, 255, 255, 255}
	f.Scene.SubmitSprite(components.SpriteRenderable{Origin: mgl64.Vec3{-100, 0, 0}, Radius: 1, Color: white, Shader: 1})
	f.Scene.SubmitSprite(components.SpriteRenderable{Origin: mgl64.Vec3{100, 0, 0}, Radius: 1, Color: white, Shader: 1, ThirdPersonOnly: true})
	f.Scene.SubmitModel(components.ModelRenderable{Origin: mgl64.Vec3{100, 0, 0}, Axis: utils.AxisDefault, Model: 1, ThirdPersonOnly: true})
	f.Scene.SubmitModel(components.ModelRenderable{Origin: mgl64.Vec3{100, 0, 0}, Axis: utils.AxisDefault, Model: 1})

	r.Render(f)
	want := DrawStats{Sprites: 0, Models: 1, Culled: 1}
	if got := r.Stats(); got != want {
		t.Errorf("Stats() = %+v, want %+v", got, want)
	}
}

// TestSnapshot_DecalsAndTrails 测试贴花、拖尾和地形
func TestSnapshot_DecalsAndTrails(t *testing.T) {
	r := NewSnapshotRenderer(solidAssets{})
	f := newSnapshotFrame()
	f.Camera.Orbit(mgl64.Vec3{}, 0, 60, 200)
	f.Brushes = []world.Brush{{Mins: mgl64.Vec3{-50, -50, -10}, Maxs: mgl64.Vec3{50, 50, 0}, Contents: world.ContentsSolid}}
	f.Scene.PlaceDecal(components.Decal{Shader: 1, Normal: utils.Up, Radius: 16, Color: color.RGBA{0, 0, 255, 255}})
	f.Trails = []*game.Trail{{Points: []mgl64.Vec3{{-20, 0, 10}, {0, 0, 10}, {20, 0, 10}}, Width: 2, Color: color.RGBA{255, 255, 0, 255}}}

	var buf bytes.Buffer
	if err := r.EncodePNG(&buf, f); err != nil {
		t.Fatalf("EncodePNG() error: %v", err)
	}
	if _, err := png.Decode(&buf); err != nil {
		t.Fatalf("snapshot is not a PNG: %v", err)
	}
	if got := r.Stats().Decals; got != 1 {
		t.Errorf("Stats().Decals = %d, want 1", got)
	}
}

// TestSnapshot_AverageColor 测试贴图平均颜色
func TestSnapshot_AverageColor(t *testing.T) {
	r := NewSnapshotRenderer(solidAssets{})
	if got := r.averageColor(1); got != (color.RGBA{255, 255, 255, 255}) {
		t.Errorf("averageColor(1) = %v, want white", got)
	}
	if got := r.averageColor(0); got != (color.RGBA{255, 255, 255, 255}) {
		t.Errorf("averageColor(unknown) = %v, want white", got)
	}
	if got := r.tinted(1, color.RGBA{10, 20, 30, 40}); got != (color.RGBA{10, 20, 30, 40}) {
		t.Errorf("tinted() = %v, want the particle colour unchanged", got)
	}
}
