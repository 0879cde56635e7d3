package render

import (
	"image/color"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/hajimehoshi/ebiten/v2"
	"github.com/hajimehoshi/ebiten/v2/vector"
)

// maxBatchVertices keeps batch indices inside uint16.
const maxBatchVertices = 65532

// EbitenAssets adds GPU images to Assets.
type EbitenAssets interface {
	Assets
	SpriteImage(h int) *ebiten.Image
}

// EbitenRenderer draws a Frame onto an ebiten image.
//
// Sprites arrive sorted back to front. Consecutive sprites sharing an image
// are batched into one DrawTriangles call; a new image flushes the batch so
// the order is kept.
type EbitenRenderer struct {
	assets EbitenAssets

	target   *ebiten.Image
	vertices []ebiten.Vertex // 复用，避免每帧分配
	indices  []uint16
	batchImg *ebiten.Image
	stats    DrawStats
}

// NewEbitenRenderer creates a renderer reading images from assets.
func NewEbitenRenderer(assets EbitenAssets) *EbitenRenderer {
	return &EbitenRenderer{
		assets:   assets,
		vertices: make([]ebiten.Vertex, 0, 4096),
		indices:  make([]uint16, 0, 6144),
	}
}

// Stats returns the counts of the last Draw.
func (r *EbitenRenderer) Stats() DrawStats {
	return r.stats
}

// Draw renders f onto screen in layers: brushes, decals, models, sprites,
// trails and light glows.
func (r *EbitenRenderer) Draw(screen *ebiten.Image, f Frame) {
	r.stats = DrawStats{}
	r.target = screen
	defer func() { r.target = nil }()

	cam := f.Camera
	cam.SetSize(screen.Bounds().Dx(), screen.Bounds().Dy())

	for _, b := range f.Brushes {
		r.strokeEdges(cam, brushEdges(b), brushColor(b.Contents), 1)
	}

	if f.Scene != nil {
		for _, d := range f.Scene.Decals {
			c := d.Color
			c.A = uint8(float64(c.A) * f.Scene.DecalAlpha(d))
			if r.addQuad(cam, d.Shader, decalQuad(d.Decal), c) {
				r.stats.Decals++
			}
		}
		r.flush()

		for _, m := range f.Scene.Models {
			if m.ThirdPersonOnly && f.FirstPerson {
				continue
			}
			size, tint := r.assets.ModelStyle(m.Model)
			r.strokeEdges(cam, boxEdges(m.Origin, m.Axis, modelHalfSize(size)), tint, 1.5)
			r.stats.Models++
		}

		for _, s := range f.Scene.Sprites {
			if s.ThirdPersonOnly && f.FirstPerson {
				continue
			}
			if !cam.Visible(s.Origin, s.Radius) {
				r.stats.Culled++
				continue
			}
			if r.addQuad(cam, s.Shader, spriteQuad(s.Origin, s.Radius, s.Rotation, cam.Axis), s.Color) {
				r.stats.Sprites++
			}
		}
		r.flush()
	}

	for _, tr := range f.Trails {
		r.drawTrail(cam, tr.Points, tr.Width, tr.Color)
	}

	if f.Scene != nil {
		for _, l := range f.Scene.Lights {
			x, y, ok := cam.Project(l.Origin)
			if !ok {
				continue
			}
			radius := cam.ProjectRadius(l.Origin, l.Radius) * 0.25
			vector.DrawFilledCircle(screen, float32(x), float32(y), float32(radius), lightColor(l, 0.15), true)
		}
	}
}

// addQuad appends a textured quad to the current batch. c is a straight
// alpha colour.
func (r *EbitenRenderer) addQuad(cam *Camera, shader int, q quad, c color.RGBA) bool {
	img := r.assets.SpriteImage(shader)
	if img == nil || c.A == 0 {
		return false
	}

	var dst [4][2]float32
	for i, p := range q {
		x, y, ok := cam.Project(p)
		if !ok {
			return false
		}
		dst[i] = [2]float32{float32(x), float32(y)}
	}

	if img != r.batchImg || len(r.vertices)+4 > maxBatchVertices {
		r.flush()
		r.batchImg = img
	}

	b := img.Bounds()
	src := [4][2]float32{
		{float32(b.Min.X), float32(b.Min.Y)},
		{float32(b.Max.X), float32(b.Min.Y)},
		{float32(b.Min.X), float32(b.Max.Y)},
		{float32(b.Max.X), float32(b.Max.Y)},
	}

	// 顶点颜色按预乘处理
	a := float32(c.A) / 255
	cr := float32(c.R) / 255 * a
	cg := float32(c.G) / 255 * a
	cb := float32(c.B) / 255 * a

	base := uint16(len(r.vertices))
	for i := range dst {
		r.vertices = append(r.vertices, ebiten.Vertex{
			DstX: dst[i][0], DstY: dst[i][1],
			SrcX: src[i][0], SrcY: src[i][1],
			ColorR: cr, ColorG: cg, ColorB: cb, ColorA: a,
		})
	}
	r.indices = append(r.indices,
		base+0, base+1, base+2, // 第一个三角形
		base+1, base+3, base+2, // 第二个三角形
	)
	return true
}

// flush draws the pending batch.
func (r *EbitenRenderer) flush() {
	if len(r.indices) > 0 && r.batchImg != nil {
		op := &ebiten.DrawTrianglesOptions{}
		op.AntiAlias = true
		r.target.DrawTriangles(r.vertices, r.indices, r.batchImg, op)
	}
	r.vertices = r.vertices[:0]
	r.indices = r.indices[:0]
	r.batchImg = nil
}

func (r *EbitenRenderer) strokeEdges(cam *Camera, edges [12][2]mgl64.Vec3, c color.RGBA, width float32) {
	for _, e := range edges {
		x0, y0, x1, y1, ok := cam.ProjectSegment(e[0], e[1])
		if !ok {
			continue
		}
		vector.StrokeLine(r.target, float32(x0), float32(y0), float32(x1), float32(y1), width, c, true)
	}
}

// drawTrail strokes a trail, fading from the tail to the head.
func (r *EbitenRenderer) drawTrail(cam *Camera, points []mgl64.Vec3, width float64, c color.RGBA) {
	n := len(points)
	for i := 0; i+1 < n; i++ {
		x0, y0, x1, y1, ok := cam.ProjectSegment(points[i], points[i+1])
		if !ok {
			continue
		}
		w := cam.ProjectRadius(points[i+1], width)
		fade := float64(i+1) / float64(n-1)
		vector.StrokeLine(r.target, float32(x0), float32(y0), float32(x1), float32(y1),
			float32(max(w, 1)), scaleColor(c, fade), true)
	}
}
