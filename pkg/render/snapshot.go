package render

import (
	"fmt"
	"image"
	"image/color"
	"io"

	"github.com/fogleman/gg"
	"github.com/go-gl/mathgl/mgl64"
)

// SnapshotRenderer draws frames offscreen with gg. The check tool uses it
// to write PNG snapshots of effects without opening a window.
//
// Sprites are drawn as radial gradients in the average colour of their
// image, which is enough to judge placement, size and colour over time.
type SnapshotRenderer struct {
	assets     Assets
	average    map[int]color.RGBA
	Background color.Color
	stats      DrawStats
}

// NewSnapshotRenderer creates an offscreen renderer.
func NewSnapshotRenderer(assets Assets) *SnapshotRenderer {
	return &SnapshotRenderer{
		assets:     assets,
		average:    make(map[int]color.RGBA),
		Background: color.RGBA{16, 16, 24, 255},
	}
}

// Stats returns the counts of the last Render.
func (r *SnapshotRenderer) Stats() DrawStats {
	return r.stats
}

// Render draws f into a new image the size of the camera viewport.
func (r *SnapshotRenderer) Render(f Frame) image.Image {
	return r.draw(f).Image()
}

// EncodePNG renders f and writes it as PNG.
func (r *SnapshotRenderer) EncodePNG(w io.Writer, f Frame) error {
	if err := r.draw(f).EncodePNG(w); err != nil {
		return fmt.Errorf("failed to encode snapshot: %w", err)
	}
	return nil
}

// SavePNG renders f to a PNG file.
func (r *SnapshotRenderer) SavePNG(path string, f Frame) error {
	if err := r.draw(f).SavePNG(path); err != nil {
		return fmt.Errorf("failed to save snapshot %s: %w", path, err)
	}
	return nil
}

func (r *SnapshotRenderer) draw(f Frame) *gg.Context {
	r.stats = DrawStats{}
	cam := f.Camera
	dc := gg.NewContext(cam.Width, cam.Height)
	dc.SetColor(r.Background)
	dc.Clear()

	for _, b := range f.Brushes {
		r.strokeEdges(dc, cam, brushEdges(b), brushColor(b.Contents), 1)
	}

	if f.Scene != nil {
		for _, d := range f.Scene.Decals {
			c := r.tinted(d.Shader, d.Color)
			c.A = uint8(float64(c.A) * f.Scene.DecalAlpha(d))
			if r.fillQuad(dc, cam, decalQuad(d.Decal), premultiply(c)) {
				r.stats.Decals++
			}
		}

		for _, m := range f.Scene.Models {
			if m.ThirdPersonOnly && f.FirstPerson {
				continue
			}
			size, tint := r.assets.ModelStyle(m.Model)
			r.strokeEdges(dc, cam, boxEdges(m.Origin, m.Axis, modelHalfSize(size)), tint, 1.5)
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
			x, y, ok := cam.Project(s.Origin)
			if !ok {
				continue
			}
			radius := cam.ProjectRadius(s.Origin, s.Radius)
			if radius < 0.5 {
				radius = 0.5
			}
			c := premultiply(r.tinted(s.Shader, s.Color))
			grad := gg.NewRadialGradient(x, y, 0, x, y, radius)
			grad.AddColorStop(0, c)
			grad.AddColorStop(1, color.RGBA{})
			dc.SetFillStyle(grad)
			dc.DrawCircle(x, y, radius)
			dc.Fill()
			r.stats.Sprites++
		}
	}

	for _, tr := range f.Trails {
		n := len(tr.Points)
		for i := 0; i+1 < n; i++ {
			x0, y0, x1, y1, ok := cam.ProjectSegment(tr.Points[i], tr.Points[i+1])
			if !ok {
				continue
			}
			dc.SetColor(scaleColor(tr.Color, float64(i+1)/float64(n-1)))
			dc.SetLineWidth(max(cam.ProjectRadius(tr.Points[i+1], tr.Width), 1))
			dc.DrawLine(x0, y0, x1, y1)
			dc.Stroke()
		}
	}

	if f.Scene != nil {
		for _, l := range f.Scene.Lights {
			x, y, ok := cam.Project(l.Origin)
			if !ok {
				continue
			}
			dc.SetColor(lightColor(l, 0.15))
			dc.DrawCircle(x, y, cam.ProjectRadius(l.Origin, l.Radius)*0.25)
			dc.Fill()
		}
	}
	return dc
}

// tinted multiplies a straight alpha particle colour by the sprite's
// average colour.
func (r *SnapshotRenderer) tinted(shader int, c color.RGBA) color.RGBA {
	avg := r.averageColor(shader)
	return color.RGBA{
		R: uint8(int(c.R) * int(avg.R) / 255),
		G: uint8(int(c.G) * int(avg.G) / 255),
		B: uint8(int(c.B) * int(avg.B) / 255),
		A: c.A,
	}
}

// averageColor returns the alpha weighted mean colour of a sprite, white
// when the sprite is unknown or fully transparent.
func (r *SnapshotRenderer) averageColor(shader int) color.RGBA {
	if c, ok := r.average[shader]; ok {
		return c
	}
	c := color.RGBA{255, 255, 255, 255}
	if img := r.assets.SpriteSource(shader); img != nil {
		var sr, sg, sb, sa uint64
		b := img.Bounds()
		for y := b.Min.Y; y < b.Max.Y; y++ {
			for x := b.Min.X; x < b.Max.X; x++ {
				pr, pg, pb, pa := img.At(x, y).RGBA()
				sr += uint64(pr)
				sg += uint64(pg)
				sb += uint64(pb)
				sa += uint64(pa)
			}
		}
		// 预乘颜色之和除以 alpha 之和得到直通颜色
		if sa > 0 {
			c = color.RGBA{uint8(sr * 255 / sa), uint8(sg * 255 / sa), uint8(sb * 255 / sa), 255}
		}
	}
	r.average[shader] = c
	return c
}

func (r *SnapshotRenderer) fillQuad(dc *gg.Context, cam *Camera, q quad, c color.RGBA) bool {
	if c.A == 0 {
		return false
	}
	// 按顺时针连接角点：左上、右上、右下、左下
	order := [4]int{0, 1, 3, 2}
	for i, k := range order {
		x, y, ok := cam.Project(q[k])
		if !ok {
			dc.ClearPath()
			return false
		}
		if i == 0 {
			dc.MoveTo(x, y)
		} else {
			dc.LineTo(x, y)
		}
	}
	dc.ClosePath()
	dc.SetColor(c)
	dc.Fill()
	return true
}

func (r *SnapshotRenderer) strokeEdges(dc *gg.Context, cam *Camera, edges [12][2]mgl64.Vec3, c color.RGBA, width float64) {
	dc.SetColor(c)
	dc.SetLineWidth(width)
	for _, e := range edges {
		x0, y0, x1, y1, ok := cam.ProjectSegment(e[0], e[1])
		if !ok {
			continue
		}
		dc.DrawLine(x0, y0, x1, y1)
		dc.Stroke()
	}
}
