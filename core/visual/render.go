package visual

import (
	"bytes"
	"image"
	"image/color"
	"image/draw"
	"image/png"
	"math"

	"golang.org/x/image/vector"
)

var background = color.NRGBA{A: 255}

// Render draws one frame of the radial visualizer onto a size×size canvas.
// It is a pure function of its inputs.
func Render(samples []float64, accent RGB, size int) *image.RGBA {
	if size < 16 {
		size = 16
	}
	dst := image.NewRGBA(image.Rect(0, 0, size, size))
	draw.Draw(dst, dst.Bounds(), image.NewUniform(background), image.Point{}, draw.Src)

	g := GeometryFor(size)
	bars := Layout(Lobes(samples, LobeWidth, LobeCount), g)
	if len(bars) == 0 {
		return dst
	}
	slot := 2 * math.Pi * g.InnerRadius / float64(len(bars))
	width := math.Max(1, slot*0.55)
	pt := &painter{dst: dst}

	// glow
	for _, b := range bars {
		pt.bar(g, b, width*2.4, accent.NRGBA(b.Alpha*0.25))
	}
	for _, b := range bars {
		pt.bar(g, b, width, accent.NRGBA(b.Alpha))
	}
	for _, b := range bars {
		if b.Highlight {
			pt.bar(g, b, math.Max(0.5, width*0.3), color.NRGBA{R: 255, G: 255, B: 255, A: uint8(160 * b.Magnitude)})
		}
	}

	// 遮罩 + 底圈
	pt.ring(g, 0, g.InnerRadius-1, background)
	pt.ring(g, g.InnerRadius-1.5, g.InnerRadius, accent.NRGBA(0.3))
	return dst
}

// RenderPNG encodes Render's output.
func RenderPNG(samples []float64, accent RGB, size int) ([]byte, error) {
	var buf bytes.Buffer
	if err := png.Encode(&buf, Render(samples, accent, size)); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// painter fills shapes onto dst with one rasterizer, sized to each
// shape's bounding box rather than the canvas.
type painter struct {
	dst  *image.RGBA
	z    vector.Rasterizer
	clip image.Rectangle
}

// begin clips the box to the canvas and resets the rasterizer to it.
func (p *painter) begin(minX, minY, maxX, maxY float64) bool {
	r := image.Rect(
		int(math.Floor(minX))-1, int(math.Floor(minY))-1,
		int(math.Ceil(maxX))+1, int(math.Ceil(maxY))+1,
	).Intersect(p.dst.Bounds())
	if r.Empty() {
		return false
	}
	p.clip = r
	p.z.Reset(r.Dx(), r.Dy())
	p.z.DrawOp = draw.Over
	return true
}

func (p *painter) moveTo(x, y float64) {
	p.z.MoveTo(float32(x-float64(p.clip.Min.X)), float32(y-float64(p.clip.Min.Y)))
}

func (p *painter) lineTo(x, y float64) {
	p.z.LineTo(float32(x-float64(p.clip.Min.X)), float32(y-float64(p.clip.Min.Y)))
}

func (p *painter) fill(c color.NRGBA) {
	p.z.Draw(p.dst, p.clip, image.NewUniform(c), image.Point{})
}

func (p *painter) bar(g Geometry, b Bar, width float64, c color.NRGBA) {
	if c.A == 0 {
		return
	}
	cos, sin := math.Cos(b.Angle), math.Sin(b.Angle)
	nx, ny := -sin*width/2, cos*width/2
	x0, y0 := g.CenterX+cos*b.Inner, g.CenterY+sin*b.Inner
	x1, y1 := g.CenterX+cos*b.Outer, g.CenterY+sin*b.Outer

	xs := [4]float64{x0 + nx, x1 + nx, x1 - nx, x0 - nx}
	ys := [4]float64{y0 + ny, y1 + ny, y1 - ny, y0 - ny}
	minX, maxX, minY, maxY := xs[0], xs[0], ys[0], ys[0]
	for i := 1; i < 4; i++ {
		minX, maxX = math.Min(minX, xs[i]), math.Max(maxX, xs[i])
		minY, maxY = math.Min(minY, ys[i]), math.Max(maxY, ys[i])
	}
	if !p.begin(minX, minY, maxX, maxY) {
		return
	}
	p.moveTo(xs[0], ys[0])
	for i := 1; i < 4; i++ {
		p.lineTo(xs[i], ys[i])
	}
	p.z.ClosePath()
	p.fill(c)
}

// ring fills the annulus between inner and outer; inner <= 0 fills a disc.
func (p *painter) ring(g Geometry, inner, outer float64, c color.NRGBA) {
	const segments = 128
	if !p.begin(g.CenterX-outer, g.CenterY-outer, g.CenterX+outer, g.CenterY+outer) {
		return
	}

	circle := func(r float64, reverse bool) {
		for i := 0; i <= segments; i++ {
			k := i
			if reverse {
				k = segments - i
			}
			a := 2 * math.Pi * float64(k) / segments
			x, y := g.CenterX+math.Cos(a)*r, g.CenterY+math.Sin(a)*r
			if i == 0 {
				p.moveTo(x, y)
			} else {
				p.lineTo(x, y)
			}
		}
		p.z.ClosePath()
	}
	circle(outer, false)
	if inner > 0 {
		circle(inner, true)
	}
	p.fill(c)
}
