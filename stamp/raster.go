package stamp

import (
	"fmt"
	"image"
	"image/color"
	"image/png"
	"io"
	"math"

	"github.com/golang/freetype/truetype"
	xdraw "golang.org/x/image/draw"
	"golang.org/x/image/font"
	"golang.org/x/image/math/f64"
	"golang.org/x/image/math/fixed"
)

// RasterCanvas 交互式预览用的栅格绘制面。
// 输入为文档坐标（左下角原点，pt），按 scale 换算为像素（左上角原点）。
// 栅格后端直接把字形位图的视觉中心对齐到弧上位置，无需基线补偿。
type RasterCanvas struct {
	img    *image.RGBA
	font   *truetype.Font
	scale  float64 // 每 pt 像素数
	height float64 // 画布高度（pt）
	ink    color.RGBA
}

// NewRasterCanvas 创建给定尺寸（pt）的栅格绘制面
func NewRasterCanvas(fontData []byte, widthPt, heightPt, scale float64) (*RasterCanvas, error) {
	f, err := truetype.Parse(fontData)
	if err != nil {
		return nil, fmt.Errorf("解析预览字体失败: %w", err)
	}
	img := image.NewRGBA(image.Rect(0, 0, int(math.Ceil(widthPt*scale)), int(math.Ceil(heightPt*scale))))
	return &RasterCanvas{
		img:    img,
		font:   f,
		scale:  scale,
		height: heightPt,
		ink:    color.RGBA{R: inkR, G: inkG, B: inkB, A: 255},
	}, nil
}

// Image 返回底层位图
func (r *RasterCanvas) Image() *image.RGBA { return r.img }

// EncodePNG 把画布编码为 PNG
func (r *RasterCanvas) EncodePNG(w io.Writer) error { return png.Encode(w, r.img) }

func (r *RasterCanvas) toPx(x, y float64) (float64, float64) {
	return x * r.scale, (r.height - y) * r.scale
}

func (r *RasterCanvas) face(sizePx float64) font.Face {
	return truetype.NewFace(r.font, &truetype.Options{Size: sizePx, DPI: 72})
}

func (r *RasterCanvas) GlyphWidth(ch rune, fontSize float64) float64 {
	adv, ok := r.face(fontSize).GlyphAdvance(ch)
	if !ok {
		return fontSize * 0.55
	}
	return float64(adv) / 64
}

func (r *RasterCanvas) Circle(cx, cy, rad, lineWidth float64) {
	pcx, pcy := r.toPx(cx, cy)
	pr := rad * r.scale
	half := math.Max(lineWidth*r.scale/2, 0.5)
	steps := int(4 * math.Pi * pr)
	if steps < 64 {
		steps = 64
	}
	for i := 0; i < steps; i++ {
		a := 2 * math.Pi * float64(i) / float64(steps)
		r.plotDot(pcx+pr*math.Cos(a), pcy+pr*math.Sin(a), half)
	}
}

func (r *RasterCanvas) plotDot(px, py, rad float64) {
	minX, maxX := int(px-rad), int(px+rad)+1
	minY, maxY := int(py-rad), int(py+rad)+1
	for y := minY; y <= maxY; y++ {
		for x := minX; x <= maxX; x++ {
			dx, dy := float64(x)-px, float64(y)-py
			if dx*dx+dy*dy <= rad*rad {
				r.img.SetRGBA(x, y, r.ink)
			}
		}
	}
}

func (r *RasterCanvas) Glyph(ch rune, x, y, rotation, fontSize float64) {
	sizePx := fontSize * r.scale
	face := r.face(sizePx)
	adv, ok := face.GlyphAdvance(ch)
	if !ok {
		return
	}
	advPx := float64(adv) / 64

	// 字形先画进小位图，再带旋转贴回画布
	w := int(math.Ceil(advPx)) + 4
	h := int(math.Ceil(sizePx)) + 4
	tmp := image.NewRGBA(image.Rect(0, 0, w, h))
	baseline := h - 2
	d := &font.Drawer{Dst: tmp, Src: image.NewUniform(r.ink), Face: face, Dot: fixed.P(2, baseline)}
	d.DrawString(string(ch))

	// 小位图中字形的视觉中心
	gcx := 2 + advPx/2
	gcy := float64(baseline) - halfCapHeightRatio*sizePx

	// 文档坐标系的逆时针旋转在像素（Y 向下）坐标系中的等价矩阵
	px, py := r.toPx(x, y)
	c, s := math.Cos(rotation), math.Sin(rotation)
	xdraw.BiLinear.Transform(r.img, f64.Aff3{
		c, s, px - c*gcx - s*gcy,
		-s, c, py + s*gcx - c*gcy,
	}, tmp, tmp.Bounds(), xdraw.Over, nil)
}

func (r *RasterCanvas) CenteredText(s string, x, y, fontSize float64) {
	sizePx := fontSize * r.scale
	face := r.face(sizePx)
	wPx := float64(font.MeasureString(face, s)) / 64
	px, py := r.toPx(x, y)
	d := &font.Drawer{Dst: r.img, Src: image.NewUniform(r.ink), Face: face}
	d.Dot = fixed.Point26_6{X: floatToFixed(px - wPx/2), Y: floatToFixed(py + halfCapHeightRatio*sizePx)}
	d.DrawString(s)
}

func floatToFixed(v float64) fixed.Int26_6 { return fixed.Int26_6(math.Round(v * 64)) }

// RenderStampPreview 渲染单枚印章的 PNG 预览画布。
// 只画印章本身，不含页面内容，供交互前端作为覆盖层定位使用。
func RenderStampPreview(fontData []byte, nameText, labelText string, number int, radius, scale float64) (*RasterCanvas, error) {
	margin := radius * 0.1
	side := 2 * (radius + margin)
	canvas, err := NewRasterCanvas(fontData, side, side, scale)
	if err != nil {
		return nil, err
	}
	DrawStamp(canvas, radius+margin, radius+margin, radius, nameText, labelText, number)
	return canvas, nil
}
