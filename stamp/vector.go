package stamp

import (
	"math"

	"github.com/jung-kurt/gofpdf"
)

// 印泥颜色（印章蓝）
const (
	inkR = 28
	inkG = 50
	inkB = 152
)

const stampFontFamily = "Helvetica"

// halfCapHeightRatio 矢量字形的锚点补偿：gofpdf 以基线左端锚定文字，
// 半个大写字高（经验值 0.33 em）连同半步进一起旋转进字形的切向坐标系，
// 使字形的视觉中心恰好落在排版给出的弧上位置。
const halfCapHeightRatio = 0.33

// vectorCanvas 把印章绘制到 gofpdf 的当前页面。
// 输入为文档坐标（左下角原点），gofpdf 使用左上角原点，纵轴在此翻转。
type vectorCanvas struct {
	pdf        *gofpdf.Fpdf
	pageHeight float64
}

// NewVectorCanvas 在 gofpdf 当前页面上创建印章绘制面
func NewVectorCanvas(pdf *gofpdf.Fpdf, pageHeight float64) Canvas {
	pdf.SetFont(stampFontFamily, "B", 12)
	return &vectorCanvas{pdf: pdf, pageHeight: pageHeight}
}

func (v *vectorCanvas) flipY(y float64) float64 { return v.pageHeight - y }

func (v *vectorCanvas) Circle(cx, cy, r, lineWidth float64) {
	v.pdf.SetDrawColor(inkR, inkG, inkB)
	v.pdf.SetLineWidth(lineWidth)
	v.pdf.Circle(cx, v.flipY(cy), r, "D")
}

func (v *vectorCanvas) GlyphWidth(ch rune, fontSize float64) float64 {
	v.pdf.SetFontSize(fontSize)
	return v.pdf.GetStringWidth(string(ch))
}

func (v *vectorCanvas) Glyph(ch rune, x, y, rotation, fontSize float64) {
	v.pdf.SetTextColor(inkR, inkG, inkB)
	v.pdf.SetFontSize(fontSize)
	gx, gy := x, v.flipY(y)
	halfAdv := v.pdf.GetStringWidth(string(ch)) / 2
	v.pdf.TransformBegin()
	v.pdf.TransformRotate(rotation*180/math.Pi, gx, gy)
	// 旋转坐标系内：基线左端 = 视觉中心 − 半步进（切向）− 半大写高（法向）
	v.pdf.Text(gx-halfAdv, gy+halfCapHeightRatio*fontSize, string(ch))
	v.pdf.TransformEnd()
}

func (v *vectorCanvas) CenteredText(s string, x, y, fontSize float64) {
	v.pdf.SetTextColor(inkR, inkG, inkB)
	v.pdf.SetFontSize(fontSize)
	w := v.pdf.GetStringWidth(s)
	v.pdf.Text(x-w/2, v.flipY(y)+halfCapHeightRatio*fontSize, s)
}
