package stamp

import (
	"math"
	"strconv"
	"strings"
)

// 印章几何比例（相对外圈半径）
const (
	innerRadiusRatio = 0.65
	nameFontRatio    = 0.20
	labelFontRatio   = 0.15
	numberFontRatio  = 0.45
	ringLineRatio    = 0.05
)

// maxTextSpan 弧形文字允许占据的最大圆心角
const maxTextSpan = 1.4 * math.Pi

// ReferenceShortSide 印章半径的标定基准：A4 纵向宽度（pt）
const ReferenceShortSide = 595.28

// Canvas 印章绘制面。坐标为文档坐标（左下角原点，Y 轴向上）。
// Glyph 以字形的视觉中心为锚点，基线锚定的后端自行补偿。
type Canvas interface {
	Circle(cx, cy, r, lineWidth float64)
	Glyph(ch rune, x, y, rotation, fontSize float64)
	CenteredText(s string, x, y, fontSize float64)
	Measurer
}

// DrawStamp 在 (cx, cy) 绘制一枚编号圆章：
// 外圈 R、内圈 0.65R，文字基线半径取两圈中线，
// 上弧为大写名称（字号 ≤0.20R），下弧为大写标签（≤0.15R），
// 编号以 0.45R 字号居中。
func DrawStamp(c Canvas, cx, cy, radius float64, nameText, labelText string, number int) {
	inner := radius * innerRadiusRatio
	band := (radius + inner) / 2

	c.Circle(cx, cy, radius, radius*ringLineRatio)
	c.Circle(cx, cy, inner, radius*ringLineRatio)

	if name := strings.ToUpper(nameText); name != "" {
		size := FitFontSize(name, radius*nameFontRatio, band, maxTextSpan, c)
		for _, g := range Layout(name, size, band, math.Pi/2, Outward, c) {
			c.Glyph(g.Char, cx+band*math.Cos(g.Angle), cy+band*math.Sin(g.Angle), g.Rotation, size)
		}
	}

	if label := strings.ToUpper(labelText); label != "" {
		size := FitFontSize(label, radius*labelFontRatio, band, maxTextSpan, c)
		for _, g := range Layout(label, size, band, -math.Pi/2, Inward, c) {
			c.Glyph(g.Char, cx+band*math.Cos(g.Angle), cy+band*math.Sin(g.Angle), g.Rotation, size)
		}
	}

	c.CenteredText(strconv.Itoa(number), cx, cy, radius*numberFontRatio)
}

// StampRadiusFor 按页面视觉短边重新标定配置半径
func StampRadiusFor(configRadius, visualWidth, visualHeight float64) float64 {
	return configRadius * math.Min(visualWidth, visualHeight) / ReferenceShortSide
}
