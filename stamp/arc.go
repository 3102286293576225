package stamp

import (
	"log"
	"math"
)

// 弧形文字的字间距系数（相对字号）
const arcSpacingFactor = 0.08

// 收缩拟合参数：每次按 0.9 缩小字号，最多尝试 20 个字号
const (
	fitShrinkFactor = 0.9
	fitMaxAttempts  = 20
)

// Direction 弧形文字的展开方向
type Direction int

const (
	// Outward 上弧：从左到右顺时针排布，字头朝外
	Outward Direction = iota
	// Inward 下弧：从左到右逆时针排布，字头朝圆心（镜像的扫描方向与旋转符号）
	Inward
)

// GlyphPos 单个字形在弧上的位置：极角与切向旋转，均为弧度，逆时针为正
type GlyphPos struct {
	Char     rune
	Angle    float64
	Rotation float64
}

// angularSpan 整串文字在给定半径、字号下占据的圆心角：
// (Σ glyphWidth + spacing*(n-1)) / radius
func angularSpan(runes []rune, fontSize, radius float64, m Measurer) float64 {
	if len(runes) == 0 || radius <= 0 {
		return 0
	}
	total := 0.0
	for _, ch := range runes {
		total += m.GlyphWidth(ch, fontSize)
	}
	total += arcSpacingFactor * fontSize * float64(len(runes)-1)
	return total / radius
}

// FitFontSize 从 maxFontSize 开始逐步收缩，直到整串文字的圆心角
// 不超过 maxSpan，返回最后一次尝试的字号。返回值单调不增且不超过
// maxFontSize。尝试耗尽不是错误：按最小字号继续，字形可能重叠。
func FitFontSize(text string, maxFontSize, radius, maxSpan float64, m Measurer) float64 {
	runes := []rune(text)
	size := maxFontSize
	for attempt := 1; attempt < fitMaxAttempts; attempt++ {
		if angularSpan(runes, size, radius, m) <= maxSpan {
			return size
		}
		size *= fitShrinkFactor
	}
	if angularSpan(runes, size, radius, m) > maxSpan {
		log.Printf("弧形排版: 收缩 %d 次后文字仍超出 %.2f rad，按字号 %.2f 继续", fitMaxAttempts, maxSpan, size)
	}
	return size
}

// Layout 计算每个字形在弧上的位置，弧以 centerAngle 为中心。
// 输出是纯值序列，可被栅格预览与矢量输出两个适配器独立重复消费。
func Layout(text string, fontSize, radius, centerAngle float64, dir Direction, m Measurer) []GlyphPos {
	runes := []rune(text)
	if len(runes) == 0 || radius <= 0 {
		return nil
	}
	span := angularSpan(runes, fontSize, radius, m)
	spacing := arcSpacingFactor * fontSize / radius

	// Outward: 从左到右即极角递减（顺时针）；Inward 镜像
	sweep := -1.0
	if dir == Inward {
		sweep = 1.0
	}

	out := make([]GlyphPos, 0, len(runes))
	cursor := centerAngle - sweep*span/2
	for _, ch := range runes {
		w := m.GlyphWidth(ch, fontSize) / radius
		angle := cursor + sweep*w/2
		rot := angle - math.Pi/2 // 字头沿径向朝外
		if dir == Inward {
			rot = angle + math.Pi/2 // 字头指向圆心
		}
		out = append(out, GlyphPos{Char: ch, Angle: angle, Rotation: rot})
		cursor += sweep * (w + spacing)
	}
	return out
}
