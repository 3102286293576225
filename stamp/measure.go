package stamp

// Measurer 字形宽度度量。弧形排版本身与绘制后端无关，
// 宽度由具体绘制面（矢量/栅格）按所用字体提供。
type Measurer interface {
	GlyphWidth(ch rune, fontSize float64) float64
}

// HeuristicMeasurer 无字体环境下的估算度量：
// ASCII 按 0.55 em、宽字符按 1 em 计。
type HeuristicMeasurer struct{}

func (HeuristicMeasurer) GlyphWidth(ch rune, fontSize float64) float64 {
	if ch > 127 {
		return fontSize
	}
	return fontSize * 0.55
}
