package stamp

import (
	"math"
	"reflect"
	"testing"
)

// TestFitFontSize 测试收缩拟合：够短的文字保持最大字号，过长的文字收缩
func TestFitFontSize(t *testing.T) {
	m := HeuristicMeasurer{}
	radius := 20.0
	maxSpan := math.Pi

	// "ABCDE" 在估算度量下：5×0.55 + 4×0.08 = 3.07 em
	// 半径 20 时字号 10 的圆心角为 1.535 rad，在 π 以内
	size := FitFontSize("ABCDE", 10, radius, maxSpan, m)
	if size != 10 {
		t.Errorf("短文字不应收缩: 得到 %.4f，期望 10", size)
	}
	t.Logf("✓ 短文字保持最大字号 %.2f", size)

	// 最大字号 40 超出限制，应收缩若干次后落在限制内
	size = FitFontSize("ABCDE", 40, radius, maxSpan, m)
	if size >= 40 {
		t.Errorf("过长文字未收缩: %.4f", size)
	}
	if span := angularSpan([]rune("ABCDE"), size, radius, m); span > maxSpan {
		t.Errorf("收缩后圆心角仍超限: %.4f > %.4f", span, maxSpan)
	}
	t.Logf("✓ 过长文字收缩到 %.4f", size)
}

// TestFitFontSizeMonotonic 测试返回值不超过最大字号且随收缩单调
func TestFitFontSizeMonotonic(t *testing.T) {
	m := HeuristicMeasurer{}
	for _, max := range []float64{5, 10, 20, 40, 80} {
		size := FitFontSize("CERTIFIED COPY", max, 15, maxTextSpan, m)
		if size > max {
			t.Errorf("返回字号 %.4f 超过最大值 %.4f", size, max)
		}
	}
	t.Log("✓ 所有返回字号均不超过各自的最大值")
}

// TestFitFontSizeLengthMonotonic 测试文字越长返回字号不增：
// 固定半径与最大圆心角下，逐字加长的文字不应得到更大的字号
func TestFitFontSizeLengthMonotonic(t *testing.T) {
	m := HeuristicMeasurer{}
	radius := 20.0

	prev := math.Inf(1)
	text := ""
	for i := 1; i <= 30; i++ {
		text += "A"
		size := FitFontSize(text, 12, radius, maxTextSpan, m)
		if size > prev+1e-9 {
			t.Errorf("长度 %d 的字号 %.6f 大于长度 %d 的 %.6f", i, size, i-1, prev)
		}
		prev = size
	}
	t.Logf("✓ 1..30 个字符的字号单调不增，最终 %.4f", prev)
}

// TestFitFontSizeExhausted 测试尝试耗尽后返回最小字号而非报错
func TestFitFontSizeExhausted(t *testing.T) {
	m := HeuristicMeasurer{}
	// 极小半径下任何字号都放不下
	size := FitFontSize("AN EXTREMELY LONG RING OF TEXT THAT CANNOT FIT", 24, 0.5, math.Pi/4, m)

	want := 24.0
	for i := 1; i < fitMaxAttempts; i++ {
		want *= fitShrinkFactor
	}
	if math.Abs(size-want) > 1e-9 {
		t.Errorf("耗尽后应返回最后一次尝试的字号 %.6f，得到 %.6f", want, size)
	}
	t.Logf("✓ 尝试耗尽后按最小字号 %.4f 继续", size)
}

// TestLayoutSymmetry 测试弧形排布以中心角对称
func TestLayoutSymmetry(t *testing.T) {
	m := HeuristicMeasurer{}
	center := math.Pi / 2

	// 等宽字形下，首尾字形的极角应关于中心角对称
	glyphs := Layout("AAAAA", 10, 30, center, Outward, m)
	if len(glyphs) != 5 {
		t.Fatalf("字形数量错误: %d", len(glyphs))
	}
	first, last := glyphs[0].Angle, glyphs[len(glyphs)-1].Angle
	if math.Abs((first+last)/2-center) > 1e-9 {
		t.Errorf("排布不对称: 首 %.4f 尾 %.4f 中点 %.4f，期望 %.4f",
			first, last, (first+last)/2, center)
	}
	// 中间字形正好落在中心角上
	if math.Abs(glyphs[2].Angle-center) > 1e-9 {
		t.Errorf("中间字形偏离中心角: %.4f", glyphs[2].Angle)
	}
	t.Logf("✓ 五个等宽字形关于中心角 %.4f 对称", center)
}

// TestLayoutDirections 测试上下弧的扫描方向与旋转符号
func TestLayoutDirections(t *testing.T) {
	m := HeuristicMeasurer{}

	// 上弧（Outward）：从左到右极角递减，字头朝外（rot = angle − π/2）
	top := Layout("ABC", 10, 30, math.Pi/2, Outward, m)
	for i := 1; i < len(top); i++ {
		if top[i].Angle >= top[i-1].Angle {
			t.Errorf("上弧极角应递减: glyph[%d]=%.4f ≥ glyph[%d]=%.4f", i, top[i].Angle, i-1, top[i-1].Angle)
		}
	}
	for _, g := range top {
		if math.Abs(g.Rotation-(g.Angle-math.Pi/2)) > 1e-9 {
			t.Errorf("上弧旋转应为极角 − π/2: angle=%.4f rot=%.4f", g.Angle, g.Rotation)
		}
	}

	// 下弧（Inward）：从左到右极角递增，字头朝圆心（rot = angle + π/2）
	bottom := Layout("ABC", 10, 30, -math.Pi/2, Inward, m)
	for i := 1; i < len(bottom); i++ {
		if bottom[i].Angle <= bottom[i-1].Angle {
			t.Errorf("下弧极角应递增: glyph[%d]=%.4f ≤ glyph[%d]=%.4f", i, bottom[i].Angle, i-1, bottom[i-1].Angle)
		}
	}
	for _, g := range bottom {
		if math.Abs(g.Rotation-(g.Angle+math.Pi/2)) > 1e-9 {
			t.Errorf("下弧旋转应为极角 + π/2: angle=%.4f rot=%.4f", g.Angle, g.Rotation)
		}
	}
	t.Log("✓ 上下弧扫描方向与旋转符号均正确")
}

// TestLayoutRepeatable 测试排布可重复消费：两次计算结果完全一致
func TestLayoutRepeatable(t *testing.T) {
	m := HeuristicMeasurer{}
	a := Layout("NOTARIZED", 12, 25, math.Pi/2, Outward, m)
	b := Layout("NOTARIZED", 12, 25, math.Pi/2, Outward, m)
	if !reflect.DeepEqual(a, b) {
		t.Error("两次排布结果不一致")
	}
	t.Logf("✓ %d 个字形的排布结果可精确重复", len(a))
}

// TestLayoutEmpty 测试空文字与非法半径
func TestLayoutEmpty(t *testing.T) {
	m := HeuristicMeasurer{}
	if got := Layout("", 10, 30, 0, Outward, m); got != nil {
		t.Errorf("空文字应返回 nil，得到 %d 个字形", len(got))
	}
	if got := Layout("A", 10, 0, 0, Outward, m); got != nil {
		t.Errorf("零半径应返回 nil，得到 %d 个字形", len(got))
	}
	t.Log("✓ 边界输入返回空排布")
}
