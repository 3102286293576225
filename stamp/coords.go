package stamp

// ViewRect 前端显示区域外接矩形的参考点（屏幕坐标，左上角原点）
type ViewRect struct {
	Left float64 `json:"left"`
	Top  float64 `json:"top"`
}

// ScreenToPDF 把指针像素坐标映射为文档点坐标。
// 屏幕坐标原点在显示区域左上角、Y 轴向下；文档坐标原点在页面左下角、
// Y 轴向上，因此纵轴需要翻转：y = (1 - normY) * pageHeight。
func ScreenToPDF(pointerX, pointerY float64, rect ViewRect, pageWidth, pageHeight, displayWidth, displayHeight float64) (float64, float64) {
	normX := (pointerX - rect.Left) / displayWidth
	normY := (pointerY - rect.Top) / displayHeight
	return normX * pageWidth, (1 - normY) * pageHeight
}

// PDFToScreen ScreenToPDF 的精确逆变换，用于把已有放置定位回交互画面。
// 对任意一致的 (rect, displayWidth, displayHeight)，往返误差在浮点容差内。
func PDFToScreen(x, y float64, rect ViewRect, pageWidth, pageHeight, displayWidth, displayHeight float64) (float64, float64) {
	screenX := rect.Left + x/pageWidth*displayWidth
	screenY := rect.Top + (1-y/pageHeight)*displayHeight
	return screenX, screenY
}

// ClampToPage 把文档坐标收敛到页面范围内：x∈[0,W]、y∈[0,H]
func ClampToPage(x, y, pageWidth, pageHeight float64) (float64, float64) {
	if x < 0 {
		x = 0
	} else if x > pageWidth {
		x = pageWidth
	}
	if y < 0 {
		y = 0
	} else if y > pageHeight {
		y = pageHeight
	}
	return x, y
}
