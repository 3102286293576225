package stamp

import (
	"bytes"
	"errors"
	"fmt"
	"math"
	"testing"

	"github.com/jung-kurt/gofpdf"
	"github.com/pdfcpu/pdfcpu/pkg/api"

	"stamper-web/models"
)

// buildTestPDF 用矢量后端生成指定页数的测试文档
func buildTestPDF(t *testing.T, pages int, w, h float64) []byte {
	t.Helper()
	pdf := gofpdf.NewCustom(&gofpdf.InitType{
		OrientationStr: "P",
		UnitStr:        "pt",
		Size:           gofpdf.SizeType{Wd: w, Ht: h},
	})
	pdf.SetMargins(0, 0, 0)
	pdf.SetAutoPageBreak(false, 0)
	pdf.SetFont("Helvetica", "", 12)
	for i := 0; i < pages; i++ {
		pdf.AddPage()
		pdf.Text(72, 72, fmt.Sprintf("page %d", i+1))
	}
	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		t.Fatalf("生成测试文档失败: %v", err)
	}
	return buf.Bytes()
}

// rotateTestPDF 给全部页面写入旋转标志
func rotateTestPDF(t *testing.T, data []byte, deg int) []byte {
	t.Helper()
	var buf bytes.Buffer
	if err := api.Rotate(bytes.NewReader(data), &buf, deg, nil, pdfConf()); err != nil {
		t.Fatalf("写入旋转标志失败: %v", err)
	}
	return buf.Bytes()
}

func testConfig() models.StampConfig {
	return models.StampConfig{NameText: "ACME CORP", LabelText: "CERTIFIED", Radius: 28.35}
}

// TestPageCount 测试页数读取
func TestPageCount(t *testing.T) {
	data := buildTestPDF(t, 3, 595.28, 841.89)

	count, err := PageCount(data)
	if err != nil {
		t.Fatalf("读取页数失败: %v", err)
	}
	if count != 3 {
		t.Errorf("页数错误: %d，期望 3", count)
	}
	t.Logf("✓ 页数: %d", count)
}

// TestPageCountInvalid 测试不可解码输入返回 DocumentLoadError
func TestPageCountInvalid(t *testing.T) {
	_, err := PageCount([]byte("这不是一个 PDF 文件"))
	if err == nil {
		t.Fatal("损坏输入应返回错误")
	}
	var loadErr *DocumentLoadError
	if !errors.As(err, &loadErr) {
		t.Fatalf("错误类型不符: %T", err)
	}
	t.Logf("✓ 损坏输入返回 DocumentLoadError: %v", loadErr)
}

// TestReadPageGeometries 测试页面几何读取与旋转标志的视觉尺寸换算
func TestReadPageGeometries(t *testing.T) {
	data := buildTestPDF(t, 2, 595.28, 841.89)

	geoms, err := ReadPageGeometries(data)
	if err != nil {
		t.Fatalf("读取几何失败: %v", err)
	}
	if len(geoms) != 2 {
		t.Fatalf("几何数量错误: %d", len(geoms))
	}
	for i, g := range geoms {
		if g.Rotation != 0 {
			t.Errorf("第 %d 页旋转标志应为 0: %d", i+1, g.Rotation)
		}
		if math.Abs(g.VisualWidth-595.28) > 0.5 || math.Abs(g.VisualHeight-841.89) > 0.5 {
			t.Errorf("第 %d 页视觉尺寸错误: %.2f × %.2f", i+1, g.VisualWidth, g.VisualHeight)
		}
	}
	t.Log("✓ 未旋转页面几何正确")

	// 旋转 90° 后视觉宽高互换
	rotated := rotateTestPDF(t, data, 90)
	geoms, err = ReadPageGeometries(rotated)
	if err != nil {
		t.Fatalf("读取旋转文档几何失败: %v", err)
	}
	g := geoms[0]
	if g.Rotation != 90 {
		t.Errorf("旋转标志错误: %d", g.Rotation)
	}
	if math.Abs(g.VisualWidth-841.89) > 0.5 || math.Abs(g.VisualHeight-595.28) > 0.5 {
		t.Errorf("旋转页视觉尺寸未互换: %.2f × %.2f", g.VisualWidth, g.VisualHeight)
	}
	if !g.Supported() {
		t.Error("90° 应属于可重建的规范旋转")
	}
	t.Logf("✓ 旋转 90° 页面: 视觉 %.2f × %.2f", g.VisualWidth, g.VisualHeight)
}

// TestMergePDFs 测试合并的页数守恒
func TestMergePDFs(t *testing.T) {
	a := buildTestPDF(t, 3, 595.28, 841.89)
	b := buildTestPDF(t, 2, 595.28, 841.89)

	merged, err := MergePDFs(a, b)
	if err != nil {
		t.Fatalf("合并失败: %v", err)
	}
	count, err := PageCount(merged)
	if err != nil {
		t.Fatalf("读取合并件页数失败: %v", err)
	}
	if count != 5 {
		t.Errorf("合并页数错误: %d，期望 5", count)
	}
	t.Logf("✓ 3 页 + 2 页 = %d 页", count)
}

// TestSplitPDF 测试拆分与合并互逆
func TestSplitPDF(t *testing.T) {
	data := buildTestPDF(t, 5, 595.28, 841.89)

	part1, part2, err := SplitPDF(data, 1)
	if err != nil {
		t.Fatalf("拆分失败: %v", err)
	}

	c1, err := PageCount(part1)
	if err != nil {
		t.Fatalf("读取前半页数失败: %v", err)
	}
	c2, err := PageCount(part2)
	if err != nil {
		t.Fatalf("读取后半页数失败: %v", err)
	}
	if c1 != 2 || c2 != 3 {
		t.Errorf("拆分页数错误: %d + %d，期望 2 + 3", c1, c2)
	}
	t.Logf("✓ 第 2 页后拆分: %d + %d 页", c1, c2)

	// 立即合并应恢复原页数
	rejoined, err := MergePDFs(part1, part2)
	if err != nil {
		t.Fatalf("回合并失败: %v", err)
	}
	count, err := PageCount(rejoined)
	if err != nil {
		t.Fatalf("读取回合并页数失败: %v", err)
	}
	if count != 5 {
		t.Errorf("回合并页数错误: %d，期望 5", count)
	}
	t.Log("✓ 拆分后合并恢复原页数")
}

// TestSplitPDFOutOfRange 测试非法拆分点返回 IndexError
func TestSplitPDFOutOfRange(t *testing.T) {
	data := buildTestPDF(t, 3, 595.28, 841.89)

	for _, after := range []int{-1, 2, 10} {
		_, _, err := SplitPDF(data, after)
		if err == nil {
			t.Errorf("拆分点 %d 应报错", after)
			continue
		}
		var idxErr *IndexError
		if !errors.As(err, &idxErr) {
			t.Errorf("拆分点 %d 错误类型不符: %T", after, err)
			continue
		}
		if idxErr.Limit != 1 {
			t.Errorf("有效范围上限错误: %d，期望 1", idxErr.Limit)
		}
	}
	t.Log("✓ 非法拆分点全部返回 IndexError")
}

// TestApplyStampsEmpty 测试空放置列表输出结构有效、页数不变的文档
func TestApplyStampsEmpty(t *testing.T) {
	data := buildTestPDF(t, 3, 595.28, 841.89)

	out, err := ApplyStamps(data, nil, testConfig())
	if err != nil {
		t.Fatalf("空放置装配失败: %v", err)
	}
	count, err := PageCount(out)
	if err != nil {
		t.Fatalf("输出不可解码: %v", err)
	}
	if count != 3 {
		t.Errorf("页数变化: %d，期望 3", count)
	}
	t.Logf("✓ 空放置输出 %d 页有效文档", count)
}

// TestApplyStamps 测试多页落章后页数守恒且输出可解码
func TestApplyStamps(t *testing.T) {
	data := buildTestPDF(t, 3, 595.28, 841.89)

	placements := []models.StampPlacement{
		{PageIndex: 0, X: 300, Y: 420, Number: 1},
		{PageIndex: 2, X: 150, Y: 200, Number: 2},
		{PageIndex: 2, X: 450, Y: 600, Number: 3},
	}
	out, err := ApplyStamps(data, placements, testConfig())
	if err != nil {
		t.Fatalf("装配失败: %v", err)
	}

	geoms, err := ReadPageGeometries(out)
	if err != nil {
		t.Fatalf("输出不可解码: %v", err)
	}
	if len(geoms) != 3 {
		t.Errorf("页数变化: %d，期望 3", len(geoms))
	}
	for i, g := range geoms {
		if g.Rotation != 0 {
			t.Errorf("输出第 %d 页不应携带旋转标志: %d", i+1, g.Rotation)
		}
	}
	t.Logf("✓ 三枚印章落在 3 页文档上，输出 %d 页", len(geoms))
}

// TestApplyStampsRotatedPages 测试旋转页面的归一重建
func TestApplyStampsRotatedPages(t *testing.T) {
	base := buildTestPDF(t, 2, 595.28, 841.89)

	cases := []struct {
		deg          int
		wantW, wantH float64
	}{
		{90, 841.89, 595.28},
		{180, 595.28, 841.89},
		{270, 841.89, 595.28},
	}

	for _, tc := range cases {
		rotated := rotateTestPDF(t, base, tc.deg)
		placements := []models.StampPlacement{{PageIndex: 0, X: 100, Y: 100, Number: 1}}

		out, err := ApplyStamps(rotated, placements, testConfig())
		if err != nil {
			t.Fatalf("旋转 %d° 装配失败: %v", tc.deg, err)
		}
		geoms, err := ReadPageGeometries(out)
		if err != nil {
			t.Fatalf("旋转 %d° 输出不可解码: %v", tc.deg, err)
		}
		for i, g := range geoms {
			if g.Rotation != 0 {
				t.Errorf("旋转 %d°: 输出第 %d 页仍携带旋转标志 %d", tc.deg, i+1, g.Rotation)
			}
			if math.Abs(g.RawWidth-tc.wantW) > 0.5 || math.Abs(g.RawHeight-tc.wantH) > 0.5 {
				t.Errorf("旋转 %d°: 输出第 %d 页尺寸 %.2f × %.2f，期望 %.2f × %.2f",
					tc.deg, i+1, g.RawWidth, g.RawHeight, tc.wantW, tc.wantH)
			}
		}
		t.Logf("✓ 旋转 %d° 的页面重建为 %.2f × %.2f、无旋转标志", tc.deg, tc.wantW, tc.wantH)
	}
}

// TestApplyStampsOutOfRange 测试放置页码越界返回 IndexError
func TestApplyStampsOutOfRange(t *testing.T) {
	data := buildTestPDF(t, 2, 595.28, 841.89)

	placements := []models.StampPlacement{{PageIndex: 5, X: 100, Y: 100, Number: 1}}
	_, err := ApplyStamps(data, placements, testConfig())
	if err == nil {
		t.Fatal("越界放置应报错")
	}
	var idxErr *IndexError
	if !errors.As(err, &idxErr) {
		t.Fatalf("错误类型不符: %T", err)
	}
	if idxErr.Index != 5 || idxErr.Limit != 1 {
		t.Errorf("越界信息错误: index=%d limit=%d", idxErr.Index, idxErr.Limit)
	}
	t.Logf("✓ 越界放置返回 IndexError: %v", idxErr)
}

// TestApplyStampsInvalidInput 测试损坏输入不产生部分输出
func TestApplyStampsInvalidInput(t *testing.T) {
	_, err := ApplyStamps([]byte("垃圾数据"), nil, testConfig())
	if err == nil {
		t.Fatal("损坏输入应报错")
	}
	var loadErr *DocumentLoadError
	if !errors.As(err, &loadErr) {
		t.Fatalf("错误类型不符: %T", err)
	}
	t.Logf("✓ 损坏输入返回 DocumentLoadError: %v", loadErr)
}
