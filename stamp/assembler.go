package stamp

import (
	"bytes"
	"fmt"
	"io"
	"sort"

	"github.com/jung-kurt/gofpdf"
	"github.com/pdfcpu/pdfcpu/pkg/api"

	"stamper-web/models"
)

// PageCount 返回文档页数；文档不可解码时返回 *DocumentLoadError
func PageCount(data []byte) (int, error) {
	ctx, err := api.ReadContext(bytes.NewReader(data), pdfConf())
	if err != nil {
		return 0, &DocumentLoadError{Op: "read", Cause: err}
	}
	return ctx.PageCount, nil
}

// ApplyStamps 把放置列表落到文档上，返回新的文档字节。
// 每页都经过旋转归一重建（见 NormalizePage）；盖章按目标页索引降序进行，
// 目标列表在重建前一次性确定，迭代期间不再读取页数——这是保证页面替换
// 不影响未处理索引的机制，不是优化。放置列表为空时输出结构有效、
// 页数不变的文档。
func ApplyStamps(data []byte, placements []models.StampPlacement, cfg models.StampConfig) ([]byte, error) {
	geoms, err := ReadPageGeometries(data)
	if err != nil {
		return nil, err
	}
	pageCount := len(geoms)
	if pageCount == 0 {
		return nil, &DocumentLoadError{Op: "pages", Cause: fmt.Errorf("文档不含任何页面")}
	}

	byPage := make(map[int][]models.StampPlacement)
	for _, pl := range placements {
		if pl.PageIndex < 0 || pl.PageIndex >= pageCount {
			return nil, &IndexError{Index: pl.PageIndex, Limit: pageCount - 1}
		}
		byPage[pl.PageIndex] = append(byPage[pl.PageIndex], pl)
	}
	targets := make([]int, 0, len(byPage))
	for idx := range byPage {
		targets = append(targets, idx)
	}
	sort.Sort(sort.Reverse(sort.IntSlice(targets)))

	pdf := gofpdf.NewCustom(&gofpdf.InitType{
		OrientationStr: "P",
		UnitStr:        "pt",
		Size:           gofpdf.SizeType{Wd: geoms[0].VisualWidth, Ht: geoms[0].VisualHeight},
	})
	pdf.SetMargins(0, 0, 0)
	pdf.SetAutoPageBreak(false, 0)

	imp := newPageImporter(pdf, data)
	for i, geo := range geoms {
		NormalizePage(pdf, imp, geo, i+1)
	}

	// 降序盖章：放置坐标即视觉坐标，与未旋转路径完全相同
	for _, idx := range targets {
		geo := geoms[idx]
		pdf.SetPage(idx + 1)
		canvas := NewVectorCanvas(pdf, geo.VisualHeight)
		radius := StampRadiusFor(cfg.Radius, geo.VisualWidth, geo.VisualHeight)
		for _, pl := range byPage[idx] {
			DrawStamp(canvas, pl.X, pl.Y, radius, cfg.NameText, cfg.LabelText, pl.Number)
		}
	}

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, fmt.Errorf("输出盖章文档失败: %w", err)
	}
	return buf.Bytes(), nil
}

// MergePDFs 把 B 的全部页面按原顺序追加到 A 之后。
// 放置元数据不在此处调整：调用方需把 B 的 pageIndex 偏移 A 的原始页数
// 后再持久化合并件的放置列表。
func MergePDFs(a, b []byte) ([]byte, error) {
	rsc := []io.ReadSeeker{bytes.NewReader(a), bytes.NewReader(b)}
	var buf bytes.Buffer
	if err := api.MergeRaw(rsc, &buf, false, pdfConf()); err != nil {
		return nil, &DocumentLoadError{Op: "merge", Cause: err}
	}
	return buf.Bytes(), nil
}

// SplitPDF 在 afterPageIndex 之后断开：part1 = [0, afterPageIndex]，
// part2 = (afterPageIndex, end]。拆分点越界返回 *IndexError。
// 调用方按同样规则划分放置：pageIndex ≤ afterPageIndex 的原样归 part1，
// 其余归 part2 并减去 afterPageIndex+1。
func SplitPDF(data []byte, afterPageIndex int) ([]byte, []byte, error) {
	count, err := PageCount(data)
	if err != nil {
		return nil, nil, err
	}
	if afterPageIndex < 0 || afterPageIndex >= count-1 {
		return nil, nil, &IndexError{Index: afterPageIndex, Limit: count - 2}
	}

	var part1, part2 bytes.Buffer
	if err := api.Trim(bytes.NewReader(data), &part1, []string{fmt.Sprintf("1-%d", afterPageIndex+1)}, pdfConf()); err != nil {
		return nil, nil, fmt.Errorf("拆分前半部分失败: %w", err)
	}
	if err := api.Trim(bytes.NewReader(data), &part2, []string{fmt.Sprintf("%d-%d", afterPageIndex+2, count)}, pdfConf()); err != nil {
		return nil, nil, fmt.Errorf("拆分后半部分失败: %w", err)
	}
	return part1.Bytes(), part2.Bytes(), nil
}

// Renumber 按件列表顺序整体重排印章编号：编号是 (件顺序, 起始号) 的
// 纯函数，任何重排、合并、拆分、增删之后都必须重算，而不是增量修补。
// 无放置的件被跳过。
func Renumber(pieces []*models.Piece, startNumber int) []*models.Piece {
	next := startNumber
	for _, p := range pieces {
		for i := range p.Placements {
			p.Placements[i].Number = next
			next++
		}
	}
	return pieces
}
