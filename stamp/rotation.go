package stamp

import (
	"bytes"
	"io"
	"log"

	"github.com/jung-kurt/gofpdf"
	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
	"github.com/phpdave11/gofpdi"
)

// PageGeometry 单页几何：原始尺寸、旋转标志与观看者感知的视觉尺寸。
// 旋转 90/270 时视觉宽高互换。
type PageGeometry struct {
	RawWidth     float64
	RawHeight    float64
	Rotation     int
	VisualWidth  float64
	VisualHeight float64
}

// Supported 旋转标志是否属于可精确重建的规范集合 {0,90,180,270}
func (g PageGeometry) Supported() bool {
	switch g.Rotation {
	case 0, 90, 180, 270:
		return true
	}
	return false
}

// pdfConf pdfcpu 配置：宽松校验；输出保持经典交叉引用表，
// gofpdi 不解析压缩的 xref 流
func pdfConf() *model.Configuration {
	conf := model.NewDefaultConfiguration()
	conf.ValidationMode = model.ValidationRelaxed
	conf.WriteObjectStream = false
	conf.WriteXRefStream = false
	return conf
}

// canonicalRotation 把 /Rotate 归一到 [0,360)
func canonicalRotation(r int) int {
	r %= 360
	if r < 0 {
		r += 360
	}
	return r
}

// ReadPageGeometries 读取每页的 MediaBox 与旋转标志（含页树继承属性）。
// 文档不可解码或校验失败返回 *DocumentLoadError。
func ReadPageGeometries(data []byte) ([]PageGeometry, error) {
	ctx, err := api.ReadContext(bytes.NewReader(data), pdfConf())
	if err != nil {
		return nil, &DocumentLoadError{Op: "read", Cause: err}
	}
	if err := api.ValidateContext(ctx); err != nil {
		return nil, &DocumentLoadError{Op: "validate", Cause: err}
	}
	geoms := make([]PageGeometry, 0, ctx.PageCount)
	for i := 1; i <= ctx.PageCount; i++ {
		_, _, inh, err := ctx.PageDict(i, false)
		if err != nil {
			return nil, &DocumentLoadError{Op: "page", Cause: err}
		}
		g := PageGeometry{
			RawWidth:  inh.MediaBox.Width(),
			RawHeight: inh.MediaBox.Height(),
			Rotation:  canonicalRotation(inh.Rotate),
		}
		g.VisualWidth, g.VisualHeight = g.RawWidth, g.RawHeight
		if g.Rotation == 90 || g.Rotation == 270 {
			g.VisualWidth, g.VisualHeight = g.RawHeight, g.RawWidth
		}
		geoms = append(geoms, g)
	}
	return geoms, nil
}

// pageImporter 把源文档的页面导入为可复用的 Form XObject 模板。
// 对象拷贝步骤与 gofpdf contrib/gofpdi 的集成方式一致。
type pageImporter struct {
	pdf *gofpdf.Fpdf
	imp *gofpdi.Importer
	rs  io.ReadSeeker
}

func newPageImporter(pdf *gofpdf.Fpdf, src []byte) *pageImporter {
	p := &pageImporter{pdf: pdf, imp: gofpdi.NewImporter(), rs: bytes.NewReader(src)}
	p.imp.SetSourceStream(&p.rs)
	return p
}

func (p *pageImporter) importPage(pageNum int) int {
	return p.imp.ImportPage(pageNum, "/MediaBox")
}

func (p *pageImporter) drawTemplate(tpl int, x, y, w, h float64) {
	p.pdf.ImportTemplates(p.imp.PutFormXobjectsUnordered())
	p.pdf.ImportObjects(p.imp.GetImportedObjectsUnordered())
	p.pdf.ImportObjPos(p.imp.GetImportedObjHashPos())
	name, sx, sy, tx, ty := p.imp.UseTemplate(tpl, x, y, w, h)
	p.pdf.UseImportedTemplate(name, sx, sy, tx, ty)
}

// NormalizePage 以视觉尺寸新建一页，并把导入的原始页面绘制回等价外观。
// 非零旋转的页面通过平移+旋转重建，输出页不再携带旋转标志，
// 印章因此始终以未旋转姿态落在页面上。
// 非规范旋转值无法精确重建：按未旋转绘制并告警（文档化的局限，非致命）。
func NormalizePage(pdf *gofpdf.Fpdf, imp *pageImporter, geo PageGeometry, pageNum int) {
	pdf.AddPageFormat("P", gofpdf.SizeType{Wd: geo.VisualWidth, Ht: geo.VisualHeight})
	tpl := imp.importPage(pageNum)

	w, h := geo.RawWidth, geo.RawHeight
	switch geo.Rotation {
	case 0:
		imp.drawTemplate(tpl, 0, 0, w, h)
	case 90:
		// 等价于 PDF 底边原点坐标系下 平移(0,W) + 旋转 -90°
		pdf.TransformBegin()
		pdf.TransformRotate(-90, h/2, h/2)
		imp.drawTemplate(tpl, 0, 0, w, h)
		pdf.TransformEnd()
	case 180:
		// 平移(W,H) + 旋转 -180°
		pdf.TransformBegin()
		pdf.TransformRotate(180, w/2, h/2)
		imp.drawTemplate(tpl, 0, 0, w, h)
		pdf.TransformEnd()
	case 270:
		// 平移(H,0) + 旋转 +90°
		pdf.TransformBegin()
		pdf.TransformRotate(90, w/2, w/2)
		imp.drawTemplate(tpl, 0, 0, w, h)
		pdf.TransformEnd()
	default:
		log.Printf("页面 %d 携带不支持的旋转标志 %d°，按未旋转绘制，印章方向可能不正确", pageNum, geo.Rotation)
		imp.drawTemplate(tpl, 0, 0, w, h)
	}
}
