package handlers

import (
	"bytes"
	"fmt"
	"io"
	"log"
	"net/http"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	ltpdf "github.com/ledongthuc/pdf"

	"stamper-web/middleware"
	"stamper-web/models"
	"stamper-web/stamp"
)

// PieceManager 管理所有用户的件列表。
// 列表是有序的：顺序决定编号，所有结构变化（重排/增删/拆分/合并）
// 之后都在锁内整体重编号。
type PieceManager struct {
	// sessionID -> 有序件列表
	userPieces map[string][]*models.Piece
	mu         sync.RWMutex
}

var pieceManager *PieceManager

func init() {
	pieceManager = &PieceManager{
		userPieces: make(map[string][]*models.Piece),
	}
}

// List 返回用户件列表的浅拷贝（顺序一致）
func (pm *PieceManager) List(sessionID string) []*models.Piece {
	pm.mu.RLock()
	defer pm.mu.RUnlock()

	pieces := pm.userPieces[sessionID]
	out := make([]*models.Piece, len(pieces))
	copy(out, pieces)
	return out
}

// Snapshot 返回件列表的深拷贝，供后台装配在锁外读取。
// 放置记录会被交互操作与重编号原地改写，浅拷贝会把正在变化的
// 结构体暴露给装配协程。
func (pm *PieceManager) Snapshot(sessionID string) []*models.Piece {
	pm.mu.RLock()
	defer pm.mu.RUnlock()

	pieces := pm.userPieces[sessionID]
	out := make([]*models.Piece, 0, len(pieces))
	for _, p := range pieces {
		cp := *p
		cp.Placements = append([]models.StampPlacement{}, p.Placements...)
		out = append(out, &cp)
	}
	return out
}

// Get 按 ID 查找用户的件
func (pm *PieceManager) Get(sessionID, pieceID string) (*models.Piece, bool) {
	pm.mu.RLock()
	defer pm.mu.RUnlock()

	for _, p := range pm.userPieces[sessionID] {
		if p.ID == pieceID {
			return p, true
		}
	}
	return nil, false
}

// Mutate 在锁内执行一次结构变更并整体重编号。
// fn 返回新的件列表；编号在同一临界区内重算，外部永远看不到
// 编号与顺序不一致的中间状态。
func (pm *PieceManager) Mutate(sessionID string, startNumber int, fn func(pieces []*models.Piece) ([]*models.Piece, error)) error {
	pm.mu.Lock()
	defer pm.mu.Unlock()

	updated, err := fn(pm.userPieces[sessionID])
	if err != nil {
		return err
	}
	pm.userPieces[sessionID] = stamp.Renumber(updated, startNumber)
	return nil
}

// RenumberAll 起始编号变化后对所有会话的件列表重算编号
func (pm *PieceManager) RenumberAll(startNumber int) {
	pm.mu.Lock()
	defer pm.mu.Unlock()

	for sid, pieces := range pm.userPieces {
		pm.userPieces[sid] = stamp.Renumber(pieces, startNumber)
	}
}

// probeDisplayName 用只读解析器给上传件取显示名：
// 首页文本的第一行可用时优先，否则退回文件名（去扩展名）。
func probeDisplayName(data []byte, filename string) string {
	fallback := strings.TrimSuffix(filename, filepath.Ext(filename))

	reader, err := ltpdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return fallback
	}
	if reader.NumPage() < 1 {
		return fallback
	}
	page := reader.Page(1)
	if page.V.IsNull() {
		return fallback
	}
	text, err := page.GetPlainText(nil)
	if err != nil {
		return fallback
	}
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		if len([]rune(line)) >= 4 {
			if runes := []rune(line); len(runes) > 60 {
				line = string(runes[:60])
			}
			return line
		}
	}
	return fallback
}

// UploadPieceHandler 上传一份 PDF 作为新的件，追加到列表末尾
func UploadPieceHandler(c *gin.Context) {
	sessionID := middleware.GetSessionID(c)
	if sessionID == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "无效的会话"})
		return
	}

	file, err := c.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "未找到上传文件"})
		return
	}
	if strings.ToLower(filepath.Ext(file.Filename)) != ".pdf" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "只支持 .pdf 文件"})
		return
	}

	src, err := file.Open()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "读取上传文件失败: " + err.Error()})
		return
	}
	defer src.Close()
	data, err := io.ReadAll(src)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "读取上传文件失败: " + err.Error()})
		return
	}

	pageCount, err := stamp.PageCount(data)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "文件无法解码为 PDF: " + err.Error()})
		return
	}
	if pageCount == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "文档不含任何页面"})
		return
	}

	piece := &models.Piece{
		ID:          uuid.New().String(),
		DisplayName: probeDisplayName(data, file.Filename),
		PageCount:   pageCount,
		Placements:  []models.StampPlacement{},
		CreatedAt:   time.Now(),
		Bytes:       data,
	}

	start := settingsStore.Current().StartNumber
	if err := pieceManager.Mutate(sessionID, start, func(pieces []*models.Piece) ([]*models.Piece, error) {
		return append(pieces, piece), nil
	}); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "保存件失败: " + err.Error()})
		return
	}

	log.Printf("[会话 %s] 上传件 %s：%q，%d 页", sessionID[:8], piece.ID, piece.DisplayName, pageCount)
	c.JSON(http.StatusOK, piece)
}

// ListPiecesHandler 获取当前用户的件列表
func ListPiecesHandler(c *gin.Context) {
	sessionID := middleware.GetSessionID(c)
	if sessionID == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "无效的会话"})
		return
	}

	pieces := pieceManager.List(sessionID)
	c.JSON(http.StatusOK, gin.H{
		"pieces": pieces,
		"total":  len(pieces),
	})
}

// ReorderPiecesHandler 按给定 ID 顺序重排件列表（必须是当前列表的一个排列）
func ReorderPiecesHandler(c *gin.Context) {
	sessionID := middleware.GetSessionID(c)
	if sessionID == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "无效的会话"})
		return
	}

	var req struct {
		Order []string `json:"order"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "请求格式错误: " + err.Error()})
		return
	}

	start := settingsStore.Current().StartNumber
	err := pieceManager.Mutate(sessionID, start, func(pieces []*models.Piece) ([]*models.Piece, error) {
		if len(req.Order) != len(pieces) {
			return nil, fmt.Errorf("顺序列表长度不符：期望 %d，收到 %d", len(pieces), len(req.Order))
		}
		byID := make(map[string]*models.Piece, len(pieces))
		for _, p := range pieces {
			byID[p.ID] = p
		}
		reordered := make([]*models.Piece, 0, len(pieces))
		for _, id := range req.Order {
			p, ok := byID[id]
			if !ok {
				return nil, fmt.Errorf("件不存在: %s", id)
			}
			delete(byID, id)
			reordered = append(reordered, p)
		}
		return reordered, nil
	})
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"pieces": pieceManager.List(sessionID)})
}

// DeletePieceHandler 删除一个件，其后件的编号自动前移
func DeletePieceHandler(c *gin.Context) {
	sessionID := middleware.GetSessionID(c)
	if sessionID == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "无效的会话"})
		return
	}

	pieceID := c.Param("id")
	start := settingsStore.Current().StartNumber
	err := pieceManager.Mutate(sessionID, start, func(pieces []*models.Piece) ([]*models.Piece, error) {
		for i, p := range pieces {
			if p.ID == pieceID {
				return append(pieces[:i], pieces[i+1:]...), nil
			}
		}
		return nil, fmt.Errorf("件不存在: %s", pieceID)
	})
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"pieces": pieceManager.List(sessionID)})
}

// PlaceStampHandler 交互放置：把指针像素坐标换算为首页文档坐标。
// 每件最多一枚交互放置；重复放置移动已有印章并保留其编号。
func PlaceStampHandler(c *gin.Context) {
	sessionID := middleware.GetSessionID(c)
	if sessionID == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "无效的会话"})
		return
	}

	pieceID := c.Param("id")
	var req models.PlaceStampRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "请求格式错误: " + err.Error()})
		return
	}
	if req.DisplayWidth <= 0 || req.DisplayHeight <= 0 || req.PageWidth <= 0 || req.PageHeight <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "显示尺寸与页面尺寸必须为正数"})
		return
	}

	rect := stamp.ViewRect{Left: req.ContainerLeft, Top: req.ContainerTop}
	x, y := stamp.ScreenToPDF(req.PointerX, req.PointerY, rect, req.PageWidth, req.PageHeight, req.DisplayWidth, req.DisplayHeight)
	x, y = stamp.ClampToPage(x, y, req.PageWidth, req.PageHeight)

	start := settingsStore.Current().StartNumber
	err := pieceManager.Mutate(sessionID, start, func(pieces []*models.Piece) ([]*models.Piece, error) {
		for _, p := range pieces {
			if p.ID != pieceID {
				continue
			}
			moved := false
			for i := range p.Placements {
				if p.Placements[i].PageIndex == 0 {
					p.Placements[i].X = x
					p.Placements[i].Y = y
					moved = true
					break
				}
			}
			if !moved {
				p.Placements = append(p.Placements, models.StampPlacement{PageIndex: 0, X: x, Y: y})
			}
			return pieces, nil
		}
		return nil, fmt.Errorf("件不存在: %s", pieceID)
	})
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		return
	}

	piece, _ := pieceManager.Get(sessionID, pieceID)
	c.JSON(http.StatusOK, piece)
}

// ClearStampHandler 清除一个件的全部放置
func ClearStampHandler(c *gin.Context) {
	sessionID := middleware.GetSessionID(c)
	if sessionID == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "无效的会话"})
		return
	}

	pieceID := c.Param("id")
	start := settingsStore.Current().StartNumber
	err := pieceManager.Mutate(sessionID, start, func(pieces []*models.Piece) ([]*models.Piece, error) {
		for _, p := range pieces {
			if p.ID == pieceID {
				p.Placements = []models.StampPlacement{}
				return pieces, nil
			}
		}
		return nil, fmt.Errorf("件不存在: %s", pieceID)
	})
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"pieces": pieceManager.List(sessionID)})
}

// SplitPieceHandler 在指定页后把一个件拆成两个，原位置替换。
// 放置按同一拆分点划分：前半原样保留，后半的页索引减去前半页数。
func SplitPieceHandler(c *gin.Context) {
	sessionID := middleware.GetSessionID(c)
	if sessionID == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "无效的会话"})
		return
	}

	pieceID := c.Param("id")
	var req struct {
		AfterPageIndex int `json:"afterPageIndex"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "请求格式错误: " + err.Error()})
		return
	}

	start := settingsStore.Current().StartNumber
	err := pieceManager.Mutate(sessionID, start, func(pieces []*models.Piece) ([]*models.Piece, error) {
		for i, p := range pieces {
			if p.ID != pieceID {
				continue
			}
			data1, data2, err := stamp.SplitPDF(p.Bytes, req.AfterPageIndex)
			if err != nil {
				return nil, err
			}

			headCount := req.AfterPageIndex + 1
			head := &models.Piece{
				ID:          uuid.New().String(),
				DisplayName: p.DisplayName + " (1)",
				PageCount:   headCount,
				Placements:  []models.StampPlacement{},
				CreatedAt:   time.Now(),
				Bytes:       data1,
			}
			tail := &models.Piece{
				ID:          uuid.New().String(),
				DisplayName: p.DisplayName + " (2)",
				PageCount:   p.PageCount - headCount,
				Placements:  []models.StampPlacement{},
				CreatedAt:   time.Now(),
				Bytes:       data2,
			}
			for _, pl := range p.Placements {
				if pl.PageIndex <= req.AfterPageIndex {
					head.Placements = append(head.Placements, pl)
				} else {
					pl.PageIndex -= headCount
					tail.Placements = append(tail.Placements, pl)
				}
			}

			updated := make([]*models.Piece, 0, len(pieces)+1)
			updated = append(updated, pieces[:i]...)
			updated = append(updated, head, tail)
			updated = append(updated, pieces[i+1:]...)
			log.Printf("[会话 %s] 拆分件 %s：第 %d 页后断开，%d+%d 页", sessionID[:8], pieceID, req.AfterPageIndex+1, head.PageCount, tail.PageCount)
			return updated, nil
		}
		return nil, fmt.Errorf("件不存在: %s", pieceID)
	})
	if err != nil {
		status := http.StatusBadRequest
		if strings.Contains(err.Error(), "件不存在") {
			status = http.StatusNotFound
		}
		c.JSON(status, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"pieces": pieceManager.List(sessionID)})
}

// MergePiecesHandler 把第二个件的页面追加到第一个之后，结果占据第一个件
// 的位置。第二个件的放置页索引整体偏移第一个件的页数后保留。
func MergePiecesHandler(c *gin.Context) {
	sessionID := middleware.GetSessionID(c)
	if sessionID == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "无效的会话"})
		return
	}

	var req struct {
		FirstID  string `json:"firstId"`
		SecondID string `json:"secondId"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "请求格式错误: " + err.Error()})
		return
	}
	if req.FirstID == req.SecondID {
		c.JSON(http.StatusBadRequest, gin.H{"error": "不能与自身合并"})
		return
	}

	start := settingsStore.Current().StartNumber
	err := pieceManager.Mutate(sessionID, start, func(pieces []*models.Piece) ([]*models.Piece, error) {
		var first, second *models.Piece
		firstIdx := -1
		for i, p := range pieces {
			switch p.ID {
			case req.FirstID:
				first, firstIdx = p, i
			case req.SecondID:
				second = p
			}
		}
		if first == nil || second == nil {
			return nil, fmt.Errorf("件不存在")
		}

		data, err := stamp.MergePDFs(first.Bytes, second.Bytes)
		if err != nil {
			return nil, err
		}

		merged := &models.Piece{
			ID:          uuid.New().String(),
			DisplayName: first.DisplayName + " + " + second.DisplayName,
			PageCount:   first.PageCount + second.PageCount,
			Placements:  append([]models.StampPlacement{}, first.Placements...),
			CreatedAt:   time.Now(),
			Bytes:       data,
		}
		for _, pl := range second.Placements {
			pl.PageIndex += first.PageCount
			merged.Placements = append(merged.Placements, pl)
		}

		updated := make([]*models.Piece, 0, len(pieces)-1)
		for i, p := range pieces {
			if i == firstIdx {
				updated = append(updated, merged)
				continue
			}
			if p.ID == req.SecondID {
				continue
			}
			updated = append(updated, p)
		}
		log.Printf("[会话 %s] 合并件 %s + %s → %s（%d 页）", sessionID[:8], req.FirstID, req.SecondID, merged.ID, merged.PageCount)
		return updated, nil
	})
	if err != nil {
		status := http.StatusBadRequest
		if strings.Contains(err.Error(), "件不存在") {
			status = http.StatusNotFound
		}
		c.JSON(status, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"pieces": pieceManager.List(sessionID)})
}

var (
	previewFontOnce sync.Once
	previewFontData []byte
	previewFontErr  error
)

// StampPreviewHandler 渲染当前设置下的单枚印章 PNG 预览，
// 供前端作为拖放覆盖层显示。编号与缩放可由查询参数覆盖。
func StampPreviewHandler(c *gin.Context) {
	sessionID := middleware.GetSessionID(c)
	if sessionID == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "无效的会话"})
		return
	}

	previewFontOnce.Do(func() {
		previewFontData, previewFontErr = stamp.LoadPreviewFont()
	})
	if previewFontErr != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "预览字体不可用: " + previewFontErr.Error()})
		return
	}

	cfg := settingsStore.Current()
	number := 1
	if v := c.Query("number"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n >= 1 {
			number = n
		}
	}
	scale := 4.0
	if v := c.Query("scale"); v != "" {
		if s, err := strconv.ParseFloat(v, 64); err == nil && s > 0 && s <= 16 {
			scale = s
		}
	}

	canvas, err := stamp.RenderStampPreview(previewFontData, cfg.NameText, cfg.LabelText, number, cfg.Radius, scale)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "渲染预览失败: " + err.Error()})
		return
	}

	var buf bytes.Buffer
	if err := canvas.EncodePNG(&buf); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "编码预览失败: " + err.Error()})
		return
	}
	c.Data(http.StatusOK, "image/png", buf.Bytes())
}
