package models

import "time"

// StampPlacement 印章在文档坐标系中的一次放置。
// 坐标原点在页面左下角，单位为 pt（1/72 英寸）。
// 编号不是稳定标识：件列表或放置集合每次变化后都由装配器整体重算。
type StampPlacement struct {
	PageIndex int     `json:"pageIndex"`
	X         float64 `json:"x"`
	Y         float64 `json:"y"`
	Number    int     `json:"number"`
}

// StampConfig 印章外观配置。
// Radius 以 A4 纵向宽度（595.28pt）为基准标定，落章时按页面视觉短边重新换算。
type StampConfig struct {
	NameText  string  `json:"nameText"`
	LabelText string  `json:"labelText"`
	Radius    float64 `json:"radius"`
}

// Piece 逻辑文档单元：独立参与重排、合并、拆分与编号。
// 交互放置只允许落在首页（PageIndex 0），且每件最多一枚；
// 合并产生的件可能携带多条放置记录（B 件的 pageIndex 已偏移）。
type Piece struct {
	ID          string           `json:"id"`
	DisplayName string           `json:"displayName"`
	PageCount   int              `json:"pageCount"`
	Placements  []StampPlacement `json:"placements"`
	CreatedAt   time.Time        `json:"createdAt"`
	Bytes       []byte           `json:"-"`
}

// Settings 全局设置：启动时加载一次，按参数显式传入各操作
type Settings struct {
	NameText    string        `json:"nameText"`
	LabelText   string        `json:"labelText"`
	StartNumber int           `json:"startNumber"`
	Radius      float64       `json:"radius"`
	Presets     []StampPreset `json:"presets"`
}

// StampPreset 已保存的印章文字预设
type StampPreset struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	NameText  string `json:"nameText"`
	LabelText string `json:"labelText"`
}

// SettingsPatch 设置的局部更新，nil 字段保持不变
type SettingsPatch struct {
	NameText    *string  `json:"nameText,omitempty"`
	LabelText   *string  `json:"labelText,omitempty"`
	StartNumber *int     `json:"startNumber,omitempty"`
	Radius      *float64 `json:"radius,omitempty"`
}

// PlaceStampRequest 前端点击落章请求：指针像素坐标 + 显示区域 + 页面点尺寸
type PlaceStampRequest struct {
	PointerX      float64 `json:"pointerX"`
	PointerY      float64 `json:"pointerY"`
	ContainerLeft float64 `json:"containerLeft"`
	ContainerTop  float64 `json:"containerTop"`
	DisplayWidth  float64 `json:"displayWidth"`
	DisplayHeight float64 `json:"displayHeight"`
	PageWidth     float64 `json:"pageWidth"`
	PageHeight    float64 `json:"pageHeight"`
}

// ExportJob 导出/打印任务
type ExportJob struct {
	ID          string    `json:"id"`
	Kind        string    `json:"kind"`   // export, print
	Status      string    `json:"status"` // pending, processing, completed, failed
	Progress    float64   `json:"progress"`
	Error       string    `json:"error,omitempty"`
	CreatedAt   time.Time `json:"createdAt"`
	CompletedAt time.Time `json:"completedAt,omitempty"`
	OutputPaths []string  `json:"outputPaths,omitempty"`
}
