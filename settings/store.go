package settings

import (
	"encoding/json"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sync"

	"github.com/google/uuid"

	"stamper-web/models"
)

// DefaultSettings 默认设置：半径以 A4 短边为基准，约 1cm
func DefaultSettings() models.Settings {
	return models.Settings{
		NameText:    "",
		LabelText:   "",
		StartNumber: 1,
		Radius:      28.35,
		Presets:     []models.StampPreset{},
	}
}

// Store 设置持久化：启动时加载一次，核心操作按参数显式取用，
// 支持局部保存。不是核心直接读取的环境状态。
type Store struct {
	path string
	mu   sync.RWMutex
	data models.Settings
}

// NewStore 创建设置存储并加载已有文件（缺失时使用默认值）
func NewStore(path string) *Store {
	s := &Store{path: path, data: DefaultSettings()}
	s.load()
	return s
}

func (s *Store) load() {
	raw, err := os.ReadFile(s.path)
	if err != nil {
		if !os.IsNotExist(err) {
			log.Printf("读取设置文件失败，使用默认设置: %v", err)
		}
		return
	}
	var loaded models.Settings
	if err := json.Unmarshal(raw, &loaded); err != nil {
		log.Printf("解析设置文件失败，使用默认设置: %v", err)
		return
	}
	if loaded.StartNumber < 1 {
		loaded.StartNumber = 1
	}
	if loaded.Radius <= 0 {
		loaded.Radius = DefaultSettings().Radius
	}
	if loaded.Presets == nil {
		loaded.Presets = []models.StampPreset{}
	}
	s.data = loaded
}

func (s *Store) persist() error {
	if err := os.MkdirAll(filepath.Dir(s.path), 0755); err != nil {
		return fmt.Errorf("创建设置目录失败: %w", err)
	}
	raw, err := json.MarshalIndent(s.data, "", "  ")
	if err != nil {
		return fmt.Errorf("序列化设置失败: %w", err)
	}
	if err := os.WriteFile(s.path, raw, 0644); err != nil {
		return fmt.Errorf("写入设置文件失败: %w", err)
	}
	return nil
}

// Current 返回当前设置的副本
func (s *Store) Current() models.Settings {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := s.data
	out.Presets = append([]models.StampPreset{}, s.data.Presets...)
	return out
}

// Save 应用局部更新并写盘，nil 字段保持不变
func (s *Store) Save(patch models.SettingsPatch) (models.Settings, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if patch.NameText != nil {
		s.data.NameText = *patch.NameText
	}
	if patch.LabelText != nil {
		s.data.LabelText = *patch.LabelText
	}
	if patch.StartNumber != nil && *patch.StartNumber >= 1 {
		s.data.StartNumber = *patch.StartNumber
	}
	if patch.Radius != nil && *patch.Radius > 0 {
		s.data.Radius = *patch.Radius
	}
	if err := s.persist(); err != nil {
		return models.Settings{}, err
	}
	out := s.data
	out.Presets = append([]models.StampPreset{}, s.data.Presets...)
	return out, nil
}

// AddPreset 保存一条印章文字预设
func (s *Store) AddPreset(name, nameText, labelText string) (models.StampPreset, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	preset := models.StampPreset{
		ID:        uuid.New().String(),
		Name:      name,
		NameText:  nameText,
		LabelText: labelText,
	}
	s.data.Presets = append(s.data.Presets, preset)
	if err := s.persist(); err != nil {
		return models.StampPreset{}, err
	}
	return preset, nil
}

// DeletePreset 删除指定预设
func (s *Store) DeletePreset(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i, p := range s.data.Presets {
		if p.ID == id {
			s.data.Presets = append(s.data.Presets[:i], s.data.Presets[i+1:]...)
			return s.persist()
		}
	}
	return fmt.Errorf("预设不存在: %s", id)
}
