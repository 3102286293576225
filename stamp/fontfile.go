package stamp

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
)

// previewFontCandidates 栅格预览可用的系统字体（按操作系统）。
// truetype 解析器不支持 .ttc 字体集合，这里只列出单文件 TTF。
func previewFontCandidates() []string {
	switch runtime.GOOS {
	case "windows":
		dir := filepath.Join(os.Getenv("WINDIR"), "Fonts")
		return []string{
			filepath.Join(dir, "arialbd.ttf"),
			filepath.Join(dir, "arial.ttf"),
			filepath.Join(dir, "verdanab.ttf"),
			filepath.Join(dir, "verdana.ttf"),
		}
	case "darwin":
		return []string{
			"/Library/Fonts/Arial Bold.ttf",
			"/Library/Fonts/Arial.ttf",
			"/System/Library/Fonts/Supplemental/Arial Bold.ttf",
			"/System/Library/Fonts/Supplemental/Arial.ttf",
		}
	default:
		return []string{
			"/usr/share/fonts/truetype/dejavu/DejaVuSans-Bold.ttf",
			"/usr/share/fonts/truetype/dejavu/DejaVuSans.ttf",
			"/usr/share/fonts/truetype/liberation/LiberationSans-Bold.ttf",
			"/usr/share/fonts/truetype/liberation/LiberationSans-Regular.ttf",
			"/usr/share/fonts/TTF/DejaVuSans-Bold.ttf",
			"/usr/share/fonts/TTF/DejaVuSans.ttf",
		}
	}
}

// LoadPreviewFont 定位并读取一个可用的系统 TTF 字体
func LoadPreviewFont() ([]byte, error) {
	for _, path := range previewFontCandidates() {
		data, err := os.ReadFile(path)
		if err == nil {
			return data, nil
		}
	}
	return nil, fmt.Errorf("未找到可用的预览字体（操作系统: %s）", runtime.GOOS)
}
