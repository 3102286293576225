package handlers

import (
	"net/http"
	"path/filepath"

	"github.com/gin-gonic/gin"

	"stamper-web/middleware"
	"stamper-web/models"
	"stamper-web/settings"
)

var settingsStore = settings.NewStore(filepath.Join("data", "settings.json"))

// GetSettingsHandler 获取当前设置
func GetSettingsHandler(c *gin.Context) {
	c.JSON(http.StatusOK, settingsStore.Current())
}

// UpdateSettingsHandler 局部更新设置。设置是全局的：起始编号变化后
// 对所有会话的件列表重算编号，而不只是发起请求的会话。
func UpdateSettingsHandler(c *gin.Context) {
	sessionID := middleware.GetSessionID(c)
	if sessionID == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "无效的会话"})
		return
	}

	var patch models.SettingsPatch
	if err := c.ShouldBindJSON(&patch); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "请求格式错误: " + err.Error()})
		return
	}

	updated, err := settingsStore.Save(patch)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "保存设置失败: " + err.Error()})
		return
	}

	if patch.StartNumber != nil {
		pieceManager.RenumberAll(updated.StartNumber)
	}

	c.JSON(http.StatusOK, updated)
}

// AddPresetHandler 保存一条印章文字预设
func AddPresetHandler(c *gin.Context) {
	var req struct {
		Name      string `json:"name"`
		NameText  string `json:"nameText"`
		LabelText string `json:"labelText"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "请求格式错误: " + err.Error()})
		return
	}
	if req.Name == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "预设名称不能为空"})
		return
	}

	preset, err := settingsStore.AddPreset(req.Name, req.NameText, req.LabelText)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "保存预设失败: " + err.Error()})
		return
	}
	c.JSON(http.StatusOK, preset)
}

// DeletePresetHandler 删除一条预设
func DeletePresetHandler(c *gin.Context) {
	if err := settingsStore.DeletePreset(c.Param("id")); err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "预设已删除"})
}
