package main

import (
	"log"
	"net/http"
	"net/http/httputil"
	"net/url"
	"os"

	"github.com/gin-gonic/gin"

	"stamper-web/handlers"
	"stamper-web/middleware"
)

func main() {
	r := gin.Default()

	// 设置最大上传文件大小 (100MB)
	r.MaxMultipartMemory = 100 << 20

	// 应用会话中间件到所有路由
	r.Use(middleware.SessionMiddleware())

	// API 路由
	api := r.Group("/api")
	{
		// 件管理
		api.POST("/pieces", handlers.UploadPieceHandler)
		api.GET("/pieces", handlers.ListPiecesHandler)
		api.DELETE("/pieces/:id", handlers.DeletePieceHandler)
		api.POST("/pieces/:id/place", handlers.PlaceStampHandler)
		api.DELETE("/pieces/:id/place", handlers.ClearStampHandler)
		api.POST("/pieces/:id/split", handlers.SplitPieceHandler)
		// 重排与合并作用于整个列表，路径与 /pieces/:id 分开注册
		api.POST("/order", handlers.ReorderPiecesHandler)
		api.POST("/merge", handlers.MergePiecesHandler)

		// 印章预览
		api.GET("/stamp/preview", handlers.StampPreviewHandler)

		// 设置与预设
		api.GET("/settings", handlers.GetSettingsHandler)
		api.PUT("/settings", handlers.UpdateSettingsHandler)
		api.POST("/presets", handlers.AddPresetHandler)
		api.DELETE("/presets/:id", handlers.DeletePresetHandler)

		// 导出与打印
		api.POST("/export", handlers.ExportHandler)
		api.POST("/print", handlers.PrintHandler)
		api.GET("/jobs", handlers.ListJobsHandler)
		api.GET("/jobs/:jobId", handlers.JobStatusHandler)
		api.GET("/jobs/:jobId/files/:index", handlers.JobFileHandler)
	}

	// 开发模式：代理到前端开发服务器
	if os.Getenv("DEV_MODE") == "true" {
		log.Println("🔧 开发模式：代理前端请求到 http://localhost:3000")
		target, _ := url.Parse("http://localhost:3000")
		proxy := httputil.NewSingleHostReverseProxy(target)

		r.NoRoute(func(c *gin.Context) {
			proxy.ServeHTTP(c.Writer, c.Request)
		})
	} else {
		r.NoRoute(func(c *gin.Context) {
			c.String(http.StatusNotFound, "Not found")
		})
	}

	log.Println("🚀 盖章工作台服务器启动在 http://localhost:8080")
	log.Println("✅ 会话隔离已启用 - 每个用户的件列表和任务完全独立")
	r.Run(":8080")
}
