package handlers

import (
	"fmt"
	"log"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"stamper-web/middleware"
	"stamper-web/models"
	"stamper-web/stamp"
)

// JobManager 管理所有用户的导出/打印任务
type JobManager struct {
	// sessionID -> jobID -> job
	userJobs map[string]map[string]*models.ExportJob
	mu       sync.RWMutex
}

var jobManager *JobManager

func init() {
	jobManager = &JobManager{
		userJobs: make(map[string]map[string]*models.ExportJob),
	}
}

// AddJob 为用户添加任务
func (jm *JobManager) AddJob(sessionID string, job *models.ExportJob) {
	jm.mu.Lock()
	defer jm.mu.Unlock()

	if jm.userJobs[sessionID] == nil {
		jm.userJobs[sessionID] = make(map[string]*models.ExportJob)
	}
	jm.userJobs[sessionID][job.ID] = job
}

// GetJob 获取用户的特定任务
func (jm *JobManager) GetJob(sessionID, jobID string) (*models.ExportJob, bool) {
	jm.mu.RLock()
	defer jm.mu.RUnlock()

	if jobs, exists := jm.userJobs[sessionID]; exists {
		job, found := jobs[jobID]
		return job, found
	}
	return nil, false
}

// UpdateJob 更新任务（进度、状态、产物路径）
func (jm *JobManager) UpdateJob(sessionID, jobID string, updateFn func(*models.ExportJob)) {
	jm.mu.Lock()
	defer jm.mu.Unlock()

	if jobs, exists := jm.userJobs[sessionID]; exists {
		if job, found := jobs[jobID]; found {
			updateFn(job)
		}
	}
}

// GetUserJobs 获取用户的所有任务
func (jm *JobManager) GetUserJobs(sessionID string) []*models.ExportJob {
	jm.mu.RLock()
	defer jm.mu.RUnlock()

	jobs, exists := jm.userJobs[sessionID]
	if !exists {
		return []*models.ExportJob{}
	}
	out := make([]*models.ExportJob, 0, len(jobs))
	for _, job := range jobs {
		out = append(out, job)
	}
	return out
}

// safeFileName 把显示名收敛为可作文件名的形式
func safeFileName(name string) string {
	mapped := strings.Map(func(r rune) rune {
		switch r {
		case '/', '\\', ':', '*', '?', '"', '<', '>', '|':
			return '_'
		}
		return r
	}, name)
	mapped = strings.TrimSpace(mapped)
	if mapped == "" {
		return "piece"
	}
	return mapped
}

// startJob 创建任务并启动后台装配。导出与打印共用同一条装配管线，
// 只是产物目录不同：打印产物落到后台打印程序监视的排队目录。
func startJob(c *gin.Context, kind string) {
	sessionID := middleware.GetSessionID(c)
	if sessionID == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "无效的会话"})
		return
	}

	// 深拷贝快照：装配协程在锁外运行，不能与交互放置共享放置结构体
	pieces := pieceManager.Snapshot(sessionID)
	if len(pieces) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "件列表为空"})
		return
	}

	jobID := uuid.New().String()
	job := &models.ExportJob{
		ID:        jobID,
		Kind:      kind,
		Status:    "pending",
		Progress:  0,
		CreatedAt: time.Now(),
	}
	jobManager.AddJob(sessionID, job)

	var outDir string
	if kind == "print" {
		outDir = os.Getenv("PRINT_SPOOL_DIR")
		if outDir == "" {
			outDir = filepath.Join("data", "spool")
		}
		outDir = filepath.Join(outDir, jobID)
	} else {
		outDir = filepath.Join("data", "users", sessionID, "outputs", jobID)
	}

	cfg := settingsStore.Current()
	go processAssembly(sessionID, jobID, outDir, pieces, cfg)

	c.JSON(http.StatusOK, gin.H{
		"jobId":   jobID,
		"message": "任务已创建",
	})
}

// processAssembly 后台装配：逐件重建页面并落章，每件一个独立产物。
// 打印场景依赖这一独立性：任何一件可以单独重印而不影响其他件。
func processAssembly(sessionID, jobID, outDir string, pieces []*models.Piece, cfg models.Settings) {
	jobManager.UpdateJob(sessionID, jobID, func(j *models.ExportJob) {
		j.Status = "processing"
	})
	log.Printf("[会话 %s][任务 %s] 开始装配 %d 件", sessionID[:8], jobID, len(pieces))

	defer func() {
		if r := recover(); r != nil {
			jobManager.UpdateJob(sessionID, jobID, func(j *models.ExportJob) {
				j.Status = "failed"
				j.Error = fmt.Sprintf("装配过程出错: %v", r)
			})
			log.Printf("[会话 %s][任务 %s] 装配失败（panic）: %v", sessionID[:8], jobID, r)
		}
	}()

	if err := os.MkdirAll(outDir, 0755); err != nil {
		jobManager.UpdateJob(sessionID, jobID, func(j *models.ExportJob) {
			j.Status = "failed"
			j.Error = "创建输出目录失败: " + err.Error()
		})
		return
	}

	stampCfg := models.StampConfig{
		NameText:  cfg.NameText,
		LabelText: cfg.LabelText,
		Radius:    cfg.Radius,
	}

	paths := make([]string, 0, len(pieces))
	for i, piece := range pieces {
		out, err := stamp.ApplyStamps(piece.Bytes, piece.Placements, stampCfg)
		if err != nil {
			jobManager.UpdateJob(sessionID, jobID, func(j *models.ExportJob) {
				j.Status = "failed"
				j.Error = fmt.Sprintf("装配件 %q 失败: %v", piece.DisplayName, err)
			})
			log.Printf("[会话 %s][任务 %s] 装配件 %s 失败: %v", sessionID[:8], jobID, piece.ID, err)
			return
		}

		path := filepath.Join(outDir, fmt.Sprintf("%03d_%s.pdf", i+1, safeFileName(piece.DisplayName)))
		if err := os.WriteFile(path, out, 0644); err != nil {
			jobManager.UpdateJob(sessionID, jobID, func(j *models.ExportJob) {
				j.Status = "failed"
				j.Error = "写入产物失败: " + err.Error()
			})
			return
		}
		paths = append(paths, path)

		progress := float64(i+1) / float64(len(pieces))
		jobManager.UpdateJob(sessionID, jobID, func(j *models.ExportJob) {
			j.Progress = progress
		})
	}

	jobManager.UpdateJob(sessionID, jobID, func(j *models.ExportJob) {
		j.Status = "completed"
		j.Progress = 1.0
		j.CompletedAt = time.Now()
		j.OutputPaths = paths
	})
	log.Printf("[会话 %s][任务 %s] 装配完成，产物目录: %s", sessionID[:8], jobID, outDir)
}

// ExportHandler 导出当前件列表为盖章后的 PDF 文件
func ExportHandler(c *gin.Context) {
	startJob(c, "export")
}

// PrintHandler 把当前件列表装配进打印排队目录
func PrintHandler(c *gin.Context) {
	startJob(c, "print")
}

// JobStatusHandler 获取任务状态
func JobStatusHandler(c *gin.Context) {
	sessionID := middleware.GetSessionID(c)
	if sessionID == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "无效的会话"})
		return
	}

	job, exists := jobManager.GetJob(sessionID, c.Param("jobId"))
	if !exists {
		c.JSON(http.StatusNotFound, gin.H{"error": "任务不存在或无权访问"})
		return
	}
	c.JSON(http.StatusOK, job)
}

// ListJobsHandler 获取当前用户的所有任务
func ListJobsHandler(c *gin.Context) {
	sessionID := middleware.GetSessionID(c)
	if sessionID == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "无效的会话"})
		return
	}

	jobs := jobManager.GetUserJobs(sessionID)
	c.JSON(http.StatusOK, gin.H{
		"jobs":  jobs,
		"total": len(jobs),
	})
}

// JobFileHandler 下载任务的第 index 个产物文件
func JobFileHandler(c *gin.Context) {
	sessionID := middleware.GetSessionID(c)
	if sessionID == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "无效的会话"})
		return
	}

	job, exists := jobManager.GetJob(sessionID, c.Param("jobId"))
	if !exists {
		c.JSON(http.StatusNotFound, gin.H{"error": "任务不存在或无权访问"})
		return
	}
	if job.Status != "completed" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "任务未完成"})
		return
	}

	index, err := strconv.Atoi(c.Param("index"))
	if err != nil || index < 0 || index >= len(job.OutputPaths) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "产物索引无效"})
		return
	}

	path := job.OutputPaths[index]
	c.FileAttachment(path, filepath.Base(path))
}
