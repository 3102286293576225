package middleware

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
)

const (
	SessionCookieName = "session_id"
	// SessionHeaderName 无 Cookie 环境（如打印工位的脚本客户端）的替代通道
	SessionHeaderName = "X-Session-ID"
	SessionTimeout    = 24 * time.Hour
)

type Session struct {
	ID        string
	CreatedAt time.Time
	LastSeen  time.Time
}

type SessionManager struct {
	sessions map[string]*Session
	mu       sync.RWMutex
}

var manager *SessionManager

func init() {
	manager = &SessionManager{
		sessions: make(map[string]*Session),
	}
	// 启动清理过期会话的协程
	go manager.cleanupLoop()
}

// generateSessionID 生成随机会话 ID
func generateSessionID() string {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		h := sha256.New()
		h.Write([]byte(time.Now().String()))
		h.Write([]byte(os.Getenv("HOSTNAME")))
		h.Write([]byte(fmt.Sprintf("%d", os.Getpid())))
		return hex.EncodeToString(h.Sum(nil))
	}
	return hex.EncodeToString(b)
}

// GetOrCreateSession 获取或创建会话，过期会话视同不存在
func (sm *SessionManager) GetOrCreateSession(sessionID string) *Session {
	sm.mu.Lock()
	defer sm.mu.Unlock()

	if sessionID != "" {
		if session, exists := sm.sessions[sessionID]; exists {
			if time.Since(session.LastSeen) < SessionTimeout {
				session.LastSeen = time.Now()
				return session
			}
			delete(sm.sessions, sessionID)
		}
	}

	newSession := &Session{
		ID:        generateSessionID(),
		CreatedAt: time.Now(),
		LastSeen:  time.Now(),
	}
	sm.sessions[newSession.ID] = newSession
	return newSession
}

// cleanupLoop 定期清理过期会话
func (sm *SessionManager) cleanupLoop() {
	ticker := time.NewTicker(1 * time.Hour)
	defer ticker.Stop()

	for range ticker.C {
		sm.mu.Lock()
		now := time.Now()
		for id, session := range sm.sessions {
			if now.Sub(session.LastSeen) >= SessionTimeout {
				delete(sm.sessions, id)
			}
		}
		sm.mu.Unlock()
	}
}

// SessionMiddleware Gin 中间件：确保每个请求都有会话。
// 优先使用 Cookie，其次读请求头，均无则新建并写回 Cookie。
func SessionMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		sessionID, _ := c.Cookie(SessionCookieName)
		if sessionID == "" {
			sessionID = c.GetHeader(SessionHeaderName)
		}

		session := manager.GetOrCreateSession(sessionID)

		if sessionID != session.ID {
			isSecure := c.Request.TLS != nil || c.GetHeader("X-Forwarded-Proto") == "https"
			c.SetCookie(
				SessionCookieName,
				session.ID,
				int(SessionTimeout.Seconds()),
				"/",
				"",
				isSecure,
				true, // httpOnly
			)
		}

		c.Set("sessionID", session.ID)
		c.Next()
	}
}

// GetSessionID 从上下文获取会话 ID
func GetSessionID(c *gin.Context) string {
	sessionID, exists := c.Get("sessionID")
	if !exists {
		return ""
	}
	if id, ok := sessionID.(string); ok {
		return id
	}
	return ""
}
