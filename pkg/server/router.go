// Package server 提供 HTTP Server 功能
package server

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/KodaTao/ScheduleAgent/pkg/chassis"
	"github.com/KodaTao/ScheduleAgent/pkg/intent"
	"github.com/KodaTao/ScheduleAgent/pkg/observability"
	"github.com/KodaTao/ScheduleAgent/pkg/provider"
	"github.com/KodaTao/ScheduleAgent/pkg/types"
)

// Server HTTP 服务器
type Server struct {
	app    *chassis.App
	engine *gin.Engine
	config *ServerConfig
}

// ServerConfig 服务器配置
type ServerConfig struct {
	Host string
	Port int
	Mode string // debug, release, test
}

// NewServer 创建 HTTP 服务器
func NewServer(app *chassis.App, config *ServerConfig) *Server {
	// 设置 Gin 模式
	switch config.Mode {
	case "release":
		gin.SetMode(gin.ReleaseMode)
	case "test":
		gin.SetMode(gin.TestMode)
	default:
		gin.SetMode(gin.DebugMode)
	}

	engine := gin.New()

	// 添加中间件
	engine.Use(gin.Recovery())
	engine.Use(LoggerMiddleware())
	engine.Use(CORSMiddleware())

	server := &Server{
		app:    app,
		engine: engine,
		config: config,
	}

	// 注册路由
	server.setupRoutes()

	return server
}

// setupRoutes 设置路由
func (s *Server) setupRoutes() {
	// 健康检查
	s.engine.GET("/health", s.healthCheck)

	// API v1
	v1 := s.engine.Group("/api/v1")
	{
		// 消息入口
		v1.POST("/messages", s.handleMessage)

		// 支持的意图列表
		v1.GET("/intents", s.listIntents)

		// 日历订阅源
		v1.GET("/calendar.ics", s.calendarFeed)

		// 内联应答会话管理
		v1.DELETE("/sessions/:userId", s.deleteSession)
	}
}

// Run 启动服务器
func (s *Server) Run() error {
	addr := s.config.Host + ":" + itoa(s.config.Port)
	observability.Info("Starting HTTP server", "address", addr)
	return s.engine.Run(addr)
}

// GetEngine 获取 Gin 引擎（用于测试）
func (s *Server) GetEngine() *gin.Engine {
	return s.engine
}

// 健康检查
func (s *Server) healthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":    "healthy",
		"timestamp": time.Now().Unix(),
	})
}

// 消息入口
// 请求进入该用户的有序队列，同一用户的并发请求按到达顺序处理
func (s *Server) handleMessage(c *gin.Context) {
	var req types.MessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "Invalid request: " + err.Error(),
		})
		return
	}

	resp := s.app.GetHandler().HandleMessage(c.Request.Context(), req)

	status := http.StatusOK
	if !resp.Success && resp.Type == types.ResponseError {
		status = http.StatusUnprocessableEntity
	}
	c.JSON(status, resp)
}

// 支持的意图列表
func (s *Server) listIntents(c *gin.Context) {
	intents := intent.All()
	c.JSON(http.StatusOK, gin.H{
		"intents": intents,
		"count":   len(intents),
	})
}

// 日历订阅源
// 导出指定用户未来一段时间的事件，供外部日历客户端订阅
func (s *Server) calendarFeed(c *gin.Context) {
	userID := c.Query("userId")
	if userID == "" {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "userId is required",
		})
		return
	}

	now := time.Now()
	from := now.AddDate(0, -1, 0)
	to := now.AddDate(0, 3, 0)

	feed, err := provider.ExportICS(c.Request.Context(), s.app.GetCalendarProvider(), userID, from, to)
	if err != nil {
		observability.Error("Calendar feed export failed", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "failed to export calendar",
		})
		return
	}

	c.Header("Content-Type", "text/calendar; charset=utf-8")
	c.String(http.StatusOK, feed)
}

// 删除内联应答会话
func (s *Server) deleteSession(c *gin.Context) {
	userID := c.Param("userId")

	if s.app.GetAgent().ClearSession(userID) {
		c.JSON(http.StatusOK, gin.H{
			"message": "Session deleted",
		})
	} else {
		c.JSON(http.StatusNotFound, gin.H{
			"error": "Session not found: " + userID,
		})
	}
}

// LoggerMiddleware 日志中间件
func LoggerMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path

		c.Next()

		latency := time.Since(start)
		status := c.Writer.Status()

		observability.Info("HTTP request",
			"method", c.Request.Method,
			"path", path,
			"status", status,
			"latency_ms", latency.Milliseconds(),
			"client_ip", c.ClientIP(),
		)
	}
}

// CORSMiddleware 跨域中间件
func CORSMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("Access-Control-Allow-Origin", "*")
		c.Header("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		c.Header("Access-Control-Allow-Headers", "Origin, Content-Type, Authorization")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	}
}

// itoa 简单的整数转字符串
func itoa(n int) string {
	if n == 0 {
		return "0"
	}

	var digits []byte
	for n > 0 {
		digits = append([]byte{byte('0' + n%10)}, digits...)
		n /= 10
	}
	return string(digits)
}
