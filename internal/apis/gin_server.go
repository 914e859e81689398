package apis

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/bujia-iot/card-sensor-client/internal/app"
	"github.com/bujia-iot/card-sensor-client/internal/infrastructure/logger"
	apperrors "github.com/bujia-iot/card-sensor-client/pkg/errors"
	"github.com/gin-gonic/gin"
)

const (
	// 快照请求等待事件循环的上限
	snapshotTimeout = 2 * time.Second
	// 健康检查探测事件循环的上限
	healthTimeout = 500 * time.Millisecond
)

// SnapshotProvider 诊断快照来源
type SnapshotProvider interface {
	Session() string
	Snapshot(ctx context.Context) (app.Snapshot, error)
}

// StatusServer 基于Gin的只读诊断HTTP服务
type StatusServer struct {
	server   *http.Server
	router   *gin.Engine
	provider SnapshotProvider
}

// NewStatusServer 创建诊断HTTP服务
func NewStatusServer(addr string, provider SnapshotProvider) *StatusServer {
	// 设置Gin模式
	gin.SetMode(gin.ReleaseMode)

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(requestLogger())

	s := &StatusServer{
		router:   router,
		provider: provider,
	}
	s.registerRoutes()

	s.server = &http.Server{
		Addr:         addr,
		Handler:      router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  60 * time.Second,
	}
	return s
}

func (s *StatusServer) registerRoutes() {
	v1 := s.router.Group("/api/v1")
	{
		v1.GET("/status", s.getStatus) // GET /api/v1/status - 客户端状态快照
	}

	s.router.GET("/health", s.getHealth)
	s.router.GET("/ping", s.ping)
}

func (s *StatusServer) getStatus(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), snapshotTimeout)
	defer cancel()

	snap, err := s.provider.Snapshot(ctx)
	if err != nil {
		c.JSON(http.StatusServiceUnavailable, NewErrorResponse("事件循环未响应", int(apperrors.CodeOf(err))))
		return
	}
	c.JSON(http.StatusOK, NewStandardResponse(snap, "success", 0))
}

// getHealth 事件循环能在时限内返回快照才视为健康
func (s *StatusServer) getHealth(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), healthTimeout)
	defer cancel()

	result := HealthResponse{
		Status:    "healthy",
		Timestamp: time.Now().Unix(),
		Session:   s.provider.Session(),
		Services: map[string]string{
			"event_loop":  "running",
			"http_server": "running",
		},
	}

	snap, err := s.provider.Snapshot(ctx)
	if err != nil {
		logger.WithError(err).Warn("健康检查：事件循环未响应")
		result.Status = "unhealthy"
		result.Services["event_loop"] = "stalled"
		c.JSON(http.StatusServiceUnavailable, NewStandardResponse(result, "事件循环未响应", int(apperrors.CodeOf(err))))
		return
	}

	result.Session = snap.Session
	c.JSON(http.StatusOK, NewStandardResponse(result, "系统健康", 0))
}

func (s *StatusServer) ping(c *gin.Context) {
	result := map[string]interface{}{
		"message": "pong",
		"time":    time.Now().Unix(),
		"status":  "ok",
	}
	c.JSON(http.StatusOK, NewStandardResponse(result, "pong", 0))
}

// requestLogger 请求日志中间件
func requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		logger.WithField("path", c.Request.URL.Path).
			WithField("status", c.Writer.Status()).
			WithField("latency", time.Since(start).String()).
			Debug("HTTP请求")
	}
}

// Start 启动HTTP服务，阻塞直到 Stop
func (s *StatusServer) Start() error {
	logger.WithField("address", s.server.Addr).Info("启动诊断HTTP服务")
	if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Stop 停止HTTP服务
func (s *StatusServer) Stop(ctx context.Context) error {
	logger.Info("停止诊断HTTP服务")
	return s.server.Shutdown(ctx)
}

// GetRouter 获取Gin路由器（用于测试）
func (s *StatusServer) GetRouter() *gin.Engine {
	return s.router
}
