package status

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"agropulse/src/core/utils"
)

const writeTimeout = 10 * time.Second

type DefaultStatusService struct {
	monitor  *Monitor
	upgrader websocket.Upgrader
	logger   *utils.Logger
}

// NewDefaultStatusService 构造函数，allowedOrigins 为空时允许所有来源
func NewDefaultStatusService(monitor *Monitor, allowedOrigins []string, logger *utils.Logger) *DefaultStatusService {
	origins := make(map[string]bool, len(allowedOrigins))
	for _, o := range allowedOrigins {
		origins[o] = true
	}
	return &DefaultStatusService{
		monitor: monitor,
		logger:  logger,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				origin := r.Header.Get("Origin")
				return len(origins) == 0 || origin == "" || origins[origin]
			},
		},
	}
}

// Start 实现 StatusService 接口
func (s *DefaultStatusService) Start(ctx context.Context, engine *gin.Engine, apiGroup *gin.RouterGroup) error {
	apiGroup.GET("/status", s.handleStatus)
	apiGroup.GET("/status/ws", s.handleWebSocket)

	s.logger.Info("状态服务路由注册完成")
	return nil
}

func (s *DefaultStatusService) handleStatus(c *gin.Context) {
	snapshot := s.monitor.Latest()
	if snapshot.State == StateUnknown {
		snapshot = s.monitor.Check(c.Request.Context())
	}
	c.JSON(http.StatusOK, snapshot)
}

// handleWebSocket 推送每次探测结果，连接建立时先推送最近一次结果
func (s *DefaultStatusService) handleWebSocket(c *gin.Context) {
	conn, err := s.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		s.logger.Warn("WebSocket升级失败", map[string]interface{}{"error": err.Error()})
		return
	}
	defer conn.Close()

	updates, cancel := s.monitor.Subscribe()
	defer cancel()

	// 读循环只用于发现客户端断开
	closed := make(chan struct{})
	go func() {
		defer close(closed)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	if err := writeSnapshot(conn, s.monitor.Latest()); err != nil {
		return
	}

	for {
		select {
		case <-closed:
			return
		case snapshot, ok := <-updates:
			if !ok {
				_ = conn.WriteControl(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseGoingAway, "status stream closed"),
					time.Now().Add(time.Second))
				return
			}
			if err := writeSnapshot(conn, snapshot); err != nil {
				return
			}
		}
	}
}

func writeSnapshot(conn *websocket.Conn, snapshot Snapshot) error {
	_ = conn.SetWriteDeadline(time.Now().Add(writeTimeout))
	return conn.WriteJSON(snapshot)
}
