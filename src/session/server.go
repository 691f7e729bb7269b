package session

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"agropulse/src/core/auth"
	"agropulse/src/core/utils"
)

// Path 会话签发接口，需在鉴权中间件中豁免
const Path = "/session"

type DefaultSessionService struct {
	tokens *auth.AuthToken
	logger *utils.Logger
}

// NewDefaultSessionService 构造函数
func NewDefaultSessionService(tokens *auth.AuthToken, logger *utils.Logger) *DefaultSessionService {
	return &DefaultSessionService{tokens: tokens, logger: logger}
}

// Start 实现 SessionService 接口
func (s *DefaultSessionService) Start(ctx context.Context, engine *gin.Engine, apiGroup *gin.RouterGroup) error {
	apiGroup.POST(Path, s.handleCreate)
	s.logger.Info("会话服务路由注册完成")
	return nil
}

func (s *DefaultSessionService) handleCreate(c *gin.Context) {
	clientID := uuid.NewString()
	token, expires, err := s.tokens.GenerateToken(clientID)
	if err != nil {
		s.logger.Error("签发会话令牌失败", map[string]interface{}{"error": err.Error()})
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": "Failed to create session"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success":    true,
		"client_id":  clientID,
		"token":      token,
		"expires_at": expires.Unix(),
	})
}
