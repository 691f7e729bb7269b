package session

import (
	"context"

	"github.com/gin-gonic/gin"
)

// SessionService 定义会话服务接口
type SessionService interface {
	// 将会话路由注册到 engine 与 apiGroup
	Start(ctx context.Context, engine *gin.Engine, apiGroup *gin.RouterGroup) error
}
