package status

import (
	"context"

	"github.com/gin-gonic/gin"
)

// StatusService 定义状态服务接口
type StatusService interface {
	Start(ctx context.Context, engine *gin.Engine, apiGroup *gin.RouterGroup) error
}
