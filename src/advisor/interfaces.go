package advisor

import (
	"context"

	"github.com/gin-gonic/gin"
)

// AdvisorService 定义建议服务接口
type AdvisorService interface {
	Start(ctx context.Context, engine *gin.Engine, apiGroup *gin.RouterGroup) error
}
