package dashboard

import (
	"context"

	"github.com/gin-gonic/gin"

	"agropulse/src/models"
)

// DashboardService 定义仪表盘服务接口
type DashboardService interface {
	Start(ctx context.Context, engine *gin.Engine, apiGroup *gin.RouterGroup) error
}

// ActivitySource 读取某个客户端的真实操作记录
type ActivitySource interface {
	RecentActivities(ctx context.Context, clientID string, limit int) ([]models.Activity, error)
}
