package soil

import (
	"context"

	"github.com/gin-gonic/gin"

	"agropulse/src/models"
)

// SoilService 定义土壤分析服务接口
type SoilService interface {
	Start(ctx context.Context, engine *gin.Engine, apiGroup *gin.RouterGroup) error
}

// HandoffStore 保存土壤分析交接数据
type HandoffStore interface {
	SaveHandoff(ctx context.Context, handoff *models.SoilHandoff) error
	RecordActivity(ctx context.Context, activity *models.Activity) error
}
