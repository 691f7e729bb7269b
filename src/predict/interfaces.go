package predict

import (
	"context"

	"github.com/gin-gonic/gin"

	"agropulse/src/gateway"
	"agropulse/src/models"
)

// PredictService 定义预测服务接口
type PredictService interface {
	// 将预测路由注册到 engine 与 apiGroup
	Start(ctx context.Context, engine *gin.Engine, apiGroup *gin.RouterGroup) error
}

// Predictor 预测网关，*gateway.Client 实现该接口
type Predictor interface {
	Predict(ctx context.Context, kind gateway.Kind, params gateway.Params) gateway.Result
	HealthCheck(ctx context.Context) gateway.Health
}

// Store 预测服务使用的持久化能力
type Store interface {
	RecordActivity(ctx context.Context, activity *models.Activity) error
	LoadHandoff(ctx context.Context, clientID string) (*models.SoilHandoff, error)
}
