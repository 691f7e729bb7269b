package advisor

import (
	"context"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"agropulse/src/core/utils"
)

type adviceRequest struct {
	Topic   string `json:"topic" binding:"required"`
	Subject string `json:"subject" binding:"required"`
}

type DefaultAdvisorService struct {
	advisor Advisor
	logger  *utils.Logger
}

// NewDefaultAdvisorService 构造函数，advisor 为 nil 时接口返回未配置
func NewDefaultAdvisorService(advisor Advisor, logger *utils.Logger) *DefaultAdvisorService {
	return &DefaultAdvisorService{advisor: advisor, logger: logger}
}

// Start 实现 AdvisorService 接口
func (s *DefaultAdvisorService) Start(ctx context.Context, engine *gin.Engine, apiGroup *gin.RouterGroup) error {
	apiGroup.POST("/advice", s.handleAdvice)
	s.logger.Info("建议服务路由注册完成", map[string]interface{}{"enabled": s.advisor != nil})
	return nil
}

func (s *DefaultAdvisorService) handleAdvice(c *gin.Context) {
	if s.advisor == nil {
		c.JSON(http.StatusOK, gin.H{"success": false, "error": ErrNotConfigured.Error()})
		return
	}

	var req adviceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "topic and subject are required"})
		return
	}
	topic, err := ParseTopic(req.Topic)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": err.Error()})
		return
	}

	advice, err := s.advisor.Advise(c.Request.Context(), topic, strings.TrimSpace(req.Subject))
	if err != nil {
		s.logger.Error("建议生成失败", map[string]interface{}{"topic": topic, "error": err.Error()})
		c.JSON(http.StatusOK, gin.H{"success": false, "error": "Failed to generate advice"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "advice": advice})
}
