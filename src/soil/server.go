package soil

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"gorm.io/datatypes"

	"agropulse/src/core/utils"
	"agropulse/src/models"
	"agropulse/src/session"
)

type geocodeRequest struct {
	Address string `json:"address"`
	Pincode string `json:"pincode"`
}

type analyzeRequest struct {
	Latitude  *float64 `json:"latitude"`
	Longitude *float64 `json:"longitude"`
}

type DefaultSoilService struct {
	geocoder Geocoder
	provider Provider
	store    HandoffStore
	logger   *utils.Logger
}

// NewDefaultSoilService 构造函数，store 可以为 nil
func NewDefaultSoilService(geocoder Geocoder, provider Provider, store HandoffStore, logger *utils.Logger) *DefaultSoilService {
	return &DefaultSoilService{
		geocoder: geocoder,
		provider: provider,
		store:    store,
		logger:   logger,
	}
}

// Start 实现 SoilService 接口
func (s *DefaultSoilService) Start(ctx context.Context, engine *gin.Engine, apiGroup *gin.RouterGroup) error {
	group := apiGroup.Group("/soil")
	group.POST("/geocode", s.handleGeocode)
	group.POST("/analyze", s.handleAnalyze)
	group.POST("/handoff", s.handleHandoff)

	s.logger.Info("土壤分析服务路由注册完成")
	return nil
}

func (s *DefaultSoilService) handleGeocode(c *gin.Context) {
	var req geocodeRequest
	_ = c.ShouldBindJSON(&req)

	query := strings.TrimSpace(req.Address + " " + req.Pincode)
	if query == "" {
		fail(c, http.StatusBadRequest, "Please enter address or pincode")
		return
	}

	loc, err := s.geocoder.Geocode(c.Request.Context(), query)
	if errors.Is(err, ErrLocationNotFound) {
		fail(c, http.StatusOK, err.Error())
		return
	}
	if err != nil {
		s.logger.Warn("地理编码失败", map[string]interface{}{"query": query, "error": err.Error()})
		fail(c, http.StatusOK, "Failed to geocode address")
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "location": loc})
}

func (s *DefaultSoilService) handleAnalyze(c *gin.Context) {
	var req analyzeRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.Latitude == nil || req.Longitude == nil {
		fail(c, http.StatusBadRequest, "Please get your location first")
		return
	}

	report, err := s.provider.Analyze(c.Request.Context(), Location{Latitude: *req.Latitude, Longitude: *req.Longitude})
	if err != nil {
		s.logger.Error("获取土壤数据失败", map[string]interface{}{"error": err.Error()})
		s.recordActivity(c, "Soil data unavailable", false)
		fail(c, http.StatusOK, "Failed to fetch soil data. Please try again later.")
		return
	}

	s.recordActivity(c, "Analysis completed", true)
	c.JSON(http.StatusOK, gin.H{"success": true, "analysis": Analyze(*report)})
}

// handleHandoff 保存报告，供作物推荐表单预填
func (s *DefaultSoilService) handleHandoff(c *gin.Context) {
	var report Report
	if err := c.ShouldBindJSON(&report); err != nil {
		fail(c, http.StatusBadRequest, "Invalid soil report")
		return
	}
	if s.store == nil {
		fail(c, http.StatusOK, "Soil data storage is not available")
		return
	}

	raw, err := json.Marshal(report)
	if err != nil {
		fail(c, http.StatusInternalServerError, "Invalid soil report")
		return
	}
	handoff := &models.SoilHandoff{
		ClientID:   session.ClientID(c),
		PH:         report.PH,
		Nitrogen:   report.Nitrogen,
		Phosphorus: report.Phosphorous,
		Potassium:  report.Potassium,
		Report:     datatypes.JSON(raw),
	}
	if err := s.store.SaveHandoff(c.Request.Context(), handoff); err != nil {
		s.logger.Error("保存土壤数据失败", map[string]interface{}{"error": err.Error()})
		fail(c, http.StatusInternalServerError, "Failed to save soil data")
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}

func (s *DefaultSoilService) recordActivity(c *gin.Context, details string, success bool) {
	if s.store == nil {
		return
	}
	err := s.store.RecordActivity(c.Request.Context(), &models.Activity{
		ClientID: session.ClientID(c),
		Action:   "Soil Analysis",
		Details:  details,
		Success:  success,
	})
	if err != nil {
		s.logger.Warn("记录操作失败", map[string]interface{}{"error": err.Error()})
	}
}

func fail(c *gin.Context, status int, message string) {
	c.JSON(status, gin.H{"success": false, "error": message})
}
