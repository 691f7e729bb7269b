package predict

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"agropulse/src/core/image"
	"agropulse/src/core/utils"
	"agropulse/src/gateway"
	"agropulse/src/models"
	"agropulse/src/session"
	"agropulse/src/store"
)

var (
	cropFields       = []string{"nitrogen", "phosphorous", "potassium", "ph", "rainfall", "temperature", "humidity"}
	fertilizerFields = []string{"cropname", "nitrogen", "phosphorous", "potassium"}
)

// 操作记录中的动作名称
var actionNames = map[gateway.Kind]string{
	gateway.KindCrop:       "Crop Prediction",
	gateway.KindFertilizer: "Fertilizer Recommendation",
	gateway.KindPest:       "Pest Detection",
}

type DefaultPredictService struct {
	predictor Predictor
	validator *image.UploadValidator
	store     Store
	maxUpload int64
	logger    *utils.Logger
}

// NewDefaultPredictService 构造函数，store 可以为 nil
func NewDefaultPredictService(predictor Predictor, validator *image.UploadValidator, st Store, maxUpload int64, logger *utils.Logger) *DefaultPredictService {
	return &DefaultPredictService{
		predictor: predictor,
		validator: validator,
		store:     st,
		maxUpload: maxUpload,
		logger:    logger,
	}
}

// Start 实现 PredictService 接口，注册预测相关路由
func (s *DefaultPredictService) Start(ctx context.Context, engine *gin.Engine, apiGroup *gin.RouterGroup) error {
	apiGroup.POST("/crop", s.handleFields(gateway.KindCrop, cropFields))
	apiGroup.POST("/fertilizer", s.handleFields(gateway.KindFertilizer, fertilizerFields))
	apiGroup.POST("/pest", s.handlePest)
	apiGroup.GET("/health", s.handleHealth)
	apiGroup.GET("/crop/prefill", s.handlePrefill)

	s.logger.Info("预测服务路由注册完成")
	return nil
}

// handleFields 转发表单字段，字段值原样传给后端
func (s *DefaultPredictService) handleFields(kind gateway.Kind, required []string) gin.HandlerFunc {
	return func(c *gin.Context) {
		var fields gateway.Fields
		if err := c.ShouldBindJSON(&fields); err != nil || fields == nil {
			badRequest(c, "Invalid request body")
			return
		}
		for _, name := range required {
			if v, ok := fields[name]; !ok || v == nil || v == "" {
				badRequest(c, fmt.Sprintf("Missing field: %s", name))
				return
			}
		}

		result := s.predictor.Predict(c.Request.Context(), kind, fields)
		s.record(c, kind, result, describeFields(kind, fields, result))
		c.JSON(http.StatusOK, result.Envelope())
	}
}

func (s *DefaultPredictService) handlePest(c *gin.Context) {
	if s.maxUpload > 0 {
		// 预留 multipart 头部的空间
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, s.maxUpload+1<<20)
	}

	fileHeader, err := c.FormFile(gateway.ImageFieldName)
	if err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			badRequest(c, image.ErrFileTooLarge.Error())
			return
		}
		badRequest(c, "Please select an image first")
		return
	}
	file, err := fileHeader.Open()
	if err != nil {
		badRequest(c, "Failed to read uploaded image")
		return
	}
	defer file.Close()
	data, err := io.ReadAll(file)
	if err != nil {
		badRequest(c, "Failed to read uploaded image")
		return
	}

	upload := image.Upload{
		Filename:    fileHeader.Filename,
		ContentType: fileHeader.Header.Get("Content-Type"),
		Data:        data,
	}
	if s.validator != nil {
		if v := s.validator.Validate(upload); !v.IsValid {
			badRequest(c, v.Error.Error())
			return
		}
	}

	result := s.predictor.Predict(c.Request.Context(), gateway.KindPest, gateway.ImageUpload{
		Filename:    upload.Filename,
		ContentType: upload.ContentType,
		Data:        upload.Data,
	})
	details := "Image analysis"
	if pest := result.Pest(); pest != "" {
		details = "Identified " + pest
	}
	s.record(c, gateway.KindPest, result, details)
	c.JSON(http.StatusOK, result.Envelope())
}

func (s *DefaultPredictService) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, s.predictor.HealthCheck(c.Request.Context()))
}

// handlePrefill 返回土壤分析交接数据，映射为作物表单字段
func (s *DefaultPredictService) handlePrefill(c *gin.Context) {
	if s.store == nil {
		c.JSON(http.StatusOK, gin.H{"success": false, "error": "No soil data available"})
		return
	}
	handoff, err := s.store.LoadHandoff(c.Request.Context(), session.ClientID(c))
	if errors.Is(err, store.ErrNotFound) {
		c.JSON(http.StatusOK, gin.H{"success": false, "error": "No soil data available"})
		return
	}
	if err != nil {
		s.logger.Error("读取土壤数据失败", map[string]interface{}{"error": err.Error()})
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": "Failed to load soil data"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"params": gateway.Fields{
			"nitrogen":    handoff.Nitrogen,
			"phosphorous": handoff.Phosphorus,
			"potassium":   handoff.Potassium,
			"ph":          handoff.PH,
		},
	})
}

func (s *DefaultPredictService) record(c *gin.Context, kind gateway.Kind, result gateway.Result, details string) {
	if s.store == nil {
		return
	}
	activity := &models.Activity{
		ClientID: session.ClientID(c),
		Action:   actionNames[kind],
		Details:  details,
		Success:  result.Succeeded(),
	}
	if err := s.store.RecordActivity(c.Request.Context(), activity); err != nil {
		s.logger.Warn("记录操作失败", map[string]interface{}{"error": err.Error()})
	}
}

func describeFields(kind gateway.Kind, fields gateway.Fields, result gateway.Result) string {
	switch kind {
	case gateway.KindCrop:
		if p := result.Prediction(); p != "" {
			return "Recommended " + p
		}
		return "Crop recommendation request"
	case gateway.KindFertilizer:
		if name, ok := fields["cropname"].(string); ok && name != "" {
			return "For " + strings.TrimSpace(name)
		}
	}
	return ""
}

func badRequest(c *gin.Context, message string) {
	c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": message})
}
