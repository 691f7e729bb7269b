package dashboard

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/gin-gonic/gin"

	"agropulse/src/core/utils"
	"agropulse/src/session"
)

const recentActivityLimit = 4

type DefaultDashboardService struct {
	provider   Provider
	activities ActivitySource
	logger     *utils.Logger
	now        func() time.Time

	// 每个客户端最近一次展示的统计，导出报告时复用
	mu    sync.Mutex
	stats map[string]FarmStats
}

// NewDefaultDashboardService 构造函数，activities 可以为 nil
func NewDefaultDashboardService(provider Provider, activities ActivitySource, logger *utils.Logger) *DefaultDashboardService {
	return &DefaultDashboardService{
		provider:   provider,
		activities: activities,
		logger:     logger,
		now:        time.Now,
		stats:      make(map[string]FarmStats),
	}
}

// Start 实现 DashboardService 接口
func (s *DefaultDashboardService) Start(ctx context.Context, engine *gin.Engine, apiGroup *gin.RouterGroup) error {
	apiGroup.GET("/dashboard", s.handleDashboard)
	apiGroup.GET("/dashboard/export", s.handleExport)

	s.logger.Info("仪表盘服务路由注册完成")
	return nil
}

// Build 汇总指定客户端的仪表盘数据
func (s *DefaultDashboardService) Build(ctx context.Context, clientID string) (*Dashboard, error) {
	now := s.now()

	stats, err := s.provider.FarmStats(ctx)
	if err != nil {
		return nil, err
	}
	s.mu.Lock()
	s.stats[clientID] = stats
	s.mu.Unlock()

	weather, err := s.provider.Weather(ctx, now)
	if err != nil {
		return nil, err
	}
	activities, err := s.recentActivities(ctx, clientID, now)
	if err != nil {
		return nil, err
	}

	return &Dashboard{
		FarmStats:        stats,
		Weather:          weather,
		RecentActivities: activities,
		Recommendations:  append([]string(nil), DefaultRecommendations...),
	}, nil
}

// recentActivities 优先使用真实记录，没有记录时使用数据源的示例
func (s *DefaultDashboardService) recentActivities(ctx context.Context, clientID string, now time.Time) ([]Activity, error) {
	if s.activities != nil {
		records, err := s.activities.RecentActivities(ctx, clientID, recentActivityLimit)
		if err != nil {
			s.logger.Warn("读取操作记录失败", map[string]interface{}{"error": err.Error()})
		} else if len(records) > 0 {
			out := make([]Activity, 0, len(records))
			for _, r := range records {
				out = append(out, Activity{
					Action:  r.Action,
					Details: r.Details,
					Time:    humanize.RelTime(r.CreatedAt, now, "ago", "from now"),
					Success: r.Success,
				})
			}
			return out, nil
		}
	}
	return s.provider.RecentActivities(ctx)
}

// ReportStats 返回客户端最近一次看到的统计，没有时重新获取
func (s *DefaultDashboardService) ReportStats(ctx context.Context, clientID string) (FarmStats, error) {
	s.mu.Lock()
	stats, ok := s.stats[clientID]
	s.mu.Unlock()
	if ok {
		return stats, nil
	}

	stats, err := s.provider.FarmStats(ctx)
	if err != nil {
		return FarmStats{}, err
	}
	s.mu.Lock()
	s.stats[clientID] = stats
	s.mu.Unlock()
	return stats, nil
}

func (s *DefaultDashboardService) handleDashboard(c *gin.Context) {
	data, err := s.Build(c.Request.Context(), session.ClientID(c))
	if err != nil {
		s.logger.Error("生成仪表盘数据失败", map[string]interface{}{"error": err.Error()})
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": "Failed to load dashboard data"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "data": data})
}

func (s *DefaultDashboardService) handleExport(c *gin.Context) {
	stats, err := s.ReportStats(c.Request.Context(), session.ClientID(c))
	if err != nil {
		s.logger.Error("生成报告失败", map[string]interface{}{"error": err.Error()})
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": "Failed to generate report. Please try again."})
		return
	}

	now := s.now()
	c.Header("Content-Disposition", `attachment; filename="`+ReportFilename(now)+`"`)
	c.Data(http.StatusOK, "text/plain; charset=utf-8", []byte(BuildReport(stats, now)))
}
