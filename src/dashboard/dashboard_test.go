package dashboard

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"agropulse/src/models"
	"agropulse/src/session"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func constant(v float64) func() float64 {
	return func() float64 { return v }
}

// counter 每次调用返回不同的值
func counter() func() float64 {
	var n int
	return func() float64 {
		n++
		return float64(n%10)/10 + 0.05
	}
}

type stubActivities struct {
	records map[string][]models.Activity
	err     error
}

func (s stubActivities) RecentActivities(ctx context.Context, clientID string, limit int) ([]models.Activity, error) {
	return s.records[clientID], s.err
}

func TestMockProviderBounds(t *testing.T) {
	ctx := context.Background()
	noon := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

	low := NewMockProvider(constant(0))
	stats, err := low.FarmStats(ctx)
	require.NoError(t, err)
	assert.Equal(t, FarmStats{TotalCrops: 5, FertilizerUsed: 20, PestsDetected: 0, SoilTests: 5}, stats)

	high := NewMockProvider(constant(0.9999))
	stats, err = high.FarmStats(ctx)
	require.NoError(t, err)
	assert.Equal(t, FarmStats{TotalCrops: 24, FertilizerUsed: 119, PestsDetected: 9, SoilTests: 19}, stats)

	weather, err := high.Weather(ctx, noon)
	require.NoError(t, err)
	assert.Equal(t, Weather{Temperature: 49, Humidity: 89, Rainfall: 10, Condition: "Sunny"}, weather)

	defaults, err := low.RecentActivities(ctx)
	require.NoError(t, err)
	require.Len(t, defaults, 4)
	assert.False(t, defaults[2].Success)
	assert.Equal(t, "Pest Detection", defaults[2].Action)
}

func TestCondition(t *testing.T) {
	at := func(hour int) time.Time { return time.Date(2024, 1, 1, hour, 30, 0, 0, time.Local) }

	assert.Equal(t, "Clear", Condition(at(6)))
	assert.Equal(t, "Sunny", Condition(at(7)))
	assert.Equal(t, "Sunny", Condition(at(17)))
	assert.Equal(t, "Clear", Condition(at(18)))
	assert.Equal(t, "Clear", Condition(at(0)))
}

func TestBuildReport(t *testing.T) {
	now := time.Date(2024, 3, 9, 14, 5, 7, 0, time.UTC)
	stats := FarmStats{TotalCrops: 12, FertilizerUsed: 64, PestsDetected: 3, SoilTests: 7}

	assert.Equal(t, "farm-report-2024-03-09.txt", ReportFilename(now))
	assert.Equal(t,
		"AgriSmart Farm Report\nGenerated: 3/9/2024, 2:05:07 PM\n\nTotal Crops: 12\nFertilizer Used: 64kg\nPests Detected: 3\nSoil Tests: 7",
		BuildReport(stats, now))
}

func TestBuildPrefersRecordedActivities(t *testing.T) {
	now := time.Date(2024, 3, 9, 14, 0, 0, 0, time.UTC)
	svc := NewDefaultDashboardService(NewMockProvider(constant(0)), stubActivities{records: map[string][]models.Activity{
		"alice": {{ClientID: "alice", Action: "Crop Prediction", Details: "Recommended rice", Success: true, CreatedAt: now.Add(-2 * time.Hour)}},
	}}, nil)
	svc.now = func() time.Time { return now }

	data, err := svc.Build(context.Background(), "alice")
	require.NoError(t, err)
	assert.Equal(t, []Activity{{Action: "Crop Prediction", Details: "Recommended rice", Time: "2 hours ago", Success: true}}, data.RecentActivities)
	assert.Equal(t, DefaultRecommendations, data.Recommendations)
	assert.Equal(t, "Sunny", data.Weather.Condition)

	// 其他客户端看不到 alice 的记录
	data, err = svc.Build(context.Background(), "bob")
	require.NoError(t, err)
	assert.Len(t, data.RecentActivities, 4)
	assert.NotContains(t, data.RecentActivities, Activity{Action: "Crop Prediction", Details: "Recommended rice", Time: "2 hours ago", Success: true})
}

func TestBuildFallsBackToProviderActivities(t *testing.T) {
	for _, source := range []ActivitySource{nil, stubActivities{}, stubActivities{err: errors.New("db down")}} {
		svc := NewDefaultDashboardService(NewMockProvider(constant(0)), source, nil)
		data, err := svc.Build(context.Background(), "anonymous")
		require.NoError(t, err)
		assert.Len(t, data.RecentActivities, 4)
	}
}

func TestRoutes(t *testing.T) {
	now := time.Date(2024, 3, 9, 20, 0, 0, 0, time.UTC)
	svc := NewDefaultDashboardService(NewMockProvider(constant(0)), nil, nil)
	svc.now = func() time.Time { return now }

	engine := gin.New()
	require.NoError(t, svc.Start(context.Background(), engine, engine.Group("/api")))

	w := httptest.NewRecorder()
	engine.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/dashboard", nil))
	require.Equal(t, http.StatusOK, w.Code)
	var body struct {
		Success bool      `json:"success"`
		Data    Dashboard `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.True(t, body.Success)
	assert.Equal(t, "Clear", body.Data.Weather.Condition)
	assert.Equal(t, 5, body.Data.FarmStats.TotalCrops)

	w = httptest.NewRecorder()
	engine.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/dashboard/export", nil))
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, `attachment; filename="farm-report-2024-03-09.txt"`, w.Header().Get("Content-Disposition"))
	assert.Contains(t, w.Header().Get("Content-Type"), "text/plain")
	assert.Contains(t, w.Body.String(), "Fertilizer Used: 20kg\n")
}

func getDashboard(t *testing.T, engine *gin.Engine, clientID string) Dashboard {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, "/api/dashboard", nil)
	req.Header.Set(session.ClientIDHeader, clientID)
	w := httptest.NewRecorder()
	engine.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)

	var body struct {
		Data Dashboard `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	return body.Data
}

func exportReport(t *testing.T, engine *gin.Engine, clientID string) string {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, "/api/dashboard/export", nil)
	req.Header.Set(session.ClientIDHeader, clientID)
	w := httptest.NewRecorder()
	engine.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)
	return w.Body.String()
}

func TestExportMatchesDisplayedStats(t *testing.T) {
	now := time.Date(2024, 3, 9, 10, 0, 0, 0, time.UTC)
	svc := NewDefaultDashboardService(NewMockProvider(counter()), nil, nil)
	svc.now = func() time.Time { return now }

	engine := gin.New()
	api := engine.Group("/api")
	api.Use(session.Middleware(nil, false))
	require.NoError(t, svc.Start(context.Background(), engine, api))

	alice := getDashboard(t, engine, "alice")
	bob := getDashboard(t, engine, "bob")
	require.NotEqual(t, alice.FarmStats, bob.FarmStats)

	assert.Contains(t, exportReport(t, engine, "alice"), BuildReport(alice.FarmStats, now))
	assert.Contains(t, exportReport(t, engine, "bob"), BuildReport(bob.FarmStats, now))
	// 重复导出结果不变
	assert.Equal(t, BuildReport(alice.FarmStats, now), exportReport(t, engine, "alice"))
}

func TestExportWithoutDashboardFetchesStatsOnce(t *testing.T) {
	svc := NewDefaultDashboardService(NewMockProvider(counter()), nil, nil)

	first, err := svc.ReportStats(context.Background(), "carol")
	require.NoError(t, err)
	second, err := svc.ReportStats(context.Background(), "carol")
	require.NoError(t, err)
	assert.Equal(t, first, second)
}
