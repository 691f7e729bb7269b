package dashboard

import (
	"context"
	"math"
	"math/rand"
	"sync"
	"time"
)

// Provider 仪表盘数据来源
type Provider interface {
	FarmStats(ctx context.Context) (FarmStats, error)
	Weather(ctx context.Context, now time.Time) (Weather, error)
	// RecentActivities 没有真实记录时展示的活动
	RecentActivities(ctx context.Context) ([]Activity, error)
}

// MockProvider 演示用的随机数据
type MockProvider struct {
	mu  sync.Mutex
	rnd func() float64
}

// NewMockProvider 创建随机数据源，rnd 为 nil 时使用时间种子
func NewMockProvider(rnd func() float64) *MockProvider {
	if rnd == nil {
		rnd = rand.New(rand.NewSource(time.Now().UnixNano())).Float64
	}
	return &MockProvider{rnd: rnd}
}

func (p *MockProvider) intn(n, offset int) int {
	return int(math.Floor(p.rnd()*float64(n))) + offset
}

func (p *MockProvider) FarmStats(ctx context.Context) (FarmStats, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return FarmStats{
		TotalCrops:     p.intn(20, 5),
		FertilizerUsed: p.intn(100, 20),
		PestsDetected:  p.intn(10, 0),
		SoilTests:      p.intn(15, 5),
	}, nil
}

func (p *MockProvider) Weather(ctx context.Context, now time.Time) (Weather, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return Weather{
		Temperature: p.intn(35, 15),
		Humidity:    p.intn(60, 30),
		Rainfall:    math.Round(p.rnd()*10*10) / 10,
		Condition:   Condition(now),
	}, nil
}

func (p *MockProvider) RecentActivities(ctx context.Context) ([]Activity, error) {
	return []Activity{
		{Action: "Crop Recommendation", Details: "Wheat suggested for current soil conditions", Time: "2 hours ago", Success: true},
		{Action: "Fertilizer Analysis", Details: "Nitrogen levels optimized for corn field", Time: "1 day ago", Success: true},
		{Action: "Pest Detection", Details: "Aphids identified and treatment recommended", Time: "2 days ago", Success: false},
		{Action: "Soil Analysis", Details: "pH levels balanced in northern section", Time: "3 days ago", Success: true},
	}, nil
}

// Condition 白天（6 点到 18 点之间，不含两端）为 Sunny，其余为 Clear
func Condition(now time.Time) string {
	hour := now.Hour()
	if hour > 6 && hour < 18 {
		return "Sunny"
	}
	return "Clear"
}
