package soil

import (
	"context"
	"math"
	"math/rand"
	"sync"
	"time"
)

// Provider 土壤数据来源
type Provider interface {
	Analyze(ctx context.Context, loc Location) (*Report, error)
}

// MockProvider 演示用的随机土壤数据
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

// Analyze 生成与位置无关的模拟数据
func (p *MockProvider) Analyze(ctx context.Context, loc Location) (*Report, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	return &Report{
		PH:            round(6.5+p.rnd()*1.5, 1),
		Nitrogen:      round(25+p.rnd()*50, 0),
		Phosphorous:   round(15+p.rnd()*30, 0),
		Potassium:     round(150+p.rnd()*100, 0),
		OrganicCarbon: round(1.2+p.rnd()*0.8, 1),
		Clay:          round(20+p.rnd()*30, 0),
		Sand:          round(40+p.rnd()*30, 0),
		Silt:          round(30+p.rnd()*20, 0),
		CEC:           round(15+p.rnd()*10, 0),
	}, nil
}

func round(v float64, digits int) float64 {
	scale := math.Pow(10, float64(digits))
	return math.Round(v*scale) / scale
}
