// Package status 周期性探测预测服务并向订阅者推送在线状态
package status

import (
	"context"
	"sync"
	"time"

	"agropulse/src/core/utils"
	"agropulse/src/gateway"
)

const (
	StateOnline  = "online"
	StateOffline = "offline"
	// StateUnknown 尚未完成第一次探测
	StateUnknown = "unknown"
)

// subscriberBuffer 订阅者缓冲区，写满视为慢消费者
const subscriberBuffer = 4

// HealthChecker 健康探测，*gateway.Client 实现该接口
type HealthChecker interface {
	HealthCheck(ctx context.Context) gateway.Health
}

// Snapshot 一次探测的结果
type Snapshot struct {
	State     string         `json:"status"`
	Backend   string         `json:"backend,omitempty"`
	Health    gateway.Health `json:"health,omitempty"`
	CheckedAt time.Time      `json:"checkedAt"`
}

// Online 后端是否在线
func (s Snapshot) Online() bool {
	return s.State == StateOnline
}

// Monitor 后端状态监控
type Monitor struct {
	checker  HealthChecker
	backend  string
	interval time.Duration
	logger   *utils.TaggedLogger

	mu          sync.RWMutex
	latest      Snapshot
	subscribers map[chan Snapshot]struct{}
}

// NewMonitor 创建监控器，interval <= 0 时使用 30 秒
func NewMonitor(checker HealthChecker, backend string, interval time.Duration, logger *utils.Logger) *Monitor {
	if interval <= 0 {
		interval = 30 * time.Second
	}
	if logger == nil {
		logger = utils.NopLogger()
	}
	return &Monitor{
		checker:     checker,
		backend:     backend,
		interval:    interval,
		logger:      logger.WithTag("status"),
		latest:      Snapshot{State: StateUnknown, Backend: backend},
		subscribers: make(map[chan Snapshot]struct{}),
	}
}

// Run 立即探测一次，之后按间隔探测，直到 ctx 结束
func (m *Monitor) Run(ctx context.Context) error {
	m.Check(ctx)

	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()
	defer m.closeSubscribers()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			m.Check(ctx)
		}
	}
}

// Check 执行一次探测并通知订阅者
func (m *Monitor) Check(ctx context.Context) Snapshot {
	health := m.checker.HealthCheck(ctx)
	snapshot := Snapshot{
		State:     StateOffline,
		Backend:   m.backend,
		Health:    health,
		CheckedAt: time.Now(),
	}
	if health.Healthy() {
		snapshot.State = StateOnline
	}

	m.mu.Lock()
	previous := m.latest.State
	m.latest = snapshot
	for ch := range m.subscribers {
		select {
		case ch <- snapshot:
		default:
			// 慢消费者直接移除
			delete(m.subscribers, ch)
			close(ch)
		}
	}
	m.mu.Unlock()

	if previous != snapshot.State {
		m.logger.Info("预测服务状态变化", map[string]interface{}{
			"from": previous,
			"to":   snapshot.State,
		})
	}
	return snapshot
}

// Latest 最近一次探测结果
func (m *Monitor) Latest() Snapshot {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.latest
}

// Subscribe 订阅状态变化，返回的取消函数可重复调用
func (m *Monitor) Subscribe() (<-chan Snapshot, func()) {
	ch := make(chan Snapshot, subscriberBuffer)
	m.mu.Lock()
	m.subscribers[ch] = struct{}{}
	m.mu.Unlock()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			m.mu.Lock()
			defer m.mu.Unlock()
			if _, ok := m.subscribers[ch]; ok {
				delete(m.subscribers, ch)
				close(ch)
			}
		})
	}
}

// Subscribers 当前订阅者数量
func (m *Monitor) Subscribers() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.subscribers)
}

func (m *Monitor) closeSubscribers() {
	m.mu.Lock()
	defer m.mu.Unlock()
	for ch := range m.subscribers {
		delete(m.subscribers, ch)
		close(ch)
	}
}
