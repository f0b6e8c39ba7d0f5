package clock

import (
	"sync"
	"time"
)

// Clock 当前时间来源。核心逻辑只接受显式传入的 now，Clock 只给外层适配器（HTTP、轮询）使用
type Clock interface {
	Now() time.Time
}

// System 系统时钟，返回 UTC
type System struct{}

func (System) Now() time.Time {
	return time.Now().UTC()
}

// Manual 可手动推进的时钟，测试使用
type Manual struct {
	mu  sync.Mutex
	now time.Time
}

func NewManual(now time.Time) *Manual {
	return &Manual{now: now.UTC()}
}

func (m *Manual) Now() time.Time {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.now
}

func (m *Manual) Set(now time.Time) {
	m.mu.Lock()
	m.now = now.UTC()
	m.mu.Unlock()
}

func (m *Manual) Advance(d time.Duration) {
	m.mu.Lock()
	m.now = m.now.Add(d)
	m.mu.Unlock()
}
