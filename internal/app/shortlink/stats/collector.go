package stats

import (
	"context"
	"sync"
	"time"

	"urlshortener.local/internal/platform/metrics"
)

// ClickEvent 是一次成功跳转。ID 是记录 id，只在服务内部流转。
type ClickEvent struct {
	ID        int64     `json:"id"`
	ClickedAt time.Time `json:"clicked_at"`
	IP        string    `json:"ip"`
	UserAgent string    `json:"user_agent"`
	Referer   string    `json:"referer"`
}

// Collector accepts click events without blocking the redirect path.
type Collector interface {
	Collect(event ClickEvent)
	Close()
}

// Sink persists a batch of click events and bumps the per-record counters.
type Sink interface {
	RecordClicks(ctx context.Context, batch []ClickEvent) error
}

// ChannelCollector buffers events in memory for a Consumer in the same process.
type ChannelCollector struct {
	mu     sync.RWMutex
	ch     chan ClickEvent
	closed bool
}

func NewChannelCollector(bufferSize int) *ChannelCollector {
	return &ChannelCollector{
		ch: make(chan ClickEvent, bufferSize),
	}
}

// Collect drops the event when the buffer is full or the collector is closed.
func (c *ChannelCollector) Collect(event ClickEvent) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.closed {
		metrics.ClickEventsDropped.Inc()
		return
	}
	select {
	case c.ch <- event:
	default:
		metrics.ClickEventsDropped.Inc()
	}
}

func (c *ChannelCollector) Events() <-chan ClickEvent {
	return c.ch
}

func (c *ChannelCollector) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	c.closed = true
	close(c.ch)
}
