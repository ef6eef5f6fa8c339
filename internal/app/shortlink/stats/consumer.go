package stats

import (
	"context"
	"log/slog"
	"time"
)

const (
	defaultBatchSize     = 100
	defaultFlushInterval = time.Second
)

// Consumer drains a ChannelCollector into a Sink in batches.
type Consumer struct {
	sink      Sink
	collector *ChannelCollector
	batchSize int
	interval  time.Duration
}

func NewConsumer(sink Sink, collector *ChannelCollector) *Consumer {
	return &Consumer{
		sink:      sink,
		collector: collector,
		batchSize: defaultBatchSize,
		interval:  defaultFlushInterval,
	}
}

// Run blocks until ctx is done or the collector is closed, flushing what is left.
func (c *Consumer) Run(ctx context.Context) {
	batch := make([]ClickEvent, 0, c.batchSize)
	ticker := time.NewTicker(c.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			flush(c.sink, batch)
			return
		case event, ok := <-c.collector.Events():
			if !ok {
				flush(c.sink, batch)
				return
			}
			batch = append(batch, event)
			if len(batch) >= c.batchSize {
				flush(c.sink, batch)
				batch = batch[:0] // 保留容量，避免反复分配
			}
		case <-ticker.C:
			if len(batch) > 0 {
				flush(c.sink, batch)
				batch = batch[:0]
			}
		}
	}
}

// flush uses its own timeout so the final batch is still written after ctx is cancelled.
func flush(sink Sink, batch []ClickEvent) {
	if len(batch) == 0 {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := sink.RecordClicks(ctx, batch); err != nil {
		slog.Error("click stats: flush failed", "err", err, "count", len(batch))
		return
	}
	slog.Debug("click stats: flushed", "count", len(batch))
}
