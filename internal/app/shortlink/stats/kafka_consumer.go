package stats

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/segmentio/kafka-go"
)

type KafkaConsumer struct {
	reader    *kafka.Reader
	sink      Sink
	batchSize int
	interval  time.Duration
}

func NewKafkaConsumer(brokers []string, topic string, sink Sink) *KafkaConsumer {
	return &KafkaConsumer{
		reader: kafka.NewReader(kafka.ReaderConfig{
			Brokers:  brokers,
			Topic:    topic,
			GroupID:  "click-stats-consumer",
			MinBytes: 1,
			MaxBytes: 10e6,
		}),
		sink:      sink,
		batchSize: defaultBatchSize,
		interval:  defaultFlushInterval,
	}
}

func (k *KafkaConsumer) Run(ctx context.Context) {
	batch := make([]ClickEvent, 0, k.batchSize)
	ticker := time.NewTicker(k.interval)
	defer ticker.Stop()

	msgCh := make(chan ClickEvent, k.batchSize)
	go k.read(ctx, msgCh)

	for {
		select {
		case <-ctx.Done():
			flush(k.sink, batch)
			return
		case event, ok := <-msgCh:
			if !ok {
				flush(k.sink, batch)
				return
			}
			batch = append(batch, event)
			if len(batch) >= k.batchSize {
				flush(k.sink, batch)
				batch = batch[:0]
			}
		case <-ticker.C:
			if len(batch) > 0 {
				flush(k.sink, batch)
				batch = batch[:0]
			}
		}
	}
}

// read decodes messages into out until ctx is cancelled, then closes out.
func (k *KafkaConsumer) read(ctx context.Context, out chan<- ClickEvent) {
	defer close(out)
	for {
		msg, err := k.reader.ReadMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			slog.Error("kafka read failed", "err", err)
			select {
			case <-time.After(time.Second):
			case <-ctx.Done():
				return
			}
			continue
		}
		var event ClickEvent
		if err := json.Unmarshal(msg.Value, &event); err != nil {
			slog.Error("unmarshal click event failed", "err", err, "offset", msg.Offset)
			continue
		}
		select {
		case out <- event:
		case <-ctx.Done():
			return
		}
	}
}

func (k *KafkaConsumer) Close() {
	if err := k.reader.Close(); err != nil {
		slog.Error("kafka reader close failed", "err", err)
	}
}
