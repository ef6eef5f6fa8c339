package stats

import (
	"context"
	"sync"
	"testing"
	"time"

	"go.uber.org/goleak"
)

type recordingSink struct {
	mu      sync.Mutex
	batches [][]ClickEvent
}

func (s *recordingSink) RecordClicks(_ context.Context, batch []ClickEvent) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.batches = append(s.batches, append([]ClickEvent(nil), batch...))
	return nil
}

func (s *recordingSink) total() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, b := range s.batches {
		n += len(b)
	}
	return n
}

func TestChannelCollector_DropsWhenFull(t *testing.T) {
	c := NewChannelCollector(2)
	defer c.Close()

	for i := 0; i < 5; i++ {
		c.Collect(ClickEvent{ID: int64(i)})
	}
	if got := len(c.Events()); got != 2 {
		t.Fatalf("buffered events: got %d, want 2", got)
	}
}

func TestChannelCollector_CollectAfterClose(t *testing.T) {
	c := NewChannelCollector(2)
	c.Close()
	c.Close() // second close is a no-op

	// must not panic on a closed channel
	c.Collect(ClickEvent{ID: 1})
}

func TestConsumer_FlushesBatchOnSize(t *testing.T) {
	defer goleak.VerifyNone(t)

	sink := &recordingSink{}
	c := NewChannelCollector(500)
	consumer := NewConsumer(sink, c)
	consumer.interval = time.Hour

	done := make(chan struct{})
	go func() {
		consumer.Run(context.Background())
		close(done)
	}()

	for i := 0; i < defaultBatchSize; i++ {
		c.Collect(ClickEvent{ID: 7, ClickedAt: time.Now()})
	}

	deadline := time.After(2 * time.Second)
	for sink.total() < defaultBatchSize {
		select {
		case <-deadline:
			t.Fatalf("flushed %d events, want %d", sink.total(), defaultBatchSize)
		case <-time.After(10 * time.Millisecond):
		}
	}

	c.Close()
	<-done
}

func TestConsumer_FlushesRemainderOnCancel(t *testing.T) {
	defer goleak.VerifyNone(t)

	sink := &recordingSink{}
	c := NewChannelCollector(10)
	defer c.Close()
	consumer := NewConsumer(sink, c)
	consumer.interval = time.Hour

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		consumer.Run(ctx)
		close(done)
	}()

	c.Collect(ClickEvent{ID: 1})
	c.Collect(ClickEvent{ID: 2})
	c.Collect(ClickEvent{ID: 3})

	// wait until the consumer has taken the events off the channel
	deadline := time.After(2 * time.Second)
	for len(c.Events()) > 0 {
		select {
		case <-deadline:
			t.Fatal("consumer did not drain the channel")
		case <-time.After(5 * time.Millisecond):
		}
	}
	time.Sleep(20 * time.Millisecond)

	cancel()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("consumer did not stop")
	}
	if got := sink.total(); got != 3 {
		t.Fatalf("flushed %d events, want 3", got)
	}
}

func TestConsumer_FlushesOnTick(t *testing.T) {
	defer goleak.VerifyNone(t)

	sink := &recordingSink{}
	c := NewChannelCollector(10)
	consumer := NewConsumer(sink, c)
	consumer.interval = 20 * time.Millisecond

	done := make(chan struct{})
	go func() {
		consumer.Run(context.Background())
		close(done)
	}()

	c.Collect(ClickEvent{ID: 9})

	deadline := time.After(2 * time.Second)
	for sink.total() < 1 {
		select {
		case <-deadline:
			t.Fatal("tick did not flush the batch")
		case <-time.After(5 * time.Millisecond):
		}
	}
	c.Close()
	<-done
}
