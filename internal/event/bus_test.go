package event

import (
	"context"
	"sync"
	"testing"
	"time"

	"go.uber.org/zap"
)

func TestPublish_TopicRouting(t *testing.T) {
	bus := NewBus(zap.NewNop())

	var got []string
	bus.Subscribe(TopicRefreshCompleted, func(_ context.Context, e Event) {
		got = append(got, e.Topic)
	})
	bus.Subscribe(TopicAlertsGenerated, func(_ context.Context, e Event) {
		t.Error("handler for unrelated topic invoked")
	})

	bus.Publish(context.Background(), Event{Topic: TopicRefreshCompleted, Source: "pipeline"})

	if len(got) != 1 || got[0] != TopicRefreshCompleted {
		t.Errorf("got %v, want one %s event", got, TopicRefreshCompleted)
	}
}

func TestPublish_SubscribeAllSeesEveryTopic(t *testing.T) {
	bus := NewBus(zap.NewNop())

	var mu sync.Mutex
	var topics []string
	bus.SubscribeAll(func(_ context.Context, e Event) {
		mu.Lock()
		topics = append(topics, e.Topic)
		mu.Unlock()
	})

	ctx := context.Background()
	bus.Publish(ctx, Event{Topic: TopicRefreshCompleted})
	bus.Publish(ctx, Event{Topic: TopicAlertsGenerated})

	if len(topics) != 2 {
		t.Fatalf("got %d events, want 2", len(topics))
	}
}

func TestUnsubscribe(t *testing.T) {
	bus := NewBus(zap.NewNop())

	calls := 0
	unsub := bus.Subscribe(TopicCacheInvalidated, func(_ context.Context, _ Event) {
		calls++
	})

	ctx := context.Background()
	bus.Publish(ctx, Event{Topic: TopicCacheInvalidated})
	unsub()
	bus.Publish(ctx, Event{Topic: TopicCacheInvalidated})

	if calls != 1 {
		t.Errorf("handler called %d times, want 1", calls)
	}
}

func TestPublish_PanickingHandlerDoesNotStopOthers(t *testing.T) {
	bus := NewBus(zap.NewNop())

	bus.Subscribe(TopicRefreshFailed, func(_ context.Context, _ Event) {
		panic("boom")
	})
	called := false
	bus.Subscribe(TopicRefreshFailed, func(_ context.Context, _ Event) {
		called = true
	})

	bus.Publish(context.Background(), Event{Topic: TopicRefreshFailed})

	if !called {
		t.Error("second handler not invoked after first panicked")
	}
}

func TestPublishAsync(t *testing.T) {
	bus := NewBus(zap.NewNop())

	done := make(chan struct{})
	bus.Subscribe(TopicRefreshCompleted, func(_ context.Context, _ Event) {
		close(done)
	})

	bus.PublishAsync(context.Background(), Event{Topic: TopicRefreshCompleted})

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("async handler never ran")
	}
}

func TestConcurrentSubscribePublish(t *testing.T) {
	bus := NewBus(zap.NewNop())

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			unsub := bus.Subscribe(TopicAlertsGenerated, func(_ context.Context, _ Event) {})
			unsub()
		}()
		go func() {
			defer wg.Done()
			bus.Publish(context.Background(), Event{Topic: TopicAlertsGenerated})
		}()
	}
	wg.Wait()
}
