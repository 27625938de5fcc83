package memory

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/promptmotion/manimatic/internal/domain"
)

func TestPublishReachesSubscribers(t *testing.T) {
	bus := NewInMemoryEventBus()
	defer bus.Close()

	var mu sync.Mutex
	var got []domain.Event
	done := make(chan struct{}, 2)

	handler := func(_ context.Context, event domain.Event) error {
		mu.Lock()
		got = append(got, event)
		mu.Unlock()
		done <- struct{}{}
		return nil
	}

	ctx := context.Background()
	if err := bus.Subscribe(ctx, "generation.events", handler); err != nil {
		t.Fatalf("Subscribe: %v", err)
	}
	if err := bus.Subscribe(ctx, "generation.events", handler); err != nil {
		t.Fatalf("Subscribe: %v", err)
	}

	event := domain.Event{
		ID:           "ev-1",
		Type:         domain.EventTypeGenerationSubmitted,
		GenerationID: "gen-1",
		Timestamp:    time.Now(),
	}
	if err := bus.Publish(ctx, "generation.events", event); err != nil {
		t.Fatalf("Publish: %v", err)
	}

	for i := 0; i < 2; i++ {
		select {
		case <-done:
		case <-time.After(2 * time.Second):
			t.Fatal("timed out waiting for handlers")
		}
	}

	mu.Lock()
	defer mu.Unlock()
	if len(got) != 2 {
		t.Fatalf("handlers received %d events, want 2", len(got))
	}
	if got[0].GenerationID != "gen-1" {
		t.Fatalf("unexpected event: %+v", got[0])
	}
}

func TestPublishIgnoresOtherTopics(t *testing.T) {
	bus := NewInMemoryEventBus()
	defer bus.Close()

	called := make(chan struct{}, 1)
	err := bus.Subscribe(context.Background(), "other.topic", func(context.Context, domain.Event) error {
		called <- struct{}{}
		return nil
	})
	if err != nil {
		t.Fatalf("Subscribe: %v", err)
	}

	if err := bus.Publish(context.Background(), "generation.events", domain.Event{ID: "ev"}); err != nil {
		t.Fatalf("Publish: %v", err)
	}

	select {
	case <-called:
		t.Fatal("handler on unrelated topic was invoked")
	case <-time.After(100 * time.Millisecond):
	}
}

func TestPublishSkipsCancelledSubscribers(t *testing.T) {
	bus := NewInMemoryEventBus()
	defer bus.Close()

	ctx, cancel := context.WithCancel(context.Background())
	called := make(chan struct{}, 1)
	bus.Subscribe(ctx, "generation.events", func(context.Context, domain.Event) error {
		called <- struct{}{}
		return nil
	})
	cancel()

	bus.Publish(context.Background(), "generation.events", domain.Event{ID: "ev"})

	select {
	case <-called:
		t.Fatal("handler invoked after its context was cancelled")
	case <-time.After(100 * time.Millisecond):
	}
}

func TestCloseDropsSubscribers(t *testing.T) {
	bus := NewInMemoryEventBus()

	called := make(chan struct{}, 1)
	bus.Subscribe(context.Background(), "generation.events", func(context.Context, domain.Event) error {
		called <- struct{}{}
		return nil
	})

	if err := bus.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	bus.Publish(context.Background(), "generation.events", domain.Event{ID: "ev"})

	select {
	case <-called:
		t.Fatal("handler invoked after Close")
	case <-time.After(100 * time.Millisecond):
	}
}
