package redis

import (
	"context"
	"testing"

	"github.com/promptmotion/manimatic/internal/domain"
	"go.uber.org/zap"
)

func TestDeliverFansOutToAllSubscribers(t *testing.T) {
	bus := NewStreamsEventBus(nil, "group", "consumer", zap.NewNop())

	var first, second int
	bus.subs["events"] = []*streamSubscriber{
		{ctx: context.Background(), handler: func(ctx context.Context, event domain.Event) error {
			first++
			return nil
		}},
		{ctx: context.Background(), handler: func(ctx context.Context, event domain.Event) error {
			second++
			return nil
		}},
	}

	bus.deliver("events", domain.Event{ID: "evt-1", Type: domain.EventTypeGenerationSubmitted})

	if first != 1 || second != 1 {
		t.Fatalf("expected both subscribers to receive the event, got %d and %d", first, second)
	}
}

func TestDeliverDropsCancelledSubscribers(t *testing.T) {
	bus := NewStreamsEventBus(nil, "group", "consumer", zap.NewNop())

	cancelled, cancel := context.WithCancel(context.Background())
	cancel()

	var live, dead int
	bus.subs["events"] = []*streamSubscriber{
		{ctx: cancelled, handler: func(ctx context.Context, event domain.Event) error {
			dead++
			return nil
		}},
		{ctx: context.Background(), handler: func(ctx context.Context, event domain.Event) error {
			live++
			return nil
		}},
	}

	bus.deliver("events", domain.Event{ID: "evt-1", Type: domain.EventTypeGenerationSubmitted})

	if dead != 0 {
		t.Fatalf("cancelled subscriber received %d events", dead)
	}
	if live != 1 {
		t.Fatalf("expected live subscriber to receive the event, got %d", live)
	}
	if got := len(bus.subs["events"]); got != 1 {
		t.Fatalf("expected cancelled subscriber to be pruned, %d subscribers remain", got)
	}
}

func TestDeliverContinuesPastHandlerError(t *testing.T) {
	bus := NewStreamsEventBus(nil, "group", "consumer", zap.NewNop())

	var after int
	bus.subs["events"] = []*streamSubscriber{
		{ctx: context.Background(), handler: func(ctx context.Context, event domain.Event) error {
			return context.DeadlineExceeded
		}},
		{ctx: context.Background(), handler: func(ctx context.Context, event domain.Event) error {
			after++
			return nil
		}},
	}

	bus.deliver("events", domain.Event{ID: "evt-1", Type: domain.EventTypeGenerationStage})

	if after != 1 {
		t.Fatalf("expected delivery to continue after a handler error, got %d", after)
	}
}
