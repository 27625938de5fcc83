package ports

import (
	"context"
	"time"

	"github.com/promptmotion/manimatic/internal/domain"
)

// LLMClient is implemented by every completion backend.
type LLMClient interface {
	Complete(ctx context.Context, req *domain.CompletionRequest) (*domain.CompletionResponse, error)
	Provider() string
}

// EventHandler processes a single event delivered by the bus.
type EventHandler func(ctx context.Context, event domain.Event) error

// EventBus publishes and delivers generation lifecycle events. Every
// subscriber on a topic receives every event; a subscriber stops receiving
// once the context passed to Subscribe is done.
type EventBus interface {
	Publish(ctx context.Context, topic string, event domain.Event) error
	Subscribe(ctx context.Context, topic string, handler EventHandler) error
	Close() error
}

// StateStorage holds the live state of in-flight generations.
type StateStorage interface {
	Save(ctx context.Context, gen *domain.Generation) error
	Get(ctx context.Context, id string) (*domain.Generation, error)
	Delete(ctx context.Context, id string) error
	List(ctx context.Context) ([]*domain.Generation, error)
}

// Catalog is the durable record of finished generations.
type Catalog interface {
	Record(ctx context.Context, gen *domain.Generation) error
	Get(ctx context.Context, id string) (*domain.Generation, error)
	List(ctx context.Context, limit, offset int) ([]*domain.Generation, error)
	Close() error
}

// MetricsCollector exports service metrics.
type MetricsCollector interface {
	RecordGenerationSubmitted(model string)
	RecordGenerationCompleted(status string, duration time.Duration)
	RecordStageDuration(stage string, duration time.Duration)
	RecordLLMCall(provider, model string, duration time.Duration, inputTokens, outputTokens int)
	RecordRenderAttempt(success bool, duration time.Duration)
	RecordWorkerPoolStatus(idle, busy, stopped int)
	SetActiveGenerations(count int)
}

// Renderer turns animation source code into a video file.
type Renderer interface {
	Render(ctx context.Context, code, generationID string) (videoPath string, err error)
}
