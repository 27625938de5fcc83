package pipeline

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/promptmotion/manimatic/internal/config"
	"github.com/promptmotion/manimatic/internal/domain"
	"github.com/promptmotion/manimatic/internal/ports"
	"github.com/promptmotion/manimatic/internal/prompts"
	"go.uber.org/zap"
)

// TopicGenerationEvents is the bus topic carrying generation lifecycle events.
const TopicGenerationEvents = "generation.events"

const minPromptLength = 3

// Manager coordinates prompt-to-video generations: it owns submissions,
// status, cancellation and the per-generation execution contexts the
// worker pool runs the pipeline under.
type Manager struct {
	eventBus ports.EventBus
	storage  ports.StateStorage
	catalog  ports.Catalog
	metrics  ports.MetricsCollector
	renderer ports.Renderer
	clients  map[domain.Model]ports.LLMClient
	logger   *zap.Logger

	// Track active executions
	executions sync.Map // map[string]*executionContext
	active     int64

	llmConfig         *config.LLMConfig
	outputsDir        string
	codegenSystem     string
	generationTimeout time.Duration
}

// executionContext holds the cancellable context for a single generation
type executionContext struct {
	ctx        context.Context
	cancelFunc context.CancelFunc
	startedAt  time.Time
}

// ManagerOptions bundles the manager's collaborators.
type ManagerOptions struct {
	EventBus ports.EventBus
	Storage  ports.StateStorage
	Catalog  ports.Catalog
	Metrics  ports.MetricsCollector
	Renderer ports.Renderer
	Clients  map[domain.Model]ports.LLMClient
	Logger   *zap.Logger

	LLM               *config.LLMConfig
	OutputsDir        string
	GenerationTimeout time.Duration
}

// NewManager creates a new pipeline manager
func NewManager(opts ManagerOptions) (*Manager, error) {
	patterns, err := prompts.LoadPatterns(opts.LLM.PatternsFile)
	if err != nil {
		return nil, fmt.Errorf("failed to load animation patterns: %w", err)
	}

	return &Manager{
		eventBus:          opts.EventBus,
		storage:           opts.Storage,
		catalog:           opts.Catalog,
		metrics:           opts.Metrics,
		renderer:          opts.Renderer,
		clients:           opts.Clients,
		logger:            opts.Logger,
		llmConfig:         opts.LLM,
		outputsDir:        opts.OutputsDir,
		codegenSystem:     prompts.CodegenSystemWith(patterns),
		generationTimeout: opts.GenerationTimeout,
	}, nil
}

// Submit validates a prompt and queues a generation for execution.
func (m *Manager) Submit(ctx context.Context, prompt string, model domain.Model) (*domain.Generation, error) {
	prompt = strings.TrimSpace(prompt)
	if len(prompt) < minPromptLength {
		return nil, fmt.Errorf("prompt must be at least %d characters", minPromptLength)
	}
	if !model.Valid() {
		return nil, fmt.Errorf("unsupported model: %s", model)
	}
	if _, ok := m.clients[model]; !ok {
		return nil, fmt.Errorf("model %s is not configured", model)
	}

	gen := &domain.Generation{
		ID:          uuid.New().String(),
		Prompt:      prompt,
		Model:       model,
		Status:      domain.StatusPending,
		SubmittedAt: time.Now(),
	}

	if err := m.storage.Save(ctx, gen); err != nil {
		m.logger.Error("failed to save generation",
			zap.String("generation_id", gen.ID),
			zap.Error(err))
		return nil, fmt.Errorf("failed to save generation: %w", err)
	}

	// The execution context must exist before the submission event goes
	// out: a subscriber may pick the generation up during Publish.
	execCtx, cancel := context.WithTimeout(context.Background(), m.generationTimeout)
	m.executions.Store(gen.ID, &executionContext{
		ctx:        execCtx,
		cancelFunc: cancel,
		startedAt:  time.Now(),
	})

	if err := m.publishEvent(ctx, domain.EventTypeGenerationSubmitted, gen.ID, map[string]interface{}{
		"model": string(model),
	}); err != nil {
		if val, ok := m.executions.LoadAndDelete(gen.ID); ok {
			val.(*executionContext).cancelFunc()
		}
		return nil, fmt.Errorf("failed to publish event: %w", err)
	}

	m.metrics.RecordGenerationSubmitted(string(model))
	m.metrics.SetActiveGenerations(int(atomic.AddInt64(&m.active, 1)))
	m.logger.Info("generation submitted",
		zap.String("generation_id", gen.ID),
		zap.String("model", string(model)))

	go m.monitorExecution(execCtx, gen.ID)

	return gen, nil
}

// GetStatus retrieves the current state of a generation. Generations that
// have aged out of live storage fall back to the catalog.
func (m *Manager) GetStatus(ctx context.Context, id string) (*domain.Generation, error) {
	gen, err := m.storage.Get(ctx, id)
	if err == nil {
		return gen, nil
	}
	if err != domain.ErrNotFound {
		return nil, fmt.Errorf("failed to get generation: %w", err)
	}
	return m.catalog.Get(ctx, id)
}

// List returns catalog entries newest first.
func (m *Manager) List(ctx context.Context, limit, offset int) ([]*domain.Generation, error) {
	return m.catalog.List(ctx, limit, offset)
}

// Cancel aborts a running generation. Cancelling kills the in-flight stage,
// including a running Manim process.
func (m *Manager) Cancel(ctx context.Context, id string) error {
	gen, err := m.storage.Get(ctx, id)
	if err != nil {
		return err
	}
	if gen.Status.Terminal() {
		return fmt.Errorf("generation already %s", gen.Status)
	}

	if val, ok := m.executions.Load(id); ok {
		val.(*executionContext).cancelFunc()
	}

	now := time.Now()
	gen.Status = domain.StatusCancelled
	gen.CompletedAt = &now
	if err := m.saveIfActive(ctx, gen); err != nil {
		return fmt.Errorf("failed to save generation: %w", err)
	}
	if err := m.catalog.Record(ctx, gen); err != nil {
		m.logger.Error("failed to record cancelled generation",
			zap.String("generation_id", id),
			zap.Error(err))
	}

	if err := m.publishEvent(ctx, domain.EventTypeGenerationCancelled, id, nil); err != nil {
		m.logger.Error("failed to publish cancellation event",
			zap.String("generation_id", id),
			zap.Error(err))
	}

	m.logger.Info("generation cancelled", zap.String("generation_id", id))
	return nil
}

// Shutdown cancels every in-flight generation.
func (m *Manager) Shutdown() {
	m.executions.Range(func(key, val interface{}) bool {
		val.(*executionContext).cancelFunc()
		return true
	})
}

// monitorExecution waits out a generation and marks it failed on timeout.
func (m *Manager) monitorExecution(ctx context.Context, id string) {
	ticker := time.NewTicker(10 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			if ctx.Err() == context.DeadlineExceeded {
				m.handleTimeout(id)
			}
			if _, ok := m.executions.LoadAndDelete(id); ok {
				m.metrics.SetActiveGenerations(int(atomic.AddInt64(&m.active, -1)))
			}
			return

		case <-ticker.C:
			gen, err := m.storage.Get(context.Background(), id)
			if err != nil {
				m.logger.Error("failed to get generation during monitoring",
					zap.String("generation_id", id),
					zap.Error(err))
				continue
			}
			if gen.Status.Terminal() {
				if val, ok := m.executions.LoadAndDelete(id); ok {
					val.(*executionContext).cancelFunc()
					m.metrics.SetActiveGenerations(int(atomic.AddInt64(&m.active, -1)))
				}
				return
			}
		}
	}
}

func (m *Manager) handleTimeout(id string) {
	m.logger.Warn("generation timed out", zap.String("generation_id", id))

	ctx := context.Background()
	gen, err := m.storage.Get(ctx, id)
	if err != nil {
		m.logger.Error("failed to get generation during timeout",
			zap.String("generation_id", id),
			zap.Error(err))
		return
	}
	if gen.Status.Terminal() {
		return
	}

	m.markFailed(ctx, gen, "generation timeout")
}

// saveIfActive persists gen unless its stored state is already terminal. A
// stage save racing a cancellation must never resurrect the generation.
func (m *Manager) saveIfActive(ctx context.Context, gen *domain.Generation) error {
	stored, err := m.storage.Get(ctx, gen.ID)
	if err == nil && stored.Status.Terminal() {
		return fmt.Errorf("generation already %s", stored.Status)
	}
	return m.storage.Save(ctx, gen)
}

func (m *Manager) markFailed(ctx context.Context, gen *domain.Generation, reason string) {
	now := time.Now()
	gen.Status = domain.StatusFailed
	gen.Error = reason
	gen.CompletedAt = &now

	if err := m.saveIfActive(ctx, gen); err != nil {
		m.logger.Warn("skipping failure transition",
			zap.String("generation_id", gen.ID),
			zap.Error(err))
		return
	}
	if err := m.catalog.Record(ctx, gen); err != nil {
		m.logger.Error("failed to record failed generation",
			zap.String("generation_id", gen.ID),
			zap.Error(err))
	}

	m.metrics.RecordGenerationCompleted(string(domain.StatusFailed), now.Sub(gen.SubmittedAt))

	if err := m.publishEvent(ctx, domain.EventTypeGenerationFailed, gen.ID, map[string]interface{}{
		"error": reason,
	}); err != nil {
		m.logger.Error("failed to publish failure event",
			zap.String("generation_id", gen.ID),
			zap.Error(err))
	}
}

func (m *Manager) publishEvent(ctx context.Context, eventType domain.EventType, generationID string, data map[string]interface{}) error {
	return m.eventBus.Publish(ctx, TopicGenerationEvents, domain.Event{
		ID:           uuid.New().String(),
		Type:         eventType,
		GenerationID: generationID,
		Timestamp:    time.Now(),
		Data:         data,
	})
}
