package workers

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/promptmotion/manimatic/internal/application/pipeline"
	"github.com/promptmotion/manimatic/internal/domain"
	"github.com/promptmotion/manimatic/internal/ports"
	"go.uber.org/zap"
)

// Executor runs the generation pipeline for a submitted generation. The
// pipeline manager satisfies this.
type Executor interface {
	Execute(generationID string) error
}

// Pool runs generations picked up from the event bus on a fixed set of
// worker goroutines.
type Pool struct {
	size     int
	eventBus ports.EventBus
	executor Executor
	metrics  ports.MetricsCollector
	logger   *zap.Logger
	health   *HealthMonitor

	jobs    chan string
	workers []*worker
	wg      sync.WaitGroup
	ctx     context.Context
	cancel  context.CancelFunc
}

// worker represents a single worker goroutine
type worker struct {
	id      string
	pool    *Pool
	status  WorkerStatus
	mu      sync.RWMutex
	lastJob time.Time
}

// WorkerStatus represents worker status
type WorkerStatus string

const (
	WorkerStatusIdle    WorkerStatus = "idle"
	WorkerStatusBusy    WorkerStatus = "busy"
	WorkerStatusStopped WorkerStatus = "stopped"
)

// NewPool creates a new worker pool
func NewPool(
	size int,
	eventBus ports.EventBus,
	executor Executor,
	metrics ports.MetricsCollector,
	logger *zap.Logger,
	healthCheckInterval time.Duration,
) *Pool {
	ctx, cancel := context.WithCancel(context.Background())

	pool := &Pool{
		size:     size,
		eventBus: eventBus,
		executor: executor,
		metrics:  metrics,
		logger:   logger,
		jobs:     make(chan string, size*4),
		workers:  make([]*worker, size),
		ctx:      ctx,
		cancel:   cancel,
	}

	pool.health = NewHealthMonitor(pool, healthCheckInterval, logger)

	return pool
}

// Start subscribes to submission events and starts the workers.
func (p *Pool) Start() error {
	p.logger.Info("starting worker pool", zap.Int("size", p.size))

	if err := p.eventBus.Subscribe(p.ctx, pipeline.TopicGenerationEvents, p.handleEvent); err != nil {
		return fmt.Errorf("failed to subscribe to generation events: %w", err)
	}

	for i := 0; i < p.size; i++ {
		w := &worker{
			id:      fmt.Sprintf("worker-%d", i),
			pool:    p,
			status:  WorkerStatusIdle,
			lastJob: time.Now(),
		}
		p.workers[i] = w

		p.wg.Add(1)
		go w.run(p.ctx)
	}

	p.health.Start()

	p.logger.Info("worker pool started", zap.Int("workers", p.size))
	return nil
}

// Shutdown gracefully shuts down the worker pool
func (p *Pool) Shutdown(ctx context.Context) error {
	p.logger.Info("shutting down worker pool")

	p.health.Stop()
	p.cancel()

	done := make(chan struct{})
	go func() {
		p.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		p.logger.Info("worker pool shut down complete")
		return nil
	case <-ctx.Done():
		return fmt.Errorf("shutdown timeout")
	}
}

// GetStatus returns the status of all workers
func (p *Pool) GetStatus() map[string]WorkerStatus {
	status := make(map[string]WorkerStatus)
	for _, w := range p.workers {
		w.mu.RLock()
		status[w.id] = w.status
		w.mu.RUnlock()
	}
	return status
}

// Health exposes the pool's health monitor.
func (p *Pool) Health() *HealthMonitor {
	return p.health
}

// handleEvent enqueues newly submitted generations for execution. Other
// lifecycle events on the topic are ignored.
func (p *Pool) handleEvent(_ context.Context, event domain.Event) error {
	if event.Type != domain.EventTypeGenerationSubmitted {
		return nil
	}

	select {
	case p.jobs <- event.GenerationID:
		return nil
	case <-p.ctx.Done():
		return p.ctx.Err()
	}
}

// run is the main worker loop
func (w *worker) run(ctx context.Context) {
	defer w.pool.wg.Done()

	w.pool.logger.Info("worker started", zap.String("worker_id", w.id))

	for {
		select {
		case <-ctx.Done():
			w.mu.Lock()
			w.status = WorkerStatusStopped
			w.mu.Unlock()
			w.pool.logger.Info("worker stopped", zap.String("worker_id", w.id))
			return

		case generationID := <-w.pool.jobs:
			w.execute(generationID)
		}
	}
}

func (w *worker) execute(generationID string) {
	w.mu.Lock()
	w.status = WorkerStatusBusy
	w.lastJob = time.Now()
	w.mu.Unlock()

	defer func() {
		w.mu.Lock()
		w.status = WorkerStatusIdle
		w.mu.Unlock()
	}()

	w.pool.logger.Info("executing generation",
		zap.String("worker_id", w.id),
		zap.String("generation_id", generationID))

	if err := w.pool.executor.Execute(generationID); err != nil {
		w.pool.logger.Error("generation execution failed",
			zap.String("worker_id", w.id),
			zap.String("generation_id", generationID),
			zap.Error(err))
	}
}
