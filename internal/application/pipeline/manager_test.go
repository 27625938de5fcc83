package pipeline

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/promptmotion/manimatic/internal/config"
	"github.com/promptmotion/manimatic/internal/domain"
	"github.com/promptmotion/manimatic/internal/ports"
	eventsmem "github.com/promptmotion/manimatic/pkg/adapters/events/memory"
	"github.com/promptmotion/manimatic/pkg/adapters/metrics"
	storagemem "github.com/promptmotion/manimatic/pkg/adapters/storage/memory"
	"go.uber.org/zap"
)

const validCode = `from manim import *
import numpy as np

class CustomAnimation(Scene):
    def construct(self):
        title = Text("Waves")
        self.play(Write(title))
        self.play(FadeOut(title))
        self.wait(2)
`

// scriptedLLM returns canned responses keyed by a substring of the prompt.
type scriptedLLM struct {
	mu        sync.Mutex
	calls     []string
	enhance   string
	narration string
	code      string
	failOn    string
}

func (s *scriptedLLM) Provider() string { return "scripted" }

func (s *scriptedLLM) Complete(_ context.Context, req *domain.CompletionRequest) (*domain.CompletionResponse, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var kind, text string
	switch {
	case strings.Contains(req.System, "enhancing user prompts"):
		kind, text = "enhance", s.enhance
	case strings.Contains(req.System, "narration scripts"):
		kind, text = "narration", s.narration
	default:
		kind, text = "code", s.code
	}
	s.calls = append(s.calls, kind)

	if s.failOn == kind {
		return nil, fmt.Errorf("scripted %s failure", kind)
	}
	return &domain.CompletionResponse{Text: text, Model: "scripted-model"}, nil
}

type stubRenderer struct {
	mu       sync.Mutex
	rendered []string
	err      error
}

func (r *stubRenderer) Render(ctx context.Context, code, generationID string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	r.mu.Lock()
	r.rendered = append(r.rendered, code)
	r.mu.Unlock()
	if r.err != nil {
		return "", r.err
	}
	return "outputs/" + generationID + ".mp4", nil
}

type memCatalog struct {
	mu    sync.Mutex
	items map[string]*domain.Generation
}

func newMemCatalog() *memCatalog {
	return &memCatalog{items: make(map[string]*domain.Generation)}
}

func (c *memCatalog) Record(_ context.Context, gen *domain.Generation) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	copied := *gen
	c.items[gen.ID] = &copied
	return nil
}

func (c *memCatalog) Get(_ context.Context, id string) (*domain.Generation, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	gen, ok := c.items[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	copied := *gen
	return &copied, nil
}

func (c *memCatalog) List(_ context.Context, limit, offset int) ([]*domain.Generation, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	var gens []*domain.Generation
	for _, gen := range c.items {
		copied := *gen
		gens = append(gens, &copied)
	}
	return gens, nil
}

func (c *memCatalog) Close() error { return nil }

type testHarness struct {
	manager  *Manager
	storage  *storagemem.StateStorage
	catalog  *memCatalog
	llm      *scriptedLLM
	renderer *stubRenderer
}

func newHarness(t *testing.T) *testHarness {
	t.Helper()
	return newHarnessWith(t, eventsmem.NewInMemoryEventBus(), metrics.NewNoop())
}

func newHarnessWith(t *testing.T, bus ports.EventBus, collector ports.MetricsCollector) *testHarness {
	t.Helper()

	llm := &scriptedLLM{
		enhance:   "An animated visualization of sine waves with labeled axes",
		narration: strings.Repeat("The sine wave rises and falls in a smooth periodic motion. ", 3),
		code:      validCode,
	}
	renderer := &stubRenderer{}
	storage := storagemem.NewStateStorage()
	catalog := newMemCatalog()

	manager, err := NewManager(ManagerOptions{
		EventBus: bus,
		Storage:  storage,
		Catalog:  catalog,
		Metrics:  collector,
		Renderer: renderer,
		Clients:  map[domain.Model]ports.LLMClient{domain.ModelClaude: llm},
		Logger:   zap.NewNop(),
		LLM: &config.LLMConfig{
			Temperature:        0.7,
			CodeMaxTokens:      8000,
			NarrationMaxTokens: 4000,
			EnhanceMaxTokens:   1500,
		},
		OutputsDir:        t.TempDir(),
		GenerationTimeout: time.Minute,
	})
	if err != nil {
		t.Fatalf("NewManager: %v", err)
	}
	t.Cleanup(manager.Shutdown)

	return &testHarness{manager: manager, storage: storage, catalog: catalog, llm: llm, renderer: renderer}
}

func TestSubmitValidation(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	cases := []struct {
		name   string
		prompt string
		model  domain.Model
	}{
		{"short prompt", "ab", domain.ModelClaude},
		{"blank prompt", "   ", domain.ModelClaude},
		{"unknown model", "a bouncing ball", domain.Model("gpt")},
		{"unconfigured model", "a bouncing ball", domain.ModelGroq},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := h.manager.Submit(ctx, tc.prompt, tc.model); err == nil {
				t.Fatal("expected submission to be rejected")
			}
		})
	}
}

func TestSubmitCreatesPendingGeneration(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	gen, err := h.manager.Submit(ctx, "a bouncing ball", domain.ModelClaude)
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}
	if gen.ID == "" || gen.Status != domain.StatusPending {
		t.Fatalf("unexpected generation: %+v", gen)
	}

	stored, err := h.manager.GetStatus(ctx, gen.ID)
	if err != nil {
		t.Fatalf("GetStatus: %v", err)
	}
	if stored.Prompt != "a bouncing ball" {
		t.Fatalf("prompt not persisted: %+v", stored)
	}
}

func TestExecuteRunsFullPipeline(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	gen, err := h.manager.Submit(ctx, "sine waves", domain.ModelClaude)
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}

	if err := h.manager.Execute(gen.ID); err != nil {
		t.Fatalf("Execute: %v", err)
	}

	final, err := h.manager.GetStatus(ctx, gen.ID)
	if err != nil {
		t.Fatalf("GetStatus: %v", err)
	}
	if final.Status != domain.StatusCompleted {
		t.Fatalf("status = %s, want completed (error=%q)", final.Status, final.Error)
	}
	if final.EnhancedPrompt == "" || final.VideoPath == "" ||
		final.ScriptPath == "" || final.NarrationPath == "" {
		t.Fatalf("artifacts missing: %+v", final)
	}
	if final.CompletedAt == nil {
		t.Fatal("completed_at not set")
	}

	// Completed runs land in the catalog.
	if _, err := h.catalog.Get(ctx, gen.ID); err != nil {
		t.Fatalf("catalog entry missing: %v", err)
	}

	h.llm.mu.Lock()
	calls := append([]string(nil), h.llm.calls...)
	h.llm.mu.Unlock()
	want := []string{"enhance", "narration", "code"}
	if len(calls) != len(want) {
		t.Fatalf("LLM calls = %v, want %v", calls, want)
	}
	for i := range want {
		if calls[i] != want[i] {
			t.Fatalf("LLM calls = %v, want %v", calls, want)
		}
	}

	// The rendered code is the post-processed form, not the raw response.
	h.renderer.mu.Lock()
	rendered := h.renderer.rendered[0]
	h.renderer.mu.Unlock()
	if !strings.Contains(rendered, "title_region") {
		t.Fatalf("rendered code missing quality pass: %q", rendered)
	}
}

func TestExecuteDegradesWhenEnhancementFails(t *testing.T) {
	h := newHarness(t)
	h.llm.failOn = "enhance"
	ctx := context.Background()

	gen, err := h.manager.Submit(ctx, "a rotating cube", domain.ModelClaude)
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}
	if err := h.manager.Execute(gen.ID); err != nil {
		t.Fatalf("Execute: %v", err)
	}

	final, _ := h.manager.GetStatus(ctx, gen.ID)
	if final.Status != domain.StatusCompleted {
		t.Fatalf("status = %s, want completed", final.Status)
	}
	if final.EnhancedPrompt != "a rotating cube" {
		t.Fatalf("expected fallback to original prompt, got %q", final.EnhancedPrompt)
	}
}

func TestExecuteFailsWhenNarrationFails(t *testing.T) {
	h := newHarness(t)
	h.llm.failOn = "narration"
	ctx := context.Background()

	gen, _ := h.manager.Submit(ctx, "a rotating cube", domain.ModelClaude)
	if err := h.manager.Execute(gen.ID); err == nil {
		t.Fatal("expected Execute to fail")
	}

	final, _ := h.manager.GetStatus(ctx, gen.ID)
	if final.Status != domain.StatusFailed {
		t.Fatalf("status = %s, want failed", final.Status)
	}
	if !strings.Contains(final.Error, "narration") {
		t.Fatalf("error %q does not mention narration", final.Error)
	}
}

func TestExecuteFailsOnShortNarration(t *testing.T) {
	h := newHarness(t)
	h.llm.narration = "too short"
	ctx := context.Background()

	gen, _ := h.manager.Submit(ctx, "a rotating cube", domain.ModelClaude)
	if err := h.manager.Execute(gen.ID); err == nil {
		t.Fatal("expected Execute to fail")
	}

	final, _ := h.manager.GetStatus(ctx, gen.ID)
	if final.Status != domain.StatusFailed {
		t.Fatalf("status = %s, want failed", final.Status)
	}
}

func TestExecuteRejectsLatexCode(t *testing.T) {
	h := newHarness(t)
	h.llm.code = strings.Replace(validCode, `Text("Waves")`, `MathTex(r"\sin x")`, 1)
	ctx := context.Background()

	gen, _ := h.manager.Submit(ctx, "sine formula", domain.ModelClaude)
	if err := h.manager.Execute(gen.ID); err == nil {
		t.Fatal("expected Execute to fail")
	}

	final, _ := h.manager.GetStatus(ctx, gen.ID)
	if final.Status != domain.StatusFailed {
		t.Fatalf("status = %s, want failed", final.Status)
	}
}

func TestExecuteFailsWhenRenderFails(t *testing.T) {
	h := newHarness(t)
	h.renderer.err = fmt.Errorf("manim exploded")
	ctx := context.Background()

	gen, _ := h.manager.Submit(ctx, "a rotating cube", domain.ModelClaude)
	if err := h.manager.Execute(gen.ID); err == nil {
		t.Fatal("expected Execute to fail")
	}

	final, _ := h.manager.GetStatus(ctx, gen.ID)
	if final.Status != domain.StatusFailed || !strings.Contains(final.Error, "rendering failed") {
		t.Fatalf("unexpected final state: %+v", final)
	}
}

func TestCancel(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	gen, err := h.manager.Submit(ctx, "a rotating cube", domain.ModelClaude)
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}

	if err := h.manager.Cancel(ctx, gen.ID); err != nil {
		t.Fatalf("Cancel: %v", err)
	}

	final, _ := h.manager.GetStatus(ctx, gen.ID)
	if final.Status != domain.StatusCancelled {
		t.Fatalf("status = %s, want cancelled", final.Status)
	}

	// Cancelling a terminal generation is rejected.
	if err := h.manager.Cancel(ctx, gen.ID); err == nil {
		t.Fatal("expected second Cancel to fail")
	}

	// Execution after cancellation does not resurrect the generation.
	h.manager.Execute(gen.ID)
	final, _ = h.manager.GetStatus(ctx, gen.ID)
	if final.Status != domain.StatusCancelled {
		t.Fatalf("status = %s after Execute, want cancelled", final.Status)
	}
}

func TestGetStatusUnknown(t *testing.T) {
	h := newHarness(t)

	if _, err := h.manager.GetStatus(context.Background(), "missing"); err == nil {
		t.Fatal("expected error for unknown generation")
	}
}

// syncBus dispatches published events inline, the way a subscriber sharing
// the process can run before Publish returns.
type syncBus struct {
	onPublish func(domain.Event) error
}

func (b *syncBus) Publish(_ context.Context, _ string, event domain.Event) error {
	if b.onPublish != nil {
		return b.onPublish(event)
	}
	return nil
}

func (b *syncBus) Subscribe(context.Context, string, ports.EventHandler) error { return nil }

func (b *syncBus) Close() error { return nil }

func TestSubmitExecutableDuringPublish(t *testing.T) {
	bus := &syncBus{}
	h := newHarnessWith(t, bus, metrics.NewNoop())
	ctx := context.Background()

	// A worker picking the submission up inside Publish must find the
	// execution context already in place.
	var execErr error
	executed := false
	bus.onPublish = func(event domain.Event) error {
		if event.Type == domain.EventTypeGenerationSubmitted {
			executed = true
			execErr = h.manager.Execute(event.GenerationID)
		}
		return nil
	}

	gen, err := h.manager.Submit(ctx, "sine waves", domain.ModelClaude)
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}
	if !executed {
		t.Fatal("submission event was not dispatched")
	}
	if execErr != nil {
		t.Fatalf("Execute during publish: %v", execErr)
	}

	final, _ := h.manager.GetStatus(ctx, gen.ID)
	if final.Status != domain.StatusCompleted {
		t.Fatalf("status = %s, want completed (error=%q)", final.Status, final.Error)
	}
}

type gaugeMetrics struct {
	metrics.Noop
	mu     sync.Mutex
	values []int
}

func (g *gaugeMetrics) SetActiveGenerations(n int) {
	g.mu.Lock()
	g.values = append(g.values, n)
	g.mu.Unlock()
}

func (g *gaugeMetrics) last() (int, bool) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if len(g.values) == 0 {
		return 0, false
	}
	return g.values[len(g.values)-1], true
}

func TestActiveGenerationsGauge(t *testing.T) {
	gauge := &gaugeMetrics{}
	h := newHarnessWith(t, eventsmem.NewInMemoryEventBus(), gauge)
	ctx := context.Background()

	gen, err := h.manager.Submit(ctx, "a rotating cube", domain.ModelClaude)
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}
	if got, ok := gauge.last(); !ok || got != 1 {
		t.Fatalf("gauge after submit = %d (%v), want 1", got, ok)
	}

	if err := h.manager.Cancel(ctx, gen.ID); err != nil {
		t.Fatalf("Cancel: %v", err)
	}

	// The execution monitor releases the slot on cancellation.
	deadline := time.Now().Add(2 * time.Second)
	for {
		if got, ok := gauge.last(); ok && got == 0 {
			break
		}
		if time.Now().After(deadline) {
			got, _ := gauge.last()
			t.Fatalf("gauge after cancel = %d, want 0", got)
		}
		time.Sleep(10 * time.Millisecond)
	}
}

func TestExecuteFailsOnTruncatedCode(t *testing.T) {
	h := newHarness(t)
	h.llm.code = "from manim import *"
	ctx := context.Background()

	gen, _ := h.manager.Submit(ctx, "a rotating cube", domain.ModelClaude)
	if err := h.manager.Execute(gen.ID); err == nil {
		t.Fatal("expected Execute to fail")
	}

	final, _ := h.manager.GetStatus(ctx, gen.ID)
	if final.Status != domain.StatusFailed {
		t.Fatalf("status = %s, want failed", final.Status)
	}
	if !strings.Contains(final.Error, "truncated") {
		t.Fatalf("error %q does not mention truncation", final.Error)
	}
}

func TestTerminalStateIsNotOverwritten(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	gen, err := h.manager.Submit(ctx, "a rotating cube", domain.ModelClaude)
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}
	if err := h.manager.Cancel(ctx, gen.ID); err != nil {
		t.Fatalf("Cancel: %v", err)
	}

	// A stage save that lost the race with Cancel must not resurrect the
	// generation.
	late := *gen
	if err := h.manager.setStage(ctx, &late, domain.StatusRendering); err == nil {
		t.Fatal("expected stage save to be rejected")
	}
	final, _ := h.manager.GetStatus(ctx, gen.ID)
	if final.Status != domain.StatusCancelled {
		t.Fatalf("status = %s after stage save, want cancelled", final.Status)
	}

	// Same for a late failure transition.
	failed := *gen
	h.manager.markFailed(ctx, &failed, "late failure")
	final, _ = h.manager.GetStatus(ctx, gen.ID)
	if final.Status != domain.StatusCancelled {
		t.Fatalf("status = %s after failure transition, want cancelled", final.Status)
	}
}
