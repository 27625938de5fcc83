package pipeline

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/promptmotion/manimatic/internal/domain"
	"github.com/promptmotion/manimatic/internal/ports"
	"github.com/promptmotion/manimatic/internal/prompts"
	"github.com/promptmotion/manimatic/internal/scene"
	"go.uber.org/zap"
)

// A completion below this length is a refusal or truncation, not usable
// output. Enforced on every model's responses.
const minResponseLength = 50

// Execute runs the full pipeline for a previously submitted generation.
// Called by the worker pool when it picks up a submission event.
func (m *Manager) Execute(generationID string) error {
	val, ok := m.executions.Load(generationID)
	if !ok {
		return fmt.Errorf("no execution context for generation %s", generationID)
	}
	ctx := val.(*executionContext).ctx

	gen, err := m.storage.Get(ctx, generationID)
	if err != nil {
		return fmt.Errorf("failed to load generation: %w", err)
	}
	if gen.Status != domain.StatusPending {
		m.logger.Debug("skipping generation not in pending state",
			zap.String("generation_id", generationID),
			zap.String("status", string(gen.Status)))
		return nil
	}

	now := time.Now()
	gen.StartedAt = &now
	if err := m.publishEvent(ctx, domain.EventTypeGenerationStarted, generationID, nil); err != nil {
		m.logger.Error("failed to publish start event",
			zap.String("generation_id", generationID),
			zap.Error(err))
	}

	if err := m.run(ctx, gen); err != nil {
		if ctx.Err() == context.Canceled {
			// Cancel already moved the generation to its terminal state.
			m.logger.Info("generation execution aborted",
				zap.String("generation_id", generationID))
			return nil
		}
		m.logger.Error("generation failed",
			zap.String("generation_id", generationID),
			zap.Error(err))
		m.markFailed(context.Background(), gen, err.Error())
		return err
	}

	return nil
}

// run drives the generation through its stages. Every stage transition is
// persisted so clients polling for status see progress.
func (m *Manager) run(ctx context.Context, gen *domain.Generation) error {
	client := m.clients[gen.Model]

	// Stage 1: prompt enhancement. Failure here degrades to the raw
	// prompt instead of failing the generation.
	if err := m.setStage(ctx, gen, domain.StatusEnhancing); err != nil {
		return err
	}
	enhanceStart := time.Now()
	enhanced, err := m.complete(ctx, client, prompts.EnhanceSystem,
		prompts.BuildEnhancement(gen.Prompt), m.llmConfig.EnhanceMaxTokens)
	if err != nil {
		m.logger.Warn("prompt enhancement failed, using original prompt",
			zap.String("generation_id", gen.ID),
			zap.Error(err))
		enhanced = gen.Prompt
	}
	gen.EnhancedPrompt = strings.TrimSpace(enhanced)
	m.metrics.RecordStageDuration("enhance", time.Since(enhanceStart))

	// Stage 2: narration script.
	if err := m.setStage(ctx, gen, domain.StatusScripting); err != nil {
		return err
	}
	narrationStart := time.Now()
	narration, err := m.complete(ctx, client, prompts.NarrationSystem,
		prompts.BuildNarration(gen.EnhancedPrompt), m.llmConfig.NarrationMaxTokens)
	if err != nil {
		return fmt.Errorf("narration generation failed: %w", err)
	}
	narration = strings.TrimSpace(narration)
	narrationPath, err := m.writeArtifact(gen.ID+"_narration.txt", narration)
	if err != nil {
		return err
	}
	gen.NarrationPath = narrationPath
	m.metrics.RecordStageDuration("narration", time.Since(narrationStart))

	// Stage 3: animation code.
	if err := m.setStage(ctx, gen, domain.StatusGenerating); err != nil {
		return err
	}
	codegenStart := time.Now()
	raw, err := m.complete(ctx, client, m.codegenSystem,
		prompts.BuildCodegen(gen.EnhancedPrompt, narration), m.llmConfig.CodeMaxTokens)
	if err != nil {
		return fmt.Errorf("code generation failed: %w", err)
	}

	code, err := scene.Normalize(raw)
	if err != nil {
		return fmt.Errorf("generated code rejected: %w", err)
	}
	code = scene.ImproveQuality(code)

	scriptPath, err := m.writeArtifact(gen.ID+".py", code)
	if err != nil {
		return err
	}
	gen.ScriptPath = scriptPath
	m.metrics.RecordStageDuration("codegen", time.Since(codegenStart))

	// Stage 4: render.
	if err := m.setStage(ctx, gen, domain.StatusRendering); err != nil {
		return err
	}
	renderStart := time.Now()
	videoPath, err := m.renderer.Render(ctx, code, gen.ID)
	renderDuration := time.Since(renderStart)
	m.metrics.RecordRenderAttempt(err == nil, renderDuration)
	m.metrics.RecordStageDuration("render", renderDuration)
	if err != nil {
		return fmt.Errorf("rendering failed: %w", err)
	}
	gen.VideoPath = videoPath

	// Done.
	now := time.Now()
	gen.Status = domain.StatusCompleted
	gen.CompletedAt = &now
	if err := m.saveIfActive(ctx, gen); err != nil {
		return fmt.Errorf("failed to save completed generation: %w", err)
	}
	if err := m.catalog.Record(ctx, gen); err != nil {
		m.logger.Error("failed to record completed generation",
			zap.String("generation_id", gen.ID),
			zap.Error(err))
	}

	m.metrics.RecordGenerationCompleted(string(domain.StatusCompleted), now.Sub(gen.SubmittedAt))

	if err := m.publishEvent(ctx, domain.EventTypeGenerationCompleted, gen.ID, map[string]interface{}{
		"video_path": videoPath,
	}); err != nil {
		m.logger.Error("failed to publish completion event",
			zap.String("generation_id", gen.ID),
			zap.Error(err))
	}

	m.logger.Info("generation completed",
		zap.String("generation_id", gen.ID),
		zap.String("video_path", videoPath),
		zap.Duration("duration", now.Sub(gen.SubmittedAt)))

	return nil
}

// setStage persists a stage transition and announces it on the bus.
func (m *Manager) setStage(ctx context.Context, gen *domain.Generation, status domain.Status) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	gen.Status = status
	if err := m.saveIfActive(ctx, gen); err != nil {
		return fmt.Errorf("failed to save stage %s: %w", status, err)
	}

	if err := m.publishEvent(ctx, domain.EventTypeGenerationStage, gen.ID, map[string]interface{}{
		"stage": string(status),
	}); err != nil {
		m.logger.Error("failed to publish stage event",
			zap.String("generation_id", gen.ID),
			zap.String("stage", string(status)),
			zap.Error(err))
	}

	m.logger.Info("generation stage",
		zap.String("generation_id", gen.ID),
		zap.String("stage", string(status)))

	return nil
}

// complete issues one LLM call with metrics.
func (m *Manager) complete(ctx context.Context, client ports.LLMClient, system, prompt string, maxTokens int) (string, error) {
	start := time.Now()
	resp, err := client.Complete(ctx, &domain.CompletionRequest{
		System:      system,
		Prompt:      prompt,
		MaxTokens:   maxTokens,
		Temperature: m.llmConfig.Temperature,
	})
	if err != nil {
		return "", err
	}
	m.metrics.RecordLLMCall(client.Provider(), resp.Model, time.Since(start),
		resp.InputTokens, resp.OutputTokens)
	if trimmed := strings.TrimSpace(resp.Text); len(trimmed) < minResponseLength {
		return "", fmt.Errorf("%s returned a truncated response (%d chars)", client.Provider(), len(trimmed))
	}
	return resp.Text, nil
}

// writeArtifact stores a text artifact under the outputs directory.
func (m *Manager) writeArtifact(name, content string) (string, error) {
	if err := os.MkdirAll(m.outputsDir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create outputs directory: %w", err)
	}
	path := filepath.Join(m.outputsDir, name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		return "", fmt.Errorf("failed to write %s: %w", name, err)
	}
	return path, nil
}
