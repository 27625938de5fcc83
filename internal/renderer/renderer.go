package renderer

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"github.com/promptmotion/manimatic/internal/scene"
	"go.uber.org/zap"
)

// sceneClass is the class name every generated script must define; the
// renderer invokes Manim against it.
const sceneClass = "CustomAnimation"

// Invoker shells out to the Manim CLI to turn generated scene code into an
// mp4, retrying with progressively heavier code repairs when Manim rejects
// the script.
type Invoker struct {
	binary      string
	quality     string
	maxAttempts int
	timeout     time.Duration
	outputsDir  string
	logger      *zap.Logger
}

// Config holds renderer configuration
type Config struct {
	Binary      string
	Quality     string
	MaxAttempts int
	Timeout     time.Duration
	OutputsDir  string
	Logger      *zap.Logger
}

// NewInvoker creates a new Manim invoker
func NewInvoker(cfg *Config) *Invoker {
	quality := cfg.Quality
	if quality == "" {
		quality = "m"
	}
	maxAttempts := cfg.MaxAttempts
	if maxAttempts < 1 {
		maxAttempts = 1
	}
	return &Invoker{
		binary:      cfg.Binary,
		quality:     quality,
		maxAttempts: maxAttempts,
		timeout:     cfg.Timeout,
		outputsDir:  cfg.OutputsDir,
		logger:      cfg.Logger,
	}
}

// Render writes the scene code to disk, runs Manim and returns the path of
// the produced video. Between failed attempts the code is repaired based on
// the error Manim reported; when every attempt fails the last script is kept
// as a debug file next to the outputs.
func (i *Invoker) Render(ctx context.Context, code, generationID string) (string, error) {
	if err := os.MkdirAll(i.outputsDir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create outputs directory: %w", err)
	}

	workDir, err := os.MkdirTemp("", "manimatic-render-")
	if err != nil {
		return "", fmt.Errorf("failed to create work directory: %w", err)
	}
	defer os.RemoveAll(workDir)

	scriptPath := filepath.Join(workDir, fmt.Sprintf("scene_%s.py", generationID))

	var stderr string
	for attempt := 1; attempt <= i.maxAttempts; attempt++ {
		if err := os.WriteFile(scriptPath, []byte(code), 0o644); err != nil {
			return "", fmt.Errorf("failed to write scene script: %w", err)
		}

		i.logger.Info("rendering scene",
			zap.String("generation_id", generationID),
			zap.Int("attempt", attempt),
			zap.Int("max_attempts", i.maxAttempts))

		stderr, err = i.run(ctx, scriptPath, generationID)
		if err == nil {
			videoPath, findErr := i.locateVideo(generationID)
			if findErr != nil {
				return "", findErr
			}
			return videoPath, nil
		}
		if ctx.Err() != nil {
			return "", fmt.Errorf("rendering aborted: %w", ctx.Err())
		}

		i.logger.Warn("manim rendering failed",
			zap.String("generation_id", generationID),
			zap.Int("attempt", attempt),
			zap.Error(err))

		if attempt == i.maxAttempts {
			break
		}
		code = repairFor(code, stderr, attempt == i.maxAttempts-1)
	}

	debugPath := filepath.Join(i.outputsDir, fmt.Sprintf("debug_scene_%s.py", generationID))
	if writeErr := os.WriteFile(debugPath, []byte(code), 0o644); writeErr == nil {
		i.logger.Info("saved failing scene for inspection",
			zap.String("generation_id", generationID),
			zap.String("path", debugPath))
	}

	return "", fmt.Errorf("manim rendering failed after %d attempts: %s", i.maxAttempts, tail(stderr, 2000))
}

// repairFor picks the code repair matching the renderer error. The final
// retry before giving up falls back to the minimal rebuilt scene.
func repairFor(code, stderr string, lastChance bool) string {
	switch {
	case strings.Contains(stderr, "NameError: name 'self' is not defined"):
		return scene.RepairSelfReferences(code)
	case strings.Contains(stderr, "IndentationError") || strings.Contains(stderr, "SyntaxError"):
		if lastChance {
			return scene.LastResortRebuild(code)
		}
		return scene.AggressiveReindent(code, stderr)
	default:
		return code
	}
}

// run executes the Manim CLI for one attempt and returns its stderr.
func (i *Invoker) run(ctx context.Context, scriptPath, generationID string) (string, error) {
	if i.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, i.timeout)
		defer cancel()
	}

	args := []string{
		"-q" + i.quality,
		"--format=mp4",
		"--output_file", generationID,
		"--media_dir", i.outputsDir,
		scriptPath,
		sceneClass,
	}

	cmd := exec.CommandContext(ctx, i.binary, args...)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()

	i.logger.Debug("manim finished",
		zap.String("generation_id", generationID),
		zap.String("stdout", tail(stdout.String(), 1000)),
		zap.String("stderr", tail(stderr.String(), 1000)))

	if err != nil {
		return stderr.String(), fmt.Errorf("manim exited with error: %w", err)
	}
	return stderr.String(), nil
}

// locateVideo finds the rendered mp4 across Manim's media layouts and moves
// it to the flat outputs path.
func (i *Invoker) locateVideo(generationID string) (string, error) {
	final := filepath.Join(i.outputsDir, generationID+".mp4")
	if _, err := os.Stat(final); err == nil {
		return final, nil
	}

	found, err := LocateVideo(i.outputsDir, generationID)
	if err != nil {
		return "", err
	}

	if err := os.Rename(found, final); err != nil {
		// Cross-device moves fall back to copy.
		data, readErr := os.ReadFile(found)
		if readErr != nil {
			return "", fmt.Errorf("failed to move rendered video: %w", err)
		}
		if writeErr := os.WriteFile(final, data, 0o644); writeErr != nil {
			return "", fmt.Errorf("failed to copy rendered video: %w", writeErr)
		}
	}
	return final, nil
}

func tail(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[len(s)-n:]
}
