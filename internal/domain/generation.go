package domain

import (
	"errors"
	"time"
)

// ErrNotFound is returned by storage lookups for unknown generation IDs.
var ErrNotFound = errors.New("generation not found")

// Status represents the lifecycle state of a generation.
type Status string

const (
	StatusPending    Status = "pending"
	StatusEnhancing  Status = "enhancing"
	StatusScripting  Status = "scripting"
	StatusGenerating Status = "generating"
	StatusRendering  Status = "rendering"
	StatusCompleted  Status = "completed"
	StatusFailed     Status = "failed"
	StatusCancelled  Status = "cancelled"
)

// Terminal reports whether the status is a final state.
func (s Status) Terminal() bool {
	return s == StatusCompleted || s == StatusFailed || s == StatusCancelled
}

// Model identifies which LLM backend produces the animation code.
type Model string

const (
	ModelClaude Model = "claude"
	ModelGroq   Model = "groq"
)

// Valid reports whether the model name is one the service supports.
func (m Model) Valid() bool {
	return m == ModelClaude || m == ModelGroq
}

// Generation is the live state of one prompt-to-video run.
type Generation struct {
	ID             string  `json:"id"`
	Prompt         string  `json:"prompt"`
	EnhancedPrompt string  `json:"enhanced_prompt,omitempty"`
	Model          Model   `json:"model"`
	Status         Status  `json:"status"`
	Error          string  `json:"error,omitempty"`

	VideoPath     string `json:"video_path,omitempty"`
	ScriptPath    string `json:"script_path,omitempty"`
	NarrationPath string `json:"narration_path,omitempty"`

	SubmittedAt time.Time  `json:"submitted_at"`
	StartedAt   *time.Time `json:"started_at,omitempty"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
}
