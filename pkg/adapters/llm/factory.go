package llm

import (
	"fmt"

	"github.com/promptmotion/manimatic/internal/config"
	"github.com/promptmotion/manimatic/internal/domain"
	"github.com/promptmotion/manimatic/internal/ports"
	"github.com/promptmotion/manimatic/pkg/adapters/llm/anthropic"
	"github.com/promptmotion/manimatic/pkg/adapters/llm/groq"
	"go.uber.org/zap"
)

// NewClient creates the LLM client backing a model choice. A client is only
// available when the matching API key is configured.
func NewClient(model domain.Model, cfg *config.LLMConfig, logger *zap.Logger) (ports.LLMClient, error) {
	switch model {
	case domain.ModelClaude:
		if cfg.AnthropicAPIKey == "" {
			return nil, fmt.Errorf("anthropic API key not configured")
		}
		return anthropic.NewClient(&anthropic.Config{
			APIKey:  cfg.AnthropicAPIKey,
			Model:   cfg.AnthropicModel,
			Timeout: cfg.RequestTimeout,
			Logger:  logger,
		}), nil
	case domain.ModelGroq:
		if cfg.GroqAPIKey == "" {
			return nil, fmt.Errorf("groq API key not configured")
		}
		return groq.NewClient(&groq.Config{
			APIKey:  cfg.GroqAPIKey,
			Model:   cfg.GroqModel,
			Timeout: cfg.RequestTimeout,
			Logger:  logger,
		}), nil
	default:
		return nil, fmt.Errorf("unsupported LLM model: %s", model)
	}
}
