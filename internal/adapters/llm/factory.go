package llm

import (
	"fmt"
	"strings"

	"github.com/manthysbr/labforge/internal/config"
	"github.com/manthysbr/labforge/internal/core/ports"
)

// Build creates the text generation backend from app configuration.
// It hides provider selection from callers.
func Build(cfg *config.Config) (ports.TextGenerator, error) {
	provider := strings.ToLower(strings.TrimSpace(cfg.LLMProvider))
	switch provider {
	case "", "gemini":
		return NewGeminiProvider(cfg.LLMBaseURL, cfg.LLMModel), nil
	case "openai":
		return NewOpenAIProvider(cfg.LLMBaseURL, cfg.LLMModel), nil
	default:
		return nil, fmt.Errorf("unsupported llm provider: %s", cfg.LLMProvider)
	}
}
