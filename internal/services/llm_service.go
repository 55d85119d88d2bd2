package services

import (
	"context"
	"errors"
	"fmt"
	"log"

	"github.com/justsurfingit/agentice/internal/agents"
	"github.com/justsurfingit/agentice/internal/config"
	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/googleai"
	"github.com/tmc/langchaingo/llms/openai"
)

// LLMService completes prompts through a langchaingo model (Gemini or OpenAI).
type LLMService struct {
	Client llms.Model
	// Prompts longer than this are refused. Callers bound their own inputs.
	MaxPromptLength int
}

// NewCompleter builds the completion backend named by cfg.Provider.
func NewCompleter(ctx context.Context, cfg config.LLMConfig) (agents.Completer, error) {
	if cfg.Provider == "vertexai" {
		v, err := NewVertexLLM(ctx, cfg)
		if err != nil {
			return nil, err
		}
		return v, nil
	}
	s, err := NewLLMService(ctx, cfg)
	if err != nil {
		return nil, err
	}
	return s, nil
}

func NewLLMService(ctx context.Context, cfg config.LLMConfig) (*LLMService, error) {
	var (
		model llms.Model
		err   error
	)
	switch cfg.Provider {
	case "googleai":
		if cfg.GeminiAPIKey == "" {
			return nil, errors.New("GEMINI_API_KEY is empty. Did you load the .env file?")
		}
		model, err = googleai.New(ctx,
			googleai.WithAPIKey(cfg.GeminiAPIKey),
			googleai.WithDefaultModel(cfg.Model),
		)
	case "openai":
		if cfg.OpenAIAPIKey == "" {
			return nil, errors.New("OPENAI_API_KEY is empty")
		}
		model, err = openai.New(
			openai.WithToken(cfg.OpenAIAPIKey),
			openai.WithModel(cfg.Model),
		)
	default:
		return nil, fmt.Errorf("unsupported llm provider %q", cfg.Provider)
	}
	if err != nil {
		return nil, fmt.Errorf("create %s client: %w", cfg.Provider, err)
	}

	log.Printf("🤖 LLM ready (%s, %s)", cfg.Provider, cfg.Model)
	return &LLMService{Client: model, MaxPromptLength: cfg.MaxPromptLength}, nil
}

var ErrPromptTooLong = errors.New("prompt exceeds the configured maximum length")

func (s *LLMService) Complete(ctx context.Context, prompt string) (string, error) {
	if s.MaxPromptLength > 0 && len(prompt) > s.MaxPromptLength {
		return "", fmt.Errorf("%w: %d > %d bytes", ErrPromptTooLong, len(prompt), s.MaxPromptLength)
	}
	return llms.GenerateFromSinglePrompt(ctx, s.Client, prompt)
}
