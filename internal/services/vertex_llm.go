package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"cloud.google.com/go/vertexai/genai"
	"github.com/justsurfingit/agentice/internal/config"
)

// VertexLLM completes prompts with Gemini on Vertex AI.
type VertexLLM struct {
	client *genai.Client
	model  *genai.GenerativeModel
}

func NewVertexLLM(ctx context.Context, cfg config.LLMConfig) (*VertexLLM, error) {
	if cfg.GCPProject == "" {
		return nil, errors.New("GOOGLE_CLOUD_PROJECT environment variable not set")
	}

	client, err := genai.NewClient(ctx, cfg.GCPProject, cfg.GCPLocation)
	if err != nil {
		return nil, fmt.Errorf("failed to create Vertex AI client: %w", err)
	}

	model := client.GenerativeModel(cfg.Model)
	model.SetTemperature(0.2)
	model.SetMaxOutputTokens(2048)

	return &VertexLLM{client: client, model: model}, nil
}

func (v *VertexLLM) Complete(ctx context.Context, prompt string) (string, error) {
	resp, err := v.model.GenerateContent(ctx, genai.Text(prompt))
	if err != nil {
		return "", fmt.Errorf("failed to generate content: %w", err)
	}
	if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return "", errors.New("no response candidates returned")
	}

	var sb strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if text, ok := part.(genai.Text); ok {
			sb.WriteString(string(text))
		}
	}
	return sb.String(), nil
}

func (v *VertexLLM) Close() error {
	return v.client.Close()
}
