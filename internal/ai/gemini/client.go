package gemini

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"google.golang.org/genai"

	"github.com/spigell/talent-sourcer/internal/ai"
)

const (
	defaultModel = "gemini-2.5-flash"

	healthCheckTimeout = 2 * time.Second
	healthCheckTTL     = time.Minute
)

// Generator wraps the Google GenAI client to provide simple prompt-based
// interactions for outreach generation.
type Generator struct {
	client    *genai.Client
	modelName string

	healthMu      sync.Mutex
	healthChecked time.Time
	healthOK      bool
}

// NewGenerator creates a new Generator configured for the Gemini API backend.
func NewGenerator(ctx context.Context, apiKey, model string) (*Generator, error) {
	apiKey = strings.TrimSpace(apiKey)
	if apiKey == "" {
		return nil, errors.New("gemini api key is required")
	}

	cfg := &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	}

	client, err := genai.NewClient(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("create genai client: %w", err)
	}

	if model = strings.TrimSpace(model); model == "" {
		model = defaultModel
	}

	return &Generator{client: client, modelName: model}, nil
}

// GenerateContent sends the prompt to Gemini and returns the first textual
// response. An empty completion is a model-level rejection.
func (g *Generator) GenerateContent(ctx context.Context, prompt string) (string, error) {
	if g == nil || g.client == nil {
		return "", errors.New("gemini generator is not initialized")
	}

	prompt = strings.TrimSpace(prompt)
	if prompt == "" {
		return "", errors.New("prompt must not be empty")
	}

	resp, err := g.client.Models.GenerateContent(ctx, g.modelName, genai.Text(prompt), nil)
	if err != nil {
		return "", fmt.Errorf("generate content: %w", err)
	}

	var builder strings.Builder
	for _, cand := range resp.Candidates {
		if cand == nil || cand.Content == nil {
			continue
		}
		for _, part := range cand.Content.Parts {
			if part == nil {
				continue
			}
			text := strings.TrimSpace(part.Text)
			if text == "" {
				continue
			}
			if builder.Len() > 0 {
				builder.WriteString("\n")
			}
			builder.WriteString(text)
		}
	}

	output := strings.TrimSpace(builder.String())
	if output == "" {
		return "", fmt.Errorf("%w: gemini api returned empty response", ai.ErrRejected)
	}

	return output, nil
}

// Healthy probes the backend with a cheap token-count call. The result is
// cached briefly so per-candidate generation does not re-probe.
func (g *Generator) Healthy(ctx context.Context) bool {
	if g == nil || g.client == nil {
		return false
	}

	g.healthMu.Lock()
	defer g.healthMu.Unlock()

	if time.Since(g.healthChecked) < healthCheckTTL {
		return g.healthOK
	}

	ctx, cancel := context.WithTimeout(ctx, healthCheckTimeout)
	defer cancel()

	_, err := g.client.Models.CountTokens(ctx, g.modelName, genai.Text("ping"), nil)
	g.healthChecked = time.Now()
	g.healthOK = err == nil

	return g.healthOK
}

func (g *Generator) Model() string {
	if g == nil {
		return ""
	}
	return g.modelName
}
