// Package llm backs the orchestrator's model-dependent decision points
// (answer generation, relevance grading, query rewriting) with a langchaingo
// model. The provider is chosen by configuration; the orchestrator never
// learns which one answered.
package llm

import (
	"context"
	"fmt"
	"strings"

	"github.com/pkg/errors"
	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/googleai"
	"github.com/tmc/langchaingo/llms/ollama"
	"github.com/tmc/langchaingo/llms/openai"
)

// Supported provider names.
const (
	ProviderOpenAI   = "openai"
	ProviderGoogleAI = "googleai"
	ProviderOllama   = "ollama"
)

// Config selects and parameterizes the model provider.
type Config struct {
	Provider    string
	Model       string
	APIKey      string
	BaseURL     string // optional OpenAI-compatible endpoint (Groq, OpenRouter, ...)
	Temperature float64
	MaxTokens   int
}

const (
	defaultTemperature = 0.2
	defaultMaxTokens   = 512
)

const generatePrompt = `You are a product assistant. Only return the direct, final answer to the user's question, without explanations or alternative suggestions.

User Question: %s
Context: %s

Final Answer:
`

const gradePrompt = `You are a grader. Question: %s
Docs: %s

Are the docs relevant to the question? Answer yes or no.`

const rewritePrompt = `You are a helpful assistant that rewrites user queries to make them more specific and clear for product searches.

Original query: %s

Rewrite the query in one line. Only return the rewritten query - no explanations, no examples, and no lists.`

// Oracle implements the orchestrator's model boundary.
type Oracle struct {
	model       llms.Model
	temperature float64
	maxTokens   int
}

// New builds an Oracle for the configured provider. Missing credentials for
// a provider that needs them are a startup error, never a mid-turn one.
func New(ctx context.Context, cfg Config) (*Oracle, error) {
	if cfg.Model == "" {
		return nil, errors.New("llm: model name is required")
	}

	var (
		model llms.Model
		err   error
	)
	switch cfg.Provider {
	case ProviderOpenAI:
		if cfg.APIKey == "" {
			return nil, errors.New("llm: api key is required for openai")
		}
		opts := []openai.Option{openai.WithModel(cfg.Model), openai.WithToken(cfg.APIKey)}
		if cfg.BaseURL != "" {
			opts = append(opts, openai.WithBaseURL(cfg.BaseURL))
		}
		model, err = openai.New(opts...)
	case ProviderGoogleAI:
		if cfg.APIKey == "" {
			return nil, errors.New("llm: api key is required for googleai")
		}
		model, err = googleai.New(ctx, googleai.WithAPIKey(cfg.APIKey), googleai.WithDefaultModel(cfg.Model))
	case ProviderOllama:
		opts := []ollama.Option{ollama.WithModel(cfg.Model)}
		if cfg.BaseURL != "" {
			opts = append(opts, ollama.WithServerURL(cfg.BaseURL))
		}
		model, err = ollama.New(opts...)
	default:
		return nil, errors.Errorf("llm: unknown provider %q", cfg.Provider)
	}
	if err != nil {
		return nil, errors.Wrapf(err, "init %s", cfg.Provider)
	}
	return NewWithModel(model, cfg), nil
}

// NewWithModel wraps an existing model; tests pass deterministic fakes.
func NewWithModel(model llms.Model, cfg Config) *Oracle {
	o := &Oracle{model: model, temperature: cfg.Temperature, maxTokens: cfg.MaxTokens}
	if o.temperature == 0 {
		o.temperature = defaultTemperature
	}
	if o.maxTokens == 0 {
		o.maxTokens = defaultMaxTokens
	}
	return o
}

func (o *Oracle) complete(ctx context.Context, prompt string) (string, error) {
	out, err := llms.GenerateFromSinglePrompt(ctx, o.model, prompt,
		llms.WithTemperature(o.temperature),
		llms.WithMaxTokens(o.maxTokens),
	)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(out), nil
}

// Generate produces the final answer from question and retrieved context.
func (o *Oracle) Generate(ctx context.Context, question, docs string) (string, error) {
	return o.complete(ctx, fmt.Sprintf(generatePrompt, question, docs))
}

// Grade asks the model the binary relevance question.
func (o *Oracle) Grade(ctx context.Context, question, docs string) (bool, error) {
	out, err := o.complete(ctx, fmt.Sprintf(gradePrompt, question, docs))
	if err != nil {
		return false, err
	}
	return strings.Contains(strings.ToLower(out), "yes"), nil
}

// Rewrite reformulates the question into a clearer search query.
func (o *Oracle) Rewrite(ctx context.Context, question string) (string, error) {
	return o.complete(ctx, fmt.Sprintf(rewritePrompt, question))
}
