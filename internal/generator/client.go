package generator

import (
	"context"
	"fmt"
	"time"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/anthropics/anthropic-sdk-go/packages/param"
	"github.com/readlevel/backend/internal/config"
	"github.com/readlevel/backend/internal/models"
	"github.com/readlevel/backend/internal/questions"
	"go.uber.org/zap"
)

// LLMClient is the interface every backend satisfies.
type LLMClient interface {
	Generate(ctx context.Context, systemPrompt string, userPrompt string) (*LLMResponse, error)
}

// LLMResponse holds the raw response content and token usage.
type LLMResponse struct {
	Content      string
	PromptTokens int
	OutputTokens int
}

// Generator drafts quiz questions for a book.
type Generator struct {
	llm      LLMClient
	model    string
	registry *questions.Registry
	verifier *Verifier
	log      *zap.Logger
}

// New picks the LLM backend from cfg.Mode. In mock mode drafts are not
// verified.
func New(cfg config.GeneratorConfig, log *zap.Logger) *Generator {
	var llm LLMClient
	model := "mock"

	switch cfg.Mode {
	case "cli":
		llm = NewCLIClient(cfg.CLIPath, log)
		model = "claude-cli"
		log.Info("generator using Claude CLI", zap.String("path", cfg.CLIPath))
	case "api":
		model = cfg.Model
		llm = NewAPIClient(cfg.APIKey, model, log)
		log.Info("generator using Anthropic API", zap.String("model", model))
	default:
		llm = NewMockClient()
		log.Info("generator using mock data")
	}

	g := NewWithClient(llm, model, log)
	if cfg.Mode != "mock" {
		g.verifier = NewVerifier(llm, log)
	}
	return g
}

// NewWithClient builds a generator around an existing client, without
// verification.
func NewWithClient(llm LLMClient, model string, log *zap.Logger) *Generator {
	return &Generator{llm: llm, model: model, registry: questions.Default(), log: log}
}

// WithVerifier enables answer-key verification of drafts.
func (g *Generator) WithVerifier(v *Verifier) *Generator {
	g.verifier = v
	return g
}

func (g *Generator) ModelName() string {
	return g.model
}

// DraftQuiz asks the model for count questions about book. Questions that
// fail registry validation are dropped and reported in Rejected; the draft
// is not stored.
func (g *Generator) DraftQuiz(ctx context.Context, book models.Book, count int) (*DraftResult, error) {
	start := time.Now()

	resp, err := g.llm.Generate(ctx, QuizSystemPrompt(), BuildQuizUserPrompt(book, count, g.registry.Types()))
	if err != nil {
		return nil, fmt.Errorf("draft quiz: %w", err)
	}

	draft, err := ParseResponse(resp.Content)
	if err != nil {
		return nil, fmt.Errorf("parse draft: %w", err)
	}

	accepted, rejected := ValidateDraft(g.registry, draft)
	checkPromptDiversity(g.log, accepted)

	result := &DraftResult{
		BookID:       book.ID,
		Questions:    accepted,
		Rejected:     rejected,
		Model:        g.model,
		PromptTokens: resp.PromptTokens,
		OutputTokens: resp.OutputTokens,
	}

	if g.verifier != nil && len(accepted) > 0 {
		v, err := g.verifier.VerifyDraft(ctx, book, accepted)
		if err != nil {
			g.log.Warn("draft verification failed, returning unverified draft", zap.Error(err))
		} else {
			result.Verification = v
			result.PromptTokens += v.PromptTokens
			result.OutputTokens += v.OutputTokens
		}
	}

	result.QualityScore = ComputeQualityScore(len(accepted), len(draft.Questions), typeVariety(accepted), result.Verification)
	result.Quality = ClassifyQuality(result.QualityScore)

	g.log.Info("quiz drafted",
		zap.Int64("book_id", book.ID),
		zap.Int("requested", count),
		zap.Int("accepted", len(accepted)),
		zap.Int("rejected", len(rejected)),
		zap.String("quality", result.Quality),
		zap.Duration("elapsed", time.Since(start)),
	)
	return result, nil
}

// ── APIClient (Anthropic SDK) ───────────────────────────

type APIClient struct {
	client *anthropic.Client
	model  string
	log    *zap.Logger
}

func NewAPIClient(apiKey, model string, log *zap.Logger) *APIClient {
	client := anthropic.NewClient(
		option.WithAPIKey(apiKey),
	)
	return &APIClient{client: &client, model: model, log: log}
}

func (c *APIClient) Generate(ctx context.Context, systemPrompt string, userPrompt string) (*LLMResponse, error) {
	params := anthropic.MessageNewParams{
		Model:       anthropic.Model(c.model),
		MaxTokens:   4096,
		Temperature: param.NewOpt(0.7),
		System: []anthropic.TextBlockParam{
			{Text: systemPrompt},
		},
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(userPrompt)),
		},
	}

	message, err := c.callWithRetry(ctx, params)
	if err != nil {
		return nil, err
	}

	var responseText string
	for _, block := range message.Content {
		if block.Type == "text" {
			responseText = block.Text
			break
		}
	}

	if responseText == "" {
		return nil, fmt.Errorf("no text content in API response")
	}

	return &LLMResponse{
		Content:      responseText,
		PromptTokens: int(message.Usage.InputTokens),
		OutputTokens: int(message.Usage.OutputTokens),
	}, nil
}

func (c *APIClient) callWithRetry(ctx context.Context, params anthropic.MessageNewParams) (*anthropic.Message, error) {
	var lastErr error
	for attempt := 0; attempt < 2; attempt++ {
		if attempt > 0 {
			sleepDuration := time.Duration(1<<uint(attempt)) * time.Second
			c.log.Warn("retrying Anthropic API call", zap.Duration("backoff", sleepDuration), zap.Int("attempt", attempt+1))
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(sleepDuration):
			}
		}

		message, err := c.client.Messages.New(ctx, params)
		if err == nil {
			return message, nil
		}
		lastErr = err
		c.log.Warn("Anthropic API attempt failed", zap.Int("attempt", attempt+1), zap.Error(err))
	}
	return nil, fmt.Errorf("anthropic API failed after retries: %w", lastErr)
}
