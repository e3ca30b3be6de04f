package generator

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/readlevel/backend/internal/models"
	"github.com/readlevel/backend/internal/questions"
	"go.uber.org/zap"
)

// Verifier has the model answer each drafted question blind and compares its
// answer with the drafted key.
type Verifier struct {
	llm LLMClient
	log *zap.Logger
}

func NewVerifier(llm LLMClient, log *zap.Logger) *Verifier {
	return &Verifier{llm: llm, log: log}
}

type QuestionCheck struct {
	Index      int             `json:"index"`
	Answer     json.RawMessage `json:"answer,omitempty"`
	Confidence string          `json:"confidence,omitempty"`
	Matches    bool            `json:"matches"`
	Error      string          `json:"error,omitempty"`
}

type Verification struct {
	Checked      int             `json:"checked"`
	Agreed       int             `json:"agreed"`
	Results      []QuestionCheck `json:"results"`
	PromptTokens int             `json:"-"`
	OutputTokens int             `json:"-"`
}

// AgreementRate is the share of checked questions the model answered in line
// with the drafted key.
func (v *Verification) AgreementRate() float64 {
	if v == nil || v.Checked == 0 {
		return 0
	}
	return float64(v.Agreed) / float64(v.Checked)
}

type verificationResponse struct {
	Answer     json.RawMessage `json:"answer"`
	Confidence string          `json:"confidence"`
}

func (v *Verifier) VerifyDraft(ctx context.Context, book models.Book, qs []questions.Question) (*Verification, error) {
	result := &Verification{Results: make([]QuestionCheck, 0, len(qs))}

	for i, q := range qs {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		check, resp, err := v.verifyQuestion(ctx, book, q)
		if err != nil {
			v.log.Warn("question verification failed", zap.Int("question", i+1), zap.Error(err))
			check = &QuestionCheck{Error: err.Error()}
		}
		check.Index = i
		if resp != nil {
			result.PromptTokens += resp.PromptTokens
			result.OutputTokens += resp.OutputTokens
		}
		result.Checked++
		if check.Matches {
			result.Agreed++
		}
		result.Results = append(result.Results, *check)
	}
	return result, nil
}

func (v *Verifier) verifyQuestion(ctx context.Context, book models.Book, q questions.Question) (*QuestionCheck, *LLMResponse, error) {
	prompt, err := buildVerificationPrompt(book, q)
	if err != nil {
		return nil, nil, err
	}

	resp, err := v.llm.Generate(ctx, verificationSystemPrompt, prompt)
	if err != nil {
		return nil, nil, fmt.Errorf("verification call failed: %w", err)
	}

	var vr verificationResponse
	if err := json.Unmarshal([]byte(stripCodeFences(resp.Content)), &vr); err != nil {
		return nil, resp, fmt.Errorf("failed to parse verification response: %w", err)
	}

	check := &QuestionCheck{Answer: vr.Answer, Confidence: vr.Confidence}
	if err := q.ValidateAnswer(vr.Answer); err != nil {
		check.Error = err.Error()
		return check, resp, nil
	}
	check.Matches = q.Definition.Correctness(vr.Answer) == 1
	return check, resp, nil
}
