package generator

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/readlevel/backend/internal/questions"
	"go.uber.org/zap"
)

// Draft is the raw model output: one JSON object per question.
type Draft struct {
	Questions []json.RawMessage `json:"questions"`
}

// DraftResult is a validated draft, ready for an admin to review and save
// as a quiz.
type DraftResult struct {
	BookID       int64                `json:"book_id"`
	Questions    []questions.Question `json:"questions"`
	Rejected     []string             `json:"rejected,omitempty"`
	Verification *Verification        `json:"verification,omitempty"`
	QualityScore float64              `json:"quality_score"`
	Quality      string               `json:"quality"`
	Model        string               `json:"model"`
	PromptTokens int                  `json:"prompt_tokens"`
	OutputTokens int                  `json:"output_tokens"`
}

type ValidationError struct {
	Errors []string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation failed: %s", strings.Join(e.Errors, "; "))
}

func ParseResponse(responseBody string) (*Draft, error) {
	cleaned := stripCodeFences(responseBody)

	var draft Draft
	if err := json.Unmarshal([]byte(cleaned), &draft); err != nil {
		return nil, fmt.Errorf("failed to parse JSON response: %w", err)
	}
	if len(draft.Questions) == 0 {
		return nil, &ValidationError{Errors: []string{"no questions in draft"}}
	}
	return &draft, nil
}

func stripCodeFences(s string) string {
	s = strings.TrimSpace(s)
	if strings.HasPrefix(s, "```json") {
		s = strings.TrimPrefix(s, "```json")
		s = strings.TrimSpace(s)
	} else if strings.HasPrefix(s, "```") {
		s = strings.TrimPrefix(s, "```")
		s = strings.TrimSpace(s)
	}
	if strings.HasSuffix(s, "```") {
		s = strings.TrimSuffix(s, "```")
		s = strings.TrimSpace(s)
	}
	return s
}

// ValidateDraft parses every drafted question through reg. Invalid ones are
// described in rejected, numbered from 1.
func ValidateDraft(reg *questions.Registry, draft *Draft) (accepted []questions.Question, rejected []string) {
	accepted = []questions.Question{}
	for i, raw := range draft.Questions {
		q, err := reg.Parse(raw)
		if err != nil {
			rejected = append(rejected, fmt.Sprintf("question %d: %s", i+1, err.Error()))
			continue
		}
		accepted = append(accepted, q)
	}
	return accepted, rejected
}

// checkPromptDiversity warns if any two prompts share >60% keyword overlap.
func checkPromptDiversity(log *zap.Logger, qs []questions.Question) {
	if len(qs) < 2 {
		return
	}

	tokenSets := make([]map[string]bool, len(qs))
	for i, q := range qs {
		tokenSets[i] = tokenize(q.Prompt)
	}

	for i := 0; i < len(qs); i++ {
		for j := i + 1; j < len(qs); j++ {
			overlap := jaccardSimilarity(tokenSets[i], tokenSets[j])
			if overlap > 0.60 {
				log.Warn("drafted prompts overlap",
					zap.Int("first", i+1),
					zap.Int("second", j+1),
					zap.Float64("overlap", overlap),
				)
			}
		}
	}
}

func tokenize(s string) map[string]bool {
	tokens := make(map[string]bool)
	for _, word := range strings.Fields(strings.ToLower(s)) {
		// Skip very short words (articles, prepositions)
		if len(word) > 3 {
			tokens[word] = true
		}
	}
	return tokens
}

func jaccardSimilarity(a, b map[string]bool) float64 {
	if len(a) == 0 && len(b) == 0 {
		return 0
	}

	intersection := 0
	for k := range a {
		if b[k] {
			intersection++
		}
	}

	union := len(a) + len(b) - intersection
	if union == 0 {
		return 0
	}

	return float64(intersection) / float64(union)
}
