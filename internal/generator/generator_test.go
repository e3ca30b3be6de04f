package generator

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/readlevel/backend/internal/config"
	"github.com/readlevel/backend/internal/models"
	"github.com/readlevel/backend/internal/questions"
	"go.uber.org/zap"
)

var charlotte = models.Book{
	ID:            3,
	Title:         "Charlotte's Web",
	Author:        "E. B. White",
	LexileMeasure: 680,
	Genres:        []string{"classics", "fantasy"},
}

func TestStripCodeFences(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"```json\n{\"a\":1}\n```", `{"a":1}`},
		{"```\n{\"a\":1}\n```", `{"a":1}`},
		{"  {\"a\":1}  ", `{"a":1}`},
	}
	for _, tt := range tests {
		if got := stripCodeFences(tt.in); got != tt.want {
			t.Errorf("stripCodeFences(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestParseResponse(t *testing.T) {
	if _, err := ParseResponse("not json"); err == nil {
		t.Error("expected error for malformed response")
	}

	_, err := ParseResponse(`{"questions":[]}`)
	var ve *ValidationError
	if !errors.As(err, &ve) {
		t.Errorf("empty draft error = %v, want *ValidationError", err)
	}

	d, err := ParseResponse("```json\n{\"questions\":[{\"type\":\"true_false\"}]}\n```")
	if err != nil {
		t.Fatalf("ParseResponse() error = %v", err)
	}
	if len(d.Questions) != 1 {
		t.Errorf("got %d questions", len(d.Questions))
	}
}

func TestValidateDraft(t *testing.T) {
	draft := &Draft{Questions: []json.RawMessage{
		json.RawMessage(`{"type":"true_false","prompt":"Wilbur is a pig.","correct_answer":true}`),
		json.RawMessage(`{"type":"essay","prompt":"Discuss."}`),
		json.RawMessage(`{"type":"multiple_choice","prompt":"Who?","options":["a","b"],"correct_index":4}`),
	}}
	accepted, rejected := ValidateDraft(questions.NewDefaultRegistry(), draft)
	if len(accepted) != 1 {
		t.Errorf("accepted %d, want 1", len(accepted))
	}
	if len(rejected) != 2 {
		t.Fatalf("rejected = %v", rejected)
	}
	if !strings.HasPrefix(rejected[0], "question 2:") || !strings.HasPrefix(rejected[1], "question 3:") {
		t.Errorf("rejected not numbered by position: %v", rejected)
	}
}

func TestBuildQuizUserPrompt(t *testing.T) {
	prompt := BuildQuizUserPrompt(charlotte, 6, questions.NewDefaultRegistry().Types())

	required := []string{"Write 6 quiz questions", "Charlotte's Web", "E. B. White", "680L", "fantasy",
		"correct_index", "correct_indices", "accepted_values", "correct_answer"}
	for _, keyword := range required {
		if !strings.Contains(prompt, keyword) {
			t.Errorf("user prompt missing %q", keyword)
		}
	}

	onlyTF := BuildQuizUserPrompt(charlotte, 3, []questions.Type{questions.TypeTrueFalse})
	if strings.Contains(onlyTF, "correct_index") {
		t.Error("prompt lists a type that was not requested")
	}
}

func TestQuizSystemPrompt(t *testing.T) {
	prompt := QuizSystemPrompt()
	for _, keyword := range []string{"JSON", "multiple_choice", "short_answer", "Never reveal the answer"} {
		if !strings.Contains(prompt, keyword) {
			t.Errorf("system prompt missing %q", keyword)
		}
	}
}

func TestDraftQuiz_Mock(t *testing.T) {
	g := New(config.GeneratorConfig{Mode: "mock"}, zap.NewNop())
	if g.ModelName() != "mock" {
		t.Errorf("ModelName() = %q", g.ModelName())
	}

	result, err := g.DraftQuiz(context.Background(), charlotte, 6)
	if err != nil {
		t.Fatalf("DraftQuiz() error = %v", err)
	}
	if len(result.Questions) != 6 || len(result.Rejected) != 0 {
		t.Errorf("accepted %d, rejected %v", len(result.Questions), result.Rejected)
	}
	if result.Verification != nil {
		t.Error("mock drafts should not be verified")
	}
	if result.BookID != charlotte.ID {
		t.Errorf("BookID = %d", result.BookID)
	}
	// all valid, unverified, four types: 0.4 + 0.2 + 0.2
	if result.QualityScore < 0.79 || result.QualityScore > 0.81 {
		t.Errorf("QualityScore = %v, want 0.8", result.QualityScore)
	}
	if result.Quality != "passed" {
		t.Errorf("Quality = %q", result.Quality)
	}
}

// scriptedLLM returns the draft for the first call and verification answers
// for the rest, in order.
type scriptedLLM struct {
	draft   string
	answers []string
	calls   int
}

func (s *scriptedLLM) Generate(ctx context.Context, systemPrompt, userPrompt string) (*LLMResponse, error) {
	s.calls++
	if systemPrompt == quizSystemPrompt {
		return &LLMResponse{Content: s.draft, PromptTokens: 100, OutputTokens: 200}, nil
	}
	if len(s.answers) == 0 {
		return nil, errors.New("no scripted answer")
	}
	a := s.answers[0]
	s.answers = s.answers[1:]
	return &LLMResponse{Content: a, PromptTokens: 10, OutputTokens: 5}, nil
}

func TestDraftQuiz_Verified(t *testing.T) {
	llm := &scriptedLLM{
		draft: `{"questions":[
			{"type":"multiple_choice","prompt":"Who saves Wilbur?","options":["Fern","Charlotte","Templeton","Zuckerman"],"correct_index":1},
			{"type":"short_answer","prompt":"What word does Charlotte weave first?","accepted_values":["Some Pig"]},
			{"type":"true_false","prompt":"Templeton is a rat.","correct_answer":true}
		]}`,
		answers: []string{
			`{"answer":1,"confidence":"high"}`,
			"```json\n{\"answer\":\"some pig\",\"confidence\":\"medium\"}\n```",
			`{"answer":false,"confidence":"low"}`,
		},
	}
	g := NewWithClient(llm, "scripted", zap.NewNop()).WithVerifier(NewVerifier(llm, zap.NewNop()))

	result, err := g.DraftQuiz(context.Background(), charlotte, 3)
	if err != nil {
		t.Fatalf("DraftQuiz() error = %v", err)
	}
	v := result.Verification
	if v == nil {
		t.Fatal("draft was not verified")
	}
	if v.Checked != 3 || v.Agreed != 2 {
		t.Errorf("checked %d agreed %d, want 3 and 2", v.Checked, v.Agreed)
	}
	if v.Results[2].Matches {
		t.Error("wrong true/false answer marked as matching")
	}
	if result.PromptTokens != 130 || result.OutputTokens != 215 {
		t.Errorf("tokens = %d/%d", result.PromptTokens, result.OutputTokens)
	}
	if llm.calls != 4 {
		t.Errorf("LLM calls = %d, want 4", llm.calls)
	}
}

func TestVerifier_BadAnswerShape(t *testing.T) {
	llm := &scriptedLLM{answers: []string{`{"answer":"two","confidence":"high"}`, `garbage`}}
	q, err := questions.Parse(json.RawMessage(`{"type":"multiple_choice","prompt":"Who?","options":["a","b"],"correct_index":1}`))
	if err != nil {
		t.Fatal(err)
	}

	v, err := NewVerifier(llm, zap.NewNop()).VerifyDraft(context.Background(), charlotte, []questions.Question{q, q})
	if err != nil {
		t.Fatalf("VerifyDraft() error = %v", err)
	}
	if v.Agreed != 0 || v.Checked != 2 {
		t.Errorf("agreed %d checked %d", v.Agreed, v.Checked)
	}
	for i, r := range v.Results {
		if r.Error == "" {
			t.Errorf("result %d has no error", i)
		}
	}
}

func TestComputeQualityScore(t *testing.T) {
	tests := []struct {
		name     string
		accepted int
		drafted  int
		variety  int
		v        *Verification
		want     string
	}{
		{"perfect verified", 5, 5, 4, &Verification{Checked: 5, Agreed: 5}, "passed"},
		{"one invalid unverified", 3, 4, 1, nil, "flagged"},
		{"model disagrees", 4, 4, 1, &Verification{Checked: 4, Agreed: 0}, "reject"},
		{"nothing drafted", 0, 0, 0, nil, "reject"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			score := ComputeQualityScore(tt.accepted, tt.drafted, tt.variety, tt.v)
			if got := ClassifyQuality(score); got != tt.want {
				t.Errorf("score %.2f classified %q, want %q", score, got, tt.want)
			}
		})
	}
}

func TestJaccardSimilarity(t *testing.T) {
	a := tokenize("Which character saves Wilbur from the farm")
	b := tokenize("Which character saves Wilbur from the fair")
	if s := jaccardSimilarity(a, b); s <= 0.6 {
		t.Errorf("similar prompts scored %v", s)
	}
	if s := jaccardSimilarity(map[string]bool{}, map[string]bool{}); s != 0 {
		t.Errorf("empty sets scored %v", s)
	}
}

func TestGenerator_UsesDefaultRegistry(t *testing.T) {
	g := NewWithClient(NewMockClient(), "mock", zap.NewNop())
	if g.registry != questions.Default() {
		t.Error("generator validates drafts against a private registry")
	}
}
