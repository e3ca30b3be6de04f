package questions

import (
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/readlevel/backend/internal/apperr"
)

func TestParse_ValidVariants(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want Type
	}{
		{"multiple choice", `{"type":"multiple_choice","prompt":"Who?","options":["a","b","c"],"correct_index":2}`, TypeMultipleChoice},
		{"multi select", `{"type":"multi_select","prompt":"Which?","options":["a","b","c"],"correct_indices":[0,2]}`, TypeMultiSelect},
		{"short answer", `{"type":"short_answer","prompt":"Name?","accepted_values":["Charlotte"]}`, TypeShortAnswer},
		{"true false", `{"type":"true_false","prompt":"Is it?","correct_answer":false}`, TypeTrueFalse},
		{"extra fields tolerated", `{"type":"true_false","prompt":"Is it?","correct_answer":true,"hint":"maybe"}`, TypeTrueFalse},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			q, err := Parse(json.RawMessage(tt.raw))
			if err != nil {
				t.Fatalf("Parse() error = %v", err)
			}
			if q.Type != tt.want {
				t.Errorf("Type = %q, want %q", q.Type, tt.want)
			}
			if q.Definition == nil {
				t.Error("Definition is nil")
			}
		})
	}
}

func TestParse_Invalid(t *testing.T) {
	tests := []struct {
		name    string
		raw     string
		wantMsg string
	}{
		{"unknown type", `{"type":"essay","prompt":"Discuss"}`, `unknown question type "essay"`},
		{"missing type", `{"prompt":"Who?"}`, `"type"`},
		{"missing prompt", `{"type":"true_false","correct_answer":true}`, `"prompt"`},
		{"blank prompt", `{"type":"true_false","prompt":"  ","correct_answer":true}`, `"prompt"`},
		{"not an object", `["a"]`, "JSON object"},
		{"missing correct index", `{"type":"multiple_choice","prompt":"Who?","options":["a","b"]}`, `"correct_index"`},
		{"wrong typed index", `{"type":"multiple_choice","prompt":"Who?","options":["a","b"],"correct_index":"1"}`, `"correct_index" must be an integer`},
		{"index out of range", `{"type":"multiple_choice","prompt":"Who?","options":["a","b"],"correct_index":2}`, "out of range"},
		{"negative index", `{"type":"multiple_choice","prompt":"Who?","options":["a","b"],"correct_index":-1}`, `"correct_index" must be at least 0`},
		{"too few options", `{"type":"multiple_choice","prompt":"Who?","options":["a"],"correct_index":0}`, "at least 2"},
		{"blank option", `{"type":"multiple_choice","prompt":"Who?","options":["a"," "],"correct_index":0}`, "options[1]"},
		{"empty correct set", `{"type":"multi_select","prompt":"Which?","options":["a","b"],"correct_indices":[]}`, `"correct_indices"`},
		{"duplicate correct set", `{"type":"multi_select","prompt":"Which?","options":["a","b"],"correct_indices":[1,1]}`, "duplicates"},
		{"no accepted values", `{"type":"short_answer","prompt":"Name?"}`, `"accepted_values"`},
		{"blank accepted value", `{"type":"short_answer","prompt":"Name?","accepted_values":["\t"]}`, "blank"},
		{"missing bool", `{"type":"true_false","prompt":"Is it?"}`, `"correct_answer"`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateQuestionDefinition(json.RawMessage(tt.raw))
			if err == nil {
				t.Fatal("expected error, got nil")
			}
			if apperr.KindOf(err) != apperr.KindInvalidInput {
				t.Errorf("kind = %v, want invalid_input", apperr.KindOf(err))
			}
			if !strings.Contains(err.Error(), tt.wantMsg) {
				t.Errorf("error %q does not mention %q", err.Error(), tt.wantMsg)
			}
		})
	}
}

func TestValidateAnswer(t *testing.T) {
	mc := mustParse(t, `{"type":"multiple_choice","prompt":"Who?","options":["a","b","c"],"correct_index":1}`)
	ms := mustParse(t, `{"type":"multi_select","prompt":"Which?","options":["a","b","c"],"correct_indices":[0,1]}`)
	sa := mustParse(t, `{"type":"short_answer","prompt":"Name?","accepted_values":["Wilbur"]}`)
	tf := mustParse(t, `{"type":"true_false","prompt":"Is it?","correct_answer":true}`)

	tests := []struct {
		name    string
		q       Question
		answer  string
		wantErr bool
	}{
		{"mc ok", mc, `2`, false},
		{"mc out of range", mc, `3`, true},
		{"mc fractional", mc, `1.5`, true},
		{"mc string", mc, `"1"`, true},
		{"mc null", mc, `null`, true},
		{"ms ok", ms, `[2,0]`, false},
		{"ms empty ok", ms, `[]`, false},
		{"ms duplicate", ms, `[1,1]`, true},
		{"ms out of range", ms, `[5]`, true},
		{"ms scalar", ms, `1`, true},
		{"sa ok", sa, `"wilbur"`, false},
		{"sa number", sa, `7`, true},
		{"tf ok", tf, `false`, false},
		{"tf string", tf, `"true"`, true},
		{"tf empty", tf, ``, true},
	}

	reg := NewDefaultRegistry()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := reg.ValidateAnswer(tt.q, json.RawMessage(tt.answer))
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidateAnswer(%s) error = %v, wantErr %v", tt.answer, err, tt.wantErr)
			}
		})
	}
}

// ordering is a variant defined outside the built-ins to prove the registry
// takes new types without changes to existing ones.
type ordering struct {
	Items []string `json:"items" validate:"required,min=2"`
}

func (o *ordering) Check() error { return nil }
func (o *ordering) ValidateAnswer(answer json.RawMessage) error {
	var got []string
	return decodeAnswer(answer, &got, "an array of items")
}
func (o *ordering) Correctness(answer json.RawMessage) float64 {
	var got []string
	if json.Unmarshal(answer, &got) != nil || len(got) != len(o.Items) {
		return 0
	}
	for i := range got {
		if got[i] != o.Items[i] {
			return 0
		}
	}
	return 1
}
func (o *ordering) Redact() Definition { return &ordering{} }

func TestRegistry_NewVariant(t *testing.T) {
	reg := NewDefaultRegistry()
	raw := json.RawMessage(`{"type":"ordering","prompt":"Order the events","items":["x","y"]}`)

	if _, err := reg.Parse(raw); err == nil {
		t.Fatal("expected unknown type before registration")
	}

	reg.Register("ordering", func() Definition { return &ordering{} })
	q, err := reg.Parse(raw)
	if err != nil {
		t.Fatalf("Parse() after Register error = %v", err)
	}
	if err := reg.ValidateAnswer(q, json.RawMessage(`["x","y"]`)); err != nil {
		t.Errorf("ValidateAnswer() error = %v", err)
	}
	if got := Grade([]Question{q}, []json.RawMessage{json.RawMessage(`["x","y"]`)}); got != 100 {
		t.Errorf("Grade() = %d, want 100", got)
	}

	// the default registry is untouched
	if _, err := Parse(raw); err == nil {
		t.Error("default registry accepted a type registered elsewhere")
	}
}

func TestQuestion_JSONRoundTrip(t *testing.T) {
	q := mustParse(t, `{"type":"multiple_choice","prompt":"Who?","options":["a","b"],"correct_index":1}`)

	data, err := json.Marshal(q)
	if err != nil {
		t.Fatalf("Marshal() error = %v", err)
	}
	var back Question
	if err := json.Unmarshal(data, &back); err != nil {
		t.Fatalf("Unmarshal() error = %v", err)
	}
	if back.Prompt != "Who?" || back.Type != TypeMultipleChoice {
		t.Errorf("round trip lost fields: %+v", back)
	}
	if got := *back.Definition.(*MultipleChoice).CorrectIndex; got != 1 {
		t.Errorf("correct_index = %d, want 1", got)
	}
}

func TestQuestion_Redact(t *testing.T) {
	q := mustParse(t, `{"type":"multiple_choice","prompt":"Who?","options":["a","b"],"correct_index":1}`)

	data, err := json.Marshal(q.Redact())
	if err != nil {
		t.Fatalf("Marshal() error = %v", err)
	}
	if strings.Contains(string(data), "correct_index") {
		t.Errorf("redacted question leaks answer key: %s", data)
	}
	if !strings.Contains(string(data), `"options"`) {
		t.Errorf("redacted question lost options: %s", data)
	}
	// the source question keeps its key
	if q.Definition.(*MultipleChoice).CorrectIndex == nil {
		t.Error("Redact mutated the source question")
	}
}

func TestUnmarshalJSON_RejectsInvalid(t *testing.T) {
	var q Question
	err := json.Unmarshal([]byte(`{"type":"essay","prompt":"x"}`), &q)
	var ae *apperr.Error
	if !errors.As(err, &ae) {
		t.Fatalf("expected *apperr.Error, got %v", err)
	}
}

func mustParse(t *testing.T, raw string) Question {
	t.Helper()
	q, err := Parse(json.RawMessage(raw))
	if err != nil {
		t.Fatalf("Parse(%s) error = %v", raw, err)
	}
	return q
}
