package questions

import (
	"encoding/json"
	"fmt"
)

// Type tags a question variant.
type Type string

const (
	TypeMultipleChoice Type = "multiple_choice"
	TypeMultiSelect    Type = "multi_select"
	TypeShortAnswer    Type = "short_answer"
	TypeTrueFalse      Type = "true_false"
)

// Definition is the type-specific part of a question: its own fields, the
// shape of a valid answer and how that answer is marked.
type Definition interface {
	// Check enforces the rules struct tags cannot express, such as an index
	// that must fall inside the option list.
	Check() error
	// ValidateAnswer reports whether answer has the shape this variant accepts.
	ValidateAnswer(answer json.RawMessage) error
	// Correctness returns 1 for a correct answer and 0 otherwise. The answer
	// must already have passed ValidateAnswer.
	Correctness(answer json.RawMessage) float64
	// Redact returns a copy without the correct-answer fields.
	Redact() Definition
}

// Question is a single quiz item. On the wire the variant fields sit next to
// type and prompt in one flat object.
type Question struct {
	Type       Type
	Prompt     string
	Definition Definition
}

// Redact returns the question as a student may see it.
func (q Question) Redact() Question {
	if q.Definition != nil {
		q.Definition = q.Definition.Redact()
	}
	return q
}

// ValidateAnswer checks answer against the question's own variant.
func (q Question) ValidateAnswer(answer json.RawMessage) error {
	if q.Definition == nil {
		return fmt.Errorf("question %q has no definition", q.Prompt)
	}
	return q.Definition.ValidateAnswer(answer)
}

func (q Question) MarshalJSON() ([]byte, error) {
	fields := map[string]json.RawMessage{}
	if q.Definition != nil {
		raw, err := json.Marshal(q.Definition)
		if err != nil {
			return nil, err
		}
		if err := json.Unmarshal(raw, &fields); err != nil {
			return nil, err
		}
	}
	t, err := json.Marshal(q.Type)
	if err != nil {
		return nil, err
	}
	p, err := json.Marshal(q.Prompt)
	if err != nil {
		return nil, err
	}
	fields["type"] = t
	fields["prompt"] = p
	return json.Marshal(fields)
}

// UnmarshalJSON parses and validates through the default registry.
func (q *Question) UnmarshalJSON(data []byte) error {
	parsed, err := Parse(data)
	if err != nil {
		return err
	}
	*q = parsed
	return nil
}
