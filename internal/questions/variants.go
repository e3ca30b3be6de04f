package questions

import (
	"encoding/json"
	"fmt"
	"strings"
)

// MultipleChoice has exactly one correct option.
type MultipleChoice struct {
	Options      []string `json:"options" validate:"required,min=2,dive,required"`
	CorrectIndex *int     `json:"correct_index,omitempty" validate:"required,gte=0"`
}

func (m *MultipleChoice) Check() error {
	if err := checkOptions(m.Options); err != nil {
		return err
	}
	if *m.CorrectIndex >= len(m.Options) {
		return fmt.Errorf("correct_index %d is out of range for %d options", *m.CorrectIndex, len(m.Options))
	}
	return nil
}

func (m *MultipleChoice) ValidateAnswer(answer json.RawMessage) error {
	var idx int
	if err := decodeAnswer(answer, &idx, "an option index"); err != nil {
		return err
	}
	return checkIndex(idx, len(m.Options))
}

func (m *MultipleChoice) Correctness(answer json.RawMessage) float64 {
	var idx int
	if m.CorrectIndex == nil || json.Unmarshal(answer, &idx) != nil {
		return 0
	}
	if idx == *m.CorrectIndex {
		return 1
	}
	return 0
}

func (m *MultipleChoice) Redact() Definition {
	return &MultipleChoice{Options: m.Options}
}

// MultiSelect is marked by exact set match: every correct option and
// nothing else. There is no partial credit.
type MultiSelect struct {
	Options        []string `json:"options" validate:"required,min=2,dive,required"`
	CorrectIndices []int    `json:"correct_indices,omitempty" validate:"required,min=1,unique,dive,gte=0"`
}

func (m *MultiSelect) Check() error {
	if err := checkOptions(m.Options); err != nil {
		return err
	}
	for _, idx := range m.CorrectIndices {
		if idx >= len(m.Options) {
			return fmt.Errorf("correct_indices entry %d is out of range for %d options", idx, len(m.Options))
		}
	}
	return nil
}

func (m *MultiSelect) ValidateAnswer(answer json.RawMessage) error {
	var picked []int
	if err := decodeAnswer(answer, &picked, "an array of option indices"); err != nil {
		return err
	}
	seen := make(map[int]struct{}, len(picked))
	for _, idx := range picked {
		if err := checkIndex(idx, len(m.Options)); err != nil {
			return err
		}
		if _, dup := seen[idx]; dup {
			return fmt.Errorf("option %d selected more than once", idx)
		}
		seen[idx] = struct{}{}
	}
	return nil
}

func (m *MultiSelect) Correctness(answer json.RawMessage) float64 {
	var picked []int
	if len(m.CorrectIndices) == 0 || json.Unmarshal(answer, &picked) != nil {
		return 0
	}
	if sameSet(picked, m.CorrectIndices) {
		return 1
	}
	return 0
}

func (m *MultiSelect) Redact() Definition {
	return &MultiSelect{Options: m.Options}
}

// ShortAnswer accepts free text matching one of the accepted values after
// normalization.
type ShortAnswer struct {
	AcceptedValues []string `json:"accepted_values,omitempty" validate:"required,min=1,dive,required"`
}

func (s *ShortAnswer) Check() error {
	for i, v := range s.AcceptedValues {
		if normalize(v) == "" {
			return fmt.Errorf("accepted_values[%d] must not be blank", i)
		}
	}
	return nil
}

func (s *ShortAnswer) ValidateAnswer(answer json.RawMessage) error {
	var text string
	return decodeAnswer(answer, &text, "a string")
}

func (s *ShortAnswer) Correctness(answer json.RawMessage) float64 {
	var text string
	if json.Unmarshal(answer, &text) != nil {
		return 0
	}
	got := normalize(text)
	for _, v := range s.AcceptedValues {
		if normalize(v) == got {
			return 1
		}
	}
	return 0
}

func (s *ShortAnswer) Redact() Definition {
	return &ShortAnswer{}
}

type TrueFalse struct {
	CorrectAnswer *bool `json:"correct_answer,omitempty" validate:"required"`
}

func (t *TrueFalse) Check() error { return nil }

func (t *TrueFalse) ValidateAnswer(answer json.RawMessage) error {
	var b bool
	return decodeAnswer(answer, &b, "true or false")
}

func (t *TrueFalse) Correctness(answer json.RawMessage) float64 {
	var b bool
	if t.CorrectAnswer == nil || json.Unmarshal(answer, &b) != nil {
		return 0
	}
	if b == *t.CorrectAnswer {
		return 1
	}
	return 0
}

func (t *TrueFalse) Redact() Definition {
	return &TrueFalse{}
}

func checkOptions(options []string) error {
	for i, o := range options {
		if strings.TrimSpace(o) == "" {
			return fmt.Errorf("options[%d] must not be blank", i)
		}
	}
	return nil
}

func checkIndex(idx, n int) error {
	if idx < 0 || idx >= n {
		return fmt.Errorf("option index %d is out of range [0, %d)", idx, n)
	}
	return nil
}

func sameSet(a, b []int) bool {
	as := make(map[int]struct{}, len(a))
	for _, v := range a {
		as[v] = struct{}{}
	}
	bs := make(map[int]struct{}, len(b))
	for _, v := range b {
		bs[v] = struct{}{}
	}
	if len(as) != len(bs) {
		return false
	}
	for k := range as {
		if _, ok := bs[k]; !ok {
			return false
		}
	}
	return true
}

// normalize lower-cases s and collapses whitespace runs to single spaces.
func normalize(s string) string {
	return strings.Join(strings.Fields(strings.ToLower(s)), " ")
}
