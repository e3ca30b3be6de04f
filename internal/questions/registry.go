package questions

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"reflect"
	"sort"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"
	"github.com/readlevel/backend/internal/apperr"
)

// Factory returns a fresh, empty definition to decode into. It must return
// a pointer.
type Factory func() Definition

// Registry maps a type tag to its variant. Variants are independent of each
// other; adding one never touches the others.
type Registry struct {
	mu        sync.RWMutex
	factories map[Type]Factory
}

func NewRegistry() *Registry {
	return &Registry{factories: map[Type]Factory{}}
}

// NewDefaultRegistry returns a registry with the built-in variants.
func NewDefaultRegistry() *Registry {
	r := NewRegistry()
	r.Register(TypeMultipleChoice, func() Definition { return &MultipleChoice{} })
	r.Register(TypeMultiSelect, func() Definition { return &MultiSelect{} })
	r.Register(TypeShortAnswer, func() Definition { return &ShortAnswer{} })
	r.Register(TypeTrueFalse, func() Definition { return &TrueFalse{} })
	return r
}

var defaultRegistry = NewDefaultRegistry()

// Default returns the process-wide registry. Stored quizzes decode through
// it, so authoring and grading must use it too.
func Default() *Registry {
	return defaultRegistry
}

// Register adds a variant to the default registry.
func Register(t Type, f Factory) {
	defaultRegistry.Register(t, f)
}

// Parse decodes and validates a question with the default registry.
func Parse(raw json.RawMessage) (Question, error) {
	return defaultRegistry.Parse(raw)
}

// ValidateAnswer checks answer for q with the default registry.
func ValidateAnswer(q Question, answer json.RawMessage) error {
	return defaultRegistry.ValidateAnswer(q, answer)
}

// ValidateQuestionDefinition returns nil for a valid question, or an
// InvalidInput error describing the first problem.
func ValidateQuestionDefinition(raw json.RawMessage) error {
	_, err := defaultRegistry.Parse(raw)
	return err
}

func (r *Registry) Register(t Type, f Factory) {
	if t == "" || f == nil {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.factories[t] = f
}

func (r *Registry) lookup(t Type) (Factory, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	f, ok := r.factories[t]
	return f, ok
}

// Types lists the registered tags in sorted order.
func (r *Registry) Types() []Type {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Type, 0, len(r.factories))
	for t := range r.factories {
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

func (r *Registry) Parse(raw json.RawMessage) (Question, error) {
	var env struct {
		Type   *string `json:"type"`
		Prompt *string `json:"prompt"`
	}
	if err := json.Unmarshal(raw, &env); err != nil {
		return Question{}, decodeError(err)
	}
	if env.Type == nil || *env.Type == "" {
		return Question{}, apperr.InvalidInput("missing required field \"type\"")
	}
	t := Type(*env.Type)
	factory, ok := r.lookup(t)
	if !ok {
		return Question{}, apperr.InvalidInput("unknown question type %q (supported: %s)", t, joinTypes(r.Types()))
	}
	if env.Prompt == nil || strings.TrimSpace(*env.Prompt) == "" {
		return Question{}, apperr.InvalidInput("missing required field \"prompt\"")
	}

	def := factory()
	if err := json.Unmarshal(raw, def); err != nil {
		return Question{}, decodeError(err)
	}
	if err := validate.Struct(def); err != nil {
		return Question{}, fieldError(t, err)
	}
	if err := def.Check(); err != nil {
		return Question{}, apperr.InvalidInput("%s: %s", t, err.Error())
	}
	return Question{Type: t, Prompt: *env.Prompt, Definition: def}, nil
}

// ValidateAnswer checks an answer for q, refusing variants this registry
// does not know.
func (r *Registry) ValidateAnswer(q Question, answer json.RawMessage) error {
	if _, ok := r.lookup(q.Type); !ok {
		return apperr.InvalidInput("unknown question type %q", q.Type)
	}
	return q.ValidateAnswer(answer)
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

func fieldError(t Type, err error) error {
	var ves validator.ValidationErrors
	if !errors.As(err, &ves) || len(ves) == 0 {
		return apperr.InvalidInput("%s: %s", t, err.Error())
	}
	fe := ves[0]
	field := fe.Field()
	var msg string
	switch fe.Tag() {
	case "required":
		if strings.Contains(field, "[") {
			msg = fmt.Sprintf("field %q must not be empty", field)
		} else {
			msg = fmt.Sprintf("missing required field %q", field)
		}
	case "min":
		msg = fmt.Sprintf("field %q must have at least %s entries", field, fe.Param())
	case "gte":
		msg = fmt.Sprintf("field %q must be at least %s", field, fe.Param())
	case "unique":
		msg = fmt.Sprintf("field %q must not contain duplicates", field)
	default:
		msg = fmt.Sprintf("field %q is invalid (%s)", field, fe.Tag())
	}
	return apperr.InvalidInput("%s: %s", t, msg)
}

func decodeError(err error) error {
	var te *json.UnmarshalTypeError
	if errors.As(err, &te) {
		if te.Field == "" {
			return apperr.InvalidInput("question must be a JSON object")
		}
		return apperr.InvalidInput("field %q must be %s", te.Field, describeKind(te.Type))
	}
	return apperr.InvalidInput("malformed question: %s", err.Error())
}

func describeKind(t reflect.Type) string {
	for t.Kind() == reflect.Ptr {
		t = t.Elem()
	}
	switch t.Kind() {
	case reflect.Int, reflect.Int64, reflect.Int32:
		return "an integer"
	case reflect.String:
		return "a string"
	case reflect.Bool:
		return "a boolean"
	case reflect.Slice:
		return "an array"
	default:
		return t.String()
	}
}

func joinTypes(ts []Type) string {
	s := make([]string, len(ts))
	for i, t := range ts {
		s[i] = string(t)
	}
	return strings.Join(s, ", ")
}

// decodeAnswer unmarshals a required answer into v.
func decodeAnswer(answer json.RawMessage, v interface{}, want string) error {
	trimmed := bytes.TrimSpace(answer)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return apperr.InvalidInput("answer is required")
	}
	if err := json.Unmarshal(trimmed, v); err != nil {
		return apperr.InvalidInput("answer must be %s", want)
	}
	return nil
}
