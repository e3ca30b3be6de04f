package models

import (
	"encoding/json"
	"time"

	"github.com/readlevel/backend/internal/questions"
)

// Quiz is generic when BookID is nil, otherwise bound to exactly one book.
type Quiz struct {
	ID          int64                `json:"id"`
	BookID      *int64               `json:"book_id,omitempty"`
	Questions   []questions.Question `json:"questions"`
	DateCreated time.Time            `json:"date_created"`
}

// Redacted returns a copy with every answer key removed.
func (q Quiz) Redacted() Quiz {
	out := q
	out.Questions = make([]questions.Question, len(q.Questions))
	for i, qq := range q.Questions {
		out.Questions[i] = qq.Redact()
	}
	return out
}

// QuizRequest carries raw questions so each can be validated and reported
// on individually.
type QuizRequest struct {
	BookID    *int64            `json:"book_id,omitempty"`
	Questions []json.RawMessage `json:"questions"`
}

type DraftQuizRequest struct {
	Count int `json:"count"`
}
