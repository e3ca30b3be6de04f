package models

import (
	"encoding/json"
	"time"
)

type QuizSubmission struct {
	ID        int64             `json:"id"`
	QuizID    int64             `json:"quiz_id"`
	StudentID int64             `json:"student_id"`
	BookID    int64             `json:"book_id"`
	Attempt   int               `json:"attempt"`
	Answers   []json.RawMessage `json:"answers"`
	Score     int               `json:"score"`
	Passed    bool              `json:"passed"`
	// Comprehension is the student's 1-5 self rating, set once after grading.
	Comprehension *int      `json:"comprehension,omitempty"`
	DateCreated   time.Time `json:"date_created"`
}

type SubmitQuizRequest struct {
	StudentID int64             `json:"student_id"`
	BookID    int64             `json:"book_id"`
	QuizID    int64             `json:"quiz_id"`
	Answers   []json.RawMessage `json:"answers"`
}

type ComprehensionRequest struct {
	Comprehension int `json:"comprehension"`
}

const (
	MinComprehension = 1
	MaxComprehension = 5
)
