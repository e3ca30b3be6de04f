package models

import "time"

// BookReview is one comprehension-rated reading of a book. The book's
// lexile is captured at review time.
type BookReview struct {
	ID                int64     `json:"id"`
	StudentID         int64     `json:"student_id"`
	BookID            int64     `json:"book_id"`
	BookLexileMeasure float64   `json:"book_lexile_measure"`
	Comprehension     int       `json:"comprehension"`
	DateSubmitted     time.Time `json:"date_submitted"`
}

type CreateReviewRequest struct {
	BookID        int64 `json:"book_id"`
	Comprehension int   `json:"comprehension"`
}

type LexileResponse struct {
	StudentID            int64   `json:"student_id"`
	InitialLexileMeasure float64 `json:"initial_lexile_measure"`
	CurrentLexileMeasure float64 `json:"current_lexile_measure"`
	ReviewsConsidered    int     `json:"reviews_considered"`
}

type Recommendation struct {
	Book       Book    `json:"book"`
	MatchScore float64 `json:"match_score"`
}

type RecommendationResponse struct {
	StudentID       int64            `json:"student_id"`
	Recommendations []Recommendation `json:"recommendations"`
}
