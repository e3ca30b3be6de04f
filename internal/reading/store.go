package reading

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/readlevel/backend/internal/models"
)

// Store persists book reviews.
type Store struct {
	db *sql.DB
}

func NewStore(db *sql.DB) *Store {
	return &Store{db: db}
}

func (s *Store) CreateReview(ctx context.Context, r *models.BookReview) error {
	err := s.db.QueryRowContext(ctx,
		`INSERT INTO book_reviews (student_id, book_id, book_lexile_measure, comprehension, date_submitted)
		 VALUES ($1, $2, $3, $4, $5)
		 RETURNING id`,
		r.StudentID, r.BookID, r.BookLexileMeasure, r.Comprehension, r.DateSubmitted,
	).Scan(&r.ID)
	if err != nil {
		return fmt.Errorf("create review: %w", err)
	}
	return nil
}

// ListReviews returns the student's reviews, newest first.
func (s *Store) ListReviews(ctx context.Context, studentID int64) ([]models.BookReview, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, student_id, book_id, book_lexile_measure, comprehension, date_submitted
		 FROM book_reviews WHERE student_id = $1
		 ORDER BY date_submitted DESC, id DESC`,
		studentID,
	)
	if err != nil {
		return nil, fmt.Errorf("list reviews: %w", err)
	}
	defer rows.Close()

	var reviews []models.BookReview
	for rows.Next() {
		var r models.BookReview
		if err := rows.Scan(&r.ID, &r.StudentID, &r.BookID, &r.BookLexileMeasure, &r.Comprehension, &r.DateSubmitted); err != nil {
			return nil, fmt.Errorf("scan review: %w", err)
		}
		reviews = append(reviews, r)
	}
	return reviews, rows.Err()
}
