package quizzes

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/lib/pq"
	"github.com/readlevel/backend/internal/apperr"
	"github.com/readlevel/backend/internal/models"
	"github.com/readlevel/backend/internal/questions"
)

const uniqueViolation = "23505"

type Store struct {
	db *sql.DB
}

func NewStore(db *sql.DB) *Store {
	return &Store{db: db}
}

// ── Quizzes ─────────────────────────────────────────────

const quizColumns = `id, book_id, questions, date_created`

func scanQuiz(row interface{ Scan(...interface{}) error }) (*models.Quiz, error) {
	var q models.Quiz
	var bookID sql.NullInt64
	var raw []byte
	if err := row.Scan(&q.ID, &bookID, &raw, &q.DateCreated); err != nil {
		return nil, err
	}
	if bookID.Valid {
		id := bookID.Int64
		q.BookID = &id
	}
	if err := json.Unmarshal(raw, &q.Questions); err != nil {
		return nil, fmt.Errorf("decode questions of quiz %d: %w", q.ID, err)
	}
	return &q, nil
}

func encodeQuestions(qs []questions.Question) ([]byte, error) {
	data, err := json.Marshal(qs)
	if err != nil {
		return nil, fmt.Errorf("encode questions: %w", err)
	}
	return data, nil
}

func (s *Store) CreateQuiz(ctx context.Context, q *models.Quiz) error {
	data, err := encodeQuestions(q.Questions)
	if err != nil {
		return err
	}
	err = s.db.QueryRowContext(ctx,
		`INSERT INTO quizzes (book_id, questions) VALUES ($1, $2)
		 RETURNING id, date_created`,
		nullableID(q.BookID), data,
	).Scan(&q.ID, &q.DateCreated)
	if err != nil {
		return fmt.Errorf("create quiz: %w", err)
	}
	return nil
}

func (s *Store) GetQuiz(ctx context.Context, id int64) (*models.Quiz, error) {
	q, err := scanQuiz(s.db.QueryRowContext(ctx,
		`SELECT `+quizColumns+` FROM quizzes WHERE id = $1`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperr.NotFound("quiz %d not found", id)
	}
	if err != nil {
		return nil, fmt.Errorf("get quiz: %w", err)
	}
	return q, nil
}

// GetQuizForBook returns the newest quiz bound to bookID.
func (s *Store) GetQuizForBook(ctx context.Context, bookID int64) (*models.Quiz, error) {
	q, err := scanQuiz(s.db.QueryRowContext(ctx,
		`SELECT `+quizColumns+` FROM quizzes WHERE book_id = $1
		 ORDER BY date_created DESC, id DESC LIMIT 1`, bookID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperr.NotFound("no quiz for book %d", bookID)
	}
	if err != nil {
		return nil, fmt.Errorf("get quiz for book: %w", err)
	}
	return q, nil
}

// GetGenericQuiz returns the newest quiz not bound to any book.
func (s *Store) GetGenericQuiz(ctx context.Context) (*models.Quiz, error) {
	q, err := scanQuiz(s.db.QueryRowContext(ctx,
		`SELECT `+quizColumns+` FROM quizzes WHERE book_id IS NULL
		 ORDER BY date_created DESC, id DESC LIMIT 1`))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperr.NotFound("no generic quiz available")
	}
	if err != nil {
		return nil, fmt.Errorf("get generic quiz: %w", err)
	}
	return q, nil
}

func (s *Store) ListQuizzes(ctx context.Context) ([]models.Quiz, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+quizColumns+` FROM quizzes ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("list quizzes: %w", err)
	}
	defer rows.Close()

	var out []models.Quiz
	for rows.Next() {
		q, err := scanQuiz(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *q)
	}
	return out, rows.Err()
}

// UpdateQuiz replaces the book binding and questions of an existing quiz.
func (s *Store) UpdateQuiz(ctx context.Context, q *models.Quiz) error {
	data, err := encodeQuestions(q.Questions)
	if err != nil {
		return err
	}
	err = s.db.QueryRowContext(ctx,
		`UPDATE quizzes SET book_id = $1, questions = $2 WHERE id = $3
		 RETURNING date_created`,
		nullableID(q.BookID), data, q.ID,
	).Scan(&q.DateCreated)
	if errors.Is(err, sql.ErrNoRows) {
		return apperr.NotModified("quiz %d no longer exists", q.ID)
	}
	if err != nil {
		return fmt.Errorf("update quiz: %w", err)
	}
	return nil
}

func (s *Store) DeleteQuiz(ctx context.Context, id int64) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM quizzes WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete quiz: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return apperr.NotModified("quiz %d no longer exists", id)
	}
	return nil
}

// ── Submissions ─────────────────────────────────────────

const submissionColumns = `id, quiz_id, student_id, book_id, attempt, answers, score, passed, comprehension, date_created`

func scanSubmission(row interface{ Scan(...interface{}) error }) (*models.QuizSubmission, error) {
	var sub models.QuizSubmission
	var raw []byte
	var comprehension sql.NullInt64
	err := row.Scan(&sub.ID, &sub.QuizID, &sub.StudentID, &sub.BookID, &sub.Attempt,
		&raw, &sub.Score, &sub.Passed, &comprehension, &sub.DateCreated)
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal(raw, &sub.Answers); err != nil {
		return nil, fmt.Errorf("decode answers of submission %d: %w", sub.ID, err)
	}
	if comprehension.Valid {
		c := int(comprehension.Int64)
		sub.Comprehension = &c
	}
	return &sub, nil
}

// CreateSubmission inserts a graded submission. A concurrent submission that
// already took the same attempt number is reported as a policy violation.
func (s *Store) CreateSubmission(ctx context.Context, sub *models.QuizSubmission) error {
	answers, err := json.Marshal(sub.Answers)
	if err != nil {
		return fmt.Errorf("encode answers: %w", err)
	}
	err = s.db.QueryRowContext(ctx,
		`INSERT INTO quiz_submissions (quiz_id, student_id, book_id, attempt, answers, score, passed, date_created)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		 RETURNING id`,
		sub.QuizID, sub.StudentID, sub.BookID, sub.Attempt, answers, sub.Score, sub.Passed, sub.DateCreated,
	).Scan(&sub.ID)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == uniqueViolation {
			return apperr.Policy(apperr.ReasonConcurrentAttempt,
				"attempt %d for book %d was already recorded by a concurrent submission", sub.Attempt, sub.BookID)
		}
		return fmt.Errorf("create submission: %w", err)
	}
	return nil
}

func (s *Store) GetSubmission(ctx context.Context, id int64) (*models.QuizSubmission, error) {
	sub, err := scanSubmission(s.db.QueryRowContext(ctx,
		`SELECT `+submissionColumns+` FROM quiz_submissions WHERE id = $1`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperr.NotFound("submission %d not found", id)
	}
	if err != nil {
		return nil, fmt.Errorf("get submission: %w", err)
	}
	return sub, nil
}

// ListSubmissionsForStudent returns every submission by the student, newest
// first.
func (s *Store) ListSubmissionsForStudent(ctx context.Context, studentID int64) ([]models.QuizSubmission, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+submissionColumns+` FROM quiz_submissions WHERE student_id = $1
		 ORDER BY date_created DESC, id DESC`, studentID)
	if err != nil {
		return nil, fmt.Errorf("list submissions: %w", err)
	}
	defer rows.Close()

	var out []models.QuizSubmission
	for rows.Next() {
		sub, err := scanSubmission(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *sub)
	}
	return out, rows.Err()
}

// SetComprehension records the rating only if none is set yet.
func (s *Store) SetComprehension(ctx context.Context, id int64, comprehension int) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE quiz_submissions SET comprehension = $1 WHERE id = $2 AND comprehension IS NULL`,
		comprehension, id)
	if err != nil {
		return fmt.Errorf("set comprehension: %w", err)
	}
	if n, _ := res.RowsAffected(); n > 0 {
		return nil
	}

	var exists bool
	if err := s.db.QueryRowContext(ctx,
		`SELECT EXISTS (SELECT 1 FROM quiz_submissions WHERE id = $1)`, id).Scan(&exists); err != nil {
		return fmt.Errorf("check submission: %w", err)
	}
	if !exists {
		return apperr.NotModified("submission %d no longer exists", id)
	}
	return apperr.Policy(apperr.ReasonComprehensionSet, "comprehension for submission %d is already set", id)
}

// ClearComprehension undoes SetComprehension, but only while the stored
// rating is still the one that was set.
func (s *Store) ClearComprehension(ctx context.Context, id int64, comprehension int) error {
	_, err := s.db.ExecContext(ctx,
		`UPDATE quiz_submissions SET comprehension = NULL WHERE id = $1 AND comprehension = $2`,
		id, comprehension)
	if err != nil {
		return fmt.Errorf("clear comprehension: %w", err)
	}
	return nil
}

func (s *Store) PassedBookIDs(ctx context.Context, studentID int64) (map[int64]bool, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT DISTINCT book_id FROM quiz_submissions WHERE student_id = $1 AND passed`, studentID)
	if err != nil {
		return nil, fmt.Errorf("passed books: %w", err)
	}
	defer rows.Close()

	passed := map[int64]bool{}
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		passed[id] = true
	}
	return passed, rows.Err()
}

func nullableID(id *int64) interface{} {
	if id == nil {
		return nil
	}
	return *id
}
