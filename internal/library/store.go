package library

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/lib/pq"
	"github.com/readlevel/backend/internal/apperr"
	"github.com/readlevel/backend/internal/models"
)

// ErrDuplicateEmail is returned by CreateUser when the email is taken.
var ErrDuplicateEmail = errors.New("email already registered")

// ErrDuplicateUsername is returned by CreateUser on a username collision.
var ErrDuplicateUsername = errors.New("username already taken")

type Store struct {
	db *sql.DB
}

func NewStore(db *sql.DB) *Store {
	return &Store{db: db}
}

// ── Users ───────────────────────────────────────────────

const userColumns = `id, email, name, COALESCE(username, ''), password, role,
	initial_lexile, current_lexile, created_at, updated_at`

func scanUser(row interface{ Scan(...interface{}) error }) (*models.User, error) {
	var u models.User
	err := row.Scan(&u.ID, &u.Email, &u.Name, &u.Username, &u.Password, &u.Role,
		&u.InitialLexileMeasure, &u.CurrentLexileMeasure, &u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &u, nil
}

func (s *Store) CreateUser(ctx context.Context, u *models.User) error {
	err := s.db.QueryRowContext(ctx,
		`INSERT INTO users (email, name, username, password, role, initial_lexile, current_lexile)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)
		 RETURNING id, created_at, updated_at`,
		u.Email, u.Name, u.Username, u.Password, u.Role, u.InitialLexileMeasure, u.CurrentLexileMeasure,
	).Scan(&u.ID, &u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == "23505" {
			if strings.Contains(pqErr.Constraint, "username") {
				return ErrDuplicateUsername
			}
			return ErrDuplicateEmail
		}
		return fmt.Errorf("create user: %w", err)
	}
	return nil
}

func (s *Store) GetUser(ctx context.Context, id int64) (*models.User, error) {
	u, err := scanUser(s.db.QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE id = $1`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperr.NotFound("user %d not found", id)
	}
	if err != nil {
		return nil, fmt.Errorf("get user: %w", err)
	}
	return u, nil
}

func (s *Store) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	u, err := scanUser(s.db.QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE email = $1`, email))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperr.NotFound("no user with email %q", email)
	}
	if err != nil {
		return nil, fmt.Errorf("get user by email: %w", err)
	}
	return u, nil
}

func (s *Store) SetCurrentLexile(ctx context.Context, studentID int64, measure float64) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE users SET current_lexile = $1, updated_at = NOW() WHERE id = $2`,
		measure, studentID,
	)
	if err != nil {
		return fmt.Errorf("set current lexile: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return apperr.NotModified("user %d no longer exists", studentID)
	}
	return nil
}

// ── Books ───────────────────────────────────────────────

const bookColumns = `id, title, author, description, lexile_measure, amazon_popularity, genres, created_at`

func scanBook(row interface{ Scan(...interface{}) error }) (*models.Book, error) {
	var b models.Book
	var genres pq.StringArray
	err := row.Scan(&b.ID, &b.Title, &b.Author, &b.Description, &b.LexileMeasure,
		&b.AmazonPopularity, &genres, &b.CreatedAt)
	if err != nil {
		return nil, err
	}
	b.Genres = []string(genres)
	if b.Genres == nil {
		b.Genres = []string{}
	}
	return &b, nil
}

func (s *Store) CreateBook(ctx context.Context, b *models.Book) error {
	err := s.db.QueryRowContext(ctx,
		`INSERT INTO books (title, author, description, lexile_measure, amazon_popularity, genres)
		 VALUES ($1, $2, $3, $4, $5, $6)
		 RETURNING id, created_at`,
		b.Title, b.Author, b.Description, b.LexileMeasure, b.AmazonPopularity, pq.Array(b.Genres),
	).Scan(&b.ID, &b.CreatedAt)
	if err != nil {
		return fmt.Errorf("create book: %w", err)
	}
	return nil
}

func (s *Store) GetBook(ctx context.Context, id int64) (*models.Book, error) {
	b, err := scanBook(s.db.QueryRowContext(ctx,
		`SELECT `+bookColumns+` FROM books WHERE id = $1`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperr.NotFound("book %d not found", id)
	}
	if err != nil {
		return nil, fmt.Errorf("get book: %w", err)
	}
	return b, nil
}

func (s *Store) ListBooks(ctx context.Context) ([]models.Book, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+bookColumns+` FROM books ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("list books: %w", err)
	}
	defer rows.Close()

	var books []models.Book
	for rows.Next() {
		b, err := scanBook(rows)
		if err != nil {
			return nil, fmt.Errorf("scan book: %w", err)
		}
		books = append(books, *b)
	}
	return books, rows.Err()
}

// ── Genre interests ─────────────────────────────────────

func (s *Store) GetGenreInterests(ctx context.Context, studentID int64) (models.GenreInterestMap, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT genre, level FROM student_genre_interests WHERE student_id = $1`, studentID)
	if err != nil {
		return nil, fmt.Errorf("get genre interests: %w", err)
	}
	defer rows.Close()

	interests := models.GenreInterestMap{}
	for rows.Next() {
		var genre string
		var level int
		if err := rows.Scan(&genre, &level); err != nil {
			return nil, fmt.Errorf("scan genre interest: %w", err)
		}
		interests[genre] = level
	}
	return interests, rows.Err()
}

// ReplaceGenreInterests swaps the student's whole interest map in one
// transaction.
func (s *Store) ReplaceGenreInterests(ctx context.Context, studentID int64, interests models.GenreInterestMap) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx,
		`DELETE FROM student_genre_interests WHERE student_id = $1`, studentID); err != nil {
		return fmt.Errorf("clear genre interests: %w", err)
	}
	for genre, level := range interests {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO student_genre_interests (student_id, genre, level) VALUES ($1, $2, $3)`,
			studentID, genre, level); err != nil {
			return fmt.Errorf("insert genre interest: %w", err)
		}
	}
	return tx.Commit()
}
