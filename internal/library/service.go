package library

import (
	"context"
	"math"
	"sort"
	"strings"

	"github.com/readlevel/backend/internal/apperr"
	"github.com/readlevel/backend/internal/models"
	"go.uber.org/zap"
)

// Repository is the storage the catalog service runs on. *Store implements it.
type Repository interface {
	GetUser(ctx context.Context, id int64) (*models.User, error)
	CreateBook(ctx context.Context, b *models.Book) error
	GetBook(ctx context.Context, id int64) (*models.Book, error)
	ListBooks(ctx context.Context) ([]models.Book, error)
	GetGenreInterests(ctx context.Context, studentID int64) (models.GenreInterestMap, error)
	ReplaceGenreInterests(ctx context.Context, studentID int64, interests models.GenreInterestMap) error
}

type Service struct {
	repo Repository
	log  *zap.Logger
}

func NewService(repo Repository, log *zap.Logger) *Service {
	return &Service{repo: repo, log: log}
}

func (s *Service) ListBooks(ctx context.Context) ([]models.Book, error) {
	books, err := s.repo.ListBooks(ctx)
	if err != nil {
		return nil, err
	}
	if books == nil {
		books = []models.Book{}
	}
	return books, nil
}

func (s *Service) GetBook(ctx context.Context, id int64) (*models.Book, error) {
	return s.repo.GetBook(ctx, id)
}

func (s *Service) CreateBook(ctx context.Context, req models.CreateBookRequest) (*models.Book, error) {
	title := strings.TrimSpace(req.Title)
	if title == "" {
		return nil, apperr.InvalidInput("title is required")
	}
	if math.IsNaN(req.AmazonPopularity) || req.AmazonPopularity < 0 || req.AmazonPopularity > 5 {
		return nil, apperr.InvalidInput("amazon_popularity must be in [0,5], got %v", req.AmazonPopularity)
	}
	if math.IsNaN(req.LexileMeasure) || math.IsInf(req.LexileMeasure, 0) {
		return nil, apperr.InvalidInput("lexile_measure must be a finite number")
	}

	book := &models.Book{
		Title:            title,
		Author:           strings.TrimSpace(req.Author),
		Description:      strings.TrimSpace(req.Description),
		LexileMeasure:    req.LexileMeasure,
		AmazonPopularity: req.AmazonPopularity,
		Genres:           NormalizeGenres(req.Genres),
	}
	if err := s.repo.CreateBook(ctx, book); err != nil {
		return nil, err
	}
	s.log.Info("book created", zap.Int64("book_id", book.ID), zap.Strings("genres", book.Genres))
	return book, nil
}

// GenreInterests returns the student's stored interest levels. Genres the
// student never rated are absent and count as neutral when scoring.
func (s *Service) GenreInterests(ctx context.Context, actor models.Principal, studentID int64) (models.GenreInterestMap, error) {
	if err := s.authorizeStudent(ctx, actor, studentID); err != nil {
		return nil, err
	}
	return s.repo.GetGenreInterests(ctx, studentID)
}

func (s *Service) SetGenreInterests(ctx context.Context, actor models.Principal, studentID int64, interests models.GenreInterestMap) (models.GenreInterestMap, error) {
	if err := s.authorizeStudent(ctx, actor, studentID); err != nil {
		return nil, err
	}

	clean := models.GenreInterestMap{}
	for genre, level := range interests {
		g := normalizeGenre(genre)
		if g == "" {
			return nil, apperr.InvalidInput("genre names must not be blank")
		}
		if level < models.MinGenreInterest || level > models.MaxGenreInterest {
			return nil, apperr.InvalidInput("interest for %q must be in [%d,%d], got %d",
				g, models.MinGenreInterest, models.MaxGenreInterest, level)
		}
		clean[g] = level
	}

	if err := s.repo.ReplaceGenreInterests(ctx, studentID, clean); err != nil {
		return nil, err
	}
	return clean, nil
}

// authorizeStudent checks that actor may act for studentID and that the
// target exists and holds the student role.
func (s *Service) authorizeStudent(ctx context.Context, actor models.Principal, studentID int64) error {
	if !actor.CanActFor(studentID) {
		return apperr.Policy(apperr.ReasonForbidden, "cannot access another student's data")
	}
	user, err := s.repo.GetUser(ctx, studentID)
	if err != nil {
		return err
	}
	if user.Role != models.RoleStudent {
		return apperr.NotFound("student %d not found", studentID)
	}
	return nil
}

// NormalizeGenres lower-cases and trims genre names, dropping blanks and
// duplicates. The result is sorted.
func NormalizeGenres(genres []string) []string {
	seen := map[string]bool{}
	out := []string{}
	for _, g := range genres {
		g = normalizeGenre(g)
		if g == "" || seen[g] {
			continue
		}
		seen[g] = true
		out = append(out, g)
	}
	sort.Strings(out)
	return out
}

func normalizeGenre(g string) string {
	return strings.ToLower(strings.TrimSpace(g))
}
