package reading

import (
	"context"
	"sort"
	"time"

	"github.com/readlevel/backend/internal/apperr"
	"github.com/readlevel/backend/internal/metrics"
	"github.com/readlevel/backend/internal/models"
	"go.uber.org/zap"
)

// Catalog is the user and book lookup the service needs. *library.Store
// implements it.
type Catalog interface {
	GetUser(ctx context.Context, id int64) (*models.User, error)
	GetBook(ctx context.Context, id int64) (*models.Book, error)
	ListBooks(ctx context.Context) ([]models.Book, error)
	GetGenreInterests(ctx context.Context, studentID int64) (models.GenreInterestMap, error)
	SetCurrentLexile(ctx context.Context, studentID int64, measure float64) error
}

type ReviewStore interface {
	CreateReview(ctx context.Context, r *models.BookReview) error
	ListReviews(ctx context.Context, studentID int64) ([]models.BookReview, error)
}

// PassedBooks reports which books a student has already passed a quiz for.
type PassedBooks interface {
	PassedBookIDs(ctx context.Context, studentID int64) (map[int64]bool, error)
}

const (
	DefaultRecommendationLimit = 10
	MaxRecommendationLimit     = 50
)

type Service struct {
	catalog Catalog
	reviews ReviewStore
	passed  PassedBooks
	log     *zap.Logger
	now     func() time.Time
}

func NewService(catalog Catalog, reviews ReviewStore, passed PassedBooks, log *zap.Logger) *Service {
	return &Service{catalog: catalog, reviews: reviews, passed: passed, log: log, now: time.Now}
}

// SubmitReview records a review on behalf of actor and recalibrates the
// student's reading level.
func (s *Service) SubmitReview(ctx context.Context, actor models.Principal, studentID int64, req models.CreateReviewRequest) (*models.LexileResponse, error) {
	if !actor.CanActFor(studentID) {
		return nil, apperr.Policy(apperr.ReasonForbidden, "cannot review on behalf of another student")
	}
	if err := s.RecordReview(ctx, studentID, req.BookID, req.Comprehension); err != nil {
		return nil, err
	}
	return s.lexile(ctx, studentID)
}

// RecordReview stores a comprehension rating for a book, capturing the
// book's current lexile, then recalibrates the student.
func (s *Service) RecordReview(ctx context.Context, studentID, bookID int64, comprehension int) error {
	if comprehension < models.MinComprehension || comprehension > models.MaxComprehension {
		return apperr.InvalidInput("comprehension must be in [%d,%d], got %d",
			models.MinComprehension, models.MaxComprehension, comprehension)
	}
	student, err := s.student(ctx, studentID)
	if err != nil {
		return err
	}
	book, err := s.catalog.GetBook(ctx, bookID)
	if err != nil {
		return err
	}

	review := &models.BookReview{
		StudentID:         student.ID,
		BookID:            book.ID,
		BookLexileMeasure: book.LexileMeasure,
		Comprehension:     comprehension,
		DateSubmitted:     s.now().UTC(),
	}
	if err := s.reviews.CreateReview(ctx, review); err != nil {
		return err
	}
	_, err = s.recalibrate(ctx, student)
	return err
}

func (s *Service) recalibrate(ctx context.Context, student *models.User) (float64, error) {
	reviews, err := s.reviews.ListReviews(ctx, student.ID)
	if err != nil {
		return 0, err
	}
	current := ComputeCurrentLexileMeasure(student.InitialLexileMeasure, reviews)
	if err := s.catalog.SetCurrentLexile(ctx, student.ID, current); err != nil {
		return 0, err
	}
	metrics.LexileRecalibrations.Inc()
	s.log.Info("lexile recalibrated",
		zap.Int64("student_id", student.ID),
		zap.Float64("previous", student.CurrentLexileMeasure),
		zap.Float64("current", current),
		zap.Int("reviews", len(reviews)),
	)
	return current, nil
}

func (s *Service) Lexile(ctx context.Context, actor models.Principal, studentID int64) (*models.LexileResponse, error) {
	if !actor.CanActFor(studentID) {
		return nil, apperr.Policy(apperr.ReasonForbidden, "cannot view another student's reading level")
	}
	return s.lexile(ctx, studentID)
}

func (s *Service) lexile(ctx context.Context, studentID int64) (*models.LexileResponse, error) {
	student, err := s.student(ctx, studentID)
	if err != nil {
		return nil, err
	}
	reviews, err := s.reviews.ListReviews(ctx, studentID)
	if err != nil {
		return nil, err
	}
	considered := len(reviews)
	if considered < CalibrationWindow {
		considered = 0
	} else {
		considered = CalibrationWindow
	}
	return &models.LexileResponse{
		StudentID:            student.ID,
		InitialLexileMeasure: student.InitialLexileMeasure,
		CurrentLexileMeasure: ComputeCurrentLexileMeasure(student.InitialLexileMeasure, reviews),
		ReviewsConsidered:    considered,
	}, nil
}

// Recommendations ranks books the student has not yet passed by match score,
// highest first, ties broken by book id. Books without genres are skipped.
func (s *Service) Recommendations(ctx context.Context, actor models.Principal, studentID int64, limit int) (*models.RecommendationResponse, error) {
	if !actor.CanActFor(studentID) {
		return nil, apperr.Policy(apperr.ReasonForbidden, "cannot view another student's recommendations")
	}
	if limit <= 0 {
		limit = DefaultRecommendationLimit
	}
	if limit > MaxRecommendationLimit {
		limit = MaxRecommendationLimit
	}

	if _, err := s.student(ctx, studentID); err != nil {
		return nil, err
	}
	interests, err := s.catalog.GetGenreInterests(ctx, studentID)
	if err != nil {
		return nil, err
	}
	passed, err := s.passed.PassedBookIDs(ctx, studentID)
	if err != nil {
		return nil, err
	}
	books, err := s.catalog.ListBooks(ctx)
	if err != nil {
		return nil, err
	}

	recs := []models.Recommendation{}
	for _, b := range books {
		if len(b.Genres) == 0 || passed[b.ID] {
			continue
		}
		recs = append(recs, models.Recommendation{Book: b, MatchScore: ComputeMatchScore(interests, b)})
	}
	sort.SliceStable(recs, func(i, j int) bool {
		if recs[i].MatchScore != recs[j].MatchScore {
			return recs[i].MatchScore > recs[j].MatchScore
		}
		return recs[i].Book.ID < recs[j].Book.ID
	})
	if len(recs) > limit {
		recs = recs[:limit]
	}
	return &models.RecommendationResponse{StudentID: studentID, Recommendations: recs}, nil
}

func (s *Service) student(ctx context.Context, id int64) (*models.User, error) {
	u, err := s.catalog.GetUser(ctx, id)
	if err != nil {
		return nil, err
	}
	if u.Role != models.RoleStudent {
		return nil, apperr.NotFound("student %d not found", id)
	}
	return u, nil
}
