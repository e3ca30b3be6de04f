package quizzes

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/readlevel/backend/internal/apperr"
	"github.com/readlevel/backend/internal/generator"
	"github.com/readlevel/backend/internal/metrics"
	"github.com/readlevel/backend/internal/models"
	"github.com/readlevel/backend/internal/questions"
	"go.uber.org/zap"
)

// Repository is quiz and submission storage. *Store implements it.
type Repository interface {
	CreateQuiz(ctx context.Context, q *models.Quiz) error
	GetQuiz(ctx context.Context, id int64) (*models.Quiz, error)
	GetQuizForBook(ctx context.Context, bookID int64) (*models.Quiz, error)
	GetGenericQuiz(ctx context.Context) (*models.Quiz, error)
	ListQuizzes(ctx context.Context) ([]models.Quiz, error)
	UpdateQuiz(ctx context.Context, q *models.Quiz) error
	DeleteQuiz(ctx context.Context, id int64) error

	CreateSubmission(ctx context.Context, sub *models.QuizSubmission) error
	GetSubmission(ctx context.Context, id int64) (*models.QuizSubmission, error)
	ListSubmissionsForStudent(ctx context.Context, studentID int64) ([]models.QuizSubmission, error)
	SetComprehension(ctx context.Context, id int64, comprehension int) error
	ClearComprehension(ctx context.Context, id int64, comprehension int) error
}

// Catalog looks up users and books.
type Catalog interface {
	GetUser(ctx context.Context, id int64) (*models.User, error)
	GetBook(ctx context.Context, id int64) (*models.Book, error)
}

// ReviewRecorder turns a comprehension rating into a book review.
type ReviewRecorder interface {
	RecordReview(ctx context.Context, studentID, bookID int64, comprehension int) error
}

// Drafter drafts quiz questions for a book.
type Drafter interface {
	DraftQuiz(ctx context.Context, book models.Book, count int) (*generator.DraftResult, error)
}

type Service struct {
	repo     Repository
	catalog  Catalog
	reviews  ReviewRecorder
	drafter  Drafter
	policy   Policy
	registry *questions.Registry
	log      *zap.Logger
	now      func() time.Time
}

func NewService(repo Repository, catalog Catalog, reviews ReviewRecorder, drafter Drafter, policy Policy, log *zap.Logger) *Service {
	return &Service{
		repo:     repo,
		catalog:  catalog,
		reviews:  reviews,
		drafter:  drafter,
		policy:   policy,
		registry: questions.Default(),
		log:      log,
		now:      time.Now,
	}
}

// ── Quiz authoring ──────────────────────────────────────

// parseQuestions validates raw questions in order, naming the first bad one
// by position.
func (s *Service) parseQuestions(raw []json.RawMessage) ([]questions.Question, error) {
	if err := s.policy.CheckQuestionCount(len(raw)); err != nil {
		return nil, err
	}
	out := make([]questions.Question, len(raw))
	for i, r := range raw {
		q, err := s.registry.Parse(r)
		if err != nil {
			return nil, apperr.InvalidInput("question %d: %s", i+1, err.Error())
		}
		out[i] = q
	}
	return out, nil
}

func (s *Service) buildQuiz(ctx context.Context, req models.QuizRequest) (*models.Quiz, error) {
	qs, err := s.parseQuestions(req.Questions)
	if err != nil {
		return nil, err
	}
	if req.BookID != nil {
		if _, err := s.catalog.GetBook(ctx, *req.BookID); err != nil {
			return nil, err
		}
	}
	return &models.Quiz{BookID: req.BookID, Questions: qs}, nil
}

func (s *Service) CreateQuiz(ctx context.Context, req models.QuizRequest) (*models.Quiz, error) {
	quiz, err := s.buildQuiz(ctx, req)
	if err != nil {
		return nil, err
	}
	if err := s.repo.CreateQuiz(ctx, quiz); err != nil {
		return nil, err
	}
	s.log.Info("quiz created", zap.Int64("quiz_id", quiz.ID), zap.Int("questions", len(quiz.Questions)))
	return quiz, nil
}

// UpdateQuiz replaces the quiz wholesale.
func (s *Service) UpdateQuiz(ctx context.Context, id int64, req models.QuizRequest) (*models.Quiz, error) {
	if _, err := s.repo.GetQuiz(ctx, id); err != nil {
		return nil, err
	}
	quiz, err := s.buildQuiz(ctx, req)
	if err != nil {
		return nil, err
	}
	quiz.ID = id
	if err := s.repo.UpdateQuiz(ctx, quiz); err != nil {
		return nil, err
	}
	s.log.Info("quiz updated", zap.Int64("quiz_id", id))
	return quiz, nil
}

func (s *Service) DeleteQuiz(ctx context.Context, id int64) error {
	if _, err := s.repo.GetQuiz(ctx, id); err != nil {
		return err
	}
	if err := s.repo.DeleteQuiz(ctx, id); err != nil {
		return err
	}
	s.log.Info("quiz deleted", zap.Int64("quiz_id", id))
	return nil
}

func (s *Service) ListQuizzes(ctx context.Context) ([]models.Quiz, error) {
	qs, err := s.repo.ListQuizzes(ctx)
	if err != nil {
		return nil, err
	}
	if qs == nil {
		qs = []models.Quiz{}
	}
	return qs, nil
}

// GetQuiz returns the quiz with answer keys for admins and without them for
// everyone else.
func (s *Service) GetQuiz(ctx context.Context, actor models.Principal, id int64) (*models.Quiz, error) {
	q, err := s.repo.GetQuiz(ctx, id)
	if err != nil {
		return nil, err
	}
	return visibleTo(actor, q), nil
}

// QuizForBook returns the book's own quiz, falling back to the newest
// generic quiz.
func (s *Service) QuizForBook(ctx context.Context, actor models.Principal, bookID int64) (*models.Quiz, error) {
	if _, err := s.catalog.GetBook(ctx, bookID); err != nil {
		return nil, err
	}
	q, err := s.repo.GetQuizForBook(ctx, bookID)
	if apperr.IsNotFound(err) {
		q, err = s.repo.GetGenericQuiz(ctx)
		if apperr.IsNotFound(err) {
			return nil, apperr.NotFound("no quiz available for book %d", bookID)
		}
	}
	if err != nil {
		return nil, err
	}
	return visibleTo(actor, q), nil
}

func visibleTo(actor models.Principal, q *models.Quiz) *models.Quiz {
	if actor.Role == models.RoleAdmin {
		return q
	}
	redacted := q.Redacted()
	return &redacted
}

// DraftQuiz asks the generator for questions about a book. Nothing is saved.
func (s *Service) DraftQuiz(ctx context.Context, bookID int64, req models.DraftQuizRequest) (*generator.DraftResult, error) {
	if s.drafter == nil {
		return nil, fmt.Errorf("quiz drafting is not configured")
	}
	book, err := s.catalog.GetBook(ctx, bookID)
	if err != nil {
		return nil, err
	}
	count := req.Count
	if count == 0 {
		count = s.policy.MinQuestionsInQuiz + 2
		if count > s.policy.MaxQuestionsInQuiz {
			count = s.policy.MaxQuestionsInQuiz
		}
	}
	if err := s.policy.CheckQuestionCount(count); err != nil {
		return nil, err
	}
	return s.drafter.DraftQuiz(ctx, *book, count)
}

// ── Submissions ─────────────────────────────────────────

// Submit checks eligibility, grades the answers and stores the result.
func (s *Service) Submit(ctx context.Context, actor models.Principal, req models.SubmitQuizRequest) (*models.QuizSubmission, error) {
	attempt, err := s.loadAttempt(ctx, actor, req)
	if err != nil {
		return nil, err
	}

	sub, err := s.policy.Evaluate(attempt)
	if err != nil {
		s.reject(req, err)
		return nil, err
	}

	if err := s.repo.CreateSubmission(ctx, sub); err != nil {
		if apperr.KindOf(err) == apperr.KindPolicyViolation {
			s.reject(req, err)
		}
		return nil, err
	}

	outcome := "failed"
	if sub.Passed {
		outcome = "passed"
	}
	metrics.QuizSubmissions.WithLabelValues(outcome).Inc()
	s.log.Info("quiz graded",
		zap.Int64("submission_id", sub.ID),
		zap.Int64("student_id", sub.StudentID),
		zap.Int64("book_id", sub.BookID),
		zap.Int("attempt", sub.Attempt),
		zap.Int("score", sub.Score),
		zap.Bool("passed", sub.Passed),
	)
	return sub, nil
}

// loadAttempt gathers the records the policy needs. Missing references are
// left nil for the policy to report in order.
func (s *Service) loadAttempt(ctx context.Context, actor models.Principal, req models.SubmitQuizRequest) (Attempt, error) {
	a := Attempt{Actor: actor, Request: req, Now: s.now().UTC()}
	if !actor.CanActFor(req.StudentID) {
		return a, nil
	}

	var err error
	if a.Student, err = optional(s.catalog.GetUser(ctx, req.StudentID)); err != nil {
		return a, err
	}
	if a.Book, err = optional(s.catalog.GetBook(ctx, req.BookID)); err != nil {
		return a, err
	}
	if a.Quiz, err = optional(s.repo.GetQuiz(ctx, req.QuizID)); err != nil {
		return a, err
	}
	if a.Student != nil {
		if a.History, err = s.repo.ListSubmissionsForStudent(ctx, req.StudentID); err != nil {
			return a, err
		}
	}
	return a, nil
}

func optional[T any](v *T, err error) (*T, error) {
	if apperr.IsNotFound(err) {
		return nil, nil
	}
	return v, err
}

func (s *Service) reject(req models.SubmitQuizRequest, err error) {
	reason := string(apperr.ReasonOf(err))
	if reason == "" {
		reason = apperr.KindOf(err).String()
	}
	metrics.EligibilityRejections.WithLabelValues(reason).Inc()
	s.log.Warn("quiz submission rejected",
		zap.Int64("student_id", req.StudentID),
		zap.Int64("book_id", req.BookID),
		zap.Int64("quiz_id", req.QuizID),
		zap.String("reason", reason),
		zap.Error(err),
	)
}

func (s *Service) GetSubmission(ctx context.Context, actor models.Principal, id int64) (*models.QuizSubmission, error) {
	sub, err := s.repo.GetSubmission(ctx, id)
	if err != nil {
		return nil, err
	}
	if !actor.CanActFor(sub.StudentID) {
		return nil, apperr.Policy(apperr.ReasonForbidden, "submission %d belongs to another student", id)
	}
	return sub, nil
}

func (s *Service) ListSubmissions(ctx context.Context, actor models.Principal, studentID int64) ([]models.QuizSubmission, error) {
	if !actor.CanActFor(studentID) {
		return nil, apperr.Policy(apperr.ReasonForbidden, "cannot list another student's submissions")
	}
	if _, err := s.catalog.GetUser(ctx, studentID); err != nil {
		return nil, err
	}
	subs, err := s.repo.ListSubmissionsForStudent(ctx, studentID)
	if err != nil {
		return nil, err
	}
	if subs == nil {
		subs = []models.QuizSubmission{}
	}
	return subs, nil
}

// SetComprehension lets the submitting student rate how well they understood
// the book, once per submission. The rating becomes a book review.
func (s *Service) SetComprehension(ctx context.Context, actor models.Principal, id int64, comprehension int) (*models.QuizSubmission, error) {
	if comprehension < models.MinComprehension || comprehension > models.MaxComprehension {
		return nil, apperr.InvalidInput("comprehension must be in [%d,%d], got %d",
			models.MinComprehension, models.MaxComprehension, comprehension)
	}
	sub, err := s.repo.GetSubmission(ctx, id)
	if err != nil {
		return nil, err
	}
	if actor.UserID != sub.StudentID {
		return nil, apperr.Policy(apperr.ReasonNotSubmitter, "only the submitting student can rate comprehension")
	}
	if sub.Comprehension != nil {
		return nil, apperr.Policy(apperr.ReasonComprehensionSet, "comprehension for submission %d is already set", id)
	}
	// At most one review per submission: claim the rating, then release the
	// claim if the review cannot be recorded.
	if err := s.repo.SetComprehension(ctx, id, comprehension); err != nil {
		return nil, err
	}
	if err := s.reviews.RecordReview(ctx, sub.StudentID, sub.BookID, comprehension); err != nil {
		if clearErr := s.repo.ClearComprehension(ctx, id, comprehension); clearErr != nil {
			s.log.Error("comprehension left set without a review",
				zap.Int64("submission_id", id),
				zap.Error(clearErr),
			)
		}
		return nil, fmt.Errorf("record review for submission %d: %w", id, err)
	}
	sub.Comprehension = &comprehension
	return sub, nil
}
