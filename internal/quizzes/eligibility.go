package quizzes

import (
	"encoding/json"
	"time"

	"github.com/readlevel/backend/internal/apperr"
	"github.com/readlevel/backend/internal/config"
	"github.com/readlevel/backend/internal/models"
	"github.com/readlevel/backend/internal/questions"
)

// Policy holds the tunable quiz rules.
type Policy struct {
	PassingQuizGrade               int
	MaxNumQuizAttempts             int
	MinHoursBetweenBookQuizAttempt int
	MinQuestionsInQuiz             int
	MaxQuestionsInQuiz             int
}

func PolicyFromConfig(c config.PolicyConfig) Policy {
	return Policy{
		PassingQuizGrade:               c.PassingQuizGrade,
		MaxNumQuizAttempts:             c.MaxNumQuizAttempts,
		MinHoursBetweenBookQuizAttempt: c.MinHoursBetweenBookQuizAttempt,
		MinQuestionsInQuiz:             c.MinQuestionsInQuiz,
		MaxQuestionsInQuiz:             c.MaxQuestionsInQuiz,
	}
}

func (p Policy) Cooldown() time.Duration {
	return time.Duration(p.MinHoursBetweenBookQuizAttempt) * time.Hour
}

// Attempt is everything the policy looks at for one submission. Student,
// Book and Quiz are nil when the referenced record does not exist. History
// holds the student's earlier submissions for every book.
type Attempt struct {
	Actor   models.Principal
	Request models.SubmitQuizRequest
	Student *models.User
	Book    *models.Book
	Quiz    *models.Quiz
	History []models.QuizSubmission
	Now     time.Time
}

// Check runs the eligibility checks in order and returns the first failure.
func (p Policy) Check(a Attempt) error {
	req := a.Request

	// identity
	if !a.Actor.CanActFor(req.StudentID) {
		return apperr.Policy(apperr.ReasonIdentityMismatch,
			"user %d cannot submit a quiz for student %d", a.Actor.UserID, req.StudentID)
	}

	// existence
	if a.Student == nil || a.Student.Role != models.RoleStudent {
		return apperr.NotFound("student %d not found", req.StudentID)
	}
	if a.Book == nil {
		return apperr.NotFound("book %d not found", req.BookID)
	}
	if a.Quiz == nil {
		return apperr.NotFound("quiz %d not found", req.QuizID)
	}
	if a.Quiz.BookID != nil && *a.Quiz.BookID != a.Book.ID {
		return apperr.InvalidInput("quiz %d belongs to book %d, not book %d", a.Quiz.ID, *a.Quiz.BookID, a.Book.ID)
	}

	// cooldown, across every book
	if latest, ok := mostRecent(a.History); ok {
		mustWaitUntil := latest.DateCreated.Add(p.Cooldown())
		if a.Now.Before(mustWaitUntil) {
			return apperr.PolicyUntil(apperr.ReasonCooldown, mustWaitUntil,
				"must wait until %s before submitting another quiz", mustWaitUntil.UTC().Format(time.RFC3339))
		}
	}

	// already passed, attempts exhausted: this book only
	forBook := submissionsForBook(a.History, a.Book.ID)
	for _, s := range forBook {
		if s.Passed {
			return apperr.Policy(apperr.ReasonAlreadyPassed,
				"student %d already passed the quiz for book %d", req.StudentID, a.Book.ID)
		}
	}
	if len(forBook) >= p.MaxNumQuizAttempts {
		return apperr.Policy(apperr.ReasonAttemptsExhausted,
			"student %d has used all %d attempts for book %d", req.StudentID, p.MaxNumQuizAttempts, a.Book.ID)
	}

	// shape
	if len(req.Answers) != len(a.Quiz.Questions) {
		return apperr.Policy(apperr.ReasonAnswerCount,
			"quiz has %d questions but %d answers were submitted", len(a.Quiz.Questions), len(req.Answers))
	}

	// per-answer schema
	for i, q := range a.Quiz.Questions {
		if err := questions.ValidateAnswer(q, req.Answers[i]); err != nil {
			return apperr.InvalidInput("invalid answer for question %d %q (%s): %s", i+1, q.Prompt, q.Type, err.Error())
		}
	}
	return nil
}

// Evaluate checks the attempt and, if it is allowed, grades it into a new
// submission. The returned submission has no ID yet.
func (p Policy) Evaluate(a Attempt) (*models.QuizSubmission, error) {
	if err := p.Check(a); err != nil {
		return nil, err
	}

	score := questions.Grade(a.Quiz.Questions, a.Request.Answers)
	answers := make([]json.RawMessage, len(a.Request.Answers))
	copy(answers, a.Request.Answers)

	return &models.QuizSubmission{
		QuizID:      a.Quiz.ID,
		StudentID:   a.Student.ID,
		BookID:      a.Book.ID,
		Attempt:     len(submissionsForBook(a.History, a.Book.ID)) + 1,
		Answers:     answers,
		Score:       score,
		Passed:      score >= p.PassingQuizGrade,
		DateCreated: a.Now,
	}, nil
}

// CheckQuestionCount enforces the quiz size bounds.
func (p Policy) CheckQuestionCount(n int) error {
	if n < p.MinQuestionsInQuiz || n > p.MaxQuestionsInQuiz {
		return apperr.InvalidInput("a quiz needs between %d and %d questions, got %d",
			p.MinQuestionsInQuiz, p.MaxQuestionsInQuiz, n)
	}
	return nil
}

func mostRecent(history []models.QuizSubmission) (models.QuizSubmission, bool) {
	var latest models.QuizSubmission
	found := false
	for _, s := range history {
		if !found || s.DateCreated.After(latest.DateCreated) {
			latest = s
			found = true
		}
	}
	return latest, found
}

func submissionsForBook(history []models.QuizSubmission, bookID int64) []models.QuizSubmission {
	var out []models.QuizSubmission
	for _, s := range history {
		if s.BookID == bookID {
			out = append(out, s)
		}
	}
	return out
}
