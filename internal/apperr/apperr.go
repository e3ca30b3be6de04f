package apperr

import (
	"errors"
	"fmt"
	"net/http"
	"time"
)

// Kind classifies an expected, modeled failure.
type Kind int

const (
	KindUnknown Kind = iota
	KindInvalidInput
	KindNotFound
	KindPolicyViolation
	KindNotModified
)

func (k Kind) String() string {
	switch k {
	case KindInvalidInput:
		return "invalid_input"
	case KindNotFound:
		return "reference_not_found"
	case KindPolicyViolation:
		return "policy_violation"
	case KindNotModified:
		return "not_modified"
	default:
		return "unknown"
	}
}

// Reason is a machine-readable tag for a policy rejection.
type Reason string

const (
	ReasonIdentityMismatch  Reason = "identity_mismatch"
	ReasonCooldown          Reason = "cooldown_active"
	ReasonAlreadyPassed     Reason = "already_passed"
	ReasonAttemptsExhausted Reason = "attempts_exhausted"
	ReasonAnswerCount       Reason = "answer_count_mismatch"
	ReasonConcurrentAttempt Reason = "concurrent_attempt"
	ReasonComprehensionSet  Reason = "comprehension_already_set"
	ReasonNotSubmitter      Reason = "not_submitter"
	ReasonForbidden         Reason = "forbidden"
)

type Error struct {
	Kind    Kind
	Reason  Reason
	Message string
	// RetryAt is set when the caller may retry after a known instant.
	RetryAt *time.Time
}

func (e *Error) Error() string {
	return e.Message
}

// Is matches another *Error by Kind, and by Reason when the target sets one.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	if t.Kind != e.Kind {
		return false
	}
	return t.Reason == "" || t.Reason == e.Reason
}

func InvalidInput(format string, args ...interface{}) *Error {
	return &Error{Kind: KindInvalidInput, Message: fmt.Sprintf(format, args...)}
}

func NotFound(format string, args ...interface{}) *Error {
	return &Error{Kind: KindNotFound, Message: fmt.Sprintf(format, args...)}
}

func NotModified(format string, args ...interface{}) *Error {
	return &Error{Kind: KindNotModified, Message: fmt.Sprintf(format, args...)}
}

func Policy(reason Reason, format string, args ...interface{}) *Error {
	return &Error{Kind: KindPolicyViolation, Reason: reason, Message: fmt.Sprintf(format, args...)}
}

// PolicyUntil is a policy rejection that clears at retryAt.
func PolicyUntil(reason Reason, retryAt time.Time, format string, args ...interface{}) *Error {
	e := Policy(reason, format, args...)
	e.RetryAt = &retryAt
	return e
}

// KindOf returns the Kind of the first *Error in err's chain.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindUnknown
}

// ReasonOf returns the Reason of the first *Error in err's chain.
func ReasonOf(err error) Reason {
	var e *Error
	if errors.As(err, &e) {
		return e.Reason
	}
	return ""
}

func IsNotFound(err error) bool {
	return KindOf(err) == KindNotFound
}

// HTTPStatus maps a failure to the status code the transport layer reports.
func HTTPStatus(err error) int {
	switch KindOf(err) {
	case KindInvalidInput:
		return http.StatusBadRequest
	case KindNotFound, KindNotModified:
		return http.StatusNotFound
	case KindPolicyViolation:
		switch ReasonOf(err) {
		case ReasonCooldown:
			return http.StatusTooManyRequests
		case ReasonConcurrentAttempt, ReasonComprehensionSet:
			return http.StatusConflict
		}
		return http.StatusForbidden
	default:
		return http.StatusInternalServerError
	}
}
