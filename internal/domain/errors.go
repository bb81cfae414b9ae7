package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrQuizNotFound indicates the quiz content could not be loaded.
	ErrQuizNotFound = errors.New("quiz not found")
	// ErrSubmissionNotFound is returned when a submission id is unknown.
	ErrSubmissionNotFound = errors.New("submission not found")
	// ErrUserNotFound is returned when a user id or email is unknown.
	ErrUserNotFound = errors.New("user not found")
	// ErrUnauthenticated is returned when the caller has no valid session.
	ErrUnauthenticated = errors.New("unauthorized")
	// ErrForbidden is returned when an authenticated caller lacks access.
	ErrForbidden = errors.New("forbidden: results not yet released for this quiz")
	// ErrAdminRequired is returned when a non-admin calls an admin operation.
	ErrAdminRequired = errors.New("admin role required")
	// ErrEmailTaken is returned on registration with an existing email.
	ErrEmailTaken = errors.New("user already exists")
	// ErrInvalidCredentials is returned on a failed login.
	ErrInvalidCredentials = errors.New("invalid email or password")
	// ErrAttemptFinished is returned when an attempt is driven after submission.
	ErrAttemptFinished = errors.New("attempt already submitted")
	// ErrAttemptNotStarted is returned when an attempt is driven before Start.
	ErrAttemptNotStarted = errors.New("attempt not started")
)

// AttemptsExhaustedError is returned by the attempt gate.
type AttemptsExhaustedError struct {
	Limit int
}

func (e *AttemptsExhaustedError) Error() string {
	if e.Limit == 1 {
		return "quiz already submitted: maximum of 1 attempt reached"
	}
	return fmt.Sprintf("maximum of %d attempts reached for this quiz", e.Limit)
}

// ValidationError reports a malformed request field.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Message
	}
	return e.Field + ": " + e.Message
}

// Invalid builds a ValidationError.
func Invalid(field, format string, args ...any) error {
	return &ValidationError{Field: field, Message: fmt.Sprintf(format, args...)}
}

// IsValidation reports whether err is a ValidationError.
func IsValidation(err error) bool {
	var v *ValidationError
	return errors.As(err, &v)
}

// IsAttemptsExhausted reports whether err came from the attempt gate.
func IsAttemptsExhausted(err error) bool {
	var v *AttemptsExhaustedError
	return errors.As(err, &v)
}
