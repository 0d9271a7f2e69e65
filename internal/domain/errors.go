package domain

import "errors"

// Sentinel errors for domain-level error handling.
// The handler layer maps these to HTTP status codes.
var (
	ErrOrderNotFound    = errors.New("order_not_found")
	ErrForbidden        = errors.New("forbidden")
	ErrInvalidState     = errors.New("invalid_state")
	ErrInvalidAmendment = errors.New("invalid_amendment")
	ErrInvalidExecution = errors.New("invalid_execution")
	ErrInvalidQuantity  = errors.New("invalid_quantity")

	ErrInvestorNotFound   = errors.New("investor_not_found")
	ErrUsernameTaken      = errors.New("username_taken")
	ErrInvalidCredentials = errors.New("invalid_credentials")
	ErrSessionNotFound    = errors.New("session_not_found")
	ErrUnauthorized       = errors.New("unauthorized")
)

// ValidationError represents a request validation failure.
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

// RepositoryError wraps an unexpected storage failure. It is passed through
// the service layer untouched.
type RepositoryError struct {
	Op  string
	Err error
}

func (e *RepositoryError) Error() string {
	return "repository: " + e.Op + ": " + e.Err.Error()
}

func (e *RepositoryError) Unwrap() error {
	return e.Err
}
