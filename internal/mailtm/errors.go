package mailtm

import (
	"errors"
	"fmt"
	"net/http"
)

var (
	// ErrUnauthenticated is returned by operations that need an active session.
	ErrUnauthenticated = errors.New("no account authenticated")

	// ErrInvalidID is returned when a message id is empty after normalization.
	ErrInvalidID = errors.New("invalid message id")

	// ErrNotFound is returned when the provider answers 404 for a message.
	ErrNotFound = errors.New("message not found")

	// ErrNoDomains is returned when the provider offers no domain.
	ErrNoDomains = errors.New("no domains available")

	// ErrEmptyToken is returned when a token exchange succeeds without a token.
	ErrEmptyToken = errors.New("provider returned an empty token")

	// ErrWaitTimeout is returned by WaitForNew when no new message arrived
	// within the allowed number of checks.
	ErrWaitTimeout = errors.New("no new messages received")
)

// APIError is a non-2xx provider response.
type APIError struct {
	StatusCode int
	Method     string
	Path       string
	Message    string
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf(
			"unexpected status %d on %s %s", e.StatusCode, e.Method, e.Path,
		)
	}
	return fmt.Sprintf(
		"provider error (%d) on %s %s: %s",
		e.StatusCode, e.Method, e.Path, e.Message,
	)
}

// Is lets errors.Is(err, ErrNotFound) match a 404 response.
func (e *APIError) Is(target error) bool {
	return target == ErrNotFound && e.StatusCode == http.StatusNotFound
}

// AuthError indicates the provider rejected the credentials or token.
type AuthError struct {
	Message string
}

func (e *AuthError) Error() string {
	return fmt.Sprintf("auth error: %s", e.Message)
}

// IsAuthError reports whether err (or any error in its chain) is an AuthError.
func IsAuthError(err error) bool {
	var authErr *AuthError
	return errors.As(err, &authErr)
}

// ExportError is a local filesystem failure while exporting a message.
// Provider failures during the same operation are never wrapped in it.
type ExportError struct {
	Path string
	Err  error
}

func (e *ExportError) Error() string {
	return fmt.Sprintf("writing export %s: %v", e.Path, e.Err)
}

func (e *ExportError) Unwrap() error {
	return e.Err
}
