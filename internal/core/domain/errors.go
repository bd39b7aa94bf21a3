package domain

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrJobNotFound        = errors.New("lab job not found")
	ErrExperimentNotFound = errors.New("experiment not found")
	ErrUserNotFound       = errors.New("user not found")
	ErrEmailTaken         = errors.New("email already registered")
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrProfileIncomplete  = errors.New("profile is not complete")
	ErrJobNotExportable   = errors.New("job has experiments that are not completed yet")
	ErrAPIKeyMissing      = errors.New("provider API key not configured")
)

// ValidationError reports a malformed create/update request. It is raised
// before any state is persisted.
type ValidationError struct {
	Field string
	Msg   string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation: %s: %s", e.Field, e.Msg)
}

// ProviderError wraps a failure from the LLM backend (network, auth, quota).
// It is retryable from the orchestrator's point of view.
type ProviderError struct {
	Err error
}

func (e *ProviderError) Error() string {
	return "llm provider: " + e.Err.Error()
}

func (e *ProviderError) Unwrap() error {
	return e.Err
}

// SchemaValidationError reports LLM output that could not be coerced into
// ExperimentContent, even after the repair pass. Retried the same way as
// ProviderError but logged distinctly for diagnosis.
type SchemaValidationError struct {
	Missing []string
	Cause   error
}

func (e *SchemaValidationError) Error() string {
	if len(e.Missing) > 0 {
		return "generated content missing required fields: " + strings.Join(e.Missing, ", ")
	}
	if e.Cause != nil {
		return "generated content could not be parsed: " + e.Cause.Error()
	}
	return "generated content failed schema validation"
}

func (e *SchemaValidationError) Unwrap() error {
	return e.Cause
}
