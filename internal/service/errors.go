package service

import (
	"errors"
	"fmt"
)

var (
	ErrAccountNotFound     = errors.New("account not found")
	ErrResumeNotFound      = errors.New("resume not found")
	ErrPackageNotFound     = errors.New("credit package not found")
	ErrInsufficientCredits = errors.New("insufficient credits, payment required")
	ErrNoSourceData        = errors.New("no resume data found, please upload a resume first")
	ErrGenerationFailed    = errors.New("resume generation failed")
	ErrInvalidAmount       = errors.New("invalid credit amount")
	ErrValidation          = errors.New("validation error")
	ErrEmailTaken          = errors.New("user with this email already exists")
	ErrInvalidCredentials  = errors.New("invalid email or password")
)

// GenerationError carries the generator's diagnostic so callers can show it verbatim.
type GenerationError struct {
	Detail string
	Err    error
}

func (e *GenerationError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", ErrGenerationFailed, e.Detail, e.Err)
	}
	return fmt.Sprintf("%s: %s", ErrGenerationFailed, e.Detail)
}

func (e *GenerationError) Unwrap() error { return e.Err }

func (e *GenerationError) Is(target error) bool { return target == ErrGenerationFailed }

// ValidationError reports a malformed request parameter.
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

func (e *ValidationError) Is(target error) bool { return target == ErrValidation }

func invalid(field, message string) error {
	return &ValidationError{Field: field, Message: message}
}
