// Package server provides the HTTP REST API of the exam grader.
package server

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/google/uuid"

	"github.com/jonathan/exam-grader/internal/chatbot"
	"github.com/jonathan/exam-grader/internal/correction"
	"github.com/jonathan/exam-grader/internal/db"
	"github.com/jonathan/exam-grader/internal/extraction"
	"github.com/jonathan/exam-grader/internal/reports"
	"github.com/jonathan/exam-grader/internal/storage"
)

// ErrEmailAlreadyExists indicates email is already registered
type ErrEmailAlreadyExists struct {
	Email string
}

func (e *ErrEmailAlreadyExists) Error() string {
	return fmt.Sprintf("email already registered: %s", e.Email)
}

// ErrInvalidCredentials indicates invalid login credentials
type ErrInvalidCredentials struct{}

func (e *ErrInvalidCredentials) Error() string {
	return "incorrect email or password"
}

// ErrUserNotFound indicates user was not found
type ErrUserNotFound struct {
	UserID uuid.UUID
}

func (e *ErrUserNotFound) Error() string {
	return fmt.Sprintf("user not found: %s", e.UserID)
}

// ErrPasswordMismatch indicates current password is incorrect
type ErrPasswordMismatch struct{}

func (e *ErrPasswordMismatch) Error() string {
	return "current password is incorrect"
}

// ErrValidation indicates request validation failure
type ErrValidation struct {
	Field   string
	Message string
}

func (e *ErrValidation) Error() string {
	if e.Field == "" {
		return fmt.Sprintf("validation error: %s", e.Message)
	}
	return fmt.Sprintf("validation error: %s - %s", e.Field, e.Message)
}

// ErrNotFound indicates a missing exam, copy or claim
type ErrNotFound struct {
	Resource string
	ID       uuid.UUID
}

func (e *ErrNotFound) Error() string {
	return fmt.Sprintf("%s not found: %s", e.Resource, e.ID)
}

// ErrForbidden indicates the caller's role does not allow the action
type ErrForbidden struct {
	Action string
}

func (e *ErrForbidden) Error() string {
	return fmt.Sprintf("forbidden: %s", e.Action)
}

// ErrPayloadTooLarge indicates an upload over the configured limit
type ErrPayloadTooLarge struct {
	LimitBytes int64
}

func (e *ErrPayloadTooLarge) Error() string {
	return fmt.Sprintf("upload exceeds the limit of %d MB", e.LimitBytes>>20)
}

// HTTPStatus returns the appropriate HTTP status code for an error
func HTTPStatus(err error) int {
	var (
		emailExists   *ErrEmailAlreadyExists
		invalidCreds  *ErrInvalidCredentials
		mismatch      *ErrPasswordMismatch
		userNotFound  *ErrUserNotFound
		notFound      *ErrNotFound
		validation    *ErrValidation
		forbidden     *ErrForbidden
		tooLarge      *ErrPayloadTooLarge
		unsupported   *extraction.UnsupportedTypeError
		unknownReport *reports.UnknownReportTypeError
		copyErr       *correction.CopyError
		providerErr   *chatbot.ProviderError
	)

	switch {
	case errors.As(err, &emailExists), errors.Is(err, db.ErrDuplicate):
		return http.StatusConflict
	case errors.As(err, &invalidCreds), errors.As(err, &mismatch):
		return http.StatusUnauthorized
	case errors.As(err, &userNotFound), errors.As(err, &notFound), errors.Is(err, db.ErrNotFound):
		return http.StatusNotFound
	case errors.As(err, &validation), errors.As(err, &unknownReport):
		return http.StatusBadRequest
	case errors.As(err, &forbidden):
		return http.StatusForbidden
	case errors.As(err, &tooLarge), errors.Is(err, storage.ErrTooLarge):
		return http.StatusRequestEntityTooLarge
	case errors.As(err, &unsupported):
		return http.StatusUnsupportedMediaType
	case errors.Is(err, correction.ErrDisabled), errors.Is(err, chatbot.ErrUnavailable):
		return http.StatusServiceUnavailable
	case errors.As(err, &providerErr):
		return http.StatusBadGateway
	case errors.As(err, &copyErr):
		switch copyErr.Stage {
		case correction.StageGrade:
			return http.StatusBadGateway
		case correction.StageExtract:
			return http.StatusUnprocessableEntity
		}
		return http.StatusInternalServerError
	default:
		return http.StatusInternalServerError
	}
}
