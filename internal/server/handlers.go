package server

import (
	"context"
	"net/http"

	"github.com/google/uuid"

	"github.com/jonathan/exam-grader/internal/server/middleware"
	"github.com/jonathan/exam-grader/internal/types"
)

// pathUUID parses a UUID path parameter.
func pathUUID(r *http.Request, name string) (uuid.UUID, error) {
	raw := r.PathValue(name)
	if raw == "" {
		return uuid.Nil, &ErrValidation{Field: name, Message: "is required"}
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, &ErrValidation{Field: name, Message: "invalid ID format"}
	}
	return id, nil
}

// loadExam returns the exam or an *ErrNotFound.
func (s *Server) loadExam(ctx context.Context, id uuid.UUID) (*types.Exam, error) {
	exam, err := s.store.GetExam(ctx, id)
	if err != nil {
		return nil, err
	}
	if exam == nil {
		return nil, &ErrNotFound{Resource: "exam", ID: id}
	}
	return exam, nil
}

// loadCopy returns the copy or an *ErrNotFound.
func (s *Server) loadCopy(ctx context.Context, id uuid.UUID) (*types.Copy, error) {
	c, err := s.store.GetCopy(ctx, id)
	if err != nil {
		return nil, err
	}
	if c == nil {
		return nil, &ErrNotFound{Resource: "copy", ID: id}
	}
	return c, nil
}

// loadExamCopy resolves the {id} and {copyId} path parameters. A copy of another
// exam is reported as not found.
func (s *Server) loadExamCopy(r *http.Request) (*types.Exam, *types.Copy, error) {
	examID, err := pathUUID(r, "id")
	if err != nil {
		return nil, nil, err
	}
	copyID, err := pathUUID(r, "copyId")
	if err != nil {
		return nil, nil, err
	}
	exam, err := s.loadExam(r.Context(), examID)
	if err != nil {
		return nil, nil, err
	}
	c, err := s.loadCopy(r.Context(), copyID)
	if err != nil {
		return nil, nil, err
	}
	if c.ExamID != exam.ID {
		return nil, nil, &ErrNotFound{Resource: "copy", ID: copyID}
	}
	return exam, c, nil
}

// currentUserID returns the authenticated user ID, or nil outside authenticated routes.
func currentUserID(r *http.Request) *uuid.UUID {
	id, err := middleware.GetUserID(r)
	if err != nil {
		return nil
	}
	return &id
}
