package client

import (
	"context"
	"net/http"

	"github.com/google/uuid"

	"github.com/jonathan/exam-grader/internal/types"
)

// CreateExam creates an exam and returns its ID.
func (c *Client) CreateExam(ctx context.Context, req *types.CreateExamRequest) (uuid.UUID, error) {
	var resp types.CreateExamResponse
	if err := c.doJSON(ctx, http.MethodPost, "/exams", req, &resp); err != nil {
		return uuid.Nil, err
	}
	return resp.ExamID, nil
}

// ListExams returns every exam, newest first.
func (c *Client) ListExams(ctx context.Context) ([]types.Exam, error) {
	var exams []types.Exam
	if err := c.doJSON(ctx, http.MethodGet, "/exams", nil, &exams); err != nil {
		return nil, err
	}
	return exams, nil
}

func (c *Client) GetExam(ctx context.Context, id uuid.UUID) (*types.Exam, error) {
	var exam types.Exam
	if err := c.doJSON(ctx, http.MethodGet, "/exams/"+id.String(), nil, &exam); err != nil {
		return nil, err
	}
	return &exam, nil
}

// UpdateExam applies a partial update and returns the stored exam.
func (c *Client) UpdateExam(ctx context.Context, id uuid.UUID, req *types.UpdateExamRequest) (*types.Exam, error) {
	var exam types.Exam
	if err := c.doJSON(ctx, http.MethodPatch, "/exams/"+id.String(), req, &exam); err != nil {
		return nil, err
	}
	return &exam, nil
}

// DeleteExam removes an exam with its copies.
func (c *Client) DeleteExam(ctx context.Context, id uuid.UUID) error {
	return c.doJSON(ctx, http.MethodDelete, "/exams/"+id.String(), nil, nil)
}
