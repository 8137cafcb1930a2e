package client

import (
	"context"
	"net/http"
	"net/url"

	"github.com/google/uuid"

	"github.com/jonathan/exam-grader/internal/types"
)

func (c *Client) GetGrade(ctx context.Context, examID, copyID uuid.UUID) (*types.GradeResponse, error) {
	var out types.GradeResponse
	if err := c.doJSON(ctx, http.MethodGet, copyPath(examID, copyID)+"/grade", nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) GetAnnotations(ctx context.Context, examID, copyID uuid.UUID) (*types.AnnotationsResponse, error) {
	var out types.AnnotationsResponse
	if err := c.doJSON(ctx, http.MethodGet, copyPath(examID, copyID)+"/annotations", nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// GetReport builds an exam report. An empty reportType asks for a summary.
func (c *Client) GetReport(ctx context.Context, examID uuid.UUID, reportType string) (*types.Report, error) {
	path := "/exams/" + examID.String() + "/report"
	if reportType != "" {
		path += "?" + url.Values{"type": {reportType}}.Encode()
	}
	var out types.Report
	if err := c.doJSON(ctx, http.MethodGet, path, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}
