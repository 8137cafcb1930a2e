package types

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// CopyStatus tracks where a copy is in the grading workflow.
type CopyStatus string

// Copy statuses.
const (
	CopyStatusPending   CopyStatus = "pending"
	CopyStatusCorrected CopyStatus = "corrected"
	CopyStatusReviewed  CopyStatus = "reviewed"
	CopyStatusFailed    CopyStatus = "failed"
)

// Valid reports whether s is a known status.
func (s CopyStatus) Valid() bool {
	switch s {
	case CopyStatusPending, CopyStatusCorrected, CopyStatusReviewed, CopyStatusFailed:
		return true
	}
	return false
}

// Graded reports whether the copy carries a grade.
func (s CopyStatus) Graded() bool {
	return s == CopyStatusCorrected || s == CopyStatusReviewed
}

// Copy is one student submission for an exam.
type Copy struct {
	ID            uuid.UUID      `json:"id"`
	ExamID        uuid.UUID      `json:"exam_id"`
	FilePath      string         `json:"file_path"`
	FileURL       string         `json:"file_url,omitempty"`
	OriginalName  string         `json:"original_name,omitempty"`
	ContentType   string         `json:"content_type,omitempty"`
	StudentName   string         `json:"student_name,omitempty"`
	Grade         *float64       `json:"grade"`
	Annotations   map[string]any `json:"annotations"`
	Competencies  map[string]int `json:"competencies,omitempty"`
	Status        CopyStatus     `json:"status"`
	Error         string         `json:"error,omitempty"`
	ExtractedText string         `json:"-"`
	CorrectedAt   *time.Time     `json:"corrected_at,omitempty"`
	CreatedAt     time.Time      `json:"created_at"`
	UpdatedAt     time.Time      `json:"updated_at"`
}

// CopyFileURL returns the API path serving the stored file of a copy.
func CopyFileURL(examID, copyID uuid.UUID) string {
	return fmt.Sprintf("/api/v1/exams/%s/copies/%s/file", examID, copyID)
}

// UploadResponse is returned by POST /exams/{id}/copies.
type UploadResponse struct {
	UploadedCount int        `json:"uploaded_count"`
	FirstCopyID   *uuid.UUID `json:"first_copy_id"`
	Copies        []Copy     `json:"copies"`
}

// ReviewRequest is a manual grade override by a professor.
type ReviewRequest struct {
	Grade       *float64       `json:"grade" validate:"required,gte=0"`
	Annotations map[string]any `json:"annotations,omitempty"`
}

// Correction is the outcome of grading one copy.
type Correction struct {
	Grade         float64
	Annotations   map[string]any
	Competencies  map[string]int
	ExtractedText string
	StudentName   string // name read from the copy; kept only when the copy has none
}

// GradeResponse is returned by GET .../grade.
type GradeResponse struct {
	CopyID uuid.UUID `json:"copyId"`
	Grade  *float64  `json:"grade"`
}

// AnnotationsResponse is returned by GET .../annotations.
type AnnotationsResponse struct {
	CopyID      uuid.UUID      `json:"copyId"`
	Annotations map[string]any `json:"annotations"`
}

// CorrectionProgress is streamed once per copy during a batch correction.
type CorrectionProgress struct {
	CopyID    uuid.UUID  `json:"copyId"`
	Status    CopyStatus `json:"status"`
	Grade     *float64   `json:"grade,omitempty"`
	Error     string     `json:"error,omitempty"`
	Completed int        `json:"completed"`
	Total     int        `json:"total"`
}

// BatchResult is returned once a batch correction finishes.
type BatchResult struct {
	ExamID    uuid.UUID `json:"examId"`
	Total     int       `json:"total"`
	Corrected int       `json:"corrected"`
	Failed    int       `json:"failed"`
	Copies    []Copy    `json:"copies"`
}

// NewBatchResult counts the outcomes of a finished batch.
func NewBatchResult(examID uuid.UUID, copies []Copy) BatchResult {
	result := BatchResult{ExamID: examID, Total: len(copies), Copies: copies}
	for _, c := range copies {
		switch c.Status {
		case CopyStatusCorrected:
			result.Corrected++
		case CopyStatusFailed:
			result.Failed++
		}
	}
	return result
}
