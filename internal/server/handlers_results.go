package server

import (
	"net/http"

	"github.com/jonathan/exam-grader/internal/reports"
	"github.com/jonathan/exam-grader/internal/types"
)

// handleGetGrade returns the grade of a copy, null until it is graded
func (s *Server) handleGetGrade(w http.ResponseWriter, r *http.Request) {
	_, c, err := s.loadExamCopy(r)
	if err != nil {
		handleError(w, err)
		return
	}
	jsonResponse(w, http.StatusOK, types.GradeResponse{CopyID: c.ID, Grade: c.Grade})
}

// handleGetAnnotations returns the annotations of a copy
func (s *Server) handleGetAnnotations(w http.ResponseWriter, r *http.Request) {
	_, c, err := s.loadExamCopy(r)
	if err != nil {
		handleError(w, err)
		return
	}
	annotations := c.Annotations
	if annotations == nil {
		annotations = map[string]any{}
	}
	jsonResponse(w, http.StatusOK, types.AnnotationsResponse{CopyID: c.ID, Annotations: annotations})
}

// handleReport builds the summary or detailed report of an exam
func (s *Server) handleReport(w http.ResponseWriter, r *http.Request) {
	exam, err := s.examFromPath(r)
	if err != nil {
		handleError(w, err)
		return
	}

	copies, err := s.store.ListCopies(r.Context(), exam.ID, "")
	if err != nil {
		handleError(w, err)
		return
	}

	report, err := reports.Build(exam, copies, r.URL.Query().Get("type"))
	if err != nil {
		handleError(w, err)
		return
	}
	jsonResponse(w, http.StatusOK, report)
}
