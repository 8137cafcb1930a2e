package server

import (
	"log"
	"net/http"

	"github.com/jonathan/exam-grader/internal/types"
)

// handleCreateExam creates an exam
func (s *Server) handleCreateExam(w http.ResponseWriter, r *http.Request) {
	var req types.CreateExamRequest
	if err := s.decodeJSON(r, &req); err != nil {
		handleError(w, err)
		return
	}
	if req.Date.IsZero() {
		errorResponse(w, http.StatusBadRequest, "validation error: date - required (YYYY-MM-DD)")
		return
	}

	exam := &types.Exam{
		Course:      req.Course,
		Date:        req.Date,
		Description: req.Description,
		AnswerKey:   req.AnswerKey,
		CreatedBy:   currentUserID(r),
	}
	if req.MaxScore != nil {
		exam.MaxScore = *req.MaxScore
	}

	created, err := s.store.CreateExam(r.Context(), exam)
	if err != nil {
		handleError(w, err)
		return
	}

	log.Printf("[exams] created %s (%s, %s)", created.ID, created.Course, created.Date)
	jsonResponse(w, http.StatusCreated, types.CreateExamResponse{ExamID: created.ID})
}

// handleListExams lists exams, most recent first
func (s *Server) handleListExams(w http.ResponseWriter, r *http.Request) {
	exams, err := s.store.ListExams(r.Context())
	if err != nil {
		handleError(w, err)
		return
	}
	if exams == nil {
		exams = []types.Exam{}
	}
	jsonResponse(w, http.StatusOK, exams)
}

// handleGetExam returns an exam
func (s *Server) handleGetExam(w http.ResponseWriter, r *http.Request) {
	id, err := pathUUID(r, "id")
	if err != nil {
		handleError(w, err)
		return
	}
	exam, err := s.loadExam(r.Context(), id)
	if err != nil {
		handleError(w, err)
		return
	}
	jsonResponse(w, http.StatusOK, exam)
}

// handleUpdateExam applies a partial update to an exam
func (s *Server) handleUpdateExam(w http.ResponseWriter, r *http.Request) {
	id, err := pathUUID(r, "id")
	if err != nil {
		handleError(w, err)
		return
	}

	var req types.UpdateExamRequest
	if err := s.decodeJSON(r, &req); err != nil {
		handleError(w, err)
		return
	}
	if req.Empty() {
		errorResponse(w, http.StatusBadRequest, "validation error: no fields to update")
		return
	}
	if req.Date != nil && req.Date.IsZero() {
		errorResponse(w, http.StatusBadRequest, "validation error: date - cannot be cleared")
		return
	}

	exam, err := s.loadExam(r.Context(), id)
	if err != nil {
		handleError(w, err)
		return
	}
	req.Apply(exam)

	updated, err := s.store.UpdateExam(r.Context(), exam)
	if err != nil {
		handleError(w, err)
		return
	}
	jsonResponse(w, http.StatusOK, updated)
}

// handleDeleteExam deletes an exam with its copies and their files
func (s *Server) handleDeleteExam(w http.ResponseWriter, r *http.Request) {
	id, err := pathUUID(r, "id")
	if err != nil {
		handleError(w, err)
		return
	}

	if err := s.store.DeleteExam(r.Context(), id); err != nil {
		handleError(w, err)
		return
	}
	if err := s.files.DeleteExam(id); err != nil {
		log.Printf("[exams] failed to remove files of exam %s: %v", id, err)
	}

	w.WriteHeader(http.StatusNoContent)
}
