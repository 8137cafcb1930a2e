package server

import (
	"fmt"
	"log"
	"net/http"

	"github.com/jonathan/exam-grader/internal/correction"
	"github.com/jonathan/exam-grader/internal/types"
)

// handleCorrectCopy grades one copy synchronously
func (s *Server) handleCorrectCopy(w http.ResponseWriter, r *http.Request) {
	if s.correction == nil {
		handleError(w, correction.ErrDisabled)
		return
	}
	exam, c, err := s.loadExamCopy(r)
	if err != nil {
		handleError(w, err)
		return
	}

	updated, err := s.correction.CorrectCopy(r.Context(), exam, c)
	if err != nil {
		handleError(w, err)
		return
	}
	jsonResponse(w, http.StatusOK, updated)
}

// handleCorrectExam grades every copy of an exam and returns once all are done
func (s *Server) handleCorrectExam(w http.ResponseWriter, r *http.Request) {
	if s.correction == nil {
		handleError(w, correction.ErrDisabled)
		return
	}
	exam, err := s.examFromPath(r)
	if err != nil {
		handleError(w, err)
		return
	}

	done := s.metrics.BatchStarted()
	defer done()

	copies, err := s.correction.CorrectExam(r.Context(), exam, nil)
	if err != nil {
		handleError(w, err)
		return
	}
	result := types.NewBatchResult(exam.ID, copies)
	log.Printf("[correction] exam %s: %d corrected, %d failed", exam.ID, result.Corrected, result.Failed)
	jsonResponse(w, http.StatusOK, result)
}

// handleCorrectExamStream grades every copy of an exam and streams progress as SSE
func (s *Server) handleCorrectExamStream(w http.ResponseWriter, r *http.Request) {
	if s.correction == nil {
		handleError(w, correction.ErrDisabled)
		return
	}
	exam, err := s.examFromPath(r)
	if err != nil {
		handleError(w, err)
		return
	}

	sse, err := NewSSEWriter(w)
	if err != nil {
		errorResponse(w, http.StatusInternalServerError, "Streaming not supported")
		return
	}

	done := s.metrics.BatchStarted()
	defer done()
	stopHeartbeat := sse.Heartbeat(heartbeatInterval)
	defer stopHeartbeat()

	copies, err := s.correction.CorrectExam(r.Context(), exam, func(p types.CorrectionProgress) {
		if err := sse.WriteEvent("progress", p); err != nil {
			log.Printf("[correction] failed to stream progress for exam %s: %v", exam.ID, err)
		}
	})
	if err != nil {
		log.Printf("[correction] streamed batch for exam %s failed: %v", exam.ID, err)
		stopHeartbeat()
		sse.WriteError(fmt.Sprintf("batch correction aborted: %v", err))
		return
	}
	stopHeartbeat()
	sse.WriteComplete(types.NewBatchResult(exam.ID, copies))
}

// handleReviewCopy records a professor's grade override
func (s *Server) handleReviewCopy(w http.ResponseWriter, r *http.Request) {
	exam, c, err := s.loadExamCopy(r)
	if err != nil {
		handleError(w, err)
		return
	}

	var req types.ReviewRequest
	if err := s.decodeJSON(r, &req); err != nil {
		handleError(w, err)
		return
	}
	maxScore := exam.MaxScore
	if maxScore <= 0 {
		maxScore = types.DefaultMaxScore
	}
	if *req.Grade > maxScore {
		handleError(w, &ErrValidation{Field: "grade", Message: fmt.Sprintf("must be between 0 and %g", maxScore)})
		return
	}

	updated, err := s.store.ReviewCopy(r.Context(), c.ID, *req.Grade, req.Annotations)
	if err != nil {
		handleError(w, err)
		return
	}
	jsonResponse(w, http.StatusOK, updated)
}

func (s *Server) examFromPath(r *http.Request) (*types.Exam, error) {
	id, err := pathUUID(r, "id")
	if err != nil {
		return nil, err
	}
	return s.loadExam(r.Context(), id)
}
