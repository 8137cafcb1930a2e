package server

import (
	"fmt"
	"net/http"
	"strconv"

	"github.com/jonathan/exam-grader/internal/chatbot"
	"github.com/jonathan/exam-grader/internal/types"
)

// handleChatMessage answers a question about a graded copy
func (s *Server) handleChatMessage(w http.ResponseWriter, r *http.Request) {
	if !s.chatbot.Enabled() {
		handleError(w, chatbot.ErrUnavailable)
		return
	}

	var req types.ChatMessageRequest
	if err := s.decodeJSON(r, &req); err != nil {
		handleError(w, err)
		return
	}

	c, err := s.loadCopy(r.Context(), req.CopyID)
	if err != nil {
		handleError(w, err)
		return
	}
	exam, err := s.loadExam(r.Context(), c.ExamID)
	if err != nil {
		handleError(w, err)
		return
	}

	resp, err := s.chatbot.Reply(r.Context(), exam, c, &req)
	if err != nil {
		handleError(w, err)
		return
	}
	jsonResponse(w, http.StatusOK, resp)
}

// handleListMessages returns the conversation of a copy
func (s *Server) handleListMessages(w http.ResponseWriter, r *http.Request) {
	id, err := pathUUID(r, "copyId")
	if err != nil {
		handleError(w, err)
		return
	}

	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		limit, err = strconv.Atoi(raw)
		if err != nil || limit < 0 {
			errorResponse(w, http.StatusBadRequest, "validation error: limit - must be a non-negative integer")
			return
		}
	}

	if _, err := s.loadCopy(r.Context(), id); err != nil {
		handleError(w, err)
		return
	}

	messages, err := s.store.ListChatMessages(r.Context(), id, limit)
	if err != nil {
		handleError(w, err)
		return
	}
	if messages == nil {
		messages = []types.ChatMessage{}
	}
	jsonResponse(w, http.StatusOK, messages)
}

// handleRectify records a grade contest
func (s *Server) handleRectify(w http.ResponseWriter, r *http.Request) {
	exam, c, err := s.loadExamCopy(r)
	if err != nil {
		handleError(w, err)
		return
	}

	var req types.RectifyRequest
	if err := s.decodeJSON(r, &req); err != nil {
		handleError(w, err)
		return
	}

	resp, err := s.chatbot.Rectify(r.Context(), exam, c, req.Message, currentUserID(r))
	if err != nil {
		handleError(w, err)
		return
	}
	jsonResponse(w, http.StatusCreated, resp)
}

// handleFlag reports an anomaly on a copy
func (s *Server) handleFlag(w http.ResponseWriter, r *http.Request) {
	exam, c, err := s.loadExamCopy(r)
	if err != nil {
		handleError(w, err)
		return
	}

	var req types.FlagRequest
	if err := s.decodeOptionalJSON(r, &req); err != nil {
		handleError(w, err)
		return
	}

	resp, err := s.chatbot.Flag(r.Context(), exam, c, req.Text(), currentUserID(r))
	if err != nil {
		handleError(w, err)
		return
	}
	jsonResponse(w, http.StatusCreated, resp)
}

// handleListClaims lists the claims raised on an exam
func (s *Server) handleListClaims(w http.ResponseWriter, r *http.Request) {
	exam, err := s.examFromPath(r)
	if err != nil {
		handleError(w, err)
		return
	}

	status := types.ClaimStatus(r.URL.Query().Get("status"))
	if status != "" && status != types.ClaimPending && status != types.ClaimResolved {
		errorResponse(w, http.StatusBadRequest, fmt.Sprintf("validation error: status - unknown value %q", status))
		return
	}

	claims, err := s.store.ListClaims(r.Context(), exam.ID, status)
	if err != nil {
		handleError(w, err)
		return
	}
	if claims == nil {
		claims = []types.Claim{}
	}
	jsonResponse(w, http.StatusOK, claims)
}

// handleResolveClaim marks a claim resolved with an optional answer
func (s *Server) handleResolveClaim(w http.ResponseWriter, r *http.Request) {
	id, err := pathUUID(r, "id")
	if err != nil {
		handleError(w, err)
		return
	}

	var req types.ResolveClaimRequest
	if err := s.decodeJSON(r, &req); err != nil {
		handleError(w, err)
		return
	}
	if !req.Resolved {
		errorResponse(w, http.StatusBadRequest, "validation error: resolved - claims can only be resolved")
		return
	}

	claim, err := s.store.ResolveClaim(r.Context(), id, req.Response)
	if err != nil {
		handleError(w, err)
		return
	}
	jsonResponse(w, http.StatusOK, claim)
}
