// Package chatbot answers questions about graded copies and records rectification
// requests and anomaly flags.
package chatbot

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"strconv"
	"strings"

	"github.com/google/uuid"

	"github.com/jonathan/exam-grader/internal/llm"
	"github.com/jonathan/exam-grader/internal/prompts"
	"github.com/jonathan/exam-grader/internal/types"
)

// HistoryLimit is the number of previous messages given to the LLM.
const HistoryLimit = 20

// maxAnnotationChars bounds the annotations rendered into prompts.
const maxAnnotationChars = 6000

// Store is the persistence needed by the chatbot. *db.DB satisfies it.
type Store interface {
	AddChatMessage(ctx context.Context, copyID uuid.UUID, role types.ChatRole, content string) (*types.ChatMessage, error)
	ListChatMessages(ctx context.Context, copyID uuid.UUID, limit int) ([]types.ChatMessage, error)
	CreateClaim(ctx context.Context, claim *types.Claim) (*types.Claim, error)
}

// Service is the chatbot. A nil client disables conversation; claims still work.
type Service struct {
	store  Store
	client llm.Client
	tier   llm.ModelTier
}

// NewService creates a chatbot service.
func NewService(store Store, client llm.Client) *Service {
	return &Service{store: store, client: client, tier: llm.TierStandard}
}

// Enabled reports whether an LLM is configured.
func (s *Service) Enabled() bool {
	return s.client != nil
}

// Reply answers a message about a copy. The exchange is persisted only when the LLM answers.
func (s *Service) Reply(ctx context.Context, exam *types.Exam, c *types.Copy, req *types.ChatMessageRequest) (*types.ChatMessageResponse, error) {
	if s.client == nil {
		return nil, ErrUnavailable
	}

	history, err := s.store.ListChatMessages(ctx, c.ID, HistoryLimit)
	if err != nil {
		return nil, fmt.Errorf("failed to load chat history: %w", err)
	}

	copyContext, err := BuildCopyContext(exam, c, req.Context)
	if err != nil {
		return nil, err
	}
	system, err := prompts.Get(prompts.ChatbotFile, "system")
	if err != nil {
		return nil, err
	}
	prompt, err := prompts.Render(prompts.ChatbotFile, "conversation", map[string]string{
		"System":      system,
		"CopyContext": copyContext,
		"History":     FormatHistory(history),
		"Message":     strings.TrimSpace(req.Message),
	})
	if err != nil {
		return nil, err
	}

	answer, err := s.client.GenerateContent(ctx, prompt, s.tier)
	if err != nil {
		return nil, &ProviderError{Message: "failed to generate answer", Cause: err}
	}
	answer = strings.TrimSpace(answer)

	if _, err := s.store.AddChatMessage(ctx, c.ID, types.ChatRoleUser, strings.TrimSpace(req.Message)); err != nil {
		return nil, fmt.Errorf("failed to store message: %w", err)
	}
	stored, err := s.store.AddChatMessage(ctx, c.ID, types.ChatRoleAssistant, answer)
	if err != nil {
		return nil, fmt.Errorf("failed to store answer: %w", err)
	}

	return &types.ChatMessageResponse{Response: answer, MessageID: stored.ID}, nil
}

// Rectify records a rectification request and drafts a first answer.
// Without an LLM, or when the LLM fails, a fixed acknowledgement is used.
func (s *Service) Rectify(ctx context.Context, exam *types.Exam, c *types.Copy, message string, userID *uuid.UUID) (*types.RectifyResponse, error) {
	message = strings.TrimSpace(message)
	answer := s.draftRectification(ctx, exam, c, message)

	claim, err := s.store.CreateClaim(ctx, &types.Claim{
		CopyID:    c.ID,
		ExamID:    exam.ID,
		Kind:      types.ClaimRectification,
		Message:   message,
		Response:  answer,
		CreatedBy: userID,
	})
	if err != nil {
		return nil, err
	}
	log.Printf("[chatbot] rectification %s recorded for copy %s", claim.ID, c.ID)

	return &types.RectifyResponse{
		CopyID:   c.ID,
		ClaimID:  claim.ID,
		Status:   claim.Status,
		Response: answer,
	}, nil
}

func (s *Service) draftRectification(ctx context.Context, exam *types.Exam, c *types.Copy, message string) string {
	fallback := prompts.MustGet(prompts.ChatbotFile, "rectify-fallback")
	if s.client == nil {
		return fallback
	}

	copyContext, err := BuildCopyContext(exam, c, "")
	if err != nil {
		log.Printf("[chatbot] rectification context unavailable: %v", err)
		return fallback
	}
	prompt, err := prompts.Render(prompts.ChatbotFile, "rectify", map[string]string{
		"System":      prompts.MustGet(prompts.ChatbotFile, "system"),
		"CopyContext": copyContext,
		"Message":     message,
	})
	if err != nil {
		log.Printf("[chatbot] rectification prompt unavailable: %v", err)
		return fallback
	}

	answer, err := s.client.GenerateContent(ctx, prompt, s.tier)
	if err != nil || strings.TrimSpace(answer) == "" {
		log.Printf("[chatbot] rectification draft failed, using acknowledgement: %v", err)
		return fallback
	}
	return strings.TrimSpace(answer)
}

// Flag records an anomaly on a copy. An empty issue gets a default description.
func (s *Service) Flag(ctx context.Context, exam *types.Exam, c *types.Copy, issue string, userID *uuid.UUID) (*types.FlagResponse, error) {
	issue = strings.TrimSpace(issue)
	if issue == "" {
		issue = prompts.MustGet(prompts.ChatbotFile, "flag-default")
	}

	claim, err := s.store.CreateClaim(ctx, &types.Claim{
		CopyID:    c.ID,
		ExamID:    exam.ID,
		Kind:      types.ClaimFlag,
		Message:   issue,
		CreatedBy: userID,
	})
	if err != nil {
		return nil, err
	}
	log.Printf("[chatbot] copy %s flagged: %s", c.ID, llm.Truncate(issue, 80, "..."))

	return &types.FlagResponse{CopyID: c.ID, ClaimID: claim.ID, Flagged: true, Issue: issue}, nil
}

// BuildCopyContext renders what the LLM knows about a copy.
func BuildCopyContext(exam *types.Exam, c *types.Copy, extra string) (string, error) {
	student := c.StudentName
	if student == "" {
		student = "unknown"
	}
	grade := "not graded yet"
	if c.Grade != nil {
		grade = strconv.FormatFloat(*c.Grade, 'f', -1, 64)
	}
	annotations := "none"
	if len(c.Annotations) > 0 {
		encoded, err := json.MarshalIndent(c.Annotations, "", "  ")
		if err != nil {
			return "", fmt.Errorf("failed to encode annotations: %w", err)
		}
		annotations = llm.Truncate(string(encoded), maxAnnotationChars, "\n...")
	}
	extra = strings.TrimSpace(extra)
	if extra == "" {
		extra = "none"
	}

	return prompts.Render(prompts.ChatbotFile, "copy-context", map[string]string{
		"Course":      exam.Course,
		"MaxScore":    strconv.FormatFloat(exam.MaxScore, 'f', -1, 64),
		"Student":     student,
		"Status":      string(c.Status),
		"Grade":       grade,
		"Annotations": annotations,
		"Context":     extra,
	})
}

// FormatHistory renders messages as "role: content" lines.
func FormatHistory(messages []types.ChatMessage) string {
	if len(messages) == 0 {
		return "(no previous messages)"
	}
	var sb strings.Builder
	for i, m := range messages {
		if i > 0 {
			sb.WriteString("\n")
		}
		fmt.Fprintf(&sb, "%s: %s", m.Role, strings.TrimSpace(m.Content))
	}
	return sb.String()
}
