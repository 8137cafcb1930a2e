package types

import (
	"time"

	"github.com/google/uuid"
)

// ChatRole is the author of a chat message.
type ChatRole string

// Chat roles.
const (
	ChatRoleUser      ChatRole = "user"
	ChatRoleAssistant ChatRole = "assistant"
	ChatRoleSystem    ChatRole = "system"
)

// ChatMessage is one persisted message of a copy's conversation.
type ChatMessage struct {
	ID        uuid.UUID `json:"id"`
	CopyID    uuid.UUID `json:"copy_id"`
	Role      ChatRole  `json:"role"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"created_at"`
}

// ChatMessageRequest is the body of POST /chatbot/message.
type ChatMessageRequest struct {
	Message string    `json:"message" validate:"required,max=4000"`
	CopyID  uuid.UUID `json:"copy_id" validate:"required"`
	Context string    `json:"context,omitempty" validate:"max=8000"`
}

// ChatMessageResponse is returned by POST /chatbot/message.
type ChatMessageResponse struct {
	Response  string    `json:"response"`
	MessageID uuid.UUID `json:"message_id"`
}

// ClaimKind distinguishes grade contests from anomaly reports.
type ClaimKind string

// Claim kinds.
const (
	ClaimRectification ClaimKind = "rectification"
	ClaimFlag          ClaimKind = "flag"
)

// ClaimStatus is the derived review state of a claim.
type ClaimStatus string

// Claim statuses.
const (
	ClaimPending  ClaimStatus = "pending"
	ClaimResolved ClaimStatus = "resolved"
)

// Claim is a rectification request or anomaly flag raised on a copy.
type Claim struct {
	ID         uuid.UUID   `json:"id"`
	CopyID     uuid.UUID   `json:"copy_id"`
	ExamID     uuid.UUID   `json:"exam_id"`
	Kind       ClaimKind   `json:"kind"`
	Message    string      `json:"message"`
	Response   string      `json:"response,omitempty"`
	Status     ClaimStatus `json:"status"`
	CreatedBy  *uuid.UUID  `json:"created_by,omitempty"`
	CreatedAt  time.Time   `json:"created_at"`
	ResolvedAt *time.Time  `json:"resolved_at,omitempty"`
}

// RectifyRequest is the body of POST .../rectify.
type RectifyRequest struct {
	Message string `json:"message" validate:"required,max=4000"`
}

// RectifyResponse is returned by POST .../rectify.
type RectifyResponse struct {
	CopyID   uuid.UUID   `json:"copyId"`
	ClaimID  uuid.UUID   `json:"claim_id"`
	Status   ClaimStatus `json:"status"`
	Response string      `json:"response"`
}

// FlagRequest is the body of POST .../flag. Reason is accepted as an alias of Issue.
type FlagRequest struct {
	Issue  string `json:"issue,omitempty" validate:"max=2000"`
	Reason string `json:"reason,omitempty" validate:"max=2000"`
}

// Text returns the issue, falling back to the reason alias.
func (r *FlagRequest) Text() string {
	if r.Issue != "" {
		return r.Issue
	}
	return r.Reason
}

// FlagResponse is returned by POST .../flag.
type FlagResponse struct {
	CopyID  uuid.UUID `json:"copyId"`
	ClaimID uuid.UUID `json:"claim_id"`
	Flagged bool      `json:"flagged"`
	Issue   string    `json:"issue"`
}

// ResolveClaimRequest is the body of PATCH /claims/{id}.
type ResolveClaimRequest struct {
	Resolved bool    `json:"resolved"`
	Response *string `json:"response,omitempty" validate:"omitempty,max=4000"`
}
