package server

import (
	"context"

	"github.com/google/uuid"

	"github.com/jonathan/exam-grader/internal/db"
	"github.com/jonathan/exam-grader/internal/types"
)

// Store is the persistence used by the handlers. *db.DB implements it.
type Store interface {
	Ping(ctx context.Context) error

	CreateUser(ctx context.Context, email, fullName string, role types.Role, passwordHash string) (*db.User, error)
	GetUser(ctx context.Context, id uuid.UUID) (*db.User, error)
	GetUserByEmail(ctx context.Context, email string) (*db.User, error)
	CheckEmailExists(ctx context.Context, email string) (bool, error)
	UpdatePassword(ctx context.Context, id uuid.UUID, passwordHash string) error

	CreateExam(ctx context.Context, exam *types.Exam) (*types.Exam, error)
	GetExam(ctx context.Context, id uuid.UUID) (*types.Exam, error)
	ListExams(ctx context.Context) ([]types.Exam, error)
	UpdateExam(ctx context.Context, exam *types.Exam) (*types.Exam, error)
	DeleteExam(ctx context.Context, id uuid.UUID) error

	CreateCopy(ctx context.Context, c *types.Copy) (*types.Copy, error)
	GetCopy(ctx context.Context, id uuid.UUID) (*types.Copy, error)
	ListCopies(ctx context.Context, examID uuid.UUID, status types.CopyStatus) ([]types.Copy, error)
	SaveCorrection(ctx context.Context, copyID uuid.UUID, result types.Correction) (*types.Copy, error)
	MarkCopyFailed(ctx context.Context, copyID uuid.UUID, reason string) error
	ReviewCopy(ctx context.Context, copyID uuid.UUID, grade float64, annotations map[string]any) (*types.Copy, error)
	DeleteCopy(ctx context.Context, id uuid.UUID) error

	CreateClaim(ctx context.Context, claim *types.Claim) (*types.Claim, error)
	GetClaim(ctx context.Context, id uuid.UUID) (*types.Claim, error)
	ListClaims(ctx context.Context, examID uuid.UUID, status types.ClaimStatus) ([]types.Claim, error)
	ResolveClaim(ctx context.Context, id uuid.UUID, response *string) (*types.Claim, error)

	AddChatMessage(ctx context.Context, copyID uuid.UUID, role types.ChatRole, content string) (*types.ChatMessage, error)
	ListChatMessages(ctx context.Context, copyID uuid.UUID, limit int) ([]types.ChatMessage, error)
}

var _ Store = (*db.DB)(nil)
