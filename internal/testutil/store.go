package testutil

import (
	"context"
	"fmt"
	"maps"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/jonathan/exam-grader/internal/db"
	"github.com/jonathan/exam-grader/internal/types"
)

// MemoryStore is an in-memory stand-in for *db.DB. Lookups that miss return nil, nil;
// updates and deletes that miss return an error wrapping db.ErrNotFound.
type MemoryStore struct {
	mu       sync.Mutex
	clock    time.Time
	users    map[uuid.UUID]*db.User
	exams    map[uuid.UUID]*types.Exam
	copies   map[uuid.UUID]*types.Copy
	claims   map[uuid.UUID]*types.Claim
	messages []types.ChatMessage

	// PingErr is returned by Ping when set.
	PingErr error
}

// NewMemoryStore creates an empty store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		clock:  time.Date(2025, 1, 1, 8, 0, 0, 0, time.UTC),
		users:  make(map[uuid.UUID]*db.User),
		exams:  make(map[uuid.UUID]*types.Exam),
		copies: make(map[uuid.UUID]*types.Copy),
		claims: make(map[uuid.UUID]*types.Claim),
	}
}

// now advances a fake clock so that insertion order is always reflected in timestamps.
func (s *MemoryStore) now() time.Time {
	s.clock = s.clock.Add(time.Millisecond)
	return s.clock
}

// Ping implements the health check.
func (s *MemoryStore) Ping(_ context.Context) error {
	return s.PingErr
}

// CreateUser stores a user with a lowercased email.
func (s *MemoryStore) CreateUser(_ context.Context, email, fullName string, role types.Role, passwordHash string) (*db.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	email = strings.ToLower(strings.TrimSpace(email))
	for _, u := range s.users {
		if u.Email == email {
			return nil, fmt.Errorf("user %s: %w", email, db.ErrDuplicate)
		}
	}
	if role == "" {
		role = types.RoleStudent
	}
	now := s.now()
	u := &db.User{
		ID:           uuid.New(),
		Email:        email,
		FullName:     fullName,
		Role:         role,
		PasswordHash: passwordHash,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	s.users[u.ID] = u
	clone := *u
	return &clone, nil
}

// GetUser returns a user by ID.
func (s *MemoryStore) GetUser(_ context.Context, id uuid.UUID) (*db.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[id]
	if !ok {
		return nil, nil
	}
	clone := *u
	return &clone, nil
}

// GetUserByEmail returns a user by email, case-insensitively.
func (s *MemoryStore) GetUserByEmail(_ context.Context, email string) (*db.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	email = strings.ToLower(strings.TrimSpace(email))
	for _, u := range s.users {
		if u.Email == email {
			clone := *u
			return &clone, nil
		}
	}
	return nil, nil
}

// CheckEmailExists reports whether the email is registered.
func (s *MemoryStore) CheckEmailExists(ctx context.Context, email string) (bool, error) {
	u, err := s.GetUserByEmail(ctx, email)
	return u != nil, err
}

// UpdatePassword replaces the password hash of a user.
func (s *MemoryStore) UpdatePassword(_ context.Context, id uuid.UUID, passwordHash string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[id]
	if !ok {
		return fmt.Errorf("user %s: %w", id, db.ErrNotFound)
	}
	u.PasswordHash = passwordHash
	u.UpdatedAt = s.now()
	return nil
}

// CreateExam stores an exam, defaulting its maximum score.
func (s *MemoryStore) CreateExam(_ context.Context, exam *types.Exam) (*types.Exam, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e := *exam
	e.ID = uuid.New()
	if e.MaxScore <= 0 {
		e.MaxScore = types.DefaultMaxScore
	}
	now := s.now()
	e.CreatedAt, e.UpdatedAt = now, now
	s.exams[e.ID] = &e
	clone := e
	return &clone, nil
}

// GetExam returns an exam by ID.
func (s *MemoryStore) GetExam(_ context.Context, id uuid.UUID) (*types.Exam, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.exams[id]
	if !ok {
		return nil, nil
	}
	clone := *e
	return &clone, nil
}

// ListExams returns every exam, most recent date first.
func (s *MemoryStore) ListExams(_ context.Context) ([]types.Exam, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	exams := make([]types.Exam, 0, len(s.exams))
	for _, e := range s.exams {
		exams = append(exams, *e)
	}
	slices.SortFunc(exams, func(a, b types.Exam) int {
		if c := b.Date.Compare(a.Date.Time); c != 0 {
			return c
		}
		return b.CreatedAt.Compare(a.CreatedAt)
	})
	return exams, nil
}

// UpdateExam replaces the editable fields of an exam.
func (s *MemoryStore) UpdateExam(_ context.Context, exam *types.Exam) (*types.Exam, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.exams[exam.ID]
	if !ok {
		return nil, fmt.Errorf("exam %s: %w", exam.ID, db.ErrNotFound)
	}
	e.Course = exam.Course
	e.Date = exam.Date
	e.MaxScore = exam.MaxScore
	e.Description = exam.Description
	e.AnswerKey = exam.AnswerKey
	e.UpdatedAt = s.now()
	clone := *e
	return &clone, nil
}

// DeleteExam removes an exam with its copies, claims and messages.
func (s *MemoryStore) DeleteExam(_ context.Context, id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.exams[id]; !ok {
		return fmt.Errorf("exam %s: %w", id, db.ErrNotFound)
	}
	delete(s.exams, id)
	for copyID, c := range s.copies {
		if c.ExamID == id {
			s.deleteCopyLocked(copyID)
		}
	}
	return nil
}

// CreateCopy stores a pending copy.
func (s *MemoryStore) CreateCopy(_ context.Context, c *types.Copy) (*types.Copy, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.exams[c.ExamID]; !ok {
		return nil, fmt.Errorf("failed to create copy: exam %s does not exist", c.ExamID)
	}
	stored := *c
	if stored.ID == uuid.Nil {
		stored.ID = uuid.New()
	}
	now := s.now()
	stored.Status = types.CopyStatusPending
	stored.Grade = nil
	stored.Annotations = nil
	stored.Competencies = nil
	stored.CorrectedAt = nil
	stored.Error = ""
	stored.CreatedAt, stored.UpdatedAt = now, now
	stored.FileURL = types.CopyFileURL(stored.ExamID, stored.ID)
	s.copies[stored.ID] = &stored
	return cloneCopy(&stored), nil
}

// GetCopy returns a copy by ID.
func (s *MemoryStore) GetCopy(_ context.Context, id uuid.UUID) (*types.Copy, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.copies[id]
	if !ok {
		return nil, nil
	}
	return cloneCopy(c), nil
}

// ListCopies returns the copies of an exam in upload order.
func (s *MemoryStore) ListCopies(_ context.Context, examID uuid.UUID, status types.CopyStatus) ([]types.Copy, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	copies := []types.Copy{}
	for _, c := range s.copies {
		if c.ExamID == examID && (status == "" || c.Status == status) {
			copies = append(copies, *cloneCopy(c))
		}
	}
	slices.SortFunc(copies, func(a, b types.Copy) int {
		return a.CreatedAt.Compare(b.CreatedAt)
	})
	return copies, nil
}

// SaveCorrection stores a correction and marks the copy corrected.
func (s *MemoryStore) SaveCorrection(_ context.Context, copyID uuid.UUID, result types.Correction) (*types.Copy, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.copies[copyID]
	if !ok {
		return nil, fmt.Errorf("copy %s: %w", copyID, db.ErrNotFound)
	}
	grade := result.Grade
	now := s.now()
	c.Grade = &grade
	c.Annotations = maps.Clone(result.Annotations)
	c.Competencies = maps.Clone(result.Competencies)
	c.ExtractedText = result.ExtractedText
	c.Status = types.CopyStatusCorrected
	c.Error = ""
	c.CorrectedAt = &now
	c.UpdatedAt = now
	if c.StudentName == "" {
		c.StudentName = result.StudentName
	}
	return cloneCopy(c), nil
}

// MarkCopyFailed records a grading failure.
func (s *MemoryStore) MarkCopyFailed(_ context.Context, copyID uuid.UUID, reason string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.copies[copyID]
	if !ok {
		return fmt.Errorf("copy %s: %w", copyID, db.ErrNotFound)
	}
	c.Status = types.CopyStatusFailed
	c.Error = reason
	c.UpdatedAt = s.now()
	return nil
}

// ReviewCopy stores a professor's grade.
func (s *MemoryStore) ReviewCopy(_ context.Context, copyID uuid.UUID, grade float64, annotations map[string]any) (*types.Copy, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.copies[copyID]
	if !ok {
		return nil, fmt.Errorf("copy %s: %w", copyID, db.ErrNotFound)
	}
	now := s.now()
	c.Grade = &grade
	if annotations != nil {
		c.Annotations = maps.Clone(annotations)
	}
	c.Status = types.CopyStatusReviewed
	c.Error = ""
	if c.CorrectedAt == nil {
		c.CorrectedAt = &now
	}
	c.UpdatedAt = now
	return cloneCopy(c), nil
}

// DeleteCopy removes a copy with its claims and messages.
func (s *MemoryStore) DeleteCopy(_ context.Context, id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.copies[id]; !ok {
		return fmt.Errorf("copy %s: %w", id, db.ErrNotFound)
	}
	s.deleteCopyLocked(id)
	return nil
}

func (s *MemoryStore) deleteCopyLocked(id uuid.UUID) {
	delete(s.copies, id)
	for claimID, claim := range s.claims {
		if claim.CopyID == id {
			delete(s.claims, claimID)
		}
	}
	s.messages = slices.DeleteFunc(s.messages, func(m types.ChatMessage) bool {
		return m.CopyID == id
	})
}

// CreateClaim stores a pending claim.
func (s *MemoryStore) CreateClaim(_ context.Context, claim *types.Claim) (*types.Claim, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.copies[claim.CopyID]; !ok {
		return nil, fmt.Errorf("failed to create claim: copy %s does not exist", claim.CopyID)
	}
	stored := *claim
	stored.ID = uuid.New()
	stored.Status = types.ClaimPending
	stored.CreatedAt = s.now()
	stored.ResolvedAt = nil
	s.claims[stored.ID] = &stored
	clone := stored
	return &clone, nil
}

// GetClaim returns a claim by ID.
func (s *MemoryStore) GetClaim(_ context.Context, id uuid.UUID) (*types.Claim, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	claim, ok := s.claims[id]
	if !ok {
		return nil, nil
	}
	clone := *claim
	return &clone, nil
}

// ListClaims returns the claims of an exam, oldest first.
func (s *MemoryStore) ListClaims(_ context.Context, examID uuid.UUID, status types.ClaimStatus) ([]types.Claim, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	claims := []types.Claim{}
	for _, claim := range s.claims {
		if claim.ExamID == examID && (status == "" || claim.Status == status) {
			claims = append(claims, *claim)
		}
	}
	slices.SortFunc(claims, func(a, b types.Claim) int {
		return a.CreatedAt.Compare(b.CreatedAt)
	})
	return claims, nil
}

// ResolveClaim marks a claim resolved.
func (s *MemoryStore) ResolveClaim(_ context.Context, id uuid.UUID, response *string) (*types.Claim, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	claim, ok := s.claims[id]
	if !ok {
		return nil, fmt.Errorf("claim %s: %w", id, db.ErrNotFound)
	}
	now := s.now()
	claim.Status = types.ClaimResolved
	claim.ResolvedAt = &now
	if response != nil {
		claim.Response = *response
	}
	clone := *claim
	return &clone, nil
}

// AddChatMessage appends a message to the conversation of a copy.
func (s *MemoryStore) AddChatMessage(_ context.Context, copyID uuid.UUID, role types.ChatRole, content string) (*types.ChatMessage, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.copies[copyID]; !ok {
		return nil, fmt.Errorf("failed to add chat message: copy %s does not exist", copyID)
	}
	m := types.ChatMessage{
		ID:        uuid.New(),
		CopyID:    copyID,
		Role:      role,
		Content:   content,
		CreatedAt: s.now(),
	}
	s.messages = append(s.messages, m)
	return &m, nil
}

// ListChatMessages returns the conversation of a copy, oldest first, keeping the last limit messages.
func (s *MemoryStore) ListChatMessages(_ context.Context, copyID uuid.UUID, limit int) ([]types.ChatMessage, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	messages := []types.ChatMessage{}
	for _, m := range s.messages {
		if m.CopyID == copyID {
			messages = append(messages, m)
		}
	}
	if limit > 0 && len(messages) > limit {
		messages = messages[len(messages)-limit:]
	}
	return messages, nil
}

func cloneCopy(c *types.Copy) *types.Copy {
	clone := *c
	clone.Annotations = maps.Clone(c.Annotations)
	clone.Competencies = maps.Clone(c.Competencies)
	return &clone
}
