package chatbot

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jonathan/exam-grader/internal/llm"
	"github.com/jonathan/exam-grader/internal/prompts"
	"github.com/jonathan/exam-grader/internal/testutil"
	"github.com/jonathan/exam-grader/internal/types"
)

func setup(t *testing.T) (*testutil.MemoryStore, *types.Exam, *types.Copy) {
	t.Helper()
	ctx := context.Background()
	store := testutil.NewMemoryStore()
	exam, err := store.CreateExam(ctx, &types.Exam{
		Course:   "Physics",
		Date:     types.NewDate(2025, time.March, 3),
		MaxScore: 20,
	})
	require.NoError(t, err)
	c, err := store.CreateCopy(ctx, &types.Copy{ExamID: exam.ID, FilePath: "a.txt", StudentName: "Alice"})
	require.NoError(t, err)
	graded, err := store.SaveCorrection(ctx, c.ID, types.Correction{
		Grade:       14,
		Annotations: map[string]any{"feedback": "Good grasp of kinematics"},
	})
	require.NoError(t, err)
	return store, exam, graded
}

func TestReply_PersistsExchange(t *testing.T) {
	store, exam, c := setup(t)
	mock := &testutil.MockLLMClient{
		GenerateContentFunc: func(_ context.Context, _ string, _ llm.ModelTier) (string, error) {
			return "  You lost points on question 2.  ", nil
		},
	}
	svc := NewService(store, mock)

	resp, err := svc.Reply(context.Background(), exam, c, &types.ChatMessageRequest{
		Message: "Why did I get 14?",
		CopyID:  c.ID,
	})
	require.NoError(t, err)
	assert.Equal(t, "You lost points on question 2.", resp.Response)

	history, err := store.ListChatMessages(context.Background(), c.ID, 0)
	require.NoError(t, err)
	require.Len(t, history, 2)
	assert.Equal(t, types.ChatRoleUser, history[0].Role)
	assert.Equal(t, "Why did I get 14?", history[0].Content)
	assert.Equal(t, types.ChatRoleAssistant, history[1].Role)
	assert.Equal(t, resp.MessageID, history[1].ID)

	prompt := mock.Prompts()[0]
	assert.Contains(t, prompt, "Course: Physics")
	assert.Contains(t, prompt, "Grade: 14")
	assert.Contains(t, prompt, "Student: Alice")
	assert.Contains(t, prompt, "kinematics")
	assert.True(t, strings.HasSuffix(prompt, "user: Why did I get 14?\nassistant:"))
}

func TestReply_UsesRecentHistoryOnly(t *testing.T) {
	store, exam, c := setup(t)
	for i := 0; i < HistoryLimit+5; i++ {
		_, err := store.AddChatMessage(context.Background(), c.ID, types.ChatRoleUser, fmt.Sprintf("message-%02d", i))
		require.NoError(t, err)
	}
	mock := &testutil.MockLLMClient{}

	_, err := NewService(store, mock).Reply(context.Background(), exam, c, &types.ChatMessageRequest{Message: "next", CopyID: c.ID})
	require.NoError(t, err)

	prompt := mock.Prompts()[0]
	assert.NotContains(t, prompt, "message-04")
	assert.Contains(t, prompt, "message-05")
	assert.Contains(t, prompt, "message-24")
}

func TestReply_WithoutLLM(t *testing.T) {
	store, exam, c := setup(t)
	_, err := NewService(store, nil).Reply(context.Background(), exam, c, &types.ChatMessageRequest{Message: "hi", CopyID: c.ID})
	assert.ErrorIs(t, err, ErrUnavailable)
}

func TestReply_ProviderFailureStoresNothing(t *testing.T) {
	store, exam, c := setup(t)
	mock := &testutil.MockLLMClient{
		GenerateContentFunc: func(_ context.Context, _ string, _ llm.ModelTier) (string, error) {
			return "", errors.New("timeout")
		},
	}

	_, err := NewService(store, mock).Reply(context.Background(), exam, c, &types.ChatMessageRequest{Message: "hi", CopyID: c.ID})

	var providerErr *ProviderError
	require.ErrorAs(t, err, &providerErr)
	history, err := store.ListChatMessages(context.Background(), c.ID, 0)
	require.NoError(t, err)
	assert.Empty(t, history)
}

func TestRectify_WithLLM(t *testing.T) {
	store, exam, c := setup(t)
	mock := &testutil.MockLLMClient{
		GenerateContentFunc: func(_ context.Context, _ string, _ llm.ModelTier) (string, error) {
			return "A professor will look at question 3.", nil
		},
	}
	userID := uuid.New()

	resp, err := NewService(store, mock).Rectify(context.Background(), exam, c, " Question 3 was correct ", &userID)
	require.NoError(t, err)
	assert.Equal(t, types.ClaimPending, resp.Status)
	assert.Equal(t, "A professor will look at question 3.", resp.Response)
	assert.Equal(t, c.ID, resp.CopyID)

	claim, err := store.GetClaim(context.Background(), resp.ClaimID)
	require.NoError(t, err)
	assert.Equal(t, types.ClaimRectification, claim.Kind)
	assert.Equal(t, "Question 3 was correct", claim.Message)
	assert.Equal(t, exam.ID, claim.ExamID)
	require.NotNil(t, claim.CreatedBy)
	assert.Equal(t, userID, *claim.CreatedBy)
	assert.Contains(t, mock.Prompts()[0], "Question 3 was correct")
}

func TestRectify_FallbackWithoutLLM(t *testing.T) {
	store, exam, c := setup(t)

	resp, err := NewService(store, nil).Rectify(context.Background(), exam, c, "please check", nil)
	require.NoError(t, err)
	assert.Equal(t, prompts.MustGet(prompts.ChatbotFile, "rectify-fallback"), resp.Response)
}

func TestRectify_FallbackOnProviderError(t *testing.T) {
	store, exam, c := setup(t)
	mock := &testutil.MockLLMClient{
		GenerateContentFunc: func(_ context.Context, _ string, _ llm.ModelTier) (string, error) {
			return "", errors.New("unavailable")
		},
	}

	resp, err := NewService(store, mock).Rectify(context.Background(), exam, c, "please check", nil)
	require.NoError(t, err)
	assert.Equal(t, prompts.MustGet(prompts.ChatbotFile, "rectify-fallback"), resp.Response)
}

func TestFlag(t *testing.T) {
	store, exam, c := setup(t)
	svc := NewService(store, nil)

	resp, err := svc.Flag(context.Background(), exam, c, "Page 2 is missing", nil)
	require.NoError(t, err)
	assert.True(t, resp.Flagged)
	assert.Equal(t, "Page 2 is missing", resp.Issue)

	claims, err := store.ListClaims(context.Background(), exam.ID, types.ClaimPending)
	require.NoError(t, err)
	require.Len(t, claims, 1)
	assert.Equal(t, types.ClaimFlag, claims[0].Kind)
}

func TestFlag_DefaultIssue(t *testing.T) {
	store, exam, c := setup(t)

	resp, err := NewService(store, nil).Flag(context.Background(), exam, c, "   ", nil)
	require.NoError(t, err)
	assert.Equal(t, prompts.MustGet(prompts.ChatbotFile, "flag-default"), resp.Issue)
}

func TestBuildCopyContext_Ungraded(t *testing.T) {
	exam := &types.Exam{Course: "Chemistry", MaxScore: 20}
	c := &types.Copy{Status: types.CopyStatusPending}

	out, err := BuildCopyContext(exam, c, "")
	require.NoError(t, err)
	assert.Contains(t, out, "Grade: not graded yet")
	assert.Contains(t, out, "Student: unknown")
	assert.Contains(t, out, "Annotations:\nnone")
	assert.Contains(t, out, "Maximum score: 20")
}

func TestFormatHistory(t *testing.T) {
	assert.Equal(t, "(no previous messages)", FormatHistory(nil))
	out := FormatHistory([]types.ChatMessage{
		{Role: types.ChatRoleUser, Content: "Hello "},
		{Role: types.ChatRoleAssistant, Content: "Hi"},
	})
	assert.Equal(t, "user: Hello\nassistant: Hi", out)
}
