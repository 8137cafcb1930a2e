package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jonathan/exam-grader/internal/llm"
	"github.com/jonathan/exam-grader/internal/testutil"
	"github.com/jonathan/exam-grader/internal/types"
)

// gradedCopy uploads a copy and stores a correction for it.
func gradedCopy(t *testing.T, env *testEnv, token string, exam *types.Exam, grade float64) types.Copy {
	t.Helper()
	c := env.addCopy(t, token, exam, "answer")
	graded, err := env.store.SaveCorrection(context.Background(), c.ID, types.Correction{
		Grade:        grade,
		Annotations:  map[string]any{"feedback": "Clear reasoning"},
		Competencies: map[string]int{"modeling": 3},
	})
	require.NoError(t, err)
	return *graded
}

func copyPath(examID, copyID uuid.UUID, suffix string) string {
	return fmt.Sprintf("%s/exams/%s/copies/%s/%s", APIPrefix, examID, copyID, suffix)
}

func TestGetGradeAndAnnotations(t *testing.T) {
	env := newTestEnv(t)
	professor := env.login(t, types.RoleProfessor)
	student := env.login(t, types.RoleStudent)
	exam := env.createExam(t, professor)
	pending := env.addCopy(t, professor, exam, "answer")
	graded := gradedCopy(t, env, professor, exam, 13)

	w := env.do(t, http.MethodGet, copyPath(exam.ID, graded.ID, "grade"), student, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, fmt.Sprintf(`{"copyId":%q,"grade":13}`, graded.ID), w.Body.String())

	w = env.do(t, http.MethodGet, copyPath(exam.ID, pending.ID, "grade"), student, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, fmt.Sprintf(`{"copyId":%q,"grade":null}`, pending.ID), w.Body.String())

	w = env.do(t, http.MethodGet, copyPath(exam.ID, graded.ID, "annotations"), student, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var annotations types.AnnotationsResponse
	decode(t, w, &annotations)
	assert.Equal(t, "Clear reasoning", annotations.Annotations["feedback"])

	w = env.do(t, http.MethodGet, copyPath(exam.ID, pending.ID, "annotations"), student, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, fmt.Sprintf(`{"copyId":%q,"annotations":{}}`, pending.ID), w.Body.String())

	w = env.do(t, http.MethodGet, copyPath(exam.ID, uuid.New(), "grade"), student, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestReport(t *testing.T) {
	env := newTestEnv(t)
	token := env.login(t, types.RoleProfessor)
	exam := env.createExam(t, token)
	gradedCopy(t, env, token, exam, 8)
	gradedCopy(t, env, token, exam, 16)
	env.addCopy(t, token, exam, "pending")
	reportPath := fmt.Sprintf("%s/exams/%s/report", APIPrefix, exam.ID)

	w := env.do(t, http.MethodGet, reportPath, token, nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var summary types.Report
	decode(t, w, &summary)
	assert.Equal(t, types.ReportTypeSummary, summary.Type)
	assert.Equal(t, 3, summary.Data.TotalCopies)
	assert.Equal(t, 2, summary.Data.GradedCopies)
	assert.Equal(t, 12.0, summary.Data.AverageGrade)
	assert.Equal(t, 50.0, summary.Data.PassRate)
	assert.Nil(t, summary.Data.Copies)

	w = env.do(t, http.MethodGet, reportPath+"?type=detailed", token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var detailed types.Report
	decode(t, w, &detailed)
	assert.Len(t, detailed.Data.Copies, 3)
	assert.Equal(t, 3.0, detailed.Data.Competencies["modeling"])

	w = env.do(t, http.MethodGet, reportPath+"?type=weekly", token, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = env.do(t, http.MethodGet, fmt.Sprintf("%s/exams/%s/report", APIPrefix, uuid.New()), token, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestChatMessage(t *testing.T) {
	mock := &testutil.MockLLMClient{
		GenerateContentFunc: func(_ context.Context, _ string, _ llm.ModelTier) (string, error) {
			return "Question 2 lacked a justification.", nil
		},
	}
	env := newTestEnv(t, withLLM(mock))
	professor := env.login(t, types.RoleProfessor)
	student := env.login(t, types.RoleStudent)
	exam := env.createExam(t, professor)
	c := gradedCopy(t, env, professor, exam, 11)

	w := env.do(t, http.MethodPost, APIPrefix+"/chatbot/message", student, map[string]any{
		"message": "Why did I lose points?",
		"copy_id": c.ID,
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var resp types.ChatMessageResponse
	decode(t, w, &resp)
	assert.Equal(t, "Question 2 lacked a justification.", resp.Response)

	w = env.do(t, http.MethodGet, fmt.Sprintf("%s/copies/%s/messages", APIPrefix, c.ID), student, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var messages []types.ChatMessage
	decode(t, w, &messages)
	require.Len(t, messages, 2)
	assert.Equal(t, types.ChatRoleUser, messages[0].Role)
	assert.Equal(t, resp.MessageID, messages[1].ID)

	w = env.do(t, http.MethodGet, fmt.Sprintf("%s/copies/%s/messages?limit=1", APIPrefix, c.ID), student, nil)
	require.Equal(t, http.StatusOK, w.Code)
	decode(t, w, &messages)
	assert.Len(t, messages, 1)

	w = env.do(t, http.MethodGet, fmt.Sprintf("%s/copies/%s/messages?limit=-2", APIPrefix, c.ID), student, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestChatMessage_Errors(t *testing.T) {
	failing := &testutil.MockLLMClient{
		GenerateContentFunc: func(_ context.Context, _ string, _ llm.ModelTier) (string, error) {
			return "", errors.New("upstream timeout")
		},
	}
	env := newTestEnv(t, withLLM(failing))
	token := env.login(t, types.RoleStudent)
	professor := env.login(t, types.RoleProfessor)
	exam := env.createExam(t, professor)
	c := gradedCopy(t, env, professor, exam, 11)

	w := env.do(t, http.MethodPost, APIPrefix+"/chatbot/message", token, map[string]any{"message": "hi", "copy_id": c.ID})
	assert.Equal(t, http.StatusBadGateway, w.Code)

	w = env.do(t, http.MethodPost, APIPrefix+"/chatbot/message", token, map[string]any{"message": "hi", "copy_id": uuid.New()})
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = env.do(t, http.MethodPost, APIPrefix+"/chatbot/message", token, map[string]any{"copy_id": c.ID})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestChatMessage_WithoutLLM(t *testing.T) {
	env := newTestEnv(t)
	token := env.login(t, types.RoleStudent)

	w := env.do(t, http.MethodPost, APIPrefix+"/chatbot/message", token, map[string]any{"message": "hi", "copy_id": uuid.New()})

	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}

func TestRectifyAndResolveClaim(t *testing.T) {
	env := newTestEnv(t)
	professor := env.login(t, types.RoleProfessor)
	student := env.login(t, types.RoleStudent)
	exam := env.createExam(t, professor)
	c := gradedCopy(t, env, professor, exam, 9)

	w := env.do(t, http.MethodPost, copyPath(exam.ID, c.ID, "rectify"), student, map[string]any{
		"message": "Question 3 matches the answer key",
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var rectified types.RectifyResponse
	decode(t, w, &rectified)
	assert.Equal(t, c.ID, rectified.CopyID)
	assert.Equal(t, types.ClaimPending, rectified.Status)
	assert.NotEmpty(t, rectified.Response)

	claimsPath := fmt.Sprintf("%s/exams/%s/claims", APIPrefix, exam.ID)
	w = env.do(t, http.MethodGet, claimsPath+"?status=pending", professor, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var claims []types.Claim
	decode(t, w, &claims)
	require.Len(t, claims, 1)
	assert.Equal(t, rectified.ClaimID, claims[0].ID)
	assert.Equal(t, types.ClaimRectification, claims[0].Kind)
	require.NotNil(t, claims[0].CreatedBy)

	resolvePath := fmt.Sprintf("%s/claims/%s", APIPrefix, rectified.ClaimID)
	w = env.do(t, http.MethodPatch, resolvePath, professor, map[string]any{"resolved": false})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = env.do(t, http.MethodPatch, resolvePath, professor, map[string]any{"resolved": true, "response": "Grade raised to 11"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var resolved types.Claim
	decode(t, w, &resolved)
	assert.Equal(t, types.ClaimResolved, resolved.Status)
	assert.Equal(t, "Grade raised to 11", resolved.Response)
	assert.NotNil(t, resolved.ResolvedAt)

	w = env.do(t, http.MethodGet, claimsPath+"?status=pending", professor, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `[]`, w.Body.String())

	w = env.do(t, http.MethodGet, claimsPath+"?status=open", professor, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = env.do(t, http.MethodPatch, fmt.Sprintf("%s/claims/%s", APIPrefix, uuid.New()), professor, map[string]any{"resolved": true})
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestFlag(t *testing.T) {
	env := newTestEnv(t)
	professor := env.login(t, types.RoleProfessor)
	student := env.login(t, types.RoleStudent)
	exam := env.createExam(t, professor)
	c := env.addCopy(t, professor, exam, "answer")

	w := env.do(t, http.MethodPost, copyPath(exam.ID, c.ID, "flag"), student, map[string]any{"reason": "Page 3 is missing"})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var flagged types.FlagResponse
	decode(t, w, &flagged)
	assert.True(t, flagged.Flagged)
	assert.Equal(t, "Page 3 is missing", flagged.Issue)

	w = env.do(t, http.MethodPost, copyPath(exam.ID, c.ID, "flag"), student, nil)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	decode(t, w, &flagged)
	assert.NotEmpty(t, flagged.Issue)

	req := httptest.NewRequest(http.MethodPost, copyPath(exam.ID, c.ID, "flag"), strings.NewReader(""))
	req.ContentLength = -1
	req.Header.Set("Authorization", "Bearer "+student)
	rec := httptest.NewRecorder()
	env.handler.ServeHTTP(rec, req)
	require.Equal(t, http.StatusCreated, rec.Code, "chunked empty body: %s", rec.Body.String())

	w = env.do(t, http.MethodPost, copyPath(exam.ID, c.ID, "flag"), student, "{not json")
	assert.Equal(t, http.StatusBadRequest, w.Code)

	claims, err := env.store.ListClaims(context.Background(), exam.ID, "")
	require.NoError(t, err)
	assert.Len(t, claims, 3)
}
