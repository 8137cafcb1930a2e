package server

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jonathan/exam-grader/internal/types"
)

func TestCreateExam(t *testing.T) {
	env := newTestEnv(t)
	token := env.login(t, types.RoleProfessor)

	exam := env.createExam(t, token)

	assert.Equal(t, "Databases", exam.Course)
	assert.Equal(t, "2025-01-20", exam.Date.String())
	assert.Equal(t, 20.0, exam.MaxScore)
	assert.Equal(t, "Q1: normal forms", exam.AnswerKey)
	require.NotNil(t, exam.CreatedBy)
}

func TestCreateExam_DefaultsMaxScore(t *testing.T) {
	env := newTestEnv(t)
	token := env.login(t, types.RoleProfessor)

	w := env.do(t, http.MethodPost, APIPrefix+"/exams", token, map[string]any{
		"course": "Compilers",
		"date":   "2025-03-14",
	})
	require.Equal(t, http.StatusCreated, w.Code)
	var created types.CreateExamResponse
	decode(t, w, &created)

	exam, err := env.store.GetExam(context.Background(), created.ExamID)
	require.NoError(t, err)
	assert.Equal(t, types.DefaultMaxScore, exam.MaxScore)
}

func TestCreateExam_Validation(t *testing.T) {
	env := newTestEnv(t)
	token := env.login(t, types.RoleProfessor)

	tests := []struct {
		name string
		body any
	}{
		{name: "missing course", body: map[string]any{"date": "2025-01-01"}},
		{name: "missing date", body: map[string]any{"course": "Maths"}},
		{name: "bad date", body: map[string]any{"course": "Maths", "date": "01/02/2025"}},
		{name: "negative max score", body: map[string]any{"course": "Maths", "date": "2025-01-01", "max_score": -5}},
		{name: "malformed JSON", body: `{"course":`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := env.do(t, http.MethodPost, APIPrefix+"/exams", token, tt.body)
			assert.Equal(t, http.StatusBadRequest, w.Code, w.Body.String())
			assert.Contains(t, errorMessage(t, w), "validation error")
		})
	}
}

func TestListExams(t *testing.T) {
	env := newTestEnv(t)
	professor := env.login(t, types.RoleProfessor)
	student := env.login(t, types.RoleStudent)

	w := env.do(t, http.MethodGet, APIPrefix+"/exams", student, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `[]`, w.Body.String())

	for _, date := range []string{"2024-06-01", "2025-01-10"} {
		w := env.do(t, http.MethodPost, APIPrefix+"/exams", professor, map[string]any{"course": "History", "date": date})
		require.Equal(t, http.StatusCreated, w.Code)
	}

	w = env.do(t, http.MethodGet, APIPrefix+"/exams", student, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var exams []types.Exam
	decode(t, w, &exams)
	require.Len(t, exams, 2)
	assert.Equal(t, "2025-01-10", exams[0].Date.String())
}

func TestGetExam(t *testing.T) {
	env := newTestEnv(t)
	token := env.login(t, types.RoleProfessor)
	exam := env.createExam(t, token)

	w := env.do(t, http.MethodGet, fmt.Sprintf("%s/exams/%s", APIPrefix, exam.ID), token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var got types.Exam
	decode(t, w, &got)
	assert.Equal(t, exam.ID, got.ID)

	w = env.do(t, http.MethodGet, fmt.Sprintf("%s/exams/%s", APIPrefix, uuid.New()), token, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Contains(t, errorMessage(t, w), "exam not found")

	w = env.do(t, http.MethodGet, APIPrefix+"/exams/not-a-uuid", token, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestUpdateExam(t *testing.T) {
	env := newTestEnv(t)
	token := env.login(t, types.RoleProfessor)
	exam := env.createExam(t, token)
	path := fmt.Sprintf("%s/exams/%s", APIPrefix, exam.ID)

	w := env.do(t, http.MethodPatch, path, token, map[string]any{"max_score": 40, "description": "Final"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var updated types.Exam
	decode(t, w, &updated)
	assert.Equal(t, 40.0, updated.MaxScore)
	assert.Equal(t, "Final", updated.Description)
	assert.Equal(t, "Databases", updated.Course)

	w = env.do(t, http.MethodPatch, path, token, map[string]any{})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = env.do(t, http.MethodPatch, fmt.Sprintf("%s/exams/%s", APIPrefix, uuid.New()), token, map[string]any{"course": "X"})
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestDeleteExam_RemovesCopiesAndFiles(t *testing.T) {
	env := newTestEnv(t)
	token := env.login(t, types.RoleProfessor)
	exam := env.createExam(t, token)
	c := env.addCopy(t, token, exam, "my answer")

	stored, err := env.store.GetCopy(context.Background(), c.ID)
	require.NoError(t, err)
	_, err = os.Stat(filepath.Join(env.files.Root(), stored.FilePath))
	require.NoError(t, err)

	w := env.do(t, http.MethodDelete, fmt.Sprintf("%s/exams/%s", APIPrefix, exam.ID), token, nil)
	require.Equal(t, http.StatusNoContent, w.Code)

	got, err := env.store.GetCopy(context.Background(), c.ID)
	require.NoError(t, err)
	assert.Nil(t, got)
	_, err = os.Stat(filepath.Join(env.files.Root(), exam.ID.String()))
	assert.True(t, os.IsNotExist(err))

	w = env.do(t, http.MethodDelete, fmt.Sprintf("%s/exams/%s", APIPrefix, exam.ID), token, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}
