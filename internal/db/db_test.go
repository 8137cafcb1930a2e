package db

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jonathan/exam-grader/internal/types"
)

func TestMarshalJSONB(t *testing.T) {
	var nilMap map[string]any
	data, err := marshalJSONB(nilMap)
	require.NoError(t, err)
	assert.Nil(t, data, "nil maps are stored as NULL")

	data, err = marshalJSONB(map[string]int{"algebra": 4})
	require.NoError(t, err)
	assert.JSONEq(t, `{"algebra":4}`, string(data))
}

func TestUnmarshalJSONB(t *testing.T) {
	var annotations map[string]any
	require.NoError(t, unmarshalJSONB(nil, &annotations))
	assert.Nil(t, annotations)

	require.NoError(t, unmarshalJSONB([]byte(`{"feedback":"ok"}`), &annotations))
	assert.Equal(t, "ok", annotations["feedback"])

	assert.Error(t, unmarshalJSONB([]byte(`{broken`), &annotations))
}

func TestNormalizeEmail(t *testing.T) {
	assert.Equal(t, "prof@school.edu", normalizeEmail("  Prof@School.EDU "))
}

func TestSchemaDeclaresTables(t *testing.T) {
	schema := Schema()
	for _, table := range []string{"users", "exams", "copies", "claims", "chat_messages"} {
		assert.Contains(t, schema, "CREATE TABLE IF NOT EXISTS "+table)
	}
	assert.Contains(t, schema, "ON DELETE CASCADE")
}

func TestUserProfile(t *testing.T) {
	created := time.Date(2024, 1, 10, 8, 0, 0, 0, time.UTC)
	u := User{
		ID:           uuid.New(),
		Email:        "prof@school.edu",
		FullName:     "Ada Prof",
		Role:         types.RoleProfessor,
		PasswordHash: "secret-hash",
		CreatedAt:    created,
	}

	profile := u.Profile()
	assert.Equal(t, u.ID, profile.ID)
	assert.Equal(t, "prof@school.edu", profile.Email)
	assert.Equal(t, types.RoleProfessor, profile.Role)
	assert.Equal(t, created, profile.CreatedAt)
}
