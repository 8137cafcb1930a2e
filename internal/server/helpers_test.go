package server

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/jonathan/exam-grader/internal/config"
	"github.com/jonathan/exam-grader/internal/llm"
	"github.com/jonathan/exam-grader/internal/metrics"
	"github.com/jonathan/exam-grader/internal/server/ratelimit"
	"github.com/jonathan/exam-grader/internal/storage"
	"github.com/jonathan/exam-grader/internal/testutil"
	"github.com/jonathan/exam-grader/internal/types"
)

const testJWTSecret = "test-secret-key-for-jwt-signing-minimum-32-bytes"

type testEnv struct {
	server  *Server
	store   *testutil.MemoryStore
	files   *storage.Local
	metrics *metrics.Metrics
	handler http.Handler
}

type envOption func(*Deps, *config.Config)

func withLLM(client llm.Client) envOption {
	return func(d *Deps, _ *config.Config) { d.LLM = client }
}

func withRateLimit(rl *ratelimit.Config) envOption {
	return func(d *Deps, _ *config.Config) { d.RateLimit = rl }
}

func withCORSOrigins(origins ...string) envOption {
	return func(_ *Deps, c *config.Config) { c.CORSOrigins = origins }
}

func testJWTConfig() *config.JWTConfig {
	return &config.JWTConfig{Secret: testJWTSecret, ExpirationMinutes: 30, Issuer: "exam-grader-test"}
}

func newTestEnv(t *testing.T, opts ...envOption) *testEnv {
	t.Helper()

	store := testutil.NewMemoryStore()
	files, err := storage.NewLocal(t.TempDir())
	require.NoError(t, err)

	cfg := &config.Config{Port: 0, MaxUploadMB: 1, GradingConcurrency: 2}
	deps := Deps{
		Store:     store,
		Files:     files,
		JWT:       testJWTConfig(),
		Password:  &config.PasswordConfig{BcryptCost: bcrypt.MinCost},
		RateLimit: &ratelimit.Config{Enabled: false},
		Metrics:   metrics.New(),
	}
	for _, opt := range opts {
		opt(&deps, cfg)
	}

	srv, err := NewWithDeps(cfg, deps)
	require.NoError(t, err)
	t.Cleanup(srv.Close)

	return &testEnv{server: srv, store: store, files: files, metrics: deps.Metrics, handler: srv.Handler()}
}

// login creates a user with the role and returns a bearer token for it.
func (e *testEnv) login(t *testing.T, role types.Role) string {
	t.Helper()
	email := fmt.Sprintf("%s-%d@example.com", role, time.Now().UnixNano())
	user, err := e.store.CreateUser(context.Background(), email, "Test "+string(role), role, "unused-hash")
	require.NoError(t, err)
	token, err := e.server.jwtService.GenerateToken(user.ID, role)
	require.NoError(t, err)
	return token
}

func (e *testEnv) do(t *testing.T, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var reader io.Reader
	if body != nil {
		switch b := body.(type) {
		case string:
			reader = bytes.NewBufferString(b)
		default:
			data, err := json.Marshal(b)
			require.NoError(t, err)
			reader = bytes.NewReader(data)
		}
	}
	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	e.handler.ServeHTTP(w, req)
	return w
}

type uploadFile struct {
	field string
	name  string
	data  []byte
}

func (e *testEnv) upload(t *testing.T, path, token string, fields map[string]string, files ...uploadFile) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	for k, v := range fields {
		require.NoError(t, mw.WriteField(k, v))
	}
	for _, f := range files {
		field := f.field
		if field == "" {
			field = "file"
		}
		part, err := mw.CreateFormFile(field, f.name)
		require.NoError(t, err)
		_, err = part.Write(f.data)
		require.NoError(t, err)
	}
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, path, &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	e.handler.ServeHTTP(w, req)
	return w
}

// createExam creates an exam through the API and returns it.
func (e *testEnv) createExam(t *testing.T, token string) *types.Exam {
	t.Helper()
	w := e.do(t, http.MethodPost, APIPrefix+"/exams", token, map[string]any{
		"course":     "Databases",
		"date":       "2025-01-20",
		"max_score":  20,
		"answer_key": "Q1: normal forms",
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var created types.CreateExamResponse
	decode(t, w, &created)
	exam, err := e.store.GetExam(context.Background(), created.ExamID)
	require.NoError(t, err)
	require.NotNil(t, exam)
	return exam
}

// addCopy uploads a text copy to the exam and returns it.
func (e *testEnv) addCopy(t *testing.T, token string, exam *types.Exam, text string) types.Copy {
	t.Helper()
	w := e.upload(t, fmt.Sprintf("%s/exams/%s/copies", APIPrefix, exam.ID), token, nil,
		uploadFile{name: "copy.txt", data: []byte(text)})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var resp types.UploadResponse
	decode(t, w, &resp)
	require.Len(t, resp.Copies, 1)
	return resp.Copies[0]
}

func decode(t *testing.T, w *httptest.ResponseRecorder, dst any) {
	t.Helper()
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), dst), w.Body.String())
}

func errorMessage(t *testing.T, w *httptest.ResponseRecorder) string {
	t.Helper()
	var body map[string]any
	decode(t, w, &body)
	msg, _ := body["error"].(string)
	return msg
}
