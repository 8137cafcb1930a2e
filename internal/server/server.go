package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net"
	"net/http"
	"os"
	"os/signal"
	"slices"
	"strings"
	"syscall"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/jonathan/exam-grader/internal/chatbot"
	"github.com/jonathan/exam-grader/internal/config"
	"github.com/jonathan/exam-grader/internal/correction"
	"github.com/jonathan/exam-grader/internal/db"
	"github.com/jonathan/exam-grader/internal/extraction"
	"github.com/jonathan/exam-grader/internal/grading"
	"github.com/jonathan/exam-grader/internal/llm"
	"github.com/jonathan/exam-grader/internal/metrics"
	"github.com/jonathan/exam-grader/internal/server/middleware"
	"github.com/jonathan/exam-grader/internal/server/ratelimit"
	"github.com/jonathan/exam-grader/internal/storage"
	"github.com/jonathan/exam-grader/internal/types"
)

// APIPrefix is the path prefix of every API route.
const APIPrefix = "/api/v1"

// Server represents the HTTP server
type Server struct {
	httpServer  *http.Server
	store       Store
	files       *storage.Local
	llmClient   llm.Client
	maxUpload   int64
	corsOrigins []string
	rateLimiter *ratelimit.Limiter
	metrics     *metrics.Metrics
	jwtService  *JWTService
	userService *UserService
	authHandler *AuthHandler
	correction  *correction.Service
	chatbot     *chatbot.Service
	validator   *validator.Validate
	closers     []func()
}

// Deps are the collaborators of a Server. LLM may be nil, which disables
// grading and conversation.
type Deps struct {
	Store     Store
	Files     *storage.Local
	LLM       llm.Client
	JWT       *config.JWTConfig
	Password  *config.PasswordConfig
	RateLimit *ratelimit.Config
	Metrics   *metrics.Metrics
}

// New connects to the database, creates the LLM client when an API key is
// configured and builds the server.
func New(ctx context.Context, cfg *config.Config) (*Server, error) {
	database, err := db.Connect(ctx, cfg.DatabaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	files, err := storage.NewLocal(cfg.UploadDir)
	if err != nil {
		database.Close()
		return nil, fmt.Errorf("failed to open upload directory: %w", err)
	}
	log.Printf("[server] storing uploads in %s", files.Root())

	passwordConfig, err := config.NewPasswordConfig()
	if err != nil {
		database.Close()
		return nil, fmt.Errorf("failed to create password config: %w", err)
	}

	jwtConfig, err := config.NewJWTConfig()
	if err != nil {
		database.Close()
		return nil, fmt.Errorf("failed to create JWT config: %w", err)
	}

	var client llm.Client
	if cfg.GradingEnabled() {
		llmConfig, err := llm.ConfigFromEnv()
		if err != nil {
			database.Close()
			return nil, fmt.Errorf("failed to load LLM config: %w", err)
		}
		client, err = llm.NewClient(ctx, llmConfig, cfg.APIKey)
		if err != nil {
			database.Close()
			return nil, fmt.Errorf("failed to create LLM client: %w", err)
		}
	} else {
		log.Printf("GEMINI_API_KEY not set: correction and chatbot endpoints are disabled")
	}

	s, err := NewWithDeps(cfg, Deps{
		Store:     database,
		Files:     files,
		LLM:       client,
		JWT:       jwtConfig,
		Password:  passwordConfig,
		RateLimit: ratelimit.LoadConfig(),
		Metrics:   metrics.New(),
	})
	if err != nil {
		database.Close()
		return nil, err
	}
	s.closers = append(s.closers, database.Close)
	if client != nil {
		s.closers = append(s.closers, func() { _ = client.Close() })
	}
	return s, nil
}

// NewWithDeps builds a server from explicit collaborators.
func NewWithDeps(cfg *config.Config, deps Deps) (*Server, error) {
	if deps.Store == nil || deps.Files == nil || deps.JWT == nil || deps.Password == nil {
		return nil, fmt.Errorf("server requires a store, file storage, JWT and password configs")
	}
	if deps.Metrics == nil {
		deps.Metrics = metrics.New()
	}

	s := &Server{
		store:       deps.Store,
		files:       deps.Files,
		llmClient:   deps.LLM,
		maxUpload:   cfg.MaxUploadBytes(),
		corsOrigins: cfg.CORSOrigins,
		rateLimiter: ratelimit.NewLimiter(deps.RateLimit),
		metrics:     deps.Metrics,
		jwtService:  NewJWTService(deps.JWT),
		validator:   validator.New(),
	}
	if len(s.corsOrigins) == 0 {
		s.corsOrigins = []string{"*"}
	}

	s.userService = NewUserService(deps.Store, deps.Password)
	s.authHandler = NewAuthHandler(s.userService, s.jwtService)
	s.chatbot = chatbot.NewService(deps.Store, deps.LLM)
	if deps.LLM != nil {
		s.correction = correction.NewService(
			deps.Store,
			deps.Files,
			extraction.New(deps.LLM, extraction.DefaultMaxChars),
			grading.NewGrader(deps.LLM),
			correction.Options{Concurrency: cfg.GradingConcurrency, Observer: deps.Metrics},
		)
	}

	s.httpServer = &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      s.metrics.Middleware(s.withRateLimit(s.withLogging(s.withCORS(s.routes())))),
		ReadTimeout:  60 * time.Second,
		WriteTimeout: 15 * time.Minute, // batch corrections stream for a long time
		IdleTimeout:  60 * time.Second,
	}

	return s, nil
}

func (s *Server) routes() *http.ServeMux {
	authn := middleware.AuthMiddleware(s.jwtService.AsTokenValidator())
	staff := middleware.RequireRole(types.RoleProfessor, types.RoleAdmin)

	member := func(h http.HandlerFunc) http.Handler { return authn(h) }
	manage := func(h http.HandlerFunc) http.Handler { return authn(staff(h)) }

	mux := http.NewServeMux()
	mux.HandleFunc("GET /{$}", s.handleRoot)
	mux.HandleFunc("GET /health", s.handleHealth)
	mux.Handle("GET /metrics", s.metrics.Handler())

	// Auth
	mux.HandleFunc("POST "+APIPrefix+"/auth/login", s.authHandler.Login)
	mux.HandleFunc("POST "+APIPrefix+"/auth/register", s.authHandler.Register)
	mux.Handle("GET "+APIPrefix+"/auth/me", member(s.authHandler.Me))
	mux.Handle("PUT "+APIPrefix+"/auth/password", member(s.authHandler.UpdatePassword))

	// Exams
	mux.Handle("POST "+APIPrefix+"/exams", manage(s.handleCreateExam))
	mux.Handle("GET "+APIPrefix+"/exams", member(s.handleListExams))
	mux.Handle("GET "+APIPrefix+"/exams/{id}", member(s.handleGetExam))
	mux.Handle("PATCH "+APIPrefix+"/exams/{id}", manage(s.handleUpdateExam))
	mux.Handle("DELETE "+APIPrefix+"/exams/{id}", manage(s.handleDeleteExam))

	// Copies
	mux.Handle("POST "+APIPrefix+"/exams/{id}/copies", manage(s.handleUploadCopies))
	mux.Handle("GET "+APIPrefix+"/exams/{id}/copies", member(s.handleListCopies))
	mux.Handle("GET "+APIPrefix+"/exams/{id}/copies/{copyId}", member(s.handleGetExamCopy))
	mux.Handle("GET "+APIPrefix+"/exams/{id}/copies/{copyId}/file", member(s.handleCopyFile))
	mux.Handle("DELETE "+APIPrefix+"/exams/{id}/copies/{copyId}", manage(s.handleDeleteCopy))
	mux.Handle("GET "+APIPrefix+"/copies/{copyId}", member(s.handleGetCopy))

	// Correction
	mux.Handle("POST "+APIPrefix+"/exams/{id}/copies/{copyId}/correct", manage(s.handleCorrectCopy))
	mux.Handle("POST "+APIPrefix+"/exams/{id}/correct", manage(s.handleCorrectExam))
	mux.Handle("POST "+APIPrefix+"/exams/{id}/correct/stream", manage(s.handleCorrectExamStream))
	mux.Handle("PATCH "+APIPrefix+"/exams/{id}/copies/{copyId}/review", manage(s.handleReviewCopy))

	// Results
	mux.Handle("GET "+APIPrefix+"/exams/{id}/copies/{copyId}/grade", member(s.handleGetGrade))
	mux.Handle("GET "+APIPrefix+"/exams/{id}/copies/{copyId}/annotations", member(s.handleGetAnnotations))
	mux.Handle("GET "+APIPrefix+"/exams/{id}/report", member(s.handleReport))

	// Chatbot and claims
	mux.Handle("POST "+APIPrefix+"/chatbot/message", member(s.handleChatMessage))
	mux.Handle("GET "+APIPrefix+"/copies/{copyId}/messages", member(s.handleListMessages))
	mux.Handle("POST "+APIPrefix+"/exams/{id}/copies/{copyId}/rectify", member(s.handleRectify))
	mux.Handle("POST "+APIPrefix+"/exams/{id}/copies/{copyId}/flag", member(s.handleFlag))
	mux.Handle("GET "+APIPrefix+"/exams/{id}/claims", manage(s.handleListClaims))
	mux.Handle("PATCH "+APIPrefix+"/claims/{id}", manage(s.handleResolveClaim))

	return mux
}

// Handler returns the root HTTP handler with every middleware applied.
func (s *Server) Handler() http.Handler {
	return s.httpServer.Handler
}

// Start begins listening for requests and blocks until SIGINT or SIGTERM.
func (s *Server) Start() error {
	// Graceful shutdown
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

	errCh := make(chan error, 1)
	go func() {
		log.Printf("Server starting on %s", s.httpServer.Addr)
		if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		s.Close()
		return fmt.Errorf("server error: %w", err)
	case <-stop:
	}
	log.Println("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := s.httpServer.Shutdown(ctx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}

	s.Close()
	log.Println("Server stopped")
	return nil
}

// Close releases the rate limiter, the database pool and the LLM client.
func (s *Server) Close() {
	if s.rateLimiter != nil {
		s.rateLimiter.Stop()
	}
	for _, closer := range s.closers {
		closer()
	}
	s.closers = nil
}

// withCORS adds CORS headers
func (s *Server) withCORS(next http.Handler) http.Handler {
	allowAll := slices.Contains(s.corsOrigins, "*")
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		origin := r.Header.Get("Origin")
		switch {
		case allowAll:
			w.Header().Set("Access-Control-Allow-Origin", "*")
		case origin != "" && slices.Contains(s.corsOrigins, origin):
			w.Header().Set("Access-Control-Allow-Origin", origin)
			w.Header().Add("Vary", "Origin")
		}
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, PATCH, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Authorization, Content-Type")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}

// withRateLimit refuses requests over their rule's budget with 429.
func (s *Server) withRateLimit(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		allowed, info := s.rateLimiter.Allow(s.clientKey(r), r.URL.Path, r.Method)
		s.setRateLimitHeaders(w, info)
		if !allowed {
			s.metrics.RateLimited(info.Rule)
			s.rateLimitResponse(w, info)
			return
		}

		next.ServeHTTP(w, r)
	})
}

// withLogging adds request logging
func (s *Server) withLogging(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		log.Printf("[%s] %s %s", r.Method, r.URL.Path, r.RemoteAddr)
		next.ServeHTTP(w, r)
		log.Printf("[%s] %s completed in %v", r.Method, r.URL.Path, time.Since(start))
	})
}

// handleRoot returns a welcome message
func (s *Server) handleRoot(w http.ResponseWriter, _ *http.Request) {
	jsonResponse(w, http.StatusOK, map[string]string{
		"message": "Welcome to the exam grader API",
		"docs":    APIPrefix,
	})
}

// handleHealth returns server health status
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	status := map[string]any{
		"status":   "ok",
		"database": "ok",
		"grading":  s.llmClient != nil,
	}
	if err := s.store.Ping(ctx); err != nil {
		log.Printf("[health] database ping failed: %v", err)
		status["status"] = "degraded"
		status["database"] = "unreachable"
		jsonResponse(w, http.StatusServiceUnavailable, status)
		return
	}
	jsonResponse(w, http.StatusOK, status)
}

// jsonResponse writes a JSON response
func jsonResponse(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		log.Printf("Error encoding JSON response: %v", err)
	}
}

// errorResponse writes an error JSON response
func errorResponse(w http.ResponseWriter, status int, message string) {
	jsonResponse(w, status, map[string]string{"error": message})
}

// handleError writes err with the status HTTPStatus maps it to. Internal errors
// are logged and answered with a generic message.
func handleError(w http.ResponseWriter, err error) {
	status := HTTPStatus(err)
	if status == http.StatusInternalServerError {
		log.Printf("Internal error: %v", err)
		errorResponse(w, status, "Internal server error")
		return
	}
	errorResponse(w, status, err.Error())
}

// decodeJSON decodes the request body into dst and validates it.
func (s *Server) decodeJSON(r *http.Request, dst any) error {
	dec := json.NewDecoder(r.Body)
	if err := dec.Decode(dst); err != nil {
		return &ErrValidation{Message: "invalid request body: " + err.Error()}
	}
	if err := s.validator.Struct(dst); err != nil {
		return &ErrValidation{Message: strings.TrimPrefix(extractValidationErrors(err), "validation error: ")}
	}
	return nil
}

// decodeOptionalJSON is decodeJSON for bodies that may be empty, whatever the
// Content-Length says. An empty body leaves dst untouched.
func (s *Server) decodeOptionalJSON(r *http.Request, dst any) error {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		if errors.Is(err, io.EOF) {
			return nil
		}
		return &ErrValidation{Message: "invalid request body: " + err.Error()}
	}
	if err := s.validator.Struct(dst); err != nil {
		return &ErrValidation{Message: strings.TrimPrefix(extractValidationErrors(err), "validation error: ")}
	}
	return nil
}

// clientKey identifies the caller for rate limiting: the user of a valid bearer
// token, otherwise the remote IP. Forwarded headers are not trusted.
func (s *Server) clientKey(r *http.Request) string {
	if token, ok := middleware.BearerToken(r); ok {
		if claims, err := s.jwtService.ValidateToken(token); err == nil {
			return "user:" + claims.GetUserID().String()
		}
	}
	ip, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return ip
}

// setRateLimitHeaders sets standard rate limit headers on the response.
func (s *Server) setRateLimitHeaders(w http.ResponseWriter, info ratelimit.Info) {
	if info.Limit > 0 {
		w.Header().Set("X-RateLimit-Limit", fmt.Sprintf("%d", info.Limit))
		w.Header().Set("X-RateLimit-Remaining", fmt.Sprintf("%d", info.Remaining))
		w.Header().Set("X-RateLimit-Reset", fmt.Sprintf("%d", info.ResetTime.Unix()))
	}
}

// rateLimitResponse writes a 429 Too Many Requests response with rate limit information.
func (s *Server) rateLimitResponse(w http.ResponseWriter, info ratelimit.Info) {
	response := map[string]any{
		"error":     "rate_limit_exceeded",
		"message":   "Rate limit exceeded. Please try again later.",
		"limit":     info.Limit,
		"remaining": info.Remaining,
		"reset_at":  info.ResetTime.Format(time.RFC3339),
	}

	if info.RetryAfter > 0 {
		response["retry_after"] = int(info.RetryAfter.Seconds())
		w.Header().Set("Retry-After", fmt.Sprintf("%d", int(info.RetryAfter.Seconds())))
	}

	log.Printf("[rate-limit] %s exceeded: limit=%d reset=%s",
		info.Rule, info.Limit, info.ResetTime.Format(time.RFC3339))

	jsonResponse(w, http.StatusTooManyRequests, response)
}
