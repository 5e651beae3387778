package server

import (
	"context"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"

	"github.com/teemow/calchat/internal/agent"
	"github.com/teemow/calchat/internal/instrumentation"
	"github.com/teemow/calchat/internal/llm"
	"github.com/teemow/calchat/internal/logging"
	"github.com/teemow/calchat/internal/session"
)

const (
	// DefaultChatAddr is the default listen address of the chat server.
	DefaultChatAddr = ":5001"

	maxChatBodyBytes = 1 << 20

	replyNoMessage     = "I didn't receive any message. Please try again."
	replyNoUserMessage = "I didn't receive a user message. Please try again."

	// ReplyFailure is shown to the user when a turn fails.
	ReplyFailure = "Sorry, something went wrong while handling your request. Please try again."
)

//go:embed static
var staticFiles embed.FS

// ChatAgent answers a user message given the earlier conversation.
type ChatAgent interface {
	Run(ctx context.Context, history []llm.Message, input string) (*agent.Result, error)
}

// ChatServerConfig holds the dependencies of the chat server.
type ChatServerConfig struct {
	Agent    ChatAgent
	Sessions session.Store

	// MCPHandler is mounted on /mcp when set.
	MCPHandler http.Handler

	Health  *HealthChecker
	Metrics *instrumentation.Metrics
	Logger  *slog.Logger
}

// ChatServer serves the chat page, the /chat API, session lookups and,
// optionally, the MCP endpoint.
type ChatServer struct {
	agent    ChatAgent
	sessions session.Store
	metrics  *instrumentation.Metrics
	logger   *slog.Logger
	router   chi.Router

	mu         sync.Mutex
	httpServer *http.Server
}

// ChatMessage is one message as exchanged with the browser.
type ChatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// ChatRequest is the body of POST /chat.
type ChatRequest struct {
	Messages  []ChatMessage `json:"messages"`
	SessionID string        `json:"session_id,omitempty"`
}

// ChatResponse is the body returned by POST /chat.
type ChatResponse struct {
	Reply     string `json:"reply"`
	SessionID string `json:"session_id,omitempty"`
	Error     string `json:"error,omitempty"`
}

// SessionResponse is the body of GET /sessions/{id}.
type SessionResponse struct {
	SessionID string        `json:"session_id"`
	Messages  []llm.Message `json:"messages"`
}

// NewChatServer creates a ChatServer.
func NewChatServer(cfg ChatServerConfig) (*ChatServer, error) {
	if cfg.Agent == nil {
		return nil, errors.New("chat agent is required")
	}
	if cfg.Sessions == nil {
		return nil, errors.New("session store is required")
	}

	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	s := &ChatServer{
		agent:    cfg.Agent,
		sessions: cfg.Sessions,
		metrics:  cfg.Metrics,
		logger:   logging.WithComponent(logger, "chat"),
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(s.httpMetrics)

	static, err := fs.Sub(staticFiles, "static")
	if err != nil {
		return nil, fmt.Errorf("failed to load chat page: %w", err)
	}
	r.Get("/", func(w http.ResponseWriter, r *http.Request) {
		http.ServeFileFS(w, r, static, "index.html")
	})
	r.Post("/chat", s.handleChat)
	r.Get("/sessions/{id}", s.handleGetSession)
	r.Delete("/sessions/{id}", s.handleDeleteSession)

	if cfg.Health != nil {
		cfg.Health.RegisterHealthEndpoints(r)
	}
	if cfg.MCPHandler != nil {
		r.Handle("/mcp", cfg.MCPHandler)
	}

	s.router = r
	return s, nil
}

// Handler returns the root HTTP handler.
func (s *ChatServer) Handler() http.Handler {
	return s.router
}

// Start serves on addr until Shutdown is called.
func (s *ChatServer) Start(addr string) error {
	return s.StartWithReadySignal(addr, nil)
}

// StartWithReadySignal is like Start but sends the bound address on ready.
func (s *ChatServer) StartWithReadySignal(addr string, ready chan<- string) error {
	if addr == "" {
		addr = DefaultChatAddr
	}

	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", addr, err)
	}

	srv := &http.Server{
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       120 * time.Second,
	}
	s.mu.Lock()
	s.httpServer = srv
	s.mu.Unlock()

	s.logger.Info("starting chat server", "addr", listener.Addr().String())
	if ready != nil {
		ready <- listener.Addr().String()
	}

	if err := srv.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown gracefully stops the server.
func (s *ChatServer) Shutdown(ctx context.Context) error {
	s.mu.Lock()
	srv := s.httpServer
	s.mu.Unlock()

	if srv == nil {
		return nil
	}
	s.logger.Info("shutting down chat server")
	return srv.Shutdown(ctx)
}

func (s *ChatServer) handleChat(w http.ResponseWriter, r *http.Request) {
	var req ChatRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxChatBodyBytes)).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body: " + err.Error()})
		return
	}

	if len(req.Messages) == 0 {
		writeJSON(w, http.StatusOK, ChatResponse{Reply: replyNoMessage})
		return
	}

	last := -1
	for i := len(req.Messages) - 1; i >= 0; i-- {
		if req.Messages[i].Role == string(llm.RoleUser) {
			last = i
			break
		}
	}
	// An empty latest user message is not replaced by an earlier one.
	if last < 0 || req.Messages[last].Content == "" {
		writeJSON(w, http.StatusOK, ChatResponse{Reply: replyNoUserMessage})
		return
	}
	input := req.Messages[last].Content

	ctx := r.Context()
	sessionID := req.SessionID
	newSession := sessionID == ""
	if newSession {
		sessionID = uuid.NewString()
	}

	ctx, span := instrumentation.StartChatTurnSpan(ctx, sessionID)
	defer span.End()
	ctx = instrumentation.ContextWithSessionID(ctx, sessionID)

	logger := logging.WithSession(s.logger, sessionID)

	history := historyFrom(req.Messages[:last])
	if len(req.Messages) == 1 && !newSession {
		stored, err := s.sessions.Get(ctx, sessionID)
		switch {
		case err == nil:
			history = stored
		case errors.Is(err, session.ErrNotFound):
			newSession = true
		default:
			logger.Warn("failed to load session, continuing without history", logging.Err(err))
		}
	}

	span.SetAttributes(attribute.Int("chat.history_length", len(history)))
	logger.Info("chat turn", "history", len(history))

	result, err := s.agent.Run(ctx, history, input)
	if err != nil {
		instrumentation.SetSpanError(span, err)
		s.recordTurn(ctx, instrumentation.StatusError)
		logger.Error("agent failed", logging.Err(err))
		writeJSON(w, http.StatusInternalServerError, ChatResponse{Reply: ReplyFailure, Error: err.Error()})
		return
	}

	if err := s.sessions.Save(ctx, sessionID, result.Messages); err != nil {
		logger.Warn("failed to save session", logging.Err(err))
	} else if newSession && s.metrics != nil {
		s.metrics.RecordSessionCreated(ctx)
	}

	instrumentation.SetSpanSuccess(span)
	s.recordTurn(ctx, instrumentation.StatusSuccess)
	writeJSON(w, http.StatusOK, ChatResponse{Reply: result.Reply, SessionID: sessionID})
}

func (s *ChatServer) recordTurn(ctx context.Context, status string) {
	if s.metrics != nil {
		s.metrics.RecordChatTurn(ctx, status)
	}
}

// historyFrom keeps the user and assistant messages of a browser transcript.
func historyFrom(messages []ChatMessage) []llm.Message {
	history := make([]llm.Message, 0, len(messages))
	for _, m := range messages {
		switch llm.Role(m.Role) {
		case llm.RoleUser, llm.RoleAssistant:
			history = append(history, llm.Message{Role: llm.Role(m.Role), Content: m.Content})
		}
	}
	return history
}

func (s *ChatServer) handleGetSession(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	messages, err := s.sessions.Get(r.Context(), id)
	if err != nil {
		if errors.Is(err, session.ErrNotFound) {
			writeJSON(w, http.StatusNotFound, map[string]string{"error": err.Error()})
			return
		}
		s.logger.Error("failed to load session", logging.Session(id), logging.Err(err))
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}

	writeJSON(w, http.StatusOK, SessionResponse{SessionID: id, Messages: messages})
}

func (s *ChatServer) handleDeleteSession(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	if err := s.sessions.Delete(r.Context(), id); err != nil {
		s.logger.Error("failed to delete session", logging.Session(id), logging.Err(err))
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// httpMetrics records request counts and latency per route pattern.
func (s *ChatServer) httpMetrics(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s.metrics == nil {
			next.ServeHTTP(w, r)
			return
		}

		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		route := "unmatched"
		if rctx := chi.RouteContext(r.Context()); rctx != nil && rctx.RoutePattern() != "" {
			route = rctx.RoutePattern()
		}
		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		s.metrics.RecordHTTPRequest(r.Context(), r.Method, route, status, time.Since(start))
	})
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
