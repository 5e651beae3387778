package server

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/teemow/calchat/internal/agent"
	"github.com/teemow/calchat/internal/llm"
	"github.com/teemow/calchat/internal/session"
)

type agentCall struct {
	history []llm.Message
	input   string
}

type fakeAgent struct {
	calls []agentCall
	reply string
	err   error
}

func (f *fakeAgent) Run(ctx context.Context, history []llm.Message, input string) (*agent.Result, error) {
	f.calls = append(f.calls, agentCall{history: history, input: input})
	if f.err != nil {
		return nil, f.err
	}
	transcript := append(append([]llm.Message(nil), history...),
		llm.Message{Role: llm.RoleUser, Content: input},
		llm.Message{Role: llm.RoleAssistant, Content: f.reply},
	)
	return &agent.Result{Reply: f.reply, Messages: transcript, Iterations: 1}, nil
}

func newTestChatServer(t *testing.T, a ChatAgent, opts ...func(*ChatServerConfig)) (*ChatServer, *session.MemoryStore) {
	t.Helper()
	store := session.NewMemoryStore(time.Hour)
	cfg := ChatServerConfig{Agent: a, Sessions: store}
	for _, opt := range opts {
		opt(&cfg)
	}
	s, err := NewChatServer(cfg)
	require.NoError(t, err)
	return s, store
}

func postChat(t *testing.T, s *ChatServer, body string) (int, ChatResponse) {
	t.Helper()
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/chat", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	s.Handler().ServeHTTP(rec, req)

	var resp ChatResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp), rec.Body.String())
	return rec.Code, resp
}

func TestChat_EmptyAndMissingUserMessage(t *testing.T) {
	a := &fakeAgent{reply: "unused"}
	s, _ := newTestChatServer(t, a)

	tests := []struct {
		name string
		body string
		want string
	}{
		{name: "no messages", body: `{"messages":[]}`, want: replyNoMessage},
		{name: "missing messages", body: `{}`, want: replyNoMessage},
		{name: "no user message", body: `{"messages":[{"role":"assistant","content":"hello"}]}`, want: replyNoUserMessage},
		{name: "empty user message", body: `{"messages":[{"role":"user","content":""}]}`, want: replyNoUserMessage},
		{
			name: "empty latest user message after earlier request",
			body: `{"messages":[{"role":"user","content":"cancel my 3pm meeting"},{"role":"assistant","content":"sure"},{"role":"user","content":""}]}`,
			want: replyNoUserMessage,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			code, resp := postChat(t, s, tt.body)
			assert.Equal(t, http.StatusOK, code)
			assert.Equal(t, tt.want, resp.Reply)
		})
	}
	assert.Empty(t, a.calls)
}

func TestChat_InvalidJSON(t *testing.T) {
	s, _ := newTestChatServer(t, &fakeAgent{})

	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/chat", strings.NewReader("{not json")))

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	var body map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.NotEmpty(t, body["error"])
}

func TestChat_HistoryFromRequest(t *testing.T) {
	a := &fakeAgent{reply: "Which timezone are you in?"}
	s, store := newTestChatServer(t, a)

	code, resp := postChat(t, s, `{"messages":[
		{"role":"user","content":"show my bookings"},
		{"role":"assistant","content":"What is your email?"},
		{"role":"system","content":"ignored"},
		{"role":"user","content":"jane@example.com"}
	]}`)
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, "Which timezone are you in?", resp.Reply)
	require.NotEmpty(t, resp.SessionID)

	require.Len(t, a.calls, 1)
	assert.Equal(t, "jane@example.com", a.calls[0].input)
	assert.Equal(t, []llm.Message{
		{Role: llm.RoleUser, Content: "show my bookings"},
		{Role: llm.RoleAssistant, Content: "What is your email?"},
	}, a.calls[0].history)

	saved, err := store.Get(context.Background(), resp.SessionID)
	require.NoError(t, err)
	assert.Len(t, saved, 4)
	assert.Equal(t, "Which timezone are you in?", saved[3].Content)
}

func TestChat_HistoryFromSession(t *testing.T) {
	a := &fakeAgent{reply: "Done."}
	s, store := newTestChatServer(t, a)

	stored := []llm.Message{
		{Role: llm.RoleUser, Content: "cancel my 3pm meeting"},
		{Role: llm.RoleAssistant, Content: "What is your email?"},
	}
	require.NoError(t, store.Save(context.Background(), "s-1", stored))

	code, resp := postChat(t, s, `{"session_id":"s-1","messages":[{"role":"user","content":"jane@example.com"}]}`)
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, "s-1", resp.SessionID)

	require.Len(t, a.calls, 1)
	assert.Equal(t, stored, a.calls[0].history)

	saved, err := store.Get(context.Background(), "s-1")
	require.NoError(t, err)
	assert.Len(t, saved, 4)
}

func TestChat_AgentFailure(t *testing.T) {
	s, store := newTestChatServer(t, &fakeAgent{err: errors.New("model unavailable")})

	code, resp := postChat(t, s, `{"session_id":"s-2","messages":[{"role":"user","content":"hi"}]}`)
	assert.Equal(t, http.StatusInternalServerError, code)
	assert.Equal(t, ReplyFailure, resp.Reply)
	assert.Contains(t, resp.Error, "model unavailable")
	assert.Equal(t, 0, store.Len())
}

func TestSessions_GetAndDelete(t *testing.T) {
	s, store := newTestChatServer(t, &fakeAgent{})
	require.NoError(t, store.Save(context.Background(), "s-3", []llm.Message{{Role: llm.RoleUser, Content: "hi"}}))

	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/sessions/s-3", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	var resp SessionResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "s-3", resp.SessionID)
	assert.Len(t, resp.Messages, 1)

	rec = httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodDelete, "/sessions/s-3", nil))
	assert.Equal(t, http.StatusNoContent, rec.Code)

	rec = httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/sessions/s-3", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestChatServer_Routes(t *testing.T) {
	mcpHandler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, "mcp")
	})
	s, _ := newTestChatServer(t, &fakeAgent{}, func(cfg *ChatServerConfig) {
		cfg.MCPHandler = mcpHandler
		cfg.Health = NewHealthChecker(nil)
		cfg.Metrics = createTestProvider(t).Metrics()
	})

	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "/chat")

	rec = httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/mcp", nil))
	assert.Equal(t, "mcp", rec.Body.String())

	rec = httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/readyz", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestNewChatServer_Validation(t *testing.T) {
	_, err := NewChatServer(ChatServerConfig{Sessions: session.NewMemoryStore(0)})
	assert.Error(t, err)

	_, err = NewChatServer(ChatServerConfig{Agent: &fakeAgent{}})
	assert.Error(t, err)
}
