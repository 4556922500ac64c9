package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/omriShneor/calpal/internal/assistant"
	"github.com/omriShneor/calpal/internal/conversation"
	"github.com/omriShneor/calpal/internal/database"
	"github.com/omriShneor/calpal/internal/metrics"
)

const testFrontend = "http://localhost:5173"

type stubChat struct {
	lastReq    assistant.Request
	reply      assistant.Response
	history    []conversation.Turn
	historyErr error
}

func (c *stubChat) HandleMessage(_ context.Context, req assistant.Request) assistant.Response {
	c.lastReq = req
	return c.reply
}

func (c *stubChat) History(context.Context, string) ([]conversation.Turn, error) {
	return c.history, c.historyErr
}

type stubAuth struct {
	user *database.User
	err  error
	code string
}

func (a *stubAuth) GetAuthURL(state string) string {
	return "https://accounts.example.com/auth?state=" + url.QueryEscape(state)
}

func (a *stubAuth) ExchangeCodeAndLogin(_ context.Context, code string) (*database.User, error) {
	a.code = code
	return a.user, a.err
}

type stubHealth struct{ err error }

func (h stubHealth) Healthy(context.Context) error { return h.err }

// createTestServer creates a server backed by an in-memory database and stubbed collaborators
func createTestServer(t *testing.T, chat *stubChat, auth Authenticator) (*Server, *database.DB) {
	t.Helper()
	db := database.NewTestDB(t)
	m, err := metrics.New(prometheus.NewRegistry())
	require.NoError(t, err)

	s := New(ServerConfig{
		Chat:        chat,
		Auth:        auth,
		Users:       db,
		Health:      db,
		Metrics:     m,
		Port:        0,
		FrontendURL: testFrontend,
	})
	return s, db
}

func serve(s *Server, req *http.Request) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	s.Handler().ServeHTTP(w, req)
	return w
}

func TestHandleHealthCheck(t *testing.T) {
	t.Run("healthy with database", func(t *testing.T) {
		s, _ := createTestServer(t, &stubChat{}, nil)

		w := serve(s, httptest.NewRequest("GET", "/health", nil))

		assert.Equal(t, http.StatusOK, w.Code)
		var response map[string]string
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))
		assert.Equal(t, "healthy", response["status"])
	})

	t.Run("database down", func(t *testing.T) {
		s := New(ServerConfig{Chat: &stubChat{}, Health: stubHealth{err: errors.New("disk I/O error")}})

		w := serve(s, httptest.NewRequest("GET", "/health", nil))
		assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	})
}

func TestHandleRoot(t *testing.T) {
	s, _ := createTestServer(t, &stubChat{}, nil)

	w := serve(s, httptest.NewRequest("GET", "/", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "calPal API is running")

	w = serve(s, httptest.NewRequest("GET", "/nope", nil))
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestMetricsEndpoint(t *testing.T) {
	s, _ := createTestServer(t, &stubChat{}, nil)

	w := serve(s, httptest.NewRequest("GET", "/metrics", nil))
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestMiddleware(t *testing.T) {
	s, _ := createTestServer(t, &stubChat{}, nil)

	t.Run("assigns request id", func(t *testing.T) {
		w := serve(s, httptest.NewRequest("GET", "/health", nil))
		assert.NotEmpty(t, w.Header().Get("X-Request-ID"))
	})

	t.Run("keeps caller request id", func(t *testing.T) {
		req := httptest.NewRequest("GET", "/health", nil)
		req.Header.Set("X-Request-ID", "abc-123")
		w := serve(s, req)
		assert.Equal(t, "abc-123", w.Header().Get("X-Request-ID"))
	})

	t.Run("allows the frontend origin", func(t *testing.T) {
		req := httptest.NewRequest("OPTIONS", "/api/chat/message", nil)
		req.Header.Set("Origin", testFrontend)
		w := serve(s, req)
		assert.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, testFrontend, w.Header().Get("Access-Control-Allow-Origin"))
	})

	t.Run("ignores other origins", func(t *testing.T) {
		req := httptest.NewRequest("GET", "/health", nil)
		req.Header.Set("Origin", "http://evil.example.com")
		w := serve(s, req)
		assert.Empty(t, w.Header().Get("Access-Control-Allow-Origin"))
	})
}

func TestHandleChatMessage(t *testing.T) {
	chat := &stubChat{reply: assistant.Response{Success: true, Message: "Created 'Gym' for Tomorrow at 6:00 PM."}}
	s, _ := createTestServer(t, chat, nil)

	t.Run("passes the message to the assistant", func(t *testing.T) {
		body := `{"user_id":"ana@example.com","message":"add gym tomorrow at 6pm"}`
		w := serve(s, httptest.NewRequest("POST", "/api/chat/message", strings.NewReader(body)))

		assert.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, "ana@example.com", chat.lastReq.UserID)
		assert.Equal(t, "add gym tomorrow at 6pm", chat.lastReq.Message)

		var resp assistant.Response
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		assert.True(t, resp.Success)
		assert.Equal(t, chat.reply.Message, resp.Message)
	})

	t.Run("invalid json", func(t *testing.T) {
		w := serve(s, httptest.NewRequest("POST", "/api/chat/message", strings.NewReader("invalid json")))
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("wrong method", func(t *testing.T) {
		w := serve(s, httptest.NewRequest("GET", "/api/chat/message", nil))
		assert.Equal(t, http.StatusMethodNotAllowed, w.Code)
	})
}

func TestHandleChatHistory(t *testing.T) {
	at := time.Date(2026, 10, 19, 10, 0, 0, 0, time.UTC)

	tests := []struct {
		name       string
		query      string
		chat       *stubChat
		wantStatus int
		wantTurns  int
	}{
		{"missing user", "", &stubChat{}, http.StatusBadRequest, 0},
		{"empty history", "?user_id=ana@example.com", &stubChat{}, http.StatusOK, 0},
		{"two turns", "?user_id=ana@example.com", &stubChat{history: []conversation.Turn{
			{Text: "show my events", IsUser: true, Timestamp: at},
			{Text: "You have no upcoming events.", Timestamp: at},
		}}, http.StatusOK, 2},
		{"store failure", "?user_id=ana@example.com", &stubChat{historyErr: errors.New("database is locked")}, http.StatusInternalServerError, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, _ := createTestServer(t, tt.chat, nil)

			w := serve(s, httptest.NewRequest("GET", "/api/chat/history"+tt.query, nil))
			require.Equal(t, tt.wantStatus, w.Code)
			if tt.wantStatus != http.StatusOK {
				return
			}

			var resp struct {
				UserID  string              `json:"user_id"`
				History []conversation.Turn `json:"history"`
			}
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
			assert.Equal(t, "ana@example.com", resp.UserID)
			assert.NotNil(t, resp.History)
			assert.Len(t, resp.History, tt.wantTurns)
		})
	}
}
