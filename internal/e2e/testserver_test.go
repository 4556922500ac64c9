package e2e

import (
	"bytes"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/require"

	"github.com/omriShneor/calpal/internal/assistant"
	"github.com/omriShneor/calpal/internal/command"
	"github.com/omriShneor/calpal/internal/conversation"
	"github.com/omriShneor/calpal/internal/database"
	"github.com/omriShneor/calpal/internal/executor"
	"github.com/omriShneor/calpal/internal/intent"
	"github.com/omriShneor/calpal/internal/matcher"
	"github.com/omriShneor/calpal/internal/metrics"
	"github.com/omriShneor/calpal/internal/server"
	"github.com/omriShneor/calpal/internal/testutil"
	"github.com/omriShneor/calpal/internal/timeutil"
)

// TestServer wraps the full chat stack behind an httptest server
type TestServer struct {
	DB         *database.DB
	Calendars  *testutil.FakeProvider
	Metrics    *metrics.Metrics
	HTTPServer *httptest.Server
	TestUser   *database.User
}

// NewTestServer wires the real pipeline on an in-memory database. Calendars are
// in-memory fakes; the test user starts with an empty one.
func NewTestServer(t *testing.T, completer intent.Completer) *TestServer {
	t.Helper()

	db := database.NewTestDB(t)
	m, err := metrics.New(prometheus.NewRegistry())
	require.NoError(t, err)

	ts := &TestServer{
		DB:        db,
		Calendars: testutil.NewFakeProvider(),
		Metrics:   m,
		TestUser:  database.CreateTestUser(t, db),
	}
	ts.Calendars.Set(ts.TestUser.Email, testutil.NewFakeCalendar())

	srv := server.New(server.ServerConfig{
		Chat:    newAssistant(t, db, ts.Calendars, completer, m),
		Users:   db,
		Health:  db,
		Metrics: m,
	})
	ts.HTTPServer = httptest.NewServer(srv.Handler())
	t.Cleanup(ts.HTTPServer.Close)

	return ts
}

// newAssistant builds a fresh assistant over db, as a restarted process would
func newAssistant(t *testing.T, db *database.DB, calendars *testutil.FakeProvider, completer intent.Completer, m *metrics.Metrics) *assistant.Service {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	clock := timeutil.FixedClock{At: testutil.RefNow}

	manager, err := conversation.NewManager(db, conversation.ManagerConfig{HistorySize: 20})
	require.NoError(t, err)

	classifier := intent.NewClassifier(completer, intent.Config{Timeout: time.Second}, logger, m)
	return assistant.New(assistant.Deps{
		Parser:        command.NewParser(classifier, clock, logger),
		Executor:      executor.New(matcher.NewResolver(matcher.DefaultConfig()), clock, executor.Config{}, logger, m),
		Conversations: manager,
		Calendars:     calendars,
		Clock:         clock,
		Logger:        logger,
		Metrics:       m,
	})
}

// BaseURL returns the test server base URL
func (ts *TestServer) BaseURL() string {
	return ts.HTTPServer.URL
}

// Calendar returns the fake calendar of the test user
func (ts *TestServer) Calendar(t *testing.T) *testutil.FakeCalendar {
	t.Helper()
	svc, err := ts.Calendars.ForUser(t.Context(), ts.TestUser.Email)
	require.NoError(t, err)
	return svc.(*testutil.FakeCalendar)
}

// Send posts a chat message and decodes the reply
func (ts *TestServer) Send(t *testing.T, userID, message string) assistant.Response {
	t.Helper()
	body, err := json.Marshal(assistant.Request{UserID: userID, Message: message})
	require.NoError(t, err)

	resp, err := ts.HTTPServer.Client().Post(ts.BaseURL()+"/api/chat/message", "application/json", bytes.NewReader(body))
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var out assistant.Response
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	return out
}
