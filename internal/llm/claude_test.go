package llm

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewClaudeClient(t *testing.T) {
	tests := []struct {
		name           string
		apiKey         string
		model          string
		temperature    float64
		expectedModel  string
		expectedTemp   float64
		expectedConfig bool
	}{
		{"with all parameters", "test-api-key", "claude-3-opus", 0.5, "claude-3-opus", 0.5, true},
		{"empty model uses default", "test-api-key", "", 0.3, defaultClaudeModel, 0.3, true},
		{"zero temperature uses default", "test-api-key", "claude-3-sonnet", 0, "claude-3-sonnet", 0.1, true},
		{"empty api key", "", "some-model", 0.2, "some-model", 0.2, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client := NewClaudeClient(tt.apiKey, tt.model, tt.temperature, "system")

			require.NotNil(t, client)
			assert.Equal(t, tt.expectedModel, client.model)
			assert.Equal(t, tt.expectedTemp, client.temperature)
			assert.Equal(t, tt.expectedConfig, client.IsConfigured())
			assert.Equal(t, defaultClaudeAPIURL, client.apiURL)
		})
	}
}

func TestClaudeComplete(t *testing.T) {
	var got anthropicRequest
	var headers http.Header
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		headers = r.Header.Clone()
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"id":"msg_1","type":"message","content":[{"type":"text","text":"{\"action\":"},{"type":"text","text":"\"list\"}"}],"stop_reason":"end_turn"}`))
	}))
	defer server.Close()

	client := NewClaudeClient("test-key", "claude-test", 0.2, "You classify calendar commands.")
	client.apiURL = server.URL

	text, err := client.Complete(context.Background(), "User message: \"show my events\"")
	require.NoError(t, err)
	assert.Equal(t, `{"action":"list"}`, text)

	assert.Equal(t, "test-key", headers.Get("x-api-key"))
	assert.Equal(t, anthropicVersion, headers.Get("anthropic-version"))
	assert.Equal(t, "claude-test", got.Model)
	assert.Equal(t, "You classify calendar commands.", got.System)
	require.Len(t, got.Messages, 1)
	assert.Equal(t, "user", got.Messages[0].Role)
	assert.Contains(t, got.Messages[0].Content, "show my events")
}

func TestClaudeCompleteErrors(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		body    string
		wantErr string
	}{
		{"http error", http.StatusTooManyRequests, `{"type":"error"}`, "status 429"},
		{"api error body", http.StatusOK, `{"error":{"type":"overloaded_error","message":"busy"}}`, "overloaded_error"},
		{"empty content", http.StatusOK, `{"content":[]}`, "empty response"},
		{"malformed json", http.StatusOK, `{`, "failed to unmarshal"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				w.Write([]byte(tt.body))
			}))
			defer server.Close()

			client := NewClaudeClient("k", "", 0, "")
			client.apiURL = server.URL

			_, err := client.Complete(context.Background(), "hi")
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestClaudeCompleteHonorsContext(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-r.Context().Done()
	}))
	defer server.Close()

	client := NewClaudeClient("k", "", 0, "")
	client.apiURL = server.URL

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := client.Complete(ctx, "hi")
	assert.ErrorIs(t, err, context.Canceled)
}
