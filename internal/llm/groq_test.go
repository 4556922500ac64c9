package llm

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/sashabaranov/go-openai"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newGroqServer(t *testing.T, content string, captured *openai.ChatCompletionRequest) *httptest.Server {
	t.Helper()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer groq-key", r.Header.Get("Authorization"))
		if captured != nil {
			require.NoError(t, json.NewDecoder(r.Body).Decode(captured))
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]any{
			"id":     "chatcmpl-1",
			"object": "chat.completion",
			"model":  "llama-3.1-8b-instant",
			"choices": []map[string]any{{
				"index":         0,
				"message":       map[string]any{"role": "assistant", "content": content},
				"finish_reason": "stop",
			}},
		})
	}))
	t.Cleanup(server.Close)
	return server
}

func TestGroqComplete(t *testing.T) {
	var req openai.ChatCompletionRequest
	server := newGroqServer(t, `{"action":"delete","title":"gym"}`, &req)

	client := NewGroqClient(GroqConfig{APIKey: "groq-key", BaseURL: server.URL, System: "You classify calendar commands."})
	text, err := client.Complete(context.Background(), "User message: \"cancel gym\"")
	require.NoError(t, err)
	assert.Equal(t, `{"action":"delete","title":"gym"}`, text)

	assert.Equal(t, defaultGroqModel, req.Model)
	require.Len(t, req.Messages, 2)
	assert.Equal(t, openai.ChatMessageRoleSystem, req.Messages[0].Role)
	assert.Equal(t, openai.ChatMessageRoleUser, req.Messages[1].Role)
	assert.Contains(t, req.Messages[1].Content, "cancel gym")
	assert.True(t, client.IsConfigured())
}

func TestGroqCompleteEmptyReply(t *testing.T) {
	server := newGroqServer(t, "  ", nil)

	client := NewGroqClient(GroqConfig{APIKey: "groq-key", BaseURL: server.URL})
	_, err := client.Complete(context.Background(), "hi")
	assert.ErrorIs(t, err, ErrEmptyResponse)
}

func TestGroqCompleteHTTPError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusUnauthorized)
		w.Write([]byte(`{"error":{"message":"invalid api key","type":"invalid_request_error"}}`))
	}))
	defer server.Close()

	client := NewGroqClient(GroqConfig{APIKey: "bad", BaseURL: server.URL})
	_, err := client.Complete(context.Background(), "hi")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "groq request failed")
}
