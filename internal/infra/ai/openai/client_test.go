package openai

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"

	domai "github.com/bryanwahyu/lungscan/internal/domain/ai"
)

func newTestClient(t *testing.T, h http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	return New(Options{APIKey: "test", BaseURL: srv.URL + "/v1", Model: "gpt-4o-mini"})
}

func TestComplete_Success(t *testing.T) {
	var got struct {
		Model     string `json:"model"`
		MaxTokens int    `json:"max_tokens"`
		Messages  []struct {
			Role    string `json:"role"`
			Content string `json:"content"`
		} `json:"messages"`
	}
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/v1/chat/completions", r.URL.Path)
		require.Equal(t, "Bearer test", r.Header.Get("Authorization"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id":"x","object":"chat.completion","choices":[{"index":0,"message":{"role":"assistant","content":"breathe deeply"},"finish_reason":"stop"}]}`))
	})

	out, err := c.Complete(context.Background(), "sys", "user")
	require.NoError(t, err)
	require.Equal(t, "breathe deeply", out)
	require.Equal(t, "gpt-4o-mini", got.Model)
	require.Equal(t, defaultMaxTokens, got.MaxTokens)
	require.Len(t, got.Messages, 2)
	require.Equal(t, "system", got.Messages[0].Role)
	require.Equal(t, "user", got.Messages[1].Content)
}

func TestComplete_ServerError(t *testing.T) {
	calls := 0
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(`{"error":{"message":"boom","type":"server_error"}}`))
	})
	_, err := c.Complete(context.Background(), "sys", "user")
	require.Error(t, err)
	require.Equal(t, 1, calls, "exactly one attempt per call")
}

func TestComplete_QuotaExceeded(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		_, _ = w.Write([]byte(`{"error":{"message":"slow down","type":"rate_limit"}}`))
	})
	_, err := c.Complete(context.Background(), "sys", "user")
	require.ErrorIs(t, err, domai.ErrQuotaExceeded)
}

func TestComplete_MalformedAndEmpty(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"choices": [`))
	})
	_, err := c.Complete(context.Background(), "sys", "user")
	require.Error(t, err)

	c = newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"choices":[]}`))
	})
	_, err = c.Complete(context.Background(), "sys", "user")
	require.ErrorIs(t, err, domai.ErrEmptyCompletion)
}

func TestNewOpenRouterDefaults(t *testing.T) {
	c := NewOpenRouter("k", "")
	require.Equal(t, DefaultOpenRouterModel, c.Model)
	require.Equal(t, 250, c.MaxTokens)
}
