package middleware

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(GetClientFromContext(r.Context())))
	})
}

func TestAPIKeyAuth(t *testing.T) {
	h := APIKeyAuth(KeysFromList([]string{"k1", " ", "k2"}))(okHandler())

	cases := []struct {
		name   string
		path   string
		header string
		code   int
		body   string
	}{
		{"missing", "/history", "", http.StatusUnauthorized, ""},
		{"bad", "/history", "Bearer nope", http.StatusUnauthorized, ""},
		{"bearer", "/history", "Bearer k2", http.StatusOK, "client-2"},
		{"raw", "/history", "k1", http.StatusOK, "client-1"},
		{"public", "/health", "", http.StatusOK, ""},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, tc.path, nil)
			if tc.header != "" {
				req.Header.Set("Authorization", tc.header)
			}
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, req)
			require.Equal(t, tc.code, rec.Code)
			if tc.code == http.StatusOK {
				require.Equal(t, tc.body, rec.Body.String())
			}
		})
	}
}

func TestAPIKeyAuth_DisabledWithoutKeys(t *testing.T) {
	rec := httptest.NewRecorder()
	APIKeyAuth(nil)(okHandler()).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/history", nil))
	require.Equal(t, http.StatusOK, rec.Code)
}

func TestLoggingMiddleware_RecordsAuthenticatedClient(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, nil))
	h := LoggingMiddleware(logger)(APIKeyAuth(KeysFromList([]string{"k1"}))(okHandler()))

	entry := func(header string) map[string]any {
		buf.Reset()
		req := httptest.NewRequest(http.MethodGet, "/history", nil)
		if header != "" {
			req.Header.Set("Authorization", header)
		}
		h.ServeHTTP(httptest.NewRecorder(), req)
		var out map[string]any
		require.NoError(t, json.Unmarshal(buf.Bytes(), &out))
		return out
	}

	ok := entry("Bearer k1")
	require.Equal(t, "client-1", ok["client"])
	require.EqualValues(t, http.StatusOK, ok["status"])

	denied := entry("")
	require.Equal(t, "", denied["client"])
	require.EqualValues(t, http.StatusUnauthorized, denied["status"])
}

func TestTokenBucket(t *testing.T) {
	now := time.Unix(0, 0)
	tb := NewTokenBucket(2, 60)
	tb.now = func() time.Time { return now }
	tb.lastRefill = now

	require.True(t, tb.Allow())
	require.True(t, tb.Allow())
	require.False(t, tb.Allow())

	now = now.Add(time.Second)
	require.True(t, tb.Allow())
	require.False(t, tb.Allow())
}

func TestRateLimitMiddleware(t *testing.T) {
	rl := NewRateLimiter(1, 1)
	defer rl.Stop()
	h := RateLimitMiddleware(rl)(okHandler())

	do := func(path string) int {
		req := httptest.NewRequest(http.MethodGet, path, nil)
		req.RemoteAddr = "10.0.0.1:5555"
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		return rec.Code
	}
	require.Equal(t, http.StatusOK, do("/history"))
	require.Equal(t, http.StatusTooManyRequests, do("/history"))
	require.Equal(t, http.StatusOK, do("/health"))
}

func TestHealthHandler(t *testing.T) {
	h := HealthHandler(map[string]HealthChecker{
		"store": CheckerFunc(func(context.Context) error { return nil }),
		"db":    CheckerFunc(func(context.Context) error { return errors.New("down") }),
	})
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	require.Equal(t, http.StatusServiceUnavailable, rec.Code)
	require.Contains(t, rec.Body.String(), `"down"`)
}

func TestValidators(t *testing.T) {
	name, err := ValidatePatientName("  Ali\x00ce\x07 ")
	require.NoError(t, err)
	require.Equal(t, "Alice", name)

	long := make([]byte, 129)
	for i := range long {
		long[i] = 'a'
	}
	_, err = ValidatePatientName(string(long))
	require.Error(t, err)

	id, err := ValidateRecordID("42")
	require.NoError(t, err)
	require.Equal(t, int64(42), id)
	for _, bad := range []string{"0", "-1", "abc", ""} {
		_, err := ValidateRecordID(bad)
		require.Error(t, err, bad)
	}

	require.NoError(t, ValidateArtifactName("heat_123e4567-e89b-12d3-a456-426614174000.png"))
	require.Error(t, ValidateArtifactName("../secret.png"))

	require.Equal(t, 20, ValidateLimit(0))
	require.Equal(t, 100, ValidateLimit(1000))
}
