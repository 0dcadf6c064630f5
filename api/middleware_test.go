package api

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestCORSWildcard(t *testing.T) {
	api := newTestAPI(&stubAnalyzer{configured: true}, &stubTranscriber{})

	req := httptest.NewRequest("GET", "/health", nil)
	req.Header.Set("Origin", "https://frontend.example.com")

	resp := doRequest(api, req)
	assert.Equal(t, "*", resp.Header().Get("Access-Control-Allow-Origin"))
}

func TestCORSExplicitOriginList(t *testing.T) {
	cfg := testConfig()
	cfg.API.AllowedOrigins = []string{"https://allowed.example.com"}
	api := NewAPI(&stubAnalyzer{configured: true}, &stubTranscriber{}, cfg, zap.NewNop().Sugar())

	req := httptest.NewRequest("GET", "/health", nil)
	req.Header.Set("Origin", "https://allowed.example.com")
	resp := doRequest(api, req)
	assert.Equal(t, "https://allowed.example.com", resp.Header().Get("Access-Control-Allow-Origin"))

	req = httptest.NewRequest("GET", "/health", nil)
	req.Header.Set("Origin", "https://other.example.com")
	resp = doRequest(api, req)
	assert.Empty(t, resp.Header().Get("Access-Control-Allow-Origin"))
}

func TestCORSPreflight(t *testing.T) {
	api := newTestAPI(&stubAnalyzer{configured: true}, &stubTranscriber{})

	req := httptest.NewRequest("OPTIONS", "/api/chat", nil)
	req.Header.Set("Origin", "https://frontend.example.com")

	resp := doRequest(api, req)
	assert.Equal(t, http.StatusOK, resp.Code)
	assert.Contains(t, resp.Header().Get("Access-Control-Allow-Methods"), "POST")
}

func TestSecurityHeaders(t *testing.T) {
	api := newTestAPI(&stubAnalyzer{configured: true}, &stubTranscriber{})

	resp := doRequest(api, httptest.NewRequest("GET", "/health", nil))
	assert.Equal(t, "nosniff", resp.Header().Get("X-Content-Type-Options"))
	assert.Equal(t, "DENY", resp.Header().Get("X-Frame-Options"))
}

func TestRateLimiting(t *testing.T) {
	cfg := testConfig()
	cfg.API.RateLimit.RequestsPerSecond = 1
	cfg.API.RateLimit.Burst = 2
	api := NewAPI(&stubAnalyzer{configured: true}, &stubTranscriber{}, cfg, zap.NewNop().Sugar())

	var limited bool
	for i := 0; i < 5; i++ {
		req := httptest.NewRequest("GET", "/health", nil)
		req.RemoteAddr = "203.0.113.7:12345"
		if doRequest(api, req).Code == http.StatusTooManyRequests {
			limited = true
		}
	}
	assert.True(t, limited, "expected burst to be exhausted")

	// A different client IP has its own budget.
	req := httptest.NewRequest("GET", "/health", nil)
	req.RemoteAddr = "203.0.113.8:12345"
	assert.Equal(t, http.StatusOK, doRequest(api, req).Code)
}

func TestJSONBodyLimit(t *testing.T) {
	cfg := testConfig()
	cfg.API.JSONBodyLimit = 64
	api := NewAPI(&stubAnalyzer{configured: true}, &stubTranscriber{}, cfg, zap.NewNop().Sugar())

	payload := `{"message": "` + string(make([]byte, 256)) + `", "language": "English"}`
	req := httptest.NewRequest("POST", "/api/chat", strings.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")

	resp := doRequest(api, req)
	assert.Equal(t, http.StatusRequestEntityTooLarge, resp.Code)
}

func TestSanitizeErrorMessage(t *testing.T) {
	require.NotContains(t, sanitizeErrorMessage("dial redis://u:p@host:6379 refused"), "redis://")
	require.NotContains(t, sanitizeErrorMessage("token: abc123 rejected"), "abc123")
	assert.Contains(t, sanitizeErrorMessage("plain failure"), "plain failure")

	long := make([]byte, 1024)
	for i := range long {
		long[i] = 'x'
	}
	assert.LessOrEqual(t, len(sanitizeErrorMessage(string(long))), maxErrorMessageLength)
}
