package server

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/maxiofs/linelog/internal/config"
	"github.com/maxiofs/linelog/internal/linelog"
	"github.com/maxiofs/linelog/internal/metrics"
	"github.com/maxiofs/linelog/internal/middleware"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testConfig() *config.Config {
	return &config.Config{
		LogLevel:        "info",
		LogFormat:       "json",
		Listen:          "127.0.0.1:0",
		MaxRequestBytes: 1024,
		Metrics:         config.MetricsConfig{Enable: true, Path: "/metrics"},
	}
}

func newTestServer(t *testing.T, cfg *config.Config) (*Server, string) {
	t.Helper()

	path := filepath.Join(t.TempDir(), "debug.log")
	registry := metrics.NewRegistry()
	debugLog := linelog.Open(path, linelog.Options{Metrics: linelog.NewMetrics(registry)})
	t.Cleanup(func() { _ = debugLog.Close() })

	srv, err := New(cfg, debugLog, registry)
	require.NoError(t, err)
	return srv, path
}

func readDebugLog(t *testing.T, path string) []string {
	t.Helper()
	b, err := os.ReadFile(path)
	require.NoError(t, err)
	if len(b) == 0 {
		return nil
	}
	lines := strings.Split(strings.TrimSuffix(string(b), "\n"), "\n")
	for i := range lines {
		lines[i] = strings.TrimSuffix(lines[i], "\r")
	}
	return lines
}

func decodeResponse(t *testing.T, rr *httptest.ResponseRecorder, data interface{}) APIResponse {
	t.Helper()
	resp := APIResponse{Data: data}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
	return resp
}

func postLines(srv *Server, contentType, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/api/v1/lines", strings.NewReader(body))
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	rr := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rr, req)
	return rr
}

func TestNew_RequiresDebugLog(t *testing.T) {
	_, err := New(testConfig(), nil, metrics.NewRegistry())
	assert.ErrorIs(t, err, ErrNoDebugLog)
}

func TestNew_RequiresRegistryWhenMetricsEnabled(t *testing.T) {
	debugLog := linelog.Open(filepath.Join(t.TempDir(), "debug.log"), linelog.Options{})
	defer debugLog.Close()

	_, err := New(testConfig(), debugLog, nil)
	assert.ErrorIs(t, err, ErrNoRegistry)

	cfg := testConfig()
	cfg.Metrics.Enable = false
	_, err = New(cfg, debugLog, nil)
	assert.NoError(t, err)
}

func TestAppendLines_PlainText(t *testing.T) {
	srv, path := newTestServer(t, testConfig())

	rr := postLines(srv, "text/plain; charset=utf-8", "first\r\nsecond\n\nfourth\n")

	require.Equal(t, http.StatusAccepted, rr.Code)
	var result AppendResult
	resp := decodeResponse(t, rr, &result)
	assert.True(t, resp.Success)
	assert.Equal(t, 4, result.Accepted)
	assert.Equal(t, rr.Header().Get(middleware.RequestIDHeader), result.RequestID)

	assert.Equal(t, []string{"first", "second", "", "fourth"}, readDebugLog(t, path))
}

func TestAppendLines_DefaultsToText(t *testing.T) {
	srv, path := newTestServer(t, testConfig())

	rr := postLines(srv, "", "no trailing newline")

	require.Equal(t, http.StatusAccepted, rr.Code)
	assert.Equal(t, []string{"no trailing newline"}, readDebugLog(t, path))
}

func TestAppendLines_EmptyBody(t *testing.T) {
	srv, path := newTestServer(t, testConfig())

	rr := postLines(srv, "text/plain", "")

	require.Equal(t, http.StatusAccepted, rr.Code)
	var result AppendResult
	decodeResponse(t, rr, &result)
	assert.Zero(t, result.Accepted)
	assert.Empty(t, readDebugLog(t, path))
}

func TestAppendLines_JSON(t *testing.T) {
	srv, path := newTestServer(t, testConfig())

	rr := postLines(srv, "application/json", `{"lines": ["alpha", "100% done", ""]}`)

	require.Equal(t, http.StatusAccepted, rr.Code)
	var result AppendResult
	decodeResponse(t, rr, &result)
	assert.Equal(t, 3, result.Accepted)
	assert.Equal(t, []string{"alpha", "100% done", ""}, readDebugLog(t, path))
}

func TestAppendLines_Rejected(t *testing.T) {
	tests := []struct {
		name        string
		contentType string
		body        string
		wantStatus  int
	}{
		{"multiline JSON entry", "application/json", `{"lines": ["ok", "bad\nentry"]}`, http.StatusBadRequest},
		{"carriage return in JSON entry", "application/json", `{"lines": ["a\rb"]}`, http.StatusBadRequest},
		{"bare carriage return in text", "text/plain", "ok\na\rb\n", http.StatusBadRequest},
		{"malformed JSON", "application/json", `{"lines": [`, http.StatusBadRequest},
		{"unsupported media type", "application/xml", `<lines/>`, http.StatusUnsupportedMediaType},
		{"invalid content type", "text/", "x", http.StatusBadRequest},
		{"body too large", "text/plain", strings.Repeat("x", 2048), http.StatusRequestEntityTooLarge},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv, path := newTestServer(t, testConfig())

			rr := postLines(srv, tt.contentType, tt.body)

			assert.Equal(t, tt.wantStatus, rr.Code)
			resp := decodeResponse(t, rr, nil)
			assert.False(t, resp.Success)
			assert.NotEmpty(t, resp.Error)
			assert.Empty(t, readDebugLog(t, path), "rejected requests must not write")
		})
	}
}

func TestAppendLines_MethodNotAllowed(t *testing.T) {
	srv, _ := newTestServer(t, testConfig())

	rr := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/api/v1/lines", nil))

	assert.Equal(t, http.StatusMethodNotAllowed, rr.Code)
}

func TestHealth_OK(t *testing.T) {
	srv, path := newTestServer(t, testConfig())
	postLines(srv, "text/plain", "hello\n")

	rr := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/health", nil))

	require.Equal(t, http.StatusOK, rr.Code)
	var health HealthStatus
	resp := decodeResponse(t, rr, &health)
	assert.True(t, resp.Success)
	assert.Equal(t, "ok", health.Status)
	assert.Equal(t, path, health.Path)
	assert.Empty(t, health.Error)
	require.NotNil(t, health.Destination)
	assert.Equal(t, int64(len("hello\n")), health.Destination.SizeBytes)
}

func TestHealth_Degraded(t *testing.T) {
	blocker := filepath.Join(t.TempDir(), "file")
	require.NoError(t, os.WriteFile(blocker, nil, 0o644))

	cfg := testConfig()
	cfg.Metrics.Enable = false
	debugLog := linelog.Open(filepath.Join(blocker, "debug.log"), linelog.Options{})
	srv, err := New(cfg, debugLog, nil)
	require.NoError(t, err)

	// Writes are still accepted, they just go nowhere
	rr := postLines(srv, "text/plain", "lost\n")
	assert.Equal(t, http.StatusAccepted, rr.Code)

	rr = httptest.NewRecorder()
	srv.Handler().ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/health", nil))

	require.Equal(t, http.StatusServiceUnavailable, rr.Code)
	var health HealthStatus
	resp := decodeResponse(t, rr, &health)
	assert.False(t, resp.Success)
	assert.Equal(t, "degraded", health.Status)
	assert.NotEmpty(t, health.Error)
}

func TestMetricsEndpoint(t *testing.T) {
	srv, _ := newTestServer(t, testConfig())
	postLines(srv, "text/plain", "a\nb\n")

	rr := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	require.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), "linelog_lines_written_total 2")
}

func TestMetricsEndpoint_Disabled(t *testing.T) {
	cfg := testConfig()
	cfg.Metrics.Enable = false
	srv, _ := newTestServer(t, cfg)

	rr := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	assert.Equal(t, http.StatusNotFound, rr.Code)
}

func TestSplitLines(t *testing.T) {
	tests := []struct {
		in   string
		want []string
	}{
		{"", nil},
		{"\n", []string{""}},
		{"a", []string{"a"}},
		{"a\n", []string{"a"}},
		{"a\r\nb", []string{"a", "b"}},
		{"a\n\nb\n", []string{"a", "", "b"}},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, splitLines(tt.in), "input %q", tt.in)
	}
}

func TestStart_ShutsDownOnCancel(t *testing.T) {
	srv, _ := newTestServer(t, testConfig())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- srv.Start(ctx) }()

	time.Sleep(50 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("server did not stop after cancel")
	}
}

func TestStart_ListenError(t *testing.T) {
	cfg := testConfig()
	cfg.Listen = "127.0.0.1:-1"
	srv, _ := newTestServer(t, cfg)

	err := srv.Start(context.Background())
	assert.Error(t, err)
}
