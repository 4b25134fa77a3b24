package server

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"axiomind/internal/engine"
	"axiomind/internal/store"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func newTestServer(t *testing.T) (*Server, *store.LocalStore) {
	t.Helper()
	sys, err := engine.NewSystem(engine.Config{}, nil)
	require.NoError(t, err)
	sink, err := store.NewLocalStore(filepath.Join(t.TempDir(), "axiomind.db"))
	require.NoError(t, err)
	t.Cleanup(func() { sink.Close() })
	return New(sys, sink, Config{MaxQueryLength: 128}, nil), sink
}

func postJSON(t *testing.T, router *gin.Engine, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	data, err := json.Marshal(body)
	require.NoError(t, err)
	w := httptest.NewRecorder()
	req, _ := http.NewRequest("POST", path, bytes.NewReader(data))
	req.Header.Set("Content-Type", "application/json")
	router.ServeHTTP(w, req)
	return w
}

func TestHealthz(t *testing.T) {
	s, _ := newTestServer(t)
	router := s.Router()

	w := httptest.NewRecorder()
	req, _ := http.NewRequest("GET", "/healthz", nil)
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "ok")
}

func TestQueryRunsPipelineAndPersists(t *testing.T) {
	s, sink := newTestServer(t)
	router := s.Router()

	w := postJSON(t, router, "/v1/query", map[string]any{"query": "Socrates is mortal"})
	require.Equal(t, http.StatusOK, w.Code)

	var path engine.PathRecord
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &path))
	assert.NotEmpty(t, path.ID)
	assert.True(t, path.Safety.Passed())

	stored, err := sink.RecentPaths(10)
	require.NoError(t, err)
	require.Len(t, stored, 1)
	assert.Equal(t, path.ID, stored[0].ID)
}

func TestQueryValidation(t *testing.T) {
	s, _ := newTestServer(t)
	router := s.Router()

	tests := []struct {
		name string
		body map[string]any
	}{
		{"missing query", map[string]any{}},
		{"blank query", map[string]any{"query": "   "}},
		{"oversized query", map[string]any{"query": strings.Repeat("x", 200)}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := postJSON(t, router, "/v1/query", tt.body)
			assert.Equal(t, http.StatusBadRequest, w.Code)
		})
	}
}

func TestGroundEndpoint(t *testing.T) {
	s, _ := newTestServer(t)
	router := s.Router()

	w := postJSON(t, router, "/v1/ground", map[string]any{"statement": "A = A"})
	require.Equal(t, http.StatusOK, w.Code)

	var grounded struct {
		Certainty float64 `json:"certainty"`
		Hash      string  `json:"hash"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &grounded))
	assert.NotEmpty(t, grounded.Hash)
	assert.GreaterOrEqual(t, grounded.Certainty, 0.85)
}

func TestReasonEndpointDefaultsDepth(t *testing.T) {
	s, _ := newTestServer(t)
	router := s.Router()

	w := postJSON(t, router, "/v1/reason", map[string]any{"query": "John is tall"})
	require.Equal(t, http.StatusOK, w.Code)

	var result struct {
		DepthUsed int     `json:"depth_used"`
		Certainty float64 `json:"certainty"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &result))
	assert.Equal(t, 1, result.DepthUsed)
	assert.GreaterOrEqual(t, result.Certainty, 0.1)
}

func TestReflectEndpointPersistsCycle(t *testing.T) {
	s, sink := newTestServer(t)
	router := s.Router()

	w := postJSON(t, router, "/v1/reflect", map[string]any{})
	require.Equal(t, http.StatusOK, w.Code)

	var report engine.ReflectionReport
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &report))
	assert.Greater(t, report.LambdaGrowth, 0.0)

	n, err := sink.CycleCount()
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestMetricsEndpoints(t *testing.T) {
	s, _ := newTestServer(t)
	router := s.Router()

	postJSON(t, router, "/v1/query", map[string]any{"query": "Socrates is mortal"})

	w := httptest.NewRecorder()
	req, _ := http.NewRequest("GET", "/v1/metrics", nil)
	router.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)

	var m engine.Metrics
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &m))
	assert.Equal(t, 1, m.QueriesProcessed)
	assert.Greater(t, m.LambdaTotal, 10.0)

	w = httptest.NewRecorder()
	req, _ = http.NewRequest("GET", "/metrics", nil)
	router.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "axiomind_lambda_total")
	assert.Contains(t, w.Body.String(), "axiomind_requests_total")
}

func TestServeShutsDownCleanly(t *testing.T) {
	defer goleak.VerifyNone(t)

	// No sink here: database/sql keeps a pool goroutine alive until Close,
	// which would trip the leak check.
	sys, err := engine.NewSystem(engine.Config{}, nil)
	require.NoError(t, err)
	s := New(sys, nil, Config{}, nil)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- s.Serve(ctx, "127.0.0.1:0")
	}()

	time.Sleep(100 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("server did not shut down")
	}
}
