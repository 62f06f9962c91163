package client

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/mux"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/qagentic/qagentic-go/types"
)

// mockGateway records every request the client sends so tests can assert on
// paths, headers and payloads.
type mockGateway struct {
	mu         sync.Mutex
	runID      string
	failAll    bool
	emptyRunID bool

	headers    []http.Header
	creates    []map[string]any
	results    []map[string]any
	finalizes  []map[string]any
	patchedIDs []string
}

func newMockGateway(t *testing.T, runID string) (*mockGateway, string) {
	t.Helper()

	gw := &mockGateway{runID: runID}
	router := mux.NewRouter()
	router.HandleFunc("/api/test-runs", gw.handleCreate).Methods(http.MethodPost)
	router.HandleFunc("/api/test-runs/results", gw.handleResult).Methods(http.MethodPost)
	router.HandleFunc("/api/test-runs/{runId}", gw.handleFinalize).Methods(http.MethodPatch)

	server := httptest.NewServer(router)
	t.Cleanup(server.Close)
	return gw, server.URL
}

func (g *mockGateway) record(r *http.Request, into *[]map[string]any) map[string]any {
	g.mu.Lock()
	defer g.mu.Unlock()

	var body map[string]any
	_ = json.NewDecoder(r.Body).Decode(&body)
	g.headers = append(g.headers, r.Header.Clone())
	*into = append(*into, body)
	return body
}

func (g *mockGateway) handleCreate(w http.ResponseWriter, r *http.Request) {
	g.record(r, &g.creates)
	if g.failAll {
		http.Error(w, "boom", http.StatusInternalServerError)
		return
	}
	if g.emptyRunID {
		_ = json.NewEncoder(w).Encode(map[string]any{})
		return
	}
	_ = json.NewEncoder(w).Encode(map[string]any{"runId": g.runID})
}

func (g *mockGateway) handleResult(w http.ResponseWriter, r *http.Request) {
	g.record(r, &g.results)
	if g.failAll {
		http.Error(w, "boom", http.StatusInternalServerError)
		return
	}
	w.WriteHeader(http.StatusCreated)
}

func (g *mockGateway) handleFinalize(w http.ResponseWriter, r *http.Request) {
	g.record(r, &g.finalizes)
	g.mu.Lock()
	g.patchedIDs = append(g.patchedIDs, mux.Vars(r)["runId"])
	g.mu.Unlock()
	if g.failAll {
		http.Error(w, "boom", http.StatusInternalServerError)
		return
	}
	w.WriteHeader(http.StatusOK)
}

func newTestRun() *types.TestRunResult {
	run := types.NewTestRunResult("nightly", "checkout", "staging")
	run.StartTime = time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC)
	run.EndTime = time.Date(2025, 3, 10, 12, 0, 42, 0, time.UTC)
	return run
}

func TestCreateRun(t *testing.T) {
	gw, url := newMockGateway(t, "srv-run-1")
	c := New(url, "secret-key", "checkout", 5*time.Second)
	defer c.Close()

	runID, err := c.CreateRun(context.Background(), newTestRun(), DefaultMetadata("go test"))
	require.NoError(t, err)
	assert.Equal(t, "srv-run-1", runID)

	require.Len(t, gw.creates, 1)
	body := gw.creates[0]
	assert.Equal(t, "checkout", body["projectName"])
	assert.Equal(t, "staging", body["environment"])
	assert.NotEmpty(t, body["startTime"])

	metadata, ok := body["metadata"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "go test", metadata["testFramework"])
	assert.NotEmpty(t, metadata["goVersion"])

	header := gw.headers[0]
	assert.Equal(t, "secret-key", header.Get("X-API-Key"))
	assert.Equal(t, "checkout", header.Get("X-Project"))
	assert.Equal(t, "application/json", header.Get("Content-Type"))
}

func TestCreateRunServerError(t *testing.T) {
	gw, url := newMockGateway(t, "srv-run-1")
	gw.failAll = true
	c := New(url, "", "checkout", 5*time.Second)

	_, err := c.CreateRun(context.Background(), newTestRun(), DefaultMetadata("go test"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unexpected status code: 500")
}

func TestCreateRunMissingRunID(t *testing.T) {
	gw, url := newMockGateway(t, "")
	gw.emptyRunID = true
	c := New(url, "", "checkout", 5*time.Second)

	_, err := c.CreateRun(context.Background(), newTestRun(), DefaultMetadata("go test"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "missing runId")
}

func TestCreateRunTransportError(t *testing.T) {
	// A closed server forces a connection error.
	server := httptest.NewServer(http.NotFoundHandler())
	server.Close()
	c := New(server.URL, "", "checkout", time.Second)

	_, err := c.CreateRun(context.Background(), newTestRun(), DefaultMetadata("go test"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "send HTTP request")
}

func TestSubmitResult(t *testing.T) {
	gw, url := newMockGateway(t, "srv-run-1")
	c := New(url, "secret-key", "checkout", 5*time.Second)

	test := types.NewTestResult("TestLogin", "auth/TestLogin")
	test.Status = types.StatusFailed
	test.StartTime = time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC)
	test.EndTime = test.StartTime.Add(1500 * time.Millisecond)
	test.ErrorMessage = "wrong password accepted"
	test.StackTrace = "auth_test.go:42"
	test.Labels["severity"] = "critical"

	require.NoError(t, c.SubmitResult(context.Background(), "srv-run-1", test))

	require.Len(t, gw.results, 1)
	body := gw.results[0]
	assert.Equal(t, "srv-run-1", body["runId"])
	assert.Equal(t, "TestLogin", body["name"])
	assert.Equal(t, "failed", body["status"])
	assert.InDelta(t, 1500.0, body["duration"], 0.001)
	assert.Equal(t, "wrong password accepted", body["error"])
	assert.Equal(t, "auth_test.go:42", body["stackTrace"])

	metadata, ok := body["metadata"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "critical", metadata["severity"])
}

func TestFinalizeRun(t *testing.T) {
	gw, url := newMockGateway(t, "srv-run-1")
	c := New(url, "secret-key", "checkout", 5*time.Second)

	run := newTestRun()
	for _, status := range []types.Status{
		types.StatusPassed, types.StatusPassed, types.StatusFailed, types.StatusSkipped,
	} {
		test := types.NewTestResult("t", "t")
		test.Status = status
		run.AddTest(test)
	}

	require.NoError(t, c.FinalizeRun(context.Background(), "srv-run-1", run))

	require.Len(t, gw.finalizes, 1)
	assert.Equal(t, []string{"srv-run-1"}, gw.patchedIDs)

	body := gw.finalizes[0]
	assert.NotEmpty(t, body["endTime"])

	summary, ok := body["summary"].(map[string]any)
	require.True(t, ok)
	assert.EqualValues(t, 4, summary["total"])
	assert.EqualValues(t, 2, summary["passed"])
	assert.EqualValues(t, 1, summary["failed"])
	assert.EqualValues(t, 0, summary["broken"])
	assert.EqualValues(t, 1, summary["skipped"])
	assert.InDelta(t, 42000.0, summary["duration_ms"], 0.001)
}

func TestBaseURLTrailingSlash(t *testing.T) {
	gw, url := newMockGateway(t, "srv-run-1")
	c := New(url+"/", "", "checkout", 5*time.Second)

	_, err := c.CreateRun(context.Background(), newTestRun(), DefaultMetadata("go test"))
	require.NoError(t, err)
	require.Len(t, gw.creates, 1)
}
