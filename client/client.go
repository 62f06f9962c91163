// Package client implements the HTTP client for the qagentic reporting API
// gateway. All request payloads use the gateway's camelCase field names.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"runtime"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"

	"github.com/qagentic/qagentic-go/types"
)

const tracerName = "github.com/qagentic/qagentic-go/client"

// Client talks to the reporting API. Authentication uses the X-API-Key
// header; the X-Project header identifies the project on every request.
type Client struct {
	httpClient *http.Client
	tracer     trace.Tracer
	baseURL    string
	apiKey     string
	project    string
}

// New creates a Client for the given base URL. The timeout bounds each
// individual request.
func New(baseURL, apiKey, project string, timeout time.Duration, options ...func(*Client)) *Client {
	client := Client{
		httpClient: &http.Client{Timeout: timeout},
		tracer:     otel.Tracer(tracerName),
		baseURL:    strings.TrimSuffix(baseURL, "/"),
		apiKey:     apiKey,
		project:    project,
	}

	for _, apply := range options {
		apply(&client)
	}

	return &client
}

// RunMetadata describes the reporting toolchain to the gateway.
type RunMetadata struct {
	GoVersion     string `json:"goVersion"`
	Platform      string `json:"platform"`
	TestFramework string `json:"testFramework"`
}

// DefaultMetadata fills RunMetadata from the running toolchain.
func DefaultMetadata(framework string) RunMetadata {
	return RunMetadata{
		GoVersion:     runtime.Version(),
		Platform:      runtime.GOOS + "/" + runtime.GOARCH,
		TestFramework: framework,
	}
}

type createRunRequest struct {
	ProjectName string      `json:"projectName"`
	Environment string      `json:"environment"`
	StartTime   time.Time   `json:"startTime"`
	Metadata    RunMetadata `json:"metadata"`
}

type createRunResponse struct {
	RunID string `json:"runId"`
}

// CreateRun registers a run with the gateway and returns the gateway's run
// ID, which replaces the local one for all subsequent calls.
func (c *Client) CreateRun(ctx context.Context, run *types.TestRunResult, metadata RunMetadata) (string, error) {
	ctx, span := c.tracer.Start(ctx, "CreateRun")
	defer span.End()

	body := createRunRequest{
		ProjectName: run.ProjectName,
		Environment: run.Environment,
		StartTime:   run.StartTime,
		Metadata:    metadata,
	}

	response, err := c.doRequest(ctx, http.MethodPost, "/api/test-runs", body)
	if err != nil {
		return "", fmt.Errorf("do HTTP request: %w", err)
	}
	defer response.Body.Close()

	if response.StatusCode < 200 || response.StatusCode >= 300 {
		return "", fmt.Errorf("unexpected status code: %d", response.StatusCode)
	}

	var decoded createRunResponse
	if err := json.NewDecoder(response.Body).Decode(&decoded); err != nil {
		return "", fmt.Errorf("decode response: %w", err)
	}
	if decoded.RunID == "" {
		return "", fmt.Errorf("gateway response missing runId")
	}

	return decoded.RunID, nil
}

type submitResultRequest struct {
	RunID      string       `json:"runId"`
	Name       string       `json:"name"`
	Status     string       `json:"status"`
	Duration   float64      `json:"duration"`
	Metadata   types.Labels `json:"metadata"`
	Error      string       `json:"error"`
	StackTrace string       `json:"stackTrace"`
}

// SubmitResult sends one finalized test result. Duration is milliseconds;
// metadata carries the test's labels.
func (c *Client) SubmitResult(ctx context.Context, runID string, test *types.TestResult) error {
	ctx, span := c.tracer.Start(ctx, "SubmitResult")
	defer span.End()

	metadata := test.Labels
	if metadata == nil {
		metadata = types.Labels{}
	}

	body := submitResultRequest{
		RunID:      runID,
		Name:       test.Name,
		Status:     string(test.Status),
		Duration:   test.DurationMS(),
		Metadata:   metadata,
		Error:      test.ErrorMessage,
		StackTrace: test.StackTrace,
	}

	response, err := c.doRequest(ctx, http.MethodPost, "/api/test-runs/results", body)
	if err != nil {
		return fmt.Errorf("do HTTP request: %w", err)
	}
	defer response.Body.Close()

	if response.StatusCode < 200 || response.StatusCode >= 300 {
		return fmt.Errorf("unexpected status code: %d", response.StatusCode)
	}

	return nil
}

type runSummary struct {
	Total      int     `json:"total"`
	Passed     int     `json:"passed"`
	Failed     int     `json:"failed"`
	Broken     int     `json:"broken"`
	Skipped    int     `json:"skipped"`
	DurationMS float64 `json:"duration_ms"`
}

type finalizeRunRequest struct {
	EndTime time.Time  `json:"endTime"`
	Summary runSummary `json:"summary"`
}

// FinalizeRun closes the run on the gateway with its end time and counters.
func (c *Client) FinalizeRun(ctx context.Context, runID string, run *types.TestRunResult) error {
	ctx, span := c.tracer.Start(ctx, "FinalizeRun")
	defer span.End()

	body := finalizeRunRequest{
		EndTime: run.EndTime,
		Summary: runSummary{
			Total:      run.Total,
			Passed:     run.Passed,
			Failed:     run.Failed,
			Broken:     run.Broken,
			Skipped:    run.Skipped,
			DurationMS: run.DurationMS(),
		},
	}

	response, err := c.doRequest(ctx, http.MethodPatch, "/api/test-runs/"+runID, body)
	if err != nil {
		return fmt.Errorf("do HTTP request: %w", err)
	}
	defer response.Body.Close()

	if response.StatusCode < 200 || response.StatusCode >= 300 {
		return fmt.Errorf("unexpected status code: %d", response.StatusCode)
	}

	return nil
}

// Close releases idle connections held by the underlying HTTP client.
func (c *Client) Close() {
	c.httpClient.CloseIdleConnections()
}

func (c *Client) doRequest(ctx context.Context, method, path string, body any) (*http.Response, error) {
	encodedBody, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("encode JSON body: %w", err)
	}

	fullURL := c.baseURL + path
	request, err := http.NewRequestWithContext(ctx, method, fullURL, bytes.NewReader(encodedBody))
	if err != nil {
		return nil, fmt.Errorf("create HTTP request: %w", err)
	}

	request.Header.Set("Accept", "application/json")
	request.Header.Set("Content-Type", "application/json")
	request.Header.Set("X-API-Key", c.apiKey)
	request.Header.Set("X-Project", c.project)

	response, err := c.httpClient.Do(request)
	if err != nil {
		return nil, fmt.Errorf("send HTTP request: %w", err)
	}

	return response, nil
}

// WithHTTPClient replaces the default HTTP client.
func WithHTTPClient(httpClient *http.Client) func(*Client) {
	return func(c *Client) {
		c.httpClient = httpClient
	}
}

// WithTracerProvider sources the client tracer from tp instead of the global
// provider.
func WithTracerProvider(tp trace.TracerProvider) func(*Client) {
	return func(c *Client) {
		c.tracer = tp.Tracer(tracerName)
	}
}
