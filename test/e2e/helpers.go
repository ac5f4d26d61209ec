package e2e

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

// ────────────────────────────────────────────────────────────
// HTTP Client Helpers
// ────────────────────────────────────────────────────────────

// ExecuteAgent posts to /agents/execute and returns the parsed record.
func (app *TestApp) ExecuteAgent(t *testing.T, agentID string, params map[string]any, async bool, expectedStatus int) map[string]any {
	t.Helper()
	body := map[string]any{
		"agent_id":        agentID,
		"parameters":      params,
		"async_execution": async,
	}
	return app.postJSON(t, "/agents/execute", body, expectedStatus)
}

// GetExecution retrieves an execution record by ID.
func (app *TestApp) GetExecution(t *testing.T, executionID string) map[string]any {
	t.Helper()
	return app.getJSON(t, "/agents/executions/"+executionID, http.StatusOK)
}

// CancelExecution cancels an execution and returns the updated record.
func (app *TestApp) CancelExecution(t *testing.T, executionID string, expectedStatus int) map[string]any {
	t.Helper()
	return app.postJSON(t, "/agents/executions/"+executionID+"/cancel", nil, expectedStatus)
}

// WaitForExecutionStatus polls the API until the execution reaches one of
// the expected statuses and returns the final record.
func (app *TestApp) WaitForExecutionStatus(t *testing.T, executionID string, expected ...string) map[string]any {
	t.Helper()
	var last map[string]any
	require.Eventually(t, func() bool {
		last = app.getJSON(t, "/agents/executions/"+executionID, http.StatusOK)
		status, _ := last["status"].(string)
		for _, exp := range expected {
			if status == exp {
				return true
			}
		}
		return false
	}, 15*time.Second, 50*time.Millisecond,
		"execution %s did not reach status %v (last: %v)", executionID, expected, last["status"])
	return last
}

func (app *TestApp) postJSON(t *testing.T, path string, body any, expectedStatus int) map[string]any {
	t.Helper()
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(data)
	}
	req, err := http.NewRequest(http.MethodPost, app.BaseURL+path, reader)
	require.NoError(t, err)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	return app.do(t, req, expectedStatus)
}

func (app *TestApp) getJSON(t *testing.T, path string, expectedStatus int) map[string]any {
	t.Helper()
	req, err := http.NewRequest(http.MethodGet, app.BaseURL+path, nil)
	require.NoError(t, err)
	return app.do(t, req, expectedStatus)
}

func (app *TestApp) do(t *testing.T, req *http.Request, expectedStatus int) map[string]any {
	t.Helper()
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	require.Equal(t, expectedStatus, resp.StatusCode, "unexpected status for %s %s: %s",
		req.Method, req.URL.Path, string(data))

	var out map[string]any
	if len(data) > 0 {
		require.NoError(t, json.Unmarshal(data, &out))
	}
	return out
}
