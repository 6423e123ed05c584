package cli

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testExecutionID = "7b0c1c9e-4f43-4d3e-9d55-0c7d1e2a9f10"

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func newAPI(t *testing.T) (*httptest.Server, *[]string) {
	t.Helper()

	var requests []string
	mux := http.NewServeMux()

	exec := map[string]any{
		"id":          testExecutionID,
		"input":       "https://example.com",
		"max_retries": 5,
		"status":      "SUCCEEDED",
		"result_key":  "wcwc.json",
		"attempts":    3,
		"logs": []map[string]any{
			{"attempt": 1, "message": "Timeout"},
			{"attempt": 2, "message": "Timeout"},
			{"attempt": 3, "message": ""},
		},
	}

	mux.HandleFunc("GET /api/v1/executions", func(w http.ResponseWriter, r *http.Request) {
		requests = append(requests, r.Method+" "+r.URL.RequestURI())
		writeJSON(w, http.StatusOK, map[string]any{"data": []any{exec}, "total": 1})
	})
	mux.HandleFunc("POST /api/v1/executions", func(w http.ResponseWriter, r *http.Request) {
		var body map[string]any
		json.NewDecoder(r.Body).Decode(&body)
		requests = append(requests, r.Method+" "+r.URL.Path)

		created := map[string]any{"id": testExecutionID, "input": body["input"], "status": "PENDING"}
		if mr, ok := body["max_retries"]; ok {
			created["max_retries"] = mr
		}
		writeJSON(w, http.StatusCreated, map[string]any{"data": created})
	})
	mux.HandleFunc("GET /api/v1/executions/{id}", func(w http.ResponseWriter, r *http.Request) {
		requests = append(requests, r.Method+" "+r.URL.Path)
		if r.PathValue("id") != testExecutionID {
			writeJSON(w, http.StatusNotFound, map[string]any{
				"error": map[string]string{"code": "NOT_FOUND", "message": "execution not found"},
			})
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"data": exec})
	})
	mux.HandleFunc("GET /api/v1/executions/{id}/logs", func(w http.ResponseWriter, r *http.Request) {
		requests = append(requests, r.Method+" "+r.URL.Path)
		writeJSON(w, http.StatusOK, map[string]any{"data": exec["logs"], "total": 3})
	})
	mux.HandleFunc("POST /api/v1/executions/{id}/enqueue", func(w http.ResponseWriter, r *http.Request) {
		requests = append(requests, r.Method+" "+r.URL.Path)
		writeJSON(w, http.StatusUnprocessableEntity, map[string]any{
			"error": map[string]string{"code": "INVALID_STATE", "message": "execution is SUCCEEDED"},
		})
	})

	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv, &requests
}

func TestClient_ListExecutions(t *testing.T) {
	srv, requests := newAPI(t)
	client := NewClient(srv.URL)

	executions, err := client.ListExecutions(ListExecutionsOpts{Status: "SUCCEEDED", Limit: 10})
	require.NoError(t, err)

	require.Len(t, executions, 1)
	assert.Equal(t, testExecutionID, executions[0].ID)
	assert.Equal(t, 3, executions[0].Attempts)
	assert.Equal(t, []string{"GET /api/v1/executions?limit=10&status=SUCCEEDED"}, *requests)
}

func TestClient_CreateExecution(t *testing.T) {
	srv, _ := newAPI(t)
	client := NewClient(srv.URL)

	budget := 2
	exec, err := client.CreateExecution(CreateExecutionRequest{Input: "https://example.com", MaxRetries: &budget})
	require.NoError(t, err)

	assert.Equal(t, "PENDING", exec.Status)
	assert.Equal(t, 2, exec.MaxRetries)
}

func TestClient_GetExecution(t *testing.T) {
	srv, _ := newAPI(t)
	client := NewClient(srv.URL)

	exec, err := client.GetExecution(testExecutionID)
	require.NoError(t, err)
	assert.Equal(t, "wcwc.json", exec.ResultKey)
	require.Len(t, exec.Logs, 3)
	assert.Empty(t, exec.Logs[2].Message)

	_, err = client.GetExecution("00000000-0000-0000-0000-000000000000")
	require.Error(t, err)
	assert.Equal(t, "NOT_FOUND: execution not found", err.Error())
}

func TestClient_EnqueueError(t *testing.T) {
	srv, _ := newAPI(t)
	client := NewClient(srv.URL)

	_, err := client.EnqueueExecution(testExecutionID)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "INVALID_STATE")
}

func runCmd(t *testing.T, srv *httptest.Server, jsonMode bool, args ...string) (string, string, error) {
	t.Helper()

	var stdout, stderr bytes.Buffer
	cmd := NewExecutionCmd(
		func() *Client { return NewClient(srv.URL) },
		func() *Output { return NewOutputTo(jsonMode, &stdout, &stderr) },
	)
	cmd.SetArgs(args)
	cmd.SetOut(&stderr)
	cmd.SetErr(&stderr)

	err := cmd.Execute()
	return stdout.String(), stderr.String(), err
}

func TestExecutionCmd_Show(t *testing.T) {
	srv, _ := newAPI(t)

	stdout, _, err := runCmd(t, srv, false, "show", testExecutionID)
	require.NoError(t, err)

	assert.Contains(t, stdout, "SUCCEEDED")
	assert.Contains(t, stdout, "wcwc.json")
	assert.Contains(t, stdout, "Timeout")
	assert.Contains(t, stdout, "ATTEMPT")
}

func TestExecutionCmd_ListJSON(t *testing.T) {
	srv, _ := newAPI(t)

	stdout, _, err := runCmd(t, srv, true, "list")
	require.NoError(t, err)

	var got []ExecutionResponse
	require.NoError(t, json.Unmarshal([]byte(stdout), &got))
	require.Len(t, got, 1)
	assert.Equal(t, testExecutionID, got[0].ID)
}

func TestExecutionCmd_Create(t *testing.T) {
	srv, requests := newAPI(t)

	_, stderr, err := runCmd(t, srv, false, "create", "https://example.com", "--max-retries", "4")
	require.NoError(t, err)

	assert.Contains(t, stderr, "Execution created: "+testExecutionID)
	assert.Equal(t, []string{"POST /api/v1/executions"}, *requests)
}

func TestExecutionCmd_Logs(t *testing.T) {
	srv, _ := newAPI(t)

	stdout, _, err := runCmd(t, srv, false, "logs", testExecutionID)
	require.NoError(t, err)

	assert.Contains(t, stdout, "failed")
	assert.Contains(t, stdout, "ok")
}
