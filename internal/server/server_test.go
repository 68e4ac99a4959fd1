package server

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/HendryAvila/azdo-mcp/internal/azdo/azdotest"
	"github.com/HendryAvila/azdo-mcp/internal/config"
	"github.com/HendryAvila/azdo-mcp/internal/logging"
	"github.com/HendryAvila/azdo-mcp/internal/metrics"
)

// call sends one JSON-RPC request to a freshly built server and returns the
// decoded result.
func call(t *testing.T, cfg config.Config, method string, params any) map[string]any {
	t.Helper()
	org := azdotest.NewOrg(t)
	s := New(cfg, org.Builder(), logging.Discard())

	req, err := json.Marshal(map[string]any{
		"jsonrpc": "2.0",
		"id":      1,
		"method":  method,
		"params":  params,
	})
	require.NoError(t, err)

	resp := s.HandleMessage(context.Background(), req)
	data, err := json.Marshal(resp)
	require.NoError(t, err)

	var out struct {
		Result map[string]any `json:"result"`
		Error  any            `json:"error"`
	}
	require.NoError(t, json.Unmarshal(data, &out))
	require.Nil(t, out.Error, "rpc error: %s", data)
	return out.Result
}

func names(items any, key string) []string {
	var out []string
	list, _ := items.([]any)
	for _, item := range list {
		if m, ok := item.(map[string]any); ok {
			if v, ok := m[key].(string); ok {
				out = append(out, v)
			}
		}
	}
	return out
}

func TestNew_RegistersEveryTool(t *testing.T) {
	result := call(t, config.Config{DefaultProject: "proj"}, "tools/list", map[string]any{})

	got := names(result["tools"], "name")
	assert.ElementsMatch(t, []string{
		"azdo_get_project_details",
		"azdo_list_pipelines",
		"azdo_get_pipeline",
		"azdo_create_pipeline",
		"azdo_delete_pipeline",
		"azdo_trigger_pipeline",
		"azdo_run_pipeline",
		"azdo_list_pipeline_runs",
		"azdo_list_wikis",
		"azdo_create_wiki",
		"azdo_get_wiki_page",
		"azdo_create_wiki_page",
		"azdo_update_wiki_page",
		"azdo_search_wiki",
		"azdo_get_work_item",
		"azdo_create_environment",
		"azdo_update_environment",
		"azdo_delete_environment",
		"azdo_list_pull_requests",
		"azdo_create_pull_request",
	}, got)
}

func TestNew_RegistersPromptAndResource(t *testing.T) {
	prompts := call(t, config.Config{}, "prompts/list", map[string]any{})
	assert.Equal(t, []string{"azdo-pipeline-status"}, names(prompts["prompts"], "name"))

	resources := call(t, config.Config{}, "resources/list", map[string]any{})
	assert.Equal(t, []string{"azdo://connection/status"}, names(resources["resources"], "uri"))
}

func TestServerInstructions(t *testing.T) {
	assert.NotContains(t, serverInstructions(""), "default project is")
	assert.Contains(t, serverInstructions("proj"), `The default project is "proj".`)
}

func TestParseTransport(t *testing.T) {
	for _, in := range []string{"stdio", " SSE ", "http"} {
		_, err := ParseTransport(in)
		assert.NoError(t, err, in)
	}
	_, err := ParseTransport("grpc")
	assert.Error(t, err)
}

func TestBaseURL(t *testing.T) {
	assert.Equal(t, "http://localhost:8080", baseURL(":8080"))
	assert.Equal(t, "http://0.0.0.0:9000", baseURL("0.0.0.0:9000"))
}

func TestServeHTTP_ShutsDownOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	stopped := make(chan struct{})
	shutdownCalled := false

	start := func(string) error {
		<-stopped
		return nil
	}
	shutdown := func(context.Context) error {
		shutdownCalled = true
		close(stopped)
		return nil
	}

	done := make(chan error, 1)
	go func() { done <- serveHTTP(ctx, ":0", start, shutdown, logging.Discard()) }()
	cancel()

	select {
	case err := <-done:
		require.NoError(t, err)
		assert.True(t, shutdownCalled)
	case <-time.After(2 * time.Second):
		t.Fatal("serveHTTP did not return after cancel")
	}
}

func TestServeHTTP_StartFailure(t *testing.T) {
	boom := errors.New("address in use")
	err := serveHTTP(context.Background(), ":1",
		func(string) error { return boom },
		func(context.Context) error { return nil },
		logging.Discard())

	assert.ErrorIs(t, err, boom)
}

type toolCall struct {
	tool    string
	outcome metrics.Outcome
}

type recordingRecorder struct {
	metrics.NoopRecorder
	calls []toolCall
}

func (r *recordingRecorder) ObserveToolCall(tool string, outcome metrics.Outcome, _ time.Duration) {
	r.calls = append(r.calls, toolCall{tool: tool, outcome: outcome})
}

func TestInstrument_RecordsOutcome(t *testing.T) {
	rec := &recordingRecorder{}
	ok := instrument("azdo_list_wikis", func(context.Context, mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		return mcp.NewToolResultText("[]"), nil
	}, rec)
	failed := instrument("azdo_get_pipeline", func(context.Context, mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		return mcp.NewToolResultError("AzureDevOpsValidationError: project is required"), nil
	}, rec)

	_, err := ok(context.Background(), mcp.CallToolRequest{})
	require.NoError(t, err)
	_, err = failed(context.Background(), mcp.CallToolRequest{})
	require.NoError(t, err)

	assert.Equal(t, []toolCall{
		{tool: "azdo_list_wikis", outcome: metrics.OutcomeOK},
		{tool: "azdo_get_pipeline", outcome: metrics.OutcomeError},
	}, rec.calls)
}

func TestNew_WithRecorderCountsToolCalls(t *testing.T) {
	org := azdotest.NewOrg(t)
	rec := &recordingRecorder{}
	s := New(config.Config{}, org.Builder(), logging.Discard(), WithRecorder(rec))

	req, err := json.Marshal(map[string]any{
		"jsonrpc": "2.0",
		"id":      1,
		"method":  "tools/call",
		"params": map[string]any{
			"name":      "azdo_list_pipelines",
			"arguments": map[string]any{},
		},
	})
	require.NoError(t, err)
	s.HandleMessage(context.Background(), req)

	assert.Equal(t, []toolCall{{tool: "azdo_list_pipelines", outcome: metrics.OutcomeError}}, rec.calls)
}
