package prompts

import (
	"context"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func promptText(t *testing.T, res *mcp.GetPromptResult) string {
	t.Helper()
	require.Len(t, res.Messages, 1)
	tc, ok := res.Messages[0].Content.(mcp.TextContent)
	require.True(t, ok)
	return tc.Text
}

func TestPipelineStatusPrompt_Definition(t *testing.T) {
	def := NewPipelineStatusPrompt("").Definition()
	assert.Equal(t, "azdo-pipeline-status", def.Name)
	assert.Len(t, def.Arguments, 2)
}

func TestPipelineStatusPrompt_AllPipelines(t *testing.T) {
	res, err := NewPipelineStatusPrompt("proj").Handle(context.Background(), mcp.GetPromptRequest{})
	require.NoError(t, err)

	text := promptText(t, res)
	assert.Contains(t, res.Description, "project **proj**")
	assert.Contains(t, text, "`azdo_list_pipelines` with `project` = \"proj\"")
	assert.NotContains(t, text, "azdo_get_pipeline`")
}

func TestPipelineStatusPrompt_SinglePipeline(t *testing.T) {
	var req mcp.GetPromptRequest
	req.Params.Arguments = map[string]string{"project": "other", "pipeline_id": "12"}

	res, err := NewPipelineStatusPrompt("proj").Handle(context.Background(), req)
	require.NoError(t, err)

	text := promptText(t, res)
	assert.Contains(t, text, "`azdo_get_pipeline` with `project` = \"other\" and `pipeline_id` = 12")
	assert.Contains(t, text, "azdo_list_pipeline_runs")
}

func TestPipelineStatusPrompt_NoProject(t *testing.T) {
	res, err := NewPipelineStatusPrompt("").Handle(context.Background(), mcp.GetPromptRequest{})
	require.NoError(t, err)
	assert.Contains(t, promptText(t, res), "the configured default project")
	assert.Contains(t, promptText(t, res), "Run `azdo_list_pipelines`\n")
}
