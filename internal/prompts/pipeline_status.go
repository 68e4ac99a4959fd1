// Package prompts implements the MCP prompts offered to the host.
package prompts

import (
	"context"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
)

// PipelineStatusPrompt handles the azdo-pipeline-status MCP prompt.
// It instructs the assistant to inspect the pipelines of a project and
// report on their recent runs.
type PipelineStatusPrompt struct {
	defaultProject string
}

// NewPipelineStatusPrompt creates a PipelineStatusPrompt.
func NewPipelineStatusPrompt(defaultProject string) *PipelineStatusPrompt {
	return &PipelineStatusPrompt{defaultProject: defaultProject}
}

// Definition returns the MCP prompt definition for registration.
func (p *PipelineStatusPrompt) Definition() mcp.Prompt {
	return mcp.NewPrompt("azdo-pipeline-status",
		mcp.WithPromptDescription(
			"Summarize the health of the pipelines in a project: "+
				"latest run state and result per pipeline, failures first.",
		),
		mcp.WithArgument("project",
			mcp.ArgumentDescription("Project name. Defaults to the configured project."),
		),
		mcp.WithArgument("pipeline_id",
			mcp.ArgumentDescription("Only report on this pipeline."),
		),
	)
}

// Handle processes the azdo-pipeline-status prompt request.
func (p *PipelineStatusPrompt) Handle(ctx context.Context, req mcp.GetPromptRequest) (*mcp.GetPromptResult, error) {
	project := p.defaultProject
	var pipelineID string
	if args := req.Params.Arguments; args != nil {
		if v := strings.TrimSpace(args["project"]); v != "" {
			project = v
		}
		pipelineID = strings.TrimSpace(args["pipeline_id"])
	}

	scope := "the configured default project"
	projectArg := ""
	if project != "" {
		scope = fmt.Sprintf("project **%s**", project)
		projectArg = fmt.Sprintf(" with `project` = %q", project)
	}

	var steps string
	if pipelineID != "" {
		steps = fmt.Sprintf(
			"1. Run `azdo_get_pipeline`%s and `pipeline_id` = %s\n"+
				"2. Run `azdo_list_pipeline_runs` for the same pipeline\n",
			projectArg, pipelineID,
		)
	} else {
		steps = fmt.Sprintf(
			"1. Run `azdo_list_pipelines`%s\n"+
				"2. For each pipeline, run `azdo_list_pipeline_runs`\n",
			projectArg,
		)
	}

	return &mcp.GetPromptResult{
		Description: "Azure DevOps pipeline status for " + scope,
		Messages: []mcp.PromptMessage{
			{
				Role: mcp.RoleUser,
				Content: mcp.NewTextContent(
					"Please check the pipeline status of " + scope + ".\n\n" +
						steps +
						"3. Show a table with pipeline name, latest run, state, result and finish time\n" +
						"4. List failed or canceled runs first and suggest what to look at\n" +
						"5. If a tool returns an authentication or permission error, say so and stop",
				),
			},
		},
	}, nil
}
