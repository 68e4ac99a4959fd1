// Package server wires all MCP components and creates the server instance.
//
// This is the composition root: it creates the feature services over one
// shared connection builder and injects them into the tools, prompts and
// resources. No business logic lives here, only wiring.
package server

import (
	"context"
	"log/slog"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/HendryAvila/azdo-mcp/internal/azdo"
	"github.com/HendryAvila/azdo-mcp/internal/config"
	"github.com/HendryAvila/azdo-mcp/internal/environments"
	"github.com/HendryAvila/azdo-mcp/internal/logging"
	"github.com/HendryAvila/azdo-mcp/internal/metrics"
	"github.com/HendryAvila/azdo-mcp/internal/pipelines"
	"github.com/HendryAvila/azdo-mcp/internal/projects"
	"github.com/HendryAvila/azdo-mcp/internal/prompts"
	"github.com/HendryAvila/azdo-mcp/internal/pullrequests"
	"github.com/HendryAvila/azdo-mcp/internal/resources"
	"github.com/HendryAvila/azdo-mcp/internal/tools"
	"github.com/HendryAvila/azdo-mcp/internal/wikis"
	"github.com/HendryAvila/azdo-mcp/internal/workitems"
)

// Version is set at build time via ldflags.
var Version = "dev"

// Name is the server name reported to MCP hosts.
const Name = "azdo-mcp"

// tool is the shape every tool handler struct shares.
type tool interface {
	Definition() mcp.Tool
	Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error)
}

// Option configures New.
type Option func(*options)

type options struct {
	recorder metrics.Recorder
}

// WithRecorder reports every tool call to r.
func WithRecorder(r metrics.Recorder) Option {
	return func(o *options) {
		o.recorder = r
	}
}

// New creates and configures the MCP server with all tools, prompts and
// resources registered. The builder is shared by every service, so the
// connection is established once, on the first call that needs it.
func New(cfg config.Config, builder *azdo.Builder, logger *slog.Logger, opts ...Option) *server.MCPServer {
	logger = logging.Subsystem(logger, "server")
	project := cfg.DefaultProject

	o := options{recorder: metrics.NoopRecorder{}}
	for _, opt := range opts {
		opt(&o)
	}

	s := server.NewMCPServer(
		Name,
		Version,
		server.WithToolCapabilities(true),
		server.WithResourceCapabilities(false, true),
		server.WithPromptCapabilities(true),
		server.WithRecovery(),
		server.WithInstructions(serverInstructions(project)),
	)

	// --- Create feature services ---

	pipelineSvc := pipelines.NewService(builder, logger)
	wikiSvc := wikis.NewService(builder, logger)
	projectSvc := projects.NewService(builder, logger)
	workItemSvc := workitems.NewService(builder, logger)
	environmentSvc := environments.NewService(builder, logger)
	pullRequestSvc := pullrequests.NewService(builder, logger)

	// --- Register tools ---

	registered := []tool{
		tools.NewGetProjectDetailsTool(projectSvc, project),

		tools.NewListPipelinesTool(pipelineSvc, project),
		tools.NewGetPipelineTool(pipelineSvc, project),
		tools.NewCreatePipelineTool(pipelineSvc, project),
		tools.NewDeletePipelineTool(pipelineSvc, project),
		tools.NewTriggerPipelineTool(pipelineSvc, project),
		tools.NewRunPipelineTool(pipelineSvc, project),
		tools.NewListPipelineRunsTool(pipelineSvc, project),

		tools.NewListWikisTool(wikiSvc, project),
		tools.NewCreateWikiTool(wikiSvc, project),
		tools.NewGetWikiPageTool(wikiSvc, project),
		tools.NewCreateWikiPageTool(wikiSvc, project),
		tools.NewUpdateWikiPageTool(wikiSvc, project),
		tools.NewSearchWikiTool(wikiSvc, project),

		tools.NewGetWorkItemTool(workItemSvc),

		tools.NewCreateEnvironmentTool(environmentSvc, project),
		tools.NewUpdateEnvironmentTool(environmentSvc, project),
		tools.NewDeleteEnvironmentTool(environmentSvc, project),

		tools.NewListPullRequestsTool(pullRequestSvc, project),
		tools.NewCreatePullRequestTool(pullRequestSvc, project),
	}
	for _, t := range registered {
		def := t.Definition()
		s.AddTool(def, instrument(def.Name, t.Handle, o.recorder))
	}

	// --- Register prompts ---

	pipelineStatus := prompts.NewPipelineStatusPrompt(project)
	s.AddPrompt(pipelineStatus.Definition(), pipelineStatus.Handle)

	// --- Register resources ---

	resourceHandler := resources.NewHandler(builder, project)
	s.AddResource(resourceHandler.StatusResource(), resourceHandler.HandleStatus)

	logger.Debug("server configured", "tools", len(registered), "organization", cfg.OrganizationURL)
	return s
}

// instrument times a tool handler and reports whether it produced an error
// result.
func instrument(name string, h server.ToolHandlerFunc, rec metrics.Recorder) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		start := time.Now()
		res, err := h(ctx, req)
		outcome := metrics.OutcomeOK
		if err != nil || res == nil || res.IsError {
			outcome = metrics.OutcomeError
		}
		rec.ObserveToolCall(name, outcome, time.Since(start))
		return res, err
	}
}

// serverInstructions returns the system instructions that tell the AI
// how to use the Azure DevOps tools.
func serverInstructions(defaultProject string) string {
	instructions := `You have access to an Azure DevOps organization through the azdo_* tools.

## Conventions
- Most tools take an optional "project". When omitted, the configured default project is used.
- Branch names may be given with or without the refs/heads/ prefix.
- Results are JSON. Errors are prefixed with their kind, for example
  "AzureDevOpsResourceNotFoundError: Pipeline with ID 7 not found".

## Errors
- AzureDevOpsAuthenticationError: the server cannot connect. Retrying will not help;
  tell the user to check the organization URL and credentials.
- AzureDevOpsPermissionError: the identity lacks rights for that operation.
- AzureDevOpsValidationError: fix the arguments. For wiki pages a "Version conflict"
  means the page changed; read it again with azdo_get_wiki_page before updating.
- AzureDevOpsRateLimitError: wait until the reported reset time.

## Destructive operations
azdo_delete_pipeline and azdo_delete_environment cannot be undone. Confirm with the user first.

Read the azdo://connection/status resource to check the connection before a long task.`

	if defaultProject != "" {
		instructions += "\n\nThe default project is \"" + defaultProject + "\"."
	}
	return instructions
}
