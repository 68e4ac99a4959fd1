package tools

import (
	"context"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/HendryAvila/azdo-mcp/internal/azdo"
	"github.com/HendryAvila/azdo-mcp/internal/projects"
)

// GetProjectDetailsTool handles the azdo_get_project_details MCP tool.
type GetProjectDetailsTool struct {
	svc            *projects.Service
	defaultProject string
}

// NewGetProjectDetailsTool creates a GetProjectDetailsTool.
func NewGetProjectDetailsTool(svc *projects.Service, defaultProject string) *GetProjectDetailsTool {
	return &GetProjectDetailsTool{svc: svc, defaultProject: defaultProject}
}

// Definition returns the MCP tool definition for registration.
func (t *GetProjectDetailsTool) Definition() mcp.Tool {
	return mcp.NewTool("azdo_get_project_details",
		mcp.WithDescription(
			"Get a project with, optionally, its process, work item types and their fields, "+
				"backlog hierarchy and teams.",
		),
		mcp.WithString("project",
			mcp.Description("Project ID or name. Defaults to the configured project."),
		),
		mcp.WithBoolean("include_process",
			mcp.Description("Include the process template and backlog hierarchy."),
			mcp.DefaultBool(false),
		),
		mcp.WithBoolean("include_work_item_types",
			mcp.Description("Include work item types. Requires include_process."),
			mcp.DefaultBool(false),
		),
		mcp.WithBoolean("include_fields",
			mcp.Description("Include the fields of each work item type. Requires include_work_item_types."),
			mcp.DefaultBool(false),
		),
		mcp.WithBoolean("include_teams",
			mcp.Description("Include the project's teams."),
			mcp.DefaultBool(false),
		),
		mcp.WithBoolean("expand_team_identity",
			mcp.Description("Expand the identity of each team."),
			mcp.DefaultBool(false),
		),
	)
}

// Handle processes the azdo_get_project_details tool call.
func (t *GetProjectDetailsTool) Handle(ctx context.Context, req mcp.CallToolRequest) (res *mcp.CallToolResult, err error) {
	op := azdo.Op{Name: "get project details", Entity: "Project"}
	defer recoverTool(op, &res, &err)

	details, err := t.svc.GetProjectDetails(ctx, projects.Options{
		Project:              projectArg(req, t.defaultProject),
		IncludeProcess:       req.GetBool("include_process", false),
		IncludeWorkItemTypes: req.GetBool("include_work_item_types", false),
		IncludeFields:        req.GetBool("include_fields", false),
		IncludeTeams:         req.GetBool("include_teams", false),
		ExpandTeamIdentity:   req.GetBool("expand_team_identity", false),
	})
	if err != nil {
		return errorResult(err, op), nil
	}
	return jsonResult(details)
}
