package tools

import (
	"context"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/HendryAvila/azdo-mcp/internal/azdo"
	"github.com/HendryAvila/azdo-mcp/internal/environments"
)

// --- azdo_create_environment ---

// CreateEnvironmentTool creates a pipeline environment.
type CreateEnvironmentTool struct {
	svc            *environments.Service
	defaultProject string
}

// NewCreateEnvironmentTool creates a CreateEnvironmentTool.
func NewCreateEnvironmentTool(svc *environments.Service, defaultProject string) *CreateEnvironmentTool {
	return &CreateEnvironmentTool{svc: svc, defaultProject: defaultProject}
}

// Definition returns the MCP tool definition for registration.
func (t *CreateEnvironmentTool) Definition() mcp.Tool {
	return mcp.NewTool("azdo_create_environment",
		mcp.WithDescription("Create a pipeline environment."),
		mcp.WithString("project",
			mcp.Description("Project ID or name. Defaults to the configured project."),
		),
		mcp.WithString("name",
			mcp.Required(),
			mcp.Description("Environment name."),
		),
		mcp.WithString("description",
			mcp.Description("Environment description."),
		),
	)
}

// Handle processes the azdo_create_environment tool call.
func (t *CreateEnvironmentTool) Handle(ctx context.Context, req mcp.CallToolRequest) (res *mcp.CallToolResult, err error) {
	op := azdo.Op{Name: "create environment", Entity: "Environment"}
	defer recoverTool(op, &res, &err)

	project, err := requireProject(req, t.defaultProject)
	if err != nil {
		return argumentError(err), nil
	}
	name, err := req.RequireString("name")
	if err != nil {
		return argumentError(err), nil
	}

	env, err := t.svc.CreateEnvironment(ctx, environments.CreateOptions{
		Project:     project,
		Name:        name,
		Description: req.GetString("description", ""),
	})
	if err != nil {
		return errorResult(err, op), nil
	}
	return jsonResult(env)
}

// --- azdo_update_environment ---

// UpdateEnvironmentTool renames or redescribes an environment.
type UpdateEnvironmentTool struct {
	svc            *environments.Service
	defaultProject string
}

// NewUpdateEnvironmentTool creates an UpdateEnvironmentTool.
func NewUpdateEnvironmentTool(svc *environments.Service, defaultProject string) *UpdateEnvironmentTool {
	return &UpdateEnvironmentTool{svc: svc, defaultProject: defaultProject}
}

// Definition returns the MCP tool definition for registration.
func (t *UpdateEnvironmentTool) Definition() mcp.Tool {
	return mcp.NewTool("azdo_update_environment",
		mcp.WithDescription("Update the name or description of a pipeline environment. Omitted fields are left unchanged."),
		mcp.WithString("project",
			mcp.Description("Project ID or name. Defaults to the configured project."),
		),
		mcp.WithNumber("environment_id",
			mcp.Required(),
			mcp.Description("Numeric environment ID."),
		),
		mcp.WithString("name",
			mcp.Description("New name."),
		),
		mcp.WithString("description",
			mcp.Description("New description."),
		),
	)
}

// Handle processes the azdo_update_environment tool call.
func (t *UpdateEnvironmentTool) Handle(ctx context.Context, req mcp.CallToolRequest) (res *mcp.CallToolResult, err error) {
	op := azdo.Op{Name: "update environment", Entity: "Environment"}
	defer recoverTool(op, &res, &err)

	project, err := requireProject(req, t.defaultProject)
	if err != nil {
		return argumentError(err), nil
	}
	id, err := requireID(req, "environment_id")
	if err != nil {
		return argumentError(err), nil
	}

	env, err := t.svc.UpdateEnvironment(ctx, environments.UpdateOptions{
		Project:       project,
		EnvironmentID: id,
		Name:          optionalString(req, "name"),
		Description:   optionalString(req, "description"),
	})
	if err != nil {
		return errorResult(err, op), nil
	}
	return jsonResult(env)
}

// --- azdo_delete_environment ---

// DeleteEnvironmentTool deletes a pipeline environment.
type DeleteEnvironmentTool struct {
	svc            *environments.Service
	defaultProject string
}

// NewDeleteEnvironmentTool creates a DeleteEnvironmentTool.
func NewDeleteEnvironmentTool(svc *environments.Service, defaultProject string) *DeleteEnvironmentTool {
	return &DeleteEnvironmentTool{svc: svc, defaultProject: defaultProject}
}

// Definition returns the MCP tool definition for registration.
func (t *DeleteEnvironmentTool) Definition() mcp.Tool {
	return mcp.NewTool("azdo_delete_environment",
		mcp.WithDescription("Delete a pipeline environment."),
		mcp.WithDestructiveHintAnnotation(true),
		mcp.WithString("project",
			mcp.Description("Project ID or name. Defaults to the configured project."),
		),
		mcp.WithNumber("environment_id",
			mcp.Required(),
			mcp.Description("Numeric environment ID."),
		),
	)
}

// Handle processes the azdo_delete_environment tool call.
func (t *DeleteEnvironmentTool) Handle(ctx context.Context, req mcp.CallToolRequest) (res *mcp.CallToolResult, err error) {
	op := azdo.Op{Name: "delete environment", Entity: "Environment"}
	defer recoverTool(op, &res, &err)

	project, err := requireProject(req, t.defaultProject)
	if err != nil {
		return argumentError(err), nil
	}
	id, err := requireID(req, "environment_id")
	if err != nil {
		return argumentError(err), nil
	}

	result, err := t.svc.DeleteEnvironment(ctx, project, id)
	if err != nil {
		return errorResult(err, op), nil
	}
	return jsonResult(result)
}
