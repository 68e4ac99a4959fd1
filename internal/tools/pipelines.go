package tools

import (
	"context"
	"fmt"
	"strconv"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/HendryAvila/azdo-mcp/internal/azdo"
	"github.com/HendryAvila/azdo-mcp/internal/pipelines"
)

// pipelineOp names the operation for classification of handler failures.
func pipelineOp(name string, id int) azdo.Op {
	op := azdo.Op{Name: name, Entity: "Pipeline"}
	if id > 0 {
		op.ID = strconv.Itoa(id)
	}
	return op
}

// variablesArg reads run variables. Each value is either a plain string or
// an object with "value" and "isSecret".
func variablesArg(req mcp.CallToolRequest) (map[string]pipelines.Variable, error) {
	m, err := objectArg(req, "variables")
	if err != nil || m == nil {
		return nil, err
	}
	out := make(map[string]pipelines.Variable, len(m))
	for name, raw := range m {
		switch v := raw.(type) {
		case map[string]any:
			secret, _ := v["isSecret"].(bool)
			out[name] = pipelines.Variable{Value: scalarString(v["value"]), IsSecret: secret}
		default:
			out[name] = pipelines.Variable{Value: scalarString(v)}
		}
	}
	return out, nil
}

// --- azdo_list_pipelines ---

// ListPipelinesTool lists the pipelines of a project.
type ListPipelinesTool struct {
	svc            *pipelines.Service
	defaultProject string
}

// NewListPipelinesTool creates a ListPipelinesTool.
func NewListPipelinesTool(svc *pipelines.Service, defaultProject string) *ListPipelinesTool {
	return &ListPipelinesTool{svc: svc, defaultProject: defaultProject}
}

// Definition returns the MCP tool definition for registration.
func (t *ListPipelinesTool) Definition() mcp.Tool {
	return mcp.NewTool("azdo_list_pipelines",
		mcp.WithDescription("List pipelines in a project."),
		mcp.WithString("project",
			mcp.Description("Project ID or name. Defaults to the configured project."),
		),
		mcp.WithString("order_by",
			mcp.Description("Sort order, for example \"name asc\"."),
		),
		mcp.WithNumber("top",
			mcp.Description("Maximum number of pipelines to return."),
		),
		mcp.WithString("continuation_token",
			mcp.Description("Token from a previous call to fetch the next page."),
		),
	)
}

// Handle processes the azdo_list_pipelines tool call.
func (t *ListPipelinesTool) Handle(ctx context.Context, req mcp.CallToolRequest) (res *mcp.CallToolResult, err error) {
	op := azdo.Op{Name: "list pipelines"}
	defer recoverTool(op, &res, &err)

	project, err := requireProject(req, t.defaultProject)
	if err != nil {
		return argumentError(err), nil
	}

	list, err := t.svc.ListPipelines(ctx, pipelines.ListOptions{
		Project:           project,
		OrderBy:           req.GetString("order_by", ""),
		Top:               req.GetInt("top", 0),
		ContinuationToken: req.GetString("continuation_token", ""),
	})
	if err != nil {
		return errorResult(err, op), nil
	}
	return jsonResult(list)
}

// --- azdo_get_pipeline ---

// GetPipelineTool fetches one pipeline definition.
type GetPipelineTool struct {
	svc            *pipelines.Service
	defaultProject string
}

// NewGetPipelineTool creates a GetPipelineTool.
func NewGetPipelineTool(svc *pipelines.Service, defaultProject string) *GetPipelineTool {
	return &GetPipelineTool{svc: svc, defaultProject: defaultProject}
}

// Definition returns the MCP tool definition for registration.
func (t *GetPipelineTool) Definition() mcp.Tool {
	return mcp.NewTool("azdo_get_pipeline",
		mcp.WithDescription("Get a pipeline definition by ID, optionally at a specific version."),
		mcp.WithString("project",
			mcp.Description("Project ID or name. Defaults to the configured project."),
		),
		mcp.WithNumber("pipeline_id",
			mcp.Required(),
			mcp.Description("Numeric pipeline ID."),
		),
		mcp.WithNumber("pipeline_version",
			mcp.Description("Pipeline version. Defaults to the latest."),
		),
	)
}

// Handle processes the azdo_get_pipeline tool call.
func (t *GetPipelineTool) Handle(ctx context.Context, req mcp.CallToolRequest) (res *mcp.CallToolResult, err error) {
	op := pipelineOp("get pipeline", 0)
	defer recoverTool(op, &res, &err)

	project, err := requireProject(req, t.defaultProject)
	if err != nil {
		return argumentError(err), nil
	}
	id, err := requireID(req, "pipeline_id")
	if err != nil {
		return argumentError(err), nil
	}

	p, err := t.svc.GetPipeline(ctx, project, id, req.GetInt("pipeline_version", 0))
	if err != nil {
		return errorResult(err, pipelineOp("get pipeline", id)), nil
	}
	return jsonResult(p)
}

// --- azdo_create_pipeline ---

// CreatePipelineTool creates a YAML pipeline backed by a repository.
type CreatePipelineTool struct {
	svc            *pipelines.Service
	defaultProject string
}

// NewCreatePipelineTool creates a CreatePipelineTool.
func NewCreatePipelineTool(svc *pipelines.Service, defaultProject string) *CreatePipelineTool {
	return &CreatePipelineTool{svc: svc, defaultProject: defaultProject}
}

// Definition returns the MCP tool definition for registration.
func (t *CreatePipelineTool) Definition() mcp.Tool {
	return mcp.NewTool("azdo_create_pipeline",
		mcp.WithDescription("Create a pipeline from a YAML file in a repository."),
		mcp.WithString("project",
			mcp.Description("Project ID or name. Defaults to the configured project."),
		),
		mcp.WithString("name",
			mcp.Required(),
			mcp.Description("Pipeline name."),
		),
		mcp.WithString("folder",
			mcp.Description("Folder to place the pipeline in, for example \"\\\\ci\"."),
		),
		mcp.WithString("yaml_path",
			mcp.Required(),
			mcp.Description("Path of the YAML file in the repository."),
		),
		mcp.WithString("repository_id",
			mcp.Required(),
			mcp.Description("ID of the repository holding the YAML file."),
		),
		mcp.WithString("repository_type",
			mcp.Description("Repository type."),
			mcp.Enum("azureReposGit", "gitHub"),
			mcp.DefaultString("azureReposGit"),
		),
		mcp.WithString("repository_name",
			mcp.Description("Repository name, required for GitHub repositories."),
		),
	)
}

// Handle processes the azdo_create_pipeline tool call.
func (t *CreatePipelineTool) Handle(ctx context.Context, req mcp.CallToolRequest) (res *mcp.CallToolResult, err error) {
	op := pipelineOp("create pipeline", 0)
	defer recoverTool(op, &res, &err)

	project, err := requireProject(req, t.defaultProject)
	if err != nil {
		return argumentError(err), nil
	}
	name, err := req.RequireString("name")
	if err != nil {
		return argumentError(err), nil
	}
	yamlPath, err := req.RequireString("yaml_path")
	if err != nil {
		return argumentError(err), nil
	}
	repoID, err := req.RequireString("repository_id")
	if err != nil {
		return argumentError(err), nil
	}

	p, err := t.svc.CreatePipeline(ctx, pipelines.CreateOptions{
		Project: project,
		Name:    name,
		Folder:  req.GetString("folder", ""),
		Configuration: pipelines.Configuration{
			Type: "yaml",
			Path: yamlPath,
			Repository: &pipelines.Repository{
				ID:   repoID,
				Type: req.GetString("repository_type", "azureReposGit"),
				Name: req.GetString("repository_name", ""),
			},
		},
	})
	if err != nil {
		return errorResult(err, op), nil
	}
	return jsonResult(p)
}

// --- azdo_delete_pipeline ---

// DeletePipelineTool deletes a pipeline definition.
type DeletePipelineTool struct {
	svc            *pipelines.Service
	defaultProject string
}

// NewDeletePipelineTool creates a DeletePipelineTool.
func NewDeletePipelineTool(svc *pipelines.Service, defaultProject string) *DeletePipelineTool {
	return &DeletePipelineTool{svc: svc, defaultProject: defaultProject}
}

// Definition returns the MCP tool definition for registration.
func (t *DeletePipelineTool) Definition() mcp.Tool {
	return mcp.NewTool("azdo_delete_pipeline",
		mcp.WithDescription("Delete a pipeline definition. This cannot be undone."),
		mcp.WithDestructiveHintAnnotation(true),
		mcp.WithString("project",
			mcp.Description("Project ID or name. Defaults to the configured project."),
		),
		mcp.WithNumber("pipeline_id",
			mcp.Required(),
			mcp.Description("Numeric pipeline ID."),
		),
	)
}

// Handle processes the azdo_delete_pipeline tool call.
func (t *DeletePipelineTool) Handle(ctx context.Context, req mcp.CallToolRequest) (res *mcp.CallToolResult, err error) {
	op := pipelineOp("delete pipeline", 0)
	defer recoverTool(op, &res, &err)

	project, err := requireProject(req, t.defaultProject)
	if err != nil {
		return argumentError(err), nil
	}
	id, err := requireID(req, "pipeline_id")
	if err != nil {
		return argumentError(err), nil
	}

	if err := t.svc.DeletePipeline(ctx, project, id); err != nil {
		return errorResult(err, pipelineOp("delete pipeline", id)), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("Pipeline %d deleted from project %s", id, project)), nil
}

// --- azdo_trigger_pipeline ---

// TriggerPipelineTool queues a run on a branch.
type TriggerPipelineTool struct {
	svc            *pipelines.Service
	defaultProject string
}

// NewTriggerPipelineTool creates a TriggerPipelineTool.
func NewTriggerPipelineTool(svc *pipelines.Service, defaultProject string) *TriggerPipelineTool {
	return &TriggerPipelineTool{svc: svc, defaultProject: defaultProject}
}

// Definition returns the MCP tool definition for registration.
func (t *TriggerPipelineTool) Definition() mcp.Tool {
	return mcp.NewTool("azdo_trigger_pipeline",
		mcp.WithDescription("Queue a pipeline run, optionally on a branch and with variables."),
		mcp.WithString("project",
			mcp.Description("Project ID or name. Defaults to the configured project."),
		),
		mcp.WithNumber("pipeline_id",
			mcp.Required(),
			mcp.Description("Numeric pipeline ID."),
		),
		mcp.WithString("branch",
			mcp.Description("Branch to run, with or without the refs/heads/ prefix."),
		),
		mcp.WithObject("variables",
			mcp.Description("Run variables keyed by name. Values are strings or {\"value\", \"isSecret\"} objects."),
		),
		mcp.WithObject("template_parameters",
			mcp.Description("Template parameter values keyed by name."),
		),
		mcp.WithArray("stages_to_skip",
			mcp.Description("Names of stages to skip."),
			mcp.WithStringItems(),
		),
	)
}

// Handle processes the azdo_trigger_pipeline tool call.
func (t *TriggerPipelineTool) Handle(ctx context.Context, req mcp.CallToolRequest) (res *mcp.CallToolResult, err error) {
	op := pipelineOp("trigger pipeline", 0)
	defer recoverTool(op, &res, &err)

	project, err := requireProject(req, t.defaultProject)
	if err != nil {
		return argumentError(err), nil
	}
	id, err := requireID(req, "pipeline_id")
	if err != nil {
		return argumentError(err), nil
	}
	vars, err := variablesArg(req)
	if err != nil {
		return argumentError(err), nil
	}
	params, err := stringMapArg(req, "template_parameters")
	if err != nil {
		return argumentError(err), nil
	}

	run, err := t.svc.TriggerPipeline(ctx, pipelines.TriggerOptions{
		Project:            project,
		PipelineID:         id,
		Branch:             req.GetString("branch", ""),
		Variables:          vars,
		TemplateParameters: params,
		StagesToSkip:       req.GetStringSlice("stages_to_skip", nil),
	})
	if err != nil {
		return errorResult(err, pipelineOp("trigger pipeline", id)), nil
	}
	return jsonResult(run)
}

// --- azdo_run_pipeline ---

// RunPipelineTool starts a run with the full run request, including
// preview runs that only return the expanded YAML.
type RunPipelineTool struct {
	svc            *pipelines.Service
	defaultProject string
}

// NewRunPipelineTool creates a RunPipelineTool.
func NewRunPipelineTool(svc *pipelines.Service, defaultProject string) *RunPipelineTool {
	return &RunPipelineTool{svc: svc, defaultProject: defaultProject}
}

// Definition returns the MCP tool definition for registration.
func (t *RunPipelineTool) Definition() mcp.Tool {
	return mcp.NewTool("azdo_run_pipeline",
		mcp.WithDescription(
			"Run a pipeline. With preview_run the YAML is expanded and returned without starting a run.",
		),
		mcp.WithString("project",
			mcp.Description("Project ID or name. Defaults to the configured project."),
		),
		mcp.WithNumber("pipeline_id",
			mcp.Required(),
			mcp.Description("Numeric pipeline ID."),
		),
		mcp.WithBoolean("preview_run",
			mcp.Description("Only expand the YAML and return it."),
			mcp.DefaultBool(false),
		),
		mcp.WithString("yaml_override",
			mcp.Description("YAML to use instead of the file in the repository. Preview runs only."),
		),
		mcp.WithObject("variables",
			mcp.Description("Run variables keyed by name. Values are strings or {\"value\", \"isSecret\"} objects."),
		),
		mcp.WithObject("template_parameters",
			mcp.Description("Template parameter values keyed by name."),
		),
		mcp.WithArray("stages_to_skip",
			mcp.Description("Names of stages to skip."),
			mcp.WithStringItems(),
		),
	)
}

// Handle processes the azdo_run_pipeline tool call.
func (t *RunPipelineTool) Handle(ctx context.Context, req mcp.CallToolRequest) (res *mcp.CallToolResult, err error) {
	op := pipelineOp("run pipeline", 0)
	defer recoverTool(op, &res, &err)

	project, err := requireProject(req, t.defaultProject)
	if err != nil {
		return argumentError(err), nil
	}
	id, err := requireID(req, "pipeline_id")
	if err != nil {
		return argumentError(err), nil
	}
	vars, err := variablesArg(req)
	if err != nil {
		return argumentError(err), nil
	}
	params, err := objectArg(req, "template_parameters")
	if err != nil {
		return argumentError(err), nil
	}

	run, err := t.svc.RunPipeline(ctx, pipelines.RunOptions{
		Project:            project,
		PipelineID:         id,
		PreviewRun:         req.GetBool("preview_run", false),
		StagesToSkip:       req.GetStringSlice("stages_to_skip", nil),
		TemplateParameters: params,
		Variables:          vars,
		YAMLOverride:       req.GetString("yaml_override", ""),
	})
	if err != nil {
		return errorResult(err, pipelineOp("run pipeline", id)), nil
	}
	return jsonResult(run)
}

// --- azdo_list_pipeline_runs ---

// ListPipelineRunsTool lists the recent runs of one pipeline.
type ListPipelineRunsTool struct {
	svc            *pipelines.Service
	defaultProject string
}

// NewListPipelineRunsTool creates a ListPipelineRunsTool.
func NewListPipelineRunsTool(svc *pipelines.Service, defaultProject string) *ListPipelineRunsTool {
	return &ListPipelineRunsTool{svc: svc, defaultProject: defaultProject}
}

// Definition returns the MCP tool definition for registration.
func (t *ListPipelineRunsTool) Definition() mcp.Tool {
	return mcp.NewTool("azdo_list_pipeline_runs",
		mcp.WithDescription("List the most recent runs of a pipeline with their state and result."),
		mcp.WithString("project",
			mcp.Description("Project ID or name. Defaults to the configured project."),
		),
		mcp.WithNumber("pipeline_id",
			mcp.Required(),
			mcp.Description("Numeric pipeline ID."),
		),
	)
}

// Handle processes the azdo_list_pipeline_runs tool call.
func (t *ListPipelineRunsTool) Handle(ctx context.Context, req mcp.CallToolRequest) (res *mcp.CallToolResult, err error) {
	op := pipelineOp("list pipeline runs", 0)
	defer recoverTool(op, &res, &err)

	project, err := requireProject(req, t.defaultProject)
	if err != nil {
		return argumentError(err), nil
	}
	id, err := requireID(req, "pipeline_id")
	if err != nil {
		return argumentError(err), nil
	}

	runs, err := t.svc.ListRuns(ctx, project, id)
	if err != nil {
		return errorResult(err, pipelineOp("list pipeline runs", id)), nil
	}
	return jsonResult(runs)
}
