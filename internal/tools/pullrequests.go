package tools

import (
	"context"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/HendryAvila/azdo-mcp/internal/azdo"
	"github.com/HendryAvila/azdo-mcp/internal/pullrequests"
)

// --- azdo_list_pull_requests ---

// ListPullRequestsTool lists the pull requests of a repository.
type ListPullRequestsTool struct {
	svc            *pullrequests.Service
	defaultProject string
}

// NewListPullRequestsTool creates a ListPullRequestsTool.
func NewListPullRequestsTool(svc *pullrequests.Service, defaultProject string) *ListPullRequestsTool {
	return &ListPullRequestsTool{svc: svc, defaultProject: defaultProject}
}

// Definition returns the MCP tool definition for registration.
func (t *ListPullRequestsTool) Definition() mcp.Tool {
	return mcp.NewTool("azdo_list_pull_requests",
		mcp.WithDescription("List pull requests in a repository."),
		mcp.WithString("project",
			mcp.Description("Project ID or name. Defaults to the configured project."),
		),
		mcp.WithString("repository_id",
			mcp.Required(),
			mcp.Description("Repository ID or name."),
		),
		mcp.WithString("status",
			mcp.Description("Lifecycle filter."),
			mcp.Enum(
				string(pullrequests.StatusActive),
				string(pullrequests.StatusCompleted),
				string(pullrequests.StatusAbandoned),
				string(pullrequests.StatusAll),
			),
			mcp.DefaultString(string(pullrequests.StatusActive)),
		),
		mcp.WithString("creator_id",
			mcp.Description("Only pull requests created by this identity ID."),
		),
		mcp.WithString("reviewer_id",
			mcp.Description("Only pull requests with this reviewer identity ID."),
		),
		mcp.WithString("source_ref_name",
			mcp.Description("Only pull requests from this source branch."),
		),
		mcp.WithString("target_ref_name",
			mcp.Description("Only pull requests into this target branch."),
		),
		mcp.WithNumber("top",
			mcp.Description("Maximum number of pull requests to return."),
		),
	)
}

// Handle processes the azdo_list_pull_requests tool call.
func (t *ListPullRequestsTool) Handle(ctx context.Context, req mcp.CallToolRequest) (res *mcp.CallToolResult, err error) {
	op := azdo.Op{Name: "list pull requests"}
	defer recoverTool(op, &res, &err)

	project, err := requireProject(req, t.defaultProject)
	if err != nil {
		return argumentError(err), nil
	}
	repo, err := req.RequireString("repository_id")
	if err != nil {
		return argumentError(err), nil
	}
	status, err := pullrequests.ParseStatus(req.GetString("status", ""))
	if err != nil {
		return errorResult(err, op), nil
	}

	list, err := t.svc.ListPullRequests(ctx, pullrequests.ListOptions{
		Project:       project,
		RepositoryID:  repo,
		Status:        status,
		CreatorID:     req.GetString("creator_id", ""),
		ReviewerID:    req.GetString("reviewer_id", ""),
		SourceRefName: req.GetString("source_ref_name", ""),
		TargetRefName: req.GetString("target_ref_name", ""),
		Top:           req.GetInt("top", 0),
	})
	if err != nil {
		return errorResult(err, op), nil
	}
	return jsonResult(list)
}

// --- azdo_create_pull_request ---

// CreatePullRequestTool opens a pull request.
type CreatePullRequestTool struct {
	svc            *pullrequests.Service
	defaultProject string
}

// NewCreatePullRequestTool creates a CreatePullRequestTool.
func NewCreatePullRequestTool(svc *pullrequests.Service, defaultProject string) *CreatePullRequestTool {
	return &CreatePullRequestTool{svc: svc, defaultProject: defaultProject}
}

// Definition returns the MCP tool definition for registration.
func (t *CreatePullRequestTool) Definition() mcp.Tool {
	return mcp.NewTool("azdo_create_pull_request",
		mcp.WithDescription("Create a pull request."),
		mcp.WithString("project",
			mcp.Description("Project ID or name. Defaults to the configured project."),
		),
		mcp.WithString("repository_id",
			mcp.Required(),
			mcp.Description("Repository ID or name."),
		),
		mcp.WithString("title",
			mcp.Required(),
			mcp.Description("Pull request title."),
		),
		mcp.WithString("description",
			mcp.Description("Pull request description in markdown."),
		),
		mcp.WithString("source_ref_name",
			mcp.Required(),
			mcp.Description("Source branch, with or without the refs/heads/ prefix."),
		),
		mcp.WithString("target_ref_name",
			mcp.Required(),
			mcp.Description("Target branch, with or without the refs/heads/ prefix."),
		),
		mcp.WithArray("reviewers",
			mcp.Description("Reviewer identity IDs."),
			mcp.WithStringItems(),
		),
		mcp.WithBoolean("is_draft",
			mcp.Description("Create the pull request as a draft."),
			mcp.DefaultBool(false),
		),
		mcp.WithArray("work_item_refs",
			mcp.Description("IDs of work items to link."),
			mcp.Items(map[string]any{"type": "number"}),
		),
	)
}

// Handle processes the azdo_create_pull_request tool call.
func (t *CreatePullRequestTool) Handle(ctx context.Context, req mcp.CallToolRequest) (res *mcp.CallToolResult, err error) {
	op := azdo.Op{Name: "create pull request", Entity: "Pull request"}
	defer recoverTool(op, &res, &err)

	project, err := requireProject(req, t.defaultProject)
	if err != nil {
		return argumentError(err), nil
	}
	repo, err := req.RequireString("repository_id")
	if err != nil {
		return argumentError(err), nil
	}
	title, err := req.RequireString("title")
	if err != nil {
		return argumentError(err), nil
	}
	source, err := req.RequireString("source_ref_name")
	if err != nil {
		return argumentError(err), nil
	}
	target, err := req.RequireString("target_ref_name")
	if err != nil {
		return argumentError(err), nil
	}
	workItems, err := intSliceArg(req, "work_item_refs")
	if err != nil {
		return argumentError(err), nil
	}

	pr, err := t.svc.CreatePullRequest(ctx, pullrequests.CreateOptions{
		Project:       project,
		RepositoryID:  repo,
		Title:         title,
		Description:   req.GetString("description", ""),
		SourceRefName: source,
		TargetRefName: target,
		Reviewers:     req.GetStringSlice("reviewers", nil),
		IsDraft:       req.GetBool("is_draft", false),
		WorkItemRefs:  workItems,
	})
	if err != nil {
		return errorResult(err, op), nil
	}
	return jsonResult(pr)
}
