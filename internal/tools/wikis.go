package tools

import (
	"context"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/HendryAvila/azdo-mcp/internal/azdo"
	"github.com/HendryAvila/azdo-mcp/internal/wikis"
)

// --- azdo_list_wikis ---

// ListWikisTool lists the wikis of a project or of the whole organization.
type ListWikisTool struct {
	svc            *wikis.Service
	defaultProject string
}

// NewListWikisTool creates a ListWikisTool.
func NewListWikisTool(svc *wikis.Service, defaultProject string) *ListWikisTool {
	return &ListWikisTool{svc: svc, defaultProject: defaultProject}
}

// Definition returns the MCP tool definition for registration.
func (t *ListWikisTool) Definition() mcp.Tool {
	return mcp.NewTool("azdo_list_wikis",
		mcp.WithDescription(
			"List wikis. Without a project (and no default project) lists every wiki in the organization.",
		),
		mcp.WithString("project",
			mcp.Description("Project ID or name. Defaults to the configured project."),
		),
	)
}

// Handle processes the azdo_list_wikis tool call.
func (t *ListWikisTool) Handle(ctx context.Context, req mcp.CallToolRequest) (res *mcp.CallToolResult, err error) {
	op := azdo.Op{Name: "list wikis"}
	defer recoverTool(op, &res, &err)

	list, err := t.svc.ListWikis(ctx, projectArg(req, t.defaultProject))
	if err != nil {
		return errorResult(err, op), nil
	}
	return jsonResult(list)
}

// --- azdo_create_wiki ---

// CreateWikiTool creates a project wiki or publishes a repository as a
// code wiki.
type CreateWikiTool struct {
	svc            *wikis.Service
	defaultProject string
}

// NewCreateWikiTool creates a CreateWikiTool.
func NewCreateWikiTool(svc *wikis.Service, defaultProject string) *CreateWikiTool {
	return &CreateWikiTool{svc: svc, defaultProject: defaultProject}
}

// Definition returns the MCP tool definition for registration.
func (t *CreateWikiTool) Definition() mcp.Tool {
	return mcp.NewTool("azdo_create_wiki",
		mcp.WithDescription("Create a project wiki, or a code wiki published from a repository."),
		mcp.WithString("project",
			mcp.Description("Project ID or name. Defaults to the configured project."),
		),
		mcp.WithString("name",
			mcp.Required(),
			mcp.Description("Wiki name."),
		),
		mcp.WithString("type",
			mcp.Description("Wiki type."),
			mcp.Enum(string(wikis.ProjectWiki), string(wikis.CodeWiki)),
			mcp.DefaultString(string(wikis.ProjectWiki)),
		),
		mcp.WithString("repository_id",
			mcp.Description("Repository to publish. Required for code wikis."),
		),
		mcp.WithString("mapped_path",
			mcp.Description("Folder in the repository to publish. Defaults to \"/\"."),
		),
	)
}

// Handle processes the azdo_create_wiki tool call.
func (t *CreateWikiTool) Handle(ctx context.Context, req mcp.CallToolRequest) (res *mcp.CallToolResult, err error) {
	op := azdo.Op{Name: "create wiki", Entity: "Wiki"}
	defer recoverTool(op, &res, &err)

	project, err := requireProject(req, t.defaultProject)
	if err != nil {
		return argumentError(err), nil
	}
	name, err := req.RequireString("name")
	if err != nil {
		return argumentError(err), nil
	}

	wiki, err := t.svc.CreateWiki(ctx, wikis.CreateWikiOptions{
		Project:      project,
		Name:         name,
		Type:         wikis.WikiType(req.GetString("type", string(wikis.ProjectWiki))),
		RepositoryID: req.GetString("repository_id", ""),
		MappedPath:   req.GetString("mapped_path", ""),
	})
	if err != nil {
		return errorResult(err, op), nil
	}
	return jsonResult(wiki)
}

// --- azdo_get_wiki_page ---

// GetWikiPageTool returns the markdown of a wiki page.
type GetWikiPageTool struct {
	svc            *wikis.Service
	defaultProject string
}

// NewGetWikiPageTool creates a GetWikiPageTool.
func NewGetWikiPageTool(svc *wikis.Service, defaultProject string) *GetWikiPageTool {
	return &GetWikiPageTool{svc: svc, defaultProject: defaultProject}
}

// Definition returns the MCP tool definition for registration.
func (t *GetWikiPageTool) Definition() mcp.Tool {
	return mcp.NewTool("azdo_get_wiki_page",
		mcp.WithDescription("Get the markdown content of a wiki page and its version token."),
		mcp.WithString("project",
			mcp.Description("Project ID or name. Defaults to the configured project."),
		),
		mcp.WithString("wiki_id",
			mcp.Required(),
			mcp.Description("Wiki ID or name."),
		),
		mcp.WithString("page_path",
			mcp.Required(),
			mcp.Description("Page path, for example \"/Home\"."),
		),
	)
}

// Handle processes the azdo_get_wiki_page tool call.
func (t *GetWikiPageTool) Handle(ctx context.Context, req mcp.CallToolRequest) (res *mcp.CallToolResult, err error) {
	op := azdo.Op{Name: "get wiki page", Entity: "Wiki page"}
	defer recoverTool(op, &res, &err)

	project, err := requireProject(req, t.defaultProject)
	if err != nil {
		return argumentError(err), nil
	}
	wikiID, err := req.RequireString("wiki_id")
	if err != nil {
		return argumentError(err), nil
	}
	path, err := req.RequireString("page_path")
	if err != nil {
		return argumentError(err), nil
	}

	page, err := t.svc.GetPage(ctx, project, wikiID, path)
	if err != nil {
		return errorResult(err, op), nil
	}
	return jsonResult(page)
}

// --- azdo_create_wiki_page ---

// CreateWikiPageTool writes a new wiki page.
type CreateWikiPageTool struct {
	svc            *wikis.Service
	defaultProject string
}

// NewCreateWikiPageTool creates a CreateWikiPageTool.
func NewCreateWikiPageTool(svc *wikis.Service, defaultProject string) *CreateWikiPageTool {
	return &CreateWikiPageTool{svc: svc, defaultProject: defaultProject}
}

// Definition returns the MCP tool definition for registration.
func (t *CreateWikiPageTool) Definition() mcp.Tool {
	return mcp.NewTool("azdo_create_wiki_page",
		mcp.WithDescription("Create a wiki page. Fails if the page already exists."),
		mcp.WithString("project",
			mcp.Description("Project ID or name. Defaults to the configured project."),
		),
		mcp.WithString("wiki_id",
			mcp.Required(),
			mcp.Description("Wiki ID or name."),
		),
		mcp.WithString("page_path",
			mcp.Required(),
			mcp.Description("Path of the new page. The parent page must exist."),
		),
		mcp.WithString("content",
			mcp.Required(),
			mcp.Description("Markdown content."),
		),
		mcp.WithString("comment",
			mcp.Description("Commit comment for the change."),
		),
	)
}

// Handle processes the azdo_create_wiki_page tool call.
func (t *CreateWikiPageTool) Handle(ctx context.Context, req mcp.CallToolRequest) (res *mcp.CallToolResult, err error) {
	op := azdo.Op{Name: "create wiki page", Entity: "Wiki page", Precondition: azdo.PreconditionCreate}
	defer recoverTool(op, &res, &err)

	opts, errResult := pageOptions(req, t.defaultProject)
	if errResult != nil {
		return errResult, nil
	}

	page, err := t.svc.CreatePage(ctx, opts)
	if err != nil {
		return errorResult(err, op), nil
	}
	return jsonResult(page)
}

// --- azdo_update_wiki_page ---

// UpdateWikiPageTool replaces the content of a wiki page, creating it when
// it does not exist.
type UpdateWikiPageTool struct {
	svc            *wikis.Service
	defaultProject string
}

// NewUpdateWikiPageTool creates an UpdateWikiPageTool.
func NewUpdateWikiPageTool(svc *wikis.Service, defaultProject string) *UpdateWikiPageTool {
	return &UpdateWikiPageTool{svc: svc, defaultProject: defaultProject}
}

// Definition returns the MCP tool definition for registration.
func (t *UpdateWikiPageTool) Definition() mcp.Tool {
	return mcp.NewTool("azdo_update_wiki_page",
		mcp.WithDescription(
			"Replace the content of a wiki page, creating it if missing. "+
				"A concurrent edit is reported as a version conflict.",
		),
		mcp.WithString("project",
			mcp.Description("Project ID or name. Defaults to the configured project."),
		),
		mcp.WithString("wiki_id",
			mcp.Required(),
			mcp.Description("Wiki ID or name."),
		),
		mcp.WithString("page_path",
			mcp.Required(),
			mcp.Description("Page path, for example \"/Home\"."),
		),
		mcp.WithString("content",
			mcp.Required(),
			mcp.Description("New markdown content."),
		),
		mcp.WithString("comment",
			mcp.Description("Commit comment for the change."),
		),
	)
}

// Handle processes the azdo_update_wiki_page tool call.
func (t *UpdateWikiPageTool) Handle(ctx context.Context, req mcp.CallToolRequest) (res *mcp.CallToolResult, err error) {
	op := azdo.Op{Name: "update wiki page", Entity: "Wiki page", Precondition: azdo.PreconditionIfMatch}
	defer recoverTool(op, &res, &err)

	opts, errResult := pageOptions(req, t.defaultProject)
	if errResult != nil {
		return errResult, nil
	}

	page, err := t.svc.UpdatePage(ctx, opts)
	if err != nil {
		return errorResult(err, op), nil
	}
	return jsonResult(page)
}

// pageOptions reads the arguments shared by the page write tools.
func pageOptions(req mcp.CallToolRequest, defaultProject string) (wikis.PageOptions, *mcp.CallToolResult) {
	project, err := requireProject(req, defaultProject)
	if err != nil {
		return wikis.PageOptions{}, argumentError(err)
	}
	wikiID, err := req.RequireString("wiki_id")
	if err != nil {
		return wikis.PageOptions{}, argumentError(err)
	}
	path, err := req.RequireString("page_path")
	if err != nil {
		return wikis.PageOptions{}, argumentError(err)
	}
	content, err := req.RequireString("content")
	if err != nil {
		return wikis.PageOptions{}, argumentError(err)
	}
	return wikis.PageOptions{
		Project: project,
		WikiID:  wikiID,
		Path:    path,
		Content: content,
		Comment: req.GetString("comment", ""),
	}, nil
}

// --- azdo_search_wiki ---

// SearchWikiTool runs a full-text search over wiki pages.
type SearchWikiTool struct {
	svc            *wikis.Service
	defaultProject string
}

// NewSearchWikiTool creates a SearchWikiTool.
func NewSearchWikiTool(svc *wikis.Service, defaultProject string) *SearchWikiTool {
	return &SearchWikiTool{svc: svc, defaultProject: defaultProject}
}

// Definition returns the MCP tool definition for registration.
func (t *SearchWikiTool) Definition() mcp.Tool {
	return mcp.NewTool("azdo_search_wiki",
		mcp.WithDescription(
			"Search wiki pages by text. Requires the Azure DevOps Search service. "+
				"Use top and skip to page through results.",
		),
		mcp.WithString("search_text",
			mcp.Required(),
			mcp.Description("Text to search for."),
		),
		mcp.WithString("project",
			mcp.Description("Project ID or name. Defaults to the configured project; searches the organization when neither is set."),
		),
		mcp.WithNumber("top",
			mcp.Description("Maximum number of results (1-1000, default 100)."),
		),
		mcp.WithNumber("skip",
			mcp.Description("Number of results to skip."),
		),
		mcp.WithObject("filters",
			mcp.Description("Search filters by name, for example {\"Project\": [\"MyProject\"], \"Wiki\": [\"MyProject.wiki\"]}."),
		),
		mcp.WithBoolean("include_facets",
			mcp.DefaultBool(true),
			mcp.Description("Include per-filter result counts."),
		),
	)
}

// Handle processes the azdo_search_wiki tool call.
func (t *SearchWikiTool) Handle(ctx context.Context, req mcp.CallToolRequest) (res *mcp.CallToolResult, err error) {
	op := azdo.Op{Name: "search wiki"}
	defer recoverTool(op, &res, &err)

	text, err := req.RequireString("search_text")
	if err != nil {
		return argumentError(err), nil
	}
	filters, err := stringListMapArg(req, "filters")
	if err != nil {
		return argumentError(err), nil
	}

	results, err := t.svc.Search(ctx, wikis.SearchOptions{
		SearchText:    text,
		Project:       projectArg(req, t.defaultProject),
		Top:           req.GetInt("top", 0),
		Skip:          req.GetInt("skip", 0),
		Filters:       filters,
		IncludeFacets: req.GetBool("include_facets", true),
	})
	if err != nil {
		return errorResult(err, op), nil
	}
	return jsonResult(results)
}
