package tools

import (
	"context"
	"strconv"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/HendryAvila/azdo-mcp/internal/azdo"
	"github.com/HendryAvila/azdo-mcp/internal/workitems"
)

// GetWorkItemTool handles the azdo_get_work_item MCP tool.
type GetWorkItemTool struct {
	svc *workitems.Service
}

// NewGetWorkItemTool creates a GetWorkItemTool.
func NewGetWorkItemTool(svc *workitems.Service) *GetWorkItemTool {
	return &GetWorkItemTool{svc: svc}
}

// Definition returns the MCP tool definition for registration.
func (t *GetWorkItemTool) Definition() mcp.Tool {
	return mcp.NewTool("azdo_get_work_item",
		mcp.WithDescription(
			"Get a work item by ID. Every field its type defines is returned, "+
				"with the type's default value where the item has none.",
		),
		mcp.WithNumber("work_item_id",
			mcp.Required(),
			mcp.Description("Numeric work item ID."),
		),
		mcp.WithString("expand",
			mcp.Description("Related data to include."),
			mcp.Enum(
				string(workitems.ExpandAll),
				string(workitems.ExpandRelations),
				string(workitems.ExpandFields),
				string(workitems.ExpandLinks),
				string(workitems.ExpandNone),
			),
			mcp.DefaultString(string(workitems.ExpandAll)),
		),
	)
}

// Handle processes the azdo_get_work_item tool call.
func (t *GetWorkItemTool) Handle(ctx context.Context, req mcp.CallToolRequest) (res *mcp.CallToolResult, err error) {
	op := azdo.Op{Name: "get work item", Entity: "Work item"}
	defer recoverTool(op, &res, &err)

	id, err := requireID(req, "work_item_id")
	if err != nil {
		return argumentError(err), nil
	}
	expand, err := workitems.ParseExpand(req.GetString("expand", ""))
	if err != nil {
		return errorResult(err, op), nil
	}

	item, err := t.svc.GetWorkItem(ctx, id, expand)
	if err != nil {
		op.ID = strconv.Itoa(id)
		return errorResult(err, op), nil
	}
	return jsonResult(item)
}
