// Package projects assembles project details from the Core and Work Item
// Tracking APIs.
package projects

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"strconv"
	"strings"

	"github.com/HendryAvila/azdo-mcp/internal/azdo"
	"github.com/HendryAvila/azdo-mcp/internal/logging"
)

// APIProvider hands out capability-scoped API handles.
type APIProvider interface {
	API(ctx context.Context, c azdo.Capability) (*azdo.API, error)
}

// Options selects what GetProjectDetails includes beyond the project itself.
type Options struct {
	Project              string
	IncludeProcess       bool
	IncludeWorkItemTypes bool
	IncludeFields        bool
	IncludeTeams         bool
	ExpandTeamIdentity   bool
}

// Details is a project with the optional process and team information.
type Details struct {
	ID           string                       `json:"id"`
	Name         string                       `json:"name"`
	Description  string                       `json:"description,omitempty"`
	URL          string                       `json:"url,omitempty"`
	State        string                       `json:"state,omitempty"`
	Revision     int                          `json:"revision,omitempty"`
	Visibility   string                       `json:"visibility,omitempty"`
	Capabilities map[string]map[string]string `json:"capabilities"`
	Process      *Process                     `json:"process,omitempty"`
	Teams        []Team                       `json:"teams,omitempty"`
}

// Team is a project team.
type Team struct {
	ID          string         `json:"id"`
	Name        string         `json:"name"`
	Description string         `json:"description,omitempty"`
	URL         string         `json:"url,omitempty"`
	Identity    map[string]any `json:"identity,omitempty"`
}

// Process describes the process template a project follows.
type Process struct {
	ID            string         `json:"id"`
	Name          string         `json:"name"`
	Description   string         `json:"description,omitempty"`
	IsDefault     bool           `json:"isDefault"`
	Type          string         `json:"type"`
	WorkItemTypes []WorkItemType `json:"workItemTypes,omitempty"`
	Hierarchy     *Hierarchy     `json:"hierarchyInfo,omitempty"`
}

// State is a work item state and its category.
type State struct {
	Name          string `json:"name"`
	Color         string `json:"color,omitempty"`
	StateCategory string `json:"stateCategory"`
}

// Field is a field defined on a work item type.
type Field struct {
	Name          string `json:"name"`
	ReferenceName string `json:"referenceName"`
	Type          string `json:"type"`
	Required      bool   `json:"required"`
	IsIdentity    bool   `json:"isIdentity,omitempty"`
	IsPicklist    bool   `json:"isPicklist,omitempty"`
	Description   string `json:"description,omitempty"`
}

// WorkItemType is a work item type with its states and, optionally, fields.
type WorkItemType struct {
	Name          string  `json:"name"`
	ReferenceName string  `json:"referenceName"`
	Description   string  `json:"description,omitempty"`
	IsDisabled    bool    `json:"isDisabled"`
	States        []State `json:"states,omitempty"`
	Fields        []Field `json:"fields,omitempty"`
}

// Backlog names the work item types shown on one backlog level.
type Backlog struct {
	Name          string   `json:"name"`
	WorkItemTypes []string `json:"workItemTypes"`
}

// Hierarchy groups work item types by backlog level.
type Hierarchy struct {
	PortfolioBacklogs  []Backlog `json:"portfolioBacklogs"`
	RequirementBacklog Backlog   `json:"requirementBacklog"`
	TaskBacklog        Backlog   `json:"taskBacklog"`
}

var defaultStates = []State{
	{Name: "New", StateCategory: "Proposed"},
	{Name: "Active", StateCategory: "InProgress"},
	{Name: "Resolved", StateCategory: "InProgress"},
	{Name: "Closed", StateCategory: "Completed"},
}

// fallbackFields is reported for a type whose field list cannot be read.
var fallbackFields = []Field{
	{Name: "Title", ReferenceName: "System.Title", Type: "string", Required: true},
	{Name: "Description", ReferenceName: "System.Description", Type: "html"},
}

// Service implements the project operations.
type Service struct {
	apis   APIProvider
	logger *slog.Logger
}

// NewService creates a Service.
func NewService(apis APIProvider, logger *slog.Logger) *Service {
	return &Service{apis: apis, logger: logging.Subsystem(logger, "projects")}
}

// GetProjectDetails returns a project and whatever extra information opts
// asks for.
func (s *Service) GetProjectDetails(ctx context.Context, opts Options) (*Details, error) {
	op := azdo.Op{
		Name:     "get project details",
		Entity:   "Project",
		ID:       opts.Project,
		NotFound: fmt.Sprintf("Project '%s' not found", opts.Project),
	}
	if strings.TrimSpace(opts.Project) == "" {
		return nil, azdo.NewResourceNotFoundError(op.NotFound)
	}

	core, err := s.apis.API(ctx, azdo.CapabilityCore)
	if err != nil {
		return nil, azdo.Classify(err, op)
	}

	var details Details
	resp, err := core.Get(ctx, azdo.Path("_apis", "projects", opts.Project),
		url.Values{"includeCapabilities": {"true"}}, &details)
	if err != nil {
		return nil, azdo.Classify(err, op)
	}
	if details.ID == "" && (len(resp.Body) == 0 || string(resp.Body) == "null") {
		return nil, azdo.NewResourceNotFoundError(op.NotFound)
	}
	if details.Capabilities == nil {
		details.Capabilities = map[string]map[string]string{
			"versioncontrol":  {"sourceControlType": "Git"},
			"processTemplate": {"templateName": "Unknown", "templateTypeId": "unknown"},
		}
	}

	if opts.IncludeTeams {
		teams, err := s.teams(ctx, core, opts.Project, opts.ExpandTeamIdentity)
		if err != nil {
			return nil, azdo.Classify(err, azdo.Op{Name: "get project teams", Entity: "Project", ID: opts.Project})
		}
		details.Teams = teams
	}

	if opts.IncludeProcess {
		process, err := s.process(ctx, details, opts)
		if err != nil {
			return nil, azdo.Classify(err, azdo.Op{Name: "get work item types", Entity: "Project", ID: opts.Project})
		}
		details.Process = process
	}

	return &details, nil
}

func (s *Service) teams(ctx context.Context, core *azdo.API, project string, expandIdentity bool) ([]Team, error) {
	query := url.Values{}
	if expandIdentity {
		query.Set("$expandIdentity", "true")
	}
	var list struct {
		Value []Team `json:"value"`
	}
	if _, err := core.Get(ctx, azdo.Path("_apis", "projects", project, "teams"), query, &list); err != nil {
		return nil, err
	}
	if list.Value == nil {
		return []Team{}, nil
	}
	return list.Value, nil
}

func (s *Service) process(ctx context.Context, details Details, opts Options) (*Process, error) {
	template := details.Capabilities["processTemplate"]
	p := &Process{
		ID:          valueOr(template["templateTypeId"], "unknown"),
		Name:        valueOr(template["templateName"], "Unknown"),
		Description: "Process template for the project",
		IsDefault:   true,
		Type:        "system",
	}
	if !opts.IncludeWorkItemTypes {
		return p, nil
	}

	wit, err := s.apis.API(ctx, azdo.CapabilityWorkItemTracking)
	if err != nil {
		return nil, err
	}

	var list struct {
		Value []struct {
			Name          string `json:"name"`
			ReferenceName string `json:"referenceName"`
			Description   string `json:"description"`
			IsDisabled    bool   `json:"isDisabled"`
		} `json:"value"`
	}
	if _, err := wit.Get(ctx, azdo.Path(opts.Project, "_apis", "wit", "workitemtypes"), nil, &list); err != nil {
		return nil, err
	}

	types := make([]WorkItemType, 0, len(list.Value))
	for i, t := range list.Value {
		wt := WorkItemType{
			Name:          valueOr(t.Name, "Unknown"),
			ReferenceName: t.ReferenceName,
			Description:   t.Description,
			IsDisabled:    t.IsDisabled,
			States:        defaultStates,
		}
		if wt.ReferenceName == "" {
			wt.ReferenceName = "System.Unknown." + strconv.Itoa(i)
		}
		if opts.IncludeFields {
			wt.Fields = s.fields(ctx, wit, opts.Project, wt.Name)
		}
		types = append(types, wt)
	}

	p.WorkItemTypes = types
	p.Hierarchy = hierarchy(types)
	return p, nil
}

// fields reads the field list of one type. A failure for one type falls
// back to Title and Description instead of failing the whole call.
func (s *Service) fields(ctx context.Context, wit *azdo.API, project, typeName string) []Field {
	var list struct {
		Value []struct {
			Name          string `json:"name"`
			ReferenceName string `json:"referenceName"`
			Type          string `json:"type"`
			AlwaysReq     bool   `json:"alwaysRequired"`
			IsIdentity    bool   `json:"isIdentity"`
			IsPicklist    bool   `json:"isPicklist"`
			Description   string `json:"helpText"`
		} `json:"value"`
	}
	_, err := wit.Get(ctx, azdo.Path(project, "_apis", "wit", "workitemtypes", typeName, "fields"),
		url.Values{"$expand": {"all"}}, &list)
	if err != nil {
		s.logger.Warn("reading work item type fields failed", "type", typeName, "error", err)
		return append([]Field(nil), fallbackFields...)
	}

	out := make([]Field, 0, len(list.Value))
	for _, f := range list.Value {
		out = append(out, Field{
			Name:          valueOr(f.Name, "Unknown"),
			ReferenceName: valueOr(f.ReferenceName, "Unknown"),
			Type:          valueOr(strings.ToLower(f.Type), "string"),
			Required:      f.AlwaysReq,
			IsIdentity:    f.IsIdentity,
			IsPicklist:    f.IsPicklist,
			Description:   f.Description,
		})
	}
	return out
}

func hierarchy(types []WorkItemType) *Hierarchy {
	named := func(names ...string) []string {
		out := []string{}
		for _, t := range types {
			for _, n := range names {
				if strings.EqualFold(t.Name, n) {
					out = append(out, t.Name)
				}
			}
		}
		return out
	}
	return &Hierarchy{
		PortfolioBacklogs: []Backlog{
			{Name: "Epics", WorkItemTypes: named("epic")},
			{Name: "Features", WorkItemTypes: named("feature")},
		},
		RequirementBacklog: Backlog{Name: "Stories", WorkItemTypes: named("user story", "bug")},
		TaskBacklog:        Backlog{Name: "Tasks", WorkItemTypes: named("task")},
	}
}

func valueOr(v, fallback string) string {
	if v == "" {
		return fallback
	}
	return v
}
