// Package pipelines manages Azure Pipelines definitions and runs.
package pipelines

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
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

// Pipeline is a pipeline definition.
type Pipeline struct {
	ID            int            `json:"id"`
	Revision      int            `json:"revision,omitempty"`
	Name          string         `json:"name"`
	Folder        string         `json:"folder,omitempty"`
	URL           string         `json:"url,omitempty"`
	Configuration *Configuration `json:"configuration,omitempty"`
}

// Configuration says where a pipeline's definition lives.
type Configuration struct {
	Type       string      `json:"type"`
	Path       string      `json:"path,omitempty"`
	Repository *Repository `json:"repository,omitempty"`
}

// Repository is the source repository of a YAML pipeline.
type Repository struct {
	ID            string `json:"id"`
	Type          string `json:"type"`
	Name          string `json:"name,omitempty"`
	DefaultBranch string `json:"defaultBranch,omitempty"`
}

// Variable is a run-time pipeline variable.
type Variable struct {
	Value    string `json:"value"`
	IsSecret bool   `json:"isSecret,omitempty"`
}

// Run is one execution of a pipeline.
type Run struct {
	ID           int            `json:"id"`
	Name         string         `json:"name,omitempty"`
	State        string         `json:"state,omitempty"`
	Result       string         `json:"result,omitempty"`
	CreatedDate  string         `json:"createdDate,omitempty"`
	FinishedDate string         `json:"finishedDate,omitempty"`
	URL          string         `json:"url,omitempty"`
	Pipeline     *Pipeline      `json:"pipeline,omitempty"`
	Variables    map[string]any `json:"variables,omitempty"`
	FinalYAML    string         `json:"finalYaml,omitempty"`
}

// ListOptions filters ListPipelines.
type ListOptions struct {
	Project           string
	OrderBy           string
	Top               int
	ContinuationToken string
}

// CreateOptions describes a new pipeline.
type CreateOptions struct {
	Project       string
	Name          string
	Folder        string
	Configuration Configuration
}

// TriggerOptions starts a run on a branch.
type TriggerOptions struct {
	Project            string
	PipelineID         int
	Branch             string
	Variables          map[string]Variable
	TemplateParameters map[string]string
	StagesToSkip       []string
}

// RunOptions starts a run with the full run request surface, including
// preview runs that only expand the YAML.
type RunOptions struct {
	Project            string
	PipelineID         int
	PreviewRun         bool
	StagesToSkip       []string
	TemplateParameters map[string]any
	Variables          map[string]Variable
	YAMLOverride       string
}

// Service implements the pipeline operations.
type Service struct {
	apis   APIProvider
	logger *slog.Logger
}

// NewService creates a Service.
func NewService(apis APIProvider, logger *slog.Logger) *Service {
	return &Service{apis: apis, logger: logging.Subsystem(logger, "pipelines")}
}

func pipelinesPath(project string, rest ...string) string {
	return azdo.Path(append([]string{project, "_apis", "pipelines"}, rest...)...)
}

func pipelineOp(name string, id int) azdo.Op {
	return azdo.Op{Name: name, Entity: "Pipeline", ID: strconv.Itoa(id)}
}

// ListPipelines lists the pipelines of a project.
func (s *Service) ListPipelines(ctx context.Context, opts ListOptions) ([]Pipeline, error) {
	op := azdo.Op{Name: "list pipelines", Entity: "Project", ID: opts.Project}

	api, err := s.apis.API(ctx, azdo.CapabilityPipelines)
	if err != nil {
		return nil, azdo.Classify(err, op)
	}

	query := url.Values{}
	if opts.OrderBy != "" {
		query.Set("orderBy", opts.OrderBy)
	}
	if opts.Top > 0 {
		query.Set("$top", strconv.Itoa(opts.Top))
	}
	if opts.ContinuationToken != "" {
		query.Set("continuationToken", opts.ContinuationToken)
	}

	var list struct {
		Value []Pipeline `json:"value"`
	}
	if _, err := api.Get(ctx, pipelinesPath(opts.Project), query, &list); err != nil {
		return nil, azdo.Classify(err, op)
	}
	if list.Value == nil {
		return []Pipeline{}, nil
	}
	return list.Value, nil
}

// GetPipeline returns one pipeline, optionally at a specific revision.
func (s *Service) GetPipeline(ctx context.Context, project string, id, version int) (*Pipeline, error) {
	op := pipelineOp("get pipeline", id)

	api, err := s.apis.API(ctx, azdo.CapabilityPipelines)
	if err != nil {
		return nil, azdo.Classify(err, op)
	}

	var query url.Values
	if version > 0 {
		query = url.Values{"pipelineVersion": {strconv.Itoa(version)}}
	}

	var p Pipeline
	resp, err := api.Get(ctx, pipelinesPath(project, strconv.Itoa(id)), query, &p)
	if err != nil {
		return nil, azdo.Classify(err, op)
	}
	if len(resp.Body) == 0 || string(resp.Body) == "null" {
		return nil, azdo.NewResourceNotFoundError(fmt.Sprintf("Pipeline with ID %d not found", id))
	}
	return &p, nil
}

// CreatePipeline creates a pipeline definition.
func (s *Service) CreatePipeline(ctx context.Context, opts CreateOptions) (*Pipeline, error) {
	op := azdo.Op{
		Name:         "create pipeline",
		Entity:       "Pipeline",
		ID:           opts.Name,
		NotFound:     "Project or repository not found",
		Precondition: azdo.PreconditionCreate,
	}

	if strings.TrimSpace(opts.Name) == "" {
		return nil, azdo.NewValidationError("Pipeline name is required", nil)
	}
	if opts.Configuration.Repository == nil || opts.Configuration.Repository.ID == "" {
		return nil, azdo.NewValidationError("Pipeline repository is required", nil)
	}
	if opts.Configuration.Type == "" {
		opts.Configuration.Type = "yaml"
	}

	api, err := s.apis.API(ctx, azdo.CapabilityPipelines)
	if err != nil {
		return nil, azdo.Classify(err, op)
	}

	body := Pipeline{Name: opts.Name, Folder: opts.Folder, Configuration: &opts.Configuration}
	s.logger.Debug("creating pipeline", "project", opts.Project, "name", opts.Name, "type", opts.Configuration.Type)

	var created Pipeline
	if _, err := api.Send(ctx, http.MethodPost, pipelinesPath(opts.Project), nil, body, &created); err != nil {
		return nil, azdo.Classify(err, op)
	}
	return &created, nil
}

// DeletePipeline removes a pipeline definition.
func (s *Service) DeletePipeline(ctx context.Context, project string, id int) error {
	op := pipelineOp("delete pipeline", id)

	api, err := s.apis.API(ctx, azdo.CapabilityPipelines)
	if err != nil {
		return azdo.Classify(err, op)
	}
	if _, err := api.Do(ctx, azdo.Request{
		Method: http.MethodDelete,
		Path:   pipelinesPath(project, strconv.Itoa(id)),
	}); err != nil {
		return azdo.Classify(err, op)
	}
	s.logger.Info("pipeline deleted", "project", project, "id", id)
	return nil
}

// TriggerPipeline queues a run, optionally on a specific branch.
func (s *Service) TriggerPipeline(ctx context.Context, opts TriggerOptions) (*Run, error) {
	body := map[string]any{}
	if len(opts.Variables) > 0 {
		body["variables"] = opts.Variables
	}
	if len(opts.TemplateParameters) > 0 {
		body["templateParameters"] = opts.TemplateParameters
	}
	if len(opts.StagesToSkip) > 0 {
		body["stagesToSkip"] = opts.StagesToSkip
	}
	if opts.Branch != "" {
		body["resources"] = map[string]any{
			"repositories": map[string]any{
				"self": map[string]string{"refName": BranchRef(opts.Branch)},
			},
		}
	}
	return s.startRun(ctx, opts.Project, opts.PipelineID, body, pipelineOp("trigger pipeline", opts.PipelineID))
}

// RunPipeline starts a run with the full run request.
func (s *Service) RunPipeline(ctx context.Context, opts RunOptions) (*Run, error) {
	body := map[string]any{}
	if opts.PreviewRun {
		body["previewRun"] = true
	}
	if len(opts.StagesToSkip) > 0 {
		body["stagesToSkip"] = opts.StagesToSkip
	}
	if len(opts.TemplateParameters) > 0 {
		body["templateParameters"] = opts.TemplateParameters
	}
	if len(opts.Variables) > 0 {
		body["variables"] = opts.Variables
	}
	if opts.YAMLOverride != "" {
		body["yamlOverride"] = opts.YAMLOverride
	}
	return s.startRun(ctx, opts.Project, opts.PipelineID, body, pipelineOp("run pipeline", opts.PipelineID))
}

func (s *Service) startRun(ctx context.Context, project string, id int, body map[string]any, op azdo.Op) (*Run, error) {
	api, err := s.apis.API(ctx, azdo.CapabilityPipelines)
	if err != nil {
		return nil, azdo.Classify(err, op)
	}

	var run Run
	if _, err := api.Send(ctx, http.MethodPost, pipelinesPath(project, strconv.Itoa(id), "runs"), nil, body, &run); err != nil {
		return nil, azdo.Classify(err, op)
	}
	s.logger.Info("pipeline run started", "project", project, "pipeline", id, "run", run.ID, "state", run.State)
	return &run, nil
}

// ListRuns returns the most recent runs of a pipeline.
func (s *Service) ListRuns(ctx context.Context, project string, id int) ([]Run, error) {
	op := pipelineOp("list pipeline runs", id)

	api, err := s.apis.API(ctx, azdo.CapabilityPipelines)
	if err != nil {
		return nil, azdo.Classify(err, op)
	}

	var list struct {
		Value []Run `json:"value"`
	}
	if _, err := api.Get(ctx, pipelinesPath(project, strconv.Itoa(id), "runs"), nil, &list); err != nil {
		return nil, azdo.Classify(err, op)
	}
	if list.Value == nil {
		return []Run{}, nil
	}
	return list.Value, nil
}

// BranchRef turns a short branch name into a full ref.
func BranchRef(branch string) string {
	if strings.HasPrefix(branch, "refs/") {
		return branch
	}
	return "refs/heads/" + branch
}
