// Package environments manages pipeline deployment environments.
package environments

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/HendryAvila/azdo-mcp/internal/azdo"
	"github.com/HendryAvila/azdo-mcp/internal/logging"
)

// APIProvider hands out capability-scoped API handles.
type APIProvider interface {
	API(ctx context.Context, c azdo.Capability) (*azdo.API, error)
}

// Environment is a deployment target that pipeline runs record history
// against.
type Environment struct {
	ID             int            `json:"id"`
	Name           string         `json:"name"`
	Description    string         `json:"description,omitempty"`
	CreatedOn      string         `json:"createdOn,omitempty"`
	LastModifiedOn string         `json:"lastModifiedOn,omitempty"`
	CreatedBy      map[string]any `json:"createdBy,omitempty"`
	Project        map[string]any `json:"project,omitempty"`
}

// CreateOptions describes a new environment.
type CreateOptions struct {
	Project     string
	Name        string
	Description string
}

// UpdateOptions changes an environment. Nil fields are left unchanged.
type UpdateOptions struct {
	Project       string
	EnvironmentID int
	Name          *string
	Description   *string
}

// DeleteResult reports a completed delete.
type DeleteResult struct {
	Success bool `json:"success"`
}

// Service implements the environment operations.
type Service struct {
	apis   APIProvider
	logger *slog.Logger
}

// NewService creates a Service.
func NewService(apis APIProvider, logger *slog.Logger) *Service {
	return &Service{apis: apis, logger: logging.Subsystem(logger, "environments")}
}

func environmentsPath(project string, id ...string) string {
	return azdo.Path(append([]string{project, "_apis", "distributedtask", "environments"}, id...)...)
}

// CreateEnvironment creates an environment.
func (s *Service) CreateEnvironment(ctx context.Context, opts CreateOptions) (*Environment, error) {
	op := azdo.Op{
		Name:         "create environment",
		Entity:       "Environment",
		ID:           opts.Name,
		NotFound:     "Project not found",
		Precondition: azdo.PreconditionCreate,
	}
	if strings.TrimSpace(opts.Name) == "" {
		return nil, azdo.NewValidationError("Environment name is required", nil)
	}

	api, err := s.apis.API(ctx, azdo.CapabilityTaskAgent)
	if err != nil {
		return nil, azdo.Classify(err, op)
	}

	body := map[string]string{"name": opts.Name}
	if opts.Description != "" {
		body["description"] = opts.Description
	}

	var env Environment
	if _, err := api.Send(ctx, http.MethodPost, environmentsPath(opts.Project), nil, body, &env); err != nil {
		return nil, azdo.Classify(err, op)
	}
	s.logger.Info("environment created", "project", opts.Project, "id", env.ID, "name", env.Name)
	return &env, nil
}

// UpdateEnvironment sends only the fields that are set.
func (s *Service) UpdateEnvironment(ctx context.Context, opts UpdateOptions) (*Environment, error) {
	op := azdo.Op{
		Name:     "update environment",
		Entity:   "Environment",
		ID:       strconv.Itoa(opts.EnvironmentID),
		NotFound: "Environment or project not found",
	}
	if opts.Name == nil && opts.Description == nil {
		return nil, azdo.NewValidationError("Nothing to update: provide a name or a description", nil)
	}

	api, err := s.apis.API(ctx, azdo.CapabilityTaskAgent)
	if err != nil {
		return nil, azdo.Classify(err, op)
	}

	body := map[string]string{}
	if opts.Name != nil {
		body["name"] = *opts.Name
	}
	if opts.Description != nil {
		body["description"] = *opts.Description
	}

	var env Environment
	if _, err := api.Send(ctx, http.MethodPatch, environmentsPath(opts.Project, op.ID), nil, body, &env); err != nil {
		return nil, azdo.Classify(err, op)
	}
	return &env, nil
}

// DeleteEnvironment removes an environment.
func (s *Service) DeleteEnvironment(ctx context.Context, project string, id int) (*DeleteResult, error) {
	op := azdo.Op{
		Name:     "delete environment",
		Entity:   "Environment",
		ID:       strconv.Itoa(id),
		NotFound: "Environment or project not found",
	}

	api, err := s.apis.API(ctx, azdo.CapabilityTaskAgent)
	if err != nil {
		return nil, azdo.Classify(err, op)
	}
	if _, err := api.Do(ctx, azdo.Request{Method: http.MethodDelete, Path: environmentsPath(project, op.ID)}); err != nil {
		return nil, azdo.Classify(err, op)
	}
	s.logger.Info("environment deleted", "project", project, "id", id)
	return &DeleteResult{Success: true}, nil
}
