// Package pullrequests lists and opens Git pull requests.
package pullrequests

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

// Status filters pull requests by lifecycle state.
type Status string

const (
	StatusAll       Status = "all"
	StatusActive    Status = "active"
	StatusCompleted Status = "completed"
	StatusAbandoned Status = "abandoned"
)

// ParseStatus validates a status filter. Empty means active, the upstream
// default.
func ParseStatus(s string) (Status, error) {
	switch st := Status(strings.ToLower(strings.TrimSpace(s))); st {
	case "":
		return StatusActive, nil
	case StatusAll, StatusActive, StatusCompleted, StatusAbandoned:
		return st, nil
	default:
		return "", azdo.NewValidationError(fmt.Sprintf("Invalid pull request status: %s", s), nil)
	}
}

// Identity is a user reference.
type Identity struct {
	ID          string `json:"id"`
	DisplayName string `json:"displayName,omitempty"`
	UniqueName  string `json:"uniqueName,omitempty"`
	Vote        int    `json:"vote,omitempty"`
}

// PullRequest is the subset of a Git pull request this server exposes.
type PullRequest struct {
	ID            int            `json:"pullRequestId"`
	Title         string         `json:"title"`
	Description   string         `json:"description,omitempty"`
	Status        string         `json:"status"`
	IsDraft       bool           `json:"isDraft"`
	SourceRefName string         `json:"sourceRefName"`
	TargetRefName string         `json:"targetRefName"`
	CreatedBy     *Identity      `json:"createdBy,omitempty"`
	CreationDate  string         `json:"creationDate,omitempty"`
	Reviewers     []Identity     `json:"reviewers,omitempty"`
	Repository    map[string]any `json:"repository,omitempty"`
	URL           string         `json:"url,omitempty"`
}

// ListOptions filters ListPullRequests.
type ListOptions struct {
	Project       string
	RepositoryID  string
	Status        Status
	CreatorID     string
	ReviewerID    string
	SourceRefName string
	TargetRefName string
	Top           int
}

// CreateOptions describes a new pull request.
type CreateOptions struct {
	Project       string
	RepositoryID  string
	Title         string
	Description   string
	SourceRefName string
	TargetRefName string
	Reviewers     []string
	IsDraft       bool
	WorkItemRefs  []int
}

// Service implements the pull request operations.
type Service struct {
	apis   APIProvider
	logger *slog.Logger
}

// NewService creates a Service.
func NewService(apis APIProvider, logger *slog.Logger) *Service {
	return &Service{apis: apis, logger: logging.Subsystem(logger, "pullrequests")}
}

func pullRequestsPath(project, repo string) string {
	return azdo.Path(project, "_apis", "git", "repositories", repo, "pullrequests")
}

// ListPullRequests returns the pull requests of a repository matching opts.
func (s *Service) ListPullRequests(ctx context.Context, opts ListOptions) ([]PullRequest, error) {
	op := azdo.Op{
		Name:     "list pull requests",
		Entity:   "Repository",
		ID:       opts.RepositoryID,
		NotFound: "Pull request or repository not found",
	}

	api, err := s.apis.API(ctx, azdo.CapabilityGit)
	if err != nil {
		return nil, azdo.Classify(err, op)
	}

	query := url.Values{}
	if opts.Status != "" {
		query.Set("searchCriteria.status", string(opts.Status))
	}
	if opts.CreatorID != "" {
		query.Set("searchCriteria.creatorId", opts.CreatorID)
	}
	if opts.ReviewerID != "" {
		query.Set("searchCriteria.reviewerId", opts.ReviewerID)
	}
	if opts.SourceRefName != "" {
		query.Set("searchCriteria.sourceRefName", opts.SourceRefName)
	}
	if opts.TargetRefName != "" {
		query.Set("searchCriteria.targetRefName", opts.TargetRefName)
	}
	if opts.Top > 0 {
		query.Set("$top", strconv.Itoa(opts.Top))
	}

	var list struct {
		Value []PullRequest `json:"value"`
	}
	if _, err := api.Get(ctx, pullRequestsPath(opts.Project, opts.RepositoryID), query, &list); err != nil {
		return nil, azdo.Classify(err, op)
	}
	if list.Value == nil {
		return []PullRequest{}, nil
	}
	return list.Value, nil
}

// CreatePullRequest opens a pull request.
func (s *Service) CreatePullRequest(ctx context.Context, opts CreateOptions) (*PullRequest, error) {
	op := azdo.Op{
		Name:         "create pull request",
		Entity:       "Pull request",
		ID:           opts.SourceRefName,
		NotFound:     "Pull request or repository not found",
		Precondition: azdo.PreconditionCreate,
	}
	switch {
	case strings.TrimSpace(opts.Title) == "":
		return nil, azdo.NewValidationError("Pull request title is required", nil)
	case opts.SourceRefName == "" || opts.TargetRefName == "":
		return nil, azdo.NewValidationError("Source and target branches are required", nil)
	}

	api, err := s.apis.API(ctx, azdo.CapabilityGit)
	if err != nil {
		return nil, azdo.Classify(err, op)
	}

	body := map[string]any{
		"title":         opts.Title,
		"sourceRefName": branchRef(opts.SourceRefName),
		"targetRefName": branchRef(opts.TargetRefName),
		"isDraft":       opts.IsDraft,
	}
	if opts.Description != "" {
		body["description"] = opts.Description
	}
	if len(opts.Reviewers) > 0 {
		reviewers := make([]map[string]string, 0, len(opts.Reviewers))
		for _, r := range opts.Reviewers {
			reviewers = append(reviewers, map[string]string{"id": r})
		}
		body["reviewers"] = reviewers
	}
	if len(opts.WorkItemRefs) > 0 {
		refs := make([]map[string]string, 0, len(opts.WorkItemRefs))
		for _, id := range opts.WorkItemRefs {
			refs = append(refs, map[string]string{"id": strconv.Itoa(id)})
		}
		body["workItemRefs"] = refs
	}

	var pr PullRequest
	if _, err := api.Send(ctx, http.MethodPost, pullRequestsPath(opts.Project, opts.RepositoryID), nil, body, &pr); err != nil {
		return nil, azdo.Classify(err, op)
	}
	s.logger.Info("pull request created", "repository", opts.RepositoryID, "id", pr.ID)
	return &pr, nil
}

func branchRef(name string) string {
	if strings.HasPrefix(name, "refs/") {
		return name
	}
	return "refs/heads/" + name
}
