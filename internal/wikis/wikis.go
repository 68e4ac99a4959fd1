// Package wikis reads and writes Azure DevOps wikis and wiki pages.
package wikis

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"

	"github.com/HendryAvila/azdo-mcp/internal/azdo"
	"github.com/HendryAvila/azdo-mcp/internal/logging"
)

// APIProvider hands out capability-scoped API handles.
type APIProvider interface {
	API(ctx context.Context, c azdo.Capability) (*azdo.API, error)
}

// WikiType distinguishes project wikis from wikis published from a repository.
type WikiType string

const (
	ProjectWiki WikiType = "projectWiki"
	CodeWiki    WikiType = "codeWiki"
)

// GitVersion is a branch, tag or commit a code wiki is published from.
type GitVersion struct {
	Version     string `json:"version"`
	VersionType string `json:"versionType,omitempty"`
}

// Wiki is the subset of the upstream wiki resource this server exposes.
type Wiki struct {
	ID           string       `json:"id"`
	Name         string       `json:"name"`
	Type         WikiType     `json:"type"`
	ProjectID    string       `json:"projectId,omitempty"`
	RepositoryID string       `json:"repositoryId,omitempty"`
	MappedPath   string       `json:"mappedPath,omitempty"`
	URL          string       `json:"url,omitempty"`
	RemoteURL    string       `json:"remoteUrl,omitempty"`
	Versions     []GitVersion `json:"versions,omitempty"`
}

// PageContent is the markdown of a page with its unquoted version token.
type PageContent struct {
	Content string `json:"content"`
	ETag    string `json:"eTag,omitempty"`
}

// Page is the upstream response to a page write.
type Page struct {
	ID          int    `json:"id,omitempty"`
	Path        string `json:"path"`
	GitItemPath string `json:"gitItemPath,omitempty"`
	Content     string `json:"content,omitempty"`
	URL         string `json:"url,omitempty"`
	RemoteURL   string `json:"remoteUrl,omitempty"`
	// Version is the unquoted ETag of the written revision.
	Version string `json:"version,omitempty"`
	// Message says whether the write created or updated the page.
	Message string `json:"message,omitempty"`
}

// CreateWikiOptions describes a new wiki.
type CreateWikiOptions struct {
	Project      string
	Name         string
	Type         WikiType
	RepositoryID string
	MappedPath   string
}

// PageOptions addresses a page write.
type PageOptions struct {
	Project string
	WikiID  string
	Path    string
	Content string
	Comment string
}

// Service implements the wiki operations.
type Service struct {
	apis   APIProvider
	logger *slog.Logger
}

// NewService creates a Service.
func NewService(apis APIProvider, logger *slog.Logger) *Service {
	return &Service{apis: apis, logger: logging.Subsystem(logger, "wikis")}
}

// NormalizePath returns path with exactly one leading slash.
func NormalizePath(path string) string {
	return "/" + strings.TrimLeft(path, "/")
}

// GetProjectID resolves a project name or ID to its ID.
func (s *Service) GetProjectID(ctx context.Context, project string) (string, error) {
	op := azdo.Op{
		Name:     "get project details",
		Entity:   "Project",
		ID:       project,
		NotFound: "Project not found: " + project,
	}

	core, err := s.apis.API(ctx, azdo.CapabilityCore)
	if err != nil {
		return "", azdo.Classify(err, op)
	}

	var p struct {
		ID string `json:"id"`
	}
	if _, err := core.Get(ctx, azdo.Path("_apis", "projects", project), nil, &p); err != nil {
		return "", azdo.Classify(err, op)
	}
	return p.ID, nil
}

// ListWikis returns the wikis of project, or of the whole organization when
// project is empty.
func (s *Service) ListWikis(ctx context.Context, project string) ([]Wiki, error) {
	op := azdo.Op{Name: "get wikis"}

	api, err := s.apis.API(ctx, azdo.CapabilityWiki)
	if err != nil {
		return nil, azdo.Classify(err, op)
	}

	var list struct {
		Value []Wiki `json:"value"`
	}
	if _, err := api.Get(ctx, azdo.Path(project, "_apis", "wiki", "wikis"), nil, &list); err != nil {
		if resourceMissing(err) {
			scope := "Organization"
			if project != "" {
				scope = fmt.Sprintf("Project '%s'", project)
			}
			return nil, azdo.NewResourceNotFoundError("Resource not found: " + scope).WithCause(err)
		}
		return nil, azdo.Classify(err, op)
	}

	if list.Value == nil {
		return []Wiki{}, nil
	}
	return list.Value, nil
}

func resourceMissing(err error) bool {
	var herr *azdo.HTTPError
	if errors.As(err, &herr) && herr.StatusCode == http.StatusNotFound {
		return true
	}
	return strings.Contains(err.Error(), "The resource cannot be found")
}

// CreateWiki creates a project or code wiki.
func (s *Service) CreateWiki(ctx context.Context, opts CreateWikiOptions) (*Wiki, error) {
	if opts.Type == "" {
		opts.Type = ProjectWiki
	}
	if opts.Type != ProjectWiki && opts.Type != CodeWiki {
		return nil, azdo.NewValidationError(fmt.Sprintf("Unsupported wiki type: %s", opts.Type), nil)
	}
	if opts.Type == CodeWiki && opts.RepositoryID == "" {
		return nil, azdo.NewValidationError("Repository ID is required for code wikis", nil)
	}
	if opts.MappedPath == "" {
		opts.MappedPath = "/"
	}

	projectID, err := s.GetProjectID(ctx, opts.Project)
	if err != nil {
		return nil, err
	}

	body := map[string]any{
		"name":      opts.Name,
		"type":      opts.Type,
		"projectId": projectID,
	}
	if opts.Type == CodeWiki {
		body["repositoryId"] = opts.RepositoryID
		body["mappedPath"] = opts.MappedPath
		body["version"] = GitVersion{Version: "main", VersionType: "branch"}
	}

	op := azdo.Op{
		Name:         "create wiki",
		Entity:       "Wiki",
		ID:           opts.Name,
		NotFound:     "Project not found: " + opts.Project,
		Precondition: azdo.PreconditionCreate,
	}

	api, err := s.apis.API(ctx, azdo.CapabilityWiki)
	if err != nil {
		return nil, azdo.Classify(err, op)
	}

	var wiki Wiki
	if _, err := api.Send(ctx, http.MethodPost, azdo.Path(opts.Project, "_apis", "wiki", "wikis"), nil, body, &wiki); err != nil {
		return nil, azdo.Classify(err, op)
	}

	s.logger.Info("wiki created", "project", opts.Project, "wiki", wiki.Name, "type", wiki.Type)
	return &wiki, nil
}

func pagesPath(project, wikiID string) string {
	return azdo.Path(project, "_apis", "wiki", "wikis", wikiID, "pages")
}

// GetPage returns the markdown of a page and its current version token.
func (s *Service) GetPage(ctx context.Context, project, wikiID, path string) (*PageContent, error) {
	path = NormalizePath(path)
	op := azdo.Op{
		Name:     "get wiki page",
		Entity:   "Wiki page",
		ID:       path,
		NotFound: fmt.Sprintf("Wiki page not found: %s in wiki %s", path, wikiID),
	}

	api, err := s.apis.API(ctx, azdo.CapabilityWiki)
	if err != nil {
		return nil, azdo.Classify(err, op)
	}

	resp, err := api.Do(ctx, azdo.Request{
		Method: http.MethodGet,
		Path:   pagesPath(project, wikiID),
		Query:  url.Values{"path": {path}},
		Accept: "text/plain",
	})
	if err != nil {
		return nil, azdo.Classify(err, op)
	}

	return &PageContent{Content: string(resp.Body), ETag: resp.ETag()}, nil
}

// CreatePage writes a page that must not exist yet.
func (s *Service) CreatePage(ctx context.Context, opts PageOptions) (*Page, error) {
	opts.Path = NormalizePath(opts.Path)

	body := map[string]string{"content": opts.Content}
	if opts.Comment != "" {
		body["comment"] = opts.Comment
	}

	return s.putPage(ctx, opts, body, "", azdo.Op{
		Name:         "create wiki page",
		Entity:       "Wiki page",
		ID:           opts.Path,
		NotFound:     fmt.Sprintf("Cannot create wiki page: parent path for %s does not exist", opts.Path),
		Precondition: azdo.PreconditionCreate,
	})
}

// UpdatePage replaces the content of a page, creating it when missing.
//
// The current version is read first and sent back as If-Match, so a
// concurrent edit in between surfaces as a version conflict rather than
// being overwritten.
func (s *Service) UpdatePage(ctx context.Context, opts PageOptions) (*Page, error) {
	opts.Path = NormalizePath(opts.Path)

	var etag string
	current, err := s.GetPage(ctx, opts.Project, opts.WikiID, opts.Path)
	switch {
	case err == nil:
		etag = current.ETag
	case azdo.IsNotFoundError(err):
		s.logger.Debug("page missing, creating", "wiki", opts.WikiID, "path", opts.Path)
	default:
		return nil, err
	}

	return s.putPage(ctx, opts, map[string]string{"content": opts.Content}, etag, azdo.Op{
		Name:         "update wiki page",
		Entity:       "Wiki page",
		ID:           opts.Path,
		NotFound:     fmt.Sprintf("Wiki page not found: %s in wiki %s", opts.Path, opts.WikiID),
		Precondition: azdo.PreconditionIfMatch,
	})
}

func (s *Service) putPage(ctx context.Context, opts PageOptions, body any, etag string, op azdo.Op) (*Page, error) {
	api, err := s.apis.API(ctx, azdo.CapabilityWiki)
	if err != nil {
		return nil, azdo.Classify(err, op)
	}

	query := url.Values{"path": {opts.Path}}
	header := http.Header{}
	if op.Precondition == azdo.PreconditionIfMatch {
		if opts.Comment != "" {
			query.Set("comment", opts.Comment)
		}
		if etag != "" {
			header.Set("If-Match", `"`+etag+`"`)
		}
	}

	resp, err := api.Do(ctx, azdo.Request{
		Method: http.MethodPut,
		Path:   pagesPath(opts.Project, opts.WikiID),
		Query:  query,
		Header: header,
		Body:   body,
	})
	if err != nil {
		return nil, azdo.Classify(err, op)
	}

	var page Page
	if err := resp.Decode(&page); err != nil {
		return nil, azdo.Classify(err, op)
	}
	page.Version = resp.ETag()
	if page.Path == "" {
		page.Path = opts.Path
	}
	if op.Precondition == azdo.PreconditionIfMatch {
		page.Message = "Page updated successfully"
		if resp.StatusCode == http.StatusCreated {
			page.Message = "Page created successfully"
		}
	}

	s.logger.Info("wiki page written", "wiki", opts.WikiID, "path", opts.Path, "status", resp.StatusCode)
	return &page, nil
}
