package wikis

import (
	"context"
	"net/http"
	"strings"

	"github.com/HendryAvila/azdo-mcp/internal/azdo"
)

const (
	defaultSearchTop = 100
	maxSearchTop     = 1000
)

// SearchOptions describes a wiki full-text search.
type SearchOptions struct {
	SearchText string
	// Project scopes the search and becomes the Project filter unless
	// Filters already names one.
	Project       string
	Top           int
	Skip          int
	Filters       map[string][]string
	IncludeFacets bool
}

// SearchResults is one page of wiki search hits.
type SearchResults struct {
	Count   int                `json:"count"`
	Results []SearchHit        `json:"results"`
	Facets  map[string][]Facet `json:"facets,omitempty"`
}

// SearchHit is a page that matched the search text.
type SearchHit struct {
	FileName string `json:"fileName"`
	Path     string `json:"path"`
	Wiki     struct {
		ID         string `json:"id"`
		Name       string `json:"name"`
		MappedPath string `json:"mappedPath,omitempty"`
		Version    string `json:"version,omitempty"`
	} `json:"wiki"`
	Project struct {
		ID   string `json:"id"`
		Name string `json:"name"`
	} `json:"project"`
	Hits      []Highlight `json:"hits,omitempty"`
	ContentID string      `json:"contentId,omitempty"`
}

// Highlight lists the matched fragments of one field.
type Highlight struct {
	FieldReferenceName string   `json:"fieldReferenceName"`
	Highlights         []string `json:"highlights"`
}

// Facet is a result count for one filter value.
type Facet struct {
	Name        string `json:"name"`
	ID          string `json:"id"`
	ResultCount int    `json:"resultCount"`
}

// Search runs a wiki full-text search through the Search service.
func (s *Service) Search(ctx context.Context, opts SearchOptions) (*SearchResults, error) {
	op := azdo.Op{
		Name:     "search wiki",
		NotFound: "Wiki search is not available for project: " + opts.Project,
	}
	if opts.Project == "" {
		op.NotFound = "Wiki search is not available for this organization"
	}

	if strings.TrimSpace(opts.SearchText) == "" {
		return nil, azdo.NewValidationError("searchText is required", nil)
	}
	top := opts.Top
	if top == 0 {
		top = defaultSearchTop
	}
	if top < 0 || top > maxSearchTop || opts.Skip < 0 {
		return nil, azdo.NewValidationError("top must be between 1 and 1000 and skip must not be negative", nil)
	}

	filters := make(map[string][]string, len(opts.Filters)+1)
	for k, v := range opts.Filters {
		filters[k] = v
	}
	if _, ok := filters["Project"]; !ok && opts.Project != "" {
		filters["Project"] = []string{opts.Project}
	}

	body := map[string]any{
		"searchText":    opts.SearchText,
		"$skip":         opts.Skip,
		"$top":          top,
		"includeFacets": opts.IncludeFacets,
	}
	if len(filters) > 0 {
		body["filters"] = filters
	}

	api, err := s.apis.API(ctx, azdo.CapabilitySearch)
	if err != nil {
		return nil, azdo.Classify(err, op)
	}

	var out SearchResults
	path := azdo.Path(opts.Project, "_apis", "search", "wikisearchresults")
	if _, err := api.Send(ctx, http.MethodPost, path, nil, body, &out); err != nil {
		return nil, azdo.Classify(err, op)
	}
	if out.Results == nil {
		out.Results = []SearchHit{}
	}
	s.logger.Debug("wiki search", "project", opts.Project, "count", out.Count, "returned", len(out.Results))
	return &out, nil
}
