// Package workitems reads work items and fills in fields the item leaves
// unset with their type's defaults.
package workitems

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"strconv"
	"strings"
	"sync"

	"golang.org/x/sync/singleflight"

	"github.com/HendryAvila/azdo-mcp/internal/azdo"
	"github.com/HendryAvila/azdo-mcp/internal/logging"
)

// APIProvider hands out capability-scoped API handles.
type APIProvider interface {
	API(ctx context.Context, c azdo.Capability) (*azdo.API, error)
}

// Expand selects which related data the upstream includes.
type Expand string

const (
	ExpandNone      Expand = "none"
	ExpandRelations Expand = "relations"
	ExpandFields    Expand = "fields"
	ExpandLinks     Expand = "links"
	ExpandAll       Expand = "all"
)

// ParseExpand accepts the expand names case-insensitively. Empty means all.
func ParseExpand(s string) (Expand, error) {
	if s == "" {
		return ExpandAll, nil
	}
	for _, e := range []Expand{ExpandNone, ExpandRelations, ExpandFields, ExpandLinks, ExpandAll} {
		if strings.EqualFold(string(e), s) {
			return e, nil
		}
	}
	return "", azdo.NewValidationError(fmt.Sprintf("Invalid expand value: %s", s), nil)
}

// WorkItem is a work item as returned upstream.
type WorkItem struct {
	ID        int            `json:"id"`
	Rev       int            `json:"rev,omitempty"`
	Fields    map[string]any `json:"fields"`
	Relations []Relation     `json:"relations,omitempty"`
	Links     map[string]any `json:"_links,omitempty"`
	URL       string         `json:"url,omitempty"`
}

// Relation links a work item to another resource.
type Relation struct {
	Rel        string         `json:"rel"`
	URL        string         `json:"url"`
	Attributes map[string]any `json:"attributes,omitempty"`
}

// TypeField is a field a work item type defines.
type TypeField struct {
	ReferenceName string `json:"referenceName"`
	Name          string `json:"name"`
	DefaultValue  any    `json:"defaultValue"`
}

// Service implements the work item operations.
type Service struct {
	apis   APIProvider
	logger *slog.Logger

	group singleflight.Group
	mu    sync.RWMutex
	// fields caches type field lists by "project\x00type" for the lifetime
	// of the process.
	fields map[string][]TypeField
}

// NewService creates a Service.
func NewService(apis APIProvider, logger *slog.Logger) *Service {
	return &Service{
		apis:   apis,
		logger: logging.Subsystem(logger, "workitems"),
		fields: make(map[string][]TypeField),
	}
}

// GetWorkItem returns a work item with every field its type defines. Fields
// the item does not carry are set to the type's default value.
func (s *Service) GetWorkItem(ctx context.Context, id int, expand Expand) (*WorkItem, error) {
	op := azdo.Op{Name: "get work item", Entity: "Work item", ID: strconv.Itoa(id)}
	if expand == "" {
		expand = ExpandAll
	}

	wit, err := s.apis.API(ctx, azdo.CapabilityWorkItemTracking)
	if err != nil {
		return nil, azdo.Classify(err, op)
	}

	var item WorkItem
	resp, err := wit.Get(ctx, azdo.Path("_apis", "wit", "workitems", strconv.Itoa(id)),
		url.Values{"$expand": {string(expand)}}, &item)
	if err != nil {
		return nil, azdo.Classify(err, op)
	}
	if len(resp.Body) == 0 || string(resp.Body) == "null" {
		return nil, azdo.NewResourceNotFoundError(fmt.Sprintf("Work item '%d' not found", id))
	}

	project, _ := item.Fields["System.TeamProject"].(string)
	typeName, _ := item.Fields["System.WorkItemType"].(string)
	if project == "" || typeName == "" {
		return &item, nil
	}

	fields, err := s.typeFields(ctx, wit, project, typeName)
	if err != nil {
		return nil, azdo.Classify(err, azdo.Op{Name: "get work item type fields", Entity: "Work item type", ID: typeName})
	}

	if item.Fields == nil {
		item.Fields = make(map[string]any, len(fields))
	}
	for _, f := range fields {
		if f.ReferenceName == "" {
			continue
		}
		if _, ok := item.Fields[f.ReferenceName]; !ok {
			item.Fields[f.ReferenceName] = f.DefaultValue
		}
	}
	return &item, nil
}

// typeFields returns the memoized field list for a type. Concurrent misses
// for the same key share one upstream call.
func (s *Service) typeFields(ctx context.Context, wit *azdo.API, project, typeName string) ([]TypeField, error) {
	key := project + "\x00" + typeName

	s.mu.RLock()
	cached, ok := s.fields[key]
	s.mu.RUnlock()
	if ok {
		return cached, nil
	}

	v, err, _ := s.group.Do(key, func() (any, error) {
		s.mu.RLock()
		cached, ok := s.fields[key]
		s.mu.RUnlock()
		if ok {
			return cached, nil
		}

		var list struct {
			Value []TypeField `json:"value"`
		}
		_, err := wit.Get(ctx, azdo.Path(project, "_apis", "wit", "workitemtypes", typeName, "fields"),
			url.Values{"$expand": {"all"}}, &list)
		if err != nil {
			return nil, err
		}
		s.mu.Lock()
		s.fields[key] = list.Value
		s.mu.Unlock()
		s.logger.Debug("cached work item type fields", "project", project, "type", typeName, "count", len(list.Value))
		return list.Value, nil
	})
	if err != nil {
		return nil, err
	}
	return v.([]TypeField), nil
}
