// Package resources implements MCP resource handlers.
//
// Resources provide read-only data that the host can consume for context.
// They use URI-based addressing (azdo://...) following MCP conventions.
package resources

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/HendryAvila/azdo-mcp/internal/azdo"
)

// ConnectionStatusURI addresses the connection status resource.
const ConnectionStatusURI = "azdo://connection/status"

// Authenticator reports the configured connection and whether it works.
type Authenticator interface {
	Config() azdo.AuthConfig
	IsAuthenticated(ctx context.Context) bool
}

// ConnectionStatus is the body of the connection status resource. It never
// carries credentials.
type ConnectionStatus struct {
	Organization   string    `json:"organization"`
	AuthMethod     string    `json:"authMethod"`
	DefaultProject string    `json:"defaultProject,omitempty"`
	Authenticated  bool      `json:"authenticated"`
	CheckedAt      time.Time `json:"checkedAt"`
}

// Handler serves the Azure DevOps resources.
type Handler struct {
	auth           Authenticator
	defaultProject string
	now            func() time.Time
}

// NewHandler creates a resource Handler with its dependencies.
func NewHandler(auth Authenticator, defaultProject string) *Handler {
	return &Handler{auth: auth, defaultProject: defaultProject, now: time.Now}
}

// StatusResource returns the MCP resource definition for connection status.
func (h *Handler) StatusResource() mcp.Resource {
	return mcp.NewResource(
		ConnectionStatusURI,
		"Azure DevOps Connection Status",
		mcp.WithResourceDescription("Configured organization, authentication method and whether the connection works"),
		mcp.WithMIMEType("application/json"),
	)
}

// HandleStatus returns the connection status as JSON. The first read
// establishes the connection; later reads reuse its outcome.
func (h *Handler) HandleStatus(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	cfg := h.auth.Config()
	status := ConnectionStatus{
		Organization:   cfg.OrganizationURL,
		AuthMethod:     string(cfg.Method),
		DefaultProject: h.defaultProject,
		Authenticated:  h.auth.IsAuthenticated(ctx),
		CheckedAt:      h.now().UTC(),
	}

	data, err := json.MarshalIndent(status, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshaling status: %w", err)
	}

	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      req.Params.URI,
			MIMEType: "application/json",
			Text:     string(data),
		},
	}, nil
}
