// Package azdotest provides a fake Azure DevOps organization for tests.
package azdotest

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/HendryAvila/azdo-mcp/internal/azdo"
)

// Org is an httptest server that answers the connectivity probe. Feature
// handlers are registered on Mux.
type Org struct {
	*httptest.Server
	Mux *http.ServeMux
}

// NewOrg starts a fake organization that is closed when t finishes.
func NewOrg(t testing.TB) *Org {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("GET /_apis/resourceAreas", func(w http.ResponseWriter, _ *http.Request) {
		JSON(w, http.StatusOK, map[string]any{"count": 0, "value": []any{}})
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return &Org{Server: srv, Mux: mux}
}

// Builder returns a PAT-authenticated builder for the organization.
func (o *Org) Builder() *azdo.Builder {
	return azdo.NewBuilder(azdo.AuthConfig{
		Method:              azdo.AuthMethodPAT,
		OrganizationURL:     o.URL,
		PersonalAccessToken: "test-pat",
	}, azdo.WithHTTPClient(o.Client()))
}

// JSON writes v as a JSON response with the given status.
func JSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// Fail writes an Azure DevOps style error body.
func Fail(w http.ResponseWriter, status int, message string) {
	JSON(w, status, map[string]any{
		"message":  message,
		"typeKey":  "TestException",
		"typeName": "Test.TestException",
	})
}

// DecodeBody unmarshals the request body into a generic map.
func DecodeBody(t testing.TB, r *http.Request) map[string]any {
	t.Helper()
	data, err := io.ReadAll(r.Body)
	if err != nil {
		t.Errorf("reading body: %v", err)
		return nil
	}
	var out map[string]any
	if len(data) == 0 {
		return out
	}
	if err := json.Unmarshal(data, &out); err != nil {
		t.Errorf("decoding body %q: %v", data, err)
		return nil
	}
	return out
}
