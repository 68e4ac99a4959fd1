package projects

import (
	"context"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/HendryAvila/azdo-mcp/internal/azdo"
	"github.com/HendryAvila/azdo-mcp/internal/azdo/azdotest"
	"github.com/HendryAvila/azdo-mcp/internal/logging"
)

func newOrg(t *testing.T) (*Service, *azdotest.Org) {
	t.Helper()
	org := azdotest.NewOrg(t)

	org.Mux.HandleFunc("GET /_apis/projects/proj", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "true", r.URL.Query().Get("includeCapabilities"))
		azdotest.JSON(w, http.StatusOK, map[string]any{
			"id":   "p-1",
			"name": "proj",
			"capabilities": map[string]any{
				"processTemplate": map[string]string{"templateName": "Agile", "templateTypeId": "adcc42ab"},
			},
		})
	})
	org.Mux.HandleFunc("GET /_apis/projects/proj/teams", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "true", r.URL.Query().Get("$expandIdentity"))
		azdotest.JSON(w, http.StatusOK, map[string]any{"value": []map[string]any{{"id": "t1", "name": "proj Team"}}})
	})
	org.Mux.HandleFunc("GET /proj/_apis/wit/workitemtypes", func(w http.ResponseWriter, r *http.Request) {
		azdotest.JSON(w, http.StatusOK, map[string]any{"value": []map[string]any{
			{"name": "Epic", "referenceName": "Microsoft.VSTS.WorkItemTypes.Epic"},
			{"name": "User Story", "referenceName": "Microsoft.VSTS.WorkItemTypes.UserStory"},
			{"name": "Bug", "referenceName": "Microsoft.VSTS.WorkItemTypes.Bug"},
			{"name": "Task", "referenceName": "Microsoft.VSTS.WorkItemTypes.Task"},
		}})
	})
	org.Mux.HandleFunc("GET /proj/_apis/wit/workitemtypes/{type}/fields", func(w http.ResponseWriter, r *http.Request) {
		if r.PathValue("type") == "Bug" {
			azdotest.Fail(w, http.StatusInternalServerError, "boom")
			return
		}
		azdotest.JSON(w, http.StatusOK, map[string]any{"value": []map[string]any{
			{"name": "Title", "referenceName": "System.Title", "type": "String", "alwaysRequired": true},
			{"name": "Assigned To", "referenceName": "System.AssignedTo", "type": "identity", "isIdentity": true},
		}})
	})

	return NewService(org.Builder(), logging.Discard()), org
}

func TestGetProjectDetails_ProjectOnly(t *testing.T) {
	svc, _ := newOrg(t)

	d, err := svc.GetProjectDetails(context.Background(), Options{Project: "proj"})

	require.NoError(t, err)
	assert.Equal(t, "p-1", d.ID)
	assert.Nil(t, d.Process)
	assert.Nil(t, d.Teams)
}

func TestGetProjectDetails_Everything(t *testing.T) {
	svc, _ := newOrg(t)

	d, err := svc.GetProjectDetails(context.Background(), Options{
		Project:              "proj",
		IncludeProcess:       true,
		IncludeWorkItemTypes: true,
		IncludeFields:        true,
		IncludeTeams:         true,
		ExpandTeamIdentity:   true,
	})
	require.NoError(t, err)

	require.Len(t, d.Teams, 1)
	assert.Equal(t, "proj Team", d.Teams[0].Name)

	require.NotNil(t, d.Process)
	assert.Equal(t, "Agile", d.Process.Name)
	assert.Equal(t, "adcc42ab", d.Process.ID)
	require.Len(t, d.Process.WorkItemTypes, 4)

	epic := d.Process.WorkItemTypes[0]
	require.Len(t, epic.Fields, 2)
	assert.Equal(t, "string", epic.Fields[0].Type)
	assert.True(t, epic.Fields[0].Required)
	assert.True(t, epic.Fields[1].IsIdentity)
	assert.Len(t, epic.States, 4)

	bug := d.Process.WorkItemTypes[2]
	assert.Equal(t, fallbackFields, bug.Fields)

	h := d.Process.Hierarchy
	require.NotNil(t, h)
	assert.Equal(t, []string{"Epic"}, h.PortfolioBacklogs[0].WorkItemTypes)
	assert.Empty(t, h.PortfolioBacklogs[1].WorkItemTypes)
	assert.Equal(t, []string{"User Story", "Bug"}, h.RequirementBacklog.WorkItemTypes)
	assert.Equal(t, []string{"Task"}, h.TaskBacklog.WorkItemTypes)
}

func TestGetProjectDetails_ProcessWithoutTypes(t *testing.T) {
	svc, _ := newOrg(t)

	d, err := svc.GetProjectDetails(context.Background(), Options{Project: "proj", IncludeProcess: true})

	require.NoError(t, err)
	assert.Equal(t, "system", d.Process.Type)
	assert.Nil(t, d.Process.WorkItemTypes)
	assert.Nil(t, d.Process.Hierarchy)
}

func TestGetProjectDetails_MissingProject(t *testing.T) {
	svc, _ := newOrg(t)

	_, err := svc.GetProjectDetails(context.Background(), Options{Project: "ghost"})

	require.True(t, azdo.IsNotFoundError(err))
	assert.Equal(t, "Project 'ghost' not found", err.Error())
}

func TestGetProjectDetails_DefaultCapabilities(t *testing.T) {
	org := azdotest.NewOrg(t)
	org.Mux.HandleFunc("GET /_apis/projects/bare", func(w http.ResponseWriter, r *http.Request) {
		azdotest.JSON(w, http.StatusOK, map[string]any{"id": "p-2", "name": "bare"})
	})
	svc := NewService(org.Builder(), logging.Discard())

	d, err := svc.GetProjectDetails(context.Background(), Options{Project: "bare", IncludeProcess: true})

	require.NoError(t, err)
	assert.Equal(t, "Git", d.Capabilities["versioncontrol"]["sourceControlType"])
	assert.Equal(t, "Unknown", d.Process.Name)
}

func TestGetProjectDetails_EmptyProject(t *testing.T) {
	svc, _ := newOrg(t)

	_, err := svc.GetProjectDetails(context.Background(), Options{Project: " "})

	assert.True(t, azdo.IsNotFoundError(err))
}
