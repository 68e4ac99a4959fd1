package pipelines

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

func newService(t *testing.T) (*Service, *azdotest.Org) {
	t.Helper()
	org := azdotest.NewOrg(t)
	return NewService(org.Builder(), logging.Discard()), org
}

func TestBranchRef(t *testing.T) {
	assert.Equal(t, "refs/heads/main", BranchRef("main"))
	assert.Equal(t, "refs/heads/feature/x", BranchRef("feature/x"))
	assert.Equal(t, "refs/tags/v1", BranchRef("refs/tags/v1"))
}

func TestListPipelines_PassesPagingParameters(t *testing.T) {
	svc, org := newService(t)

	org.Mux.HandleFunc("GET /proj/_apis/pipelines", func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		assert.Equal(t, "name asc", q.Get("orderBy"))
		assert.Equal(t, "5", q.Get("$top"))
		assert.Equal(t, "tok", q.Get("continuationToken"))
		azdotest.JSON(w, http.StatusOK, map[string]any{
			"count": 2,
			"value": []map[string]any{{"id": 1, "name": "ci"}, {"id": 2, "name": "cd"}},
		})
	})

	got, err := svc.ListPipelines(context.Background(), ListOptions{
		Project: "proj", OrderBy: "name asc", Top: 5, ContinuationToken: "tok",
	})

	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "cd", got[1].Name)
}

func TestGetPipeline(t *testing.T) {
	svc, org := newService(t)

	org.Mux.HandleFunc("GET /proj/_apis/pipelines/{id}", func(w http.ResponseWriter, r *http.Request) {
		if r.PathValue("id") != "3" {
			azdotest.Fail(w, http.StatusNotFound, "Pipeline does not exist.")
			return
		}
		assert.Equal(t, "2", r.URL.Query().Get("pipelineVersion"))
		azdotest.JSON(w, http.StatusOK, map[string]any{"id": 3, "revision": 2, "name": "ci"})
	})

	p, err := svc.GetPipeline(context.Background(), "proj", 3, 2)
	require.NoError(t, err)
	assert.Equal(t, 2, p.Revision)

	_, err = svc.GetPipeline(context.Background(), "proj", 7, 0)
	require.True(t, azdo.IsNotFoundError(err))
	assert.Equal(t, "Pipeline with ID 7 not found", err.Error())
}

func TestCreatePipeline(t *testing.T) {
	svc, org := newService(t)

	var body map[string]any
	org.Mux.HandleFunc("POST /proj/_apis/pipelines", func(w http.ResponseWriter, r *http.Request) {
		body = azdotest.DecodeBody(t, r)
		azdotest.JSON(w, http.StatusOK, map[string]any{"id": 9, "name": "ci"})
	})

	p, err := svc.CreatePipeline(context.Background(), CreateOptions{
		Project: "proj",
		Name:    "ci",
		Configuration: Configuration{
			Path:       "azure-pipelines.yml",
			Repository: &Repository{ID: "r1", Type: "azureReposGit", Name: "app"},
		},
	})

	require.NoError(t, err)
	assert.Equal(t, 9, p.ID)
	cfg := body["configuration"].(map[string]any)
	assert.Equal(t, "yaml", cfg["type"])
	assert.Equal(t, "r1", cfg["repository"].(map[string]any)["id"])
}

func TestCreatePipeline_Errors(t *testing.T) {
	svc, org := newService(t)

	org.Mux.HandleFunc("POST /proj/_apis/pipelines", func(w http.ResponseWriter, r *http.Request) {
		azdotest.Fail(w, http.StatusPreconditionFailed, "duplicate")
	})

	_, err := svc.CreatePipeline(context.Background(), CreateOptions{Project: "proj", Name: "ci"})
	require.True(t, azdo.IsValidationError(err))
	assert.Equal(t, "Pipeline repository is required", err.Error())

	_, err = svc.CreatePipeline(context.Background(), CreateOptions{
		Project:       "proj",
		Name:          "ci",
		Configuration: Configuration{Repository: &Repository{ID: "r1", Type: "azureReposGit"}},
	})
	require.True(t, azdo.IsValidationError(err))
	assert.Equal(t, "Pipeline already exists: ci", err.Error())
}

func TestDeletePipeline(t *testing.T) {
	svc, org := newService(t)

	deleted := false
	org.Mux.HandleFunc("DELETE /proj/_apis/pipelines/4", func(w http.ResponseWriter, r *http.Request) {
		deleted = true
		w.WriteHeader(http.StatusNoContent)
	})
	org.Mux.HandleFunc("DELETE /proj/_apis/pipelines/5", func(w http.ResponseWriter, r *http.Request) {
		azdotest.Fail(w, http.StatusForbidden, "TF401027")
	})

	require.NoError(t, svc.DeletePipeline(context.Background(), "proj", 4))
	assert.True(t, deleted)

	err := svc.DeletePipeline(context.Background(), "proj", 5)
	require.True(t, azdo.IsPermissionError(err))
	assert.Equal(t, "Permission denied to delete pipeline: 5", err.Error())
}

func TestTriggerPipeline_BuildsRunRequest(t *testing.T) {
	svc, org := newService(t)

	var body map[string]any
	org.Mux.HandleFunc("POST /proj/_apis/pipelines/3/runs", func(w http.ResponseWriter, r *http.Request) {
		body = azdotest.DecodeBody(t, r)
		azdotest.JSON(w, http.StatusOK, map[string]any{"id": 100, "state": "inProgress"})
	})

	run, err := svc.TriggerPipeline(context.Background(), TriggerOptions{
		Project:      "proj",
		PipelineID:   3,
		Branch:       "release/1.0",
		Variables:    map[string]Variable{"ENV": {Value: "prod"}},
		StagesToSkip: []string{"Test"},
	})

	require.NoError(t, err)
	assert.Equal(t, 100, run.ID)
	assert.Equal(t, "inProgress", run.State)

	self := body["resources"].(map[string]any)["repositories"].(map[string]any)["self"].(map[string]any)
	assert.Equal(t, "refs/heads/release/1.0", self["refName"])
	assert.Equal(t, []any{"Test"}, body["stagesToSkip"])
	assert.Equal(t, map[string]any{"value": "prod"}, body["variables"].(map[string]any)["ENV"])
	assert.NotContains(t, body, "templateParameters")
}

func TestRunPipeline_Preview(t *testing.T) {
	svc, org := newService(t)

	var body map[string]any
	org.Mux.HandleFunc("POST /proj/_apis/pipelines/3/runs", func(w http.ResponseWriter, r *http.Request) {
		body = azdotest.DecodeBody(t, r)
		azdotest.JSON(w, http.StatusOK, map[string]any{"id": -1, "finalYaml": "steps: []"})
	})

	run, err := svc.RunPipeline(context.Background(), RunOptions{
		Project: "proj", PipelineID: 3, PreviewRun: true, YAMLOverride: "steps: []",
	})

	require.NoError(t, err)
	assert.Equal(t, "steps: []", run.FinalYAML)
	assert.Equal(t, true, body["previewRun"])
	assert.Equal(t, "steps: []", body["yamlOverride"])
}

func TestRunPipeline_MissingPipeline(t *testing.T) {
	svc, _ := newService(t)

	_, err := svc.RunPipeline(context.Background(), RunOptions{Project: "proj", PipelineID: 42})

	require.True(t, azdo.IsNotFoundError(err))
	assert.Equal(t, "Pipeline with ID 42 not found", err.Error())
}

func TestListRuns(t *testing.T) {
	svc, org := newService(t)

	org.Mux.HandleFunc("GET /proj/_apis/pipelines/3/runs", func(w http.ResponseWriter, r *http.Request) {
		azdotest.JSON(w, http.StatusOK, map[string]any{"value": []map[string]any{{"id": 1, "result": "succeeded"}}})
	})

	runs, err := svc.ListRuns(context.Background(), "proj", 3)
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, "succeeded", runs[0].Result)
}
