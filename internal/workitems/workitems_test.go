package workitems

import (
	"context"
	"net/http"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/HendryAvila/azdo-mcp/internal/azdo"
	"github.com/HendryAvila/azdo-mcp/internal/azdo/azdotest"
	"github.com/HendryAvila/azdo-mcp/internal/logging"
)

type fakeWIT struct {
	org         *azdotest.Org
	fieldCalls  atomic.Int32
	fieldsDelay time.Duration
}

func newFakeWIT(t *testing.T) *fakeWIT {
	t.Helper()
	f := &fakeWIT{org: azdotest.NewOrg(t)}

	f.org.Mux.HandleFunc("GET /_apis/wit/workitems/{id}", func(w http.ResponseWriter, r *http.Request) {
		if r.PathValue("id") != "42" {
			azdotest.Fail(w, http.StatusNotFound, "TF401232: Work item 9 does not exist")
			return
		}
		azdotest.JSON(w, http.StatusOK, map[string]any{
			"id":  42,
			"rev": 3,
			"fields": map[string]any{
				"System.TeamProject":  "proj",
				"System.WorkItemType": "Bug",
				"System.Title":        "Crash on save",
			},
		})
	})
	f.org.Mux.HandleFunc("GET /proj/_apis/wit/workitemtypes/Bug/fields", func(w http.ResponseWriter, r *http.Request) {
		f.fieldCalls.Add(1)
		time.Sleep(f.fieldsDelay)
		azdotest.JSON(w, http.StatusOK, map[string]any{"value": []map[string]any{
			{"referenceName": "System.Title", "name": "Title"},
			{"referenceName": "Microsoft.VSTS.Common.Priority", "name": "Priority", "defaultValue": 2},
			{"referenceName": "System.Tags", "name": "Tags"},
		}})
	})
	return f
}

func (f *fakeWIT) service() *Service {
	return NewService(f.org.Builder(), logging.Discard())
}

func TestGetWorkItem_FillsMissingFieldsWithDefaults(t *testing.T) {
	f := newFakeWIT(t)

	item, err := f.service().GetWorkItem(context.Background(), 42, "")

	require.NoError(t, err)
	assert.Equal(t, "Crash on save", item.Fields["System.Title"])
	assert.EqualValues(t, 2, item.Fields["Microsoft.VSTS.Common.Priority"])
	v, ok := item.Fields["System.Tags"]
	assert.True(t, ok)
	assert.Nil(t, v)
}

func TestGetWorkItem_CachesTypeFields(t *testing.T) {
	f := newFakeWIT(t)
	svc := f.service()

	for range 3 {
		_, err := svc.GetWorkItem(context.Background(), 42, ExpandAll)
		require.NoError(t, err)
	}

	assert.EqualValues(t, 1, f.fieldCalls.Load())
}

func TestGetWorkItem_ConcurrentMissesShareOneFetch(t *testing.T) {
	f := newFakeWIT(t)
	f.fieldsDelay = 50 * time.Millisecond
	svc := f.service()

	var wg sync.WaitGroup
	for range 8 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := svc.GetWorkItem(context.Background(), 42, ExpandAll)
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	assert.EqualValues(t, 1, f.fieldCalls.Load())
}

func TestGetWorkItem_NotFound(t *testing.T) {
	f := newFakeWIT(t)

	_, err := f.service().GetWorkItem(context.Background(), 9, ExpandAll)

	require.True(t, azdo.IsNotFoundError(err))
	assert.Equal(t, "Work item with ID 9 not found", err.Error())
}

func TestParseExpand(t *testing.T) {
	e, err := ParseExpand("")
	require.NoError(t, err)
	assert.Equal(t, ExpandAll, e)

	e, err = ParseExpand("Relations")
	require.NoError(t, err)
	assert.Equal(t, ExpandRelations, e)

	_, err = ParseExpand("everything")
	assert.True(t, azdo.IsValidationError(err))
}
