package azdo

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestPath(t *testing.T) {
	assert.Equal(t, "my%20project/_apis/pipelines/7", Path("my project", "_apis", "pipelines", "7"))
	assert.Equal(t, "_apis/wiki/wikis", Path("", "_apis", "wiki", "wikis"))
}

func TestUnquoteETag(t *testing.T) {
	assert.Equal(t, "abc", UnquoteETag(`"abc"`))
	assert.Equal(t, "W/abc", UnquoteETag(`W/"abc"`))
	assert.Equal(t, "", UnquoteETag(""))
}

func TestHTTPError_Message(t *testing.T) {
	t.Run("json message", func(t *testing.T) {
		e := &HTTPError{StatusCode: 400, Body: []byte(`{"message":"VS402 bad","typeKey":"K"}`)}
		assert.Equal(t, "VS402 bad", e.Message())
		assert.Equal(t, "HTTP 400: VS402 bad", e.Error())
	})

	t.Run("long text is truncated", func(t *testing.T) {
		e := &HTTPError{StatusCode: 502, Body: []byte(strings.Repeat("x", 2000))}
		assert.Len(t, e.Message(), maxErrorText)
		assert.Nil(t, e.ErrorBody())
	})

	t.Run("truncation keeps runes whole", func(t *testing.T) {
		body := strings.Repeat("a", maxErrorText-1) + strings.Repeat("é", 10)
		e := &HTTPError{StatusCode: 500, Body: []byte(body)}
		msg := e.Message()
		assert.True(t, utf8.ValidString(msg))
		assert.Equal(t, strings.Repeat("a", maxErrorText-1), msg)
	})

	t.Run("empty body uses status", func(t *testing.T) {
		e := &HTTPError{StatusCode: 503, Status: "503 Service Unavailable"}
		assert.Equal(t, "503 Service Unavailable", e.Message())
	})
}

func TestAPI_DoSendsHeadersAndBody(t *testing.T) {
	var got struct {
		method, path, query, auth, accept, contentType, userAgent, ifMatch, session string
		body                                                                       map[string]any
	}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got.method = r.Method
		got.path = r.URL.EscapedPath()
		got.query = r.URL.RawQuery
		got.auth = r.Header.Get("Authorization")
		got.accept = r.Header.Get("Accept")
		got.contentType = r.Header.Get("Content-Type")
		got.userAgent = r.Header.Get("User-Agent")
		got.ifMatch = r.Header.Get("If-Match")
		got.session = r.Header.Get("X-TFS-Session")
		data, _ := io.ReadAll(r.Body)
		_ = json.Unmarshal(data, &got.body)

		w.Header().Set("ETag", `"v2"`)
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{"id":5}`))
	}))
	defer srv.Close()

	obs := &recordingObserver{}
	conn := &Connection{
		orgURL:     srv.URL,
		authHeader: "Basic abc",
		userAgent:  "azdo-mcp/test",
		httpClient: srv.Client(),
		logger:     discardLogger(),
		observer:   obs,
		sessionID:  "3f1c2a8e-0000-4000-8000-000000000001",
	}
	api := &API{conn: conn, baseURL: srv.URL + "/"}

	resp, err := api.Do(context.Background(), Request{
		Method: http.MethodPut,
		Path:   Path("proj", "_apis", "wiki", "wikis", "w1", "pages"),
		Query:  url.Values{"path": {"/Home"}},
		Header: http.Header{"If-Match": {`"v1"`}},
		Body:   map[string]string{"content": "# hi"},
	})
	require.NoError(t, err)

	assert.Equal(t, http.MethodPut, got.method)
	assert.Equal(t, "/proj/_apis/wiki/wikis/w1/pages", got.path)
	assert.Contains(t, got.query, "api-version=7.1")
	assert.Contains(t, got.query, "path=%2FHome")
	assert.Equal(t, "Basic abc", got.auth)
	assert.Equal(t, "application/json", got.accept)
	assert.Equal(t, "application/json", got.contentType)
	assert.Equal(t, "azdo-mcp/test", got.userAgent)
	assert.Equal(t, `"v1"`, got.ifMatch)
	assert.Equal(t, "# hi", got.body["content"])
	assert.Equal(t, conn.SessionID(), got.session)
	assert.Equal(t, []observed{{method: http.MethodPut, status: http.StatusCreated}}, obs.requests)

	assert.Equal(t, http.StatusCreated, resp.StatusCode)
	assert.Equal(t, "v2", resp.ETag())

	var out struct{ ID int }
	require.NoError(t, resp.Decode(&out))
	assert.Equal(t, 5, out.ID)
}

type observed struct {
	method string
	status int
}

type recordingObserver struct {
	requests []observed
}

func (o *recordingObserver) ObserveRequest(method string, status int, _ time.Duration) {
	o.requests = append(o.requests, observed{method: method, status: status})
}

func TestAPI_TransportFailureObservedWithoutStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	srv.Close()

	obs := &recordingObserver{}
	conn := &Connection{orgURL: srv.URL, httpClient: http.DefaultClient, logger: discardLogger(), observer: obs}
	api := &API{conn: conn, baseURL: srv.URL}

	_, err := api.Get(context.Background(), Path("_apis", "projects"), nil, nil)

	require.Error(t, err)
	assert.Equal(t, []observed{{method: http.MethodGet, status: 0}}, obs.requests)
}

func TestAPI_GetReturnsHTTPError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`{"message":"Pipeline 7 does not exist."}`))
	}))
	defer srv.Close()

	conn := &Connection{orgURL: srv.URL, httpClient: srv.Client(), logger: discardLogger()}
	api := &API{conn: conn, baseURL: srv.URL}

	_, err := api.Get(context.Background(), Path("p", "_apis", "pipelines", "7"), nil, nil)

	var herr *HTTPError
	require.ErrorAs(t, err, &herr)
	assert.Equal(t, 404, herr.StatusCode)
	assert.Equal(t, "Pipeline 7 does not exist.", herr.Message())

	e := mustError(t, Classify(err, Op{Name: "get pipeline", Entity: "Pipeline", ID: "7"}))
	assert.Equal(t, "Pipeline with ID 7 not found", e.Message)
}

func TestAPI_ExplicitAPIVersionWins(t *testing.T) {
	var query url.Values
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		query = r.URL.Query()
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	conn := &Connection{orgURL: srv.URL, httpClient: srv.Client(), logger: discardLogger()}
	api := &API{conn: conn, baseURL: srv.URL}

	_, err := api.Get(context.Background(), "x", url.Values{"api-version": {"7.1-preview.1"}}, nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"7.1-preview.1"}, query["api-version"])
}
