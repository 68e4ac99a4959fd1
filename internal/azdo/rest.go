package azdo

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"
	"unicode/utf8"
)

// APIVersion is the single REST API version every request is pinned to.
const APIVersion = "7.1"

// maxErrorText bounds how much of a non-JSON error body ends up in messages.
const maxErrorText = 512

// Request describes one REST call relative to an API base URL.
type Request struct {
	Method string
	// Path is relative to the API base, e.g. Path("myproject", "_apis", "pipelines").
	Path   string
	Query  url.Values
	Header http.Header
	// Body is JSON-encoded when non-nil.
	Body any
	// Accept defaults to application/json.
	Accept string
}

// Response is a successful (2xx) REST response with its body fully read.
type Response struct {
	StatusCode int
	Header     http.Header
	Body       []byte
}

// Decode unmarshals the JSON body into v.
func (r *Response) Decode(v any) error {
	if len(r.Body) == 0 {
		return nil
	}
	if err := json.Unmarshal(r.Body, v); err != nil {
		return fmt.Errorf("decoding response: %w", err)
	}
	return nil
}

// ETag returns the response's version token with the HTTP quoting removed.
func (r *Response) ETag() string {
	return UnquoteETag(r.Header.Get("ETag"))
}

// UnquoteETag strips every double quote from an ETag header value.
func UnquoteETag(tag string) string {
	return strings.ReplaceAll(tag, `"`, "")
}

// HTTPError is returned for any non-2xx response. It is the structured
// transport failure the classifier maps by status code.
type HTTPError struct {
	StatusCode int
	Status     string
	Method     string
	URL        string
	Header     http.Header
	Body       []byte
}

// Error implements the error interface.
func (e *HTTPError) Error() string {
	return fmt.Sprintf("HTTP %d: %s", e.StatusCode, e.Message())
}

// Message returns the upstream error message: the JSON "message" field when
// present, otherwise the (truncated) body text, otherwise the status line.
func (e *HTTPError) Message() string {
	if body := e.ErrorBody(); body != nil && body.Message != "" {
		return body.Message
	}
	text := strings.TrimSpace(string(e.Body))
	if text != "" {
		text = strings.ReplaceAll(text, "\n", " ")
		if len(text) > maxErrorText {
			cut := maxErrorText
			for cut > 0 && !utf8.RuneStart(text[cut]) {
				cut--
			}
			text = text[:cut]
		}
		return text
	}
	if e.Status != "" {
		return e.Status
	}
	return http.StatusText(e.StatusCode)
}

// ErrorBody decodes the upstream JSON error payload. It returns nil when the
// body is empty or not a JSON object.
func (e *HTTPError) ErrorBody() *ErrorResponse {
	trimmed := bytes.TrimSpace(e.Body)
	if len(trimmed) == 0 || trimmed[0] != '{' {
		return nil
	}
	var resp ErrorResponse
	if err := json.Unmarshal(trimmed, &resp); err != nil {
		return nil
	}
	resp.Raw = json.RawMessage(trimmed)
	return &resp
}

// Path joins path segments, escaping each one.
func Path(segments ...string) string {
	escaped := make([]string, 0, len(segments))
	for _, s := range segments {
		if s == "" {
			continue
		}
		escaped = append(escaped, url.PathEscape(s))
	}
	return strings.Join(escaped, "/")
}

// ResourceArea is one entry of the organization's resource area directory.
type ResourceArea struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	LocationURL string `json:"locationUrl"`
}

// Connection is the authenticated handle to one Azure DevOps organization.
// It is built once by a Builder and only read afterwards.
type Connection struct {
	orgURL     string
	authHeader string
	userAgent  string
	httpClient *http.Client
	logger     *slog.Logger
	observer   RequestObserver
	sessionID  string
	areas      map[string]ResourceArea
}

// RequestObserver is notified after every REST round trip. status is 0 when
// the request never produced a response.
type RequestObserver interface {
	ObserveRequest(method string, status int, d time.Duration)
}

type noopObserver struct{}

func (noopObserver) ObserveRequest(string, int, time.Duration) {}

// SessionID returns the identifier sent as X-TFS-Session on every request.
func (c *Connection) SessionID() string {
	return c.sessionID
}

// OrganizationURL returns the organization base URL without a trailing slash.
func (c *Connection) OrganizationURL() string {
	return c.orgURL
}

// ServerURL returns the organization URL with the pinned api-version query.
func (c *Connection) ServerURL() string {
	return c.orgURL + "?api-version=" + APIVersion
}

// ResourceAreas returns the areas discovered when the connection was verified.
func (c *Connection) ResourceAreas() []ResourceArea {
	out := make([]ResourceArea, 0, len(c.areas))
	for _, a := range c.areas {
		out = append(out, a)
	}
	return out
}

// loadResourceAreas is the connectivity probe. Its result doubles as the
// directory used to locate each capability's base URL.
func (c *Connection) loadResourceAreas(ctx context.Context) error {
	resp, err := c.do(ctx, c.orgURL, Request{
		Method: http.MethodGet,
		Path:   Path("_apis", "resourceAreas"),
	})
	if err != nil {
		return err
	}

	var list struct {
		Count int            `json:"count"`
		Value []ResourceArea `json:"value"`
	}
	if err := resp.Decode(&list); err != nil {
		return err
	}

	c.areas = make(map[string]ResourceArea, len(list.Value))
	for _, a := range list.Value {
		c.areas[strings.ToLower(a.Name)] = a
	}
	return nil
}

// do issues one request against base. Non-2xx responses become *HTTPError;
// transport failures are returned wrapped with the method and URL.
func (c *Connection) do(ctx context.Context, base string, r Request) (*Response, error) {
	query := url.Values{}
	for k, v := range r.Query {
		query[k] = v
	}
	if query.Get("api-version") == "" {
		query.Set("api-version", APIVersion)
	}

	target := strings.TrimSuffix(base, "/")
	if p := strings.TrimPrefix(r.Path, "/"); p != "" {
		target += "/" + p
	}
	target += "?" + query.Encode()

	var body io.Reader = http.NoBody
	if r.Body != nil {
		data, err := json.Marshal(r.Body)
		if err != nil {
			return nil, fmt.Errorf("encoding request body: %w", err)
		}
		body = bytes.NewReader(data)
	}

	method := r.Method
	if method == "" {
		method = http.MethodGet
	}

	req, err := http.NewRequestWithContext(ctx, method, target, body)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	for k, vs := range r.Header {
		for _, v := range vs {
			req.Header.Add(k, v)
		}
	}
	req.Header.Set("Authorization", c.authHeader)
	if r.Body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	accept := r.Accept
	if accept == "" {
		accept = "application/json"
	}
	req.Header.Set("Accept", accept)
	if c.userAgent != "" {
		req.Header.Set("User-Agent", c.userAgent)
	}
	if c.sessionID != "" {
		req.Header.Set("X-TFS-Session", c.sessionID)
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.observe(method, 0, time.Since(start))
		c.logger.Debug("request failed", "method", method, "path", r.Path, "error", err)
		return nil, fmt.Errorf("%s %s: %w", method, req.URL.Redacted(), err)
	}
	defer func() { _ = resp.Body.Close() }()

	data, err := io.ReadAll(resp.Body)
	c.observe(method, resp.StatusCode, time.Since(start))
	if err != nil {
		return nil, fmt.Errorf("reading response: %w", err)
	}

	c.logger.Debug("request",
		"method", method,
		"path", r.Path,
		"status", resp.StatusCode,
		"duration", time.Since(start),
	)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &HTTPError{
			StatusCode: resp.StatusCode,
			Status:     resp.Status,
			Method:     method,
			URL:        req.URL.Redacted(),
			Header:     resp.Header,
			Body:       data,
		}
	}

	return &Response{
		StatusCode: resp.StatusCode,
		Header:     resp.Header,
		Body:       data,
	}, nil
}

func (c *Connection) observe(method string, status int, d time.Duration) {
	if c.observer != nil {
		c.observer.ObserveRequest(method, status, d)
	}
}

// API is a capability-scoped view of a Connection.
type API struct {
	conn       *Connection
	capability Capability
	baseURL    string
}

// Capability returns the capability this API was obtained for.
func (a *API) Capability() Capability {
	return a.capability
}

// BaseURL returns the URL requests are resolved against.
func (a *API) BaseURL() string {
	return a.baseURL
}

// Do issues r against this API's base URL.
func (a *API) Do(ctx context.Context, r Request) (*Response, error) {
	return a.conn.do(ctx, a.baseURL, r)
}

// Get issues a GET and decodes the JSON response into out (when non-nil).
func (a *API) Get(ctx context.Context, path string, query url.Values, out any) (*Response, error) {
	resp, err := a.Do(ctx, Request{Method: http.MethodGet, Path: path, Query: query})
	if err != nil {
		return nil, err
	}
	if out != nil {
		if err := resp.Decode(out); err != nil {
			return nil, err
		}
	}
	return resp, nil
}

// Send issues method with a JSON body and decodes the response into out.
func (a *API) Send(ctx context.Context, method, path string, query url.Values, body, out any) (*Response, error) {
	resp, err := a.Do(ctx, Request{Method: method, Path: path, Query: query, Body: body})
	if err != nil {
		return nil, err
	}
	if out != nil {
		if err := resp.Decode(out); err != nil {
			return nil, err
		}
	}
	return resp, nil
}
