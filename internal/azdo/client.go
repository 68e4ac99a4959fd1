package azdo

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

const (
	defaultTimeout = 30 * time.Second
	// connectTimeout bounds credential acquisition plus the probe.
	connectTimeout = 2 * defaultTimeout
)

// Builder produces the single authenticated Connection for one AuthConfig.
//
// The first Client call starts construction; every concurrent and later
// caller observes that same outcome, success or failure. A Builder never
// retries. To try again with different credentials, create a new Builder.
type Builder struct {
	cfg         AuthConfig
	httpClient  *http.Client
	credentials CredentialFactory
	logger      *slog.Logger
	userAgent   string
	observer    RequestObserver

	mu      sync.Mutex
	pending *connFuture
}

// connFuture is the shared deferred result of connection construction.
type connFuture struct {
	done chan struct{}
	conn *Connection
	err  error
}

// Option configures a Builder.
type Option func(*Builder)

// WithHTTPClient sets the HTTP client used for every request.
func WithHTTPClient(c *http.Client) Option {
	return func(b *Builder) {
		b.httpClient = c
	}
}

// WithCredentialFactory overrides how identity-based credentials are built.
func WithCredentialFactory(f CredentialFactory) Option {
	return func(b *Builder) {
		b.credentials = f
	}
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(b *Builder) {
		b.logger = l
	}
}

// WithUserAgent sets the User-Agent sent with every request.
func WithUserAgent(ua string) Option {
	return func(b *Builder) {
		b.userAgent = ua
	}
}

// WithRequestObserver reports every REST round trip to o.
func WithRequestObserver(o RequestObserver) Option {
	return func(b *Builder) {
		b.observer = o
	}
}

// NewBuilder creates a Builder. No network activity happens until the first
// Client call.
func NewBuilder(cfg AuthConfig, opts ...Option) *Builder {
	b := &Builder{
		cfg:         cfg,
		httpClient:  &http.Client{Timeout: defaultTimeout},
		credentials: DefaultCredentialFactory,
		logger:      slog.New(slog.NewTextHandler(io.Discard, nil)),
		userAgent:   "azdo-mcp",
		observer:    noopObserver{},
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Config returns the configuration the Builder was created with.
func (b *Builder) Config() AuthConfig {
	return b.cfg
}

// Client returns the authenticated connection, constructing and verifying it
// on first use. Failures are always *Error values of KindAuthentication
// unless construction already produced a more specific kind.
//
// ctx bounds only this caller's wait. Construction runs detached from every
// caller's cancellation and is bounded by connectTimeout.
func (b *Builder) Client(ctx context.Context) (*Connection, error) {
	b.mu.Lock()
	f := b.pending
	if f == nil {
		f = &connFuture{done: make(chan struct{})}
		b.pending = f
		go b.construct(context.WithoutCancel(ctx), f)
	}
	b.mu.Unlock()

	select {
	case <-f.done:
		return f.conn, f.err
	default:
	}

	select {
	case <-f.done:
		return f.conn, f.err
	case <-ctx.Done():
		return nil, NewAuthenticationError("Authentication failed: " + ctx.Err().Error()).WithCause(ctx.Err())
	}
}

// construct resolves f exactly once, including when connect panics.
func (b *Builder) construct(ctx context.Context, f *connFuture) {
	ctx, cancel := context.WithTimeout(ctx, connectTimeout)
	defer cancel()
	defer func() {
		if r := recover(); r != nil {
			b.logger.Error("panic while connecting to Azure DevOps", "panic", r)
			f.conn, f.err = nil, ClassifyRecovered(r, Op{Name: "connect to Azure DevOps", Phase: PhaseConnect})
		}
		close(f.done)
	}()
	f.conn, f.err = b.connect(ctx)
}

func (b *Builder) connect(ctx context.Context) (*Connection, error) {
	log := b.logger.With("method", string(b.cfg.Method))
	log.Debug("connecting to Azure DevOps", "organization", b.cfg.OrganizationURL)

	orgURL := strings.TrimSuffix(strings.TrimSpace(b.cfg.OrganizationURL), "/")
	if orgURL == "" {
		return nil, NewAuthenticationError("Organization URL is required")
	}

	var header string
	switch b.cfg.Method {
	case AuthMethodPAT:
		if b.cfg.PersonalAccessToken == "" {
			return nil, NewAuthenticationError("Personal Access Token is required")
		}
		header = basicAuthHeader(b.cfg.PersonalAccessToken)
	case AuthMethodAzureIdentity, AuthMethodAzureCLI:
		cred, err := b.credentials(b.cfg.Method)
		if err != nil {
			return nil, connectFailure(err)
		}
		header, err = bearerAuthHeader(ctx, cred)
		if err != nil {
			return nil, connectFailure(err)
		}
	default:
		return nil, NewAuthenticationError(fmt.Sprintf("Unsupported authentication method: %s", b.cfg.Method))
	}

	conn := &Connection{
		orgURL:     orgURL,
		authHeader: header,
		userAgent:  b.userAgent,
		httpClient: b.httpClient,
		logger:     b.logger,
		observer:   b.observer,
		sessionID:  uuid.NewString(),
	}

	if err := conn.loadResourceAreas(ctx); err != nil {
		log.Warn("connectivity check failed", "error", err)
		var httpErr *HTTPError
		if errors.As(err, &httpErr) &&
			(httpErr.StatusCode == http.StatusUnauthorized || httpErr.StatusCode == http.StatusForbidden) {
			return nil, Classify(err, Op{Name: "connect to Azure DevOps", Phase: PhaseConnect})
		}
		return nil, connectFailure(err)
	}

	log.Info("connected to Azure DevOps", "organization", orgURL, "areas", len(conn.areas), "session", conn.sessionID)
	return conn, nil
}

// connectFailure passes classified errors through and reports anything else
// as an authentication failure carrying the upstream message.
func connectFailure(err error) error {
	if e, ok := AsError(err); ok {
		return e
	}
	return NewAuthenticationError("Authentication failed: " + err.Error()).WithCause(err)
}

// API returns the sub-API for capability c. Its base URL is the resource
// area location reported by the organization, falling back to the
// organization URL when the area is not listed.
func (b *Builder) API(ctx context.Context, c Capability) (*API, error) {
	conn, err := b.Client(ctx)
	if err != nil {
		return nil, apiFailure(c, err)
	}

	base := conn.orgURL
	if area, ok := conn.areas[c.Area()]; ok && area.LocationURL != "" {
		u, err := url.Parse(area.LocationURL)
		if err != nil || u.Scheme == "" || u.Host == "" {
			if err == nil {
				err = fmt.Errorf("invalid location URL %q", area.LocationURL)
			}
			return nil, apiFailure(c, err)
		}
		base = strings.TrimSuffix(area.LocationURL, "/")
	}

	return &API{conn: conn, capability: c, baseURL: base}, nil
}

func apiFailure(c Capability, err error) error {
	if IsError(err) {
		return err
	}
	return NewAuthenticationError(fmt.Sprintf("Failed to get %s API: %s", c, err)).WithCause(err)
}

// IsAuthenticated reports whether a working connection could be established.
// It never returns an error.
func (b *Builder) IsAuthenticated(ctx context.Context) bool {
	conn, err := b.Client(ctx)
	return err == nil && conn != nil
}
