package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/mark3labs/mcp-go/server"
)

// Transport selects how the MCP server talks to its host.
type Transport string

const (
	TransportStdio Transport = "stdio"
	TransportSSE   Transport = "sse"
	TransportHTTP  Transport = "http"
)

const shutdownTimeout = 5 * time.Second

// ParseTransport validates a transport name.
func ParseTransport(s string) (Transport, error) {
	switch t := Transport(strings.ToLower(strings.TrimSpace(s))); t {
	case TransportStdio, TransportSSE, TransportHTTP:
		return t, nil
	default:
		return "", fmt.Errorf("unknown transport %q (want stdio, sse or http)", s)
	}
}

// Serve runs s on the chosen transport until ctx is cancelled or the
// transport fails. addr is ignored for stdio.
func Serve(ctx context.Context, s *server.MCPServer, t Transport, addr string, logger *slog.Logger) error {
	switch t {
	case TransportStdio:
		stdio := server.NewStdioServer(s)
		stdio.SetErrorLogger(slog.NewLogLogger(logger.Handler(), slog.LevelError))
		logger.Info("serving MCP over stdio")
		err := stdio.Listen(ctx, os.Stdin, os.Stdout)
		if err != nil && !errors.Is(err, context.Canceled) {
			return fmt.Errorf("stdio transport: %w", err)
		}
		return nil

	case TransportSSE:
		sse := server.NewSSEServer(s,
			server.WithBaseURL(baseURL(addr)),
			server.WithSSEEndpoint("/sse"),
			server.WithMessageEndpoint("/message"),
			server.WithKeepAlive(true),
			server.WithKeepAliveInterval(30*time.Second),
		)
		return serveHTTP(ctx, addr, sse.Start, sse.Shutdown, logger.With("transport", t))

	case TransportHTTP:
		streamable := server.NewStreamableHTTPServer(s)
		return serveHTTP(ctx, addr, streamable.Start, streamable.Shutdown, logger.With("transport", t))

	default:
		return fmt.Errorf("unknown transport %q", t)
	}
}

// serveHTTP runs start in the background and shuts the listener down when
// ctx ends.
func serveHTTP(
	ctx context.Context,
	addr string,
	start func(addr string) error,
	shutdown func(ctx context.Context) error,
	logger *slog.Logger,
) error {
	errCh := make(chan error, 1)
	go func() {
		errCh <- start(addr)
	}()
	logger.Info("serving MCP over HTTP", "addr", addr)

	select {
	case err := <-errCh:
		if err == nil || errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("listening on %s: %w", addr, err)
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutting down: %w", err)
	}
	return nil
}

func baseURL(addr string) string {
	if strings.HasPrefix(addr, ":") {
		return "http://localhost" + addr
	}
	return "http://" + addr
}
