package main

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/HendryAvila/azdo-mcp/internal/azdo/azdotest"
	"github.com/HendryAvila/azdo-mcp/internal/config"
)

// clearEnv isolates a test from AZURE_DEVOPS_* variables set by the caller.
func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{
		config.EnvOrgURL, config.EnvAuthMethod, config.EnvPAT, config.EnvDefaultProject, config.EnvLogLevel,
	} {
		t.Setenv(key, "")
	}
}

func run(t *testing.T, args ...string) (stdout, stderr string, err error) {
	t.Helper()
	var out, errOut bytes.Buffer
	root := newRootCmd(&out, &errOut)
	root.SetArgs(append(args, "--env-file", filepath.Join(t.TempDir(), "missing.env")))
	err = root.ExecuteContext(context.Background())
	return out.String(), errOut.String(), err
}

func TestVersionCommand(t *testing.T) {
	out, _, err := run(t, "version")
	require.NoError(t, err)
	assert.Equal(t, "azdo-mcp vdev\n", out)
}

func TestCheckAuth_Success(t *testing.T) {
	clearEnv(t)
	org := azdotest.NewOrg(t)
	t.Setenv(config.EnvPAT, "test-pat")

	out, _, err := run(t, "check-auth", "--org-url", org.URL, "--log-level", "error")

	require.NoError(t, err)
	assert.Contains(t, out, "Authenticated to "+org.URL+" using pat")
}

func TestCheckAuth_Failure(t *testing.T) {
	clearEnv(t)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		azdotest.Fail(w, http.StatusUnauthorized, "TF400813: The user is not authorized")
	}))
	t.Cleanup(srv.Close)
	t.Setenv(config.EnvOrgURL, srv.URL)
	t.Setenv(config.EnvPAT, "expired")

	_, errOut, err := run(t, "check-auth", "--log-level", "error")

	require.ErrorIs(t, err, errNotAuthenticated)
	assert.Equal(t, ExitError, exitCode(err))
	assert.Contains(t, errOut, "AzureDevOpsAuthenticationError: Authentication failed: TF400813")
}

func TestCheckAuth_InvalidConfiguration(t *testing.T) {
	clearEnv(t)

	_, _, err := run(t, "check-auth")

	require.Error(t, err)
	assert.ErrorIs(t, err, config.ErrMissingOrgURL)
}

func TestCheckAuth_ConfigFile(t *testing.T) {
	clearEnv(t)
	org := azdotest.NewOrg(t)
	path := filepath.Join(t.TempDir(), "azdo-mcp.yaml")
	require.NoError(t, os.WriteFile(path, []byte(
		"organization_url: "+org.URL+"\n"+
			"auth_method: pat\n"+
			"personal_access_token: from-file\n"+
			"log_level: error\n"), 0o600))

	out, _, err := run(t, "check-auth", "--config", path)

	require.NoError(t, err)
	assert.Contains(t, out, "Authenticated to "+org.URL)
}

func TestServe_RejectsUnknownTransport(t *testing.T) {
	_, _, err := run(t, "serve", "--transport", "grpc")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown transport")
}

func TestExitCode(t *testing.T) {
	assert.Equal(t, ExitOK, exitCode(nil))
	assert.Equal(t, ExitInterrupted, exitCode(context.Canceled))
	assert.Equal(t, ExitError, exitCode(errors.New("boom")))
}
