package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/HendryAvila/azdo-mcp/internal/azdo"
)

func fakeEnv(t *testing.T, vars map[string]string) {
	t.Helper()
	orig := lookupEnv
	lookupEnv = func(key string) (string, bool) {
		v, ok := vars[key]
		return v, ok
	}
	t.Cleanup(func() { lookupEnv = orig })
}

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoad_Defaults(t *testing.T) {
	fakeEnv(t, nil)

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "pat", cfg.AuthMethod)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Empty(t, cfg.OrganizationURL)
}

func TestLoad_EnvOverridesFile(t *testing.T) {
	path := writeFile(t, "config.yaml", `
organization_url: https://dev.azure.com/from-file
auth_method: azure-cli
default_project: FileProject
log_level: debug
`)
	fakeEnv(t, map[string]string{
		EnvOrgURL:         "https://dev.azure.com/from-env",
		EnvDefaultProject: "  ",
	})

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "https://dev.azure.com/from-env", cfg.OrganizationURL)
	assert.Equal(t, "azure-cli", cfg.AuthMethod)
	assert.Equal(t, "FileProject", cfg.DefaultProject)
	assert.Equal(t, "debug", cfg.LogLevel)
}

func TestLoad_MissingFileIsAnError(t *testing.T) {
	fakeEnv(t, nil)
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestLoad_InvalidYAML(t *testing.T) {
	fakeEnv(t, nil)
	_, err := Load(writeFile(t, "bad.yaml", "organization_url: [unterminated"))
	assert.Error(t, err)
}

func TestLoadDotEnv(t *testing.T) {
	path := writeFile(t, ".env", "AZDO_MCP_TEST_DOTENV=from-dotenv\n")
	t.Setenv("AZDO_MCP_TEST_DOTENV", "")
	require.NoError(t, os.Unsetenv("AZDO_MCP_TEST_DOTENV"))

	require.NoError(t, LoadDotEnv(filepath.Join(t.TempDir(), "missing.env"), path))
	assert.Equal(t, "from-dotenv", os.Getenv("AZDO_MCP_TEST_DOTENV"))
}

func TestLoadDotEnv_DoesNotOverrideEnvironment(t *testing.T) {
	path := writeFile(t, ".env", "AZDO_MCP_TEST_DOTENV=from-dotenv\n")
	t.Setenv("AZDO_MCP_TEST_DOTENV", "from-shell")

	require.NoError(t, LoadDotEnv(path))
	assert.Equal(t, "from-shell", os.Getenv("AZDO_MCP_TEST_DOTENV"))
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name string
		cfg  Config
		want error
	}{
		{"valid pat", Config{OrganizationURL: "https://dev.azure.com/o", AuthMethod: "pat", PersonalAccessToken: "x"}, nil},
		{"valid cli", Config{OrganizationURL: "https://dev.azure.com/o", AuthMethod: "AZURE-CLI"}, nil},
		{"missing org", Config{AuthMethod: "pat", PersonalAccessToken: "x"}, ErrMissingOrgURL},
		{"bad method", Config{OrganizationURL: "https://dev.azure.com/o", AuthMethod: "ntlm"}, ErrInvalidAuthMethod},
		{"missing pat", Config{OrganizationURL: "https://dev.azure.com/o", AuthMethod: "pat"}, ErrMissingPAT},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cfg.Validate()
			if tt.want == nil {
				assert.NoError(t, err)
				return
			}
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestAuthConfig(t *testing.T) {
	cfg := Config{OrganizationURL: "https://dev.azure.com/o", AuthMethod: "Azure-Identity", PersonalAccessToken: "p"}
	got := cfg.AuthConfig()
	assert.Equal(t, azdo.AuthConfig{
		Method:              azdo.AuthMethodAzureIdentity,
		OrganizationURL:     "https://dev.azure.com/o",
		PersonalAccessToken: "p",
	}, got)

	assert.Equal(t, azdo.AuthMethod("ntlm"), Config{AuthMethod: "ntlm"}.AuthConfig().Method)
}

func TestMerge_EmptyOverlayKeepsBase(t *testing.T) {
	base := Config{OrganizationURL: "a", AuthMethod: "pat", LogLevel: "warn"}
	assert.Equal(t, base, Merge(base, Config{}))
}
