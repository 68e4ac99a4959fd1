// Package config resolves azdo-mcp settings from a YAML file, a .env file,
// the process environment and command-line flags, in increasing order of
// precedence.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/HendryAvila/azdo-mcp/internal/azdo"
)

// Environment variable names.
const (
	EnvOrgURL         = "AZURE_DEVOPS_ORG_URL"
	EnvAuthMethod     = "AZURE_DEVOPS_AUTH_METHOD"
	EnvPAT            = "AZURE_DEVOPS_PAT"
	EnvDefaultProject = "AZURE_DEVOPS_DEFAULT_PROJECT"
	EnvLogLevel       = "AZDO_MCP_LOG_LEVEL"
)

var (
	ErrMissingOrgURL     = errors.New("organization URL is not configured")
	ErrInvalidAuthMethod = errors.New("invalid authentication method")
	ErrMissingPAT        = errors.New("personal access token is not configured")
)

// For mocking in tests
var lookupEnv = os.LookupEnv

// Config holds every setting the server needs.
type Config struct {
	OrganizationURL     string `yaml:"organization_url"`
	AuthMethod          string `yaml:"auth_method"`
	PersonalAccessToken string `yaml:"personal_access_token"`
	DefaultProject      string `yaml:"default_project"`
	LogLevel            string `yaml:"log_level"`
}

// Default returns the configuration used when nothing else is set.
func Default() Config {
	return Config{
		AuthMethod: string(azdo.AuthMethodPAT),
		LogLevel:   "info",
	}
}

// LoadDotEnv loads variables from the given .env files into the process
// environment without overriding variables that are already set. Missing
// files are ignored.
func LoadDotEnv(paths ...string) error {
	for _, p := range paths {
		if _, err := os.Stat(p); os.IsNotExist(err) {
			continue
		}
		if err := godotenv.Load(p); err != nil {
			return fmt.Errorf("loading %s: %w", p, err)
		}
	}
	return nil
}

// Load builds the configuration from defaults, the optional YAML file at
// path and then the environment. An explicitly named file must exist.
func Load(path string) (Config, error) {
	cfg := Default()

	if path != "" {
		fileCfg, err := loadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("error loading config from %s: %w", path, err)
		}
		cfg = merge(cfg, fileCfg)
	}

	return merge(cfg, fromEnv()), nil
}

func loadFile(path string) (Config, error) {
	var cfg Config
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, err
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func fromEnv() Config {
	get := func(key string) string {
		v, _ := lookupEnv(key)
		return strings.TrimSpace(v)
	}
	return Config{
		OrganizationURL:     get(EnvOrgURL),
		AuthMethod:          get(EnvAuthMethod),
		PersonalAccessToken: get(EnvPAT),
		DefaultProject:      get(EnvDefaultProject),
		LogLevel:            get(EnvLogLevel),
	}
}

// Merge returns base with every non-empty field of overlay applied.
func Merge(base, overlay Config) Config {
	return merge(base, overlay)
}

func merge(base, overlay Config) Config {
	out := base
	if overlay.OrganizationURL != "" {
		out.OrganizationURL = overlay.OrganizationURL
	}
	if overlay.AuthMethod != "" {
		out.AuthMethod = overlay.AuthMethod
	}
	if overlay.PersonalAccessToken != "" {
		out.PersonalAccessToken = overlay.PersonalAccessToken
	}
	if overlay.DefaultProject != "" {
		out.DefaultProject = overlay.DefaultProject
	}
	if overlay.LogLevel != "" {
		out.LogLevel = overlay.LogLevel
	}
	return out
}

// Validate reports the first problem that would stop the server from
// connecting.
func (c Config) Validate() error {
	if strings.TrimSpace(c.OrganizationURL) == "" {
		return fmt.Errorf("%w: set %s", ErrMissingOrgURL, EnvOrgURL)
	}
	method, err := azdo.ParseAuthMethod(c.AuthMethod)
	if err != nil {
		return fmt.Errorf("%w: %q", ErrInvalidAuthMethod, c.AuthMethod)
	}
	if method == azdo.AuthMethodPAT && c.PersonalAccessToken == "" {
		return fmt.Errorf("%w: set %s", ErrMissingPAT, EnvPAT)
	}
	return nil
}

// AuthConfig projects the configuration onto the client builder's input.
// An unparseable method is passed through verbatim so the builder can
// report it.
func (c Config) AuthConfig() azdo.AuthConfig {
	method, err := azdo.ParseAuthMethod(c.AuthMethod)
	if err != nil {
		method = azdo.AuthMethod(c.AuthMethod)
	}
	return azdo.AuthConfig{
		Method:              method,
		OrganizationURL:     c.OrganizationURL,
		PersonalAccessToken: c.PersonalAccessToken,
	}
}
