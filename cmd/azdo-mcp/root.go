package main

import (
	"fmt"
	"io"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/HendryAvila/azdo-mcp/internal/azdo"
	"github.com/HendryAvila/azdo-mcp/internal/config"
	"github.com/HendryAvila/azdo-mcp/internal/logging"
	"github.com/HendryAvila/azdo-mcp/internal/server"
)

// configFlags are the connection settings every command accepts. Flags
// take precedence over the environment, a .env file and the YAML file.
type configFlags struct {
	configFile string
	envFile    string
	orgURL     string
	authMethod string
	project    string
	logLevel   string
}

func (f *configFlags) register(cmd *cobra.Command) {
	flags := cmd.PersistentFlags()
	flags.StringVar(&f.configFile, "config", "", "YAML config file")
	flags.StringVar(&f.envFile, "env-file", ".env", ".env file to load if present")
	flags.StringVar(&f.orgURL, "org-url", "", "Azure DevOps organization URL (overrides "+config.EnvOrgURL+")")
	flags.StringVar(&f.authMethod, "auth-method", "", "pat, azure-identity or azure-cli (overrides "+config.EnvAuthMethod+")")
	flags.StringVar(&f.project, "project", "", "Default project (overrides "+config.EnvDefaultProject+")")
	flags.StringVar(&f.logLevel, "log-level", "", "debug, info, warn or error (overrides "+config.EnvLogLevel+")")
}

// load resolves and validates the configuration.
func (f *configFlags) load() (config.Config, error) {
	if err := config.LoadDotEnv(f.envFile); err != nil {
		return config.Config{}, err
	}
	cfg, err := config.Load(f.configFile)
	if err != nil {
		return config.Config{}, err
	}
	cfg = config.Merge(cfg, config.Config{
		OrganizationURL: f.orgURL,
		AuthMethod:      f.authMethod,
		DefaultProject:  f.project,
		LogLevel:        f.logLevel,
	})
	if err := cfg.Validate(); err != nil {
		return config.Config{}, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// newLogger builds the stderr logger for cfg.
func newLogger(cfg config.Config, stderr io.Writer) (*slog.Logger, error) {
	level, err := logging.ParseLevel(cfg.LogLevel)
	if err != nil {
		return nil, err
	}
	return logging.New(level, stderr), nil
}

// newBuilder creates the shared connection builder for cfg.
func newBuilder(cfg config.Config, logger *slog.Logger, opts ...azdo.Option) *azdo.Builder {
	return azdo.NewBuilder(cfg.AuthConfig(), append([]azdo.Option{
		azdo.WithLogger(logger),
		azdo.WithUserAgent(server.Name + "/" + server.Version),
	}, opts...)...)
}

func newRootCmd(stdout, stderr io.Writer) *cobra.Command {
	var flags configFlags

	root := &cobra.Command{
		Use:   "azdo-mcp",
		Short: "Azure DevOps MCP server",
		Long: `azdo-mcp exposes an Azure DevOps organization to MCP hosts: projects,
pipelines, wikis, work items, environments and pull requests.

Configuration is read from a YAML file (--config), a .env file, the
AZURE_DEVOPS_* environment variables and flags, in increasing precedence.`,
		Version:       server.Version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.SetOut(stdout)
	root.SetErr(stderr)
	root.SetVersionTemplate(`{{printf "azdo-mcp version %s\n" .Version}}`)
	flags.register(root)

	root.AddCommand(newServeCmd(&flags))
	root.AddCommand(newCheckAuthCmd(&flags))
	root.AddCommand(newVersionCmd())
	return root
}
