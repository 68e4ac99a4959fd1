package main

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/HendryAvila/azdo-mcp/internal/azdo"
)

// errNotAuthenticated is returned by check-auth after it has reported the
// failure itself.
var errNotAuthenticated = errors.New("not authenticated")

const checkAuthTimeout = 30 * time.Second

func newCheckAuthCmd(flags *configFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "check-auth",
		Short: "Verify the configured Azure DevOps credentials",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := flags.load()
			if err != nil {
				return err
			}
			logger, err := newLogger(cfg, cmd.ErrOrStderr())
			if err != nil {
				return err
			}

			ctx, cancel := context.WithTimeout(cmd.Context(), checkAuthTimeout)
			defer cancel()

			conn, err := newBuilder(cfg, logger).Client(ctx)
			if err != nil {
				fmt.Fprintln(cmd.ErrOrStderr(), azdo.Format(err))
				return errNotAuthenticated
			}

			fmt.Fprintf(cmd.OutOrStdout(), "Authenticated to %s using %s (%d resource areas)\n",
				conn.OrganizationURL(), cfg.AuthMethod, len(conn.ResourceAreas()))
			return nil
		},
	}
}
