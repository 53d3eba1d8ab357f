// Command idaas-token loads a client configuration and prints a bearer
// token for the configured machine principal.
package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/jeremyhahn/go-idaas/pkg/idaas/config"
)

func main() {
	if err := newRootCommand().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	var (
		configPath string
		timeout    time.Duration
	)

	cmd := &cobra.Command{
		Use:   "idaas-token",
		Short: "Obtain a machine access token from an IDaaS token endpoint",
		Long: `idaas-token loads the client configuration (default
~/.cloud_idaas/client-config.json, overridable with --config or the
CLOUD_IDAAS_CONFIG_PATH environment variable), acquires an access token
using the configured client authentication method, and prints it to stdout.`,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(configPath)
			if err != nil {
				return err
			}

			provider, err := config.NewCredentialProvider(cfg)
			if err != nil {
				return err
			}
			defer provider.Close()

			ctx, cancel := context.WithTimeout(cmd.Context(), timeout)
			defer cancel()

			token, err := provider.GetBearerToken(ctx)
			if err != nil {
				return err
			}

			fmt.Fprintln(cmd.OutOrStdout(), token)
			return nil
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "", "path to the client configuration file")
	cmd.Flags().DurationVar(&timeout, "timeout", 30*time.Second, "overall timeout for acquiring the token")
	return cmd
}
