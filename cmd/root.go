// Package cmd defines the linkstash command-line interface.
package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/JakeFAU/linkstash/internal/client"
	"github.com/JakeFAU/linkstash/internal/config"
	"github.com/JakeFAU/linkstash/internal/output"
)

type cfgKeyType string

const cfgKey cfgKeyType = "config"

// rootOptions holds persistent flag values.
type rootOptions struct {
	cfgFile    string
	serviceURL string
	format     string
}

// loadConfig is a variable so tests can bypass the filesystem and env.
var loadConfig = config.Load

// newRootCmd creates the root command and its subcommands.
func newRootCmd() *cobra.Command {
	opts := &rootOptions{}
	cmd := &cobra.Command{
		Use:   "linkstash",
		Short: "Bookmark and content stash service",
		Long: `linkstash stores URLs with optional title, author and body. Submissions
are canonicalized so equivalent URLs map to one item, and repeating an
identical submission is a no-op.`,
		SilenceUsage: true,

		// Runs before every subcommand so they all see the same config.
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig(opts.cfgFile)
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			if opts.serviceURL != "" {
				cfg.Client.ServiceURL = opts.serviceURL
			}
			cmd.SetContext(context.WithValue(cmd.Context(), cfgKey, cfg))
			return nil
		},
	}

	cmd.PersistentFlags().StringVar(&opts.cfgFile, "config", "", "config file (yaml, json or toml)")
	cmd.PersistentFlags().StringVar(&opts.serviceURL, "service-url", "", "linkstash server URL (overrides client.service_url)")
	cmd.PersistentFlags().StringVar(&opts.format, "format", "", "output format: table, json or quiet (default: table on a terminal, json otherwise)")

	cmd.AddCommand(newServeCmd())
	cmd.AddCommand(newAddCmd(opts))
	cmd.AddCommand(newListCmd(opts))
	cmd.AddCommand(newGetCmd(opts))
	return cmd
}

func resolveConfig(ctx context.Context) (config.Config, error) {
	cfg, ok := ctx.Value(cfgKey).(config.Config)
	if !ok {
		return config.Config{}, errors.New("configuration not loaded")
	}
	return cfg, nil
}

// clientAndPrinter builds the HTTP client and output printer shared by the
// client subcommands.
func clientAndPrinter(cmd *cobra.Command, opts *rootOptions) (*client.Client, *output.Printer, error) {
	cfg, err := resolveConfig(cmd.Context())
	if err != nil {
		return nil, nil, err
	}
	c, err := client.New(cfg.Client.ServiceURL, cfg.Client.Timeout)
	if err != nil {
		return nil, nil, err
	}
	p, err := output.New(cmd.OutOrStdout(), opts.format)
	if err != nil {
		return nil, nil, err
	}
	return c, p, nil
}

func parseTimeFlag(name, raw string) (time.Time, error) {
	if raw == "" {
		return time.Time{}, nil
	}
	t, err := time.Parse(time.RFC3339Nano, raw)
	if err != nil {
		return time.Time{}, fmt.Errorf("--%s must be an RFC 3339 timestamp: %w", name, err)
	}
	return t, nil
}

// Execute is the main entry point.
func Execute() {
	if err := newRootCmd().ExecuteContext(context.Background()); err != nil {
		os.Exit(1)
	}
}
