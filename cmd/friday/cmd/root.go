package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/ZihaoFU245/It-s-Friday/internal/accounts"
	"github.com/ZihaoFU245/It-s-Friday/internal/adapter"
	"github.com/ZihaoFU245/It-s-Friday/internal/config"
	"github.com/ZihaoFU245/It-s-Friday/internal/manager"
)

var (
	cfgFile  string
	verbose  bool
	headless bool
	cfg      *config.Config
	logger   *slog.Logger
)

var rootCmd = &cobra.Command{
	Use:   "friday",
	Short: "Multi-account email assistant",
	Long: `friday manages multiple email accounts behind one interface.

It speaks to providers through per-account adapters (Gmail today),
handles OAuth consent and token refresh, and exposes the mailbox over
a CLI, an HTTP API, and an MCP server.`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if cmd.Name() == "version" {
			return nil
		}

		level := slog.LevelInfo
		if verbose {
			level = slog.LevelDebug
		}
		logger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
			Level: level,
		}))

		var err error
		cfg, err = config.Load(cfgFile)
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}

		// Ensure the data directory exists on first use
		if err := cfg.EnsureHomeDir(); err != nil {
			return fmt.Errorf("create data directory %s: %w", cfg.Data.DataDir, err)
		}

		return nil
	},
}

// Execute runs the root command with a background context.
// Prefer ExecuteContext for signal-aware execution.
func Execute() error {
	return ExecuteContext(context.Background())
}

// ExecuteContext runs the root command with the given context,
// enabling graceful shutdown when the context is cancelled.
func ExecuteContext(ctx context.Context) error {
	return rootCmd.ExecuteContext(ctx)
}

// newManager loads the account directory and builds the client manager
// every account-touching command shares.
func newManager() *manager.Manager {
	dir := accounts.Load(cfg.AccountsFilePath(), cfg.Data.DataDir, logger)
	opts := adapter.Options{
		RateLimitQPS:   float64(cfg.Email.RateLimitQPS),
		ConsentTimeout: time.Duration(cfg.OAuth.ConsentTimeoutSeconds) * time.Second,
		Headless:       headless,
		Logger:         logger,
	}
	return manager.New(dir, opts)
}

// oauthSetupHint returns help text for OAuth configuration issues,
// using the actual config file path so it's clear on all platforms.
func oauthSetupHint() string {
	configPath := "<config file>"
	if cfg != nil {
		configPath = cfg.ConfigFilePath()
	}
	return fmt.Sprintf(`
To connect a Gmail account, you need a Google Cloud OAuth credential:
  1. Create an OAuth client ID (Desktop app) in the Google Cloud console
  2. Download the client_secret.json file
  3. Create or edit %s:
       [oauth]
       client_secrets = "/path/to/client_secret.json"

Or pass --credentials when adding the account.`, configPath)
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: ~/.friday/config.toml)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
	rootCmd.PersistentFlags().BoolVar(&headless, "headless", false, "use device-code OAuth flow instead of opening a browser")
}
