package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"xreply/internal/config"
	"xreply/internal/logging"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// Set at build time with -ldflags "-X main.version=...".
var version = "dev"

var (
	// Global flags
	verbose    bool
	configPath string
	envFile    string
	timeout    time.Duration

	cfg    *config.Config
	logger *zap.Logger
)

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:   "xreply",
	Short: "xreply - operator-reviewed replies to executives on X",
	Long: `xreply searches X for posts, keeps the ones whose authors describe
themselves as executives, drafts a templated reply for each and queues them as
proposals. An operator reviews the queue and only then executes a reply, which
posts it and likes the original post through a logged-in browser session.

Run "xreply login" once to capture a session, then "xreply serve" for the HTTP
API or "xreply search" from the command line.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		// These work without a valid config.
		switch cmd.Name() {
		case "version", "init", "help":
			logger = zap.NewNop()
			return nil
		}
		if err := config.LoadDotEnv(envFile); err != nil {
			return err
		}

		var err error
		cfg, err = config.Load(configPath)
		if err != nil {
			return err
		}
		if err := cfg.Validate(); err != nil {
			return fmt.Errorf("invalid config %s: %w", configPath, err)
		}

		logger, err = logging.Initialize(cfg.Logging, verbose)
		if err != nil {
			return err
		}
		logging.Boot("config loaded",
			zap.String("path", configPath),
			zap.String("storage", cfg.Storage.Backend),
			zap.Bool("headless", cfg.Browser.Headless))
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logger != nil {
			_ = logger.Sync()
		}
	},
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the xreply version",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintf(cmd.OutOrStdout(), "xreply %s\n", version)
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose logging")
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", config.DefaultPath, "Config file")
	rootCmd.PersistentFlags().StringVar(&envFile, "env-file", ".env", "Dotenv file loaded before the config")
	rootCmd.PersistentFlags().DurationVar(&timeout, "timeout", 10*time.Minute, "Timeout for one-shot commands")

	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(searchCmd)
	rootCmd.AddCommand(loginCmd)
	rootCmd.AddCommand(proposalsCmd)
	rootCmd.AddCommand(initCmd)
	rootCmd.AddCommand(versionCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// commandContext is cancelled by SIGINT/SIGTERM or after the --timeout.
func commandContext() (context.Context, context.CancelFunc) {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	ctx, cancel := context.WithTimeout(ctx, timeout)
	return ctx, func() {
		cancel()
		stop()
	}
}
