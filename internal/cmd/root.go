package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"eam/internal/platform/config"
	"eam/internal/platform/logger"
)

var configFile string

var rootCmd = &cobra.Command{
	Use:   "eam",
	Short: "Enterprise application management service",
	Long: `eam tracks the application portfolio of an organisation: applications,
proposals, approvals, estimations, meetings and actions. It mirrors GitLab
projects, issues, merge requests, pipelines and vulnerabilities, and reports
KPIs and sprint progress over both.`,
	SilenceUsage: true,
}

// Execute runs the CLI until it finishes or the process is interrupted.
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		stop()
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configFile, "config", "c", "", "Path to a YAML configuration file (defaults to $EAM_CONFIG_FILE)")

	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(migrateCmd)
	rootCmd.AddCommand(userCmd)
	rootCmd.AddCommand(syncCmd)
}

func loadConfig() (config.Server, *slog.Logger, error) {
	path := configFile
	if path == "" {
		path = os.Getenv("EAM_CONFIG_FILE")
	}
	cfg, err := config.Load(path)
	if err != nil {
		return config.Server{}, nil, fmt.Errorf("failed to load config: %w", err)
	}
	return cfg, logger.New(cfg.LogLevel, cfg.LogFormat), nil
}
