package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"eam/internal/history"
	"eam/internal/platform/httpserver"
	"eam/internal/platform/postgres"
)

const shutdownTimeout = 20 * time.Second

var listenAddr string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP server",
	Long: `Apply pending migrations, make sure an admin account exists, fail sync jobs
left running by a previous process, then serve the HTML and JSON API until
interrupted.`,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().StringVar(&listenAddr, "addr", "", "Listen address, overrides EAM_ADDR")
}

func runServe(cmd *cobra.Command, _ []string) error {
	cfg, log, err := loadConfig()
	if err != nil {
		return err
	}
	if listenAddr != "" {
		cfg.Addr = listenAddr
	}
	ctx := cmd.Context()

	app, err := NewApp(ctx, cfg, log, nil)
	if err != nil {
		return err
	}
	defer app.Close(context.WithoutCancel(ctx))

	if app.DB != nil {
		if err := postgres.Migrate(ctx, app.DB, log); err != nil {
			return err
		}
	}
	if _, err := app.Accounts.EnsureBootstrapAdmin(ctx, cfg.BootstrapAdminPassword); err != nil {
		return fmt.Errorf("failed to create bootstrap admin: %w", err)
	}
	if n, err := app.Sync.RecoverInterrupted(ctx); err != nil {
		log.WarnContext(ctx, "failed to recover interrupted sync jobs", "error", err)
	} else if n > 0 {
		log.InfoContext(ctx, "marked interrupted sync jobs as failed", "count", n)
	}

	srv := httpserver.New(cfg.Addr, NewRouter(app), log)
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		log.InfoContext(gctx, "starting eam", "addr", cfg.Addr)
		return httpserver.ListenAndServe(srv)
	})
	if app.Producer != nil {
		g.Go(func() error {
			return history.NewWorker(app.Producer, app.Outbox, log, app.Metrics).Run(gctx)
		})
	}
	g.Go(func() error {
		<-gctx.Done()
		log.Info("shutting down")
		sctx, cancel := context.WithTimeout(context.WithoutCancel(gctx), shutdownTimeout)
		defer cancel()
		if err := app.Sync.Shutdown(sctx); err != nil {
			log.Warn("sync jobs did not stop in time", "error", err)
		}
		if err := srv.Shutdown(sctx); err != nil {
			return fmt.Errorf("graceful shutdown failed: %w", err)
		}
		return nil
	})
	return g.Wait()
}
