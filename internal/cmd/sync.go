package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"eam/internal/gitlabsync/models"
)

var syncCmd = &cobra.Command{
	Use:   "sync <kind>",
	Short: "Run a GitLab sync in the foreground",
	Long: `Mirror one kind of GitLab data, or all of them, and print progress as it runs.
Kinds: ` + strings.Join(kindNames(), ", ") + `.`,
	Args: cobra.ExactArgs(1),
	RunE: runSync,
}

func kindNames() []string {
	names := make([]string, 0, len(models.Sequence)+1)
	names = append(names, string(models.KindAll))
	for _, k := range models.Sequence {
		names = append(names, string(k))
	}
	return names
}

func runSync(cmd *cobra.Command, args []string) error {
	cfg, log, err := loadConfig()
	if err != nil {
		return err
	}
	if !cfg.GitLab.Enabled() {
		return errors.New("GITLAB_TOKEN is required to sync")
	}
	ctx := cmd.Context()
	out := cmd.OutOrStdout()

	app, err := NewApp(ctx, cfg, log, progressPrinter(out))
	if err != nil {
		return err
	}
	defer app.Close(context.WithoutCancel(ctx))

	job, err := app.Sync.Run(ctx, args[0])
	if err != nil {
		return err
	}
	for _, e := range job.Errors {
		fmt.Fprintf(out, "error: %s\n", e)
	}
	fmt.Fprintf(out, "%s sync %s: %d/%d\n", job.Kind, job.Status, job.Processed, job.Total)
	if job.Status == models.StatusFailed {
		return errors.New("sync failed")
	}
	return nil
}

// progressPrinter writes a line each time the job's percentage moves.
func progressPrinter(out io.Writer) func(*models.Job) {
	last := -1
	return func(job *models.Job) {
		if job.Percent == last {
			return
		}
		last = job.Percent
		fmt.Fprintf(out, "%s: %3d%% (%d/%d)\n", job.Kind, job.Percent, job.Processed, job.Total)
	}
}
