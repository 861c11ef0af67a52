package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	_ "github.com/joho/godotenv/autoload"
	"github.com/urfave/cli/v3"

	"github.com/webmemo/schemad/client"
	"github.com/webmemo/schemad/internal/config"
	"github.com/webmemo/schemad/internal/pipeline"
)

func run(ctx context.Context, cmd *cli.Command) error {
	conf, err := config.Load(cmd.String("config"))
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	if cmd.Int("batch-size") > 0 {
		conf.Pipeline.BatchSize = int(cmd.Int("batch-size"))
	}

	if conf.Pipeline.ContentAPI == "" || conf.Pipeline.SyncAPI == "" {
		return fmt.Errorf("pipeline.contentApi and pipeline.syncApi must be configured")
	}
	if conf.Server.AdminToken == "" {
		return fmt.Errorf("adminToken must be configured (or set SCHEMAD_ADMIN_TOKEN)")
	}

	content := pipeline.NewContentClient(
		conf.Pipeline.ContentAPI,
		conf.Pipeline.PageSize,
		os.Getenv("CONTENT_API_USER"),
		os.Getenv("CONTENT_API_PASSWORD"),
	)
	builder := pipeline.NewBuilder(conf.Pipeline.SiteURL, conf.Pipeline.PublisherID)
	sync := client.New(conf.Pipeline.SyncAPI, conf.Server.AdminToken)

	runner := pipeline.NewRunner(content, builder, sync, conf.Pipeline.BatchSize, conf.Pipeline.PacingDelay())

	summary, err := runner.Run(ctx)
	if err != nil {
		return fmt.Errorf("synchronization run failed: %w", err)
	}

	// Partial failure is reported, not silently recovered; a non-zero exit
	// lets the scheduler flag the run for attention.
	if summary.Failed > 0 {
		return fmt.Errorf("%d of %d records failed to sync", summary.Failed, summary.Candidates)
	}
	return nil
}

func main() {
	cmd := &cli.Command{
		Name:   "schemasync",
		Usage:  "Extract content from the CMS and synchronize Schema.org records",
		Action: run,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "Path to config file",
				Value:   "config/config.yaml",
				Sources: cli.EnvVars("SCHEMAD_CONFIG"),
			},
			&cli.IntFlag{
				Name:  "batch-size",
				Usage: "Override the configured bulk batch size",
			},
		},
	}

	if err := cmd.Run(context.Background(), os.Args); err != nil {
		slog.Error("application error", slog.String("error", err.Error()))
		os.Exit(1)
	}
}
