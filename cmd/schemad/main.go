package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	_ "github.com/joho/godotenv/autoload"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/urfave/cli/v3"
	"go.opentelemetry.io/contrib/instrumentation/github.com/labstack/echo/otelecho"

	"github.com/webmemo/schemad/internal/config"
	"github.com/webmemo/schemad/internal/infra/database"
	"github.com/webmemo/schemad/internal/infra/repository"
	"github.com/webmemo/schemad/internal/present/rest"
	restmiddleware "github.com/webmemo/schemad/internal/present/rest/middleware"
	"github.com/webmemo/schemad/internal/service"
	"github.com/webmemo/schemad/internal/trace"
	"github.com/webmemo/schemad/internal/usecase"
)

func run(ctx context.Context, cmd *cli.Command) error {
	conf, err := config.Load(cmd.String("config"))
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	if conf.Server.AdminToken == "" {
		return fmt.Errorf("adminToken must be configured (or set SCHEMAD_ADMIN_TOKEN)")
	}

	if conf.Server.EnableTrace {
		shutdown, err := trace.Setup(ctx, conf.Server.TraceEndpoint, "schemad")
		if err != nil {
			return fmt.Errorf("failed to set up tracing: %w", err)
		}
		defer shutdown(ctx)
	}

	db, err := database.NewPostgres(conf.Server.PostgresDsn)
	if err != nil {
		return fmt.Errorf("failed to connect database: %w", err)
	}
	if err := database.MigratePostgres(db); err != nil {
		return fmt.Errorf("failed to migrate database: %w", err)
	}

	var signal *service.SignalService
	var notifier usecase.SchemaNotifier
	var pageCache service.PageCache

	if conf.Server.RedisAddr != "" {
		rdb := database.NewRedis(conf.Server.RedisAddr, conf.Server.RedisPassword, conf.Server.RedisDB)
		signal = service.NewSignalService(rdb)
		notifier = signal
		if conf.Server.CacheBackend == "redis" {
			pageCache = service.NewRedisPageCache(rdb)
		}
	}
	if conf.Server.CacheBackend == "memcached" {
		pageCache = service.NewMemcachedPageCache(database.NewMemcached(conf.Server.MemcachedAddr))
	}

	repo := repository.NewSchemaRepository(db)
	schemaUC := usecase.NewSchemaUsecase(repo, notifier)
	aggregatorUC := usecase.NewAggregatorUsecase(repo)

	e := echo.New()
	e.Use(middleware.Logger())
	e.Use(middleware.Recover())
	e.Use(middleware.CORS())
	if conf.Server.EnableTrace {
		e.Use(otelecho.Middleware("schemad"))
	}

	auth := restmiddleware.NewAuthMiddleware(conf.Server.AdminToken)
	handler := rest.NewHandler(schemaUC, aggregatorUC, signal, pageCache, conf.Server.CacheTTL())
	handler.RegisterRoutes(e, auth.RequireAdmin)

	return e.Start(conf.Server.Listen)
}

func main() {
	cmd := &cli.Command{
		Name:   "schemad",
		Usage:  "Schema.org record store and sync endpoint",
		Action: run,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "Path to config file",
				Value:   "config/config.yaml",
				Sources: cli.EnvVars("SCHEMAD_CONFIG"),
			},
		},
	}

	if err := cmd.Run(context.Background(), os.Args); err != nil {
		slog.Error("application error", slog.String("error", err.Error()))
		os.Exit(1)
	}
}
