// Package server initializes and runs the ImageStore server: it opens the
// metadata database, applies migrations, builds the object storage client
// and serves the HTTP API until the process is signalled to stop.
package server

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/acme/imagestore/internal/logging"
	"github.com/acme/imagestore/internal/server/config"
	"github.com/acme/imagestore/internal/server/repositories/repomanager"
	"github.com/acme/imagestore/internal/server/rest"
	"github.com/acme/imagestore/internal/server/services"
	"github.com/acme/imagestore/internal/server/storage"
)

type App struct {
	config  *config.Config
	logger  logging.Logger
	db      *sql.DB
	catalog *services.CatalogService
}

func NewApp(ctx context.Context, cfg *config.Config) (*App, error) {

	sl := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	logger := logging.NewSlogLogger(sl)

	db, err := sql.Open("pgx", cfg.DatabaseDSN)
	if err != nil {
		return nil, fmt.Errorf("db open error: %w", err)
	}

	repos := repomanager.NewPostgresRepositoryManager()
	if err := repos.RunMigrations(ctx, db); err != nil {
		return nil, fmt.Errorf("migration error: %w", err)
	}

	blobs, err := storage.NewS3Store(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("s3 init error: %w", err)
	}

	catalog := services.NewCatalogService(db, repos, blobs, cfg)

	return &App{config: cfg, logger: logger, db: db, catalog: catalog}, nil
}

func (app *App) initSignalHandler(cancelFunc context.CancelFunc) {
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)

	go func() {
		<-sigs
		cancelFunc()
	}()
}

func (app *App) startHTTPServer(ctx context.Context, cancelFunc context.CancelFunc) {

	s, err := rest.NewServer(app.config.EndpointAddrHTTP, app.logger, app.catalog)

	if err != nil {
		app.logger.Error(ctx, err.Error())
		cancelFunc()
		return
	}

	if err := s.Run(ctx); err != nil {
		app.logger.Error(ctx, err.Error())
		cancelFunc()
	}
}

func (app *App) Run(ctx context.Context) {

	ctx, cancelFunc := context.WithCancel(ctx)
	defer cancelFunc()

	app.logger.Info(ctx, "Starting app...")

	app.initSignalHandler(cancelFunc)

	var wg sync.WaitGroup

	wg.Add(1)
	go func() {
		defer wg.Done()
		app.startHTTPServer(ctx, cancelFunc)
	}()

	wg.Wait()

	if err := app.db.Close(); err != nil {
		app.logger.Error(ctx, "db close error", "error", err.Error())
	}
}
