// Command footage serves the clip search API over HTTP, SSE and MCP.
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/kailas-cloud/footage/internal/app"
	"github.com/kailas-cloud/footage/internal/config"
	logpkg "github.com/kailas-cloud/footage/internal/logger"
	chiTransport "github.com/kailas-cloud/footage/internal/transport/chi"
	mcpTransport "github.com/kailas-cloud/footage/internal/transport/mcp"
	"github.com/kailas-cloud/footage/internal/version"
)

func main() {
	env := config.GetEnv()
	cfg, err := config.Load(env)
	if err != nil {
		fmt.Fprintf(os.Stderr, "load config: %v\n", err)
		os.Exit(1)
	}

	logger, err := logpkg.New(logpkg.Options{Env: env, Level: cfg.Logging.Level, Component: "api"})
	if err != nil {
		fmt.Fprintf(os.Stderr, "create logger: %v\n", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err = run(ctx, env, cfg, logger)
	stop()
	if err != nil {
		logger.Error("footage stopped with error", zap.Error(err))
		_ = logger.Sync()
		os.Exit(1)
	}
	logger.Info("Server stopped gracefully")
	_ = logger.Sync()
}

func run(ctx context.Context, env string, cfg config.Config, logger *zap.Logger) error {
	logger.Info("Starting footage API server",
		zap.String("version", version.Version),
		zap.String("commit", version.Commit),
		zap.String("env", env),
		zap.Int("http_port", cfg.HTTP.Port),
		zap.String("db_driver", cfg.Database.Driver),
		zap.String("scenes", cfg.Corpus.ScenesPath),
	)

	a, err := app.New(ctx, cfg, logger)
	if err != nil {
		return fmt.Errorf("build services: %w", err)
	}
	defer a.Close()

	if cfg.Database.Driver == config.DriverMemory {
		if err := a.IndexCorpusIfEmpty(ctx); err != nil {
			return fmt.Errorf("index corpus: %w", err)
		}
	}

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.HTTP.Port),
		Handler:           handler(a, cfg, logger),
		ReadHeaderTimeout: seconds(cfg.HTTP.ReadTimeoutSec),
		ReadTimeout:       seconds(cfg.HTTP.ReadTimeoutSec),
		WriteTimeout:      seconds(cfg.HTTP.WriteTimeoutSec),
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("HTTP server listening", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("Shutting down HTTP server")
		sctx, cancel := context.WithTimeout(context.Background(), seconds(cfg.HTTP.ShutdownSec))
		defer cancel()
		return srv.Shutdown(sctx)
	})
	return g.Wait()
}

func handler(a *app.App, cfg config.Config, logger *zap.Logger) http.Handler {
	server := chiTransport.NewServer(chiTransport.Deps{
		Search:    a.Search,
		Clips:     a.Clips,
		Health:    a.Health,
		VideoPath: cfg.Corpus.VideoPath,
		Logger:    logger,
	})
	rc := chiTransport.RouterConfig{
		APIKeys:     cfg.Auth.APIKeys,
		CORSOrigins: cfg.HTTP.CORSOrigins,
		Logger:      logger,
	}
	if cfg.MCP.Enabled {
		rc.MCPPath = cfg.MCP.Path
		rc.MCPHandler = mcpTransport.NewHTTPHandler(
			mcpTransport.NewServer(a.Search, logger.Named("mcp")), cfg.MCP.Path,
		)
	}
	return chiTransport.NewRouter(server, rc)
}

func seconds(n int) time.Duration { return time.Duration(n) * time.Second }
