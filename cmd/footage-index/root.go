package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/kailas-cloud/footage/internal/app"
	"github.com/kailas-cloud/footage/internal/config"
	logpkg "github.com/kailas-cloud/footage/internal/logger"
	"github.com/kailas-cloud/footage/internal/version"
)

// options are the persistent flags shared by every subcommand.
type options struct {
	env      string
	logLevel string
}

func newRootCmd() *cobra.Command {
	opts := &options{}

	root := &cobra.Command{
		Use:   "footage-index",
		Short: "Index film clips and query the footage search pipeline",
		Long: `footage-index loads the scene corpus, embeds every clip into the vector store
and runs searches against it without the HTTP server.`,
		Version:       version.String(),
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVarP(&opts.env, "env", "e", config.GetEnv(), "config environment (config/<env>.yaml)")
	root.PersistentFlags().StringVar(&opts.logLevel, "log-level", "warn", "log level override")

	root.AddCommand(
		newIndexCmd(opts),
		newSearchCmd(opts),
		newVocabularyCmd(opts),
		newStatsCmd(opts),
		newDeleteCmd(opts),
		newDropCmd(opts),
	)
	return root
}

func (o *options) config() (config.Config, error) {
	cfg, err := config.Load(o.env)
	if err != nil {
		return config.Config{}, fmt.Errorf("load config: %w", err)
	}
	return cfg, nil
}

func (o *options) logger() (*zap.Logger, error) {
	logger, err := logpkg.New(logpkg.Options{Env: o.env, Level: o.logLevel, Component: "cli", Stderr: true})
	if err != nil {
		return nil, fmt.Errorf("create logger: %w", err)
	}
	return logger, nil
}

// build wires the services; the caller closes the returned app.
func (o *options) build(ctx context.Context, mutate func(*config.Config)) (*app.App, error) {
	cfg, err := o.config()
	if err != nil {
		return nil, err
	}
	if mutate != nil {
		mutate(&cfg)
	}
	logger, err := o.logger()
	if err != nil {
		return nil, err
	}
	a, err := app.New(ctx, cfg, logger)
	if err != nil {
		return nil, fmt.Errorf("build services: %w", err)
	}
	return a, nil
}
