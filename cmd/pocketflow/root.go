package main

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/pocketomega/pocket-flow/internal/config"
	"github.com/pocketomega/pocket-flow/internal/cookbook"
	"github.com/pocketomega/pocket-flow/internal/llm"
	"github.com/pocketomega/pocket-flow/internal/llm/openai"
	"github.com/pocketomega/pocket-flow/internal/logging"
	"github.com/pocketomega/pocket-flow/internal/runstore"
	"github.com/pocketomega/pocket-flow/internal/telemetry"
	"github.com/pocketomega/pocket-flow/pkg/core"
)

const metricsNamespace = "pocketflow"

type globalFlags struct {
	configPath string
	logLevel   string
	envFile    string
}

func newRootCmd() *cobra.Command {
	var flags globalFlags
	cmd := &cobra.Command{
		Use:           "pocketflow",
		Short:         "Run PocketFlow cookbook recipes",
		Long:          `pocketflow runs graph workflows built on the PocketFlow engine: from the CLI, over HTTP, or as MCP tools.`,
		Version:       telemetry.Version(),
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	cmd.PersistentFlags().StringVar(&flags.configPath, "config", "", "YAML config file (default $"+config.EnvConfigFile+")")
	cmd.PersistentFlags().StringVar(&flags.logLevel, "log-level", "", "Log level override: debug, info, warn, error")
	cmd.PersistentFlags().StringVar(&flags.envFile, "env-file", "", "Explicit .env file to load")

	cmd.AddCommand(
		newListCmd(&flags),
		newRunCmd(&flags),
		newServeCmd(&flags),
		newMCPCmd(&flags),
	)
	return cmd
}

// app is everything a subcommand needs, built once from flags, .env and config.
type app struct {
	cfg       *config.Config
	envSource string
	logger    *zap.Logger
	provider  llm.Provider
	llmConfig *openai.Config // nil when no provider is configured
	registry  *cookbook.Registry
	env       cookbook.Env
	tracing   *telemetry.Providers
	gatherer  *prometheus.Registry
}

func setup(ctx context.Context, flags *globalFlags, out io.Writer) (*app, error) {
	var envPaths []string
	if flags.envFile != "" {
		envPaths = append(envPaths, flags.envFile)
	}
	envFile := config.LoadEnv(nil, envPaths...)

	cfg, err := config.Load(flags.configPath)
	if err != nil {
		return nil, err
	}
	if flags.logLevel != "" {
		cfg.Log.Level = flags.logLevel
	}

	logger, err := logging.New(cfg.Log)
	if err != nil {
		return nil, err
	}
	zap.ReplaceGlobals(logger)
	envSource := envFile
	if envSource == "" && flags.envFile == "" {
		envSource = config.EnvFilePath()
	}
	logger.Debug("environment", zap.String("env_file", envSource))

	var (
		provider  llm.Provider
		llmConfig *openai.Config
	)
	if openai.Configured() {
		client, err := openai.NewClientFromEnv()
		if err != nil {
			return nil, fmt.Errorf("init LLM client: %w", err)
		}
		provider, llmConfig = client, client.Config()
		logger.Info("LLM provider configured",
			zap.String("model", llmConfig.Model),
			zap.String("base_url", llmConfig.BaseURL),
		)
	} else {
		logger.Debug("LLM_API_KEY not set, summarize recipe disabled")
	}

	tracing, err := telemetry.InitTracing(ctx, cfg.Telemetry, logger)
	if err != nil {
		return nil, err
	}

	gatherer := prometheus.NewRegistry()
	gatherer.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	observer := core.MultiObserver(
		telemetry.NewMetrics(metricsNamespace, gatherer),
		telemetry.NewTracing(tracing.TracerProvider()),
	)

	return &app{
		cfg:       cfg,
		envSource: envSource,
		logger:    logger,
		provider:  provider,
		llmConfig: llmConfig,
		registry:  cookbook.Default(provider),
		env: cookbook.Env{
			Options:  cfg.Engine.Options(),
			Observer: observer,
			Logger:   logger,
			Out:      out,
			LLM:      provider,
		},
		tracing:  tracing,
		gatherer: gatherer,
	}, nil
}

// openStore returns the configured run store and its kind.
func (a *app) openStore() (runstore.Store, string) {
	sc := a.cfg.Store
	if sc.RedisAddr != "" {
		a.logger.Info("run records in redis", zap.String("addr", sc.RedisAddr), zap.Duration("ttl", sc.TTL))
		return runstore.NewRedis(sc.RedisAddr, sc.RedisPassword, sc.RedisDB, runstore.WithTTL(sc.TTL)), "redis"
	}
	return runstore.NewMemory(sc.MemoryCapacity), "memory"
}

func (a *app) close() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := a.tracing.Shutdown(ctx); err != nil {
		a.logger.Warn("tracing shutdown failed", zap.Error(err))
	}
	_ = a.logger.Sync()
}
