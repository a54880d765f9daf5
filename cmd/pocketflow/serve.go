package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/pocketomega/pocket-flow/internal/runstore"
	"github.com/pocketomega/pocket-flow/internal/web"
)

func newServeCmd(flags *globalFlags) *cobra.Command {
	var addr string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the recipes over HTTP",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			a, err := setup(ctx, flags, cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			defer a.close()

			httpCfg := a.cfg.HTTP
			if addr != "" {
				httpCfg.Addr = addr
			}
			store, kind := a.openStore()
			if r, ok := store.(*runstore.Redis); ok {
				defer r.Close()
			}

			var model, baseURL string
			if a.llmConfig != nil {
				model, baseURL = a.llmConfig.Model, a.llmConfig.BaseURL
			}
			srv := web.NewServer(web.Options{
				Config:   httpCfg,
				Registry: a.registry,
				Env:      a.env,
				Store:    store,
				Health: web.HealthInfo{
					LLMModel:    model,
					LLMBaseURL:  baseURL,
					RecipeCount: len(a.registry.List()),
					StoreKind:   kind,
					StorePing:   storePing(store),
					Tracing:     a.tracing.Enabled(),
				},
				Gatherer: a.gatherer,
				Logger:   a.logger,
			})
			a.logger.Info("PocketFlow server starting",
				zap.String("addr", httpCfg.Addr),
				zap.String("env_file", a.envSource),
				zap.String("store", kind),
				zap.String("llm_model", model),
			)
			return srv.Start(ctx)
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "Listen address override, e.g. :9090")
	return cmd
}

func storePing(store runstore.Store) func(context.Context) error {
	r, ok := store.(*runstore.Redis)
	if !ok {
		return nil
	}
	return r.Ping
}
