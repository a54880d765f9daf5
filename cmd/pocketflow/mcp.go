package main

import (
	"github.com/spf13/cobra"

	"github.com/pocketomega/pocket-flow/internal/mcp"
	"github.com/pocketomega/pocket-flow/internal/runstore"
	"github.com/pocketomega/pocket-flow/internal/telemetry"
)

func newMCPCmd(flags *globalFlags) *cobra.Command {
	var record bool
	cmd := &cobra.Command{
		Use:   "mcp",
		Short: "Serve the recipes as MCP tools over stdio",
		Long: `Starts an MCP server on stdin/stdout. Every recipe is a tool named
recipe_<name>; list_recipes describes them. With --record, list_runs and
get_run read back the saved runs. Logs go to stderr.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			// Stdout carries JSON-RPC; recipe output goes to stderr.
			a, err := setup(cmd.Context(), flags, cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			defer a.close()

			var store runstore.Store
			if record {
				s, _ := a.openStore()
				store = s
				if r, ok := s.(*runstore.Redis); ok {
					defer r.Close()
				}
			}
			return mcp.NewServer(a.registry, a.env, store, telemetry.Version()).ServeStdio()
		},
	}
	cmd.Flags().BoolVar(&record, "record", false, "Save a run record for every tool call and expose list_runs/get_run")
	return cmd
}
