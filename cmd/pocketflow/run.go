package main

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/pocketomega/pocket-flow/internal/cookbook"
)

func newRunCmd(flags *globalFlags) *cobra.Command {
	var (
		inputJSON string
		sets      []string
	)
	cmd := &cobra.Command{
		Use:   "run <recipe>",
		Short: "Run a recipe and print its output as JSON",
		Example: `  pocketflow run branch --set value=-5
  pocketflow run double --input '{"values": [4, 5, 6]}'`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			in, err := parseInput(inputJSON, sets)
			if err != nil {
				return err
			}

			a, err := setup(cmd.Context(), flags, cmd.OutOrStdout())
			if err != nil {
				return err
			}
			defer a.close()

			out, err := a.registry.Run(cmd.Context(), args[0], a.env, in)
			if err != nil {
				return err
			}
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(out)
		},
	}
	cmd.Flags().StringVar(&inputJSON, "input", "", "Recipe input as a JSON object")
	cmd.Flags().StringArrayVar(&sets, "set", nil, "Set one input key: key=value (value parsed as JSON, else taken as a string)")
	return cmd
}

// parseInput merges --input with the --set overrides; --set wins.
func parseInput(inputJSON string, sets []string) (cookbook.Input, error) {
	in := cookbook.Input{}
	if strings.TrimSpace(inputJSON) != "" {
		if err := json.Unmarshal([]byte(inputJSON), &in); err != nil {
			return nil, fmt.Errorf("--input must be a JSON object: %w", err)
		}
		if in == nil {
			in = cookbook.Input{}
		}
	}
	for _, kv := range sets {
		key, raw, ok := strings.Cut(kv, "=")
		if !ok || key == "" {
			return nil, fmt.Errorf("--set %q: want key=value", kv)
		}
		var v any
		if err := json.Unmarshal([]byte(raw), &v); err != nil {
			v = raw
		}
		in[key] = v
	}
	return in, nil
}
