package main

import (
	"fmt"

	"github.com/aretw0/playground"
	"github.com/aretw0/playground/pkg/codec"
	"github.com/spf13/cobra"
)

var validateCmd = &cobra.Command{
	Use:   "validate <graph-file>...",
	Short: "Check graph files for wiring errors",
	Long: `Checks that every node has a known kind and valid params, and that edges
target existing slots without fan-in or cycles. Nothing is executed.`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, logger, err := setup(cmd)
		if err != nil {
			return err
		}
		reg, err := playground.DefaultRegistry(rpcNetwork(cfg), logger)
		if err != nil {
			return err
		}

		failed := 0
		for _, path := range args {
			g, err := codec.ReadGraph(path)
			if err == nil {
				err = playground.Validate(g, reg)
			}
			if err != nil {
				fmt.Fprintf(cmd.OutOrStdout(), "%s: %v\n", path, err)
				failed++
				continue
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s: ok (%d nodes, %d edges)\n", path, len(g.Nodes), len(g.Edges))
		}
		if failed > 0 {
			return fmt.Errorf("validation failed for %d of %d file(s)", failed, len(args))
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(validateCmd)
}
