package main

import (
	"context"
	"fmt"

	"github.com/aretw0/playground"
	"github.com/aretw0/playground/internal/cli"
	"github.com/aretw0/playground/internal/presentation/graph"
	"github.com/aretw0/playground/pkg/codec"
	"github.com/spf13/cobra"
)

// graphCmd represents the graph command
var graphCmd = &cobra.Command{
	Use:   "graph <graph-file>",
	Short: "Export the graph as a Mermaid diagram",
	Long: `Reads a graph file and prints a Mermaid diagram (graph LR).
With --run the graph is executed first and node statuses are drawn on the diagram.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, logger, err := setup(cmd)
		if err != nil {
			return err
		}
		run, _ := cmd.Flags().GetBool("run")
		timeout, _ := cmd.Flags().GetDuration("timeout")

		g, err := codec.ReadGraph(args[0])
		if err != nil {
			return err
		}
		if !run {
			fmt.Fprint(cmd.OutOrStdout(), graph.GenerateMermaid(g, nil))
			return nil
		}

		eng, err := playground.New(
			playground.WithLogger(logger),
			playground.WithNetwork(rpcNetwork(cfg)),
			playground.WithGraph(g),
		)
		if err != nil {
			return err
		}
		defer eng.Close()

		ctx, cancel := context.WithTimeout(cmd.Context(), timeout)
		defer cancel()
		if err := eng.Settle(ctx); err != nil {
			logger.Warn("Graph did not settle, drawing partial state", "err", err)
		}
		fmt.Fprint(cmd.OutOrStdout(), graph.GenerateMermaid(eng.Snapshot(), graph.OverlayFromResults(eng.Results())))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(graphCmd)

	graphCmd.Flags().Bool("run", false, "Run the graph and overlay node statuses")
	graphCmd.Flags().Duration("timeout", cli.DefaultTimeout, "Maximum time to wait when --run is set")
}
