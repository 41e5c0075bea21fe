package main

import (
	"context"
	"fmt"

	"github.com/aretw0/playground/internal/cli"
	"github.com/spf13/cobra"
)

// runCmd represents the run command
var runCmd = &cobra.Command{
	Use:   "run <graph-file>",
	Short: "Run a graph file until it settles",
	Long: `Loads a graph from a .yaml or .json file, runs every node whose inputs resolve
and prints the results. With --watch the file is reloaded on change.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, logger, err := setup(cmd)
		if err != nil {
			return err
		}

		opts := cli.RunOptions{
			GraphPath: args[0],
			Network:   rpcNetwork(cfg),
			Output:    cmd.OutOrStdout(),
		}
		opts.Timeout, _ = cmd.Flags().GetDuration("timeout")
		opts.JSON, _ = cmd.Flags().GetBool("json")
		opts.Watch, _ = cmd.Flags().GetBool("watch")
		opts.Debug, _ = cmd.Flags().GetBool("debug")

		if opts.Watch && opts.JSON {
			return fmt.Errorf("--watch and --json cannot be used together")
		}

		ctx := cli.NewSignalContext(context.Background())
		defer ctx.Cancel()
		err = cli.Run(ctx, opts, logger)
		ctx.LogStop(logger)
		return err
	},
}

func init() {
	rootCmd.AddCommand(runCmd)

	runCmd.Flags().Duration("timeout", cli.DefaultTimeout, "Maximum time to wait for the graph to settle")
	runCmd.Flags().Bool("json", false, "Print the graph and results as JSON")
	runCmd.Flags().BoolP("watch", "w", false, "Re-run when the graph file changes")
}
