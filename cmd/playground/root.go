package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/aretw0/playground/internal/cli"
	"github.com/aretw0/playground/internal/config"
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "playground",
	Short: "Playground is a node-graph runner for Solana SDK calls",
	Long: `Playground wires Solana SDK calls into a dataflow graph.
Each node runs as soon as its inputs resolve and publishes its result to the nodes connected to it.`,
	SilenceUsage: true,
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	// Persistent flags (available to all commands)
	rootCmd.PersistentFlags().String("config", "", "Config file (default ./"+config.DefaultFile+" when present)")
	rootCmd.PersistentFlags().Bool("debug", false, "Enable debug logging")
	rootCmd.PersistentFlags().String("network", "", "Solana cluster (mainnet-beta, devnet, testnet, localnet) or RPC URL")
	rootCmd.PersistentFlags().String("store", "", "Playground store: memory, file or redis")
}

// loadConfig reads the configuration file and applies the persistent flag overrides.
func loadConfig(cmd *cobra.Command) (config.Config, error) {
	path, _ := cmd.Flags().GetString("config")
	cfg, err := config.Load(path)
	if err != nil {
		return cfg, err
	}

	if cmd.Flags().Changed("network") {
		cfg.Network, _ = cmd.Flags().GetString("network")
		cfg.RPCURL = ""
	}
	if cmd.Flags().Changed("store") {
		cfg.Store.Kind, _ = cmd.Flags().GetString("store")
	}
	return cfg, cfg.Validate()
}

// setup loads the configuration and creates the logger.
func setup(cmd *cobra.Command) (config.Config, *slog.Logger, error) {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return cfg, nil, err
	}
	debug, _ := cmd.Flags().GetBool("debug")
	logger := cli.NewLogger(cfg, debug)
	slog.SetDefault(logger)
	return cfg, logger, nil
}

// rpcNetwork is the endpoint graph commands run against.
func rpcNetwork(cfg config.Config) string {
	if cfg.RPCURL != "" {
		return cfg.RPCURL
	}
	return cfg.Network
}
