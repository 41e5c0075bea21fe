package main

import (
	"fmt"
	"strings"

	"github.com/aretw0/playground"
	"github.com/spf13/cobra"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version number of playground",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintf(cmd.OutOrStdout(), "playground version %s\n", strings.TrimSpace(playground.Version))
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
