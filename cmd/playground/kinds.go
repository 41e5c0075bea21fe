package main

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"text/tabwriter"

	"github.com/aretw0/playground"
	"github.com/spf13/cobra"
)

var kindsCmd = &cobra.Command{
	Use:   "kinds",
	Short: "List the node kinds available to graphs",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, logger, err := setup(cmd)
		if err != nil {
			return err
		}
		reg, err := playground.DefaultRegistry(rpcNetwork(cfg), logger)
		if err != nil {
			return err
		}

		if asJSON, _ := cmd.Flags().GetBool("json"); asJSON {
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(reg.Kinds())
		}

		tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
		fmt.Fprintln(tw, "KIND\tTITLE\tINPUTS\tPARAMS")
		for _, t := range reg.Kinds() {
			inputs := make([]string, 0, len(t.Inputs))
			for _, s := range t.Inputs {
				inputs = append(inputs, s.Name)
			}
			params := make([]string, 0, len(t.Params))
			for name := range t.Params {
				params = append(params, name)
			}
			sort.Strings(params)
			fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", t.Kind, t.Title, join(inputs), join(params))
		}
		return tw.Flush()
	},
}

func join(s []string) string {
	if len(s) == 0 {
		return "-"
	}
	return strings.Join(s, ",")
}

func init() {
	rootCmd.AddCommand(kindsCmd)
	kindsCmd.Flags().Bool("json", false, "Print kinds as JSON")
}
