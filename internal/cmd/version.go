package cmd

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		if outputFormat() == "table" {
			_, _ = fmt.Fprintln(cmd.OutOrStdout(), versionString())
			return nil
		}
		return json.NewEncoder(cmd.OutOrStdout()).Encode(map[string]string{
			"version":    versionInfo.Version,
			"commit":     versionInfo.Commit,
			"build_date": versionInfo.BuildDate,
		})
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
