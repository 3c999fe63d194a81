package cli

import (
	"github.com/spf13/cobra"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version number",
	// Overrides root setup: printing the version needs no config.
	PersistentPreRun: func(*cobra.Command, []string) {},
	Run: func(cmd *cobra.Command, _ []string) {
		cmd.Printf("ragsample version %s\n", version)
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
