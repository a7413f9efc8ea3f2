package cmd

import (
	"fmt"

	"github.com/All-Rated-Extreme-Demon-List/AREDL-Manager-V4/listbot"
	"github.com/spf13/cobra"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version of the application",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf(
			"version=%s commit=%s built: %s\n",
			listbot.Version,
			listbot.CommitSHA,
			listbot.BuildTime,
		)
	},
}

//nolint:gochecknoinits // cobra wiring
func init() {
	rootCmd.AddCommand(versionCmd)
}
