package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
	"gitlab.prplanit.com/precisionplanit/slipway/src/version"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the slipway version",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Println(version.String())
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
