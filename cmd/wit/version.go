package main

import (
	"fmt"

	"github.com/ptab/wit"
	"github.com/spf13/cobra"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version number",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintf(cmd.OutOrStdout(), "wit v%s\n", wit.Version)
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
