package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "wit",
	Short: "wit runs conversations against the wit.ai converse API",
	Long: `wit drives wit.ai conversations from the terminal, over HTTP or through MCP.
Actions can be bound to local commands in wit.yaml.`,
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
	rootCmd.PersistentFlags().StringP("config", "c", "", "Config file (default ./wit.yaml when present)")
	rootCmd.PersistentFlags().Bool("debug", false, "Enable debug logging and lifecycle tracing")
	rootCmd.PersistentFlags().String("store", "", "Session store backend: memory, file or redis")
}
