package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/ptab/wit/internal/cli"
	"github.com/spf13/cobra"
)

var messageCmd = &cobra.Command{
	Use:   "message <text>...",
	Short: "Print the meaning extracted from a sentence",
	Args:  cobra.MinimumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		configPath, _ := cmd.Flags().GetString("config")
		debug, _ := cmd.Flags().GetBool("debug")
		c, _ := cmd.Flags().GetString("context")

		err := cli.Message(cmd.Context(), cli.MessageOptions{
			ConfigPath: configPath,
			Text:       strings.Join(args, " "),
			Context:    c,
			Debug:      debug,
			Out:        cmd.OutOrStdout(),
		})
		if err != nil {
			fmt.Printf("Error: %v\n", err)
			os.Exit(1)
		}
	},
}

func init() {
	rootCmd.AddCommand(messageCmd)
	messageCmd.Flags().String("context", "", "Context as a JSON object")
}
