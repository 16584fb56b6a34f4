package main

import (
	"fmt"
	"os"

	"github.com/ptab/wit/internal/cli"
	"github.com/spf13/cobra"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Start an interactive conversation",
	Long: `Reads messages from stdin and runs one conversation turn per line.
The session is persisted in the configured store and resumed with --session.`,
	Run: func(cmd *cobra.Command, args []string) {
		configPath, _ := cmd.Flags().GetString("config")
		debug, _ := cmd.Flags().GetBool("debug")
		store, _ := cmd.Flags().GetString("store")
		sessionID, _ := cmd.Flags().GetString("session")
		initial, _ := cmd.Flags().GetString("context")
		maxSteps, _ := cmd.Flags().GetInt("max-steps")
		fresh, _ := cmd.Flags().GetBool("fresh")

		err := cli.RunShell(cmd.Context(), cli.RunOptions{
			ConfigPath: configPath,
			SessionID:  sessionID,
			Context:    initial,
			MaxSteps:   maxSteps,
			Store:      store,
			Fresh:      fresh,
			Debug:      debug,
			In:         cmd.InOrStdin(),
			Out:        cmd.OutOrStdout(),
		})
		if err != nil {
			fmt.Printf("Error: %v\n", err)
			os.Exit(1)
		}
	},
}

func init() {
	rootCmd.AddCommand(runCmd)

	runCmd.Flags().StringP("session", "s", "", "Session ID to start or resume (random when empty)")
	runCmd.Flags().String("context", "", "Initial context as a JSON object")
	runCmd.Flags().Int("max-steps", 0, "Actions allowed per turn (0 uses the configured default)")
	runCmd.Flags().Bool("fresh", false, "Delete the stored session before starting")

	rootCmd.Flags().AddFlagSet(runCmd.Flags())
	rootCmd.Run = runCmd.Run
}
