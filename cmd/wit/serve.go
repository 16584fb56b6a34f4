package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/ptab/wit/internal/cli"
	"github.com/spf13/cobra"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP API",
	Long:  `Exposes message, converse and session endpoints over HTTP, with SSE diffs and Prometheus metrics.`,
	Run: func(cmd *cobra.Command, args []string) {
		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		if err := cli.Serve(ctx, serveOptions(cmd)); err != nil {
			fmt.Printf("Error: %v\n", err)
			os.Exit(1)
		}
	},
}

func serveOptions(cmd *cobra.Command) cli.ServeOptions {
	configPath, _ := cmd.Flags().GetString("config")
	debug, _ := cmd.Flags().GetBool("debug")
	store, _ := cmd.Flags().GetString("store")
	port, _ := cmd.Flags().GetInt("port")
	return cli.ServeOptions{
		ConfigPath: configPath,
		Store:      store,
		Port:       port,
		Debug:      debug,
	}
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().IntP("port", "p", 8080, "Port to listen on")
}
