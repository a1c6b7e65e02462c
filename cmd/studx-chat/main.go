package main

import (
	"fmt"
	"os"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"studx/client"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "studx-chat",
	Short: "Terminal client for StudX messages",
	Long: `studx-chat talks to the StudX API from the terminal.

Examples:
  studx-chat login --email arjun@campus.edu
  export STUDX_TOKEN=...
  studx-chat conversations --watch
  studx-chat start 65f1a2b3c4d5e6f7a8b9c0d1
  studx-chat chat 65f1a2b3c4d5e6f7a8b9c0d2`,
	SilenceUsage: true,
}

func init() {
	rootCmd.AddCommand(loginCmd)
	rootCmd.AddCommand(conversationsCmd)
	rootCmd.AddCommand(chatCmd)
	rootCmd.AddCommand(startCmd)
	rootCmd.AddCommand(deleteCmd)

	rootCmd.PersistentFlags().String("api", envOr("STUDX_API", "http://localhost:8080"), "API base URL")
	rootCmd.PersistentFlags().String("token", os.Getenv("STUDX_TOKEN"), "Bearer token (defaults to $STUDX_TOKEN)")
	rootCmd.PersistentFlags().BoolP("verbose", "v", false, "Log background poll failures")
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func newClient(cmd *cobra.Command, requireToken bool) (*client.Client, error) {
	api, _ := cmd.Flags().GetString("api")
	token, _ := cmd.Flags().GetString("token")
	if requireToken && token == "" {
		return nil, fmt.Errorf("no token: run `studx-chat login` and set STUDX_TOKEN or pass --token")
	}
	return client.New(api, token), nil
}

func newLogger(cmd *cobra.Command) zerolog.Logger {
	verbose, _ := cmd.Flags().GetBool("verbose")
	level := zerolog.InfoLevel
	if verbose {
		level = zerolog.DebugLevel
	}
	return zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).Level(level).With().Timestamp().Logger()
}
