package main

import (
	"fmt"
	"io"
	"os"

	"github.com/SherClockHolmes/webpush-go"
	"github.com/spf13/cobra"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "vapidgen",
	Short: "Generate a VAPID key pair for StudX web push",
	Long: `vapidgen prints a fresh VAPID key pair as .env lines.

  vapidgen --subscriber mailto:ops@studx.app >> .env`,
	SilenceUsage: true,
	RunE: func(cmd *cobra.Command, _ []string) error {
		subscriber, _ := cmd.Flags().GetString("subscriber")
		return writeKeys(cmd.OutOrStdout(), subscriber)
	},
}

func init() {
	rootCmd.Flags().String("subscriber", "mailto:admin@studx.app", "Contact URI sent to push services")
}

func writeKeys(w io.Writer, subscriber string) error {
	privateKey, publicKey, err := webpush.GenerateVAPIDKeys()
	if err != nil {
		return fmt.Errorf("generate VAPID keys: %w", err)
	}

	_, err = fmt.Fprintf(w, "PUSH_ENABLED=true\nVAPID_PUBLIC_KEY=%s\nVAPID_PRIVATE_KEY=%s\nVAPID_SUBSCRIBER=%s\n",
		publicKey, privateKey, subscriber)
	return err
}
