package main

import (
	"encoding/hex"
	"fmt"

	"github.com/gorilla/securecookie"
	"github.com/spf13/cobra"
)

func newSessionKeyCmd() *cobra.Command {
	var size int
	cmd := &cobra.Command{
		Use:   "session-key",
		Short: "Print a random value for STUDYHUB_SESSION_KEY",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if size < 16 {
				return fmt.Errorf("--bytes must be at least 16")
			}
			key := securecookie.GenerateRandomKey(size)
			if key == nil {
				return fmt.Errorf("no randomness available")
			}
			fmt.Fprintln(cmd.OutOrStdout(), hex.EncodeToString(key))
			return nil
		},
	}
	cmd.Flags().IntVar(&size, "bytes", 32, "random bytes before hex encoding")
	return cmd
}
