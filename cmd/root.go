// Package cmd defines the command line interface.
package cmd

import (
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "vyom",
	Short: "vyom - multi-feature AI assistant server",
	Long: `vyom hosts a set of AI assistant features behind one HTTP JSON API:
text chat, image chat, PDF question answering, text-to-image,
text-to-audio, audio classification and QR code generation.

Every user's conversations are kept in per-feature session logs on
local disk. Run "vyom serve" to start the server.`,
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}
