package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// Version information (injected at build time via ldflags).
var (
	AppVersion = "development"
	BuildTime  = "unknown"
	GitCommit  = "unknown"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Show version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("vyom %s\n", AppVersion)
		fmt.Printf("Build Time: %s\n", BuildTime)
		fmt.Printf("Git Commit: %s\n", GitCommit)
		fmt.Println()

		// Report which backend keys are present without echoing them.
		for _, envVar := range []string{"GROQ_API_KEY", "GEMINI_API_KEY", "HF_API_TOKEN"} {
			if os.Getenv(envVar) != "" {
				fmt.Printf("  %s: configured\n", envVar)
			} else {
				fmt.Printf("  %s: not set\n", envVar)
			}
		}
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
