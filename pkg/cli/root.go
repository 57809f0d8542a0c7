// Package cli implements the mimicd command-line interface.
package cli

import (
	"github.com/spf13/cobra"
)

// Version is stamped at build time via ldflags.
var Version = "dev"

var rootCmd = &cobra.Command{
	Use:   "mimicd",
	Short: "Configuration-driven mock HTTP server",
	Long: `mimicd serves realistic mock APIs described in JSON or YAML:
endpoints, ordered conditional responses, template-substituted bodies,
auth rules, and optional Redis-backed stateful CRUD simulation.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute runs the CLI and returns the process exit error, if any.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(validateCmd)
	rootCmd.AddCommand(versionCmd)
}
