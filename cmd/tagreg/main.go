// Tagreg is a build-time utility that assigns stable UUIDs to named
// program entities — types and arbitrary string tags — and records the
// assignment in a project-local TOML store so identifiers survive
// recompilation.
//
// Usage:
//
//	tagreg [command] [flags]
//
// Typical use is from build scripts or go:generate directives:
//
//	//go:generate tagreg generate .
//
// See 'tagreg --help' for available commands.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/muurk/tagreg/internal/logging"
	"github.com/muurk/tagreg/internal/version"
)

func main() {
	if err := logging.InitializeFromEnv(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	defer logging.Sync()

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "tagreg",
	Short: "Stable entity tag registry",
	Long: `A build-time registry assigning stable UUIDs to named entities.

Each distinct key (a type name or a custom tag string) receives one
random v4 UUID on first resolution, recorded in a TOML store committed
with the project. Later resolutions — in any build, on any machine —
return the recorded value.

The store is found through tagreg.yaml (searched upward from the
working directory) or defaults to tags.toml.`,
	Version:       version.Version,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	// Disable automatic completion command generation
	rootCmd.CompletionOptions.DisableDefaultCmd = true

	rootCmd.AddCommand(versionCmd)
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("tagreg %s (commit: %s)\n", version.Version, version.Commit)
	},
}
