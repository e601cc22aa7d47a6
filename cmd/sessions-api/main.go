// Package main is the entry point for the Beamline Sessions API.
package main

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

// Version information (set at build time).
var (
	version   = "dev"
	buildTime = "unknown"
	gitCommit = "unknown"
)

func main() {
	// A local .env is a development convenience; absence is fine. It
	// must load before commands are built so flag defaults see it.
	_ = godotenv.Load()

	if err := newRootCommand().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// newRootCommand builds the sessions-api command tree.
func newRootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:   "sessions-api",
		Short: "Read-only GraphQL API over ISPyB beamline sessions",
		Long: `sessions-api serves beamline session and proposal records from an
ISPyB MySQL database over GraphQL. Every query field asks an external
policy decision service before any data is read.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.AddCommand(newServeCommand())
	root.AddCommand(newSchemaCommand())
	root.AddCommand(newVersionCommand())

	return root
}
