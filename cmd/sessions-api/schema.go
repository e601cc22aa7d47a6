package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/lightsource/sessions-api/internal/graph"
)

func newSchemaCommand() *cobra.Command {
	var path string

	cmd := &cobra.Command{
		Use:     "schema",
		Short:   "Print the GraphQL schema definition",
		Long:    "Prints the schema SDL without touching the database or the policy endpoint, for schema compatibility checks in CI.",
		Example: "  sessions-api schema > schema.graphql",
		RunE: func(cmd *cobra.Command, args []string) error {
			// Building the schema type-checks every resolver method
			// against the SDL; nil dependencies are never called.
			if _, err := graph.NewSchema(graph.NewRootResolver(nil, nil)); err != nil {
				return fmt.Errorf("schema does not validate: %w", err)
			}

			if path == "" {
				fmt.Fprint(cmd.OutOrStdout(), graph.Schema)
				return nil
			}

			if err := os.WriteFile(path, []byte(graph.Schema), 0o644); err != nil {
				return fmt.Errorf("write schema: %w", err)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&path, "path", "", "Write the schema to a file instead of stdout")

	return cmd
}
