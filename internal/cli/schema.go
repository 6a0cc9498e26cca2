package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"bookledger/internal/storage"
)

// NewSchemaCommand creates the schema command.
func NewSchemaCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "schema",
		Short: "Create the database tables if they do not exist",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := rootOpts.loadConfig()
			if err != nil {
				return err
			}

			db, err := storage.Open(cmd.Context(), cfg.Database.Storage())
			if err != nil {
				return err
			}
			defer db.Close()

			if err := db.ApplySchema(cmd.Context()); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "schema applied (%s)\n", db.Driver())
			return nil
		},
	}
}
