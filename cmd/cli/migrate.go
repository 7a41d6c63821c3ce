package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/tinylink/urlshortener/cmd"
)

// MigrateCmd represents the 'migrate' command.
var MigrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Creates or updates the link store schema.",
	Long: `Connects to the configured store and creates the links table (SQL) or
the links collection indexes (MongoDB), including the unique index on codes.`,
	RunE: func(c *cobra.Command, args []string) error {
		linkRepo, err := cmd.OpenStore(c.Context(), false)
		if err != nil {
			return err
		}
		defer linkRepo.Close()

		if err := linkRepo.Migrate(c.Context()); err != nil {
			return fmt.Errorf("failed to migrate link store: %w", err)
		}
		fmt.Fprintln(c.OutOrStdout(), "Database migrations executed successfully.")
		return nil
	},
}

func init() {
	cmd.RootCmd.AddCommand(MigrateCmd)
}
