package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/tinylink/urlshortener/cmd"
)

// DeleteCmd represents the 'delete' command.
var DeleteCmd = &cobra.Command{
	Use:   "delete [short-code]",
	Short: "Deletes a short link",
	Long:  `Marks the link as deleted. It stops redirecting but its statistics stay available.`,
	Args:  cobra.ExactArgs(1),
	RunE: func(c *cobra.Command, args []string) error {
		linkRepo, err := cmd.OpenStore(c.Context(), true)
		if err != nil {
			return err
		}
		defer linkRepo.Close()

		if err := cmd.NewLinkService(linkRepo).DeleteLink(c.Context(), args[0]); err != nil {
			return fmt.Errorf("failed to delete %q: %w", args[0], err)
		}
		fmt.Fprintf(c.OutOrStdout(), "Link %s deleted.\n", args[0])
		return nil
	},
}

func init() {
	cmd.RootCmd.AddCommand(DeleteCmd)
}
