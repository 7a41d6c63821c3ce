package cli

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/tinylink/urlshortener/cmd"
)

// ListCmd represents the 'list' command.
var ListCmd = &cobra.Command{
	Use:   "list",
	Short: "Lists active short links, newest first",
	Args:  cobra.NoArgs,
	RunE: func(c *cobra.Command, args []string) error {
		linkRepo, err := cmd.OpenStore(c.Context(), false)
		if err != nil {
			return err
		}
		defer linkRepo.Close()

		links, err := cmd.NewLinkService(linkRepo).ListLinks(c.Context())
		if err != nil {
			return fmt.Errorf("failed to list links: %w", err)
		}

		w := tabwriter.NewWriter(c.OutOrStdout(), 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "CODE\tCLICKS\tCREATED\tTARGET")
		for _, link := range links {
			fmt.Fprintf(w, "%s\t%d\t%s\t%s\n", link.Code, link.TotalClicks, link.CreatedAt.Format(timeLayout), link.Target)
		}
		return w.Flush()
	},
}

func init() {
	cmd.RootCmd.AddCommand(ListCmd)
}
