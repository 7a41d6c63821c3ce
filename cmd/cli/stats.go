package cli

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/tinylink/urlshortener/cmd"
	"github.com/tinylink/urlshortener/internal/models"
)

const timeLayout = "2006-01-02 15:04:05"

// StatsCmd represents the 'stats' command.
var StatsCmd = &cobra.Command{
	Use:   "stats [short-code]",
	Short: "Shows statistics for a short link",
	Long:  `Shows the target, click count and last click time of a short code, deleted or not.`,
	Args:  cobra.ExactArgs(1),
	RunE:  runStats,
}

func init() {
	cmd.RootCmd.AddCommand(StatsCmd)
}

func runStats(c *cobra.Command, args []string) error {
	linkRepo, err := cmd.OpenStore(c.Context(), false)
	if err != nil {
		return err
	}
	defer linkRepo.Close()

	link, err := cmd.NewLinkService(linkRepo).GetStats(c.Context(), args[0])
	if err != nil {
		return fmt.Errorf("failed to get statistics for %q: %w", args[0], err)
	}
	printLink(c.OutOrStdout(), link)
	return nil
}

func printLink(out io.Writer, link *models.Link) {
	fmt.Fprintf(out, "Code: %s\n", link.Code)
	fmt.Fprintf(out, "Target: %s\n", link.Target)
	fmt.Fprintf(out, "Total clicks: %d\n", link.TotalClicks)
	fmt.Fprintf(out, "Created at: %s\n", link.CreatedAt.Format(timeLayout))
	if link.LastClickedAt != nil {
		fmt.Fprintf(out, "Last clicked at: %s\n", link.LastClickedAt.Format(timeLayout))
	} else {
		fmt.Fprintln(out, "Last clicked at: never")
	}
	if link.State() == models.LinkDeleted {
		fmt.Fprintln(out, "State: deleted")
	}
}
