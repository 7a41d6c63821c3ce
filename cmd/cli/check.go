package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/tinylink/urlshortener/cmd"
	"github.com/tinylink/urlshortener/internal/monitor"
)

var (
	checkInterval time.Duration
	checkTimeout  time.Duration
)

// CheckCmd represents the 'check' command.
var CheckCmd = &cobra.Command{
	Use:   "check",
	Short: "Checks that the targets of active links respond",
	Long: `Sends a HEAD request to the target of every active link and reports
which ones answer with a 2xx or 3xx status. With --interval the check repeats
and state changes are logged until interrupted.`,
	Args: cobra.NoArgs,
	RunE: func(c *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(c.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		linkRepo, err := cmd.OpenStore(ctx, false)
		if err != nil {
			return err
		}
		defer linkRepo.Close()

		checker := monitor.NewLinkChecker(linkRepo, cmd.Logger).WithTimeout(checkTimeout)
		if checkInterval > 0 {
			return checker.Watch(ctx, checkInterval)
		}
		return runCheckOnce(ctx, c, checker)
	},
}

func runCheckOnce(ctx context.Context, c *cobra.Command, checker *monitor.LinkChecker) error {
	results, err := checker.CheckAll(ctx)
	if err != nil {
		return err
	}

	w := tabwriter.NewWriter(c.OutOrStdout(), 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "CODE\tSTATE\tSTATUS\tTARGET")
	for _, res := range results {
		state := "ACCESSIBLE"
		if !res.Accessible {
			state = "INACCESSIBLE"
		}
		status := "-"
		if res.StatusCode != 0 {
			status = fmt.Sprint(res.StatusCode)
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", res.Code, state, status, res.Target)
	}
	return w.Flush()
}

func init() {
	CheckCmd.Flags().DurationVar(&checkInterval, "interval", 0, "repeat the check at this interval (e.g. 5m)")
	CheckCmd.Flags().DurationVar(&checkTimeout, "timeout", monitor.DefaultRequestTimeout, "timeout of each HEAD request")
	cmd.RootCmd.AddCommand(CheckCmd)
}
