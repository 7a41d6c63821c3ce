package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/tinylink/urlshortener/cmd"
)

var (
	targetURLFlag  string
	customCodeFlag string
)

// CreateCmd represents the 'create' command.
var CreateCmd = &cobra.Command{
	Use:   "create",
	Short: "Creates a short link for a long URL.",
	Long: `Shortens the given URL and prints the short code.

Examples:
  urlshortener create --url="https://go.dev/doc/effective_go"
  urlshortener create --url="https://go.dev" --code=GoDev1`,
	RunE: func(c *cobra.Command, args []string) error {
		linkRepo, err := cmd.OpenStore(c.Context(), false)
		if err != nil {
			return err
		}
		defer linkRepo.Close()

		linkService := cmd.NewLinkService(linkRepo)
		link, err := linkService.CreateLink(c.Context(), targetURLFlag, customCodeFlag)
		if err != nil {
			return fmt.Errorf("failed to create short link: %w", err)
		}

		shortPath, shortURL := linkService.ShortLink(link.Code, fmt.Sprintf("http://localhost:%d", cmd.Cfg.Server.Port))
		out := c.OutOrStdout()
		fmt.Fprintln(out, "Short link created:")
		fmt.Fprintf(out, "Code: %s\n", link.Code)
		fmt.Fprintf(out, "Path: %s\n", shortPath)
		fmt.Fprintf(out, "URL: %s\n", shortURL)
		return nil
	},
}

func init() {
	CreateCmd.Flags().StringVar(&targetURLFlag, "url", "", "The long URL to shorten")
	CreateCmd.Flags().StringVar(&customCodeFlag, "code", "", "Custom short code (6-8 letters or digits)")
	_ = CreateCmd.MarkFlagRequired("url")

	cmd.RootCmd.AddCommand(CreateCmd)
}
