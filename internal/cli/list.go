package cli

import (
	"fmt"

	"github.com/samber/lo"
	"github.com/spf13/cobra"
)

func newListCmd(a *app) *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List diary entries, newest first",
		Long: `List saved diary entries ordered by date, newest first.

Examples:
  diaryctl list
  diaryctl list --limit 7
  diaryctl list -v`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			entries, err := a.entries.List(cmd.Context())
			if err != nil {
				return fmt.Errorf("list entries: %w", err)
			}

			out := cmd.OutOrStdout()
			if len(entries) == 0 {
				fmt.Fprintln(out, "No diary entries found.")
				return nil
			}
			if limit > 0 {
				entries = lo.Slice(entries, 0, limit)
			}

			fmt.Fprintf(out, "Entries (%d):\n\n", len(entries))
			for _, e := range entries {
				fmt.Fprintf(out, "- %s %s %s [%s]\n", e.Date, e.Emoji(), e.Emotion, e.ID)
				if a.verbose {
					fmt.Fprintf(out, "  %s\n", e.Summary)
					fmt.Fprintf(out, "  Image: %s\n", e.ImageRef)
				}
			}
			return nil
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", 0, "max results (0 = all)")
	return cmd
}
