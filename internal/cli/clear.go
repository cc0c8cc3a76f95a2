package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"
)

func newClearCmd(a *app) *cobra.Command {
	var force bool

	cmd := &cobra.Command{
		Use:   "clear",
		Short: "Remove every diary entry",
		Long: `Remove every diary entry from the local store and, when it is
reachable, the primary store.

Examples:
  diaryctl clear
  diaryctl clear --force`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()

			if !force {
				ok, err := confirm(cmd.InOrStdin(), out, "About to delete ALL diary entries")
				if err != nil {
					return err
				}
				if !ok {
					fmt.Fprintln(out, "Cancelled.")
					return nil
				}
			}

			var errs []error
			for _, wipe := range a.clearers {
				errs = append(errs, wipe(cmd.Context()))
			}
			if err := errors.Join(errs...); err != nil {
				return fmt.Errorf("clear entries: %w", err)
			}

			fmt.Fprintln(out, "All diary entries removed.")
			return nil
		},
	}

	cmd.Flags().BoolVarP(&force, "force", "f", false, "skip confirmation")
	return cmd
}
