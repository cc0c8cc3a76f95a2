package cli

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/zhouzirui/ai-diary/backend/internal/model/diary"
)

func newDeleteCmd(a *app) *cobra.Command {
	var force bool

	cmd := &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete a diary entry",
		Long: `Delete a diary entry from every store that holds it.

Requires confirmation unless --force is used.

Examples:
  diaryctl delete 01JB2X4Z5Q8N3K7M9P0R1S2T3V
  diaryctl delete 01JB2X4Z5Q8N3K7M9P0R1S2T3V --force`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id := args[0]
			out := cmd.OutOrStdout()

			if !force {
				ok, err := confirm(cmd.InOrStdin(), out, fmt.Sprintf("About to delete entry %s", id))
				if err != nil {
					return err
				}
				if !ok {
					fmt.Fprintln(out, "Cancelled.")
					return nil
				}
			}

			if err := a.entries.Delete(cmd.Context(), id); err != nil {
				if errors.Is(err, diary.ErrEntryNotFound) {
					return fmt.Errorf("entry not found: %s", id)
				}
				return fmt.Errorf("delete entry: %w", err)
			}

			fmt.Fprintf(out, "Deleted: %s\n", id)
			return nil
		},
	}

	cmd.Flags().BoolVarP(&force, "force", "f", false, "skip confirmation")
	return cmd
}

func confirm(in io.Reader, out io.Writer, prompt string) (bool, error) {
	fmt.Fprintln(out, prompt)
	fmt.Fprint(out, "\nContinue? [y/N]: ")

	response, err := bufio.NewReader(in).ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return false, fmt.Errorf("read input: %w", err)
	}
	response = strings.TrimSpace(strings.ToLower(response))
	return response == "y" || response == "yes", nil
}
