package cli

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/zhouzirui/ai-diary/backend/internal/model/chat"
	"github.com/zhouzirui/ai-diary/backend/internal/model/diary"
)

type entryFrontmatter struct {
	ID        string    `yaml:"id"`
	Date      string    `yaml:"date"`
	Emotion   string    `yaml:"emotion"`
	Emoji     string    `yaml:"emoji"`
	ImageRef  string    `yaml:"imageRef"`
	CreatedAt time.Time `yaml:"createdAt"`
}

func newExportCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "export <path>",
		Short: "Export diary entries to Markdown files",
		Long: `Export every diary entry as a Markdown file with YAML frontmatter.

Files are named <date>-<id>.md and hold the summary followed by the
conversation it was written from.

Examples:
  diaryctl export ./backup`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			exportPath := args[0]
			out := cmd.OutOrStdout()

			entries, err := a.entries.List(cmd.Context())
			if err != nil {
				return fmt.Errorf("list entries: %w", err)
			}
			if len(entries) == 0 {
				fmt.Fprintln(out, "No entries to export.")
				return nil
			}

			if err := os.MkdirAll(exportPath, 0o755); err != nil {
				return fmt.Errorf("create export directory: %w", err)
			}

			for _, e := range entries {
				content, err := renderEntry(e)
				if err != nil {
					return fmt.Errorf("render entry %s: %w", e.ID, err)
				}
				name := filepath.Join(exportPath, fmt.Sprintf("%s-%s.md", e.Date, e.ID))
				if err := os.WriteFile(name, content, 0o644); err != nil {
					return fmt.Errorf("write %s: %w", name, err)
				}
			}

			fmt.Fprintf(out, "Exported %d entries to %s\n", len(entries), exportPath)
			return nil
		},
	}
}

func renderEntry(e diary.Entry) ([]byte, error) {
	fm, err := yaml.Marshal(entryFrontmatter{
		ID:        e.ID,
		Date:      e.Date,
		Emotion:   e.Emotion,
		Emoji:     e.Emoji(),
		ImageRef:  e.ImageRef,
		CreatedAt: e.CreatedAt,
	})
	if err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	buf.WriteString("---\n")
	buf.Write(fm)
	buf.WriteString("---\n\n")
	fmt.Fprintf(&buf, "# %s %s\n\n", e.Date, e.Emoji())
	buf.WriteString(e.Summary)
	buf.WriteString("\n\n## Conversation\n\n")
	for _, t := range e.Turns {
		who := "AI"
		if t.Speaker == chat.SpeakerUser {
			who = "Me"
		}
		fmt.Fprintf(&buf, "- **%s:** %s\n", who, t.Text)
	}
	return buf.Bytes(), nil
}
