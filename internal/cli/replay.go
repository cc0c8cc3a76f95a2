package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/zhouzirui/ai-diary/backend/internal/config"
	"github.com/zhouzirui/ai-diary/backend/internal/model/chat"
	chatservice "github.com/zhouzirui/ai-diary/backend/internal/service/chat"
	diaryservice "github.com/zhouzirui/ai-diary/backend/internal/service/diary"
)

// Transcript is a recorded conversation in YAML.
//
//	greeting: "How was your day?"
//	turns:
//	  - speaker: user
//	    text: I went hiking
//	  - speaker: assistant
//	    text: That sounds lovely!
type Transcript struct {
	Greeting string      `yaml:"greeting"`
	Turns    []chat.Turn `yaml:"turns"`
}

func loadTranscript(path string) (Transcript, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return Transcript{}, fmt.Errorf("read transcript: %w", err)
	}
	var t Transcript
	if err := yaml.Unmarshal(raw, &t); err != nil {
		return Transcript{}, fmt.Errorf("parse transcript: %w", err)
	}
	for i, turn := range t.Turns {
		if !turn.Speaker.Valid() {
			return Transcript{}, fmt.Errorf("turn %d: unknown speaker %q", i+1, turn.Speaker)
		}
	}
	return t, nil
}

func newReplayCmd(a *app) *cobra.Command {
	var (
		live   bool
		dryRun bool
	)

	cmd := &cobra.Command{
		Use:   "replay <transcript.yaml>",
		Short: "Run a recorded conversation through the diary pipeline",
		Long: `Replay a YAML transcript and save the resulting diary entry.

With --live (the default) only the user turns are replayed and the
companion answers each one, as in a real conversation. With --live=false
the transcript's turns are used as recorded.

Examples:
  diaryctl replay testdata/hiking.yaml
  diaryctl replay --live=false --dry-run testdata/hiking.yaml`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			out := cmd.OutOrStdout()

			transcript, err := loadTranscript(args[0])
			if err != nil {
				return err
			}

			assistant, illustrate, err := a.requireAssistant(ctx)
			if err != nil {
				return err
			}

			sessionOpts := chatservice.Options{Greeting: config.DefaultGreeting}
			if a.cfg != nil {
				sessionOpts.Greeting = a.cfg.Diary.Greeting
				sessionOpts.MaxTurnLength = a.cfg.Diary.MaxTurnLength
			}
			if transcript.Greeting != "" {
				sessionOpts.Greeting = transcript.Greeting
			}
			sessions := chatservice.NewService(sessionOpts)
			session, err := sessions.CreateSession(ctx)
			if err != nil {
				return err
			}

			for _, turn := range transcript.Turns {
				switch {
				case live && turn.Speaker == chat.SpeakerUser:
					_, reply, err := sessions.Exchange(ctx, session.ID, turn.Text, assistant)
					if err != nil {
						return err
					}
					fmt.Fprintf(out, "Me: %s\nAI: %s\n", turn.Text, reply.Text)
				case !live:
					if _, err := sessions.AppendTurn(ctx, session.ID, chat.Turn{Speaker: turn.Speaker, Text: turn.Text}); err != nil {
						return err
					}
				}
			}

			pipelineOpts := diaryservice.PipelineOptions{Logger: a.logger}
			if a.cfg != nil {
				pipelineOpts.MinUserTurns = a.cfg.Diary.MinUserTurns
				pipelineOpts.MinTurns = a.cfg.Diary.MinTurns
				pipelineOpts.Location = a.cfg.Diary.Location
			}
			store := a.entries
			if dryRun {
				store = discardStore{}
			}
			pipeline := diaryservice.NewPipeline(assistant, assistant, illustrate, store, pipelineOpts)

			entry, err := pipeline.FinalizeSession(ctx, sessions, session.ID, false, func(stage diaryservice.Stage) {
				fmt.Fprintf(cmd.ErrOrStderr(), "... %s\n", stage)
			})
			if err != nil {
				return fmt.Errorf("finalize: %w", err)
			}

			fmt.Fprintf(out, "\n%s %s %s\n\n%s\n\nImage: %s\n", entry.Date, entry.Emoji(), entry.Emotion, entry.Summary, entry.ImageRef)
			if dryRun {
				fmt.Fprintln(out, "(dry run, entry not saved)")
			} else {
				fmt.Fprintf(out, "Saved: %s\n", entry.ID)
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&live, "live", true, "generate companion replies instead of using recorded ones")
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "run the pipeline without saving the entry")
	return cmd
}
