package diary

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"time"

	"github.com/zhouzirui/ai-diary/backend/internal/model/chat"
	"github.com/zhouzirui/ai-diary/backend/internal/model/diary"
	chatservice "github.com/zhouzirui/ai-diary/backend/internal/service/chat"
)

// ErrNotEnoughConversation rejects a finalize request before any stage runs.
var ErrNotEnoughConversation = errors.New("not enough conversation to write a diary")

// Stage names a step of the finalize pipeline.
type Stage string

const (
	StageSummarizing  Stage = "summarizing"
	StageClassifying  Stage = "classifying"
	StageIllustrating Stage = "illustrating"
	StageSaving       Stage = "saving"
	StageDone         Stage = "done"
)

// StageError reports which stage aborted a finalize run.
type StageError struct {
	Stage Stage
	Err   error
}

func (e *StageError) Error() string {
	return fmt.Sprintf("%s failed: %v", e.Stage, e.Err)
}

func (e *StageError) Unwrap() error {
	return e.Err
}

// ProgressFunc is told about each stage as it starts.
type ProgressFunc func(Stage)

// Summarizer writes the diary passage for a conversation.
type Summarizer interface {
	Summarize(ctx context.Context, turns []chat.Turn) (string, error)
}

// EmotionClassifier labels the user's side of a conversation.
type EmotionClassifier interface {
	ClassifyEmotion(ctx context.Context, turns []chat.Turn) (string, error)
}

// Illustrator always returns some image reference for a summary.
type Illustrator interface {
	Illustrate(ctx context.Context, summary string) string
}

// Default gate thresholds.
const (
	DefaultMinUserTurns = 5
	DefaultMinTurns     = 3
)

// PipelineOptions tunes a Pipeline.
type PipelineOptions struct {
	MinUserTurns int
	MinTurns     int
	Location     *time.Location
	Now          func() time.Time
	Logger       *slog.Logger
}

// Pipeline runs summarize, classify, illustrate and save in strict order.
type Pipeline struct {
	summarizer  Summarizer
	classifier  EmotionClassifier
	illustrator Illustrator
	store       diary.Store

	minUserTurns int
	minTurns     int
	location     *time.Location
	now          func() time.Time
	logger       *slog.Logger
}

// NewPipeline wires the stages around store.
func NewPipeline(summarizer Summarizer, classifier EmotionClassifier, illustrator Illustrator, store diary.Store, opts PipelineOptions) *Pipeline {
	if opts.MinUserTurns <= 0 {
		opts.MinUserTurns = DefaultMinUserTurns
	}
	if opts.MinTurns <= 0 {
		opts.MinTurns = DefaultMinTurns
	}
	if opts.Location == nil {
		opts.Location = time.Local
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}

	return &Pipeline{
		summarizer:   summarizer,
		classifier:   classifier,
		illustrator:  illustrator,
		store:        store,
		minUserTurns: opts.MinUserTurns,
		minTurns:     opts.MinTurns,
		location:     opts.Location,
		now:          opts.Now,
		logger:       opts.Logger.With("component", "diary"),
	}
}

// Ready reports whether turns pass the finalize gate.
func (p *Pipeline) Ready(turns []chat.Turn) bool {
	return len(turns) >= p.minTurns && chatservice.CountUserTurns(turns) >= p.minUserTurns
}

// Finalize turns a conversation into a saved diary entry. Summarize and
// classify failures abort the run; illustration failures never do.
func (p *Pipeline) Finalize(ctx context.Context, turns []chat.Turn, progress ProgressFunc) (diary.Entry, error) {
	if !p.Ready(turns) {
		return diary.Entry{}, fmt.Errorf("%w: need %d user messages, have %d",
			ErrNotEnoughConversation, p.minUserTurns, chatservice.CountUserTurns(turns))
	}
	if progress == nil {
		progress = func(Stage) {}
	}

	snapshot := slices.Clone(turns)
	date := p.now().In(p.location).Format(diary.DateLayout)
	p.logger.Info("finalizing diary", "date", date, "turns", len(snapshot))

	progress(StageSummarizing)
	summary, err := p.summarizer.Summarize(ctx, snapshot)
	if err != nil {
		return diary.Entry{}, &StageError{Stage: StageSummarizing, Err: err}
	}

	progress(StageClassifying)
	emotion, err := p.classifier.ClassifyEmotion(ctx, snapshot)
	if err != nil {
		return diary.Entry{}, &StageError{Stage: StageClassifying, Err: err}
	}

	progress(StageIllustrating)
	imageRef := p.illustrator.Illustrate(ctx, summary)

	progress(StageSaving)
	entry := diary.Entry{
		Date:      date,
		Turns:     snapshot,
		Summary:   summary,
		Emotion:   emotion,
		ImageRef:  imageRef,
		CreatedAt: p.now(),
	}
	id, err := p.store.Save(ctx, entry)
	if err != nil {
		return diary.Entry{}, err
	}
	entry.ID = id

	progress(StageDone)
	p.logger.Info("diary entry saved", "id", id, "date", date, "emotion", emotion)
	return entry, nil
}

// Sessions is the part of the chat service a session finalize needs.
type Sessions interface {
	Snapshot(ctx context.Context, sessionID string) ([]chat.Turn, error)
	Reset(ctx context.Context, sessionID string) ([]chat.Turn, error)
}

// FinalizeSession finalizes the session's current conversation and, when
// reset is set, starts the session over with a fresh greeting.
func (p *Pipeline) FinalizeSession(ctx context.Context, sessions Sessions, sessionID string, reset bool, progress ProgressFunc) (diary.Entry, error) {
	turns, err := sessions.Snapshot(ctx, sessionID)
	if err != nil {
		return diary.Entry{}, err
	}

	entry, err := p.Finalize(ctx, turns, progress)
	if err != nil {
		return diary.Entry{}, err
	}

	if reset {
		if _, err := sessions.Reset(ctx, sessionID); err != nil {
			p.logger.Warn("failed to reset session after finalize", "session", sessionID, "error", err)
		}
	}
	return entry, nil
}
