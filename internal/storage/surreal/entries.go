package surreal

import (
	"context"
	"fmt"
	"time"

	"github.com/surrealdb/surrealdb.go"
	surrealmodels "github.com/surrealdb/surrealdb.go/pkg/models"

	"github.com/zhouzirui/ai-diary/backend/internal/model/chat"
	"github.com/zhouzirui/ai-diary/backend/internal/model/diary"
)

var _ diary.Store = (*Client)(nil)

type entryRecord struct {
	ID        surrealmodels.RecordID `json:"id"`
	Date      string                 `json:"date"`
	Turns     []chat.Turn            `json:"turns"`
	Summary   string                 `json:"summary"`
	Emotion   string                 `json:"emotion"`
	ImageRef  string                 `json:"image_ref"`
	CreatedAt time.Time              `json:"created_at"`
}

func (r entryRecord) toEntry() (diary.Entry, error) {
	id, err := recordIDString(r.ID)
	if err != nil {
		return diary.Entry{}, err
	}
	return diary.Entry{
		ID:        id,
		Date:      r.Date,
		Turns:     r.Turns,
		Summary:   r.Summary,
		Emotion:   r.Emotion,
		ImageRef:  r.ImageRef,
		CreatedAt: r.CreatedAt,
	}, nil
}

// Save creates a record and returns the id SurrealDB assigned.
func (c *Client) Save(ctx context.Context, entry diary.Entry) (string, error) {
	sql := `
		CREATE diary_entry SET
			date = $date,
			turns = $turns,
			summary = $summary,
			emotion = $emotion,
			image_ref = $image_ref,
			created_at = $created_at
		RETURN AFTER
	`

	results, err := surrealdb.Query[[]entryRecord](ctx, c.db, sql, map[string]any{
		"date":       entry.Date,
		"turns":      entry.Turns,
		"summary":    entry.Summary,
		"emotion":    entry.Emotion,
		"image_ref":  entry.ImageRef,
		"created_at": entry.CreatedAt,
	})
	if err != nil {
		return "", fmt.Errorf("create entry: %w", wrapQueryError(err))
	}
	if results == nil || len(*results) == 0 || len((*results)[0].Result) == 0 {
		return "", fmt.Errorf("create entry: %w", ErrUnexpectedResult)
	}

	id, err := recordIDString((*results)[0].Result[0].ID)
	if err != nil {
		return "", fmt.Errorf("create entry: %w", err)
	}
	c.logger.Debug("saved diary entry", "id", id, "date", entry.Date)
	return id, nil
}

// List returns all entries, newest date first.
func (c *Client) List(ctx context.Context) ([]diary.Entry, error) {
	results, err := surrealdb.Query[[]entryRecord](ctx, c.db,
		`SELECT * FROM diary_entry ORDER BY date DESC, created_at DESC`, nil)
	if err != nil {
		return nil, fmt.Errorf("list entries: %w", wrapQueryError(err))
	}

	entries := []diary.Entry{}
	if results == nil || len(*results) == 0 {
		return entries, nil
	}
	for _, rec := range (*results)[0].Result {
		entry, err := rec.toEntry()
		if err != nil {
			return nil, fmt.Errorf("list entries: %w", err)
		}
		entries = append(entries, entry)
	}
	return entries, nil
}

// Delete removes the entry with id.
func (c *Client) Delete(ctx context.Context, id string) error {
	results, err := surrealdb.Query[[]entryRecord](ctx, c.db,
		`DELETE type::record("diary_entry", $id) RETURN BEFORE`, map[string]any{"id": id})
	if err != nil {
		return fmt.Errorf("delete entry: %w", wrapQueryError(err))
	}
	if results == nil || len(*results) == 0 || len((*results)[0].Result) == 0 {
		return diary.ErrEntryNotFound
	}
	return nil
}
