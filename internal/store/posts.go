package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/jonesrussell/liharvest/internal/models"
	"github.com/jonesrussell/liharvest/internal/reconcile"
	"github.com/jonesrussell/liharvest/internal/timeparse"
)

// postRow mirrors the posts table.
type postRow struct {
	ID          string       `db:"id"`
	URN         string       `db:"urn"`
	Content     string       `db:"content"`
	CreatedAt   sql.NullTime `db:"created_at"`
	Likes       int          `db:"likes"`
	Comments    int          `db:"comments"`
	Shares      int          `db:"shares"`
	Views       int          `db:"views"`
	Saves       int          `db:"saves"`
	Sends       int          `db:"sends"`
	LinkClicks  int          `db:"link_clicks"`
	Media       string       `db:"media"`
	URL         string       `db:"url"`
	Source      string       `db:"source"`
	ExtractedAt time.Time    `db:"extracted_at"`
	Position    int          `db:"position"`
}

func (r *postRow) toRecord() (models.PostRecord, error) {
	record := models.PostRecord{
		ID:      r.ID,
		URN:     r.URN,
		Content: r.Content,
		Stats: models.Stats{
			Likes:    r.Likes,
			Comments: r.Comments,
			Shares:   r.Shares,
			Views:    r.Views,
			Saves:    r.Saves,
			Sends:    r.Sends,

			LinkClicks: r.LinkClicks,
		},
		URL:         r.URL,
		Source:      r.Source,
		ExtractedAt: r.ExtractedAt,
	}
	if r.CreatedAt.Valid {
		t := r.CreatedAt.Time
		record.CreatedAt = &t
	}
	if r.Media != "" && r.Media != "[]" {
		if err := json.Unmarshal([]byte(r.Media), &record.Media); err != nil {
			return record, fmt.Errorf("failed to unmarshal media for %s: %w", r.ID, err)
		}
	}
	return record, nil
}

func rowFromRecord(record *models.PostRecord, position int) (postRow, error) {
	media := "[]"
	if len(record.Media) > 0 {
		raw, err := json.Marshal(record.Media)
		if err != nil {
			return postRow{}, fmt.Errorf("failed to marshal media for %s: %w", record.ID, err)
		}
		media = string(raw)
	}

	row := postRow{
		ID:          record.ID,
		URN:         record.URN,
		Content:     record.Content,
		Likes:       record.Stats.Likes,
		Comments:    record.Stats.Comments,
		Shares:      record.Stats.Shares,
		Views:       record.Stats.Views,
		Saves:       record.Stats.Saves,
		Sends:       record.Stats.Sends,
		LinkClicks:  record.Stats.LinkClicks,
		Media:       media,
		URL:         record.URL,
		Source:      record.Source,
		ExtractedAt: record.ExtractedAt,
		Position:    position,
	}
	if record.CreatedAt != nil {
		row.CreatedAt = sql.NullTime{Time: *record.CreatedAt, Valid: true}
	}
	return row, nil
}

const insertPost = `
	INSERT INTO posts (id, urn, content, created_at, likes, comments, shares,
		views, saves, sends, link_clicks, media, url, source, extracted_at, position)
	VALUES (:id, :urn, :content, :created_at, :likes, :comments, :shares,
		:views, :saves, :sends, :link_clicks, :media, :url, :source, :extracted_at, :position)
`

const updatePost = `
	UPDATE posts SET urn = :urn, content = :content, created_at = :created_at,
		likes = :likes, comments = :comments, shares = :shares, views = :views,
		saves = :saves, sends = :sends, link_clicks = :link_clicks,
		media = :media, url = :url,
		source = :source, extracted_at = :extracted_at
	WHERE id = :id
`

// GetAll returns every stored post, newest first with undated posts last.
// Position breaks ties so repeated reads are stable.
func (s *Store) GetAll(ctx context.Context) ([]models.PostRecord, error) {
	var rows []postRow
	query := `
		SELECT * FROM posts
		ORDER BY (created_at IS NULL) ASC, created_at DESC, position ASC
	`
	if err := s.db.SelectContext(ctx, &rows, query); err != nil {
		return nil, fmt.Errorf("failed to list posts: %w", err)
	}

	records := make([]models.PostRecord, 0, len(rows))
	for i := range rows {
		record, err := rows[i].toRecord()
		if err != nil {
			return nil, err
		}
		records = append(records, record)
	}
	return records, nil
}

// UpsertMany stores a reconciled pass. Records already present are merged
// with the stored copy under the same rules extraction uses, so a pass that
// saw less than a previous one never erases data.
func (s *Store) UpsertMany(ctx context.Context, records []models.PostRecord) (int, error) {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	var maxPosition sql.NullInt64
	if err = tx.GetContext(ctx, &maxPosition, `SELECT MAX(position) FROM posts`); err != nil {
		return 0, fmt.Errorf("failed to read position bound: %w", err)
	}
	nextPosition := int(maxPosition.Int64) + 1

	stored := 0
	for i := range records {
		record := records[i]

		var existing postRow
		err = tx.GetContext(ctx, &existing, `SELECT * FROM posts WHERE id = ?`, record.ID)
		switch {
		case errors.Is(err, sql.ErrNoRows):
			row, rowErr := rowFromRecord(&record, nextPosition)
			if rowErr != nil {
				return 0, rowErr
			}
			nextPosition++
			if _, err = tx.NamedExecContext(ctx, insertPost, row); err != nil {
				return 0, fmt.Errorf("failed to insert post %s: %w", record.ID, err)
			}

		case err != nil:
			return 0, fmt.Errorf("failed to load post %s: %w", record.ID, err)

		default:
			current, recErr := existing.toRecord()
			if recErr != nil {
				return 0, recErr
			}
			merged := reconcile.Merge(current, record)
			row, rowErr := rowFromRecord(&merged, existing.Position)
			if rowErr != nil {
				return 0, rowErr
			}
			if _, err = tx.NamedExecContext(ctx, updatePost, row); err != nil {
				return 0, fmt.Errorf("failed to update post %s: %w", record.ID, err)
			}
		}
		stored++
	}

	if err = tx.Commit(); err != nil {
		return 0, fmt.Errorf("failed to commit upsert: %w", err)
	}
	return stored, nil
}

var activityDigits = regexp.MustCompile(`(\d+)\s*$`)

// normalizeActivityID reduces any accepted post identifier form to the bare
// numeric activity id, or returns the input unchanged when it has no numeric
// suffix (synthetic dom- ids).
func normalizeActivityID(id string) string {
	if m := activityDigits.FindStringSubmatch(id); m != nil {
		return m[1]
	}
	return id
}

// UpdateStatsByID applies an analytics-page reading to the matching post.
// Counters follow replace-if-positive: a zero in the reading means the page
// did not show that counter, not that it dropped to zero. When no post
// matches, a minimal record is synthesized so the reading is not lost, dated
// from the activity id and positioned ahead of everything else.
func (s *Store) UpdateStatsByID(ctx context.Context, activityID string, incoming models.Stats) (models.PostRecord, error) {
	digits := normalizeActivityID(activityID)

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return models.PostRecord{}, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	var existing postRow
	err = tx.GetContext(ctx, &existing,
		`SELECT * FROM posts WHERE id = ? OR id LIKE '%:' || ? LIMIT 1`,
		activityID, digits)

	switch {
	case errors.Is(err, sql.ErrNoRows):
		record, synthErr := s.synthesizeFromStats(ctx, tx, digits, incoming)
		if synthErr != nil {
			return models.PostRecord{}, synthErr
		}
		if err = tx.Commit(); err != nil {
			return models.PostRecord{}, fmt.Errorf("failed to commit stats update: %w", err)
		}
		return record, nil

	case err != nil:
		return models.PostRecord{}, fmt.Errorf("failed to find post %s: %w", activityID, err)
	}

	record, recErr := existing.toRecord()
	if recErr != nil {
		return models.PostRecord{}, recErr
	}
	record.Stats = applyStatsReading(record.Stats, incoming)

	row, rowErr := rowFromRecord(&record, existing.Position)
	if rowErr != nil {
		return models.PostRecord{}, rowErr
	}
	if _, err = tx.NamedExecContext(ctx, updatePost, row); err != nil {
		return models.PostRecord{}, fmt.Errorf("failed to update stats for %s: %w", record.ID, err)
	}
	if err = tx.Commit(); err != nil {
		return models.PostRecord{}, fmt.Errorf("failed to commit stats update: %w", err)
	}
	return record, nil
}

func (s *Store) synthesizeFromStats(ctx context.Context, tx *sqlx.Tx, digits string, incoming models.Stats) (models.PostRecord, error) {
	urn := "urn:li:activity:" + digits
	record := models.PostRecord{
		ID:          urn,
		URN:         urn,
		CreatedAt:   timeparse.FromURN(urn, time.Now()),
		Stats:       incoming,
		Source:      models.SourceStatsPage,
		ExtractedAt: time.Now(),
	}

	var minPosition sql.NullInt64
	if err := tx.GetContext(ctx, &minPosition, `SELECT MIN(position) FROM posts`); err != nil {
		return models.PostRecord{}, fmt.Errorf("failed to read position bound: %w", err)
	}

	row, err := rowFromRecord(&record, int(minPosition.Int64)-1)
	if err != nil {
		return models.PostRecord{}, err
	}
	if _, err = tx.NamedExecContext(ctx, insertPost, row); err != nil {
		return models.PostRecord{}, fmt.Errorf("failed to insert synthesized post %s: %w", record.ID, err)
	}
	return record, nil
}

// applyStatsReading merges an analytics-page reading into stored counters:
// each incoming counter replaces the stored one only when positive.
func applyStatsReading(current, incoming models.Stats) models.Stats {
	pick := func(stored, read int) int {
		if read > 0 {
			return read
		}
		return stored
	}
	return models.Stats{
		Likes:    pick(current.Likes, incoming.Likes),
		Comments: pick(current.Comments, incoming.Comments),
		Shares:   pick(current.Shares, incoming.Shares),
		Views:    pick(current.Views, incoming.Views),
		Saves:    pick(current.Saves, incoming.Saves),
		Sends:    pick(current.Sends, incoming.Sends),

		LinkClicks: pick(current.LinkClicks, incoming.LinkClicks),
	}
}

// DeleteAll clears the posts table.
func (s *Store) DeleteAll(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM posts`); err != nil {
		return fmt.Errorf("failed to clear posts: %w", err)
	}
	return nil
}
