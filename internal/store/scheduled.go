package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jonesrussell/liharvest/internal/models"
)

// ErrScheduledNotFound is returned when a scheduled post id is unknown.
var ErrScheduledNotFound = errors.New("scheduled post not found")

type scheduledRow struct {
	ID           string    `db:"id"`
	Content      string    `db:"content"`
	Media        string    `db:"media"`
	ScheduledAt  time.Time `db:"scheduled_at"`
	Status       string    `db:"status"`
	CreatedAt    time.Time `db:"created_at"`
	UpdatedAt    time.Time `db:"updated_at"`
	FirstComment string    `db:"first_comment"`
	LastError    string    `db:"last_error"`
}

func (r *scheduledRow) toScheduled() (models.ScheduledPost, error) {
	post := models.ScheduledPost{
		ID:           r.ID,
		Content:      r.Content,
		ScheduledAt:  r.ScheduledAt,
		Status:       models.ScheduledStatus(r.Status),
		CreatedAt:    r.CreatedAt,
		UpdatedAt:    r.UpdatedAt,
		FirstComment: r.FirstComment,
		LastError:    r.LastError,
	}
	if r.Media != "" && r.Media != "[]" {
		if err := json.Unmarshal([]byte(r.Media), &post.Media); err != nil {
			return post, fmt.Errorf("failed to unmarshal media for %s: %w", r.ID, err)
		}
	}
	return post, nil
}

// AddScheduled queues a post for publication, assigning it an id and the
// scheduled status.
func (s *Store) AddScheduled(ctx context.Context, post models.ScheduledPost) (models.ScheduledPost, error) {
	if post.ID == "" {
		post.ID = uuid.NewString()
	}
	now := time.Now()
	post.Status = models.StatusScheduled
	post.CreatedAt = now
	post.UpdatedAt = now

	media := "[]"
	if len(post.Media) > 0 {
		raw, err := json.Marshal(post.Media)
		if err != nil {
			return post, fmt.Errorf("failed to marshal media: %w", err)
		}
		media = string(raw)
	}

	query := `
		INSERT INTO scheduled_posts (id, content, media, scheduled_at, status,
			created_at, updated_at, first_comment, last_error)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, '')
	`
	_, err := s.db.ExecContext(ctx, query,
		post.ID, post.Content, media, post.ScheduledAt, post.Status,
		post.CreatedAt, post.UpdatedAt, post.FirstComment)
	if err != nil {
		return post, fmt.Errorf("failed to add scheduled post: %w", err)
	}
	return post, nil
}

// ListScheduled returns all scheduled posts, soonest first.
func (s *Store) ListScheduled(ctx context.Context) ([]models.ScheduledPost, error) {
	var rows []scheduledRow
	query := `SELECT * FROM scheduled_posts ORDER BY scheduled_at ASC`
	if err := s.db.SelectContext(ctx, &rows, query); err != nil {
		return nil, fmt.Errorf("failed to list scheduled posts: %w", err)
	}

	posts := make([]models.ScheduledPost, 0, len(rows))
	for i := range rows {
		post, err := rows[i].toScheduled()
		if err != nil {
			return nil, err
		}
		posts = append(posts, post)
	}
	return posts, nil
}

// DueScheduled returns posts still in the scheduled state whose time has
// passed.
func (s *Store) DueScheduled(ctx context.Context, now time.Time) ([]models.ScheduledPost, error) {
	var rows []scheduledRow
	query := `
		SELECT * FROM scheduled_posts
		WHERE status = ? AND scheduled_at <= ?
		ORDER BY scheduled_at ASC
	`
	if err := s.db.SelectContext(ctx, &rows, query, models.StatusScheduled, now); err != nil {
		return nil, fmt.Errorf("failed to list due posts: %w", err)
	}

	posts := make([]models.ScheduledPost, 0, len(rows))
	for i := range rows {
		post, err := rows[i].toScheduled()
		if err != nil {
			return nil, err
		}
		posts = append(posts, post)
	}
	return posts, nil
}

// GetScheduled loads one scheduled post.
func (s *Store) GetScheduled(ctx context.Context, id string) (models.ScheduledPost, error) {
	var row scheduledRow
	err := s.db.GetContext(ctx, &row, `SELECT * FROM scheduled_posts WHERE id = ?`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return models.ScheduledPost{}, ErrScheduledNotFound
	}
	if err != nil {
		return models.ScheduledPost{}, fmt.Errorf("failed to get scheduled post: %w", err)
	}
	return row.toScheduled()
}

// SetScheduledStatus advances a scheduled post's lifecycle state, recording
// the failure reason when one is given.
func (s *Store) SetScheduledStatus(ctx context.Context, id string, status models.ScheduledStatus, lastError string) error {
	query := `
		UPDATE scheduled_posts
		SET status = ?, last_error = ?, updated_at = ?
		WHERE id = ?
	`
	res, err := s.db.ExecContext(ctx, query, status, lastError, time.Now(), id)
	if err != nil {
		return fmt.Errorf("failed to update scheduled post %s: %w", id, err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read update result: %w", err)
	}
	if affected == 0 {
		return ErrScheduledNotFound
	}
	return nil
}

// CancelScheduled removes a post from the queue. Only posts that have not
// started publishing can be cancelled.
func (s *Store) CancelScheduled(ctx context.Context, id string) error {
	query := `DELETE FROM scheduled_posts WHERE id = ? AND status = ?`
	res, err := s.db.ExecContext(ctx, query, id, models.StatusScheduled)
	if err != nil {
		return fmt.Errorf("failed to cancel scheduled post %s: %w", id, err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read cancel result: %w", err)
	}
	if affected == 0 {
		return ErrScheduledNotFound
	}
	return nil
}
