package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jonesrussell/liharvest/internal/models"
)

// ErrNoSnapshot is returned when no analytics snapshot has been recorded.
var ErrNoSnapshot = errors.New("no analytics snapshot recorded")

type snapshotRow struct {
	ID                int64     `db:"id"`
	TotalImpressions  int       `db:"total_impressions"`
	TotalInteractions int       `db:"total_interactions"`
	TotalFollowers    int       `db:"total_followers"`
	Connections       int       `db:"connections"`
	ProfileViews      int       `db:"profile_views"`
	UniqueViewers     int       `db:"unique_viewers"`
	NewFollowers      int       `db:"new_followers"`
	FetchedAt         time.Time `db:"fetched_at"`
}

// SaveSnapshot appends an account-level analytics reading. Snapshots are
// append-only; history is the point of keeping them.
func (s *Store) SaveSnapshot(ctx context.Context, snapshot models.AnalyticsSnapshot) error {
	query := `
		INSERT INTO analytics_snapshots (total_impressions, total_interactions,
			total_followers, connections, profile_views, unique_viewers,
			new_followers, fetched_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`
	_, err := s.db.ExecContext(ctx, query,
		snapshot.TotalImpressions, snapshot.TotalInteractions,
		snapshot.TotalFollowers, snapshot.Connections, snapshot.ProfileViews,
		snapshot.UniqueViewers, snapshot.NewFollowers, snapshot.FetchedAt)
	if err != nil {
		return fmt.Errorf("failed to save analytics snapshot: %w", err)
	}
	return nil
}

// LatestSnapshot returns the most recent analytics reading.
func (s *Store) LatestSnapshot(ctx context.Context) (models.AnalyticsSnapshot, error) {
	var row snapshotRow
	query := `SELECT * FROM analytics_snapshots ORDER BY fetched_at DESC, id DESC LIMIT 1`
	err := s.db.GetContext(ctx, &row, query)
	if errors.Is(err, sql.ErrNoRows) {
		return models.AnalyticsSnapshot{}, ErrNoSnapshot
	}
	if err != nil {
		return models.AnalyticsSnapshot{}, fmt.Errorf("failed to load analytics snapshot: %w", err)
	}

	return models.AnalyticsSnapshot{
		TotalImpressions:  row.TotalImpressions,
		TotalInteractions: row.TotalInteractions,
		TotalFollowers:    row.TotalFollowers,
		Connections:       row.Connections,
		ProfileViews:      row.ProfileViews,
		UniqueViewers:     row.UniqueViewers,
		NewFollowers:      row.NewFollowers,
		FetchedAt:         row.FetchedAt,
	}, nil
}
