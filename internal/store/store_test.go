package store_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jonesrussell/liharvest/internal/models"
	"github.com/jonesrussell/liharvest/internal/store"
)

func openStore(t *testing.T) *store.Store {
	t.Helper()
	s, err := store.Open(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestUpsertMany(t *testing.T) {
	t.Parallel()

	created := time.Date(2026, 2, 1, 10, 0, 0, 0, time.UTC)

	t.Run("insert then merge on second pass", func(t *testing.T) {
		t.Parallel()
		s := openStore(t)
		ctx := context.Background()

		first := models.PostRecord{
			ID:        "urn:li:activity:7100000000000000001",
			URN:       "urn:li:activity:7100000000000000001",
			Content:   "Long-form thoughts on schema migrations in production.",
			CreatedAt: &created,
			Stats:     models.Stats{Likes: 10, Views: 500},
			Source:    models.SourceVoyagerAPI,
			Media:     []models.Media{{Type: models.MediaImage, URL: "https://example.com/a.jpg"}},
		}
		n, err := s.UpsertMany(ctx, []models.PostRecord{first})
		require.NoError(t, err)
		assert.Equal(t, 1, n)

		// Second pass saw fewer likes but a comment count.
		second := first
		second.Stats = models.Stats{Likes: 7, Comments: 3}
		second.Media = nil
		_, err = s.UpsertMany(ctx, []models.PostRecord{second})
		require.NoError(t, err)

		all, err := s.GetAll(ctx)
		require.NoError(t, err)
		require.Len(t, all, 1)
		assert.Equal(t, 10, all[0].Stats.Likes)
		assert.Equal(t, 3, all[0].Stats.Comments)
		assert.Equal(t, 500, all[0].Stats.Views)
		require.Len(t, all[0].Media, 1)
		require.NotNil(t, all[0].CreatedAt)
		assert.True(t, created.Equal(*all[0].CreatedAt))
	})

	t.Run("get all orders newest first undated last", func(t *testing.T) {
		t.Parallel()
		s := openStore(t)
		ctx := context.Background()

		older := created
		newer := created.Add(48 * time.Hour)
		_, err := s.UpsertMany(ctx, []models.PostRecord{
			{ID: "undated", Content: "An undated record that must sort to the end."},
			{ID: "old", Content: "The older dated record in this set of three.", CreatedAt: &older},
			{ID: "new", Content: "The newest dated record in this set of three.", CreatedAt: &newer},
		})
		require.NoError(t, err)

		all, err := s.GetAll(ctx)
		require.NoError(t, err)
		require.Len(t, all, 3)
		assert.Equal(t, "new", all[0].ID)
		assert.Equal(t, "old", all[1].ID)
		assert.Equal(t, "undated", all[2].ID)
	})
}

func TestUpdateStatsByID(t *testing.T) {
	t.Parallel()

	t.Run("matches stored urn by numeric suffix", func(t *testing.T) {
		t.Parallel()
		s := openStore(t)
		ctx := context.Background()

		_, err := s.UpsertMany(ctx, []models.PostRecord{{
			ID:      "urn:li:activity:7100000000000000001",
			Content: "A stored post whose counters the analytics page refreshes.",
			Stats:   models.Stats{Likes: 4, Comments: 6, Views: 100},
		}})
		require.NoError(t, err)

		updated, err := s.UpdateStatsByID(ctx, "7100000000000000001",
			models.Stats{Likes: 2, Views: 900})
		require.NoError(t, err)

		// Positive readings replace, zero readings keep.
		assert.Equal(t, 2, updated.Stats.Likes)
		assert.Equal(t, 6, updated.Stats.Comments)
		assert.Equal(t, 900, updated.Stats.Views)
	})

	t.Run("unknown id synthesizes a record", func(t *testing.T) {
		t.Parallel()
		s := openStore(t)
		ctx := context.Background()

		// A known activity timestamp: millis 1767000000000 shifted into the id.
		id := "7411335168000000000"
		record, err := s.UpdateStatsByID(ctx, id, models.Stats{Views: 250})
		require.NoError(t, err)

		assert.Equal(t, "urn:li:activity:"+id, record.ID)
		assert.Equal(t, models.SourceStatsPage, record.Source)
		assert.Equal(t, 250, record.Stats.Views)
		require.NotNil(t, record.CreatedAt)
		assert.Equal(t, int64(1767000000000), record.CreatedAt.UnixMilli())

		all, err := s.GetAll(ctx)
		require.NoError(t, err)
		require.Len(t, all, 1)
	})

	t.Run("full urn form also matches", func(t *testing.T) {
		t.Parallel()
		s := openStore(t)
		ctx := context.Background()

		_, err := s.UpsertMany(ctx, []models.PostRecord{{
			ID:      "urn:li:activity:7100000000000000002",
			Content: "Another stored post for the urn-form lookup case.",
		}})
		require.NoError(t, err)

		updated, err := s.UpdateStatsByID(ctx, "urn:li:activity:7100000000000000002",
			models.Stats{Likes: 11})
		require.NoError(t, err)
		assert.Equal(t, 11, updated.Stats.Likes)
	})
}

func TestScheduled(t *testing.T) {
	t.Parallel()

	t.Run("lifecycle", func(t *testing.T) {
		t.Parallel()
		s := openStore(t)
		ctx := context.Background()

		post, err := s.AddScheduled(ctx, models.ScheduledPost{
			Content:     "Queued announcement for tomorrow morning.",
			ScheduledAt: time.Now().Add(time.Hour),
		})
		require.NoError(t, err)
		require.NotEmpty(t, post.ID)
		assert.Equal(t, models.StatusScheduled, post.Status)

		require.NoError(t, s.SetScheduledStatus(ctx, post.ID, models.StatusPublishing, ""))
		require.NoError(t, s.SetScheduledStatus(ctx, post.ID, models.StatusFailed, "csrf expired"))

		loaded, err := s.GetScheduled(ctx, post.ID)
		require.NoError(t, err)
		assert.Equal(t, models.StatusFailed, loaded.Status)
		assert.Equal(t, "csrf expired", loaded.LastError)
	})

	t.Run("due selection", func(t *testing.T) {
		t.Parallel()
		s := openStore(t)
		ctx := context.Background()
		now := time.Now()

		past, err := s.AddScheduled(ctx, models.ScheduledPost{
			Content:     "Missed while the browser was closed.",
			ScheduledAt: now.Add(-time.Hour),
		})
		require.NoError(t, err)
		_, err = s.AddScheduled(ctx, models.ScheduledPost{
			Content:     "Still in the future.",
			ScheduledAt: now.Add(time.Hour),
		})
		require.NoError(t, err)

		due, err := s.DueScheduled(ctx, now)
		require.NoError(t, err)
		require.Len(t, due, 1)
		assert.Equal(t, past.ID, due[0].ID)
	})

	t.Run("cancel only while still scheduled", func(t *testing.T) {
		t.Parallel()
		s := openStore(t)
		ctx := context.Background()

		post, err := s.AddScheduled(ctx, models.ScheduledPost{
			Content:     "Cancellable until publishing begins.",
			ScheduledAt: time.Now().Add(time.Hour),
		})
		require.NoError(t, err)

		require.NoError(t, s.SetScheduledStatus(ctx, post.ID, models.StatusPublishing, ""))
		err = s.CancelScheduled(ctx, post.ID)
		assert.ErrorIs(t, err, store.ErrScheduledNotFound)
	})
}

func TestAnalyticsSnapshots(t *testing.T) {
	t.Parallel()

	s := openStore(t)
	ctx := context.Background()

	_, err := s.LatestSnapshot(ctx)
	assert.ErrorIs(t, err, store.ErrNoSnapshot)

	first := models.AnalyticsSnapshot{TotalImpressions: 100, FetchedAt: time.Now().Add(-time.Hour)}
	second := models.AnalyticsSnapshot{TotalImpressions: 250, TotalFollowers: 40, FetchedAt: time.Now()}
	require.NoError(t, s.SaveSnapshot(ctx, first))
	require.NoError(t, s.SaveSnapshot(ctx, second))

	latest, err := s.LatestSnapshot(ctx)
	require.NoError(t, err)
	assert.Equal(t, 250, latest.TotalImpressions)
	assert.Equal(t, 40, latest.TotalFollowers)
}
