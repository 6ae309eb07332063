package api_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jonesrussell/liharvest/internal/api"
	"github.com/jonesrussell/liharvest/internal/logger"
	"github.com/jonesrussell/liharvest/internal/models"
	"github.com/jonesrussell/liharvest/internal/store"
)

type fakePosts struct {
	records []models.PostRecord
}

func (f *fakePosts) GetAll(context.Context) ([]models.PostRecord, error) {
	return f.records, nil
}

func (f *fakePosts) UpdateStatsByID(_ context.Context, activityID string, incoming models.Stats) (models.PostRecord, error) {
	return models.PostRecord{ID: activityID, Stats: incoming}, nil
}

type fakeSchedule struct {
	posts map[string]models.ScheduledPost
}

func (f *fakeSchedule) AddScheduled(_ context.Context, post models.ScheduledPost) (models.ScheduledPost, error) {
	post.ID = "sched-1"
	post.Status = models.StatusScheduled
	f.posts[post.ID] = post
	return post, nil
}

func (f *fakeSchedule) ListScheduled(context.Context) ([]models.ScheduledPost, error) {
	out := make([]models.ScheduledPost, 0, len(f.posts))
	for _, p := range f.posts {
		out = append(out, p)
	}
	return out, nil
}

func (f *fakeSchedule) GetScheduled(_ context.Context, id string) (models.ScheduledPost, error) {
	post, ok := f.posts[id]
	if !ok {
		return models.ScheduledPost{}, store.ErrScheduledNotFound
	}
	return post, nil
}

func (f *fakeSchedule) CancelScheduled(_ context.Context, id string) error {
	if _, ok := f.posts[id]; !ok {
		return store.ErrScheduledNotFound
	}
	delete(f.posts, id)
	return nil
}

type fakePublisher struct{}

func (fakePublisher) PublishNow(_ context.Context, post *models.ScheduledPost) error {
	post.Status = models.StatusPublished
	return nil
}

type fakeAnalytics struct {
	snapshot *models.AnalyticsSnapshot
}

func (f *fakeAnalytics) LatestSnapshot(context.Context) (models.AnalyticsSnapshot, error) {
	if f.snapshot == nil {
		return models.AnalyticsSnapshot{}, store.ErrNoSnapshot
	}
	return *f.snapshot, nil
}

func newRouter(posts *fakePosts, analytics *fakeAnalytics) (http.Handler, *fakeSchedule) {
	schedule := &fakeSchedule{posts: make(map[string]models.ScheduledPost)}
	router := api.SetupRouter(logger.NewNoOp(), api.Deps{
		Posts:     posts,
		Schedule:  schedule,
		Publisher: fakePublisher{},
		Analytics: analytics,
	})
	return router, schedule
}

func TestHealth(t *testing.T) {
	t.Parallel()

	router, _ := newRouter(&fakePosts{}, &fakeAnalytics{})
	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestListPosts(t *testing.T) {
	t.Parallel()

	posts := &fakePosts{records: []models.PostRecord{
		{ID: "urn:li:activity:7100000000000000001", Content: "stored post"},
	}}
	router, _ := newRouter(posts, &fakeAnalytics{})

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/posts", nil))
	require.Equal(t, http.StatusOK, w.Code)

	var body struct {
		Posts []models.PostRecord `json:"posts"`
		Count int                 `json:"count"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, 1, body.Count)
	assert.Equal(t, "stored post", body.Posts[0].Content)
}

func TestUpdateStats(t *testing.T) {
	t.Parallel()

	router, _ := newRouter(&fakePosts{}, &fakeAnalytics{})

	payload, err := json.Marshal(models.Stats{Likes: 12, Views: 900})
	require.NoError(t, err)
	req := httptest.NewRequest(http.MethodPatch, "/api/v1/posts/7100000000000000001/stats", bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")

	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)

	var record models.PostRecord
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &record))
	assert.Equal(t, 12, record.Stats.Likes)
}

func TestAnalytics(t *testing.T) {
	t.Parallel()

	t.Run("empty", func(t *testing.T) {
		t.Parallel()
		router, _ := newRouter(&fakePosts{}, &fakeAnalytics{})
		w := httptest.NewRecorder()
		router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/analytics", nil))
		assert.Equal(t, http.StatusNotFound, w.Code)
	})

	t.Run("latest", func(t *testing.T) {
		t.Parallel()
		router, _ := newRouter(&fakePosts{}, &fakeAnalytics{
			snapshot: &models.AnalyticsSnapshot{TotalImpressions: 4200},
		})
		w := httptest.NewRecorder()
		router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/analytics", nil))
		require.Equal(t, http.StatusOK, w.Code)

		var snapshot models.AnalyticsSnapshot
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &snapshot))
		assert.Equal(t, 4200, snapshot.TotalImpressions)
	})
}

func TestScheduledLifecycle(t *testing.T) {
	t.Parallel()

	router, _ := newRouter(&fakePosts{}, &fakeAnalytics{})

	body := map[string]any{
		"content":     "Planned announcement",
		"scheduledAt": time.Now().Add(time.Hour).Format(time.RFC3339),
	}
	payload, err := json.Marshal(body)
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/scheduled", bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	require.Equal(t, http.StatusCreated, w.Code)

	var created models.ScheduledPost
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &created))
	require.Equal(t, "sched-1", created.ID)

	w = httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/api/v1/scheduled/sched-1/publish", nil))
	require.Equal(t, http.StatusOK, w.Code)

	var published models.ScheduledPost
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &published))
	assert.Equal(t, models.StatusPublished, published.Status)

	w = httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodDelete, "/api/v1/scheduled/sched-1", nil))
	assert.Equal(t, http.StatusNoContent, w.Code)

	w = httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodDelete, "/api/v1/scheduled/missing", nil))
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestValidationErrors(t *testing.T) {
	t.Parallel()

	router, _ := newRouter(&fakePosts{}, &fakeAnalytics{})

	req := httptest.NewRequest(http.MethodPost, "/api/v1/scheduled", bytes.NewReader([]byte(`{"content":""}`)))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}
