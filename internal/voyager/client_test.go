package voyager_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jonesrussell/liharvest/internal/session"
	"github.com/jonesrussell/liharvest/internal/voyager"
)

func testSession() *session.Session {
	return &session.Session{
		CSRF:             "ajax:123",
		Locale:           "fr_FR",
		MemberID:         "123456789",
		PublicIdentifier: "jane-dev",
	}
}

func TestFetchPosts(t *testing.T) {
	t.Parallel()

	t.Run("sends auth headers and merges endpoint results", func(t *testing.T) {
		t.Parallel()
		var (
			mu    sync.Mutex
			paths []string
		)
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			mu.Lock()
			paths = append(paths, r.URL.Path)
			mu.Unlock()

			assert.Equal(t, "ajax:123", r.Header.Get("csrf-token"))
			assert.Equal(t, "fr_FR", r.Header.Get("x-li-lang"))
			assert.Equal(t, "li_at=tok", r.Header.Get("Cookie"))

			switch r.URL.Path {
			case "/voyager/api/feed/updates":
				assert.Equal(t, "2.0.0", r.Header.Get("x-restli-protocol-version"))
				w.Write([]byte(`{"data":{},"included":[{
					"$type":"com.linkedin.voyager.feed.render.UpdateV2",
					"entityUrn":"urn:li:activity:7100000000000000001",
					"commentary":{"text":{"text":"From feed"}}
				}]}`))
			case "/voyager/api/identity/profileUpdatesV2":
				assert.Empty(t, r.Header.Get("x-restli-protocol-version"))
				w.Write([]byte(`{"data":{},"included":[{
					"$type":"com.linkedin.voyager.feed.render.UpdateV2",
					"entityUrn":"urn:li:activity:7100000000000000002",
					"commentary":{"text":{"text":"From profile"}}
				}]}`))
			case "/voyager/api/graphql":
				w.Write([]byte(`{"data":{"feedDashProfileUpdatesByMemberShareFeedConnection":{"elements":[]}}}`))
			default:
				t.Errorf("unexpected path %s", r.URL.Path)
			}
		}))
		defer server.Close()

		client := voyager.NewClient(
			voyager.WithBaseURL(server.URL),
			voyager.WithCookieHeader("li_at=tok"),
			voyager.WithCallDelay(0))

		posts := client.FetchPosts(context.Background(), testSession())
		require.Len(t, posts, 2)
		assert.Equal(t, "From feed", posts[0].Content)
		assert.Equal(t, "From profile", posts[1].Content)
		assert.Len(t, paths, 3)
	})

	t.Run("failed endpoints do not abort the others", func(t *testing.T) {
		t.Parallel()
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.URL.Path == "/voyager/api/identity/profileUpdatesV2" {
				w.Write([]byte(`{"data":{},"included":[{
					"$type":"com.linkedin.voyager.feed.render.UpdateV2",
					"entityUrn":"urn:li:activity:7100000000000000003",
					"commentary":{"text":{"text":"Survivor"}}
				}]}`))
				return
			}
			w.WriteHeader(http.StatusInternalServerError)
		}))
		defer server.Close()

		client := voyager.NewClient(voyager.WithBaseURL(server.URL), voyager.WithCallDelay(0))
		posts := client.FetchPosts(context.Background(), testSession())
		require.Len(t, posts, 1)
		assert.Equal(t, "Survivor", posts[0].Content)
	})

	t.Run("invalid session yields nothing without network calls", func(t *testing.T) {
		t.Parallel()
		client := voyager.NewClient(voyager.WithBaseURL("http://127.0.0.1:1"), voyager.WithCallDelay(0))
		assert.Nil(t, client.FetchPosts(context.Background(), nil))
		assert.Nil(t, client.FetchPosts(context.Background(), &session.Session{CSRF: "x"}))
	})
}

func TestCreateShare(t *testing.T) {
	t.Parallel()

	t.Run("returns the created urn", func(t *testing.T) {
		t.Parallel()
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, http.MethodPost, r.Method)
			assert.Equal(t, "/voyager/api/contentcreation/normShares", r.URL.Path)
			assert.Equal(t, "ajax:123", r.Header.Get("csrf-token"))
			w.Write([]byte(`{"urn":"urn:li:share:42"}`))
		}))
		defer server.Close()

		client := voyager.NewClient(voyager.WithBaseURL(server.URL), voyager.WithCallDelay(0))
		urn, err := client.CreateShare(context.Background(), testSession(), "Published text")
		require.NoError(t, err)
		assert.Equal(t, "urn:li:share:42", urn)
	})

	t.Run("rejected share is an error", func(t *testing.T) {
		t.Parallel()
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusForbidden)
		}))
		defer server.Close()

		client := voyager.NewClient(voyager.WithBaseURL(server.URL), voyager.WithCallDelay(0))
		_, err := client.CreateShare(context.Background(), testSession(), "Doomed")
		assert.Error(t, err)
	})
}

func TestFetchCreatorAnalytics(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/voyager/api/identity/dash/profiles":
			w.Write([]byte(`{"data":{},"included":[{"followersCount":1200,"connectionsCount":480}]}`))
		case "/voyager/api/identity/wvmpCards":
			w.Write([]byte(`{"data":{},"included":[{"totalViewCount":75,"viewerCount":60}]}`))
		case "/voyager/api/contentcreation/analytics/overview":
			w.Write([]byte(`{"data":{"totalImpressions":9000,"totalEngagements":450,"newFollowers":12}}`))
		default:
			t.Errorf("unexpected path %s", r.URL.Path)
		}
	}))
	defer server.Close()

	client := voyager.NewClient(voyager.WithBaseURL(server.URL), voyager.WithCallDelay(0))
	snapshot := client.FetchCreatorAnalytics(context.Background(), testSession())
	require.NotNil(t, snapshot)

	assert.Equal(t, 1200, snapshot.TotalFollowers)
	assert.Equal(t, 480, snapshot.Connections)
	assert.Equal(t, 75, snapshot.ProfileViews)
	assert.Equal(t, 60, snapshot.UniqueViewers)
	assert.Equal(t, 9000, snapshot.TotalImpressions)
	assert.Equal(t, 450, snapshot.TotalInteractions)
	assert.Equal(t, 12, snapshot.NewFollowers)
	assert.False(t, snapshot.FetchedAt.IsZero())
}
