package voyager_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jonesrussell/liharvest/internal/models"
	"github.com/jonesrussell/liharvest/internal/voyager"
)

func decode(t *testing.T, raw string) *voyager.Envelope {
	t.Helper()
	env, err := voyager.DecodeEnvelope([]byte(raw))
	require.NoError(t, err)
	return env
}

func TestDecodeEnvelope(t *testing.T) {
	t.Parallel()

	t.Run("rejects payload without included list", func(t *testing.T) {
		t.Parallel()
		_, err := voyager.DecodeEnvelope([]byte(`{"data":{}}`))
		assert.ErrorIs(t, err, voyager.ErrNotEnvelope)
	})

	t.Run("rejects malformed json", func(t *testing.T) {
		t.Parallel()
		_, err := voyager.DecodeEnvelope([]byte(`{`))
		assert.Error(t, err)
	})
}

func TestDecodePosts(t *testing.T) {
	t.Parallel()

	now := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)

	t.Run("inline commentary and counts", func(t *testing.T) {
		t.Parallel()
		env := decode(t, `{
			"data": {},
			"included": [{
				"$type": "com.linkedin.voyager.feed.render.UpdateV2",
				"entityUrn": "urn:li:activity:7100000000000000001",
				"commentary": {"text": {"text": "Inline body"}},
				"createdTime": 1767000000000,
				"socialDetail": {"totalSocialActivityCounts": {
					"numLikes": 12, "numComments": 3, "numShares": 2, "numImpressions": 800
				}}
			}]
		}`)

		posts := voyager.DecodePosts(env, now)
		require.Len(t, posts, 1)

		post := posts[0]
		assert.Equal(t, "Inline body", post.Content)
		assert.Equal(t, models.Stats{Likes: 12, Comments: 3, Shares: 2, Views: 800, Sends: 2}, post.Stats)
		require.NotNil(t, post.CreatedAt)
		assert.Equal(t, int64(1767000000000), post.CreatedAt.UnixMilli())
		assert.Equal(t, "https://www.linkedin.com/feed/update/urn:li:activity:7100000000000000001", post.URL)
	})

	t.Run("referenced commentary and social detail", func(t *testing.T) {
		t.Parallel()
		env := decode(t, `{
			"data": {},
			"included": [
				{
					"$type": "com.linkedin.voyager.feed.render.UpdateV2",
					"entityUrn": "urn:li:activity:7100000000000000002",
					"*commentary": "urn:li:commentary:1",
					"*socialDetail": "urn:li:socialDetail:1",
					"createdTime": 1767000000000
				},
				{
					"entityUrn": "urn:li:commentary:1",
					"text": {"text": "Referenced body"}
				},
				{
					"entityUrn": "urn:li:socialDetail:1",
					"totalSocialActivityCounts": {"numLikes": 40, "numViews": 1500}
				}
			]
		}`)

		posts := voyager.DecodePosts(env, now)
		require.Len(t, posts, 1)
		assert.Equal(t, "Referenced body", posts[0].Content)
		assert.Equal(t, 40, posts[0].Stats.Likes)
		assert.Equal(t, 1500, posts[0].Stats.Views)
	})

	t.Run("reshared update gets the repost marker", func(t *testing.T) {
		t.Parallel()
		env := decode(t, `{
			"data": {},
			"included": [
				{
					"$type": "com.linkedin.voyager.feed.render.UpdateV2",
					"entityUrn": "urn:li:activity:7100000000000000003",
					"*resharedUpdate": "urn:li:activity:original"
				},
				{
					"entityUrn": "urn:li:activity:original",
					"commentary": {"text": {"text": "Original words"}}
				}
			]
		}`)

		posts := voyager.DecodePosts(env, now)
		// The referenced original is itself a post entity, so both decode.
		require.Len(t, posts, 2)
		assert.Equal(t, "[Repartagé] Original words", posts[0].Content)
	})

	t.Run("document without title defaults to carousel", func(t *testing.T) {
		t.Parallel()
		env := decode(t, `{
			"data": {},
			"included": [{
				"$type": "com.linkedin.voyager.feed.render.UpdateV2",
				"entityUrn": "urn:li:activity:7100000000000000004",
				"commentary": {"text": {"text": "Doc post"}},
				"content": {"document": {"pageCount": 9}}
			}]
		}`)

		posts := voyager.DecodePosts(env, now)
		require.Len(t, posts, 1)
		require.Len(t, posts[0].Media, 1)
		assert.Equal(t, models.MediaDocument, posts[0].Media[0].Type)
		assert.Equal(t, "Carrousel", posts[0].Media[0].Title)
		assert.Equal(t, 9, posts[0].Media[0].PageCount)
	})

	t.Run("non-post entities are skipped", func(t *testing.T) {
		t.Parallel()
		env := decode(t, `{
			"data": {},
			"included": [
				{"$type": "com.linkedin.voyager.identity.shared.MiniProfile", "entityUrn": "urn:li:fs_miniProfile:x"},
				{"$type": "com.linkedin.voyager.feed.render.UpdateV2"}
			]
		}`)
		assert.Empty(t, voyager.DecodePosts(env, now))
	})
}

func TestDecodeGraphQLPosts(t *testing.T) {
	t.Parallel()

	now := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)

	raw := `{
		"data": {
			"feedDashProfileUpdatesByMemberShareFeedConnection": {
				"elements": [{
					"update": {
						"entityUrn": "urn:li:activity:7100000000000000005",
						"commentary": {"text": {"text": "GraphQL body"}},
						"postedAt": 1767000000000,
						"socialDetail": {"totalSocialActivityCounts": {"numLikes": 5}},
						"permaLink": "https://www.linkedin.com/feed/update/urn:li:activity:7100000000000000005"
					}
				}, {
					"update": {"commentary": {"text": {"text": "no urn, dropped"}}}
				}]
			}
		}
	}`

	posts, err := voyager.DecodeGraphQLPosts([]byte(raw), now)
	require.NoError(t, err)
	require.Len(t, posts, 1)
	assert.Equal(t, "GraphQL body", posts[0].Content)
	assert.Equal(t, 5, posts[0].Stats.Likes)
	assert.Equal(t, models.SourceGraphQL, posts[0].Source)
	require.NotNil(t, posts[0].CreatedAt)
	assert.Equal(t, int64(1767000000000), posts[0].CreatedAt.UnixMilli())
}
