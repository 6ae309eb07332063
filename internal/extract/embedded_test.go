package extract_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jonesrussell/liharvest/internal/extract"
	"github.com/jonesrussell/liharvest/internal/models"
)

func TestExtractEmbedded(t *testing.T) {
	t.Parallel()

	now := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)

	t.Run("decodes envelope payload from code node", func(t *testing.T) {
		t.Parallel()
		payload := `{
			"data": {},
			"included": [
				{
					"$type": "com.linkedin.voyager.feed.render.UpdateV2",
					"entityUrn": "urn:li:activity:7100000000000000001",
					"commentary": {"text": {"text": "Notes from the migration, part one."}},
					"createdTime": 1767000000000,
					"socialDetail": {"totalSocialActivityCounts": {"numLikes": 9, "numComments": 2}}
				}
			]
		}`
		html := `<html><body><code>` + payload + `</code></body></html>`

		posts := extract.ExtractEmbedded(parseHTML(t, html), now)
		require.Len(t, posts, 1)

		post := posts[0]
		assert.Equal(t, "urn:li:activity:7100000000000000001", post.ID)
		assert.Equal(t, "Notes from the migration, part one.", post.Content)
		assert.Equal(t, 9, post.Stats.Likes)
		assert.Equal(t, models.SourceEmbedded, post.Source)
		require.NotNil(t, post.CreatedAt)
		assert.Equal(t, int64(1767000000000), post.CreatedAt.UnixMilli())
	})

	t.Run("ignores short and non-envelope nodes", func(t *testing.T) {
		t.Parallel()
		html := `<html><body>
			<code>{"flag":true}</code>
			<code>` + `{"note":"no included list here, just a long filler payload string to clear the size gate ................"}` + `</code>
		</body></html>`

		posts := extract.ExtractEmbedded(parseHTML(t, html), now)
		assert.Empty(t, posts)
	})

	t.Run("nil document", func(t *testing.T) {
		t.Parallel()
		assert.Nil(t, extract.ExtractEmbedded(nil, now))
	})
}
