package extract

import (
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/jonesrussell/liharvest/internal/models"
	"github.com/jonesrussell/liharvest/internal/voyager"
)

// minEmbeddedPayloadLen filters out the many tiny code nodes LinkedIn embeds
// for bootstrap flags; real entity payloads are far larger.
const minEmbeddedPayloadLen = 100

// ExtractEmbedded decodes the JSON payloads LinkedIn server-renders into
// code nodes. Payloads that are not included-entity envelopes, or that
// contain no post entities, contribute nothing.
func ExtractEmbedded(doc *goquery.Document, now time.Time) []models.PostRecord {
	if doc == nil {
		return nil
	}

	var posts []models.PostRecord
	doc.Find("code").Each(func(_ int, node *goquery.Selection) {
		raw := node.Text()
		if len(raw) < minEmbeddedPayloadLen {
			return
		}
		env, err := voyager.DecodeEnvelope([]byte(raw))
		if err != nil {
			return
		}
		posts = append(posts, voyager.DecodePosts(env, now)...)
	})
	// The decoder tags by transport; these came off the page.
	for i := range posts {
		posts[i].Source = models.SourceEmbedded
	}
	return posts
}
