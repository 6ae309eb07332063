package voyager

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/jonesrussell/liharvest/internal/models"
	"github.com/jonesrussell/liharvest/internal/timeparse"
)

// repostMarker prefixes content recovered from a reshared update.
const repostMarker = "[Repartagé] "

// permalinkBase is the public permalink prefix for activity URNs.
const permalinkBase = "https://www.linkedin.com/feed/update/"

// DecodePosts extracts every post entity from a normalized envelope. Posts
// reference shared entities (commentary, social counts, media assets) through
// the envelope's included list, so the URN index is built first. Entities
// without an identifier are discarded.
func DecodePosts(env *Envelope, now time.Time) []models.PostRecord {
	if env == nil {
		return nil
	}

	index := env.Index()
	posts := make([]models.PostRecord, 0, len(env.Included))

	for _, item := range env.Included {
		if !item.IsPost() {
			continue
		}

		urn := item.URN()
		if urn == "" {
			continue
		}

		record := models.PostRecord{
			ID:          urn,
			URN:         urn,
			Content:     resolveContent(item, index),
			CreatedAt:   resolveCreatedAt(item, index, urn, now),
			Stats:       resolveStats(item, index),
			Media:       resolveMedia(item, index),
			URL:         resolveURL(item, urn),
			Source:      models.SourceVoyagerAPI,
			ExtractedAt: now,
		}
		posts = append(posts, record)
	}

	return posts
}

// resolveContent tries, in order: the inline commentary field, the referenced
// commentary entity, then the referenced reshared update with a repost marker.
func resolveContent(item Entity, index map[string]Entity) string {
	if text := item.Text("commentary", "text", "text"); text != "" {
		return text
	}
	if ref := item.Str("*commentary"); ref != "" {
		if commentary := index[ref]; commentary != nil {
			if text := commentary.Text("text", "text"); text != "" {
				return text
			}
		}
	}
	if ref := item.Str("*resharedUpdate"); ref != "" {
		if reshared := index[ref]; reshared != nil {
			if text := reshared.Text("commentary", "text", "text"); text != "" {
				return repostMarker + text
			}
		}
	}
	return ""
}

// resolveStats reads inline social counts, then lets a referenced social
// detail entity fill in anything the inline summary left at zero.
func resolveStats(item Entity, index map[string]Entity) models.Stats {
	var stats models.Stats

	if detail := item.Child("socialDetail"); detail != nil {
		counts := detail.Child("totalSocialActivityCounts")
		stats = countsToStats(counts)
	}

	if ref := item.Str("*socialDetail"); ref != "" {
		if detail := index[ref]; detail != nil {
			if counts := detail.Child("totalSocialActivityCounts"); counts != nil {
				referenced := countsToStats(counts)
				stats = stats.Max(referenced)
			}
		}
	}

	return stats
}

func countsToStats(counts Entity) models.Stats {
	if counts == nil {
		return models.Stats{}
	}
	shares := counts.Int("numShares")
	if shares == 0 {
		shares = counts.Int("numReposts")
	}
	views := counts.Int("numImpressions")
	if views == 0 {
		views = counts.Int("numViews")
	}
	saves := counts.Int("numSaves")
	if saves == 0 {
		saves = counts.Int("numBookmarks")
	}
	sends := counts.Int("numSends")
	if sends == 0 {
		sends = counts.Int("numShares")
	}
	return models.Stats{
		Likes:    counts.Int("numLikes"),
		Comments: counts.Int("numComments"),
		Shares:   shares,
		Views:    views,
		Saves:    saves,
		Sends:    sends,
	}
}

// resolveCreatedAt recovers the post date through the full priority chain:
// direct fields, referenced update metadata, the URN encoding, and finally
// the modification time as a substitute.
func resolveCreatedAt(item Entity, index map[string]Entity, urn string, now time.Time) *time.Time {
	fields := []timeparse.Field{
		{Name: "createdTime", Value: item["createdTime"]},
		{Name: "postedAt", Value: item["postedAt"]},
		{Name: "lastModifiedTime", Value: item["lastModifiedTime"]},
		{Name: "lastModifiedAt", Value: item["lastModifiedAt"]},
		{Name: "modifiedAt", Value: item["modifiedAt"]},
		{Name: "publishedAt", Value: item["publishedAt"]},
		{Name: "actorTimestamp", Value: item["actorTimestamp"]},
		{Name: "actorSubDesc", Value: item.Text("actor", "subDescription", "text")},
	}

	if ref := item.Str("*updateMetadata"); ref != "" {
		if metadata := index[ref]; metadata != nil {
			fields = append(fields,
				timeparse.Field{Name: "metadataCreatedAt", Value: metadata["createdAt"]},
				timeparse.Field{Name: "metadataLastModifiedAt", Value: metadata["lastModifiedAt"]},
			)
		}
	}

	return timeparse.Resolve(fields, urn, now)
}

func resolveURL(item Entity, urn string) string {
	if link := item.Str("permaLink"); link != "" {
		return link
	}
	return permalinkBase + urn
}

// resolveMedia collects image, document, video and article attachments from
// the item, dereferencing image assets through the index when they are
// pointer-valued.
func resolveMedia(item Entity, index map[string]Entity) []models.Media {
	var media []models.Media
	content := item.Child("content")

	for _, imgRef := range content.List("images") {
		var img Entity
		switch v := imgRef.(type) {
		case string:
			img = index[v]
		case map[string]any:
			img = Entity(v)
		}
		if img == nil {
			continue
		}
		url := img.Str("rootUrl")
		if url == "" {
			url = img.Text("data", "url")
		}
		if url != "" {
			media = append(media, models.Media{Type: models.MediaImage, URL: url})
		}
	}

	doc := content.Child("document")
	if doc == nil {
		doc = item.Child("document")
	}
	if doc != nil {
		title := doc.Str("title")
		if title == "" {
			title = "Carrousel"
		}
		media = append(media, models.Media{
			Type:      models.MediaDocument,
			Title:     title,
			PageCount: doc.Int("pageCount"),
		})
	}

	video := content.Child("video")
	if video == nil {
		video = item.Child("video")
	}
	if video != nil {
		media = append(media, models.Media{
			Type:      models.MediaVideo,
			Duration:  int64(video.Int("duration")),
			Thumbnail: video.Text("thumbnail", "rootUrl"),
		})
	}

	if article := content.Child("article"); article != nil {
		media = append(media, models.Media{
			Type:  models.MediaArticle,
			Title: article.Str("title"),
			URL:   article.Str("url"),
		})
	}

	return media
}

// graphQLResponse is the narrower shape returned by the GraphQL query
// endpoint, which embeds its entities instead of flattening them.
type graphQLResponse struct {
	Data struct {
		Connection struct {
			Elements []Entity `json:"elements"`
		} `json:"feedDashProfileUpdatesByMemberShareFeedConnection"`
	} `json:"data"`
}

// DecodeGraphQLPosts extracts posts from a GraphQL member-share-feed
// response. Elements missing an identifier are dropped.
func DecodeGraphQLPosts(raw []byte, now time.Time) ([]models.PostRecord, error) {
	var resp graphQLResponse
	if err := json.Unmarshal(raw, &resp); err != nil {
		return nil, fmt.Errorf("decode graphql response: %w", err)
	}

	var posts []models.PostRecord
	for _, element := range resp.Data.Connection.Elements {
		update := element.Child("update")
		if update == nil {
			update = element
		}

		urn := update.URN()
		if urn == "" {
			continue
		}

		fields := []timeparse.Field{
			{Name: "postedAt", Value: update["postedAt"]},
			{Name: "createdAt", Value: update["createdAt"]},
			{Name: "createdTime", Value: update["createdTime"]},
			{Name: "publishedAt", Value: update["publishedAt"]},
			{Name: "elementPostedAt", Value: element["postedAt"]},
			{Name: "elementCreatedTime", Value: element["createdTime"]},
		}

		counts := update.Child("socialDetail").Child("totalSocialActivityCounts")
		posts = append(posts, models.PostRecord{
			ID:        urn,
			URN:       urn,
			Content:   update.Text("commentary", "text", "text"),
			CreatedAt: timeparse.Resolve(fields, urn, now),
			Stats: models.Stats{
				Likes:    counts.Int("numLikes"),
				Comments: counts.Int("numComments"),
				Shares:   counts.Int("numShares"),
				Views:    counts.Int("numImpressions"),
			},
			URL:         update.Str("permaLink"),
			Source:      models.SourceGraphQL,
			ExtractedAt: now,
		})
	}

	return posts, nil
}
