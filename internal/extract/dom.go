// Package extract produces post candidates from the rendered page (DOM
// text signals and embedded JSON payloads) and orchestrates full extraction
// passes across all three sources.
package extract

import (
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/jonesrussell/liharvest/internal/models"
	"github.com/jonesrussell/liharvest/internal/timeparse"
)

const (
	// minDOMContentLen is the shortest body text a container may yield and
	// still be trusted.
	minDOMContentLen = 10
	// minFallbackTextLen is the shortest text fragment accepted by the
	// longest-run content fallback.
	minFallbackTextLen = 50
	// maxPlausibleLikes rejects counter matches that are clearly not a
	// reaction count (dates, identifiers).
	maxPlausibleLikes = 1_000_000
)

// containerSelectors identify post widgets across the layouts LinkedIn
// currently ships. Layout-specific and expected to rot.
var containerSelectors = strings.Join([]string{
	".profile-creator-shared-feed-update__container",
	".feed-shared-update-v2",
	`[data-urn*="activity"]`,
	".occludable-update",
	`[class*="feed-shared"]`,
}, ", ")

// contentSelectors are tried in order for the post body.
var contentSelectors = []string{
	".feed-shared-update-v2__description",
	".update-components-text",
	".feed-shared-text",
	".break-words",
	`[data-test-id="main-feed-activity-card__commentary"]`,
	".feed-shared-inline-show-more-text",
}

var (
	likesPatterns = []*regexp.Regexp{
		regexp.MustCompile(`(?i)(\d+[\s,.\x{00a0}]?\d*)\s*(?:réaction|reaction|like|j'aime)`),
		regexp.MustCompile(`(?m)(\d+)\s*$`),
	}
	commentsPattern   = regexp.MustCompile(`(?i)(\d+)\s*(?:comment|commentaire)`)
	viewsPattern      = regexp.MustCompile(`(?i)(\d+[\s,.\x{00a0}]?\d*)\s*(?:vue|view|impression)`)
	savesPattern      = regexp.MustCompile(`(?i)(\d+)\s*(?:enregistrement|save|bookmark)`)
	sharesPattern     = regexp.MustCompile(`(?i)(\d+)\s*(?:partage|repost|share|republication|diffusion)`)
	republishPattern  = regexp.MustCompile(`(?i)(\d+)\s*personnes?\s*ont\s*republié`)
	numberSeparators  = regexp.MustCompile(`[\s,.\x{00a0}]`)
	avatarURLFragment = []string{"profile", "avatar"}
)

// ExtractDOM scans the rendered page for post containers and produces
// lower-confidence candidates from their visible text. Containers yielding
// fewer than ten characters of body text are discarded entirely.
func ExtractDOM(doc *goquery.Document, now time.Time) []models.PostRecord {
	if doc == nil {
		return nil
	}

	var posts []models.PostRecord
	doc.Find(containerSelectors).Each(func(_ int, container *goquery.Selection) {
		post := extractPostFromContainer(container, now)
		if post == nil || !post.HasContent(minDOMContentLen) {
			return
		}
		posts = append(posts, *post)
	})
	return posts
}

func extractPostFromContainer(container *goquery.Selection, now time.Time) *models.PostRecord {
	post := &models.PostRecord{
		Source:      models.SourceDOM,
		ExtractedAt: now,
	}

	if urn, ok := container.Attr("data-urn"); ok && urn != "" {
		post.ID = urn
		post.URN = urn
	}

	post.Content = extractContent(container)
	extractStats(container, post)
	post.CreatedAt = extractTimestamp(container, now)
	post.Media = extractMedia(container)

	return post
}

// extractContent tries the known content selectors in order, then falls back
// to the longest left-to-right text fragment on the container.
func extractContent(container *goquery.Selection) string {
	for _, selector := range contentSelectors {
		if text := strings.TrimSpace(container.Find(selector).First().Text()); text != "" {
			return text
		}
	}

	content := ""
	container.Find(`span[dir="ltr"]`).EachWithBreak(func(_ int, span *goquery.Selection) bool {
		text := strings.TrimSpace(span.Text())
		if len(text) > minFallbackTextLen {
			content = text
			return false
		}
		return true
	})
	return content
}

// extractStats matches localized counter keywords against the container's
// full rendered text, normalizing thousands separators before parsing.
func extractStats(container *goquery.Selection, post *models.PostRecord) {
	fullText := container.Text()

	for _, pattern := range likesPatterns {
		if m := pattern.FindStringSubmatch(fullText); m != nil {
			if n := parseCount(m[1]); n > 0 && n < maxPlausibleLikes {
				post.Stats.Likes = n
				break
			}
		}
	}
	if m := commentsPattern.FindStringSubmatch(fullText); m != nil {
		post.Stats.Comments = parseCount(m[1])
	}
	if m := viewsPattern.FindStringSubmatch(fullText); m != nil {
		post.Stats.Views = parseCount(m[1])
	}
	if m := savesPattern.FindStringSubmatch(fullText); m != nil {
		post.Stats.Saves = parseCount(m[1])
	}
	if m := sharesPattern.FindStringSubmatch(fullText); m != nil {
		post.Stats.Shares = parseCount(m[1])
	}
	if post.Stats.Shares == 0 {
		if m := republishPattern.FindStringSubmatch(fullText); m != nil {
			post.Stats.Shares = parseCount(m[1])
		}
	}
}

// extractTimestamp reads a time element's machine-readable attribute,
// falling back to relative-time parsing of its displayed text.
func extractTimestamp(container *goquery.Selection, now time.Time) *time.Time {
	timeEl := container.Find("time").First()
	if timeEl.Length() == 0 {
		return nil
	}
	if datetime, ok := timeEl.Attr("datetime"); ok && datetime != "" {
		if t := timeparse.ParseString(datetime, now); t != nil {
			return t
		}
	}
	return timeparse.ParseRelative(timeEl.Text(), now)
}

// extractMedia detects attachments from indicator elements and media-asset
// image sources, excluding profile and avatar imagery.
func extractMedia(container *goquery.Selection) []models.Media {
	var media []models.Media

	if container.Find(`video, [class*="video"]`).Length() > 0 {
		media = append(media, models.Media{Type: models.MediaVideo})
	}
	if container.Find(`[class*="document"], [class*="carousel"]`).Length() > 0 {
		media = append(media, models.Media{Type: models.MediaDocument})
	}

	container.Find(`img[src*="media"]`).Each(func(_ int, img *goquery.Selection) {
		src, ok := img.Attr("src")
		if !ok || src == "" {
			return
		}
		for _, fragment := range avatarURLFragment {
			if strings.Contains(src, fragment) {
				return
			}
		}
		media = append(media, models.Media{Type: models.MediaImage, URL: src})
	})

	return media
}

func parseCount(raw string) int {
	cleaned := numberSeparators.ReplaceAllString(raw, "")
	n, err := strconv.Atoi(cleaned)
	if err != nil {
		return 0
	}
	return n
}
