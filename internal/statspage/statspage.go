// Package statspage reads post analytics from the rendered per-post
// analytics page, the only place some counters (impressions, saves, sends)
// are exposed at all.
package statspage

import (
	"context"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/jonesrussell/liharvest/internal/models"
)

// Update is one analytics-page reading for a single post.
type Update struct {
	ActivityID     string
	Stats          models.Stats
	UniqueViews    int
	ProfileViews   int
	NewFollowers   int
	EngagementRate float64
	ExtractedAt    time.Time
}

// IsAnalyticsPage reports whether a page is a per-post analytics view. The
// URL alone usually decides; a post permalink rendering an impressions block
// counts too, which only the page text can reveal. pageText may be empty.
func IsAnalyticsPage(pageURL, pageText string) bool {
	if strings.Contains(pageURL, "/analytics/post-summary/") {
		return true
	}
	if strings.Contains(pageURL, "analytics") && strings.Contains(pageURL, "activity") {
		return true
	}
	return strings.Contains(pageURL, "feed/update") && strings.Contains(pageText, "Impressions")
}

// activity ids are the 19-digit numeric part of an activity URN; the URL may
// carry them raw, urlencoded, or hyphenated.
var (
	urlActivityPattern  = regexp.MustCompile(`(?i)activity[:\-](\d+)|activity%3A(\d+)`)
	looseDigitRun       = regexp.MustCompile(`\d{18,20}`)
	separatorCharacters = regexp.MustCompile(`[\s,.\x{00a0}\x{202f}]`)
)

// ActivityID recovers the post's activity id from the page URL, falling back
// to a long digit run near an "activity" mention in the page text.
func ActivityID(pageURL, pageText string) string {
	if m := urlActivityPattern.FindStringSubmatch(pageURL); m != nil {
		if m[1] != "" {
			return m[1]
		}
		return m[2]
	}

	lower := strings.ToLower(pageText)
	if idx := strings.Index(lower, "activity"); idx >= 0 {
		end := idx + 200
		if end > len(pageText) {
			end = len(pageText)
		}
		if run := looseDigitRun.FindString(pageText[idx:end]); run != "" {
			return run
		}
	}
	return ""
}

// kpiPattern is one labeled counter with its localized phrasings, tried in
// order. Number-first and label-first layouts both occur.
type kpiPattern struct {
	name     string
	patterns []*regexp.Regexp
	assign   func(*Update, int)
}

func numberFirst(labels string) *regexp.Regexp {
	return regexp.MustCompile(`(?i)([\d][\d\s,.\x{00a0}\x{202f}]*)\s*(?:` + labels + `)`)
}

func labelFirst(labels string) *regexp.Regexp {
	return regexp.MustCompile(`(?i)(?:` + labels + `)\s*:?\s*([\d][\d\s,.\x{00a0}\x{202f}]*)`)
}

var kpiPatterns = []kpiPattern{
	{
		name: "impressions",
		patterns: []*regexp.Regexp{
			numberFirst(`impressions?`),
			labelFirst(`impressions?`),
		},
		assign: func(u *Update, n int) { u.Stats.Views = n },
	},
	{
		name: "uniqueViews",
		patterns: []*regexp.Regexp{
			numberFirst(`membres atteints|members reached|vues uniques|unique views`),
			labelFirst(`membres atteints|members reached|vues uniques|unique views`),
		},
		assign: func(u *Update, n int) { u.UniqueViews = n },
	},
	{
		name: "profileViews",
		patterns: []*regexp.Regexp{
			numberFirst(`vues du profil|profile views?`),
			labelFirst(`vues du profil|profile views?`),
		},
		assign: func(u *Update, n int) { u.ProfileViews = n },
	},
	{
		name: "newFollowers",
		patterns: []*regexp.Regexp{
			numberFirst(`nouveaux abonnés|new followers?`),
			labelFirst(`nouveaux abonnés|new followers?`),
		},
		assign: func(u *Update, n int) { u.NewFollowers = n },
	},
	{
		name: "likes",
		patterns: []*regexp.Regexp{
			numberFirst(`réactions?|reactions?`),
			labelFirst(`réactions?|reactions?`),
		},
		assign: func(u *Update, n int) { u.Stats.Likes = n },
	},
	{
		name: "comments",
		patterns: []*regexp.Regexp{
			numberFirst(`commentaires?|comments?`),
			labelFirst(`commentaires?|comments?`),
		},
		assign: func(u *Update, n int) { u.Stats.Comments = n },
	},
	{
		name: "shares",
		patterns: []*regexp.Regexp{
			numberFirst(`republications?|reposts?|partages?|shares?`),
			labelFirst(`republications?|reposts?|partages?|shares?`),
		},
		assign: func(u *Update, n int) { u.Stats.Shares = n },
	},
	{
		name: "saves",
		patterns: []*regexp.Regexp{
			numberFirst(`enregistrements?|saves?`),
			labelFirst(`enregistrements?|saves?`),
		},
		assign: func(u *Update, n int) { u.Stats.Saves = n },
	},
	{
		name: "sends",
		patterns: []*regexp.Regexp{
			numberFirst(`envois?|sends?`),
			labelFirst(`envois?|sends?`),
		},
		assign: func(u *Update, n int) { u.Stats.Sends = n },
	},
	{
		name: "linkClicks",
		patterns: []*regexp.Regexp{
			numberFirst(`clics sur le lien|clics? sur lien|link clicks?`),
			labelFirst(`clics sur le lien|clics? sur lien|link clicks?`),
		},
		assign: func(u *Update, n int) { u.Stats.LinkClicks = n },
	},
}

// engagement rate appears with either ordering; French pages use a decimal
// comma.
var ratePatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)(?:taux d['’]engagement|engagement rate)\s*:?\s*([\d]+[.,]?[\d]*)\s*%`),
	regexp.MustCompile(`(?i)([\d]+[.,]?[\d]*)\s*%\s*(?:taux d['’]engagement|engagement rate)`),
}

// Extract reads every recognizable KPI off the page. It returns nil when the
// page yields neither an activity id nor any counter, which is how a page
// that has not finished rendering looks.
func Extract(doc *goquery.Document, pageURL string, now time.Time) *Update {
	if doc == nil {
		return nil
	}
	text := doc.Text()

	update := &Update{
		ActivityID:  ActivityID(pageURL, text),
		ExtractedAt: now,
	}

	found := false
	for _, kpi := range kpiPatterns {
		for _, pattern := range kpi.patterns {
			m := pattern.FindStringSubmatch(text)
			if m == nil {
				continue
			}
			if n := parseLocalizedNumber(m[1]); n > 0 {
				kpi.assign(update, n)
				found = true
			}
			break
		}
	}

	update.EngagementRate = extractRate(text, update.Stats)

	if update.ActivityID == "" && !found {
		return nil
	}
	return update
}

// HasCounters reports whether any KPI was actually read off the page. An
// update that carries only an activity id usually means the counters had not
// rendered yet.
func (u *Update) HasCounters() bool {
	if u == nil {
		return false
	}
	s := u.Stats
	return s.Likes > 0 || s.Comments > 0 || s.Shares > 0 || s.Views > 0 ||
		s.Saves > 0 || s.Sends > 0 || s.LinkClicks > 0 ||
		u.UniqueViews > 0 || u.ProfileViews > 0 || u.NewFollowers > 0 ||
		u.EngagementRate > 0
}

// extractRate prefers the displayed engagement rate and otherwise derives it
// from the counters when impressions are known.
func extractRate(text string, stats models.Stats) float64 {
	for _, pattern := range ratePatterns {
		if m := pattern.FindStringSubmatch(text); m != nil {
			raw := strings.ReplaceAll(m[1], ",", ".")
			if rate, err := strconv.ParseFloat(raw, 64); err == nil {
				return round2(rate)
			}
		}
	}

	if stats.Views > 0 {
		interactions := stats.Likes + stats.Comments + stats.Shares + stats.Saves
		return round2(100 * float64(interactions) / float64(stats.Views))
	}
	return 0
}

func round2(v float64) float64 {
	return float64(int(v*100+0.5)) / 100
}

func parseLocalizedNumber(raw string) int {
	cleaned := separatorCharacters.ReplaceAllString(raw, "")
	n, err := strconv.Atoi(cleaned)
	if err != nil {
		return 0
	}
	return n
}

// RetryDelay is how long the page is given to finish rendering before the
// single re-read.
const RetryDelay = 2 * time.Second

// ExtractWithRetry runs Extract and, when the read carries no counters,
// waits one fixed delay and tries once more with a freshly loaded document.
// Analytics pages render their counters late, and the url often yields the
// activity id before any counter exists, so an id alone is not a usable
// read. One deferred re-read recovers the common case without a polling
// loop.
func ExtractWithRetry(ctx context.Context, load func(context.Context) (*goquery.Document, error), pageURL string, delay time.Duration, now time.Time) (*Update, error) {
	doc, err := load(ctx)
	if err != nil {
		return nil, err
	}
	update := Extract(doc, pageURL, now)
	if update.HasCounters() {
		return update, nil
	}

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-time.After(delay):
	}

	doc, err = load(ctx)
	if err != nil {
		return nil, err
	}
	if retried := Extract(doc, pageURL, time.Now()); retried != nil {
		return retried, nil
	}
	return update, nil
}
