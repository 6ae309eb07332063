// Package models defines the canonical record types shared across the
// extraction, reconciliation, storage and scheduling layers.
package models

import "time"

// Source tags mark where a candidate record came from. They are diagnostic
// only; reconciliation never branches on them.
const (
	SourceVoyagerAPI = "voyager_api"
	SourceGraphQL    = "graphql"
	SourceEmbedded   = "embedded"
	SourceDOM        = "dom"
	SourceStatsPage  = "stats_page"
)

// MediaType classifies an attachment on a post.
type MediaType string

// Known media types.
const (
	MediaImage    MediaType = "image"
	MediaVideo    MediaType = "video"
	MediaDocument MediaType = "document"
	MediaArticle  MediaType = "article"
)

// Media is a single attachment. Only Type is always present; the remaining
// fields depend on what the source exposed.
type Media struct {
	Type      MediaType `json:"type"`
	URL       string    `json:"url,omitempty"`
	Title     string    `json:"title,omitempty"`
	PageCount int       `json:"pageCount,omitempty"`
	Duration  int64     `json:"duration,omitempty"`
	Thumbnail string    `json:"thumbnail,omitempty"`
}

// Stats is the fixed engagement counter set carried on every post record.
// Counters are independently optional at the source and default to zero.
type Stats struct {
	Likes    int `json:"likes"`
	Comments int `json:"comments"`
	Shares   int `json:"shares"`
	Views    int `json:"views"`
	Saves    int `json:"saves"`
	Sends    int `json:"sends"`

	// LinkClicks only ever comes from a post's analytics page.
	LinkClicks int `json:"linkClicks"`
}

// Max returns the per-field maximum of s and other. Used by reconciliation,
// where a higher reading from any source is trusted over a lower one.
func (s Stats) Max(other Stats) Stats {
	return Stats{
		Likes:    maxInt(s.Likes, other.Likes),
		Comments: maxInt(s.Comments, other.Comments),
		Shares:   maxInt(s.Shares, other.Shares),
		Views:    maxInt(s.Views, other.Views),
		Saves:    maxInt(s.Saves, other.Saves),
		Sends:    maxInt(s.Sends, other.Sends),

		LinkClicks: maxInt(s.LinkClicks, other.LinkClicks),
	}
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}

// PostRecord is one authored post with whatever content, timing and
// engagement data the sources could supply. ID may be a LinkedIn URN or a
// synthetic dom-<hash> identifier for DOM-only records.
type PostRecord struct {
	ID          string     `json:"id"`
	URN         string     `json:"urn,omitempty"`
	Content     string     `json:"content"`
	CreatedAt   *time.Time `json:"createdAt,omitempty"`
	Stats       Stats      `json:"stats"`
	Media       []Media    `json:"media,omitempty"`
	URL         string     `json:"url,omitempty"`
	Source      string     `json:"source,omitempty"`
	ExtractedAt time.Time  `json:"extractedAt,omitempty"`
}

// HasContent reports whether the record carries enough body text to be worth
// keeping. Records under this threshold are extraction noise.
func (p *PostRecord) HasContent(minLen int) bool {
	return len(p.Content) >= minLen
}

// ScheduledStatus is the lifecycle state of a scheduled post.
type ScheduledStatus string

// Scheduled post lifecycle.
const (
	StatusScheduled  ScheduledStatus = "scheduled"
	StatusPublishing ScheduledStatus = "publishing"
	StatusPublished  ScheduledStatus = "published"
	StatusFailed     ScheduledStatus = "failed"
)

// ScheduledPost is a post queued for future publication.
type ScheduledPost struct {
	ID           string          `json:"id" db:"id"`
	Content      string          `json:"content" db:"content"`
	Media        []Media         `json:"media,omitempty"`
	ScheduledAt  time.Time       `json:"scheduledAt" db:"scheduled_at"`
	Status       ScheduledStatus `json:"status" db:"status"`
	CreatedAt    time.Time       `json:"createdAt" db:"created_at"`
	UpdatedAt    time.Time       `json:"updatedAt" db:"updated_at"`
	FirstComment string          `json:"firstComment,omitempty" db:"first_comment"`
	LastError    string          `json:"lastError,omitempty" db:"last_error"`
}

// AnalyticsSnapshot is an account-level creator analytics reading.
type AnalyticsSnapshot struct {
	TotalImpressions  int       `json:"totalImpressions"`
	TotalInteractions int       `json:"totalInteractions"`
	TotalFollowers    int       `json:"totalFollowers"`
	Connections       int       `json:"connections"`
	ProfileViews      int       `json:"profileViews"`
	UniqueViewers     int       `json:"uniqueViewers"`
	NewFollowers      int       `json:"newFollowers"`
	FetchedAt         time.Time `json:"fetchedAt"`
}
