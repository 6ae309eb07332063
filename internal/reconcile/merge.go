// Package reconcile merges post candidates produced by the independent
// extraction sources into one canonical record per post.
package reconcile

import (
	"strconv"

	"github.com/jonesrussell/liharvest/internal/models"
)

// Merge combines two records believed to represent the same logical post.
// Identifier, content, creation date and URL are first-non-empty with the
// existing record preferred; every stat is the per-field maximum so merged
// stats never shrink; media lists are concatenated and deduplicated by
// (type, url) keeping first-seen order; source tags concatenate for
// diagnostics.
func Merge(existing, incoming models.PostRecord) models.PostRecord {
	merged := models.PostRecord{
		ID:        firstNonEmpty(existing.ID, incoming.ID),
		URN:       firstNonEmpty(existing.URN, incoming.URN),
		Content:   firstNonEmpty(existing.Content, incoming.Content),
		CreatedAt: existing.CreatedAt,
		Stats:     existing.Stats.Max(incoming.Stats),
		Media:     dedupeMedia(append(append([]models.Media{}, existing.Media...), incoming.Media...)),
		URL:       firstNonEmpty(existing.URL, incoming.URL),
		Source:    mergeSources(existing.Source, incoming.Source),
	}

	if merged.CreatedAt == nil {
		merged.CreatedAt = incoming.CreatedAt
	}

	merged.ExtractedAt = existing.ExtractedAt
	if incoming.ExtractedAt.After(merged.ExtractedAt) {
		merged.ExtractedAt = incoming.ExtractedAt
	}

	return merged
}

// ContentHash derives a synthetic identifier suffix for records whose source
// could not determine one. It is a 32-bit string hash rendered in base 36,
// stable across runs for identical content.
func ContentHash(content string) string {
	var hash int32
	for _, r := range content {
		hash = hash<<5 - hash + int32(r)
	}
	// Mask rather than negate: -MinInt32 overflows back to itself.
	return strconv.FormatInt(int64(hash&0x7fffffff), 36)
}

func firstNonEmpty(a, b string) string {
	if a != "" {
		return a
	}
	return b
}

func mergeSources(a, b string) string {
	switch {
	case a == "":
		return b
	case b == "" || a == b:
		return a
	default:
		return a + "+" + b
	}
}

type mediaKey struct {
	typ models.MediaType
	url string
}

func dedupeMedia(media []models.Media) []models.Media {
	if len(media) == 0 {
		return nil
	}
	seen := make(map[mediaKey]struct{}, len(media))
	out := media[:0]
	for _, m := range media {
		key := mediaKey{typ: m.Type, url: m.URL}
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, m)
	}
	return out
}
