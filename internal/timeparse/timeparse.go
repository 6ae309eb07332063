// Package timeparse recovers post creation times from the mix of encodings
// LinkedIn exposes: numeric epoch fields, parseable date strings, localized
// relative-time phrases and the timestamp packed into activity identifiers.
package timeparse

import (
	"encoding/json"
	"math/big"
	"regexp"
	"strconv"
	"strings"
	"time"
)

const (
	// minValidEpochMillis is the oldest identifier-encoded timestamp accepted
	// (mid-2014, before which no activity identifiers of this form exist).
	minValidEpochMillis = 1_400_000_000_000
	// maxFutureWindow is how far past "now" a recovered timestamp may land
	// before it is rejected as a shift artifact.
	maxFutureWindow = 24 * time.Hour
	// urnTimestampShift is the number of low bits carrying sequence data in an
	// activity identifier; the remaining high bits are epoch milliseconds.
	urnTimestampShift = 22
)

// urnPrefixes are the identifier kinds whose numeric suffix encodes a
// timestamp.
var urnPrefixes = []string{
	"urn:li:activity:",
	"urn:li:ugcPost:",
	"urn:li:share:",
}

// String date layouts tried in order for priority-2 recovery.
var dateLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02T15:04:05.000-0700",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

type relativeUnit struct {
	pattern *regexp.Regexp
	span    time.Duration
}

// Relative-time unit table. Months and years are calendar approximations
// (30 and 365 days), matching the precision of the source phrases.
var relativeUnits = []relativeUnit{
	{regexp.MustCompile(`\bm\b|min|minute`), time.Minute},
	{regexp.MustCompile(`\bh\b|hr|hour|heure`), time.Hour},
	{regexp.MustCompile(`\bd\b|day|jour`), 24 * time.Hour},
	{regexp.MustCompile(`\bw\b|week|sem`), 7 * 24 * time.Hour},
	{regexp.MustCompile(`\bmo\b|month|mois`), 30 * 24 * time.Hour},
	{regexp.MustCompile(`\by\b|yr|year|\bans?\b`), 365 * 24 * time.Hour},
}

var (
	nowPhrase       = regexp.MustCompile(`now|maintenant|just|instant`)
	yesterdayPhrase = regexp.MustCompile(`yesterday|hier`)
	firstNumber     = regexp.MustCompile(`\d+`)
	digits          = regexp.MustCompile(`\d`)
)

// FromMillis converts an epoch-millisecond value to a UTC time, or nil when
// the value is not positive.
func FromMillis(ms int64) *time.Time {
	if ms <= 0 {
		return nil
	}
	t := time.UnixMilli(ms).UTC()
	return &t
}

// ParseString parses a date-bearing string: first as an absolute date in any
// known layout, then as a relative-time phrase. Returns nil when neither
// applies.
func ParseString(text string, now time.Time) *time.Time {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, text); err == nil && t.UnixMilli() > 0 {
			t = t.UTC()
			return &t
		}
	}
	return ParseRelative(text, now)
}

// ParseRelative resolves a short human relative-time phrase ("15m", "2h",
// "il y a 3 jours", "hier") against now. Unrecognized phrases yield nil.
func ParseRelative(text string, now time.Time) *time.Time {
	t := strings.ToLower(strings.TrimSpace(text))
	if t == "" {
		return nil
	}

	count := int64(1)
	if m := firstNumber.FindString(t); m != "" {
		if n, err := strconv.ParseInt(m, 10, 64); err == nil {
			count = n
		}
	}

	// Unit matching runs on the phrase with digits blanked out so that
	// single-letter units like "3d" keep their word boundary.
	unitText := digits.ReplaceAllString(t, " ")
	for _, unit := range relativeUnits {
		if unit.pattern.MatchString(unitText) {
			resolved := now.Add(-time.Duration(count) * unit.span).UTC()
			return &resolved
		}
	}

	if nowPhrase.MatchString(t) {
		resolved := now.UTC()
		return &resolved
	}
	if yesterdayPhrase.MatchString(t) {
		resolved := now.Add(-24 * time.Hour).UTC()
		return &resolved
	}

	return nil
}

// FromURN recovers the creation time packed into the numeric suffix of an
// activity-style URN. The identifier's high bits are epoch milliseconds;
// shifting out the low 22 sequence bits yields the timestamp. Identifiers are
// 19-digit numbers, beyond float64 precision, so the suffix is parsed with
// math/big. Results outside (mid-2014, now+24h) are rejected.
func FromURN(urn string, now time.Time) *time.Time {
	suffix := strings.TrimSpace(urn)
	for _, prefix := range urnPrefixes {
		suffix = strings.ReplaceAll(suffix, prefix, "")
	}
	if suffix == "" {
		return nil
	}

	id, ok := new(big.Int).SetString(suffix, 10)
	if !ok || id.Sign() <= 0 {
		return nil
	}

	shifted := new(big.Int).Rsh(id, urnTimestampShift)
	if !shifted.IsInt64() {
		return nil
	}
	millis := shifted.Int64()
	if millis <= minValidEpochMillis || millis >= now.Add(maxFutureWindow).UnixMilli() {
		return nil
	}

	t := time.UnixMilli(millis).UTC()
	return &t
}

// Field is one named date-bearing value. Order matters: earlier fields win
// ties within each recovery priority.
type Field struct {
	Name  string
	Value any
}

// FromFields recovers createdAt and lastModifiedAt from an ordered list of
// date-bearing fields. Numeric epoch values win over strings; fields whose
// name mentions modification feed the modified result instead of created.
func FromFields(fields []Field, now time.Time) (created, modified *time.Time) {
	// Priority 1: raw numeric epoch milliseconds.
	for _, f := range fields {
		ms, ok := asMillis(f.Value)
		if !ok {
			continue
		}
		t := FromMillis(ms)
		if t == nil {
			continue
		}
		if isModifiedField(f.Name) {
			if modified == nil {
				modified = t
			}
		} else if created == nil {
			created = t
		}
	}

	// Priority 2 and 3: parseable strings, then relative phrases. A
	// modification-named field never feeds created directly; it only
	// substitutes later, after every creation path has failed.
	for _, f := range fields {
		if created != nil && modified != nil {
			break
		}
		s, ok := f.Value.(string)
		if !ok || s == "" {
			continue
		}
		t := ParseString(s, now)
		if t == nil {
			continue
		}
		if isModifiedField(f.Name) {
			if modified == nil {
				modified = t
			}
		} else if created == nil {
			created = t
		}
	}

	return created, modified
}

// Resolve combines every recovery path in priority order for one post: named
// fields first, then the identifier encoding, then the modification time as a
// last resort. A nil result means the creation time is undeterminable.
func Resolve(fields []Field, urn string, now time.Time) *time.Time {
	created, modified := FromFields(fields, now)
	if created == nil && urn != "" {
		created = FromURN(urn, now)
	}
	if created == nil {
		created = modified
	}
	return created
}

func isModifiedField(name string) bool {
	return strings.Contains(strings.ToLower(name), "modified")
}

func asMillis(value any) (int64, bool) {
	switch v := value.(type) {
	case int64:
		return v, v > 0
	case int:
		return int64(v), v > 0
	case float64:
		return int64(v), v > 0
	case json.Number:
		n, err := v.Int64()
		return n, err == nil && n > 0
	default:
		return 0, false
	}
}
