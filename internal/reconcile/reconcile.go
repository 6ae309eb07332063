package reconcile

import (
	"sort"
	"strings"

	"github.com/jonesrussell/liharvest/internal/models"
)

const (
	// minFinalContentLen is the shortest merged content kept in the final
	// set; anything under it is extraction noise with no identifiable post.
	minFinalContentLen = 10
	// minInsertContentLen is the shortest content a DOM-only candidate needs
	// to be inserted as a new entry.
	minInsertContentLen = 20
	// prefixMatchLen is how much leading content two records must share to be
	// treated as the same post when identifiers are unavailable.
	prefixMatchLen = 100
	// minPrefixSourceLen is the shortest content eligible for prefix
	// matching at all; short texts collide too easily.
	minPrefixSourceLen = 50
)

// set is an identifier-keyed record collection preserving insertion order so
// that prefix matching and the final sort stay deterministic.
type set struct {
	order   []string
	records map[string]models.PostRecord
}

func newSet() *set {
	return &set{records: make(map[string]models.PostRecord)}
}

func (s *set) upsert(id string, record models.PostRecord) {
	if existing, ok := s.records[id]; ok {
		s.records[id] = Merge(existing, record)
		return
	}
	s.order = append(s.order, id)
	s.records[id] = record
}

// matchByPrefix returns the id of the first existing entry, in insertion
// order, whose content starts with the candidate's leading prefix.
// First-match is intentional: candidate sets are small and a best-match scan
// buys little.
func (s *set) matchByPrefix(candidate models.PostRecord) (string, bool) {
	if len(candidate.Content) < minPrefixSourceLen {
		return "", false
	}
	prefix := candidate.Content
	if len(prefix) > prefixMatchLen {
		prefix = prefix[:prefixMatchLen]
	}
	for _, id := range s.order {
		if strings.HasPrefix(s.records[id].Content, prefix) {
			return id, true
		}
	}
	return "", false
}

// Reconcile merges the candidate lists from the three sources into one
// canonical, date-sorted record set. API records seed the set because they
// carry the most structured stats; embedded records fold in by identifier;
// DOM records match by identifier or content prefix and may introduce new
// entries under a synthetic identifier. Empty inputs produce an empty,
// non-nil result, never an error.
func Reconcile(api, embedded, dom []models.PostRecord) []models.PostRecord {
	s := newSet()

	for _, record := range api {
		if record.ID == "" {
			continue
		}
		s.upsert(record.ID, record)
	}

	for _, record := range embedded {
		if record.ID == "" {
			continue
		}
		s.upsert(record.ID, record)
	}

	for _, record := range dom {
		if record.ID != "" {
			if _, ok := s.records[record.ID]; ok {
				s.upsert(record.ID, record)
				continue
			}
		}
		if id, ok := s.matchByPrefix(record); ok {
			s.upsert(id, record)
			continue
		}
		if len(record.Content) > minInsertContentLen {
			id := record.ID
			if id == "" {
				id = "dom-" + ContentHash(record.Content)
				record.ID = id
			}
			s.upsert(id, record)
		}
	}

	final := make([]models.PostRecord, 0, len(s.order))
	for _, id := range s.order {
		record := s.records[id]
		if !record.HasContent(minFinalContentLen) {
			continue
		}
		final = append(final, record)
	}

	SortByCreatedDesc(final)
	return final
}

// SortByCreatedDesc orders records newest first. Records without a recovered
// timestamp are treated as the oldest and sort last; the sort is stable so
// their relative order is preserved.
func SortByCreatedDesc(records []models.PostRecord) {
	sort.SliceStable(records, func(i, j int) bool {
		a, b := records[i].CreatedAt, records[j].CreatedAt
		switch {
		case a == nil:
			return false
		case b == nil:
			return true
		default:
			return a.After(*b)
		}
	})
}
