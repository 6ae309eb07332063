// Package voyager fetches and decodes posts from LinkedIn's private Voyager
// API. The response shapes are undocumented and unversioned, so every field
// access is optional and decoding degrades instead of failing.
package voyager

import (
	"encoding/json"
	"errors"
	"strings"
)

// ErrNotEnvelope is returned when a payload does not have the normalized
// entity-list envelope shape.
var ErrNotEnvelope = errors.New("payload is not a normalized envelope")

// Entity is one element of a normalized response. Entities reference each
// other through URN-valued keys prefixed with "*" rather than embedding, so
// all access goes through nil-tolerant helpers.
type Entity map[string]any

// Str returns the string at key, or empty.
func (e Entity) Str(key string) string {
	if e == nil {
		return ""
	}
	s, _ := e[key].(string)
	return s
}

// Int returns the number at key truncated to int, or zero.
func (e Entity) Int(key string) int {
	if e == nil {
		return 0
	}
	switch v := e[key].(type) {
	case float64:
		return int(v)
	case int:
		return v
	case int64:
		return int(v)
	case json.Number:
		n, err := v.Int64()
		if err != nil {
			return 0
		}
		return int(n)
	default:
		return 0
	}
}

// Child returns the nested object at key, or nil.
func (e Entity) Child(key string) Entity {
	if e == nil {
		return nil
	}
	m, _ := e[key].(map[string]any)
	return Entity(m)
}

// Text walks a path of nested objects and returns the string at the leaf.
func (e Entity) Text(path ...string) string {
	cur := e
	for i, key := range path {
		if i == len(path)-1 {
			return cur.Str(key)
		}
		cur = cur.Child(key)
		if cur == nil {
			return ""
		}
	}
	return ""
}

// List returns the array at key, or nil.
func (e Entity) List(key string) []any {
	if e == nil {
		return nil
	}
	l, _ := e[key].([]any)
	return l
}

// URN returns the entity's identifier, preferring urn over entityUrn.
func (e Entity) URN() string {
	if u := e.Str("urn"); u != "" {
		return u
	}
	return e.Str("entityUrn")
}

// IsPost reports whether the entity looks like an authored post rather than
// a referenced fragment (author block, social counts, media asset).
func (e Entity) IsPost() bool {
	typ := e.Str("$type")
	if strings.Contains(typ, "Update") || strings.Contains(typ, "Activity") {
		return true
	}
	return strings.Contains(e.Str("entityUrn"), "activity")
}

// Envelope is the normalized response shape shared by the feed, profile and
// embedded-payload sources: a data object plus a flat list of typed entities
// cross-referenced by URN.
type Envelope struct {
	Data     Entity   `json:"data"`
	Included []Entity `json:"included"`
}

// DecodeEnvelope parses raw JSON and validates the envelope shape. Callers
// branch on the returned error; there is no panic-driven control flow and no
// partially-decoded result.
func DecodeEnvelope(raw []byte) (*Envelope, error) {
	var env Envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return nil, err
	}
	if env.Included == nil {
		return nil, ErrNotEnvelope
	}
	return &env, nil
}

// Index builds the URN-to-entity lookup required to resolve cross references
// before any individual post can be decoded.
func (env *Envelope) Index() map[string]Entity {
	index := make(map[string]Entity, len(env.Included))
	for _, item := range env.Included {
		if urn := item.URN(); urn != "" {
			index[urn] = item
		}
	}
	return index
}
