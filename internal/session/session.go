// Package session acquires the LinkedIn session context every extractor
// depends on: the anti-forgery token, locale and the logged-in member's
// identity. A session is built once per page load and threaded explicitly
// into extraction calls; there is no ambient session state.
package session

import (
	"encoding/json"
	"net/http"
	"regexp"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

const (
	meType          = "com.linkedin.voyager.common.Me"
	miniProfileType = "com.linkedin.voyager.identity.shared.MiniProfile"

	// DefaultLocale is assumed when the locale cookie is absent.
	DefaultLocale = "fr_FR"
)

var (
	jsessionPattern    = regexp.MustCompile(`JSESSIONID="?([^";]+)"?`)
	langPattern        = regexp.MustCompile(`PLAY_LANG="?([^";]+)"?`)
	profilePathPattern = regexp.MustCompile(`/in/([^/?]+)`)
)

// Session is the credential and identity context required by the Voyager
// extractors. Extraction degrades to empty results when it is absent.
type Session struct {
	CSRF             string `json:"csrf"`
	Locale           string `json:"locale"`
	MemberID         string `json:"memberId"`
	PublicIdentifier string `json:"publicIdentifier"`
	FirstName        string `json:"firstName"`
	LastName         string `json:"lastName"`
}

// Valid reports whether the session carries the anti-forgery token the
// private API requires.
func (s *Session) Valid() bool {
	return s != nil && s.CSRF != ""
}

// CSRFFromCookie extracts the anti-forgery token from a raw cookie header
// value. The token is the JSESSIONID value, quotes stripped.
func CSRFFromCookie(cookie string) string {
	if m := jsessionPattern.FindStringSubmatch(cookie); m != nil {
		return m[1]
	}
	return ""
}

// LocaleFromCookie extracts the UI locale from a raw cookie header value.
func LocaleFromCookie(cookie string) string {
	if m := langPattern.FindStringSubmatch(cookie); m != nil {
		return m[1]
	}
	return DefaultLocale
}

// FromCookieHeader builds a partial session from a raw Cookie header value,
// the form users paste out of their browser's devtools.
func FromCookieHeader(header string) *Session {
	return &Session{
		CSRF:   CSRFFromCookie(header),
		Locale: LocaleFromCookie(header),
	}
}

// FromCookies builds a partial session (token and locale only) from an HTTP
// cookie jar. Identity fields are filled from a page document separately.
func FromCookies(cookies []*http.Cookie) *Session {
	s := &Session{Locale: DefaultLocale}
	for _, c := range cookies {
		switch c.Name {
		case "JSESSIONID":
			s.CSRF = strings.Trim(c.Value, `"`)
		case "PLAY_LANG":
			s.Locale = strings.Trim(c.Value, `"`)
		}
	}
	return s
}

// embeddedMe is the identity envelope LinkedIn embeds in inert code nodes.
type embeddedMe struct {
	Data     map[string]any   `json:"data"`
	Included []map[string]any `json:"included"`
}

// FillIdentity completes the session's identity fields from a rendered page.
// It prefers the embedded Me payload and falls back to profile links in the
// page chrome. Missing identity is tolerated; extraction that needs it
// returns empty results.
func (s *Session) FillIdentity(doc *goquery.Document, pageURL string) {
	if doc == nil {
		return
	}
	if s.fillFromEmbedded(doc) {
		return
	}
	s.fillFromPage(doc, pageURL)
}

// fillFromEmbedded scans code nodes for the Me envelope and resolves the
// referenced MiniProfile entity. Most nodes are not JSON; failures are
// skipped silently.
func (s *Session) fillFromEmbedded(doc *goquery.Document) bool {
	found := false
	doc.Find("code").EachWithBreak(func(_ int, sel *goquery.Selection) bool {
		text := sel.Text()
		if text == "" {
			return true
		}

		var payload embeddedMe
		if err := json.Unmarshal([]byte(text), &payload); err != nil {
			return true
		}
		if !isValidMe(payload.Data) {
			return true
		}

		miniRef, _ := payload.Data["*miniProfile"].(string)
		plainID := payload.Data["plainId"]
		for _, item := range payload.Included {
			typ, _ := item["$type"].(string)
			urn, _ := item["entityUrn"].(string)
			if typ != miniProfileType || urn != miniRef {
				continue
			}
			s.MemberID = numberToString(plainID)
			s.PublicIdentifier, _ = item["publicIdentifier"].(string)
			s.FirstName, _ = item["firstName"].(string)
			s.LastName, _ = item["lastName"].(string)
			found = true
			return false
		}
		return true
	})
	return found
}

// fillFromPage recovers at least the public identifier from profile links in
// the navigation chrome, the feed identity module, or the URL path.
func (s *Session) fillFromPage(doc *goquery.Document, pageURL string) {
	if href, ok := doc.Find(`.global-nav__me a[href*="/in/"]`).Attr("href"); ok {
		if m := profilePathPattern.FindStringSubmatch(href); m != nil {
			s.PublicIdentifier = m[1]
			return
		}
	}

	identity := doc.Find(".feed-identity-module")
	if identity.Length() > 0 {
		if href, ok := identity.Find(`a[href*="/in/"]`).Attr("href"); ok {
			if m := profilePathPattern.FindStringSubmatch(href); m != nil {
				s.PublicIdentifier = m[1]
				name := strings.TrimSpace(identity.Find(".feed-identity-module__actor-meta, .t-16").First().Text())
				s.FirstName, s.LastName = splitName(name)
				return
			}
		}
	}

	if m := profilePathPattern.FindStringSubmatch(pageURL); m != nil {
		s.PublicIdentifier = m[1]
		name := strings.TrimSpace(doc.Find(".text-heading-xlarge").First().Text())
		s.FirstName, s.LastName = splitName(name)
	}
}

func isValidMe(data map[string]any) bool {
	if data == nil {
		return false
	}
	typ, _ := data["$type"].(string)
	if typ != meType {
		return false
	}
	if _, ok := data["plainId"].(float64); !ok {
		return false
	}
	_, hasRef := data["*miniProfile"].(string)
	return hasRef
}

func splitName(full string) (first, last string) {
	parts := strings.Fields(full)
	if len(parts) == 0 {
		return "", ""
	}
	return parts[0], strings.Join(parts[1:], " ")
}

func numberToString(v any) string {
	switch n := v.(type) {
	case float64:
		return strconv.FormatInt(int64(n), 10)
	case string:
		return n
	default:
		return ""
	}
}
