// Package fetch loads LinkedIn pages as an authenticated browser would, so
// the embedded-payload and DOM extractors have a document to work on.
package fetch

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/gocolly/colly/v2"

	"github.com/jonesrussell/liharvest/internal/logger"
)

const (
	// DefaultUserAgent matches a current desktop browser; LinkedIn serves a
	// stripped page to anything it does not recognize.
	DefaultUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"
	// DefaultPoliteDelay spaces successive page loads.
	DefaultPoliteDelay = 1 * time.Second
	// allowedDomain restricts the fetcher to LinkedIn pages.
	allowedDomain = "www.linkedin.com"
)

// Fetcher loads pages with the session's cookies attached.
type Fetcher struct {
	cookies     string
	userAgent   string
	politeDelay time.Duration
	logger      logger.Interface
}

// Option customizes a Fetcher.
type Option func(*Fetcher)

// WithUserAgent overrides the browser identity.
func WithUserAgent(ua string) Option {
	return func(f *Fetcher) { f.userAgent = ua }
}

// WithPoliteDelay overrides the spacing between page loads.
func WithPoliteDelay(d time.Duration) Option {
	return func(f *Fetcher) { f.politeDelay = d }
}

// WithLogger sets the fetcher's logger.
func WithLogger(log logger.Interface) Option {
	return func(f *Fetcher) { f.logger = log }
}

// New builds a Fetcher that presents the given cookie header on every load.
func New(cookies string, opts ...Option) *Fetcher {
	f := &Fetcher{
		cookies:     cookies,
		userAgent:   DefaultUserAgent,
		politeDelay: DefaultPoliteDelay,
		logger:      logger.NewNoOp(),
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// Load fetches one page and parses it. The collector is built per call so a
// cancelled context cannot leak into later loads.
func (f *Fetcher) Load(ctx context.Context, pageURL string) (*goquery.Document, error) {
	if !strings.Contains(pageURL, allowedDomain) {
		return nil, fmt.Errorf("refusing to fetch off-domain url %q", pageURL)
	}

	collector := colly.NewCollector(
		colly.StdlibContext(ctx),
		colly.UserAgent(f.userAgent),
		colly.AllowedDomains(allowedDomain),
	)
	if err := collector.Limit(&colly.LimitRule{
		DomainGlob: "*",
		Delay:      f.politeDelay,
	}); err != nil {
		return nil, fmt.Errorf("failed to configure rate limit: %w", err)
	}

	collector.OnRequest(func(r *colly.Request) {
		r.Headers.Set("Cookie", f.cookies)
		r.Headers.Set("Accept-Language", "fr-FR,fr;q=0.9,en;q=0.8")
	})

	var (
		doc     *goquery.Document
		loadErr error
	)
	collector.OnResponse(func(r *colly.Response) {
		if r.StatusCode != http.StatusOK {
			loadErr = fmt.Errorf("page load returned status %d", r.StatusCode)
			return
		}
		doc, loadErr = goquery.NewDocumentFromReader(strings.NewReader(string(r.Body)))
	})
	collector.OnError(func(r *colly.Response, err error) {
		loadErr = fmt.Errorf("failed to load %s: %w", pageURL, err)
	})

	if err := collector.Visit(pageURL); err != nil {
		return nil, fmt.Errorf("failed to visit %s: %w", pageURL, err)
	}
	collector.Wait()

	if loadErr != nil {
		return nil, loadErr
	}
	if doc == nil {
		return nil, fmt.Errorf("no document for %s", pageURL)
	}

	f.logger.Debug("page loaded", "url", pageURL)
	return doc, nil
}

// LoadActivity fetches the public permalink for an activity URN.
func (f *Fetcher) LoadActivity(ctx context.Context, urn string) (*goquery.Document, error) {
	return f.Load(ctx, "https://"+allowedDomain+"/feed/update/"+urn+"/")
}
