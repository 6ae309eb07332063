package voyager

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/jonesrussell/liharvest/internal/logger"
	"github.com/jonesrussell/liharvest/internal/models"
	"github.com/jonesrussell/liharvest/internal/session"
)

const (
	// DefaultBaseURL is the private API host. The endpoints under it are
	// unversioned and may disappear without notice.
	DefaultBaseURL = "https://www.linkedin.com"
	// DefaultTimeout is the default timeout for API requests.
	DefaultTimeout = 30 * time.Second
	// DefaultCallDelay is the politeness delay between sequential calls to
	// this client's endpoints. Not a correctness requirement.
	DefaultCallDelay = 300 * time.Millisecond

	acceptNormalized = "application/vnd.linkedin.normalized+json+2.1"
	acceptGraphQL    = "application/graphql"

	graphQLQueryID = "voyagerFeedDashProfileUpdatesByMemberShareFeed.34dd0fbe7837a1e3ba9587f7e0f84e7f"
)

// Client issues authenticated reads against the Voyager API. The supplied
// http.Client must carry the LinkedIn cookie jar; the anti-forgery token and
// locale come from the session threaded into each call.
type Client struct {
	baseURL    string
	httpClient *http.Client
	cookies    string
	delay      time.Duration
	logger     logger.Interface
}

// Option is a function that configures a Client.
type Option func(*Client)

// WithBaseURL sets the API host.
func WithBaseURL(baseURL string) Option {
	return func(c *Client) {
		c.baseURL = baseURL
	}
}

// WithHTTPClient sets a custom HTTP client (cookie jar, transport, timeout).
func WithHTTPClient(httpClient *http.Client) Option {
	return func(c *Client) {
		c.httpClient = httpClient
	}
}

// WithCookieHeader sets a raw Cookie header to send on every request, for
// callers without a cookie jar.
func WithCookieHeader(cookies string) Option {
	return func(c *Client) {
		c.cookies = cookies
	}
}

// WithCallDelay sets the delay between sequential endpoint calls.
func WithCallDelay(delay time.Duration) Option {
	return func(c *Client) {
		c.delay = delay
	}
}

// WithLogger sets the client logger.
func WithLogger(log logger.Interface) Option {
	return func(c *Client) {
		c.logger = log
	}
}

// NewClient creates a Voyager API client.
func NewClient(opts ...Option) *Client {
	client := &Client{
		baseURL:    DefaultBaseURL,
		httpClient: &http.Client{Timeout: DefaultTimeout},
		delay:      DefaultCallDelay,
		logger:     logger.NewNoOp(),
	}
	for _, opt := range opts {
		opt(client)
	}
	return client
}

// FetchPosts gathers the logged-in member's posts from the recent-activity
// feed, the long-history profile feed, and the GraphQL share feed. Each
// endpoint is independently fault-isolated: a failed or malformed response
// contributes zero records without aborting the others. Without a valid
// session the result is empty.
func (c *Client) FetchPosts(ctx context.Context, sess *session.Session) []models.PostRecord {
	if !sess.Valid() || sess.MemberID == "" {
		c.logger.Debug("No usable session, skipping API extraction")
		return nil
	}

	now := time.Now()
	var posts []models.PostRecord

	if batch, err := c.fetchFeedUpdates(ctx, sess, now); err != nil {
		c.logger.Warn("Feed updates endpoint failed", "error", err)
	} else {
		posts = append(posts, batch...)
	}

	c.pause(ctx)

	if batch, err := c.fetchProfileUpdates(ctx, sess, now); err != nil {
		c.logger.Warn("Profile updates endpoint failed", "error", err)
	} else {
		posts = append(posts, batch...)
	}

	c.pause(ctx)

	if batch, err := c.fetchGraphQL(ctx, sess, now); err != nil {
		c.logger.Warn("GraphQL endpoint failed", "error", err)
	} else {
		posts = append(posts, batch...)
	}

	c.logger.Debug("API extraction finished", "posts", len(posts))
	return posts
}

func (c *Client) fetchFeedUpdates(ctx context.Context, sess *session.Session, now time.Time) ([]models.PostRecord, error) {
	query := url.Values{}
	query.Set("count", "50")
	query.Set("moduleKey", "creator_profile_all")
	query.Set("numComments", "0")
	query.Set("numLikes", "0")
	query.Set("profileUrn", "urn:li:fsd_profile:"+sess.MemberID)
	query.Set("q", "profileRecentActivity")
	query.Set("start", "0")

	raw, err := c.get(ctx, sess, "/voyager/api/feed/updates?"+query.Encode(), acceptNormalized, true)
	if err != nil {
		return nil, err
	}
	env, err := DecodeEnvelope(raw)
	if err != nil {
		return nil, err
	}
	return DecodePosts(env, now), nil
}

func (c *Client) fetchProfileUpdates(ctx context.Context, sess *session.Session, now time.Time) ([]models.PostRecord, error) {
	query := url.Values{}
	query.Set("count", "100")
	query.Set("includeLongTermHistory", "true")
	query.Set("moduleKey", "creator_profile_all")
	query.Set("numComments", "0")
	query.Set("numLikes", "0")
	query.Set("profileUrn", "urn:li:fsd_profile:"+sess.MemberID)
	query.Set("q", "memberShareFeed")
	query.Set("start", "0")

	raw, err := c.get(ctx, sess, "/voyager/api/identity/profileUpdatesV2?"+query.Encode(), acceptNormalized, false)
	if err != nil {
		return nil, err
	}
	env, err := DecodeEnvelope(raw)
	if err != nil {
		return nil, err
	}
	return DecodePosts(env, now), nil
}

func (c *Client) fetchGraphQL(ctx context.Context, sess *session.Session, now time.Time) ([]models.PostRecord, error) {
	variables, err := json.Marshal(map[string]any{
		"profileUrn": "urn:li:fsd_profile:" + sess.MemberID,
		"count":      50,
		"start":      0,
	})
	if err != nil {
		return nil, fmt.Errorf("marshal graphql variables: %w", err)
	}

	query := url.Values{}
	query.Set("queryId", graphQLQueryID)
	query.Set("variables", string(variables))

	raw, err := c.get(ctx, sess, "/voyager/api/graphql?"+query.Encode(), acceptGraphQL, false)
	if err != nil {
		return nil, err
	}
	return DecodeGraphQLPosts(raw, now)
}

// get issues one authenticated read. Only 2xx responses are decoded.
func (c *Client) get(ctx context.Context, sess *session.Session, path, accept string, restli bool) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, http.NoBody)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	req.Header.Set("csrf-token", sess.CSRF)
	req.Header.Set("accept", accept)
	req.Header.Set("x-li-lang", localeOrDefault(sess))
	if c.cookies != "" {
		req.Header.Set("Cookie", c.cookies)
	}
	if restli {
		req.Header.Set("x-restli-protocol-version", "2.0.0")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		return nil, fmt.Errorf("unexpected status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read body: %w", err)
	}
	return body, nil
}

// post issues one authenticated write with a JSON body.
func (c *Client) post(ctx context.Context, sess *session.Session, path string, payload any) ([]byte, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	req.Header.Set("csrf-token", sess.CSRF)
	req.Header.Set("accept", acceptNormalized)
	req.Header.Set("content-type", "application/json")
	req.Header.Set("x-li-lang", localeOrDefault(sess))
	if c.cookies != "" {
		req.Header.Set("Cookie", c.cookies)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		return nil, fmt.Errorf("unexpected status %d", resp.StatusCode)
	}

	return io.ReadAll(resp.Body)
}

// pause sleeps for the configured inter-call delay, returning early when the
// context is canceled.
func (c *Client) pause(ctx context.Context) {
	if c.delay <= 0 {
		return
	}
	select {
	case <-time.After(c.delay):
	case <-ctx.Done():
	}
}

func localeOrDefault(sess *session.Session) string {
	if sess != nil && sess.Locale != "" {
		return sess.Locale
	}
	return session.DefaultLocale
}
