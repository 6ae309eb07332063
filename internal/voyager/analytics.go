package voyager

import (
	"context"
	"encoding/json"
	"net/url"
	"time"

	"github.com/jonesrussell/liharvest/internal/models"
	"github.com/jonesrussell/liharvest/internal/session"
)

const profileDecorationID = "com.linkedin.voyager.dash.deco.identity.profile.FullProfileWithEntities-93"

// FetchCreatorAnalytics gathers account-level analytics: follower and
// connection counts from the profile, profile views from the wvmp cards, and
// impressions/engagements from the creator overview. Each endpoint is
// fault-isolated; counters it could not fill stay at zero. When a counter is
// reported by more than one endpoint the maximum observed value wins.
func (c *Client) FetchCreatorAnalytics(ctx context.Context, sess *session.Session) *models.AnalyticsSnapshot {
	if !sess.Valid() || sess.MemberID == "" {
		return nil
	}

	snapshot := &models.AnalyticsSnapshot{FetchedAt: time.Now()}

	if err := c.fillProfileCounts(ctx, sess, snapshot); err != nil {
		c.logger.Warn("Profile counts endpoint failed", "error", err)
	}
	c.pause(ctx)

	if err := c.fillProfileViews(ctx, sess, snapshot); err != nil {
		c.logger.Warn("Profile views endpoint failed", "error", err)
	}
	c.pause(ctx)

	if err := c.fillCreatorOverview(ctx, sess, snapshot); err != nil {
		c.logger.Warn("Creator overview endpoint failed", "error", err)
	}

	return snapshot
}

func (c *Client) fillProfileCounts(ctx context.Context, sess *session.Session, snapshot *models.AnalyticsSnapshot) error {
	query := url.Values{}
	query.Set("q", "memberIdentity")
	query.Set("memberIdentity", sess.PublicIdentifier)
	query.Set("decorationId", profileDecorationID)

	raw, err := c.get(ctx, sess, "/voyager/api/identity/dash/profiles?"+query.Encode(), acceptNormalized, false)
	if err != nil {
		return err
	}
	env, err := DecodeEnvelope(raw)
	if err != nil {
		return err
	}

	for _, item := range env.Included {
		if _, ok := item["followersCount"]; ok {
			snapshot.TotalFollowers = item.Int("followersCount")
		}
		if _, ok := item["connectionsCount"]; ok {
			snapshot.Connections = item.Int("connectionsCount")
		}
	}
	return nil
}

func (c *Client) fillProfileViews(ctx context.Context, sess *session.Session, snapshot *models.AnalyticsSnapshot) error {
	query := url.Values{}
	query.Set("q", "cardType")
	query.Set("cardType", "WHO_VIEWED_ME_PREMIUM_PROFILE_DETAILS")

	raw, err := c.get(ctx, sess, "/voyager/api/identity/wvmpCards?"+query.Encode(), acceptNormalized, false)
	if err != nil {
		return err
	}
	env, err := DecodeEnvelope(raw)
	if err != nil {
		return err
	}

	for _, item := range env.Included {
		if _, ok := item["totalViewCount"]; ok {
			snapshot.ProfileViews = item.Int("totalViewCount")
		}
		if _, ok := item["viewerCount"]; ok {
			snapshot.UniqueViewers = item.Int("viewerCount")
		}
	}
	return nil
}

func (c *Client) fillCreatorOverview(ctx context.Context, sess *session.Session, snapshot *models.AnalyticsSnapshot) error {
	raw, err := c.get(ctx, sess, "/voyager/api/contentcreation/analytics/overview?q=overview", acceptNormalized, false)
	if err != nil {
		return err
	}

	// The overview endpoint sometimes omits the included list entirely, so
	// the strict envelope check does not apply here.
	var env Envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return err
	}

	if env.Data != nil {
		snapshot.TotalImpressions = env.Data.Int("totalImpressions")
		snapshot.TotalInteractions = env.Data.Int("totalEngagements")
		snapshot.NewFollowers = env.Data.Int("newFollowers")
	}

	// Some deployments report the counters on included entities instead.
	for _, item := range env.Included {
		if v := item.Int("impressionCount"); v > snapshot.TotalImpressions {
			snapshot.TotalImpressions = v
		}
		if v := item.Int("engagementCount"); v > snapshot.TotalInteractions {
			snapshot.TotalInteractions = v
		}
	}
	return nil
}
