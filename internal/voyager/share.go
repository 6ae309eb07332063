package voyager

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jonesrussell/liharvest/internal/session"
)

// CreateShare publishes a text post through the content-creation endpoint and
// returns the URN of the created activity when the response exposes one.
func (c *Client) CreateShare(ctx context.Context, sess *session.Session, content string) (string, error) {
	if !sess.Valid() {
		return "", fmt.Errorf("no valid session")
	}
	if content == "" {
		return "", fmt.Errorf("empty content")
	}

	payload := map[string]any{
		"visibleToConnectionsOnly": false,
		"commentaryV2": map[string]any{
			"text":       content,
			"attributes": []any{},
		},
		"externalAudienceProviders": []any{},
		"media":                     []any{},
		"origin":                    "FEED",
	}

	raw, err := c.post(ctx, sess, "/voyager/api/contentcreation/normShares", payload)
	if err != nil {
		return "", fmt.Errorf("create share: %w", err)
	}

	var resp struct {
		Data struct {
			URN       string `json:"urn"`
			EntityURN string `json:"entityUrn"`
		} `json:"data"`
	}
	if err := json.Unmarshal(raw, &resp); err != nil {
		// The share was accepted; a malformed body only costs us the URN.
		return "", nil
	}
	if resp.Data.URN != "" {
		return resp.Data.URN, nil
	}
	return resp.Data.EntityURN, nil
}
