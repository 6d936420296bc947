package api

import (
	"context"
	"fmt"
	"net/url"

	"github.com/htran/glowdesk/internal/model"
)

// ListCollaborations fetches the caller's collaboration records,
// optionally filtered by the notification that delivered the invite.
// An empty notificationID returns the full collection.
func (c *Client) ListCollaborations(
	ctx context.Context,
	notificationID string,
) ([]model.Collaboration, error) {
	path := "/api/v1/collaborations"
	if notificationID != "" {
		q := url.Values{}
		q.Set("notification_id", notificationID)
		path += "?" + q.Encode()
	}

	var result CollaborationList
	if err := c.Get(ctx, path, &result); err != nil {
		return nil, fmt.Errorf("fetching collaborations: %w", err)
	}
	return result.Items, nil
}
