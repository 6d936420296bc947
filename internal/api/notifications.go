package api

import (
	"context"
	"fmt"
	"net/url"
)

// ListNotifications fetches one page of the notification feed.
func (c *Client) ListNotifications(
	ctx context.Context,
	page int,
	pageSize int,
) (*NotificationPage, error) {
	if page < 1 {
		page = 1
	}

	q := url.Values{}
	q.Set("page", fmt.Sprint(page))
	if pageSize > 0 {
		q.Set("page_size", fmt.Sprint(pageSize))
	}

	var result NotificationPage
	path := "/api/v1/notifications?" + q.Encode()
	if err := c.Get(ctx, path, &result); err != nil {
		return nil, fmt.Errorf("fetching notifications page %d: %w", page, err)
	}
	if result.Page == 0 {
		result.Page = page
	}
	return &result, nil
}

// GetUnreadCount fetches the server's authoritative unread counter.
func (c *Client) GetUnreadCount(ctx context.Context) (int, error) {
	var result UnreadCount
	if err := c.Get(ctx, "/api/v1/notifications/unread-count", &result); err != nil {
		return 0, fmt.Errorf("fetching unread count: %w", err)
	}
	return result.Count, nil
}

// SetNotificationRead marks a single notification read or unread.
func (c *Client) SetNotificationRead(
	ctx context.Context,
	id string,
	read bool,
) error {
	path := "/api/v1/notifications/" + url.PathEscape(id)
	if err := c.Patch(ctx, path, readPatch{Read: read}, nil); err != nil {
		return fmt.Errorf("marking notification %s read=%t: %w", id, read, err)
	}
	return nil
}

// DeleteNotification removes a single notification server-side.
func (c *Client) DeleteNotification(ctx context.Context, id string) error {
	path := "/api/v1/notifications/" + url.PathEscape(id)
	if err := c.Delete(ctx, path); err != nil {
		return fmt.Errorf("deleting notification %s: %w", id, err)
	}
	return nil
}

// MarkAllNotificationsRead marks the entire feed read server-side.
func (c *Client) MarkAllNotificationsRead(ctx context.Context) error {
	if err := c.Post(ctx, "/api/v1/notifications/mark-all-read", nil, nil); err != nil {
		return fmt.Errorf("marking all notifications read: %w", err)
	}
	return nil
}

// DeleteReadNotifications removes every read notification server-side.
func (c *Client) DeleteReadNotifications(ctx context.Context) error {
	if err := c.Delete(ctx, "/api/v1/notifications/read"); err != nil {
		return fmt.Errorf("clearing read notifications: %w", err)
	}
	return nil
}
