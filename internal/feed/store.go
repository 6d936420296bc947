package feed

import (
	"context"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"github.com/htran/glowdesk/internal/api"
	"github.com/htran/glowdesk/internal/model"
)

// API is the slice of the platform client the feed store depends on.
type API interface {
	ListNotifications(ctx context.Context, page, pageSize int) (*api.NotificationPage, error)
	GetUnreadCount(ctx context.Context) (int, error)
	SetNotificationRead(ctx context.Context, id string, read bool) error
	DeleteNotification(ctx context.Context, id string) error
	MarkAllNotificationsRead(ctx context.Context) error
	DeleteReadNotifications(ctx context.Context) error
}

// Store holds the paginated notification feed and its unread counter.
// All mutations go through Store methods so the counter is never
// updated independently of the items (single writer discipline); the
// mutex exists because Bubble Tea commands run on their own goroutines.
type Store struct {
	mu sync.Mutex

	client   API
	pageSize int
	log      *zap.Logger

	items       []model.Notification
	page        int
	hasMore     bool
	unreadCount int
}

// NewStore creates an empty feed store backed by the given client.
func NewStore(client API, pageSize int, log *zap.Logger) *Store {
	if pageSize < 1 {
		pageSize = 20
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Store{
		client:   client,
		pageSize: pageSize,
		log:      log,
		hasMore:  true,
	}
}

// Items returns a copy of the current feed, server order preserved
// (newest first).
func (s *Store) Items() []model.Notification {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]model.Notification, len(s.items))
	copy(out, s.items)
	return out
}

// Get returns the notification with the given id, if present.
func (s *Store) Get(id string) (model.Notification, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, n := range s.items {
		if n.ID == id {
			return n, true
		}
	}
	return model.Notification{}, false
}

// UnreadCount returns the current unread counter.
func (s *Store) UnreadCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.unreadCount
}

// HasMore reports whether another page can be loaded.
func (s *Store) HasMore() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.hasMore
}

// Page returns the last loaded page number.
func (s *Store) Page() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.page
}

// LoadPage fetches page n from the server. Page 1 replaces the feed;
// later pages append. A failed load degrades to an empty page with
// hasMore=false instead of propagating, so the UI shows "no more
// notifications" rather than crash-looping; session expiry is the one
// error still surfaced.
func (s *Store) LoadPage(ctx context.Context, n int) error {
	if n < 1 {
		n = 1
	}

	resp, err := s.client.ListNotifications(ctx, n, s.pageSize)
	if err != nil {
		s.log.Warn("feed page load failed",
			zap.Int("page", n), zap.Error(err))

		s.mu.Lock()
		if n == 1 {
			s.items = nil
		}
		s.page = n
		s.hasMore = false
		s.mu.Unlock()

		if api.IsAuthError(err) {
			return err
		}
		return nil
	}

	s.mu.Lock()
	if n == 1 {
		s.items = resp.Items
	} else {
		s.items = append(s.items, resp.Items...)
	}
	s.page = n
	s.hasMore = !resp.IsLastPage()
	s.mu.Unlock()

	return nil
}

// LoadNextPage fetches the page after the last loaded one.
func (s *Store) LoadNextPage(ctx context.Context) error {
	s.mu.Lock()
	next := s.page + 1
	more := s.hasMore
	s.mu.Unlock()

	if !more {
		return nil
	}
	return s.LoadPage(ctx, next)
}

// Refresh reloads page 1 and resynchronizes the unread counter from
// the server. The counter is never recomputed purely locally here:
// collaboration responses mutate read state outside the normal
// mark-read path, so only the server count is authoritative.
func (s *Store) Refresh(ctx context.Context) error {
	if err := s.LoadPage(ctx, 1); err != nil {
		return err
	}
	return s.ResyncUnread(ctx)
}

// ResyncUnread replaces the unread counter with the server's
// authoritative value. When the server cannot be reached the counter
// is re-derived from local items so it never goes stale silently.
func (s *Store) ResyncUnread(ctx context.Context) error {
	count, err := s.client.GetUnreadCount(ctx)
	if err != nil {
		s.log.Warn("unread resync failed, deriving locally", zap.Error(err))
		s.mu.Lock()
		s.unreadCount = s.countUnreadLocked()
		s.mu.Unlock()
		if api.IsAuthError(err) {
			return err
		}
		return nil
	}

	s.mu.Lock()
	s.unreadCount = count
	s.mu.Unlock()
	return nil
}

// SetRead flips a notification's read flag optimistically, issues the
// remote mutation, rolls the flip back on failure, and resynchronizes
// the unread counter from server truth regardless of outcome.
func (s *Store) SetRead(ctx context.Context, id string, read bool) error {
	txn, err := s.BeginReadMark(id, read)
	if err != nil {
		return err
	}

	remoteErr := s.client.SetNotificationRead(ctx, id, read)
	if remoteErr != nil {
		txn.Rollback()
	} else {
		txn.Commit()
	}

	if syncErr := s.ResyncUnread(ctx); syncErr != nil && remoteErr == nil {
		remoteErr = syncErr
	}
	return remoteErr
}

// Delete removes a notification server-side first, then locally, and
// re-derives the unread counter.
func (s *Store) Delete(ctx context.Context, id string) error {
	if err := s.client.DeleteNotification(ctx, id); err != nil {
		return err
	}

	s.RemoveLocal(id)
	return s.ResyncUnread(ctx)
}

// RemoveLocal drops a notification from the local feed without a
// server call. Used after a successful invite response, where the
// backend has already consumed the notification.
func (s *Store) RemoveLocal(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i, n := range s.items {
		if n.ID == id {
			s.items = append(s.items[:i], s.items[i+1:]...)
			break
		}
	}
	s.unreadCount = s.countUnreadLocked()
}

// MarkAllRead marks the whole feed read server-side, then locally.
// Callers must confirm with the user before invoking.
func (s *Store) MarkAllRead(ctx context.Context) error {
	if err := s.client.MarkAllNotificationsRead(ctx); err != nil {
		return err
	}

	s.mu.Lock()
	for i := range s.items {
		s.items[i].Read = true
	}
	s.mu.Unlock()

	return s.ResyncUnread(ctx)
}

// ClearRead deletes every read notification server-side, then locally.
// Callers must confirm with the user before invoking.
func (s *Store) ClearRead(ctx context.Context) error {
	if err := s.client.DeleteReadNotifications(ctx); err != nil {
		return err
	}

	s.mu.Lock()
	kept := s.items[:0]
	for _, n := range s.items {
		if !n.Read {
			kept = append(kept, n)
		}
	}
	s.items = kept
	s.mu.Unlock()

	return s.ResyncUnread(ctx)
}

// countUnreadLocked derives the unread count from local items.
// Callers must hold s.mu.
func (s *Store) countUnreadLocked() int {
	count := 0
	for _, n := range s.items {
		if !n.Read {
			count++
		}
	}
	return count
}

// setReadLocked flips the read flag in place and returns the prior
// value. Callers must hold s.mu.
func (s *Store) setReadLocked(id string, read bool) (prior bool, ok bool) {
	for i := range s.items {
		if s.items[i].ID == id {
			prior = s.items[i].Read
			s.items[i].Read = read
			return prior, true
		}
	}
	return false, false
}

// ErrNotInFeed is returned when a mutation targets an id the local
// feed does not hold.
var ErrNotInFeed = fmt.Errorf("notification not in feed")
