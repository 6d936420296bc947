package feed_test

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/htran/glowdesk/internal/api"
	"github.com/htran/glowdesk/internal/feed"
	"github.com/htran/glowdesk/internal/model"
)

// fakeAPI implements feed.API with programmable responses.
type fakeAPI struct {
	pages      map[int]*api.NotificationPage
	listErr    error
	unread     int
	unreadErr  error
	setReadErr error
	deleteErr  error
	bulkErr    error

	setReadCalls int
	unreadCalls  int
}

func (f *fakeAPI) ListNotifications(_ context.Context, page, _ int) (*api.NotificationPage, error) {
	if f.listErr != nil {
		return nil, f.listErr
	}
	p, ok := f.pages[page]
	if !ok {
		return &api.NotificationPage{Page: page, LastPage: page}, nil
	}
	return p, nil
}

func (f *fakeAPI) GetUnreadCount(context.Context) (int, error) {
	f.unreadCalls++
	if f.unreadErr != nil {
		return 0, f.unreadErr
	}
	return f.unread, nil
}

func (f *fakeAPI) SetNotificationRead(_ context.Context, _ string, _ bool) error {
	f.setReadCalls++
	return f.setReadErr
}

func (f *fakeAPI) DeleteNotification(context.Context, string) error {
	return f.deleteErr
}

func (f *fakeAPI) MarkAllNotificationsRead(context.Context) error {
	return f.bulkErr
}

func (f *fakeAPI) DeleteReadNotifications(context.Context) error {
	return f.bulkErr
}

func notif(id string, read bool) model.Notification {
	return model.Notification{
		ID:        id,
		Title:     "Notification " + id,
		Message:   "message " + id,
		Read:      read,
		CreatedAt: time.Now(),
	}
}

func twoPageAPI() *fakeAPI {
	return &fakeAPI{
		pages: map[int]*api.NotificationPage{
			1: {
				Items:    []model.Notification{notif("n1", false), notif("n2", true)},
				Page:     1,
				LastPage: 2,
			},
			2: {
				Items:    []model.Notification{notif("n3", false)},
				Page:     2,
				LastPage: 2,
			},
		},
		unread: 2,
	}
}

func TestLoadPageReplacesThenAppends(t *testing.T) {
	f := twoPageAPI()
	s := feed.NewStore(f, 20, nil)

	require.NoError(t, s.LoadPage(context.Background(), 1))
	assert.Len(t, s.Items(), 2)
	assert.True(t, s.HasMore())

	require.NoError(t, s.LoadNextPage(context.Background()))
	assert.Len(t, s.Items(), 3)
	assert.False(t, s.HasMore())
	assert.Equal(t, 2, s.Page())

	// Reloading page 1 replaces instead of appending.
	require.NoError(t, s.LoadPage(context.Background(), 1))
	assert.Len(t, s.Items(), 2)
}

func TestLoadPageFailureDegrades(t *testing.T) {
	f := twoPageAPI()
	f.listErr = fmt.Errorf("connection refused")
	s := feed.NewStore(f, 20, nil)

	// Load failures do not propagate; the feed degrades to empty with
	// no further pages instead of crash-looping.
	require.NoError(t, s.LoadPage(context.Background(), 1))
	assert.Empty(t, s.Items())
	assert.False(t, s.HasMore())
}

func TestRefreshResyncsUnreadFromServer(t *testing.T) {
	f := twoPageAPI()
	f.unread = 7 // server truth diverges from the local page contents
	s := feed.NewStore(f, 20, nil)

	require.NoError(t, s.Refresh(context.Background()))
	assert.Equal(t, 7, s.UnreadCount())
}

func TestSetReadOptimisticCommit(t *testing.T) {
	f := twoPageAPI()
	s := feed.NewStore(f, 20, nil)
	require.NoError(t, s.Refresh(context.Background()))

	f.unread = 1
	require.NoError(t, s.SetRead(context.Background(), "n1", true))

	n, ok := s.Get("n1")
	require.True(t, ok)
	assert.True(t, n.Read)
	assert.Equal(t, 1, s.UnreadCount())
	assert.Equal(t, 1, f.setReadCalls)
}

func TestSetReadRollsBackOnRemoteFailure(t *testing.T) {
	f := twoPageAPI()
	s := feed.NewStore(f, 20, nil)
	require.NoError(t, s.Refresh(context.Background()))

	f.setReadErr = fmt.Errorf("boom")
	err := s.SetRead(context.Background(), "n1", true)
	require.Error(t, err)

	n, ok := s.Get("n1")
	require.True(t, ok)
	assert.False(t, n.Read, "optimistic flip must be rolled back")

	// The counter was resynchronized from server truth afterwards.
	assert.Equal(t, 2, s.UnreadCount())
}

func TestSetReadUnknownID(t *testing.T) {
	f := twoPageAPI()
	s := feed.NewStore(f, 20, nil)
	require.NoError(t, s.Refresh(context.Background()))

	err := s.SetRead(context.Background(), "ghost", true)
	assert.ErrorIs(t, err, feed.ErrNotInFeed)
	assert.Equal(t, 0, f.setReadCalls)
}

func TestReadMarkTransactionPairsWithRollback(t *testing.T) {
	f := twoPageAPI()
	s := feed.NewStore(f, 20, nil)
	require.NoError(t, s.Refresh(context.Background()))

	txn, err := s.BeginReadMark("n1", true)
	require.NoError(t, err)
	assert.False(t, txn.Prior())

	n, _ := s.Get("n1")
	assert.True(t, n.Read)

	txn.Rollback()
	n, _ = s.Get("n1")
	assert.False(t, n.Read)

	// Rollback after the transaction ended is a no-op.
	txn.Rollback()
	txn.Commit()
	n, _ = s.Get("n1")
	assert.False(t, n.Read)
}

func TestRemoveLocalReDerivesUnread(t *testing.T) {
	f := twoPageAPI()
	s := feed.NewStore(f, 20, nil)
	require.NoError(t, s.LoadPage(context.Background(), 1))

	s.RemoveLocal("n1")
	assert.Len(t, s.Items(), 1)
	assert.Equal(t, 0, s.UnreadCount())
}

func TestMarkAllReadAndClearRead(t *testing.T) {
	f := twoPageAPI()
	s := feed.NewStore(f, 20, nil)
	require.NoError(t, s.Refresh(context.Background()))

	f.unread = 0
	require.NoError(t, s.MarkAllRead(context.Background()))
	for _, n := range s.Items() {
		assert.True(t, n.Read)
	}
	assert.Equal(t, 0, s.UnreadCount())

	require.NoError(t, s.ClearRead(context.Background()))
	assert.Empty(t, s.Items())
}

func TestUnreadResyncFallsBackToLocalDerivation(t *testing.T) {
	f := twoPageAPI()
	s := feed.NewStore(f, 20, nil)
	require.NoError(t, s.LoadPage(context.Background(), 1))

	f.unreadErr = fmt.Errorf("offline")
	require.NoError(t, s.ResyncUnread(context.Background()))

	// One unread item on page 1.
	assert.Equal(t, 1, s.UnreadCount())
}
