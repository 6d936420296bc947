package invite_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/htran/glowdesk/internal/api"
	"github.com/htran/glowdesk/internal/extract"
	"github.com/htran/glowdesk/internal/feed"
	"github.com/htran/glowdesk/internal/invite"
	"github.com/htran/glowdesk/internal/model"
	"github.com/htran/glowdesk/internal/resolve"
)

// feedBackend implements feed.API with a static page of notifications.
type feedBackend struct {
	items  []model.Notification
	unread int
}

func (f *feedBackend) ListNotifications(_ context.Context, page, _ int) (*api.NotificationPage, error) {
	return &api.NotificationPage{Items: f.items, Page: page, LastPage: page}, nil
}

func (f *feedBackend) GetUnreadCount(context.Context) (int, error) { return f.unread, nil }

func (f *feedBackend) SetNotificationRead(context.Context, string, bool) error { return nil }

func (f *feedBackend) DeleteNotification(context.Context, string) error { return nil }

func (f *feedBackend) MarkAllNotificationsRead(context.Context) error { return nil }

func (f *feedBackend) DeleteReadNotifications(context.Context) error { return nil }

// fakeResolver returns a fixed target or error.
type fakeResolver struct {
	target *resolve.Target
	err    error
	calls  int
}

func (f *fakeResolver) Resolve(context.Context, extract.Reference, model.Notification) (*resolve.Target, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return f.target, nil
}

// fakeResponder records the decision call.
type fakeResponder struct {
	err       error
	bookingID string
	status    string
	calls     int
	block     chan struct{}
}

func (f *fakeResponder) RespondToCollaboration(_ context.Context, bookingID, status string) error {
	f.calls++
	f.bookingID = bookingID
	f.status = status
	if f.block != nil {
		<-f.block
	}
	return f.err
}

func inviteNotification() model.Notification {
	return model.Notification{
		ID:        "n1",
		Category:  "collaboration_invite",
		Title:     "Collaboration invite",
		Message:   "You have been invited to booking INV-20250110-9XQZ",
		CreatedAt: time.Now(),
	}
}

func newFixture(t *testing.T, resolver *fakeResolver, responder *fakeResponder) (*invite.Coordinator, *feed.Store, *feedBackend) {
	t.Helper()

	backend := &feedBackend{
		items:  []model.Notification{inviteNotification()},
		unread: 1,
	}
	store := feed.NewStore(backend, 20, nil)
	require.NoError(t, store.Refresh(context.Background()))

	return invite.NewCoordinator(store, resolver, responder, nil), store, backend
}

func TestRespondSuccessRemovesNotification(t *testing.T) {
	resolver := &fakeResolver{target: &resolve.Target{Kind: resolve.TargetBooking, ID: "b1"}}
	responder := &fakeResponder{}
	coord, store, backend := newFixture(t, resolver, responder)
	backend.unread = 0

	res := coord.Respond(context.Background(), inviteNotification(), invite.ActionAccept)

	assert.Equal(t, invite.StateSucceeded, res.State)
	assert.NoError(t, res.Err)
	assert.Equal(t, "b1", responder.bookingID)
	assert.Equal(t, model.CollabStatusAccepted, responder.status)

	_, ok := store.Get("n1")
	assert.False(t, ok, "the consumed notification leaves the feed")
	assert.Equal(t, 0, store.UnreadCount())
	assert.Equal(t, invite.StateSucceeded, coord.StateOf("n1"))
}

func TestRespondDeclineSendsDeclinedStatus(t *testing.T) {
	resolver := &fakeResolver{target: &resolve.Target{Kind: resolve.TargetBooking, ID: "b1"}}
	responder := &fakeResponder{}
	coord, _, _ := newFixture(t, resolver, responder)

	res := coord.Respond(context.Background(), inviteNotification(), invite.ActionDecline)

	assert.Equal(t, invite.StateSucceeded, res.State)
	assert.Equal(t, model.CollabStatusDeclined, responder.status)
}

func TestRespondNoReferenceFailsWithoutRemoteCalls(t *testing.T) {
	resolver := &fakeResolver{}
	responder := &fakeResponder{}
	coord, store, _ := newFixture(t, resolver, responder)

	n := inviteNotification()
	n.Message = "Your stylist started a collaboration with you"

	res := coord.Respond(context.Background(), n, invite.ActionAccept)

	assert.Equal(t, invite.StateFailed, res.State)
	assert.Contains(t, res.Reason, "look the booking up manually")
	assert.Equal(t, 0, resolver.calls)
	assert.Equal(t, 0, responder.calls)

	// The feed is untouched.
	got, ok := store.Get("n1")
	require.True(t, ok)
	assert.False(t, got.Read)
	assert.Equal(t, 1, store.UnreadCount())
}

func TestRespondResolutionNotFound(t *testing.T) {
	resolver := &fakeResolver{err: &resolve.NotFoundError{Reference: "INV-20250110-9XQZ"}}
	responder := &fakeResponder{}
	coord, store, _ := newFixture(t, resolver, responder)

	res := coord.Respond(context.Background(), inviteNotification(), invite.ActionAccept)

	assert.Equal(t, invite.StateFailed, res.State)
	assert.Contains(t, res.Reason, "contact support")
	assert.Equal(t, 0, responder.calls)

	got, _ := store.Get("n1")
	assert.False(t, got.Read)
}

func TestRespondBackendRejectionRollsBack(t *testing.T) {
	resolver := &fakeResolver{target: &resolve.Target{Kind: resolve.TargetBooking, ID: "b1"}}
	responder := &fakeResponder{err: &api.APIError{StatusCode: 409, Message: "this invitation has already been responded to"}}
	coord, store, _ := newFixture(t, resolver, responder)

	res := coord.Respond(context.Background(), inviteNotification(), invite.ActionAccept)

	assert.Equal(t, invite.StateFailed, res.State)
	assert.Equal(t, "this invitation has already been responded to", res.Reason,
		"the backend's own message is surfaced verbatim")

	// Rolled back: the notification stays, unread again.
	got, ok := store.Get("n1")
	require.True(t, ok)
	assert.False(t, got.Read)
	assert.Equal(t, 1, store.UnreadCount())
}

func TestRespondSessionExpiry(t *testing.T) {
	resolver := &fakeResolver{target: &resolve.Target{Kind: resolve.TargetBooking, ID: "b1"}}
	responder := &fakeResponder{err: &api.AuthError{Message: "token expired"}}
	coord, store, _ := newFixture(t, resolver, responder)

	res := coord.Respond(context.Background(), inviteNotification(), invite.ActionAccept)

	assert.Equal(t, invite.StateFailed, res.State)
	assert.Equal(t, "session expired; sign in again", res.Reason)

	got, _ := store.Get("n1")
	assert.False(t, got.Read)
}

func TestRespondCancelledContextDiscardsResult(t *testing.T) {
	resolver := &fakeResolver{target: &resolve.Target{Kind: resolve.TargetBooking, ID: "b1"}}

	ctx, cancel := context.WithCancel(context.Background())
	responder := &fakeResponder{block: make(chan struct{})}
	coord, store, _ := newFixture(t, resolver, responder)

	done := make(chan invite.Result, 1)
	go func() {
		done <- coord.Respond(ctx, inviteNotification(), invite.ActionAccept)
	}()

	// Let the run reach the responder, then cancel mid-flight.
	require.Eventually(t, func() bool {
		return coord.StateOf("n1") == invite.StateResponding
	}, time.Second, 5*time.Millisecond)
	cancel()
	close(responder.block)

	res := <-done
	assert.Equal(t, invite.StateFailed, res.State)
	assert.Equal(t, "cancelled", res.Reason)

	// Even if the backend accepted, nothing was applied locally.
	got, ok := store.Get("n1")
	require.True(t, ok)
	assert.False(t, got.Read)
}

func TestRespondRefusesReentry(t *testing.T) {
	resolver := &fakeResolver{target: &resolve.Target{Kind: resolve.TargetBooking, ID: "b1"}}
	responder := &fakeResponder{block: make(chan struct{})}
	coord, _, _ := newFixture(t, resolver, responder)

	first := make(chan invite.Result, 1)
	go func() {
		first <- coord.Respond(context.Background(), inviteNotification(), invite.ActionAccept)
	}()

	require.Eventually(t, func() bool {
		return coord.Busy("n1")
	}, time.Second, 5*time.Millisecond)

	res := coord.Respond(context.Background(), inviteNotification(), invite.ActionDecline)
	assert.ErrorIs(t, res.Err, invite.ErrBusy)
	assert.Equal(t, invite.StateFailed, res.State)

	close(responder.block)
	final := <-first
	assert.Equal(t, invite.StateSucceeded, final.State)
	assert.Equal(t, 1, responder.calls, "the second attempt never reached the backend")
}

func TestRespondAfterFailureCanRetry(t *testing.T) {
	resolver := &fakeResolver{target: &resolve.Target{Kind: resolve.TargetBooking, ID: "b1"}}
	responder := &fakeResponder{err: &api.APIError{StatusCode: 500, Message: ""}}
	coord, _, _ := newFixture(t, resolver, responder)

	res := coord.Respond(context.Background(), inviteNotification(), invite.ActionAccept)
	require.Equal(t, invite.StateFailed, res.State)
	assert.Equal(t, "responding to the invite failed; try again", res.Reason)

	responder.err = nil
	res = coord.Respond(context.Background(), inviteNotification(), invite.ActionAccept)
	assert.Equal(t, invite.StateSucceeded, res.State)
}
