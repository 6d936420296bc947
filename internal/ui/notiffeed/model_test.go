package notiffeed_test

import (
	"context"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/htran/glowdesk/internal/api"
	"github.com/htran/glowdesk/internal/extract"
	"github.com/htran/glowdesk/internal/feed"
	"github.com/htran/glowdesk/internal/invite"
	"github.com/htran/glowdesk/internal/keys"
	"github.com/htran/glowdesk/internal/model"
	"github.com/htran/glowdesk/internal/resolve"
	"github.com/htran/glowdesk/internal/ui/notiffeed"
)

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

type fakeResolver struct {
	target *resolve.Target
}

func (f *fakeResolver) Resolve(context.Context, extract.Reference, model.Notification) (*resolve.Target, error) {
	return f.target, nil
}

type fakeResponder struct {
	calls  int
	status string
}

func (f *fakeResponder) RespondToCollaboration(_ context.Context, _, status string) error {
	f.calls++
	f.status = status
	return nil
}

func newFixture(t *testing.T) (notiffeed.Model, *feed.Store, *fakeResponder) {
	t.Helper()

	backend := &feedBackend{
		items: []model.Notification{{
			ID:        "n1",
			Category:  "collaboration_invite",
			Title:     "Collaboration invite",
			Message:   "You have been invited to booking INV-20250110-9XQZ",
			CreatedAt: time.Now(),
		}},
		unread: 1,
	}
	store := feed.NewStore(backend, 20, nil)
	require.NoError(t, store.Refresh(context.Background()))

	resolver := &fakeResolver{target: &resolve.Target{Kind: resolve.TargetBooking, ID: "b1"}}
	responder := &fakeResponder{}
	coord := invite.NewCoordinator(store, resolver, responder, nil)

	m := notiffeed.New(store, coord, keys.DefaultKeyMap(), 80, 24)
	m = drive(t, m, notiffeed.FeedSyncedMsg{})
	return m, store, responder
}

// drive pumps messages through Update, executing returned commands
// inline the way the Bubble Tea runtime would.
func drive(t *testing.T, m notiffeed.Model, msgs ...tea.Msg) notiffeed.Model {
	t.Helper()

	queue := append([]tea.Msg{}, msgs...)
	for steps := 0; len(queue) > 0; steps++ {
		require.Less(t, steps, 100, "message pump did not settle")

		msg := queue[0]
		queue = queue[1:]

		var cmd tea.Cmd
		m, cmd = m.Update(msg)
		queue = append(queue, collectMsgs(cmd)...)
	}
	return m
}

func collectMsgs(cmd tea.Cmd) []tea.Msg {
	if cmd == nil {
		return nil
	}
	msg := cmd()
	if msg == nil {
		return nil
	}
	if batch, ok := msg.(tea.BatchMsg); ok {
		var out []tea.Msg
		for _, c := range batch {
			out = append(out, collectMsgs(c)...)
		}
		return out
	}
	return []tea.Msg{msg}
}

func keyRunes(s string) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

func TestConfirmedAcceptDispatchesResponse(t *testing.T) {
	m, store, responder := newFixture(t)

	m = drive(t, m, keyRunes("a"))
	require.True(t, m.InConfirm())

	m = drive(t, m, keyRunes("y"), tea.KeyMsg{Type: tea.KeyEnter})

	assert.False(t, m.InConfirm())
	assert.Equal(t, 1, responder.calls, "confirming must reach the backend")
	assert.Equal(t, model.CollabStatusAccepted, responder.status)

	_, ok := store.Get("n1")
	assert.False(t, ok, "the consumed notification leaves the feed")
}

func TestConfirmedDeclineDispatchesResponse(t *testing.T) {
	m, _, responder := newFixture(t)

	m = drive(t, m, keyRunes("x"))
	require.True(t, m.InConfirm())

	m = drive(t, m, keyRunes("y"), tea.KeyMsg{Type: tea.KeyEnter})

	assert.Equal(t, 1, responder.calls)
	assert.Equal(t, model.CollabStatusDeclined, responder.status)
}

func TestRefusedConfirmDispatchesNothing(t *testing.T) {
	m, store, responder := newFixture(t)

	m = drive(t, m, keyRunes("a"))
	require.True(t, m.InConfirm())

	m = drive(t, m, keyRunes("n"), tea.KeyMsg{Type: tea.KeyEnter})

	assert.False(t, m.InConfirm())
	assert.Equal(t, 0, responder.calls)

	_, ok := store.Get("n1")
	assert.True(t, ok)
}

func TestConfirmedBulkMarkAllRead(t *testing.T) {
	m, store, _ := newFixture(t)

	m = drive(t, m, keyRunes("M"))
	require.True(t, m.InConfirm())

	drive(t, m, keyRunes("y"), tea.KeyMsg{Type: tea.KeyEnter})

	for _, n := range store.Items() {
		assert.True(t, n.Read, "confirmed mark-all-read must apply")
	}
}
