package notiffeed

import (
	"context"
	"fmt"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/list"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/lipgloss"

	"github.com/htran/glowdesk/internal/feed"
	"github.com/htran/glowdesk/internal/invite"
	"github.com/htran/glowdesk/internal/keys"
	"github.com/htran/glowdesk/internal/model"
	"github.com/htran/glowdesk/internal/theme"
)

// Mode represents the current state of the feed view.
type Mode int

const (
	ModeList           Mode = iota // Browse the feed
	ModeConfirmRespond             // Confirm accept/decline for one invite
	ModeConfirmBulk                // Confirm mark-all-read / clear-read
)

// confirmKey is the form key the pending confirmation answer is read
// back through.
const confirmKey = "confirmed"

// bulkOp identifies which destructive bulk operation is pending.
type bulkOp int

const (
	bulkNone bulkOp = iota
	bulkMarkAllRead
	bulkClearRead
)

// FeedSyncedMsg is sent after any remote feed operation so the parent
// can refresh the unread badge.
type FeedSyncedMsg struct {
	Err error
}

// RespondResultMsg carries the terminal outcome of one invite response.
type RespondResultMsg struct {
	Result invite.Result
}

// mutationDoneMsg is sent after a single-notification mutation.
type mutationDoneMsg struct {
	err error
}

// Model is the notification feed view component.
type Model struct {
	list   list.Model
	store  *feed.Store
	coord  *invite.Coordinator
	keys   *keys.KeyMap
	busy   map[string]bool
	cancel map[string]context.CancelFunc

	mode          Mode
	confirm       *huh.Form
	pendingTarget model.Notification
	pendingAction invite.Action
	pendingBulk   bulkOp

	statusMsg string
	statusErr bool

	width  int
	height int
}

// New creates a new feed view model.
func New(s *feed.Store, coord *invite.Coordinator, k *keys.KeyMap, width, height int) Model {
	busy := make(map[string]bool)
	delegate := ItemDelegate{busy: busy}

	l := list.New([]list.Item{}, delegate, width, height-2)
	l.Title = "Notifications"
	l.SetShowStatusBar(true)
	l.SetShowHelp(false)
	l.SetFilteringEnabled(false)
	l.Styles.Title = theme.HeaderStyle

	return Model{
		list:   l,
		store:  s,
		coord:  coord,
		keys:   k,
		busy:   busy,
		cancel: make(map[string]context.CancelFunc),
		mode:   ModeList,
		width:  width,
		height: height,
	}
}

// Init refreshes the feed from the server.
func (m Model) Init() tea.Cmd {
	return m.refresh()
}

// Update handles messages for the feed view.
func (m Model) Update(msg tea.Msg) (Model, tea.Cmd) {
	switch msg := msg.(type) {
	case FeedSyncedMsg:
		if msg.Err != nil {
			m.setStatus(fmt.Sprintf("feed sync failed: %v", msg.Err), true)
		}
		return m.syncItems()

	case mutationDoneMsg:
		if msg.err != nil {
			m.setStatus(fmt.Sprintf("update failed: %v", msg.err), true)
		} else {
			m.statusMsg = ""
		}
		mdl, cmd := m.syncItems()
		return mdl, tea.Batch(cmd, func() tea.Msg { return FeedSyncedMsg{} })

	case RespondResultMsg:
		res := msg.Result
		delete(m.busy, res.NotificationID)
		delete(m.cancel, res.NotificationID)

		if res.State == invite.StateSucceeded {
			verb := "accepted"
			if res.Action == invite.ActionDecline {
				verb = "declined"
			}
			m.setStatus(fmt.Sprintf("Invite %s", verb), false)
		} else {
			m.setStatus(res.Reason, true)
		}
		mdl, cmd := m.syncItems()
		return mdl, tea.Batch(cmd, func() tea.Msg { return FeedSyncedMsg{} })

	case tea.KeyMsg:
		switch m.mode {
		case ModeConfirmRespond, ModeConfirmBulk:
			return m.updateConfirm(msg)
		default:
			return m.handleListKeys(msg)
		}
	}

	if m.mode != ModeList {
		return m.updateConfirm(msg)
	}

	var cmd tea.Cmd
	m.list, cmd = m.list.Update(msg)
	return m, cmd
}

// handleListKeys processes key input while browsing the feed.
func (m Model) handleListKeys(msg tea.KeyMsg) (Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Refresh):
		return m, m.refresh()

	case key.Matches(msg, m.keys.LoadMore):
		if !m.store.HasMore() {
			m.setStatus("No more notifications", false)
			return m, nil
		}
		return m, m.loadNextPage()

	case key.Matches(msg, m.keys.Accept):
		return m.startRespond(invite.ActionAccept)

	case key.Matches(msg, m.keys.Decline):
		return m.startRespond(invite.ActionDecline)

	case key.Matches(msg, m.keys.ToggleRead):
		n, ok := m.selected()
		if !ok || m.busy[n.ID] {
			return m, nil
		}
		return m, m.setRead(n.ID, !n.Read)

	case key.Matches(msg, m.keys.Delete):
		n, ok := m.selected()
		if !ok || m.busy[n.ID] {
			return m, nil
		}
		return m, m.deleteOne(n.ID)

	case key.Matches(msg, m.keys.MarkAllRead):
		return m.startBulk(bulkMarkAllRead)

	case key.Matches(msg, m.keys.ClearRead):
		return m.startBulk(bulkClearRead)
	}

	var cmd tea.Cmd
	m.list, cmd = m.list.Update(msg)
	return m, cmd
}

// startRespond enters the confirmation mode for an accept/decline
// action on the selected invite.
func (m Model) startRespond(action invite.Action) (Model, tea.Cmd) {
	n, ok := m.selected()
	if !ok {
		return m, nil
	}
	if !n.IsCollabInvite() {
		m.setStatus("Not a collaboration invite", true)
		return m, nil
	}
	if m.busy[n.ID] {
		return m, nil
	}

	verb := "Accept"
	if action == invite.ActionDecline {
		verb = "Decline"
	}

	m.mode = ModeConfirmRespond
	m.pendingTarget = n
	m.pendingAction = action
	// The model is copied on every Update, so the answer is read back
	// through the form by key rather than bound to a field.
	m.confirm = huh.NewForm(
		huh.NewGroup(
			huh.NewConfirm().
				Key(confirmKey).
				Title(fmt.Sprintf("%s this collaboration invite?", verb)).
				Description(n.Title + " — this cannot be undone.").
				Affirmative(verb).
				Negative("Cancel"),
		),
	).WithWidth(m.width - 4)

	return m, m.confirm.Init()
}

// startBulk enters the confirmation mode for a destructive bulk action.
func (m Model) startBulk(op bulkOp) (Model, tea.Cmd) {
	var title, desc, affirm string
	switch op {
	case bulkMarkAllRead:
		title = "Mark all notifications read?"
		desc = "Every notification in the feed will be marked read."
		affirm = "Mark all"
	case bulkClearRead:
		title = "Delete all read notifications?"
		desc = "Read notifications will be removed permanently."
		affirm = "Delete"
	default:
		return m, nil
	}

	m.mode = ModeConfirmBulk
	m.pendingBulk = op
	m.confirm = huh.NewForm(
		huh.NewGroup(
			huh.NewConfirm().
				Key(confirmKey).
				Title(title).
				Description(desc).
				Affirmative(affirm).
				Negative("Cancel"),
		),
	).WithWidth(m.width - 4)

	return m, m.confirm.Init()
}

// updateConfirm drives the pending huh confirmation form.
func (m Model) updateConfirm(msg tea.Msg) (Model, tea.Cmd) {
	if m.confirm == nil {
		m.mode = ModeList
		return m, nil
	}

	mdl, cmd := m.confirm.Update(msg)
	if f, ok := mdl.(*huh.Form); ok {
		m.confirm = f
	}

	if m.confirm.State == huh.StateCompleted {
		confirmed := m.confirm.GetBool(confirmKey)
		mode := m.mode
		m.mode = ModeList
		m.confirm = nil

		if !confirmed {
			return m, nil
		}
		if mode == ModeConfirmRespond {
			return m.dispatchRespond()
		}
		return m.dispatchBulk()
	}
	if m.confirm.State == huh.StateAborted {
		m.mode = ModeList
		m.confirm = nil
		return m, nil
	}

	return m, cmd
}

// dispatchRespond launches the coordinator run for the confirmed action.
func (m Model) dispatchRespond() (Model, tea.Cmd) {
	n := m.pendingTarget
	action := m.pendingAction

	ctx, cancel := context.WithCancel(context.Background())
	m.busy[n.ID] = true
	m.cancel[n.ID] = cancel

	coord := m.coord
	return m, func() tea.Msg {
		defer cancel()
		return RespondResultMsg{Result: coord.Respond(ctx, n, action)}
	}
}

// dispatchBulk launches the confirmed bulk operation.
func (m Model) dispatchBulk() (Model, tea.Cmd) {
	op := m.pendingBulk
	m.pendingBulk = bulkNone
	s := m.store

	return m, func() tea.Msg {
		var err error
		switch op {
		case bulkMarkAllRead:
			err = s.MarkAllRead(context.Background())
		case bulkClearRead:
			err = s.ClearRead(context.Background())
		}
		return mutationDoneMsg{err: err}
	}
}

// CancelInFlight aborts every in-flight response. Late results are
// discarded by the coordinator instead of applied to stale state.
func (m *Model) CancelInFlight() {
	for id, cancel := range m.cancel {
		cancel()
		delete(m.cancel, id)
	}
}

// refresh reloads page 1 and the authoritative unread count.
func (m Model) refresh() tea.Cmd {
	s := m.store
	return func() tea.Msg {
		return FeedSyncedMsg{Err: s.Refresh(context.Background())}
	}
}

// loadNextPage appends the next feed page.
func (m Model) loadNextPage() tea.Cmd {
	s := m.store
	return func() tea.Msg {
		return FeedSyncedMsg{Err: s.LoadNextPage(context.Background())}
	}
}

// setRead flips the read flag through the store's optimistic path.
func (m Model) setRead(id string, read bool) tea.Cmd {
	s := m.store
	return func() tea.Msg {
		return mutationDoneMsg{err: s.SetRead(context.Background(), id, read)}
	}
}

// deleteOne removes a single notification.
func (m Model) deleteOne(id string) tea.Cmd {
	s := m.store
	return func() tea.Msg {
		return mutationDoneMsg{err: s.Delete(context.Background(), id)}
	}
}

// syncItems rebuilds the list from the store's current snapshot.
func (m Model) syncItems() (Model, tea.Cmd) {
	items := m.store.Items()
	listItems := make([]list.Item, len(items))
	for i, n := range items {
		listItems[i] = NotificationItem{Notification: n}
	}
	cmd := m.list.SetItems(listItems)
	return m, cmd
}

// selected returns the currently highlighted notification.
func (m Model) selected() (model.Notification, bool) {
	item, ok := m.list.SelectedItem().(NotificationItem)
	if !ok {
		return model.Notification{}, false
	}
	return item.Notification, true
}

func (m *Model) setStatus(msg string, isErr bool) {
	m.statusMsg = msg
	m.statusErr = isErr
}

// InConfirm reports whether a confirmation modal is open, so global
// keybindings do not swallow form input.
func (m Model) InConfirm() bool {
	return m.mode != ModeList
}

// StatusLine returns the transient status text for the app status bar.
func (m Model) StatusLine() string {
	if m.statusMsg == "" {
		return ""
	}
	if m.statusErr {
		return theme.ErrorStyle.Render(m.statusMsg)
	}
	return m.statusMsg
}

// View renders the feed view.
func (m Model) View() string {
	if m.mode != ModeList && m.confirm != nil {
		return m.confirm.View()
	}

	if len(m.list.Items()) == 0 {
		return m.renderEmptyState()
	}

	return m.list.View()
}

// renderEmptyState shows guidance text when the feed is empty.
func (m Model) renderEmptyState() string {
	style := lipgloss.NewStyle().
		Width(m.width).
		Height(m.height).
		Align(lipgloss.Center, lipgloss.Center).
		Foreground(theme.ColorGray)

	return style.Render("No notifications.\n\nPress r to refresh.")
}

// SetSize updates the list dimensions.
func (m *Model) SetSize(width, height int) {
	m.width = width
	m.height = height
	m.list.SetSize(width, height-2)
}
