package app

import (
	"fmt"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"go.uber.org/zap"

	"github.com/htran/glowdesk/internal/api"
	"github.com/htran/glowdesk/internal/credential"
	"github.com/htran/glowdesk/internal/feed"
	"github.com/htran/glowdesk/internal/invite"
	"github.com/htran/glowdesk/internal/keys"
	"github.com/htran/glowdesk/internal/model"
	"github.com/htran/glowdesk/internal/resolve"
	"github.com/htran/glowdesk/internal/ui"
	"github.com/htran/glowdesk/internal/ui/notiffeed"
	"github.com/htran/glowdesk/internal/ui/setup"
)

// sessionExpiredMsg is sent when the credential provider is invalidated
// by a 401 anywhere in the client.
type sessionExpiredMsg struct{}

// ViewState represents the current active view in the application.
type ViewState int

const (
	ViewFeed ViewState = iota
	ViewSetup
	ViewHelp
)

// Model is the root Bubble Tea model that manages view routing, layout,
// and construction of the backend-facing components.
type Model struct {
	currentView  ViewState
	previousView ViewState
	layout       ui.Layout
	keys         *keys.KeyMap

	cfg     *model.AppConfig
	cfgPath string
	creds   *credential.KeyringProvider
	log     *zap.Logger

	sessionCh      chan struct{}
	sessionExpired bool

	store    *feed.Store
	feedView notiffeed.Model
	setup    setup.Model
	ready    bool
}

// New creates the root application model. When no connection settings
// exist yet, the app starts in the setup view; otherwise the backend
// components are wired immediately.
func New(
	cfg *model.AppConfig,
	cfgPath string,
	creds *credential.KeyringProvider,
	log *zap.Logger,
) Model {
	if log == nil {
		log = zap.NewNop()
	}

	m := Model{
		currentView: ViewSetup,
		keys:        keys.DefaultKeyMap(),
		cfg:         cfg,
		cfgPath:     cfgPath,
		creds:       creds,
		log:         log,
		sessionCh:   make(chan struct{}, 1),
		setup:       setup.New(80, 24),
	}

	creds.OnInvalidated = func() {
		select {
		case m.sessionCh <- struct{}{}:
		default:
		}
	}

	_, tokenErr := creds.Token()
	if cfg.API.BaseURL != "" && tokenErr == nil {
		m.buildBackend()
		m.currentView = ViewFeed
	}

	return m
}

// buildBackend constructs the API client, feed store, resolution chain,
// and invite coordinator from the current connection settings.
func (m *Model) buildBackend() {
	client := api.NewClient(m.cfg.API.BaseURL, m.creds, m.log)
	client.SetTimeout(time.Duration(m.cfg.API.RequestTimeoutSec) * time.Second)

	m.store = feed.NewStore(client, m.cfg.API.PageSize, m.log)

	chain := resolve.NewChain(
		client,
		time.Duration(m.cfg.API.StrategyTimeoutSec)*time.Second,
		m.log,
	)
	coord := invite.NewCoordinator(m.store, chain, client, m.log)

	m.feedView = notiffeed.New(m.store, coord, m.keys, 80, 24)
}

// Init returns the initial commands for the active view.
func (m Model) Init() tea.Cmd {
	if m.currentView == ViewSetup {
		return tea.Batch(m.setup.Init(), m.waitForSessionExpiry())
	}
	return tea.Batch(m.feedView.Init(), m.waitForSessionExpiry())
}

// waitForSessionExpiry returns a command that blocks until the
// credential provider reports invalidation.
func (m Model) waitForSessionExpiry() tea.Cmd {
	ch := m.sessionCh
	return func() tea.Msg {
		<-ch
		return sessionExpiredMsg{}
	}
}

// Update handles messages and dispatches to the active view.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.layout = ui.NewLayout(msg.Width, msg.Height)
		m.ready = true
		contentWidth := m.layout.ContentWidth()
		contentHeight := m.layout.ContentHeight()
		m.feedView.SetSize(contentWidth, contentHeight)
		m.setup.SetSize(contentWidth, contentHeight)
		return m.updateActiveView(msg)

	case sessionExpiredMsg:
		m.sessionExpired = true
		m.feedView.CancelInFlight()
		m.log.Warn("session expired, halting in-flight operations")
		// The subscription fires once per message; re-arm it so a later
		// expiry in the same process is still surfaced.
		return m, m.waitForSessionExpiry()

	case setup.DoneMsg:
		m.cfg.API.BaseURL = msg.BaseURL
		if err := m.creds.Store(msg.Token); err != nil {
			m.log.Error("storing token failed", zap.Error(err))
		}
		if err := model.SaveConfig(m.cfgPath, m.cfg); err != nil {
			m.log.Error("saving config failed", zap.Error(err))
		}
		m.sessionExpired = false
		m.buildBackend()
		m.feedView.SetSize(m.layout.ContentWidth(), m.layout.ContentHeight())
		m.currentView = ViewFeed
		return m, m.feedView.Init()

	case tea.KeyMsg:
		// Global keys that work regardless of current view.
		switch msg.String() {
		case "ctrl+c":
			m.feedView.CancelInFlight()
			return m, tea.Quit

		case "q":
			if m.currentView == ViewFeed && !m.feedView.InConfirm() {
				m.feedView.CancelInFlight()
				return m, tea.Quit
			}

		case "?":
			if m.currentView == ViewHelp {
				m.currentView = m.previousView
				return m, nil
			}
			if m.currentView == ViewFeed && !m.feedView.InConfirm() {
				m.previousView = m.currentView
				m.currentView = ViewHelp
				return m, nil
			}

		case "esc":
			if m.currentView == ViewHelp {
				m.currentView = m.previousView
				return m, nil
			}
		}
	}

	return m.updateActiveView(msg)
}

// updateActiveView dispatches the message to the currently active view.
func (m Model) updateActiveView(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd

	switch m.currentView {
	case ViewSetup:
		m.setup, cmd = m.setup.Update(msg)
	case ViewHelp:
		// Help is static; feed messages still need routing so async
		// results are not lost while the overlay is open.
		m.feedView, cmd = m.feedView.Update(msg)
	default:
		m.feedView, cmd = m.feedView.Update(msg)
	}

	return m, cmd
}

// View renders the full terminal UI using the layout manager.
func (m Model) View() string {
	if !m.ready {
		return "Loading..."
	}

	headerTitle := "GlowDesk"
	if m.store != nil {
		if unread := m.store.UnreadCount(); unread > 0 {
			headerTitle = fmt.Sprintf("GlowDesk [%d unread]", unread)
		}
	}

	header := m.layout.RenderHeader(headerTitle, m.headerStatus())
	content := m.renderContent()
	statusBar := m.layout.RenderStatusBar(m.keyHints())

	return m.layout.RenderWithFrame(header, content, statusBar)
}

// renderContent returns the rendered string for the current active view.
func (m Model) renderContent() string {
	switch m.currentView {
	case ViewSetup:
		return m.setup.View()
	case ViewHelp:
		return m.renderHelp()
	default:
		return m.feedView.View()
	}
}

// headerStatus returns the right-hand header segment.
func (m Model) headerStatus() string {
	if m.sessionExpired {
		return "session expired"
	}
	switch m.currentView {
	case ViewSetup:
		return "setup"
	default:
		return "connected"
	}
}

// keyHints returns keyboard shortcut hints for the status bar.
func (m Model) keyHints() string {
	if m.sessionExpired {
		return "Session expired. Restart GlowDesk to sign in again."
	}

	switch m.currentView {
	case ViewSetup:
		return "enter next field | esc abort"
	case ViewHelp:
		return "? close help | esc back"
	default:
		if status := m.feedView.StatusLine(); status != "" {
			return status
		}
		return "q quit | ? help | r refresh | a accept | x decline | m read | d delete"
	}
}

// renderHelp draws the static keyboard reference.
func (m Model) renderHelp() string {
	return `  Notification feed

  j/k, arrows   move
  r             refresh feed and unread count
  L             load older notifications
  enter         (list navigation)

  Collaboration invites

  a             accept the selected invite
  x             decline the selected invite

  Feed housekeeping

  m             toggle read/unread
  d             delete the selected notification
  M             mark all read (asks first)
  C             delete all read notifications (asks first)

  ?             close this help`
}
