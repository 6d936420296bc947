package setup

import (
	"fmt"
	"net/url"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/lipgloss"

	"github.com/htran/glowdesk/internal/theme"
)

// DoneMsg carries the validated connection settings out of the setup view.
type DoneMsg struct {
	BaseURL string
	Token   string
}

// Form keys the collected values are read back through. The model is
// copied on every Update, so nothing binds to a model field.
const (
	keyBaseURL = "base_url"
	keyToken   = "token"
)

// Model is the first-run setup form collecting the platform URL and
// API token. The token goes to the system keyring, never to the config
// file.
type Model struct {
	form   *huh.Form
	errMsg string

	width  int
	height int
}

// New creates the setup view.
func New(width, height int) Model {
	m := Model{width: width, height: height}
	m.form = m.buildForm()
	return m
}

func (m *Model) buildForm() *huh.Form {
	return huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Key(keyBaseURL).
				Title("Platform URL").
				Description("Root URL of the booking platform API").
				Placeholder("https://api.example.com"),
			huh.NewInput().
				Key(keyToken).
				Title("API token").
				Description("Stored in the system keyring").
				EchoMode(huh.EchoModePassword),
		),
	).WithWidth(m.formWidth())
}

func (m Model) formWidth() int {
	w := m.width - 4
	if w < 40 {
		w = 40
	}
	return w
}

// Init starts the form.
func (m Model) Init() tea.Cmd {
	return m.form.Init()
}

// Update drives the form and validates on completion.
func (m Model) Update(msg tea.Msg) (Model, tea.Cmd) {
	if msg, ok := msg.(tea.WindowSizeMsg); ok {
		m.width = msg.Width
		m.height = msg.Height
	}

	mdl, cmd := m.form.Update(msg)
	if f, ok := mdl.(*huh.Form); ok {
		m.form = f
	}

	if m.form.State == huh.StateCompleted {
		baseURL := strings.TrimRight(strings.TrimSpace(m.form.GetString(keyBaseURL)), "/")
		token := strings.TrimSpace(m.form.GetString(keyToken))

		if err := validate(baseURL, token); err != nil {
			m.errMsg = err.Error()
			m.form = m.buildForm()
			return m, m.form.Init()
		}

		return m, func() tea.Msg {
			return DoneMsg{BaseURL: baseURL, Token: token}
		}
	}

	return m, cmd
}

// validate checks the collected settings before they are persisted.
func validate(baseURL, token string) error {
	if baseURL == "" || token == "" {
		return fmt.Errorf("both URL and token are required")
	}
	u, err := url.Parse(baseURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("%q is not a valid URL", baseURL)
	}
	return nil
}

// View renders the setup form.
func (m Model) View() string {
	title := lipgloss.NewStyle().
		Bold(true).
		Foreground(theme.ColorWhite).
		MarginBottom(1).
		Render("Connect to your booking platform")

	parts := []string{title, m.form.View()}
	if m.errMsg != "" {
		parts = append(parts, theme.ErrorStyle.Render(m.errMsg))
	}
	return lipgloss.JoinVertical(lipgloss.Left, parts...)
}

// SetSize updates the view dimensions.
func (m *Model) SetSize(width, height int) {
	m.width = width
	m.height = height
}
