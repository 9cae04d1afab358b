package cmd

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"citynav/internal/auth"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

const signInTimeout = 15 * time.Second

type loginOutcome int

const (
	loginCancelled loginOutcome = iota
	loginGuest
	loginSignedIn
)

func (o loginOutcome) String() string {
	switch o {
	case loginGuest:
		return "guest"
	case loginSignedIn:
		return "signed_in"
	default:
		return "cancelled"
	}
}

type loginStep int

const (
	stepChoose loginStep = iota
	stepCredentials
	stepDone
)

const (
	choiceGuest = iota
	choiceSignIn
)

const (
	fieldEmail = iota
	fieldPassword
)

// signInFunc exchanges an email and password for a credential.
type signInFunc func(ctx context.Context, email, password string) (*auth.Credential, error)

// loginSession is the part of the session store the login surface writes.
type loginSession interface {
	SetGuestMode(on bool) error
	ClearGuestMode() error
	SaveCredential(c auth.Credential) error
}

type signInResultMsg struct {
	cred *auth.Credential
	err  error
}

type loginModel struct {
	step     loginStep
	choice   int
	inputs   []textinput.Model
	focused  int
	signIn   signInFunc
	session  loginSession
	busy     bool
	errMsg   string
	status   string
	outcome  loginOutcome
	width    int
	height   int
}

var (
	lgColorMuted  = lipgloss.Color("#7E8C80")
	lgColorText   = lipgloss.Color("#D6E0D3")
	lgColorAccent = lipgloss.Color("#8FA082")
	lgColorDanger = lipgloss.Color("#f38ba8")

	lgTitleStyle = lipgloss.NewStyle().
			Foreground(lgColorAccent).
			Bold(true)

	lgHeaderStyle = lipgloss.NewStyle().
			Foreground(lgColorAccent).
			Bold(true).
			Padding(0, 1).
			BorderStyle(lipgloss.NormalBorder()).
			BorderBottom(true).
			BorderForeground(lgColorMuted)

	lgTabsStyle = lipgloss.NewStyle().
			Padding(0, 2).
			BorderStyle(lipgloss.NormalBorder()).
			BorderBottom(true).
			BorderForeground(lgColorMuted)

	lgTabInactive = lipgloss.NewStyle().
			Foreground(lgColorMuted).
			Padding(0, 2)

	lgTabActive = lipgloss.NewStyle().
			Foreground(lgColorText).
			Bold(true).
			Underline(true).
			Padding(0, 2)

	lgPanelStyle = lipgloss.NewStyle().
			BorderStyle(lipgloss.RoundedBorder()).
			BorderForeground(lgColorMuted).
			Padding(1, 2)

	lgInputStyle = lipgloss.NewStyle().
			BorderStyle(lipgloss.NormalBorder()).
			BorderForeground(lgColorMuted).
			Padding(0, 1)

	lgInputActive = lgInputStyle.
			BorderForeground(lgColorAccent)

	lgLabelStyle = lipgloss.NewStyle().
			Foreground(lgColorAccent).
			Bold(true)

	lgMutedStyle = lipgloss.NewStyle().
			Foreground(lgColorMuted)

	lgOptionStyle = lipgloss.NewStyle().
			Foreground(lgColorText)

	lgOptionSelected = lipgloss.NewStyle().
				Foreground(lgColorAccent).
				Bold(true)

	lgErrorStyle = lipgloss.NewStyle().
			Foreground(lgColorDanger)

	lgFooterStyle = lipgloss.NewStyle().
			Foreground(lgColorMuted).
			Padding(0, 1).
			BorderStyle(lipgloss.NormalBorder()).
			BorderTop(true).
			BorderForeground(lgColorMuted)
)

// newLoginModel creates the login surface. A nil signIn leaves only guest
// mode available.
func newLoginModel(session loginSession, signIn signInFunc) loginModel {
	email := textinput.New()
	email.Placeholder = "you@university.edu"
	email.CharLimit = 254
	email.Prompt = "email> "
	email.TextStyle = lipgloss.NewStyle().Foreground(lgColorText)
	email.PlaceholderStyle = lipgloss.NewStyle().Foreground(lgColorMuted)

	password := textinput.New()
	password.Placeholder = "password"
	password.CharLimit = 128
	password.Prompt = "pass> "
	password.EchoMode = textinput.EchoPassword
	password.EchoCharacter = '•'
	password.TextStyle = lipgloss.NewStyle().Foreground(lgColorText)
	password.PlaceholderStyle = lipgloss.NewStyle().Foreground(lgColorMuted)

	return loginModel{
		step:    stepChoose,
		choice:  choiceGuest,
		inputs:  []textinput.Model{email, password},
		signIn:  signIn,
		session: session,
	}
}

func (m loginModel) Init() tea.Cmd { return nil }

func (m loginModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m, nil
	case signInResultMsg:
		return m.handleSignInResult(msg)
	case tea.KeyMsg:
		if msg.String() == "ctrl+c" {
			return m.cancel()
		}
		switch m.step {
		case stepChoose:
			return m.updateChoose(msg)
		case stepCredentials:
			return m.updateCredentials(msg)
		}
	}
	return m, nil
}

func (m loginModel) updateChoose(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "up", "k":
		m.choice = choiceGuest
	case "down", "j":
		if m.signIn != nil {
			m.choice = choiceSignIn
		}
	case "g":
		m.choice = choiceGuest
		return m.commitChoice()
	case "s":
		if m.signIn != nil {
			m.choice = choiceSignIn
			return m.commitChoice()
		}
	case "enter":
		return m.commitChoice()
	case "q", "esc":
		return m.cancel()
	}
	return m, nil
}

func (m loginModel) commitChoice() (tea.Model, tea.Cmd) {
	if m.choice == choiceGuest {
		if err := m.session.SetGuestMode(true); err != nil {
			m.errMsg = "Failed to enable guest mode: " + err.Error()
			return m, nil
		}
		m.outcome = loginGuest
		m.status = "Continuing as guest."
		m.step = stepDone
		return m, tea.Quit
	}

	m.errMsg = ""
	m.step = stepCredentials
	m.focused = fieldEmail
	m.inputs[fieldEmail].Focus()
	m.inputs[fieldPassword].Blur()
	return m, textinput.Blink
}

func (m loginModel) updateCredentials(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if m.busy {
		return m, nil
	}

	switch msg.String() {
	case "esc":
		m.step = stepChoose
		m.errMsg = ""
		return m, nil
	case "tab", "shift+tab", "up", "down":
		m.focusField(1 - m.focused)
		return m, nil
	case "enter":
		if m.focused == fieldEmail {
			m.focusField(fieldPassword)
			return m, nil
		}
		return m.submit()
	}

	var cmd tea.Cmd
	m.inputs[m.focused], cmd = m.inputs[m.focused].Update(msg)
	return m, cmd
}

func (m *loginModel) focusField(i int) {
	m.inputs[m.focused].Blur()
	m.focused = i
	m.inputs[m.focused].Focus()
}

func (m loginModel) submit() (tea.Model, tea.Cmd) {
	email := strings.TrimSpace(m.inputs[fieldEmail].Value())
	password := m.inputs[fieldPassword].Value()
	if email == "" || password == "" {
		m.errMsg = "Email and password are required."
		return m, nil
	}

	m.errMsg = ""
	m.busy = true
	signIn := m.signIn
	return m, func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), signInTimeout)
		defer cancel()
		cred, err := signIn(ctx, email, password)
		return signInResultMsg{cred: cred, err: err}
	}
}

func (m loginModel) handleSignInResult(msg signInResultMsg) (tea.Model, tea.Cmd) {
	m.busy = false
	if msg.err == nil && msg.cred == nil {
		msg.err = errors.New("no credential returned")
	}
	if msg.err != nil {
		var apiErr *auth.APIError
		if errors.As(msg.err, &apiErr) && apiErr.InvalidCredentials() {
			m.errMsg = "Invalid email or password."
		} else {
			m.errMsg = "Sign in failed: " + msg.err.Error()
		}
		m.inputs[fieldPassword].SetValue("")
		m.focusField(fieldPassword)
		return m, nil
	}

	cred := *msg.cred
	if cred.Email == "" {
		cred.Email = strings.TrimSpace(m.inputs[fieldEmail].Value())
	}
	if err := m.session.SaveCredential(cred); err != nil {
		m.errMsg = "Failed to store session: " + err.Error()
		return m, nil
	}
	if err := m.session.ClearGuestMode(); err != nil {
		m.errMsg = "Failed to leave guest mode: " + err.Error()
		return m, nil
	}

	m.outcome = loginSignedIn
	m.status = "Signed in as " + cred.Email + "."
	m.step = stepDone
	return m, tea.Quit
}

func (m loginModel) cancel() (tea.Model, tea.Cmd) {
	m.outcome = loginCancelled
	m.status = "Login canceled."
	m.step = stepDone
	return m, tea.Quit
}

func (m loginModel) View() string {
	width := m.width
	height := m.height
	if width <= 0 {
		width = 100
	}
	if height <= 0 {
		height = 28
	}

	header := m.renderHeader(width)
	tabs := m.renderTabs(width)
	footer := m.renderFooter(width)

	contentHeight := height - 6
	if contentHeight < 8 {
		contentHeight = 8
	}
	content := m.renderContent(width, contentHeight)
	view := lipgloss.JoinVertical(lipgloss.Left, header, tabs, content, footer)

	return lipgloss.NewStyle().
		Foreground(lgColorText).
		Width(width).
		Height(height).
		Render(view)
}

func (m loginModel) renderHeader(width int) string {
	left := "  " + lgTitleStyle.Render("citynav") + " " + lgMutedStyle.Render("› Login")
	right := lgMutedStyle.Render(time.Now().Format("Mon 02 Jan")) + "  "
	padding := width - lipgloss.Width(left) - lipgloss.Width(right)
	if padding < 0 {
		padding = 0
	}
	return lgHeaderStyle.Width(width).Render(left + strings.Repeat(" ", padding) + right)
}

func (m loginModel) renderTabs(width int) string {
	chooseTab := lgTabInactive.Render("Welcome")
	signInTab := lgTabInactive.Render("Sign In")
	if m.step == stepChoose {
		chooseTab = lgTabActive.Render("Welcome")
	}
	if m.step == stepCredentials {
		signInTab = lgTabActive.Render("Sign In")
	}
	return lgTabsStyle.Width(width).Render(lipgloss.JoinHorizontal(lipgloss.Left, "  ", chooseTab, signInTab))
}

func (m loginModel) renderFooter(width int) string {
	switch m.step {
	case stepChoose:
		return lgFooterStyle.Width(width).Render("↑↓/jk to navigate  enter to confirm  g guest  s sign in  q quit")
	case stepCredentials:
		if m.busy {
			return lgFooterStyle.Width(width).Render("Signing in...")
		}
		return lgFooterStyle.Width(width).Render("tab switch field  enter sign in  esc back  ctrl+c quit")
	default:
		return lgFooterStyle.Width(width).Render(m.status)
	}
}

func (m loginModel) renderContent(width, height int) string {
	cardWidth := min(72, width-6)
	if cardWidth < 40 {
		cardWidth = width - 2
	}

	var body string
	switch m.step {
	case stepChoose:
		guest := "Continue as guest"
		signIn := "Sign in with email"
		if m.signIn == nil {
			signIn += " (set FIREBASE_API_KEY to enable)"
		}

		option := func(label string, selected, enabled bool) string {
			if selected {
				return "  " + lgOptionSelected.Render("→ "+label)
			}
			if !enabled {
				return "    " + lgMutedStyle.Render(label)
			}
			return "    " + lgOptionStyle.Render(label)
		}

		body = lipgloss.JoinVertical(
			lipgloss.Left,
			lgLabelStyle.Render("How do you want to explore the city?"),
			"",
			option(guest, m.choice == choiceGuest, true),
			option(signIn, m.choice == choiceSignIn, m.signIn != nil),
			"",
			lgMutedStyle.Render("Guests can browse and add places without an account."),
		)
	case stepCredentials:
		inputWidth := max(30, cardWidth-10)
		field := func(i int, label string) string {
			style := lgInputStyle
			if m.focused == i {
				style = lgInputActive
			}
			return lipgloss.JoinVertical(lipgloss.Left,
				lgLabelStyle.Render(label),
				style.Width(inputWidth).Render(m.inputs[i].View()),
			)
		}
		body = lipgloss.JoinVertical(
			lipgloss.Left,
			field(fieldEmail, "Email"),
			"",
			field(fieldPassword, "Password"),
		)
	default:
		body = lipgloss.JoinVertical(lipgloss.Left, lgLabelStyle.Render("Done"), "", lgMutedStyle.Render(m.status))
	}

	if m.errMsg != "" {
		body = lipgloss.JoinVertical(lipgloss.Left, body, "", lgErrorStyle.Render(m.errMsg))
	}

	card := lgPanelStyle.Width(cardWidth).Render(body)
	return lipgloss.Place(width, height, lipgloss.Center, lipgloss.Top, card)
}

// runLogin runs the login surface until the user signs in, picks guest mode
// or cancels.
func runLogin(session *auth.LocalStore, identity *auth.IdentityClient) (loginOutcome, error) {
	var signIn signInFunc
	if identity != nil {
		signIn = identity.SignInWithPassword
	}

	prog := tea.NewProgram(newLoginModel(session, signIn), tea.WithAltScreen())
	finalModel, err := prog.Run()
	if err != nil {
		return loginCancelled, fmt.Errorf("login tui failed: %w", err)
	}
	m, ok := finalModel.(loginModel)
	if !ok {
		return loginCancelled, fmt.Errorf("unexpected login model type")
	}
	return m.outcome, nil
}
