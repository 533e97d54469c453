package tui

import (
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/Makepad-fr/taskmate/internal/ui"
)

type signupResultMsg struct{ ok bool }

type signupScreen struct {
	deps    Deps
	form    credentialsForm
	busy    bool
	message string
}

func newSignupScreen(deps Deps) signupScreen {
	return signupScreen{
		deps: deps,
		form: newCredentialsForm(key.NewBinding(key.WithKeys("esc"), key.WithHelp("esc", "back to login"))),
	}
}

func (s signupScreen) Init() tea.Cmd { return textinput.Blink }

func (s signupScreen) inputActive() bool { return true }

func (s signupScreen) bindings() []key.Binding {
	return []key.Binding{s.form.keys.Submit, s.form.keys.Next, s.form.keys.Switch}
}

func (s signupScreen) Update(msg tea.Msg) (screen, tea.Cmd) {
	switch msg := msg.(type) {
	case signupResultMsg:
		s.busy = false
		if msg.ok {
			return s, func() tea.Msg {
				return navigateMsg{path: RouteLogin, notice: "Account created. Please log in."}
			}
		}
		s.message = signupFailedText
		return s, nil
	case tea.KeyMsg:
		switch {
		case key.Matches(msg, s.form.keys.Switch):
			if s.busy {
				return s, nil
			}
			return s, navigate(RouteLogin)
		case key.Matches(msg, s.form.keys.Submit):
			if s.busy {
				return s, nil
			}
			user, pass := s.form.values()
			if user == "" || pass == "" {
				s.message = missingCredsText
				return s, nil
			}
			s.busy, s.message = true, ""
			d := s.deps
			return s, func() tea.Msg {
				ctx, cancel := d.context()
				defer cancel()
				return signupResultMsg{ok: d.Session.Signup(ctx, user, pass)}
			}
		}
	}
	var cmd tea.Cmd
	s.form, cmd = s.form.update(msg)
	return s, cmd
}

func (s signupScreen) View() string {
	t := ui.Current()
	lines := []string{t.Title.Render("Sign up"), t.Muted.Render("Enter your details to create a new account"), ""}
	if s.message != "" {
		lines = append(lines, t.Error.Render(s.message), "")
	}
	lines = append(lines, s.form.View())
	if s.busy {
		lines = append(lines, "", t.Muted.Render("Creating account…"))
	}
	return lipgloss.JoinVertical(lipgloss.Left, lines...)
}
