package tui

import (
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/Makepad-fr/taskmate/internal/ui"
)

const (
	loginFailedText  = "Login failed! Try again."
	signupFailedText = "Signup failed. Please try again."
	missingCredsText = "Username and password are required."
)

type formKeys struct {
	Next   key.Binding
	Prev   key.Binding
	Submit key.Binding
	Switch key.Binding
}

// credentialsForm is the username + masked password pair shared by the
// login and signup screens.
type credentialsForm struct {
	inputs [2]textinput.Model
	focus  int
	keys   formKeys
}

func newCredentialsForm(switchKey key.Binding) credentialsForm {
	user := textinput.New()
	user.Prompt = "Username > "
	user.Placeholder = "your username"
	user.CharLimit = 64

	pass := textinput.New()
	pass.Prompt = "Password > "
	pass.Placeholder = "your password"
	pass.EchoMode = textinput.EchoPassword
	pass.EchoCharacter = '•'
	pass.CharLimit = 128

	f := credentialsForm{
		inputs: [2]textinput.Model{user, pass},
		keys: formKeys{
			Next:   key.NewBinding(key.WithKeys("tab", "down"), key.WithHelp("tab", "next field")),
			Prev:   key.NewBinding(key.WithKeys("shift+tab", "up")),
			Submit: key.NewBinding(key.WithKeys("enter"), key.WithHelp("enter", "submit")),
			Switch: switchKey,
		},
	}
	f.inputs[0].Focus()
	return f
}

func (f credentialsForm) values() (string, string) {
	return strings.TrimSpace(f.inputs[0].Value()), f.inputs[1].Value()
}

func (f *credentialsForm) move(delta int) {
	f.inputs[f.focus].Blur()
	f.focus = (f.focus + delta + len(f.inputs)) % len(f.inputs)
	f.inputs[f.focus].Focus()
}

// update forwards keys to the focused input and handles field movement.
func (f credentialsForm) update(msg tea.Msg) (credentialsForm, tea.Cmd) {
	if k, ok := msg.(tea.KeyMsg); ok {
		switch {
		case key.Matches(k, f.keys.Next):
			f.move(1)
			return f, nil
		case key.Matches(k, f.keys.Prev):
			f.move(-1)
			return f, nil
		}
	}
	var cmd tea.Cmd
	f.inputs[f.focus], cmd = f.inputs[f.focus].Update(msg)
	return f, cmd
}

func (f credentialsForm) View() string {
	return f.inputs[0].View() + "\n" + f.inputs[1].View()
}

type loginResultMsg struct{ ok bool }

type loginScreen struct {
	deps   Deps
	form   credentialsForm
	busy   bool
	failed bool
	notice string
}

func newLoginScreen(deps Deps, notice string) loginScreen {
	return loginScreen{
		deps:   deps,
		form:   newCredentialsForm(key.NewBinding(key.WithKeys("ctrl+s"), key.WithHelp("ctrl+s", "sign up"))),
		notice: notice,
	}
}

func (s loginScreen) Init() tea.Cmd { return textinput.Blink }

func (s loginScreen) inputActive() bool { return true }

func (s loginScreen) bindings() []key.Binding {
	return []key.Binding{s.form.keys.Submit, s.form.keys.Next, s.form.keys.Switch}
}

func (s loginScreen) Update(msg tea.Msg) (screen, tea.Cmd) {
	switch msg := msg.(type) {
	case loginResultMsg:
		s.busy = false
		if msg.ok {
			return s, navigate(RouteWelcome)
		}
		s.failed = true
		return s, nil
	case tea.KeyMsg:
		switch {
		case key.Matches(msg, s.form.keys.Switch):
			if s.busy {
				return s, nil
			}
			return s, navigate(RouteSignup)
		case key.Matches(msg, s.form.keys.Submit):
			if s.busy {
				return s, nil
			}
			user, pass := s.form.values()
			if user == "" || pass == "" {
				s.notice = missingCredsText
				return s, nil
			}
			s.busy, s.failed, s.notice = true, false, ""
			return s, s.login(user, pass)
		}
	}
	var cmd tea.Cmd
	s.form, cmd = s.form.update(msg)
	return s, cmd
}

func (s loginScreen) login(user, pass string) tea.Cmd {
	d := s.deps
	return func() tea.Msg {
		ctx, cancel := d.context()
		defer cancel()
		return loginResultMsg{ok: d.Session.Login(ctx, user, pass)}
	}
}

func (s loginScreen) View() string {
	t := ui.Current()
	lines := []string{t.Title.Render("Log In"), t.Muted.Render("Enter your credentials to access your account"), ""}
	if s.failed {
		lines = append(lines, t.Error.Render(loginFailedText), "")
	} else if s.notice != "" {
		lines = append(lines, t.Accent.Render(s.notice), "")
	}
	lines = append(lines, s.form.View())
	if s.busy {
		lines = append(lines, "", t.Muted.Render("Logging in…"))
	}
	return lipgloss.JoinVertical(lipgloss.Left, lines...)
}
