package tui

import (
	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/Makepad-fr/taskmate/internal/logging"
	"github.com/Makepad-fr/taskmate/internal/ui"
)

const defaultGreeting = "Welcome to TaskMate!"

type greetingMsg struct {
	text string
	err  error
}

type welcomeScreen struct {
	deps     Deps
	greeting string
	open     key.Binding
}

func newWelcomeScreen(deps Deps) welcomeScreen {
	deps.Log = logging.OrDiscard(deps.Log)
	return welcomeScreen{
		deps:     deps,
		greeting: defaultGreeting,
		open:     key.NewBinding(key.WithKeys("enter", "t"), key.WithHelp("enter", "manage todos")),
	}
}

func (s welcomeScreen) Init() tea.Cmd {
	if s.deps.Greeter == nil {
		return nil
	}
	d := s.deps
	authz := d.Session.Authorization()
	return func() tea.Msg {
		ctx, cancel := d.context()
		defer cancel()
		text, err := d.Greeter.GetText(ctx, "/", authz)
		return greetingMsg{text: text, err: err}
	}
}

func (s welcomeScreen) inputActive() bool { return false }

func (s welcomeScreen) bindings() []key.Binding { return []key.Binding{s.open} }

func (s welcomeScreen) Update(msg tea.Msg) (screen, tea.Cmd) {
	switch msg := msg.(type) {
	case greetingMsg:
		if msg.err != nil {
			s.deps.Log.Warn("greeting unavailable", "err", msg.err)
			return s, nil
		}
		if msg.text != "" {
			s.greeting = msg.text
		}
	case tea.KeyMsg:
		if key.Matches(msg, s.open) {
			return s, navigate(RouteTodos)
		}
	}
	return s, nil
}

func (s welcomeScreen) View() string {
	t := ui.Current()
	return lipgloss.JoinVertical(lipgloss.Left,
		t.Title.Render(s.greeting),
		"",
		"Streamline your tasks, prioritize effectively, and achieve your goals",
		"with a simple todo management experience.",
	)
}

type errorScreen struct {
	path string
	home key.Binding
}

func newErrorScreen(path string) errorScreen {
	return errorScreen{
		path: path,
		home: key.NewBinding(key.WithKeys("enter"), key.WithHelp("enter", "home")),
	}
}

func (s errorScreen) Init() tea.Cmd { return nil }

func (s errorScreen) inputActive() bool { return false }

func (s errorScreen) bindings() []key.Binding { return []key.Binding{s.home} }

func (s errorScreen) Update(msg tea.Msg) (screen, tea.Cmd) {
	if k, ok := msg.(tea.KeyMsg); ok && key.Matches(k, s.home) {
		return s, navigate(RouteHome)
	}
	return s, nil
}

func (s errorScreen) View() string {
	t := ui.Current()
	return t.Error.Render("Something went wrong ⚠") + "\n" + t.Muted.Render("no page at "+s.path)
}
