package tui

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/Makepad-fr/taskmate/internal/logging"
	"github.com/Makepad-fr/taskmate/internal/model"
	"github.com/Makepad-fr/taskmate/internal/ui"
)

const (
	RouteHome    = "/"
	RouteLogin   = "/login"
	RouteSignin  = "/signin"
	RouteSignup  = "/signup"
	RouteWelcome = "/welcome"
	RouteTodos   = "/todos"
)

var protected = map[string]bool{
	RouteWelcome: true,
	RouteTodos:   true,
}

// Authenticator is the session as the views use it.
type Authenticator interface {
	Signup(ctx context.Context, username, password string) bool
	Login(ctx context.Context, username, password string) bool
	Logout()
	IsAuthenticated() bool
	Username() string
	Authorization() string
}

// TodoStore is the todo data access the list screen drives.
type TodoStore interface {
	List(ctx context.Context) ([]model.Todo, error)
	Add(ctx context.Context, in model.NewTodo) (model.Todo, error)
	Update(ctx context.Context, id int64, p model.TodoPatch) (model.Todo, error)
	Delete(ctx context.Context, id int64) error
}

// Greeter fetches the welcome text.
type Greeter interface {
	GetText(ctx context.Context, path, authorization string) (string, error)
}

// Deps is everything the screens need.
type Deps struct {
	Session   Authenticator
	Todos     TodoStore
	Greeter   Greeter
	Timeout   time.Duration // per request; 0 means none
	NoticeTTL time.Duration // 0 keeps notices until replaced
	Log       *slog.Logger
}

func (d Deps) context() (context.Context, context.CancelFunc) {
	if d.Timeout <= 0 {
		return context.WithCancel(context.Background())
	}
	return context.WithTimeout(context.Background(), d.Timeout)
}

// screen is one routed view.
type screen interface {
	Init() tea.Cmd
	Update(msg tea.Msg) (screen, tea.Cmd)
	View() string
	// inputActive reports whether a text input owns the keyboard.
	inputActive() bool
	bindings() []key.Binding
}

type navigateMsg struct {
	path   string
	notice string
}

func navigate(path string) tea.Cmd {
	return func() tea.Msg { return navigateMsg{path: path} }
}

// Gate resolves path against the session: protected routes redirect to the
// login route while logged out, and /signin is an alias of /login.
func Gate(s Authenticator, path string) string {
	p := "/" + strings.Trim(strings.TrimSpace(path), "/")
	if p == RouteSignin {
		p = RouteLogin
	}
	if protected[p] && !s.IsAuthenticated() {
		return RouteLogin
	}
	return p
}

type appKeys struct {
	Quit      key.Binding
	ForceQuit key.Binding
	Logout    key.Binding
}

func newAppKeys() appKeys {
	return appKeys{
		Quit:      key.NewBinding(key.WithKeys("q"), key.WithHelp("q", "quit")),
		ForceQuit: key.NewBinding(key.WithKeys("ctrl+c")),
		Logout:    key.NewBinding(key.WithKeys("o"), key.WithHelp("o", "logout")),
	}
}

// App is the root model: a navbar over the routed screen.
type App struct {
	deps   Deps
	route  string
	screen screen
	keys   appKeys
	help   help.Model
	width  int
}

// New builds the app on start, passed through the gate.
func New(deps Deps, start string) App {
	deps.Log = logging.OrDiscard(deps.Log)
	a := App{deps: deps, keys: newAppKeys(), help: help.New()}
	a, _ = a.open(navigateMsg{path: start})
	return a
}

// Route is the current (post-gate) route.
func (a App) Route() string { return a.route }

func (a App) Init() tea.Cmd { return a.screen.Init() }

func (a App) open(n navigateMsg) (App, tea.Cmd) {
	a.route = Gate(a.deps.Session, n.path)
	if a.route != n.path && n.path != RouteSignin {
		a.deps.Log.Debug("route redirected", "from", n.path, "to", a.route)
	}
	switch a.route {
	case RouteHome, RouteLogin:
		a.screen = newLoginScreen(a.deps, n.notice)
	case RouteSignup:
		a.screen = newSignupScreen(a.deps)
	case RouteWelcome:
		a.screen = newWelcomeScreen(a.deps)
	case RouteTodos:
		a.screen = newTodosScreen(a.deps)
	default:
		a.screen = newErrorScreen(a.route)
	}
	return a, a.screen.Init()
}

func (a App) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		a.width = msg.Width
	case navigateMsg:
		return a.open(msg)
	case tea.KeyMsg:
		if key.Matches(msg, a.keys.ForceQuit) {
			return a, tea.Quit
		}
		if !a.screen.inputActive() {
			switch {
			case key.Matches(msg, a.keys.Quit):
				return a, tea.Quit
			case key.Matches(msg, a.keys.Logout) && a.deps.Session.IsAuthenticated():
				a.deps.Session.Logout()
				return a.open(navigateMsg{path: RouteLogin, notice: "Logged out."})
			}
		}
	}
	var cmd tea.Cmd
	a.screen, cmd = a.screen.Update(msg)
	return a, cmd
}

func (a App) View() string {
	t := ui.Current()
	left := t.Title.Render("TaskMate")
	right := t.Muted.Render("not logged in")
	if a.deps.Session.IsAuthenticated() {
		right = t.Accent.Render(a.deps.Session.Username())
	}
	nav := left + "  " + right

	bindings := a.screen.bindings()
	if !a.screen.inputActive() {
		bindings = append(bindings, a.keys.Quit)
		if a.deps.Session.IsAuthenticated() {
			bindings = append(bindings, a.keys.Logout)
		}
	}
	body := lipgloss.JoinVertical(lipgloss.Left,
		nav,
		"",
		a.screen.View(),
		"",
		a.help.ShortHelpView(bindings),
	)
	return ui.Panel([]string{body})
}

// Run starts the interactive program on start and blocks until it exits.
func Run(deps Deps, start string) error {
	p := tea.NewProgram(New(deps, start), tea.WithAltScreen())
	_, err := p.Run()
	return err
}
