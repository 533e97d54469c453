package tui

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/Makepad-fr/taskmate/internal/model"
)

var errBoom = errors.New("boom")

type updateCall struct {
	id    int64
	patch model.TodoPatch
}

type fakeStore struct {
	mu      sync.Mutex
	todos   []model.Todo
	nextID  int64
	lists   int
	adds    []model.NewTodo
	updates []updateCall
	deletes []int64

	listErr, addErr, updateErr, deleteErr error
}

func newFakeStore(todos ...model.Todo) *fakeStore {
	s := &fakeStore{todos: todos, nextID: 100}
	return s
}

func (f *fakeStore) List(ctx context.Context) ([]model.Todo, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.lists++
	if f.listErr != nil {
		return nil, f.listErr
	}
	return append([]model.Todo(nil), f.todos...), nil
}

func (f *fakeStore) Add(ctx context.Context, in model.NewTodo) (model.Todo, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.adds = append(f.adds, in)
	if f.addErr != nil {
		return model.Todo{}, f.addErr
	}
	t := model.Todo{ID: f.nextID, Text: in.Text, IsCompleted: in.IsCompleted, CreatedAt: time.Now()}
	f.nextID++
	f.todos = append(f.todos, t)
	return t, nil
}

func (f *fakeStore) Update(ctx context.Context, id int64, p model.TodoPatch) (model.Todo, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.updates = append(f.updates, updateCall{id: id, patch: p})
	if f.updateErr != nil {
		return model.Todo{}, f.updateErr
	}
	for i, t := range f.todos {
		if t.ID == id {
			if p.Text != nil {
				t.Text = *p.Text
			}
			if p.IsCompleted != nil {
				t.IsCompleted = *p.IsCompleted
			}
			f.todos[i] = t
			return t, nil
		}
	}
	return model.Todo{}, errors.New("not found")
}

func (f *fakeStore) Delete(ctx context.Context, id int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.deletes = append(f.deletes, id)
	if f.deleteErr != nil {
		return f.deleteErr
	}
	for i, t := range f.todos {
		if t.ID == id {
			f.todos = append(f.todos[:i:i], f.todos[i+1:]...)
			return nil
		}
	}
	return errors.New("not found")
}

type fakeSession struct {
	authed  bool
	user    string
	token   string
	loginOK bool
	logins  int
	signups int
}

func (f *fakeSession) Signup(ctx context.Context, username, password string) bool {
	f.signups++
	return username != "taken"
}

func (f *fakeSession) Login(ctx context.Context, username, password string) bool {
	f.logins++
	if !f.loginOK {
		f.Logout()
		return false
	}
	f.authed, f.user, f.token = true, username, "Bearer token-"+username
	return true
}

func (f *fakeSession) Logout()               { f.authed, f.user, f.token = false, "", "" }
func (f *fakeSession) IsAuthenticated() bool { return f.authed }
func (f *fakeSession) Username() string      { return f.user }
func (f *fakeSession) Authorization() string { return f.token }

type fakeGreeter struct {
	text string
	err  error

	mu   sync.Mutex
	auth []string
}

func (g *fakeGreeter) GetText(ctx context.Context, path, authorization string) (string, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.auth = append(g.auth, authorization)
	return g.text, g.err
}

func keyMsg(k string) tea.KeyMsg {
	switch k {
	case "enter":
		return tea.KeyMsg{Type: tea.KeyEnter}
	case "esc":
		return tea.KeyMsg{Type: tea.KeyEsc}
	case "tab":
		return tea.KeyMsg{Type: tea.KeyTab}
	case "ctrl+s":
		return tea.KeyMsg{Type: tea.KeyCtrlS}
	case " ":
		return tea.KeyMsg{Type: tea.KeySpace, Runes: []rune{' '}}
	default:
		return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(k)}
	}
}

// drain runs cmd and everything it produces, feeding results back into s.
// Navigation requests are collected instead of delivered.
func drain(t *testing.T, s screen, cmd tea.Cmd) (screen, []navigateMsg) {
	t.Helper()
	var nav []navigateMsg
	queue := []tea.Cmd{cmd}
	for steps := 0; len(queue) > 0; steps++ {
		if steps > 100 {
			t.Fatal("commands did not settle")
		}
		c := queue[0]
		queue = queue[1:]
		if c == nil {
			continue
		}
		switch msg := c().(type) {
		case tea.BatchMsg:
			queue = append(queue, msg...)
		case navigateMsg:
			nav = append(nav, msg)
		default:
			var next tea.Cmd
			s, next = s.Update(msg)
			queue = append(queue, next)
		}
	}
	return s, nav
}

func press(s screen, k string) (screen, tea.Cmd) {
	return s.Update(keyMsg(k))
}

func day(t *testing.T, s string) time.Time {
	t.Helper()
	ts, err := time.Parse(time.RFC3339, s)
	if err != nil {
		t.Fatalf("parse %q: %v", s, err)
	}
	return ts
}
