package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/Makepad-fr/taskmate/internal/logging"
	"github.com/Makepad-fr/taskmate/internal/model"
	"github.com/Makepad-fr/taskmate/internal/ui"
)

const (
	emptyTextNotice = "Please enter a todo item."
	addFailedNotice = "Failed to add todo!"
)

type todosLoadedMsg struct {
	todos []model.Todo
	err   error
}

type todoAddedMsg struct {
	todo model.Todo
	err  error
}

type todoUpdatedMsg struct {
	id   int64
	edit bool // text edit rather than a completion toggle
	err  error
}

type todoDeletedMsg struct {
	id  int64
	err error
}

type todoKeys struct {
	Up, Down, Add, Edit, Toggle, Delete, Refresh, Submit, Cancel key.Binding
}

func newTodoKeys() todoKeys {
	return todoKeys{
		Up:      key.NewBinding(key.WithKeys("up", "k"), key.WithHelp("↑/k", "up")),
		Down:    key.NewBinding(key.WithKeys("down", "j"), key.WithHelp("↓/j", "down")),
		Add:     key.NewBinding(key.WithKeys("a"), key.WithHelp("a", "add")),
		Edit:    key.NewBinding(key.WithKeys("e"), key.WithHelp("e", "edit")),
		Toggle:  key.NewBinding(key.WithKeys(" ", "space", "x"), key.WithHelp("space", "toggle")),
		Delete:  key.NewBinding(key.WithKeys("d"), key.WithHelp("d", "delete")),
		Refresh: key.NewBinding(key.WithKeys("r"), key.WithHelp("r", "refresh")),
		Submit:  key.NewBinding(key.WithKeys("enter"), key.WithHelp("enter", "save")),
		Cancel:  key.NewBinding(key.WithKeys("esc"), key.WithHelp("esc", "cancel")),
	}
}

// todosScreen shows the last list snapshot from the server, grouped by day.
// Every successful mutation is followed by a full re-fetch; nothing is
// inserted or changed locally.
type todosScreen struct {
	deps Deps
	keys todoKeys

	todos    []model.Todo
	groups   []model.Group
	order    []model.Todo // display order, what the cursor walks
	cursor   int
	fetching bool
	loading  map[int64]bool // in-flight mutation per item

	// inline add
	adding     bool
	submitting bool
	input      textinput.Model

	// inline edit
	editing bool
	editID  int64
	draft   textinput.Model

	notes notifier
}

func newTodosScreen(deps Deps) todosScreen {
	deps.Log = logging.OrDiscard(deps.Log)

	in := textinput.New()
	in.Prompt = "> "
	in.Placeholder = "Add your task"
	in.CharLimit = 200

	draft := textinput.New()
	draft.Prompt = "> "
	draft.Placeholder = "Edit item title..."
	draft.CharLimit = 200

	return todosScreen{
		deps:     deps,
		keys:     newTodoKeys(),
		fetching: true,
		loading:  make(map[int64]bool),
		input:    in,
		draft:    draft,
		notes:    notifier{ttl: deps.NoticeTTL},
	}
}

func (s todosScreen) Init() tea.Cmd { return s.fetch() }

func (s todosScreen) inputActive() bool { return s.adding || s.editing }

func (s todosScreen) bindings() []key.Binding {
	if s.adding || s.editing {
		return []key.Binding{s.keys.Submit, s.keys.Cancel}
	}
	return []key.Binding{s.keys.Add, s.keys.Edit, s.keys.Toggle, s.keys.Delete, s.keys.Refresh}
}

// ---- commands ----

func (s todosScreen) fetch() tea.Cmd {
	d := s.deps
	return func() tea.Msg {
		ctx, cancel := d.context()
		defer cancel()
		todos, err := d.Todos.List(ctx)
		return todosLoadedMsg{todos: todos, err: err}
	}
}

func (s todosScreen) addCmd(text string) tea.Cmd {
	d := s.deps
	return func() tea.Msg {
		ctx, cancel := d.context()
		defer cancel()
		t, err := d.Todos.Add(ctx, model.NewTodo{Text: text, IsCompleted: false})
		return todoAddedMsg{todo: t, err: err}
	}
}

func (s todosScreen) updateCmd(id int64, p model.TodoPatch, edit bool) tea.Cmd {
	d := s.deps
	return func() tea.Msg {
		ctx, cancel := d.context()
		defer cancel()
		_, err := d.Todos.Update(ctx, id, p)
		return todoUpdatedMsg{id: id, edit: edit, err: err}
	}
}

func (s todosScreen) deleteCmd(id int64) tea.Cmd {
	d := s.deps
	return func() tea.Msg {
		ctx, cancel := d.context()
		defer cancel()
		return todoDeletedMsg{id: id, err: d.Todos.Delete(ctx, id)}
	}
}

// ---- update ----

func (s todosScreen) Update(msg tea.Msg) (screen, tea.Cmd) {
	switch msg := msg.(type) {
	case noticeExpiredMsg:
		s.notes.expire(msg)
		return s, nil

	case todosLoadedMsg:
		s.fetching = false
		if msg.err != nil {
			s.deps.Log.Error("fetch todos", "err", msg.err)
			cmd := s.notes.show(noticeError, "Failed to fetch todos. Please try again.")
			return s, cmd
		}
		s.setSnapshot(msg.todos)
		return s, nil

	case todoAddedMsg:
		s.submitting = false
		if msg.err != nil {
			s.deps.Log.Error("add todo", "err", msg.err)
			s.input.Focus()
			cmd := s.notes.show(noticeError, addFailedNotice)
			return s, cmd
		}
		s.adding = false
		s.input.SetValue("")
		s.input.Blur()
		cmd := tea.Batch(s.notes.show(noticeSuccess, "Todo added successfully!"), s.refresh())
		return s, cmd

	case todoUpdatedMsg:
		delete(s.loading, msg.id)
		if msg.err != nil {
			s.deps.Log.Error("update todo", "id", msg.id, "err", msg.err)
			cmd := s.notes.show(noticeError, "Failed to update todo. Please try again.")
			return s, cmd
		}
		if msg.edit && s.editing && s.editID == msg.id {
			s.closeEdit()
		}
		cmd := s.refresh()
		return s, cmd

	case todoDeletedMsg:
		delete(s.loading, msg.id)
		if msg.err != nil {
			s.deps.Log.Error("delete todo", "id", msg.id, "err", msg.err)
			cmd := s.notes.show(noticeError, "Failed to delete todo. Please try again.")
			return s, cmd
		}
		cmd := tea.Batch(s.notes.show(noticeSuccess, "Todo deleted successfully"), s.refresh())
		return s, cmd

	case tea.KeyMsg:
		switch {
		case s.adding:
			return s.updateAdding(msg)
		case s.editing:
			return s.updateEditing(msg)
		default:
			return s.updateViewing(msg)
		}
	}

	// cursor blink and friends
	var cmd tea.Cmd
	if s.adding {
		s.input, cmd = s.input.Update(msg)
	} else if s.editing {
		s.draft, cmd = s.draft.Update(msg)
	}
	return s, cmd
}

func (s *todosScreen) refresh() tea.Cmd {
	s.fetching = true
	return s.fetch()
}

func (s *todosScreen) setSnapshot(todos []model.Todo) {
	var selected int64 = -1
	if cur, ok := s.selected(); ok {
		selected = cur.ID
	}
	s.todos = todos
	s.groups = model.GroupByDate(todos)
	s.order = model.Flatten(s.groups)

	s.cursor = min(s.cursor, max(len(s.order)-1, 0))
	for i, t := range s.order {
		if t.ID == selected {
			s.cursor = i
			break
		}
	}
}

func (s todosScreen) selected() (model.Todo, bool) {
	if s.cursor < 0 || s.cursor >= len(s.order) {
		return model.Todo{}, false
	}
	return s.order[s.cursor], true
}

func (s todosScreen) updateViewing(msg tea.KeyMsg) (screen, tea.Cmd) {
	switch {
	case key.Matches(msg, s.keys.Up):
		if s.cursor > 0 {
			s.cursor--
		}
	case key.Matches(msg, s.keys.Down):
		if s.cursor < len(s.order)-1 {
			s.cursor++
		}
	case key.Matches(msg, s.keys.Refresh):
		cmd := s.refresh()
		return s, cmd
	case key.Matches(msg, s.keys.Add):
		s.adding = true
		cmd := s.input.Focus()
		return s, cmd
	case key.Matches(msg, s.keys.Edit):
		t, ok := s.selected()
		if !ok || s.loading[t.ID] {
			return s, nil
		}
		s.editing, s.editID = true, t.ID
		s.draft.SetValue(t.Text)
		s.draft.CursorEnd()
		cmd := s.draft.Focus()
		return s, cmd
	case key.Matches(msg, s.keys.Toggle):
		t, ok := s.selected()
		if !ok || s.loading[t.ID] {
			return s, nil
		}
		s.loading[t.ID] = true
		return s, s.updateCmd(t.ID, model.CompletionPatch(!t.IsCompleted), false)
	case key.Matches(msg, s.keys.Delete):
		t, ok := s.selected()
		if !ok || s.loading[t.ID] {
			return s, nil
		}
		s.loading[t.ID] = true
		return s, s.deleteCmd(t.ID)
	}
	return s, nil
}

func (s todosScreen) updateAdding(msg tea.KeyMsg) (screen, tea.Cmd) {
	switch {
	case key.Matches(msg, s.keys.Submit):
		if s.submitting {
			return s, nil
		}
		text := strings.TrimSpace(s.input.Value())
		if text == "" {
			cmd := s.notes.show(noticeError, emptyTextNotice)
			return s, cmd
		}
		s.submitting = true
		s.input.Blur()
		return s, s.addCmd(text)
	case key.Matches(msg, s.keys.Cancel):
		if s.submitting {
			return s, nil
		}
		s.adding = false
		s.input.SetValue("")
		s.input.Blur()
		return s, nil
	}
	if s.submitting {
		return s, nil
	}
	var cmd tea.Cmd
	s.input, cmd = s.input.Update(msg)
	return s, cmd
}

func (s todosScreen) updateEditing(msg tea.KeyMsg) (screen, tea.Cmd) {
	switch {
	case key.Matches(msg, s.keys.Submit):
		if s.loading[s.editID] {
			return s, nil
		}
		text := strings.TrimSpace(s.draft.Value())
		if text == "" {
			cmd := s.notes.show(noticeError, emptyTextNotice)
			return s, cmd
		}
		s.loading[s.editID] = true
		return s, s.updateCmd(s.editID, model.TextPatch(text), true)
	case key.Matches(msg, s.keys.Cancel):
		s.closeEdit()
		return s, nil
	}
	var cmd tea.Cmd
	s.draft, cmd = s.draft.Update(msg)
	return s, cmd
}

func (s *todosScreen) closeEdit() {
	s.editing = false
	s.editID = 0
	s.draft.SetValue("")
	s.draft.Blur()
}

// ---- view ----

func (s todosScreen) View() string {
	t := ui.Current()
	done, pending := model.Stats(s.todos)
	header := fmt.Sprintf("%s   %s %d  %s %d  %s %d",
		t.Title.Render("Your Todos"),
		t.Success.Render(t.SymOK), done,
		t.Pending.Render("•"), pending,
		t.Accent.Render("Total"), len(s.todos),
	)
	lines := []string{header, ui.ProgressBar(done, len(s.todos), 28), ""}

	switch {
	case s.fetching && len(s.todos) == 0:
		lines = append(lines, t.Muted.Render("Loading todos…"))
	case len(s.todos) == 0:
		lines = append(lines, t.Muted.Render("No todos yet. Press a to add one!"))
	default:
		i := 0
		for _, g := range s.groups {
			lines = append(lines, t.Accent.Render(g.Date))
			for _, td := range g.Todos {
				lines = append(lines, s.renderItem(td, i == s.cursor))
				i++
			}
		}
	}

	if s.adding {
		title := "Add new item"
		if s.submitting {
			title += " " + t.Muted.Render("Adding…")
		}
		bar := lipgloss.NewStyle().Border(t.Border).BorderForeground(t.BorderColor).Padding(0, 1)
		lines = append(lines, "", bar.Render(title+"\n"+s.input.View()))
	}
	if n := s.notes.View(); n != "" {
		lines = append(lines, "", n)
	}
	return lipgloss.JoinVertical(lipgloss.Left, lines...)
}

func (s todosScreen) renderItem(td model.Todo, selected bool) string {
	t := ui.Current()
	prefix := "  "
	if selected {
		prefix = t.Selected.Render(">") + " "
	}
	text := td.Text
	if td.IsCompleted {
		text = t.Done.Render(text)
	}
	if s.editing && s.editID == td.ID {
		text = s.draft.View()
	}
	line := prefix + ui.Box(td.IsCompleted) + " " + text
	if s.loading[td.ID] {
		line += " " + t.Muted.Render("…")
	}
	return line
}
