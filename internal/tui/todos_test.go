package tui

import (
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/Makepad-fr/taskmate/internal/model"
)

func seeded(t *testing.T) *fakeStore {
	return newFakeStore(
		model.Todo{ID: 1, Text: "Learn Linux", CreatedAt: day(t, "2024-01-01T10:00:00Z")},
		model.Todo{ID: 2, Text: "Learn DevOps", CreatedAt: day(t, "2024-01-01T12:00:00Z")},
		model.Todo{ID: 3, Text: "Learn Kafka", IsCompleted: true, CreatedAt: day(t, "2024-01-02T09:00:00Z")},
	)
}

// loaded returns a todo screen after its initial fetch.
func loaded(t *testing.T, store *fakeStore) todosScreen {
	t.Helper()
	s := newTodosScreen(Deps{Todos: store})
	out, _ := drain(t, s, s.Init())
	return out.(todosScreen)
}

// selectID moves the cursor onto id.
func selectID(t *testing.T, s todosScreen, id int64) todosScreen {
	t.Helper()
	for i, td := range s.order {
		if td.ID == id {
			s.cursor = i
			return s
		}
	}
	t.Fatalf("todo %d not on screen", id)
	return s
}

func TestInitialFetchGroupsByDay(t *testing.T) {
	s := loaded(t, seeded(t))

	if len(s.groups) != 2 || s.groups[0].Date != "2024-01-02" || s.groups[1].Date != "2024-01-01" {
		t.Fatalf("groups = %+v", s.groups)
	}
	view := s.View()
	for _, want := range []string{"2024-01-01", "2024-01-02", "Learn Linux", "Learn Kafka"} {
		if !strings.Contains(view, want) {
			t.Errorf("View() missing %q", want)
		}
	}
	if strings.Index(view, "2024-01-02") > strings.Index(view, "2024-01-01") {
		t.Error("newest day not rendered first")
	}
}

func TestAddWhitespaceSendsNothing(t *testing.T) {
	store := seeded(t)
	s := loaded(t, store)
	listsBefore := store.lists

	var sc screen = s
	sc, _ = press(sc, "a")
	ts := sc.(todosScreen)
	ts.input.SetValue("  ")
	sc, cmd := press(ts, "enter")
	sc, _ = drain(t, sc, cmd)

	if len(store.adds) != 0 || store.lists != listsBefore {
		t.Errorf("store calls: adds=%d lists=%d, want none", len(store.adds), store.lists-listsBefore)
	}
	ts = sc.(todosScreen)
	if !strings.Contains(ts.View(), emptyTextNotice) {
		t.Errorf("validation notice missing from view:\n%s", ts.View())
	}
	if !ts.adding || ts.submitting {
		t.Errorf("form state adding=%v submitting=%v", ts.adding, ts.submitting)
	}
}

func TestAddSuccessClearsInputAndRefreshes(t *testing.T) {
	store := seeded(t)
	s := loaded(t, store)
	listsBefore := store.lists

	var sc screen = s
	sc, _ = press(sc, "a")
	ts := sc.(todosScreen)
	ts.input.SetValue("  Learn to play Violin ")
	sc, cmd := press(ts, "enter")

	ts = sc.(todosScreen)
	if !ts.submitting {
		t.Fatal("form not disabled while submitting")
	}
	// a second enter while in flight is ignored
	if _, again := press(ts, "enter"); again != nil {
		t.Error("duplicate submit produced a command")
	}

	sc, _ = drain(t, sc, cmd)
	ts = sc.(todosScreen)
	if len(store.adds) != 1 || store.adds[0].Text != "Learn to play Violin" || store.adds[0].IsCompleted {
		t.Fatalf("adds = %+v", store.adds)
	}
	if store.lists != listsBefore+1 {
		t.Errorf("refreshes = %d, want 1", store.lists-listsBefore)
	}
	if ts.adding || ts.input.Value() != "" {
		t.Errorf("form not reset: adding=%v value=%q", ts.adding, ts.input.Value())
	}
	if len(ts.todos) != 4 {
		t.Errorf("snapshot has %d todos, want 4", len(ts.todos))
	}
}

func TestAddFailureKeepsInput(t *testing.T) {
	store := seeded(t)
	store.addErr = errBoom
	s := loaded(t, store)
	listsBefore := store.lists

	var sc screen = s
	sc, _ = press(sc, "a")
	ts := sc.(todosScreen)
	ts.input.SetValue("Learn communication skills")
	sc, cmd := press(ts, "enter")
	sc, _ = drain(t, sc, cmd)

	ts = sc.(todosScreen)
	if ts.input.Value() != "Learn communication skills" || !ts.adding || ts.submitting {
		t.Errorf("input=%q adding=%v submitting=%v", ts.input.Value(), ts.adding, ts.submitting)
	}
	if store.lists != listsBefore {
		t.Error("list refreshed after failed add")
	}
	if !strings.Contains(ts.View(), addFailedNotice) {
		t.Error("failure notice missing")
	}
}

func TestToggleSendsOnePatchThenOneRefresh(t *testing.T) {
	store := seeded(t)
	s := selectID(t, loaded(t, store), 2)
	listsBefore := store.lists

	sc, cmd := press(s, " ")
	if !sc.(todosScreen).loading[2] {
		t.Fatal("loading[2] not set during toggle")
	}
	sc, _ = drain(t, sc, cmd)

	if len(store.updates) != 1 {
		t.Fatalf("updates = %d, want 1", len(store.updates))
	}
	u := store.updates[0]
	if u.id != 2 || u.patch.Text != nil || u.patch.IsCompleted == nil || !*u.patch.IsCompleted {
		t.Errorf("update = id %d patch %+v, want only isCompleted=true", u.id, u.patch)
	}
	if store.lists != listsBefore+1 {
		t.Errorf("refreshes = %d, want 1", store.lists-listsBefore)
	}
	ts := sc.(todosScreen)
	if ts.loading[2] {
		t.Error("loading[2] still set")
	}
	if td, _ := model.Find(ts.todos, 2); !td.IsCompleted {
		t.Error("refreshed snapshot does not show completion")
	}
}

func TestToggleFailureLeavesListStale(t *testing.T) {
	store := seeded(t)
	store.updateErr = errBoom
	s := selectID(t, loaded(t, store), 3)
	listsBefore := store.lists

	sc, cmd := press(s, "x")
	sc, _ = drain(t, sc, cmd)

	if store.lists != listsBefore {
		t.Error("list refreshed after failed toggle")
	}
	if !strings.Contains(sc.View(), "Failed to update todo") {
		t.Error("failure notice missing")
	}
}

func TestDeleteSuccessRemovesItem(t *testing.T) {
	store := seeded(t)
	s := selectID(t, loaded(t, store), 1)

	sc, cmd := press(s, "d")
	ts := sc.(todosScreen)
	if !ts.loading[1] {
		t.Fatal("loading[1] not set during delete")
	}
	if !strings.Contains(ts.View(), "Learn Linux …") {
		t.Error("in-flight marker not rendered")
	}

	sc, _ = drain(t, sc, cmd)
	ts = sc.(todosScreen)
	if _, ok := model.Find(ts.todos, 1); ok {
		t.Error("deleted todo still in snapshot")
	}
	if ts.loading[1] {
		t.Error("loading[1] still set")
	}
}

func TestDeleteFailureKeepsItem(t *testing.T) {
	store := seeded(t)
	store.deleteErr = errBoom
	s := selectID(t, loaded(t, store), 1)

	sc, cmd := press(s, "d")
	sc, _ = drain(t, sc, cmd)

	ts := sc.(todosScreen)
	if _, ok := model.Find(ts.todos, 1); !ok {
		t.Error("todo vanished after failed delete")
	}
	if ts.loading[1] {
		t.Error("loading[1] still set")
	}
	if !strings.Contains(ts.View(), "Failed to delete todo") {
		t.Error("failure notice missing")
	}
}

func TestLoadingBlocksSecondMutation(t *testing.T) {
	store := seeded(t)
	s := selectID(t, loaded(t, store), 2)

	sc, first := press(s, "d")
	if first == nil {
		t.Fatal("delete produced no command")
	}
	for _, k := range []string{"d", " ", "e"} {
		var cmd tea.Cmd
		sc, cmd = press(sc, k)
		if cmd != nil {
			t.Errorf("key %q produced a command while a request is in flight", k)
		}
	}
	ts := sc.(todosScreen)
	if ts.editing {
		t.Error("edit opened on an item with a request in flight")
	}
	sc, _ = drain(t, sc, first)
	if len(store.deletes) != 1 || len(store.updates) != 0 {
		t.Errorf("deletes=%d updates=%d, want 1 and 0", len(store.deletes), len(store.updates))
	}
}

func TestEditFlow(t *testing.T) {
	store := seeded(t)
	s := selectID(t, loaded(t, store), 1)
	listsBefore := store.lists

	sc, _ := press(s, "e")
	ts := sc.(todosScreen)
	if !ts.editing || ts.editID != 1 || ts.draft.Value() != "Learn Linux" {
		t.Fatalf("edit not seeded: editing=%v id=%d draft=%q", ts.editing, ts.editID, ts.draft.Value())
	}

	ts.draft.SetValue("Learn Linux kernels")
	sc, cmd := press(ts, "enter")
	sc, _ = drain(t, sc, cmd)

	ts = sc.(todosScreen)
	if ts.editing {
		t.Error("still editing after successful update")
	}
	if len(store.updates) != 1 || *store.updates[0].patch.Text != "Learn Linux kernels" || store.updates[0].patch.IsCompleted != nil {
		t.Errorf("updates = %+v", store.updates)
	}
	if store.lists != listsBefore+1 {
		t.Errorf("refreshes = %d, want 1", store.lists-listsBefore)
	}
	if td, _ := model.Find(ts.todos, 1); td.Text != "Learn Linux kernels" {
		t.Errorf("snapshot text = %q", td.Text)
	}
}

func TestEditFailureStaysEditing(t *testing.T) {
	store := seeded(t)
	store.updateErr = errBoom
	s := selectID(t, loaded(t, store), 1)

	sc, _ := press(s, "e")
	ts := sc.(todosScreen)
	ts.draft.SetValue("nope")
	sc, cmd := press(ts, "enter")
	sc, _ = drain(t, sc, cmd)

	ts = sc.(todosScreen)
	if !ts.editing || ts.editID != 1 {
		t.Error("left edit mode after failed update")
	}
	if ts.loading[1] {
		t.Error("loading[1] still set")
	}
	if !strings.Contains(ts.View(), "Failed to update todo") {
		t.Error("failure notice missing")
	}
}

func TestEditCancel(t *testing.T) {
	store := seeded(t)
	s := selectID(t, loaded(t, store), 1)

	sc, _ := press(s, "e")
	sc, cmd := press(sc, "esc")
	if cmd != nil {
		t.Error("cancel produced a command")
	}
	if sc.(todosScreen).editing {
		t.Error("still editing after esc")
	}
	if len(store.updates) != 0 {
		t.Error("cancel sent an update")
	}
}

func TestFetchFailureKeepsSnapshot(t *testing.T) {
	store := seeded(t)
	s := loaded(t, store)
	store.listErr = errBoom

	sc, cmd := press(s, "r")
	sc, _ = drain(t, sc, cmd)

	ts := sc.(todosScreen)
	if len(ts.todos) != 3 {
		t.Errorf("snapshot has %d todos, want previous 3", len(ts.todos))
	}
	if !strings.Contains(ts.View(), "Failed to fetch todos") {
		t.Error("failure notice missing")
	}
}

func TestNoticeExpiry(t *testing.T) {
	n := notifier{ttl: 0}
	if cmd := n.show(noticeError, "one"); cmd != nil {
		t.Error("ttl 0 scheduled an expiry")
	}

	n.ttl = 1
	n.show(noticeInfo, "first")
	first := n.seq
	n.show(noticeInfo, "second")
	n.expire(noticeExpiredMsg{seq: first})
	if n.text != "second" {
		t.Errorf("stale expiry cleared a newer notice: %q", n.text)
	}
	n.expire(noticeExpiredMsg{seq: n.seq})
	if n.View() != "" {
		t.Errorf("notice not cleared: %q", n.View())
	}
}

func TestNoticeExpiryFromReplacedScreen(t *testing.T) {
	store := seeded(t)
	store.listErr = errBoom

	// the first screen's fetch fails and schedules an expiry
	old := newTodosScreen(Deps{Todos: store, NoticeTTL: time.Hour})
	sc, _ := old.Update(old.fetch()())
	stale := sc.(todosScreen).notes.seq

	// a freshly opened screen shows its own first notice
	fresh := newTodosScreen(Deps{Todos: store, NoticeTTL: time.Hour})
	sc, _ = fresh.Update(fresh.fetch()())
	sc, _ = sc.Update(noticeExpiredMsg{seq: stale})

	if !strings.Contains(sc.View(), "Failed to fetch todos") {
		t.Error("expiry from a replaced screen cleared the new screen's notice")
	}
}
