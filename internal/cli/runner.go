package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/Makepad-fr/taskmate/internal/api"
	"github.com/Makepad-fr/taskmate/internal/auth"
	"github.com/Makepad-fr/taskmate/internal/config"
	"github.com/Makepad-fr/taskmate/internal/logging"
	"github.com/Makepad-fr/taskmate/internal/model"
	"github.com/Makepad-fr/taskmate/internal/todo"
	"github.com/Makepad-fr/taskmate/internal/tui"
	"github.com/Makepad-fr/taskmate/internal/ui"
)

// Options carry root flags and I/O into the runner.
type Options struct {
	Config *config.Config
	Log    *slog.Logger
	User   string // --user; falls back to TASKMATE_USERNAME, then a prompt

	In       io.Reader
	Out, Err io.Writer

	// UI runs the interactive program; tui.Run when nil.
	UI func(deps tui.Deps, start string) error
	// Now is the clock whoami checks expiry against; time.Now when nil.
	Now func() time.Time
}

type runner struct {
	opt     Options
	in      *bufio.Reader
	client  *api.Client
	session *auth.Session
	todos   *todo.Service
}

// Run dispatches subcommands and returns an exit code (0 ok, 1 error, 2 usage).
func Run(ctx context.Context, args []string, opt Options) int {
	if opt.Config == nil {
		opt.Config = config.Default()
	}
	opt.Log = logging.OrDiscard(opt.Log)
	if opt.In == nil {
		opt.In = os.Stdin
	}
	if opt.Out == nil {
		opt.Out = os.Stdout
	}
	if opt.Err == nil {
		opt.Err = os.Stderr
	}
	if opt.UI == nil {
		opt.UI = tui.Run
	}
	if opt.Now == nil {
		opt.Now = time.Now
	}

	client, err := api.New(opt.Config.Server, api.WithTimeout(opt.Config.Timeout), api.WithLogger(opt.Log))
	if err != nil {
		ui.Fail(opt.Err, err.Error())
		return 2
	}
	session := auth.NewSession(client, opt.Log)
	r := &runner{
		opt:     opt,
		in:      bufio.NewReader(opt.In),
		client:  client,
		session: session,
		todos:   todo.NewService(client, session, opt.Log),
	}

	cmd, a := "ui", []string(nil)
	if len(args) > 0 {
		cmd, a = args[0], args[1:]
	}

	switch cmd {
	case "help", "-h", "--help":
		PrintHelp(opt.Out)
		return 0

	case "ui":
		start := tui.RouteHome
		if len(a) > 0 {
			start = a[0]
		}
		return r.doUI(start)

	case "hello":
		return r.doHello(ctx)

	case "signup":
		if len(a) != 1 {
			return r.usage("usage: taskmate signup <username>")
		}
		return r.doSignup(ctx, a[0])

	case "whoami":
		return r.doWhoAmI(ctx)

	case "ls":
		return r.doList(ctx)

	case "add":
		if len(a) == 0 {
			return r.usage("usage: taskmate add <text...>")
		}
		return r.doAdd(ctx, strings.Join(a, " "))

	case "done":
		if len(a) != 1 {
			return r.usage("usage: taskmate done <id>")
		}
		id, ok := r.parseID("done", a[0])
		if !ok {
			return 2
		}
		return r.doToggle(ctx, id)

	case "edit":
		if len(a) < 2 {
			return r.usage("usage: taskmate edit <id> <text...>")
		}
		id, ok := r.parseID("edit", a[0])
		if !ok {
			return 2
		}
		return r.doEdit(ctx, id, strings.Join(a[1:], " "))

	case "rm":
		if len(a) != 1 {
			return r.usage("usage: taskmate rm <id>")
		}
		id, ok := r.parseID("rm", a[0])
		if !ok {
			return 2
		}
		return r.doRemove(ctx, id)
	}

	ui.Fail(opt.Err, "unknown subcommand: "+cmd)
	fmt.Fprintln(opt.Err)
	PrintHelp(opt.Err)
	return 2
}

func PrintHelp(w io.Writer) {
	fmt.Fprint(w, `taskmate - todo lists from your terminal

Usage:
  taskmate [flags] <subcommand> [args]

Subcommands:
  ui [route]              Interactive app (default). Routes: / /signup /login /welcome /todos
  signup <username>       Create an account
  whoami                  Log in and show what the token says about you
  hello                   Log in and print the server greeting
  ls                      List todos grouped by day
  add <text...>           Add a todo (text can be multiple words)
  done <id>               Toggle completion of a todo
  edit <id> <text...>     Replace the text of a todo
  rm <id>                 Delete a todo

Flags:
  --config <file>   YAML config (default ~/.taskmate/config.yaml)
  --server <url>    Server base URL (TASKMATE_SERVER)
  --user <name>     Username for one-shot commands (TASKMATE_USERNAME)
  --theme <name>    classic | neon | mono (TASKMATE_THEME)

The password is read from TASKMATE_PASSWORD or prompted for.

Examples:
  taskmate signup gulshan
  taskmate --user gulshan add "Learn Kafka"
  taskmate --user gulshan ls
  taskmate ui /todos
`)
}

func (r *runner) now() time.Time { return r.opt.Now() }

func (r *runner) usage(msg string) int {
	ui.Fail(r.opt.Err, msg)
	return 2
}

func (r *runner) parseID(cmd, s string) (int64, bool) {
	id, err := strconv.ParseInt(s, 10, 64)
	if err != nil || id <= 0 {
		ui.Fail(r.opt.Err, cmd+": not a todo id: "+s)
		return 0, false
	}
	return id, true
}

// ---------------------------------------------------
// Subcommands without a login
// ---------------------------------------------------

func (r *runner) doUI(start string) int {
	deps := tui.Deps{
		Session:   r.session,
		Todos:     r.todos,
		Greeter:   r.client,
		Timeout:   r.opt.Config.Timeout,
		NoticeTTL: r.opt.Config.NoticeTTL,
		Log:       r.opt.Log,
	}
	if err := r.opt.UI(deps, start); err != nil {
		ui.Fail(r.opt.Err, "tui: "+err.Error())
		return 1
	}
	return 0
}

func (r *runner) doSignup(ctx context.Context, username string) int {
	password, err := r.password()
	if err != nil {
		ui.Fail(r.opt.Err, err.Error())
		return 1
	}
	if password == "" {
		return r.usage("signup: empty password")
	}
	if !r.session.Signup(ctx, username, password) {
		ui.Fail(r.opt.Err, "Signup failed. Please try again.")
		return 1
	}
	ui.OK(r.opt.Out, "account created, you can now log in as "+username)
	return 0
}

// ---------------------------------------------------
// Authenticated subcommands
// ---------------------------------------------------

// login starts the per-process session every todo command needs.
func (r *runner) login(ctx context.Context) int {
	user, err := r.username()
	if err != nil {
		ui.Fail(r.opt.Err, err.Error())
		return 1
	}
	password, err := r.password()
	if err != nil {
		ui.Fail(r.opt.Err, err.Error())
		return 1
	}
	if user == "" || password == "" {
		return r.usage("login: username and password are required")
	}
	if !r.session.Login(ctx, user, password) {
		ui.Fail(r.opt.Err, "login failed")
		return 1
	}
	return 0
}

func (r *runner) doHello(ctx context.Context) int {
	if code := r.login(ctx); code != 0 {
		return code
	}
	text, err := r.client.GetText(ctx, "/", r.session.Authorization())
	if err != nil {
		ui.Fail(r.opt.Err, "hello: "+err.Error())
		return 1
	}
	fmt.Fprintln(r.opt.Out, text)
	return 0
}

func (r *runner) doWhoAmI(ctx context.Context) int {
	if code := r.login(ctx); code != 0 {
		return code
	}
	fmt.Fprintf(r.opt.Out, "user: %s\n", r.session.Username())
	c, err := r.session.Claims()
	if errors.Is(err, auth.ErrOpaqueToken) {
		fmt.Fprintln(r.opt.Out, "Opaque token (cannot introspect locally).")
		return 0
	}
	if err != nil {
		ui.Fail(r.opt.Err, "whoami: "+err.Error())
		return 1
	}
	fmt.Fprintf(r.opt.Out, "subject: %s\n", c.Subject)
	if c.IssuedAt != nil {
		fmt.Fprintf(r.opt.Out, "issued:  %s\n", c.IssuedAt.UTC().Format(time.RFC3339))
	}
	if c.ExpiresAt != nil {
		fmt.Fprintf(r.opt.Out, "expires: %s\n", c.ExpiresAt.UTC().Format(time.RFC3339))
	} else {
		fmt.Fprintln(r.opt.Out, "expires: (unknown)")
	}
	if c.Expired(r.now()) {
		fmt.Fprintln(r.opt.Out, "status:  expired")
	} else {
		fmt.Fprintln(r.opt.Out, "status:  valid")
	}
	return 0
}

func (r *runner) doList(ctx context.Context) int {
	if code := r.login(ctx); code != 0 {
		return code
	}
	todos, err := r.todos.List(ctx)
	if err != nil {
		ui.Fail(r.opt.Err, "ls: "+err.Error())
		return 1
	}
	fmt.Fprintln(r.opt.Out, renderList(todos))
	return 0
}

func renderList(todos []model.Todo) string {
	t := ui.Current()
	done, pending := model.Stats(todos)
	lines := []string{
		fmt.Sprintf("%s   %s %d  %s %d  %s %d",
			t.Title.Render("Todos"),
			t.Success.Render(t.SymOK), done,
			t.Pending.Render("•"), pending,
			t.Accent.Render("Total"), len(todos)),
		ui.ProgressBar(done, len(todos), 28),
	}
	if len(todos) == 0 {
		lines = append(lines, "", t.Muted.Render("No todos yet. Add one with `taskmate add <text>`."))
	}
	for _, g := range model.GroupByDate(todos) {
		lines = append(lines, "", t.Accent.Render(g.Date))
		for _, td := range g.Todos {
			text := td.Text
			if td.IsCompleted {
				text = t.Done.Render(text)
			}
			lines = append(lines, fmt.Sprintf("%s %s %s", t.Muted.Render(fmt.Sprintf("#%-4d", td.ID)), ui.Box(td.IsCompleted), text))
		}
	}
	return ui.Panel(lines)
}

func (r *runner) doAdd(ctx context.Context, text string) int {
	text = strings.TrimSpace(text)
	if text == "" {
		return r.usage("add: Please enter a todo item.")
	}
	if code := r.login(ctx); code != 0 {
		return code
	}
	created, err := r.todos.Add(ctx, model.NewTodo{Text: text})
	if err != nil {
		ui.Fail(r.opt.Err, "Failed to add todo!")
		return 1
	}
	ui.OK(r.opt.Out, fmt.Sprintf("added #%d", created.ID))
	return 0
}

// find fetches the list and looks up id, printing a hint when it is absent.
func (r *runner) find(ctx context.Context, id int64) (model.Todo, int) {
	todos, err := r.todos.List(ctx)
	if err != nil {
		ui.Fail(r.opt.Err, "load: "+err.Error())
		return model.Todo{}, 1
	}
	t, ok := model.Find(todos, id)
	if !ok {
		ui.Fail(r.opt.Err, fmt.Sprintf("no todo with id %d", id))
		fmt.Fprintln(r.opt.Err, ui.Current().Muted.Render("Hint: run `taskmate ls` to see valid ids"))
		return model.Todo{}, 2
	}
	return t, 0
}

func (r *runner) doToggle(ctx context.Context, id int64) int {
	if code := r.login(ctx); code != 0 {
		return code
	}
	t, code := r.find(ctx, id)
	if code != 0 {
		return code
	}
	updated, err := r.todos.Update(ctx, id, model.CompletionPatch(!t.IsCompleted))
	if err != nil {
		ui.Fail(r.opt.Err, "Failed to update todo: "+err.Error())
		return 1
	}
	if updated.IsCompleted {
		ui.OK(r.opt.Out, fmt.Sprintf("#%d done", id))
	} else {
		ui.OK(r.opt.Out, fmt.Sprintf("#%d pending", id))
	}
	return 0
}

func (r *runner) doEdit(ctx context.Context, id int64, text string) int {
	text = strings.TrimSpace(text)
	if text == "" {
		return r.usage("edit: Please enter a todo item.")
	}
	if code := r.login(ctx); code != 0 {
		return code
	}
	if _, err := r.todos.Update(ctx, id, model.TextPatch(text)); err != nil {
		if api.IsStatus(err, http.StatusNotFound) {
			ui.Fail(r.opt.Err, fmt.Sprintf("no todo with id %d", id))
			return 2
		}
		ui.Fail(r.opt.Err, "Failed to update todo: "+err.Error())
		return 1
	}
	ui.OK(r.opt.Out, fmt.Sprintf("#%d updated", id))
	return 0
}

func (r *runner) doRemove(ctx context.Context, id int64) int {
	if code := r.login(ctx); code != 0 {
		return code
	}
	if err := r.todos.Delete(ctx, id); err != nil {
		if api.IsStatus(err, http.StatusNotFound) {
			ui.Fail(r.opt.Err, fmt.Sprintf("no todo with id %d", id))
			return 2
		}
		ui.Fail(r.opt.Err, "Failed to delete todo: "+err.Error())
		return 1
	}
	ui.OK(r.opt.Out, fmt.Sprintf("removed #%d", id))
	return 0
}
