package todo

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"

	"github.com/Makepad-fr/taskmate/internal/api"
	"github.com/Makepad-fr/taskmate/internal/logging"
	"github.com/Makepad-fr/taskmate/internal/model"
)

// ErrNoSession is returned, without any I/O, when no user is logged in.
var ErrNoSession = errors.New("todo: no logged-in user")

// Session is the part of auth.Session the service reads.
type Session interface {
	Username() string
	Authorization() string
}

// Service reads and writes the logged-in user's todos.
type Service struct {
	client  *api.Client
	session Session
	log     *slog.Logger
}

func NewService(client *api.Client, session Session, log *slog.Logger) *Service {
	return &Service{client: client, session: session, log: logging.OrDiscard(log)}
}

// List returns every todo of the current user in server order.
func (s *Service) List(ctx context.Context) ([]model.Todo, error) {
	var out []model.Todo
	if err := s.do(ctx, "list", http.MethodGet, "", nil, &out); err != nil {
		return nil, err
	}
	if out == nil {
		out = []model.Todo{}
	}
	return out, nil
}

// Add creates a todo; the server assigns id and createdAt.
func (s *Service) Add(ctx context.Context, in model.NewTodo) (model.Todo, error) {
	var out model.Todo
	if err := s.do(ctx, "add", http.MethodPost, "", in, &out); err != nil {
		return model.Todo{}, err
	}
	return out, nil
}

// Update applies a partial update.
func (s *Service) Update(ctx context.Context, id int64, p model.TodoPatch) (model.Todo, error) {
	var out model.Todo
	if err := s.do(ctx, "update", http.MethodPut, itemPath(id), p, &out); err != nil {
		return model.Todo{}, err
	}
	return out, nil
}

func (s *Service) Delete(ctx context.Context, id int64) error {
	return s.do(ctx, "delete", http.MethodDelete, itemPath(id), nil, nil)
}

func itemPath(id int64) string {
	return "/" + strconv.FormatInt(id, 10)
}

func (s *Service) do(ctx context.Context, op, method, suffix string, body, out any) error {
	user := s.session.Username()
	if user == "" {
		return ErrNoSession
	}
	err := s.client.Do(ctx, api.Request{
		Method:        method,
		Path:          "/api/users/" + url.PathEscape(user) + "/todos" + suffix,
		Authorization: s.session.Authorization(),
		Body:          body,
	}, out)
	if err != nil {
		s.log.Error("todo request failed", "op", op, "user", user, "err", err)
		return fmt.Errorf("todo: %s: %w", op, err)
	}
	return nil
}
