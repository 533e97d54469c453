package auth

import (
	"context"
	"log/slog"
	"net/http"
	"strings"
	"sync"

	"github.com/Makepad-fr/taskmate/internal/api"
	"github.com/Makepad-fr/taskmate/internal/logging"
)

const (
	signupPath       = "/api/auth/signup"
	authenticatePath = "/authenticate"
)

// State is a snapshot of the session. Empty strings mean "not set".
type State struct {
	IsAuthenticated bool
	Username        string
	Token           string // formatted, e.g. "Bearer eyJ..."
}

// Session is the in-memory login state for one process. Only its own
// methods change it; everything else reads through the accessors.
type Session struct {
	client *api.Client
	log    *slog.Logger

	mu    sync.RWMutex
	state State
}

// NewSession returns an empty (logged out) session.
func NewSession(client *api.Client, log *slog.Logger) *Session {
	return &Session{client: client, log: logging.OrDiscard(log)}
}

type credentials struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type tokenResponse struct {
	Token string `json:"token"`
}

// Signup registers an account. It never touches the session: signing up
// does not log in.
func (s *Session) Signup(ctx context.Context, username, password string) bool {
	err := s.client.Do(ctx, api.Request{
		Method: http.MethodPost,
		Path:   signupPath,
		Body:   credentials{Username: username, Password: password},
	}, nil)
	if err != nil {
		s.log.Warn("signup failed", "user", username, "err", err)
		return false
	}
	s.log.Info("signup ok", "user", username)
	return true
}

// Login exchanges credentials for a token. On any failure the session is
// reset and false is returned.
func (s *Session) Login(ctx context.Context, username, password string) bool {
	var out tokenResponse
	err := s.client.Do(ctx, api.Request{
		Method: http.MethodPost,
		Path:   authenticatePath,
		Body:   credentials{Username: username, Password: password},
	}, &out)
	token := stripBearer(strings.TrimSpace(out.Token))
	if err == nil && token == "" {
		s.log.Warn("login failed: empty token", "user", username)
		s.Logout()
		return false
	}
	if err != nil {
		s.log.Warn("login failed", "user", username, "err", err)
		s.Logout()
		return false
	}

	s.mu.Lock()
	s.state = State{IsAuthenticated: true, Username: username, Token: "Bearer " + token}
	s.mu.Unlock()
	s.log.Info("login ok", "user", username)
	return true
}

// Logout clears the session. Calling it again is a no-op.
func (s *Session) Logout() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state = State{}
}

func (s *Session) State() State {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state
}

func (s *Session) IsAuthenticated() bool { return s.State().IsAuthenticated }

func (s *Session) Username() string { return s.State().Username }

// Authorization is the header value to attach to authenticated calls, or ""
// when logged out.
func (s *Session) Authorization() string { return s.State().Token }

func stripBearer(s string) string {
	if strings.HasPrefix(strings.ToLower(s), "bearer ") {
		return strings.TrimSpace(s[7:])
	}
	return s
}
