// Package apitest runs an in-memory stand-in for the TaskMate REST server so
// client code can be tested end to end over real HTTP.
package apitest

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/gorilla/mux"
	"golang.org/x/crypto/bcrypt"

	"github.com/Makepad-fr/taskmate/internal/model"
)

// Greeting is served on GET / to holders of a valid token.
const Greeting = "Hello from the TaskMate server"

var secret = []byte("apitest-secret")

// Recorded is one request as the server saw it.
type Recorded struct {
	Method        string
	Path          string
	Authorization string
	Body          string
}

type failure struct {
	method, path string
	status       int
}

// Server is a fake TaskMate API. Zero value is not usable; call New.
type Server struct {
	*httptest.Server

	mu       sync.Mutex
	users    map[string][]byte // username -> bcrypt hash
	todos    map[string][]model.Todo
	nextID   int64
	requests []Recorded
	failures []failure

	// Now stamps createdAt on new todos.
	Now func() time.Time
}

// New starts a server. Close it with Close.
func New() *Server {
	s := &Server{
		users:  make(map[string][]byte),
		todos:  make(map[string][]model.Todo),
		nextID: 1,
		Now:    time.Now,
	}

	r := mux.NewRouter()
	r.Handle("/", s.requireBearer(s.greet)).Methods(http.MethodGet)
	r.HandleFunc("/api/auth/signup", s.signup).Methods(http.MethodPost)
	r.HandleFunc("/authenticate", s.authenticate).Methods(http.MethodPost)

	const todos = "/api/users/{username}/todos"
	r.Handle(todos, s.requireToken(s.listTodos)).Methods(http.MethodGet)
	r.Handle(todos, s.requireToken(s.createTodo)).Methods(http.MethodPost)
	r.Handle(todos+"/{id:[0-9]+}", s.requireToken(s.updateTodo)).Methods(http.MethodPut)
	r.Handle(todos+"/{id:[0-9]+}", s.requireToken(s.deleteTodo)).Methods(http.MethodDelete)

	s.Server = httptest.NewServer(s.record(r))
	return s
}

// AddUser registers an account directly.
func (s *Server) AddUser(username, password string) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	if err != nil {
		panic(fmt.Sprintf("apitest: hash password: %v", err))
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.users[username] = hash
}

// Seed stores todos for username as-is, keeping their ids and timestamps.
func (s *Server) Seed(username string, todos ...model.Todo) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, t := range todos {
		if t.ID >= s.nextID {
			s.nextID = t.ID + 1
		}
		s.todos[username] = append(s.todos[username], t)
	}
}

// Todos returns a copy of username's stored todos.
func (s *Server) Todos(username string) []model.Todo {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]model.Todo(nil), s.todos[username]...)
}

// FailOn makes every request matching method and exact path answer status.
func (s *Server) FailOn(method, path string, status int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failures = append(s.failures, failure{method: method, path: path, status: status})
}

// ClearFailures drops all FailOn rules.
func (s *Server) ClearFailures() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failures = nil
}

// Requests returns every request received so far.
func (s *Server) Requests() []Recorded {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Recorded(nil), s.requests...)
}

// Count returns how many requests matched method and path.
func (s *Server) Count(method, path string) int {
	n := 0
	for _, r := range s.Requests() {
		if r.Method == method && r.Path == path {
			n++
		}
	}
	return n
}

// Reset forgets recorded requests.
func (s *Server) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.requests = nil
}

// Token issues a valid token for username, as /authenticate would.
func Token(username string, ttl time.Duration) string {
	now := time.Now()
	tok := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Subject:   username,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
	})
	signed, err := tok.SignedString(secret)
	if err != nil {
		panic(fmt.Sprintf("apitest: sign token: %v", err))
	}
	return signed
}

func (s *Server) record(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		r.Body = io.NopCloser(strings.NewReader(string(body)))

		s.mu.Lock()
		s.requests = append(s.requests, Recorded{
			Method:        r.Method,
			Path:          r.URL.Path,
			Authorization: r.Header.Get("Authorization"),
			Body:          string(body),
		})
		status := 0
		for _, f := range s.failures {
			if f.method == r.Method && f.path == r.URL.Path {
				status = f.status
				break
			}
		}
		s.mu.Unlock()

		if status != 0 {
			http.Error(w, "injected failure", status)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

type credentials struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

func (s *Server) greet(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain")
	_, _ = io.WriteString(w, Greeting)
}

func (s *Server) signup(w http.ResponseWriter, r *http.Request) {
	var c credentials
	if err := json.NewDecoder(r.Body).Decode(&c); err != nil || c.Username == "" || c.Password == "" {
		http.Error(w, "username and password required", http.StatusBadRequest)
		return
	}
	s.mu.Lock()
	_, exists := s.users[c.Username]
	s.mu.Unlock()
	if exists {
		http.Error(w, "username taken", http.StatusConflict)
		return
	}
	s.AddUser(c.Username, c.Password)
	w.WriteHeader(http.StatusCreated)
}

func (s *Server) authenticate(w http.ResponseWriter, r *http.Request) {
	var c credentials
	if err := json.NewDecoder(r.Body).Decode(&c); err != nil {
		http.Error(w, "bad request", http.StatusBadRequest)
		return
	}
	s.mu.Lock()
	hash, ok := s.users[c.Username]
	s.mu.Unlock()
	if !ok || bcrypt.CompareHashAndPassword(hash, []byte(c.Password)) != nil {
		http.Error(w, "invalid credentials", http.StatusUnauthorized)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"token": Token(c.Username, time.Hour)})
}

// requireBearer admits requests carrying a valid token for any user.
func (s *Server) requireBearer(next http.HandlerFunc) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, ok := bearerSubject(w, r); ok {
			next(w, r)
		}
	})
}

// requireToken additionally requires the token subject to own the path.
func (s *Server) requireToken(next http.HandlerFunc) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		sub, ok := bearerSubject(w, r)
		if !ok {
			return
		}
		if sub != mux.Vars(r)["username"] {
			http.Error(w, "forbidden", http.StatusForbidden)
			return
		}
		next(w, r)
	})
}

// bearerSubject answers 401 itself when the token is missing or invalid.
func bearerSubject(w http.ResponseWriter, r *http.Request) (string, bool) {
	raw, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
	if !ok {
		http.Error(w, "missing bearer token", http.StatusUnauthorized)
		return "", false
	}
	claims := &jwt.RegisteredClaims{}
	_, err := jwt.ParseWithClaims(raw, claims, func(*jwt.Token) (any, error) {
		return secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		http.Error(w, "invalid token", http.StatusUnauthorized)
		return "", false
	}
	return claims.Subject, true
}

func (s *Server) listTodos(w http.ResponseWriter, r *http.Request) {
	user := mux.Vars(r)["username"]
	todos := s.Todos(user)
	sort.SliceStable(todos, func(i, j int) bool { return todos[i].CreatedAt.Before(todos[j].CreatedAt) })
	if todos == nil {
		todos = []model.Todo{}
	}
	writeJSON(w, http.StatusOK, todos)
}

func (s *Server) createTodo(w http.ResponseWriter, r *http.Request) {
	var in model.NewTodo
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil || strings.TrimSpace(in.Text) == "" {
		http.Error(w, "text required", http.StatusBadRequest)
		return
	}
	user := mux.Vars(r)["username"]

	s.mu.Lock()
	t := model.Todo{ID: s.nextID, Text: in.Text, IsCompleted: in.IsCompleted, CreatedAt: s.Now().UTC()}
	s.nextID++
	s.todos[user] = append(s.todos[user], t)
	s.mu.Unlock()

	writeJSON(w, http.StatusCreated, t)
}

func (s *Server) updateTodo(w http.ResponseWriter, r *http.Request) {
	var p model.TodoPatch
	if err := json.NewDecoder(r.Body).Decode(&p); err != nil {
		http.Error(w, "bad request", http.StatusBadRequest)
		return
	}
	user, id := vars(r)

	s.mu.Lock()
	defer s.mu.Unlock()
	for i, t := range s.todos[user] {
		if t.ID != id {
			continue
		}
		if p.Text != nil {
			t.Text = *p.Text
		}
		if p.IsCompleted != nil {
			t.IsCompleted = *p.IsCompleted
		}
		s.todos[user][i] = t
		writeJSON(w, http.StatusOK, t)
		return
	}
	http.Error(w, "not found", http.StatusNotFound)
}

func (s *Server) deleteTodo(w http.ResponseWriter, r *http.Request) {
	user, id := vars(r)

	s.mu.Lock()
	defer s.mu.Unlock()
	list := s.todos[user]
	for i, t := range list {
		if t.ID == id {
			s.todos[user] = append(list[:i:i], list[i+1:]...)
			w.WriteHeader(http.StatusNoContent)
			return
		}
	}
	http.Error(w, "not found", http.StatusNotFound)
}

func vars(r *http.Request) (string, int64) {
	v := mux.Vars(r)
	id, _ := strconv.ParseInt(v["id"], 10, 64)
	return v["username"], id
}
