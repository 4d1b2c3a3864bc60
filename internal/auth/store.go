// Package auth persists the signed-in user between command invocations.
package auth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/gofrs/flock"

	"github.com/onemorerev/client/pkg/core"
)

// FileName is the name of the auth file inside the config directory.
const FileName = "auth.json"

const (
	lockTimeout   = 3 * time.Second
	retryInterval = 100 * time.Millisecond
)

// ErrNotAuthenticated is returned by RequireUser when no session is stored.
var ErrNotAuthenticated = errors.New("not authenticated")

// SessionClient is the part of the API client the store drives.
type SessionClient interface {
	Login(ctx context.Context, email, password string) (core.User, error)
	Logout(ctx context.Context) error
	Profile(ctx context.Context) (core.User, error)
	Cookies() []*http.Cookie
	SetCookies(cookies []*http.Cookie)
}

// Cookie is the persisted form of a session cookie.
type Cookie struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

// State is the content of the auth file.
type State struct {
	User          *core.User `json:"user,omitempty"`
	Authenticated bool       `json:"authenticated"`
	Cookies       []Cookie   `json:"cookies,omitempty"`
	UpdatedAt     time.Time  `json:"updatedAt"`
}

// Store reads and writes State under a cross-process file lock.
type Store struct {
	path string
	lock *flock.Flock
	mu   sync.Mutex
	now  func() time.Time
}

// NewStore creates a store backed by dir/auth.json.
func NewStore(dir string) *Store {
	path := filepath.Join(dir, FileName)
	return &Store{
		path: path,
		lock: flock.New(path + ".lock"),
		now:  time.Now,
	}
}

// Path returns the auth file location.
func (s *Store) Path() string {
	return s.path
}

// Load returns the stored state. A missing file is an unauthenticated state.
func (s *Store) Load(ctx context.Context) (State, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	unlock, err := s.acquire(ctx)
	if err != nil {
		return State{}, err
	}
	defer unlock()

	return s.read()
}

// Save replaces the stored state.
func (s *Store) Save(ctx context.Context, st State) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	unlock, err := s.acquire(ctx)
	if err != nil {
		return err
	}
	defer unlock()

	return s.write(st)
}

// Restore loads the stored session cookies into client and returns the state.
func (s *Store) Restore(ctx context.Context, client SessionClient) (State, error) {
	st, err := s.Load(ctx)
	if err != nil {
		return State{}, err
	}
	client.SetCookies(toHTTPCookies(st.Cookies))
	return st, nil
}

// RequireUser returns the stored user or ErrNotAuthenticated.
func (s *Store) RequireUser(ctx context.Context) (core.User, error) {
	st, err := s.Load(ctx)
	if err != nil {
		return core.User{}, err
	}
	if !st.Authenticated || st.User == nil {
		return core.User{}, ErrNotAuthenticated
	}
	return *st.User, nil
}

// Login signs in and persists the authenticated state with the session cookies.
// On failure the stored state is left unchanged.
func (s *Store) Login(ctx context.Context, client SessionClient, email, password string) (State, error) {
	user, err := client.Login(ctx, email, password)
	if err != nil {
		return State{}, err
	}
	st := State{
		User:          &user,
		Authenticated: true,
		Cookies:       fromHTTPCookies(client.Cookies()),
		UpdatedAt:     s.now(),
	}
	return st, s.Save(ctx, st)
}

// Refresh re-validates the session against the profile endpoint. Any failure
// is treated as an expired session and stored as unauthenticated.
func (s *Store) Refresh(ctx context.Context, client SessionClient) (State, error) {
	user, err := client.Profile(ctx)
	if err != nil {
		st := State{UpdatedAt: s.now()}
		if saveErr := s.Save(ctx, st); saveErr != nil {
			return st, errors.Join(err, saveErr)
		}
		return st, err
	}
	st := State{
		User:          &user,
		Authenticated: true,
		Cookies:       fromHTTPCookies(client.Cookies()),
		UpdatedAt:     s.now(),
	}
	return st, s.Save(ctx, st)
}

// Logout ends the session. The local state becomes unauthenticated even when
// the backend call fails; that error is still returned.
func (s *Store) Logout(ctx context.Context, client SessionClient) error {
	callErr := client.Logout(ctx)
	saveErr := s.Save(ctx, State{UpdatedAt: s.now()})
	return errors.Join(callErr, saveErr)
}

func (s *Store) acquire(ctx context.Context) (func(), error) {
	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return nil, fmt.Errorf("failed to create auth directory: %w", err)
	}

	lockCtx, cancel := context.WithTimeout(ctx, lockTimeout)
	defer cancel()

	locked, err := s.lock.TryLockContext(lockCtx, retryInterval)
	if err != nil {
		return nil, fmt.Errorf("failed to acquire lock: %w", err)
	}
	if !locked {
		return nil, fmt.Errorf("could not acquire auth file lock")
	}
	return func() { _ = s.lock.Unlock() }, nil
}

func (s *Store) read() (State, error) {
	data, err := os.ReadFile(s.path)
	if errors.Is(err, os.ErrNotExist) {
		return State{}, nil
	}
	if err != nil {
		return State{}, fmt.Errorf("failed to read auth file: %w", err)
	}
	if len(data) == 0 {
		return State{}, nil
	}

	var st State
	if err := json.Unmarshal(data, &st); err != nil {
		return State{}, fmt.Errorf("failed to parse auth file: %w", err)
	}
	return st, nil
}

func (s *Store) write(st State) error {
	data, err := json.MarshalIndent(st, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode auth state: %w", err)
	}

	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o600); err != nil {
		return fmt.Errorf("failed to write auth file: %w", err)
	}
	if err := os.Rename(tmp, s.path); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("failed to replace auth file: %w", err)
	}
	return nil
}

func fromHTTPCookies(cookies []*http.Cookie) []Cookie {
	out := make([]Cookie, 0, len(cookies))
	for _, c := range cookies {
		out = append(out, Cookie{Name: c.Name, Value: c.Value})
	}
	return out
}

func toHTTPCookies(cookies []Cookie) []*http.Cookie {
	out := make([]*http.Cookie, 0, len(cookies))
	for _, c := range cookies {
		out = append(out, &http.Cookie{Name: c.Name, Value: c.Value, Path: "/"})
	}
	return out
}
