package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/booknook/bookfeed/internal/api"
	"github.com/booknook/bookfeed/internal/models"
	"github.com/booknook/bookfeed/internal/storage"
)

// Keys used in device storage
const (
	TokenKey = "token"
	UserKey  = "user"
)

var (
	// ErrLoginFailed is the generic login failure; the response body is not inspected.
	ErrLoginFailed = errors.New("login failed")
	// ErrMissingCredentials is returned before any request when a required field is empty.
	ErrMissingCredentials = errors.New("please fill in all fields")
	// ErrNoUser is returned when the backend accepted the request but sent no user.
	ErrNoUser = errors.New("response did not include a user")
)

// State is an immutable snapshot of the session
type State struct {
	Token string
	User  *models.User
}

// SignedIn reports whether a user is present
func (s State) SignedIn() bool {
	return s.User != nil
}

// Store holds the current user and token and persists them to device storage
type Store struct {
	client *api.Client
	kv     storage.KV

	mu    sync.RWMutex
	state State
}

// NewStore creates an empty session store. Call Restore to load a persisted session.
func NewStore(client *api.Client, kv storage.KV) *Store {
	return &Store{client: client, kv: kv}
}

// State returns the current session
func (s *Store) State() State {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state
}

// Restore reads the persisted token and user. A missing entry is not an error.
func (s *Store) Restore() error {
	token, _, err := s.kv.Get(TokenKey)
	if err != nil {
		return fmt.Errorf("failed to read token: %w", err)
	}
	raw, ok, err := s.kv.Get(UserKey)
	if err != nil {
		return fmt.Errorf("failed to read user: %w", err)
	}

	var user *models.User
	if ok && raw != "" {
		user = &models.User{}
		if err := json.Unmarshal([]byte(raw), user); err != nil {
			return fmt.Errorf("failed to decode stored user: %w", err)
		}
	}

	s.set(State{Token: token, User: user})
	if user != nil {
		slog.Debug("Session restored", "user_id", user.ID)
	}
	return nil
}

// Login authenticates with email and password. On success the session is
// kept in memory and persisted. On any backend failure it returns
// ErrLoginFailed and leaves the session unchanged.
func (s *Store) Login(ctx context.Context, email, password string) (*models.User, error) {
	email = strings.TrimSpace(email)
	if email == "" || password == "" {
		return nil, ErrMissingCredentials
	}

	resp, err := s.client.Login(ctx, api.LoginRequest{Email: email, Password: password})
	if err != nil {
		slog.Debug("Login request failed", "err", err)
		return nil, ErrLoginFailed
	}
	if resp.User == nil {
		return nil, ErrLoginFailed
	}

	if err := s.persist(resp.AccessToken, resp.User); err != nil {
		return nil, err
	}
	s.set(State{Token: resp.AccessToken, User: resp.User})
	return resp.User, nil
}

// Register creates an account and signs it in. Failures carry the underlying error message.
func (s *Store) Register(ctx context.Context, name, email, password string) (*models.User, error) {
	name = strings.TrimSpace(name)
	email = strings.TrimSpace(email)
	if name == "" || email == "" || password == "" {
		return nil, ErrMissingCredentials
	}

	resp, err := s.client.Register(ctx, api.RegisterRequest{Name: name, Email: email, Password: password})
	if err != nil {
		return nil, err
	}
	if resp.User == nil {
		return nil, ErrNoUser
	}

	if err := s.persist(resp.AccessToken, resp.User); err != nil {
		return nil, err
	}
	s.set(State{Token: resp.AccessToken, User: resp.User})
	return resp.User, nil
}

// Logout ends the session on the backend. Local state is cleared only after
// the backend confirms; on failure it is left intact.
func (s *Store) Logout(ctx context.Context) error {
	if err := s.client.Logout(ctx, s.State().Token); err != nil {
		return err
	}

	if err := s.kv.Delete(TokenKey); err != nil {
		return fmt.Errorf("failed to remove token: %w", err)
	}
	if err := s.kv.Delete(UserKey); err != nil {
		return fmt.Errorf("failed to remove user: %w", err)
	}
	s.set(State{})
	return nil
}

func (s *Store) persist(token string, user *models.User) error {
	data, err := json.Marshal(user)
	if err != nil {
		return fmt.Errorf("failed to encode user: %w", err)
	}
	if err := s.kv.Set(TokenKey, token); err != nil {
		return fmt.Errorf("failed to store token: %w", err)
	}
	if err := s.kv.Set(UserKey, string(data)); err != nil {
		return fmt.Errorf("failed to store user: %w", err)
	}
	return nil
}

func (s *Store) set(state State) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state = state
}
