// ABOUTME: Session Store: login, registration, identity refresh and logout
// ABOUTME: Owns the auth state machine and its persisted snapshot

package auth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"unicode"
	"unicode/utf8"

	"golang.org/x/sync/singleflight"

	"github.com/invayl/tutor-cli/internal/client"
	"github.com/invayl/tutor-cli/internal/storage"
)

// StorageKey is the durable key holding the auth snapshot
const StorageKey = "auth"

// Status is the state of the last login attempt
type Status string

const (
	StatusIdle      Status = "idle"
	StatusLoading   Status = "loading"
	StatusSucceeded Status = "succeeded"
	StatusFailed    Status = "failed"
)

// User is the identity of the logged-in account
type User struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Email    string `json:"email"`
	Username string `json:"username"`
	Role     string `json:"role"`
}

// Session is the in-memory auth state. A nil User or empty Token means absent.
type Session struct {
	Token     string
	TokenType string
	User      *User
	Status    Status
	Error     string
}

// LoggedIn reports whether a token is held
func (s Session) LoggedIn() bool {
	return s.Token != ""
}

// Snapshot is the persisted subset of Session
type Snapshot struct {
	User      *User  `json:"user"`
	Token     string `json:"token"`
	TokenType string `json:"tokenType"`
}

// API is the subset of the backend client the Session Store needs
type API interface {
	Login(ctx context.Context, email, password string) (*client.LoginResponse, error)
	Register(ctx context.Context, input *client.RegisterRequest) error
	Me(ctx context.Context) (*client.UserResponse, error)
	SetAuthHeader(token, tokenType string)
	ClearAuthHeader()
}

// Store is the Session Store. It is safe for concurrent use.
type Store struct {
	api     API
	storage storage.Store

	mu    sync.RWMutex
	state Session

	sf singleflight.Group
}

// NewStore creates a Session Store in the logged-out state
func NewStore(api API, st storage.Store) *Store {
	return &Store{
		api:     api,
		storage: st,
		state:   Session{TokenType: client.DefaultTokenType, Status: StatusIdle},
	}
}

// State returns a copy of the current session
func (s *Store) State() Session {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := s.state
	if out.User != nil {
		u := *out.User
		out.User = &u
	}
	return out
}

// NormalizeTokenType upper-cases the first character ("bearer" -> "Bearer").
func NormalizeTokenType(tokenType string) string {
	if tokenType == "" {
		return client.DefaultTokenType
	}
	r, size := utf8.DecodeRuneInString(tokenType)
	return string(unicode.ToUpper(r)) + tokenType[size:]
}

// Login authenticates and, on success, attaches and persists the token.
// A failed login leaves any existing user and token in place.
func (s *Store) Login(ctx context.Context, email, password string) error {
	s.mu.Lock()
	s.state.Status = StatusLoading
	s.state.Error = ""
	s.mu.Unlock()

	resp, err := s.api.Login(ctx, email, password)
	if err != nil {
		msg := client.ErrorMessage(err, "Login failed")
		s.mu.Lock()
		s.state.Status = StatusFailed
		s.state.Error = msg
		s.mu.Unlock()
		slog.Info("Login failed", "email", email, "error", msg)
		return err
	}

	user := &User{
		ID:       string(resp.ID),
		Name:     resp.Name,
		Email:    resp.Email,
		Username: resp.Username,
		Role:     resp.Role,
	}
	tokenType := NormalizeTokenType(resp.TokenType)

	s.mu.Lock()
	s.state = Session{
		Token:     resp.AccessToken,
		TokenType: tokenType,
		User:      user,
		Status:    StatusSucceeded,
	}
	s.mu.Unlock()

	s.api.SetAuthHeader(resp.AccessToken, tokenType)
	if err := s.persist(Snapshot{User: user, Token: resp.AccessToken, TokenType: tokenType}); err != nil {
		slog.Warn("Failed to persist auth snapshot", "error", err)
	}

	slog.Info("Logged in", "email", user.Email)
	return nil
}

// Register validates and creates an account, then logs in with it.
func (s *Store) Register(ctx context.Context, r Registration) error {
	r = r.Normalize()
	if err := r.Validate(); err != nil {
		return err
	}

	err := s.api.Register(ctx, &client.RegisterRequest{
		Name:     r.Name,
		Email:    r.Email,
		Username: r.Username,
		Password: r.Password,
		Role:     r.Role,
	})
	if err != nil {
		slog.Info("Registration failed", "email", r.Email, "error", client.ErrorMessage(err, "Registration failed"))
		return err
	}

	return s.Login(ctx, r.Email, r.Password)
}

// FetchCurrentUser refreshes the user from the backend. On failure the state
// is left untouched. Concurrent callers share one request.
func (s *Store) FetchCurrentUser(ctx context.Context) (*User, error) {
	v, err, _ := s.sf.Do("me", func() (interface{}, error) {
		resp, err := s.api.Me(ctx)
		if err != nil {
			return nil, err
		}
		return &User{
			ID:       string(resp.ID),
			Name:     resp.Name,
			Email:    resp.Email,
			Username: resp.Username,
			Role:     resp.Role,
		}, nil
	})
	if err != nil {
		slog.Debug("Identity refresh failed", "error", client.ErrorMessage(err, "Unauthorized"))
		return nil, err
	}

	user := *v.(*User)

	s.mu.Lock()
	s.state.User = &user
	snap := Snapshot{User: &user, Token: s.state.Token, TokenType: s.state.TokenType}
	s.mu.Unlock()

	if snap.Token != "" {
		if err := s.persist(snap); err != nil {
			slog.Warn("Failed to persist auth snapshot", "error", err)
		}
	}

	out := user
	return &out, nil
}

// HydrateFromStorage restores a persisted session and re-attaches its header.
// It must run before any authenticated call.
func (s *Store) HydrateFromStorage() error {
	snap, ok, err := s.loadSnapshot()
	if err != nil {
		return err
	}
	if !ok || snap.Token == "" {
		return nil
	}

	tokenType := snap.TokenType
	if tokenType == "" {
		tokenType = client.DefaultTokenType
	}

	s.mu.Lock()
	s.state.User = snap.User
	s.state.Token = snap.Token
	s.state.TokenType = tokenType
	s.mu.Unlock()

	s.api.SetAuthHeader(snap.Token, tokenType)
	return nil
}

// Logout clears the session, the default header and the persisted snapshot.
func (s *Store) Logout() error {
	s.mu.Lock()
	s.state = Session{TokenType: client.DefaultTokenType, Status: StatusIdle}
	s.mu.Unlock()

	s.api.ClearAuthHeader()
	if err := s.storage.Delete(StorageKey); err != nil {
		return fmt.Errorf("failed to erase auth snapshot: %w", err)
	}
	return nil
}

// Credentials implements client.CredentialSource from durable storage.
func (s *Store) Credentials() (client.Credentials, bool) {
	snap, ok, err := s.loadSnapshot()
	if err != nil || !ok || snap.Token == "" {
		return client.Credentials{}, false
	}
	return client.Credentials{Token: snap.Token, TokenType: snap.TokenType}, true
}

// Snapshot returns the persisted snapshot, if any
func (s *Store) Snapshot() (*Snapshot, bool, error) {
	snap, ok, err := s.loadSnapshot()
	if err != nil || !ok {
		return nil, ok, err
	}
	return &snap, true, nil
}

func (s *Store) loadSnapshot() (Snapshot, bool, error) {
	data, ok, err := s.storage.Get(StorageKey)
	if err != nil {
		return Snapshot{}, false, fmt.Errorf("failed to read auth snapshot: %w", err)
	}
	if !ok || len(data) == 0 || string(data) == "null" {
		return Snapshot{}, false, nil
	}

	var snap Snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		slog.Warn("Ignoring unreadable auth snapshot", "error", err)
		return Snapshot{}, false, nil
	}
	return snap, true, nil
}

func (s *Store) persist(snap Snapshot) error {
	data, err := json.Marshal(snap)
	if err != nil {
		return err
	}
	return s.storage.Set(StorageKey, data)
}

// DisplayName picks the friendliest label for u: name, username, or the
// local part of the email.
func DisplayName(u *User) string {
	if u == nil {
		return ""
	}
	if name := strings.TrimSpace(u.Name); name != "" {
		return name
	}
	if username := strings.TrimSpace(u.Username); username != "" {
		return username
	}
	local, _, _ := strings.Cut(u.Email, "@")
	return local
}

// ErrNotLoggedIn reports that a command needs a saved session and none exists
var ErrNotLoggedIn = errors.New("not logged in")
