// ABOUTME: Tests for the Session Store state machine
// ABOUTME: Drives login, refresh, hydrate and logout against a fake backend

package auth

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/invayl/tutor-cli/internal/client"
	"github.com/invayl/tutor-cli/internal/fakebackend"
	"github.com/invayl/tutor-cli/internal/storage"
)

func newTestStore(t *testing.T) (*Store, *client.Client, *fakebackend.Backend, storage.Store) {
	t.Helper()
	fb := fakebackend.New()
	server := httptest.NewServer(fb.Handler())
	t.Cleanup(server.Close)

	st := storage.NewMemory()
	c := client.New(server.URL)
	return NewStore(c, st), c, fb, st
}

func TestLogin_Scenario(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req client.LoginRequest
		json.NewDecoder(r.Body).Decode(&req)
		if req.Email != "a@b.com" || req.Password != "secret1" {
			t.Errorf("unexpected credentials %+v", req)
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"access_token":"tok123","token_type":"bearer","id":1,"name":"A","email":"a@b.com","username":"a","role":"user"}`))
	}))
	defer server.Close()

	st := storage.NewMemory()
	c := client.New(server.URL)
	s := NewStore(c, st)

	if err := s.Login(context.Background(), "a@b.com", "secret1"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	state := s.State()
	if state.Status != StatusSucceeded {
		t.Errorf("expected status succeeded, got %s", state.Status)
	}
	if state.Token != "tok123" {
		t.Errorf("expected token tok123, got %s", state.Token)
	}
	if state.TokenType != "Bearer" {
		t.Errorf("expected tokenType Bearer, got %s", state.TokenType)
	}
	if state.User == nil || state.User.Email != "a@b.com" || state.User.ID != "1" {
		t.Errorf("unexpected user %+v", state.User)
	}
	if c.AuthHeader() != "Bearer tok123" {
		t.Errorf("expected header attached, got %q", c.AuthHeader())
	}

	data, ok, _ := st.Get(StorageKey)
	if !ok {
		t.Fatal("expected persisted snapshot")
	}
	var snap Snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		t.Fatalf("invalid snapshot: %v", err)
	}
	if snap.Token != "tok123" || snap.TokenType != "Bearer" || snap.User.Email != "a@b.com" {
		t.Errorf("unexpected snapshot %+v", snap)
	}
}

func TestLogin_FailureKeepsExistingSession(t *testing.T) {
	s, c, fb, _ := newTestStore(t)
	fb.AddUser("Ada", "ada@example.com", "ada", "secret1", "employee")

	if err := s.Login(context.Background(), "ada@example.com", "secret1"); err != nil {
		t.Fatalf("first login: %v", err)
	}
	before := s.State()

	err := s.Login(context.Background(), "ada@example.com", "wrong")
	if err == nil {
		t.Fatal("expected error, got nil")
	}

	after := s.State()
	if after.Status != StatusFailed {
		t.Errorf("expected status failed, got %s", after.Status)
	}
	if after.Error != "Invalid email or password" {
		t.Errorf("unexpected error text %q", after.Error)
	}
	if after.Token != before.Token {
		t.Errorf("token changed from %s to %s", before.Token, after.Token)
	}
	if after.User == nil || *after.User != *before.User {
		t.Errorf("user changed from %+v to %+v", before.User, after.User)
	}
	if c.AuthHeader() != "Bearer "+before.Token {
		t.Errorf("header changed to %q", c.AuthHeader())
	}
}

func TestLogin_FallbackMessage(t *testing.T) {
	s, _, fb, _ := newTestStore(t)
	fb.FailNext("/auth/login", http.StatusInternalServerError, `{}`)

	if err := s.Login(context.Background(), "x@example.com", "secret1"); err == nil {
		t.Fatal("expected error")
	}
	if got := s.State().Error; got != "backend returned status 500" {
		t.Errorf("unexpected error text %q", got)
	}
}

func TestLogin_ClearsPreviousError(t *testing.T) {
	s, _, fb, _ := newTestStore(t)
	fb.AddUser("Ada", "ada@example.com", "ada", "secret1", "employee")

	s.Login(context.Background(), "ada@example.com", "nope")
	if s.State().Error == "" {
		t.Fatal("expected error after bad login")
	}
	if err := s.Login(context.Background(), "ada@example.com", "secret1"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if s.State().Error != "" {
		t.Errorf("expected error cleared, got %q", s.State().Error)
	}
}

func TestNormalizeTokenType(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"bearer", "Bearer"},
		{"Bearer", "Bearer"},
		{"", "Bearer"},
		{"mac", "Mac"},
	}
	for _, tt := range tests {
		if got := NormalizeTokenType(tt.in); got != tt.want {
			t.Errorf("NormalizeTokenType(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestRegister_ThenLogin(t *testing.T) {
	s, _, _, st := newTestStore(t)

	err := s.Register(context.Background(), Registration{
		Name:     " Grace ",
		Email:    "  Grace@Example.COM ",
		Username: "grace",
		Password: "secret1",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	state := s.State()
	if state.Status != StatusSucceeded {
		t.Errorf("expected succeeded, got %s", state.Status)
	}
	if state.User.Email != "grace@example.com" || state.User.Name != "Grace" {
		t.Errorf("expected normalized user, got %+v", state.User)
	}
	if state.User.Role != DefaultRole {
		t.Errorf("expected default role, got %s", state.User.Role)
	}
	if _, ok, _ := st.Get(StorageKey); !ok {
		t.Error("expected persisted snapshot")
	}
}

func TestRegister_ValidationSkipsNetwork(t *testing.T) {
	s, _, fb, _ := newTestStore(t)

	err := s.Register(context.Background(), Registration{Name: "A", Email: "bad", Username: "abc", Password: "secret1"})
	var verr *ValidationError
	if !errors.As(err, &verr) || verr.Field != "email" {
		t.Fatalf("expected email validation error, got %v", err)
	}
	if len(fb.AuthHeaders("/auth/register")) != 0 {
		t.Error("expected no request to /auth/register")
	}
	if s.State().Status != StatusIdle {
		t.Errorf("expected status untouched, got %s", s.State().Status)
	}
}

func TestRegister_BackendError(t *testing.T) {
	s, _, fb, _ := newTestStore(t)
	fb.AddUser("Ada", "ada@example.com", "ada", "secret1", "employee")

	err := s.Register(context.Background(), Registration{Name: "Ada", Email: "ada@example.com", Username: "ada", Password: "secret1"})
	if err == nil {
		t.Fatal("expected error, got nil")
	}
	if got := client.ErrorMessage(err, "Registration failed"); got != "Email already registered" {
		t.Errorf("unexpected message %q", got)
	}
	if s.State().LoggedIn() {
		t.Error("expected to remain logged out")
	}
}

func TestFetchCurrentUser(t *testing.T) {
	s, _, fb, st := newTestStore(t)
	fb.AddUser("Ada", "ada@example.com", "ada", "secret1", "employee")

	if err := s.Login(context.Background(), "ada@example.com", "secret1"); err != nil {
		t.Fatalf("login: %v", err)
	}

	user, err := s.FetchCurrentUser(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if user.Username != "ada" {
		t.Errorf("unexpected user %+v", user)
	}
	if s.State().User.Username != "ada" {
		t.Error("expected state user replaced")
	}

	data, _, _ := st.Get(StorageKey)
	var snap Snapshot
	json.Unmarshal(data, &snap)
	if snap.User == nil || snap.User.Username != "ada" {
		t.Errorf("expected snapshot re-persisted, got %+v", snap)
	}
}

func TestFetchCurrentUser_FailureLeavesState(t *testing.T) {
	s, _, fb, _ := newTestStore(t)
	fb.AddUser("Ada", "ada@example.com", "ada", "secret1", "employee")
	s.Login(context.Background(), "ada@example.com", "secret1")
	before := s.State()

	fb.FailNext("/auth/me", http.StatusUnauthorized, `{"detail":"Token expired"}`)
	if _, err := s.FetchCurrentUser(context.Background()); !client.IsUnauthorized(err) {
		t.Fatalf("expected 401, got %v", err)
	}

	after := s.State()
	if after.Token != before.Token || *after.User != *before.User || after.Status != before.Status || after.Error != before.Error {
		t.Errorf("state changed: before %+v after %+v", before, after)
	}
}

type countingAPI struct {
	API
	calls atomic.Int32
	gate  chan struct{}
}

func (c *countingAPI) Me(ctx context.Context) (*client.UserResponse, error) {
	c.calls.Add(1)
	<-c.gate
	return &client.UserResponse{ID: "7", Email: "x@example.com"}, nil
}

func TestFetchCurrentUser_CollapsesConcurrentCalls(t *testing.T) {
	api := &countingAPI{gate: make(chan struct{})}
	s := NewStore(api, storage.NewMemory())

	var wg sync.WaitGroup
	for i := 0; i < 5; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := s.FetchCurrentUser(context.Background()); err != nil {
				t.Errorf("unexpected error: %v", err)
			}
		}()
	}

	time.Sleep(50 * time.Millisecond)
	close(api.gate)
	wg.Wait()

	if n := api.calls.Load(); n != 1 {
		t.Errorf("expected 1 backend call, got %d", n)
	}
}

func TestHydrateFromStorage(t *testing.T) {
	s, c, _, st := newTestStore(t)
	st.Set(StorageKey, []byte(`{"user":{"id":"1","email":"a@b.com"},"token":"tok123","tokenType":""}`))

	if err := s.HydrateFromStorage(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	state := s.State()
	if state.Token != "tok123" || state.TokenType != "Bearer" || state.User.Email != "a@b.com" {
		t.Errorf("unexpected state %+v", state)
	}
	if c.AuthHeader() != "Bearer tok123" {
		t.Errorf("expected header re-attached, got %q", c.AuthHeader())
	}
}

func TestHydrateFromStorage_IgnoresMissingOrTokenless(t *testing.T) {
	tests := []struct {
		name  string
		value string
	}{
		{"absent", ""},
		{"null", "null"},
		{"no token", `{"user":{"email":"a@b.com"},"token":""}`},
		{"corrupt", `{"user":`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, c, _, st := newTestStore(t)
			if tt.value != "" {
				st.Set(StorageKey, []byte(tt.value))
			}
			if err := s.HydrateFromStorage(); err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if s.State().LoggedIn() || s.State().User != nil {
				t.Errorf("expected logged out, got %+v", s.State())
			}
			if c.AuthHeader() != "" {
				t.Errorf("expected no header, got %q", c.AuthHeader())
			}
		})
	}
}

func TestLogoutThenHydrate(t *testing.T) {
	s, c, fb, st := newTestStore(t)
	fb.AddUser("Ada", "ada@example.com", "ada", "secret1", "employee")
	s.Login(context.Background(), "ada@example.com", "secret1")

	if err := s.Logout(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	state := s.State()
	if state.User != nil || state.Token != "" || state.TokenType != "Bearer" || state.Status != StatusIdle || state.Error != "" {
		t.Errorf("unexpected state after logout %+v", state)
	}
	if c.AuthHeader() != "" {
		t.Errorf("expected header cleared, got %q", c.AuthHeader())
	}
	if _, ok, _ := st.Get(StorageKey); ok {
		t.Error("expected snapshot erased")
	}

	if err := s.HydrateFromStorage(); err != nil {
		t.Fatalf("hydrate: %v", err)
	}
	if s.State().User != nil || s.State().Token != "" {
		t.Errorf("expected absent user and token, got %+v", s.State())
	}
}

func TestCredentials_FromStorage(t *testing.T) {
	s, _, _, st := newTestStore(t)

	if _, ok := s.Credentials(); ok {
		t.Error("expected no credentials")
	}

	st.Set(StorageKey, []byte(`{"token":"tok123","tokenType":"Bearer"}`))
	creds, ok := s.Credentials()
	if !ok || creds.Header() != "Bearer tok123" {
		t.Errorf("unexpected credentials %+v ok=%v", creds, ok)
	}
}

func TestCredentials_BackstopsLostHeader(t *testing.T) {
	fb := fakebackend.New()
	fb.AddUser("Ada", "ada@example.com", "ada", "secret1", "employee")
	server := httptest.NewServer(fb.Handler())
	defer server.Close()

	st := storage.NewMemory()
	var s *Store
	c := client.New(server.URL, client.WithCredentialSource(credentialsFunc(func() (client.Credentials, bool) {
		return s.Credentials()
	})))
	s = NewStore(c, st)

	if err := s.Login(context.Background(), "ada@example.com", "secret1"); err != nil {
		t.Fatalf("login: %v", err)
	}
	c.ClearAuthHeader()

	if _, err := s.FetchCurrentUser(context.Background()); err != nil {
		t.Fatalf("expected saved token to be used, got %v", err)
	}
}

type credentialsFunc func() (client.Credentials, bool)

func (f credentialsFunc) Credentials() (client.Credentials, bool) { return f() }

func TestDisplayName(t *testing.T) {
	tests := []struct {
		name string
		user *User
		want string
	}{
		{"nil", nil, ""},
		{"name", &User{Name: "Ada", Username: "ada", Email: "ada@x.io"}, "Ada"},
		{"username", &User{Username: "ada", Email: "ada@x.io"}, "ada"},
		{"email", &User{Email: "lovelace@x.io"}, "lovelace"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := DisplayName(tt.user); got != tt.want {
				t.Errorf("DisplayName() = %q, want %q", got, tt.want)
			}
		})
	}
}
