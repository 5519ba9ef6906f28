// ABOUTME: In-memory tutor backend serving the /auth and /chat endpoints
// ABOUTME: Used by tests to exercise the client, stores, commands, and TUI over real HTTP

package fakebackend

import (
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"net/http"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
)

// TimeLayout matches the naive ISO timestamps the real backend emits.
const TimeLayout = "2006-01-02T15:04:05.000000"

// User is an account known to the backend
type User struct {
	ID       int    `json:"id"`
	Name     string `json:"name"`
	Email    string `json:"email"`
	Username string `json:"username"`
	Role     string `json:"role"`
	password string
}

// Message is a stored chat message
type Message struct {
	ID        int       `json:"id"`
	Role      string    `json:"role"`
	Content   string    `json:"content"`
	SessionID string    `json:"session_id"`
	CreatedAt time.Time `json:"-"`
	owner     string
}

type failure struct {
	status int
	body   string
}

// Backend is a goroutine-safe fake of the tutor API
type Backend struct {
	// Now stamps stored messages. Defaults to time.Now.
	Now func() time.Time
	// Reply produces the assistant answer. Defaults to echoing the question.
	Reply func(message string) string
	// TokenType is returned from /auth/login. Defaults to "bearer".
	TokenType string
	// Delay is applied before every response when non-zero.
	Delay time.Duration

	mu          sync.Mutex
	users       map[string]*User  // by email
	tokens      map[string]string // token -> email
	messages    []*Message
	failures    map[string]failure
	authHeaders map[string][]string // path -> Authorization headers seen
	nextUserID  int
	nextMsgID   int
	nextSession int
}

// New creates an empty backend
func New() *Backend {
	return &Backend{
		Now:         time.Now,
		Reply:       func(m string) string { return "You asked: " + m },
		TokenType:   "bearer",
		users:       make(map[string]*User),
		tokens:      make(map[string]string),
		failures:    make(map[string]failure),
		authHeaders: make(map[string][]string),
	}
}

// Handler returns the HTTP routes
func (b *Backend) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(chiMiddleware.Recoverer)
	r.Use(b.recordAuth)
	r.Use(b.injectFailures)

	r.Post("/auth/login", b.login)
	r.Post("/auth/register", b.register)
	r.Get("/auth/me", b.requireUser(b.me))
	r.Post("/chat", b.requireUser(b.chat))
	r.Get("/chat/history", b.requireUser(b.history))
	r.Get("/chat/all", b.requireUser(b.all))
	return r
}

// AddUser registers an account directly and returns it
func (b *Backend) AddUser(name, email, username, password, role string) *User {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.addUserLocked(name, email, username, password, role)
}

func (b *Backend) addUserLocked(name, email, username, password, role string) *User {
	b.nextUserID++
	u := &User{ID: b.nextUserID, Name: name, Email: email, Username: username, Role: role, password: password}
	b.users[strings.ToLower(email)] = u
	return u
}

// IssueToken returns a valid token for an existing user
func (b *Backend) IssueToken(email string) string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.issueTokenLocked(strings.ToLower(email))
}

func (b *Backend) issueTokenLocked(email string) string {
	buf := make([]byte, 12)
	rand.Read(buf)
	tok := "tok-" + hex.EncodeToString(buf)
	b.tokens[tok] = email
	return tok
}

// AddMessage stores a message as if it had been exchanged earlier
func (b *Backend) AddMessage(ownerEmail, sessionID, role, content string, at time.Time) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.nextMsgID++
	b.messages = append(b.messages, &Message{
		ID: b.nextMsgID, Role: role, Content: content, SessionID: sessionID,
		CreatedAt: at, owner: strings.ToLower(ownerEmail),
	})
}

// FailNext makes the next request to path fail with status and a raw JSON body.
func (b *Backend) FailNext(path string, status int, body string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.failures[path] = failure{status: status, body: body}
}

// AuthHeaders returns the Authorization headers seen for path, in order
func (b *Backend) AuthHeaders(path string) []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]string(nil), b.authHeaders[path]...)
}

// Sessions returns the distinct session ids stored for a user
func (b *Backend) Sessions(email string) []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	seen := map[string]bool{}
	var out []string
	for _, m := range b.messages {
		if m.owner == strings.ToLower(email) && !seen[m.SessionID] {
			seen[m.SessionID] = true
			out = append(out, m.SessionID)
		}
	}
	return out
}

func (b *Backend) recordAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		b.mu.Lock()
		b.authHeaders[r.URL.Path] = append(b.authHeaders[r.URL.Path], r.Header.Get("Authorization"))
		b.mu.Unlock()
		next.ServeHTTP(w, r)
	})
}

func (b *Backend) injectFailures(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if b.Delay > 0 {
			select {
			case <-time.After(b.Delay):
			case <-r.Context().Done():
				return
			}
		}

		b.mu.Lock()
		f, ok := b.failures[r.URL.Path]
		if ok {
			delete(b.failures, r.URL.Path)
		}
		b.mu.Unlock()

		if ok {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(f.status)
			w.Write([]byte(f.body))
			return
		}
		next.ServeHTTP(w, r)
	})
}

type userHandler func(w http.ResponseWriter, r *http.Request, u *User)

func (b *Backend) requireUser(h userHandler) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		scheme, token, ok := strings.Cut(r.Header.Get("Authorization"), " ")
		if !ok || !strings.EqualFold(scheme, "bearer") {
			writeDetail(w, http.StatusUnauthorized, "Not authenticated")
			return
		}

		b.mu.Lock()
		email, known := b.tokens[token]
		u := b.users[email]
		b.mu.Unlock()

		if !known || u == nil {
			writeDetail(w, http.StatusUnauthorized, "Could not validate credentials")
			return
		}
		h(w, r, u)
	}
}

func (b *Backend) login(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeDetail(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if req.Email == "" || req.Password == "" {
		writeValidation(w, missingFields(map[string]string{"email": req.Email, "password": req.Password}))
		return
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	u, ok := b.users[strings.ToLower(req.Email)]
	if !ok || u.password != req.Password {
		writeDetail(w, http.StatusUnauthorized, "Invalid email or password")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"access_token": b.issueTokenLocked(strings.ToLower(req.Email)),
		"token_type":   b.TokenType,
		"id":           u.ID,
		"name":         u.Name,
		"email":        u.Email,
		"username":     u.Username,
		"role":         u.Role,
	})
}

func (b *Backend) register(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Name     string `json:"name"`
		Email    string `json:"email"`
		Username string `json:"username"`
		Password string `json:"password"`
		Role     string `json:"role"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeDetail(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if missing := missingFields(map[string]string{
		"name": req.Name, "email": req.Email, "username": req.Username, "password": req.Password,
	}); len(missing) > 0 {
		writeValidation(w, missing)
		return
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	if _, exists := b.users[strings.ToLower(req.Email)]; exists {
		writeDetail(w, http.StatusBadRequest, "Email already registered")
		return
	}
	role := req.Role
	if role == "" {
		role = "employee"
	}
	u := b.addUserLocked(req.Name, req.Email, req.Username, req.Password, role)
	writeJSON(w, http.StatusCreated, u)
}

func (b *Backend) me(w http.ResponseWriter, r *http.Request, u *User) {
	writeJSON(w, http.StatusOK, u)
}

func (b *Backend) chat(w http.ResponseWriter, r *http.Request, u *User) {
	var req struct {
		Message         string  `json:"message"`
		SessionID       *string `json:"session_id"`
		MaxOutputTokens int     `json:"max_output_tokens"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeDetail(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if strings.TrimSpace(req.Message) == "" {
		writeValidation(w, []string{"message"})
		return
	}

	b.mu.Lock()
	sessionID := ""
	if req.SessionID != nil {
		sessionID = *req.SessionID
	}
	if sessionID == "" {
		b.nextSession++
		sessionID = "sess-" + strconv.Itoa(b.nextSession)
	}
	reply := b.Reply(req.Message)
	now := b.Now()
	owner := strings.ToLower(u.Email)
	b.nextMsgID++
	b.messages = append(b.messages, &Message{ID: b.nextMsgID, Role: "user", Content: req.Message, SessionID: sessionID, CreatedAt: now, owner: owner})
	b.nextMsgID++
	b.messages = append(b.messages, &Message{ID: b.nextMsgID, Role: "assistant", Content: reply, SessionID: sessionID, CreatedAt: now.Add(time.Millisecond), owner: owner})
	b.mu.Unlock()

	writeJSON(w, http.StatusOK, map[string]any{
		"reply":      reply,
		"session_id": sessionID,
		"usage": map[string]int{
			"input_tokens":  len(strings.Fields(req.Message)),
			"output_tokens": len(strings.Fields(reply)),
		},
	})
}

func (b *Backend) history(w http.ResponseWriter, r *http.Request, u *User) {
	sessionID := r.URL.Query().Get("session_id")
	if sessionID == "" {
		writeValidation(w, []string{"session_id"})
		return
	}
	limit := queryInt(r, "limit", 100)

	b.mu.Lock()
	var msgs []*Message
	for _, m := range b.messages {
		if m.SessionID == sessionID && m.owner == strings.ToLower(u.Email) {
			msgs = append(msgs, m)
		}
	}
	b.mu.Unlock()

	sort.SliceStable(msgs, func(i, j int) bool { return msgs[i].CreatedAt.Before(msgs[j].CreatedAt) })
	if len(msgs) > limit {
		msgs = msgs[len(msgs)-limit:]
	}

	out := make([]map[string]any, 0, len(msgs))
	for _, m := range msgs {
		out = append(out, map[string]any{
			"id":         m.ID,
			"role":       m.Role,
			"content":    m.Content,
			"created_at": m.CreatedAt.UTC().Format(TimeLayout),
		})
	}
	writeJSON(w, http.StatusOK, map[string]any{"session_id": sessionID, "messages": out})
}

func (b *Backend) all(w http.ResponseWriter, r *http.Request, u *User) {
	limit := queryInt(r, "limit", 300)
	offset := queryInt(r, "offset", 0)

	b.mu.Lock()
	var msgs []*Message
	for _, m := range b.messages {
		if m.owner == strings.ToLower(u.Email) {
			msgs = append(msgs, m)
		}
	}
	b.mu.Unlock()

	// newest first
	sort.SliceStable(msgs, func(i, j int) bool { return msgs[i].CreatedAt.After(msgs[j].CreatedAt) })
	if offset > len(msgs) {
		offset = len(msgs)
	}
	msgs = msgs[offset:]
	if len(msgs) > limit {
		msgs = msgs[:limit]
	}

	items := make([]map[string]any, 0, len(msgs))
	for _, m := range msgs {
		items = append(items, map[string]any{
			"id":         m.ID,
			"role":       m.Role,
			"content":    m.Content,
			"session_id": m.SessionID,
			"created_at": m.CreatedAt.UTC().Format(TimeLayout),
		})
	}
	writeJSON(w, http.StatusOK, map[string]any{"items": items})
}

func queryInt(r *http.Request, key string, def int) int {
	if v, err := strconv.Atoi(r.URL.Query().Get(key)); err == nil && v >= 0 {
		return v
	}
	return def
}

func missingFields(fields map[string]string) []string {
	var missing []string
	for k, v := range fields {
		if strings.TrimSpace(v) == "" {
			missing = append(missing, k)
		}
	}
	sort.Strings(missing)
	return missing
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeDetail(w http.ResponseWriter, status int, detail string) {
	writeJSON(w, status, map[string]string{"detail": detail})
}

// writeValidation mimics a FastAPI 422 body
func writeValidation(w http.ResponseWriter, fields []string) {
	detail := make([]map[string]any, 0, len(fields))
	for _, f := range fields {
		detail = append(detail, map[string]any{
			"loc":  []string{"body", f},
			"msg":  "field required",
			"type": "value_error.missing",
		})
	}
	writeJSON(w, http.StatusUnprocessableEntity, map[string]any{"detail": detail})
}
