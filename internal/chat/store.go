// ABOUTME: Conversation Store: sending messages, loading history and threads
// ABOUTME: Keeps per-session message lists and the ordered thread previews

package chat

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/invayl/tutor-cli/internal/client"
)

const (
	DefaultMaxOutputTokens = 300
	DefaultHistoryLimit    = 100
	DefaultThreadsLimit    = 300
	DefaultOwner           = "me"
)

var (
	// ErrEmptyMessage rejects a whitespace-only message without a request
	ErrEmptyMessage = errors.New("message is empty")
	// ErrSendInFlight rejects a send while another is outstanding
	ErrSendInFlight = errors.New("a message is already being sent")
	// ErrNoSessionID rejects a reply that names no session to file it under
	ErrNoSessionID = errors.New("backend returned no session id")
)

// API is the subset of the backend client the Conversation Store needs
type API interface {
	SendChat(ctx context.Context, input *client.ChatRequest) (*client.ChatResponse, error)
	History(ctx context.Context, sessionID string, limit int) (*client.HistoryResponse, error)
	AllMessages(ctx context.Context, limit, offset int, owner string) (*client.AllMessagesResponse, error)
}

// Option configures a Store
type Option func(*Store)

// WithClock replaces time.Now for message timestamps
func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

// WithIDGenerator replaces the random suffix of local message ids
func WithIDGenerator(gen func() string) Option {
	return func(s *Store) { s.newID = gen }
}

// WithMaxOutputTokens sets the reply budget sent with every message
func WithMaxOutputTokens(n int) Option {
	return func(s *Store) { s.maxOutputTokens = n }
}

// Store is the Conversation Store. It is safe for concurrent use.
type Store struct {
	api             API
	now             func() time.Time
	newID           func() string
	maxOutputTokens int

	mu       sync.Mutex
	current  string
	sessions map[string]*Session
	threads  []ThreadPreview
	sending  bool
	err      string

	// history generation per session; a response only applies if no newer
	// history request for the session was issued after it.
	gen map[string]uint64
	// loading counts history requests in flight per session. While any are
	// outstanding, completed sends are logged so a response that predates
	// them can put them back on top of the backend's copy.
	loading map[string]int
	sends   map[string]uint64
	sent    map[string][]exchange
}

// exchange is one completed send: the user message and the reply
type exchange struct {
	seq       uint64
	user      Message
	assistant Message
}

// NewStore creates an empty Conversation Store
func NewStore(api API, opts ...Option) *Store {
	s := &Store{
		api:             api,
		now:             time.Now,
		newID:           uuid.NewString,
		maxOutputTokens: DefaultMaxOutputTokens,
		sessions:        make(map[string]*Session),
		gen:             make(map[string]uint64),
		loading:         make(map[string]int),
		sends:           make(map[string]uint64),
		sent:            make(map[string][]exchange),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// State returns a deep copy of the current state
func (s *Store) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := State{
		CurrentSessionID: s.current,
		Sessions:         make(map[string]Session, len(s.sessions)),
		Threads:          append([]ThreadPreview(nil), s.threads...),
		Sending:          s.sending,
		Error:            s.err,
	}
	for id, sess := range s.sessions {
		out.Sessions[id] = Session{ID: sess.ID, Messages: append([]Message(nil), sess.Messages...)}
	}
	return out
}

// CurrentMessages returns the messages of the current session, or nil
func (s *Store) CurrentMessages() []Message {
	s.mu.Lock()
	defer s.mu.Unlock()
	if sess, ok := s.sessions[s.current]; ok && s.current != "" {
		return append([]Message(nil), sess.Messages...)
	}
	return nil
}

// bucket returns the session for id, creating it if absent. Caller holds mu.
func (s *Store) bucket(id string) *Session {
	sess, ok := s.sessions[id]
	if !ok {
		sess = &Session{ID: id}
		s.sessions[id] = sess
	}
	return sess
}

// SendMessage posts message to sessionID, or to a new session when sessionID
// is empty. On success the user and assistant messages are appended and the
// thread preview moves to the front. It returns the confirmed session id.
func (s *Store) SendMessage(ctx context.Context, message, sessionID string) (string, error) {
	if strings.TrimSpace(message) == "" {
		return "", ErrEmptyMessage
	}

	s.mu.Lock()
	if s.sending {
		s.mu.Unlock()
		return "", ErrSendInFlight
	}
	s.sending = true
	s.err = ""
	s.mu.Unlock()

	req := &client.ChatRequest{Message: message, MaxOutputTokens: s.maxOutputTokens}
	if sessionID != "" {
		req.SessionID = &sessionID
	}

	resp, err := s.api.SendChat(ctx, req)
	if err != nil {
		msg := client.ErrorMessage(err, "Failed to send message")
		s.mu.Lock()
		s.sending = false
		s.err = msg
		s.mu.Unlock()
		slog.Warn("Send failed", "session_id", sessionID, "error", msg)
		return "", err
	}

	sid := resp.SessionID
	if sid == "" {
		sid = sessionID
	}
	if sid == "" {
		s.mu.Lock()
		s.sending = false
		s.err = ErrNoSessionID.Error()
		s.mu.Unlock()
		slog.Warn("Send failed", "error", ErrNoSessionID)
		return "", ErrNoSessionID
	}
	now := s.now()
	userMsg := Message{ID: "u-" + s.newID(), Role: RoleUser, Content: message, CreatedAt: now}
	assistantMsg := Message{ID: "a-" + s.newID(), Role: RoleAssistant, Content: resp.Reply, CreatedAt: now}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.sending = false
	sess := s.bucket(sid)
	if s.current == "" {
		s.current = sid
	}
	sess.Messages = append(sess.Messages, userMsg, assistantMsg)
	s.sends[sid]++
	if s.loading[sid] > 0 {
		s.sent[sid] = append(s.sent[sid], exchange{seq: s.sends[sid], user: userMsg, assistant: assistantMsg})
	}

	snippet := assistantMsg.Content
	if snippet == "" {
		snippet = userMsg.Content
	}
	s.upsertThread(sid, snippet, assistantMsg.CreatedAt)

	slog.Debug("Message sent", "session_id", sid, "reply_len", len(resp.Reply))
	return sid, nil
}

// upsertThread moves (or inserts) the preview for id to the front. An
// existing preview keeps its count until the next FetchThreads. Caller holds mu.
func (s *Store) upsertThread(id, snippet string, at time.Time) {
	preview := ThreadPreview{ID: id, LastSnippet: snippet, LastAt: at, Count: 2}
	for i, t := range s.threads {
		if t.ID == id {
			preview.Count = t.Count
			s.threads = append(s.threads[:i], s.threads[i+1:]...)
			break
		}
	}
	s.threads = append([]ThreadPreview{preview}, s.threads...)
}

// FetchHistory replaces a session's messages with the backend's copy.
// Responses overtaken by a newer history request for the same session are
// discarded. Sends that completed while the request was in flight are kept
// on top of the response unless the backend already returned them.
func (s *Store) FetchHistory(ctx context.Context, sessionID string, limit int) error {
	if limit <= 0 {
		limit = DefaultHistoryLimit
	}

	s.mu.Lock()
	s.gen[sessionID]++
	issued := s.gen[sessionID]
	sendsAt := s.sends[sessionID]
	s.loading[sessionID]++
	s.mu.Unlock()

	resp, err := s.api.History(ctx, sessionID, limit)
	if err != nil {
		msg := client.ErrorMessage(err, "Failed to load history")
		s.mu.Lock()
		s.doneLoading(sessionID)
		s.err = msg
		s.mu.Unlock()
		slog.Warn("History load failed", "session_id", sessionID, "error", msg)
		return err
	}

	sid := resp.SessionID
	if sid == "" {
		sid = sessionID
	}
	messages := make([]Message, 0, len(resp.Messages))
	for _, m := range resp.Messages {
		messages = append(messages, Message{
			ID:        string(m.ID),
			Role:      Role(m.Role),
			Content:   m.Content,
			CreatedAt: ParseTime(m.CreatedAt),
		})
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	later := s.sent[sessionID]
	s.doneLoading(sessionID)
	if s.gen[sessionID] != issued {
		slog.Debug("Discarding stale history", "session_id", sessionID)
		return nil
	}
	for _, ex := range later {
		if ex.seq <= sendsAt || containsExchange(messages, ex) {
			continue
		}
		messages = append(messages, ex.user, ex.assistant)
	}
	s.bucket(sid).Messages = messages
	return nil
}

// doneLoading drops the send log once no history request for the session
// is outstanding. Caller holds mu.
func (s *Store) doneLoading(sessionID string) {
	s.loading[sessionID]--
	if s.loading[sessionID] <= 0 {
		delete(s.loading, sessionID)
		delete(s.sent, sessionID)
	}
}

// containsExchange reports whether messages already hold the user message
// immediately followed by its reply.
func containsExchange(messages []Message, ex exchange) bool {
	for i := 0; i+1 < len(messages); i++ {
		if messages[i].Role == RoleUser && messages[i].Content == ex.user.Content &&
			messages[i+1].Role == RoleAssistant && messages[i+1].Content == ex.assistant.Content {
			return true
		}
	}
	return false
}

// FetchThreads replaces the thread list with one built from the backend's
// message listing. Zero limit and empty owner use the defaults.
func (s *Store) FetchThreads(ctx context.Context, limit, offset int, owner string) error {
	if limit <= 0 {
		limit = DefaultThreadsLimit
	}
	if offset < 0 {
		offset = 0
	}
	if owner == "" {
		owner = DefaultOwner
	}

	resp, err := s.api.AllMessages(ctx, limit, offset, owner)
	if err != nil {
		msg := client.ErrorMessage(err, "Failed to load sessions")
		s.mu.Lock()
		s.err = msg
		s.mu.Unlock()
		slog.Warn("Thread load failed", "error", msg)
		return err
	}

	threads := BuildThreads(resp.Items)

	s.mu.Lock()
	s.threads = threads
	s.mu.Unlock()
	return nil
}

// SetCurrentSession switches sessions without fetching; callers follow up
// with FetchHistory.
func (s *Store) SetCurrentSession(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.current = id
	if id != "" {
		s.bucket(id)
	}
}

// StartNewSession clears the current session so the next send starts one.
func (s *Store) StartNewSession() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.current = ""
	s.err = ""
}

// ClearError drops the recorded error
func (s *Store) ClearError() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.err = ""
}
