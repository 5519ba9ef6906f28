// ABOUTME: Conversation data model: messages, sessions and thread previews
// ABOUTME: Parses the backend's timestamp formats

package chat

import (
	"strings"
	"time"
)

// Role is who authored a message
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Message is one chat message. Immutable once created.
type Message struct {
	ID        string    `json:"id"`
	Role      Role      `json:"role"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"created_at"`
}

// Session is an ordered conversation keyed by the server's session id
type Session struct {
	ID       string
	Messages []Message
}

// ThreadPreview summarizes a session for the sidebar
type ThreadPreview struct {
	ID          string    `json:"id"`
	LastSnippet string    `json:"last_snippet"`
	LastAt      time.Time `json:"last_at"`
	Count       int       `json:"count"`
}

// State is a snapshot of the Conversation Store
type State struct {
	CurrentSessionID string
	Sessions         map[string]Session
	Threads          []ThreadPreview
	Sending          bool
	Error            string
}

// Current returns the current session, if one is selected
func (s State) Current() (Session, bool) {
	if s.CurrentSessionID == "" {
		return Session{}, false
	}
	sess, ok := s.Sessions[s.CurrentSessionID]
	return sess, ok
}

var timeLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05.999999999Z07:00",
	"2006-01-02 15:04:05.999999999",
}

// ParseTime accepts RFC 3339 and the naive ISO timestamps the backend emits.
// Naive values are read as UTC. Unparseable input yields the zero time.
func ParseTime(s string) time.Time {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}
	}
	for _, layout := range timeLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t
		}
	}
	return time.Time{}
}
