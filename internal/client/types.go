// ABOUTME: Request and response shapes for the tutor backend endpoints
// ABOUTME: Mirrors the JSON contract of /auth/* and /chat/*

package client

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// ID accepts both JSON numbers and strings; the backend is not consistent.
type ID string

// UnmarshalJSON implements json.Unmarshaler
func (id *ID) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*id = ""
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*id = ID(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("id must be a string or number: %w", err)
	}
	*id = ID(n.String())
	return nil
}

// LoginRequest is the body of POST /auth/login
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// LoginResponse is the flat token + identity returned by POST /auth/login
type LoginResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	ID          ID     `json:"id"`
	Name        string `json:"name"`
	Email       string `json:"email"`
	Username    string `json:"username"`
	Role        string `json:"role"`
}

// RegisterRequest is the body of POST /auth/register
type RegisterRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Username string `json:"username"`
	Password string `json:"password"`
	Role     string `json:"role"`
}

// UserResponse is the flat user record returned by GET /auth/me
type UserResponse struct {
	ID       ID     `json:"id"`
	Name     string `json:"name"`
	Email    string `json:"email"`
	Username string `json:"username"`
	Role     string `json:"role"`
}

// ChatRequest is the body of POST /chat. A nil SessionID is sent as null,
// which asks the backend to start a new session.
type ChatRequest struct {
	Message         string  `json:"message"`
	SessionID       *string `json:"session_id"`
	MaxOutputTokens int     `json:"max_output_tokens,omitempty"`
}

// ChatResponse is returned by POST /chat
type ChatResponse struct {
	Reply     string          `json:"reply"`
	SessionID string          `json:"session_id"`
	Usage     json.RawMessage `json:"usage,omitempty"`
}

// HistoryMessage is one entry of GET /chat/history
type HistoryMessage struct {
	ID        ID     `json:"id"`
	Role      string `json:"role"`
	Content   string `json:"content"`
	CreatedAt string `json:"created_at"`
}

// HistoryResponse is returned by GET /chat/history
type HistoryResponse struct {
	SessionID string           `json:"session_id"`
	Messages  []HistoryMessage `json:"messages"`
}

// MessageItem is one entry of GET /chat/all
type MessageItem struct {
	ID        ID     `json:"id"`
	Role      string `json:"role"`
	Content   string `json:"content"`
	SessionID string `json:"session_id"`
	CreatedAt string `json:"created_at"`
}

// AllMessagesResponse is returned by GET /chat/all
type AllMessagesResponse struct {
	Items []MessageItem `json:"items"`
}
