package client

import (
	"encoding/json"
	"errors"
	"testing"
)

func TestErrorMessage_Priority(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		fallback string
		want     string
	}{
		{"nil", nil, "x", ""},
		{"detail", &APIError{StatusCode: 400, Detail: "bad", Message: "ignored"}, "x", "bad"},
		{"message", &APIError{StatusCode: 500, Message: "boom"}, "x", "boom"},
		{"status only", &APIError{StatusCode: 503}, "x", "backend returned status 503"},
		{"transport", errors.New("dial tcp: refused"), "x", "dial tcp: refused"},
		{"blank", errors.New("  "), "Failed to load history", "Failed to load history"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ErrorMessage(tt.err, tt.fallback); got != tt.want {
				t.Errorf("ErrorMessage() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestDetailText(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want string
	}{
		{"empty", ``, ""},
		{"null", `null`, ""},
		{"string", `"Invalid token"`, "Invalid token"},
		{"validation list", `[{"loc":["body","email"],"msg":"field required"},{"loc":["body",0],"msg":"bad"}]`, "email: field required; bad"},
		{"object", `{"code":7}`, `{"code":7}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := detailText(json.RawMessage(tt.raw)); got != tt.want {
				t.Errorf("detailText() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestIsUnauthorized(t *testing.T) {
	if !IsUnauthorized(&APIError{StatusCode: 401}) {
		t.Error("expected 401 to be unauthorized")
	}
	if IsUnauthorized(&APIError{StatusCode: 403}) {
		t.Error("expected 403 not to be unauthorized")
	}
	if IsUnauthorized(errors.New("401")) {
		t.Error("expected plain error not to be unauthorized")
	}
}
