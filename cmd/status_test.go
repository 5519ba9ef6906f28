// ABOUTME: Tests for the status command
// ABOUTME: Verifies session reporting, token expiry and exit codes

package cmd

import (
	"bytes"
	"context"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/invayl/tutor-cli/internal/auth"
	"github.com/invayl/tutor-cli/internal/storage"
)

func signedToken(t *testing.T, exp time.Time) string {
	t.Helper()
	tok, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub": "ada@example.com",
		"exp": exp.Unix(),
	}).SignedString([]byte("test-secret"))
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	return tok
}

func TestStatus_LoggedOut(t *testing.T) {
	setup(t)

	var buf bytes.Buffer
	code := runStatus(context.Background(), &buf)

	if code != 1 {
		t.Errorf("expected exit code 1, got %d", code)
	}
	if !strings.Contains(buf.String(), "not logged in") {
		t.Errorf("unexpected output %q", buf.String())
	}
}

func TestStatus_LoggedIn(t *testing.T) {
	fb := setup(t)
	login(t)
	fb.AddMessage("ada@example.com", "s1", "user", "hi", time.Now())
	fb.AddMessage("ada@example.com", "s2", "user", "hey", time.Now())

	var buf bytes.Buffer
	if code := runStatus(context.Background(), &buf); code != 0 {
		t.Fatalf("expected exit code 0, got %d: %s", code, buf.String())
	}
	out := buf.String()
	for _, want := range []string{apiURL, "Ada Lovelace <ada@example.com>", "expires unknown", "Threads:   2"} {
		if !strings.Contains(out, want) {
			t.Errorf("expected %q in output:\n%s", want, out)
		}
	}
}

func TestStatus_TokenExpiry(t *testing.T) {
	tests := []struct {
		name    string
		exp     time.Time
		expired bool
	}{
		{"valid", time.Now().Add(time.Hour), false},
		{"expired", time.Now().Add(-time.Hour), true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			setup(t)
			jsonOutput = true
			tok := signedToken(t, tt.exp)
			st := storage.NewFileStore(configDir)
			st.Set(auth.StorageKey, []byte(`{"user":{"name":"Ada","email":"ada@example.com"},"token":"`+tok+`","tokenType":"Bearer"}`))

			var buf bytes.Buffer
			if code := runStatus(context.Background(), &buf); code != 0 {
				t.Fatalf("expected exit code 0, got %d: %s", code, buf.String())
			}

			var report statusReport
			if err := json.Unmarshal(buf.Bytes(), &report); err != nil {
				t.Fatalf("output is not valid JSON: %v", err)
			}
			if report.TokenExpiry == nil {
				t.Fatal("expected token expiry")
			}
			if report.TokenExpiry.Unix() != tt.exp.Unix() {
				t.Errorf("expected expiry %v, got %v", tt.exp, report.TokenExpiry)
			}
			if report.Expired != tt.expired {
				t.Errorf("expected expired=%v", tt.expired)
			}
		})
	}
}

func TestFormatStatusHuman_Expired(t *testing.T) {
	exp := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	out := formatStatusHuman(statusReport{
		Backend:     "http://localhost:8000",
		Storage:     "sqlite",
		ConfigDir:   "/tmp/tutor",
		LoggedIn:    true,
		User:        &auth.User{Username: "ada", Email: "ada@example.com"},
		TokenType:   "Bearer",
		TokenExpiry: &exp,
		Expired:     true,
	})

	for _, want := range []string{"sqlite (/tmp/tutor)", "ada <ada@example.com>", "[expired]", "Bearer"} {
		if !strings.Contains(out, want) {
			t.Errorf("expected %q in output:\n%s", want, out)
		}
	}
}
