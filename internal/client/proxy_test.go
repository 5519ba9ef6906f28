package client

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestValidateKeyPath(t *testing.T) {
	dir := t.TempDir()
	key := filepath.Join(dir, "id_rsa")
	if err := os.WriteFile(key, []byte("key"), 0600); err != nil {
		t.Fatal(err)
	}

	got, err := ValidateKeyPath(key)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != key {
		t.Errorf("expected %s, got %s", key, got)
	}

	if _, err := ValidateKeyPath(dir + "/../id_rsa"); err == nil || !strings.Contains(err.Error(), "..") {
		t.Errorf("expected traversal error, got %v", err)
	}
	if _, err := ValidateKeyPath(dir + "/%2e%2e/id_rsa"); err == nil {
		t.Error("expected encoded traversal to be rejected")
	}
	if _, err := ValidateKeyPath(dir); err == nil {
		t.Error("expected directory to be rejected")
	}
	if _, err := ValidateKeyPath(filepath.Join(dir, "missing")); err == nil {
		t.Error("expected missing file to be rejected")
	}
}

func TestSOCKS5DialContext_Errors(t *testing.T) {
	dir := t.TempDir()
	key := filepath.Join(dir, "id_rsa")
	if err := os.WriteFile(key, []byte("key"), 0600); err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name    string
		url     string
		wantErr string
	}{
		{"wrong scheme", "ssh+http://jump:22?private-key=" + key, "unsupported proxy scheme"},
		{"missing host", "ssh+socks5://?private-key=" + key, "missing a host"},
		{"missing key", "ssh+socks5://jump:22", "private-key"},
		{"bad key path", "ssh+socks5://jump:22?private-key=" + filepath.Join(dir, "nope"), "not accessible"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := SOCKS5DialContext(tt.url)
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("expected error containing %q, got %v", tt.wantErr, err)
			}
		})
	}

	dial, err := SOCKS5DialContext("ssh+socks5://ops@jump:22?private-key=" + key)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if dial == nil {
		t.Fatal("expected dial func")
	}
}
