// ABOUTME: Tests for the root command and global flag handling
// ABOUTME: Verifies environment variable and flag configuration

package cmd

import (
	"bytes"
	"context"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/invayl/tutor-cli/internal/auth"
	"github.com/invayl/tutor-cli/internal/config"
	"github.com/invayl/tutor-cli/internal/fakebackend"
)

// setup points the global flags at a fresh fake backend and config dir
func setup(t *testing.T) *fakebackend.Backend {
	t.Helper()
	fb := fakebackend.New()
	fb.AddUser("Ada Lovelace", "ada@example.com", "ada", "secret1", "employee")
	server := httptest.NewServer(fb.Handler())
	t.Cleanup(server.Close)

	t.Setenv("TUTOR_API_URL", "")
	t.Setenv("TUTOR_STORAGE", "")
	apiURL = server.URL
	configDir = t.TempDir()
	storageKind = ""
	jsonOutput = false
	t.Cleanup(func() {
		apiURL = ""
		configDir = ""
		storageKind = ""
		jsonOutput = false
		loginEmail = ""
		loginPassword = ""
		chatSession = ""
		chatNew = false
	})
	return fb
}

// login saves a session for ada through the login command
func login(t *testing.T) {
	t.Helper()
	loginEmail = "ada@example.com"
	loginPassword = "secret1"
	var buf bytes.Buffer
	if code := runLogin(context.Background(), &buf); code != 0 {
		t.Fatalf("login failed (%d): %s", code, buf.String())
	}
}

func TestGetAPIURL_Default(t *testing.T) {
	t.Setenv("TUTOR_API_URL", "")
	apiURL = "" // Reset flag

	url := GetAPIURL()
	if url != "http://localhost:8000" {
		t.Errorf("expected default URL http://localhost:8000, got %s", url)
	}
}

func TestGetAPIURL_FromEnv(t *testing.T) {
	t.Setenv("TUTOR_API_URL", "http://backend.example.com/")
	apiURL = "" // Reset flag

	url := GetAPIURL()
	if url != "http://backend.example.com" {
		t.Errorf("expected http://backend.example.com, got %s", url)
	}
}

func TestGetAPIURL_FlagOverridesEnv(t *testing.T) {
	t.Setenv("TUTOR_API_URL", "http://backend.example.com")
	apiURL = "http://flag-override.example.com"
	defer func() { apiURL = "" }()

	url := GetAPIURL()
	if url != "http://flag-override.example.com" {
		t.Errorf("expected flag to override env, got %s", url)
	}
}

func TestJSONOutput(t *testing.T) {
	jsonOutput = true
	defer func() { jsonOutput = false }()

	if !IsJSONOutput() {
		t.Error("expected IsJSONOutput to return true")
	}
}

func TestLoadConfig_FlagsOverride(t *testing.T) {
	setup(t)
	storageKind = "SQLite"

	cfg, err := loadConfig()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Storage != config.StorageSQLite {
		t.Errorf("expected sqlite storage, got %s", cfg.Storage)
	}
	if cfg.ConfigDir != configDir {
		t.Errorf("expected config dir %s, got %s", configDir, cfg.ConfigDir)
	}
	if cfg.APIURL != apiURL {
		t.Errorf("expected api url %s, got %s", apiURL, cfg.APIURL)
	}
}

func TestLoadConfig_InvalidStorage(t *testing.T) {
	setup(t)
	storageKind = "redis"

	var buf bytes.Buffer
	if a, code := openApp(&buf); a != nil || code != exitUsage {
		t.Errorf("expected usage exit, got %d", code)
	}
	if !strings.Contains(buf.String(), "TUTOR_STORAGE") {
		t.Errorf("expected storage error, got %q", buf.String())
	}
}

func TestOpenLoggedIn_RequiresSession(t *testing.T) {
	setup(t)

	var buf bytes.Buffer
	a, code := openLoggedIn(&buf)
	if a != nil || code != exitFailed {
		t.Errorf("expected failure without a session, got %d", code)
	}
	if !strings.Contains(buf.String(), auth.ErrNotLoggedIn.Error()) {
		t.Errorf("unexpected output %q", buf.String())
	}
}

func TestCommandsRegistered(t *testing.T) {
	want := []string{"login", "logout", "register", "whoami", "status", "chat", "history", "threads", "tui"}
	for _, name := range want {
		found := false
		for _, c := range rootCmd.Commands() {
			if c.Name() == name {
				found = true
			}
		}
		if !found {
			t.Errorf("expected %q subcommand", name)
		}
	}
}
