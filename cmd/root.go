// ABOUTME: Root command for the tutor CLI
// ABOUTME: Handles global flags, configuration and application wiring

package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/invayl/tutor-cli/internal/app"
	"github.com/invayl/tutor-cli/internal/auth"
	"github.com/invayl/tutor-cli/internal/config"
	"github.com/invayl/tutor-cli/internal/logger"
)

var (
	apiURL      string
	jsonOutput  bool
	configDir   string
	storageKind string
)

// Exit codes shared by every command
const (
	exitOK     = 0
	exitFailed = 1
	exitUsage  = 2
)

// rootCmd is the base command
var rootCmd = &cobra.Command{
	Use:   "tutor",
	Short: "Terminal client for Invayl Tutor",
	Long: `tutor is a terminal client for the Invayl Tutor chat backend.

Python, ML and DL explanations with runnable code. Run without a subcommand
to open the interactive UI.

Environment Variables:
  TUTOR_API_URL            Backend API URL (default: http://localhost:8000)
  TUTOR_CONFIG_DIR         Where the session and debug log are kept
  TUTOR_STORAGE            file or sqlite (default: file)
  TUTOR_MAX_OUTPUT_TOKENS  Reply length budget (default: 300)
  TUTOR_HISTORY_LIMIT      Messages loaded per session (default: 100)
  TUTOR_THREADS_LIMIT      Messages scanned for the thread list (default: 300)
  TUTOR_TIMEOUT            Request timeout in seconds, 0 disables (default: 60)
  TUTOR_ALL_PROXY          ssh+socks5://user@host:port?private-key=/path
  LOG_LEVEL, LOG_FORMAT    Logging (debug|info|warn|error, text|json)`,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		logger.Init(os.Stderr)
	},
	Run: func(cmd *cobra.Command, args []string) {
		ctx, cancel := signalContext()
		defer cancel()

		exitCode := runTUI(ctx, os.Stderr)
		if exitCode != 0 {
			os.Exit(exitCode)
		}
	},
}

// Execute runs the root command
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVar(&apiURL, "api-url", "", "Backend API URL (overrides TUTOR_API_URL)")
	rootCmd.PersistentFlags().BoolVar(&jsonOutput, "json", false, "Output JSON instead of human-readable text")
	rootCmd.PersistentFlags().StringVar(&configDir, "config-dir", "", "Config directory (overrides TUTOR_CONFIG_DIR)")
	rootCmd.PersistentFlags().StringVar(&storageKind, "storage", "", "Session storage: file or sqlite (overrides TUTOR_STORAGE)")
}

func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
}

// GetAPIURL returns the API URL from flag, env, or default (in priority order)
func GetAPIURL() string {
	if apiURL != "" {
		return strings.TrimRight(apiURL, "/")
	}
	if envURL := os.Getenv("TUTOR_API_URL"); envURL != "" {
		return strings.TrimRight(envURL, "/")
	}
	return config.DefaultAPIURL
}

// IsJSONOutput returns whether JSON output is requested
func IsJSONOutput() bool {
	return jsonOutput
}

// loadConfig applies global flags on top of the environment
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	cfg.APIURL = GetAPIURL()
	if configDir != "" {
		cfg.ConfigDir = configDir
	}
	if storageKind != "" {
		cfg.Storage = strings.ToLower(storageKind)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// openApp loads configuration and wires the application. On failure the
// error is printed and the exit code returned.
func openApp(w io.Writer) (*app.App, int) {
	cfg, err := loadConfig()
	if err != nil {
		fmt.Fprintf(w, "Error: %v\n", err)
		return nil, exitUsage
	}
	a, err := app.New(cfg)
	if err != nil {
		fmt.Fprintf(w, "Error: %v\n", err)
		return nil, exitFailed
	}
	return a, exitOK
}

// openLoggedIn is openApp followed by restoring the saved session
func openLoggedIn(w io.Writer) (*app.App, int) {
	a, code := openApp(w)
	if a == nil {
		return nil, code
	}
	if err := a.Auth.HydrateFromStorage(); err != nil {
		fmt.Fprintf(w, "Error: %v\n", err)
		a.Close()
		return nil, exitFailed
	}
	if !a.Auth.State().LoggedIn() {
		fmt.Fprintf(w, "Error: %v; run `tutor login` first\n", auth.ErrNotLoggedIn)
		a.Close()
		return nil, exitFailed
	}
	return a, exitOK
}

// writeJSON prints v indented
func writeJSON(w io.Writer, v any) {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	enc.Encode(v)
}
