// ABOUTME: Status command for the tutor CLI
// ABOUTME: Shows the saved session, token expiry and thread count

package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/invayl/tutor-cli/internal/app"
	"github.com/invayl/tutor-cli/internal/auth"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show the saved session",
	Long: `Display the backend URL, storage, the saved session and its token expiry.
When logged in, the user and the thread list are refreshed from the backend.`,
	Args: cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		ctx, cancel := signalContext()
		defer cancel()

		exitCode := runStatus(ctx, os.Stdout)
		if exitCode != 0 {
			os.Exit(exitCode)
		}
	},
}

func init() {
	rootCmd.AddCommand(statusCmd)
}

// statusReport is the status command's output
type statusReport struct {
	Backend     string     `json:"backend"`
	Storage     string     `json:"storage"`
	ConfigDir   string     `json:"config_dir"`
	LoggedIn    bool       `json:"logged_in"`
	User        *auth.User `json:"user,omitempty"`
	TokenType   string     `json:"token_type,omitempty"`
	TokenExpiry *time.Time `json:"token_expiry,omitempty"`
	Expired     bool       `json:"expired,omitempty"`
	Threads     int        `json:"threads"`
}

// runStatus executes the status check and returns exit code
func runStatus(ctx context.Context, w io.Writer) int {
	a, code := openApp(w)
	if a == nil {
		return code
	}
	defer a.Close()

	if err := a.Boot(ctx); err != nil {
		fmt.Fprintf(w, "Error: %v\n", err)
		return exitFailed
	}

	report := buildStatus(a, time.Now())
	if IsJSONOutput() {
		writeJSON(w, report)
	} else {
		fmt.Fprintln(w, formatStatusHuman(report))
	}

	if !report.LoggedIn {
		return exitFailed
	}
	return exitOK
}

func buildStatus(a *app.App, now time.Time) statusReport {
	st := a.Auth.State()
	r := statusReport{
		Backend:   a.Config.APIURL,
		Storage:   a.Config.Storage,
		ConfigDir: a.Config.ConfigDir,
		LoggedIn:  st.LoggedIn(),
		User:      st.User,
		TokenType: st.TokenType,
		Threads:   len(a.Chat.State().Threads),
	}
	if exp, ok := auth.TokenExpiry(st.Token); ok {
		r.TokenExpiry = &exp
		r.Expired = !exp.After(now)
	}
	return r
}

// formatStatusHuman formats the report for human readability
func formatStatusHuman(r statusReport) string {
	if !r.LoggedIn {
		return fmt.Sprintf(`Backend:   %s
Storage:   %s (%s)
Session:   not logged in`, r.Backend, r.Storage, r.ConfigDir)
	}

	expiry := "unknown"
	if r.TokenExpiry != nil {
		expiry = r.TokenExpiry.Local().Format(time.RFC1123)
		if r.Expired {
			expiry += " [expired]"
		}
	}

	return fmt.Sprintf(`Backend:   %s
Storage:   %s (%s)
User:      %s <%s>
Token:     %s, expires %s
Threads:   %d`,
		r.Backend,
		r.Storage, r.ConfigDir,
		auth.DisplayName(r.User), r.User.Email,
		r.TokenType, expiry,
		r.Threads)
}
