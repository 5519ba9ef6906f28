// ABOUTME: Whoami command for the tutor CLI
// ABOUTME: Fetches the signed-in user from the backend

package cmd

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/invayl/tutor-cli/internal/auth"
	"github.com/invayl/tutor-cli/internal/client"
)

var whoamiCmd = &cobra.Command{
	Use:   "whoami",
	Short: "Show the signed-in user",
	Long:  `Ask the backend who the saved session belongs to. Fails when the token has expired.`,
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		ctx, cancel := signalContext()
		defer cancel()

		exitCode := runWhoami(ctx, os.Stdout)
		if exitCode != 0 {
			os.Exit(exitCode)
		}
	},
}

func init() {
	rootCmd.AddCommand(whoamiCmd)
}

// runWhoami fetches the current user and returns exit code
func runWhoami(ctx context.Context, w io.Writer) int {
	a, code := openLoggedIn(w)
	if a == nil {
		return code
	}
	defer a.Close()

	user, err := a.Auth.FetchCurrentUser(ctx)
	if err != nil {
		msg := client.ErrorMessage(err, "Unauthorized")
		if client.IsUnauthorized(err) {
			msg += " (log in again)"
		}
		fmt.Fprintf(w, "Error: %s\n", msg)
		return exitFailed
	}

	if IsJSONOutput() {
		writeJSON(w, user)
	} else {
		fmt.Fprintln(w, formatUserHuman(user))
	}
	return exitOK
}

// formatUserHuman formats a user for human readability
func formatUserHuman(u *auth.User) string {
	return fmt.Sprintf(`Name:     %s
Username: %s
Email:    %s
Role:     %s`, auth.DisplayName(u), u.Username, u.Email, u.Role)
}
