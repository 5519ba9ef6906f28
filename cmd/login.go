// ABOUTME: Login and logout commands for the tutor CLI
// ABOUTME: Prompts for missing credentials and saves the session locally

package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/charmbracelet/huh"
	"github.com/spf13/cobra"

	"github.com/invayl/tutor-cli/internal/auth"
)

var (
	loginEmail    string
	loginPassword string
)

// promptCredentials asks for whatever the flags left out; swapped in tests
var promptCredentials = func(email, password *string) error {
	var fields []huh.Field
	if *email == "" {
		fields = append(fields, huh.NewInput().Title("Email").Value(email).Validate(auth.ValidateEmail))
	}
	if *password == "" {
		fields = append(fields, huh.NewInput().Title("Password").EchoMode(huh.EchoModePassword).Value(password))
	}
	if len(fields) == 0 {
		return nil
	}
	return huh.NewForm(huh.NewGroup(fields...)).Run()
}

var loginCmd = &cobra.Command{
	Use:   "login",
	Short: "Log in and save the session",
	Long: `Log in to the tutor backend. The token is saved in the config directory
and reused by every other command until you log out.

Email and password are prompted for when not given as flags.`,
	Args: cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		ctx, cancel := signalContext()
		defer cancel()

		exitCode := runLogin(ctx, os.Stdout)
		if exitCode != 0 {
			os.Exit(exitCode)
		}
	},
}

var logoutCmd = &cobra.Command{
	Use:   "logout",
	Short: "Forget the saved session",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		exitCode := runLogout(os.Stdout)
		if exitCode != 0 {
			os.Exit(exitCode)
		}
	},
}

func init() {
	rootCmd.AddCommand(loginCmd)
	rootCmd.AddCommand(logoutCmd)
	loginCmd.Flags().StringVar(&loginEmail, "email", "", "Account email")
	loginCmd.Flags().StringVar(&loginPassword, "password", "", "Account password (prompted when omitted)")
}

// runLogin executes the login and returns exit code
func runLogin(ctx context.Context, w io.Writer) int {
	email, password := strings.TrimSpace(loginEmail), loginPassword
	if email == "" || password == "" {
		if err := promptCredentials(&email, &password); err != nil {
			if !errors.Is(err, huh.ErrUserAborted) {
				fmt.Fprintf(w, "Error: %v\n", err)
			}
			return exitUsage
		}
	}
	if strings.TrimSpace(email) == "" || password == "" {
		fmt.Fprintln(w, "Error: email and password are required")
		return exitUsage
	}

	a, code := openApp(w)
	if a == nil {
		return code
	}
	defer a.Close()

	if err := a.Auth.Login(ctx, strings.TrimSpace(email), password); err != nil {
		fmt.Fprintf(w, "Error: %s\n", a.Auth.State().Error)
		return exitFailed
	}

	printSession(w, a.Auth.State())
	return exitOK
}

// runLogout clears the saved session and returns exit code
func runLogout(w io.Writer) int {
	a, code := openApp(w)
	if a == nil {
		return code
	}
	defer a.Close()

	if err := a.Auth.HydrateFromStorage(); err != nil {
		fmt.Fprintf(w, "Error: %v\n", err)
		return exitFailed
	}
	wasLoggedIn := a.Auth.State().LoggedIn()

	if err := a.Logout(); err != nil {
		fmt.Fprintf(w, "Error: %v\n", err)
		return exitFailed
	}

	if IsJSONOutput() {
		writeJSON(w, map[string]bool{"logged_out": true, "had_session": wasLoggedIn})
		return exitOK
	}
	if wasLoggedIn {
		fmt.Fprintln(w, "Logged out")
	} else {
		fmt.Fprintln(w, "No saved session")
	}
	return exitOK
}

// printSession reports the signed-in user after login or registration
func printSession(w io.Writer, s auth.Session) {
	if IsJSONOutput() {
		writeJSON(w, map[string]any{
			"user":      s.User,
			"tokenType": s.TokenType,
		})
		return
	}
	fmt.Fprintf(w, "Logged in as %s (%s)\n", auth.DisplayName(s.User), s.User.Email)
}
