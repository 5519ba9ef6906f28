// ABOUTME: Register command for the tutor CLI
// ABOUTME: Creates an account and logs in with it

package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/invayl/tutor-cli/internal/auth"
	"github.com/invayl/tutor-cli/internal/client"
)

var registration auth.Registration

var registerCmd = &cobra.Command{
	Use:   "register",
	Short: "Create an account and log in",
	Long: `Create an account on the tutor backend, then log in with it.

Exit codes:
  0 - Account created and logged in
  1 - Backend rejected the registration or the login
  2 - A field failed validation`,
	Args: cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		ctx, cancel := signalContext()
		defer cancel()

		exitCode := runRegister(ctx, os.Stdout)
		if exitCode != 0 {
			os.Exit(exitCode)
		}
	},
}

func init() {
	rootCmd.AddCommand(registerCmd)
	registerCmd.Flags().StringVar(&registration.Name, "name", "", "Full name")
	registerCmd.Flags().StringVar(&registration.Email, "email", "", "Email address")
	registerCmd.Flags().StringVar(&registration.Username, "username", "", "Username (at least 3 characters)")
	registerCmd.Flags().StringVar(&registration.Password, "password", "", "Password (at least 6 characters)")
	registerCmd.Flags().StringVar(&registration.Role, "role", auth.DefaultRole, "Account role")
}

// runRegister executes the registration and returns exit code
func runRegister(ctx context.Context, w io.Writer) int {
	r := registration.Normalize()
	if err := r.Validate(); err != nil {
		fmt.Fprintf(w, "Error: %v\n", err)
		return exitUsage
	}

	a, code := openApp(w)
	if a == nil {
		return code
	}
	defer a.Close()

	if err := a.Auth.Register(ctx, r); err != nil {
		var verr *auth.ValidationError
		if errors.As(err, &verr) {
			fmt.Fprintf(w, "Error: %v\n", err)
			return exitUsage
		}
		fmt.Fprintf(w, "Error: %s\n", client.ErrorMessage(err, "Registration failed"))
		return exitFailed
	}

	printSession(w, a.Auth.State())
	return exitOK
}
