// ABOUTME: TUI command for the tutor CLI
// ABOUTME: Opens the interactive interface; also the default with no subcommand

package cmd

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/invayl/tutor-cli/internal/logger"
	"github.com/invayl/tutor-cli/internal/tui"
)

var tuiCmd = &cobra.Command{
	Use:   "tui",
	Short: "Open the interactive interface",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		ctx, cancel := signalContext()
		defer cancel()

		exitCode := runTUI(ctx, os.Stderr)
		if exitCode != 0 {
			os.Exit(exitCode)
		}
	},
}

func init() {
	rootCmd.AddCommand(tuiCmd)
}

// runTUI runs the bubbletea program with logs redirected to the debug log
func runTUI(ctx context.Context, w io.Writer) int {
	a, code := openApp(w)
	if a == nil {
		return code
	}
	defer a.Close()

	closeLog, err := logger.InitFile(a.Config.ConfigDir)
	if err != nil {
		fmt.Fprintf(w, "Error: %v\n", err)
		return exitFailed
	}
	defer closeLog()

	if err := tui.Run(ctx, a); err != nil {
		fmt.Fprintf(w, "Error: %v\n", err)
		return exitFailed
	}
	return exitOK
}
