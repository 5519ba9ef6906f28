// ABOUTME: History and threads commands for the tutor CLI
// ABOUTME: Print a session's messages and the saved session list

package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/invayl/tutor-cli/internal/chat"
	"github.com/invayl/tutor-cli/internal/client"
)

var (
	historyLimit  int
	threadsLimit  int
	threadsOffset int
	threadsOwner  string
)

var historyCmd = &cobra.Command{
	Use:   "history <session-id>",
	Short: "Print the messages of a session",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		ctx, cancel := signalContext()
		defer cancel()

		exitCode := runHistory(ctx, os.Stdout, args[0])
		if exitCode != 0 {
			os.Exit(exitCode)
		}
	},
}

var threadsCmd = &cobra.Command{
	Use:   "threads",
	Short: "List saved sessions, newest first",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		ctx, cancel := signalContext()
		defer cancel()

		exitCode := runThreads(ctx, os.Stdout)
		if exitCode != 0 {
			os.Exit(exitCode)
		}
	},
}

func init() {
	rootCmd.AddCommand(historyCmd)
	rootCmd.AddCommand(threadsCmd)
	historyCmd.Flags().IntVar(&historyLimit, "limit", 0, "Maximum messages to load (default TUTOR_HISTORY_LIMIT)")
	threadsCmd.Flags().IntVar(&threadsLimit, "limit", 0, "Messages scanned to build the list (default TUTOR_THREADS_LIMIT)")
	threadsCmd.Flags().IntVar(&threadsOffset, "offset", 0, "Messages to skip")
	threadsCmd.Flags().StringVar(&threadsOwner, "owner", chat.DefaultOwner, "Whose messages to list")
}

// runHistory prints a session's messages and returns exit code
func runHistory(ctx context.Context, w io.Writer, sessionID string) int {
	sessionID = strings.TrimSpace(sessionID)
	if sessionID == "" {
		fmt.Fprintln(w, "Error: session id is required")
		return exitUsage
	}
	if historyLimit < 0 {
		fmt.Fprintln(w, "Error: --limit cannot be negative")
		return exitUsage
	}

	a, code := openLoggedIn(w)
	if a == nil {
		return code
	}
	defer a.Close()

	limit := historyLimit
	if limit == 0 {
		limit = a.Config.HistoryLimit
	}
	if err := a.Chat.FetchHistory(ctx, sessionID, limit); err != nil {
		fmt.Fprintf(w, "Error: %s\n", client.ErrorMessage(err, "Failed to load history"))
		return exitFailed
	}
	messages := a.Chat.State().Sessions[sessionID].Messages

	if IsJSONOutput() {
		writeJSON(w, map[string]any{"session_id": sessionID, "messages": messages})
		return exitOK
	}
	fmt.Fprint(w, formatHistoryHuman(messages))
	return exitOK
}

// formatHistoryHuman renders one block per message
func formatHistoryHuman(messages []chat.Message) string {
	if len(messages) == 0 {
		return "No messages\n"
	}
	var b strings.Builder
	for i, m := range messages {
		if i > 0 {
			b.WriteString("\n")
		}
		label := "You"
		if m.Role == chat.RoleAssistant {
			label = "Tutor"
		}
		if m.CreatedAt.IsZero() {
			fmt.Fprintf(&b, "%s:\n", label)
		} else {
			fmt.Fprintf(&b, "%s (%s):\n", label, m.CreatedAt.Local().Format("2006-01-02 15:04"))
		}
		b.WriteString(m.Content)
		b.WriteString("\n")
	}
	return b.String()
}

// runThreads prints the thread list and returns exit code
func runThreads(ctx context.Context, w io.Writer) int {
	if threadsLimit < 0 || threadsOffset < 0 {
		fmt.Fprintln(w, "Error: --limit and --offset cannot be negative")
		return exitUsage
	}

	a, code := openLoggedIn(w)
	if a == nil {
		return code
	}
	defer a.Close()

	limit := threadsLimit
	if limit == 0 {
		limit = a.Config.ThreadsLimit
	}
	if err := a.Chat.FetchThreads(ctx, limit, threadsOffset, threadsOwner); err != nil {
		fmt.Fprintf(w, "Error: %s\n", client.ErrorMessage(err, "Failed to load sessions"))
		return exitFailed
	}
	threads := a.Chat.State().Threads

	if IsJSONOutput() {
		if threads == nil {
			threads = []chat.ThreadPreview{}
		}
		writeJSON(w, threads)
		return exitOK
	}
	fmt.Fprint(w, formatThreadsHuman(threads))
	return exitOK
}

// formatThreadsHuman renders an aligned table of thread previews
func formatThreadsHuman(threads []chat.ThreadPreview) string {
	if len(threads) == 0 {
		return "No saved sessions yet\n"
	}
	var b strings.Builder
	tw := tabwriter.NewWriter(&b, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "SESSION\tMESSAGES\tLAST\tSNIPPET")
	for _, t := range threads {
		last := "-"
		if !t.LastAt.IsZero() {
			last = t.LastAt.Local().Format(time.DateTime)
		}
		fmt.Fprintf(tw, "%s\t%d\t%s\t%s\n", t.ID, t.Count, last, snippet(t.LastSnippet, 60))
	}
	tw.Flush()
	return b.String()
}

// snippet flattens whitespace and shortens s to n runes
func snippet(s string, n int) string {
	s = strings.Join(strings.Fields(s), " ")
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}
