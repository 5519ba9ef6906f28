// ABOUTME: Chat command for the tutor CLI
// ABOUTME: Sends one message, or runs a line-mode conversation when no message is given

package cmd

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/invayl/tutor-cli/internal/app"
	"github.com/invayl/tutor-cli/internal/chat"
	"github.com/invayl/tutor-cli/internal/client"
)

var (
	chatSession string
	chatNew     bool
)

var (
	youColor   = color.New(color.FgCyan, color.Bold)
	tutorColor = color.New(color.FgGreen, color.Bold)
	errColor   = color.New(color.FgRed)
	infoColor  = color.New(color.Faint)
)

var chatCmd = &cobra.Command{
	Use:   "chat [message...]",
	Short: "Ask the tutor a question",
	Long: `Send a message to the tutor and print the reply.

Without a message, starts a line-mode conversation on stdin. Type /new to
start a fresh session and /quit (or Ctrl+D) to leave.

By default the most recent session is continued; use --new to start a
fresh one or --session to pick a session by id.`,
	Run: func(cmd *cobra.Command, args []string) {
		ctx, cancel := signalContext()
		defer cancel()

		exitCode := runChat(ctx, os.Stdout, os.Stdin, args)
		if exitCode != 0 {
			os.Exit(exitCode)
		}
	},
}

func init() {
	rootCmd.AddCommand(chatCmd)
	chatCmd.Flags().StringVar(&chatSession, "session", "", "Continue this session id")
	chatCmd.Flags().BoolVar(&chatNew, "new", false, "Start a new session")
}

// runChat executes one message or a conversation and returns exit code
func runChat(ctx context.Context, w io.Writer, in io.Reader, args []string) int {
	if chatNew && chatSession != "" {
		fmt.Fprintln(w, "Error: --new and --session cannot be combined")
		return exitUsage
	}

	a, code := openLoggedIn(w)
	if a == nil {
		return code
	}
	defer a.Close()

	sessionID := chooseSession(ctx, a)

	message := strings.TrimSpace(strings.Join(args, " "))
	if message != "" {
		return sendOnce(ctx, w, a, message, sessionID)
	}
	if IsJSONOutput() {
		fmt.Fprintln(w, "Error: --json needs a message")
		return exitUsage
	}
	return converse(ctx, w, in, a, sessionID)
}

// chooseSession resolves --session/--new, otherwise the most recent thread
func chooseSession(ctx context.Context, a *app.App) string {
	switch {
	case chatSession != "":
		return chatSession
	case chatNew:
		return ""
	}
	if err := a.Chat.FetchThreads(ctx, a.Config.ThreadsLimit, 0, chat.DefaultOwner); err != nil {
		a.Chat.ClearError()
		return ""
	}
	if threads := a.Chat.State().Threads; len(threads) > 0 {
		return threads[0].ID
	}
	return ""
}

func sendOnce(ctx context.Context, w io.Writer, a *app.App, message, sessionID string) int {
	sid, err := a.Chat.SendMessage(ctx, message, sessionID)
	if err != nil {
		fmt.Fprintf(w, "Error: %s\n", client.ErrorMessage(err, "Failed to send message"))
		return exitFailed
	}
	reply := lastReply(a.Chat, sid)

	if IsJSONOutput() {
		writeJSON(w, map[string]string{"session_id": sid, "reply": reply})
		return exitOK
	}
	fmt.Fprintln(w, reply)
	infoColor.Fprintf(w, "session: %s\n", sid)
	return exitOK
}

// converse reads messages line by line until EOF or /quit
func converse(ctx context.Context, w io.Writer, in io.Reader, a *app.App, sessionID string) int {
	if sessionID != "" {
		infoColor.Fprintf(w, "Continuing session %s (/new to start over)\n", sessionID)
	} else {
		infoColor.Fprintln(w, "Start a conversation with Invayl Tutor (/quit to leave)")
	}

	scanner := bufio.NewScanner(in)
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)
	for {
		youColor.Fprint(w, "you> ")
		if !scanner.Scan() {
			fmt.Fprintln(w)
			break
		}
		line := strings.TrimSpace(scanner.Text())
		switch line {
		case "":
			continue
		case "/quit", "/exit":
			return exitOK
		case "/new":
			sessionID = ""
			a.Chat.StartNewSession()
			infoColor.Fprintln(w, "New session")
			continue
		}

		sid, err := a.Chat.SendMessage(ctx, line, sessionID)
		if err != nil {
			if ctx.Err() != nil {
				return exitFailed
			}
			errColor.Fprintf(w, "Error: %s\n", client.ErrorMessage(err, "Failed to send message"))
			continue
		}
		if sessionID == "" {
			infoColor.Fprintf(w, "session: %s\n", sid)
		}
		sessionID = sid
		tutorColor.Fprint(w, "tutor> ")
		fmt.Fprintln(w, lastReply(a.Chat, sid))
	}

	if err := scanner.Err(); err != nil {
		errColor.Fprintf(w, "Error: %v\n", err)
		return exitFailed
	}
	return exitOK
}

// lastReply returns the newest assistant message of a session
func lastReply(s *chat.Store, sessionID string) string {
	msgs := s.State().Sessions[sessionID].Messages
	for i := len(msgs) - 1; i >= 0; i-- {
		if msgs[i].Role == chat.RoleAssistant {
			return msgs[i].Content
		}
	}
	return ""
}
