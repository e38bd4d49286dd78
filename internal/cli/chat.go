// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/atotto/clipboard"
	"github.com/charmbracelet/glamour"
	"github.com/peterh/liner"
	"github.com/spf13/cobra"

	"github.com/jeranaias/localchat/internal/chat"
	"github.com/jeranaias/localchat/internal/config"
	"github.com/jeranaias/localchat/internal/export"
	"github.com/jeranaias/localchat/internal/logging"
	"github.com/jeranaias/localchat/internal/model"
	chatui "github.com/jeranaias/localchat/internal/ui/chat"
)

// =============================================================================
// CHAT COMMAND
// =============================================================================

func newChatCmd(g *globalOptions) *cobra.Command {
	flags := &modelFlags{}
	var plain bool

	cmd := &cobra.Command{
		Use:   "chat",
		Short: "Chat in the terminal",
		Long: `Start an interactive chat session in the terminal.

By default a full-screen chat screen is used. With --plain, or when stdin is
not a terminal, a line-based prompt with input history is used instead; type
/help there for the available commands.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := newApp(g, appOptions{})
			if err != nil {
				return err
			}
			defer app.Close()

			sess := app.Sessions.Create()
			if err := sess.UpdateSettings(flags.apply(cmd, sess.Settings())); err != nil {
				return err
			}

			notice := checkModelServer(cmd.Context(), app, sess.Settings().Endpoint)
			if plain || !interactive() {
				if notice != "" {
					fmt.Fprintln(cmd.ErrOrStderr(), WarningStyle.Render(notice))
				}
				return runPlainChat(cmd.Context(), app, sess, cmd.OutOrStdout())
			}
			return chatui.Run(sess, notice)
		},
	}
	flags.bind(cmd)
	cmd.Flags().BoolVar(&plain, "plain", false, "Use the line-based prompt instead of the full-screen screen")
	return cmd
}

// startupCheckTimeout bounds the model server probe before a chat starts.
const startupCheckTimeout = 2 * time.Second

// checkModelServer returns a warning if the model server does not answer.
// The chat starts either way.
func checkModelServer(ctx context.Context, app *App, endpoint string) string {
	ctx, cancel := context.WithTimeout(ctx, startupCheckTimeout)
	defer cancel()
	if err := app.Client.CheckRunning(ctx, endpoint); err != nil {
		app.Logger.Warn("Model server not reachable", "endpoint", endpoint, "error", err)
		return fmt.Sprintf("Model server not reachable at %s; replies will fail until it is running.", endpoint)
	}
	return ""
}

// =============================================================================
// INPUT HISTORY
// =============================================================================

// LineEditor provides input history and line editing for the plain chat.
type LineEditor struct {
	line        *liner.State
	historyFile string
}

// NewLineEditor creates a line editor and loads historyFile if it exists.
func NewLineEditor(historyFile string) *LineEditor {
	line := liner.NewLiner()
	line.SetCtrlCAborts(true)

	e := &LineEditor{line: line, historyFile: historyFile}
	if f, err := os.Open(historyFile); err == nil {
		line.ReadHistory(f)
		f.Close()
	}
	return e
}

// ReadInput reads a line, recording non-empty input in the history.
func (e *LineEditor) ReadInput(prompt string) (string, error) {
	input, err := e.line.Prompt(prompt)
	if err != nil {
		return "", err
	}
	if strings.TrimSpace(input) != "" {
		e.line.AppendHistory(input)
	}
	return input, nil
}

// Close saves the history with owner-only permissions and restores the
// terminal.
func (e *LineEditor) Close() {
	defer e.line.Close()

	if err := os.MkdirAll(filepath.Dir(e.historyFile), 0700); err != nil {
		return
	}
	f, err := os.OpenFile(e.historyFile, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0600)
	if err != nil {
		return
	}
	defer f.Close()
	e.line.WriteHistory(f)
}

// historyPath returns the configured history file or ~/.localchat/history.
func historyPath(cfg *config.Config) string {
	if cfg.Chat.HistoryFile != "" {
		return cfg.Chat.HistoryFile
	}
	dir, err := config.ConfigDir()
	if err != nil {
		dir = os.TempDir()
	}
	return filepath.Join(dir, "history")
}

// =============================================================================
// PLAIN CHAT LOOP
// =============================================================================

// logTail is the part of the logger the /logs command uses.
type logTail interface {
	Tail(n int) ([]string, error)
}

// repl is the plain chat loop state. It is separate from the line editor so
// commands can be driven from tests.
type repl struct {
	session   *chat.Session
	logs      logTail
	out       io.Writer
	copy      func(string) error
	exportDir string
	render    func(string) string
}

func newREPL(sess *chat.Session, logs logTail, out io.Writer) *repl {
	return &repl{
		session:   sess,
		logs:      logs,
		out:       out,
		copy:      clipboard.WriteAll,
		exportDir: ".",
		render:    markdownRenderer(),
	}
}

func runPlainChat(ctx context.Context, app *App, sess *chat.Session, out io.Writer) error {
	editor := NewLineEditor(historyPath(app.Config))
	defer editor.Close()

	r := newREPL(sess, app.Logger, out)
	s := sess.Settings()
	fmt.Fprintf(out, "%s %s\n", TitleStyle.Render("Local LLM Chat"),
		DimStyle.Render(fmt.Sprintf("(%s, temperature %.1f, max tokens %d)", s.Model, s.Temperature, s.MaxTokens)))
	fmt.Fprintln(out, DimStyle.Render("Type /help for commands, /quit to exit."))
	fmt.Fprintln(out, RenderSeparator(min(GetTerminalWidth(), 70)))

	for {
		input, err := editor.ReadInput(PromptStyle.Render("you> "))
		if err != nil {
			// Ctrl+C (liner.ErrPromptAborted) and EOF both end the session.
			fmt.Fprintln(out)
			return nil
		}
		if r.handleLine(ctx, input) {
			return nil
		}
	}
}

// handleLine processes one input line and reports whether to quit.
func (r *repl) handleLine(ctx context.Context, input string) bool {
	input = strings.TrimSpace(input)
	if input == "" {
		return false
	}

	if strings.HasPrefix(input, "/") {
		quit, err := r.handleCommand(input)
		if err != nil {
			fmt.Fprintln(r.out, ErrorStyle.Render("[Error]"), err)
		}
		return quit
	}
	if strings.EqualFold(input, "exit") || strings.EqualFold(input, "quit") {
		return true
	}

	r.send(ctx, input)
	return false
}

// send runs one turn and prints the reply or the error.
func (r *repl) send(ctx context.Context, prompt string) {
	fmt.Fprintln(r.out, DimStyle.Render("Thinking..."))

	turn, err := r.session.Submit(ctx, prompt)
	if err != nil {
		fmt.Fprintln(r.out, ErrorStyle.Render("[Error]"), err)
		return
	}
	if r.session.Settings().Debug {
		printExchange(r.out, turn.Exchange)
	}
	if turn.Failed() {
		fmt.Fprintln(r.out, ErrorStyle.Render(turn.Err.Error()))
		return
	}
	fmt.Fprintln(r.out, AssistantStyle.Render("Assistant:"))
	fmt.Fprintln(r.out, r.render(turn.Reply))
}

// =============================================================================
// SLASH COMMANDS
// =============================================================================

const replHelp = `Commands:
  /clear            Clear the chat history
  /model [name]     Show or set the model
  /temp [value]     Show or set the temperature (0.0-1.0)
  /tokens [n]       Show or set max tokens (100-2000)
  /debug            Toggle debug mode
  /settings         Show the current settings
  /logs [n]         Show the last n log lines (default 10)
  /export [format]  Save the transcript (markdown, json, html)
  /copy             Copy the last reply to the clipboard
  /help             Show this help
  /quit             Exit`

// handleCommand runs a slash command and reports whether to quit.
func (r *repl) handleCommand(input string) (bool, error) {
	fields := strings.Fields(input)
	name, args := strings.ToLower(fields[0]), fields[1:]
	arg := ""
	if len(args) > 0 {
		arg = args[0]
	}

	switch name {
	case "/quit", "/exit", "/q":
		return true, nil

	case "/help", "/?":
		fmt.Fprintln(r.out, replHelp)

	case "/clear":
		if err := r.session.Clear(); err != nil {
			return false, err
		}
		fmt.Fprintln(r.out, SuccessStyle.Render("Chat history cleared."))

	case "/model":
		if arg == "" {
			current := r.session.Settings().Model
			for _, m := range model.Models {
				marker := "  "
				if m.ID == current {
					marker = "* "
				}
				fmt.Fprintf(r.out, "%s%s %s\n", marker, RenderLabel(m.ID), DimStyle.Render(m.Description))
			}
			return false, nil
		}
		return false, r.update(func(s *chat.Settings) { s.Model = arg })

	case "/temp", "/temperature":
		if arg == "" {
			fmt.Fprintf(r.out, "temperature %.1f\n", r.session.Settings().Temperature)
			return false, nil
		}
		t, err := strconv.ParseFloat(arg, 64)
		if err != nil {
			return false, fmt.Errorf("invalid temperature %q", arg)
		}
		return false, r.update(func(s *chat.Settings) { s.Temperature = t })

	case "/tokens", "/max-tokens":
		if arg == "" {
			fmt.Fprintf(r.out, "max tokens %d\n", r.session.Settings().MaxTokens)
			return false, nil
		}
		n, err := strconv.Atoi(arg)
		if err != nil {
			return false, fmt.Errorf("invalid token count %q", arg)
		}
		return false, r.update(func(s *chat.Settings) { s.MaxTokens = n })

	case "/debug":
		return false, r.update(func(s *chat.Settings) { s.Debug = !s.Debug })

	case "/settings":
		r.printSettings()

	case "/logs":
		n := 10
		if arg != "" {
			v, err := strconv.Atoi(arg)
			if err != nil || v < 1 {
				return false, fmt.Errorf("invalid line count %q", arg)
			}
			n = v
		}
		return false, printLogs(r.out, r.logs, n)

	case "/export":
		return false, r.export(arg)

	case "/copy":
		last, ok := r.session.Transcript().LastOfRole(model.RoleAssistant)
		if !ok {
			return false, errors.New("nothing to copy yet")
		}
		if err := r.copy(last.Content); err != nil {
			return false, fmt.Errorf("clipboard unavailable: %w", err)
		}
		fmt.Fprintln(r.out, SuccessStyle.Render("Copied last reply to clipboard."))

	default:
		return false, fmt.Errorf("unknown command %s (try /help)", name)
	}
	return false, nil
}

// update applies a settings change and echoes the result.
func (r *repl) update(change func(*chat.Settings)) error {
	s := r.session.Settings()
	change(&s)
	if err := r.session.UpdateSettings(s); err != nil {
		return err
	}
	r.printSettings()
	return nil
}

func (r *repl) printSettings() {
	s := r.session.Settings()
	fmt.Fprintf(r.out, "%s %s\n", RenderLabel("model"), s.Model)
	fmt.Fprintf(r.out, "%s %.1f\n", RenderLabel("temperature"), s.Temperature)
	fmt.Fprintf(r.out, "%s %d\n", RenderLabel("max tokens"), s.MaxTokens)
	fmt.Fprintf(r.out, "%s %t\n", RenderLabel("debug"), s.Debug)
	fmt.Fprintf(r.out, "%s %s\n", RenderLabel("endpoint"), s.Endpoint)
}

func (r *repl) export(format string) error {
	exporter, err := export.ForFormat(format, nil)
	if err != nil {
		return err
	}
	opts := export.DefaultOptions()
	opts.OutputDir = r.exportDir

	doc := export.NewDocument(r.session.Messages(), r.session.Settings().Model)
	path, err := export.ExportToFile(doc, exporter, opts)
	if err != nil {
		return err
	}
	fmt.Fprintln(r.out, SuccessStyle.Render("Saved "+path))
	return nil
}

// printLogs writes the last n log lines, or a note when there are none.
func printLogs(w io.Writer, logs logTail, n int) error {
	lines, err := logs.Tail(n)
	if errors.Is(err, logging.ErrNoLogs) || (err == nil && len(lines) == 0) {
		fmt.Fprintln(w, DimStyle.Render("No logs available yet"))
		return nil
	}
	if err != nil {
		return fmt.Errorf("error reading logs: %w", err)
	}
	for _, line := range lines {
		fmt.Fprintln(w, line)
	}
	return nil
}

// markdownRenderer renders replies with glamour on a color terminal and
// word-wraps them otherwise.
func markdownRenderer() func(string) string {
	width := GetTerminalWidth()
	wrap := func(s string) string { return WrapText(s, width) }
	if !ColorsEnabled() {
		return wrap
	}
	r, err := glamour.NewTermRenderer(
		glamour.WithAutoStyle(),
		glamour.WithWordWrap(width-4),
	)
	if err != nil {
		return wrap
	}
	return func(s string) string {
		out, err := r.Render(s)
		if err != nil {
			return wrap(s)
		}
		return strings.TrimRight(out, "\n")
	}
}
