// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"errors"
	"fmt"
	"io"
	"os"
	"slices"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/jeranaias/localchat/internal/chat"
	"github.com/jeranaias/localchat/internal/ollama"
)

// =============================================================================
// MODEL FLAGS
// =============================================================================

// modelFlags override the configured session settings for one run.
type modelFlags struct {
	model       string
	temperature float64
	maxTokens   int
	debug       bool
}

func (f *modelFlags) bind(cmd *cobra.Command) {
	fs := cmd.Flags()
	fs.StringVarP(&f.model, "model", "m", "", "Model: llama2, mistral or codellama")
	fs.Float64VarP(&f.temperature, "temperature", "t", 0, "Sampling temperature, 0.0-1.0")
	fs.IntVar(&f.maxTokens, "max-tokens", 0, "Token limit, 100-2000")
	fs.BoolVar(&f.debug, "debug", false, "Show the raw request and response")
}

// apply returns s with every flag the user actually set.
func (f *modelFlags) apply(cmd *cobra.Command, s chat.Settings) chat.Settings {
	fs := cmd.Flags()
	if fs.Changed("model") {
		s.Model = f.model
	}
	if fs.Changed("temperature") {
		s.Temperature = f.temperature
	}
	if fs.Changed("max-tokens") {
		s.MaxTokens = f.maxTokens
	}
	if fs.Changed("debug") {
		s.Debug = f.debug
	}
	return s
}

// =============================================================================
// ASK COMMAND
// =============================================================================

func newAskCmd(g *globalOptions) *cobra.Command {
	flags := &modelFlags{}
	cmd := &cobra.Command{
		Use:   "ask [prompt]",
		Short: "Send a single prompt and print the reply",
		Long: `Send one prompt to the model and print the reply to stdout.

The prompt is taken from the arguments, or from stdin when no arguments are
given. Errors are printed to stderr and the exit status is non-zero.`,
		Example: `  localchat ask "Explain goroutines"
  localchat ask -m codellama "Write a Go HTTP handler"
  cat notes.txt | localchat ask`,
		RunE: func(cmd *cobra.Command, args []string) error {
			prompt, err := readPrompt(cmd, args)
			if err != nil {
				return err
			}
			return runAsk(cmd, g, flags, prompt)
		},
	}
	flags.bind(cmd)
	return cmd
}

// readPrompt joins the arguments, or reads stdin when it is not a terminal.
func readPrompt(cmd *cobra.Command, args []string) (string, error) {
	if len(args) > 0 {
		return strings.Join(args, " "), nil
	}
	in := cmd.InOrStdin()
	if f, ok := in.(*os.File); ok && isTerminal(f) {
		return "", nil
	}
	data, err := io.ReadAll(in)
	if err != nil {
		return "", fmt.Errorf("failed to read stdin: %w", err)
	}
	return strings.TrimRight(string(data), "\r\n"), nil
}

func runAsk(cmd *cobra.Command, g *globalOptions, flags *modelFlags, prompt string) error {
	app, err := newApp(g, appOptions{})
	if err != nil {
		return err
	}
	defer app.Close()

	sess := app.Sessions.Create()
	if err := sess.UpdateSettings(flags.apply(cmd, sess.Settings())); err != nil {
		return err
	}

	turn, err := sess.Submit(cmd.Context(), prompt)
	if errors.Is(err, chat.ErrEmptyPrompt) {
		return errors.New("no prompt given (pass it as an argument or on stdin)")
	}
	if err != nil {
		return err
	}

	if sess.Settings().Debug {
		printExchange(cmd.ErrOrStderr(), turn.Exchange)
	}
	if turn.Failed() {
		return turn.Err
	}

	fmt.Fprintln(cmd.OutOrStdout(), turn.Reply)
	return nil
}

// printExchange writes the debug echo of one model call.
func printExchange(w io.Writer, ex *ollama.Exchange) {
	if ex == nil {
		return
	}
	fmt.Fprintln(w, DimStyle.Render("Debug: POST "+ex.Endpoint))
	fmt.Fprintln(w, ex.RequestBody)
	if ex.StatusCode == 0 {
		return
	}
	fmt.Fprintln(w, DimStyle.Render(fmt.Sprintf("Response status: %d (%s)", ex.StatusCode, ex.Duration.Round(time.Millisecond))))

	keys := make([]string, 0, len(ex.Headers))
	for k := range ex.Headers {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	for _, k := range keys {
		fmt.Fprintf(w, "%s %s\n", RenderLabel(k+":"), strings.Join(ex.Headers[k], ", "))
	}
}
