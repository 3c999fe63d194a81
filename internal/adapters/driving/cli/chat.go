package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/charmbracelet/x/ansi"
	"github.com/spf13/cobra"

	"github.com/custodia-labs/ragsample/internal/adapters/driving/tui"
	"github.com/custodia-labs/ragsample/internal/core/ports/driving"
)

// wrapWidth is the column answers are wrapped at in plain output.
const wrapWidth = 120

var chatPlain bool

var chatCmd = &cobra.Command{
	Use:   "chat",
	Short: "Start a conversation",
	Long: `Starts a conversation that remembers the last chat.memory messages.

By default an interactive terminal UI is opened:
  enter    - Ask
  ctrl+r   - Start a new conversation
  pgup/dn  - Scroll
  esc      - Quit

With --plain questions are read line by line from stdin; "exit" quits.`,
	Args: cobra.NoArgs,
	RunE: runChat,
}

func init() {
	chatCmd.Flags().BoolVar(&chatPlain, "plain", false, "read questions line by line instead of opening the TUI")
	rootCmd.AddCommand(chatCmd)
}

func runChat(cmd *cobra.Command, _ []string) error {
	svc, err := loadServices(cmd.Context())
	if err != nil {
		return err
	}
	if svc.Chat == nil {
		return errors.New("chat service not configured")
	}

	if chatPlain {
		return chatLoop(cmd, svc.Chat.NewSession())
	}

	app, err := tui.NewApp(&tui.Ports{Chat: svc.Chat})
	if err != nil {
		return fmt.Errorf("failed to create TUI: %w", err)
	}
	if err := app.WithContext(cmd.Context()).Run(); err != nil {
		return fmt.Errorf("TUI error: %w", err)
	}
	return nil
}

// chatLoop answers one question per input line until "exit" or end of input.
func chatLoop(cmd *cobra.Command, session driving.ChatSession) error {
	ctx := cmd.Context()
	scanner := bufio.NewScanner(cmd.InOrStdin())
	cmd.Println(`Ask a question, or type "exit" to quit.`)

	for {
		cmd.Print("> ")
		if !scanner.Scan() {
			cmd.Println()
			return scanner.Err()
		}

		question := strings.TrimSpace(scanner.Text())
		switch {
		case question == "":
			continue
		case strings.EqualFold(question, "exit"):
			return nil
		}

		answer, err := session.Ask(ctx, question)
		if err != nil {
			if errors.Is(err, context.Canceled) {
				return nil
			}
			cmd.PrintErrf("Error: %v\n", err)
			continue
		}
		cmd.Println(wrap(answer.Text))
		cmd.Println()
	}
}

func wrap(text string) string {
	return ansi.Wordwrap(text, wrapWidth, "")
}
