package main

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"

	"govassist/app/service/conversation"
	"govassist/app/service/session"

	"github.com/charmbracelet/lipgloss"
	"github.com/samber/do"
	"github.com/spf13/cobra"
)

var chatCmd = &cobra.Command{
	Use:   "chat",
	Short: "Talk to the assistant in the terminal",
	Long: `Start an interactive conversation on stdin.

Type a question and press enter. Commands:
  /summary - Show what the assistant remembers
  /quit    - Leave the conversation`,
	RunE: runChat,
}

var (
	promptStyle     = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("12"))
	replyStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("15"))
	emergencyStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("9"))
	suggestionStyle = lipgloss.NewStyle().Faint(true).Italic(true)
)

func runChat(cmd *cobra.Command, _ []string) error {
	di, appCtx, shutdown, err := setup()
	if err != nil {
		return err
	}
	defer shutdown()

	sessions, err := do.Invoke[*session.Service](di)
	if err != nil {
		return err
	}

	info, err := sessions.Create()
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	lines := readLines(os.Stdin)

	fmt.Fprintln(out, replyStyle.Render("Hello! Ask me about city services, permits, bills or reports."))

	for {
		fmt.Fprint(out, promptStyle.Render("> "))

		var (
			line string
			ok   bool
		)
		select {
		case <-appCtx.Done():
			return nil
		case line, ok = <-lines:
			if !ok {
				return nil
			}
		}

		text := strings.TrimSpace(line)
		switch text {
		case "":
			continue
		case "/quit", "/exit":
			return nil
		case "/summary":
			summary, err := sessions.Summary(info.ID)
			if err != nil {
				return err
			}
			printSummary(out, summary.Digest, summary.ActiveTopics)
			continue
		}

		result, err := sessions.Turn(appCtx, info.ID, text)
		if err != nil {
			return err
		}
		printTurn(out, result)
	}
}

// readLines feeds stdin lines to a channel so the prompt can also wait for a signal.
func readLines(in io.Reader) <-chan string {
	lines := make(chan string)

	go func() {
		defer close(lines)

		scanner := bufio.NewScanner(in)
		for scanner.Scan() {
			lines <- scanner.Text()
		}
	}()

	return lines
}

func printTurn(out io.Writer, result conversation.TurnResult) {
	style := replyStyle
	if result.Kind == conversation.KindEmergency {
		style = emergencyStyle
	}

	fmt.Fprintln(out, style.Render(result.Reply))

	for _, suggestion := range result.Suggestions {
		fmt.Fprintln(out, suggestionStyle.Render("  try: "+suggestion.Text))
	}
}

func printSummary(out io.Writer, digest string, topics []string) {
	if digest == "" {
		digest = "Nothing discussed yet."
	}

	fmt.Fprintln(out, replyStyle.Render(digest))
	if len(topics) > 0 {
		fmt.Fprintln(out, suggestionStyle.Render("  topics: "+strings.Join(topics, ", ")))
	}
}
