package cli

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/ndokutovich/agentlog/internal/core/provider"
	"github.com/ndokutovich/agentlog/internal/core/universal"
)

var (
	messagesSource     string
	messagesSession    string
	messagesLimit      int
	messagesOffset     int
	messagesDesc       bool
	messagesNoSide     bool
	messagesShowRaw    bool
	messagesShowTokens bool
)

var messagesCmd = &cobra.Command{
	Use:   "messages <session-path>",
	Short: "Show the messages of one session",
	Long: `Load and display the messages of a session.

The session path is provider-specific: for Claude Code and Gemini it is the
session file itself; for Cursor it is the source root combined with
--session-id (the composer id).

Examples:
  agentlog messages ~/.claude/projects/-Users-alice-dev-myapp/abc123.jsonl
  agentlog messages --source cursor --session-id 0a1b2c ~/Library/Application\ Support/Cursor
  agentlog messages --limit 50 --offset 100 session-2025.json`,
	Args: cobra.ExactArgs(1),
	RunE: runMessages,
}

func init() {
	rootCmd.AddCommand(messagesCmd)
	messagesCmd.Flags().StringVar(&messagesSource, "source", "", "Source to read through (name or provider id)")
	messagesCmd.Flags().StringVar(&messagesSession, "session-id", "", "Session id, for providers that need one")
	messagesCmd.Flags().IntVar(&messagesLimit, "limit", 100, "Maximum number of messages")
	messagesCmd.Flags().IntVar(&messagesOffset, "offset", 0, "Messages to skip from the start")
	messagesCmd.Flags().BoolVar(&messagesDesc, "desc", false, "Newest first")
	messagesCmd.Flags().BoolVar(&messagesNoSide, "no-sidechain", false, "Hide sidechain messages")
	messagesCmd.Flags().BoolVar(&messagesShowRaw, "raw", false, "Print the original provider record instead of formatted output")
	messagesCmd.Flags().BoolVar(&messagesShowTokens, "tokens", false, "Show token usage per message")
}

func runMessages(cmd *cobra.Command, args []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.Close()

	src, p, err := a.pickSource(messagesSource, args[0])
	if err != nil {
		return err
	}

	opts := provider.LoadOptions{
		Limit:            messagesLimit,
		Offset:           messagesOffset,
		ExcludeSidechain: messagesNoSide,
	}
	if messagesDesc {
		opts.SortOrder = provider.SortDesc
	}

	res := p.LoadMessages(args[0], src.ID, "", messagesSession, opts)
	if !res.Success {
		return formatResultError(res.Error)
	}

	for _, m := range res.Data {
		if messagesShowRaw {
			fmt.Println(m.OriginalFormat)
			continue
		}
		printMessage(m)
	}

	if res.Pagination.HasMore {
		fmt.Println(dimStyle.Render(fmt.Sprintf("-- %d of %d messages shown; continue with --offset %d",
			len(res.Data), res.Pagination.TotalCount, res.Pagination.NextOffset)))
	}
	for _, w := range res.Warnings {
		fmt.Println(warnStyle.Render("warning: ") + w)
	}
	return nil
}

func printMessage(m universal.Message) {
	role := string(m.Role)
	switch m.Role {
	case universal.RoleUser:
		role = roleUserSt.Render(role)
	case universal.RoleAssistant:
		role = roleAsstSt.Render(role)
	default:
		role = roleOtherSt.Render(role)
	}

	header := fmt.Sprintf("%s  %s", role, dimStyle.Render(formatWhen(m.Timestamp)))
	if m.MessageType == universal.TypeSidechain {
		header += dimStyle.Render("  [sidechain]")
	}
	fmt.Println(header)

	if text := messageText(m); text != "" {
		fmt.Println(indent(text, "    "))
	}
	for _, tc := range m.ToolCalls {
		fmt.Printf("    %s %s\n", dimStyle.Render("tool:"), tc.Name)
	}
	if messagesShowTokens && m.Tokens != nil {
		fmt.Println(dimStyle.Render(fmt.Sprintf("    tokens: %d in / %d out", m.Tokens.InputTokens, m.Tokens.OutputTokens)))
	}
	fmt.Println()
}

func messageText(m universal.Message) string {
	var sb strings.Builder
	for _, c := range m.Content {
		if c.Type != universal.ContentText {
			continue
		}
		var block struct {
			Text string `json:"text"`
		}
		if err := json.Unmarshal(c.Data, &block); err == nil && block.Text != "" {
			if sb.Len() > 0 {
				sb.WriteString("\n")
			}
			sb.WriteString(block.Text)
		}
	}
	return sb.String()
}

func indent(s, prefix string) string {
	lines := strings.Split(strings.TrimRight(s, "\n"), "\n")
	for i, l := range lines {
		lines[i] = prefix + l
	}
	return strings.Join(lines, "\n")
}

// formatResultError renders a structured failure with its recovery guidance.
func formatResultError(re *universal.ResultError) error {
	if re == nil {
		return fmt.Errorf("operation failed")
	}
	msg := fmt.Sprintf("[%s] %s", re.Code, re.Message)
	if re.Recoverable {
		msg += " (recoverable)"
	}
	if re.Retry != nil && re.Retry.ShouldRetry {
		msg += fmt.Sprintf(" (retryable, up to %d attempts)", re.Retry.MaxAttempts)
	}
	return fmt.Errorf("%s", msg)
}
