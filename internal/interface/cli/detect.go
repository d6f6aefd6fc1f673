package cli

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"
)

var detectCmd = &cobra.Command{
	Use:   "detect <path>",
	Short: "Detect which provider owns a directory",
	Long: `Probe a directory against every registered provider and report the
detection verdicts, best match first.

Examples:
  agentlog detect ~/.claude
  agentlog detect ~/Library/Application\ Support/Cursor`,
	Args: cobra.ExactArgs(1),
	RunE: runDetect,
}

func init() {
	rootCmd.AddCommand(detectCmd)
}

func runDetect(cmd *cobra.Command, args []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.Close()

	path, err := filepath.Abs(args[0])
	if err != nil {
		return fmt.Errorf("invalid path: %w", err)
	}

	matches := a.reg.DetectAll(path)
	if len(matches) == 0 {
		fmt.Printf("No provider recognizes %s\n", path)
		return nil
	}

	fmt.Println(headerStyle.Render(fmt.Sprintf("Detection results for %s", path)))
	fmt.Println()
	for i, m := range matches {
		marker := "   "
		if i == 0 {
			marker = okStyle.Render(" * ")
		}
		matched := len(m.Score.MatchedPatterns)
		total := matched + len(m.Score.MissingPatterns)
		fmt.Printf("%s%s  confidence %d%%  (matched %d/%d patterns)\n",
			marker,
			providerTint.Render(m.ProviderID),
			m.Score.Confidence,
			matched, total,
		)
	}
	return nil
}
