package cli

import (
	"encoding/json"
	"fmt"
	"sort"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/ndokutovich/agentlog/internal/core/universal"
)

var (
	sessionsSource  string
	sessionsProject string
	sessionsLimit   int
)

var sessionsCmd = &cobra.Command{
	Use:   "sessions",
	Short: "List sessions, newest first",
	Long: `List sessions across sources in reverse chronological order.

Examples:
  agentlog sessions
  agentlog sessions --project -Users-alice-dev-myapp
  agentlog sessions --source cursor --limit 10`,
	RunE: runSessions,
}

func init() {
	rootCmd.AddCommand(sessionsCmd)
	sessionsCmd.Flags().StringVar(&sessionsSource, "source", "", "Limit to one source (name or provider id)")
	sessionsCmd.Flags().StringVar(&sessionsProject, "project", "", "Filter by project id")
	sessionsCmd.Flags().IntVar(&sessionsLimit, "limit", 20, "Maximum number of sessions to display")
}

func runSessions(cmd *cobra.Command, args []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.Close()

	sources, err := a.sourcesFor(sessionsSource)
	if err != nil {
		return err
	}

	var sessions []universal.Session
	var warnings []string
	for _, src := range sources {
		if !src.IsAvailable {
			continue
		}
		p, aerr := a.adapterFor(src)
		if aerr != nil {
			continue
		}

		scan := p.ScanProjects(src.Path, src.ID)
		if !scan.Success {
			warnings = append(warnings, fmt.Sprintf("%s: %s", src.Name, scan.Error.Message))
			continue
		}
		for _, proj := range scan.Data {
			if sessionsProject != "" && proj.ID != sessionsProject {
				continue
			}
			load := p.LoadSessions(src.Path, src.ID, proj.ID)
			if !load.Success {
				warnings = append(warnings, fmt.Sprintf("%s/%s: %s", src.Name, proj.Name, load.Error.Message))
				continue
			}
			warnings = append(warnings, load.Warnings...)
			sessions = append(sessions, load.Data...)
		}
	}

	sortSessionsDesc(sessions)
	if len(sessions) > sessionsLimit {
		sessions = sessions[:sessionsLimit]
	}

	if len(sessions) == 0 {
		fmt.Println("No sessions found.")
		return nil
	}

	fmt.Printf("Showing %d session(s)\n\n", len(sessions))
	for i, s := range sessions {
		fmt.Printf("[%d] %s %s\n", i+1, providerTint.Render(s.ProviderID), s.ID)
		fmt.Printf("    Title:    %s\n", truncateLine(s.Title, 80))
		if s.ErrorCount == universal.ErrorCountUnknown {
			fmt.Printf("    Messages: %d\n", s.MessageCount)
		} else {
			fmt.Printf("    Messages: %d  Errors: %d\n", s.MessageCount, s.ErrorCount)
		}
		if size, ok := sessionFileSize(s); ok {
			fmt.Printf("    Size:     %s\n", humanize.Bytes(size))
		}
		fmt.Printf("    Updated:  %s\n", formatWhen(s.LastMessageAt))
		fmt.Println()
	}

	for _, w := range warnings {
		fmt.Println(warnStyle.Render("warning: ") + w)
	}
	return nil
}

func sortSessionsDesc(sessions []universal.Session) {
	sort.SliceStable(sessions, func(i, j int) bool {
		return sessions[i].LastMessageAt > sessions[j].LastMessageAt
	})
}

func sessionFileSize(s universal.Session) (uint64, bool) {
	raw, ok := s.Metadata["fileSizeBytes"]
	if !ok {
		return 0, false
	}
	var size uint64
	if err := json.Unmarshal(raw, &size); err != nil {
		return 0, false
	}
	return size, size > 0
}
