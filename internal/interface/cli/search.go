package cli

import (
	"fmt"
	"sync"
	"unicode"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/ndokutovich/agentlog/internal/core/provider"
	"github.com/ndokutovich/agentlog/internal/core/universal"
)

var (
	searchSource    string
	searchType      string
	searchToolCalls bool
	searchLimit     int
)

var searchCmd = &cobra.Command{
	Use:   "search <query>",
	Short: "Search message content across sources",
	Long: `Search message text across every source that supports it.

Sources whose provider does not support search (Codex) are skipped with a
note rather than failing the whole command.

Examples:
  agentlog search "database migration"
  agentlog search --source cursor --tool-calls "fix the test"`,
	Args: cobra.ExactArgs(1),
	RunE: runSearch,
}

func init() {
	rootCmd.AddCommand(searchCmd)
	searchCmd.Flags().StringVar(&searchSource, "source", "", "Limit to one source (name or provider id)")
	searchCmd.Flags().StringVar(&searchType, "type", "", "Filter by message type (message, sidechain, summary)")
	searchCmd.Flags().BoolVar(&searchToolCalls, "tool-calls", false, "Only messages with tool calls")
	searchCmd.Flags().IntVar(&searchLimit, "limit", 20, "Maximum number of hits per source")
}

func runSearch(cmd *cobra.Command, args []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.Close()

	sources, err := a.sourcesFor(searchSource)
	if err != nil {
		return err
	}

	query := provider.SearchQuery{Query: args[0], Limit: searchLimit, HasToolCalls: searchToolCalls}
	if searchType != "" {
		query.MessageType = universal.ParseMessageType(searchType)
	}

	type searchOutcome struct {
		source  universal.Source
		hits    []universal.Message
		total   int
		skipped string
		problem *universal.ResultError
	}

	var mu sync.Mutex
	var outcomes []searchOutcome

	var g errgroup.Group
	g.SetLimit(5)
	for _, src := range sources {
		src := src
		g.Go(func() error {
			out := searchOutcome{source: src}
			defer func() {
				mu.Lock()
				outcomes = append(outcomes, out)
				mu.Unlock()
			}()

			if !src.IsAvailable {
				out.skipped = "source unavailable"
				return nil
			}
			p, aerr := a.adapterFor(src)
			if aerr != nil {
				out.skipped = aerr.Error()
				return nil
			}
			if !p.Definition().Capabilities.SupportsSearch {
				out.skipped = "provider does not support search"
				return nil
			}

			res := p.SearchMessages(src.Path, src.ID, query)
			if !res.Success {
				out.problem = res.Error
				return nil
			}
			out.hits = res.Data
			out.total = res.TotalMatches
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	found := 0
	for _, o := range outcomes {
		switch {
		case o.skipped != "":
			fmt.Println(dimStyle.Render(fmt.Sprintf("%s: skipped (%s)", o.source.Name, o.skipped)))
			continue
		case o.problem != nil:
			fmt.Printf("%s: %s %s\n", o.source.Name, errStyle.Render("["+string(o.problem.Code)+"]"), o.problem.Message)
			continue
		case len(o.hits) == 0:
			continue
		}

		fmt.Println(headerStyle.Render(fmt.Sprintf("%s — %d match(es)", o.source.Name, o.total)))
		for _, m := range o.hits {
			found++
			text := truncateLine(messageText(m), 100)
			text = highlightMatch(text, args[0])
			fmt.Printf("    [%s] %s\n", m.Role, text)
			fmt.Printf("        session %s  %s\n", m.SessionID, dimStyle.Render(formatWhen(m.Timestamp)))
		}
		fmt.Println()
	}

	if found == 0 {
		fmt.Println("No matches.")
	}
	return nil
}

func highlightMatch(text, query string) string {
	start, end := indexFold(text, query)
	if start < 0 {
		return text
	}
	return text[:start] + headerStyle.Underline(true).Render(text[start:end]) + text[end:]
}

// indexFold locates the first case-insensitive occurrence of query in text
// and returns byte offsets into text. Matching is rune by rune, so the
// offsets always land on rune boundaries even when case folding changes a
// rune's encoded length.
func indexFold(text, query string) (int, int) {
	q := []rune(query)
	if len(q) == 0 {
		return -1, -1
	}
	for j := range q {
		q[j] = unicode.ToLower(q[j])
	}

	t := []rune(text)
	for i := 0; i+len(q) <= len(t); i++ {
		match := true
		for j := range q {
			if unicode.ToLower(t[i+j]) != q[j] {
				match = false
				break
			}
		}
		if match {
			start := len(string(t[:i]))
			return start, start + len(string(t[i:i+len(q)]))
		}
	}
	return -1, -1
}
