package cli

import (
	"fmt"
	"sync"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/ndokutovich/agentlog/internal/core/universal"
)

var projectsSource string

var projectsCmd = &cobra.Command{
	Use:   "projects",
	Short: "List projects across all sources",
	Long: `Scan every available source for projects.

Examples:
  agentlog projects
  agentlog projects --source claude-code`,
	RunE: runProjects,
}

func init() {
	rootCmd.AddCommand(projectsCmd)
	projectsCmd.Flags().StringVar(&projectsSource, "source", "", "Limit to one source (name or provider id)")
}

func runProjects(cmd *cobra.Command, args []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.Close()

	sources, err := a.sourcesFor(projectsSource)
	if err != nil {
		return err
	}

	type scanOutcome struct {
		source   universal.Source
		projects []universal.Project
		problem  *universal.ResultError
	}

	var mu sync.Mutex
	var outcomes []scanOutcome

	// Sources are independent; scan them concurrently but bounded so a pile
	// of configured roots does not fan out into unbounded disk traversal.
	var g errgroup.Group
	g.SetLimit(5)
	for _, src := range sources {
		src := src
		g.Go(func() error {
			if !src.IsAvailable {
				return nil
			}
			p, aerr := a.adapterFor(src)
			if aerr != nil {
				return nil
			}
			res := p.ScanProjects(src.Path, src.ID)
			mu.Lock()
			defer mu.Unlock()
			if res.Success {
				outcomes = append(outcomes, scanOutcome{source: src, projects: res.Data})
			} else {
				outcomes = append(outcomes, scanOutcome{source: src, problem: res.Error})
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	shown := 0
	for _, o := range outcomes {
		fmt.Println(headerStyle.Render(o.source.Name) + dimStyle.Render("  ("+o.source.Path+")"))
		if o.problem != nil {
			fmt.Printf("    %s %s\n\n", errStyle.Render("["+string(o.problem.Code)+"]"), o.problem.Message)
			continue
		}
		if len(o.projects) == 0 {
			fmt.Println(dimStyle.Render("    no projects"))
			fmt.Println()
			continue
		}
		for _, proj := range o.projects {
			shown++
			fmt.Printf("    %s\n", proj.Name)
			fmt.Printf("        ID: %s  Sessions: %d  Last activity: %s\n",
				proj.ID, proj.SessionCount, formatWhen(proj.LastActivityAt))
		}
		fmt.Println()
	}

	if shown == 0 {
		fmt.Println("No projects found.")
	}
	return nil
}
