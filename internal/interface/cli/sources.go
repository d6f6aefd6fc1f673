package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ndokutovich/agentlog/internal/core/universal"
)

var sourcesCmd = &cobra.Command{
	Use:   "sources",
	Short: "List configured log sources and their health",
	Long: `List every configured source with its provider, path, health status,
and write capabilities.

Sources come from ~/.config/agentlog/config.toml; without a config file the
standard install locations of each supported tool are used.`,
	RunE: runSources,
}

func init() {
	rootCmd.AddCommand(sourcesCmd)
}

func runSources(cmd *cobra.Command, args []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.Close()

	if len(a.sources) == 0 {
		fmt.Println("No sources configured and no supported tools found.")
		return nil
	}

	for _, src := range a.sources {
		fmt.Printf("%s %s\n", healthBadge(src.HealthStatus), headerStyle.Render(src.Name))
		fmt.Printf("    Provider: %s\n", providerTint.Render(src.ProviderID))
		fmt.Printf("    Path:     %s\n", src.Path)
		if src.IsDefault {
			fmt.Printf("    Default:  yes\n")
		}
		if src.ValidationError != "" {
			fmt.Printf("    Problem:  %s\n", errStyle.Render(src.ValidationError))
		}

		check := a.reg.CheckSessionCreationSupport(src)
		if check.IsSupported {
			fmt.Printf("    Writes:   %s\n", okStyle.Render("supported"))
		} else {
			fmt.Printf("    Writes:   %s\n", dimStyle.Render(check.Reason))
		}
		fmt.Println()
	}
	return nil
}

func healthBadge(h universal.HealthStatus) string {
	switch h {
	case universal.HealthHealthy:
		return okStyle.Render("[ok]")
	case universal.HealthDegraded:
		return warnStyle.Render("[degraded]")
	case universal.HealthOffline:
		return errStyle.Render("[offline]")
	default:
		return dimStyle.Render("[unknown]")
	}
}
