package config

import (
	"os"
	"path/filepath"
	"runtime"

	"github.com/BurntSushi/toml"
)

// Source is one configured log location.
type Source struct {
	Path     string `toml:"path"`
	Provider string `toml:"provider"` // adapter id; empty means auto-detect
	Name     string `toml:"name"`
	Default  bool   `toml:"default"`
}

type Config struct {
	Sources []Source `toml:"sources"`
}

// Load reads config from ~/.config/agentlog/config.toml. A missing file is
// not an error: well-known provider locations are used instead.
func Load() (*Config, error) {
	cfg := &Config{}

	home, err := os.UserHomeDir()
	if err != nil {
		return cfg, nil // Use defaults
	}

	tomlPath := filepath.Join(home, ".config", "agentlog", "config.toml")
	if _, err := os.Stat(tomlPath); err == nil {
		if _, err := toml.DecodeFile(tomlPath, cfg); err != nil {
			return nil, err
		}
	}

	if len(cfg.Sources) == 0 {
		cfg.Sources = defaultSources(home)
	}

	return cfg, nil
}

// defaultSources lists the standard install locations of each supported
// tool, keeping only the ones that exist.
func defaultSources(home string) []Source {
	candidates := []Source{
		{Path: filepath.Join(home, ".claude"), Provider: "claude-code", Name: "Claude Code", Default: true},
		{Path: cursorRoot(home), Provider: "cursor", Name: "Cursor"},
		{Path: filepath.Join(home, ".gemini"), Provider: "gemini", Name: "Gemini CLI"},
		{Path: filepath.Join(home, ".codex"), Provider: "codex", Name: "Codex CLI"},
	}

	var sources []Source
	for _, c := range candidates {
		if c.Path == "" {
			continue
		}
		if _, err := os.Stat(c.Path); err != nil {
			continue
		}
		sources = append(sources, c)
	}
	return sources
}

// cursorRoot is platform dependent: Cursor keeps its state under the OS
// application-support directory rather than a dotfile.
func cursorRoot(home string) string {
	switch runtime.GOOS {
	case "darwin":
		return filepath.Join(home, "Library", "Application Support", "Cursor")
	case "windows":
		if appData := os.Getenv("APPDATA"); appData != "" {
			return filepath.Join(appData, "Cursor")
		}
		return ""
	default:
		return filepath.Join(home, ".config", "Cursor")
	}
}
