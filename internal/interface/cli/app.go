package cli

import (
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/ndokutovich/agentlog/internal/core/config"
	"github.com/ndokutovich/agentlog/internal/core/provider"
	"github.com/ndokutovich/agentlog/internal/core/providers/claude"
	"github.com/ndokutovich/agentlog/internal/core/providers/codex"
	"github.com/ndokutovich/agentlog/internal/core/providers/cursor"
	"github.com/ndokutovich/agentlog/internal/core/providers/gemini"
	"github.com/ndokutovich/agentlog/internal/core/registry"
	"github.com/ndokutovich/agentlog/internal/core/universal"
)

// app wires the registry and configured sources for one command invocation.
type app struct {
	log      *zap.Logger
	reg      *registry.Registry
	resolver *gemini.HashResolver
	sources  []universal.Source
}

func newApp() (*app, error) {
	log := newLogger()

	resolver := gemini.NewHashResolver()
	reg := registry.New(log)
	err := reg.RegisterBuiltins([]provider.Provider{
		claude.New(log),
		cursor.New(log),
		gemini.New(log, resolver),
		codex.New(log),
	})
	if err != nil {
		return nil, err
	}

	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	a := &app{log: log, reg: reg, resolver: resolver}
	for _, s := range cfg.Sources {
		providerID := s.Provider
		if providerID == "" {
			providerID = reg.DetectProvider(s.Path)
			if providerID == "" {
				log.Warn("no provider detected for source", zap.String("path", s.Path))
				continue
			}
		}
		name := s.Name
		if name == "" {
			name = providerID
		}
		a.sources = append(a.sources, reg.NewSource(name, s.Path, providerID, s.Default))
	}

	a.seedResolver()
	return a, nil
}

func (a *app) Close() {
	_ = a.log.Sync()
}

// seedResolver teaches the gemini hash resolver the working directories seen
// in other providers' sessions, so gemini project hashes can be mapped back
// to readable paths. Best effort; unresolved hashes stay as hex.
func (a *app) seedResolver() {
	var hasGemini bool
	for _, src := range a.sources {
		if src.ProviderID == gemini.ProviderID {
			hasGemini = true
		}
	}
	if !hasGemini {
		return
	}

	for _, src := range a.sources {
		if src.ProviderID != claude.ProviderID || !src.IsAvailable {
			continue
		}
		p, ok := a.reg.Get(src.ProviderID)
		if !ok {
			continue
		}
		scan := p.ScanProjects(src.Path, src.ID)
		if !scan.Success {
			continue
		}
		for _, proj := range scan.Data {
			load := p.LoadSessions(src.Path, src.ID, proj.ID)
			if load.Success {
				a.resolver.SeedFromSessions(load.Data)
			}
		}
	}
}

// sourcesFor filters the configured sources by name or provider id. An empty
// selector keeps everything.
func (a *app) sourcesFor(selector string) ([]universal.Source, error) {
	if selector == "" {
		return a.sources, nil
	}
	var out []universal.Source
	for _, src := range a.sources {
		if src.Name == selector || src.ProviderID == selector {
			out = append(out, src)
		}
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("no configured source matches %q", selector)
	}
	return out, nil
}

// pickSource chooses the source a session path belongs to: an explicit
// selector wins, then the source whose root contains the path, then the
// default source, then the first one.
func (a *app) pickSource(selector, sessionPath string) (universal.Source, provider.Provider, error) {
	if selector != "" {
		matches, err := a.sourcesFor(selector)
		if err != nil {
			return universal.Source{}, nil, err
		}
		p, err := a.adapterFor(matches[0])
		return matches[0], p, err
	}

	var chosen *universal.Source
	for i := range a.sources {
		src := &a.sources[i]
		if strings.HasPrefix(sessionPath, src.Path) {
			chosen = src
			break
		}
		if chosen == nil && src.IsDefault {
			chosen = src
		}
	}
	if chosen == nil {
		if len(a.sources) == 0 {
			return universal.Source{}, nil, fmt.Errorf("no sources configured")
		}
		chosen = &a.sources[0]
	}

	p, err := a.adapterFor(*chosen)
	return *chosen, p, err
}

// adapterFor returns the registered adapter backing a source.
func (a *app) adapterFor(src universal.Source) (provider.Provider, error) {
	p, ok := a.reg.Get(src.ProviderID)
	if !ok {
		return nil, fmt.Errorf("no adapter registered for provider %q", src.ProviderID)
	}
	return p, nil
}
