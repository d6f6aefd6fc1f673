// Package registry owns the adapter collection: registration, lifecycle,
// auto-detection scoring, and capability gating. A Registry is an explicitly
// constructed instance passed to callers; there is no package-level global,
// so tests can run isolated registries in parallel.
package registry

import (
	"fmt"
	"sort"
	"sync"

	"go.uber.org/zap"

	"github.com/ndokutovich/agentlog/internal/core/provider"
)

// Registry holds registered adapters in registration order. Registration
// happens at startup; after that the map is read-mostly, mutated only by
// explicit Register/Dispose calls.
type Registry struct {
	mu       sync.RWMutex
	adapters map[string]provider.Provider
	order    []string
	log      *zap.Logger
}

// New creates an empty registry. A nil logger falls back to a no-op logger.
func New(log *zap.Logger) *Registry {
	if log == nil {
		log = zap.NewNop()
	}
	return &Registry{
		adapters: make(map[string]provider.Provider),
		order:    []string{},
		log:      log,
	}
}

// Register adds an adapter and initializes it. A duplicate provider id or an
// invalid definition is a programmer error and panics without mutating the
// registry.
func (r *Registry) Register(p provider.Provider) {
	def := p.Definition()
	if !def.Valid() {
		panic(fmt.Sprintf("registry: provider definition missing required fields: %+v", def))
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.adapters[def.ID]; exists {
		panic(fmt.Sprintf("registry: provider %q already registered", def.ID))
	}

	p.Initialize()
	r.adapters[def.ID] = p
	r.order = append(r.order, def.ID)
	r.log.Debug("registered provider", zap.String("provider", def.ID), zap.String("version", def.Version))
}

// Get returns the adapter for a provider id.
func (r *Registry) Get(providerID string) (provider.Provider, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.adapters[providerID]
	return p, ok
}

// List returns adapters in registration order.
func (r *Registry) List() []provider.Provider {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]provider.Provider, 0, len(r.order))
	for _, id := range r.order {
		out = append(out, r.adapters[id])
	}
	return out
}

// Dispose removes an adapter and releases its resources. Unknown ids are
// ignored.
func (r *Registry) Dispose(providerID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.adapters[providerID]
	if !ok {
		return
	}
	p.Dispose()
	delete(r.adapters, providerID)
	for i, id := range r.order {
		if id == providerID {
			r.order = append(r.order[:i], r.order[i+1:]...)
			break
		}
	}
}

// Detection pairs a provider id with its canHandle verdict.
type Detection struct {
	ProviderID string
	Score      provider.DetectionScore
}

// DetectProvider asks every adapter whether it can handle the path and
// returns the id of the best match, or "" when nobody claims it.
//
// Adapters are probed sequentially in registration order so the per-adapter
// verdict log comes out deterministic, and the sort below is stable so a
// confidence tie goes to the first-registered adapter.
func (r *Registry) DetectProvider(path string) string {
	matches := r.DetectAll(path)
	if len(matches) == 0 {
		return ""
	}
	return matches[0].ProviderID
}

// DetectAll returns every positive detection, best first.
func (r *Registry) DetectAll(path string) []Detection {
	var matches []Detection
	for _, p := range r.List() {
		id := p.Definition().ID
		score := p.CanHandle(path)
		r.log.Debug("detection verdict",
			zap.String("provider", id),
			zap.String("path", path),
			zap.Bool("canHandle", score.CanHandle),
			zap.Int("confidence", score.Confidence),
		)
		if score.CanHandle {
			matches = append(matches, Detection{ProviderID: id, Score: score})
		}
	}

	sort.SliceStable(matches, func(i, j int) bool {
		return matches[i].Score.Confidence > matches[j].Score.Confidence
	})
	return matches
}
