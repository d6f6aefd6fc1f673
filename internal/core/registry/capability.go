package registry

import (
	"fmt"

	"github.com/ndokutovich/agentlog/internal/core/provider"
	"github.com/ndokutovich/agentlog/internal/core/universal"
)

// SupportCheck is the verdict of a capability check. Reason is human-legible
// and used directly for UI messaging.
type SupportCheck struct {
	IsSupported bool
	Reason      string
	Adapter     provider.Provider
}

// CheckSessionCreationSupport reports whether new sessions can be created on
// the given source. This, together with its sibling checks, is the single
// point of truth for write-eligibility; no other code path may re-derive it.
func (r *Registry) CheckSessionCreationSupport(src universal.Source) SupportCheck {
	return r.checkWriteCapability(src, func(c provider.Capabilities) bool {
		return c.SupportsSessionCreation
	}, "session creation")
}

// CheckProjectCreationSupport reports whether new projects can be created on
// the given source.
func (r *Registry) CheckProjectCreationSupport(src universal.Source) SupportCheck {
	return r.checkWriteCapability(src, func(c provider.Capabilities) bool {
		return c.SupportsProjectCreation
	}, "project creation")
}

// CheckMessageAppendingSupport reports whether messages can be appended to
// sessions on the given source.
func (r *Registry) CheckMessageAppendingSupport(src universal.Source) SupportCheck {
	return r.checkWriteCapability(src, func(c provider.Capabilities) bool {
		return c.SupportsMessageAppend
	}, "message appending")
}

// checkWriteCapability is the one shared algorithm: source available, adapter
// registered, provider not read-only, specific flag set.
func (r *Registry) checkWriteCapability(src universal.Source, flag func(provider.Capabilities) bool, what string) SupportCheck {
	if !src.IsAvailable {
		return SupportCheck{Reason: "Source is not available"}
	}

	p, ok := r.Get(src.ProviderID)
	if !ok {
		return SupportCheck{Reason: fmt.Sprintf("No adapter registered for provider %q", src.ProviderID)}
	}

	caps := p.Definition().Capabilities
	if caps.IsReadOnly {
		return SupportCheck{Reason: "Provider is read-only", Adapter: p}
	}
	if !flag(caps) {
		return SupportCheck{Reason: fmt.Sprintf("Provider does not support %s", what), Adapter: p}
	}

	return SupportCheck{IsSupported: true, Adapter: p}
}
