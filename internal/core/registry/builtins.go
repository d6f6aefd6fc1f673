package registry

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/ndokutovich/agentlog/internal/core/provider"
)

// RegisterBuiltins registers the given adapters, tolerating individual
// failures: an adapter that panics during registration or Initialize is
// logged as a warning and left out. It returns an error only when zero
// adapters registered successfully, since that leaves the caller with no
// usable provider at all.
func (r *Registry) RegisterBuiltins(adapters []provider.Provider) error {
	registered := 0
	for _, p := range adapters {
		if err := r.tryRegister(p); err != nil {
			r.log.Warn("skipping built-in provider", zap.Error(err))
			continue
		}
		registered++
	}
	if registered == 0 {
		return fmt.Errorf("registry: no built-in provider registered successfully")
	}
	return nil
}

func (r *Registry) tryRegister(p provider.Provider) (err error) {
	defer func() {
		if rec := recover(); rec != nil {
			err = fmt.Errorf("provider registration failed: %v", rec)
		}
	}()
	r.Register(p)
	return nil
}
