package registry

import (
	"encoding/json"
	"os"
	"time"

	"github.com/google/uuid"

	"github.com/ndokutovich/agentlog/internal/core/universal"
)

// NewSource builds a Source for a configured root. The id is a fresh UUID;
// availability and health are derived immediately via RevalidateSource.
func (r *Registry) NewSource(name, path, providerID string, isDefault bool) universal.Source {
	src := universal.Source{
		ID:             uuid.NewString(),
		Name:           name,
		Path:           path,
		ProviderID:     providerID,
		IsDefault:      isDefault,
		AddedAt:        time.Now().UTC().Format(time.RFC3339),
		ProviderConfig: map[string]json.RawMessage{},
	}
	r.RevalidateSource(&src)
	return src
}

// RevalidateSource re-derives IsAvailable, HealthStatus, and ValidationError
// from the current state of the path. Health is offline when the path is
// gone, degraded when the layout fails the adapter's structural validation,
// healthy otherwise.
func (r *Registry) RevalidateSource(src *universal.Source) {
	src.LastValidation = time.Now().UTC().Format(time.RFC3339)
	src.ValidationError = ""

	info, err := os.Stat(src.Path)
	if err != nil || !info.IsDir() {
		src.IsAvailable = false
		src.HealthStatus = universal.HealthOffline
		if err != nil {
			src.ValidationError = err.Error()
		} else {
			src.ValidationError = "source path is not a directory"
		}
		return
	}

	src.IsAvailable = true
	src.HealthStatus = universal.HealthHealthy

	p, ok := r.Get(src.ProviderID)
	if !ok {
		src.HealthStatus = universal.HealthDegraded
		src.ValidationError = "no adapter registered for provider " + src.ProviderID
		return
	}

	res := p.Validate(src.Path)
	if !res.IsValid {
		src.HealthStatus = universal.HealthDegraded
		if len(res.Errors) > 0 {
			src.ValidationError = res.Errors[0]
		}
	}
}
