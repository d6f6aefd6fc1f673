package gemini

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"strings"

	"github.com/ndokutovich/agentlog/internal/core/universal"
)

// HashResolver maps a Gemini projectHash (SHA-256 of the normalized working
// directory) back to the actual path. Gemini session files only store the
// hash, so resolution is seeded from other providers' sessions that do carry
// a cwd.
type HashResolver struct {
	byHash map[string]string
}

// NewHashResolver creates an empty resolver.
func NewHashResolver() *HashResolver {
	return &HashResolver{byHash: make(map[string]string)}
}

// Resolve returns the working directory for a project hash, if known.
func (r *HashResolver) Resolve(hash string) (string, bool) {
	cwd, ok := r.byHash[hash]
	return cwd, ok
}

// Register records a known working directory.
func (r *HashResolver) Register(cwd string) {
	r.byHash[hashPath(cwd)] = cwd
}

// SeedFromSessions registers the cwd metadata of sessions from other
// providers.
func (r *HashResolver) SeedFromSessions(sessions []universal.Session) {
	for _, s := range sessions {
		raw, ok := s.Metadata["cwd"]
		if !ok {
			continue
		}
		var cwd string
		if err := json.Unmarshal(raw, &cwd); err == nil && cwd != "" {
			r.Register(cwd)
		}
	}
}

func hashPath(path string) string {
	normalized := strings.ToLower(strings.ReplaceAll(path, "\\", "/"))
	sum := sha256.Sum256([]byte(normalized))
	return hex.EncodeToString(sum[:])
}
