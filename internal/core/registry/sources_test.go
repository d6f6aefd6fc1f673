package registry

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/ndokutovich/agentlog/internal/core/universal"
)

func TestNewSourceHealthy(t *testing.T) {
	r := New(nil)
	r.Register(newFakeProvider("alpha", 80))

	root := t.TempDir()
	src := r.NewSource("My Source", root, "alpha", true)

	if src.ID == "" {
		t.Error("expected a generated id")
	}
	if !src.IsDefault || src.Name != "My Source" {
		t.Errorf("source = %+v", src)
	}
	if !src.IsAvailable || src.HealthStatus != universal.HealthHealthy {
		t.Errorf("health = %s, available = %v", src.HealthStatus, src.IsAvailable)
	}
	if src.AddedAt == "" || src.LastValidation == "" {
		t.Error("timestamps not populated")
	}
}

func TestRevalidateSourceOffline(t *testing.T) {
	r := New(nil)
	r.Register(newFakeProvider("alpha", 80))

	src := r.NewSource("gone", filepath.Join(t.TempDir(), "missing"), "alpha", false)
	if src.IsAvailable {
		t.Error("missing path should be unavailable")
	}
	if src.HealthStatus != universal.HealthOffline {
		t.Errorf("health = %s, want offline", src.HealthStatus)
	}
	if src.ValidationError == "" {
		t.Error("expected a validation error")
	}
}

func TestRevalidateSourceFileNotDir(t *testing.T) {
	r := New(nil)
	r.Register(newFakeProvider("alpha", 80))

	path := filepath.Join(t.TempDir(), "file")
	if err := os.WriteFile(path, []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}

	src := r.NewSource("file", path, "alpha", false)
	if src.HealthStatus != universal.HealthOffline {
		t.Errorf("health = %s, want offline for a non-directory", src.HealthStatus)
	}
}

func TestRevalidateSourceNoAdapter(t *testing.T) {
	r := New(nil)

	src := r.NewSource("orphan", t.TempDir(), "ghost", false)
	if !src.IsAvailable {
		t.Error("path exists; source should be available")
	}
	if src.HealthStatus != universal.HealthDegraded {
		t.Errorf("health = %s, want degraded", src.HealthStatus)
	}
}

func TestRevalidateSourceRecovers(t *testing.T) {
	r := New(nil)
	r.Register(newFakeProvider("alpha", 80))

	root := t.TempDir()
	missing := filepath.Join(root, "later")
	src := r.NewSource("flaky", missing, "alpha", false)
	if src.HealthStatus != universal.HealthOffline {
		t.Fatalf("health = %s, want offline", src.HealthStatus)
	}

	if err := os.MkdirAll(missing, 0o755); err != nil {
		t.Fatal(err)
	}
	r.RevalidateSource(&src)
	if src.HealthStatus != universal.HealthHealthy {
		t.Errorf("health = %s, want healthy after the path appears", src.HealthStatus)
	}
	if src.ValidationError != "" {
		t.Errorf("stale validation error: %q", src.ValidationError)
	}
}
