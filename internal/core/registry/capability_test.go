package registry

import (
	"testing"

	"github.com/ndokutovich/agentlog/internal/core/universal"
)

func writableSource(providerID string) universal.Source {
	return universal.Source{
		ID:          "src-1",
		Name:        "test",
		Path:        "/tmp/data",
		ProviderID:  providerID,
		IsAvailable: true,
	}
}

func TestCheckWriteCapabilityUnavailableSource(t *testing.T) {
	r := New(nil)
	r.Register(newFakeProvider("alpha", 50))

	src := writableSource("alpha")
	src.IsAvailable = false

	check := r.CheckSessionCreationSupport(src)
	if check.IsSupported {
		t.Fatal("unavailable source must not support writes")
	}
	if check.Reason != "Source is not available" {
		t.Errorf("reason = %q", check.Reason)
	}
}

func TestCheckWriteCapabilityNoAdapter(t *testing.T) {
	r := New(nil)

	check := r.CheckSessionCreationSupport(writableSource("ghost"))
	if check.IsSupported {
		t.Fatal("missing adapter must not support writes")
	}
	if check.Reason != `No adapter registered for provider "ghost"` {
		t.Errorf("reason = %q", check.Reason)
	}
}

func TestCheckWriteCapabilityReadOnlyProvider(t *testing.T) {
	r := New(nil)
	p := newFakeProvider("ro", 50)
	p.def.Capabilities.IsReadOnly = true
	p.def.Capabilities.SupportsSessionCreation = true // read-only wins anyway
	r.Register(p)

	check := r.CheckSessionCreationSupport(writableSource("ro"))
	if check.IsSupported {
		t.Fatal("read-only provider must not support writes")
	}
	if check.Reason != "Provider is read-only" {
		t.Errorf("reason = %q", check.Reason)
	}
	if check.Adapter == nil {
		t.Error("adapter should still be returned for capability introspection")
	}
}

func TestCheckWriteCapabilityFlagOff(t *testing.T) {
	r := New(nil)
	r.Register(newFakeProvider("rw", 50))

	check := r.CheckMessageAppendingSupport(writableSource("rw"))
	if check.IsSupported {
		t.Fatal("flag off must not support writes")
	}
	if check.Reason != "Provider does not support message appending" {
		t.Errorf("reason = %q", check.Reason)
	}
}

func TestCheckWriteCapabilitySupported(t *testing.T) {
	r := New(nil)
	p := newFakeProvider("rw", 50)
	p.def.Capabilities.SupportsSessionCreation = true
	p.def.Capabilities.SupportsProjectCreation = true
	p.def.Capabilities.SupportsMessageAppend = true
	r.Register(p)

	src := writableSource("rw")
	for name, check := range map[string]SupportCheck{
		"session": r.CheckSessionCreationSupport(src),
		"project": r.CheckProjectCreationSupport(src),
		"append":  r.CheckMessageAppendingSupport(src),
	} {
		if !check.IsSupported {
			t.Errorf("%s: not supported, reason %q", name, check.Reason)
		}
		if check.Reason != "" {
			t.Errorf("%s: unexpected reason %q", name, check.Reason)
		}
	}
}
