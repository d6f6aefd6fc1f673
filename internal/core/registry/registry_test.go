package registry

import (
	"strings"
	"testing"

	"github.com/ndokutovich/agentlog/internal/core/provider"
	"github.com/ndokutovich/agentlog/internal/core/universal"
)

// fakeProvider is a configurable in-memory adapter for registry tests.
type fakeProvider struct {
	lc    provider.Lifecycle
	def   provider.Definition
	score provider.DetectionScore

	initCalls    int
	disposeCalls int
	panicOnInit  bool
}

func newFakeProvider(id string, confidence int) *fakeProvider {
	return &fakeProvider{
		lc: provider.NewLifecycle(id),
		def: provider.Definition{
			ID:      id,
			Name:    id,
			Version: "1.0.0",
			DetectionPatterns: []provider.DetectionPattern{
				{Type: provider.PatternDirectory, Pattern: "data", Weight: 100, Required: true},
			},
		},
		score: provider.DetectionScore{CanHandle: confidence > 0, Confidence: confidence},
	}
}

func (f *fakeProvider) Definition() provider.Definition { return f.def }

func (f *fakeProvider) Initialize() {
	if f.panicOnInit {
		panic("init failed")
	}
	f.initCalls++
	f.lc.MarkInitialized()
}

func (f *fakeProvider) Dispose() {
	f.disposeCalls++
	f.lc.MarkDisposed()
}

func (f *fakeProvider) CanHandle(path string) provider.DetectionScore { return f.score }

func (f *fakeProvider) Validate(path string) provider.ValidationResult {
	return provider.ValidationResult{IsValid: true, Confidence: f.score.Confidence}
}

func (f *fakeProvider) ScanProjects(sourcePath, sourceID string) universal.ScanResult[universal.Project] {
	f.lc.MustBeReady()
	return universal.OkScan[universal.Project](nil, nil)
}

func (f *fakeProvider) LoadSessions(sourcePath, sourceID, projectID string) universal.LoadResult[universal.Session] {
	f.lc.MustBeReady()
	return universal.OkLoad[universal.Session](nil, 0, 0)
}

func (f *fakeProvider) LoadMessages(sessionPath, sourceID, projectID, sessionID string, opts provider.LoadOptions) universal.LoadResult[universal.Message] {
	f.lc.MustBeReady()
	return universal.OkLoad[universal.Message](nil, 0, 0)
}

func (f *fakeProvider) SearchMessages(sourcePath, sourceID string, q provider.SearchQuery) universal.SearchResult[universal.Message] {
	f.lc.MustBeReady()
	return universal.FailSearch[universal.Message](provider.Unavailable("search"))
}

func TestRegisterAndGet(t *testing.T) {
	r := New(nil)
	p := newFakeProvider("alpha", 80)
	r.Register(p)

	if p.initCalls != 1 {
		t.Errorf("initCalls = %d, want 1", p.initCalls)
	}
	got, ok := r.Get("alpha")
	if !ok || got != provider.Provider(p) {
		t.Fatal("Get did not return the registered adapter")
	}
	if _, ok := r.Get("missing"); ok {
		t.Error("Get returned a provider for an unknown id")
	}
}

func TestRegisterDuplicatePanicsWithoutMutation(t *testing.T) {
	r := New(nil)
	first := newFakeProvider("alpha", 80)
	r.Register(first)

	dup := newFakeProvider("alpha", 90)
	func() {
		defer func() {
			if recover() == nil {
				t.Error("duplicate registration should panic")
			}
		}()
		r.Register(dup)
	}()

	// The original registration must be untouched.
	got, ok := r.Get("alpha")
	if !ok || got != provider.Provider(first) {
		t.Error("duplicate registration mutated the registry")
	}
	if len(r.List()) != 1 {
		t.Errorf("List() has %d entries, want 1", len(r.List()))
	}
	if dup.initCalls != 0 {
		t.Error("duplicate should not have been initialized")
	}
}

func TestRegisterInvalidDefinitionPanics(t *testing.T) {
	r := New(nil)
	p := newFakeProvider("", 80) // missing id

	defer func() {
		if recover() == nil {
			t.Error("invalid definition should panic")
		}
	}()
	r.Register(p)
}

func TestListPreservesRegistrationOrder(t *testing.T) {
	r := New(nil)
	for _, id := range []string{"c", "a", "b"} {
		r.Register(newFakeProvider(id, 50))
	}

	var got []string
	for _, p := range r.List() {
		got = append(got, p.Definition().ID)
	}
	if strings.Join(got, ",") != "c,a,b" {
		t.Errorf("order = %v", got)
	}
}

func TestDispose(t *testing.T) {
	r := New(nil)
	p := newFakeProvider("alpha", 80)
	r.Register(p)

	r.Dispose("alpha")
	if p.disposeCalls != 1 {
		t.Errorf("disposeCalls = %d, want 1", p.disposeCalls)
	}
	if _, ok := r.Get("alpha"); ok {
		t.Error("disposed adapter still retrievable")
	}

	r.Dispose("alpha") // unknown ids are ignored
}

func TestDetectAllOrdersByConfidence(t *testing.T) {
	r := New(nil)
	r.Register(newFakeProvider("low", 30))
	r.Register(newFakeProvider("high", 90))
	r.Register(newFakeProvider("no", 0))

	matches := r.DetectAll("/some/path")
	if len(matches) != 2 {
		t.Fatalf("matches = %d, want 2", len(matches))
	}
	if matches[0].ProviderID != "high" || matches[1].ProviderID != "low" {
		t.Errorf("order = %s, %s", matches[0].ProviderID, matches[1].ProviderID)
	}

	if got := r.DetectProvider("/some/path"); got != "high" {
		t.Errorf("DetectProvider = %q, want high", got)
	}
}

// A confidence tie goes to the adapter registered first.
func TestDetectAllTieBreak(t *testing.T) {
	r := New(nil)
	r.Register(newFakeProvider("first", 70))
	r.Register(newFakeProvider("second", 70))

	matches := r.DetectAll("/some/path")
	if matches[0].ProviderID != "first" {
		t.Errorf("tie went to %q, want first", matches[0].ProviderID)
	}
}

func TestDetectProviderNoMatch(t *testing.T) {
	r := New(nil)
	r.Register(newFakeProvider("no", 0))
	if got := r.DetectProvider("/some/path"); got != "" {
		t.Errorf("DetectProvider = %q, want empty", got)
	}
}

func TestRegisterBuiltinsToleratesFailures(t *testing.T) {
	r := New(nil)
	bad := newFakeProvider("bad", 50)
	bad.panicOnInit = true
	good := newFakeProvider("good", 50)

	if err := r.RegisterBuiltins([]provider.Provider{bad, good}); err != nil {
		t.Fatalf("RegisterBuiltins() = %v", err)
	}
	if _, ok := r.Get("bad"); ok {
		t.Error("failed adapter should not be registered")
	}
	if _, ok := r.Get("good"); !ok {
		t.Error("healthy adapter should survive a sibling's failure")
	}
}

func TestRegisterBuiltinsAllFail(t *testing.T) {
	r := New(nil)
	bad := newFakeProvider("bad", 50)
	bad.panicOnInit = true

	if err := r.RegisterBuiltins([]provider.Provider{bad}); err == nil {
		t.Error("expected error when no adapter registers")
	}
}
