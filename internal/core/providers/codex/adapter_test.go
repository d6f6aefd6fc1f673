package codex

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/ndokutovich/agentlog/internal/core/provider"
	"github.com/ndokutovich/agentlog/internal/core/universal"
)

const fixtureFilename = "rollout-2025-03-04T10-15-30-0a1b2c3d-4e5f-6789-abcd-ef0123456789.jsonl"

func newTestAdapter(t *testing.T) *Adapter {
	t.Helper()
	a := New(nil)
	a.Initialize()
	t.Cleanup(a.Dispose)
	return a
}

func writeFixtureSource(t *testing.T) (sourcePath, sessionPath string) {
	t.Helper()
	sourcePath = t.TempDir()
	dir := filepath.Join(sourcePath, "sessions")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatal(err)
	}

	lines := []string{
		`{"type":"session_meta","timestamp":"2025-03-04T10:15:30Z","internal":{"session":{"id":"internal-sess-9"}},"payload":{"environment_context":{"cwd":"/work/proj"}}}`,
		`{"event_type":"user_message","timestamp":"2025-03-04T10:15:31Z","payload":{"content":[{"type":"input_text","text":"add a retry loop"}]}}`,
		`{"event_type":"assistant_message","timestamp":"2025-03-04T10:15:40Z","payload":{"model":"codex-1","content":[{"type":"output_text","text":"Done, see diff."}]}}`,
		`{"type":"turn_context","timestamp":"2025-03-04T10:15:41Z","payload":{}}`,
	}
	sessionPath = filepath.Join(dir, fixtureFilename)
	if err := os.WriteFile(sessionPath, []byte(strings.Join(lines, "\n")+"\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	return sourcePath, sessionPath
}

func TestParseRolloutFilename(t *testing.T) {
	ts, id, ok := parseRolloutFilename(fixtureFilename)
	if !ok {
		t.Fatal("expected match")
	}
	if ts != "2025-03-04T10:15:30Z" {
		t.Errorf("timestamp = %q", ts)
	}
	if id != "0a1b2c3d-4e5f-6789-abcd-ef0123456789" {
		t.Errorf("id = %q", id)
	}

	for _, bad := range []string{"rollout.jsonl", "rollout-2025-03-04-abc.jsonl", "session-x.json"} {
		if _, _, ok := parseRolloutFilename(bad); ok {
			t.Errorf("%q should not match", bad)
		}
	}
}

func TestCanHandleFixture(t *testing.T) {
	a := newTestAdapter(t)
	sourcePath, _ := writeFixtureSource(t)

	score := a.CanHandle(sourcePath)
	if !score.CanHandle || score.Confidence != 100 {
		t.Errorf("score = %+v", score)
	}
}

func TestScanProjectsSynthetic(t *testing.T) {
	a := newTestAdapter(t)
	sourcePath, _ := writeFixtureSource(t)

	res := a.ScanProjects(sourcePath, "src-1")
	if !res.Success {
		t.Fatalf("scan failed: %+v", res.Error)
	}
	if len(res.Data) != 1 || res.Data[0].ID != RolloutProjectID {
		t.Fatalf("projects = %+v", res.Data)
	}
	if res.Data[0].SessionCount != 1 {
		t.Errorf("SessionCount = %d", res.Data[0].SessionCount)
	}
}

func TestLoadSessions(t *testing.T) {
	a := newTestAdapter(t)
	sourcePath, _ := writeFixtureSource(t)

	res := a.LoadSessions(sourcePath, "src-1", RolloutProjectID)
	if !res.Success {
		t.Fatalf("load failed: %+v", res.Error)
	}
	if len(res.Data) != 1 {
		t.Fatalf("sessions = %d", len(res.Data))
	}

	s := res.Data[0]
	// The meta event's internal session id outranks the filename uuid.
	if s.ID != "internal-sess-9" {
		t.Errorf("ID = %q", s.ID)
	}
	if s.Title != "add a retry loop" {
		t.Errorf("Title = %q", s.Title)
	}
	if s.MessageCount != 2 {
		t.Errorf("MessageCount = %d, meta events must not count", s.MessageCount)
	}

	cwd, ok := s.Metadata["cwd"]
	if !ok || string(cwd) != `"/work/proj"` {
		t.Errorf("cwd metadata = %s", cwd)
	}
}

// Rollouts nested in date directories are still found.
func TestLoadSessionsNestedLayout(t *testing.T) {
	a := newTestAdapter(t)
	sourcePath := t.TempDir()
	dir := filepath.Join(sourcePath, "sessions", "2025", "03", "04")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatal(err)
	}
	line := `{"event_type":"user_message","timestamp":"2025-03-04T08:00:00Z","payload":{"content":"nested"}}`
	if err := os.WriteFile(filepath.Join(dir, fixtureFilename), []byte(line+"\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	res := a.LoadSessions(sourcePath, "src-1", "")
	if !res.Success || len(res.Data) != 1 {
		t.Fatalf("res = %+v", res)
	}
	// No meta event, so the filename uuid is the session id.
	if res.Data[0].ID != "0a1b2c3d-4e5f-6789-abcd-ef0123456789" {
		t.Errorf("ID = %q", res.Data[0].ID)
	}
}

func TestLoadMessages(t *testing.T) {
	a := newTestAdapter(t)
	_, sessionPath := writeFixtureSource(t)

	res := a.LoadMessages(sessionPath, "src-1", RolloutProjectID, "", provider.LoadOptions{})
	if !res.Success {
		t.Fatalf("load failed: %+v", res.Error)
	}
	if len(res.Data) != 2 {
		t.Fatalf("messages = %d, meta and context events must be filtered", len(res.Data))
	}

	user := res.Data[0]
	if user.Role != universal.RoleUser {
		t.Errorf("role = %q", user.Role)
	}
	if user.SessionID != "internal-sess-9" {
		t.Errorf("sessionId = %q", user.SessionID)
	}

	asst := res.Data[1]
	if asst.Role != universal.RoleAssistant {
		t.Errorf("role = %q", asst.Role)
	}
	if asst.Model != "codex-1" {
		t.Errorf("model = %q", asst.Model)
	}
	if asst.OriginalFormat == "" || !strings.Contains(asst.OriginalFormat, "assistant_message") {
		t.Errorf("originalFormat = %q", asst.OriginalFormat)
	}
}

func TestLoadMessagesSkipsMalformedLines(t *testing.T) {
	a := newTestAdapter(t)
	dir := filepath.Join(t.TempDir(), "sessions")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatal(err)
	}
	lines := []string{
		`{"event_type":"user_message","payload":{"content":"ok"}}`,
		`{broken`,
		`{"event_type":"assistant_message","payload":{"content":"fine"}}`,
	}
	path := filepath.Join(dir, fixtureFilename)
	if err := os.WriteFile(path, []byte(strings.Join(lines, "\n")+"\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	res := a.LoadMessages(path, "src", "", "", provider.LoadOptions{})
	if !res.Success || len(res.Data) != 2 {
		t.Fatalf("res = %+v", res)
	}
	if len(res.Warnings) != 1 {
		t.Errorf("warnings = %v", res.Warnings)
	}
}

// Codex has no search; the failure is typed, not a panic.
func TestSearchMessagesUnavailable(t *testing.T) {
	a := newTestAdapter(t)
	sourcePath, _ := writeFixtureSource(t)

	res := a.SearchMessages(sourcePath, "src-1", provider.SearchQuery{Query: "anything"})
	if res.Success {
		t.Fatal("expected failure")
	}
	if res.Error.Code != string(provider.CodeProviderUnavailable) {
		t.Errorf("code = %q", res.Error.Code)
	}
	if a.Definition().Capabilities.SupportsSearch {
		t.Error("capabilities must declare search unsupported")
	}
}

func TestCodexRolePriority(t *testing.T) {
	tests := []struct {
		name string
		line string
		want universal.MessageRole
	}{
		{"payload role wins", `{"event_type":"assistant_message","payload":{"role":"system","content":"x"}}`, universal.RoleSystem},
		{"user event kind", `{"event_type":"user_input","payload":{"content":"x"}}`, universal.RoleUser},
		{"system event kind", `{"type":"system_message","payload":{"content":"x"}}`, universal.RoleSystem},
		{"default assistant", `{"event_type":"agent_reasoning","payload":{"content":"x"}}`, universal.RoleAssistant},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			events, _, err := parseRolloutLines(t, tt.line)
			if err != nil {
				t.Fatal(err)
			}
			if len(events) != 1 {
				t.Fatalf("events = %d", len(events))
			}
			ev := events[0]
			if got := codexRole(ev, payloadOf(ev)); got != tt.want {
				t.Errorf("role = %q, want %q", got, tt.want)
			}
		})
	}
}

// A content shape with no extractable text is still kept, verbatim, as a
// JSON-encoded text block.
func TestLoadMessagesPreservesUnknownContent(t *testing.T) {
	a := newTestAdapter(t)
	dir := filepath.Join(t.TempDir(), "sessions")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatal(err)
	}
	line := `{"event_type":"assistant_message","payload":{"content":{"output":{"exit_code":0}}}}`
	path := filepath.Join(dir, fixtureFilename)
	if err := os.WriteFile(path, []byte(line+"\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	res := a.LoadMessages(path, "src", "", "", provider.LoadOptions{})
	if !res.Success || len(res.Data) != 1 {
		t.Fatalf("res = %+v", res)
	}

	m := res.Data[0]
	if len(m.Content) != 1 {
		t.Fatalf("content blocks = %d, unknown shapes must not be dropped", len(m.Content))
	}
	c := m.Content[0]
	if c.Type != universal.ContentText || c.Encoding != "json" {
		t.Errorf("block = %+v", c)
	}
	if !strings.Contains(string(c.Data), "exit_code") {
		t.Errorf("data = %s", c.Data)
	}
}

func TestSessionTitleTruncatesOnRuneBoundary(t *testing.T) {
	long := strings.Repeat("é", 100)
	events, _, err := parseRolloutLines(t, `{"event_type":"user_message","payload":{"content":"`+long+`"}}`)
	if err != nil {
		t.Fatal(err)
	}

	got := firstUserText(events)
	if got != strings.Repeat("é", 80) {
		t.Errorf("title = %q", got)
	}
	if !utf8.ValidString(got) {
		t.Error("title is not valid UTF-8")
	}
}

func parseRolloutLines(t *testing.T, lines ...string) ([]rolloutEvent, int, error) {
	t.Helper()
	dir := filepath.Join(t.TempDir(), "sessions")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatal(err)
	}
	path := filepath.Join(dir, fixtureFilename)
	if err := os.WriteFile(path, []byte(strings.Join(lines, "\n")+"\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	return parseRolloutFile(path)
}
