package claude

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/ndokutovich/agentlog/internal/core/provider"
	"github.com/ndokutovich/agentlog/internal/core/universal"
	"github.com/ndokutovich/agentlog/pkg/claudesessions"
)

func newTestAdapter(t *testing.T) *Adapter {
	t.Helper()
	a := New(nil)
	a.Initialize()
	t.Cleanup(a.Dispose)
	return a
}

// writeFixtureSource lays out a well-formed source with one project holding
// one session of n alternating user/assistant messages.
func writeFixtureSource(t *testing.T, n int) (sourcePath, projectID, sessionPath string) {
	t.Helper()
	sourcePath = t.TempDir()
	projectID = "-Users-alice-dev-myapp"
	dir := filepath.Join(sourcePath, "projects", projectID)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatal(err)
	}

	var sb strings.Builder
	sb.WriteString(`{"type":"summary","summary":"Test session"}` + "\n")
	prev := ""
	for i := 0; i < n; i++ {
		role := "user"
		if i%2 == 1 {
			role = "assistant"
		}
		id := fmt.Sprintf("uuid-%d", i)
		line := fmt.Sprintf(`{"type":%q,"uuid":%q,"parentUuid":%q,"sessionId":"sess-1","timestamp":"2025-01-02T10:%02d:%02dZ","cwd":"/Users/alice/dev/myapp","message":{"role":%q,"content":"message %d"}}`,
			role, id, prev, i/60, i%60, role, i)
		sb.WriteString(line + "\n")
		prev = id
	}

	sessionPath = filepath.Join(dir, "sess-1.jsonl")
	if err := os.WriteFile(sessionPath, []byte(sb.String()), 0o644); err != nil {
		t.Fatal(err)
	}
	return sourcePath, projectID, sessionPath
}

func TestCanHandleWellFormedSource(t *testing.T) {
	a := newTestAdapter(t)
	sourcePath, _, _ := writeFixtureSource(t, 4)

	score := a.CanHandle(sourcePath)
	if !score.CanHandle {
		t.Fatal("expected CanHandle")
	}
	if score.Confidence < 90 {
		t.Errorf("confidence = %d, want >= 90", score.Confidence)
	}

	if got := a.CanHandle(t.TempDir()); got.CanHandle {
		t.Error("empty dir should not be claimed")
	}
}

func TestScanProjects(t *testing.T) {
	a := newTestAdapter(t)
	sourcePath, projectID, _ := writeFixtureSource(t, 4)

	// Empty project directories are skipped.
	if err := os.MkdirAll(filepath.Join(sourcePath, "projects", "-empty"), 0o755); err != nil {
		t.Fatal(err)
	}

	res := a.ScanProjects(sourcePath, "src-1")
	if !res.Success {
		t.Fatalf("scan failed: %+v", res.Error)
	}
	if len(res.Data) != 1 {
		t.Fatalf("projects = %d, want 1", len(res.Data))
	}

	p := res.Data[0]
	if p.ID != projectID {
		t.Errorf("ID = %q", p.ID)
	}
	if p.Name != "/Users/alice/dev/myapp" {
		t.Errorf("Name = %q", p.Name)
	}
	if p.SessionCount != 1 {
		t.Errorf("SessionCount = %d", p.SessionCount)
	}
	if res.Metadata == nil || res.Metadata.ItemsSkipped != 1 {
		t.Errorf("metadata = %+v, want one skipped dir", res.Metadata)
	}
}

func TestScanProjectsMissingRoot(t *testing.T) {
	a := newTestAdapter(t)

	res := a.ScanProjects(t.TempDir(), "src-1")
	if res.Success {
		t.Fatal("expected failure for a source without projects/")
	}
	if res.Error.Code != string(provider.CodePathNotFound) {
		t.Errorf("code = %q, want PATH_NOT_FOUND", res.Error.Code)
	}
}

func TestLoadSessions(t *testing.T) {
	a := newTestAdapter(t)
	sourcePath, projectID, _ := writeFixtureSource(t, 6)

	res := a.LoadSessions(sourcePath, "src-1", projectID)
	if !res.Success {
		t.Fatalf("load failed: %+v", res.Error)
	}
	if len(res.Data) != 1 {
		t.Fatalf("sessions = %d, want 1", len(res.Data))
	}

	s := res.Data[0]
	if s.ID != "sess-1" {
		t.Errorf("ID = %q", s.ID)
	}
	if s.Title != "Test session" {
		t.Errorf("Title = %q, want the summary", s.Title)
	}
	if s.MessageCount != 6 {
		t.Errorf("MessageCount = %d", s.MessageCount)
	}
	if s.Checksum == "" {
		t.Error("expected a checksum")
	}
}

// Paging through 250 messages: each page must report the exact continuation
// offset and the final page must land on the total.
func TestLoadMessagesPagination(t *testing.T) {
	a := newTestAdapter(t)
	_, _, sessionPath := writeFixtureSource(t, 250)

	res := a.LoadMessages(sessionPath, "src-1", "p", "", provider.LoadOptions{Offset: 0, Limit: 100})
	if !res.Success {
		t.Fatalf("load failed: %+v", res.Error)
	}
	if len(res.Data) != 100 {
		t.Fatalf("page len = %d, want 100", len(res.Data))
	}
	pg := res.Pagination
	if !pg.HasMore || pg.NextOffset != 100 || pg.TotalCount != 250 {
		t.Errorf("pagination = %+v", pg)
	}

	res = a.LoadMessages(sessionPath, "src-1", "p", "", provider.LoadOptions{Offset: 200, Limit: 100})
	if len(res.Data) != 50 {
		t.Fatalf("last page len = %d, want 50", len(res.Data))
	}
	pg = res.Pagination
	if pg.HasMore || pg.NextOffset != 250 || pg.TotalCount != 250 {
		t.Errorf("last page pagination = %+v", pg)
	}
}

func TestLoadMessagesConversion(t *testing.T) {
	a := newTestAdapter(t)
	_, _, sessionPath := writeFixtureSource(t, 2)

	res := a.LoadMessages(sessionPath, "src-1", "proj", "", provider.LoadOptions{})
	if !res.Success {
		t.Fatalf("load failed: %+v", res.Error)
	}
	if len(res.Data) != 2 {
		t.Fatalf("messages = %d", len(res.Data))
	}

	m := res.Data[0]
	if m.Role != universal.RoleUser {
		t.Errorf("role = %q", m.Role)
	}
	if m.SessionID != "sess-1" || m.SourceID != "src-1" || m.ProjectID != "proj" {
		t.Errorf("identity = %s/%s/%s", m.SourceID, m.ProjectID, m.SessionID)
	}
	if m.ProviderID != ProviderID {
		t.Errorf("providerId = %q", m.ProviderID)
	}
	if res.Data[1].ParentID != m.ID {
		t.Errorf("parent chain broken: %q -> %q", res.Data[1].ParentID, m.ID)
	}
}

// OriginalFormat must carry the verbatim source line for every message.
func TestLoadMessagesOriginalFormatRoundTrip(t *testing.T) {
	a := newTestAdapter(t)
	_, _, sessionPath := writeFixtureSource(t, 5)

	raw, err := os.ReadFile(sessionPath)
	if err != nil {
		t.Fatal(err)
	}
	var wantLines []string
	for _, l := range strings.Split(strings.TrimSpace(string(raw)), "\n") {
		if strings.Contains(l, `"summary"`) {
			continue
		}
		wantLines = append(wantLines, l)
	}

	res := a.LoadMessages(sessionPath, "src-1", "p", "", provider.LoadOptions{})
	if len(res.Data) != len(wantLines) {
		t.Fatalf("messages = %d, lines = %d", len(res.Data), len(wantLines))
	}
	for i, m := range res.Data {
		if m.OriginalFormat != wantLines[i] {
			t.Errorf("message %d originalFormat differs from source line", i)
		}
	}
}

func TestLoadMessagesExcludeSidechain(t *testing.T) {
	a := newTestAdapter(t)
	dir := t.TempDir()
	path := filepath.Join(dir, "s.jsonl")
	lines := []string{
		`{"type":"user","uuid":"u1","message":{"role":"user","content":"main"}}`,
		`{"type":"user","uuid":"u2","isSidechain":true,"message":{"role":"user","content":"side"}}`,
	}
	if err := os.WriteFile(path, []byte(strings.Join(lines, "\n")+"\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	res := a.LoadMessages(path, "src", "p", "", provider.LoadOptions{ExcludeSidechain: true})
	if len(res.Data) != 1 {
		t.Fatalf("messages = %d, want 1", len(res.Data))
	}
	if res.Data[0].ID != "u1" {
		t.Errorf("kept %q", res.Data[0].ID)
	}

	res = a.LoadMessages(path, "src", "p", "", provider.LoadOptions{})
	if len(res.Data) != 2 {
		t.Errorf("without filter messages = %d, want 2", len(res.Data))
	}
	if res.Data[1].MessageType != universal.TypeSidechain {
		t.Errorf("type = %q", res.Data[1].MessageType)
	}
}

func TestLoadMessagesMissingFile(t *testing.T) {
	a := newTestAdapter(t)

	res := a.LoadMessages(filepath.Join(t.TempDir(), "nope.jsonl"), "src", "p", "", provider.LoadOptions{})
	if res.Success {
		t.Fatal("expected failure")
	}
	if res.Error.Code != string(provider.CodePathNotFound) {
		t.Errorf("code = %q", res.Error.Code)
	}
}

func TestSearchMessages(t *testing.T) {
	a := newTestAdapter(t)
	sourcePath, _, _ := writeFixtureSource(t, 10)

	res := a.SearchMessages(sourcePath, "src-1", provider.SearchQuery{Query: "message 3"})
	if !res.Success {
		t.Fatalf("search failed: %+v", res.Error)
	}
	if res.TotalMatches != 1 {
		t.Errorf("matches = %d, want 1", res.TotalMatches)
	}

	res = a.SearchMessages(sourcePath, "src-1", provider.SearchQuery{Query: "   "})
	if res.Success {
		t.Error("blank query should fail")
	}
}

func TestWriteFlow(t *testing.T) {
	a := newTestAdapter(t)
	sourcePath := t.TempDir()
	if err := os.MkdirAll(filepath.Join(sourcePath, "projects"), 0o755); err != nil {
		t.Fatal(err)
	}

	proj := a.CreateProject(sourcePath, "/Users/alice/dev/newapp")
	if !proj.Success {
		t.Fatalf("create project: %+v", proj.Error)
	}

	first := &provider.MessageInput{Role: "user", Content: "hello"}
	sess := a.CreateSession(sourcePath, proj.Data.ID, first)
	if !sess.Success {
		t.Fatalf("create session: %+v", sess.Error)
	}
	if sess.Data.MessageCount != 1 {
		t.Errorf("MessageCount = %d", sess.Data.MessageCount)
	}

	app := a.AppendMessages(sess.Data.Path, []provider.MessageInput{
		{Role: "assistant", Content: "hi there"},
	})
	if !app.Success {
		t.Fatalf("append: %+v", app.Error)
	}
	if app.Data.MessageCount != 2 {
		t.Errorf("MessageCount = %d, want 2", app.Data.MessageCount)
	}

	// The appended message must chain off the existing last message.
	res := a.LoadMessages(sess.Data.Path, "src", "p", "", provider.LoadOptions{})
	if len(res.Data) != 2 {
		t.Fatalf("messages = %d", len(res.Data))
	}
	if res.Data[1].ParentID != res.Data[0].ID {
		t.Error("appended message does not reference its parent")
	}
	if res.Data[1].Role != universal.RoleAssistant {
		t.Errorf("role = %q", res.Data[1].Role)
	}
}

func TestCreateSessionEmptyFile(t *testing.T) {
	a := newTestAdapter(t)
	sourcePath, projectID, _ := writeFixtureSource(t, 2)

	sess := a.CreateSession(sourcePath, projectID, nil)
	if !sess.Success {
		t.Fatalf("create session: %+v", sess.Error)
	}
	info, err := os.Stat(sess.Data.Path)
	if err != nil {
		t.Fatal(err)
	}
	if info.Size() != 0 {
		t.Errorf("size = %d, want empty file", info.Size())
	}
}

func TestGetSessionStats(t *testing.T) {
	a := newTestAdapter(t)
	dir := t.TempDir()
	path := filepath.Join(dir, "s.jsonl")
	lines := []string{
		`{"type":"user","uuid":"u1","message":{"role":"user","content":"go"}}`,
		`{"type":"assistant","uuid":"a1","message":{"role":"assistant","content":[{"type":"text","text":"ok"},{"type":"tool_use","id":"t1","name":"Bash","input":{}}],"usage":{"input_tokens":7,"output_tokens":3}}}`,
	}
	if err := os.WriteFile(path, []byte(strings.Join(lines, "\n")+"\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	stats, err := a.GetSessionStats(path)
	if err != nil {
		t.Fatal(err)
	}
	if stats.MessageCount != 2 {
		t.Errorf("MessageCount = %d", stats.MessageCount)
	}
	if stats.ToolCallCount != 1 {
		t.Errorf("ToolCallCount = %d", stats.ToolCallCount)
	}
	if stats.TotalTokens.InputTokens != 7 || stats.TotalTokens.OutputTokens != 3 {
		t.Errorf("tokens = %+v", stats.TotalTokens)
	}
}

func TestOperationBeforeInitializePanics(t *testing.T) {
	a := New(nil)

	defer func() {
		if recover() == nil {
			t.Error("ScanProjects before Initialize should panic")
		}
	}()
	a.ScanProjects(t.TempDir(), "src")
}

func TestFirstUserTextTruncatesOnRuneBoundary(t *testing.T) {
	long := strings.Repeat("é", 100)
	parsed := &claudesessions.ParsedSession{
		Entries: []claudesessions.Entry{
			{Type: "user", Message: json.RawMessage(`{"content":"` + long + `"}`)},
		},
	}

	got := firstUserText(parsed)
	if got != strings.Repeat("é", 80) {
		t.Errorf("title = %q", got)
	}
	if !utf8.ValidString(got) {
		t.Error("title is not valid UTF-8")
	}
}
