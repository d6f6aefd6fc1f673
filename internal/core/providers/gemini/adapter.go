// Package gemini implements the read-only provider adapter for Gemini CLI
// session logs: one flat JSON file per session under
// <root>/tmp/<project-hash>/session-*.json.
package gemini

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/ndokutovich/agentlog/internal/core/provider"
	"github.com/ndokutovich/agentlog/internal/core/universal"
)

// ProviderID identifies this adapter in the registry.
const ProviderID = "gemini"

// Adapter reads Gemini CLI session files.
type Adapter struct {
	lc       provider.Lifecycle
	log      *zap.Logger
	resolver *HashResolver
}

// New creates the adapter. A nil logger falls back to a no-op logger and a
// nil resolver to an empty one.
func New(log *zap.Logger, resolver *HashResolver) *Adapter {
	if log == nil {
		log = zap.NewNop()
	}
	if resolver == nil {
		resolver = NewHashResolver()
	}
	return &Adapter{lc: provider.NewLifecycle(ProviderID), log: log, resolver: resolver}
}

var definition = provider.Definition{
	ID:      ProviderID,
	Name:    "Gemini CLI",
	Version: "1.0.0",
	Capabilities: provider.Capabilities{
		SupportsToolCalls:  true,
		SupportsSearch:     true,
		SupportsPagination: true,
		IsReadOnly:         true,
		PreferredBatchSize: 100,
	},
	DetectionPatterns: []provider.DetectionPattern{
		{Type: provider.PatternDirectory, Pattern: "tmp", Weight: 50, Required: true},
		{Type: provider.PatternFile, Pattern: "tmp/*/session-*.json", Weight: 50},
	},
}

func (a *Adapter) Definition() provider.Definition { return definition }

func (a *Adapter) Initialize() { a.lc.MarkInitialized() }
func (a *Adapter) Dispose()    { a.lc.MarkDisposed() }

func (a *Adapter) CanHandle(path string) provider.DetectionScore {
	return provider.MatchPatterns(path, definition.DetectionPatterns)
}

func (a *Adapter) Validate(path string) provider.ValidationResult {
	return provider.ValidateWithPatterns(path, definition.DetectionPatterns)
}

// ScanProjects groups session files by parent directory; each hash directory
// under tmp/ is one project.
func (a *Adapter) ScanProjects(sourcePath, sourceID string) universal.ScanResult[universal.Project] {
	a.lc.MustBeReady()
	start := time.Now()

	files, err := filepath.Glob(filepath.Join(sourcePath, "tmp", "*", "session-*.json"))
	if err != nil {
		return universal.FailScan[universal.Project](provider.ResultError(err, "scan gemini projects"))
	}
	if len(files) == 0 {
		if _, serr := os.Stat(filepath.Join(sourcePath, "tmp")); serr != nil {
			return universal.FailScan[universal.Project](provider.ResultError(serr, "scan gemini projects"))
		}
	}

	byDir := map[string][]string{}
	for _, f := range files {
		dir := filepath.Dir(f)
		byDir[dir] = append(byDir[dir], f)
	}

	var projects []universal.Project
	for dir, sessionFiles := range byDir {
		hash := filepath.Base(dir)
		name := hash
		meta := map[string]json.RawMessage{}
		putMeta(meta, "projectHash", hash)
		if cwd, ok := a.resolver.Resolve(hash); ok {
			name = filepath.Base(cwd)
			putMeta(meta, "cwd", cwd)
		}

		projects = append(projects, universal.Project{
			ID:           universal.HashID(dir),
			SourceID:     sourceID,
			ProviderID:   ProviderID,
			Name:         name,
			Path:         dir,
			SessionCount: len(sessionFiles),
			Metadata:     meta,
		})
	}

	sort.Slice(projects, func(i, j int) bool { return projects[i].Path < projects[j].Path })

	return universal.OkScan(projects, &universal.ScanMetadata{
		ScanDurationMs: time.Since(start).Milliseconds(),
		ItemsFound:     len(projects),
	})
}

// LoadSessions parses every session file in the project's hash directory.
func (a *Adapter) LoadSessions(sourcePath, sourceID, projectID string) universal.LoadResult[universal.Session] {
	a.lc.MustBeReady()

	dir, err := a.projectDir(sourcePath, projectID)
	if err != nil {
		return universal.FailLoad[universal.Session](provider.ResultError(err, "load gemini sessions"))
	}

	files, err := filepath.Glob(filepath.Join(dir, "session-*.json"))
	if err != nil {
		return universal.FailLoad[universal.Session](provider.ResultError(err, "load gemini sessions"))
	}
	sort.Strings(files)

	var sessions []universal.Session
	var warnings []string
	for _, f := range files {
		s, serr := a.fileToSession(f, sourceID, projectID)
		if serr != nil {
			warnings = append(warnings, fmt.Sprintf("%s: %v", filepath.Base(f), serr))
			a.log.Warn("skipping unreadable session", zap.String("file", f), zap.Error(serr))
			continue
		}
		sessions = append(sessions, s)
	}

	sort.Slice(sessions, func(i, j int) bool {
		return sessions[i].LastMessageAt > sessions[j].LastMessageAt
	})

	return universal.OkLoad(sessions, 0, len(sessions), warnings...)
}

// LoadMessages loads one session file; sessionPath is the JSON file itself.
func (a *Adapter) LoadMessages(sessionPath, sourceID, projectID, sessionID string, opts provider.LoadOptions) universal.LoadResult[universal.Message] {
	a.lc.MustBeReady()

	doc, err := readSessionFile(sessionPath)
	if err != nil {
		return universal.FailLoad[universal.Message](provider.ResultError(err, "load gemini messages"))
	}
	if sessionID == "" {
		sessionID = doc.sessionID(sessionPath)
	}

	raw := doc.messageValues()
	msgs := make([]universal.Message, 0, len(raw))
	for i, value := range raw {
		msgs = append(msgs, convertMessage(value, sessionID, projectID, sourceID, i+1))
	}

	if opts.SortOrder == provider.SortDesc {
		sort.SliceStable(msgs, func(i, j int) bool {
			return msgs[i].SequenceNumber > msgs[j].SequenceNumber
		})
	}

	total := len(msgs)
	page := universal.Page(msgs, opts.Offset, opts.Limit)
	return universal.OkLoad(page, opts.Offset, total)
}

// SearchMessages scans text content of all session files under the source.
func (a *Adapter) SearchMessages(sourcePath, sourceID string, q provider.SearchQuery) universal.SearchResult[universal.Message] {
	a.lc.MustBeReady()
	start := time.Now()

	query := strings.ToLower(strings.TrimSpace(q.Query))
	if query == "" {
		return universal.FailSearch[universal.Message](provider.ResultError(
			provider.NewError(provider.CodeInvalidFormat, "search query cannot be empty", nil), "search"))
	}

	files, err := filepath.Glob(filepath.Join(sourcePath, "tmp", "*", "session-*.json"))
	if err != nil {
		return universal.FailSearch[universal.Message](provider.ResultError(err, "search gemini messages"))
	}

	limit := q.Limit
	if limit <= 0 {
		limit = 100
	}

	var hits []universal.Message
	total := 0
	for _, f := range files {
		projectID := universal.HashID(filepath.Dir(f))
		if len(q.Projects) > 0 && !containsString(q.Projects, projectID) {
			continue
		}

		doc, derr := readSessionFile(f)
		if derr != nil {
			continue
		}
		sessionID := doc.sessionID(f)
		if q.SessionID != "" && sessionID != q.SessionID {
			continue
		}

		for i, value := range doc.messageValues() {
			m := convertMessage(value, sessionID, projectID, sourceID, i+1)
			if !strings.Contains(strings.ToLower(textOf(m)), query) {
				continue
			}
			total++
			if len(hits) < limit {
				hits = append(hits, m)
			}
		}
	}

	return universal.OkSearch(hits, total, time.Since(start).Milliseconds())
}

// projectDir resolves a project id back to its hash directory.
func (a *Adapter) projectDir(sourcePath, projectID string) (string, error) {
	dirs, err := filepath.Glob(filepath.Join(sourcePath, "tmp", "*"))
	if err != nil {
		return "", err
	}
	for _, dir := range dirs {
		if universal.HashID(dir) == projectID {
			return dir, nil
		}
	}
	return "", provider.NewError(provider.CodePathNotFound, fmt.Sprintf("gemini project %q not found", projectID), nil)
}

func textOf(m universal.Message) string {
	var sb strings.Builder
	for _, c := range m.Content {
		if c.Type != universal.ContentText {
			continue
		}
		var block struct {
			Text string `json:"text"`
		}
		if err := json.Unmarshal(c.Data, &block); err == nil {
			sb.WriteString(block.Text)
			sb.WriteString("\n")
		}
	}
	return sb.String()
}

func containsString(ss []string, s string) bool {
	for _, v := range ss {
		if v == s {
			return true
		}
	}
	return false
}

func putMeta(meta map[string]json.RawMessage, key string, value any) {
	data, err := json.Marshal(value)
	if err != nil {
		return
	}
	meta[key] = data
}
