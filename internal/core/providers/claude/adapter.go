// Package claude implements the provider adapter for Claude Code session
// logs: one JSONL file per session under ~/.claude/projects/<encoded-path>/,
// messages forming a parent-reference tree.
package claude

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/ndokutovich/agentlog/internal/core/provider"
	"github.com/ndokutovich/agentlog/internal/core/universal"
	"github.com/ndokutovich/agentlog/pkg/claudesessions"
)

// ProviderID identifies this adapter in the registry.
const ProviderID = "claude-code"

// Adapter reads and writes Claude Code session files.
type Adapter struct {
	lc  provider.Lifecycle
	log *zap.Logger
}

// New creates the adapter. A nil logger falls back to a no-op logger.
func New(log *zap.Logger) *Adapter {
	if log == nil {
		log = zap.NewNop()
	}
	return &Adapter{lc: provider.NewLifecycle(ProviderID), log: log}
}

var definition = provider.Definition{
	ID:      ProviderID,
	Name:    "Claude Code",
	Version: "1.0.0",
	Capabilities: provider.Capabilities{
		SupportsThinking:        true,
		SupportsToolCalls:       true,
		SupportsSearch:          true,
		SupportsPagination:      true,
		SupportsProjectCreation: true,
		SupportsSessionCreation: true,
		SupportsMessageAppend:   true,
		MaxMessagesPerRequest:   1000,
		PreferredBatchSize:      100,
	},
	DetectionPatterns: []provider.DetectionPattern{
		{Type: provider.PatternDirectory, Pattern: "projects", Weight: 60, Required: true},
		{Type: provider.PatternFile, Pattern: "projects/*/*.jsonl", Weight: 40},
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

// ScanProjects lists the project directories under <source>/projects. Each
// directory name is the provider's encoded form of the working directory.
func (a *Adapter) ScanProjects(sourcePath, sourceID string) universal.ScanResult[universal.Project] {
	a.lc.MustBeReady()
	start := time.Now()

	root := filepath.Join(sourcePath, "projects")
	entries, err := os.ReadDir(root)
	if err != nil {
		return universal.FailScan[universal.Project](provider.ResultError(err, "scan claude projects"))
	}

	var projects []universal.Project
	skipped := 0
	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		dir := filepath.Join(root, e.Name())
		sessionFiles, _ := filepath.Glob(filepath.Join(dir, "*.jsonl"))
		if len(sessionFiles) == 0 {
			skipped++
			continue
		}

		first, last := activityWindow(sessionFiles)
		projects = append(projects, universal.Project{
			ID:              e.Name(),
			SourceID:        sourceID,
			ProviderID:      ProviderID,
			Name:            decodeProjectName(e.Name()),
			Path:            dir,
			SessionCount:    len(sessionFiles),
			TotalMessages:   0, // computed when sessions load
			FirstActivityAt: first,
			LastActivityAt:  last,
			Metadata:        metadataMap("encodedName", e.Name()),
		})
	}

	sort.Slice(projects, func(i, j int) bool {
		return projects[i].LastActivityAt > projects[j].LastActivityAt
	})

	return universal.OkScan(projects, &universal.ScanMetadata{
		ScanDurationMs: time.Since(start).Milliseconds(),
		ItemsFound:     len(projects),
		ItemsSkipped:   skipped,
	})
}

// LoadSessions parses every session file in a project directory. Sessions
// that fail to parse are reported as warnings and skipped, not fatal.
func (a *Adapter) LoadSessions(sourcePath, sourceID, projectID string) universal.LoadResult[universal.Session] {
	a.lc.MustBeReady()

	dir := filepath.Join(sourcePath, "projects", projectID)
	files, err := filepath.Glob(filepath.Join(dir, "*.jsonl"))
	if err != nil || len(files) == 0 {
		if err == nil {
			err = fmt.Errorf("no session files found in %s", dir)
		}
		return universal.FailLoad[universal.Session](provider.ResultError(err, "load claude sessions"))
	}
	sort.Strings(files)

	var sessions []universal.Session
	var warnings []string
	for _, f := range files {
		parsed, perr := claudesessions.ParseFile(f)
		if perr != nil {
			warnings = append(warnings, fmt.Sprintf("%s: %v", filepath.Base(f), perr))
			a.log.Warn("skipping unreadable session", zap.String("file", f), zap.Error(perr))
			continue
		}
		sessions = append(sessions, buildSession(parsed, sourceID, projectID))
	}

	sort.Slice(sessions, func(i, j int) bool {
		return sessions[i].LastMessageAt > sessions[j].LastMessageAt
	})

	return universal.OkLoad(sessions, 0, len(sessions), warnings...)
}

// LoadMessages loads one session file and converts every entry, honoring
// pagination and the sidechain filter. sessionPath is the .jsonl file itself.
func (a *Adapter) LoadMessages(sessionPath, sourceID, projectID, sessionID string, opts provider.LoadOptions) universal.LoadResult[universal.Message] {
	a.lc.MustBeReady()

	parsed, err := claudesessions.ParseFile(sessionPath)
	if err != nil {
		return universal.FailLoad[universal.Message](provider.ResultError(err, "load claude messages"))
	}
	if sessionID == "" {
		sessionID = parsed.SessionID
	}

	msgs := make([]universal.Message, 0, len(parsed.Entries))
	for _, entry := range parsed.Entries {
		m := convertEntry(entry, sessionID, projectID, sourceID)
		if opts.ExcludeSidechain && m.MessageType == universal.TypeSidechain {
			continue
		}
		msgs = append(msgs, m)
	}

	if opts.SortOrder == provider.SortDesc {
		sort.SliceStable(msgs, func(i, j int) bool {
			return msgs[i].SequenceNumber > msgs[j].SequenceNumber
		})
	}

	total := len(msgs)
	page := universal.Page(msgs, opts.Offset, opts.Limit)

	var warnings []string
	if parsed.SkippedLines > 0 {
		warnings = append(warnings, fmt.Sprintf("%d malformed lines skipped", parsed.SkippedLines))
	}
	return universal.OkLoad(page, opts.Offset, total, warnings...)
}

// SearchMessages scans every session file under the source for a
// case-insensitive substring match on extracted text.
func (a *Adapter) SearchMessages(sourcePath, sourceID string, q provider.SearchQuery) universal.SearchResult[universal.Message] {
	a.lc.MustBeReady()
	start := time.Now()

	query := strings.ToLower(strings.TrimSpace(q.Query))
	if query == "" {
		return universal.FailSearch[universal.Message](provider.ResultError(
			provider.NewError(provider.CodeInvalidFormat, "search query cannot be empty", nil), "search"))
	}

	files, err := filepath.Glob(filepath.Join(sourcePath, "projects", "*", "*.jsonl"))
	if err != nil {
		return universal.FailSearch[universal.Message](provider.ResultError(err, "search claude messages"))
	}

	limit := q.Limit
	if limit <= 0 {
		limit = 100
	}

	var hits []universal.Message
	total := 0
	for _, f := range files {
		projectID := filepath.Base(filepath.Dir(f))
		if len(q.Projects) > 0 && !containsString(q.Projects, projectID) {
			continue
		}

		parsed, perr := claudesessions.ParseFile(f)
		if perr != nil {
			continue
		}
		if q.SessionID != "" && parsed.SessionID != q.SessionID {
			continue
		}

		for _, entry := range parsed.Entries {
			text := claudesessions.ExtractText(entry.Message)
			if !strings.Contains(strings.ToLower(text), query) {
				continue
			}
			m := convertEntry(entry, parsed.SessionID, projectID, sourceID)
			if !matchesFilters(m, q) {
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

func matchesFilters(m universal.Message, q provider.SearchQuery) bool {
	if q.MessageType != "" && m.MessageType != q.MessageType {
		return false
	}
	if q.HasToolCalls && len(m.ToolCalls) == 0 {
		return false
	}
	if q.HasErrors && len(m.Errors) == 0 {
		return false
	}
	if q.DateFrom != "" && m.Timestamp < q.DateFrom {
		return false
	}
	if q.DateTo != "" && m.Timestamp > q.DateTo {
		return false
	}
	return true
}

func containsString(ss []string, s string) bool {
	for _, v := range ss {
		if v == s {
			return true
		}
	}
	return false
}

// activityWindow returns the earliest and latest mtimes across session files.
func activityWindow(files []string) (first, last string) {
	var min, max time.Time
	for _, f := range files {
		info, err := os.Stat(f)
		if err != nil {
			continue
		}
		mt := info.ModTime()
		if min.IsZero() || mt.Before(min) {
			min = mt
		}
		if mt.After(max) {
			max = mt
		}
	}
	if !min.IsZero() {
		first = min.UTC().Format(time.RFC3339)
		last = max.UTC().Format(time.RFC3339)
	}
	return first, last
}

// decodeProjectName turns the encoded directory name (path separators
// replaced with dashes) back into a readable label. The encoding is lossy,
// so this is display-only; the id keeps the encoded form.
func decodeProjectName(encoded string) string {
	name := strings.TrimPrefix(encoded, "-")
	if name == "" {
		return encoded
	}
	return "/" + strings.ReplaceAll(name, "-", "/")
}

// ProjectsRoot implements provider.PathMapper.
func (a *Adapter) ProjectsRoot(sourcePath string) (string, error) {
	root := filepath.Join(sourcePath, "projects")
	if _, err := os.Stat(root); err != nil {
		return "", fmt.Errorf("projects root: %w", err)
	}
	return root, nil
}

// ConvertToProjectPath implements provider.PathMapper: encodes an absolute
// working directory into the provider's directory-name form.
func (a *Adapter) ConvertToProjectPath(sourcePath, displayPath string) (string, error) {
	if !filepath.IsAbs(displayPath) {
		return "", fmt.Errorf("invalid project path %q: must be absolute", displayPath)
	}
	encoded := strings.ReplaceAll(filepath.Clean(displayPath), string(filepath.Separator), "-")
	return filepath.Join(sourcePath, "projects", encoded), nil
}
