// Package codex implements the read-only provider adapter for Codex CLI
// rollout logs: JSONL event files named rollout-<timestamp>-<uuid>.jsonl
// under <root>/sessions, possibly nested in date directories. Codex has no
// message tree and no search support.
package codex

import (
	"encoding/json"
	"fmt"
	"io/fs"
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
const ProviderID = "codex"

// RolloutProjectID is the synthetic project all rollouts hang from: Codex
// does not group sessions by project on disk.
const RolloutProjectID = "codex-rollouts"

// Adapter reads Codex rollout files.
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
	Name:    "Codex CLI",
	Version: "1.0.0",
	Capabilities: provider.Capabilities{
		SupportsSearch:     false,
		SupportsPagination: true,
		IsReadOnly:         true,
		PreferredBatchSize: 100,
	},
	DetectionPatterns: []provider.DetectionPattern{
		{Type: provider.PatternDirectory, Pattern: "sessions", Weight: 50, Required: true},
		{Type: provider.PatternFile, Pattern: "sessions/rollout-*.jsonl", Weight: 50},
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

// ScanProjects returns the single synthetic rollout project.
func (a *Adapter) ScanProjects(sourcePath, sourceID string) universal.ScanResult[universal.Project] {
	a.lc.MustBeReady()
	start := time.Now()

	files, err := findRolloutFiles(sourcePath)
	if err != nil {
		return universal.FailScan[universal.Project](provider.ResultError(err, "scan codex sessions"))
	}

	first, last := rolloutWindow(files)
	project := universal.Project{
		ID:              RolloutProjectID,
		SourceID:        sourceID,
		ProviderID:      ProviderID,
		Name:            "Codex Rollouts",
		Path:            filepath.Join(sourcePath, "sessions"),
		SessionCount:    len(files),
		FirstActivityAt: first,
		LastActivityAt:  last,
		Metadata:        metadataMap("sessionsRoot", filepath.Join(sourcePath, "sessions")),
	}

	return universal.OkScan([]universal.Project{project}, &universal.ScanMetadata{
		ScanDurationMs: time.Since(start).Milliseconds(),
		ItemsFound:     1,
	})
}

// LoadSessions parses every rollout file under the sessions root.
func (a *Adapter) LoadSessions(sourcePath, sourceID, projectID string) universal.LoadResult[universal.Session] {
	a.lc.MustBeReady()

	if projectID != "" && projectID != RolloutProjectID {
		err := provider.NewError(provider.CodePathNotFound, fmt.Sprintf("unknown codex project %q", projectID), nil)
		return universal.FailLoad[universal.Session](provider.ResultError(err, "load codex sessions"))
	}

	files, err := findRolloutFiles(sourcePath)
	if err != nil {
		return universal.FailLoad[universal.Session](provider.ResultError(err, "load codex sessions"))
	}

	var sessions []universal.Session
	var warnings []string
	for _, f := range files {
		s, serr := a.fileToSession(f, sourceID)
		if serr != nil {
			warnings = append(warnings, fmt.Sprintf("%s: %v", filepath.Base(f), serr))
			a.log.Warn("skipping unreadable rollout", zap.String("file", f), zap.Error(serr))
			continue
		}
		sessions = append(sessions, s)
	}

	sort.Slice(sessions, func(i, j int) bool {
		return sessions[i].LastMessageAt > sessions[j].LastMessageAt
	})

	return universal.OkLoad(sessions, 0, len(sessions), warnings...)
}

// LoadMessages loads one rollout file; sessionPath is the .jsonl file.
func (a *Adapter) LoadMessages(sessionPath, sourceID, projectID, sessionID string, opts provider.LoadOptions) universal.LoadResult[universal.Message] {
	a.lc.MustBeReady()

	events, skipped, err := parseRolloutFile(sessionPath)
	if err != nil {
		return universal.FailLoad[universal.Message](provider.ResultError(err, "load codex messages"))
	}

	if sessionID == "" {
		sessionID = sessionIDForFile(sessionPath, events)
	}

	msgEvents := messageEvents(events)
	msgs := make([]universal.Message, 0, len(msgEvents))
	for i, ev := range msgEvents {
		msgs = append(msgs, convertEvent(ev, sessionID, sourceID, i+1, sessionPath))
	}

	if opts.SortOrder == provider.SortDesc {
		sort.SliceStable(msgs, func(i, j int) bool {
			return msgs[i].SequenceNumber > msgs[j].SequenceNumber
		})
	}

	total := len(msgs)
	page := universal.Page(msgs, opts.Offset, opts.Limit)

	var warnings []string
	if skipped > 0 {
		warnings = append(warnings, fmt.Sprintf("%d malformed lines skipped", skipped))
	}
	return universal.OkLoad(page, opts.Offset, total, warnings...)
}

// SearchMessages is not supported for Codex rollouts.
func (a *Adapter) SearchMessages(sourcePath, sourceID string, q provider.SearchQuery) universal.SearchResult[universal.Message] {
	a.lc.MustBeReady()
	return universal.FailSearch[universal.Message](provider.Unavailable("message search"))
}

// findRolloutFiles walks the sessions root; rollouts may sit flat or nested
// in date directories.
func findRolloutFiles(sourcePath string) ([]string, error) {
	root := filepath.Join(sourcePath, "sessions")
	if _, err := os.Stat(root); err != nil {
		return nil, fmt.Errorf("sessions root: %w", err)
	}

	var files []string
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if d != nil && d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if !d.IsDir() && strings.HasPrefix(d.Name(), "rollout-") && strings.HasSuffix(d.Name(), ".jsonl") {
			files = append(files, path)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to scan sessions: %w", err)
	}
	sort.Strings(files)
	return files, nil
}

func rolloutWindow(files []string) (first, last string) {
	for _, f := range files {
		ts, _, ok := parseRolloutFilename(filepath.Base(f))
		if !ok {
			continue
		}
		if first == "" || ts < first {
			first = ts
		}
		if ts > last {
			last = ts
		}
	}
	return first, last
}

func metadataMap(key, value string) map[string]json.RawMessage {
	meta := map[string]json.RawMessage{}
	putMeta(meta, key, value)
	return meta
}
