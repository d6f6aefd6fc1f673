// Package cursor implements the read-only provider adapter for Cursor IDE
// conversation history, stored as composer/bubble records inside the
// cursorDiskKV table of User/globalStorage/state.vscdb.
package cursor

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
const ProviderID = "cursor"

// GlobalProjectID is the synthetic project all global-storage conversations
// hang from. Cursor does not key composers by workspace in global storage.
const GlobalProjectID = "cursor-global"

// Adapter reads Cursor's state database.
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
	Name:    "Cursor IDE",
	Version: "1.0.0",
	Capabilities: provider.Capabilities{
		SupportsToolCalls:  false,
		SupportsSearch:     true,
		SupportsPagination: true,
		IsReadOnly:         true,
		PreferredBatchSize: 200,
	},
	DetectionPatterns: []provider.DetectionPattern{
		{Type: provider.PatternFile, Pattern: "User/globalStorage/state.vscdb", Weight: 70, Required: true},
		{Type: provider.PatternDirectory, Pattern: "User/workspaceStorage", Weight: 30},
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

func statePath(sourcePath string) string {
	return filepath.Join(sourcePath, "User", "globalStorage", "state.vscdb")
}

// ScanProjects returns the single synthetic global project. Composer records
// in global storage carry no workspace key, so per-workspace grouping is not
// reconstructible without heuristics; the workspace count is surfaced as
// metadata instead.
func (a *Adapter) ScanProjects(sourcePath, sourceID string) universal.ScanResult[universal.Project] {
	a.lc.MustBeReady()
	start := time.Now()

	dbPath := statePath(sourcePath)
	db, err := openDatabase(dbPath)
	if err != nil {
		return universal.FailScan[universal.Project](provider.ResultError(err, "scan cursor workspaces"))
	}
	defer func() { _ = db.Close() }()

	composers, err := loadComposers(db)
	if err != nil {
		return universal.FailScan[universal.Project](provider.ResultError(err, "scan cursor workspaces"))
	}

	meta := map[string]json.RawMessage{}
	putMeta(meta, "stateDbPath", dbPath)
	if workspaces, _ := filepath.Glob(filepath.Join(sourcePath, "User", "workspaceStorage", "*")); len(workspaces) > 0 {
		putMeta(meta, "workspaceCount", len(workspaces))
	}

	first, last := composerWindow(composers)
	project := universal.Project{
		ID:              GlobalProjectID,
		SourceID:        sourceID,
		ProviderID:      ProviderID,
		Name:            "Cursor Conversations",
		Path:            filepath.Join(sourcePath, "User", "globalStorage"),
		SessionCount:    len(composers),
		FirstActivityAt: first,
		LastActivityAt:  last,
		Metadata:        meta,
	}

	return universal.OkScan([]universal.Project{project}, &universal.ScanMetadata{
		ScanDurationMs: time.Since(start).Milliseconds(),
		ItemsFound:     1,
	})
}

// LoadSessions lists every composer conversation as a session. The error
// count is the unknown sentinel: errors are not derivable without decoding
// every bubble.
func (a *Adapter) LoadSessions(sourcePath, sourceID, projectID string) universal.LoadResult[universal.Session] {
	a.lc.MustBeReady()

	if projectID != "" && projectID != GlobalProjectID {
		err := provider.NewError(provider.CodePathNotFound, fmt.Sprintf("unknown cursor project %q", projectID), nil)
		return universal.FailLoad[universal.Session](provider.ResultError(err, "load cursor sessions"))
	}

	dbPath := statePath(sourcePath)
	db, err := openDatabase(dbPath)
	if err != nil {
		return universal.FailLoad[universal.Session](provider.ResultError(err, "load cursor sessions"))
	}
	defer func() { _ = db.Close() }()

	composers, err := loadComposers(db)
	if err != nil {
		return universal.FailLoad[universal.Session](provider.ResultError(err, "load cursor sessions"))
	}

	var mtime int64
	if info, serr := os.Stat(dbPath); serr == nil {
		mtime = info.ModTime().UnixMilli()
	}

	sessions := make([]universal.Session, 0, len(composers))
	for _, c := range composers {
		title := c.Name
		if title == "" {
			title = "Untitled Session"
		}
		s := universal.Session{
			ID:           c.ComposerID,
			ProjectID:    GlobalProjectID,
			SourceID:     sourceID,
			ProviderID:   ProviderID,
			Title:        title,
			MessageCount: len(c.FullConversationHeadersOnly),
			ErrorCount:   universal.ErrorCountUnknown,
			Metadata:     map[string]json.RawMessage{},
			Checksum:     universal.Checksum(dbPath+"#"+c.ComposerID, mtime),
		}
		if c.CreatedAt > 0 {
			s.FirstMessageAt = msToRFC3339(c.CreatedAt)
		}
		if c.LastUpdatedAt > 0 {
			s.LastMessageAt = msToRFC3339(c.LastUpdatedAt)
			if c.CreatedAt > 0 && c.LastUpdatedAt >= c.CreatedAt {
				s.DurationMs = c.LastUpdatedAt - c.CreatedAt
			}
		}
		putMeta(s.Metadata, "composerId", c.ComposerID)
		putMeta(s.Metadata, "dbPath", dbPath)
		sessions = append(sessions, s)
	}

	sort.Slice(sessions, func(i, j int) bool {
		return sessions[i].LastMessageAt > sessions[j].LastMessageAt
	})

	return universal.OkLoad(sessions, 0, len(sessions))
}

// LoadMessages loads one composer's bubbles. sessionPath is the source root;
// the composer id arrives as sessionID.
func (a *Adapter) LoadMessages(sessionPath, sourceID, projectID, sessionID string, opts provider.LoadOptions) universal.LoadResult[universal.Message] {
	a.lc.MustBeReady()

	if sessionID == "" {
		err := provider.NewError(provider.CodeInvalidFormat, "cursor message loads require a session id", nil)
		return universal.FailLoad[universal.Message](provider.ResultError(err, "load cursor messages"))
	}

	db, err := openDatabase(statePath(sessionPath))
	if err != nil {
		return universal.FailLoad[universal.Message](provider.ResultError(err, "load cursor messages"))
	}
	defer func() { _ = db.Close() }()

	composers, err := loadComposers(db)
	if err != nil {
		return universal.FailLoad[universal.Message](provider.ResultError(err, "load cursor messages"))
	}
	composer, ok := composers[sessionID]
	if !ok {
		nerr := provider.NewError(provider.CodePathNotFound, fmt.Sprintf("composer %q not found", sessionID), nil)
		return universal.FailLoad[universal.Message](provider.ResultError(nerr, "load cursor messages"))
	}

	bubbles, err := loadBubbles(db, sessionID)
	if err != nil {
		return universal.FailLoad[universal.Message](provider.ResultError(err, "load cursor messages"))
	}
	bubbles = orderBubbles(bubbles, composer.FullConversationHeadersOnly)

	msgs := make([]universal.Message, 0, len(bubbles))
	for i, b := range bubbles {
		msgs = append(msgs, convertBubble(b, sessionID, sourceID, i+1))
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

// SearchMessages scans bubble text across all composers.
func (a *Adapter) SearchMessages(sourcePath, sourceID string, q provider.SearchQuery) universal.SearchResult[universal.Message] {
	a.lc.MustBeReady()
	start := time.Now()

	query := strings.ToLower(strings.TrimSpace(q.Query))
	if query == "" {
		return universal.FailSearch[universal.Message](provider.ResultError(
			provider.NewError(provider.CodeInvalidFormat, "search query cannot be empty", nil), "search"))
	}

	db, err := openDatabase(statePath(sourcePath))
	if err != nil {
		return universal.FailSearch[universal.Message](provider.ResultError(err, "search cursor messages"))
	}
	defer func() { _ = db.Close() }()

	pairs, err := queryDiskKV(db, "bubbleId:%")
	if err != nil {
		return universal.FailSearch[universal.Message](provider.ResultError(err, "search cursor messages"))
	}

	limit := q.Limit
	if limit <= 0 {
		limit = 100
	}

	var hits []universal.Message
	total := 0
	for _, kv := range pairs {
		parts := strings.SplitN(strings.TrimPrefix(kv.Key, "bubbleId:"), ":", 2)
		if len(parts) != 2 {
			continue
		}
		composerID := parts[0]
		if q.SessionID != "" && composerID != q.SessionID {
			continue
		}

		var b rawBubble
		if err := json.Unmarshal([]byte(kv.Value), &b); err != nil {
			continue
		}
		if !strings.Contains(strings.ToLower(b.Text), query) {
			continue
		}
		total++
		if len(hits) < limit {
			hits = append(hits, convertBubble(bubbleRecord{Bubble: b, Raw: kv.Value}, composerID, sourceID, total))
		}
	}

	return universal.OkSearch(hits, total, time.Since(start).Milliseconds())
}

func composerWindow(composers map[string]rawComposer) (first, last string) {
	var min, max int64
	for _, c := range composers {
		if c.CreatedAt > 0 && (min == 0 || c.CreatedAt < min) {
			min = c.CreatedAt
		}
		if c.LastUpdatedAt > max {
			max = c.LastUpdatedAt
		}
	}
	if min > 0 {
		first = msToRFC3339(min)
	}
	if max > 0 {
		last = msToRFC3339(max)
	}
	return first, last
}

func msToRFC3339(ms int64) string {
	return time.Unix(0, ms*int64(time.Millisecond)).UTC().Format(time.RFC3339)
}

func putMeta(meta map[string]json.RawMessage, key string, value any) {
	data, err := json.Marshal(value)
	if err != nil {
		return
	}
	meta[key] = data
}
