package claude

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"github.com/ndokutovich/agentlog/internal/core/provider"
	"github.com/ndokutovich/agentlog/internal/core/universal"
	"github.com/ndokutovich/agentlog/pkg/claudesessions"
)

// jsonlRecord is the on-disk line shape produced by write operations. It
// mirrors what Claude Code itself writes so the files stay readable by the
// original tool.
type jsonlRecord struct {
	UUID       string          `json:"uuid"`
	ParentUUID string          `json:"parentUuid,omitempty"`
	SessionID  string          `json:"sessionId"`
	Type       string          `json:"type"`
	Timestamp  string          `json:"timestamp"`
	Message    json.RawMessage `json:"message"`
	CWD        string          `json:"cwd,omitempty"`
}

// CreateProject creates the encoded project directory for an absolute
// working-directory path.
func (a *Adapter) CreateProject(sourcePath, name string) universal.WriteResult[provider.WriteReceipt] {
	a.lc.MustBeReady()

	dir, err := a.ConvertToProjectPath(sourcePath, name)
	if err != nil {
		return universal.FailWrite[provider.WriteReceipt](provider.ResultError(err, "create claude project"))
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return universal.FailWrite[provider.WriteReceipt](provider.ResultError(err, "create claude project"))
	}

	receipt := provider.WriteReceipt{Path: dir, ID: filepath.Base(dir)}
	return universal.OkWrite(&receipt)
}

// CreateSession creates a fresh session file in the project directory,
// optionally seeding it with a first message.
func (a *Adapter) CreateSession(sourcePath, projectID string, first *provider.MessageInput) universal.WriteResult[provider.WriteReceipt] {
	a.lc.MustBeReady()

	dir := filepath.Join(sourcePath, "projects", projectID)
	if _, err := os.Stat(dir); err != nil {
		return universal.FailWrite[provider.WriteReceipt](provider.ResultError(err, "create claude session"))
	}

	sessionID := uuid.NewString()
	path := filepath.Join(dir, sessionID+".jsonl")

	var inputs []provider.MessageInput
	if first != nil {
		inputs = append(inputs, *first)
	}
	count, err := appendRecords(path, sessionID, "", inputs)
	if err != nil {
		return universal.FailWrite[provider.WriteReceipt](provider.ResultError(err, "create claude session"))
	}
	if len(inputs) == 0 {
		// Session exists as an empty file until the first append.
		if f, cerr := os.OpenFile(path, os.O_CREATE|os.O_WRONLY, 0o644); cerr == nil {
			_ = f.Close()
		} else {
			return universal.FailWrite[provider.WriteReceipt](provider.ResultError(cerr, "create claude session"))
		}
	}

	receipt := provider.WriteReceipt{Path: path, ID: sessionID, MessageCount: count}
	return universal.OkWrite(&receipt)
}

// AppendMessages appends records to an existing session file, chaining
// parentUuid from the file's current last message. Best-effort: the append is
// atomic per line, not per batch.
func (a *Adapter) AppendMessages(sessionPath string, msgs []provider.MessageInput) universal.WriteResult[provider.WriteReceipt] {
	a.lc.MustBeReady()

	parsed, err := claudesessions.ParseFile(sessionPath)
	if err != nil {
		return universal.FailWrite[provider.WriteReceipt](provider.ResultError(err, "append to claude session"))
	}

	lastUUID := ""
	if n := len(parsed.Entries); n > 0 {
		lastUUID = parsed.Entries[n-1].UUID
	}

	if _, err := appendRecords(sessionPath, parsed.SessionID, lastUUID, msgs); err != nil {
		return universal.FailWrite[provider.WriteReceipt](provider.ResultError(err, "append to claude session"))
	}

	receipt := provider.WriteReceipt{
		Path:         sessionPath,
		ID:           parsed.SessionID,
		MessageCount: len(parsed.Entries) + len(msgs),
	}
	return universal.OkWrite(&receipt)
}

func appendRecords(path, sessionID, parentUUID string, msgs []provider.MessageInput) (int, error) {
	if len(msgs) == 0 {
		return 0, nil
	}

	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return 0, fmt.Errorf("open session file: %w", err)
	}
	defer func() { _ = f.Close() }()

	written := 0
	prev := parentUUID
	for _, in := range msgs {
		body, err := buildMessageBody(in)
		if err != nil {
			return written, err
		}
		rec := jsonlRecord{
			UUID:       uuid.NewString(),
			ParentUUID: prev,
			SessionID:  sessionID,
			Type:       in.Role,
			Timestamp:  time.Now().UTC().Format(time.RFC3339),
			Message:    body,
		}
		line, err := json.Marshal(rec)
		if err != nil {
			return written, fmt.Errorf("marshal record: %w", err)
		}
		if _, err := f.Write(append(line, '\n')); err != nil {
			return written, fmt.Errorf("write record: %w", err)
		}
		prev = rec.UUID
		written++
	}
	return written, nil
}

func buildMessageBody(in provider.MessageInput) (json.RawMessage, error) {
	body := map[string]any{
		"role":    in.Role,
		"content": in.Content,
	}
	if in.Model != "" {
		body["model"] = in.Model
	}
	if in.Usage != "" {
		var usage json.RawMessage
		if err := json.Unmarshal([]byte(in.Usage), &usage); err != nil {
			return nil, fmt.Errorf("invalid usage payload: %w", err)
		}
		body["usage"] = usage
	}
	return json.Marshal(body)
}

// GetSessionStats implements provider.StatsProvider.
func (a *Adapter) GetSessionStats(sessionPath string) (provider.SessionStats, error) {
	a.lc.MustBeReady()

	parsed, err := claudesessions.ParseFile(sessionPath)
	if err != nil {
		return provider.SessionStats{}, fmt.Errorf("session stats: %w", err)
	}

	stats := provider.SessionStats{MessageCount: len(parsed.Entries)}
	for _, entry := range parsed.Entries {
		stats.ToolCallCount += len(extractToolCalls(entry.Message))
		stats.ErrorCount += len(extractErrors(entry.Message, entry.Timestamp))
		if entry.Usage != nil {
			stats.TotalTokens.InputTokens += entry.Usage.InputTokens
			stats.TotalTokens.OutputTokens += entry.Usage.OutputTokens
			stats.TotalTokens.CacheCreationTokens += entry.Usage.CacheCreationInputTokens
			stats.TotalTokens.CacheReadTokens += entry.Usage.CacheReadInputTokens
		}
	}
	stats.TotalTokens.TotalTokens = stats.TotalTokens.Total()
	return stats, nil
}

// GetProjectStats implements provider.StatsProvider.
func (a *Adapter) GetProjectStats(projectPath string) (provider.ProjectStats, error) {
	a.lc.MustBeReady()

	files, err := filepath.Glob(filepath.Join(projectPath, "*.jsonl"))
	if err != nil {
		return provider.ProjectStats{}, fmt.Errorf("project stats: %w", err)
	}

	stats := provider.ProjectStats{SessionCount: len(files)}
	for _, f := range files {
		if info, err := os.Stat(f); err == nil {
			stats.TotalSizeByte += info.Size()
		}
		if parsed, err := claudesessions.ParseFile(f); err == nil {
			stats.MessageCount += len(parsed.Entries)
		}
	}
	return stats, nil
}
