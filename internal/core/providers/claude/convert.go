package claude

import (
	"encoding/json"
	"strings"
	"time"

	"github.com/ndokutovich/agentlog/internal/core/universal"
	"github.com/ndokutovich/agentlog/pkg/claudesessions"
)

// convertEntry maps one parsed JSONL entry onto the canonical message,
// preserving the verbatim line in OriginalFormat and every field that has no
// canonical slot in ProviderMetadata.
func convertEntry(entry claudesessions.Entry, sessionID, projectID, sourceID string) universal.Message {
	m := universal.Message{
		ID:               entry.UUID,
		SessionID:        sessionID,
		ProjectID:        projectID,
		SourceID:         sourceID,
		ProviderID:       ProviderID,
		Timestamp:        entry.Timestamp,
		SequenceNumber:   entry.Sequence,
		Role:             determineRole(entry),
		MessageType:      determineType(entry),
		Content:          convertContent(entry.Message),
		ParentID:         entry.ParentUUID,
		Model:            entry.Model,
		OriginalFormat:   entry.Raw,
		ProviderMetadata: map[string]json.RawMessage{},
	}

	if entry.Usage != nil {
		m.Tokens = &universal.TokenUsage{
			InputTokens:         entry.Usage.InputTokens,
			OutputTokens:        entry.Usage.OutputTokens,
			CacheCreationTokens: entry.Usage.CacheCreationInputTokens,
			CacheReadTokens:     entry.Usage.CacheReadInputTokens,
		}
		m.Tokens.TotalTokens = m.Tokens.Total()
	}

	m.ToolCalls = extractToolCalls(entry.Message)
	m.Thinking = extractThinking(entry.Message, entry.Model)
	m.Errors = extractErrors(entry.Message, entry.Timestamp)

	putMeta(m.ProviderMetadata, "originalType", entry.Type)
	putMeta(m.ProviderMetadata, "isSidechain", entry.IsSidechain)
	if entry.CWD != "" {
		putMeta(m.ProviderMetadata, "cwd", entry.CWD)
	}
	if entry.GitBranch != "" {
		putMeta(m.ProviderMetadata, "gitBranch", entry.GitBranch)
	}
	if entry.Version != "" {
		putMeta(m.ProviderMetadata, "version", entry.Version)
	}

	return m
}

func determineRole(entry claudesessions.Entry) universal.MessageRole {
	if entry.Role != "" {
		return universal.ParseRole(entry.Role)
	}
	// Infer from the entry type when the message body carries no role.
	return universal.ParseRole(entry.Type)
}

func determineType(entry claudesessions.Entry) universal.MessageType {
	if entry.IsSidechain {
		return universal.TypeSidechain
	}
	return universal.ParseMessageType(entry.Type)
}

// convertContent applies the shared extraction rules: bare string content
// becomes one TEXT block, arrays map per item type, and any other shape is
// preserved verbatim as TEXT with JSON encoding.
func convertContent(message json.RawMessage) []universal.Content {
	content := []universal.Content{}
	if len(message) == 0 {
		return content
	}

	var body struct {
		Content json.RawMessage `json:"content"`
	}
	if err := json.Unmarshal(message, &body); err != nil || len(body.Content) == 0 {
		return content
	}

	var text string
	if err := json.Unmarshal(body.Content, &text); err == nil {
		return append(content, universal.NewTextContent(text))
	}

	var items []json.RawMessage
	if err := json.Unmarshal(body.Content, &items); err == nil {
		for _, item := range items {
			content = append(content, convertContentItem(item))
		}
		return content
	}

	return append(content, universal.NewOpaqueContent(body.Content))
}

func convertContentItem(item json.RawMessage) universal.Content {
	var head struct {
		Type string `json:"type"`
		Text string `json:"text"`
	}
	if err := json.Unmarshal(item, &head); err != nil {
		return universal.NewOpaqueContent(item)
	}

	switch head.Type {
	case "text":
		return universal.NewTextContent(head.Text)
	case "tool_use":
		return universal.NewJSONContent(universal.ContentToolUse, item)
	case "tool_result":
		return universal.NewJSONContent(universal.ContentToolResult, item)
	case "thinking":
		return universal.NewJSONContent(universal.ContentThinking, item)
	case "image":
		return universal.NewJSONContent(universal.ContentImage, item)
	default:
		return universal.NewOpaqueContent(item)
	}
}

func contentItems(message json.RawMessage) []json.RawMessage {
	var body struct {
		Content json.RawMessage `json:"content"`
	}
	if err := json.Unmarshal(message, &body); err != nil || len(body.Content) == 0 {
		return nil
	}
	var items []json.RawMessage
	if err := json.Unmarshal(body.Content, &items); err != nil {
		return nil
	}
	return items
}

// extractToolCalls pulls tool_use blocks from the content array,
// deduplicated by id.
func extractToolCalls(message json.RawMessage) []universal.ToolCall {
	var calls []universal.ToolCall
	seen := map[string]bool{}

	for _, item := range contentItems(message) {
		var block struct {
			Type  string                     `json:"type"`
			ID    string                     `json:"id"`
			Name  string                     `json:"name"`
			Input map[string]json.RawMessage `json:"input"`
		}
		if err := json.Unmarshal(item, &block); err != nil || block.Type != "tool_use" {
			continue
		}
		if block.ID == "" || block.Name == "" || seen[block.ID] {
			continue
		}
		seen[block.ID] = true
		input := block.Input
		if input == nil {
			input = map[string]json.RawMessage{}
		}
		calls = append(calls, universal.ToolCall{
			ID:     block.ID,
			Name:   block.Name,
			Input:  input,
			Status: universal.ToolCallPending,
		})
	}
	return calls
}

// extractThinking returns the first thinking block, if any.
func extractThinking(message json.RawMessage, model string) *universal.ThinkingBlock {
	for _, item := range contentItems(message) {
		var block struct {
			Type      string `json:"type"`
			Thinking  string `json:"thinking"`
			Signature string `json:"signature"`
		}
		if err := json.Unmarshal(item, &block); err != nil || block.Type != "thinking" {
			continue
		}
		if block.Thinking == "" {
			continue
		}
		return &universal.ThinkingBlock{
			Content:   block.Thinking,
			Signature: block.Signature,
			Model:     model,
		}
	}
	return nil
}

// extractErrors collects tool_result blocks flagged is_error.
func extractErrors(message json.RawMessage, timestamp string) []universal.ErrorInfo {
	var errs []universal.ErrorInfo
	for _, item := range contentItems(message) {
		var block struct {
			Type    string          `json:"type"`
			IsError bool            `json:"is_error"`
			Content json.RawMessage `json:"content"`
		}
		if err := json.Unmarshal(item, &block); err != nil || block.Type != "tool_result" || !block.IsError {
			continue
		}
		msg := "Unknown error"
		var text string
		if err := json.Unmarshal(block.Content, &text); err == nil {
			msg = text
		}
		errs = append(errs, universal.ErrorInfo{
			Code:      "tool_result_error",
			Message:   msg,
			Details:   item,
			Timestamp: timestamp,
		})
	}
	return errs
}

// buildSession computes the session aggregates from a parsed file.
func buildSession(parsed *claudesessions.ParsedSession, sourceID, projectID string) universal.Session {
	s := universal.Session{
		ID:         parsed.SessionID,
		ProjectID:  projectID,
		SourceID:   sourceID,
		ProviderID: ProviderID,
		Title:      parsed.Summary,
		Metadata:   map[string]json.RawMessage{},
		Checksum:   universal.Checksum(parsed.FilePath, parsed.FileMtime.UnixMilli()),
	}

	var totals universal.TokenUsage
	for _, entry := range parsed.Entries {
		if entry.Timestamp == "" {
			continue
		}
		if s.FirstMessageAt == "" || entry.Timestamp < s.FirstMessageAt {
			s.FirstMessageAt = entry.Timestamp
		}
		if entry.Timestamp > s.LastMessageAt {
			s.LastMessageAt = entry.Timestamp
		}
		if entry.Usage != nil {
			totals.InputTokens += entry.Usage.InputTokens
			totals.OutputTokens += entry.Usage.OutputTokens
			totals.CacheCreationTokens += entry.Usage.CacheCreationInputTokens
			totals.CacheReadTokens += entry.Usage.CacheReadInputTokens
		}
		s.ToolCallCount += len(extractToolCalls(entry.Message))
		s.ErrorCount += len(extractErrors(entry.Message, entry.Timestamp))
	}
	s.MessageCount = len(parsed.Entries)

	if totals != (universal.TokenUsage{}) {
		totals.TotalTokens = totals.Total()
		s.TotalTokens = &totals
	}

	if s.Title == "" {
		s.Title = firstUserText(parsed)
	}
	if s.Title == "" {
		s.Title = "Untitled Session"
	}

	if s.FirstMessageAt != "" && s.LastMessageAt != "" {
		first, err1 := time.Parse(time.RFC3339, s.FirstMessageAt)
		last, err2 := time.Parse(time.RFC3339, s.LastMessageAt)
		if err1 == nil && err2 == nil {
			s.DurationMs = last.Sub(first).Milliseconds()
		}
	}

	putMeta(s.Metadata, "filePath", parsed.FilePath)
	putMeta(s.Metadata, "fileSizeBytes", parsed.FileSize)
	if parsed.LeafUUID != "" {
		putMeta(s.Metadata, "leafUuid", parsed.LeafUUID)
	}
	if cwd := firstCWD(parsed); cwd != "" {
		putMeta(s.Metadata, "cwd", cwd)
	}

	return s
}

func firstUserText(parsed *claudesessions.ParsedSession) string {
	for _, entry := range parsed.Entries {
		if entry.Type != "user" {
			continue
		}
		text := strings.TrimSpace(claudesessions.ExtractText(entry.Message))
		if text == "" {
			continue
		}
		if r := []rune(text); len(r) > 80 {
			text = string(r[:80])
		}
		if idx := strings.IndexByte(text, '\n'); idx > 0 {
			text = text[:idx]
		}
		return text
	}
	return ""
}

func firstCWD(parsed *claudesessions.ParsedSession) string {
	for _, entry := range parsed.Entries {
		if entry.CWD != "" {
			return entry.CWD
		}
	}
	return ""
}

func putMeta(meta map[string]json.RawMessage, key string, value any) {
	data, err := json.Marshal(value)
	if err != nil {
		return
	}
	meta[key] = data
}

func metadataMap(key, value string) map[string]json.RawMessage {
	meta := map[string]json.RawMessage{}
	putMeta(meta, key, value)
	return meta
}
