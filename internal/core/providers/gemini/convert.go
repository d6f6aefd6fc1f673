package gemini

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/ndokutovich/agentlog/internal/core/universal"
)

// sessionDoc is one session-*.json file. Older files store the message list
// under history instead of messages, or as a bare root array.
type sessionDoc struct {
	SessionID   string            `json:"sessionId"`
	ProjectHash string            `json:"projectHash"`
	StartTime   string            `json:"startTime"`
	LastUpdated string            `json:"lastUpdated"`
	Model       string            `json:"model"`
	Messages    []json.RawMessage `json:"messages"`
	History     []json.RawMessage `json:"history"`

	rootArray []json.RawMessage
	filePath  string
	fileSize  int64
	fileMtime time.Time
}

type rawMessage struct {
	Type      string          `json:"type"`
	Role      string          `json:"role"`
	Content   json.RawMessage `json:"content"`
	Timestamp string          `json:"timestamp"`
	ID        string          `json:"id"`
	UUID      string          `json:"uuid"`
	ParentID  string          `json:"parentId"`
	Model     string          `json:"model"`
	Name      string          `json:"name"`
	Tool      string          `json:"tool"`
	Input     json.RawMessage `json:"input"`
}

func readSessionFile(path string) (*sessionDoc, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read gemini session: %w", err)
	}

	doc := &sessionDoc{filePath: path}
	if info, serr := os.Stat(path); serr == nil {
		doc.fileSize = info.Size()
		doc.fileMtime = info.ModTime()
	}

	if err := json.Unmarshal(data, doc); err != nil {
		// Bare root array fallback.
		var arr []json.RawMessage
		if aerr := json.Unmarshal(data, &arr); aerr != nil {
			return nil, fmt.Errorf("failed to parse gemini session: %w", err)
		}
		doc.rootArray = arr
	}
	return doc, nil
}

func (d *sessionDoc) messageValues() []json.RawMessage {
	if len(d.Messages) > 0 {
		return d.Messages
	}
	if len(d.History) > 0 {
		return d.History
	}
	return d.rootArray
}

func (d *sessionDoc) sessionID(path string) string {
	if d.SessionID != "" {
		return d.SessionID
	}
	return universal.HashID(path)
}

// fileToSession builds the session aggregate for one file.
func (a *Adapter) fileToSession(path, sourceID, projectID string) (universal.Session, error) {
	doc, err := readSessionFile(path)
	if err != nil {
		return universal.Session{}, err
	}

	messages := doc.messageValues()

	s := universal.Session{
		ID:           doc.sessionID(path),
		ProjectID:    projectID,
		SourceID:     sourceID,
		ProviderID:   ProviderID,
		Title:        firstUserText(messages),
		MessageCount: len(messages),
		Metadata:     map[string]json.RawMessage{},
		Checksum:     universal.Checksum(path, doc.fileMtime.UnixMilli()),
	}
	if s.Title == "" {
		s.Title = "Untitled Session"
	}

	s.FirstMessageAt = doc.StartTime
	s.LastMessageAt = doc.LastUpdated
	if s.LastMessageAt == "" {
		s.LastMessageAt = s.FirstMessageAt
	}
	if s.FirstMessageAt != "" && s.LastMessageAt != "" {
		first, err1 := time.Parse(time.RFC3339, s.FirstMessageAt)
		last, err2 := time.Parse(time.RFC3339, s.LastMessageAt)
		if err1 == nil && err2 == nil && last.After(first) {
			s.DurationMs = last.Sub(first).Milliseconds()
		}
	}

	putMeta(s.Metadata, "filePath", path)
	putMeta(s.Metadata, "fileSizeBytes", doc.fileSize)
	if doc.ProjectHash != "" {
		putMeta(s.Metadata, "projectHash", doc.ProjectHash)
		if cwd, ok := a.resolver.Resolve(doc.ProjectHash); ok {
			putMeta(s.Metadata, "cwd", cwd)
		}
	}
	if doc.Model != "" {
		putMeta(s.Metadata, "model", doc.Model)
	}

	return s, nil
}

// convertMessage maps one raw message value onto the canonical message.
func convertMessage(value json.RawMessage, sessionID, projectID, sourceID string, sequence int) universal.Message {
	var msg rawMessage
	// A message that fails to decode still yields a record: the raw value is
	// preserved and defaults apply.
	_ = json.Unmarshal(value, &msg)

	id := msg.ID
	if id == "" {
		id = msg.UUID
	}
	if id == "" {
		id = fmt.Sprintf("gemini-%d", sequence)
	}

	m := universal.Message{
		ID:               id,
		SessionID:        sessionID,
		ProjectID:        projectID,
		SourceID:         sourceID,
		ProviderID:       ProviderID,
		Timestamp:        msg.Timestamp,
		SequenceNumber:   sequence,
		Role:             geminiRole(msg),
		MessageType:      universal.ParseMessageType(msg.Type),
		Content:          []universal.Content{},
		ParentID:         msg.ParentID,
		Model:            msg.Model,
		OriginalFormat:   string(value),
		ProviderMetadata: map[string]json.RawMessage{},
	}
	if m.Timestamp == "" {
		m.Timestamp = time.Now().UTC().Format(time.RFC3339)
	}

	if text := extractText(msg.Content); text != "" {
		m.Content = append(m.Content, universal.NewTextContent(text))
	} else if hasContent(msg.Content) {
		// Unknown content shape: keep it verbatim rather than drop it.
		m.Content = append(m.Content, universal.NewOpaqueContent(msg.Content))
	}
	m.ToolCalls = geminiToolCalls(msg)

	putMeta(m.ProviderMetadata, "originalType", msg.Type)

	return m
}

// geminiRole maps the provider's role synonyms onto the canonical enum
// before the shared default-to-user rule applies.
func geminiRole(msg rawMessage) universal.MessageRole {
	role := msg.Role
	if role == "" {
		role = msg.Type
	}
	switch strings.ToLower(role) {
	case "human":
		role = "user"
	case "gemini", "model":
		role = "assistant"
	case "tool", "tool_result":
		role = "function"
	}
	return universal.ParseRole(role)
}

// extractText digs plain text out of a string, object, or array content
// value.
func extractText(content json.RawMessage) string {
	if len(content) == 0 {
		return ""
	}

	var text string
	if err := json.Unmarshal(content, &text); err == nil {
		return text
	}

	var obj struct {
		Text string `json:"text"`
	}
	if err := json.Unmarshal(content, &obj); err == nil && obj.Text != "" {
		return obj.Text
	}

	var arr []json.RawMessage
	if err := json.Unmarshal(content, &arr); err == nil {
		for _, item := range arr {
			if t := extractText(item); t != "" {
				return t
			}
		}
	}
	return ""
}

// hasContent reports whether a content value holds anything beyond an empty
// or null JSON value.
func hasContent(raw json.RawMessage) bool {
	switch strings.TrimSpace(string(raw)) {
	case "", "null", `""`, "[]", "{}":
		return false
	}
	return true
}

func geminiToolCalls(msg rawMessage) []universal.ToolCall {
	if msg.Type != "tool_use" && msg.Type != "tool_call" {
		return nil
	}
	name := msg.Name
	if name == "" {
		name = msg.Tool
	}
	if name == "" {
		return nil
	}

	input := map[string]json.RawMessage{}
	if len(msg.Input) > 0 {
		_ = json.Unmarshal(msg.Input, &input)
	}

	return []universal.ToolCall{{
		ID:     "tool-" + uuid.NewString(),
		Name:   name,
		Input:  input,
		Status: universal.ToolCallSuccess,
	}}
}

func firstUserText(messages []json.RawMessage) string {
	for _, value := range messages {
		var msg rawMessage
		if err := json.Unmarshal(value, &msg); err != nil {
			continue
		}
		role := msg.Role
		if role == "" {
			role = msg.Type
		}
		if role != "user" && role != "human" {
			continue
		}
		text := strings.TrimSpace(extractText(msg.Content))
		if text == "" {
			continue
		}
		if idx := strings.IndexByte(text, '\n'); idx > 0 {
			text = text[:idx]
		}
		if r := []rune(text); len(r) > 80 {
			text = string(r[:80])
		}
		return text
	}
	return ""
}
