package codex

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/ndokutovich/agentlog/internal/core/universal"
)

// fileToSession builds the session aggregate for one rollout file.
func (a *Adapter) fileToSession(path, sourceID string) (universal.Session, error) {
	events, _, err := parseRolloutFile(path)
	if err != nil {
		return universal.Session{}, err
	}

	info, err := os.Stat(path)
	if err != nil {
		return universal.Session{}, fmt.Errorf("failed to stat rollout file: %w", err)
	}

	msgs := messageEvents(events)

	s := universal.Session{
		ID:           sessionIDForFile(path, events),
		ProjectID:    RolloutProjectID,
		SourceID:     sourceID,
		ProviderID:   ProviderID,
		Title:        firstUserText(msgs),
		MessageCount: len(msgs),
		Metadata:     map[string]json.RawMessage{},
		Checksum:     universal.Checksum(path, info.ModTime().UnixMilli()),
	}
	if s.Title == "" {
		s.Title = "Untitled Session"
	}

	for _, ev := range msgs {
		if ev.Timestamp == "" {
			continue
		}
		if s.FirstMessageAt == "" || ev.Timestamp < s.FirstMessageAt {
			s.FirstMessageAt = ev.Timestamp
		}
		if ev.Timestamp > s.LastMessageAt {
			s.LastMessageAt = ev.Timestamp
		}
	}
	if s.FirstMessageAt == "" {
		if ts, _, ok := parseRolloutFilename(filepath.Base(path)); ok {
			s.FirstMessageAt = ts
		}
	}
	if s.LastMessageAt == "" {
		s.LastMessageAt = s.FirstMessageAt
	}
	if first, err1 := time.Parse(time.RFC3339, s.FirstMessageAt); err1 == nil {
		if last, err2 := time.Parse(time.RFC3339, s.LastMessageAt); err2 == nil && last.After(first) {
			s.DurationMs = last.Sub(first).Milliseconds()
		}
	}

	putMeta(s.Metadata, "filePath", path)
	putMeta(s.Metadata, "fileSizeBytes", info.Size())
	if cwd := sessionCwd(events); cwd != "" {
		putMeta(s.Metadata, "cwd", cwd)
	}
	for _, ev := range events {
		if p := payloadOf(ev); p.Model != "" {
			putMeta(s.Metadata, "model", p.Model)
			break
		}
	}

	return s, nil
}

// convertEvent maps one message event onto the canonical message.
func convertEvent(ev rolloutEvent, sessionID, sourceID string, sequence int, path string) universal.Message {
	p := payloadOf(ev)

	id := p.ID
	if id == "" {
		id = fmt.Sprintf("%s-%d", sessionID, sequence)
	}

	m := universal.Message{
		ID:               id,
		SessionID:        sessionID,
		ProjectID:        RolloutProjectID,
		SourceID:         sourceID,
		ProviderID:       ProviderID,
		Timestamp:        ev.Timestamp,
		SequenceNumber:   sequence,
		Role:             codexRole(ev, p),
		MessageType:      universal.TypeMessage,
		Content:          []universal.Content{},
		Model:            p.Model,
		OriginalFormat:   ev.Raw,
		ProviderMetadata: map[string]json.RawMessage{},
	}
	if m.Timestamp == "" {
		if ts, _, ok := parseRolloutFilename(filepath.Base(path)); ok {
			m.Timestamp = ts
		}
	}

	if text := contentText(p.Content); text != "" {
		m.Content = append(m.Content, universal.NewTextContent(text))
	} else if hasContent(p.Content) {
		// Unknown content shape: keep it verbatim rather than drop it.
		m.Content = append(m.Content, universal.NewOpaqueContent(p.Content))
	}

	putMeta(m.ProviderMetadata, "eventType", eventKind(ev))

	return m
}

// codexRole derives the role from the payload, falling back to the event
// kind. Codex events without either are assistant output.
func codexRole(ev rolloutEvent, p eventPayload) universal.MessageRole {
	if p.Role != "" {
		return universal.ParseRole(p.Role)
	}
	switch eventKind(ev) {
	case "user_message", "user_input", "user":
		return universal.RoleUser
	case "assistant_message", "assistant_response", "assistant":
		return universal.RoleAssistant
	case "system_message", "system":
		return universal.RoleSystem
	}
	return universal.RoleAssistant
}

// contentText flattens a content value: either a plain string or an array of
// typed items whose text parts are joined.
func contentText(content json.RawMessage) string {
	if len(content) == 0 {
		return ""
	}

	var text string
	if err := json.Unmarshal(content, &text); err == nil {
		return text
	}

	var items []struct {
		Type string `json:"type"`
		Text string `json:"text"`
	}
	if err := json.Unmarshal(content, &items); err != nil {
		return ""
	}

	var parts []string
	for _, item := range items {
		switch item.Type {
		case "text", "input_text", "output_text":
			if item.Text != "" {
				parts = append(parts, item.Text)
			}
		}
	}
	return strings.Join(parts, "\n")
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

func firstUserText(events []rolloutEvent) string {
	for _, ev := range events {
		p := payloadOf(ev)
		if codexRole(ev, p) != universal.RoleUser {
			continue
		}
		text := strings.TrimSpace(contentText(p.Content))
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

func putMeta(meta map[string]json.RawMessage, key string, value any) {
	data, err := json.Marshal(value)
	if err != nil {
		return
	}
	meta[key] = data
}
