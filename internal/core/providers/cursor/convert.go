package cursor

import (
	"encoding/json"
	"fmt"

	"github.com/ndokutovich/agentlog/internal/core/universal"
)

// convertBubble maps one bubble record onto the canonical message. Bubble
// type 1 is a user message and 2 an assistant message; anything else falls
// back to the user role per the shared conversion rules.
func convertBubble(rec bubbleRecord, composerID, sourceID string, sequence int) universal.Message {
	b := rec.Bubble

	id := b.BubbleID
	if id == "" {
		id = fmt.Sprintf("cursor-%s-%d", composerID, sequence)
	}

	m := universal.Message{
		ID:               id,
		SessionID:        composerID,
		ProjectID:        GlobalProjectID,
		SourceID:         sourceID,
		ProviderID:       ProviderID,
		SequenceNumber:   sequence,
		Role:             bubbleRole(b.Type),
		MessageType:      universal.TypeMessage,
		Content:          []universal.Content{},
		OriginalFormat:   rec.Raw,
		ProviderMetadata: map[string]json.RawMessage{},
	}

	if b.Timestamp > 0 {
		m.Timestamp = msToRFC3339(b.Timestamp)
	}
	if b.Text != "" {
		m.Content = append(m.Content, universal.NewTextContent(b.Text))
	}

	putMeta(m.ProviderMetadata, "bubbleType", b.Type)
	if b.RichText != "" {
		putMeta(m.ProviderMetadata, "richText", b.RichText)
	}

	return m
}

func bubbleRole(t int) universal.MessageRole {
	switch t {
	case 1:
		return universal.RoleUser
	case 2:
		return universal.RoleAssistant
	default:
		return universal.RoleUser
	}
}
