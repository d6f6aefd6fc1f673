package universal

import (
	"encoding/json"
	"strings"
)

// MessageRole identifies who authored a message.
type MessageRole string

const (
	RoleUser      MessageRole = "user"
	RoleAssistant MessageRole = "assistant"
	RoleSystem    MessageRole = "system"
	RoleFunction  MessageRole = "function"
)

// MessageType classifies a message within a session.
type MessageType string

const (
	TypeMessage   MessageType = "message"
	TypeSummary   MessageType = "summary"
	TypeSidechain MessageType = "sidechain"
)

// ContentType identifies the shape of a content block.
type ContentType string

const (
	ContentText       ContentType = "text"
	ContentCode       ContentType = "code"
	ContentImage      ContentType = "image"
	ContentFile       ContentType = "file"
	ContentToolUse    ContentType = "tool_use"
	ContentToolResult ContentType = "tool_result"
	ContentThinking   ContentType = "thinking"
)

// HealthStatus describes the current condition of a source.
type HealthStatus string

const (
	HealthHealthy  HealthStatus = "healthy"
	HealthDegraded HealthStatus = "degraded"
	HealthOffline  HealthStatus = "offline"
)

// ToolCallStatus tracks the outcome of a tool invocation.
type ToolCallStatus string

const (
	ToolCallPending ToolCallStatus = "pending"
	ToolCallSuccess ToolCallStatus = "success"
	ToolCallError   ToolCallStatus = "error"
)

// Content is one typed block inside a message. Data holds the block payload
// verbatim so unknown shapes survive the conversion.
type Content struct {
	Type     ContentType     `json:"type"`
	Data     json.RawMessage `json:"data"`
	Encoding string          `json:"encoding,omitempty"`
	MimeType string          `json:"mimeType,omitempty"`
	Size     int             `json:"size,omitempty"`
}

// TokenUsage aggregates API token counts for a message. Missing sub-fields
// are zero, never "unknown".
type TokenUsage struct {
	InputTokens         int `json:"inputTokens"`
	OutputTokens        int `json:"outputTokens"`
	CacheCreationTokens int `json:"cacheCreationTokens,omitempty"`
	CacheReadTokens     int `json:"cacheReadTokens,omitempty"`
	TotalTokens         int `json:"totalTokens"`
}

// Total returns input + output + cache creation + cache read.
func (t TokenUsage) Total() int {
	return t.InputTokens + t.OutputTokens + t.CacheCreationTokens + t.CacheReadTokens
}

// ToolCall is one tool invocation extracted from a message.
type ToolCall struct {
	ID     string                     `json:"id"`
	Name   string                     `json:"name"`
	Input  map[string]json.RawMessage `json:"input"`
	Output json.RawMessage            `json:"output,omitempty"`
	Error  string                     `json:"error,omitempty"`
	Status ToolCallStatus             `json:"status"`
}

// ThinkingBlock holds extended reasoning attached to a message.
type ThinkingBlock struct {
	Content   string `json:"content"`
	Signature string `json:"signature,omitempty"`
	Model     string `json:"model,omitempty"`
}

// Attachment references a file, image, or URL carried by a message.
type Attachment struct {
	Type     string `json:"type"`
	Name     string `json:"name"`
	Path     string `json:"path,omitempty"`
	URL      string `json:"url,omitempty"`
	Size     int64  `json:"size,omitempty"`
	MimeType string `json:"mimeType,omitempty"`
}

// ErrorInfo records an error that occurred inside a conversation, such as a
// failed tool invocation.
type ErrorInfo struct {
	Code      string          `json:"code"`
	Message   string          `json:"message"`
	Details   json.RawMessage `json:"details,omitempty"`
	Timestamp string          `json:"timestamp"`
}

// Message is the canonical record every provider converts into.
//
// Content is never nil (possibly empty) and OriginalFormat always carries the
// verbatim serialization of the source record so a round-trip loses nothing.
// SequenceNumber is unique and increasing within one session.
type Message struct {
	ID         string `json:"id"`
	SessionID  string `json:"sessionId"`
	ProjectID  string `json:"projectId"`
	SourceID   string `json:"sourceId"`
	ProviderID string `json:"providerId"`

	Timestamp      string `json:"timestamp"`
	SequenceNumber int    `json:"sequenceNumber"`

	Role        MessageRole `json:"role"`
	MessageType MessageType `json:"messageType"`

	Content []Content `json:"content"`

	ParentID string `json:"parentId,omitempty"`
	Depth    int    `json:"depth,omitempty"`
	BranchID string `json:"branchId,omitempty"`

	Model       string         `json:"model,omitempty"`
	Tokens      *TokenUsage    `json:"tokens,omitempty"`
	ToolCalls   []ToolCall     `json:"toolCalls,omitempty"`
	Thinking    *ThinkingBlock `json:"thinking,omitempty"`
	Attachments []Attachment   `json:"attachments,omitempty"`
	Errors      []ErrorInfo    `json:"errors,omitempty"`

	OriginalFormat   string                     `json:"originalFormat"`
	ProviderMetadata map[string]json.RawMessage `json:"providerMetadata"`
}

// ErrorCountUnknown is the sentinel for Session.ErrorCount meaning "errors
// are known to exist but the count was not computed". Distinct from zero.
const ErrorCountUnknown = -1

// Session is one conversation.
type Session struct {
	ID         string `json:"id"`
	ProjectID  string `json:"projectId"`
	SourceID   string `json:"sourceId"`
	ProviderID string `json:"providerId"`

	Title string `json:"title"`

	MessageCount   int    `json:"messageCount"`
	FirstMessageAt string `json:"firstMessageAt"`
	LastMessageAt  string `json:"lastMessageAt"`
	DurationMs     int64  `json:"duration"`

	TotalTokens   *TokenUsage `json:"totalTokens,omitempty"`
	ToolCallCount int         `json:"toolCallCount"`
	ErrorCount    int         `json:"errorCount"`

	Metadata map[string]json.RawMessage `json:"metadata"`
	Checksum string                     `json:"checksum"`
}

// Project groups sessions under one working directory.
type Project struct {
	ID         string `json:"id"`
	SourceID   string `json:"sourceId"`
	ProviderID string `json:"providerId"`

	Name string `json:"name"`
	Path string `json:"path"`

	SessionCount  int `json:"sessionCount"`
	TotalMessages int `json:"totalMessages"`

	FirstActivityAt string `json:"firstActivityAt,omitempty"`
	LastActivityAt  string `json:"lastActivityAt,omitempty"`

	Metadata map[string]json.RawMessage `json:"metadata"`
}

// SourceStats caches aggregate counts for a source.
type SourceStats struct {
	ProjectCount int   `json:"projectCount"`
	SessionCount int   `json:"sessionCount"`
	MessageCount int   `json:"messageCount"`
	TotalSize    int64 `json:"totalSize"`
}

// Source is one configured root, e.g. an installed tool's data directory.
type Source struct {
	ID         string `json:"id"`
	Name       string `json:"name"`
	Path       string `json:"path"`
	ProviderID string `json:"providerId"`

	IsDefault   bool   `json:"isDefault"`
	IsAvailable bool   `json:"isAvailable"`
	AddedAt     string `json:"addedAt"`

	LastValidation  string `json:"lastValidation,omitempty"`
	ValidationError string `json:"validationError,omitempty"`
	LastScanAt      string `json:"lastScanAt,omitempty"`

	Stats          SourceStats                `json:"stats"`
	ProviderConfig map[string]json.RawMessage `json:"providerConfig"`
	HealthStatus   HealthStatus               `json:"healthStatus"`
}

// ParseRole maps an arbitrary role string onto the canonical enum. The match
// is case-insensitive; anything unrecognized falls back to RoleUser.
func ParseRole(s string) MessageRole {
	switch strings.ToLower(s) {
	case "user":
		return RoleUser
	case "assistant":
		return RoleAssistant
	case "system":
		return RoleSystem
	case "function":
		return RoleFunction
	default:
		return RoleUser
	}
}

// ParseMessageType maps a native type tag onto the canonical enum. Only the
// literal tags "summary" and "sidechain" are recognized; everything else is a
// plain message.
func ParseMessageType(s string) MessageType {
	switch strings.ToLower(s) {
	case "summary":
		return TypeSummary
	case "sidechain":
		return TypeSidechain
	default:
		return TypeMessage
	}
}
