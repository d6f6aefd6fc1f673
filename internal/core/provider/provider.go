// Package provider defines the contract every conversation-log adapter
// implements: lifecycle, detection, validation, paginated data access, and
// the shared error taxonomy. Concrete adapters live under
// internal/core/providers.
package provider

import (
	"github.com/ndokutovich/agentlog/internal/core/universal"
)

// Capabilities declares what a provider supports. Callers consult these flags
// before invoking optional operations; an adapter may implement a method stub
// while the flag still reports the feature as unsupported.
type Capabilities struct {
	SupportsThinking        bool `json:"supportsThinking"`
	SupportsToolCalls       bool `json:"supportsToolCalls"`
	SupportsSearch          bool `json:"supportsSearch"`
	SupportsPagination      bool `json:"supportsPagination"`
	IsReadOnly              bool `json:"isReadOnly"`
	SupportsProjectCreation bool `json:"supportsProjectCreation"`
	SupportsSessionCreation bool `json:"supportsSessionCreation"`
	SupportsMessageAppend   bool `json:"supportsMessageAppending"`
	MaxMessagesPerRequest   int  `json:"maxMessagesPerRequest,omitempty"`
	PreferredBatchSize      int  `json:"preferredBatchSize,omitempty"`
}

// PatternType distinguishes file and directory detection patterns.
type PatternType string

const (
	PatternFile      PatternType = "file"
	PatternDirectory PatternType = "directory"
)

// DetectionPattern is one declared signature of a provider's on-disk layout.
// Pattern is a glob matched relative to the candidate root.
type DetectionPattern struct {
	Type     PatternType `json:"type"`
	Pattern  string      `json:"pattern"`
	Weight   int         `json:"weight"`
	Required bool        `json:"required"`
}

// Definition is the static descriptor each adapter registers with.
type Definition struct {
	ID                string             `json:"id"`
	Name              string             `json:"name"`
	Version           string             `json:"version"`
	Capabilities      Capabilities       `json:"capabilities"`
	DetectionPatterns []DetectionPattern `json:"detectionPatterns"`
}

// Valid reports whether the definition carries every required field.
func (d Definition) Valid() bool {
	return d.ID != "" && d.Name != "" && d.Version != "" && len(d.DetectionPatterns) > 0
}

// DetectionScore is the verdict of a cheap canHandle probe. Confidence is a
// 0-100 integer.
type DetectionScore struct {
	CanHandle       bool     `json:"canHandle"`
	Confidence      int      `json:"confidence"`
	MatchedPatterns []string `json:"matchedPatterns"`
	MissingPatterns []string `json:"missingPatterns"`
}

// ValidationResult is the verdict of a structural validation, stricter than
// detection but still short of a full parse.
type ValidationResult struct {
	IsValid    bool     `json:"isValid"`
	Confidence int      `json:"confidence"`
	Errors     []string `json:"errors"`
	Warnings   []string `json:"warnings"`
}

// SortOrder controls message ordering in load operations.
type SortOrder string

const (
	SortAsc  SortOrder = "asc"
	SortDesc SortOrder = "desc"
)

// LoadOptions carries pagination and filtering parameters for message loads.
type LoadOptions struct {
	Offset           int
	Limit            int
	ExcludeSidechain bool

	// IncludeRaw and IncludeMetadata are accepted for wire compatibility
	// but not yet honored: every adapter populates OriginalFormat and
	// ProviderMetadata unconditionally, as both are cheap to carry.
	IncludeRaw      bool
	IncludeMetadata bool

	SortOrder SortOrder
}

// SearchQuery carries a full-text query plus optional filters.
type SearchQuery struct {
	Query        string
	Projects     []string
	SessionID    string
	MessageType  universal.MessageType
	HasToolCalls bool
	HasErrors    bool
	DateFrom     string
	DateTo       string
	Limit        int
}

// MessageInput is the payload accepted by write operations.
type MessageInput struct {
	Role          string `json:"role"`
	Content       string `json:"content"`
	ParentID      string `json:"parent_id,omitempty"`
	Model         string `json:"model,omitempty"`
	ToolUse       string `json:"tool_use,omitempty"`
	ToolUseResult string `json:"tool_use_result,omitempty"`
	Usage         string `json:"usage,omitempty"`
}

// WriteReceipt is returned by write operations.
type WriteReceipt struct {
	Path         string `json:"path"`
	ID           string `json:"id"`
	MessageCount int    `json:"message_count"`
}

// SessionStats aggregates per-session numbers for providers that can compute
// them cheaply.
type SessionStats struct {
	MessageCount  int
	ToolCallCount int
	ErrorCount    int
	TotalTokens   universal.TokenUsage
}

// ProjectStats aggregates per-project numbers.
type ProjectStats struct {
	SessionCount  int
	MessageCount  int
	TotalSizeByte int64
}

// Provider is the contract every adapter implements.
//
// Initialize and Dispose are lifecycle calls: invoking any data operation
// before Initialize, or Initialize twice, is a programmer error and panics
// rather than returning a Result. Everything else reports expected failures
// inside its Result envelope and never panics for runtime conditions.
type Provider interface {
	Definition() Definition

	Initialize()
	Dispose()

	// CanHandle is the cheap auto-detection probe. It must not panic or
	// error; on internal failure it returns CanHandle:false, Confidence:0.
	CanHandle(path string) DetectionScore

	// Validate checks structural prerequisites without a full parse.
	Validate(path string) ValidationResult

	ScanProjects(sourcePath, sourceID string) universal.ScanResult[universal.Project]
	LoadSessions(sourcePath, sourceID, projectID string) universal.LoadResult[universal.Session]
	LoadMessages(sessionPath, sourceID, projectID, sessionID string, opts LoadOptions) universal.LoadResult[universal.Message]

	// SearchMessages returns PROVIDER_UNAVAILABLE when the provider has no
	// search support, never a panic.
	SearchMessages(sourcePath, sourceID string, q SearchQuery) universal.SearchResult[universal.Message]
}

// StatsProvider is the optional stats capability. Presence is declared via
// Definition().Capabilities, never discovered by reflection.
type StatsProvider interface {
	GetSessionStats(sessionPath string) (SessionStats, error)
	GetProjectStats(projectPath string) (ProjectStats, error)
}

// WriteProvider is the optional write capability. Callers must consult the
// capability checker before use.
type WriteProvider interface {
	CreateProject(sourcePath, name string) universal.WriteResult[WriteReceipt]
	CreateSession(sourcePath, projectID string, first *MessageInput) universal.WriteResult[WriteReceipt]
	AppendMessages(sessionPath string, msgs []MessageInput) universal.WriteResult[WriteReceipt]
}

// PathMapper is the optional capability of mapping between display paths and
// provider-internal project paths.
type PathMapper interface {
	ProjectsRoot(sourcePath string) (string, error)
	ConvertToProjectPath(sourcePath, displayPath string) (string, error)
}
