// Package claudesessions parses Claude Code session JSONL files. It is the
// raw-format layer under the claude-code provider adapter but is usable on
// its own.
package claudesessions

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// ParsedSession is a fully parsed session file.
type ParsedSession struct {
	SessionID    string
	Summary      string
	LeafUUID     string
	Entries      []Entry
	SkippedLines int
	FilePath     string
	FileSize     int64
	FileMtime    time.Time
}

// Entry is one JSONL line. Raw holds the verbatim line bytes so callers can
// round-trip the original serialization.
type Entry struct {
	UUID        string
	ParentUUID  string
	Type        string
	Role        string
	Model       string
	Message     json.RawMessage
	Usage       *Usage
	Timestamp   string
	Sequence    int
	IsSidechain bool
	CWD         string
	GitBranch   string
	Version     string
	Raw         string
}

// Usage is the token usage block on assistant entries.
type Usage struct {
	InputTokens              int    `json:"input_tokens"`
	OutputTokens             int    `json:"output_tokens"`
	CacheCreationInputTokens int    `json:"cache_creation_input_tokens"`
	CacheReadInputTokens     int    `json:"cache_read_input_tokens"`
	ServiceTier              string `json:"service_tier,omitempty"`
}

type rawLine struct {
	Type        string          `json:"type"`
	Summary     string          `json:"summary,omitempty"`
	LeafUUID    string          `json:"leafUuid,omitempty"`
	UUID        string          `json:"uuid,omitempty"`
	ParentUUID  string          `json:"parentUuid,omitempty"`
	SessionID   string          `json:"sessionId,omitempty"`
	Message     json.RawMessage `json:"message,omitempty"`
	Timestamp   string          `json:"timestamp,omitempty"`
	IsSidechain bool            `json:"isSidechain,omitempty"`
	CWD         string          `json:"cwd,omitempty"`
	GitBranch   string          `json:"gitBranch,omitempty"`
	Version     string          `json:"version,omitempty"`
}

type rawMessageBody struct {
	Role  string `json:"role"`
	Model string `json:"model"`
	Usage *Usage `json:"usage"`
}

// ParseFile parses one session JSONL file. Bad lines are skipped and counted,
// not fatal; only I/O failures and an unreadable file error out.
func ParseFile(path string) (session *ParsedSession, err error) {
	file, ferr := os.Open(path)
	if ferr != nil {
		return nil, fmt.Errorf("failed to open file: %w", ferr)
	}
	defer func() {
		if cerr := file.Close(); cerr != nil && err == nil {
			err = fmt.Errorf("failed to close file: %w", cerr)
		}
	}()

	info, err := file.Stat()
	if err != nil {
		return nil, fmt.Errorf("failed to stat file: %w", err)
	}

	sessionID := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))

	// Agent sessions (agent-*.jsonl) keep the filename as the session ID:
	// the sessionId inside the file points at the parent session.
	isAgentSession := strings.HasPrefix(sessionID, "agent-")

	session = &ParsedSession{
		SessionID: sessionID,
		FilePath:  path,
		FileSize:  info.Size(),
		FileMtime: info.ModTime(),
		Entries:   make([]Entry, 0),
	}

	// Larger buffer for long lines (10MB max).
	scanner := bufio.NewScanner(file)
	scanner.Buffer(make([]byte, 64*1024), 10*1024*1024)

	lineNum := 0
	for scanner.Scan() {
		lineNum++
		line := scanner.Bytes()
		if len(strings.TrimSpace(string(line))) == 0 {
			continue
		}

		var raw rawLine
		if err := json.Unmarshal(line, &raw); err != nil {
			session.SkippedLines++
			continue
		}

		// The summary line may appear anywhere, or not at all.
		if raw.Type == "summary" {
			session.Summary = raw.Summary
			session.LeafUUID = raw.LeafUUID
			if raw.SessionID != "" && !isAgentSession {
				session.SessionID = raw.SessionID
			}
			continue
		}

		if raw.SessionID != "" && session.SessionID == sessionID && !isAgentSession {
			session.SessionID = raw.SessionID
		}

		entry := Entry{
			UUID:        raw.UUID,
			ParentUUID:  raw.ParentUUID,
			Type:        raw.Type,
			Message:     raw.Message,
			Timestamp:   raw.Timestamp,
			Sequence:    lineNum,
			IsSidechain: raw.IsSidechain,
			CWD:         raw.CWD,
			GitBranch:   raw.GitBranch,
			Version:     raw.Version,
			Raw:         string(line),
		}

		if len(raw.Message) > 0 {
			var body rawMessageBody
			if err := json.Unmarshal(raw.Message, &body); err == nil {
				entry.Role = body.Role
				entry.Model = body.Model
				entry.Usage = body.Usage
			}
		}

		session.Entries = append(session.Entries, entry)
	}

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("error reading file: %w", err)
	}

	return session, nil
}

// ExtractText pulls the plain-text portion of an entry's message body: a bare
// string content, or the concatenated text blocks of an array content.
func ExtractText(message json.RawMessage) string {
	if len(message) == 0 {
		return ""
	}

	var arrayBody struct {
		Content []struct {
			Type string `json:"type"`
			Text string `json:"text,omitempty"`
		} `json:"content"`
	}
	if err := json.Unmarshal(message, &arrayBody); err == nil && len(arrayBody.Content) > 0 {
		var sb strings.Builder
		for _, block := range arrayBody.Content {
			if block.Type == "text" {
				sb.WriteString(block.Text)
				sb.WriteString("\n")
			}
		}
		return sb.String()
	}

	var stringBody struct {
		Content string `json:"content"`
	}
	if err := json.Unmarshal(message, &stringBody); err == nil {
		return stringBody.Content
	}
	return ""
}
