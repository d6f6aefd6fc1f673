package codex

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
)

// maxLineSize bounds a single rollout line; tool outputs can be large.
const maxLineSize = 10 * 1024 * 1024

// rolloutNameRe matches rollout-<YYYY-MM-DDThh-mm-ss>-<uuid>.jsonl.
var rolloutNameRe = regexp.MustCompile(`^rollout-(\d{4}-\d{2}-\d{2}T\d{2}-\d{2}-\d{2})-([a-f0-9-]+)\.jsonl$`)

// rolloutEvent is one line of a rollout file. Codex writes heterogeneous
// event records; unknown fields stay available through Raw.
type rolloutEvent struct {
	Type      string          `json:"type"`
	EventType string          `json:"event_type"`
	Timestamp string          `json:"timestamp"`
	Payload   json.RawMessage `json:"payload"`

	// Session metadata carried by meta events.
	Internal struct {
		Session struct {
			ID string `json:"id"`
		} `json:"session"`
	} `json:"internal"`

	Raw string `json:"-"`
}

// eventPayload is the payload shape shared by message events.
type eventPayload struct {
	ID      string          `json:"id"`
	Role    string          `json:"role"`
	Model   string          `json:"model"`
	Content json.RawMessage `json:"content"`

	EnvironmentContext struct {
		Cwd string `json:"cwd"`
	} `json:"environment_context"`
	ExecutionContext struct {
		WorkingDirectory string `json:"working_directory"`
	} `json:"execution_context"`
}

// parseRolloutFilename splits a rollout filename into its timestamp and
// session UUID parts.
func parseRolloutFilename(name string) (timestamp, id string, ok bool) {
	m := rolloutNameRe.FindStringSubmatch(name)
	if m == nil {
		return "", "", false
	}
	// The filename timestamp uses dashes in the time part.
	ts := m[1]
	if len(ts) == 19 {
		ts = ts[:13] + ":" + ts[14:16] + ":" + ts[17:] + "Z"
	}
	return ts, m[2], true
}

// parseRolloutFile reads one rollout file line by line. Malformed lines are
// skipped and counted rather than failing the whole file.
func parseRolloutFile(path string) ([]rolloutEvent, int, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to open rollout file: %w", err)
	}
	defer f.Close()

	var events []rolloutEvent
	skipped := 0

	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 64*1024), maxLineSize)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		var ev rolloutEvent
		if err := json.Unmarshal([]byte(line), &ev); err != nil {
			skipped++
			continue
		}
		ev.Raw = line
		events = append(events, ev)
	}
	if err := scanner.Err(); err != nil {
		return nil, 0, fmt.Errorf("failed to read rollout file: %w", err)
	}
	return events, skipped, nil
}

// sessionIDForFile prefers the session id embedded in a meta event over the
// UUID in the filename.
func sessionIDForFile(path string, events []rolloutEvent) string {
	for _, ev := range events {
		if ev.Internal.Session.ID != "" {
			return ev.Internal.Session.ID
		}
	}
	if _, id, ok := parseRolloutFilename(filepath.Base(path)); ok {
		return id
	}
	return strings.TrimSuffix(filepath.Base(path), ".jsonl")
}

// sessionCwd scans events for the working directory, preferring the
// environment context over the execution context.
func sessionCwd(events []rolloutEvent) string {
	var fallback string
	for _, ev := range events {
		p := payloadOf(ev)
		if p.EnvironmentContext.Cwd != "" {
			return p.EnvironmentContext.Cwd
		}
		if fallback == "" && p.ExecutionContext.WorkingDirectory != "" {
			fallback = p.ExecutionContext.WorkingDirectory
		}
	}
	return fallback
}

func payloadOf(ev rolloutEvent) eventPayload {
	var p eventPayload
	if len(ev.Payload) > 0 {
		_ = json.Unmarshal(ev.Payload, &p)
	}
	return p
}

// messageEvents filters out meta and context records, keeping only events
// that represent a conversational message.
func messageEvents(events []rolloutEvent) []rolloutEvent {
	var out []rolloutEvent
	for _, ev := range events {
		if isMessageEvent(ev) {
			out = append(out, ev)
		}
	}
	return out
}

func isMessageEvent(ev rolloutEvent) bool {
	switch eventKind(ev) {
	case "session_meta", "turn_context", "environment_context", "git_info", "compact":
		return false
	case "":
		// Kindless events still count when they carry a role or content.
		p := payloadOf(ev)
		return p.Role != "" || len(p.Content) > 0
	}
	return true
}

func eventKind(ev rolloutEvent) string {
	if ev.EventType != "" {
		return ev.EventType
	}
	return ev.Type
}
