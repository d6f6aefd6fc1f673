package cursor

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"

	_ "modernc.org/sqlite"
)

// rawComposer is composer metadata stored under composerData:<composerId>.
type rawComposer struct {
	ComposerID                  string               `json:"composerId"`
	Name                        string               `json:"name,omitempty"`
	FullConversationHeadersOnly []conversationHeader `json:"fullConversationHeadersOnly,omitempty"`
	CreatedAt                   int64                `json:"createdAt,omitempty"`
	LastUpdatedAt               int64                `json:"lastUpdatedAt,omitempty"`
}

type conversationHeader struct {
	BubbleID string `json:"bubbleId"`
	Type     int    `json:"type"`
}

// rawBubble is one message stored under bubbleId:<composerId>:<bubbleId>.
// Type 1 is a user message, 2 an assistant message.
type rawBubble struct {
	BubbleID  string `json:"bubbleId"`
	Text      string `json:"text,omitempty"`
	RichText  string `json:"richText,omitempty"`
	Timestamp int64  `json:"timestamp"`
	Type      int    `json:"type"`
}

type keyValue struct {
	Key   string
	Value string
}

// openDatabase opens the state database read-only. A locked or missing
// database surfaces as an error for the caller to classify.
func openDatabase(path string) (*sql.DB, error) {
	db, err := sql.Open("sqlite", path+"?mode=ro")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("database ping failed: %w", err)
	}
	return db, nil
}

// queryDiskKV reads key/value rows from cursorDiskKV matching a LIKE pattern.
func queryDiskKV(db *sql.DB, pattern string) ([]keyValue, error) {
	rows, err := db.Query("SELECT key, value FROM cursorDiskKV WHERE key LIKE ? AND value IS NOT NULL", pattern)
	if err != nil {
		return nil, fmt.Errorf("query failed: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var pairs []keyValue
	for rows.Next() {
		var kv keyValue
		var value sql.NullString
		if err := rows.Scan(&kv.Key, &value); err != nil {
			return nil, fmt.Errorf("scan failed: %w", err)
		}
		if value.Valid {
			kv.Value = value.String
			pairs = append(pairs, kv)
		}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows iteration error: %w", err)
	}
	return pairs, nil
}

// loadComposers reads all composer records, keyed by composer id.
func loadComposers(db *sql.DB) (map[string]rawComposer, error) {
	pairs, err := queryDiskKV(db, "composerData:%")
	if err != nil {
		return nil, err
	}

	composers := make(map[string]rawComposer, len(pairs))
	for _, kv := range pairs {
		id := strings.TrimPrefix(kv.Key, "composerData:")
		if id == kv.Key || id == "" {
			continue
		}
		var c rawComposer
		if err := json.Unmarshal([]byte(kv.Value), &c); err != nil {
			continue
		}
		if c.ComposerID == "" {
			c.ComposerID = id
		}
		composers[c.ComposerID] = c
	}
	return composers, nil
}

// loadBubbles reads every bubble belonging to one composer, in the order the
// rows come back; callers re-order via the composer's conversation headers
// when available.
func loadBubbles(db *sql.DB, composerID string) ([]bubbleRecord, error) {
	pairs, err := queryDiskKV(db, "bubbleId:"+composerID+":%")
	if err != nil {
		return nil, err
	}

	bubbles := make([]bubbleRecord, 0, len(pairs))
	for _, kv := range pairs {
		rest := strings.TrimPrefix(kv.Key, "bubbleId:"+composerID+":")
		if rest == kv.Key || rest == "" {
			continue
		}
		var b rawBubble
		if err := json.Unmarshal([]byte(kv.Value), &b); err != nil {
			continue
		}
		if b.BubbleID == "" {
			b.BubbleID = rest
		}
		bubbles = append(bubbles, bubbleRecord{Bubble: b, Raw: kv.Value})
	}
	return bubbles, nil
}

// bubbleRecord pairs a decoded bubble with its verbatim stored JSON.
type bubbleRecord struct {
	Bubble rawBubble
	Raw    string
}

// orderBubbles arranges bubbles by the composer's conversation headers when
// present, falling back to timestamp order.
func orderBubbles(bubbles []bubbleRecord, headers []conversationHeader) []bubbleRecord {
	if len(headers) == 0 {
		return bubbles
	}

	byID := make(map[string]bubbleRecord, len(bubbles))
	for _, b := range bubbles {
		byID[b.Bubble.BubbleID] = b
	}

	ordered := make([]bubbleRecord, 0, len(bubbles))
	seen := make(map[string]bool, len(headers))
	for _, h := range headers {
		if b, ok := byID[h.BubbleID]; ok {
			ordered = append(ordered, b)
			seen[h.BubbleID] = true
		}
	}
	// Keep orphans the headers don't mention.
	for _, b := range bubbles {
		if !seen[b.Bubble.BubbleID] {
			ordered = append(ordered, b)
		}
	}
	return ordered
}
