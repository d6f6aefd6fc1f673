package universal

import "encoding/json"

// NewTextContent wraps plain text as a single TEXT block.
func NewTextContent(text string) Content {
	data, _ := json.Marshal(map[string]string{"text": text})
	return Content{
		Type:     ContentText,
		Data:     data,
		MimeType: "text/plain",
		Size:     len(text),
	}
}

// NewJSONContent wraps a raw JSON value as a typed block, preserving the
// value verbatim.
func NewJSONContent(ct ContentType, raw json.RawMessage) Content {
	return Content{
		Type:     ct,
		Data:     raw,
		MimeType: "application/json",
	}
}

// NewOpaqueContent preserves an unknown content shape as a TEXT block with
// JSON encoding so no data is silently dropped.
func NewOpaqueContent(raw json.RawMessage) Content {
	return Content{
		Type:     ContentText,
		Data:     raw,
		Encoding: "json",
		MimeType: "application/json",
	}
}
