package universal

// ResultError is the failure payload carried by every Result envelope.
type ResultError struct {
	Code        string     `json:"code"`
	Message     string     `json:"message"`
	Recoverable bool       `json:"recoverable"`
	Retry       *RetryInfo `json:"retry,omitempty"`
}

// RetryInfo tells the caller whether and how to retry a failed operation.
type RetryInfo struct {
	ShouldRetry       bool    `json:"shouldRetry"`
	MaxAttempts       int     `json:"maxAttempts"`
	DelayMs           int     `json:"delayMs"`
	BackoffMultiplier float64 `json:"backoffMultiplier,omitempty"`
}

// ScanMetadata summarizes a completed scan.
type ScanMetadata struct {
	ScanDurationMs int64 `json:"scanDuration"`
	ItemsFound     int   `json:"itemsFound"`
	ItemsSkipped   int   `json:"itemsSkipped"`
}

// Pagination describes the window a LoadResult covers.
//
// NextOffset always equals the requested offset plus the number of returned
// items, and HasMore=false implies NextOffset == TotalCount. Adapters that
// load everything at once still populate this with HasMore=false and
// NextOffset = TotalCount.
type Pagination struct {
	HasMore    bool `json:"hasMore"`
	NextOffset int  `json:"nextOffset"`
	TotalCount int  `json:"totalCount"`
}

// ScanResult wraps the outcome of scanProjects-style operations. Data is
// present iff Success is true.
type ScanResult[T any] struct {
	Success  bool          `json:"success"`
	Data     []T           `json:"data,omitempty"`
	Error    *ResultError  `json:"error,omitempty"`
	Warnings []string      `json:"warnings,omitempty"`
	Metadata *ScanMetadata `json:"metadata,omitempty"`
}

// LoadResult wraps a paginated load.
type LoadResult[T any] struct {
	Success    bool         `json:"success"`
	Data       []T          `json:"data,omitempty"`
	Error      *ResultError `json:"error,omitempty"`
	Warnings   []string     `json:"warnings,omitempty"`
	Pagination Pagination   `json:"pagination"`
}

// SearchResult wraps a search.
type SearchResult[T any] struct {
	Success          bool         `json:"success"`
	Data             []T          `json:"data,omitempty"`
	Error            *ResultError `json:"error,omitempty"`
	TotalMatches     int          `json:"totalMatches"`
	SearchDurationMs int64        `json:"searchDuration"`
}

// WriteResult wraps a write operation.
type WriteResult[T any] struct {
	Success  bool         `json:"success"`
	Data     *T           `json:"data,omitempty"`
	Error    *ResultError `json:"error,omitempty"`
	Warnings []string     `json:"warnings,omitempty"`
}

// OkScan builds a successful ScanResult.
func OkScan[T any](data []T, meta *ScanMetadata, warnings ...string) ScanResult[T] {
	if data == nil {
		data = []T{}
	}
	return ScanResult[T]{Success: true, Data: data, Warnings: warnings, Metadata: meta}
}

// FailScan builds a failed ScanResult.
func FailScan[T any](err *ResultError) ScanResult[T] {
	return ScanResult[T]{Success: false, Error: err}
}

// OkLoad builds a successful LoadResult with pagination derived from the
// requested offset and the full item count. The returned page is data itself;
// slicing happens before this call.
func OkLoad[T any](data []T, offset, totalCount int, warnings ...string) LoadResult[T] {
	if data == nil {
		data = []T{}
	}
	next := offset + len(data)
	return LoadResult[T]{
		Success:  true,
		Data:     data,
		Warnings: warnings,
		Pagination: Pagination{
			HasMore:    next < totalCount,
			NextOffset: next,
			TotalCount: totalCount,
		},
	}
}

// FailLoad builds a failed LoadResult.
func FailLoad[T any](err *ResultError) LoadResult[T] {
	return LoadResult[T]{Success: false, Error: err}
}

// OkSearch builds a successful SearchResult.
func OkSearch[T any](data []T, totalMatches int, durationMs int64) SearchResult[T] {
	if data == nil {
		data = []T{}
	}
	return SearchResult[T]{Success: true, Data: data, TotalMatches: totalMatches, SearchDurationMs: durationMs}
}

// FailSearch builds a failed SearchResult.
func FailSearch[T any](err *ResultError) SearchResult[T] {
	return SearchResult[T]{Success: false, Error: err}
}

// OkWrite builds a successful WriteResult.
func OkWrite[T any](data *T, warnings ...string) WriteResult[T] {
	return WriteResult[T]{Success: true, Data: data, Warnings: warnings}
}

// FailWrite builds a failed WriteResult.
func FailWrite[T any](err *ResultError) WriteResult[T] {
	return WriteResult[T]{Success: false, Error: err}
}

// Page slices items to the window [offset, offset+limit). A zero or negative
// limit means "everything from offset". Out-of-range offsets yield an empty
// page, not an error.
func Page[T any](items []T, offset, limit int) []T {
	if offset < 0 {
		offset = 0
	}
	if offset >= len(items) {
		return []T{}
	}
	end := len(items)
	if limit > 0 && offset+limit < end {
		end = offset + limit
	}
	return items[offset:end]
}
