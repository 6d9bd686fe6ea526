package models

// Error categories attached to failed FetchResults. These are plain strings
// rather than error values because a failed per-code query is ordinary data
// in this pipeline, not an exception the caller must catch.
const (
	ErrorTypeRateLimit        = "rate_limit"
	ErrorTypeAuthentication   = "authentication"
	ErrorTypeEndpointNotFound = "endpoint_not_found"
	ErrorTypeServerError      = "server_error"
	ErrorTypeClientError      = "client_error"
	ErrorTypeNetworkError     = "network_error"
	ErrorTypeDataError        = "data_error"
	ErrorTypeCancelled        = "cancelled"
)

// FetchResult is the outcome of one classification-code query, either fresh
// from the API client or read back from cache (Cached=true).
type FetchResult struct {
	Success       bool          `json:"success"`
	Code          string        `json:"code"`
	Opportunities []Opportunity `json:"opportunities"`
	Count         int           `json:"count"`
	TotalRecords  int           `json:"total_records"`
	Cached        bool          `json:"cached"`
	Error         string        `json:"error,omitempty"`
	StatusCode    int           `json:"status_code,omitempty"`
	ErrorType     string        `json:"error_type,omitempty"`
}

// MergedResult is the output of deduplicating all per-code result sets.
type MergedResult struct {
	Opportunities     []Opportunity `json:"opportunities"`
	CountBeforeDedup  int           `json:"count_before_dedup"`
	TotalAfterDedup   int           `json:"total_after_dedup"`
	DuplicatesRemoved int           `json:"duplicates_removed"`
	CodesQueried      int           `json:"codes_queried"`
	CodesSucceeded    int           `json:"codes_succeeded"`
	CodesFailed       []string      `json:"codes_failed"`
}
