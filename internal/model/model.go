// Package model defines the request and response payloads used by the API.
// It keeps transport-level types in one place for reuse.
package model

// CallResult captures the outcome of one tracked outbound call.
type CallResult struct {
	URL        string `json:"url"`
	Outcome    string `json:"outcome"`               // "ok" | apperr kind, e.g. "upstream_status", "timeout"
	StatusCode int    `json:"status_code,omitempty"` // zero when no response arrived
	DurationMS int64  `json:"duration_ms"`
	Detail     string `json:"detail,omitempty"` // optional, human-readable error detail
}

// FetchRequest is the input payload for a batch of tracked GET requests.
type FetchRequest struct {
	URLs []string `json:"urls"`
}

// FetchResponse is the output payload returned by the fetch handler.
type FetchResponse struct {
	Status  string        `json:"status"` // "ok" | "error"
	Results []CallResult  `json:"results,omitempty"`
	Error   *ErrorPayload `json:"error,omitempty"`
}

// StateResponse reports the tracker counter.
type StateResponse struct {
	CallingCount int64      `json:"calling_count"`
	Active       bool       `json:"active"`
	Seq          uint64     `json:"seq"`
	Observers    int        `json:"observers"`
	Pool         *PoolState `json:"pool,omitempty"`
}

// PoolState reports fetch slot usage.
type PoolState struct {
	Size  int `json:"size"`
	InUse int `json:"in_use"`
}

// ExclusionRequest is the input payload for adding or removing a rule.
type ExclusionRequest struct {
	Path string `json:"path"`
}

// ExclusionsResponse lists the registered rules in normalized form.
type ExclusionsResponse struct {
	Paths []string `json:"paths"`
}

// ErrorResponse is the envelope of every failed API request.
type ErrorResponse struct {
	Status string        `json:"status"` // always "error"
	Error  *ErrorPayload `json:"error"`
}

// ErrorPayload describes an error response.
type ErrorPayload struct {
	Kind    string `json:"kind"`              // "bad_request", "internal"
	Message string `json:"message,omitempty"` // optional, human-readable error message
}
