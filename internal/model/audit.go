package model

import (
	"time"
)

// AuditLog is one recorded call against the registry API.
type AuditLog struct {
	ID        string `json:"id"`        // request id (UUID)
	Caller    string `json:"caller"`    // proven owner address, empty for anonymous calls
	Operation string `json:"operation"` // route template, e.g. "POST /v1/sync"
	Method    string `json:"method"`
	Path      string `json:"path"`
	IP        string `json:"ip"`
	UserAgent string `json:"user_agent"`

	RequestBody  string `json:"request_body"` // redacted
	StatusCode   int    `json:"status_code"`
	ResponseBody string `json:"response_body"`
	LatencyMs    int64  `json:"latency_ms"`

	// Context carries operation details added by handlers (pool, tokens, error...).
	Context map[string]interface{} `json:"context"`

	CreatedAt time.Time `json:"created_at"`
}
