// Package gateway implements the per-request proxy state machine: the
// ordered phases that take an inbound request from admission control
// through upstream selection, forwarding, and access logging.
package gateway

import "time"

// RequestContext is created at new_ctx and lives until logging returns.
// It is owned exclusively by the handler goroutine for its request.
type RequestContext struct {
	RequestID      string
	StartInstant   time.Time
	ChosenUpstream string
}

func (c *RequestContext) Reset() {
	c.RequestID = ""
	c.ChosenUpstream = ""
}

func newRequestContext(requestID string) *RequestContext {
	return &RequestContext{
		RequestID:    requestID,
		StartInstant: time.Now(),
	}
}
