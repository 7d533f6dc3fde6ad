package agent

import (
	"strings"
	"time"
)

// TimestampFormat is ISO-8601 with millisecond precision.
const TimestampFormat = "2006-01-02T15:04:05.000Z07:00"

// Response kinds produced by the built-in routes and the fallback.
const (
	KindWeather     = "weather_response"
	KindCalculation = "calculation_response"
	KindEcho        = "echo_response"
	KindGeneral     = "general_response"
	KindError       = "error_response"
)

// NoMessage replaces a blank or absent request message.
const NoMessage = "No message provided"

// Execution context keys.
const (
	CtxStrategy       = "strategy"
	CtxToolUsed       = "toolUsed"
	CtxHandler        = "handler"
	CtxRequestID      = "requestId"
	CtxRequestedType  = "requestedType"
	CtxMatchedPattern = "matchedPattern"
	CtxToolsAvailable = "toolsAvailable"
	CtxCapabilities   = "capabilities"
	CtxInputReceived  = "inputReceived"
	CtxErrorType      = "errorType"
	CtxViolations     = "violations"
	CtxStage          = "stage"
	CtxDurationMS     = "durationMs"
)

// Request is the inbound envelope. The core never mutates it.
type Request struct {
	Message string         `json:"message"`
	Type    string         `json:"type,omitempty"`
	Context map[string]any `json:"context,omitempty"`
}

// ContextString returns Context[key] when it is a non-blank string.
func (r Request) ContextString(key string) (string, bool) {
	v, ok := r.Context[key].(string)
	if !ok || strings.TrimSpace(v) == "" {
		return "", false
	}
	return strings.TrimSpace(v), true
}

// Envelope is the uniform result of Process. Success and error envelopes
// share the shape; Type tells them apart.
type Envelope struct {
	Type             string         `json:"type"`
	Message          string         `json:"message"`
	Data             any            `json:"data,omitempty"`
	Error            string         `json:"error,omitempty"`
	Agent            string         `json:"agent"`
	Timestamp        string         `json:"timestamp"`
	ExecutionContext map[string]any `json:"executionContext"`
}

// IsError reports whether the envelope describes a failure.
func (e Envelope) IsError() bool {
	return IsErrorKind(e.Type)
}

// IsErrorKind reports whether kind is reserved for error envelopes.
func IsErrorKind(kind string) bool {
	return strings.HasPrefix(kind, "error_")
}

func formatTimestamp(t time.Time) string {
	return t.UTC().Format(TimestampFormat)
}
