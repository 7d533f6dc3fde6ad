// Package api documents the toolflow HTTP API.
//
// # API Overview
//
// toolflow exposes a single agent over HTTP:
//   - POST /v1/process: run a request envelope through the agent
//   - GET /v1/tools: list the agent's tools (id and description)
//   - GET /v1/agent: agent identity and model reference
//   - GET /v1/journal, /v1/journal/{id}, /v1/journal/stats: envelope journal (when enabled)
//   - /health, /healthz, /ready, /version: health monitoring
//   - /metrics on the metrics port: Prometheus exposition
//
// # Authentication
//
// When API keys are configured, /v1 endpoints require the X-API-Key header:
//
//	X-API-Key: your-api-key
//
// A JWT bearer token is accepted instead when JWT is configured.
//
// # Envelopes
//
// /v1/process always answers 200 with an envelope; its "type" field tells
// success ("weather_response", "calculation_response", ...) from failure
// ("error_response"). Only an unparseable body yields 400.
//
// # Base URL
//
// The default base URL for the API is:
//
//	http://localhost:8080
package api
