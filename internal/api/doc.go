// Package api serves the RangeBot HTTP API.
//
// Endpoints under /api/v1:
//   - GET  /health                      liveness, uptime and link identity (open)
//   - GET  /nodes, /nodes/{id}          node directory with range from the local device (read)
//   - GET  /telemetry                   SSE event stream (telemetry)
//   - POST /sim/messages                inject a text message (control, simulator only)
//   - PUT  /sim/nodes/{id}/position     set a simulated node position (control, simulator only)
//   - POST /sim/reconnect               raise a link-established event (control, simulator only)
//   - GET  /sim/sent                    messages sent through the simulator (control, simulator only)
//
// Prometheus metrics are served at /metrics. Responses use a JSON envelope
// with result, data, code, message and correlationId fields.
package api
