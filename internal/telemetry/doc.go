// Package telemetry streams RangeBot activity to HTTP clients as Server-Sent Events.
//
// Every event carries a monotonic ID and is kept in a bounded buffer so a
// client that reconnects with Last-Event-ID receives what it missed.
package telemetry
