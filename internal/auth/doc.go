// Package auth verifies bearer tokens on the RangeBot API.
//
// Tokens are JWTs signed with HS256 (shared secret) or RS256 (PEM public key).
// The "scopes" claim grants access:
//   - read: node directory
//   - telemetry: event stream
//   - control: simulator control endpoints
package auth
