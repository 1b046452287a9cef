// Package audit keeps an append-only JSONL trail of what RangeBot did on the
// mesh: every reply sent, every command dropped and every link (re)connection.
//
// The trail is written through a size-rotated file so it can run unattended.
package audit
