// Package responder implements the command responder: it answers "ping"-style
// text messages with the great-circle range between the local device and the
// sender.
//
// The responder holds no state of its own. Every decision is a function of the
// inbound event and the link's node directory at the time of the call, so the
// handlers are safe to invoke from whatever goroutine the link delivers on.
package responder
