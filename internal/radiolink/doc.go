// Package radiolink defines the Radio Link contract RangeBot is written against.
//
// A Radio Link owns the device connection, the mesh node directory and the
// send/receive primitives. RangeBot only reads the directory, subscribes to
// inbound events and hands outbound text back to the link.
//
// Drivers register themselves by target kind so the process can select a link
// from configuration ("auto", "/dev/ttyUSB0", "tcp:meshnode.local", "sim").
package radiolink
