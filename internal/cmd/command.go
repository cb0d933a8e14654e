// Package cmd decodes RESP request frames into typed commands and applies
// them against a store.Store and connection.
package cmd

import (
	"strings"

	"miniredis/internal/frame"
)

// Command is one decoded client request.
type Command interface {
	// Apply executes the command against ctx, writing its response frame(s)
	// to ctx.Conn. Subscribe/Unsubscribe may write more than one frame and
	// transition ctx.Conn into subscribed mode; every other command writes
	// exactly one.
	Apply(ctx *Context) error
}

// FromFrame decodes f into a Command. A non-Array top-level frame is a
// protocol error, not a command error: it is returned directly so the
// caller can terminate the connection, mirroring how the original's
// Command::from_frame propagates such an error out of the connection's
// read loop instead of answering it. Every other decode failure (missing
// verb, unrecognized verb, wrong argument count, ...) is reported as an
// Unknown command with a nil error, since the frame itself was a
// well-formed request the caller can safely keep the connection open for.
func FromFrame(f frame.Frame) (Command, error) {
	p, err := NewParser(f)
	if err != nil {
		return nil, err
	}

	name, err := p.NextString()
	if err != nil {
		return Unknown{err: err}, nil
	}

	switch strings.ToUpper(name) {
	case "PING":
		return decodePing(p), nil
	case "GET":
		return decodeGet(p), nil
	case "SET":
		return decodeSet(p), nil
	case "PUBLISH":
		return decodePublish(p), nil
	case "SUBSCRIBE":
		return decodeSubscribe(p), nil
	case "UNSUBSCRIBE":
		return decodeUnsubscribe(p), nil
	default:
		return Unknown{name: name}, nil
	}
}
