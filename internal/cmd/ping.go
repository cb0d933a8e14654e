package cmd

import "miniredis/internal/frame"

// Ping answers with PONG, or echoes back a single provided message.
type Ping struct {
	Message string
	hasMsg  bool
}

func decodePing(p *Parser) Command {
	msg, err := p.NextString()
	if err != nil {
		if pe, ok := err.(*ParseError); ok && pe.EndOfStream {
			return Ping{}
		}
		return Unknown{err: err}
	}
	if err := p.Finish(); err != nil {
		return Unknown{err: err}
	}
	return Ping{Message: msg, hasMsg: true}
}

func (c Ping) Apply(ctx *Context) error {
	if c.hasMsg {
		return ctx.Conn.WriteFrame(frame.BulkFrame([]byte(c.Message)))
	}
	return ctx.Conn.WriteFrame(frame.Simple("PONG"))
}
