package cmd

import "miniredis/internal/frame"

// Unknown is produced for unrecognized verbs or malformed requests. Its
// Apply never terminates the connection.
type Unknown struct {
	name string
	err  error
}

func (c Unknown) Apply(ctx *Context) error {
	if c.err != nil {
		return ctx.Conn.WriteFrame(frame.Err(c.err.Error()))
	}
	return ctx.Conn.WriteFrame(frame.Err("ERR unknown command '" + c.name + "'"))
}
