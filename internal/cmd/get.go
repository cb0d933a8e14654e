package cmd

import "miniredis/internal/frame"

// Get fetches the value stored at Key, answering with a Null bulk frame if
// it is absent or expired.
type Get struct {
	Key string
}

func decodeGet(p *Parser) Command {
	key, err := p.NextString()
	if err != nil {
		return Unknown{err: err}
	}
	if err := p.Finish(); err != nil {
		return Unknown{err: err}
	}
	return Get{Key: key}
}

func (c Get) Apply(ctx *Context) error {
	value, ok := ctx.Store.Get(c.Key)
	if !ok {
		return ctx.Conn.WriteFrame(frame.Null())
	}
	return ctx.Conn.WriteFrame(frame.BulkFrame(value))
}
