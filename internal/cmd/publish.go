package cmd

import "miniredis/internal/frame"

// Publish delivers Message to every current subscriber of Channel.
type Publish struct {
	Channel string
	Message []byte
}

func decodePublish(p *Parser) Command {
	channel, err := p.NextString()
	if err != nil {
		return Unknown{err: err}
	}
	message, err := p.NextBytes()
	if err != nil {
		return Unknown{err: err}
	}
	if err := p.Finish(); err != nil {
		return Unknown{err: err}
	}
	return Publish{Channel: channel, Message: message}
}

func (c Publish) Apply(ctx *Context) error {
	n := ctx.Store.Publish(c.Channel, c.Message)
	return ctx.Conn.WriteFrame(frame.Integer(uint64(n)))
}
