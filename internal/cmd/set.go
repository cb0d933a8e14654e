package cmd

import (
	"strings"
	"time"

	"miniredis/internal/frame"
)

// Set stores Value at Key, with an optional TTL given as EX seconds or PX
// milliseconds.
type Set struct {
	Key   string
	Value []byte
	TTL   time.Duration
}

func decodeSet(p *Parser) Command {
	key, err := p.NextString()
	if err != nil {
		return Unknown{err: err}
	}
	value, err := p.NextBytes()
	if err != nil {
		return Unknown{err: err}
	}

	var ttl time.Duration
	opt, err := p.NextString()
	switch {
	case err == nil:
		n, err := p.NextInt()
		if err != nil {
			return Unknown{err: err}
		}
		switch strings.ToUpper(opt) {
		case "EX":
			ttl = time.Duration(n) * time.Second
		case "PX":
			ttl = time.Duration(n) * time.Millisecond
		default:
			return Unknown{err: otherErr("ERR syntax error")}
		}
		if err := p.Finish(); err != nil {
			return Unknown{err: err}
		}
	case isEndOfStream(err):
		// No expiry option given.
	default:
		return Unknown{err: err}
	}

	return Set{Key: key, Value: value, TTL: ttl}
}

func isEndOfStream(err error) bool {
	pe, ok := err.(*ParseError)
	return ok && pe.EndOfStream
}

func (c Set) Apply(ctx *Context) error {
	ctx.Store.Set(c.Key, c.Value, c.TTL)
	return ctx.Conn.WriteFrame(frame.Simple("OK"))
}
