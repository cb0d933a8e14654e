package cmd

import "miniredis/internal/frame"

// Unsubscribe drops one or more channel subscriptions, or every current
// subscription if Channels is empty. Valid only while already subscribed.
type Unsubscribe struct {
	Channels []string
}

func decodeUnsubscribe(p *Parser) Command {
	var channels []string
	for {
		ch, err := p.NextString()
		if err != nil {
			if isEndOfStream(err) {
				break
			}
			return Unknown{err: err}
		}
		channels = append(channels, ch)
	}
	return Unsubscribe{Channels: channels}
}

// Apply removes the requested subscriptions (or all of them, if none were
// named) and writes one confirmation frame per channel actually removed.
// Requesting a channel the connection never subscribed to is rejected with
// an error frame rather than silently acknowledged (SPEC_FULL.md §9).
func (c Unsubscribe) Apply(ctx *Context) error {
	if !ctx.InSubscribedMode() {
		return ctx.Conn.WriteFrame(frame.Err("ERR UNSUBSCRIBE without SUBSCRIBE is not allowed"))
	}

	targets := c.Channels
	if len(targets) == 0 {
		targets = make([]string, len(ctx.Order))
		copy(targets, ctx.Order)
	}

	for _, channel := range targets {
		sub, ok := ctx.Subscriptions[channel]
		if !ok {
			return ctx.Conn.WriteFrame(frame.Err(
				"ERR cannot unsubscribe from channel '" + channel + "': not subscribed"))
		}
		sub.Close()
		delete(ctx.Subscriptions, channel)
		ctx.Order = removeString(ctx.Order, channel)

		reply := frame.ArrayFrame([]frame.Frame{
			frame.BulkFrame([]byte("unsubscribe")),
			frame.BulkFrame([]byte(channel)),
			frame.Integer(uint64(len(ctx.Subscriptions))),
		})
		if err := ctx.Conn.WriteFrame(reply); err != nil {
			return err
		}
	}
	return nil
}

func removeString(items []string, target string) []string {
	out := items[:0]
	for _, s := range items {
		if s != target {
			out = append(out, s)
		}
	}
	return out
}
