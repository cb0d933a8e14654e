package cmd

import (
	"reflect"

	"miniredis/internal/frame"
	"miniredis/internal/store"
)

// Subscribe enters subscribed mode on one or more channels. At least one
// channel is required.
type Subscribe struct {
	Channels []string
}

func decodeSubscribe(p *Parser) Command {
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
	if len(channels) == 0 {
		return Unknown{err: otherErr("ERR wrong number of arguments for 'subscribe' command")}
	}
	return Subscribe{Channels: channels}
}

// Apply subscribes to every requested channel, writing one confirmation
// frame per channel in request order, then -- if this is the connection's
// first subscription -- takes over the connection with the subscribed-mode
// multiplexing loop (SPEC_FULL.md §4.6) until every subscription drops or
// shutdown is signaled.
func (c Subscribe) Apply(ctx *Context) error {
	alreadySubscribed := ctx.InSubscribedMode()

	for _, channel := range c.Channels {
		if _, ok := ctx.Subscriptions[channel]; !ok {
			ctx.Subscriptions[channel] = ctx.Store.Subscribe(channel)
			ctx.Order = append(ctx.Order, channel)
		}
		reply := frame.ArrayFrame([]frame.Frame{
			frame.BulkFrame([]byte("subscribe")),
			frame.BulkFrame([]byte(channel)),
			frame.Integer(uint64(len(ctx.Subscriptions))),
		})
		if err := ctx.Conn.WriteFrame(reply); err != nil {
			return err
		}
	}

	if alreadySubscribed {
		// The caller is already inside runSubscribedLoop, which decoded
		// this Subscribe itself; returning lets that loop continue.
		return nil
	}
	return ctx.runSubscribedLoop()
}

// runSubscribedLoop multiplexes: (a) every subscribed channel's message
// stream, (b) the next client-sent frame, and (c) the shutdown signal --
// whichever is ready first wins. It returns once every subscription has
// been dropped, the connection closes, or shutdown fires.
func (ctx *Context) runSubscribedLoop() error {
	type frameResult struct {
		f   *frame.Frame
		err error
	}
	frameCh := make(chan frameResult)
	stopReader := make(chan struct{})
	defer close(stopReader)

	go func() {
		for {
			f, err := ctx.Conn.ReadFrame()
			select {
			case frameCh <- frameResult{f, err}:
			case <-stopReader:
				return
			}
			if err != nil || f == nil {
				return
			}
		}
	}()

	for ctx.InSubscribedMode() {
		cases := make([]reflect.SelectCase, 0, len(ctx.Order)+2)
		cases = append(cases, reflect.SelectCase{Dir: reflect.SelectRecv, Chan: reflect.ValueOf(ctx.Shutdown.Done())})
		cases = append(cases, reflect.SelectCase{Dir: reflect.SelectRecv, Chan: reflect.ValueOf(frameCh)})
		channels := make([]string, len(ctx.Order))
		copy(channels, ctx.Order)
		for _, channel := range channels {
			sub := ctx.Subscriptions[channel]
			cases = append(cases, reflect.SelectCase{Dir: reflect.SelectRecv, Chan: reflect.ValueOf(sub.Messages())})
		}

		chosen, value, ok := reflect.Select(cases)
		switch {
		case chosen == 0: // shutdown
			return ctx.exitSubscribedMode()

		case chosen == 1: // next client frame
			if !ok {
				return ctx.exitSubscribedMode()
			}
			res := value.Interface().(frameResult)
			if res.err != nil {
				ctx.exitSubscribedMode()
				return res.err
			}
			if res.f == nil {
				return ctx.exitSubscribedMode()
			}
			if err := ctx.applySubscribedModeCommand(*res.f); err != nil {
				return err
			}

		default: // a subscribed channel delivered a message
			channel := channels[chosen-2]
			if !ok {
				// Store never closes a subscription's channel; this path
				// is unreached in practice but kept for safety.
				continue
			}
			payload := value.Interface().([]byte)
			msg := frame.ArrayFrame([]frame.Frame{
				frame.BulkFrame([]byte("message")),
				frame.BulkFrame([]byte(channel)),
				frame.BulkFrame(payload),
			})
			if err := ctx.Conn.WriteFrame(msg); err != nil {
				ctx.exitSubscribedMode()
				return err
			}
		}
	}
	return nil
}

// applySubscribedModeCommand restricts dispatch to the commands allowed
// while subscribed: SUBSCRIBE, UNSUBSCRIBE, and PING. Anything else answers
// with the same "-ERR unknown command '<name>'" frame an unrecognized verb
// gets, but never disconnects the client (invariant: GET et
// al. in subscribed mode yields an error reply, not a closed socket). A
// non-Array top-level frame is still a fatal protocol error even mid-
// subscription, so it propagates up and ends the connection.
func (ctx *Context) applySubscribedModeCommand(f frame.Frame) error {
	command, err := FromFrame(f)
	if err != nil {
		return err
	}
	switch c := command.(type) {
	case Subscribe, Unsubscribe, Ping:
		return c.Apply(ctx)
	default:
		p, _ := NewParser(f)
		name, _ := p.NextString()
		return Unknown{name: name}.Apply(ctx)
	}
}

// exitSubscribedMode drops every remaining subscription.
func (ctx *Context) exitSubscribedMode() error {
	for _, channel := range ctx.Order {
		ctx.Subscriptions[channel].Close()
	}
	ctx.Subscriptions = make(map[string]*store.Subscription)
	ctx.Order = nil
	return nil
}
