package cmd

import (
	"miniredis/internal/resp/conn"
	"miniredis/internal/shutdown"
	"miniredis/internal/store"
)

// Context bundles everything a Command needs to run: the shared store, the
// connection to answer on, and this connection's shutdown signal.
type Context struct {
	Store    *store.Store
	Conn     *conn.Conn
	Shutdown *shutdown.Receiver

	// Subscriptions holds every channel this connection is currently
	// subscribed to, in subscribe order, for UNSUBSCRIBE-with-no-arguments
	// and for reporting counts back in response frames. Only meaningful
	// once the connection has entered subscribed mode.
	Subscriptions map[string]*store.Subscription
	Order         []string
}

// NewContext builds a fresh Context for one accepted connection.
func NewContext(s *store.Store, c *conn.Conn, sh *shutdown.Receiver) *Context {
	return &Context{
		Store:         s,
		Conn:          c,
		Shutdown:      sh,
		Subscriptions: make(map[string]*store.Subscription),
	}
}

// InSubscribedMode reports whether this connection has at least one active
// subscription, which restricts it to SUBSCRIBE/UNSUBSCRIBE/PING.
func (ctx *Context) InSubscribedMode() bool {
	return len(ctx.Subscriptions) > 0
}
