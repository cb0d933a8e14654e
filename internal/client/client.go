// Package client is a request/response helper for talking to the server: a
// plain Client for Ping/Get/Set/Publish, and a Subscriber type it converts
// into once SUBSCRIBE is issued.
package client

import (
	"errors"
	"fmt"
	"net"
	"time"

	"miniredis/internal/frame"
	"miniredis/internal/resp/conn"
)

// Client is backed by a single connection. Subscribe hands that connection
// to the *Subscriber it returns. The Client itself is not disabled: its
// methods still issue requests on the shared connection afterward, and
// nothing rejects them at compile time or at run time.
type Client struct {
	conn *conn.Conn
}

// Connect dials addr and wraps it in a Client.
func Connect(addr string) (*Client, error) {
	nc, err := net.Dial("tcp", addr)
	if err != nil {
		return nil, err
	}
	return &Client{conn: conn.New(nc)}, nil
}

// Close closes the underlying connection.
func (c *Client) Close() error { return c.conn.Close() }

// Ping sends PING, optionally with msg, and returns the server's reply.
func (c *Client) Ping(msg string) (string, error) {
	var req frame.Frame
	if msg == "" {
		req = frame.ArrayFrame([]frame.Frame{frame.BulkFrame([]byte("PING"))})
	} else {
		req = frame.ArrayFrame([]frame.Frame{
			frame.BulkFrame([]byte("PING")),
			frame.BulkFrame([]byte(msg)),
		})
	}
	if err := c.conn.WriteFrame(req); err != nil {
		return "", err
	}
	resp, err := c.readResponse()
	if err != nil {
		return "", err
	}
	switch resp.Kind {
	case frame.KindSimple:
		return resp.Str, nil
	case frame.KindBulk:
		return string(resp.Bulk), nil
	default:
		return "", frameError(resp)
	}
}

// Get fetches the value at key. ok is false if the key is absent.
func (c *Client) Get(key string) (value []byte, ok bool, err error) {
	req := frame.ArrayFrame([]frame.Frame{
		frame.BulkFrame([]byte("GET")),
		frame.BulkFrame([]byte(key)),
	})
	if err := c.conn.WriteFrame(req); err != nil {
		return nil, false, err
	}
	resp, err := c.readResponse()
	if err != nil {
		return nil, false, err
	}
	switch resp.Kind {
	case frame.KindSimple:
		return []byte(resp.Str), true, nil
	case frame.KindBulk:
		return resp.Bulk, true, nil
	case frame.KindNull:
		return nil, false, nil
	default:
		return nil, false, frameError(resp)
	}
}

// Set stores value at key with no expiration.
func (c *Client) Set(key string, value []byte) error {
	return c.setCmd(frame.ArrayFrame([]frame.Frame{
		frame.BulkFrame([]byte("SET")),
		frame.BulkFrame([]byte(key)),
		frame.BulkFrame(value),
	}))
}

// SetExpires stores value at key, expiring after ttl (truncated to whole
// milliseconds).
func (c *Client) SetExpires(key string, value []byte, ttl time.Duration) error {
	ms := ttl.Milliseconds()
	return c.setCmd(frame.ArrayFrame([]frame.Frame{
		frame.BulkFrame([]byte("SET")),
		frame.BulkFrame([]byte(key)),
		frame.BulkFrame(value),
		frame.BulkFrame([]byte("PX")),
		frame.BulkFrame([]byte(fmt.Sprintf("%d", ms))),
	}))
}

func (c *Client) setCmd(req frame.Frame) error {
	if err := c.conn.WriteFrame(req); err != nil {
		return err
	}
	resp, err := c.readResponse()
	if err != nil {
		return err
	}
	if resp.Kind == frame.KindSimple && resp.Str == "OK" {
		return nil
	}
	return frameError(resp)
}

// Publish delivers message to channel and returns the number of
// subscribers it was sent to.
func (c *Client) Publish(channel string, message []byte) (uint64, error) {
	req := frame.ArrayFrame([]frame.Frame{
		frame.BulkFrame([]byte("PUBLISH")),
		frame.BulkFrame([]byte(channel)),
		frame.BulkFrame(message),
	})
	if err := c.conn.WriteFrame(req); err != nil {
		return 0, err
	}
	resp, err := c.readResponse()
	if err != nil {
		return 0, err
	}
	if resp.Kind != frame.KindInteger {
		return 0, frameError(resp)
	}
	return resp.Int, nil
}

// Subscribe consumes the Client and subscribes to every named channel,
// returning a Subscriber. The Client must not be used again afterward.
func (c *Client) Subscribe(channels ...string) (*Subscriber, error) {
	if len(channels) == 0 {
		return nil, errors.New("client: Subscribe requires at least one channel")
	}

	items := make([]frame.Frame, 0, len(channels)+1)
	items = append(items, frame.BulkFrame([]byte("SUBSCRIBE")))
	for _, ch := range channels {
		items = append(items, frame.BulkFrame([]byte(ch)))
	}
	if err := c.conn.WriteFrame(frame.ArrayFrame(items)); err != nil {
		return nil, err
	}

	for _, ch := range channels {
		resp, err := c.readResponse()
		if err != nil {
			return nil, err
		}
		if resp.Kind != frame.KindArray || len(resp.Array) < 3 ||
			frameString(resp.Array[0]) != "subscribe" || frameString(resp.Array[1]) != ch ||
			resp.Array[2].Kind != frame.KindInteger {
			return nil, frameError(resp)
		}
	}

	return &Subscriber{client: c, channels: append([]string(nil), channels...)}, nil
}

func (c *Client) readResponse() (frame.Frame, error) {
	f, err := c.conn.ReadFrame()
	if err != nil {
		return frame.Frame{}, err
	}
	if f == nil {
		return frame.Frame{}, errors.New("client: connection reset by server")
	}
	if f.Kind == frame.KindError {
		return frame.Frame{}, errors.New(f.Str)
	}
	return *f, nil
}

func frameError(f frame.Frame) error {
	if f.Kind == frame.KindError {
		return errors.New(f.Str)
	}
	return fmt.Errorf("client: unexpected reply kind %v", f.Kind)
}

// frameString extracts a string from either a Simple or Bulk frame, the two
// kinds the server uses for textual reply elements.
func frameString(f frame.Frame) string {
	if f.Kind == frame.KindBulk {
		return string(f.Bulk)
	}
	return f.Str
}
