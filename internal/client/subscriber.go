package client

import (
	"errors"

	"miniredis/internal/frame"
)

// Message is one payload delivered on a subscribed channel.
type Message struct {
	Channel string
	Content []byte
}

// Subscriber is the pub/sub-only view a Client transitions into on
// Subscribe. Its method set is disjoint from Client's: there is no way to
// issue GET/SET/PUBLISH through a Subscriber, approximating the original's
// compile-time type-state transition.
type Subscriber struct {
	client   *Client
	channels []string
}

// Subscribed returns the channels currently subscribed to.
func (s *Subscriber) Subscribed() []string {
	return append([]string(nil), s.channels...)
}

// NextMessage blocks for the next published message. A nil Message with a
// nil error indicates the connection closed cleanly.
func (s *Subscriber) NextMessage() (*Message, error) {
	f, err := s.client.conn.ReadFrame()
	if err != nil {
		return nil, err
	}
	if f == nil {
		return nil, nil
	}
	if f.Kind == frame.KindError {
		return nil, errors.New(f.Str)
	}
	if f.Kind != frame.KindArray || len(f.Array) != 3 || frameString(f.Array[0]) != "message" {
		return nil, frameError(*f)
	}
	return &Message{Channel: frameString(f.Array[1]), Content: f.Array[2].Bulk}, nil
}

// Subscribe adds more channels to this Subscriber's subscription set.
func (s *Subscriber) Subscribe(channels ...string) error {
	items := make([]frame.Frame, 0, len(channels)+1)
	items = append(items, frame.BulkFrame([]byte("SUBSCRIBE")))
	for _, ch := range channels {
		items = append(items, frame.BulkFrame([]byte(ch)))
	}
	if err := s.client.conn.WriteFrame(frame.ArrayFrame(items)); err != nil {
		return err
	}
	for _, ch := range channels {
		f, err := s.client.conn.ReadFrame()
		if err != nil {
			return err
		}
		if f == nil || f.Kind != frame.KindArray || len(f.Array) < 2 ||
			frameString(f.Array[0]) != "subscribe" || frameString(f.Array[1]) != ch {
			return errors.New("client: unexpected subscribe confirmation")
		}
		s.channels = append(s.channels, ch)
	}
	return nil
}

// Unsubscribe drops the named channels, or every current subscription if
// none are named.
func (s *Subscriber) Unsubscribe(channels ...string) error {
	items := []frame.Frame{frame.BulkFrame([]byte("UNSUBSCRIBE"))}
	for _, ch := range channels {
		items = append(items, frame.BulkFrame([]byte(ch)))
	}
	if err := s.client.conn.WriteFrame(frame.ArrayFrame(items)); err != nil {
		return err
	}

	targets := channels
	if len(targets) == 0 {
		targets = s.channels
	}
	for range targets {
		f, err := s.client.conn.ReadFrame()
		if err != nil {
			return err
		}
		if f == nil || f.Kind != frame.KindArray || len(f.Array) < 2 || frameString(f.Array[0]) != "unsubscribe" {
			return errors.New("client: unexpected unsubscribe confirmation")
		}
		before := len(s.channels)
		s.channels = removeString(s.channels, frameString(f.Array[1]))
		if len(s.channels) != before-1 {
			return errors.New("client: unsubscribe confirmation for a channel not subscribed")
		}
	}
	return nil
}

// Close closes the underlying connection.
func (s *Subscriber) Close() error { return s.client.Close() }

func removeString(items []string, target string) []string {
	out := items[:0]
	for _, s := range items {
		if s != target {
			out = append(out, s)
		}
	}
	return out
}
