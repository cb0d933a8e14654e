package integration

import (
	"context"
	"net"
	"testing"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"miniredis/internal/client"
	"miniredis/internal/frame"
	"miniredis/internal/resp/conn"
	"miniredis/internal/server"
)

// startServer spins up a Listener on an ephemeral loopback port and stops
// it when the test finishes.
func startServer(t *testing.T) string {
	t.Helper()

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	addr := ln.Addr().String()

	srv := server.New(ln, 500, 1024)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- srv.Run(ctx) }()

	t.Cleanup(func() {
		cancel()
		select {
		case <-done:
		case <-time.After(5 * time.Second):
			t.Fatal("server did not shut down in time")
		}
	})

	return addr
}

// S1 -- GET on a missing key returns a nil reply.
func TestGetMissing(t *testing.T) {
	addr := startServer(t)
	c, err := client.Connect(addr)
	if err != nil {
		t.Fatalf("connect: %v", err)
	}
	defer c.Close()

	_, ok, err := c.Get("foo")
	if err != nil {
		t.Fatalf("GET: %v", err)
	}
	if ok {
		t.Fatalf("GET missing key reported a hit")
	}
}

// S2 -- SET then GET round-trips the value.
func TestSetThenGet(t *testing.T) {
	addr := startServer(t)
	c, err := client.Connect(addr)
	if err != nil {
		t.Fatalf("connect: %v", err)
	}
	defer c.Close()

	if err := c.Set("hello", []byte("world")); err != nil {
		t.Fatalf("SET: %v", err)
	}
	value, ok, err := c.Get("hello")
	if err != nil {
		t.Fatalf("GET: %v", err)
	}
	if !ok || string(value) != "world" {
		t.Fatalf("GET = %q, %v; want \"world\", true", value, ok)
	}
}

// S3 -- a PX-expired key disappears within a bounded window.
func TestSetWithPXExpiry(t *testing.T) {
	addr := startServer(t)
	c, err := client.Connect(addr)
	if err != nil {
		t.Fatalf("connect: %v", err)
	}
	defer c.Close()

	if err := c.SetExpires("k", []byte("v"), 50*time.Millisecond); err != nil {
		t.Fatalf("SET: %v", err)
	}

	if _, ok, _ := c.Get("k"); !ok {
		t.Fatalf("GET immediately after SET PX reported a miss")
	}

	time.Sleep(150 * time.Millisecond)

	if _, ok, _ := c.Get("k"); ok {
		t.Fatalf("GET after PX elapsed still reported a hit")
	}
}

// S4 -- a published message reaches a subscriber, and PUBLISH reports the
// subscriber count.
func TestPubSub(t *testing.T) {
	addr := startServer(t)

	subClient, err := client.Connect(addr)
	if err != nil {
		t.Fatalf("connect subscriber: %v", err)
	}
	sub, err := subClient.Subscribe("foo")
	if err != nil {
		t.Fatalf("SUBSCRIBE: %v", err)
	}
	defer sub.Close()

	pubClient, err := client.Connect(addr)
	if err != nil {
		t.Fatalf("connect publisher: %v", err)
	}
	defer pubClient.Close()

	n, err := pubClient.Publish("foo", []byte("bar"))
	if err != nil {
		t.Fatalf("PUBLISH: %v", err)
	}
	if n != 1 {
		t.Fatalf("PUBLISH returned %d subscribers; want 1", n)
	}

	msgCh := make(chan *client.Message, 1)
	errCh := make(chan error, 1)
	go func() {
		msg, err := sub.NextMessage()
		if err != nil {
			errCh <- err
			return
		}
		msgCh <- msg
	}()

	select {
	case msg := <-msgCh:
		if msg.Channel != "foo" || string(msg.Content) != "bar" {
			t.Fatalf("got message %+v; want channel=foo content=bar", msg)
		}
	case err := <-errCh:
		t.Fatalf("NextMessage: %v", err)
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for published message")
	}
}

// S5 -- PING echoes its argument, or answers PONG with none.
func TestPing(t *testing.T) {
	addr := startServer(t)
	c, err := client.Connect(addr)
	if err != nil {
		t.Fatalf("connect: %v", err)
	}
	defer c.Close()

	reply, err := c.Ping("hi")
	if err != nil {
		t.Fatalf("PING hi: %v", err)
	}
	if reply != "hi" {
		t.Fatalf("PING hi = %q; want \"hi\"", reply)
	}

	reply, err = c.Ping("")
	if err != nil {
		t.Fatalf("PING: %v", err)
	}
	if reply != "PONG" {
		t.Fatalf("PING = %q; want \"PONG\"", reply)
	}
}

// Disallowed commands in subscribed mode get an error reply, not a closed
// connection. client.Subscriber has no GET method by design (it only
// offers the commands legal in subscribed mode), so this writes the GET
// frame straight to the socket, bypassing the type-safe client entirely.
func TestGetRejectedInSubscribedMode(t *testing.T) {
	addr := startServer(t)

	nc, err := net.Dial("tcp", addr)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer nc.Close()
	raw := conn.New(nc)

	subscribe := frame.ArrayFrame([]frame.Frame{
		frame.BulkFrame([]byte("SUBSCRIBE")),
		frame.BulkFrame([]byte("foo")),
	})
	if err := raw.WriteFrame(subscribe); err != nil {
		t.Fatalf("write SUBSCRIBE: %v", err)
	}
	if _, err := raw.ReadFrame(); err != nil {
		t.Fatalf("read SUBSCRIBE reply: %v", err)
	}

	get := frame.ArrayFrame([]frame.Frame{
		frame.BulkFrame([]byte("GET")),
		frame.BulkFrame([]byte("foo")),
	})
	if err := raw.WriteFrame(get); err != nil {
		t.Fatalf("write GET: %v", err)
	}
	reply, err := raw.ReadFrame()
	if err != nil {
		t.Fatalf("read GET reply: %v", err)
	}
	if reply == nil || reply.Kind != frame.KindError {
		t.Fatalf("GET in subscribed mode = %+v; want an error frame", reply)
	}

	// PING stays legal even once subscribed, and the connection must still
	// be usable: GET's error reply must not have closed it.
	ping := frame.ArrayFrame([]frame.Frame{frame.BulkFrame([]byte("PING"))})
	if err := raw.WriteFrame(ping); err != nil {
		t.Fatalf("write PING: %v", err)
	}
	pong, err := raw.ReadFrame()
	if err != nil {
		t.Fatalf("read PING reply: %v", err)
	}
	if pong == nil || pong.Kind != frame.KindSimple || pong.Str != "PONG" {
		t.Fatalf("PING after rejected GET = %+v; want +PONG", pong)
	}
}

// S7 -- wire compatibility: a go-redis client talks to the server directly,
// exercising the RESP framing independent of this repo's own client.
func TestWireCompatibilityWithGoRedis(t *testing.T) {
	addr := startServer(t)

	rdb := goredis.NewClient(&goredis.Options{Addr: addr})
	defer rdb.Close()

	ctx := context.Background()

	if err := rdb.Set(ctx, "hello", "world", 0).Err(); err != nil {
		t.Fatalf("SET via go-redis: %v", err)
	}
	got, err := rdb.Get(ctx, "hello").Result()
	if err != nil {
		t.Fatalf("GET via go-redis: %v", err)
	}
	if got != "world" {
		t.Fatalf("GET via go-redis = %q; want \"world\"", got)
	}

	if err := rdb.Ping(ctx).Err(); err != nil {
		t.Fatalf("PING via go-redis: %v", err)
	}

	missing, err := rdb.Get(ctx, "does-not-exist").Result()
	if err != goredis.Nil {
		t.Fatalf("GET missing via go-redis: got (%q, %v); want redis.Nil", missing, err)
	}
}

// S6 -- graceful shutdown drains idle connections rather than resetting them.
func TestGracefulShutdown(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	addr := ln.Addr().String()

	srv := server.New(ln, 500, 1024)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- srv.Run(ctx) }()

	c, err := client.Connect(addr)
	if err != nil {
		t.Fatalf("connect: %v", err)
	}
	defer c.Close()

	sub, err := c.Subscribe("idle")
	if err != nil {
		t.Fatalf("SUBSCRIBE: %v", err)
	}

	cancel()

	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("Run returned error: %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("server did not shut down in time")
	}

	msg, _ := sub.NextMessage()
	if msg != nil {
		t.Fatalf("NextMessage after shutdown returned a message: %+v", msg)
	}
}
