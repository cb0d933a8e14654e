package conn

import (
	"net"
	"testing"
	"time"

	"miniredis/internal/frame"
)

func pipePair(t *testing.T) (*Conn, net.Conn) {
	t.Helper()
	server, client := net.Pipe()
	t.Cleanup(func() { server.Close(); client.Close() })
	return New(server), client
}

func TestReadFrameAcrossPartialWrites(t *testing.T) {
	c, client := pipePair(t)

	want := frame.ArrayFrame([]frame.Frame{
		frame.BulkFrame([]byte("SET")),
		frame.BulkFrame([]byte("hello")),
		frame.BulkFrame([]byte("world")),
	})

	done := make(chan struct{})
	var got *frame.Frame
	var readErr error
	go func() {
		got, readErr = c.ReadFrame()
		close(done)
	}()

	wire := []byte("*3\r\n$3\r\nSET\r\n$5\r\nhello\r\n$5\r\nworld\r\n")
	for _, b := range wire {
		if _, err := client.Write([]byte{b}); err != nil {
			t.Fatalf("write: %v", err)
		}
		time.Sleep(time.Millisecond)
	}

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for ReadFrame")
	}

	if readErr != nil {
		t.Fatalf("ReadFrame: %v", readErr)
	}
	if got == nil || !got.Equal(want) {
		t.Fatalf("got %+v, want %+v", got, want)
	}
}

func TestReadFrameCleanClose(t *testing.T) {
	c, client := pipePair(t)
	client.Close()

	f, err := c.ReadFrame()
	if err != nil {
		t.Fatalf("expected clean close, got error: %v", err)
	}
	if f != nil {
		t.Fatalf("expected nil frame on clean close, got %+v", f)
	}
}

func TestReadFrameResetMidFrame(t *testing.T) {
	c, client := pipePair(t)

	done := make(chan struct{})
	var readErr error
	go func() {
		_, readErr = c.ReadFrame()
		close(done)
	}()

	client.Write([]byte("*2\r\n$3\r\nGET\r\n"))
	time.Sleep(10 * time.Millisecond)
	client.Close()

	<-done
	if readErr != ErrConnReset {
		t.Fatalf("expected ErrConnReset, got %v", readErr)
	}
}

func TestWriteFrameEncodesToSocket(t *testing.T) {
	c, client := pipePair(t)

	go func() {
		c.WriteFrame(frame.Simple("PONG"))
	}()

	buf := make([]byte, 64)
	n, err := client.Read(buf)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if string(buf[:n]) != "+PONG\r\n" {
		t.Fatalf("got %q, want %q", buf[:n], "+PONG\r\n")
	}
}
