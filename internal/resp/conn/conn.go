// Package conn implements buffered, full-duplex RESP framing over a single
// net.Conn: one reader, one writer, no sharing across goroutines.
package conn

import (
	"bufio"
	"errors"
	"io"
	"net"

	"miniredis/internal/frame"
)

const initialReadBufSize = 4 * 1024

// ErrConnReset is returned by ReadFrame when the peer closes the socket in
// the middle of a frame.
var ErrConnReset = errors.New("connection reset by peer")

// Conn wraps a net.Conn in buffered RESP framing.
//
// Conn owns its socket exclusively; it is not safe to share across
// goroutines.
type Conn struct {
	netConn net.Conn
	writer  *bufio.Writer
	readBuf []byte
}

// New wraps stream in a Conn with a 4 KiB initial read buffer.
func New(stream net.Conn) *Conn {
	return &Conn{
		netConn: stream,
		writer:  bufio.NewWriter(stream),
		readBuf: make([]byte, 0, initialReadBufSize),
	}
}

// RemoteAddr returns the underlying socket's remote address.
func (c *Conn) RemoteAddr() net.Addr { return c.netConn.RemoteAddr() }

// Close closes the underlying socket.
func (c *Conn) Close() error { return c.netConn.Close() }

// ReadFrame reads a single Frame from the stream.
//
// It loops: try to parse a frame out of the already-buffered bytes; if that
// isn't enough, read more off the socket and retry. A clean close with an
// empty buffer returns (nil, nil). A close mid-frame returns ErrConnReset.
func (c *Conn) ReadFrame() (*frame.Frame, error) {
	for {
		if f, consumed, err := c.tryParse(); err != frame.ErrIncomplete {
			if err != nil {
				return nil, err
			}
			c.readBuf = c.readBuf[consumed:]
			return f, nil
		}

		n, err := c.fillBuf()
		if err != nil {
			return nil, err
		}
		if n == 0 {
			if len(c.readBuf) == 0 {
				return nil, nil
			}
			return nil, ErrConnReset
		}
	}
}

// tryParse attempts to parse one frame out of c.readBuf without touching
// the socket. It returns frame.ErrIncomplete when there isn't a full frame
// buffered yet.
func (c *Conn) tryParse() (*frame.Frame, int, error) {
	n, err := frame.Check(c.readBuf)
	if err != nil {
		return nil, 0, err
	}
	f, consumed, err := frame.Parse(c.readBuf[:n])
	if err != nil {
		return nil, 0, err
	}
	return &f, consumed, nil
}

// fillBuf reads whatever is immediately available from the socket and
// appends it to readBuf, growing it as needed.
func (c *Conn) fillBuf() (int, error) {
	start := len(c.readBuf)
	if cap(c.readBuf) == len(c.readBuf) {
		grown := make([]byte, len(c.readBuf), 2*cap(c.readBuf)+initialReadBufSize)
		copy(grown, c.readBuf)
		c.readBuf = grown
	}
	c.readBuf = c.readBuf[:cap(c.readBuf)]
	n, err := c.netConn.Read(c.readBuf[start:])
	c.readBuf = c.readBuf[:start+n]
	if err != nil {
		if err == io.EOF {
			return 0, nil
		}
		return 0, err
	}
	return n, nil
}

// WriteFrame encodes f and flushes it to the socket in one shot.
func (c *Conn) WriteFrame(f frame.Frame) error {
	if err := frame.WriteTo(c.writer, f); err != nil {
		return err
	}
	return c.writer.Flush()
}
