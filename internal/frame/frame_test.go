package frame

import (
	"bufio"
	"bytes"
	"math"
	"testing"
)

func encode(t *testing.T, f Frame) []byte {
	t.Helper()
	var buf bytes.Buffer
	w := bufio.NewWriter(&buf)
	if err := WriteTo(w, f); err != nil {
		t.Fatalf("WriteTo: %v", err)
	}
	if err := w.Flush(); err != nil {
		t.Fatalf("flush: %v", err)
	}
	return buf.Bytes()
}

func TestRoundTrip(t *testing.T) {
	cases := []Frame{
		Simple("OK"),
		Simple(""),
		Err("ERR unknown command 'FOO'"),
		Integer(0),
		Integer(math.MaxUint64),
		BulkFrame([]byte("hello")),
		BulkFrame([]byte{}),
		Null(),
		ArrayFrame(nil),
		ArrayFrame([]Frame{Integer(1), BulkFrame([]byte("two")), Simple("three")}),
	}

	for i, want := range cases {
		wire := encode(t, want)
		n, err := Check(wire)
		if err != nil {
			t.Fatalf("case %d: Check: %v", i, err)
		}
		got, consumed, err := Parse(wire[:n])
		if err != nil {
			t.Fatalf("case %d: Parse: %v", i, err)
		}
		if consumed != n {
			t.Fatalf("case %d: Parse consumed %d, Check consumed %d", i, consumed, n)
		}
		if !got.Equal(want) {
			t.Fatalf("case %d: round-trip mismatch: got %+v want %+v", i, got, want)
		}
	}
}

func TestCheckIncompleteThenComplete(t *testing.T) {
	want := ArrayFrame([]Frame{BulkFrame([]byte("SET")), BulkFrame([]byte("k")), BulkFrame([]byte("v"))})
	wire := encode(t, want)

	for split := 0; split < len(wire); split++ {
		if _, err := Check(wire[:split]); err != ErrIncomplete {
			t.Fatalf("split %d: expected ErrIncomplete, got %v", split, err)
		}
	}

	n, err := Check(wire)
	if err != nil {
		t.Fatalf("Check full buffer: %v", err)
	}
	if n != len(wire) {
		t.Fatalf("Check consumed %d, want %d", n, len(wire))
	}
}

func TestCheckInvalid(t *testing.T) {
	cases := [][]byte{
		[]byte("!hello\r\n"),         // unknown tag
		[]byte("$abc\r\nhello\r\n"),  // non-decimal length
		[]byte("$-2\r\n"),            // negative length other than -1
		[]byte(":12x\r\n"),           // non-decimal integer
	}
	for i, c := range cases {
		if _, err := Check(c); err == nil {
			t.Fatalf("case %d: expected error, got none", i)
		} else if err == ErrIncomplete {
			t.Fatalf("case %d: expected protocol error, got ErrIncomplete", i)
		}
	}
}

func TestCheckNonUTF8Simple(t *testing.T) {
	bad := append([]byte("+"), 0xff, 0xfe, '\r', '\n')
	if _, err := Check(bad); err == nil {
		t.Fatalf("expected protocol error for non-utf8 simple line")
	}
}

func TestNullBulkEncoding(t *testing.T) {
	wire := encode(t, Null())
	if string(wire) != "$-1\r\n" {
		t.Fatalf("Null() encoded as %q, want \"$-1\\r\\n\"", wire)
	}
}
