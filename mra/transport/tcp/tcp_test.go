package tcp

import (
	"bytes"
	"context"
	"errors"
	"io"
	"testing"
	"time"
)

func TestLoopback(t *testing.T) {
	ln, err := Listen("127.0.0.1:0")
	if err != nil {
		t.Fatalf("Listen: %v", err)
	}
	defer ln.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	done := make(chan error, 1)
	go func() {
		c, err := ln.Accept(ctx)
		if err != nil {
			done <- err
			return
		}
		defer c.Close()
		_, err = c.Write([]byte("ping"))
		done <- err
	}()

	c, err := Dial(ctx, ln.Addr().String())
	if err != nil {
		t.Fatalf("Dial: %v", err)
	}
	defer c.Close()
	buf := make([]byte, 4)
	if _, err := io.ReadFull(c, buf); err != nil {
		t.Fatalf("ReadFull: %v", err)
	}
	if string(buf) != "ping" {
		t.Fatalf("got %q", buf)
	}
	if err := <-done; err != nil {
		t.Fatalf("server: %v", err)
	}
}

func TestAcceptCancel(t *testing.T) {
	ln, err := Listen("127.0.0.1:0")
	if err != nil {
		t.Fatalf("Listen: %v", err)
	}
	defer ln.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	if _, err := ln.Accept(ctx); !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected DeadlineExceeded, got %v", err)
	}
}

func TestCloseFlushesAndSignalsEOF(t *testing.T) {
	ln, err := Listen("127.0.0.1:0")
	if err != nil {
		t.Fatalf("Listen: %v", err)
	}
	defer ln.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	payload := bytes.Repeat([]byte("frame"), 200000)
	got := make(chan []byte, 1)
	errc := make(chan error, 1)
	go func() {
		c, err := ln.Accept(ctx)
		if err != nil {
			errc <- err
			return
		}
		defer c.Close()
		b, err := io.ReadAll(c)
		if err != nil {
			errc <- err
			return
		}
		got <- b
	}()

	c, err := Dial(ctx, ln.Addr().String())
	if err != nil {
		t.Fatalf("Dial: %v", err)
	}
	if _, ok := c.(*Conn); !ok {
		t.Fatalf("Dial returned %T, want *Conn", c)
	}
	if _, err := c.Write(payload); err != nil {
		t.Fatalf("Write: %v", err)
	}
	if err := c.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if _, err := c.Write([]byte("late")); err == nil {
		t.Fatal("write after Close succeeded")
	}

	select {
	case b := <-got:
		if !bytes.Equal(b, payload) {
			t.Fatalf("peer read %d bytes, want %d", len(b), len(payload))
		}
	case err := <-errc:
		t.Fatalf("server: %v", err)
	case <-ctx.Done():
		t.Fatal("peer never saw EOF")
	}
}
