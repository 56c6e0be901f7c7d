// Package transport defines the byte-stream abstraction the key exchange
// runs over. Implementations live in the tcp and quic subpackages.
package transport

import (
	"context"
	"io"
	"net"
	"time"
)

// Conn is one bidirectional stream carrying a single key exchange and
// payload. Close flushes pending writes before tearing the stream down.
type Conn interface {
	io.ReadWriteCloser
	RemoteAddr() net.Addr
	SetDeadline(t time.Time) error
}

// Listener accepts inbound streams. Accept on a closed listener returns an
// error wrapping net.ErrClosed.
type Listener interface {
	Accept(ctx context.Context) (Conn, error)
	Addr() net.Addr
	Close() error
}

// Dialer opens an outbound stream to addr.
type Dialer func(ctx context.Context, addr string) (Conn, error)

// Kind names a transport implementation.
type Kind string

const (
	KindTCP  Kind = "tcp"
	KindQUIC Kind = "quic"
)
