// Package tcp carries the exchange over a plain TCP connection.
package tcp

import (
	"context"
	"net"
	"time"

	"github.com/TheusHen/mra/mra/transport"
)

type Listener struct {
	inner *net.TCPListener
}

func Listen(addr string) (*Listener, error) {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, err
	}
	return &Listener{inner: ln.(*net.TCPListener)}, nil
}

// Accept waits for the next connection. Cancelling ctx unblocks it.
func (l *Listener) Accept(ctx context.Context) (transport.Conn, error) {
	stop := context.AfterFunc(ctx, func() {
		_ = l.inner.SetDeadline(time.Now())
	})
	tc, err := l.inner.AcceptTCP()
	if !stop() {
		_ = l.inner.SetDeadline(time.Time{})
	}
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, err
	}
	return &Conn{tc}, nil
}

func (l *Listener) Addr() net.Addr { return l.inner.Addr() }

func (l *Listener) Close() error { return l.inner.Close() }

func Dial(ctx context.Context, addr string) (transport.Conn, error) {
	var d net.Dialer
	c, err := d.DialContext(ctx, "tcp", addr)
	if err != nil {
		return nil, err
	}
	return &Conn{c.(*net.TCPConn)}, nil
}

// Conn is a TCP connection whose Close sends FIN before releasing the socket.
type Conn struct {
	*net.TCPConn
}

// Close half-closes the write side, then closes the connection.
func (c *Conn) Close() error {
	_ = c.CloseWrite()
	return c.TCPConn.Close()
}
