// Package quic carries the exchange over a single bidirectional QUIC stream.
//
// The receiver speaks first, so the listening side opens the stream and the
// dialing side accepts it.
package quic

import (
	"context"
	"errors"
	"fmt"
	"net"
	"time"

	q "github.com/quic-go/quic-go"

	"github.com/TheusHen/mra/mra/transport"
)

// DefaultLinger is how long a dialer waits after sending FIN for the
// listener to close the connection.
const DefaultLinger = 5 * time.Second

const closeCodeDone q.ApplicationErrorCode = 0

func config() *q.Config {
	return &q.Config{
		MaxIdleTimeout:  30 * time.Second,
		KeepAlivePeriod: 10 * time.Second,
	}
}

type Listener struct {
	inner *q.Listener
}

func Listen(addr string) (*Listener, error) {
	tlsConf, err := ServerTLSConfig()
	if err != nil {
		return nil, err
	}
	ln, err := q.ListenAddr(addr, tlsConf, config())
	if err != nil {
		return nil, err
	}
	return &Listener{inner: ln}, nil
}

// Accept waits for a connection and opens its exchange stream.
func (l *Listener) Accept(ctx context.Context) (transport.Conn, error) {
	conn, err := l.inner.Accept(ctx)
	if err != nil {
		if errors.Is(err, q.ErrServerClosed) {
			return nil, fmt.Errorf("%w: %v", net.ErrClosed, err)
		}
		return nil, err
	}
	str, err := conn.OpenStreamSync(ctx)
	if err != nil {
		_ = conn.CloseWithError(closeCodeDone, "open stream failed")
		return nil, err
	}
	return &Conn{conn: conn, str: str}, nil
}

func (l *Listener) Addr() net.Addr { return l.inner.Addr() }

func (l *Listener) Close() error { return l.inner.Close() }

// Dial connects to addr and accepts the stream the listener opens.
func Dial(ctx context.Context, addr string) (transport.Conn, error) {
	conn, err := q.DialAddr(ctx, addr, ClientTLSConfig(), config())
	if err != nil {
		return nil, err
	}
	str, err := conn.AcceptStream(ctx)
	if err != nil {
		_ = conn.CloseWithError(closeCodeDone, "accept stream failed")
		return nil, err
	}
	return &Conn{conn: conn, str: str, linger: DefaultLinger}, nil
}

// Conn is a QUIC connection reduced to its one stream.
type Conn struct {
	conn   q.Connection
	str    q.Stream
	linger time.Duration
}

func (c *Conn) Read(p []byte) (int, error)  { return c.str.Read(p) }
func (c *Conn) Write(p []byte) (int, error) { return c.str.Write(p) }

func (c *Conn) RemoteAddr() net.Addr { return c.conn.RemoteAddr() }

func (c *Conn) SetDeadline(t time.Time) error { return c.str.SetDeadline(t) }

// Close sends FIN. On the dialing side it then waits up to the linger time
// for the peer to close the connection, so the final payload is delivered
// before the connection is torn down.
func (c *Conn) Close() error {
	err := c.str.Close()
	if c.linger > 0 {
		t := time.NewTimer(c.linger)
		select {
		case <-c.conn.Context().Done():
		case <-t.C:
		}
		t.Stop()
	}
	if cerr := c.conn.CloseWithError(closeCodeDone, "done"); err == nil {
		err = cerr
	}
	return err
}
