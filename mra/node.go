package mra

import (
	"context"
	"errors"
	"fmt"
	"net"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/TheusHen/mra/mra/hybrid"
	"github.com/TheusHen/mra/mra/mrsa"
	"github.com/TheusHen/mra/mra/session"
	"github.com/TheusHen/mra/mra/transfer"
	"github.com/TheusHen/mra/mra/transport"
	"github.com/TheusHen/mra/mra/transport/quic"
	"github.com/TheusHen/mra/mra/transport/tcp"
)

var (
	ErrNotListening = errors.New("mra: receiver is not listening")
	ErrUnknownKind  = errors.New("mra: unknown transport")
	ErrNoDialer     = errors.New("mra: sender has no dialer")
)

// DefaultMaxConns bounds concurrent exchanges in Receiver.Serve.
const DefaultMaxConns = 16

// Listen opens a listener for the given transport.
func Listen(kind transport.Kind, addr string) (transport.Listener, error) {
	switch kind {
	case transport.KindTCP:
		ln, err := tcp.Listen(addr)
		if err != nil {
			return nil, err
		}
		return ln, nil
	case transport.KindQUIC:
		ln, err := quic.Listen(addr)
		if err != nil {
			return nil, err
		}
		return ln, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownKind, kind)
	}
}

// DialerFor returns the dialer for the given transport.
func DialerFor(kind transport.Kind) (transport.Dialer, error) {
	switch kind {
	case transport.KindTCP:
		return tcp.Dial, nil
	case transport.KindQUIC:
		return quic.Dial, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownKind, kind)
	}
}

// Delivery is one message accepted by a Receiver.
type Delivery struct {
	*session.Message
	// Bundle is set when the message arrived as a bundle.
	Bundle *transfer.Info
}

// Receiver accepts connections and opens the payloads sent to its key.
type Receiver struct {
	Key    *mrsa.TriplePrimeKey
	Scheme hybrid.Scheme
	// Bundle, if non-nil, expects every plaintext to be a bundle.
	Bundle   *transfer.Config
	MaxConns int
	Timeout  time.Duration
	Logger   zerolog.Logger

	listener transport.Listener
}

func NewReceiver(key *mrsa.TriplePrimeKey, scheme hybrid.Scheme) *Receiver {
	return &Receiver{
		Key:      key,
		Scheme:   scheme,
		MaxConns: DefaultMaxConns,
		Logger:   zerolog.Nop(),
	}
}

func (r *Receiver) Listen(kind transport.Kind, addr string) error {
	ln, err := Listen(kind, addr)
	if err != nil {
		return err
	}
	r.listener = ln
	return nil
}

func (r *Receiver) ListenAddr() string {
	if r.listener == nil {
		return ""
	}
	return r.listener.Addr().String()
}

func (r *Receiver) Close() error {
	if r.listener == nil {
		return nil
	}
	return r.listener.Close()
}

// ReceiveOne accepts a single connection and runs one exchange on it.
func (r *Receiver) ReceiveOne(ctx context.Context) (*Delivery, error) {
	if r.listener == nil {
		return nil, ErrNotListening
	}
	conn, err := r.listener.Accept(ctx)
	if err != nil {
		return nil, err
	}
	return r.handle(ctx, conn)
}

// Serve accepts connections until ctx is cancelled or the listener is
// closed, running up to MaxConns exchanges at once. Other accept errors are
// retried with backoff. Failed exchanges are logged and do not stop the
// loop. handler may be called concurrently.
func (r *Receiver) Serve(ctx context.Context, handler func(*Delivery)) error {
	if r.listener == nil {
		return ErrNotListening
	}
	var g errgroup.Group
	if r.MaxConns > 0 {
		g.SetLimit(r.MaxConns)
	}

	var (
		serveErr error
		delay    time.Duration
	)
	for {
		conn, err := r.listener.Accept(ctx)
		if err != nil {
			if ctx.Err() != nil {
				break
			}
			if errors.Is(err, net.ErrClosed) {
				serveErr = err
				break
			}
			delay = acceptBackoff(delay)
			r.Logger.Warn().Err(err).Dur("retry_in", delay).Msg("accept failed")
			if !sleepCtx(ctx, delay) {
				break
			}
			continue
		}
		delay = 0
		g.Go(func() error {
			d, err := r.handle(ctx, conn)
			if err != nil {
				r.Logger.Warn().Err(err).Str("remote", conn.RemoteAddr().String()).Msg("exchange failed")
				return nil
			}
			handler(d)
			return nil
		})
	}
	_ = g.Wait()
	return serveErr
}

const (
	minAcceptBackoff = 5 * time.Millisecond
	maxAcceptBackoff = time.Second
)

func acceptBackoff(d time.Duration) time.Duration {
	if d == 0 {
		return minAcceptBackoff
	}
	return min(2*d, maxAcceptBackoff)
}

// sleepCtx waits for d and reports false if ctx ended first.
func sleepCtx(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return true
	case <-ctx.Done():
		return false
	}
}

func (r *Receiver) handle(ctx context.Context, conn transport.Conn) (*Delivery, error) {
	defer conn.Close()

	msg, err := session.Receive(ctx, conn, r.Key, r.Scheme, session.Options{
		Logger:  r.Logger,
		Timeout: r.Timeout,
	})
	if err != nil {
		return nil, err
	}
	d := &Delivery{Message: msg}
	if r.Bundle != nil {
		data, info, err := transfer.Unpack(msg.Plaintext)
		if err != nil {
			return nil, err
		}
		if info.Repaired > 0 {
			r.Logger.Warn().Str("conn_id", msg.ConnID.String()).Int("shards", info.Repaired).Msg("bundle repaired")
		}
		d.Plaintext = data
		d.Bundle = info
	}
	return d, nil
}

// Sender seals messages to a receiver.
type Sender struct {
	Scheme hybrid.Scheme
	Dial   transport.Dialer
	// Bundle, if non-nil, packs every plaintext into a bundle first.
	Bundle  *transfer.Config
	Pin     string
	Timeout time.Duration
	Logger  zerolog.Logger
}

func NewSender(scheme hybrid.Scheme, dial transport.Dialer) *Sender {
	return &Sender{Scheme: scheme, Dial: dial, Logger: zerolog.Nop()}
}

// Send dials addr, runs one exchange and closes the connection.
func (s *Sender) Send(ctx context.Context, addr string, plaintext []byte) (*session.Receipt, error) {
	if s.Dial == nil {
		return nil, ErrNoDialer
	}
	data := plaintext
	if s.Bundle != nil {
		b, info, err := transfer.Pack(plaintext, *s.Bundle)
		if err != nil {
			return nil, err
		}
		s.Logger.Debug().
			Int("chunks", info.Chunks).
			Int("compressed", info.Compressed).
			Int("bytes", len(b)).
			Msg("bundle packed")
		data = b
	}

	conn, err := s.Dial(ctx, addr)
	if err != nil {
		return nil, err
	}
	rcpt, err := session.Send(ctx, conn, s.Scheme, data, session.Options{
		Logger:  s.Logger,
		Timeout: s.Timeout,
		Pin:     s.Pin,
	})
	if cerr := conn.Close(); err == nil && cerr != nil {
		s.Logger.Debug().Err(cerr).Msg("close after send")
	}
	return rcpt, err
}
