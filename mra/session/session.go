// Package session runs the two-message exchange over a transport.Conn:
//
//	receiver -> sender: public key (n, e)
//	sender -> receiver: payload (header, wrapped key, encrypted data)
//
// Each call handles exactly one exchange and does not close the connection.
package session

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/TheusHen/mra/mra/framing"
	"github.com/TheusHen/mra/mra/hybrid"
	"github.com/TheusHen/mra/mra/mrsa"
	"github.com/TheusHen/mra/mra/protocol"
	"github.com/TheusHen/mra/mra/transport"
)

var ErrUnexpectedKey = errors.New("session: receiver key does not match pinned fingerprint")

type Options struct {
	Logger zerolog.Logger
	// Timeout bounds the whole exchange. Zero relies on ctx alone.
	Timeout time.Duration
	// Pin, if set, is a hex prefix the receiver's key fingerprint must
	// start with.
	Pin string
}

// Message is what the receiver gets out of one exchange.
type Message struct {
	ConnID    uuid.UUID
	Remote    net.Addr
	Plaintext []byte
	// WireBytes is the encoded payload size.
	WireBytes int
	Elapsed   time.Duration
}

// Receipt describes a completed send.
type Receipt struct {
	ConnID      uuid.UUID
	Fingerprint mrsa.Fingerprint
	WireBytes   int
	Elapsed     time.Duration
}

// Receive sends the public half of key and opens the payload that comes back.
func Receive(ctx context.Context, conn transport.Conn, key *mrsa.TriplePrimeKey, scheme hybrid.Scheme, opts Options) (*Message, error) {
	start := time.Now()
	id := uuid.New()
	log := opts.Logger.With().Str("conn_id", id.String()).Str("role", "receiver").Logger()

	ctx, done := bind(ctx, conn, opts.Timeout)
	defer done()

	pub := key.Public()
	if err := protocol.WritePublicKey(conn, pub); err != nil {
		return nil, wrapCtx(ctx, fmt.Errorf("session: send public key: %w", err))
	}
	log.Debug().
		Str("remote", conn.RemoteAddr().String()).
		Str("fingerprint", pub.Fingerprint().Short()).
		Msg("public key sent")

	p, err := protocol.ReadPayload(conn)
	if err != nil {
		return nil, wrapCtx(ctx, fmt.Errorf("session: read payload: %w", err))
	}
	log.Debug().
		Int("enc_key", len(p.EncKey)).
		Int("enc_data", len(p.EncData)).
		Str("iv", framing.EncodeHex(p.IV[:])).
		Msg("payload received")

	pt, err := scheme.Open(key, p)
	if err != nil {
		// The cause stays local; the sender learns nothing beyond the closed stream.
		log.Warn().Err(err).Msg("payload rejected")
		return nil, hybrid.ErrOpenFailed
	}

	return &Message{
		ConnID:    id,
		Remote:    conn.RemoteAddr(),
		Plaintext: pt,
		WireBytes: p.Size(),
		Elapsed:   time.Since(start),
	}, nil
}

// Send reads the receiver's public key, seals plaintext to it and writes the
// payload.
func Send(ctx context.Context, conn transport.Conn, scheme hybrid.Scheme, plaintext []byte, opts Options) (*Receipt, error) {
	start := time.Now()
	id := uuid.New()
	log := opts.Logger.With().Str("conn_id", id.String()).Str("role", "sender").Logger()

	ctx, done := bind(ctx, conn, opts.Timeout)
	defer done()

	pub, err := protocol.ReadPublicKey(conn)
	if err != nil {
		return nil, wrapCtx(ctx, fmt.Errorf("session: read public key: %w", err))
	}
	fp := pub.Fingerprint()
	if opts.Pin != "" && !strings.HasPrefix(fp.String(), strings.ToLower(opts.Pin)) {
		return nil, fmt.Errorf("%w: got %s", ErrUnexpectedKey, fp.Short())
	}
	log.Debug().
		Str("fingerprint", fp.Short()).
		Int("modulus_bytes", len(pub.N)).
		Msg("public key received")

	p, err := scheme.Seal(pub, plaintext)
	if err != nil {
		return nil, err
	}
	if err := protocol.WritePayload(conn, p); err != nil {
		return nil, wrapCtx(ctx, fmt.Errorf("session: send payload: %w", err))
	}
	log.Debug().
		Int("bytes", p.Size()).
		Str("variant", scheme.Variant.String()).
		Msg("payload sent")

	return &Receipt{
		ConnID:      id,
		Fingerprint: fp,
		WireBytes:   p.Size(),
		Elapsed:     time.Since(start),
	}, nil
}

// bind ties conn's deadline to ctx: an expiring or cancelled context unblocks
// any pending read or write.
func bind(ctx context.Context, conn transport.Conn, timeout time.Duration) (context.Context, func()) {
	cancel := context.CancelFunc(func() {})
	if timeout > 0 {
		ctx, cancel = context.WithTimeout(ctx, timeout)
	}
	stop := context.AfterFunc(ctx, func() {
		_ = conn.SetDeadline(time.Now())
	})
	return ctx, func() {
		stop()
		cancel()
	}
}

// wrapCtx reports the context error when it caused the I/O failure.
func wrapCtx(ctx context.Context, err error) error {
	if cerr := ctx.Err(); cerr != nil {
		return fmt.Errorf("%w (%w)", err, cerr)
	}
	return err
}
