package commands

import (
	"context"
	"crypto/rand"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/TheusHen/mra/mra"
	"github.com/TheusHen/mra/mra/mrsa"
	"github.com/TheusHen/mra/mra/transport"
)

// bench runs a receiver and sender in one process over loopback.
func benchCmd() *cobra.Command {
	var (
		kind     string
		count    int
		size     int
		parallel int
	)
	cmd := &cobra.Command{
		Use:   "bench",
		Short: "Measure key generation and loopback exchanges",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if cmd.Flags().Changed("transport") {
				cfg.Transport = kind
			}
			if err := cfg.Validate(); err != nil {
				return err
			}
			if count <= 0 || size < 0 || parallel <= 0 {
				return fmt.Errorf("count and parallel must be positive, size non-negative")
			}
			scheme, err := cfg.Scheme()
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()

			start := time.Now()
			key, err := mrsa.GenerateKey(cfg.RSABits)
			if err != nil {
				return err
			}
			fmt.Fprintf(out, "keygen   %d bits in %s\n", key.Bits(), time.Since(start))

			r := mra.NewReceiver(key, scheme)
			r.MaxConns = parallel
			r.Timeout = cfg.Timeout
			r.Logger = logger
			if err := r.Listen(transport.Kind(cfg.Transport), "127.0.0.1:0"); err != nil {
				return err
			}
			defer r.Close()

			dial, err := mra.DialerFor(transport.Kind(cfg.Transport))
			if err != nil {
				return err
			}
			s := mra.NewSender(scheme, dial)
			s.Timeout = cfg.Timeout
			s.Logger = logger

			ctx, stop := signalContext(cmd.Context())
			defer stop()
			serveCtx, cancelServe := context.WithCancel(ctx)
			defer cancelServe()

			var received atomic.Int64
			served := make(chan error, 1)
			go func() {
				served <- r.Serve(serveCtx, func(d *mra.Delivery) {
					received.Add(int64(len(d.Plaintext)))
				})
			}()

			msg := make([]byte, size)
			if _, err := rand.Read(msg); err != nil {
				return err
			}

			g, gctx := errgroup.WithContext(ctx)
			g.SetLimit(parallel)
			start = time.Now()
			for i := 0; i < count; i++ {
				g.Go(func() error {
					_, err := s.Send(gctx, r.ListenAddr(), msg)
					return err
				})
			}
			if err := g.Wait(); err != nil {
				return err
			}
			elapsed := time.Since(start)

			// Deliveries can trail the last send by one handler call.
			deadline := time.Now().Add(5 * time.Second)
			want := int64(count) * int64(size)
			for received.Load() < want && time.Now().Before(deadline) {
				time.Sleep(10 * time.Millisecond)
			}
			cancelServe()
			if err := <-served; err != nil {
				return err
			}

			per := elapsed / time.Duration(count)
			mbps := float64(want) / elapsed.Seconds() / (1 << 20)
			fmt.Fprintf(out, "exchange %d x %d bytes over %s (%s) in %s, %s each, %.2f MiB/s\n",
				count, size, cfg.Transport, scheme.Variant, elapsed, per, mbps)
			if got := received.Load(); got != want {
				return fmt.Errorf("receiver got %d bytes, want %d", got, want)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&kind, "transport", "", "tcp or quic (default from config)")
	cmd.Flags().IntVar(&count, "count", 100, "number of exchanges")
	cmd.Flags().IntVar(&size, "size", 4096, "message size in bytes")
	cmd.Flags().IntVar(&parallel, "parallel", 4, "concurrent exchanges")
	return cmd
}
