package commands

import (
	"fmt"
	"sync"

	"github.com/spf13/cobra"

	"github.com/TheusHen/mra/mra"
	"github.com/TheusHen/mra/mra/keystore"
	"github.com/TheusHen/mra/mra/mrsa"
	"github.com/TheusHen/mra/mra/transport"
)

func receiveCmd() *cobra.Command {
	var (
		listen  string
		kind    string
		keyFile string
		once    bool
	)
	cmd := &cobra.Command{
		Use:   "receive",
		Short: "Listen for senders and print the messages they deliver",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if cmd.Flags().Changed("listen") {
				cfg.Listen = listen
			}
			if cmd.Flags().Changed("transport") {
				cfg.Transport = kind
			}
			if cmd.Flags().Changed("key-file") {
				cfg.KeyFile = keyFile
			}
			if err := cfg.Validate(); err != nil {
				return err
			}

			key, err := receiverKey()
			if err != nil {
				return err
			}
			scheme, err := cfg.Scheme()
			if err != nil {
				return err
			}

			r := mra.NewReceiver(key, scheme)
			r.MaxConns = cfg.MaxConns
			r.Timeout = cfg.Timeout
			r.Logger = logger
			if cfg.Bundle.Enabled {
				bc, err := cfg.BundleConfig()
				if err != nil {
					return err
				}
				r.Bundle = &bc
			}
			if err := r.Listen(transport.Kind(cfg.Transport), cfg.Listen); err != nil {
				return err
			}
			defer r.Close()

			logger.Info().
				Str("addr", r.ListenAddr()).
				Str("transport", cfg.Transport).
				Str("variant", scheme.Variant.String()).
				Str("fingerprint", key.Public().Fingerprint().String()).
				Msg("receiver listening")

			ctx, stop := signalContext(cmd.Context())
			defer stop()

			out := cmd.OutOrStdout()
			var mu sync.Mutex
			show := func(d *mra.Delivery) {
				mu.Lock()
				defer mu.Unlock()
				fmt.Fprintf(out, "%s\n", d.Plaintext)
			}

			if once {
				d, err := r.ReceiveOne(ctx)
				if err != nil {
					return err
				}
				show(d)
				return nil
			}
			err = r.Serve(ctx, show)
			logger.Info().Msg("receiver stopped")
			return err
		},
	}
	cmd.Flags().StringVar(&listen, "listen", "", "bind address (default from config)")
	cmd.Flags().StringVar(&kind, "transport", "", "tcp or quic (default from config)")
	cmd.Flags().StringVar(&keyFile, "key-file", "", "sealed key file (default: fresh key per run)")
	cmd.Flags().BoolVar(&once, "once", false, "exit after one message")
	return cmd
}

// receiverKey loads the configured key file or generates a fresh key.
func receiverKey() (*mrsa.TriplePrimeKey, error) {
	if cfg.KeyFile == "" {
		logger.Info().Int("bits", cfg.RSABits).Msg("generating ephemeral key")
		return mrsa.GenerateKey(cfg.RSABits)
	}
	if passphrase == "" {
		return nil, fmt.Errorf("passphrase required (-p) to open %s", cfg.KeyFile)
	}
	return keystore.Load(cfg.KeyFile, []byte(passphrase))
}
