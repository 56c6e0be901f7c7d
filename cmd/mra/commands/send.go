package commands

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/TheusHen/mra/mra"
	"github.com/TheusHen/mra/mra/transport"
)

// send <addr> <message>: seal a message to the receiver at <addr>.
func sendCmd() *cobra.Command {
	var (
		kind string
		file string
		pin  string
	)
	cmd := &cobra.Command{
		Use:   "send <addr> [message]",
		Short: "Encrypt and send a message to a receiver",
		Args:  cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg.Addr = args[0]
			if cmd.Flags().Changed("transport") {
				cfg.Transport = kind
			}
			if cmd.Flags().Changed("pin") {
				cfg.Pin = pin
			}
			if err := cfg.Validate(); err != nil {
				return err
			}

			var msg []byte
			switch {
			case file != "" && len(args) == 2:
				return fmt.Errorf("give a message or --file, not both")
			case file != "":
				b, err := os.ReadFile(file)
				if err != nil {
					return err
				}
				msg = b
			case len(args) == 2:
				msg = []byte(args[1])
			default:
				return fmt.Errorf("nothing to send. give a message or --file")
			}

			scheme, err := cfg.Scheme()
			if err != nil {
				return err
			}
			dial, err := mra.DialerFor(transport.Kind(cfg.Transport))
			if err != nil {
				return err
			}
			s := mra.NewSender(scheme, dial)
			s.Pin = cfg.Pin
			s.Timeout = cfg.Timeout
			s.Logger = logger
			if cfg.Bundle.Enabled {
				bc, err := cfg.BundleConfig()
				if err != nil {
					return err
				}
				s.Bundle = &bc
			}

			ctx, stop := signalContext(cmd.Context())
			defer stop()

			rcpt, err := s.Send(ctx, cfg.Addr, msg)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "sent %d bytes to %s (%s) in %s\n",
				rcpt.WireBytes, cfg.Addr, rcpt.Fingerprint.Short(), rcpt.Elapsed)
			return nil
		},
	}
	cmd.Flags().StringVar(&kind, "transport", "", "tcp or quic (default from config)")
	cmd.Flags().StringVar(&file, "file", "", "send the contents of a file")
	cmd.Flags().StringVar(&pin, "pin", "", "required receiver fingerprint prefix")
	return cmd
}
