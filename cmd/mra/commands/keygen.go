package commands

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/TheusHen/mra/mra/keystore"
	"github.com/TheusHen/mra/mra/mrsa"
)

func keygenCmd() *cobra.Command {
	var (
		bits int
		out  string
	)
	cmd := &cobra.Command{
		Use:   "keygen",
		Short: "Generate a receiver key and store it encrypted",
		RunE: func(cmd *cobra.Command, args []string) error {
			if cmd.Flags().Changed("bits") {
				cfg.RSABits = bits
			}
			if out == "" {
				out = cfg.KeyFile
			}
			if out == "" {
				return fmt.Errorf("no key file given. use --out or key_file")
			}
			if passphrase == "" {
				return fmt.Errorf("passphrase required (-p)")
			}

			start := time.Now()
			key, err := mrsa.GenerateKey(cfg.RSABits)
			if err != nil {
				return err
			}
			logger.Debug().Int("bits", key.Bits()).Dur("elapsed", time.Since(start)).Msg("key generated")

			if err := keystore.Save(out, key, []byte(passphrase), keystore.DefaultParams()); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Key written to %s\nFingerprint: %s\n", out, key.Public().Fingerprint())
			return nil
		},
	}
	cmd.Flags().IntVar(&bits, "bits", 0, "modulus size in bits (default from config)")
	cmd.Flags().StringVar(&out, "out", "", "key file path (default key_file from config)")
	return cmd
}
