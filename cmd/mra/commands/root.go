// Package commands implements the mra command line.
package commands

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/TheusHen/mra/mra/config"
)

var (
	cfgPath    string
	logLevel   string
	pretty     bool
	passphrase string

	cfg    *config.Config
	logger zerolog.Logger
)

func Execute() error {
	return newRootCmd().Execute()
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:          "mra",
		Short:        "Hybrid S-AES / M-RSA message transfer",
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			c, err := config.Load(cfgPath)
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("log-level") {
				c.Log.Level = logLevel
			}
			if cmd.Flags().Changed("pretty") {
				c.Log.Pretty = pretty
			}
			l, err := newLogger(c.Log, os.Stderr)
			if err != nil {
				return err
			}
			cfg, logger = c, l
			log.Logger = l
			return nil
		},
	}

	root.PersistentFlags().StringVar(&cfgPath, "config", "mra.yaml", "path to YAML config")
	root.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level (debug, info, warn, error)")
	root.PersistentFlags().BoolVar(&pretty, "pretty", false, "human-readable console logs")
	root.PersistentFlags().StringVarP(&passphrase, "passphrase", "p", "", "passphrase protecting the key file")

	root.AddCommand(keygenCmd(), receiveCmd(), sendCmd(), benchCmd())
	return root
}

func newLogger(lc config.LogConfig, out io.Writer) (zerolog.Logger, error) {
	level := zerolog.InfoLevel
	if lc.Level != "" {
		l, err := zerolog.ParseLevel(lc.Level)
		if err != nil {
			return zerolog.Nop(), fmt.Errorf("%w: log level %q", config.ErrInvalid, lc.Level)
		}
		level = l
	}
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	if lc.Pretty {
		out = zerolog.ConsoleWriter{Out: out}
	}
	return zerolog.New(out).Level(level).With().Timestamp().Logger(), nil
}

// signalContext is cancelled on SIGINT or SIGTERM.
func signalContext(parent context.Context) (context.Context, context.CancelFunc) {
	if parent == nil {
		parent = context.Background()
	}
	return signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
}
