// Package config loads the YAML configuration shared by the mra commands.
package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/TheusHen/mra/mra/hybrid"
	"github.com/TheusHen/mra/mra/mrsa"
	"github.com/TheusHen/mra/mra/saes"
	"github.com/TheusHen/mra/mra/transfer"
	"github.com/TheusHen/mra/mra/transport"
)

var ErrInvalid = errors.New("config: invalid")

// Config holds receiver and sender settings.
type Config struct {
	// Listen is the receiver bind address.
	Listen string `yaml:"listen"`
	// Addr is the receiver address the sender dials.
	Addr      string `yaml:"addr"`
	Transport string `yaml:"transport"`

	RSABits int    `yaml:"rsa_bits"`
	Variant string `yaml:"variant"`
	Workers int    `yaml:"workers"`

	// KeyFile, if set, holds a sealed receiver key instead of generating
	// one per run.
	KeyFile string `yaml:"key_file"`
	// Pin is a fingerprint prefix the sender requires of the receiver key.
	Pin string `yaml:"pin"`

	MaxConns int           `yaml:"max_conns"`
	Timeout  time.Duration `yaml:"timeout"`

	Log    LogConfig    `yaml:"log"`
	Bundle BundleConfig `yaml:"bundle"`
}

// LogConfig holds logging settings.
type LogConfig struct {
	Level  string `yaml:"level"`
	Pretty bool   `yaml:"pretty"`
}

// BundleConfig holds the optional bundle layer settings.
type BundleConfig struct {
	Enabled      bool   `yaml:"enabled"`
	ChunkSize    int    `yaml:"chunk_size"`
	Compression  string `yaml:"compression"`
	DataShards   int    `yaml:"data_shards"`
	ParityShards int    `yaml:"parity_shards"`
}

// Default returns the built-in configuration.
func Default() *Config {
	bc := transfer.DefaultConfig()
	return &Config{
		Listen:    ":8080",
		Addr:      "127.0.0.1:8080",
		Transport: string(transport.KindTCP),
		RSABits:   1024,
		Variant:   saes.CTR128.String(),
		MaxConns:  16,
		Timeout:   30 * time.Second,
		Log: LogConfig{
			Level: "info",
		},
		Bundle: BundleConfig{
			ChunkSize:    bc.ChunkSize,
			Compression:  bc.Compression.String(),
			DataShards:   bc.DataShards,
			ParityShards: bc.ParityShards,
		},
	}
}

// Load reads path over the defaults. A missing file yields the defaults.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return cfg, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}
	return cfg, nil
}

// Validate checks field ranges and names.
func (c *Config) Validate() error {
	switch transport.Kind(c.Transport) {
	case transport.KindTCP, transport.KindQUIC:
	default:
		return fmt.Errorf("%w: transport %q", ErrInvalid, c.Transport)
	}
	v, err := saes.ParseVariant(c.Variant)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalid, err)
	}
	if c.RSABits < mrsa.MinBits {
		return fmt.Errorf("%w: rsa_bits %d below %d", ErrInvalid, c.RSABits, mrsa.MinBits)
	}
	// The wrapped key must stay below the modulus.
	if c.RSABits <= v.KeySize*8 {
		return fmt.Errorf("%w: rsa_bits %d cannot wrap a %d-byte key", ErrInvalid, c.RSABits, v.KeySize)
	}
	if c.Workers < 0 || c.MaxConns < 0 || c.Timeout < 0 {
		return fmt.Errorf("%w: negative workers, max_conns or timeout", ErrInvalid)
	}
	if c.Bundle.Enabled {
		if _, err := c.BundleConfig(); err != nil {
			return err
		}
	}
	return nil
}

// Scheme returns the symmetric scheme described by c.
func (c *Config) Scheme() (hybrid.Scheme, error) {
	v, err := saes.ParseVariant(c.Variant)
	if err != nil {
		return hybrid.Scheme{}, fmt.Errorf("%w: %v", ErrInvalid, err)
	}
	return hybrid.Scheme{Variant: v, Workers: c.Workers}, nil
}

// BundleConfig converts the bundle section.
func (c *Config) BundleConfig() (transfer.Config, error) {
	level, err := transfer.ParseCompression(c.Bundle.Compression)
	if err != nil {
		return transfer.Config{}, fmt.Errorf("%w: %v", ErrInvalid, err)
	}
	b := c.Bundle
	if b.ChunkSize <= 0 || b.DataShards <= 0 || b.ParityShards < 0 || b.DataShards+b.ParityShards > 255 {
		return transfer.Config{}, fmt.Errorf("%w: bundle layout %d+%d, chunk %d", ErrInvalid, b.DataShards, b.ParityShards, b.ChunkSize)
	}
	return transfer.Config{
		ChunkSize:    b.ChunkSize,
		Compression:  level,
		DataShards:   b.DataShards,
		ParityShards: b.ParityShards,
	}, nil
}
