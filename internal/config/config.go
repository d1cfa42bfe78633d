package config

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/BurntSushi/toml"

	"github.com/jclement/sshwire/pkg/packet"
	"github.com/jclement/sshwire/pkg/wire"
)

// Upper bound accepted for the codec limits.
const maxLimit = 16 << 20

type Config struct {
	Codec CodecConfig `toml:"codec"`
	Probe ProbeConfig `toml:"probe"`
	Tap   TapConfig   `toml:"tap"`
}

type CodecConfig struct {
	MaxStringLength int  `toml:"max_string_length"`
	MaxPacketLength int  `toml:"max_packet_length"`
	StrictBool      bool `toml:"strict_bool"`
}

type ProbeConfig struct {
	SoftwareVersion   string   `toml:"software_version"`
	Timeout           string   `toml:"timeout"`
	HostKeyAlgorithms []string `toml:"host_key_algorithms,omitempty"`
	KnownHosts        string   `toml:"known_hosts,omitempty"`
}

type TapConfig struct {
	Listen   string `toml:"listen"`
	Upstream string `toml:"upstream"`
}

// WireOptions returns the decoder limits.
func (c CodecConfig) WireOptions() wire.Options {
	return wire.Options{MaxStringLength: c.MaxStringLength, StrictBool: c.StrictBool}
}

// Framer returns the framing parameters for the cleartext phase.
func (c CodecConfig) Framer() packet.Framer {
	return packet.Framer{BlockSize: packet.MinBlockSize, MaxPacketLength: c.MaxPacketLength}
}

func (c *Config) ProbeTimeout() time.Duration {
	d, err := time.ParseDuration(c.Probe.Timeout)
	if err != nil || d <= 0 {
		return 10 * time.Second
	}
	return d
}

// preset holds the values a config file is decoded onto. Limits and the
// software version are left zero so fillMissing can tell they were absent.
func preset() *Config {
	return &Config{
		Probe: ProbeConfig{
			Timeout: "10s",
		},
		Tap: TapConfig{
			Listen:   "127.0.0.1:2222",
			Upstream: "127.0.0.1:22",
		},
	}
}

// fillMissing sets absent limits and version, reporting whether it did.
func (c *Config) fillMissing() bool {
	changed := false
	if c.Codec.MaxStringLength == 0 {
		c.Codec.MaxStringLength = wire.DefaultMaxStringLength
		changed = true
	}
	if c.Codec.MaxPacketLength == 0 {
		c.Codec.MaxPacketLength = packet.DefaultMaxPacketLength
		changed = true
	}
	if c.Probe.SoftwareVersion == "" {
		c.Probe.SoftwareVersion = "sshwire_1.0"
		changed = true
	}
	return changed
}

func defaults() *Config {
	cfg := preset()
	cfg.fillMissing()
	return cfg
}

// Load reads config from the given path. If the file doesn't exist, it creates
// a default config.
func Load(path string) (*Config, error) {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		cfg := defaults()
		slog.Info("no config file found, creating default", "path", path)
		if err := cfg.Save(path); err != nil {
			return nil, fmt.Errorf("saving default config: %w", err)
		}
		return cfg, nil
	}

	cfg := preset()
	if _, err := toml.DecodeFile(path, cfg); err != nil {
		return nil, fmt.Errorf("parsing config %s: %w", path, err)
	}

	changed := cfg.fillMissing()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config %s: %w", path, err)
	}

	if changed {
		if err := cfg.Save(path); err != nil {
			return nil, fmt.Errorf("saving updated config: %w", err)
		}
	}

	return cfg, nil
}

// Validate checks limits and addresses.
func (c *Config) Validate() error {
	if c.Codec.MaxStringLength < 0 || c.Codec.MaxStringLength > maxLimit {
		return fmt.Errorf("codec.max_string_length %d out of range", c.Codec.MaxStringLength)
	}
	if c.Codec.MaxPacketLength < 0 || c.Codec.MaxPacketLength > maxLimit {
		return fmt.Errorf("codec.max_packet_length %d out of range", c.Codec.MaxPacketLength)
	}
	for i := 0; i < len(c.Probe.SoftwareVersion); i++ {
		if ch := c.Probe.SoftwareVersion[i]; ch <= ' ' || ch > '~' || ch == '-' {
			return fmt.Errorf("probe.software_version %q: must be printable ASCII without spaces or '-'", c.Probe.SoftwareVersion)
		}
	}
	if c.Probe.Timeout != "" {
		if _, err := time.ParseDuration(c.Probe.Timeout); err != nil {
			return fmt.Errorf("probe.timeout: %w", err)
		}
	}
	return nil
}

// Save writes the config to disk as self-documenting TOML with comments.
func (c *Config) Save(path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}

	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o644)
	if err != nil {
		return fmt.Errorf("creating config file: %w", err)
	}
	defer f.Close()

	var b strings.Builder

	b.WriteString("# sshwire Configuration\n")
	b.WriteString("# https://github.com/jclement/sshwire\n\n")

	// [codec]
	b.WriteString("[codec]\n")
	b.WriteString("# Longest string field accepted while decoding, in bytes\n")
	fmt.Fprintf(&b, "max_string_length = %d\n\n", c.Codec.MaxStringLength)

	b.WriteString("# Largest packet_length accepted while unframing, in bytes\n")
	fmt.Fprintf(&b, "max_packet_length = %d\n\n", c.Codec.MaxPacketLength)

	b.WriteString("# Reject boolean bytes other than 0 and 1\n")
	if c.Codec.StrictBool {
		b.WriteString("strict_bool = true\n\n")
	} else {
		b.WriteString("# strict_bool = false\n\n")
	}

	// [probe]
	b.WriteString("[probe]\n")
	b.WriteString("# Software version sent in the identification line (SSH-2.0-<this>)\n")
	fmt.Fprintf(&b, "software_version = %q\n\n", c.Probe.SoftwareVersion)

	b.WriteString("# Give up on a server after this long\n")
	fmt.Fprintf(&b, "timeout = %q\n\n", c.Probe.Timeout)

	b.WriteString("# Host key algorithms to offer, most preferred first (optional)\n")
	if len(c.Probe.HostKeyAlgorithms) > 0 {
		fmt.Fprintf(&b, "host_key_algorithms = [%s]\n\n", formatStringSlice(c.Probe.HostKeyAlgorithms))
	} else {
		b.WriteString("# host_key_algorithms = [\"ssh-ed25519\", \"ecdsa-sha2-nistp256\", \"rsa-sha2-512\"]\n\n")
	}

	b.WriteString("# OpenSSH known_hosts file to check host keys against (optional)\n")
	b.WriteString("# Can also be set via: --known-hosts flag\n")
	if c.Probe.KnownHosts != "" {
		fmt.Fprintf(&b, "known_hosts = %q\n\n", c.Probe.KnownHosts)
	} else {
		b.WriteString("# known_hosts = \"~/.ssh/known_hosts\"\n\n")
	}

	// [tap]
	b.WriteString("[tap]\n")
	b.WriteString("# Address the logging relay listens on\n")
	fmt.Fprintf(&b, "listen = %q\n\n", c.Tap.Listen)

	b.WriteString("# SSH server the relay forwards to\n")
	b.WriteString("# Can also be set via: --upstream flag\n")
	fmt.Fprintf(&b, "upstream = %q\n", c.Tap.Upstream)

	_, err = f.WriteString(b.String())
	return err
}

func formatStringSlice(ss []string) string {
	quoted := make([]string, len(ss))
	for i, s := range ss {
		quoted[i] = fmt.Sprintf("%q", s)
	}
	return strings.Join(quoted, ", ")
}

// DefaultPath returns $SSHWIRE_CONFIG, or sshwire.toml in the user config
// directory.
func DefaultPath() string {
	if p := os.Getenv("SSHWIRE_CONFIG"); p != "" {
		return p
	}
	dir, err := os.UserConfigDir()
	if err != nil {
		return "sshwire.toml"
	}
	return filepath.Join(dir, "sshwire", "sshwire.toml")
}
