package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/jclement/sshwire/pkg/packet"
	"github.com/jclement/sshwire/pkg/wire"
)

func TestLoad_CreatesDefaultConfig(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "sshwire.toml")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if cfg.Codec.MaxStringLength != wire.DefaultMaxStringLength {
		t.Fatalf("unexpected max string length: %d", cfg.Codec.MaxStringLength)
	}
	if cfg.Codec.MaxPacketLength != packet.DefaultMaxPacketLength {
		t.Fatalf("unexpected max packet length: %d", cfg.Codec.MaxPacketLength)
	}
	if cfg.Tap.Upstream != "127.0.0.1:22" {
		t.Fatalf("unexpected upstream: %s", cfg.Tap.Upstream)
	}

	// File should exist on disk
	if _, err := os.Stat(path); os.IsNotExist(err) {
		t.Fatal("config file should be created")
	}
}

func TestLoad_ReloadsExisting(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "sshwire.toml")

	// Create first
	cfg1, _ := Load(path)

	// Reload
	cfg2, err := Load(path)
	if err != nil {
		t.Fatalf("reload: %v", err)
	}

	if cfg1.Codec != cfg2.Codec || cfg1.Tap != cfg2.Tap {
		t.Fatalf("config changed across reload: %+v vs %+v", cfg1, cfg2)
	}
	if cfg1.Probe.SoftwareVersion != cfg2.Probe.SoftwareVersion {
		t.Fatal("software version should persist")
	}
}

func TestLoad_ParsesSections(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "sshwire.toml")

	content := `
[codec]
max_string_length = 4096
max_packet_length = 35000
strict_bool = true

[probe]
software_version = "scanner_2"
timeout = "3s"
host_key_algorithms = ["ssh-ed25519", "rsa-sha2-256"]

[tap]
listen = "0.0.0.0:2022"
upstream = "bastion.internal:22"
`
	os.WriteFile(path, []byte(content), 0o644)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	opts := cfg.Codec.WireOptions()
	if opts.MaxStringLength != 4096 || !opts.StrictBool {
		t.Fatalf("wire options: %+v", opts)
	}
	if f := cfg.Codec.Framer(); f.MaxPacketLength != 35000 || f.BlockSize != packet.MinBlockSize {
		t.Fatalf("framer: %+v", f)
	}
	if cfg.ProbeTimeout() != 3*time.Second {
		t.Fatalf("probe timeout: %v", cfg.ProbeTimeout())
	}
	if len(cfg.Probe.HostKeyAlgorithms) != 2 || cfg.Probe.HostKeyAlgorithms[1] != "rsa-sha2-256" {
		t.Fatalf("host key algorithms: %v", cfg.Probe.HostKeyAlgorithms)
	}
	if cfg.Tap.Upstream != "bastion.internal:22" {
		t.Fatalf("upstream: %s", cfg.Tap.Upstream)
	}
}

func TestLoad_FillsMissingLimits(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "sshwire.toml")

	content := `
[codec]
strict_bool = true
`
	os.WriteFile(path, []byte(content), 0o644)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Codec.MaxStringLength != wire.DefaultMaxStringLength {
		t.Fatalf("should have filled max string length, got %d", cfg.Codec.MaxStringLength)
	}

	// The filled value is written back.
	data, _ := os.ReadFile(path)
	if !strings.Contains(string(data), "max_packet_length = 262144") {
		t.Fatalf("saved config missing limit:\n%s", data)
	}
	if !strings.Contains(string(data), "strict_bool = true") {
		t.Fatalf("saved config lost strict_bool:\n%s", data)
	}
	if !strings.Contains(string(data), `software_version = "sshwire_1.0"`) {
		t.Fatalf("saved config missing software version:\n%s", data)
	}
}

func TestLoad_CompleteFileNotRewritten(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "sshwire.toml")

	content := `[codec]
max_string_length = 4096
max_packet_length = 35000

[probe]
software_version = "scanner_2"
`
	os.WriteFile(path, []byte(content), 0o644)

	if _, err := Load(path); err != nil {
		t.Fatalf("Load: %v", err)
	}
	data, _ := os.ReadFile(path)
	if string(data) != content {
		t.Fatalf("complete config was rewritten:\n%s", data)
	}
}

func TestLoad_RejectsInvalid(t *testing.T) {
	tests := map[string]string{
		"negative limit": "[codec]\nmax_string_length = -1\n",
		"huge limit":     "[codec]\nmax_packet_length = 999999999\n",
		"bad version":    "[probe]\nsoftware_version = \"has space\"\n",
		"bad timeout":    "[probe]\ntimeout = \"soon\"\n",
		"bad toml":       "[codec\n",
	}
	for name, content := range tests {
		t.Run(name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "sshwire.toml")
			os.WriteFile(path, []byte(content), 0o644)
			if _, err := Load(path); err == nil {
				t.Fatal("expected error")
			}
		})
	}
}

func TestProbeTimeout(t *testing.T) {
	cfg := &Config{Probe: ProbeConfig{Timeout: "250ms"}}
	if d := cfg.ProbeTimeout(); d != 250*time.Millisecond {
		t.Fatalf("expected 250ms, got %v", d)
	}

	// Invalid duration should default to 10s
	cfg.Probe.Timeout = "invalid"
	if d := cfg.ProbeTimeout(); d != 10*time.Second {
		t.Fatalf("expected 10s default, got %v", d)
	}
}

func TestDefaultPath_Env(t *testing.T) {
	t.Setenv("SSHWIRE_CONFIG", "/etc/sshwire/custom.toml")
	if p := DefaultPath(); p != "/etc/sshwire/custom.toml" {
		t.Fatalf("DefaultPath: %s", p)
	}
}

func TestWatcher_Reload(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "sshwire.toml")
	if _, err := Load(path); err != nil {
		t.Fatalf("Load: %v", err)
	}

	w := NewWatcher(path)
	w.debounce = 50 * time.Millisecond
	go w.Start()
	defer w.Stop()

	// Give the watcher time to register.
	time.Sleep(100 * time.Millisecond)

	os.WriteFile(path, []byte("[codec]\nmax_string_length = 1024\n"), 0o644)

	select {
	case cfg := <-w.OnChange():
		if cfg.Codec.MaxStringLength != 1024 {
			t.Fatalf("reloaded max string length: %d", cfg.Codec.MaxStringLength)
		}
	case err := <-w.OnError():
		t.Fatalf("reload error: %v", err)
	case <-time.After(5 * time.Second):
		t.Fatal("no reload within 5s")
	}
}

func TestWatcher_ReportsErrors(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "sshwire.toml")
	if _, err := Load(path); err != nil {
		t.Fatalf("Load: %v", err)
	}

	w := NewWatcher(path)
	w.debounce = 50 * time.Millisecond
	go w.Start()
	defer w.Stop()
	time.Sleep(100 * time.Millisecond)

	os.WriteFile(path, []byte("[codec\n"), 0o644)

	select {
	case <-w.OnError():
	case cfg := <-w.OnChange():
		t.Fatalf("unexpected reload: %+v", cfg)
	case <-time.After(5 * time.Second):
		t.Fatal("no error within 5s")
	}
}
