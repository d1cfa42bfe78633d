package main

import (
	"context"
	"encoding/hex"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"net"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/charmbracelet/log"
	"golang.org/x/crypto/ssh/knownhosts"
	"golang.org/x/term"

	"github.com/jclement/sshwire/internal/config"
	"github.com/jclement/sshwire/internal/probe"
	"github.com/jclement/sshwire/internal/tap"
	"github.com/jclement/sshwire/pkg/message"
	"github.com/jclement/sshwire/pkg/packet"
	"github.com/jclement/sshwire/pkg/wire"
)

var Version = "dev"

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	cmd := os.Args[1]
	switch cmd {
	case "decode":
		runDecode(os.Args[2:])
	case "frame":
		runFrame(os.Args[2:])
	case "probe":
		runProbe(os.Args[2:])
	case "tap":
		runTap(os.Args[2:])
	case "version":
		fmt.Printf("sshwire %s\n", Version)
	case "help", "--help", "-h":
		printUsage()
	default:
		fmt.Fprintf(os.Stderr, "unknown command: %s\n\n", cmd)
		printUsage()
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Fprintf(os.Stderr, "sshwire %s - SSH wire protocol toolkit\n\n", Version)
	fmt.Fprintf(os.Stderr, "Usage:\n")
	fmt.Fprintf(os.Stderr, "  sshwire decode [flags] HEX   Decode a message payload or framed packet\n")
	fmt.Fprintf(os.Stderr, "  sshwire frame  [flags] HEX   Frame a message payload as a binary packet\n")
	fmt.Fprintf(os.Stderr, "  sshwire probe  [flags] ADDR  Run a key exchange against an SSH server\n")
	fmt.Fprintf(os.Stderr, "  sshwire tap    [flags]       Relay and log SSH connections\n")
	fmt.Fprintf(os.Stderr, "  sshwire version              Print version\n")
	fmt.Fprintf(os.Stderr, "  sshwire help                 Show this help\n")
	fmt.Fprintf(os.Stderr, "\nHEX may be '-' to read from stdin. Run 'sshwire <command> --help' for command-specific flags.\n")
}

func setupLogging(debug bool) {
	var level slog.Level
	if debug {
		level = slog.LevelDebug
	} else {
		level = slog.LevelInfo
	}

	var handler slog.Handler
	if term.IsTerminal(int(os.Stdout.Fd())) {
		opts := log.Options{
			Level:           log.Level(level),
			ReportTimestamp: true,
		}
		handler = log.NewWithOptions(os.Stdout, opts)
	} else {
		handler = slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: level})
	}
	slog.SetDefault(slog.New(handler))
}

func envOrDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func fatal(format string, args ...any) {
	fmt.Fprintf(os.Stderr, format+"\n", args...)
	os.Exit(1)
}

// parseHex accepts hex with optional whitespace, ':' separators and a 0x
// prefix. "-" reads the hex from r.
func parseHex(arg string, r io.Reader) ([]byte, error) {
	if arg == "-" {
		data, err := io.ReadAll(r)
		if err != nil {
			return nil, err
		}
		arg = string(data)
	}
	arg = strings.TrimPrefix(strings.TrimSpace(arg), "0x")
	clean := strings.Map(func(r rune) rune {
		switch r {
		case ' ', '\t', '\n', '\r', ':':
			return -1
		}
		return r
	}, arg)
	return hex.DecodeString(clean)
}

type decodeOptions struct {
	framed     bool
	blockSize  int
	kex        string
	authMethod string
	strictBool bool
	maxString  int
}

func decodePayload(b []byte, o decodeOptions) (message.Message, error) {
	if o.framed {
		payload, n, err := packet.Unframe(b, o.blockSize)
		if err != nil {
			return nil, err
		}
		if n != len(b) {
			return nil, fmt.Errorf("%d bytes after the packet", len(b)-n)
		}
		b = payload
	}

	d := message.Decoder{
		Options:    wire.Options{MaxStringLength: o.maxString, StrictBool: o.strictBool},
		AuthMethod: o.authMethod,
	}
	switch o.kex {
	case "", "ecdh":
		d.Kex = message.KexECDH
	case "dh":
		d.Kex = message.KexDH
	default:
		return nil, fmt.Errorf("unknown kex layout %q (want ecdh or dh)", o.kex)
	}
	return d.Decode(b)
}

func describe(m message.Message) string {
	return fmt.Sprintf("%s (%d)\n%+v", message.NameOf(m), m.Tag(), m)
}

func runDecode(args []string) {
	fs := flag.NewFlagSet("decode", flag.ExitOnError)
	var o decodeOptions
	fs.BoolVar(&o.framed, "framed", false, "input is a framed packet (packet_length first)")
	fs.IntVar(&o.blockSize, "block-size", packet.MinBlockSize, "cipher block size for --framed")
	fs.StringVar(&o.kex, "kex", "ecdh", "layout for message numbers 30/31: ecdh or dh")
	fs.StringVar(&o.authMethod, "auth-method", "", "outstanding userauth method, for message number 60")
	fs.BoolVar(&o.strictBool, "strict-bool", false, "reject boolean bytes other than 0 and 1")
	fs.IntVar(&o.maxString, "max-string", wire.DefaultMaxStringLength, "longest string field accepted")
	fs.Parse(args)

	if fs.NArg() != 1 {
		fatal("Usage: sshwire decode [flags] HEX")
	}
	b, err := parseHex(fs.Arg(0), os.Stdin)
	if err != nil {
		fatal("invalid hex: %v", err)
	}
	m, err := decodePayload(b, o)
	if err != nil {
		fatal("decode: %v", err)
	}
	fmt.Println(describe(m))
}

func frameHex(b []byte, blockSize int, zeroPadding bool) (string, error) {
	var rnd io.Reader
	if zeroPadding {
		rnd = zeroReader{}
	}
	raw, err := packet.Frame(b, blockSize, rnd)
	if err != nil {
		return "", err
	}
	return hex.EncodeToString(raw), nil
}

type zeroReader struct{}

func (zeroReader) Read(p []byte) (int, error) {
	clear(p)
	return len(p), nil
}

func runFrame(args []string) {
	fs := flag.NewFlagSet("frame", flag.ExitOnError)
	blockSize := fs.Int("block-size", packet.MinBlockSize, "cipher block size")
	zero := fs.Bool("zero-padding", false, "pad with zero bytes instead of random ones")
	fs.Parse(args)

	if fs.NArg() != 1 {
		fatal("Usage: sshwire frame [flags] HEX")
	}
	b, err := parseHex(fs.Arg(0), os.Stdin)
	if err != nil {
		fatal("invalid hex: %v", err)
	}
	out, err := frameHex(b, *blockSize, *zero)
	if err != nil {
		fatal("frame: %v", err)
	}
	fmt.Println(out)
}

func loadConfig(path string) *config.Config {
	cfg, err := config.Load(path)
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}
	return cfg
}

func runProbe(args []string) {
	fs := flag.NewFlagSet("probe", flag.ExitOnError)
	configPath := fs.String("config", config.DefaultPath(), "path to config file (env SSHWIRE_CONFIG)")
	knownHosts := fs.String("known-hosts", envOrDefault("SSHWIRE_KNOWN_HOSTS", ""), "known_hosts file to check the host key against")
	hostKeyAlgos := fs.String("host-key-algos", "", "comma-separated host key algorithms to offer")
	debug := fs.Bool("debug", Version == "dev", "enable debug logging")
	fs.Parse(args)

	setupLogging(*debug)

	if fs.NArg() != 1 {
		fatal("Usage: sshwire probe [flags] HOST[:PORT]")
	}
	addr := fs.Arg(0)
	if _, _, err := net.SplitHostPort(addr); err != nil {
		addr = net.JoinHostPort(addr, "22")
	}

	cfg := loadConfig(*configPath)
	pc := probe.Config{
		SoftwareVersion:   cfg.Probe.SoftwareVersion,
		HostKeyAlgorithms: cfg.Probe.HostKeyAlgorithms,
		Timeout:           cfg.ProbeTimeout(),
		Options:           cfg.Codec.WireOptions(),
		MaxPacketLength:   cfg.Codec.MaxPacketLength,
	}
	if *hostKeyAlgos != "" {
		pc.HostKeyAlgorithms = strings.Split(*hostKeyAlgos, ",")
	}
	path := *knownHosts
	if path == "" {
		path = cfg.Probe.KnownHosts
	}
	if path != "" {
		cb, err := knownhosts.New(expandHome(path))
		if err != nil {
			fatal("known hosts: %v", err)
		}
		pc.HostKeyCallback = cb
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
	defer stop()

	res, err := probe.Probe(ctx, addr, pc)
	if err != nil {
		var keyErr *knownhosts.KeyError
		if errors.As(err, &keyErr) && len(keyErr.Want) == 0 {
			fatal("probe %s: host not in known_hosts", addr)
		}
		fatal("probe %s: %v", addr, err)
	}
	printResult(os.Stdout, addr, res)
}

func expandHome(path string) string {
	if rest, ok := strings.CutPrefix(path, "~/"); ok {
		if home, err := os.UserHomeDir(); err == nil {
			return home + "/" + rest
		}
	}
	return path
}

func printResult(w io.Writer, addr string, res *probe.Result) {
	a := res.Algorithms
	fmt.Fprintf(w, "server:       %s (%s)\n", addr, res.Server)
	fmt.Fprintf(w, "kex:          %s\n", a.Kex)
	fmt.Fprintf(w, "host key:     %s %s\n", a.HostKey, res.Fingerprint)
	fmt.Fprintf(w, "cipher:       %s / %s\n", a.CipherClientServer, a.CipherServerClient)
	if a.MACClientServer != "" || a.MACServerClient != "" {
		fmt.Fprintf(w, "mac:          %s / %s\n", a.MACClientServer, a.MACServerClient)
	}
	fmt.Fprintf(w, "compression:  %s / %s\n", a.CompressionClientServer, a.CompressionServerClient)
	fmt.Fprintf(w, "hassh-server: %s\n", res.HASSHServer.Hash)
	fmt.Fprintf(w, "              %s\n", res.HASSHServer.Algorithms)
	fmt.Fprintf(w, "known_hosts:  %s\n", knownhosts.Line([]string{addr}, res.HostKey))
}

func runTap(args []string) {
	fs := flag.NewFlagSet("tap", flag.ExitOnError)
	configPath := fs.String("config", config.DefaultPath(), "path to config file (env SSHWIRE_CONFIG)")
	listen := fs.String("listen", "", "listen address (overrides config)")
	upstream := fs.String("upstream", envOrDefault("SSHWIRE_UPSTREAM", ""), "upstream SSH server (overrides config)")
	debug := fs.Bool("debug", Version == "dev", "enable debug logging")
	fs.Parse(args)

	setupLogging(*debug)
	slog.Info("sshwire tap starting", "version", Version)

	cfg := loadConfig(*configPath)
	if *listen != "" {
		cfg.Tap.Listen = *listen
	}
	if *upstream != "" {
		cfg.Tap.Upstream = *upstream
	}

	ln, err := net.Listen("tcp", cfg.Tap.Listen)
	if err != nil {
		slog.Error("listen failed", "addr", cfg.Tap.Listen, "error", err)
		os.Exit(1)
	}

	t := tap.New(cfg.Tap.Upstream, cfg.Codec)

	watcher := config.NewWatcher(*configPath)
	go watcher.Start()
	defer watcher.Stop()
	go func() {
		for newCfg := range watcher.OnChange() {
			// Flags win over the file.
			if *upstream != "" {
				newCfg.Tap.Upstream = *upstream
			}
			t.Reload(newCfg)
		}
	}()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
	defer stop()

	if err := t.Serve(ctx, ln); err != nil {
		slog.Error("tap error", "error", err)
		os.Exit(1)
	}

	m := t.Metrics.Snapshot()
	slog.Info("shutting down",
		"connections", m.Connections,
		"packets_decoded", m.PacketsDecoded,
		"decode_errors", m.DecodeErrors,
		"bytes_in", m.BytesIn,
		"bytes_out", m.BytesOut,
	)
}
