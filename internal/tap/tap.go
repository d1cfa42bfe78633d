// Package tap relays TCP connections to an SSH server and logs the
// cleartext phase of each direction: the identification line and every
// packet up to and including NEWKEYS.
package tap

import (
	"bufio"
	"context"
	"errors"
	"io"
	"log/slog"
	"net"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/jclement/sshwire/internal/config"
	"github.com/jclement/sshwire/internal/hassh"
	"github.com/jclement/sshwire/pkg/message"
	"github.com/jclement/sshwire/pkg/stream"
)

type settings struct {
	upstream string
	codec    config.CodecConfig
}

// Tap is a logging relay.
type Tap struct {
	Metrics Metrics
	Logger  *slog.Logger

	settings atomic.Pointer[settings]
	dialer   net.Dialer
}

// New returns a Tap forwarding to upstream.
func New(upstream string, codec config.CodecConfig) *Tap {
	t := &Tap{Logger: slog.Default()}
	t.settings.Store(&settings{upstream: upstream, codec: codec})
	return t
}

// Reload applies cfg to connections accepted from now on.
func (t *Tap) Reload(cfg *config.Config) {
	t.settings.Store(&settings{upstream: cfg.Tap.Upstream, codec: cfg.Codec})
	t.Logger.Info("tap settings reloaded", "upstream", cfg.Tap.Upstream, "max_packet_length", cfg.Codec.MaxPacketLength)
}

// Serve accepts connections on ln until ctx is done or ln fails.
func (t *Tap) Serve(ctx context.Context, ln net.Listener) error {
	stop := context.AfterFunc(ctx, func() { ln.Close() })
	defer stop()

	t.Logger.Info("tap listening", "addr", ln.Addr(), "upstream", t.settings.Load().upstream)

	var wg sync.WaitGroup
	defer wg.Wait()
	for {
		conn, err := ln.Accept()
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return err
		}
		wg.Add(1)
		go func() {
			defer wg.Done()
			t.handle(ctx, conn)
		}()
	}
}

func (t *Tap) handle(ctx context.Context, client net.Conn) {
	defer client.Close()

	s := t.settings.Load()
	log := t.Logger.With("session", uuid.NewString(), "remote", client.RemoteAddr().String())

	upstream, err := t.dialer.DialContext(ctx, "tcp", s.upstream)
	if err != nil {
		log.Error("upstream dial failed", "upstream", s.upstream, "error", err)
		return
	}
	defer upstream.Close()

	t.Metrics.Connections.Add(1)
	t.Metrics.ActiveConns.Add(1)
	defer t.Metrics.ActiveConns.Add(-1)
	log.Info("session opened", "upstream", s.upstream)

	hs := &handshake{}
	g, gctx := errgroup.WithContext(ctx)
	stop := context.AfterFunc(gctx, func() {
		client.Close()
		upstream.Close()
	})
	defer stop()

	g.Go(func() error {
		return t.relay(upstream, client, &t.Metrics.BytesIn, clientToServer, hs, s.codec, log)
	})
	g.Go(func() error {
		return t.relay(client, upstream, &t.Metrics.BytesOut, serverToClient, hs, s.codec, log)
	})
	if err := g.Wait(); err != nil {
		log.Debug("session ended with error", "error", err)
	}

	m := t.Metrics.Snapshot()
	log.Info("session closed", "packets_decoded_total", m.PacketsDecoded, "decode_errors_total", m.DecodeErrors)
}

// relay copies src to dst while a second goroutine decodes the same bytes.
func (t *Tap) relay(dst, src net.Conn, counter *atomic.Int64, dir direction, hs *handshake, codec config.CodecConfig, log *slog.Logger) error {
	pr, pw := io.Pipe()
	decoded := make(chan struct{})
	go func() {
		defer close(decoded)
		t.observe(pr, dir, hs, codec, log.With("dir", dir.String()))
		// Keep draining so the relay never blocks on the observer.
		_, _ = io.Copy(io.Discard, pr)
	}()

	n, err := io.Copy(dst, io.TeeReader(src, pw))
	counter.Add(n)
	pw.Close()
	<-decoded

	if cw, ok := dst.(interface{ CloseWrite() error }); ok {
		_ = cw.CloseWrite()
	}
	if err != nil && !errors.Is(err, net.ErrClosed) {
		return err
	}
	return nil
}

type direction int

const (
	clientToServer direction = iota
	serverToClient
)

func (d direction) String() string {
	if d == clientToServer {
		return "client->server"
	}
	return "server->client"
}

// handshake shares the two KEXINITs between directions so that key
// exchange replies decode with the negotiated layout.
type handshake struct {
	mu     sync.Mutex
	client *message.KexInit
	server *message.KexInit
}

func (h *handshake) set(dir direction, k *message.KexInit) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if dir == clientToServer {
		h.client = k
	} else {
		h.server = k
	}
}

// kex returns the negotiated key exchange layout, ECDH until both offers
// are known.
func (h *handshake) kex() message.KexMethod {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.client == nil || h.server == nil {
		return message.KexECDH
	}
	for _, c := range h.client.KexAlgos {
		for _, s := range h.server.KexAlgos {
			if c == s {
				if strings.HasPrefix(c, "diffie-hellman-") {
					return message.KexDH
				}
				return message.KexECDH
			}
		}
	}
	return message.KexECDH
}

func (t *Tap) observe(r io.Reader, dir direction, hs *handshake, codec config.CodecConfig, log *slog.Logger) {
	br := bufio.NewReader(r)
	id, err := stream.ReadIdentification(br)
	if err != nil {
		t.decodeFailed(log, "identification", err)
		return
	}
	log.Info("identification", "version", id.String())

	pr := stream.NewReader(br, codec.Framer())
	dec := message.Decoder{Options: codec.WireOptions()}
	for {
		p, err := pr.ReadPacket()
		if err != nil {
			t.decodeFailed(log, "packet", err)
			return
		}
		dec.Kex = hs.kex()
		m, err := dec.Decode(p.Payload)
		if err != nil {
			t.decodeFailed(log, "message", err)
			return
		}
		t.Metrics.PacketsDecoded.Add(1)

		switch m := m.(type) {
		case *message.KexInit:
			hs.set(dir, m)
			fp := hassh.Server(m)
			key := "hassh_server"
			if dir == clientToServer {
				fp, key = hassh.Client(m), "hassh"
			}
			log.Info(message.NameOf(m), "kex", strings.Join(m.KexAlgos, ","), key, fp.Hash, key+"_algorithms", fp.Algorithms)
		case *message.Disconnect:
			log.Info(message.NameOf(m), "reason", m.Reason.String(), "description", m.Description)
			return
		case *message.Unrecognized:
			log.Info(message.NameOf(m), "type", m.Type, "bytes", len(m.Data))
		case *message.NewKeys:
			log.Info(message.NameOf(m), "note", "encrypted from here")
			return
		default:
			log.Info(message.NameOf(m), "bytes", len(p.Payload))
		}
	}
}

func (t *Tap) decodeFailed(log *slog.Logger, what string, err error) {
	if errors.Is(err, stream.ErrConnectionClosed) {
		log.Debug("stream closed", "while", what)
		return
	}
	t.Metrics.DecodeErrors.Add(1)
	log.Warn("decode failed, relaying raw", "while", what, "error", err)
}
