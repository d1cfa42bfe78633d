package tap

import (
	"bytes"
	"context"
	"crypto/ed25519"
	"crypto/rand"
	"io"
	"log/slog"
	"net"
	"sync"
	"testing"
	"time"

	"github.com/gliderlabs/ssh"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	gossh "golang.org/x/crypto/ssh"

	"github.com/jclement/sshwire/internal/config"
	"github.com/jclement/sshwire/internal/probe"
	"github.com/jclement/sshwire/pkg/message"
	"github.com/jclement/sshwire/pkg/packet"
	"github.com/jclement/sshwire/pkg/wire"
)

type syncBuffer struct {
	mu sync.Mutex
	b  bytes.Buffer
}

func (s *syncBuffer) Write(p []byte) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.b.Write(p)
}

func (s *syncBuffer) String() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.b.String()
}

var codec = config.CodecConfig{
	MaxStringLength: wire.DefaultMaxStringLength,
	MaxPacketLength: packet.DefaultMaxPacketLength,
}

func startSSHServer(t *testing.T) string {
	t.Helper()
	_, priv, err := ed25519.GenerateKey(rand.Reader)
	require.NoError(t, err)
	signer, err := gossh.NewSignerFromKey(priv)
	require.NoError(t, err)

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	srv := &ssh.Server{
		Handler: func(s ssh.Session) {
			io.WriteString(s, "hello "+s.RawCommand())
			s.Exit(0)
		},
	}
	srv.AddHostKey(signer)
	go srv.Serve(ln)
	t.Cleanup(func() { srv.Close() })
	return ln.Addr().String()
}

func startTap(t *testing.T, upstream string) (*Tap, string, *syncBuffer) {
	t.Helper()
	logs := &syncBuffer{}
	tp := New(upstream, codec)
	tp.Logger = slog.New(slog.NewTextHandler(logs, &slog.HandlerOptions{Level: slog.LevelDebug}))

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- tp.Serve(ctx, ln) }()
	t.Cleanup(func() {
		cancel()
		<-done
	})
	return tp, ln.Addr().String(), logs
}

func TestTap_FullSession(t *testing.T) {
	tp, addr, logs := startTap(t, startSSHServer(t))

	client, err := gossh.Dial("tcp", addr, &gossh.ClientConfig{
		User:            "alice",
		HostKeyCallback: gossh.InsecureIgnoreHostKey(),
		Timeout:         5 * time.Second,
	})
	require.NoError(t, err)
	sess, err := client.NewSession()
	require.NoError(t, err)
	out, err := sess.Output("uptime")
	require.NoError(t, err)
	assert.Equal(t, "hello uptime", string(out))
	client.Close()

	require.Eventually(t, func() bool {
		return tp.Metrics.ActiveConns.Load() == 0 && tp.Metrics.Connections.Load() == 1
	}, 5*time.Second, 10*time.Millisecond)

	m := tp.Metrics.Snapshot()
	// KEXINIT, KEX_ECDH_INIT/REPLY and NEWKEYS at least.
	assert.GreaterOrEqual(t, m.PacketsDecoded, int64(5))
	assert.Zero(t, m.DecodeErrors)
	assert.Positive(t, m.BytesIn)
	assert.Positive(t, m.BytesOut)

	out2 := logs.String()
	assert.Contains(t, out2, "SSH_MSG_KEXINIT")
	assert.Contains(t, out2, "hassh=")
	assert.Contains(t, out2, "hassh_server=")
	assert.Contains(t, out2, "SSH_MSG_KEX_ECDH_INIT")
	assert.Contains(t, out2, "SSH_MSG_KEX_ECDH_REPLY")
	assert.Contains(t, out2, "SSH_MSG_NEWKEYS")
	assert.Contains(t, out2, "session=")
}

func TestTap_Probe(t *testing.T) {
	tp, addr, logs := startTap(t, startSSHServer(t))

	res, err := probe.Probe(context.Background(), addr, probe.Config{Timeout: 5 * time.Second})
	require.NoError(t, err)
	assert.Equal(t, "curve25519-sha256", res.Algorithms.Kex)

	require.Eventually(t, func() bool { return tp.Metrics.ActiveConns.Load() == 0 }, 5*time.Second, 10*time.Millisecond)
	assert.Contains(t, logs.String(), "version=SSH-2.0-sshwire_1.0")
}

func TestTap_DecodeErrorKeepsRelaying(t *testing.T) {
	// An upstream that echoes everything back.
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	t.Cleanup(func() { ln.Close() })
	go func() {
		for {
			c, err := ln.Accept()
			if err != nil {
				return
			}
			go func() {
				defer c.Close()
				io.Copy(c, c)
			}()
		}
	}()

	tp, addr, logs := startTap(t, ln.Addr().String())

	c, err := net.Dial("tcp", addr)
	require.NoError(t, err)
	defer c.Close()

	junk := []byte("SSH-2.0-fuzzer\r\n\xff\xff\xff\xff trailing bytes")
	_, err = c.Write(junk)
	require.NoError(t, err)

	got := make([]byte, len(junk))
	c.SetReadDeadline(time.Now().Add(5 * time.Second))
	_, err = io.ReadFull(c, got)
	require.NoError(t, err)
	assert.Equal(t, junk, got)

	require.Eventually(t, func() bool { return tp.Metrics.DecodeErrors.Load() == 2 }, 5*time.Second, 10*time.Millisecond)
	assert.Contains(t, logs.String(), "decode failed")
}

func TestTap_Reload(t *testing.T) {
	tp := New("127.0.0.1:1", codec)
	tp.Logger = slog.New(slog.NewTextHandler(io.Discard, nil))

	cfg := &config.Config{Codec: config.CodecConfig{MaxStringLength: 1024, MaxPacketLength: 2048}}
	cfg.Tap.Upstream = "127.0.0.1:2"
	tp.Reload(cfg)

	s := tp.settings.Load()
	assert.Equal(t, "127.0.0.1:2", s.upstream)
	assert.Equal(t, 2048, s.codec.Framer().MaxPacketLength)
}

func TestHandshake_Kex(t *testing.T) {
	var hs handshake
	assert.Equal(t, message.KexECDH, hs.kex())

	hs.set(clientToServer, &message.KexInit{KexAlgos: []string{"diffie-hellman-group14-sha256", "curve25519-sha256"}})
	assert.Equal(t, message.KexECDH, hs.kex(), "server offer still unknown")

	hs.set(serverToClient, &message.KexInit{KexAlgos: []string{"curve25519-sha256", "diffie-hellman-group14-sha256"}})
	assert.Equal(t, message.KexDH, hs.kex())

	hs.set(serverToClient, &message.KexInit{KexAlgos: []string{"curve25519-sha256"}})
	assert.Equal(t, message.KexECDH, hs.kex())
}
