// Package probe runs the cleartext half of an SSH key exchange against a
// server: it negotiates algorithms, performs curve25519-sha256, verifies
// the host key signature over the exchange hash and then disconnects.
package probe

import (
	"bufio"
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math/big"
	"net"
	"time"

	"golang.org/x/crypto/curve25519"
	gossh "golang.org/x/crypto/ssh"

	"github.com/jclement/sshwire/internal/cryptobackend"
	"github.com/jclement/sshwire/internal/hassh"
	"github.com/jclement/sshwire/pkg/message"
	"github.com/jclement/sshwire/pkg/packet"
	"github.com/jclement/sshwire/pkg/stream"
	"github.com/jclement/sshwire/pkg/wire"
)

var (
	// ErrHostKeySignature reports a KEX_ECDH_REPLY whose signature does not
	// verify against its host key.
	ErrHostKeySignature = errors.New("probe: host key signature does not verify")

	// ErrUnexpectedMessage reports a message out of key exchange order.
	ErrUnexpectedMessage = errors.New("probe: unexpected message")
)

// DisconnectError is returned when the server disconnects during the probe.
type DisconnectError struct {
	Reason      message.DisconnectReason
	Description string
}

func (e *DisconnectError) Error() string {
	return fmt.Sprintf("probe: server disconnected (%s): %s", e.Reason, e.Description)
}

// DefaultHostKeyAlgorithms is offered when Config.HostKeyAlgorithms is empty.
var DefaultHostKeyAlgorithms = []string{
	gossh.KeyAlgoED25519,
	gossh.KeyAlgoECDSA256,
	gossh.KeyAlgoECDSA384,
	gossh.KeyAlgoECDSA521,
	gossh.KeyAlgoRSASHA512,
	gossh.KeyAlgoRSASHA256,
}

var (
	kexAlgorithms = []string{"curve25519-sha256", "curve25519-sha256@libssh.org"}
	ciphers       = []string{
		"chacha20-poly1305@openssh.com",
		"aes128-gcm@openssh.com", "aes256-gcm@openssh.com",
		"aes128-ctr", "aes192-ctr", "aes256-ctr",
	}
	macs = []string{
		"hmac-sha2-256-etm@openssh.com", "hmac-sha2-512-etm@openssh.com",
		"hmac-sha2-256", "hmac-sha2-512", "hmac-sha1",
	}
	compression = []string{"none"}
)

// Config controls a probe.
type Config struct {
	SoftwareVersion   string
	HostKeyAlgorithms []string
	Timeout           time.Duration
	Options           wire.Options
	MaxPacketLength   int

	// HostKeyCallback, if set, is consulted once the host key signature
	// has verified. Returning an error fails the probe.
	HostKeyCallback gossh.HostKeyCallback

	// Rand supplies the cookie, padding and ephemeral key. Nil means
	// crypto/rand.
	Rand io.Reader
}

// Result describes a server as seen through its key exchange.
type Result struct {
	Server        *message.Identification
	ServerKexInit *message.KexInit
	Algorithms    Algorithms
	HostKey       gossh.PublicKey
	Fingerprint   string
	HASSHServer   hassh.Fingerprint
	SessionID     []byte
}

// Probe dials addr and runs the key exchange.
func Probe(ctx context.Context, addr string, cfg Config) (*Result, error) {
	if cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, cfg.Timeout)
		defer cancel()
	}

	var d net.Dialer
	conn, err := d.DialContext(ctx, "tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("dial %s: %w", addr, err)
	}
	defer conn.Close()

	return Run(ctx, conn, cfg)
}

// bufferedConn reads through the bufio.Reader that consumed the
// identification line, so no packet bytes are lost.
type bufferedConn struct {
	net.Conn
	r *bufio.Reader
}

func (c bufferedConn) Read(p []byte) (int, error) { return c.r.Read(p) }

// Run probes over an established connection. The caller closes conn.
func Run(ctx context.Context, conn net.Conn, cfg Config) (*Result, error) {
	rnd := cfg.Rand
	if rnd == nil {
		rnd = rand.Reader
	}
	version := cfg.SoftwareVersion
	if version == "" {
		version = "sshwire_1.0"
	}
	remote := conn.RemoteAddr().String()
	log := slog.With("remote", remote)

	ours := &message.Identification{ProtoVersion: "2.0", SoftwareVersion: version}
	br := bufio.NewReader(conn)
	theirs, err := exchangeIdentification(ctx, conn, br, ours)
	if err != nil {
		return nil, err
	}
	log.Debug("server identification", "version", theirs.String())

	framer := packet.Framer{BlockSize: packet.MinBlockSize, MaxPacketLength: cfg.MaxPacketLength, Rand: rnd}
	p := &prober{
		conn:   stream.NewConn(bufferedConn{Conn: conn, r: br}, framer),
		remote: conn.RemoteAddr(),
		dec:    message.Decoder{Options: cfg.Options},
		log:    log,
	}

	res, err := p.run(ctx, cfg, ours, theirs, rnd)
	if err != nil {
		reason := message.KeyExchangeFailed
		if errors.Is(err, ErrHostKeySignature) {
			reason = message.HostKeyNotVerifiable
		}
		var de *DisconnectError
		if !errors.As(err, &de) {
			p.disconnect(reason, err.Error())
		}
		return nil, err
	}
	p.disconnect(message.ByApplication, "probe complete")
	return res, nil
}

func exchangeIdentification(ctx context.Context, conn net.Conn, br *bufio.Reader, ours *message.Identification) (*message.Identification, error) {
	if d, ok := ctx.Deadline(); ok {
		_ = conn.SetDeadline(d)
		defer conn.SetDeadline(time.Time{})
	}
	if err := stream.WriteIdentification(conn, ours); err != nil {
		return nil, err
	}
	theirs, err := stream.ReadIdentification(br)
	if err != nil {
		return nil, fmt.Errorf("reading server identification: %w", err)
	}
	if theirs.ProtoVersion != "2.0" && theirs.ProtoVersion != "1.99" {
		return nil, fmt.Errorf("%w: protocol version %q", message.ErrInvalidIdentification, theirs.ProtoVersion)
	}
	return theirs, nil
}

type prober struct {
	conn   *stream.Conn
	remote net.Addr
	dec    message.Decoder
	log    *slog.Logger
}

func (p *prober) send(ctx context.Context, m message.Message) error {
	payload, err := message.Encode(m)
	if err != nil {
		return err
	}
	p.log.Debug("send", "message", message.NameOf(m), "bytes", len(payload))
	return p.conn.WritePacketContext(ctx, &packet.Packet{Payload: payload})
}

// recv returns the next message that is not IGNORE, DEBUG or UNIMPLEMENTED,
// along with its raw payload.
func (p *prober) recv(ctx context.Context) (message.Message, []byte, error) {
	for {
		pkt, err := p.conn.ReadPacketContext(ctx)
		if err != nil {
			return nil, nil, err
		}
		m, err := p.dec.Decode(pkt.Payload)
		if err != nil {
			return nil, nil, err
		}
		p.log.Debug("recv", "message", message.NameOf(m), "bytes", len(pkt.Payload))
		switch m := m.(type) {
		case *message.Ignore, *message.Debug, *message.Unimplemented:
			continue
		case *message.Disconnect:
			return nil, nil, &DisconnectError{Reason: m.Reason, Description: m.Description}
		}
		return m, pkt.Payload, nil
	}
}

func expect[T message.Message](ctx context.Context, p *prober) (T, []byte, error) {
	var zero T
	m, raw, err := p.recv(ctx)
	if err != nil {
		return zero, nil, err
	}
	t, ok := m.(T)
	if !ok {
		return zero, nil, fmt.Errorf("%w: got %s, want %s", ErrUnexpectedMessage, message.NameOf(m), message.NameOf(zero))
	}
	return t, raw, nil
}

func (p *prober) run(ctx context.Context, cfg Config, ours, theirs *message.Identification, rnd io.Reader) (*Result, error) {
	hostKeyAlgos := cfg.HostKeyAlgorithms
	if len(hostKeyAlgos) == 0 {
		hostKeyAlgos = DefaultHostKeyAlgorithms
	}
	clientInit := &message.KexInit{
		KexAlgos:                kexAlgorithms,
		ServerHostKeyAlgos:      hostKeyAlgos,
		CiphersClientServer:     ciphers,
		CiphersServerClient:     ciphers,
		MACsClientServer:        macs,
		MACsServerClient:        macs,
		CompressionClientServer: compression,
		CompressionServerClient: compression,
	}
	if _, err := io.ReadFull(rnd, clientInit.Cookie[:]); err != nil {
		return nil, fmt.Errorf("generating cookie: %w", err)
	}
	clientPayload, err := message.Encode(clientInit)
	if err != nil {
		return nil, err
	}
	if err := p.conn.WritePacketContext(ctx, &packet.Packet{Payload: clientPayload}); err != nil {
		return nil, err
	}

	serverInit, serverPayload, err := expect[*message.KexInit](ctx, p)
	if err != nil {
		return nil, err
	}
	algs, err := Negotiate(clientInit, serverInit)
	if err != nil {
		return nil, err
	}
	p.log.Debug("negotiated", "kex", algs.Kex, "hostkey", algs.HostKey, "cipher", algs.CipherServerClient)
	if guessedWrong(serverInit, algs) {
		if _, _, err := p.recv(ctx); err != nil {
			return nil, err
		}
	}

	var priv [32]byte
	if _, err := io.ReadFull(rnd, priv[:]); err != nil {
		return nil, fmt.Errorf("generating ephemeral key: %w", err)
	}
	pub, err := curve25519.X25519(priv[:], curve25519.Basepoint)
	if err != nil {
		return nil, fmt.Errorf("deriving ephemeral key: %w", err)
	}
	if err := p.send(ctx, &message.KexECDHInit{ClientPublic: pub}); err != nil {
		return nil, err
	}

	reply, _, err := expect[*message.KexECDHReply](ctx, p)
	if err != nil {
		return nil, err
	}
	secret, err := curve25519.X25519(priv[:], reply.ServerPublic)
	if err != nil {
		return nil, fmt.Errorf("computing shared secret: %w", err)
	}

	ex := &message.ECDHExchange{
		ClientVersion: ours.String(),
		ServerVersion: theirs.String(),
		ClientKexInit: clientPayload,
		ServerKexInit: serverPayload,
		HostKey:       reply.HostKey,
		ClientPublic:  pub,
		ServerPublic:  reply.ServerPublic,
		SharedSecret:  new(big.Int).SetBytes(secret),
	}
	digestName, err := cryptobackend.KexDigest(algs.Kex)
	if err != nil {
		return nil, err
	}
	digest, err := cryptobackend.NewDigest(digestName)
	if err != nil {
		return nil, err
	}
	h, err := ex.Hash(digest)
	if err != nil {
		return nil, err
	}

	verifier, err := cryptobackend.NewVerifier(reply.HostKey, algs.HostKey)
	if err != nil {
		return nil, err
	}
	ok, err := verifier.Verify(h, reply.Signature)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, fmt.Errorf("%w (%s)", ErrHostKeySignature, algs.HostKey)
	}
	if cfg.HostKeyCallback != nil {
		if err := cfg.HostKeyCallback(p.remote.String(), p.remote, verifier.Key()); err != nil {
			return nil, fmt.Errorf("host key rejected: %w", err)
		}
	}

	if _, _, err := expect[*message.NewKeys](ctx, p); err != nil {
		return nil, err
	}

	return &Result{
		Server:        theirs,
		ServerKexInit: serverInit,
		Algorithms:    algs,
		HostKey:       verifier.Key(),
		Fingerprint:   gossh.FingerprintSHA256(verifier.Key()),
		HASSHServer:   hassh.Server(serverInit),
		SessionID:     h,
	}, nil
}

// disconnect sends a best-effort DISCONNECT. Our direction is still in
// cleartext because we never send NEWKEYS.
func (p *prober) disconnect(reason message.DisconnectReason, description string) {
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if err := p.send(ctx, &message.Disconnect{Reason: reason, Description: description}); err != nil {
		p.log.Debug("disconnect not sent", "error", err)
	}
}
