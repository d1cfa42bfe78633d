package probe

import (
	"errors"
	"fmt"
	"slices"

	"github.com/jclement/sshwire/pkg/message"
)

// ErrNoCommonAlgorithm reports a category in which the two KEXINIT offers
// share no algorithm.
var ErrNoCommonAlgorithm = errors.New("probe: no common algorithm")

// Algorithms is the outcome of algorithm negotiation.
type Algorithms struct {
	Kex                     string
	HostKey                 string
	CipherClientServer      string
	CipherServerClient      string
	MACClientServer         string
	MACServerClient         string
	CompressionClientServer string
	CompressionServerClient string
}

var aeadCiphers = map[string]bool{
	"chacha20-poly1305@openssh.com": true,
	"aes128-gcm@openssh.com":        true,
	"aes256-gcm@openssh.com":        true,
}

// firstCommon picks the first client algorithm the server also offers
// (RFC 4253 section 7.1).
func firstCommon(what string, client, server []string) (string, error) {
	for _, c := range client {
		if slices.Contains(server, c) {
			return c, nil
		}
	}
	return "", fmt.Errorf("%w: %s (client %v, server %v)", ErrNoCommonAlgorithm, what, client, server)
}

// Negotiate applies the RFC 4253 rules to a client and a server KEXINIT.
// MACs are not negotiated for AEAD ciphers.
func Negotiate(client, server *message.KexInit) (Algorithms, error) {
	var (
		a   Algorithms
		err error
	)
	if a.Kex, err = firstCommon("key exchange", client.KexAlgos, server.KexAlgos); err != nil {
		return a, err
	}
	if a.HostKey, err = firstCommon("host key", client.ServerHostKeyAlgos, server.ServerHostKeyAlgos); err != nil {
		return a, err
	}
	if a.CipherClientServer, err = firstCommon("cipher client->server", client.CiphersClientServer, server.CiphersClientServer); err != nil {
		return a, err
	}
	if a.CipherServerClient, err = firstCommon("cipher server->client", client.CiphersServerClient, server.CiphersServerClient); err != nil {
		return a, err
	}
	if !aeadCiphers[a.CipherClientServer] {
		if a.MACClientServer, err = firstCommon("mac client->server", client.MACsClientServer, server.MACsClientServer); err != nil {
			return a, err
		}
	}
	if !aeadCiphers[a.CipherServerClient] {
		if a.MACServerClient, err = firstCommon("mac server->client", client.MACsServerClient, server.MACsServerClient); err != nil {
			return a, err
		}
	}
	if a.CompressionClientServer, err = firstCommon("compression client->server", client.CompressionClientServer, server.CompressionClientServer); err != nil {
		return a, err
	}
	if a.CompressionServerClient, err = firstCommon("compression server->client", client.CompressionServerClient, server.CompressionServerClient); err != nil {
		return a, err
	}
	return a, nil
}

// guessedWrong reports whether a peer's first_kex_packet_follows guess
// must be discarded.
func guessedWrong(peer *message.KexInit, a Algorithms) bool {
	if !peer.FirstKexFollows {
		return false
	}
	return len(peer.KexAlgos) == 0 || peer.KexAlgos[0] != a.Kex ||
		len(peer.ServerHostKeyAlgos) == 0 || peer.ServerHostKeyAlgos[0] != a.HostKey
}
