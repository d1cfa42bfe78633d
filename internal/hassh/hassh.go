// Package hassh computes HASSH fingerprints of SSH key exchange offers.
//
// HASSH is the MD5 of "kex;cipher;mac;compression", each part being the
// comma-joined algorithm list of the relevant direction. Clients are
// fingerprinted by their client-to-server lists, servers (HASSH-server) by
// their server-to-client lists.
package hassh

import (
	"crypto/md5"
	"encoding/hex"
	"strings"

	"github.com/jclement/sshwire/pkg/message"
)

// Fingerprint is a HASSH hash together with the string it was computed
// from.
type Fingerprint struct {
	Hash       string
	Algorithms string
}

func (f Fingerprint) String() string { return f.Hash }

// Client fingerprints the KEXINIT a client sent.
func Client(k *message.KexInit) Fingerprint {
	return compute(k.KexAlgos, k.CiphersClientServer, k.MACsClientServer, k.CompressionClientServer)
}

// Server fingerprints the KEXINIT a server sent.
func Server(k *message.KexInit) Fingerprint {
	return compute(k.KexAlgos, k.CiphersServerClient, k.MACsServerClient, k.CompressionServerClient)
}

func compute(lists ...[]string) Fingerprint {
	parts := make([]string, len(lists))
	for i, l := range lists {
		parts[i] = strings.Join(l, ",")
	}
	s := strings.Join(parts, ";")
	sum := md5.Sum([]byte(s))
	return Fingerprint{Hash: hex.EncodeToString(sum[:]), Algorithms: s}
}
