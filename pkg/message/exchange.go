package message

import (
	"math/big"

	"github.com/jclement/sshwire/pkg/sshcrypto"
	"github.com/jclement/sshwire/pkg/wire"
)

// ECDHExchange holds the inputs of the exchange hash H for ECDH key
// exchange (RFC 5656 section 4), which curve25519-sha256 shares (RFC 8731
// section 3.1).
type ECDHExchange struct {
	ClientVersion string // V_C, without CR LF
	ServerVersion string // V_S, without CR LF
	ClientKexInit []byte // I_C, the client's KEXINIT payload
	ServerKexInit []byte // I_S, the server's KEXINIT payload
	HostKey       []byte // K_S
	ClientPublic  []byte // Q_C
	ServerPublic  []byte // Q_S
	SharedSecret  *big.Int
}

// Marshal returns the byte string that is hashed to produce H.
func (e *ECDHExchange) Marshal() []byte {
	w := wire.NewWriter(512)
	w.String(e.ClientVersion)
	w.String(e.ServerVersion)
	w.Bytes(e.ClientKexInit)
	w.Bytes(e.ServerKexInit)
	w.Bytes(e.HostKey)
	w.Bytes(e.ClientPublic)
	w.Bytes(e.ServerPublic)
	w.MPInt(e.SharedSecret)
	b, _ := w.Finish()
	return b
}

// Hash folds Marshal through d and returns H.
func (e *ECDHExchange) Hash(d sshcrypto.Digest) ([]byte, error) {
	return sshcrypto.Sum(d, e.Marshal())
}

// DHExchange holds the inputs of the exchange hash H for finite-field
// Diffie-Hellman (RFC 4253 section 8).
type DHExchange struct {
	ClientVersion string
	ServerVersion string
	ClientKexInit []byte
	ServerKexInit []byte
	HostKey       []byte
	E             *big.Int
	F             *big.Int
	SharedSecret  *big.Int
}

// Marshal returns the byte string that is hashed to produce H.
func (e *DHExchange) Marshal() []byte {
	w := wire.NewWriter(1024)
	w.String(e.ClientVersion)
	w.String(e.ServerVersion)
	w.Bytes(e.ClientKexInit)
	w.Bytes(e.ServerKexInit)
	w.Bytes(e.HostKey)
	w.MPInt(e.E)
	w.MPInt(e.F)
	w.MPInt(e.SharedSecret)
	b, _ := w.Finish()
	return b
}

// Hash folds Marshal through d and returns H.
func (e *DHExchange) Hash(d sshcrypto.Digest) ([]byte, error) {
	return sshcrypto.Sum(d, e.Marshal())
}
