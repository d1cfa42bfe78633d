package message

import (
	"crypto/ed25519"
	"crypto/rand"
	"crypto/sha256"
	"math/big"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	gossh "golang.org/x/crypto/ssh"

	"github.com/jclement/sshwire/internal/cryptobackend"
)

func TestECDHExchange_Hash(t *testing.T) {
	k, _ := new(big.Int).SetString("80112233445566778899aabbccddeeff", 16)
	ex := &ECDHExchange{
		ClientVersion: "SSH-2.0-sshwire",
		ServerVersion: "SSH-2.0-OpenSSH_9.6",
		ClientKexInit: []byte{MsgKexInit, 1},
		ServerKexInit: []byte{MsgKexInit, 2},
		HostKey:       []byte("host key"),
		ClientPublic:  make([]byte, 32),
		ServerPublic:  make([]byte, 32),
		SharedSecret:  k,
	}
	want := gossh.Marshal(&struct {
		ClientVersion string
		ServerVersion string
		ClientKexInit []byte
		ServerKexInit []byte
		HostKey       []byte
		ClientPublic  []byte
		ServerPublic  []byte
		K             *big.Int
	}{ex.ClientVersion, ex.ServerVersion, ex.ClientKexInit, ex.ServerKexInit, ex.HostKey, ex.ClientPublic, ex.ServerPublic, k})
	require.Equal(t, want, ex.Marshal())

	d, err := cryptobackend.NewDigest("sha256")
	require.NoError(t, err)
	h, err := ex.Hash(d)
	require.NoError(t, err)
	sum := sha256.Sum256(want)
	assert.Equal(t, sum[:], h)
}

func TestDHExchange_Marshal(t *testing.T) {
	ex := &DHExchange{
		ClientVersion: "SSH-2.0-a",
		ServerVersion: "SSH-2.0-b",
		HostKey:       []byte("k"),
		E:             big.NewInt(0x80),
		F:             big.NewInt(2),
		SharedSecret:  big.NewInt(0),
	}
	want := gossh.Marshal(&struct {
		VC, VS  string
		IC, IS  []byte
		KS      []byte
		E, F, K *big.Int
	}{"SSH-2.0-a", "SSH-2.0-b", nil, nil, []byte("k"), ex.E, ex.F, ex.SharedSecret})
	assert.Equal(t, want, ex.Marshal())
}

func TestSignRequest_VerifyRequest(t *testing.T) {
	_, priv, err := ed25519.GenerateKey(rand.Reader)
	require.NoError(t, err)
	s, err := gossh.NewSignerFromKey(priv)
	require.NoError(t, err)
	sig, err := cryptobackend.NewSignature(s, "")
	require.NoError(t, err)

	sessionID := []byte("exchange hash of the first kex")
	req := &UserAuthRequest{User: "alice", Service: "ssh-connection", Auth: &PublicKeyAuth{
		Algorithm: sig.Algorithm(),
		PublicKey: s.PublicKey().Marshal(),
	}}

	ok, err := VerifyRequest(sessionID, req, sig)
	require.NoError(t, err)
	assert.False(t, ok, "unsigned request")

	require.NoError(t, SignRequest(sessionID, req, sig))
	require.NotNil(t, req.Auth.(*PublicKeyAuth).Signature)

	// The request survives the wire and still verifies.
	b, err := Encode(req)
	require.NoError(t, err)
	m, err := Decode(b)
	require.NoError(t, err)
	decoded := m.(*UserAuthRequest)

	ok, err = VerifyRequest(sessionID, decoded, sig)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = VerifyRequest([]byte("another session"), decoded, sig)
	require.NoError(t, err)
	assert.False(t, ok)

	decoded.User = "mallory"
	ok, err = VerifyRequest(sessionID, decoded, sig)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestSignRequest_NotPublicKey(t *testing.T) {
	err := SignRequest(nil, &UserAuthRequest{Auth: &PasswordAuth{Password: "x"}}, nil)
	assert.ErrorIs(t, err, ErrNotPublicKey)

	_, err = VerifyRequest(nil, &UserAuthRequest{}, nil)
	assert.ErrorIs(t, err, ErrNotPublicKey)
}
