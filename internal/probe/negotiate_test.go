package probe

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jclement/sshwire/pkg/message"
)

func offer(kex, hostKey, cipher, mac, comp []string) *message.KexInit {
	return &message.KexInit{
		KexAlgos:                kex,
		ServerHostKeyAlgos:      hostKey,
		CiphersClientServer:     cipher,
		CiphersServerClient:     cipher,
		MACsClientServer:        mac,
		MACsServerClient:        mac,
		CompressionClientServer: comp,
		CompressionServerClient: comp,
	}
}

func TestNegotiate(t *testing.T) {
	client := offer(
		[]string{"curve25519-sha256", "ecdh-sha2-nistp256"},
		[]string{"ssh-ed25519", "rsa-sha2-512"},
		[]string{"aes128-ctr", "aes256-ctr"},
		[]string{"hmac-sha2-256", "hmac-sha1"},
		[]string{"none"},
	)
	server := offer(
		[]string{"ecdh-sha2-nistp256", "curve25519-sha256"},
		[]string{"rsa-sha2-512"},
		[]string{"aes256-ctr", "aes128-ctr"},
		[]string{"hmac-sha1", "hmac-sha2-256"},
		[]string{"zlib@openssh.com", "none"},
	)

	got, err := Negotiate(client, server)
	require.NoError(t, err)
	assert.Equal(t, Algorithms{
		Kex:                     "curve25519-sha256",
		HostKey:                 "rsa-sha2-512",
		CipherClientServer:      "aes128-ctr",
		CipherServerClient:      "aes128-ctr",
		MACClientServer:         "hmac-sha2-256",
		MACServerClient:         "hmac-sha2-256",
		CompressionClientServer: "none",
		CompressionServerClient: "none",
	}, got)
}

func TestNegotiate_AEADSkipsMAC(t *testing.T) {
	client := offer([]string{"curve25519-sha256"}, []string{"ssh-ed25519"}, []string{"chacha20-poly1305@openssh.com"}, []string{"hmac-sha2-256"}, []string{"none"})
	server := offer([]string{"curve25519-sha256"}, []string{"ssh-ed25519"}, []string{"chacha20-poly1305@openssh.com"}, []string{"umac-128@openssh.com"}, []string{"none"})

	got, err := Negotiate(client, server)
	require.NoError(t, err)
	assert.Empty(t, got.MACClientServer)
	assert.Empty(t, got.MACServerClient)
}

func TestNegotiate_NoCommon(t *testing.T) {
	client := offer([]string{"curve25519-sha256"}, []string{"ssh-ed25519"}, []string{"aes128-ctr"}, []string{"hmac-sha2-256"}, []string{"none"})
	server := offer([]string{"diffie-hellman-group14-sha256"}, []string{"ssh-ed25519"}, []string{"aes128-ctr"}, []string{"hmac-sha2-256"}, []string{"none"})

	_, err := Negotiate(client, server)
	assert.ErrorIs(t, err, ErrNoCommonAlgorithm)
	assert.Contains(t, err.Error(), "key exchange")
}

func TestGuessedWrong(t *testing.T) {
	a := Algorithms{Kex: "curve25519-sha256", HostKey: "ssh-ed25519"}
	assert.False(t, guessedWrong(&message.KexInit{KexAlgos: []string{"x"}}, a))
	assert.False(t, guessedWrong(&message.KexInit{
		FirstKexFollows: true, KexAlgos: []string{"curve25519-sha256"}, ServerHostKeyAlgos: []string{"ssh-ed25519"},
	}, a))
	assert.True(t, guessedWrong(&message.KexInit{
		FirstKexFollows: true, KexAlgos: []string{"ecdh-sha2-nistp256"}, ServerHostKeyAlgos: []string{"ssh-ed25519"},
	}, a))
}
