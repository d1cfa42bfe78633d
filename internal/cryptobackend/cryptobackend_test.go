package cryptobackend

import (
	"crypto/ecdsa"
	"crypto/ed25519"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/rsa"
	"encoding/hex"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	gossh "golang.org/x/crypto/ssh"

	"github.com/jclement/sshwire/pkg/sshcrypto"
)

func TestNewDigest(t *testing.T) {
	tests := []struct {
		name string
		want string
	}{
		{"sha1", "a9993e364706816aba3e25717850c26c9cd0d89d"},
		{"sha256", "ba7816bf8f01cfea414140de5dae2223b00361a396177a9cb410ff61f20015ad"},
		{"sha384", "cb00753f45a35e8bb5a03d699ac65007272c32ab0eded1631a8b605a43ff5bed8086072ba1e7cc2358baeca134c825a7"},
		{"sha512", "ddaf35a193617abacc417349ae20413112e6fa4e89a97ea20a9eeee64b55d39a2192992a274fc1a836ba3c23a3feebbd454d4423643ce80e2a9ac94fa54ca49f"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d, err := NewDigest(tt.name)
			require.NoError(t, err)
			assert.Equal(t, tt.name, d.Algorithm())
			require.NoError(t, d.Update([]byte("a")))
			require.NoError(t, d.Update([]byte("bc")))
			sum, err := d.Finalize()
			require.NoError(t, err)
			assert.Equal(t, tt.want, hex.EncodeToString(sum))
		})
	}
}

func TestNewDigest_Unknown(t *testing.T) {
	_, err := NewDigest("md4")
	assert.Error(t, err)
}

func TestDigest_UseAfterFinalize(t *testing.T) {
	d, err := NewDigest("sha256")
	require.NoError(t, err)
	_, err = d.Finalize()
	require.NoError(t, err)

	err = d.Update([]byte("late"))
	assert.ErrorIs(t, err, sshcrypto.ErrCryptoBackend)
	_, err = d.Finalize()
	assert.ErrorIs(t, err, sshcrypto.ErrCryptoBackend)
}

func TestKexDigest(t *testing.T) {
	tests := map[string]string{
		"curve25519-sha256":             "sha256",
		"curve25519-sha256@libssh.org":  "sha256",
		"ecdh-sha2-nistp256":            "sha256",
		"ecdh-sha2-nistp384":            "sha384",
		"ecdh-sha2-nistp521":            "sha512",
		"diffie-hellman-group14-sha256": "sha256",
		"diffie-hellman-group16-sha512": "sha512",
		"diffie-hellman-group14-sha1":   "sha1",
	}
	for kex, want := range tests {
		got, err := KexDigest(kex)
		require.NoError(t, err, kex)
		assert.Equal(t, want, got, kex)
	}
	_, err := KexDigest("sntrup761x25519-sha512@openssh.com")
	require.NoError(t, err)
	_, err = KexDigest("mlkem768x25519")
	assert.Error(t, err)
}

func newEd25519(t *testing.T) gossh.Signer {
	t.Helper()
	_, priv, err := ed25519.GenerateKey(rand.Reader)
	require.NoError(t, err)
	s, err := gossh.NewSignerFromKey(priv)
	require.NoError(t, err)
	return s
}

func TestSignature_RoundTrip(t *testing.T) {
	rsaKey, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)
	rsaSigner, err := gossh.NewSignerFromKey(rsaKey)
	require.NoError(t, err)

	ecKey, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	require.NoError(t, err)
	ecSigner, err := gossh.NewSignerFromKey(ecKey)
	require.NoError(t, err)

	tests := []struct {
		name      string
		signer    gossh.Signer
		algorithm string
		want      string
	}{
		{"ed25519", newEd25519(t), "", gossh.KeyAlgoED25519},
		{"rsa-sha2-256", rsaSigner, gossh.KeyAlgoRSASHA256, gossh.KeyAlgoRSASHA256},
		{"rsa-sha2-512", rsaSigner, gossh.KeyAlgoRSASHA512, gossh.KeyAlgoRSASHA512},
		{"ecdsa", ecSigner, "", gossh.KeyAlgoECDSA256},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sig, err := NewSignature(tt.signer, tt.algorithm)
			require.NoError(t, err)
			assert.Equal(t, tt.want, sig.Algorithm())

			blob, err := sig.Sign([]byte("exchange hash"))
			require.NoError(t, err)

			var parsed gossh.Signature
			require.NoError(t, gossh.Unmarshal(blob, &parsed))
			assert.Equal(t, tt.want, parsed.Format)

			ok, err := sig.Verify([]byte("exchange hash"), blob)
			require.NoError(t, err)
			assert.True(t, ok)

			ok, err = sig.Verify([]byte("another hash"), blob)
			require.NoError(t, err)
			assert.False(t, ok)

			// x/crypto agrees with the wire form.
			assert.NoError(t, tt.signer.PublicKey().Verify([]byte("exchange hash"), &parsed))
		})
	}
}

func TestVerifier_RejectsOtherFormat(t *testing.T) {
	rsaKey, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)
	s, err := gossh.NewSignerFromKey(rsaKey)
	require.NoError(t, err)

	signer, err := NewSigner(s, gossh.KeyAlgoRSASHA512)
	require.NoError(t, err)
	blob, err := signer.Sign([]byte("data"))
	require.NoError(t, err)

	v, err := NewVerifier(signer.PublicKey(), gossh.KeyAlgoRSASHA256)
	require.NoError(t, err)
	ok, err := v.Verify([]byte("data"), blob)
	require.NoError(t, err)
	assert.False(t, ok)

	lenient, err := NewVerifier(signer.PublicKey(), "")
	require.NoError(t, err)
	assert.Equal(t, gossh.KeyAlgoRSA, lenient.Algorithm())
	ok, err = lenient.Verify([]byte("data"), blob)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestVerifier_Malformed(t *testing.T) {
	s := newEd25519(t)
	v, err := NewVerifier(s.PublicKey().Marshal(), "")
	require.NoError(t, err)
	ok, err := v.Verify([]byte("data"), []byte{0, 0, 0, 9, 'x'})
	require.NoError(t, err)
	assert.False(t, ok)

	_, err = NewVerifier([]byte("not a key"), "ssh-ed25519")
	assert.ErrorIs(t, err, sshcrypto.ErrCryptoBackend)
}

func TestNewSigner_UnsupportedAlgorithm(t *testing.T) {
	_, err := NewSigner(newEd25519(t), gossh.KeyAlgoRSASHA256)
	assert.Error(t, err)
}
