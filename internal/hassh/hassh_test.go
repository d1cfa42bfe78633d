package hassh

import (
	"crypto/md5"
	"encoding/hex"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/jclement/sshwire/pkg/message"
)

func TestClientAndServer(t *testing.T) {
	k := &message.KexInit{
		KexAlgos:                []string{"curve25519-sha256", "ext-info-c"},
		CiphersClientServer:     []string{"aes128-ctr", "aes256-ctr"},
		CiphersServerClient:     []string{"aes256-gcm@openssh.com"},
		MACsClientServer:        []string{"hmac-sha2-256"},
		MACsServerClient:        []string{"hmac-sha2-512"},
		CompressionClientServer: []string{"none"},
		CompressionServerClient: []string{"none", "zlib@openssh.com"},
	}

	c := Client(k)
	assert.Equal(t, "curve25519-sha256,ext-info-c;aes128-ctr,aes256-ctr;hmac-sha2-256;none", c.Algorithms)
	sum := md5.Sum([]byte(c.Algorithms))
	assert.Equal(t, hex.EncodeToString(sum[:]), c.Hash)
	assert.Equal(t, c.Hash, c.String())

	s := Server(k)
	assert.Equal(t, "curve25519-sha256,ext-info-c;aes256-gcm@openssh.com;hmac-sha2-512;none,zlib@openssh.com", s.Algorithms)
	assert.NotEqual(t, c.Hash, s.Hash)
}

func TestEmptyLists(t *testing.T) {
	f := Client(&message.KexInit{})
	assert.Equal(t, ";;;", f.Algorithms)
	assert.Len(t, f.Hash, 32)
}
