// Package cryptobackend implements the sshcrypto capabilities with the
// standard library hashes and golang.org/x/crypto/ssh keys.
package cryptobackend

import (
	"crypto/sha1"
	"crypto/sha256"
	"crypto/sha512"
	"errors"
	"fmt"
	"hash"
	"strings"

	"github.com/jclement/sshwire/pkg/sshcrypto"
)

var errFinalized = errors.New("digest already finalized")

var digests = map[string]func() hash.Hash{
	"sha1":   sha1.New,
	"sha256": sha256.New,
	"sha384": sha512.New384,
	"sha512": sha512.New,
}

type hashDigest struct {
	name string
	h    hash.Hash
	done bool
}

// NewDigest returns a Digest for sha1, sha256, sha384 or sha512.
func NewDigest(name string) (sshcrypto.Digest, error) {
	newHash, ok := digests[name]
	if !ok {
		return nil, fmt.Errorf("unsupported digest %q", name)
	}
	return &hashDigest{name: name, h: newHash()}, nil
}

func (d *hashDigest) Algorithm() string { return d.name }

func (d *hashDigest) Update(b []byte) error {
	if d.done {
		return sshcrypto.Wrap(d.name, "update", errFinalized)
	}
	d.h.Write(b)
	return nil
}

func (d *hashDigest) Finalize() ([]byte, error) {
	if d.done {
		return nil, sshcrypto.Wrap(d.name, "finalize", errFinalized)
	}
	d.done = true
	return d.h.Sum(nil), nil
}

// KexDigest returns the digest name a key-exchange method hashes with.
func KexDigest(kex string) (string, error) {
	name, _, _ := strings.Cut(kex, "@")
	switch {
	case name == "ecdh-sha2-nistp256", strings.HasSuffix(name, "-sha256"):
		return "sha256", nil
	case name == "ecdh-sha2-nistp384", strings.HasSuffix(name, "-sha384"):
		return "sha384", nil
	case name == "ecdh-sha2-nistp521", strings.HasSuffix(name, "-sha512"):
		return "sha512", nil
	case strings.HasSuffix(name, "-sha1"):
		return "sha1", nil
	}
	return "", fmt.Errorf("no digest known for key exchange %q", kex)
}
