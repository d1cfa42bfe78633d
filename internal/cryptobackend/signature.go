package cryptobackend

import (
	"crypto/rand"
	"fmt"

	gossh "golang.org/x/crypto/ssh"

	"github.com/jclement/sshwire/pkg/sshcrypto"
)

// Signer signs with an x/crypto/ssh key and returns signatures in wire
// form (string format, string blob).
type Signer struct {
	signer    gossh.Signer
	algorithm string
}

// NewSigner wraps s. An empty algorithm uses the key type, so RSA keys
// must name rsa-sha2-256 or rsa-sha2-512 to avoid SHA-1.
func NewSigner(s gossh.Signer, algorithm string) (*Signer, error) {
	keyType := s.PublicKey().Type()
	if algorithm == "" {
		algorithm = keyType
	}
	if algorithm != keyType {
		if _, ok := s.(gossh.AlgorithmSigner); !ok || !rsaAlgorithm(keyType, algorithm) {
			return nil, fmt.Errorf("%s key cannot sign %s", keyType, algorithm)
		}
	}
	return &Signer{signer: s, algorithm: algorithm}, nil
}

func rsaAlgorithm(keyType, algorithm string) bool {
	switch keyType {
	case gossh.KeyAlgoRSA:
		return algorithm == gossh.KeyAlgoRSASHA256 || algorithm == gossh.KeyAlgoRSASHA512
	case gossh.CertAlgoRSAv01:
		return algorithm == gossh.CertAlgoRSASHA256v01 || algorithm == gossh.CertAlgoRSASHA512v01
	}
	return false
}

func (s *Signer) Algorithm() string { return s.algorithm }

// PublicKey returns the wire form of the signing key.
func (s *Signer) PublicKey() []byte { return s.signer.PublicKey().Marshal() }

func (s *Signer) Sign(data []byte) ([]byte, error) {
	var (
		sig *gossh.Signature
		err error
	)
	if as, ok := s.signer.(gossh.AlgorithmSigner); ok && s.algorithm != s.signer.PublicKey().Type() {
		sig, err = as.SignWithAlgorithm(rand.Reader, data, s.algorithm)
	} else {
		sig, err = s.signer.Sign(rand.Reader, data)
	}
	if err != nil {
		return nil, &sshcrypto.BackendError{Algorithm: s.algorithm, Op: "sign", Err: err}
	}
	return gossh.Marshal(sig), nil
}

// Verifier checks wire-form signatures against a public key.
type Verifier struct {
	key       gossh.PublicKey
	algorithm string
}

// NewVerifier parses a wire-form public key. An empty algorithm accepts
// any signature format the key supports.
func NewVerifier(blob []byte, algorithm string) (*Verifier, error) {
	key, err := gossh.ParsePublicKey(blob)
	if err != nil {
		return nil, &sshcrypto.BackendError{Algorithm: algorithm, Op: "parse public key", Err: err}
	}
	return &Verifier{key: key, algorithm: algorithm}, nil
}

func (v *Verifier) Algorithm() string {
	if v.algorithm == "" {
		return v.key.Type()
	}
	return v.algorithm
}

// Key returns the parsed public key.
func (v *Verifier) Key() gossh.PublicKey { return v.key }

// Verify reports whether sig is a valid signature of data. Malformed
// signatures and signatures in another format than the Verifier's
// algorithm report false.
func (v *Verifier) Verify(data, sig []byte) (bool, error) {
	var s gossh.Signature
	if err := gossh.Unmarshal(sig, &s); err != nil {
		return false, nil
	}
	if v.algorithm != "" && s.Format != v.algorithm {
		return false, nil
	}
	return v.key.Verify(data, &s) == nil, nil
}

var _ sshcrypto.Signature = (*signerVerifier)(nil)

type signerVerifier struct {
	*Signer
	v *Verifier
}

func (sv signerVerifier) Verify(data, sig []byte) (bool, error) { return sv.v.Verify(data, sig) }

// NewSignature pairs a Signer with a Verifier for its own public key.
func NewSignature(s gossh.Signer, algorithm string) (sshcrypto.Signature, error) {
	signer, err := NewSigner(s, algorithm)
	if err != nil {
		return nil, err
	}
	verifier, err := NewVerifier(signer.PublicKey(), signer.Algorithm())
	if err != nil {
		return nil, err
	}
	return &signerVerifier{Signer: signer, v: verifier}, nil
}
