// Package sshcrypto declares the narrow capabilities the codec needs from a
// cryptographic backend: hashing for exchange hashes and signing or
// verification for authentication blobs. It has no implementations and no
// dependencies on the rest of the module.
package sshcrypto

import (
	"errors"
	"fmt"
)

// ErrCryptoBackend matches every *BackendError.
var ErrCryptoBackend = errors.New("sshcrypto: backend failure")

// Digest is an incremental hash.
type Digest interface {
	// Algorithm returns the hash name, e.g. "sha256".
	Algorithm() string
	Update(data []byte) error
	// Finalize returns the hash of everything passed to Update. The Digest
	// must not be used afterwards.
	Finalize() ([]byte, error)
}

// Signer produces signature blobs in SSH wire form.
type Signer interface {
	// Algorithm returns the IANA signature algorithm name, e.g.
	// "ssh-ed25519" or "rsa-sha2-256".
	Algorithm() string
	Sign(data []byte) ([]byte, error)
}

// Verifier checks signature blobs in SSH wire form. A well-formed signature
// that does not match reports (false, nil); backend failures return an
// error.
type Verifier interface {
	Algorithm() string
	Verify(data, sig []byte) (bool, error)
}

// Signature is a key pair that both signs and verifies.
type Signature interface {
	Signer
	Verifier
}

// BackendError reports a failure inside a cryptographic backend.
type BackendError struct {
	Algorithm string
	Op        string
	Err       error
}

func (e *BackendError) Error() string {
	return fmt.Sprintf("sshcrypto: %s %s: %v", e.Algorithm, e.Op, e.Err)
}

func (e *BackendError) Unwrap() error { return e.Err }

// Is reports ErrCryptoBackend as a match so callers can test for any
// backend failure.
func (e *BackendError) Is(target error) bool {
	return target == ErrCryptoBackend
}

// Wrap returns err as a *BackendError unless it is nil or already one.
func Wrap(algorithm, op string, err error) error {
	if err == nil {
		return nil
	}
	var be *BackendError
	if errors.As(err, &be) {
		return err
	}
	return &BackendError{Algorithm: algorithm, Op: op, Err: err}
}

// Sum feeds every chunk to d and finalizes it.
func Sum(d Digest, chunks ...[]byte) ([]byte, error) {
	for _, c := range chunks {
		if err := d.Update(c); err != nil {
			return nil, Wrap(d.Algorithm(), "update", err)
		}
	}
	sum, err := d.Finalize()
	if err != nil {
		return nil, Wrap(d.Algorithm(), "finalize", err)
	}
	return sum, nil
}
