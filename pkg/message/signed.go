package message

import (
	"errors"
	"fmt"

	"github.com/jclement/sshwire/pkg/sshcrypto"
	"github.com/jclement/sshwire/pkg/wire"
)

// ErrNotPublicKey reports a request whose method is not publickey.
var ErrNotPublicKey = errors.New("message: request does not use publickey authentication")

// PublicKeySignedData is the blob a client signs to prove possession of a
// key during publickey authentication (RFC 4252 section 7).
type PublicKeySignedData struct {
	SessionID []byte
	User      string
	Service   string
	Algorithm string
	PublicKey []byte
}

// Marshal returns the bytes that are signed.
func (s *PublicKeySignedData) Marshal() []byte {
	w := wire.NewWriter(128 + len(s.SessionID) + len(s.PublicKey))
	w.Bytes(s.SessionID)
	w.Byte(MsgUserAuthRequest)
	w.String(s.User)
	w.String(s.Service)
	w.String(MethodPublicKey)
	w.Bool(true)
	w.String(s.Algorithm)
	w.Bytes(s.PublicKey)
	b, _ := w.Finish()
	return b
}

// Sign signs the blob with signer.
func (s *PublicKeySignedData) Sign(signer sshcrypto.Signer) ([]byte, error) {
	sig, err := signer.Sign(s.Marshal())
	if err != nil {
		return nil, sshcrypto.Wrap(signer.Algorithm(), "sign", err)
	}
	return sig, nil
}

// Verify checks sig over the blob with verifier.
func (s *PublicKeySignedData) Verify(verifier sshcrypto.Verifier, sig []byte) (bool, error) {
	ok, err := verifier.Verify(s.Marshal(), sig)
	if err != nil {
		return false, sshcrypto.Wrap(verifier.Algorithm(), "verify", err)
	}
	return ok, nil
}

func signedDataFor(sessionID []byte, req *UserAuthRequest) (*PublicKeySignedData, *PublicKeyAuth, error) {
	pk, ok := req.Auth.(*PublicKeyAuth)
	if !ok {
		method := "<nil>"
		if req.Auth != nil {
			method = req.Auth.Method()
		}
		return nil, nil, fmt.Errorf("%w: method %q", ErrNotPublicKey, method)
	}
	return &PublicKeySignedData{
		SessionID: sessionID,
		User:      req.User,
		Service:   req.Service,
		Algorithm: pk.Algorithm,
		PublicKey: pk.PublicKey,
	}, pk, nil
}

// SignRequest fills in the signature of a publickey UserAuthRequest.
func SignRequest(sessionID []byte, req *UserAuthRequest, signer sshcrypto.Signer) error {
	data, pk, err := signedDataFor(sessionID, req)
	if err != nil {
		return err
	}
	sig, err := data.Sign(signer)
	if err != nil {
		return err
	}
	pk.Signature = sig
	return nil
}

// VerifyRequest checks the signature of a publickey UserAuthRequest. A
// request without a signature reports false.
func VerifyRequest(sessionID []byte, req *UserAuthRequest, verifier sshcrypto.Verifier) (bool, error) {
	data, pk, err := signedDataFor(sessionID, req)
	if err != nil {
		return false, err
	}
	if pk.Signature == nil {
		return false, nil
	}
	return data.Verify(verifier, pk.Signature)
}
