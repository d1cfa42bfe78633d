// Package message models the SSH message catalogue of RFC 4253, RFC 4252,
// RFC 4254 and their extensions as a closed set of Go types.
//
// Every message type implements Message. Decode selects the type from the
// first payload byte; Encode writes the message number followed by the
// fields in the order the RFC assigns them. Payloads with a message number
// this package does not know decode to *Unrecognized, which re-encodes to
// the original bytes.
//
// A few message numbers mean different things depending on state the codec
// cannot see: 30 and 31 are shared by every key-exchange method and 60 by
// several authentication methods. A Decoder carries that context.
package message

import (
	"bytes"
	"errors"
	"fmt"

	"github.com/jclement/sshwire/pkg/wire"
)

// Message numbers (RFC 4250 section 4.1.2).
const (
	MsgDisconnect     byte = 1
	MsgIgnore         byte = 2
	MsgUnimplemented  byte = 3
	MsgDebug          byte = 4
	MsgServiceRequest byte = 5
	MsgServiceAccept  byte = 6
	MsgExtInfo        byte = 7

	MsgKexInit      byte = 20
	MsgNewKeys      byte = 21
	MsgKexDHInit    byte = 30
	MsgKexDHReply   byte = 31
	MsgKexECDHInit  byte = 30
	MsgKexECDHReply byte = 31

	MsgUserAuthRequest         byte = 50
	MsgUserAuthFailure         byte = 51
	MsgUserAuthSuccess         byte = 52
	MsgUserAuthBanner          byte = 53
	MsgUserAuthPKOK            byte = 60
	MsgUserAuthPasswdChangeReq byte = 60
	MsgUserAuthInfoRequest     byte = 60
	MsgUserAuthInfoResponse    byte = 61

	MsgGlobalRequest           byte = 80
	MsgRequestSuccess          byte = 81
	MsgRequestFailure          byte = 82
	MsgChannelOpen             byte = 90
	MsgChannelOpenConfirmation byte = 91
	MsgChannelOpenFailure      byte = 92
	MsgChannelWindowAdjust     byte = 93
	MsgChannelData             byte = 94
	MsgChannelExtendedData     byte = 95
	MsgChannelEOF              byte = 96
	MsgChannelClose            byte = 97
	MsgChannelRequest          byte = 98
	MsgChannelSuccess          byte = 99
	MsgChannelFailure          byte = 100
)

// Message is one decoded SSH message. The set of implementations is closed.
type Message interface {
	// Tag returns the message number.
	Tag() byte

	encode(w *wire.Writer)
}

// fieldDecoder is a Message that can fill itself from a Reader positioned
// after the message number.
type fieldDecoder interface {
	Message
	decode(r *wire.Reader)
}

// KexMethod selects the layout of message numbers 30 and 31.
type KexMethod int

const (
	// KexECDH decodes 30/31 as SSH_MSG_KEX_ECDH_INIT/REPLY (RFC 5656),
	// which also covers curve25519-sha256 (RFC 8731).
	KexECDH KexMethod = iota
	// KexDH decodes 30/31 as SSH_MSG_KEXDH_INIT/REPLY (RFC 4253 section 8).
	KexDH
)

func (k KexMethod) String() string {
	switch k {
	case KexECDH:
		return "ecdh"
	case KexDH:
		return "dh"
	}
	return fmt.Sprintf("KexMethod(%d)", int(k))
}

// Decoder decodes payloads with connection context. The zero value decodes
// with default limits, ECDH key exchange and no authentication context.
type Decoder struct {
	Options wire.Options

	// Kex picks the key-exchange layout for message numbers 30 and 31.
	Kex KexMethod

	// AuthMethod is the method of the outstanding SSH_MSG_USERAUTH_REQUEST.
	// It picks the layout for message number 60; with no method, or one
	// that does not use 60, the message decodes as *Unrecognized.
	AuthMethod string
}

var registry = map[byte]func(d *Decoder) fieldDecoder{
	MsgDisconnect:     func(*Decoder) fieldDecoder { return new(Disconnect) },
	MsgIgnore:         func(*Decoder) fieldDecoder { return new(Ignore) },
	MsgUnimplemented:  func(*Decoder) fieldDecoder { return new(Unimplemented) },
	MsgDebug:          func(*Decoder) fieldDecoder { return new(Debug) },
	MsgServiceRequest: func(*Decoder) fieldDecoder { return new(ServiceRequest) },
	MsgServiceAccept:  func(*Decoder) fieldDecoder { return new(ServiceAccept) },
	MsgExtInfo:        func(*Decoder) fieldDecoder { return new(ExtInfo) },
	MsgKexInit:        func(*Decoder) fieldDecoder { return new(KexInit) },
	MsgNewKeys:        func(*Decoder) fieldDecoder { return new(NewKeys) },
	MsgKexDHInit: func(d *Decoder) fieldDecoder {
		if d.Kex == KexDH {
			return new(KexDHInit)
		}
		return new(KexECDHInit)
	},
	MsgKexDHReply: func(d *Decoder) fieldDecoder {
		if d.Kex == KexDH {
			return new(KexDHReply)
		}
		return new(KexECDHReply)
	},

	MsgUserAuthRequest: func(*Decoder) fieldDecoder { return new(UserAuthRequest) },
	MsgUserAuthFailure: func(*Decoder) fieldDecoder { return new(UserAuthFailure) },
	MsgUserAuthSuccess: func(*Decoder) fieldDecoder { return new(UserAuthSuccess) },
	MsgUserAuthBanner:  func(*Decoder) fieldDecoder { return new(UserAuthBanner) },
	MsgUserAuthPKOK: func(d *Decoder) fieldDecoder {
		switch d.AuthMethod {
		case MethodPublicKey:
			return new(UserAuthPKOK)
		case MethodPassword:
			return new(UserAuthPasswdChangeReq)
		case MethodKeyboardInteractive:
			return new(UserAuthInfoRequest)
		}
		return nil
	},
	MsgUserAuthInfoResponse: func(*Decoder) fieldDecoder { return new(UserAuthInfoResponse) },

	MsgGlobalRequest:           func(*Decoder) fieldDecoder { return new(GlobalRequest) },
	MsgRequestSuccess:          func(*Decoder) fieldDecoder { return new(RequestSuccess) },
	MsgRequestFailure:          func(*Decoder) fieldDecoder { return new(RequestFailure) },
	MsgChannelOpen:             func(*Decoder) fieldDecoder { return new(ChannelOpen) },
	MsgChannelOpenConfirmation: func(*Decoder) fieldDecoder { return new(ChannelOpenConfirmation) },
	MsgChannelOpenFailure:      func(*Decoder) fieldDecoder { return new(ChannelOpenFailure) },
	MsgChannelWindowAdjust:     func(*Decoder) fieldDecoder { return new(ChannelWindowAdjust) },
	MsgChannelData:             func(*Decoder) fieldDecoder { return new(ChannelData) },
	MsgChannelExtendedData:     func(*Decoder) fieldDecoder { return new(ChannelExtendedData) },
	MsgChannelEOF:              func(*Decoder) fieldDecoder { return new(ChannelEOF) },
	MsgChannelClose:            func(*Decoder) fieldDecoder { return new(ChannelClose) },
	MsgChannelRequest:          func(*Decoder) fieldDecoder { return new(ChannelRequest) },
	MsgChannelSuccess:          func(*Decoder) fieldDecoder { return new(ChannelSuccess) },
	MsgChannelFailure:          func(*Decoder) fieldDecoder { return new(ChannelFailure) },
}

// Decode decodes payload, which starts with the message number.
func (d *Decoder) Decode(payload []byte) (Message, error) {
	if len(payload) == 0 {
		return nil, &wire.DecodeError{Field: "message number", Offset: 0, Err: wire.ErrTruncated}
	}
	tag := payload[0]

	var m fieldDecoder
	if newMsg := registry[tag]; newMsg != nil {
		m = newMsg(d)
	}
	if m == nil {
		return &Unrecognized{Type: tag, Data: bytes.Clone(payload[1:])}, nil
	}

	r := wire.NewReader(payload, d.Options)
	r.Byte("message number")
	m.decode(r)
	if err := r.Finish(); err != nil {
		return nil, fmt.Errorf("%s: %w", NameOf(m), err)
	}
	return m, nil
}

// Decode decodes payload with a zero Decoder.
func Decode(payload []byte) (Message, error) {
	var d Decoder
	return d.Decode(payload)
}

// Encode returns the payload for m, message number first.
func Encode(m Message) ([]byte, error) {
	if m == nil {
		return nil, errors.New("message: encode nil message")
	}
	w := wire.NewWriter(64)
	w.Byte(m.Tag())
	m.encode(w)
	b, err := w.Finish()
	if err != nil {
		return nil, fmt.Errorf("%s: %w", NameOf(m), err)
	}
	return b, nil
}

// Unrecognized holds a message whose number has no known layout here.
// It is not an error: peers may send extension messages.
type Unrecognized struct {
	Type byte
	Data []byte
}

func (m *Unrecognized) Tag() byte { return m.Type }

func (m *Unrecognized) encode(w *wire.Writer) { w.Raw(m.Data) }

// readCount reads a uint32 element count and rejects counts that could not
// fit in the remaining input at minSize bytes per element.
func readCount(r *wire.Reader, field string, minSize int) int {
	n := r.Uint32(field)
	if r.Err() != nil {
		return 0
	}
	if uint64(n)*uint64(minSize) > uint64(r.Remaining()) {
		r.Fail(field, fmt.Errorf("%w: %d elements declared, %d bytes remain", wire.ErrTruncated, n, r.Remaining()))
		return 0
	}
	return int(n)
}
