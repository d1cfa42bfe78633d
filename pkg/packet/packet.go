// Package packet frames SSH payloads into the binary packet layout of
// RFC 4253 section 6 and splits such frames apart again.
//
//	uint32    packet_length
//	byte      padding_length
//	byte[n1]  payload; n1 = packet_length - padding_length - 1
//	byte[n2]  random padding; n2 = padding_length
//	byte[m]   mac; m = mac_length
//
// The package does no encryption and never computes or checks a MAC. MAC
// bytes are carried opaquely in Packet.MAC so a caller holding the keys can
// seal and open them.
package packet

import (
	"bytes"
	"crypto/rand"
	"encoding/binary"
	"errors"
	"fmt"
	"io"

	"github.com/jclement/sshwire/pkg/wire"
)

const (
	// MinBlockSize is the alignment used when the cipher block is smaller,
	// including the unencrypted initial exchange.
	MinBlockSize = 8

	// MaxBlockSize is the largest block size for which padding still fits
	// in the padding_length byte.
	MaxBlockSize = 252

	// MinPadding is the least number of padding bytes in any packet.
	MinPadding = 4

	// DefaultMaxPacketLength bounds packet_length unless a Framer sets its
	// own limit. It matches OpenSSH's PACKET_MAX_SIZE.
	DefaultMaxPacketLength = 256 << 10
)

var (
	// ErrTruncated reports a frame shorter than its length field declares.
	ErrTruncated = wire.ErrTruncated

	// ErrLengthOverflow reports a packet_length above the Framer's maximum.
	ErrLengthOverflow = wire.ErrLengthOverflow

	// ErrInvalidFraming reports a bad padding_length or a misaligned frame.
	ErrInvalidFraming = errors.New("packet: invalid framing")

	// ErrInvalidBlockSize reports a block size the framing rules cannot honor.
	ErrInvalidBlockSize = errors.New("packet: invalid block size")

	// ErrMACLength reports a Packet.MAC whose length differs from MACSize.
	ErrMACLength = errors.New("packet: mac length mismatch")
)

// Packet is one unframed binary packet.
type Packet struct {
	// Payload is the message bytes, starting with the message number.
	Payload []byte

	// MAC holds the bytes trailing the frame, untouched.
	MAC []byte
}

// Type returns the message number at the start of the payload, or zero for
// an empty payload.
func (p *Packet) Type() byte {
	if len(p.Payload) == 0 {
		return 0
	}
	return p.Payload[0]
}

// Framer holds the framing parameters of one direction of a connection.
// The zero value frames the unencrypted initial exchange.
type Framer struct {
	// BlockSize is the cipher block size. Zero and divisors of
	// MinBlockSize align to MinBlockSize; other values below it are
	// rejected.
	BlockSize int

	// MaxPacketLength caps packet_length on unframe and frame. Zero means
	// DefaultMaxPacketLength.
	MaxPacketLength int

	// MACSize is the number of MAC bytes that follow each frame.
	MACSize int

	// LengthInAAD excludes the 4-byte length field from block alignment,
	// as encrypt-then-MAC and AEAD modes do.
	LengthInAAD bool

	// Rand supplies padding bytes. Nil means crypto/rand.
	Rand io.Reader
}

// EffectiveBlockSize returns the alignment the Framer uses.
func (f Framer) EffectiveBlockSize() (int, error) {
	switch {
	case f.BlockSize > MaxBlockSize:
		return 0, fmt.Errorf("%w: %d > %d", ErrInvalidBlockSize, f.BlockSize, MaxBlockSize)
	case f.BlockSize < 0:
		return 0, fmt.Errorf("%w: %d", ErrInvalidBlockSize, f.BlockSize)
	case f.BlockSize == 0:
		return MinBlockSize, nil
	case f.BlockSize < MinBlockSize:
		if MinBlockSize%f.BlockSize != 0 {
			return 0, fmt.Errorf("%w: %d does not divide %d", ErrInvalidBlockSize, f.BlockSize, MinBlockSize)
		}
		return MinBlockSize, nil
	}
	return f.BlockSize, nil
}

func (f Framer) maxPacketLength() int {
	if f.MaxPacketLength <= 0 {
		return DefaultMaxPacketLength
	}
	return f.MaxPacketLength
}

func (f Framer) alignedPrefix() int {
	if f.LengthInAAD {
		return 1
	}
	return 5
}

// PaddingLength returns the smallest padding of at least MinPadding bytes
// that aligns a frame carrying payloadLen bytes.
func (f Framer) PaddingLength(payloadLen int) (int, error) {
	bs, err := f.EffectiveBlockSize()
	if err != nil {
		return 0, err
	}
	pad := bs - (f.alignedPrefix()+payloadLen)%bs
	if pad < MinPadding {
		pad += bs
	}
	return pad, nil
}

// Frame encodes p into a complete frame followed by p.MAC.
func (f Framer) Frame(p *Packet) ([]byte, error) {
	if len(p.MAC) != f.MACSize {
		return nil, fmt.Errorf("%w: have %d bytes, want %d", ErrMACLength, len(p.MAC), f.MACSize)
	}
	pad, err := f.PaddingLength(len(p.Payload))
	if err != nil {
		return nil, err
	}
	length := 1 + len(p.Payload) + pad
	if length > f.maxPacketLength() {
		return nil, fmt.Errorf("%w: packet length %d > %d", ErrLengthOverflow, length, f.maxPacketLength())
	}

	out := make([]byte, 0, 4+length+len(p.MAC))
	out = binary.BigEndian.AppendUint32(out, uint32(length))
	out = append(out, byte(pad))
	out = append(out, p.Payload...)
	padding := out[len(out) : len(out)+pad]
	rnd := f.Rand
	if rnd == nil {
		rnd = rand.Reader
	}
	if _, err := io.ReadFull(rnd, padding); err != nil {
		return nil, fmt.Errorf("reading padding: %w", err)
	}
	out = out[:len(out)+pad]
	return append(out, p.MAC...), nil
}

// PacketLength validates the packet_length field at the start of header
// and returns it. It lets stream readers reject oversized frames before
// reading or allocating the body.
func (f Framer) PacketLength(header []byte) (int, error) {
	if len(header) < 4 {
		return 0, fmt.Errorf("%w: %d byte length field", ErrTruncated, len(header))
	}
	length := binary.BigEndian.Uint32(header)
	if uint64(length) > uint64(f.maxPacketLength()) {
		return 0, fmt.Errorf("%w: packet length %d > %d", ErrLengthOverflow, length, f.maxPacketLength())
	}
	if length < 1+MinPadding {
		return 0, fmt.Errorf("%w: packet length %d", ErrInvalidFraming, length)
	}
	return int(length), nil
}

// Unframe decodes the frame at the start of raw. It returns the packet and
// the number of bytes consumed, MAC included. Payload and MAC are copies.
func (f Framer) Unframe(raw []byte) (*Packet, int, error) {
	bs, err := f.EffectiveBlockSize()
	if err != nil {
		return nil, 0, err
	}
	if len(raw) < 4 {
		return nil, 0, fmt.Errorf("%w: %d bytes", ErrTruncated, len(raw))
	}
	length := binary.BigEndian.Uint32(raw)
	if uint64(length) > uint64(f.maxPacketLength()) {
		return nil, 0, fmt.Errorf("%w: packet length %d > %d", ErrLengthOverflow, length, f.maxPacketLength())
	}
	total := 4 + int(length) + f.MACSize
	if len(raw) < total {
		return nil, 0, fmt.Errorf("%w: have %d bytes, frame needs %d", ErrTruncated, len(raw), total)
	}
	if length < 1 {
		return nil, 0, fmt.Errorf("%w: empty packet", ErrInvalidFraming)
	}
	pad := int(raw[4])
	switch {
	case pad < MinPadding:
		return nil, 0, fmt.Errorf("%w: padding length %d", ErrInvalidFraming, pad)
	case 1+pad > int(length):
		return nil, 0, fmt.Errorf("%w: padding length %d exceeds packet length %d", ErrInvalidFraming, pad, length)
	}
	aligned := int(length)
	if !f.LengthInAAD {
		aligned += 4
	}
	if aligned%bs != 0 {
		return nil, 0, fmt.Errorf("%w: %d bytes not aligned to block size %d", ErrInvalidFraming, aligned, bs)
	}

	end := 4 + int(length)
	p := &Packet{Payload: bytes.Clone(raw[5 : end-pad])}
	if f.MACSize > 0 {
		p.MAC = bytes.Clone(raw[end:total])
	}
	return p, total, nil
}

// Frame frames payload for the given block size with padding from rnd.
// Block sizes 0, 1, 2 and 4 frame to a multiple of MinBlockSize.
func Frame(payload []byte, blockSize int, rnd io.Reader) ([]byte, error) {
	return Framer{BlockSize: blockSize, Rand: rnd}.Frame(&Packet{Payload: payload})
}

// Unframe splits the frame at the start of raw and returns its payload and
// the number of bytes consumed.
func Unframe(raw []byte, blockSize int) ([]byte, int, error) {
	p, n, err := Framer{BlockSize: blockSize}.Unframe(raw)
	if err != nil {
		return nil, 0, err
	}
	return p.Payload, n, nil
}
