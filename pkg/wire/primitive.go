package wire

import (
	"encoding/binary"
	"fmt"
	"math/big"
	"strings"
)

// DefaultMaxStringLength bounds length-prefixed fields when Options leaves
// MaxStringLength unset.
const DefaultMaxStringLength = 256 << 10

// Options tunes decoding.
type Options struct {
	// MaxStringLength caps the declared length of strings, mpints and
	// name-lists. Zero or negative means DefaultMaxStringLength.
	MaxStringLength int

	// StrictBool rejects boolean bytes other than 0 and 1.
	StrictBool bool
}

// MaxString returns the effective length cap.
func (o Options) MaxString() int {
	if o.MaxStringLength <= 0 {
		return DefaultMaxStringLength
	}
	return o.MaxStringLength
}

var bigOne = big.NewInt(1)

// AppendByte appends a single byte.
func AppendByte(b []byte, v byte) []byte {
	return append(b, v)
}

// ParseByte decodes a single byte.
func ParseByte(b []byte) (byte, []byte, error) {
	if len(b) < 1 {
		return 0, b, ErrTruncated
	}
	return b[0], b[1:], nil
}

// AppendBool appends 0x01 for true and 0x00 for false.
func AppendBool(b []byte, v bool) []byte {
	if v {
		return append(b, 1)
	}
	return append(b, 0)
}

// ParseBool decodes a boolean; any non-zero byte is true.
func ParseBool(b []byte) (bool, []byte, error) {
	if len(b) < 1 {
		return false, b, ErrTruncated
	}
	return b[0] != 0, b[1:], nil
}

// ParseBoolStrict decodes a boolean and rejects bytes other than 0 and 1.
func ParseBoolStrict(b []byte) (bool, []byte, error) {
	if len(b) < 1 {
		return false, b, ErrTruncated
	}
	switch b[0] {
	case 0:
		return false, b[1:], nil
	case 1:
		return true, b[1:], nil
	}
	return false, b, fmt.Errorf("%w: boolean byte 0x%02x", ErrInvalidEncoding, b[0])
}

// AppendUint32 appends v in network byte order.
func AppendUint32(b []byte, v uint32) []byte {
	return binary.BigEndian.AppendUint32(b, v)
}

// ParseUint32 decodes a big-endian uint32.
func ParseUint32(b []byte) (uint32, []byte, error) {
	if len(b) < 4 {
		return 0, b, ErrTruncated
	}
	return binary.BigEndian.Uint32(b), b[4:], nil
}

// AppendUint64 appends v in network byte order.
func AppendUint64(b []byte, v uint64) []byte {
	return binary.BigEndian.AppendUint64(b, v)
}

// ParseUint64 decodes a big-endian uint64.
func ParseUint64(b []byte) (uint64, []byte, error) {
	if len(b) < 8 {
		return 0, b, ErrTruncated
	}
	return binary.BigEndian.Uint64(b), b[8:], nil
}

// AppendString appends s with its uint32 length prefix.
func AppendString(b, s []byte) []byte {
	b = AppendUint32(b, uint32(len(s)))
	return append(b, s...)
}

// AppendText is AppendString for Go strings.
func AppendText(b []byte, s string) []byte {
	b = AppendUint32(b, uint32(len(s)))
	return append(b, s...)
}

// ParseString decodes a length-prefixed string of at most limit bytes. The
// returned value aliases b.
func ParseString(b []byte, limit int) ([]byte, []byte, error) {
	n, rest, err := ParseUint32(b)
	if err != nil {
		return nil, b, err
	}
	if uint64(n) > uint64(limit) {
		return nil, b, fmt.Errorf("%w: %d > %d", ErrLengthOverflow, n, limit)
	}
	if uint64(n) > uint64(len(rest)) {
		return nil, b, fmt.Errorf("%w: declared %d bytes, %d remain", ErrTruncated, n, len(rest))
	}
	return rest[:n:n], rest[n:], nil
}

// AppendMPInt appends v as a minimal two's-complement mpint. A nil v encodes
// as zero.
func AppendMPInt(b []byte, v *big.Int) []byte {
	return AppendString(b, mpintBytes(v))
}

func mpintBytes(v *big.Int) []byte {
	if v == nil || v.Sign() == 0 {
		return nil
	}
	if v.Sign() > 0 {
		mag := v.Bytes()
		if mag[0]&0x80 != 0 {
			mag = append([]byte{0}, mag...)
		}
		return mag
	}

	// -v - 1 inverted is the two's complement of v without sign extension.
	m := new(big.Int).Neg(v)
	m.Sub(m, bigOne)
	mag := m.Bytes()
	for i := range mag {
		mag[i] ^= 0xff
	}
	if len(mag) == 0 || mag[0]&0x80 == 0 {
		mag = append([]byte{0xff}, mag...)
	}
	return mag
}

// ParseMPInt decodes an mpint of at most limit bytes. Redundant leading 0x00
// or 0xff bytes are accepted.
func ParseMPInt(b []byte, limit int) (*big.Int, []byte, error) {
	raw, rest, err := ParseString(b, limit)
	if err != nil {
		return nil, b, err
	}
	v := new(big.Int)
	if len(raw) == 0 {
		return v, rest, nil
	}
	if raw[0]&0x80 == 0 {
		return v.SetBytes(raw), rest, nil
	}
	inv := make([]byte, len(raw))
	for i, c := range raw {
		inv[i] = ^c
	}
	v.SetBytes(inv)
	v.Add(v, bigOne)
	return v.Neg(v), rest, nil
}

// AppendNameList appends names joined by commas. Names must be non-empty
// ASCII without commas.
func AppendNameList(b []byte, names []string) ([]byte, error) {
	for i, name := range names {
		if err := checkName(name); err != nil {
			return b, fmt.Errorf("%w: entry %d: %v", ErrInvalidNameList, i, err)
		}
	}
	return AppendText(b, strings.Join(names, ",")), nil
}

func checkName(name string) error {
	if name == "" {
		return fmt.Errorf("empty name")
	}
	for i := 0; i < len(name); i++ {
		switch c := name[i]; {
		case c == ',':
			return fmt.Errorf("comma in %q", name)
		case c >= 0x80:
			return fmt.Errorf("non-ASCII byte 0x%02x", c)
		}
	}
	return nil
}

// ParseNameList decodes a name-list of at most limit bytes. An empty string
// decodes to a nil list.
func ParseNameList(b []byte, limit int) ([]string, []byte, error) {
	raw, rest, err := ParseString(b, limit)
	if err != nil {
		return nil, b, err
	}
	if len(raw) == 0 {
		return nil, rest, nil
	}
	for i, c := range raw {
		if c >= 0x80 {
			return nil, b, fmt.Errorf("%w: non-ASCII byte 0x%02x at %d", ErrInvalidNameList, c, i)
		}
	}
	names := strings.Split(string(raw), ",")
	for i, name := range names {
		if name == "" {
			return nil, b, fmt.Errorf("%w: empty entry %d", ErrInvalidNameList, i)
		}
	}
	return names, rest, nil
}
