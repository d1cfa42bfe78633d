package wire

import (
	"bytes"
	"fmt"
	"math/big"
)

// Reader decodes fields sequentially from a payload. The first failure is
// kept; later calls return zero values. Decoded byte slices are copies and
// never alias the input.
type Reader struct {
	buf  []byte
	off  int
	opts Options
	err  error
}

// NewReader returns a Reader over b.
func NewReader(b []byte, opts Options) *Reader {
	return &Reader{buf: b, opts: opts}
}

// Err returns the first decoding error as a *DecodeError, or nil.
func (r *Reader) Err() error {
	return r.err
}

// Offset returns the number of bytes consumed so far.
func (r *Reader) Offset() int {
	return r.off
}

// Remaining returns the number of unread bytes.
func (r *Reader) Remaining() int {
	return len(r.buf) - r.off
}

// Fail records err against field unless an error is already held.
func (r *Reader) Fail(field string, err error) {
	if r.err == nil {
		r.err = &DecodeError{Field: field, Offset: r.off, Err: err}
	}
}

func (r *Reader) rest() []byte {
	return r.buf[r.off:]
}

func (r *Reader) advance(rest []byte) {
	r.off = len(r.buf) - len(rest)
}

// Byte reads one byte.
func (r *Reader) Byte(field string) byte {
	if r.err != nil {
		return 0
	}
	v, rest, err := ParseByte(r.rest())
	if err != nil {
		r.Fail(field, err)
		return 0
	}
	r.advance(rest)
	return v
}

// Bool reads a boolean, rejecting non-canonical bytes when the Reader is
// strict.
func (r *Reader) Bool(field string) bool {
	if r.err != nil {
		return false
	}
	parse := ParseBool
	if r.opts.StrictBool {
		parse = ParseBoolStrict
	}
	v, rest, err := parse(r.rest())
	if err != nil {
		r.Fail(field, err)
		return false
	}
	r.advance(rest)
	return v
}

// Uint32 reads a big-endian uint32.
func (r *Reader) Uint32(field string) uint32 {
	if r.err != nil {
		return 0
	}
	v, rest, err := ParseUint32(r.rest())
	if err != nil {
		r.Fail(field, err)
		return 0
	}
	r.advance(rest)
	return v
}

// Uint64 reads a big-endian uint64.
func (r *Reader) Uint64(field string) uint64 {
	if r.err != nil {
		return 0
	}
	v, rest, err := ParseUint64(r.rest())
	if err != nil {
		r.Fail(field, err)
		return 0
	}
	r.advance(rest)
	return v
}

// Bytes reads a length-prefixed string as bytes.
func (r *Reader) Bytes(field string) []byte {
	if r.err != nil {
		return nil
	}
	v, rest, err := ParseString(r.rest(), r.opts.MaxString())
	if err != nil {
		r.Fail(field, err)
		return nil
	}
	r.advance(rest)
	return bytes.Clone(v)
}

// String reads a length-prefixed string as a Go string.
func (r *Reader) String(field string) string {
	if r.err != nil {
		return ""
	}
	v, rest, err := ParseString(r.rest(), r.opts.MaxString())
	if err != nil {
		r.Fail(field, err)
		return ""
	}
	r.advance(rest)
	return string(v)
}

// MPInt reads an mpint.
func (r *Reader) MPInt(field string) *big.Int {
	if r.err != nil {
		return nil
	}
	v, rest, err := ParseMPInt(r.rest(), r.opts.MaxString())
	if err != nil {
		r.Fail(field, err)
		return nil
	}
	r.advance(rest)
	return v
}

// NameList reads a name-list.
func (r *Reader) NameList(field string) []string {
	if r.err != nil {
		return nil
	}
	v, rest, err := ParseNameList(r.rest(), r.opts.MaxString())
	if err != nil {
		r.Fail(field, err)
		return nil
	}
	r.advance(rest)
	return v
}

// Fixed reads exactly n raw bytes.
func (r *Reader) Fixed(field string, n int) []byte {
	if r.err != nil {
		return nil
	}
	if r.Remaining() < n {
		r.Fail(field, fmt.Errorf("%w: need %d bytes, %d remain", ErrTruncated, n, r.Remaining()))
		return nil
	}
	v := bytes.Clone(r.buf[r.off : r.off+n])
	r.off += n
	return v
}

// Rest consumes and returns every remaining byte.
func (r *Reader) Rest() []byte {
	if r.err != nil {
		return nil
	}
	v := bytes.Clone(r.rest())
	r.off = len(r.buf)
	return v
}

// Finish returns the held error, or ErrTrailingData if unread bytes remain.
func (r *Reader) Finish() error {
	if r.err != nil {
		return r.err
	}
	if n := r.Remaining(); n > 0 {
		r.Fail("end of message", fmt.Errorf("%w: %d unread bytes", ErrTrailingData, n))
	}
	return r.err
}
