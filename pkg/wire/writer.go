package wire

import (
	"fmt"
	"math/big"
)

// Writer appends fields to a growing buffer and keeps the first encoding
// error.
type Writer struct {
	buf []byte
	err error
}

// NewWriter returns a Writer with capacity for sizeHint bytes.
func NewWriter(sizeHint int) *Writer {
	return &Writer{buf: make([]byte, 0, sizeHint)}
}

// Byte appends one byte.
func (w *Writer) Byte(v byte) {
	w.buf = AppendByte(w.buf, v)
}

// Bool appends a canonical boolean.
func (w *Writer) Bool(v bool) {
	w.buf = AppendBool(w.buf, v)
}

// Uint32 appends a big-endian uint32.
func (w *Writer) Uint32(v uint32) {
	w.buf = AppendUint32(w.buf, v)
}

// Uint64 appends a big-endian uint64.
func (w *Writer) Uint64(v uint64) {
	w.buf = AppendUint64(w.buf, v)
}

// Bytes appends a length-prefixed string.
func (w *Writer) Bytes(v []byte) {
	w.buf = AppendString(w.buf, v)
}

// String appends a length-prefixed string.
func (w *Writer) String(v string) {
	w.buf = AppendText(w.buf, v)
}

// MPInt appends a minimal mpint.
func (w *Writer) MPInt(v *big.Int) {
	w.buf = AppendMPInt(w.buf, v)
}

// NameList appends a name-list; invalid names set the Writer's error.
func (w *Writer) NameList(field string, names []string) {
	buf, err := AppendNameList(w.buf, names)
	if err != nil {
		w.Fail(field, err)
		return
	}
	w.buf = buf
}

// Fail records err against field unless an error is already held.
func (w *Writer) Fail(field string, err error) {
	if w.err == nil {
		w.err = fmt.Errorf("encoding %s: %w", field, err)
	}
}

// Raw appends bytes without a length prefix.
func (w *Writer) Raw(v []byte) {
	w.buf = append(w.buf, v...)
}

// Len returns the number of bytes written.
func (w *Writer) Len() int {
	return len(w.buf)
}

// Finish returns the encoded bytes and the first error.
func (w *Writer) Finish() ([]byte, error) {
	if w.err != nil {
		return nil, w.err
	}
	return w.buf, nil
}
