// Package stream reads and writes SSH binary packets over byte streams.
//
// A Reader and a Writer each serve one direction and are not safe for
// concurrent use. Conn pairs them over a transport with deadlines so that
// blocked calls can be cancelled through a context.
package stream

import (
	"errors"
	"fmt"
	"io"

	"github.com/jclement/sshwire/pkg/packet"
)

var (
	// ErrConnectionClosed reports end of stream.
	ErrConnectionClosed = errors.New("stream: connection closed")

	// ErrDesynchronized is returned by every call after a packet was cut
	// off part way, since the next byte is no longer a packet boundary.
	ErrDesynchronized = errors.New("stream: desynchronized by an interrupted packet")
)

// IncompleteError reports a packet that was only partly transferred. Err is
// ErrConnectionClosed, the context error that interrupted the call, or a
// *TransportError.
type IncompleteError struct {
	Read int // bytes transferred
	Want int // bytes the packet needed
	Err  error
}

func (e *IncompleteError) Error() string {
	return fmt.Sprintf("stream: incomplete packet (%d of %d bytes): %v", e.Read, e.Want, e.Err)
}

func (e *IncompleteError) Unwrap() error { return e.Err }

// TransportError wraps an I/O failure of the underlying stream.
type TransportError struct {
	Op  string
	Err error
}

func (e *TransportError) Error() string { return "stream: " + e.Op + ": " + e.Err.Error() }

func (e *TransportError) Unwrap() error { return e.Err }

// Reader reads framed packets.
type Reader struct {
	r      io.Reader
	framer packet.Framer
	desync bool
}

// NewReader returns a Reader that unframes with f.
func NewReader(r io.Reader, f packet.Framer) *Reader {
	return &Reader{r: r, framer: f}
}

// SetFramer replaces the framing parameters for the next packet.
func (r *Reader) SetFramer(f packet.Framer) { r.framer = f }

// ReadPacket reads one packet. The length field is checked against the
// framer's maximum before the body is allocated.
func (r *Reader) ReadPacket() (*packet.Packet, error) {
	return r.readPacket(nil)
}

func (r *Reader) readPacket(interrupted func() error) (*packet.Packet, error) {
	if r.desync {
		return nil, ErrDesynchronized
	}

	var header [4]byte
	n, err := io.ReadFull(r.r, header[:])
	if err != nil {
		return nil, r.fail(n, len(header), err, interrupted)
	}

	length, err := r.framer.PacketLength(header[:])
	if err != nil {
		r.desync = true
		return nil, err
	}

	buf := make([]byte, 4+length+r.framer.MACSize)
	copy(buf, header[:])
	n, err = io.ReadFull(r.r, buf[4:])
	if err != nil {
		return nil, r.fail(4+n, len(buf), err, interrupted)
	}

	p, _, err := r.framer.Unframe(buf)
	if err != nil {
		return nil, err
	}
	return p, nil
}

func (r *Reader) fail(read, want int, err error, interrupted func() error) error {
	if read > 0 {
		r.desync = true
	}
	return classify("read", read, want, err, interrupted)
}

func classify(op string, done, want int, err error, interrupted func() error) error {
	if interrupted != nil {
		if cause := interrupted(); cause != nil {
			return &IncompleteError{Read: done, Want: want, Err: cause}
		}
	}
	if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
		if done == 0 {
			return ErrConnectionClosed
		}
		return &IncompleteError{Read: done, Want: want, Err: ErrConnectionClosed}
	}
	terr := &TransportError{Op: op, Err: err}
	if done == 0 {
		return terr
	}
	return &IncompleteError{Read: done, Want: want, Err: terr}
}

// Writer writes framed packets.
type Writer struct {
	w      io.Writer
	framer packet.Framer
	desync bool
}

// NewWriter returns a Writer that frames with f.
func NewWriter(w io.Writer, f packet.Framer) *Writer {
	return &Writer{w: w, framer: f}
}

// SetFramer replaces the framing parameters for the next packet.
func (w *Writer) SetFramer(f packet.Framer) { w.framer = f }

// WritePacket frames p and writes it in full.
func (w *Writer) WritePacket(p *packet.Packet) error {
	return w.writePacket(p, nil)
}

func (w *Writer) writePacket(p *packet.Packet, interrupted func() error) error {
	if w.desync {
		return ErrDesynchronized
	}
	raw, err := w.framer.Frame(p)
	if err != nil {
		return err
	}

	written := 0
	for written < len(raw) {
		n, err := w.w.Write(raw[written:])
		written += n
		if err == nil && n == 0 {
			err = io.ErrShortWrite
		}
		if err != nil {
			if written > 0 {
				w.desync = true
			}
			return classify("write", written, len(raw), err, interrupted)
		}
	}
	return nil
}
