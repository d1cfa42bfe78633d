package stream

import (
	"context"
	"io"
	"time"

	"github.com/jclement/sshwire/pkg/packet"
)

// Transport is a byte stream with deadlines, such as a net.Conn.
type Transport interface {
	io.ReadWriter
	SetReadDeadline(t time.Time) error
	SetWriteDeadline(t time.Time) error
}

// Conn reads and writes packets over a Transport. One goroutine may read
// while another writes.
type Conn struct {
	t Transport
	r *Reader
	w *Writer
}

// NewConn returns a Conn using f for both directions.
func NewConn(t Transport, f packet.Framer) *Conn {
	return &Conn{t: t, r: NewReader(t, f), w: NewWriter(t, f)}
}

// Reader returns the inbound direction.
func (c *Conn) Reader() *Reader { return c.r }

// Writer returns the outbound direction.
func (c *Conn) Writer() *Writer { return c.w }

// ReadPacket reads one packet without a context.
func (c *Conn) ReadPacket() (*packet.Packet, error) { return c.r.ReadPacket() }

// WritePacket writes one packet without a context.
func (c *Conn) WritePacket(p *packet.Packet) error { return c.w.WritePacket(p) }

// ReadPacketContext reads one packet, giving up when ctx is done. An
// interrupted read returns an *IncompleteError wrapping ctx.Err(); if any
// bytes of the packet had arrived the Conn no longer reads.
func (c *Conn) ReadPacketContext(ctx context.Context) (*packet.Packet, error) {
	if err := ctx.Err(); err != nil {
		return nil, &IncompleteError{Want: 4, Err: err}
	}
	defer watch(ctx, c.t.SetReadDeadline)()
	return c.r.readPacket(ctx.Err)
}

// WritePacketContext writes one packet, giving up when ctx is done.
func (c *Conn) WritePacketContext(ctx context.Context, p *packet.Packet) error {
	if err := ctx.Err(); err != nil {
		return &IncompleteError{Err: err}
	}
	defer watch(ctx, c.t.SetWriteDeadline)()
	return c.w.writePacket(p, ctx.Err)
}

// watch moves the deadline into the past once ctx is done, which unblocks
// the pending call. The returned func clears the deadline again.
func watch(ctx context.Context, setDeadline func(time.Time) error) func() {
	fired := make(chan struct{})
	stop := context.AfterFunc(ctx, func() {
		_ = setDeadline(time.Unix(1, 0))
		close(fired)
	})
	return func() {
		if !stop() {
			<-fired
			_ = setDeadline(time.Time{})
		}
	}
}
