package message

import (
	"encoding/binary"
	"fmt"

	"github.com/jclement/sshwire/pkg/wire"
)

// Global request names (RFC 4254 section 7).
const (
	RequestTCPIPForward       = "tcpip-forward"
	RequestCancelTCPIPForward = "cancel-tcpip-forward"
)

// GlobalRequestType is the request-specific tail of SSH_MSG_GLOBAL_REQUEST.
type GlobalRequestType interface {
	// RequestName returns the request name sent on the wire.
	RequestName() string

	encode(w *wire.Writer)
	decode(r *wire.Reader)
}

// See RFC 4254, section 4.
type GlobalRequest struct {
	WantReply bool
	Request   GlobalRequestType
}

func (*GlobalRequest) Tag() byte { return MsgGlobalRequest }

func (m *GlobalRequest) encode(w *wire.Writer) {
	if m.Request == nil {
		w.Fail("request name", fmt.Errorf("%w: no request", wire.ErrInvalidEncoding))
		return
	}
	w.String(m.Request.RequestName())
	w.Bool(m.WantReply)
	m.Request.encode(w)
}

func (m *GlobalRequest) decode(r *wire.Reader) {
	name := r.String("request name")
	m.WantReply = r.Bool("want reply")
	if r.Err() != nil {
		return
	}
	switch name {
	case RequestTCPIPForward:
		m.Request = new(TCPIPForward)
	case RequestCancelTCPIPForward:
		m.Request = new(CancelTCPIPForward)
	default:
		m.Request = &UnknownGlobalRequest{Name: name}
	}
	m.Request.decode(r)
}

// TCPIPForward asks the server to listen on Address:Port (RFC 4254 section
// 7.1). Port 0 lets the server choose; the chosen port comes back in
// RequestSuccess.
type TCPIPForward struct {
	Address string
	Port    uint32
}

func (*TCPIPForward) RequestName() string { return RequestTCPIPForward }

func (f *TCPIPForward) encode(w *wire.Writer) {
	w.String(f.Address)
	w.Uint32(f.Port)
}

func (f *TCPIPForward) decode(r *wire.Reader) {
	f.Address = r.String("address to bind")
	f.Port = r.Uint32("port number to bind")
}

// CancelTCPIPForward cancels a TCPIPForward (RFC 4254 section 7.1).
type CancelTCPIPForward struct {
	Address string
	Port    uint32
}

func (*CancelTCPIPForward) RequestName() string { return RequestCancelTCPIPForward }

func (f *CancelTCPIPForward) encode(w *wire.Writer) {
	w.String(f.Address)
	w.Uint32(f.Port)
}

func (f *CancelTCPIPForward) decode(r *wire.Reader) {
	f.Address = r.String("address to bind")
	f.Port = r.Uint32("port number to bind")
}

// UnknownGlobalRequest keeps the data of an unmodelled global request, such
// as OpenSSH's hostkeys-00@openssh.com.
type UnknownGlobalRequest struct {
	Name string
	Data []byte
}

func (g *UnknownGlobalRequest) RequestName() string { return g.Name }

func (g *UnknownGlobalRequest) encode(w *wire.Writer) { w.Raw(g.Data) }

func (g *UnknownGlobalRequest) decode(r *wire.Reader) { g.Data = r.Rest() }

// RequestSuccess answers a global request. Its data depends on the
// request, so it is kept raw.
type RequestSuccess struct {
	Data []byte
}

func (*RequestSuccess) Tag() byte { return MsgRequestSuccess }

func (m *RequestSuccess) encode(w *wire.Writer) { w.Raw(m.Data) }

func (m *RequestSuccess) decode(r *wire.Reader) { m.Data = r.Rest() }

// BoundPort returns the port a server allocated for a tcpip-forward
// request sent with port 0.
func (m *RequestSuccess) BoundPort() (uint32, bool) {
	if len(m.Data) != 4 {
		return 0, false
	}
	return binary.BigEndian.Uint32(m.Data), true
}

// See RFC 4254, section 4.
type RequestFailure struct{}

func (*RequestFailure) Tag() byte { return MsgRequestFailure }

func (*RequestFailure) encode(*wire.Writer) {}

func (*RequestFailure) decode(*wire.Reader) {}

// Channel type names (RFC 4254 sections 6.1, 6.3.2 and 7.2).
const (
	ChannelSession        = "session"
	ChannelX11            = "x11"
	ChannelForwardedTCPIP = "forwarded-tcpip"
	ChannelDirectTCPIP    = "direct-tcpip"
)

// ChannelType is the type-specific tail of SSH_MSG_CHANNEL_OPEN.
type ChannelType interface {
	// TypeName returns the channel type name sent on the wire.
	TypeName() string

	encode(w *wire.Writer)
	decode(r *wire.Reader)
}

// See RFC 4254, section 5.1.
type ChannelOpen struct {
	SenderChannel     uint32
	InitialWindowSize uint32
	MaxPacketSize     uint32
	Channel           ChannelType
}

func (*ChannelOpen) Tag() byte { return MsgChannelOpen }

func (m *ChannelOpen) encode(w *wire.Writer) {
	if m.Channel == nil {
		w.Fail("channel type", fmt.Errorf("%w: no channel type", wire.ErrInvalidEncoding))
		return
	}
	w.String(m.Channel.TypeName())
	w.Uint32(m.SenderChannel)
	w.Uint32(m.InitialWindowSize)
	w.Uint32(m.MaxPacketSize)
	m.Channel.encode(w)
}

func (m *ChannelOpen) decode(r *wire.Reader) {
	name := r.String("channel type")
	m.SenderChannel = r.Uint32("sender channel")
	m.InitialWindowSize = r.Uint32("initial window size")
	m.MaxPacketSize = r.Uint32("maximum packet size")
	if r.Err() != nil {
		return
	}
	switch name {
	case ChannelSession:
		m.Channel = new(SessionChannel)
	case ChannelX11:
		m.Channel = new(X11Channel)
	case ChannelForwardedTCPIP:
		m.Channel = new(ForwardedTCPIPChannel)
	case ChannelDirectTCPIP:
		m.Channel = new(DirectTCPIPChannel)
	default:
		m.Channel = &UnknownChannel{Name: name}
	}
	m.Channel.decode(r)
}

// SessionChannel opens an interactive session (RFC 4254 section 6.1).
type SessionChannel struct{}

func (*SessionChannel) TypeName() string { return ChannelSession }

func (*SessionChannel) encode(*wire.Writer) {}

func (*SessionChannel) decode(*wire.Reader) {}

// X11Channel carries a forwarded X11 connection (RFC 4254 section 6.3.2).
type X11Channel struct {
	OriginatorAddress string
	OriginatorPort    uint32
}

func (*X11Channel) TypeName() string { return ChannelX11 }

func (c *X11Channel) encode(w *wire.Writer) {
	w.String(c.OriginatorAddress)
	w.Uint32(c.OriginatorPort)
}

func (c *X11Channel) decode(r *wire.Reader) {
	c.OriginatorAddress = r.String("originator address")
	c.OriginatorPort = r.Uint32("originator port")
}

// ForwardedTCPIPChannel carries a connection to a remotely forwarded port
// (RFC 4254 section 7.2).
type ForwardedTCPIPChannel struct {
	ConnectedAddress  string
	ConnectedPort     uint32
	OriginatorAddress string
	OriginatorPort    uint32
}

func (*ForwardedTCPIPChannel) TypeName() string { return ChannelForwardedTCPIP }

func (c *ForwardedTCPIPChannel) encode(w *wire.Writer) {
	w.String(c.ConnectedAddress)
	w.Uint32(c.ConnectedPort)
	w.String(c.OriginatorAddress)
	w.Uint32(c.OriginatorPort)
}

func (c *ForwardedTCPIPChannel) decode(r *wire.Reader) {
	c.ConnectedAddress = r.String("address that was connected")
	c.ConnectedPort = r.Uint32("port that was connected")
	c.OriginatorAddress = r.String("originator IP address")
	c.OriginatorPort = r.Uint32("originator port")
}

// DirectTCPIPChannel asks the peer to connect to Host:Port (RFC 4254
// section 7.2).
type DirectTCPIPChannel struct {
	Host              string
	Port              uint32
	OriginatorAddress string
	OriginatorPort    uint32
}

func (*DirectTCPIPChannel) TypeName() string { return ChannelDirectTCPIP }

func (c *DirectTCPIPChannel) encode(w *wire.Writer) {
	w.String(c.Host)
	w.Uint32(c.Port)
	w.String(c.OriginatorAddress)
	w.Uint32(c.OriginatorPort)
}

func (c *DirectTCPIPChannel) decode(r *wire.Reader) {
	c.Host = r.String("host to connect")
	c.Port = r.Uint32("port to connect")
	c.OriginatorAddress = r.String("originator IP address")
	c.OriginatorPort = r.Uint32("originator port")
}

// UnknownChannel keeps the data of an unmodelled channel type.
type UnknownChannel struct {
	Name string
	Data []byte
}

func (c *UnknownChannel) TypeName() string { return c.Name }

func (c *UnknownChannel) encode(w *wire.Writer) { w.Raw(c.Data) }

func (c *UnknownChannel) decode(r *wire.Reader) { c.Data = r.Rest() }

// See RFC 4254, section 5.1.
type ChannelOpenConfirmation struct {
	RecipientChannel  uint32
	SenderChannel     uint32
	InitialWindowSize uint32
	MaxPacketSize     uint32
	Data              []byte
}

func (*ChannelOpenConfirmation) Tag() byte { return MsgChannelOpenConfirmation }

func (m *ChannelOpenConfirmation) encode(w *wire.Writer) {
	w.Uint32(m.RecipientChannel)
	w.Uint32(m.SenderChannel)
	w.Uint32(m.InitialWindowSize)
	w.Uint32(m.MaxPacketSize)
	w.Raw(m.Data)
}

func (m *ChannelOpenConfirmation) decode(r *wire.Reader) {
	m.RecipientChannel = r.Uint32("recipient channel")
	m.SenderChannel = r.Uint32("sender channel")
	m.InitialWindowSize = r.Uint32("initial window size")
	m.MaxPacketSize = r.Uint32("maximum packet size")
	m.Data = r.Rest()
}

// See RFC 4254, section 5.1.
type ChannelOpenFailure struct {
	RecipientChannel uint32
	Reason           OpenFailureReason
	Description      string
	Language         string
}

func (*ChannelOpenFailure) Tag() byte { return MsgChannelOpenFailure }

func (m *ChannelOpenFailure) encode(w *wire.Writer) {
	w.Uint32(m.RecipientChannel)
	w.Uint32(uint32(m.Reason))
	w.String(m.Description)
	w.String(m.Language)
}

func (m *ChannelOpenFailure) decode(r *wire.Reader) {
	m.RecipientChannel = r.Uint32("recipient channel")
	m.Reason = OpenFailureReason(r.Uint32("reason code"))
	m.Description = r.String("description")
	m.Language = r.String("language tag")
}

// See RFC 4254, section 5.2.
type ChannelWindowAdjust struct {
	RecipientChannel uint32
	BytesToAdd       uint32
}

func (*ChannelWindowAdjust) Tag() byte { return MsgChannelWindowAdjust }

func (m *ChannelWindowAdjust) encode(w *wire.Writer) {
	w.Uint32(m.RecipientChannel)
	w.Uint32(m.BytesToAdd)
}

func (m *ChannelWindowAdjust) decode(r *wire.Reader) {
	m.RecipientChannel = r.Uint32("recipient channel")
	m.BytesToAdd = r.Uint32("bytes to add")
}

// See RFC 4254, section 5.2.
type ChannelData struct {
	RecipientChannel uint32
	Data             []byte
}

func (*ChannelData) Tag() byte { return MsgChannelData }

func (m *ChannelData) encode(w *wire.Writer) {
	w.Uint32(m.RecipientChannel)
	w.Bytes(m.Data)
}

func (m *ChannelData) decode(r *wire.Reader) {
	m.RecipientChannel = r.Uint32("recipient channel")
	m.Data = r.Bytes("data")
}

// ExtendedDataStderr is the only data type code RFC 4254 assigns.
const ExtendedDataStderr uint32 = 1

// See RFC 4254, section 5.2. DataType is never zero.
type ChannelExtendedData struct {
	RecipientChannel uint32
	DataType         uint32
	Data             []byte
}

func (*ChannelExtendedData) Tag() byte { return MsgChannelExtendedData }

func (m *ChannelExtendedData) encode(w *wire.Writer) {
	if m.DataType == 0 {
		w.Fail("data_type_code", fmt.Errorf("%w: zero data type", wire.ErrInvalidEncoding))
		return
	}
	w.Uint32(m.RecipientChannel)
	w.Uint32(m.DataType)
	w.Bytes(m.Data)
}

func (m *ChannelExtendedData) decode(r *wire.Reader) {
	m.RecipientChannel = r.Uint32("recipient channel")
	m.DataType = r.Uint32("data_type_code")
	if r.Err() == nil && m.DataType == 0 {
		r.Fail("data_type_code", fmt.Errorf("%w: zero data type", wire.ErrInvalidEncoding))
		return
	}
	m.Data = r.Bytes("data")
}

// See RFC 4254, section 5.3.
type ChannelEOF struct {
	RecipientChannel uint32
}

func (*ChannelEOF) Tag() byte { return MsgChannelEOF }

func (m *ChannelEOF) encode(w *wire.Writer) { w.Uint32(m.RecipientChannel) }

func (m *ChannelEOF) decode(r *wire.Reader) { m.RecipientChannel = r.Uint32("recipient channel") }

// See RFC 4254, section 5.3.
type ChannelClose struct {
	RecipientChannel uint32
}

func (*ChannelClose) Tag() byte { return MsgChannelClose }

func (m *ChannelClose) encode(w *wire.Writer) { w.Uint32(m.RecipientChannel) }

func (m *ChannelClose) decode(r *wire.Reader) { m.RecipientChannel = r.Uint32("recipient channel") }

// See RFC 4254, section 5.4.
type ChannelSuccess struct {
	RecipientChannel uint32
}

func (*ChannelSuccess) Tag() byte { return MsgChannelSuccess }

func (m *ChannelSuccess) encode(w *wire.Writer) { w.Uint32(m.RecipientChannel) }

func (m *ChannelSuccess) decode(r *wire.Reader) { m.RecipientChannel = r.Uint32("recipient channel") }

// See RFC 4254, section 5.4.
type ChannelFailure struct {
	RecipientChannel uint32
}

func (*ChannelFailure) Tag() byte { return MsgChannelFailure }

func (m *ChannelFailure) encode(w *wire.Writer) { w.Uint32(m.RecipientChannel) }

func (m *ChannelFailure) decode(r *wire.Reader) { m.RecipientChannel = r.Uint32("recipient channel") }
