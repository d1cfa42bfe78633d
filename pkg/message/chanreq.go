package message

import (
	"fmt"

	"github.com/jclement/sshwire/pkg/wire"
)

// Channel request names (RFC 4254 section 6).
const (
	RequestPTY          = "pty-req"
	RequestX11          = "x11-req"
	RequestEnv          = "env"
	RequestShell        = "shell"
	RequestExec         = "exec"
	RequestSubsystem    = "subsystem"
	RequestWindowChange = "window-change"
	RequestXonXoff      = "xon-xoff"
	RequestSignal       = "signal"
	RequestExitStatus   = "exit-status"
	RequestExitSignal   = "exit-signal"
)

// ChannelRequestType is the request-specific tail of
// SSH_MSG_CHANNEL_REQUEST.
type ChannelRequestType interface {
	// RequestName returns the request type sent on the wire.
	RequestName() string

	encode(w *wire.Writer)
	decode(r *wire.Reader)
}

// See RFC 4254, section 5.4.
type ChannelRequest struct {
	RecipientChannel uint32
	WantReply        bool
	Request          ChannelRequestType
}

func (*ChannelRequest) Tag() byte { return MsgChannelRequest }

func (m *ChannelRequest) encode(w *wire.Writer) {
	if m.Request == nil {
		w.Fail("request type", fmt.Errorf("%w: no request", wire.ErrInvalidEncoding))
		return
	}
	w.Uint32(m.RecipientChannel)
	w.String(m.Request.RequestName())
	w.Bool(m.WantReply)
	m.Request.encode(w)
}

func (m *ChannelRequest) decode(r *wire.Reader) {
	m.RecipientChannel = r.Uint32("recipient channel")
	name := r.String("request type")
	m.WantReply = r.Bool("want reply")
	if r.Err() != nil {
		return
	}
	switch name {
	case RequestPTY:
		m.Request = new(PTYRequest)
	case RequestX11:
		m.Request = new(X11Request)
	case RequestEnv:
		m.Request = new(EnvRequest)
	case RequestShell:
		m.Request = new(ShellRequest)
	case RequestExec:
		m.Request = new(ExecRequest)
	case RequestSubsystem:
		m.Request = new(SubsystemRequest)
	case RequestWindowChange:
		m.Request = new(WindowChangeRequest)
	case RequestXonXoff:
		m.Request = new(XonXoffRequest)
	case RequestSignal:
		m.Request = new(SignalRequest)
	case RequestExitStatus:
		m.Request = new(ExitStatusRequest)
	case RequestExitSignal:
		m.Request = new(ExitSignalRequest)
	default:
		m.Request = &UnknownChannelRequest{Name: name}
	}
	m.Request.decode(r)
}

// PTYRequest allocates a pseudo-terminal (RFC 4254 section 6.2). Modes is
// the encoded terminal modes string of section 8.
type PTYRequest struct {
	Term         string
	Columns      uint32
	Rows         uint32
	WidthPixels  uint32
	HeightPixels uint32
	Modes        []byte
}

func (*PTYRequest) RequestName() string { return RequestPTY }

func (p *PTYRequest) encode(w *wire.Writer) {
	w.String(p.Term)
	w.Uint32(p.Columns)
	w.Uint32(p.Rows)
	w.Uint32(p.WidthPixels)
	w.Uint32(p.HeightPixels)
	w.Bytes(p.Modes)
}

func (p *PTYRequest) decode(r *wire.Reader) {
	p.Term = r.String("TERM environment variable value")
	p.Columns = r.Uint32("terminal width, characters")
	p.Rows = r.Uint32("terminal height, rows")
	p.WidthPixels = r.Uint32("terminal width, pixels")
	p.HeightPixels = r.Uint32("terminal height, pixels")
	p.Modes = r.Bytes("encoded terminal modes")
}

// X11Request asks for X11 forwarding (RFC 4254 section 6.3.1).
type X11Request struct {
	SingleConnection bool
	AuthProtocol     string
	AuthCookie       string
	ScreenNumber     uint32
}

func (*X11Request) RequestName() string { return RequestX11 }

func (x *X11Request) encode(w *wire.Writer) {
	w.Bool(x.SingleConnection)
	w.String(x.AuthProtocol)
	w.String(x.AuthCookie)
	w.Uint32(x.ScreenNumber)
}

func (x *X11Request) decode(r *wire.Reader) {
	x.SingleConnection = r.Bool("single connection")
	x.AuthProtocol = r.String("x11 authentication protocol")
	x.AuthCookie = r.String("x11 authentication cookie")
	x.ScreenNumber = r.Uint32("x11 screen number")
}

// EnvRequest passes an environment variable (RFC 4254 section 6.4).
type EnvRequest struct {
	Name  string
	Value string
}

func (*EnvRequest) RequestName() string { return RequestEnv }

func (e *EnvRequest) encode(w *wire.Writer) {
	w.String(e.Name)
	w.String(e.Value)
}

func (e *EnvRequest) decode(r *wire.Reader) {
	e.Name = r.String("variable name")
	e.Value = r.String("variable value")
}

// ShellRequest starts the user's default shell (RFC 4254 section 6.5).
type ShellRequest struct{}

func (*ShellRequest) RequestName() string { return RequestShell }

func (*ShellRequest) encode(*wire.Writer) {}

func (*ShellRequest) decode(*wire.Reader) {}

// ExecRequest runs a command (RFC 4254 section 6.5).
type ExecRequest struct {
	Command string
}

func (*ExecRequest) RequestName() string { return RequestExec }

func (e *ExecRequest) encode(w *wire.Writer) { w.String(e.Command) }

func (e *ExecRequest) decode(r *wire.Reader) { e.Command = r.String("command") }

// SubsystemRequest starts a named subsystem such as sftp (RFC 4254
// section 6.5).
type SubsystemRequest struct {
	Name string
}

func (*SubsystemRequest) RequestName() string { return RequestSubsystem }

func (s *SubsystemRequest) encode(w *wire.Writer) { w.String(s.Name) }

func (s *SubsystemRequest) decode(r *wire.Reader) { s.Name = r.String("subsystem name") }

// WindowChangeRequest reports a terminal resize (RFC 4254 section 6.7).
type WindowChangeRequest struct {
	Columns      uint32
	Rows         uint32
	WidthPixels  uint32
	HeightPixels uint32
}

func (*WindowChangeRequest) RequestName() string { return RequestWindowChange }

func (c *WindowChangeRequest) encode(w *wire.Writer) {
	w.Uint32(c.Columns)
	w.Uint32(c.Rows)
	w.Uint32(c.WidthPixels)
	w.Uint32(c.HeightPixels)
}

func (c *WindowChangeRequest) decode(r *wire.Reader) {
	c.Columns = r.Uint32("terminal width, columns")
	c.Rows = r.Uint32("terminal height, rows")
	c.WidthPixels = r.Uint32("terminal width, pixels")
	c.HeightPixels = r.Uint32("terminal height, pixels")
}

// XonXoffRequest tells the client whether it may do flow control (RFC 4254
// section 6.8).
type XonXoffRequest struct {
	ClientCanDo bool
}

func (*XonXoffRequest) RequestName() string { return RequestXonXoff }

func (x *XonXoffRequest) encode(w *wire.Writer) { w.Bool(x.ClientCanDo) }

func (x *XonXoffRequest) decode(r *wire.Reader) { x.ClientCanDo = r.Bool("client can do") }

// SignalRequest delivers a signal, named without the "SIG" prefix (RFC 4254
// section 6.9).
type SignalRequest struct {
	Signal string
}

func (*SignalRequest) RequestName() string { return RequestSignal }

func (s *SignalRequest) encode(w *wire.Writer) { w.String(s.Signal) }

func (s *SignalRequest) decode(r *wire.Reader) { s.Signal = r.String("signal name") }

// ExitStatusRequest reports the exit status of the remote command (RFC 4254
// section 6.10).
type ExitStatusRequest struct {
	Status uint32
}

func (*ExitStatusRequest) RequestName() string { return RequestExitStatus }

func (e *ExitStatusRequest) encode(w *wire.Writer) { w.Uint32(e.Status) }

func (e *ExitStatusRequest) decode(r *wire.Reader) { e.Status = r.Uint32("exit_status") }

// ExitSignalRequest reports that the remote command died from a signal
// (RFC 4254 section 6.10).
type ExitSignalRequest struct {
	Signal     string
	CoreDumped bool
	Message    string
	Language   string
}

func (*ExitSignalRequest) RequestName() string { return RequestExitSignal }

func (e *ExitSignalRequest) encode(w *wire.Writer) {
	w.String(e.Signal)
	w.Bool(e.CoreDumped)
	w.String(e.Message)
	w.String(e.Language)
}

func (e *ExitSignalRequest) decode(r *wire.Reader) {
	e.Signal = r.String("signal name")
	e.CoreDumped = r.Bool("core dumped")
	e.Message = r.String("error message")
	e.Language = r.String("language tag")
}

// UnknownChannelRequest keeps the data of an unmodelled request such as
// auth-agent-req@openssh.com or keepalive@openssh.com.
type UnknownChannelRequest struct {
	Name string
	Data []byte
}

func (u *UnknownChannelRequest) RequestName() string { return u.Name }

func (u *UnknownChannelRequest) encode(w *wire.Writer) { w.Raw(u.Data) }

func (u *UnknownChannelRequest) decode(r *wire.Reader) { u.Data = r.Rest() }
