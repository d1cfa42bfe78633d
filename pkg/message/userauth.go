package message

import (
	"fmt"

	"github.com/jclement/sshwire/pkg/wire"
)

// Authentication method names.
const (
	MethodNone                = "none"
	MethodPublicKey           = "publickey"
	MethodPassword            = "password"
	MethodHostbased           = "hostbased"
	MethodKeyboardInteractive = "keyboard-interactive"
)

// AuthMethod is the method-specific tail of SSH_MSG_USERAUTH_REQUEST.
type AuthMethod interface {
	// Method returns the method name sent on the wire.
	Method() string

	encode(w *wire.Writer)
	decode(r *wire.Reader)
}

// See RFC 4252, section 5.
type UserAuthRequest struct {
	User    string
	Service string
	Auth    AuthMethod
}

func (*UserAuthRequest) Tag() byte { return MsgUserAuthRequest }

func (m *UserAuthRequest) encode(w *wire.Writer) {
	w.String(m.User)
	w.String(m.Service)
	if m.Auth == nil {
		w.Fail("method", fmt.Errorf("%w: no authentication method", wire.ErrInvalidEncoding))
		return
	}
	w.String(m.Auth.Method())
	m.Auth.encode(w)
}

func (m *UserAuthRequest) decode(r *wire.Reader) {
	m.User = r.String("user name")
	m.Service = r.String("service name")
	method := r.String("method name")
	if r.Err() != nil {
		return
	}
	switch method {
	case MethodNone:
		m.Auth = new(NoneAuth)
	case MethodPublicKey:
		m.Auth = new(PublicKeyAuth)
	case MethodPassword:
		m.Auth = new(PasswordAuth)
	case MethodHostbased:
		m.Auth = new(HostbasedAuth)
	case MethodKeyboardInteractive:
		m.Auth = new(KeyboardInteractiveAuth)
	default:
		m.Auth = &UnknownAuth{Name: method}
	}
	m.Auth.decode(r)
}

// NoneAuth is the "none" method (RFC 4252 section 5.2).
type NoneAuth struct{}

func (*NoneAuth) Method() string { return MethodNone }

func (*NoneAuth) encode(*wire.Writer) {}

func (*NoneAuth) decode(*wire.Reader) {}

// PublicKeyAuth is the "publickey" method (RFC 4252 section 7). A nil
// Signature sends the query form that asks whether the key is acceptable.
type PublicKeyAuth struct {
	Algorithm string
	PublicKey []byte
	Signature []byte
}

func (*PublicKeyAuth) Method() string { return MethodPublicKey }

func (a *PublicKeyAuth) encode(w *wire.Writer) {
	w.Bool(a.Signature != nil)
	w.String(a.Algorithm)
	w.Bytes(a.PublicKey)
	if a.Signature != nil {
		w.Bytes(a.Signature)
	}
}

func (a *PublicKeyAuth) decode(r *wire.Reader) {
	signed := r.Bool("has signature")
	a.Algorithm = r.String("public key algorithm name")
	a.PublicKey = r.Bytes("public key blob")
	if signed {
		a.Signature = r.Bytes("signature")
	}
}

// PasswordAuth is the "password" method (RFC 4252 section 8). Change
// requests a password change to NewPassword.
type PasswordAuth struct {
	Change      bool
	Password    string
	NewPassword string
}

func (*PasswordAuth) Method() string { return MethodPassword }

func (a *PasswordAuth) encode(w *wire.Writer) {
	w.Bool(a.Change)
	w.String(a.Password)
	if a.Change {
		w.String(a.NewPassword)
	}
}

func (a *PasswordAuth) decode(r *wire.Reader) {
	a.Change = r.Bool("change")
	a.Password = r.String("password")
	if a.Change {
		a.NewPassword = r.String("new password")
	}
}

// HostbasedAuth is the "hostbased" method (RFC 4252 section 9).
type HostbasedAuth struct {
	Algorithm  string
	PublicKey  []byte
	ClientHost string
	ClientUser string
	Signature  []byte
}

func (*HostbasedAuth) Method() string { return MethodHostbased }

func (a *HostbasedAuth) encode(w *wire.Writer) {
	w.String(a.Algorithm)
	w.Bytes(a.PublicKey)
	w.String(a.ClientHost)
	w.String(a.ClientUser)
	w.Bytes(a.Signature)
}

func (a *HostbasedAuth) decode(r *wire.Reader) {
	a.Algorithm = r.String("public key algorithm for host key")
	a.PublicKey = r.Bytes("public host key")
	a.ClientHost = r.String("client host name")
	a.ClientUser = r.String("user name on the client host")
	a.Signature = r.Bytes("signature")
}

// KeyboardInteractiveAuth is the "keyboard-interactive" method (RFC 4256
// section 3.1).
type KeyboardInteractiveAuth struct {
	Language   string
	Submethods string
}

func (*KeyboardInteractiveAuth) Method() string { return MethodKeyboardInteractive }

func (a *KeyboardInteractiveAuth) encode(w *wire.Writer) {
	w.String(a.Language)
	w.String(a.Submethods)
}

func (a *KeyboardInteractiveAuth) decode(r *wire.Reader) {
	a.Language = r.String("language tag")
	a.Submethods = r.String("submethods")
}

// UnknownAuth keeps the fields of a method this package does not model.
type UnknownAuth struct {
	Name string
	Data []byte
}

func (a *UnknownAuth) Method() string { return a.Name }

func (a *UnknownAuth) encode(w *wire.Writer) { w.Raw(a.Data) }

func (a *UnknownAuth) decode(r *wire.Reader) { a.Data = r.Rest() }

// See RFC 4252, section 5.1.
type UserAuthFailure struct {
	Methods        []string
	PartialSuccess bool
}

func (*UserAuthFailure) Tag() byte { return MsgUserAuthFailure }

func (m *UserAuthFailure) encode(w *wire.Writer) {
	w.NameList("authentications that can continue", m.Methods)
	w.Bool(m.PartialSuccess)
}

func (m *UserAuthFailure) decode(r *wire.Reader) {
	m.Methods = r.NameList("authentications that can continue")
	m.PartialSuccess = r.Bool("partial success")
}

// See RFC 4252, section 5.1.
type UserAuthSuccess struct{}

func (*UserAuthSuccess) Tag() byte { return MsgUserAuthSuccess }

func (*UserAuthSuccess) encode(*wire.Writer) {}

func (*UserAuthSuccess) decode(*wire.Reader) {}

// See RFC 4252, section 5.4.
type UserAuthBanner struct {
	Message  string
	Language string
}

func (*UserAuthBanner) Tag() byte { return MsgUserAuthBanner }

func (m *UserAuthBanner) encode(w *wire.Writer) {
	w.String(m.Message)
	w.String(m.Language)
}

func (m *UserAuthBanner) decode(r *wire.Reader) {
	m.Message = r.String("message")
	m.Language = r.String("language tag")
}

// UserAuthPKOK accepts a publickey query (RFC 4252 section 7).
type UserAuthPKOK struct {
	Algorithm string
	PublicKey []byte
}

func (*UserAuthPKOK) Tag() byte { return MsgUserAuthPKOK }

func (m *UserAuthPKOK) encode(w *wire.Writer) {
	w.String(m.Algorithm)
	w.Bytes(m.PublicKey)
}

func (m *UserAuthPKOK) decode(r *wire.Reader) {
	m.Algorithm = r.String("public key algorithm name")
	m.PublicKey = r.Bytes("public key blob")
}

// UserAuthPasswdChangeReq asks the client to change its password (RFC 4252
// section 8).
type UserAuthPasswdChangeReq struct {
	Prompt   string
	Language string
}

func (*UserAuthPasswdChangeReq) Tag() byte { return MsgUserAuthPasswdChangeReq }

func (m *UserAuthPasswdChangeReq) encode(w *wire.Writer) {
	w.String(m.Prompt)
	w.String(m.Language)
}

func (m *UserAuthPasswdChangeReq) decode(r *wire.Reader) {
	m.Prompt = r.String("prompt")
	m.Language = r.String("language tag")
}

// Prompt is one question of a keyboard-interactive info request.
type Prompt struct {
	Text string
	Echo bool
}

// UserAuthInfoRequest carries keyboard-interactive prompts (RFC 4256
// section 3.2).
type UserAuthInfoRequest struct {
	Name        string
	Instruction string
	Language    string
	Prompts     []Prompt
}

func (*UserAuthInfoRequest) Tag() byte { return MsgUserAuthInfoRequest }

func (m *UserAuthInfoRequest) encode(w *wire.Writer) {
	w.String(m.Name)
	w.String(m.Instruction)
	w.String(m.Language)
	w.Uint32(uint32(len(m.Prompts)))
	for _, p := range m.Prompts {
		w.String(p.Text)
		w.Bool(p.Echo)
	}
}

func (m *UserAuthInfoRequest) decode(r *wire.Reader) {
	m.Name = r.String("name")
	m.Instruction = r.String("instruction")
	m.Language = r.String("language tag")
	n := readCount(r, "num-prompts", 5)
	for i := 0; i < n && r.Err() == nil; i++ {
		m.Prompts = append(m.Prompts, Prompt{
			Text: r.String("prompt"),
			Echo: r.Bool("echo"),
		})
	}
}

// UserAuthInfoResponse answers a keyboard-interactive info request
// (RFC 4256 section 3.4).
type UserAuthInfoResponse struct {
	Responses []string
}

func (*UserAuthInfoResponse) Tag() byte { return MsgUserAuthInfoResponse }

func (m *UserAuthInfoResponse) encode(w *wire.Writer) {
	w.Uint32(uint32(len(m.Responses)))
	for _, s := range m.Responses {
		w.String(s)
	}
}

func (m *UserAuthInfoResponse) decode(r *wire.Reader) {
	n := readCount(r, "num-responses", 4)
	for i := 0; i < n && r.Err() == nil; i++ {
		m.Responses = append(m.Responses, r.String("response"))
	}
}
