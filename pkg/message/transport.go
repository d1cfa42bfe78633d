package message

import (
	"math/big"

	"github.com/jclement/sshwire/pkg/wire"
)

// See RFC 4253, section 11.1.
type Disconnect struct {
	Reason      DisconnectReason
	Description string
	Language    string
}

func (*Disconnect) Tag() byte { return MsgDisconnect }

func (m *Disconnect) encode(w *wire.Writer) {
	w.Uint32(uint32(m.Reason))
	w.String(m.Description)
	w.String(m.Language)
}

func (m *Disconnect) decode(r *wire.Reader) {
	m.Reason = DisconnectReason(r.Uint32("reason code"))
	m.Description = r.String("description")
	m.Language = r.String("language tag")
}

// See RFC 4253, section 11.2.
type Ignore struct {
	Data []byte
}

func (*Ignore) Tag() byte { return MsgIgnore }

func (m *Ignore) encode(w *wire.Writer) { w.Bytes(m.Data) }

func (m *Ignore) decode(r *wire.Reader) { m.Data = r.Bytes("data") }

// See RFC 4253, section 11.4.
type Unimplemented struct {
	SequenceNumber uint32
}

func (*Unimplemented) Tag() byte { return MsgUnimplemented }

func (m *Unimplemented) encode(w *wire.Writer) { w.Uint32(m.SequenceNumber) }

func (m *Unimplemented) decode(r *wire.Reader) {
	m.SequenceNumber = r.Uint32("sequence number")
}

// See RFC 4253, section 11.3.
type Debug struct {
	AlwaysDisplay bool
	Message       string
	Language      string
}

func (*Debug) Tag() byte { return MsgDebug }

func (m *Debug) encode(w *wire.Writer) {
	w.Bool(m.AlwaysDisplay)
	w.String(m.Message)
	w.String(m.Language)
}

func (m *Debug) decode(r *wire.Reader) {
	m.AlwaysDisplay = r.Bool("always_display")
	m.Message = r.String("message")
	m.Language = r.String("language tag")
}

// See RFC 4253, section 10.
type ServiceRequest struct {
	Service string
}

func (*ServiceRequest) Tag() byte { return MsgServiceRequest }

func (m *ServiceRequest) encode(w *wire.Writer) { w.String(m.Service) }

func (m *ServiceRequest) decode(r *wire.Reader) { m.Service = r.String("service name") }

// See RFC 4253, section 10.
type ServiceAccept struct {
	Service string
}

func (*ServiceAccept) Tag() byte { return MsgServiceAccept }

func (m *ServiceAccept) encode(w *wire.Writer) { w.String(m.Service) }

func (m *ServiceAccept) decode(r *wire.Reader) { m.Service = r.String("service name") }

// Extension is one name/value pair of SSH_MSG_EXT_INFO.
type Extension struct {
	Name  string
	Value []byte
}

// ExtInfo announces protocol extensions (RFC 8308 section 2.3).
type ExtInfo struct {
	Extensions []Extension
}

func (*ExtInfo) Tag() byte { return MsgExtInfo }

func (m *ExtInfo) encode(w *wire.Writer) {
	w.Uint32(uint32(len(m.Extensions)))
	for _, e := range m.Extensions {
		w.String(e.Name)
		w.Bytes(e.Value)
	}
}

func (m *ExtInfo) decode(r *wire.Reader) {
	n := readCount(r, "nr-extensions", 8)
	for i := 0; i < n && r.Err() == nil; i++ {
		m.Extensions = append(m.Extensions, Extension{
			Name:  r.String("extension-name"),
			Value: r.Bytes("extension-value"),
		})
	}
}

// Lookup returns the value of the named extension.
func (m *ExtInfo) Lookup(name string) ([]byte, bool) {
	for _, e := range m.Extensions {
		if e.Name == name {
			return e.Value, true
		}
	}
	return nil, false
}

// See RFC 4253, section 7.1.
type KexInit struct {
	Cookie                  [16]byte
	KexAlgos                []string
	ServerHostKeyAlgos      []string
	CiphersClientServer     []string
	CiphersServerClient     []string
	MACsClientServer        []string
	MACsServerClient        []string
	CompressionClientServer []string
	CompressionServerClient []string
	LanguagesClientServer   []string
	LanguagesServerClient   []string
	FirstKexFollows         bool
	Reserved                uint32
}

func (*KexInit) Tag() byte { return MsgKexInit }

func (m *KexInit) encode(w *wire.Writer) {
	w.Raw(m.Cookie[:])
	w.NameList("kex_algorithms", m.KexAlgos)
	w.NameList("server_host_key_algorithms", m.ServerHostKeyAlgos)
	w.NameList("encryption_algorithms_client_to_server", m.CiphersClientServer)
	w.NameList("encryption_algorithms_server_to_client", m.CiphersServerClient)
	w.NameList("mac_algorithms_client_to_server", m.MACsClientServer)
	w.NameList("mac_algorithms_server_to_client", m.MACsServerClient)
	w.NameList("compression_algorithms_client_to_server", m.CompressionClientServer)
	w.NameList("compression_algorithms_server_to_client", m.CompressionServerClient)
	w.NameList("languages_client_to_server", m.LanguagesClientServer)
	w.NameList("languages_server_to_client", m.LanguagesServerClient)
	w.Bool(m.FirstKexFollows)
	w.Uint32(m.Reserved)
}

func (m *KexInit) decode(r *wire.Reader) {
	copy(m.Cookie[:], r.Fixed("cookie", len(m.Cookie)))
	m.KexAlgos = r.NameList("kex_algorithms")
	m.ServerHostKeyAlgos = r.NameList("server_host_key_algorithms")
	m.CiphersClientServer = r.NameList("encryption_algorithms_client_to_server")
	m.CiphersServerClient = r.NameList("encryption_algorithms_server_to_client")
	m.MACsClientServer = r.NameList("mac_algorithms_client_to_server")
	m.MACsServerClient = r.NameList("mac_algorithms_server_to_client")
	m.CompressionClientServer = r.NameList("compression_algorithms_client_to_server")
	m.CompressionServerClient = r.NameList("compression_algorithms_server_to_client")
	m.LanguagesClientServer = r.NameList("languages_client_to_server")
	m.LanguagesServerClient = r.NameList("languages_server_to_client")
	m.FirstKexFollows = r.Bool("first_kex_packet_follows")
	m.Reserved = r.Uint32("reserved")
}

// See RFC 4253, section 7.3.
type NewKeys struct{}

func (*NewKeys) Tag() byte { return MsgNewKeys }

func (*NewKeys) encode(*wire.Writer) {}

func (*NewKeys) decode(*wire.Reader) {}

// KexDHInit carries the client's Diffie-Hellman value (RFC 4253 section 8).
type KexDHInit struct {
	E *big.Int
}

func (*KexDHInit) Tag() byte { return MsgKexDHInit }

func (m *KexDHInit) encode(w *wire.Writer) { w.MPInt(m.E) }

func (m *KexDHInit) decode(r *wire.Reader) { m.E = r.MPInt("e") }

// KexDHReply carries the server's host key, Diffie-Hellman value and
// exchange-hash signature (RFC 4253 section 8).
type KexDHReply struct {
	HostKey   []byte
	F         *big.Int
	Signature []byte
}

func (*KexDHReply) Tag() byte { return MsgKexDHReply }

func (m *KexDHReply) encode(w *wire.Writer) {
	w.Bytes(m.HostKey)
	w.MPInt(m.F)
	w.Bytes(m.Signature)
}

func (m *KexDHReply) decode(r *wire.Reader) {
	m.HostKey = r.Bytes("K_S")
	m.F = r.MPInt("f")
	m.Signature = r.Bytes("signature of H")
}

// KexECDHInit carries the client's ephemeral public key (RFC 5656 section 4).
type KexECDHInit struct {
	ClientPublic []byte
}

func (*KexECDHInit) Tag() byte { return MsgKexECDHInit }

func (m *KexECDHInit) encode(w *wire.Writer) { w.Bytes(m.ClientPublic) }

func (m *KexECDHInit) decode(r *wire.Reader) { m.ClientPublic = r.Bytes("Q_C") }

// KexECDHReply carries the server's host key, ephemeral public key and
// exchange-hash signature (RFC 5656 section 4).
type KexECDHReply struct {
	HostKey      []byte
	ServerPublic []byte
	Signature    []byte
}

func (*KexECDHReply) Tag() byte { return MsgKexECDHReply }

func (m *KexECDHReply) encode(w *wire.Writer) {
	w.Bytes(m.HostKey)
	w.Bytes(m.ServerPublic)
	w.Bytes(m.Signature)
}

func (m *KexECDHReply) decode(r *wire.Reader) {
	m.HostKey = r.Bytes("K_S")
	m.ServerPublic = r.Bytes("Q_S")
	m.Signature = r.Bytes("signature of H")
}
