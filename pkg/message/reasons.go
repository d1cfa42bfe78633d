package message

import "fmt"

// DisconnectReason is the reason code of SSH_MSG_DISCONNECT (RFC 4253
// section 11.1). Codes outside the registry are carried unchanged.
type DisconnectReason uint32

const (
	HostNotAllowedToConnect     DisconnectReason = 1
	ProtocolError               DisconnectReason = 2
	KeyExchangeFailed           DisconnectReason = 3
	Reserved                    DisconnectReason = 4
	MACError                    DisconnectReason = 5
	CompressionError            DisconnectReason = 6
	ServiceNotAvailable         DisconnectReason = 7
	ProtocolVersionNotSupported DisconnectReason = 8
	HostKeyNotVerifiable        DisconnectReason = 9
	ConnectionLost              DisconnectReason = 10
	ByApplication               DisconnectReason = 11
	TooManyConnections          DisconnectReason = 12
	AuthCancelledByUser         DisconnectReason = 13
	NoMoreAuthMethodsAvailable  DisconnectReason = 14
	IllegalUserName             DisconnectReason = 15
)

var disconnectReasons = map[DisconnectReason]string{
	HostNotAllowedToConnect:     "host not allowed to connect",
	ProtocolError:               "protocol error",
	KeyExchangeFailed:           "key exchange failed",
	Reserved:                    "reserved",
	MACError:                    "mac error",
	CompressionError:            "compression error",
	ServiceNotAvailable:         "service not available",
	ProtocolVersionNotSupported: "protocol version not supported",
	HostKeyNotVerifiable:        "host key not verifiable",
	ConnectionLost:              "connection lost",
	ByApplication:               "by application",
	TooManyConnections:          "too many connections",
	AuthCancelledByUser:         "auth cancelled by user",
	NoMoreAuthMethodsAvailable:  "no more auth methods available",
	IllegalUserName:             "illegal user name",
}

func (r DisconnectReason) String() string {
	if s, ok := disconnectReasons[r]; ok {
		return s
	}
	return fmt.Sprintf("unknown reason %d", uint32(r))
}

// OpenFailureReason is the reason code of SSH_MSG_CHANNEL_OPEN_FAILURE
// (RFC 4254 section 5.1).
type OpenFailureReason uint32

const (
	AdministrativelyProhibited OpenFailureReason = 1
	ConnectFailed              OpenFailureReason = 2
	UnknownChannelType         OpenFailureReason = 3
	ResourceShortage           OpenFailureReason = 4
)

func (r OpenFailureReason) String() string {
	switch r {
	case AdministrativelyProhibited:
		return "administratively prohibited"
	case ConnectFailed:
		return "connect failed"
	case UnknownChannelType:
		return "unknown channel type"
	case ResourceShortage:
		return "resource shortage"
	}
	return fmt.Sprintf("unknown reason %d", uint32(r))
}
