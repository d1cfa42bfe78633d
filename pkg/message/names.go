package message

import "fmt"

var names = map[byte]string{
	MsgDisconnect:              "SSH_MSG_DISCONNECT",
	MsgIgnore:                  "SSH_MSG_IGNORE",
	MsgUnimplemented:           "SSH_MSG_UNIMPLEMENTED",
	MsgDebug:                   "SSH_MSG_DEBUG",
	MsgServiceRequest:          "SSH_MSG_SERVICE_REQUEST",
	MsgServiceAccept:           "SSH_MSG_SERVICE_ACCEPT",
	MsgExtInfo:                 "SSH_MSG_EXT_INFO",
	MsgKexInit:                 "SSH_MSG_KEXINIT",
	MsgNewKeys:                 "SSH_MSG_NEWKEYS",
	MsgKexDHInit:               "SSH_MSG_KEXDH_INIT",
	MsgKexDHReply:              "SSH_MSG_KEXDH_REPLY",
	MsgUserAuthRequest:         "SSH_MSG_USERAUTH_REQUEST",
	MsgUserAuthFailure:         "SSH_MSG_USERAUTH_FAILURE",
	MsgUserAuthSuccess:         "SSH_MSG_USERAUTH_SUCCESS",
	MsgUserAuthBanner:          "SSH_MSG_USERAUTH_BANNER",
	MsgUserAuthPKOK:            "SSH_MSG_USERAUTH_PK_OK",
	MsgUserAuthInfoResponse:    "SSH_MSG_USERAUTH_INFO_RESPONSE",
	MsgGlobalRequest:           "SSH_MSG_GLOBAL_REQUEST",
	MsgRequestSuccess:          "SSH_MSG_REQUEST_SUCCESS",
	MsgRequestFailure:          "SSH_MSG_REQUEST_FAILURE",
	MsgChannelOpen:             "SSH_MSG_CHANNEL_OPEN",
	MsgChannelOpenConfirmation: "SSH_MSG_CHANNEL_OPEN_CONFIRMATION",
	MsgChannelOpenFailure:      "SSH_MSG_CHANNEL_OPEN_FAILURE",
	MsgChannelWindowAdjust:     "SSH_MSG_CHANNEL_WINDOW_ADJUST",
	MsgChannelData:             "SSH_MSG_CHANNEL_DATA",
	MsgChannelExtendedData:     "SSH_MSG_CHANNEL_EXTENDED_DATA",
	MsgChannelEOF:              "SSH_MSG_CHANNEL_EOF",
	MsgChannelClose:            "SSH_MSG_CHANNEL_CLOSE",
	MsgChannelRequest:          "SSH_MSG_CHANNEL_REQUEST",
	MsgChannelSuccess:          "SSH_MSG_CHANNEL_SUCCESS",
	MsgChannelFailure:          "SSH_MSG_CHANNEL_FAILURE",
}

// Name returns the registry name of a message number. Numbers shared by
// several layouts report the first registered one, so 30 is
// SSH_MSG_KEXDH_INIT and 60 is SSH_MSG_USERAUTH_PK_OK; NameOf tells them
// apart. Unassigned numbers are reported as SSH_MSG_UNKNOWN_<n>.
func Name(tag byte) string {
	if s, ok := names[tag]; ok {
		return s
	}
	return fmt.Sprintf("SSH_MSG_UNKNOWN_%d", tag)
}

// NameOf returns the registry name of m's concrete layout.
func NameOf(m Message) string {
	switch m.(type) {
	case *KexECDHInit:
		return "SSH_MSG_KEX_ECDH_INIT"
	case *KexECDHReply:
		return "SSH_MSG_KEX_ECDH_REPLY"
	case *UserAuthPasswdChangeReq:
		return "SSH_MSG_USERAUTH_PASSWD_CHANGEREQ"
	case *UserAuthInfoRequest:
		return "SSH_MSG_USERAUTH_INFO_REQUEST"
	}
	return Name(m.Tag())
}
