package message

import (
	"errors"
	"fmt"
	"strings"
)

// MaxIdentificationLength is the longest identification line RFC 4253
// section 4.2 allows, CR LF included.
const MaxIdentificationLength = 255

// ErrInvalidIdentification reports a malformed protocol version exchange
// line.
var ErrInvalidIdentification = errors.New("message: invalid identification line")

// Identification is the "SSH-protoversion-softwareversion SP comments" line
// each side sends before any binary packet.
type Identification struct {
	ProtoVersion    string
	SoftwareVersion string
	Comments        string
}

// ParseIdentification parses one identification line. A trailing CR LF or
// bare LF is accepted and stripped.
func ParseIdentification(line string) (*Identification, error) {
	if len(line) > MaxIdentificationLength {
		return nil, fmt.Errorf("%w: %d bytes", ErrInvalidIdentification, len(line))
	}
	line = strings.TrimSuffix(line, "\n")
	line = strings.TrimSuffix(line, "\r")

	rest, ok := strings.CutPrefix(line, "SSH-")
	if !ok {
		return nil, fmt.Errorf("%w: missing SSH- prefix", ErrInvalidIdentification)
	}
	proto, rest, ok := strings.Cut(rest, "-")
	if !ok || proto == "" {
		return nil, fmt.Errorf("%w: missing protocol version", ErrInvalidIdentification)
	}
	software, comments, _ := strings.Cut(rest, " ")
	if software == "" {
		return nil, fmt.Errorf("%w: missing software version", ErrInvalidIdentification)
	}
	for _, field := range []string{proto, software} {
		for i := 0; i < len(field); i++ {
			if c := field[i]; c <= ' ' || c > '~' {
				return nil, fmt.Errorf("%w: byte 0x%02x in %q", ErrInvalidIdentification, c, field)
			}
		}
	}
	return &Identification{
		ProtoVersion:    proto,
		SoftwareVersion: software,
		Comments:        comments,
	}, nil
}

// String returns the line without CR LF, the form hashed into the exchange
// hash as V_C or V_S.
func (id *Identification) String() string {
	s := "SSH-" + id.ProtoVersion + "-" + id.SoftwareVersion
	if id.Comments != "" {
		s += " " + id.Comments
	}
	return s
}
