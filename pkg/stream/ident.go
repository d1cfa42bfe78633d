package stream

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/jclement/sshwire/pkg/message"
)

const (
	// MaxPreBannerLines bounds the lines a server may send before its
	// identification line.
	MaxPreBannerLines = 1024

	maxLineLength = 1024
)

// ReadIdentification reads the peer's identification line, skipping the
// other lines a server may send first (RFC 4253 section 4.2).
func ReadIdentification(r *bufio.Reader) (*message.Identification, error) {
	for i := 0; i <= MaxPreBannerLines; i++ {
		line, err := readLine(r)
		if err != nil {
			return nil, err
		}
		if strings.HasPrefix(line, "SSH-") {
			return message.ParseIdentification(line)
		}
	}
	return nil, fmt.Errorf("%w: no identification within %d lines", message.ErrInvalidIdentification, MaxPreBannerLines)
}

func readLine(r *bufio.Reader) (string, error) {
	var sb strings.Builder
	for sb.Len() < maxLineLength {
		c, err := r.ReadByte()
		if err != nil {
			if errors.Is(err, io.EOF) {
				if sb.Len() == 0 {
					return "", ErrConnectionClosed
				}
				return "", &IncompleteError{Read: sb.Len(), Want: sb.Len() + 1, Err: ErrConnectionClosed}
			}
			return "", &TransportError{Op: "read identification", Err: err}
		}
		sb.WriteByte(c)
		if c == '\n' {
			return sb.String(), nil
		}
	}
	return "", fmt.Errorf("%w: line longer than %d bytes", message.ErrInvalidIdentification, maxLineLength)
}

// WriteIdentification writes id followed by CR LF.
func WriteIdentification(w io.Writer, id *message.Identification) error {
	if _, err := io.WriteString(w, id.String()+"\r\n"); err != nil {
		return &TransportError{Op: "write identification", Err: err}
	}
	return nil
}
