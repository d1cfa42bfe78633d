package packet

import (
	"bytes"
	"encoding/binary"
	"errors"
	"testing"
	"testing/iotest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// zeros is a padding source that makes frames deterministic.
type zeros struct{}

func (zeros) Read(p []byte) (int, error) {
	clear(p)
	return len(p), nil
}

func TestFrame_PaddingBound(t *testing.T) {
	for _, bs := range []int{0, 8, 12, 16, 32, 252} {
		for _, aad := range []bool{false, true} {
			f := Framer{BlockSize: bs, LengthInAAD: aad, Rand: zeros{}}
			eff, err := f.EffectiveBlockSize()
			require.NoError(t, err)

			for n := 0; n <= 600; n++ {
				raw, err := f.Frame(&Packet{Payload: make([]byte, n)})
				require.NoError(t, err)

				pad := int(raw[4])
				length := int(binary.BigEndian.Uint32(raw))
				require.Equal(t, len(raw)-4, length)
				require.GreaterOrEqual(t, pad, MinPadding)
				require.Less(t, pad, MinPadding+eff, "padding not minimal for bs=%d n=%d", bs, n)
				require.LessOrEqual(t, pad, 255)

				aligned := len(raw)
				if aad {
					aligned -= 4
				}
				require.Zero(t, aligned%eff, "bs=%d n=%d aad=%v", bs, n, aad)

				p, consumed, err := f.Unframe(raw)
				require.NoError(t, err)
				require.Equal(t, len(raw), consumed)
				require.Len(t, p.Payload, n)
			}
		}
	}
}

func TestFrame_Layout(t *testing.T) {
	raw, err := Frame([]byte{21}, 8, zeros{})
	require.NoError(t, err)
	// 4 + 1 + 1 + 10 = 16; padding of 2 would be under the minimum.
	assert.Equal(t, []byte{0, 0, 0, 12, 10, 21, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0}, raw)

	payload, n, err := Unframe(raw, 8)
	require.NoError(t, err)
	assert.Equal(t, 16, n)
	assert.Equal(t, []byte{21}, payload)
}

func TestFrame_PaddingFromRand(t *testing.T) {
	rnd := bytes.NewReader(bytes.Repeat([]byte{0xab}, 64))
	raw, err := Frame([]byte("x"), 16, rnd)
	require.NoError(t, err)
	pad := int(raw[4])
	assert.Equal(t, bytes.Repeat([]byte{0xab}, pad), raw[len(raw)-pad:])
}

func TestFrame_RandError(t *testing.T) {
	_, err := Frame([]byte("x"), 8, iotest.ErrReader(errors.New("entropy exhausted")))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "entropy exhausted")
}

func TestFramer_InvalidBlockSize(t *testing.T) {
	_, err := Frame(nil, 253, zeros{})
	assert.ErrorIs(t, err, ErrInvalidBlockSize)

	_, _, err = Unframe(make([]byte, 16), 256)
	assert.ErrorIs(t, err, ErrInvalidBlockSize)

	for _, bs := range []int{-8, 3, 5, 6, 7} {
		_, err = Frame(nil, bs, zeros{})
		assert.ErrorIs(t, err, ErrInvalidBlockSize, "bs=%d", bs)
	}
}

func TestFramer_SmallBlockSize(t *testing.T) {
	for _, bs := range []int{0, 1, 2, 4} {
		f := Framer{BlockSize: bs}
		eff, err := f.EffectiveBlockSize()
		require.NoError(t, err)
		assert.Equal(t, MinBlockSize, eff)

		raw, err := Frame(nil, bs, zeros{})
		require.NoError(t, err)
		assert.Len(t, raw, 16, "bs=%d", bs)
	}
}

func TestFramer_MAC(t *testing.T) {
	f := Framer{BlockSize: 16, MACSize: 4, Rand: zeros{}}
	mac := []byte{0xde, 0xad, 0xbe, 0xef}
	raw, err := f.Frame(&Packet{Payload: []byte("hello"), MAC: mac})
	require.NoError(t, err)
	assert.Equal(t, mac, raw[len(raw)-4:])
	assert.Zero(t, (len(raw)-4)%16)

	p, n, err := f.Unframe(append(raw, 0x99))
	require.NoError(t, err)
	assert.Equal(t, len(raw), n)
	assert.Equal(t, []byte("hello"), p.Payload)
	assert.Equal(t, mac, p.MAC)

	_, _, err = f.Unframe(raw[:len(raw)-1])
	assert.ErrorIs(t, err, ErrTruncated)

	_, err = f.Frame(&Packet{Payload: []byte("hello")})
	assert.ErrorIs(t, err, ErrMACLength)
}

func TestUnframe_Errors(t *testing.T) {
	frame := func(length uint32, pad byte, body int) []byte {
		b := binary.BigEndian.AppendUint32(nil, length)
		b = append(b, pad)
		return append(b, make([]byte, body)...)
	}

	tests := []struct {
		name string
		raw  []byte
		want error
	}{
		{"empty", nil, ErrTruncated},
		{"short length", []byte{0, 0, 0}, ErrTruncated},
		{"short body", frame(12, 4, 5), ErrTruncated},
		{"overflow", frame(DefaultMaxPacketLength+1, 4, 0), ErrLengthOverflow},
		{"length bomb", frame(0xffffffff, 4, 0), ErrLengthOverflow},
		{"zero length", []byte{0, 0, 0, 0}, ErrInvalidFraming},
		{"padding under minimum", frame(12, 3, 11), ErrInvalidFraming},
		{"padding beyond packet", frame(12, 12, 11), ErrInvalidFraming},
		{"misaligned", frame(13, 4, 12), ErrInvalidFraming},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := Unframe(tt.raw, 8)
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestUnframe_Truncations(t *testing.T) {
	raw, err := Frame([]byte("ssh-userauth"), 8, zeros{})
	require.NoError(t, err)
	for i := 0; i < len(raw); i++ {
		_, _, err := Unframe(raw[:i], 8)
		require.ErrorIs(t, err, ErrTruncated, "prefix %d", i)
	}
}

func TestUnframe_CopiesPayload(t *testing.T) {
	raw, err := Frame([]byte("abc"), 8, zeros{})
	require.NoError(t, err)
	payload, _, err := Unframe(raw, 8)
	require.NoError(t, err)
	raw[5] = 'z'
	assert.Equal(t, []byte("abc"), payload)
}

func TestFramer_MaxPacketLength(t *testing.T) {
	f := Framer{MaxPacketLength: 64, Rand: zeros{}}
	_, err := f.Frame(&Packet{Payload: make([]byte, 100)})
	assert.ErrorIs(t, err, ErrLengthOverflow)

	_, err = f.PacketLength([]byte{0, 0, 0, 65})
	assert.ErrorIs(t, err, ErrLengthOverflow)

	n, err := f.PacketLength([]byte{0, 0, 0, 64})
	require.NoError(t, err)
	assert.Equal(t, 64, n)

	_, err = f.PacketLength([]byte{0, 0, 0, 4})
	assert.ErrorIs(t, err, ErrInvalidFraming)
}

func TestPacket_Type(t *testing.T) {
	assert.Equal(t, byte(0), (&Packet{}).Type())
	assert.Equal(t, byte(94), (&Packet{Payload: []byte{94, 0}}).Type())
}

func FuzzUnframe(f *testing.F) {
	for _, n := range []int{0, 1, 11, 40} {
		raw, err := Frame(make([]byte, n), 8, zeros{})
		if err != nil {
			f.Fatal(err)
		}
		f.Add(raw)
	}
	f.Fuzz(func(t *testing.T, raw []byte) {
		p, n, err := Unframe(raw, 8)
		if err != nil {
			return
		}
		if n > len(raw) {
			t.Fatalf("consumed %d of %d bytes", n, len(raw))
		}
		if len(p) > n {
			t.Fatalf("payload %d bytes from %d byte frame", len(p), n)
		}
	})
}
