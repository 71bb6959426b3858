package artnet

import (
	"testing"

	"github.com/jsimonetti/go-artnet/packet"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewDMXPacket(t *testing.T) {
	p, err := NewDMXPacket(7, 0x1234, []byte{1, 2, 3})
	require.NoError(t, err)
	assert.Equal(t, uint8(7), p.Sequence)
	assert.Equal(t, uint8(0x34), p.SubUni)
	assert.Equal(t, uint8(0x12), p.Net)
	assert.Equal(t, uint16(0x1234), PacketUniverse(p))
	assert.Equal(t, []byte{1, 2, 3, 0}, p.Data[:4])

	buf, err := p.MarshalBinary()
	require.NoError(t, err)
	assert.Equal(t, []byte("Art-Net\x00"), buf[0:8])
	assert.Len(t, buf, 18+FrameSize)
}

func TestNewDMXPacketLimits(t *testing.T) {
	_, err := NewDMXPacket(1, MaxUniverse+1, nil)
	assert.ErrorIs(t, err, ErrInvalidUniverse)

	_, err = NewDMXPacket(1, 0, make([]byte, FrameSize+1))
	assert.ErrorIs(t, err, ErrInvalidChannel)
}

func TestDMXPacketDecode(t *testing.T) {
	data := make([]byte, FrameSize)
	data[511] = 255
	in, err := NewDMXPacket(200, MaxUniverse, data)
	require.NoError(t, err)
	buf, err := in.MarshalBinary()
	require.NoError(t, err)

	out := packet.NewArtDMXPacket()
	require.NoError(t, out.UnmarshalBinary(buf))
	assert.Equal(t, uint8(200), out.Sequence)
	assert.Equal(t, uint16(MaxUniverse), PacketUniverse(out))
	assert.Equal(t, byte(255), out.Data[511])
}
