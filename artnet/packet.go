package artnet

import (
	"fmt"

	"github.com/jsimonetti/go-artnet/packet"
)

const (
	// DefaultPort is the UDP port Art-Net nodes listen on.
	DefaultPort = 6454
	// MaxUniverse is the highest 15-bit port address.
	MaxUniverse = 32767
	// FrameSize is the number of slots in one DMX512 frame.
	FrameSize = 512
)

// NewDMXPacket builds the ArtDmx packet carrying data for universe. Data
// shorter than a frame is padded with zero slots.
func NewDMXPacket(sequence uint8, universe uint16, data []byte) (*packet.ArtDMXPacket, error) {
	if universe > MaxUniverse {
		return nil, fmt.Errorf("%w: %d", ErrInvalidUniverse, universe)
	}
	if len(data) > FrameSize {
		return nil, fmt.Errorf("%w: %d slots", ErrInvalidChannel, len(data))
	}
	p := packet.NewArtDMXPacket()
	p.Sequence = sequence
	p.SubUni = uint8(universe & 0xff)
	p.Net = uint8(universe>>8) & 0x7f
	p.Length = FrameSize
	copy(p.Data[:], data)
	return p, nil
}

// PacketUniverse returns the 15-bit port address an ArtDmx packet targets.
func PacketUniverse(p *packet.ArtDMXPacket) uint16 {
	return uint16(p.Net&0x7f)<<8 | uint16(p.SubUni)
}
