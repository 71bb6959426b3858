package artnet

import (
	"context"
	"fmt"
	"net"
	"strconv"
	"sync"
)

// Transport delivers DMX frames to Art-Net nodes.
type Transport interface {
	Send(universe uint16, data []byte) error
	Close() error
}

// Dialer opens a Transport towards address:port.
type Dialer func(address string, port int) (Transport, error)

// UDPTransport sends ArtDmx datagrams over a UDP socket with broadcast
// enabled.
type UDPTransport struct {
	sync.Mutex
	conn     *net.UDPConn
	target   *net.UDPAddr
	sequence uint8 // Last sequence number sent, wraps 255 -> 1
}

// DialUDP resolves address:port and opens a broadcast-capable UDP socket.
func DialUDP(address string, port int) (Transport, error) {
	target, err := net.ResolveUDPAddr("udp4", net.JoinHostPort(address, strconv.Itoa(port)))
	if err != nil {
		return nil, fmt.Errorf("artnet: resolve %s:%d: %w", address, port, err)
	}
	lc := net.ListenConfig{Control: enableBroadcast}
	pc, err := lc.ListenPacket(context.Background(), "udp4", ":0")
	if err != nil {
		return nil, fmt.Errorf("artnet: open socket: %w", err)
	}
	return &UDPTransport{conn: pc.(*net.UDPConn), target: target}, nil
}

// LocalAddr returns the address the socket is bound to.
func (t *UDPTransport) LocalAddr() net.Addr {
	return t.conn.LocalAddr()
}

func (t *UDPTransport) Send(universe uint16, data []byte) error {
	t.Lock()
	defer t.Unlock()

	t.sequence++
	if t.sequence == 0 {
		t.sequence = 1
	}
	p, err := NewDMXPacket(t.sequence, universe, data)
	if err != nil {
		return err
	}
	buf, err := p.MarshalBinary()
	if err != nil {
		return err
	}
	_, err = t.conn.WriteToUDP(buf, t.target)
	return err
}

func (t *UDPTransport) Close() error {
	return t.conn.Close()
}
