package artnet

import (
	"errors"
	"net"
	"sync"
	"testing"
	"time"

	"github.com/jsimonetti/go-artnet/packet"
	"github.com/sardine-ai/dmx-artnet-checker/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type sentFrame struct {
	universe uint16
	data     []byte
}

type fakeTransport struct {
	mu      sync.Mutex
	address string
	port    int
	sent    []sentFrame
	closed  bool
	sendErr error
}

func (f *fakeTransport) Send(universe uint16, data []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.sendErr != nil {
		return f.sendErr
	}
	f.sent = append(f.sent, sentFrame{universe: universe, data: append([]byte(nil), data...)})
	return nil
}

func (f *fakeTransport) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed = true
	return nil
}

type fakeDialer struct {
	dialed []*fakeTransport
	err    error
}

func (d *fakeDialer) Dial(address string, port int) (Transport, error) {
	if d.err != nil {
		return nil, d.err
	}
	t := &fakeTransport{address: address, port: port}
	d.dialed = append(d.dialed, t)
	return t, nil
}

func intPtr(i int) *int { return &i }

func newTestController() (*Controller, *fakeDialer) {
	d := &fakeDialer{}
	return NewController(d.Dial, model.DefaultConfig().Network), d
}

func TestControllerDefaultsFromNetwork(t *testing.T) {
	c, _ := newTestController()
	assert.Equal(t, Status{Connected: false, Address: "192.168.1.255", Port: 6454, Universe: 0}, c.Status())
}

func TestControllerConnectFallsBack(t *testing.T) {
	c, d := newTestController()

	status, err := c.Connect("", 0, nil)
	require.NoError(t, err)
	assert.Equal(t, Status{Connected: true, Address: "192.168.1.255", Port: 6454, Universe: 0}, status)
	require.Len(t, d.dialed, 1)
	assert.Equal(t, "192.168.1.255", d.dialed[0].address)

	status, err = c.Connect("10.0.0.255", 0, intPtr(3))
	require.NoError(t, err)
	assert.Equal(t, Status{Connected: true, Address: "10.0.0.255", Port: 6454, Universe: 3}, status)
	assert.True(t, d.dialed[0].closed, "previous session is closed")
}

func TestControllerConnectErrors(t *testing.T) {
	c, d := newTestController()
	_, err := c.Connect("", 0, intPtr(MaxUniverse+1))
	assert.ErrorIs(t, err, ErrInvalidUniverse)

	d.err = errors.New("no route")
	status, err := c.Connect("", 0, nil)
	assert.Error(t, err)
	assert.False(t, status.Connected)
}

func TestControllerNotConnected(t *testing.T) {
	c, _ := newTestController()
	_, err := c.Send(nil, []int{1})
	assert.ErrorIs(t, err, ErrNotConnected)
	_, err = c.SetChannel(nil, 0, 1)
	assert.ErrorIs(t, err, ErrNotConnected)
	assert.NoError(t, c.Disconnect())
}

func TestControllerSetChannelKeepsFrame(t *testing.T) {
	c, d := newTestController()
	_, err := c.Connect("", 0, intPtr(2))
	require.NoError(t, err)

	u, err := c.SetChannel(nil, 0, 255)
	require.NoError(t, err)
	assert.Equal(t, 2, u)
	_, err = c.SetChannel(nil, 511, 10)
	require.NoError(t, err)

	sent := d.dialed[0].sent
	require.Len(t, sent, 2)
	assert.Equal(t, uint16(2), sent[1].universe)
	require.Len(t, sent[1].data, FrameSize)
	assert.Equal(t, byte(255), sent[1].data[0])
	assert.Equal(t, byte(10), sent[1].data[511])
	assert.Equal(t, sent[1].data, c.Frame(2))
}

func TestControllerSetChannelValidation(t *testing.T) {
	c, _ := newTestController()
	_, err := c.Connect("", 0, nil)
	require.NoError(t, err)

	_, err = c.SetChannel(nil, -1, 0)
	assert.ErrorIs(t, err, ErrInvalidChannel)
	_, err = c.SetChannel(nil, 512, 0)
	assert.ErrorIs(t, err, ErrInvalidChannel)
	_, err = c.SetChannel(nil, 0, 256)
	assert.ErrorIs(t, err, ErrInvalidValue)
	_, err = c.SetChannel(intPtr(-1), 0, 0)
	assert.ErrorIs(t, err, ErrInvalidUniverse)
}

func TestControllerSend(t *testing.T) {
	c, d := newTestController()
	_, err := c.Connect("", 0, nil)
	require.NoError(t, err)

	u, err := c.Send(intPtr(5), []int{10, 20, 30})
	require.NoError(t, err)
	assert.Equal(t, 5, u)
	sent := d.dialed[0].sent
	require.Len(t, sent, 1)
	assert.Equal(t, uint16(5), sent[0].universe)
	assert.Equal(t, []byte{10, 20, 30, 0}, sent[0].data[:4])

	_, err = c.Send(nil, []int{1, 300})
	assert.ErrorIs(t, err, ErrInvalidValue)
	_, err = c.Send(nil, make([]int, FrameSize+1))
	assert.ErrorIs(t, err, ErrInvalidChannel)
	assert.Len(t, d.dialed[0].sent, 1, "invalid sends transmit nothing")
}

func TestControllerDisconnect(t *testing.T) {
	c, d := newTestController()
	_, err := c.Connect("", 0, nil)
	require.NoError(t, err)
	require.NoError(t, c.Disconnect())
	assert.True(t, d.dialed[0].closed)
	assert.False(t, c.Status().Connected)
}

func TestUDPTransportSendsArtDmx(t *testing.T) {
	listener, err := net.ListenUDP("udp4", &net.UDPAddr{IP: net.IPv4(127, 0, 0, 1)})
	require.NoError(t, err)
	defer listener.Close()
	addr := listener.LocalAddr().(*net.UDPAddr)

	c := NewController(DialUDP, model.NetworkConfig{DefaultAddress: "127.0.0.1", DefaultPort: addr.Port, DefaultUniverse: 1})
	_, err = c.Connect("", 0, nil)
	require.NoError(t, err)
	defer c.Close()

	_, err = c.SetChannel(nil, 3, 128)
	require.NoError(t, err)

	buf := make([]byte, 1024)
	require.NoError(t, listener.SetReadDeadline(time.Now().Add(5*time.Second)))
	n, _, err := listener.ReadFromUDP(buf)
	require.NoError(t, err)

	received := packet.NewArtDMXPacket()
	require.NoError(t, received.UnmarshalBinary(buf[:n]))
	assert.Equal(t, uint8(1), received.Sequence)
	assert.Equal(t, uint16(1), PacketUniverse(received))
	assert.Equal(t, byte(128), received.Data[3])
}
