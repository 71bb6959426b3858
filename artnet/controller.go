package artnet

import (
	"errors"
	"fmt"
	"sync"

	"github.com/sardine-ai/dmx-artnet-checker/model"
	"github.com/sirupsen/logrus"
)

var (
	ErrNotConnected    = errors.New("artnet: not connected")
	ErrInvalidChannel  = errors.New("artnet: invalid channel")
	ErrInvalidValue    = errors.New("artnet: invalid value")
	ErrInvalidUniverse = errors.New("artnet: invalid universe")
)

// Status describes the current session.
type Status struct {
	Connected bool   `json:"connected"`
	Address   string `json:"ip"`
	Port      int    `json:"port"`
	Universe  int    `json:"universe"`
}

// Controller owns at most one Art-Net session and the last frame sent on
// each universe.
type Controller struct {
	sync.Mutex
	dial      Dialer
	transport Transport // nil while disconnected
	address   string
	port      int
	universe  int
	frames    map[uint16][]byte // Full 512-slot frame per universe
}

// NewController creates a disconnected Controller whose default endpoint is
// taken from network.
func NewController(dial Dialer, network model.NetworkConfig) *Controller {
	if dial == nil {
		dial = DialUDP
	}
	port := network.DefaultPort
	if port == 0 {
		port = DefaultPort
	}
	return &Controller{
		dial:     dial,
		address:  network.DefaultAddress,
		port:     port,
		universe: network.DefaultUniverse,
		frames:   map[uint16][]byte{},
	}
}

// Connect opens a session, replacing any open one. An empty address, a zero
// port or a nil universe keep the current value.
func (c *Controller) Connect(address string, port int, universe *int) (Status, error) {
	c.Lock()
	defer c.Unlock()

	if address == "" {
		address = c.address
	}
	if port == 0 {
		port = c.port
	}
	u := c.universe
	if universe != nil {
		u = *universe
	}
	if port < 0 || port > 65535 {
		return c.status(), fmt.Errorf("artnet: invalid port %d", port)
	}
	if err := checkUniverse(u); err != nil {
		return c.status(), err
	}

	if c.transport != nil {
		if err := c.transport.Close(); err != nil {
			logrus.WithError(err).Warn("error closing previous art-net session")
		}
		c.transport = nil
	}
	transport, err := c.dial(address, port)
	if err != nil {
		logrus.WithError(err).WithField("address", address).Error("error connecting to art-net")
		return c.status(), err
	}
	c.transport = transport
	c.address, c.port, c.universe = address, port, u
	logrus.WithFields(logrus.Fields{"address": address, "port": port, "universe": u}).Info("art-net connected")
	return c.status(), nil
}

// Disconnect closes the session if one is open.
func (c *Controller) Disconnect() error {
	c.Lock()
	defer c.Unlock()
	if c.transport == nil {
		return nil
	}
	err := c.transport.Close()
	c.transport = nil
	logrus.Info("art-net disconnected")
	return err
}

// Status returns the session state.
func (c *Controller) Status() Status {
	c.Lock()
	defer c.Unlock()
	return c.status()
}

func (c *Controller) status() Status {
	return Status{Connected: c.transport != nil, Address: c.address, Port: c.port, Universe: c.universe}
}

// Send writes values into the frame of universe starting at channel 0 and
// transmits the frame. A nil universe targets the session universe.
func (c *Controller) Send(universe *int, values []int) (int, error) {
	c.Lock()
	defer c.Unlock()

	u, err := c.target(universe)
	if err != nil {
		return 0, err
	}
	if len(values) > FrameSize {
		return u, fmt.Errorf("%w: %d values exceed %d slots", ErrInvalidChannel, len(values), FrameSize)
	}
	for i, v := range values {
		if err := checkValue(v); err != nil {
			return u, fmt.Errorf("%w at channel %d", err, i)
		}
	}
	frame := c.frame(uint16(u))
	for i, v := range values {
		frame[i] = byte(v)
	}
	return u, c.transmit(uint16(u), frame)
}

// SetChannel sets one zero-based channel and transmits the frame.
func (c *Controller) SetChannel(universe *int, channel, value int) (int, error) {
	c.Lock()
	defer c.Unlock()

	u, err := c.target(universe)
	if err != nil {
		return 0, err
	}
	if channel < 0 || channel >= FrameSize {
		return u, fmt.Errorf("%w: %d", ErrInvalidChannel, channel)
	}
	if err := checkValue(value); err != nil {
		return u, err
	}
	frame := c.frame(uint16(u))
	frame[channel] = byte(value)
	return u, c.transmit(uint16(u), frame)
}

// Frame returns a copy of the last frame kept for universe.
func (c *Controller) Frame(universe int) []byte {
	c.Lock()
	defer c.Unlock()
	frame := make([]byte, FrameSize)
	copy(frame, c.frames[uint16(universe)])
	return frame
}

// Close disconnects and drops every kept frame.
func (c *Controller) Close() error {
	err := c.Disconnect()
	c.Lock()
	c.frames = map[uint16][]byte{}
	c.Unlock()
	return err
}

func (c *Controller) target(universe *int) (int, error) {
	if c.transport == nil {
		return 0, ErrNotConnected
	}
	if universe == nil {
		return c.universe, nil
	}
	if err := checkUniverse(*universe); err != nil {
		return 0, err
	}
	return *universe, nil
}

func (c *Controller) frame(universe uint16) []byte {
	frame, ok := c.frames[universe]
	if !ok {
		frame = make([]byte, FrameSize)
		c.frames[universe] = frame
	}
	return frame
}

func (c *Controller) transmit(universe uint16, frame []byte) error {
	if err := c.transport.Send(universe, frame); err != nil {
		logrus.WithError(err).WithField("universe", universe).Error("error sending dmx data")
		return err
	}
	return nil
}

func checkUniverse(u int) error {
	if u < 0 || u > MaxUniverse {
		return fmt.Errorf("%w: %d", ErrInvalidUniverse, u)
	}
	return nil
}

func checkValue(v int) error {
	if v < 0 || v > 255 {
		return fmt.Errorf("%w: %d", ErrInvalidValue, v)
	}
	return nil
}
