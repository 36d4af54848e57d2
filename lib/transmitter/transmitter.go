// Package transmitter sends cursor positions and snapshot selections to an
// audio application as MIDI control-change messages.
//
// Positions are 14-bit values split over a pair of controllers: the most
// significant 7 bits go out on the assigned controller c, the least significant
// 7 bits on c+32, in that order.
package transmitter

import (
	"errors"
	"fmt"

	"gitlab.com/gomidi/midi/v2"
	"gitlab.com/gomidi/midi/v2/drivers"
)

const (
	MaxPosition = 1<<14 - 1
	lsbOffset   = 32
	maxControl  = 127
)

var (
	ErrDeviceUnavailable = errors.New("transmitter: device unavailable")
	ErrInvalidPosition   = errors.New("transmitter: position out of range")
	ErrInvalidSnapshot   = errors.New("transmitter: snapshot out of range")
	ErrTransport         = errors.New("transmitter: send failed")
	ErrInvalidConfig     = errors.New("transmitter: invalid config")
)

type Config struct {
	Channel     int
	ControlX    int
	ControlY    int
	ControlSnap int
}

func DefaultConfig() Config {
	return Config{Channel: 1, ControlX: 0, ControlY: 1, ControlSnap: 2}
}

func (c Config) Validate() error {
	if c.Channel < 1 || c.Channel > 16 {
		return fmt.Errorf("%w: channel %d not in [1,16]", ErrInvalidConfig, c.Channel)
	}
	for _, pc := range []struct {
		name  string
		value int
	}{{"x", c.ControlX}, {"y", c.ControlY}} {
		if pc.value < 0 || pc.value+lsbOffset > maxControl {
			return fmt.Errorf("%w: %s control %d not in [0,%d]", ErrInvalidConfig, pc.name, pc.value, maxControl-lsbOffset)
		}
	}
	if c.ControlSnap < 0 || c.ControlSnap > maxControl {
		return fmt.Errorf("%w: snapshot control %d not in [0,%d]", ErrInvalidConfig, c.ControlSnap, maxControl)
	}
	return nil
}

type Axis uint8

const (
	AxisX Axis = iota
	AxisY
)

func (a Axis) String() string {
	if a == AxisY {
		return "Y"
	}
	return "X"
}

// Transmitter exclusively owns its output port until Stop.
type Transmitter struct {
	port    drivers.Out
	send    func(msg midi.Message) error
	cfg     Config
	channel uint8
	stopped bool
}

func New(port drivers.Out, cfg Config) (*Transmitter, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	send, err := midi.SendTo(port)
	if err != nil {
		return nil, fmt.Errorf("%w: open %s: %w", ErrDeviceUnavailable, port, err)
	}
	return &Transmitter{
		port:    port,
		send:    send,
		cfg:     cfg,
		channel: uint8(cfg.Channel - 1),
	}, nil
}

// Open looks up destination among the out ports of the registered driver.
func Open(destination string, cfg Config) (*Transmitter, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	port, err := FindOutPort(destination)
	if err != nil {
		return nil, err
	}
	return New(port, cfg)
}

func (t *Transmitter) Config() Config { return t.cfg }

// WireChannel is the 0-based channel carried in the status byte.
func (t *Transmitter) WireChannel() uint8 { return t.channel }

func (t *Transmitter) SetX(x int) error {
	return t.setPosition(AxisX, x)
}

func (t *Transmitter) SetY(y int) error {
	return t.setPosition(AxisY, y)
}

// SetXY is not atomic: if Y fails, X has already been sent.
func (t *Transmitter) SetXY(x, y int) error {
	if err := t.SetX(x); err != nil {
		return err
	}
	return t.SetY(y)
}

// SetSnap selects a snapshot by its 1-based index.
func (t *Transmitter) SetSnap(index int) error {
	value := index - 1
	if value < 0 || value > maxControl {
		return fmt.Errorf("%w: %d", ErrInvalidSnapshot, index)
	}
	return t.sendCC(uint8(t.cfg.ControlSnap), uint8(value))
}

func (t *Transmitter) Control(axis Axis) uint8 {
	if axis == AxisY {
		return uint8(t.cfg.ControlY)
	}
	return uint8(t.cfg.ControlX)
}

func (t *Transmitter) setPosition(axis Axis, pos int) error {
	msb, lsb, err := Split14(pos)
	if err != nil {
		return err
	}
	cc := t.Control(axis)
	if err := t.sendCC(cc, msb); err != nil {
		return err
	}
	return t.sendCC(cc+lsbOffset, lsb)
}

func (t *Transmitter) sendCC(control, value uint8) error {
	if t.stopped {
		return fmt.Errorf("%w: transmitter stopped", ErrTransport)
	}
	if err := t.send(midi.ControlChange(t.channel, control, value)); err != nil {
		return fmt.Errorf("%w: cc %d: %w", ErrTransport, control, err)
	}
	return nil
}

// Stop releases the port. Calling it again is a no-op.
func (t *Transmitter) Stop() error {
	if t.stopped {
		return nil
	}
	t.stopped = true
	if err := t.port.Close(); err != nil {
		return fmt.Errorf("transmitter: close %s: %w", t.port, err)
	}
	return nil
}

func (t *Transmitter) Close() error {
	return t.Stop()
}

// Split14 splits a 14-bit position into its high and low 7-bit halves.
func Split14(v int) (msb, lsb uint8, err error) {
	if v < 0 || v > MaxPosition {
		return 0, 0, fmt.Errorf("%w: %d not in [0,%d]", ErrInvalidPosition, v, MaxPosition)
	}
	return uint8(v >> 7), uint8(v & 0x7F), nil
}

func Join14(msb, lsb uint8) int {
	return int(msb&0x7F)<<7 | int(lsb&0x7F)
}
