package transmitter

import (
	"fmt"

	"gitlab.com/gomidi/midi/v2"
)

type Event interface {
	String() string
}

type PositionEvent struct {
	Axis  Axis
	Value int
}

func (e PositionEvent) String() string {
	return fmt.Sprintf("%s = %d", e.Axis, e.Value)
}

type SnapshotEvent struct {
	Index int
}

func (e SnapshotEvent) String() string {
	return fmt.Sprintf("Snapshot %d", e.Index)
}

// Decoder reassembles what a Transmitter with the same Config sends. A
// position is reported once its LSB arrives after an MSB on the same axis,
// which is when the receiving application latches it.
type Decoder struct {
	Config Config

	msb     [2]uint8
	latched [2]bool
}

func NewDecoder(cfg Config) *Decoder {
	return &Decoder{Config: cfg}
}

func (d *Decoder) Decode(msg midi.Message) Event {
	var channel, controller, value uint8
	if !msg.GetControlChange(&channel, &controller, &value) {
		return nil
	}
	if int(channel) != d.Config.Channel-1 {
		return nil
	}
	return d.decodeCC(controller, value)
}

func (d *Decoder) decodeCC(controller, value uint8) Event {
	cc := int(controller)
	for _, axis := range []Axis{AxisX, AxisY} {
		base := d.Config.ControlX
		if axis == AxisY {
			base = d.Config.ControlY
		}
		switch cc {
		case base:
			d.msb[axis] = value
			d.latched[axis] = true
			return nil
		case base + lsbOffset:
			if !d.latched[axis] {
				return nil
			}
			d.latched[axis] = false
			return PositionEvent{Axis: axis, Value: Join14(d.msb[axis], value)}
		}
	}
	if cc == d.Config.ControlSnap {
		return SnapshotEvent{Index: int(value) + 1}
	}
	return nil
}
