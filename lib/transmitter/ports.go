package transmitter

import (
	"fmt"
	"strings"

	"gitlab.com/gomidi/midi/v2"
	"gitlab.com/gomidi/midi/v2/drivers"
)

// FindOutPort prefers an exact name and falls back to a case-insensitive
// substring match, so "loopmidi" finds "loopMIDI Port 1".
func FindOutPort(name string) (drivers.Out, error) {
	return matchPort([]drivers.Out(midi.GetOutPorts()), name, "output")
}

func FindInPort(name string) (drivers.In, error) {
	return matchPort([]drivers.In(midi.GetInPorts()), name, "input")
}

func matchPort[P fmt.Stringer](ports []P, name string, kind string) (P, error) {
	for _, port := range ports {
		if port.String() == name {
			return port, nil
		}
	}
	lower := strings.ToLower(name)
	for _, port := range ports {
		if strings.Contains(strings.ToLower(port.String()), lower) {
			return port, nil
		}
	}
	var zero P
	return zero, fmt.Errorf("%w: no MIDI %s port matching %q", ErrDeviceUnavailable, kind, name)
}

func PortNames[P fmt.Stringer](ports []P) []string {
	names := make([]string, 0, len(ports))
	for _, p := range ports {
		names = append(names, p.String())
	}
	return names
}
