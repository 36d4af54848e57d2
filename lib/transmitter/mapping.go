package transmitter

import (
	"bufio"
	"fmt"
	"io"
)

// Parameter names as they appear in AudioMulch's MIDI learn dialog.
const (
	ParamX    = "Interpolate_X"
	ParamY    = "Interpolate_Y"
	ParamSnap = "Snapshot number"
)

// MidiMapping walks an operator through MIDI learn for X, Y and the snapshot
// control. Each prompt blocks until a line is read from in, then a low value
// is sent on that control so the receiving application can bind it.
func (t *Transmitter) MidiMapping(in io.Reader, out io.Writer) error {
	steps := []struct {
		param string
		send  func() error
	}{
		{ParamX, func() error { return t.SetX(1) }},
		{ParamY, func() error { return t.SetY(1) }},
		{ParamSnap, func() error { return t.SetSnap(1) }},
	}

	scanner := bufio.NewScanner(in)
	for _, step := range steps {
		fmt.Fprintf(out, "Click %s midi mapping key and press enter\n", step.param)
		if !scanner.Scan() {
			if err := scanner.Err(); err != nil {
				return fmt.Errorf("transmitter: mapping %s: %w", step.param, err)
			}
			return fmt.Errorf("transmitter: mapping %s: %w", step.param, io.ErrUnexpectedEOF)
		}
		if err := step.send(); err != nil {
			return err
		}
	}

	fmt.Fprintf(out, "Important: you should now manually change the control type for %s and %s to '14 bit Control Change'.\n", ParamX, ParamY)
	return nil
}
