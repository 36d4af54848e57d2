// Package config loads the experiment settings from a TOML file.
package config

import (
	"errors"
	"fmt"
	"math"
	"strings"

	"github.com/BurntSushi/toml"

	"musmus/lib/transmitter"
)

var ErrInvalid = errors.New("config: invalid")

type Config struct {
	MIDI       MIDI       `toml:"midi"`
	Hardware   Hardware   `toml:"hardware"`
	Processing Processing `toml:"processing"`
	Control    Control    `toml:"control"`
	Model      Model      `toml:"model"`
	Pad        Pad        `toml:"pad"`
}

type MIDI struct {
	Port        string `toml:"port"`
	Channel     int    `toml:"channel"`
	NBits       int    `toml:"n_bits"`
	ControlX    int    `toml:"control_x"`
	ControlY    int    `toml:"control_y"`
	ControlSnap int    `toml:"control_snap"`
}

type Hardware struct {
	SampleRate float64 `toml:"sample_rate"`
	ReadLength float64 `toml:"read_length"` // seconds
	Left       int     `toml:"left"`
	Right      int     `toml:"right"`
}

type Processing struct {
	WinSize float64 `toml:"win_size"` // seconds
}

type Control struct {
	DummyCycles              int  `toml:"dummy_cycles"`
	ContinueOnTransportError bool `toml:"continue_on_transport_error"`
}

type Model struct {
	Coef      []float64 `toml:"coef"`
	Intercept float64   `toml:"intercept"`
}

type Pad struct {
	Enabled   bool `toml:"enabled"`
	Snapshots int  `toml:"snapshots"`
}

func Default() *Config {
	tx := transmitter.DefaultConfig()
	return &Config{
		MIDI: MIDI{
			Channel:     tx.Channel,
			NBits:       14,
			ControlX:    tx.ControlX,
			ControlY:    tx.ControlY,
			ControlSnap: tx.ControlSnap,
		},
		Hardware: Hardware{
			SampleRate: 2000,
			ReadLength: 0.05,
			Left:       1,
			Right:      2,
		},
		Processing: Processing{WinSize: 0.15},
		Model:      Model{Coef: []float64{1}},
		Pad:        Pad{Snapshots: 8},
	}
}

// Load overlays the file at path on Default. Keys the file sets but the
// Config does not know are rejected, which catches misspelled settings.
func Load(path string) (*Config, error) {
	cfg := Default()
	md, err := toml.DecodeFile(path, cfg)
	if err != nil {
		return nil, fmt.Errorf("config: %s: %w", path, err)
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, len(undecoded))
		for i, k := range undecoded {
			keys[i] = k.String()
		}
		return nil, fmt.Errorf("%w: %s: unknown keys %s", ErrInvalid, path, strings.Join(keys, ", "))
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, nil
}

func (c *Config) Validate() error {
	if err := c.Transmitter().Validate(); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalid, err)
	}
	switch {
	case c.MIDI.NBits < 1 || c.MIDI.NBits > 14:
		return fmt.Errorf("%w: midi.n_bits %d not in [1,14]", ErrInvalid, c.MIDI.NBits)
	case c.Hardware.SampleRate <= 0:
		return fmt.Errorf("%w: hardware.sample_rate must be positive", ErrInvalid)
	case c.Hardware.ReadLength <= 0:
		return fmt.Errorf("%w: hardware.read_length must be positive", ErrInvalid)
	case c.Hardware.Left < 1 || c.Hardware.Right < 1:
		return fmt.Errorf("%w: hardware channels are 1-based", ErrInvalid)
	case c.Hardware.Left == c.Hardware.Right:
		return fmt.Errorf("%w: hardware.left and hardware.right must differ", ErrInvalid)
	case c.Processing.WinSize < c.Hardware.ReadLength:
		return fmt.Errorf("%w: processing.win_size shorter than hardware.read_length", ErrInvalid)
	case c.Control.DummyCycles < 0:
		return fmt.Errorf("%w: control.dummy_cycles is negative", ErrInvalid)
	case len(c.Model.Coef) == 0:
		return fmt.Errorf("%w: model.coef is empty", ErrInvalid)
	case len(c.Model.Coef) != 1:
		return fmt.Errorf("%w: model.coef has %d entries, want 1", ErrInvalid, len(c.Model.Coef))
	case c.Pad.Snapshots < 1 || c.Pad.Snapshots > 128:
		return fmt.Errorf("%w: pad.snapshots %d not in [1,128]", ErrInvalid, c.Pad.Snapshots)
	}
	return nil
}

func (c *Config) Transmitter() transmitter.Config {
	return transmitter.Config{
		Channel:     c.MIDI.Channel,
		ControlX:    c.MIDI.ControlX,
		ControlY:    c.MIDI.ControlY,
		ControlSnap: c.MIDI.ControlSnap,
	}
}

// Channels returns the 0-based acquisition channels in left, right order.
func (c *Config) Channels() []int {
	return []int{c.Hardware.Left - 1, c.Hardware.Right - 1}
}

func (c *Config) BlockSize() int {
	return int(math.Round(c.Hardware.SampleRate * c.Hardware.ReadLength))
}

func (c *Config) WindowSize() int {
	return int(math.Round(c.Hardware.SampleRate * c.Processing.WinSize))
}
