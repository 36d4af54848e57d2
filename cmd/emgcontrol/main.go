// Command emgcontrol drives the cursor of an AudioMulch Metasurface from
// EMG activity, sending positions as 14-bit MIDI control changes.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"gitlab.com/gomidi/midi/v2"
	"gitlab.com/gomidi/midi/v2/drivers"
	_ "gitlab.com/gomidi/midi/v2/drivers/rtmididrv"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"musmus/lib/config"
	"musmus/lib/emg"
	"musmus/lib/session"
	"musmus/lib/snappad"
	"musmus/lib/transmitter"
)

const noiseAmplitude = 10.0

func main() {
	configPath := flag.String("config", "config.toml", "TOML config file")
	source := flag.String("source", "noise", "signal source (noise)")
	mapping := flag.Bool("map", false, "run the MIDI mapping helper instead of the control session")
	verbose := flag.Bool("v", false, "log every position")
	flag.Parse()

	log, err := newLogger(*verbose)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	if err := run(log, *configPath, *source, *mapping); err != nil {
		log.Error("emgcontrol failed", zap.Error(err))
		log.Sync()
		os.Exit(1)
	}
	log.Sync()
}

func newLogger(verbose bool) (*zap.Logger, error) {
	cfg := zap.NewDevelopmentConfig()
	if !verbose {
		cfg.Level = zap.NewAtomicLevelAt(zapcore.InfoLevel)
	}
	return cfg.Build()
}

func run(log *zap.Logger, configPath, source string, mapping bool) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	if source != "noise" {
		return fmt.Errorf("source %q not supported", source)
	}

	defer midi.CloseDriver()

	tx, err := transmitter.Open(cfg.MIDI.Port, cfg.Transmitter())
	if err != nil {
		log.Info("available MIDI output ports",
			zap.Strings("ports", transmitter.PortNames([]drivers.Out(midi.GetOutPorts()))))
		return err
	}
	log.Info("transmitter open",
		zap.String("port", cfg.MIDI.Port),
		zap.Int("channel", cfg.MIDI.Channel),
		zap.Int("control_x", cfg.MIDI.ControlX),
		zap.Int("control_y", cfg.MIDI.ControlY),
		zap.Int("control_snap", cfg.MIDI.ControlSnap))

	if mapping {
		defer tx.Stop()
		return tx.MidiMapping(os.Stdin, os.Stdout)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	s := &session.Session{
		Source: emg.NewNoiseSource(
			cfg.Hardware.SampleRate,
			len(cfg.Channels()),
			noiseAmplitude,
			cfg.BlockSize()),
		Window:                   emg.NewWindower(cfg.WindowSize()),
		Features:                 emg.MeanAbsDifference(0, 1),
		Predictor:                emg.Linear{Coef: cfg.Model.Coef, Intercept: cfg.Model.Intercept},
		Transmitter:              tx,
		Bits:                     cfg.MIDI.NBits,
		DummyCycles:              cfg.Control.DummyCycles,
		ContinueOnTransportError: cfg.Control.ContinueOnTransportError,
		Logger:                   log,
	}

	if cfg.Pad.Enabled {
		pad, err := snappad.Open()
		if err != nil {
			tx.Stop()
			return err
		}
		defer pad.Close()
		s.Snapshots = watchPad(ctx, log, pad, min(cfg.Pad.Snapshots, pad.Snapshots()))
	}

	return s.Run(ctx)
}

// watchPad forwards pad selections in [1,count] until ctx is done.
func watchPad(ctx context.Context, log *zap.Logger, pad *snappad.Pad, count int) <-chan int {
	log.Info("snapshot pad", zap.String("device", pad.Name()), zap.Int("snapshots", count))
	if err := pad.ShowSnapshots(count, 0); err != nil {
		log.Warn("snapshot pad", zap.Error(err))
	}

	keys := make(chan int, 16)
	out := make(chan int, 16)
	go func() {
		if err := pad.ReadSelections(keys); err != nil && ctx.Err() == nil {
			log.Warn("snapshot pad stopped", zap.Error(err))
		}
	}()
	go func() {
		defer close(out)
		for {
			select {
			case <-ctx.Done():
				return
			case idx := <-keys:
				if idx > count {
					continue
				}
				if err := pad.ShowSnapshots(count, idx); err != nil {
					log.Warn("snapshot pad", zap.Error(err))
				}
				select {
				case out <- idx:
				case <-ctx.Done():
					return
				}
			}
		}
	}()
	return out
}
