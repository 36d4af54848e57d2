// Package session runs the real-time control loop: EMG blocks in, cursor
// positions out through a MIDI transmitter.
package session

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"musmus/lib/emg"
	"musmus/lib/transmitter"
)

type Transmitter interface {
	SetX(x int) error
	SetXY(x, y int) error
	SetSnap(index int) error
	Stop() error
}

type Stats struct {
	Cycles    int
	Positions int
	Snapshots int
	Skipped   int
}

type Session struct {
	Source      emg.Source
	Window      *emg.Windower
	Features    emg.FeatureExtractor
	Predictor   emg.Predictor
	Transmitter Transmitter

	// Bits is the position resolution; predictions are clipped to
	// [0, 2^Bits-1]. Zero means 14.
	Bits int
	// DummyCycles updates are processed but not sent while the
	// pipeline fills up.
	DummyCycles int
	// ContinueOnTransportError keeps the session running when a send
	// fails instead of ending it.
	ContinueOnTransportError bool

	// Snapshots carries 1-based snapshot selections, for example from a
	// snapshot pad. They are sent between control cycles.
	Snapshots <-chan int

	Logger *zap.Logger

	stats Stats
}

func (s *Session) Stats() Stats { return s.stats }

// Run owns the transmitter for its whole duration and stops it on every
// exit path. It returns nil when ctx is cancelled or the source reports
// io.EOF.
func (s *Session) Run(ctx context.Context) (err error) {
	log := s.Logger
	if log == nil {
		log = zap.NewNop()
	}
	log = log.With(zap.String("session", uuid.NewString()))

	defer func() {
		if stopErr := s.Transmitter.Stop(); stopErr != nil && err == nil {
			err = fmt.Errorf("session: stop transmitter: %w", stopErr)
		}
		log.Info("session finished",
			zap.Int("cycles", s.stats.Cycles),
			zap.Int("positions", s.stats.Positions),
			zap.Int("snapshots", s.stats.Snapshots),
			zap.Int("skipped", s.stats.Skipped),
			zap.Error(err))
	}()

	bits := s.Bits
	if bits == 0 {
		bits = 14
	}
	if bits < 1 || bits > 14 {
		return fmt.Errorf("session: %d bits not in [1,14]", bits)
	}

	if err := s.Source.Start(); err != nil {
		return fmt.Errorf("session: start source: %w", err)
	}
	defer s.Source.Stop()

	log.Info("session started", zap.Int("bits", bits), zap.Int("dummy_cycles", s.DummyCycles))

	if err := s.check(log, s.Transmitter.SetX(emg.Center(bits))); err != nil {
		return err
	}

	snapshots := s.Snapshots
	for {
		if err := s.drainSnapshots(log, &snapshots); err != nil {
			return err
		}

		blk, err := s.Source.Read(ctx)
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, io.EOF) {
				return nil
			}
			return fmt.Errorf("session: read: %w", err)
		}

		pos, err := s.predict(blk, bits)
		if err != nil {
			return err
		}

		cycle := s.stats.Cycles
		s.stats.Cycles++
		if cycle < s.DummyCycles {
			continue
		}

		switch len(pos) {
		case 1:
			err = s.Transmitter.SetX(pos[0])
			log.Debug("position", zap.Int("cycle", cycle), zap.Int("x", pos[0]))
		case 2:
			err = s.Transmitter.SetXY(pos[0], pos[1])
			log.Debug("position", zap.Int("cycle", cycle), zap.Int("x", pos[0]), zap.Int("y", pos[1]))
		}
		if err != nil {
			if err := s.check(log, err); err != nil {
				return err
			}
			continue
		}
		s.stats.Positions++
	}
}

func (s *Session) predict(blk emg.Block, bits int) ([]int, error) {
	if s.Window != nil {
		blk = s.Window.Process(blk)
	}
	features, err := s.Features.Produce(blk)
	if err != nil {
		return nil, fmt.Errorf("session: features: %w", err)
	}
	out, err := s.Predictor.Predict(features)
	if err != nil {
		return nil, fmt.Errorf("session: predict: %w", err)
	}
	if len(out) != 1 && len(out) != 2 {
		return nil, fmt.Errorf("session: predictor returned %d values, want 1 or 2", len(out))
	}
	pos := make([]int, len(out))
	for i, v := range out {
		pos[i] = emg.Quantize(v, bits)
	}
	return pos, nil
}

func (s *Session) drainSnapshots(log *zap.Logger, ch *<-chan int) error {
	for *ch != nil {
		select {
		case idx, ok := <-*ch:
			if !ok {
				*ch = nil
				return nil
			}
			err := s.Transmitter.SetSnap(idx)
			if errors.Is(err, transmitter.ErrInvalidSnapshot) {
				log.Warn("snapshot ignored", zap.Int("snapshot", idx), zap.Error(err))
				continue
			}
			if err != nil {
				if err := s.check(log, err); err != nil {
					return err
				}
				continue
			}
			s.stats.Snapshots++
			log.Info("snapshot", zap.Int("snapshot", idx))
		default:
			return nil
		}
	}
	return nil
}

// check decides whether a send error ends the session.
func (s *Session) check(log *zap.Logger, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, transmitter.ErrTransport) && s.ContinueOnTransportError {
		s.stats.Skipped++
		log.Warn("send failed", zap.Error(err))
		return nil
	}
	return fmt.Errorf("session: %w", err)
}
