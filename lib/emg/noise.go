package emg

import (
	"context"
	"fmt"
	"math/rand/v2"
	"time"
)

// NoiseSource produces uniform noise in [-Amplitude, Amplitude], one block of
// ReadSize samples per channel every ReadSize/Rate seconds. It stands in for
// an acquisition device when none is attached.
type NoiseSource struct {
	Rate      float64
	Channels  int
	Amplitude float64
	ReadSize  int

	rng     *rand.Rand
	ticker  *time.Ticker
	started bool
}

func NewNoiseSource(rate float64, channels int, amplitude float64, readSize int) *NoiseSource {
	return &NoiseSource{
		Rate:      rate,
		Channels:  channels,
		Amplitude: amplitude,
		ReadSize:  readSize,
	}
}

func (n *NoiseSource) Interval() time.Duration {
	return time.Duration(float64(time.Second) * float64(n.ReadSize) / n.Rate)
}

func (n *NoiseSource) Start() error {
	if n.Rate <= 0 || n.Channels < 1 || n.ReadSize < 1 {
		return fmt.Errorf("emg: noise source needs positive rate, channels and read size")
	}
	if n.started {
		return nil
	}
	if n.rng == nil {
		n.rng = rand.New(rand.NewPCG(uint64(time.Now().UnixNano()), 0))
	}
	n.ticker = time.NewTicker(n.Interval())
	n.started = true
	return nil
}

func (n *NoiseSource) Read(ctx context.Context) (Block, error) {
	if !n.started {
		return nil, ErrStopped
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-n.ticker.C:
	}
	blk := make(Block, n.Channels)
	for ch := range blk {
		blk[ch] = make([]float64, n.ReadSize)
		for i := range blk[ch] {
			blk[ch][i] = (n.rng.Float64()*2 - 1) * n.Amplitude
		}
	}
	return blk, nil
}

func (n *NoiseSource) Stop() error {
	if n.started {
		n.ticker.Stop()
		n.started = false
	}
	return nil
}
