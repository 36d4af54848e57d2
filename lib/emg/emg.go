// Package emg defines the boundary between signal acquisition and the
// control loop: sources of sample blocks, feature extraction and prediction.
package emg

import (
	"context"
	"errors"
	"fmt"
	"math"
)

var ErrStopped = errors.New("emg: source stopped")

// Block holds one read from a source, indexed [channel][sample].
type Block [][]float64

func (b Block) Channels() int { return len(b) }

func (b Block) Samples() int {
	if len(b) == 0 {
		return 0
	}
	return len(b[0])
}

type Source interface {
	Start() error
	Read(ctx context.Context) (Block, error)
	Stop() error
}

type FeatureExtractor interface {
	Produce(Block) ([]float64, error)
}

type FeatureFunc func(Block) ([]float64, error)

func (f FeatureFunc) Produce(b Block) ([]float64, error) { return f(b) }

// Predictor maps features to one position (X) or two (X, Y).
type Predictor interface {
	Predict(features []float64) ([]float64, error)
}

// Windower keeps the most recent Size samples of every channel.
type Windower struct {
	Size int
	buf  Block
}

func NewWindower(size int) *Windower {
	return &Windower{Size: size}
}

func (w *Windower) Process(b Block) Block {
	if w.buf == nil || len(w.buf) != len(b) {
		w.buf = make(Block, len(b))
	}
	out := make(Block, len(b))
	for ch := range b {
		data := append(append([]float64(nil), w.buf[ch]...), b[ch]...)
		if len(data) > w.Size {
			data = data[len(data)-w.Size:]
		}
		w.buf[ch] = data
		out[ch] = append([]float64(nil), data...)
	}
	return out
}

func (w *Windower) Clear() {
	w.buf = nil
}

// MeanAbsDifference is the mean absolute value of channel b minus that of
// channel a: one feature that is positive when b is the more active side.
func MeanAbsDifference(a, b int) FeatureFunc {
	return func(blk Block) ([]float64, error) {
		if a < 0 || b < 0 || a >= len(blk) || b >= len(blk) {
			return nil, fmt.Errorf("emg: channels %d,%d not in block of %d", a, b, len(blk))
		}
		if len(blk[a]) == 0 || len(blk[b]) == 0 {
			return nil, fmt.Errorf("emg: empty block")
		}
		return []float64{meanAbs(blk[b]) - meanAbs(blk[a])}, nil
	}
}

func meanAbs(xs []float64) float64 {
	var sum float64
	for _, x := range xs {
		sum += math.Abs(x)
	}
	return sum / float64(len(xs))
}

type Linear struct {
	Coef      []float64
	Intercept float64
}

func (l Linear) Predict(features []float64) ([]float64, error) {
	if len(features) != len(l.Coef) {
		return nil, fmt.Errorf("emg: got %d features, model has %d coefficients", len(features), len(l.Coef))
	}
	y := l.Intercept
	for i, f := range features {
		y += l.Coef[i] * f
	}
	return []float64{y}, nil
}

// Quantize clips v to [0, 2^bits-1] and truncates it to an integer.
func Quantize(v float64, bits int) int {
	hi := float64(int(1)<<bits - 1)
	switch {
	case math.IsNaN(v), v < 0:
		return 0
	case v > hi:
		return int(hi)
	}
	return int(v)
}

// Center is the initial cursor position, the middle of the range.
func Center(bits int) int {
	return 1 << (bits - 1)
}
