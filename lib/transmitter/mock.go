package transmitter

import (
	"errors"
	"sync"

	"gitlab.com/gomidi/midi/v2"
)

var errPortClosed = errors.New("mock: port closed")

// MockPort is an in-memory drivers.Out that records every message sent to it.
type MockPort struct {
	Name    string
	OpenErr error
	// SendErr is returned once FailAfter sends have succeeded.
	SendErr   error
	FailAfter int

	mu     sync.Mutex
	open   bool
	closes int
	sends  int
	sent   []midi.Message
}

func NewMockPort(name string) *MockPort {
	return &MockPort{Name: name}
}

func (p *MockPort) Open() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.OpenErr != nil {
		return p.OpenErr
	}
	p.open = true
	return nil
}

func (p *MockPort) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.open = false
	p.closes++
	return nil
}

func (p *MockPort) IsOpen() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.open
}

func (p *MockPort) Number() int             { return 0 }
func (p *MockPort) String() string          { return p.Name }
func (p *MockPort) Underlying() interface{} { return nil }

func (p *MockPort) Send(data []byte) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.open {
		return errPortClosed
	}
	if p.SendErr != nil && p.sends >= p.FailAfter {
		return p.SendErr
	}
	p.sends++
	p.sent = append(p.sent, midi.Message(append([]byte(nil), data...)))
	return nil
}

func (p *MockPort) Messages() []midi.Message {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]midi.Message(nil), p.sent...)
}

func (p *MockPort) Closes() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.closes
}
