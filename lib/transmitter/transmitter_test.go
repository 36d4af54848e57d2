package transmitter

import (
	"errors"
	"testing"

	"gitlab.com/gomidi/midi/v2"
)

type cc struct {
	channel, control, value uint8
}

func setupTest(t *testing.T, cfg Config) (*MockPort, *Transmitter) {
	t.Helper()
	port := NewMockPort("mock out")
	tx, err := New(port, cfg)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { tx.Stop() })
	return port, tx
}

func sentCCs(t *testing.T, port *MockPort) []cc {
	t.Helper()
	var out []cc
	for _, msg := range port.Messages() {
		var c cc
		if !msg.GetControlChange(&c.channel, &c.control, &c.value) {
			t.Fatalf("unexpected message %v", msg)
		}
		out = append(out, c)
	}
	return out
}

func assertCCs(t *testing.T, got []cc, want []cc) {
	t.Helper()
	if len(got) != len(want) {
		t.Fatalf("got %d messages %v, want %d %v", len(got), got, len(want), want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("message %d: got %+v, want %+v", i, got[i], want[i])
		}
	}
}

func TestSplit14Edges(t *testing.T) {
	for _, tc := range []struct {
		v        int
		msb, lsb uint8
	}{
		{0, 0, 0},
		{16383, 127, 127},
		{128, 1, 0},
		{127, 0, 127},
		{8192, 64, 0},
		{1, 0, 1},
	} {
		msb, lsb, err := Split14(tc.v)
		if err != nil {
			t.Fatalf("Split14(%d): %v", tc.v, err)
		}
		if msb != tc.msb || lsb != tc.lsb {
			t.Errorf("Split14(%d) = (%d, %d), want (%d, %d)", tc.v, msb, lsb, tc.msb, tc.lsb)
		}
	}
}

func TestSplit14RoundTrip(t *testing.T) {
	for v := 0; v <= MaxPosition; v++ {
		msb, lsb, err := Split14(v)
		if err != nil {
			t.Fatalf("Split14(%d): %v", v, err)
		}
		if msb > 127 || lsb > 127 {
			t.Fatalf("Split14(%d) = (%d, %d), halves exceed 7 bits", v, msb, lsb)
		}
		if got := int(msb)*128 + int(lsb); got != v {
			t.Fatalf("round trip %d: got %d", v, got)
		}
		if got := Join14(msb, lsb); got != v {
			t.Fatalf("Join14 %d: got %d", v, got)
		}
	}
}

func TestSplit14Invalid(t *testing.T) {
	for _, v := range []int{-1, 16384, 1 << 20} {
		if _, _, err := Split14(v); !errors.Is(err, ErrInvalidPosition) {
			t.Errorf("Split14(%d): got %v, want ErrInvalidPosition", v, err)
		}
	}
}

func TestSetX(t *testing.T) {
	port, tx := setupTest(t, DefaultConfig())

	if err := tx.SetX(300); err != nil {
		t.Fatal(err)
	}
	assertCCs(t, sentCCs(t, port), []cc{{0, 0, 2}, {0, 32, 44}})
}

func TestSetXInvalidSendsNothing(t *testing.T) {
	port, tx := setupTest(t, DefaultConfig())

	for _, v := range []int{-1, 16384} {
		if err := tx.SetX(v); !errors.Is(err, ErrInvalidPosition) {
			t.Errorf("SetX(%d): got %v, want ErrInvalidPosition", v, err)
		}
		if err := tx.SetY(v); !errors.Is(err, ErrInvalidPosition) {
			t.Errorf("SetY(%d): got %v, want ErrInvalidPosition", v, err)
		}
	}
	if n := len(port.Messages()); n != 0 {
		t.Errorf("got %d messages, want 0", n)
	}
}

func TestSetXThenY(t *testing.T) {
	cfg := Config{Channel: 3, ControlX: 10, ControlY: 11, ControlSnap: 12}
	port, tx := setupTest(t, cfg)

	if err := tx.SetX(16383); err != nil {
		t.Fatal(err)
	}
	if err := tx.SetY(129); err != nil {
		t.Fatal(err)
	}
	assertCCs(t, sentCCs(t, port), []cc{
		{2, 10, 127},
		{2, 42, 127},
		{2, 11, 1},
		{2, 43, 1},
	})
}

func TestSetXY(t *testing.T) {
	port, tx := setupTest(t, DefaultConfig())

	if err := tx.SetXY(128, 127); err != nil {
		t.Fatal(err)
	}
	assertCCs(t, sentCCs(t, port), []cc{{0, 0, 1}, {0, 32, 0}, {0, 1, 0}, {0, 33, 127}})
}

func TestSetXYPartialFailure(t *testing.T) {
	port, tx := setupTest(t, DefaultConfig())

	err := tx.SetXY(5, 20000)
	if !errors.Is(err, ErrInvalidPosition) {
		t.Fatalf("got %v, want ErrInvalidPosition", err)
	}
	assertCCs(t, sentCCs(t, port), []cc{{0, 0, 0}, {0, 32, 5}})
}

func TestSetSnap(t *testing.T) {
	port, tx := setupTest(t, DefaultConfig())

	if err := tx.SetSnap(1); err != nil {
		t.Fatal(err)
	}
	if err := tx.SetSnap(128); err != nil {
		t.Fatal(err)
	}
	for _, idx := range []int{0, 129} {
		if err := tx.SetSnap(idx); !errors.Is(err, ErrInvalidSnapshot) {
			t.Errorf("SetSnap(%d): got %v, want ErrInvalidSnapshot", idx, err)
		}
	}
	assertCCs(t, sentCCs(t, port), []cc{{0, 2, 0}, {0, 2, 127}})
}

func TestChannelConversion(t *testing.T) {
	for _, tc := range []struct {
		channel int
		wire    uint8
	}{
		{1, 0},
		{16, 15},
	} {
		cfg := DefaultConfig()
		cfg.Channel = tc.channel
		port, tx := setupTest(t, cfg)
		if tx.WireChannel() != tc.wire {
			t.Errorf("channel %d: got wire channel %d, want %d", tc.channel, tx.WireChannel(), tc.wire)
		}
		if err := tx.SetSnap(1); err != nil {
			t.Fatal(err)
		}
		got := sentCCs(t, port)
		if got[0].channel != tc.wire {
			t.Errorf("channel %d: sent on %d, want %d", tc.channel, got[0].channel, tc.wire)
		}
	}
}

func TestStopIdempotent(t *testing.T) {
	port, tx := setupTest(t, DefaultConfig())

	if err := tx.Stop(); err != nil {
		t.Fatal(err)
	}
	if err := tx.Stop(); err != nil {
		t.Fatalf("second Stop: %v", err)
	}
	if err := tx.Close(); err != nil {
		t.Fatalf("Close after Stop: %v", err)
	}
	if port.Closes() != 1 {
		t.Errorf("port closed %d times, want 1", port.Closes())
	}
	if port.IsOpen() {
		t.Error("port still open after Stop")
	}

	if err := tx.SetX(1); !errors.Is(err, ErrTransport) {
		t.Errorf("SetX after Stop: got %v, want ErrTransport", err)
	}
	if err := tx.SetSnap(1); !errors.Is(err, ErrTransport) {
		t.Errorf("SetSnap after Stop: got %v, want ErrTransport", err)
	}
	if n := len(port.Messages()); n != 0 {
		t.Errorf("got %d messages, want 0", n)
	}
}

func TestTransportError(t *testing.T) {
	port := NewMockPort("flaky")
	cause := errors.New("device unplugged")
	port.SendErr = cause
	port.FailAfter = 1

	tx, err := New(port, DefaultConfig())
	if err != nil {
		t.Fatal(err)
	}
	defer tx.Stop()

	err = tx.SetX(200)
	if !errors.Is(err, ErrTransport) {
		t.Fatalf("got %v, want ErrTransport", err)
	}
	if !errors.Is(err, cause) {
		t.Errorf("got %v, want wrapped cause", err)
	}
	if n := len(port.Messages()); n != 1 {
		t.Errorf("got %d messages, want MSB only", n)
	}
}

func TestNewDeviceUnavailable(t *testing.T) {
	port := NewMockPort("broken")
	port.OpenErr = errors.New("busy")

	_, err := New(port, DefaultConfig())
	if !errors.Is(err, ErrDeviceUnavailable) {
		t.Fatalf("got %v, want ErrDeviceUnavailable", err)
	}
}

func TestNewInvalidConfig(t *testing.T) {
	for _, cfg := range []Config{
		{Channel: 0, ControlX: 0, ControlY: 1, ControlSnap: 2},
		{Channel: 17, ControlX: 0, ControlY: 1, ControlSnap: 2},
		{Channel: 1, ControlX: 96, ControlY: 1, ControlSnap: 2},
		{Channel: 1, ControlX: 0, ControlY: -1, ControlSnap: 2},
		{Channel: 1, ControlX: 0, ControlY: 1, ControlSnap: 128},
	} {
		port := NewMockPort("mock")
		if _, err := New(port, cfg); !errors.Is(err, ErrInvalidConfig) {
			t.Errorf("%+v: got %v, want ErrInvalidConfig", cfg, err)
		}
		if port.IsOpen() {
			t.Errorf("%+v: port opened for invalid config", cfg)
		}
	}
}

func TestHighestPositionControl(t *testing.T) {
	cfg := Config{Channel: 1, ControlX: 95, ControlY: 94, ControlSnap: 127}
	port, tx := setupTest(t, cfg)

	if err := tx.SetX(1); err != nil {
		t.Fatal(err)
	}
	if err := tx.SetSnap(2); err != nil {
		t.Fatal(err)
	}
	assertCCs(t, sentCCs(t, port), []cc{{0, 95, 0}, {0, 127, 1}, {0, 127, 1}})
}

func TestMessagesAreControlChange(t *testing.T) {
	port, tx := setupTest(t, DefaultConfig())

	if err := tx.SetY(42); err != nil {
		t.Fatal(err)
	}
	for _, msg := range port.Messages() {
		if !msg.Is(midi.ControlChangeMsg) {
			t.Errorf("got %v, want control change", msg)
		}
		if len(msg) != 3 {
			t.Errorf("got %d bytes, want 3", len(msg))
		}
	}
}
