package at28c256_test

import (
	"math/rand"
	"testing"
	"time"

	"github.com/erikvanzijst/eeprom/at28c256"
	"github.com/erikvanzijst/eeprom/hal"
	"github.com/erikvanzijst/eeprom/sim"
)

func newBus(t *testing.T) (*at28c256.Bus, *sim.Board) {
	t.Helper()
	board := sim.NewBoard()
	bus := at28c256.New(board.Pins(), at28c256.WithDelayer(hal.Nop))
	return bus, board
}

func TestNewEntersStandby(t *testing.T) {
	bus, board := newBus(t)

	if bus.Mode() != at28c256.Standby {
		t.Errorf("Mode() = %v, want standby", bus.Mode())
	}
	if board.Contentions() != 0 {
		t.Errorf("contentions = %d, want 0", board.Contentions())
	}
}

func TestLoadAddress(t *testing.T) {
	tests := []struct {
		name string
		addr uint16
		want uint16
	}{
		{"zero", 0x0000, 0x0000},
		{"alternating bits", 0x5555, 0x5555},
		{"top of address space", 0x7FFF, 0x7FFF},
		{"bit 15 ignored by the chip", 0xFFFF, 0x7FFF},
		{"single low bit", 0x0001, 0x0001},
		{"single high bit", 0x4000, 0x4000},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			bus, board := newBus(t)
			bus.LoadAddress(tt.addr)
			if got := board.Address(); got != tt.want {
				t.Errorf("Address() = 0x%04X, want 0x%04X", got, tt.want)
			}
		})
	}
}

func TestRoundTrip(t *testing.T) {
	bus, board := newBus(t)
	rnd := rand.New(rand.NewSource(1))

	for i := 0; i < 512; i++ {
		addr := uint16(rnd.Intn(at28c256.Capacity))
		val := byte(rnd.Intn(256))

		bus.WriteByte(addr, val)
		if got := bus.ReadByte(addr); got != val {
			t.Fatalf("ReadByte(0x%04X) = 0x%02X, want 0x%02X", addr, got, val)
		}
	}
	if board.Contentions() != 0 {
		t.Errorf("contentions = %d, want 0", board.Contentions())
	}
}

func TestModeSafetyAfterOperations(t *testing.T) {
	bus, board := newBus(t)

	bus.WriteByte(0x0123, 0x5A)
	if bus.Mode() != at28c256.Standby {
		t.Errorf("mode after WriteByte = %v, want standby", bus.Mode())
	}

	bus.ReadByte(0x0123)
	if bus.Mode() != at28c256.Standby {
		t.Errorf("mode after ReadByte = %v, want standby", bus.Mode())
	}

	if board.Contentions() != 0 {
		t.Errorf("contentions = %d, want 0", board.Contentions())
	}
}

func TestReadFreshChip(t *testing.T) {
	bus, _ := newBus(t)

	// A fresh EEPROM reads back erased cells.
	if got := bus.ReadByte(0); got != 0xFF {
		t.Errorf("ReadByte(0) = 0x%02X, want 0xFF", got)
	}
}

func TestWriteLeavesNeighborsAlone(t *testing.T) {
	bus, board := newBus(t)

	board.Poke(0x0FF, 0x11)
	board.Poke(0x101, 0x22)
	bus.WriteByte(0x100, 0x99)

	if got := board.Peek(0x0FF); got != 0x11 {
		t.Errorf("neighbor below = 0x%02X, want 0x11", got)
	}
	if got := board.Peek(0x100); got != 0x99 {
		t.Errorf("target = 0x%02X, want 0x99", got)
	}
	if got := board.Peek(0x101); got != 0x22 {
		t.Errorf("neighbor above = 0x%02X, want 0x22", got)
	}
}

func TestSettleDelayClamp(t *testing.T) {
	var total time.Duration
	counting := hal.DelayerFunc(func(d time.Duration) { total += d })

	board := sim.NewBoard()
	at28c256.New(board.Pins(),
		at28c256.WithDelayer(counting),
		at28c256.WithSettleDelay(time.Microsecond), // below minimum
	)

	// New enters standby, which holds once.
	if total < at28c256.MinSettleDelay {
		t.Errorf("hold time %v below minimum %v", total, at28c256.MinSettleDelay)
	}
}

func TestEnterReadIsDebounced(t *testing.T) {
	calls := 0
	counting := hal.DelayerFunc(func(time.Duration) { calls++ })

	board := sim.NewBoard()
	bus := at28c256.New(board.Pins(), at28c256.WithDelayer(counting))

	bus.EnterRead()
	after := calls
	bus.EnterRead() // no-op while already in read mode
	if calls != after {
		t.Errorf("second EnterRead toggled lines (%d extra delays)", calls-after)
	}

	bus.EnterStandby()
}
