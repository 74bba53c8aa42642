// Package sim provides an in-memory model of the programmer circuit: a
// 74HC595 shift register feeding the address bus of an AT28C256, plus an
// activity LED. It implements the hal pin interfaces so the real device
// access layer and firmware can run against simulated silicon in tests,
// CI, and the eepromsim binary.
package sim

import (
	"sync"

	"github.com/erikvanzijst/eeprom/at28c256"
	"github.com/erikvanzijst/eeprom/hal"
)

// Board models the programmer circuit at the pin level.
//
// The simulated EEPROM drives the data bus only while it is selected for
// reading (CE low, OE low, WE high) and captures a byte on the rising edge
// of WE while selected for writing (CE low, OE high). Writes performed
// while any data line is still floating capture those bits as zero, just
// as a floating input would read on real hardware.
type Board struct {
	mu sync.Mutex

	mem [at28c256.Capacity]byte

	shift uint16 // shift register contents
	latch uint16 // storage register (the address bus)

	ser, sclk, rclk hal.Level
	we, oe, ce      hal.Level

	data [8]dataLine

	contentions int
}

type dataLine struct {
	mode   hal.Mode
	driven hal.Level
}

// NewBoard returns a Board with all memory erased to 0xFF, the state a
// fresh EEPROM ships in.
func NewBoard() *Board {
	b := &Board{
		we: hal.High,
		oe: hal.High,
		ce: hal.High,
	}
	for i := range b.mem {
		b.mem[i] = 0xFF
	}
	return b
}

// Pins returns the pin bundle wiring this board to an at28c256.Bus.
func (b *Board) Pins() at28c256.Pins {
	p := at28c256.Pins{
		ChipEnable:   &cePin{b},
		OutputEnable: &oePin{b},
		WriteEnable:  &wePin{b},
		ShiftData:    &serPin{b},
		ShiftClock:   &sclkPin{b},
		LatchClock:   &rclkPin{b},
	}
	for i := range p.Data {
		p.Data[i] = &dataPin{b: b, bit: i}
	}
	return p
}

// Address returns the address currently latched onto the address bus.
func (b *Board) Address() uint16 {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.latch & (at28c256.Capacity - 1)
}

// Peek returns the memory cell at addr without going through the bus.
func (b *Board) Peek(addr uint16) byte {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.mem[addr%at28c256.Capacity]
}

// Poke sets the memory cell at addr without going through the bus.
func (b *Board) Poke(addr uint16, val byte) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.mem[addr%at28c256.Capacity] = val
}

// SetImage copies up to Capacity bytes of img into memory starting at
// address 0.
func (b *Board) SetImage(img []byte) {
	b.mu.Lock()
	defer b.mu.Unlock()
	copy(b.mem[:], img)
}

// Image returns a copy of the full memory contents.
func (b *Board) Image() []byte {
	b.mu.Lock()
	defer b.mu.Unlock()
	img := make([]byte, len(b.mem))
	copy(img, b.mem[:])
	return img
}

// Contentions reports how many pin events occurred with the EEPROM and the
// controller driving the data bus at the same time. Any non-zero value is
// a bus safety violation in the code under test.
func (b *Board) Contentions() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.contentions
}

// driving reports whether the simulated EEPROM is driving the data bus.
// Caller holds b.mu.
func (b *Board) driving() bool {
	return b.ce == hal.Low && b.oe == hal.Low && b.we == hal.High
}

// checkContention records a violation if both sides drive the bus.
// Caller holds b.mu.
func (b *Board) checkContention() {
	if !b.driving() {
		return
	}
	for _, l := range b.data {
		if l.mode == hal.Output {
			b.contentions++
			return
		}
	}
}

// dataBus assembles the controller-driven byte, LSB first. Floating lines
// read as zero. Caller holds b.mu.
func (b *Board) dataBus() byte {
	var val byte
	for i, l := range b.data {
		if l.mode == hal.Output && l.driven == hal.High {
			val |= 1 << i
		}
	}
	return val
}

type dataPin struct {
	b   *Board
	bit int
}

func (p *dataPin) SetMode(m hal.Mode) {
	p.b.mu.Lock()
	defer p.b.mu.Unlock()
	p.b.data[p.bit].mode = m
	p.b.checkContention()
}

func (p *dataPin) Write(l hal.Level) {
	p.b.mu.Lock()
	defer p.b.mu.Unlock()
	p.b.data[p.bit].driven = l
	p.b.checkContention()
}

func (p *dataPin) Read() hal.Level {
	p.b.mu.Lock()
	defer p.b.mu.Unlock()
	if p.b.driving() {
		addr := p.b.latch % at28c256.Capacity
		return hal.Level(p.b.mem[addr]>>p.bit&1 == 1)
	}
	return p.b.data[p.bit].driven
}

type cePin struct{ b *Board }

func (p *cePin) SetMode(hal.Mode) {}
func (p *cePin) Read() hal.Level  { p.b.mu.Lock(); defer p.b.mu.Unlock(); return p.b.ce }
func (p *cePin) Write(l hal.Level) {
	p.b.mu.Lock()
	defer p.b.mu.Unlock()
	p.b.ce = l
	p.b.checkContention()
}

type oePin struct{ b *Board }

func (p *oePin) SetMode(hal.Mode) {}
func (p *oePin) Read() hal.Level  { p.b.mu.Lock(); defer p.b.mu.Unlock(); return p.b.oe }
func (p *oePin) Write(l hal.Level) {
	p.b.mu.Lock()
	defer p.b.mu.Unlock()
	p.b.oe = l
	p.b.checkContention()
}

type wePin struct{ b *Board }

func (p *wePin) SetMode(hal.Mode) {}
func (p *wePin) Read() hal.Level  { p.b.mu.Lock(); defer p.b.mu.Unlock(); return p.b.we }
func (p *wePin) Write(l hal.Level) {
	p.b.mu.Lock()
	defer p.b.mu.Unlock()
	prev := p.b.we
	p.b.we = l

	// Data is latched on the rising WE edge while the chip is selected
	// for writing.
	if prev == hal.Low && l == hal.High && p.b.ce == hal.Low && p.b.oe == hal.High {
		addr := p.b.latch % at28c256.Capacity
		p.b.mem[addr] = p.b.dataBus()
	}
	p.b.checkContention()
}

type serPin struct{ b *Board }

func (p *serPin) SetMode(hal.Mode) {}
func (p *serPin) Read() hal.Level  { p.b.mu.Lock(); defer p.b.mu.Unlock(); return p.b.ser }
func (p *serPin) Write(l hal.Level) {
	p.b.mu.Lock()
	defer p.b.mu.Unlock()
	p.b.ser = l
}

type sclkPin struct{ b *Board }

func (p *sclkPin) SetMode(hal.Mode) {}
func (p *sclkPin) Read() hal.Level  { p.b.mu.Lock(); defer p.b.mu.Unlock(); return p.b.sclk }
func (p *sclkPin) Write(l hal.Level) {
	p.b.mu.Lock()
	defer p.b.mu.Unlock()
	prev := p.b.sclk
	p.b.sclk = l
	if prev == hal.Low && l == hal.High {
		p.b.shift <<= 1
		if p.b.ser == hal.High {
			p.b.shift |= 1
		}
	}
}

type rclkPin struct{ b *Board }

func (p *rclkPin) SetMode(hal.Mode) {}
func (p *rclkPin) Read() hal.Level  { p.b.mu.Lock(); defer p.b.mu.Unlock(); return p.b.rclk }
func (p *rclkPin) Write(l hal.Level) {
	p.b.mu.Lock()
	defer p.b.mu.Unlock()
	prev := p.b.rclk
	p.b.rclk = l
	if prev == hal.Low && l == hal.High {
		p.b.latch = p.b.shift
	}
}

// LED is a pin that records its level transitions. Useful for asserting
// on activity and error blink patterns.
type LED struct {
	mu    sync.Mutex
	level hal.Level
	rises int
}

func (l *LED) SetMode(hal.Mode) {}

func (l *LED) Write(lv hal.Level) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.level == hal.Low && lv == hal.High {
		l.rises++
	}
	l.level = lv
}

func (l *LED) Read() hal.Level {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.level
}

// Rises returns the number of low to high transitions seen so far.
func (l *LED) Rises() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.rises
}
