package firmware

import (
	"bytes"
	"context"
	"net"
	"testing"

	"github.com/erikvanzijst/eeprom/at28c256"
	"github.com/erikvanzijst/eeprom/hal"
	"github.com/erikvanzijst/eeprom/protocol"
	"github.com/erikvanzijst/eeprom/sim"
)

// arrayMem is a plain in-memory Memory implementation for dispatcher
// tests that don't need the full bus simulation.
type arrayMem [at28c256.Capacity]byte

func (m *arrayMem) ReadByte(addr uint16) byte       { return m[addr] }
func (m *arrayMem) WriteByte(addr uint16, val byte) { m[addr] = val }

// scriptedLink feeds Step from a pre-recorded stream and captures replies.
type scriptedLink struct {
	stream bytes.Buffer
	sent   bytes.Buffer
}

func (l *scriptedLink) Read(p []byte) (int, error)  { return l.stream.Read(p) }
func (l *scriptedLink) Write(p []byte) (int, error) { return l.sent.Write(p) }

func TestDispatchSingleFrameCommands(t *testing.T) {
	tests := []struct {
		name      string
		seed      func(m *arrayMem)
		frames    []byte
		wantReply []byte
		wantMem   map[uint16]byte
		// wantRises is the expected indicator count: one rise per
		// dispatched command plus five blinks per reported error.
		// Corrupt frames never light the activity indicator.
		wantRises int
	}{
		{
			name:      "read byte",
			seed:      func(m *arrayMem) { m[5] = 0xAB },
			frames:    []byte{3, 0x72, 0x00, 0x05},
			wantReply: []byte{1, 0xAB},
			wantRises: 1,
		},
		{
			name:      "write byte",
			frames:    []byte{4, 0x77, 0x00, 0x05, 0xCD},
			wantReply: []byte{0},
			wantMem:   map[uint16]byte{5: 0xCD},
			wantRises: 1,
		},
		{
			name:      "write then read back",
			frames:    []byte{4, 0x77, 0x12, 0x34, 0x5A, 3, 0x72, 0x12, 0x34},
			wantReply: []byte{0, 1, 0x5A},
			wantRises: 2,
		},
		{
			name:      "reset frame is ignored",
			frames:    []byte{1, 0x72},
			wantReply: nil,
			wantRises: 1,
		},
		{
			name:      "unknown opcode yields no reply",
			frames:    []byte{1, 0x99},
			wantRises: 1 + errorBlinks,
		},
		{
			name:      "known opcode with wrong length yields no reply",
			frames:    []byte{2, 0x64, 0x00},
			wantRises: 1 + errorBlinks,
		},
		{
			name:      "corrupt frame",
			frames:    []byte{5, 0x72, 0x00},
			wantRises: errorBlinks,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mem := &arrayMem{}
			if tt.seed != nil {
				tt.seed(mem)
			}
			link := &scriptedLink{}
			link.stream.Write(tt.frames)
			led := &sim.LED{}

			dev := New(link, mem,
				WithIndicator(led),
				WithDelayer(hal.Nop),
			)

			for link.stream.Len() > 0 {
				if err := dev.Step(); err != nil {
					t.Fatalf("Step() error = %v", err)
				}
			}

			if !bytes.Equal(link.sent.Bytes(), tt.wantReply) {
				t.Errorf("replies = % 02X, want % 02X", link.sent.Bytes(), tt.wantReply)
			}
			for addr, val := range tt.wantMem {
				if mem[addr] != val {
					t.Errorf("mem[%d] = 0x%02X, want 0x%02X", addr, mem[addr], val)
				}
			}

			if led.Rises() != tt.wantRises {
				t.Errorf("indicator rises = %d, want %d", led.Rises(), tt.wantRises)
			}
		})
	}
}

// startDevice runs a Device over one end of an in-memory pipe and returns
// a codec for the host end.
func startDevice(t *testing.T, mem Memory) (*protocol.Codec, *sim.LED) {
	t.Helper()

	host, dev := net.Pipe()
	led := &sim.LED{}

	d := New(dev, mem,
		WithIndicator(led),
		WithDelayer(hal.Nop),
		WithWriteCycleDelay(0),
	)

	done := make(chan error, 1)
	go func() { done <- d.Run(context.Background()) }()

	t.Cleanup(func() {
		host.Close()
		if err := <-done; err != nil {
			t.Errorf("Run() error = %v", err)
		}
	})
	return protocol.NewCodec(host), led
}

func TestDumpCompleteness(t *testing.T) {
	mem := &arrayMem{}
	for i := range mem {
		mem[i] = byte(i % 251)
	}
	host, _ := startDevice(t, mem)

	if err := host.Send([]byte{0x64}, false); err != nil {
		t.Fatalf("send dump command: %v", err)
	}

	var image []byte
	frames := 0
	buf := make([]byte, protocol.MaxPayload)
	for len(image) < at28c256.Capacity {
		n, err := host.Receive(buf, true)
		if err != nil {
			t.Fatalf("receive frame %d: %v", frames, err)
		}
		if n == 0 {
			t.Fatalf("frame %d: unexpected zero-length frame mid-dump", frames)
		}
		image = append(image, buf[:n]...)
		frames++
	}

	if frames != 521 {
		t.Errorf("dump produced %d frames, want 521", frames)
	}
	if len(image) != at28c256.Capacity {
		t.Fatalf("dump produced %d bytes, want %d", len(image), at28c256.Capacity)
	}
	if !bytes.Equal(image, mem[:]) {
		t.Error("dump image differs from memory contents")
	}
}

func TestDumpAbortsOnReset(t *testing.T) {
	mem := &arrayMem{}
	host, _ := startDevice(t, mem)

	if err := host.Send([]byte{0x64}, false); err != nil {
		t.Fatalf("send dump command: %v", err)
	}

	// Take one frame, then answer the next acknowledgement slot with a
	// reset. The device must abort the dump and return to idle.
	buf := make([]byte, protocol.MaxPayload)
	if _, err := host.Receive(buf, true); err != nil {
		t.Fatalf("receive first frame: %v", err)
	}
	if _, err := host.Receive(buf, false); err != nil {
		t.Fatalf("receive second frame: %v", err)
	}
	if err := host.Send([]byte{protocol.ResetByte}, false); err != nil {
		t.Fatalf("send reset: %v", err)
	}

	// Back in idle: a read command answers normally.
	mem[9] = 0x42
	if err := host.Send([]byte{0x72, 0x00, 0x09}, false); err != nil {
		t.Fatalf("send read command: %v", err)
	}
	n, err := host.Receive(buf, false)
	if err != nil || n != 1 || buf[0] != 0x42 {
		t.Fatalf("read after aborted dump = (%d, % 02X, %v), want (1, 42, nil)", n, buf[:n], err)
	}
}

func TestLoadCompleteness(t *testing.T) {
	const count = 100
	mem := &arrayMem{}
	host, _ := startDevice(t, mem)

	data := make([]byte, count)
	for i := range data {
		data[i] = byte(255 - i)
	}

	if err := host.Send([]byte{0x6c, byte(count >> 8), byte(count)}, true); err != nil {
		t.Fatalf("send load command: %v", err)
	}
	for off := 0; off < count; off += protocol.MaxPayload {
		end := off + protocol.MaxPayload
		if end > count {
			end = count
		}
		if err := host.Send(data[off:end], true); err != nil {
			t.Fatalf("send chunk at %d: %v", off, err)
		}
	}

	if !bytes.Equal(mem[:count], data) {
		t.Error("loaded bytes differ from sent data")
	}
	if mem[count] != 0 {
		t.Errorf("mem[%d] = 0x%02X, want untouched", count, mem[count])
	}

	// Device is back in idle.
	if err := host.Send([]byte{0x72, 0x00, 0x00}, false); err != nil {
		t.Fatalf("send read command: %v", err)
	}
	buf := make([]byte, protocol.MaxPayload)
	n, err := host.Receive(buf, false)
	if err != nil || n != 1 || buf[0] != data[0] {
		t.Fatalf("read after load = (%d, % 02X, %v), want (1, %02X, nil)", n, buf[:n], err, data[0])
	}
}

// TestAgainstSimulatedBoard runs the dispatcher on the real device access
// layer wired to simulated silicon.
func TestAgainstSimulatedBoard(t *testing.T) {
	board := sim.NewBoard()
	bus := at28c256.New(board.Pins(), at28c256.WithDelayer(hal.Nop))
	host, _ := startDevice(t, bus)

	// Write then read through the full stack.
	if err := host.Send([]byte{0x77, 0x00, 0x05, 0xCD}, true); err != nil {
		t.Fatalf("write command: %v", err)
	}
	if err := host.Send([]byte{0x72, 0x00, 0x05}, false); err != nil {
		t.Fatalf("read command: %v", err)
	}
	buf := make([]byte, protocol.MaxPayload)
	n, err := host.Receive(buf, false)
	if err != nil || n != 1 || buf[0] != 0xCD {
		t.Fatalf("read back = (%d, % 02X, %v), want (1, CD, nil)", n, buf[:n], err)
	}

	if got := board.Peek(5); got != 0xCD {
		t.Errorf("board memory at 5 = 0x%02X, want 0xCD", got)
	}
	if bus.Mode() != at28c256.Standby {
		t.Errorf("bus mode after commands = %v, want standby", bus.Mode())
	}
	if board.Contentions() != 0 {
		t.Errorf("bus contentions = %d, want 0", board.Contentions())
	}
}
