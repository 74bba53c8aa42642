// Package client provides the host-side API for the AT28C256 programmer.
//
// # Overview
//
// A Client speaks the wire protocol over any io.ReadWriter (a serial port
// on real hardware, a TCP connection to the simulator, an in-memory pipe
// in tests) and exposes the programmer's operations:
//
//   - ReadByte / WriteByte for individual addresses
//   - Dump to stream the EEPROM contents to an io.Writer
//   - Load to program an image from an io.Reader
//   - Verify to program random data and read it back for comparison
//   - Reset to notify the device mid-exchange
//
// # Basic usage
//
//	port, _ := serial.Open("/dev/ttyUSB0", &serial.Mode{BaudRate: 115200})
//	c := client.New(port)
//	val, err := c.ReadByte(0x1234)
//
// # Progress tracking
//
// Streamed operations report progress through an optional callback:
//
//	c := client.New(port,
//	    client.WithProgress(func(p client.Progress) {
//	        fmt.Printf("\r%s %d%%", p.Operation, 100*p.Done/p.Total)
//	    }),
//	)
package client
