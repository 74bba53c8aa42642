package main

import (
	"bufio"
	"bytes"
	"flag"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/erikvanzijst/eeprom/at28c256"
	"github.com/erikvanzijst/eeprom/client"
)

const usage = `AT28C256 EEPROM Programmer

Read or write individual addresses, dump out the full contents to a file,
or load an image file onto the EEPROM.

To read a single byte:
> [r|read] [addr]

To write a byte to a specific address:
> [w|write] [addr] [value]

To dump the entire EEPROM to a file:
> [d|dump] [filename]

To load a local file into the EEPROM:
> [l|load] [filename]

To write random data and read it back for verification:
> [t|test]

Send a reset command:
> reset

Address supports hex (0xFF) and octal (0o7) notation.
`

type app struct {
	client *client.Client
}

// atoi parses an address or value in decimal, hex (0x) or octal (0o)
// notation.
func atoi(s string) (uint16, error) {
	v, err := strconv.ParseUint(s, 0, 16)
	if err != nil {
		return 0, fmt.Errorf("not a number: %s", s)
	}
	return uint16(v), nil
}

func (a *app) dispatch(args []string) error {
	cmd, rest := args[0], args[1:]
	switch cmd {
	case "read", "r":
		if len(rest) != 1 {
			return fmt.Errorf("usage: read <addr>")
		}
		return a.read(rest[0])

	case "write", "w":
		if len(rest) != 2 {
			return fmt.Errorf("usage: write <addr> <value>")
		}
		return a.write(rest[0], rest[1])

	case "dump", "d":
		fs := flag.NewFlagSet("dump", flag.ContinueOnError)
		size := fs.Int("s", at28c256.Capacity, "only dump the first n bytes")
		if err := fs.Parse(rest); err != nil {
			return err
		}
		return a.dump(fs.Args(), *size)

	case "load", "l":
		return a.load(rest)

	case "test", "t":
		fs := flag.NewFlagSet("test", flag.ContinueOnError)
		size := fs.Int("s", at28c256.Capacity, "write only n bytes of test data")
		if err := fs.Parse(rest); err != nil {
			return err
		}
		if err := a.client.Verify(*size); err != nil {
			return err
		}
		fmt.Println("OK")
		return nil

	case "reset":
		return a.client.Reset()

	case "repl":
		return a.repl()

	default:
		return fmt.Errorf("unknown command: %s", cmd)
	}
}

func (a *app) read(addr string) error {
	n, err := atoi(addr)
	if err != nil {
		return err
	}
	val, err := a.client.ReadByte(n)
	if err != nil {
		return err
	}
	fmt.Printf("%d / 0x%02x\n", val, val)
	return nil
}

func (a *app) write(addr, value string) error {
	n, err := atoi(addr)
	if err != nil {
		return err
	}
	v, err := atoi(value)
	if err != nil {
		return err
	}
	if v > 0xFF {
		return fmt.Errorf("value %d does not fit in a byte", v)
	}
	if err := a.client.WriteByte(n, byte(v)); err != nil {
		return err
	}
	fmt.Println("OK")
	return nil
}

// dump writes the EEPROM contents to the named file, or stdout when no
// file is given.
func (a *app) dump(args []string, size int) error {
	var out io.Writer = os.Stdout
	if len(args) > 0 {
		f, err := os.Create(args[0])
		if err != nil {
			return err
		}
		defer f.Close()
		out = f
	}
	return a.client.Dump(out, size)
}

// load programs the named file, or stdin when no file is given, capped at
// the chip's capacity.
func (a *app) load(args []string) error {
	var in io.Reader = os.Stdin
	if len(args) > 0 {
		f, err := os.Open(args[0])
		if err != nil {
			return fmt.Errorf("file not found: %s", args[0])
		}
		defer f.Close()
		in = f
	}

	// The load command declares the byte count up front, so buffer the
	// input to learn its size.
	var buf bytes.Buffer
	if _, err := io.Copy(&buf, io.LimitReader(in, at28c256.Capacity)); err != nil {
		return err
	}
	size := buf.Len()
	fmt.Printf("Loading %d bytes into EEPROM...\n", size)
	return a.client.Load(&buf, size)
}

func (a *app) repl() error {
	fmt.Print(usage)

	scanner := bufio.NewScanner(os.Stdin)
	for {
		fmt.Print("> ")
		if !scanner.Scan() {
			return scanner.Err()
		}
		fields := strings.Fields(scanner.Text())
		if len(fields) == 0 {
			continue
		}
		if fields[0] == "quit" || fields[0] == "q" {
			return nil
		}
		if err := a.dispatch(fields); err != nil {
			fmt.Println("Invalid command:", err)
		}
	}
}
