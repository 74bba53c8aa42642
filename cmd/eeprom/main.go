// Command eeprom is the host-side tool for the AT28C256 programmer.
//
// Usage:
//
//	eeprom [flags] read <addr>
//	eeprom [flags] write <addr> <value>
//	eeprom [flags] dump [-s size] [file]
//	eeprom [flags] load [file]
//	eeprom [flags] test [-s size]
//	eeprom [flags] reset
//	eeprom [flags] repl
//
// Without a subcommand an interactive REPL is started. Addresses and
// values accept decimal, hexadecimal (0x) and octal (0o) notation.
package main

import (
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"go.bug.st/serial"
	"go.bug.st/serial/enumerator"

	"github.com/erikvanzijst/eeprom/client"
	"github.com/erikvanzijst/eeprom/config"
)

func main() {
	var (
		portFlag   = flag.String("p", "", "serial port (default: autodetect an Arduino)")
		configFlag = flag.String("config", "", "path to TOML config file")
		verbose    = flag.Bool("v", false, "debug logging")
	)
	flag.Parse()

	log := newLogger(*verbose)

	cfg, err := config.Load(*configFlag)
	if err != nil {
		log.Fatal().Err(err).Msg("bad configuration")
	}
	if *portFlag != "" {
		cfg.Port = *portFlag
	}
	if *verbose {
		cfg.LogLevel = "debug"
	}
	log = log.Level(parseLevel(cfg.LogLevel))

	if err := run(cfg, log, flag.Args()); err != nil {
		log.Fatal().Err(err).Msg("command failed")
	}
}

func run(cfg config.Config, log zerolog.Logger, args []string) error {
	name := cfg.Port
	if name == "" {
		detected, err := autodetect()
		if err != nil {
			return err
		}
		name = detected
		log.Info().Str("port", name).Msg("autodetected programmer")
	}

	port, err := serial.Open(name, &serial.Mode{BaudRate: cfg.Baud})
	if err != nil {
		return fmt.Errorf("open %s: %w", name, err)
	}
	defer port.Close()
	if err := port.SetReadTimeout(time.Duration(cfg.ReadTimeout)); err != nil {
		return fmt.Errorf("set read timeout: %w", err)
	}

	// Opening the port resets the board; give the firmware time to come
	// back up before talking to it.
	time.Sleep(2 * time.Second)

	c := client.New(&deadlineLink{port},
		client.WithChunkSize(cfg.ChunkSize),
		client.WithLogger(log),
		client.WithProgress(consoleProgress),
	)

	app := &app{client: c}
	if len(args) == 0 {
		return app.repl()
	}
	return app.dispatch(args)
}

// deadlineLink maps the serial library's silent read timeouts (n=0 with a
// nil error) to a hard error so a dead session fails instead of spinning.
type deadlineLink struct {
	port serial.Port
}

func (l *deadlineLink) Read(p []byte) (int, error) {
	n, err := l.port.Read(p)
	if n == 0 && err == nil {
		return 0, os.ErrDeadlineExceeded
	}
	return n, err
}

func (l *deadlineLink) Write(p []byte) (int, error) { return l.port.Write(p) }

// autodetect returns the first serial port that looks like an attached
// Arduino.
func autodetect() (string, error) {
	ports, err := enumerator.GetDetailedPortsList()
	if err != nil {
		return "", fmt.Errorf("enumerate serial ports: %w", err)
	}
	for _, p := range ports {
		if strings.Contains(strings.ToLower(p.Product), "arduino") {
			return p.Name, nil
		}
	}
	return "", fmt.Errorf("cannot find an Arduino; specify the port with -p")
}

func consoleProgress(p client.Progress) {
	fmt.Fprintf(os.Stderr, "\r%s %d%%", p.Operation, 100*p.Done/p.Total)
	if p.Done == p.Total {
		fmt.Fprintln(os.Stderr)
	}
}

func newLogger(verbose bool) zerolog.Logger {
	level := zerolog.InfoLevel
	if verbose {
		level = zerolog.DebugLevel
	}
	return zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).
		Level(level).
		With().Timestamp().Logger()
}

func parseLevel(name string) zerolog.Level {
	if lvl, err := zerolog.ParseLevel(strings.ToLower(name)); err == nil {
		return lvl
	}
	return zerolog.InfoLevel
}
