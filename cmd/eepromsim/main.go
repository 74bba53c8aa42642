// Command eepromsim serves the programmer firmware, wired to simulated
// silicon, on a TCP listener. It lets the eeprom tool and CI exercise the
// full stack without hardware:
//
//	eepromsim -addr localhost:9600 &
//	... connect a client to localhost:9600 ...
//
// The protocol supports a single client, so connections are served one at
// a time. The simulated EEPROM's contents persist across sessions and can
// be preloaded from an image file.
package main

import (
	"context"
	"flag"
	"net"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog"

	"github.com/erikvanzijst/eeprom/at28c256"
	"github.com/erikvanzijst/eeprom/firmware"
	"github.com/erikvanzijst/eeprom/hal"
	"github.com/erikvanzijst/eeprom/sim"
)

func main() {
	var (
		addr     = flag.String("addr", "localhost:9600", "address to listen on")
		image    = flag.String("image", "", "image file to preload into the simulated EEPROM")
		realtime = flag.Bool("realtime", false, "honor real chip timing instead of running instantly")
		verbose  = flag.Bool("v", false, "debug logging")
	)
	flag.Parse()

	level := zerolog.InfoLevel
	if *verbose {
		level = zerolog.DebugLevel
	}
	log := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).
		Level(level).
		With().Timestamp().Logger()

	board := sim.NewBoard()
	if *image != "" {
		img, err := os.ReadFile(*image)
		if err != nil {
			log.Fatal().Err(err).Msg("cannot read image")
		}
		board.SetImage(img)
		log.Info().Str("image", *image).Int("bytes", len(img)).Msg("image preloaded")
	}

	// The simulated silicon has no setup or hold times to respect, so
	// timing delays are skipped unless asked for.
	delayer := hal.Sleeper
	writeCycle := firmware.DefaultWriteCycleDelay
	if !*realtime {
		delayer = hal.Nop
		writeCycle = 0
	}
	bus := at28c256.New(board.Pins(), at28c256.WithDelayer(delayer))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	ln, err := net.Listen("tcp", *addr)
	if err != nil {
		log.Fatal().Err(err).Msg("listen failed")
	}
	defer ln.Close()
	go func() {
		<-ctx.Done()
		ln.Close()
	}()
	log.Info().Str("addr", ln.Addr().String()).Msg("simulator listening")

	for {
		conn, err := ln.Accept()
		if err != nil {
			if ctx.Err() != nil {
				log.Info().Msg("shutting down")
				return
			}
			log.Error().Err(err).Msg("accept failed")
			continue
		}

		slog := log.With().Str("peer", conn.RemoteAddr().String()).Logger()
		slog.Info().Msg("session started")

		// Unblock a session stuck in a read when shutting down.
		sctx, cancel := context.WithCancel(ctx)
		go func() {
			<-sctx.Done()
			conn.Close()
		}()

		dev := firmware.New(conn, bus,
			firmware.WithLogger(slog),
			firmware.WithDelayer(delayer),
			firmware.WithWriteCycleDelay(writeCycle),
		)
		if err := dev.Run(ctx); err != nil && ctx.Err() == nil {
			slog.Warn().Err(err).Msg("session failed")
		}
		cancel()
		slog.Info().Msg("session ended")
	}
}
