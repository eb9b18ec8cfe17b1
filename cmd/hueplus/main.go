package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/sanity-io/litter"

	"github.com/benjamingwynn/hueplus"
	"github.com/benjamingwynn/hueplus/internal/config"
)

// ledFlags collects repeated -led slot=colour flags.
type ledFlags []string

func (l *ledFlags) String() string { return strings.Join(*l, " ") }

func (l *ledFlags) Set(v string) error {
	*l = append(*l, v)
	return nil
}

func main() {
	// ---- Flags (override config.yaml where set) ----
	var leds ledFlags
	var (
		port       = flag.String("port", "", "serial port of the HUE+ (e.g. /dev/ttyACM0, COM3)")
		configPath = flag.String("config", "", "path to a YAML config file")
		channel    = flag.String("channel", "both", "channel: both | one | two")
		mode       = flag.String("mode", "fixed", "mode: fixed | breathing")
		colour     = flag.String("colour", "", "colour for every LED (#rrggbb or r,g,b)")
		gradient   = flag.String("gradient", "", "gradient across the LEDs (from:to)")
		off        = flag.Bool("off", false, "turn the channel off")
		wait       = flag.Duration("wait", 0, "settle period after a frame (default from config)")
		timeout    = flag.Duration("timeout", 0, "handshake timeout (default from config)")
		debug      = flag.Bool("debug", false, "debug logging")
		dumpConfig = flag.Bool("dump-config", false, "print the effective config and exit")
	)
	flag.Var(&leds, "led", "single LED as slot=colour, repeatable (e.g. -led 3=#00ff00)")
	flag.Parse()

	// ---- Logging ----
	zerolog.TimeFieldFormat = time.RFC3339
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.Kitchen})

	// ---- Config ----
	cfg := config.Default()
	if *configPath != "" {
		c, err := config.Load(*configPath)
		if err != nil {
			log.Fatal().Err(err).Str("path", *configPath).Msg("config load failed")
		}
		cfg = *c
	}
	if *port != "" {
		cfg.Port = *port
	}
	if *wait > 0 {
		cfg.WaitPeriod = *wait
	}
	if *timeout > 0 {
		cfg.ConnectTimeout = *timeout
	}
	if *debug {
		cfg.LogLevel = "debug"
	}

	level, err := zerolog.ParseLevel(cfg.LogLevel)
	if err != nil {
		log.Warn().Str("level", cfg.LogLevel).Msg("unknown log level; using info")
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)

	if *dumpConfig {
		fmt.Println(litter.Sdump(cfg))
		return
	}
	if cfg.Port == "" {
		log.Fatal().Msg("no serial port: use -port or set port in the config file")
	}

	// ---- Colours ----
	ch, err := hueplus.ParseChannel(*channel)
	if err != nil {
		log.Fatal().Err(err).Msg("bad -channel")
	}
	md, err := hueplus.ParseMode(*mode)
	if err != nil {
		log.Fatal().Err(err).Msg("bad -mode")
	}

	dev := hueplus.NewDevice(cfg.Port,
		hueplus.WithLogger(log.Logger),
		hueplus.WithWaitPeriod(cfg.WaitPeriod),
		hueplus.WithConnectTimeout(cfg.ConnectTimeout),
		hueplus.WithProbeInterval(cfg.ProbeInterval),
		hueplus.WithStrictDisconnect(cfg.StrictDisconnect),
	)

	if err := queueColours(dev, *off, *colour, *gradient, leds); err != nil {
		log.Fatal().Err(err).Msg("bad colour")
	}

	// ---- Run ----
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, dev, ch, md); err != nil {
		log.Error().Err(err).Msg("update failed")
		os.Exit(1)
	}
}

func run(ctx context.Context, dev *hueplus.Device, ch hueplus.Channel, md hueplus.Mode) (err error) {
	if err := dev.Connect(ctx); err != nil {
		return err
	}
	defer func() {
		if derr := dev.Disconnect(); derr != nil && err == nil {
			err = derr
		}
	}()

	return dev.Update(ctx, ch, md)
}

// queueColours applies -off, -colour, -gradient and -led in that order, so
// single LEDs can be set on top of a fill or gradient.
func queueColours(dev *hueplus.Device, off bool, colour, gradient string, leds []string) error {
	if off {
		dev.Reset()
		return nil
	}

	if colour != "" {
		c, err := hueplus.ParseColour(colour)
		if err != nil {
			return err
		}
		if err := dev.SetAll(c); err != nil {
			return err
		}
	}

	if gradient != "" {
		from, to, err := parseGradient(gradient)
		if err != nil {
			return err
		}
		if err := dev.SetGradient(from, to); err != nil {
			return err
		}
	}

	for _, l := range leds {
		slot, c, err := parseLED(l)
		if err != nil {
			return err
		}
		if err := dev.SetLED(slot, c); err != nil {
			return err
		}
	}
	return nil
}

// parseLED parses "slot=colour".
func parseLED(s string) (int, hueplus.Colour, error) {
	idx, col, ok := strings.Cut(s, "=")
	if !ok {
		return 0, hueplus.Colour{}, fmt.Errorf("-led %q: want slot=colour", s)
	}
	slot, err := strconv.Atoi(strings.TrimSpace(idx))
	if err != nil {
		return 0, hueplus.Colour{}, errors.Join(hueplus.ErrIndexOutOfRange, fmt.Errorf("-led %q: %w", s, err))
	}
	c, err := hueplus.ParseColour(col)
	if err != nil {
		return 0, hueplus.Colour{}, fmt.Errorf("-led %q: %w", s, err)
	}
	return slot, c, nil
}

// parseGradient parses "from:to".
func parseGradient(s string) (hueplus.Colour, hueplus.Colour, error) {
	a, b, ok := strings.Cut(s, ":")
	if !ok {
		return hueplus.Colour{}, hueplus.Colour{}, fmt.Errorf("-gradient %q: want from:to", s)
	}
	from, err := hueplus.ParseColour(a)
	if err != nil {
		return hueplus.Colour{}, hueplus.Colour{}, err
	}
	to, err := hueplus.ParseColour(b)
	if err != nil {
		return hueplus.Colour{}, hueplus.Colour{}, err
	}
	return from, to, nil
}
