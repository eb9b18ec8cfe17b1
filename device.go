package hueplus

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"go.uber.org/atomic"
	"golang.org/x/sync/errgroup"
)

// Device drives one NZXT HUE+ over a serial port. It owns the handshake
// state and an Encoder holding the queued LED colours.
//
// Usage:
//
//	dev := hueplus.NewDevice("/dev/ttyACM0")
//	if err := dev.Connect(ctx); err != nil {
//	    log.Fatal(err)
//	}
//	defer dev.Disconnect()
//
//	_ = dev.SetAll(hueplus.Red)
//	err := dev.Update(ctx, hueplus.ChannelBoth, hueplus.ModeFixed)
type Device struct {
	// address is the serial port path, e.g. /dev/ttyACM0 or COM3.
	address string

	opts deviceOptions
	log  zerolog.Logger

	// mu serializes Connect and Disconnect.
	mu sync.Mutex

	// writeMu serializes writes and guards port.
	writeMu sync.Mutex
	port    Port

	// hs is only touched by the goroutine running Connect.
	hs handshake

	// stopReader and readers control the inbound goroutines of the
	// current connection.
	stopReader context.CancelFunc
	readers    *errgroup.Group

	session    atomic.String
	connected  atomic.Bool
	waitPeriod atomic.Duration
	framesSent atomic.Uint64

	// ledMu guards leds.
	ledMu sync.Mutex
	leds  *Encoder
}

// NewDevice creates a Device for the serial port at address. The port is
// not opened until Connect.
//
//	// Defaults
//	dev := hueplus.NewDevice("/dev/ttyACM0")
//
//	// With options
//	dev := hueplus.NewDevice("COM3",
//	    hueplus.WithConnectTimeout(30*time.Second),
//	    hueplus.WithLogger(logger),
//	)
func NewDevice(address string, options ...DeviceOption) *Device {
	opts := defaultDeviceOptions()
	for _, opt := range options {
		opt(&opts)
	}

	d := &Device{
		address: address,
		opts:    opts,
		log:     opts.logger.With().Str("port", address).Logger(),
		leds:    NewEncoder(),
	}
	d.waitPeriod.Store(opts.waitPeriod)
	return d
}

// Connect opens the port and runs the handshake, returning once the device
// is ready for LED frames.
//
// Handshake:
//  1. 0xC0 is sent now and then every probe interval
//  2. The first inbound chunk stops probing; 0x8D 0x01 is sent
//  3. Chunks starting with 0xC0 are answered with 0x8C 0x00
//  4. A chunk ending in 0x56 means the device is ready
//
// Without WithConnectTimeout, Connect waits until ctx is done. If a
// connection is already open it is closed first.
func (d *Device) Connect(ctx context.Context) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.hasPort() {
		d.closeInternal()
	}

	port, err := d.opts.openPort(d.address, d.opts.baudRate)
	if err != nil {
		return fmt.Errorf("%w: %s: %w", ErrTransportOpen, d.address, err)
	}

	d.session.Store(uuid.New().String())
	log := d.logger()
	log.Info().Int("baud", d.opts.baudRate).Msg("Serial port opened")

	if err := resetPort(port); err != nil {
		log.Warn().Err(err).Msg("Could not flush port, continuing")
	}

	d.writeMu.Lock()
	d.port = port
	d.writeMu.Unlock()
	d.hs = handshake{}

	runCtx, cancel := context.WithCancel(context.Background())
	g, readCtx := errgroup.WithContext(runCtx)
	chunks := make(chan []byte, 16)
	g.Go(func() error {
		return readLoop(readCtx, port, chunks)
	})
	d.stopReader = cancel
	d.readers = g

	if err := d.runHandshake(ctx, readCtx, chunks, log); err != nil {
		d.closeInternal()
		return err
	}

	d.connected.Store(true)
	log.Info().Msg("Connected to the device, ready to send payload")

	g.Go(func() error {
		drainInbound(readCtx, chunks, log)
		return nil
	})
	return nil
}

// Disconnect closes the port. Disconnecting a device that never connected
// succeeds without doing anything, unless WithStrictDisconnect is set.
func (d *Device) Disconnect() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.log.Info().Msg("Disconnecting")
	if !d.connected.Load() {
		if d.opts.strictDisconnect {
			return fmt.Errorf("%w: disconnect before connect", ErrNotConnected)
		}
		d.log.Info().Msg("Never connected to the device")
		return nil
	}
	return d.closeInternal()
}

// IsConnected reports whether the handshake has completed. Safe to call
// while Connect is running.
func (d *Device) IsConnected() bool {
	return d.connected.Load()
}

// Address returns the serial port address.
func (d *Device) Address() string {
	return d.address
}

// Session returns the id of the current or last connection attempt, or ""
// before the first Connect.
func (d *Device) Session() string {
	return d.session.Load()
}

// FramesSent returns the number of LED frames written since construction.
func (d *Device) FramesSent() uint64 {
	return d.framesSent.Load()
}

// SendRaw writes data and blocks until the port has drained it.
func (d *Device) SendRaw(data []byte) error {
	d.writeMu.Lock()
	defer d.writeMu.Unlock()

	if d.port == nil {
		return fmt.Errorf("%w: port is closed", ErrNotConnected)
	}

	n, err := d.port.Write(data)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrWrite, err)
	}
	if n != len(data) {
		return fmt.Errorf("%w: %w (%d of %d bytes)", ErrWrite, io.ErrShortWrite, n, len(data))
	}
	if err := d.port.Drain(); err != nil {
		return fmt.Errorf("%w: drain: %w", ErrWrite, err)
	}
	return nil
}

// ─── Handshake ──────────────────────────────────────────────────────────────────

// runHandshake feeds probe ticks and inbound chunks into the state machine
// until it reports ready. readCtx is done when the reader has failed.
func (d *Device) runHandshake(ctx, readCtx context.Context, chunks <-chan []byte, log zerolog.Logger) error {
	if d.opts.connectTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeoutCause(ctx, d.opts.connectTimeout, ErrHandshakeTimeout)
		defer cancel()
	}

	log.Info().Msg("Waiting for device")
	if err := d.SendRaw(d.hs.start()); err != nil {
		return fmt.Errorf("probe: %w", err)
	}
	log.Debug().Msg("Pinged with 0xc0")

	ticker := time.NewTicker(d.opts.probeInterval)
	defer ticker.Stop()
	tickC := ticker.C

	for {
		select {
		case <-ctx.Done():
			if errors.Is(context.Cause(ctx), ErrHandshakeTimeout) {
				return fmt.Errorf("%w after %s", ErrHandshakeTimeout, d.opts.connectTimeout)
			}
			return ctx.Err()

		case <-readCtx.Done():
			return fmt.Errorf("%w: %w", ErrRead, d.readers.Wait())

		case <-tickC:
			probe := d.hs.tick()
			if probe == nil {
				continue
			}
			log.Info().Msg("Still waiting on device")
			// A lost re-probe is retried on the next tick.
			if err := d.SendRaw(probe); err != nil {
				log.Warn().Err(err).Msg("Probe failed")
			}

		case chunk := <-chunks:
			log.Debug().Hex("data", chunk).Msg("Device is sending activity")

			st := d.hs.feed(chunk)
			if st.stopProbe {
				ticker.Stop()
				tickC = nil
				if st.anomaly {
					log.Warn().Hex("data", chunk).Msg("Unexpected answer to probe, the device may have rejected it")
				} else {
					log.Info().Msg("Expected answer 0x01")
				}
			}

			if st.reply != nil {
				cmd := Cmd(st.reply[0])
				log.Info().Stringer("cmd", cmd).Hex("bytes", st.reply).Msg("Sending command")
				if err := d.SendRaw(st.reply); err != nil {
					return fmt.Errorf("%s: %w", cmd, err)
				}
			}

			if st.ready {
				return nil
			}
		}
	}
}

// ─── Inbound ────────────────────────────────────────────────────────────────────

// readLoop forwards inbound chunks in delivery order until ctx is done or
// the port fails.
func readLoop(ctx context.Context, port Port, chunks chan<- []byte) error {
	buf := make([]byte, readBufferSize)
	for {
		n, err := port.Read(buf)
		if ctx.Err() != nil {
			return nil
		}
		if err != nil {
			return fmt.Errorf("serial read: %w", err)
		}
		if n == 0 {
			continue
		}

		chunk := make([]byte, n)
		copy(chunk, buf[:n])

		select {
		case chunks <- chunk:
		case <-ctx.Done():
			return nil
		}
	}
}

// drainInbound consumes what the device sends after the handshake.
func drainInbound(ctx context.Context, chunks <-chan []byte, log zerolog.Logger) {
	for {
		select {
		case <-ctx.Done():
			return
		case chunk := <-chunks:
			log.Debug().Hex("data", chunk).Msg("Inbound data after handshake")
		}
	}
}

// ─── Internal Helpers ───────────────────────────────────────────────────────────

// closeInternal stops the inbound goroutines and closes the port. Callers
// must hold mu.
func (d *Device) closeInternal() error {
	d.connected.Store(false)
	d.hs = handshake{}

	if d.stopReader != nil {
		d.stopReader()
		d.stopReader = nil
	}

	d.writeMu.Lock()
	port := d.port
	d.port = nil
	d.writeMu.Unlock()

	var err error
	if port != nil {
		err = port.Close()
	}

	if d.readers != nil {
		if werr := d.readers.Wait(); werr != nil {
			d.log.Debug().Err(werr).Msg("Reader stopped with error")
		}
		d.readers = nil
	}
	return err
}

func (d *Device) hasPort() bool {
	d.writeMu.Lock()
	defer d.writeMu.Unlock()
	return d.port != nil
}

// logger returns the device logger tagged with the current session.
func (d *Device) logger() zerolog.Logger {
	if s := d.session.Load(); s != "" {
		return d.log.With().Str("session", s).Logger()
	}
	return d.log
}

// ensureConnected fails unless the handshake has completed.
func (d *Device) ensureConnected() error {
	if !d.connected.Load() {
		return fmt.Errorf("%w: call Connect first", ErrNotConnected)
	}
	return nil
}
