package hueplus

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// ─── Protocol Constants ─────────────────────────────────────────────────────────

const (
	// DefaultBaudRate is the fixed serial speed of the HUE+.
	DefaultBaudRate = 256000

	// DefaultProbeInterval is how often the probe byte is re-sent while the
	// device stays silent. A cold device often ignores the first probe.
	DefaultProbeInterval = 3000 * time.Millisecond

	// DefaultWaitPeriod is the settle period after a frame. The device skips
	// or corrupts frames that arrive closer together than this.
	DefaultWaitPeriod = 300 * time.Millisecond

	// SlotCount is the number of addressable LEDs per channel.
	SlotCount = 40

	// PayloadSize is the colour payload length: 3 bytes per slot.
	PayloadSize = SlotCount * 3

	// frameHeaderLength is the LED frame header: [0x4B][channel][mode][0x01][0x02]
	frameHeaderLength = 5

	// FrameSize is the total length of one LED frame.
	FrameSize = frameHeaderLength + PayloadSize

	// readBufferSize bounds a single inbound chunk.
	readBufferSize = 256
)

// ─── Command Bytes ──────────────────────────────────────────────────────────────

// Cmd is a single command octet of the HUE+ serial protocol.
type Cmd byte

const (
	// CmdProbe wakes the device. Sent immediately after open and then on
	// every probe tick until the device answers.
	CmdProbe Cmd = 0xC0

	// CmdInit is the first byte of the init command [0x8D 0x01], sent once
	// the device has produced any data.
	CmdInit Cmd = 0x8D

	// CmdAckResponse is the first byte of [0x8C 0x00], the reply to a chunk
	// that starts with 0xC0 while awaiting init.
	CmdAckResponse Cmd = 0x8C

	// CmdLEDFrame is the first byte of every LED update frame.
	CmdLEDFrame Cmd = 0x4B
)

const (
	// replyAck is the expected first byte of the device's answer to a probe.
	replyAck byte = 0x01

	// replyReadyTrailer marks the end of the status burst that follows init.
	// Only the last byte of a chunk is inspected.
	replyReadyTrailer byte = 0x56
)

// String returns a readable name for the command byte.
func (c Cmd) String() string {
	switch c {
	case CmdProbe:
		return "Probe"
	case CmdInit:
		return "Init"
	case CmdAckResponse:
		return "AckResponse"
	case CmdLEDFrame:
		return "LEDFrame"
	default:
		return fmt.Sprintf("Unknown(0x%02x)", byte(c))
	}
}

// ─── Channels and Modes ─────────────────────────────────────────────────────────

// Channel selects which LED strip group a frame addresses.
type Channel byte

const (
	ChannelBoth Channel = 0x00 // Broadcast to both channels
	ChannelOne  Channel = 0x01 // Channel 1
	ChannelTwo  Channel = 0x02 // Channel 2
)

// String returns the channel name as accepted by ParseChannel.
func (c Channel) String() string {
	switch c {
	case ChannelBoth:
		return "both"
	case ChannelOne:
		return "one"
	case ChannelTwo:
		return "two"
	default:
		return fmt.Sprintf("Channel(0x%02x)", byte(c))
	}
}

// ParseChannel parses "both", "one"/"1" or "two"/"2".
func ParseChannel(s string) (Channel, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "both", "all", "0":
		return ChannelBoth, nil
	case "one", "1":
		return ChannelOne, nil
	case "two", "2":
		return ChannelTwo, nil
	default:
		return 0, fmt.Errorf("%w: %q", ErrUnknownChannel, s)
	}
}

// Mode is the device-side rendering effect carried in every frame header.
type Mode byte

const (
	ModeFixed     Mode = 0x00 // Fixed colour, no effect
	ModeBreathing Mode = 0x07 // Breathing effect
)

// String returns the mode name as accepted by ParseMode.
func (m Mode) String() string {
	switch m {
	case ModeFixed:
		return "fixed"
	case ModeBreathing:
		return "breathing"
	default:
		return fmt.Sprintf("Mode(0x%02x)", byte(m))
	}
}

// ParseMode parses "fixed" or "breathing".
func ParseMode(s string) (Mode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "fixed", "":
		return ModeFixed, nil
	case "breathing":
		return ModeBreathing, nil
	default:
		return 0, fmt.Errorf("%w: %q", ErrUnknownMode, s)
	}
}

// ─── Connection State ───────────────────────────────────────────────────────────

// ConnState is the handshake progress of a Device.
type ConnState int32

const (
	StateIdle         ConnState = iota // Constructed, port not opened
	StateProbing                       // Port open, probing until the device speaks
	StateAwaitingInit                  // Init sent, waiting for the 0x56 trailer
	StateReady                         // Frames may be sent
)

// String returns a readable name for the state.
func (s ConnState) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateProbing:
		return "probing"
	case StateAwaitingInit:
		return "awaitingInit"
	case StateReady:
		return "ready"
	default:
		return fmt.Sprintf("ConnState(%d)", int32(s))
	}
}

// ─── Colour ─────────────────────────────────────────────────────────────────────

// Colour is an RGB triple. Every component must be in 0-255.
type Colour struct {
	Red   int
	Green int
	Blue  int
}

// Common colours.
var (
	Off   = Colour{}
	White = Colour{Red: 255, Green: 255, Blue: 255}
	Red   = Colour{Red: 255}
	Green = Colour{Green: 255}
	Blue  = Colour{Blue: 255}
)

// String formats the colour as #rrggbb. Out-of-range colours are printed
// as decimal triples.
func (c Colour) String() string {
	if c.validate() != nil {
		return fmt.Sprintf("rgb(%d,%d,%d)", c.Red, c.Green, c.Blue)
	}
	return fmt.Sprintf("#%02x%02x%02x", c.Red, c.Green, c.Blue)
}

// ─── Errors ─────────────────────────────────────────────────────────────────────

var (
	// ErrTransportOpen is returned when the serial port cannot be opened.
	ErrTransportOpen = errors.New("hueplus: transport open failed")

	// ErrWrite is returned when the transport rejects or fails a write or drain.
	ErrWrite = errors.New("hueplus: write failed")

	// ErrRead is returned when the transport fails while the handshake waits for data.
	ErrRead = errors.New("hueplus: read failed")

	// ErrIndexOutOfRange is returned for LED slots outside 0-39.
	ErrIndexOutOfRange = errors.New("hueplus: LED index out of range")

	// ErrInvalidColour is returned for colour components outside 0-255.
	ErrInvalidColour = errors.New("hueplus: colour must be in the range 0-255")

	// ErrNotConnected is returned when a frame is sent before the handshake
	// completed, and by Disconnect in strict mode.
	ErrNotConnected = errors.New("hueplus: not connected")

	// ErrHandshakeTimeout is returned when WithConnectTimeout expires before
	// the device became ready.
	ErrHandshakeTimeout = errors.New("hueplus: handshake timed out")

	// ErrUnknownChannel is returned by ParseChannel.
	ErrUnknownChannel = errors.New("hueplus: unknown channel")

	// ErrUnknownMode is returned by ParseMode.
	ErrUnknownMode = errors.New("hueplus: unknown mode")
)

// ─── Options ────────────────────────────────────────────────────────────────────

// DeviceOption configures a Device. Functional options pattern.
type DeviceOption func(*deviceOptions)

type deviceOptions struct {
	baudRate         int
	probeInterval    time.Duration
	waitPeriod       time.Duration
	connectTimeout   time.Duration
	strictDisconnect bool
	logger           zerolog.Logger
	openPort         PortOpener
}

func defaultDeviceOptions() deviceOptions {
	return deviceOptions{
		baudRate:       DefaultBaudRate,
		probeInterval:  DefaultProbeInterval,
		waitPeriod:     DefaultWaitPeriod,
		connectTimeout: 0,
		logger:         zerolog.Nop(),
		openPort:       OpenSerialPort,
	}
}

// WithProbeInterval sets how often the probe byte is repeated while the
// device is silent. Default 3s.
func WithProbeInterval(d time.Duration) DeviceOption {
	return func(o *deviceOptions) {
		if d > 0 {
			o.probeInterval = d
		}
	}
}

// WithWaitPeriod sets the settle period Update waits after each frame.
// Lower values may make the device skip instructions.
//
//	dev := hueplus.NewDevice("/dev/ttyACM0",
//	    hueplus.WithWaitPeriod(150*time.Millisecond),
//	)
func WithWaitPeriod(d time.Duration) DeviceOption {
	return func(o *deviceOptions) {
		if d >= 0 {
			o.waitPeriod = d
		}
	}
}

// WithConnectTimeout bounds the handshake. Zero (the default) waits until
// the device answers or the context passed to Connect is done.
func WithConnectTimeout(d time.Duration) DeviceOption {
	return func(o *deviceOptions) {
		if d >= 0 {
			o.connectTimeout = d
		}
	}
}

// WithStrictDisconnect makes Disconnect return ErrNotConnected when the
// device never became ready, instead of succeeding silently.
func WithStrictDisconnect(strict bool) DeviceOption {
	return func(o *deviceOptions) {
		o.strictDisconnect = strict
	}
}

// WithLogger sets the logger. Logging is disabled by default.
//
//	dev := hueplus.NewDevice("/dev/ttyACM0",
//	    hueplus.WithLogger(zerolog.New(os.Stderr).With().Timestamp().Logger()),
//	)
func WithLogger(l zerolog.Logger) DeviceOption {
	return func(o *deviceOptions) {
		o.logger = l
	}
}

// WithPortOpener replaces the function used to open the transport.
func WithPortOpener(open PortOpener) DeviceOption {
	return func(o *deviceOptions) {
		if open != nil {
			o.openPort = open
		}
	}
}

// WithBaudRate overrides the serial speed. The HUE+ only talks at 256000.
func WithBaudRate(baud int) DeviceOption {
	return func(o *deviceOptions) {
		if baud > 0 {
			o.baudRate = baud
		}
	}
}
