package hueplus

import (
	"fmt"
)

// ─── Command Building ───────────────────────────────────────────────────────────
//
// Low-level builders for the HUE+ serial protocol. Every value on the wire
// is a single octet; there are no length prefixes or checksums.
//
// Handshake bytes:
//   host → device  [0xC0]          probe, repeated until the device speaks
//   device → host  [0x01]          expected acknowledgement (not guaranteed)
//   host → device  [0x8D 0x01]     init
//   device → host  [0xC0 ...]      answered with [0x8C 0x00]
//   device → host  [... 0x56]      status burst finished, device ready

// buildProbe returns the single-byte probe.
func buildProbe() []byte {
	return []byte{byte(CmdProbe)}
}

// buildInit returns the init command sent after the first inbound chunk.
//
//	[1B] 0x8D
//	[1B] 0x01
func buildInit() []byte {
	return []byte{byte(CmdInit), 0x01}
}

// buildAckResponse returns the reply to a 0xC0-led chunk while awaiting init.
//
//	[1B] 0x8C
//	[1B] 0x00
func buildAckResponse() []byte {
	return []byte{byte(CmdAckResponse), 0x00}
}

// buildFrame assembles an LED update frame. The payload must be exactly
// PayloadSize bytes.
//
// Frame format (125 bytes, sent as one write):
//
//	[1B]   0x4B      LED frame header
//	[1B]   channel   0x00 both, 0x01 channel 1, 0x02 channel 2
//	[1B]   mode      0x00 fixed, 0x07 breathing
//	[1B]   0x01      undocumented, required
//	[1B]   0x02      undocumented, required
//	[120B] payload   40 × [green, red, blue]
func buildFrame(channel Channel, mode Mode, payload []byte) []byte {
	frame := make([]byte, FrameSize)
	frame[0] = byte(CmdLEDFrame)
	frame[1] = byte(channel)
	frame[2] = byte(mode)
	frame[3] = 0x01
	frame[4] = 0x02
	copy(frame[frameHeaderLength:], payload)
	return frame
}

// ─── Colour Conversion ──────────────────────────────────────────────────────────

// colourByte maps a decimal colour component straight onto one byte.
// No gamma, no clamping.
func colourByte(v int) (byte, error) {
	if v < 0 || v > 255 {
		return 0, fmt.Errorf("%w: got %d", ErrInvalidColour, v)
	}
	return byte(v), nil
}

// validate checks all three components.
func (c Colour) validate() error {
	for _, v := range [...]int{c.Red, c.Green, c.Blue} {
		if _, err := colourByte(v); err != nil {
			return err
		}
	}
	return nil
}

// grb returns the wire order of a validated colour.
func (c Colour) grb() [3]byte {
	return [3]byte{byte(c.Green), byte(c.Red), byte(c.Blue)}
}

// ─── Inbound Classification ─────────────────────────────────────────────────────
//
// Inbound chunk boundaries are whatever the serial driver delivered; they do
// not line up with device messages. Only the first or last byte of a chunk
// is ever inspected.

// isAck reports whether the chunk starts with the expected probe answer.
func isAck(chunk []byte) bool {
	return len(chunk) > 0 && chunk[0] == replyAck
}

// isProbeEcho reports whether the chunk starts with 0xC0.
func isProbeEcho(chunk []byte) bool {
	return len(chunk) > 0 && chunk[0] == byte(CmdProbe)
}

// isReadyTrailer reports whether the chunk ends with 0x56.
func isReadyTrailer(chunk []byte) bool {
	return len(chunk) > 0 && chunk[len(chunk)-1] == replyReadyTrailer
}
