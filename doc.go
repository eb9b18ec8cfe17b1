// Package hueplus drives the NZXT HUE+ RGB lighting controller over its
// USB serial port.
//
// # Overview
//
// The HUE+ speaks a small single-octet protocol at 256000 baud. A host must
// wake it with a handshake before it accepts LED frames; afterwards each
// update is one 125-byte frame addressing one or both LED channels of up to
// 40 LEDs each.
//
// # Protocol
//
//   - Probe 0xC0 is repeated every 3 seconds until the device sends anything
//   - The device answers 0x01 (other values are tolerated and logged)
//   - Init 0x8D 0x01 is sent once
//   - Chunks starting with 0xC0 are answered with 0x8C 0x00
//   - A chunk ending in 0x56 means the device is ready
//   - LED frame: [0x4B][channel][mode][0x01][0x02] + 40 × [G][R][B]
//
// Inbound bytes arrive in arbitrary chunks; the driver never assumes a chunk
// is one message.
//
// # Quick Start
//
//	dev := hueplus.NewDevice("/dev/ttyACM0")
//	if err := dev.Connect(ctx); err != nil {
//	    log.Fatal(err)
//	}
//	defer dev.Disconnect()
//
//	_ = dev.SetAll(hueplus.Colour{Red: 255})
//	err := dev.Update(ctx, hueplus.ChannelBoth, hueplus.ModeFixed)
//
// Colours are queued with SetLED, SetAll, SetLEDs, SetGradient and Reset,
// and only shown on Update. Update waits a settle period (300ms by default)
// after each frame because the device drops frames sent back to back.
//
// # Thread Safety
//
// Device methods may be called from multiple goroutines. Connect and
// Disconnect are serialized, writes are serialized, and the queued colours
// are guarded separately. Encoder on its own is not safe for concurrent use.
package hueplus
