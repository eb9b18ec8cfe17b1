package hueplus

import (
	"fmt"
)

// Encoder holds the colour assignment of one channel's 40 LEDs and turns
// it into LED frames. It performs no I/O.
//
// The payload is stored in the device's wire order: green, red, blue.
//
//	enc := hueplus.NewEncoder()
//	_ = enc.SetAll(hueplus.Red)
//	_ = enc.SetLED(0, hueplus.Colour{Red: 100, Blue: 255})
//	frame := enc.Frame(hueplus.ChannelBoth, hueplus.ModeFixed)
//
// An Encoder is not safe for concurrent use; Device guards its own.
type Encoder struct {
	payload [PayloadSize]byte
}

// NewEncoder returns an encoder with every LED off.
func NewEncoder() *Encoder {
	return &Encoder{}
}

// SetLED queues the colour of one LED. It is not shown until a frame is sent.
func (e *Encoder) SetLED(slot int, c Colour) error {
	if err := checkSlot(slot); err != nil {
		return err
	}
	if err := c.validate(); err != nil {
		return err
	}
	e.put(slot, c)
	return nil
}

// SetAll queues the same colour on all LEDs. An invalid colour leaves the
// payload untouched.
func (e *Encoder) SetAll(c Colour) error {
	if err := c.validate(); err != nil {
		return err
	}
	for i := 0; i < SlotCount; i++ {
		e.put(i, c)
	}
	return nil
}

// Reset queues all LEDs off.
func (e *Encoder) Reset() {
	for i := range e.payload {
		e.payload[i] = 0
	}
}

// SetLEDs queues colours for slots 0..len(colours)-1. Every colour is
// checked before any slot is written.
func (e *Encoder) SetLEDs(colours []Colour) error {
	if len(colours) > SlotCount {
		return fmt.Errorf("%w: %d colours for %d slots", ErrIndexOutOfRange, len(colours), SlotCount)
	}
	for i, c := range colours {
		if err := c.validate(); err != nil {
			return fmt.Errorf("slot %d: %w", i, err)
		}
	}
	for i, c := range colours {
		e.put(i, c)
	}
	return nil
}

// SetGradient queues a gradient from the first LED to the last, blended
// in CIE-L*a*b* space.
func (e *Encoder) SetGradient(from, to Colour) error {
	if err := from.validate(); err != nil {
		return err
	}
	if err := to.validate(); err != nil {
		return err
	}
	a, b := from.Colorful(), to.Colorful()
	for i := 0; i < SlotCount; i++ {
		t := float64(i) / float64(SlotCount-1)
		r, g, bl := a.BlendLab(b, t).Clamped().RGB255()
		e.put(i, Colour{Red: int(r), Green: int(g), Blue: int(bl)})
	}
	return nil
}

// Slot returns the queued colour of one LED.
func (e *Encoder) Slot(slot int) (Colour, error) {
	if err := checkSlot(slot); err != nil {
		return Colour{}, err
	}
	off := slot * 3
	return Colour{
		Green: int(e.payload[off]),
		Red:   int(e.payload[off+1]),
		Blue:  int(e.payload[off+2]),
	}, nil
}

// Payload returns a copy of the 120-byte colour payload.
func (e *Encoder) Payload() []byte {
	out := make([]byte, PayloadSize)
	copy(out, e.payload[:])
	return out
}

// Frame builds the 125-byte LED frame for the current payload. The payload
// itself is not modified.
func (e *Encoder) Frame(channel Channel, mode Mode) []byte {
	return buildFrame(channel, mode, e.payload[:])
}

// put writes a validated colour.
func (e *Encoder) put(slot int, c Colour) {
	grb := c.grb()
	copy(e.payload[slot*3:slot*3+3], grb[:])
}

func checkSlot(slot int) error {
	if slot < 0 || slot >= SlotCount {
		return fmt.Errorf("%w: %d (valid 0-%d)", ErrIndexOutOfRange, slot, SlotCount-1)
	}
	return nil
}
