package hueplus

import (
	"context"
	"fmt"
	"time"
)

// ─── Colour Queueing ────────────────────────────────────────────────────────────
//
// These only change the queued payload. Nothing reaches the device until
// Update or SendFrame.

// SetLED queues the colour of one LED (0-39).
//
//	err := dev.SetLED(1, hueplus.Colour{Red: 100, Blue: 255})
func (d *Device) SetLED(slot int, c Colour) error {
	d.ledMu.Lock()
	defer d.ledMu.Unlock()
	return d.leds.SetLED(slot, c)
}

// SetAll queues the same colour on every LED.
func (d *Device) SetAll(c Colour) error {
	d.ledMu.Lock()
	defer d.ledMu.Unlock()
	return d.leds.SetAll(c)
}

// Reset queues every LED off.
func (d *Device) Reset() {
	d.ledMu.Lock()
	defer d.ledMu.Unlock()
	d.leds.Reset()
}

// SetLEDs queues colours for the first len(colours) LEDs.
func (d *Device) SetLEDs(colours []Colour) error {
	d.ledMu.Lock()
	defer d.ledMu.Unlock()
	return d.leds.SetLEDs(colours)
}

// SetGradient queues a gradient across all LEDs.
//
//	err := dev.SetGradient(hueplus.Red, hueplus.Blue)
func (d *Device) SetGradient(from, to Colour) error {
	d.ledMu.Lock()
	defer d.ledMu.Unlock()
	return d.leds.SetGradient(from, to)
}

// LED returns the queued colour of one LED.
func (d *Device) LED(slot int) (Colour, error) {
	d.ledMu.Lock()
	defer d.ledMu.Unlock()
	return d.leds.Slot(slot)
}

// ─── Frame Sending ──────────────────────────────────────────────────────────────

// SendFrame writes the queued colours to channel as one LED frame. It does
// not wait for the settle period; see Update.
//
// Connection state is checked before writing, not held during the write.
func (d *Device) SendFrame(channel Channel, mode Mode) error {
	if err := d.ensureConnected(); err != nil {
		return err
	}

	d.ledMu.Lock()
	frame := d.leds.Frame(channel, mode)
	d.ledMu.Unlock()

	log := d.logger()
	log.Info().Stringer("channel", channel).Stringer("mode", mode).Msg("Sending LED instruction payload")
	if err := d.SendRaw(frame); err != nil {
		return fmt.Errorf("send LED frame: %w", err)
	}
	d.framesSent.Inc()
	return nil
}

// Update sends the queued colours to channel and then waits the settle
// period so the next frame is not dropped.
//
//	_ = dev.SetAll(hueplus.White)
//	err := dev.Update(ctx, hueplus.ChannelOne, hueplus.ModeBreathing)
func (d *Device) Update(ctx context.Context, channel Channel, mode Mode) error {
	if err := d.SendFrame(channel, mode); err != nil {
		return err
	}
	return d.settle(ctx)
}

// Fill sets every LED to c and updates channel.
func (d *Device) Fill(ctx context.Context, channel Channel, mode Mode, c Colour) error {
	if err := d.SetAll(c); err != nil {
		return err
	}
	return d.Update(ctx, channel, mode)
}

// Off turns every LED of channel off.
func (d *Device) Off(ctx context.Context, channel Channel) error {
	d.Reset()
	return d.Update(ctx, channel, ModeFixed)
}

// WaitPeriod returns the current settle period.
func (d *Device) WaitPeriod() time.Duration {
	return d.waitPeriod.Load()
}

// SetWaitPeriod changes the settle period used by Update. Values too low
// make the device skip instructions. Negative values are ignored.
func (d *Device) SetWaitPeriod(p time.Duration) {
	if p < 0 {
		return
	}
	d.waitPeriod.Store(p)
}

func (d *Device) settle(ctx context.Context) error {
	wait := d.waitPeriod.Load()
	if wait <= 0 {
		return nil
	}
	t := time.NewTimer(wait)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
