package hueplus

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestDevice(p *fakePort, opts ...DeviceOption) *Device {
	base := []DeviceOption{
		WithPortOpener(p.opener()),
		WithProbeInterval(time.Hour),
		WithWaitPeriod(0),
	}
	return NewDevice("/dev/ttyTEST", append(base, opts...)...)
}

func TestConnectHandshakeSequence(t *testing.T) {
	p := newFakePort()
	p.respond = hueScript
	dev := newTestDevice(p)

	require.NoError(t, dev.Connect(context.Background()))
	defer dev.Disconnect()

	assert.True(t, dev.IsConnected())
	assert.Equal(t, StateReady, dev.hs.state)
	assert.False(t, dev.hs.probing)
	assert.Equal(t, [][]byte{
		{0xC0},
		{0x8D, 0x01},
		{0x8C, 0x00},
	}, p.written())

	_, err := uuid.Parse(dev.Session())
	assert.NoError(t, err)
}

func TestConnectFlushesPortAndDrainsWrites(t *testing.T) {
	p := newFakePort()
	p.respond = hueScript
	dev := newTestDevice(p)

	require.NoError(t, dev.Connect(context.Background()))
	defer dev.Disconnect()

	p.mu.Lock()
	defer p.mu.Unlock()
	assert.Equal(t, 1, p.resets)
	assert.Equal(t, len(p.writes), p.drains)
}

func TestConnectKeepsProbingUntilDeviceSpeaks(t *testing.T) {
	p := newFakePort()
	probes := 0
	p.respond = func(p *fakePort, data []byte) {
		switch data[0] {
		case byte(CmdProbe):
			probes++
			if probes == 3 {
				// Not the expected 0x01; tolerated.
				p.push([]byte{0x7F})
			}
		case byte(CmdInit):
			p.push([]byte{0x01, 0x56})
		}
	}
	dev := newTestDevice(p, WithProbeInterval(5*time.Millisecond))

	require.NoError(t, dev.Connect(context.Background()))
	defer dev.Disconnect()

	writes := p.written()
	require.GreaterOrEqual(t, len(writes), 4)

	initAt := -1
	for i, w := range writes {
		if w[0] == byte(CmdInit) {
			initAt = i
			break
		}
	}
	require.GreaterOrEqual(t, initAt, 3, "init must follow at least three probes")
	for _, w := range writes[:initAt] {
		assert.Equal(t, []byte{0xC0}, w)
	}
	for _, w := range writes[initAt+1:] {
		assert.NotEqual(t, byte(CmdProbe), w[0], "probe sent after init")
	}
}

func TestConnectTransportOpenError(t *testing.T) {
	busy := errors.New("device busy")
	dev := NewDevice("/dev/ttyTEST", WithPortOpener(func(string, int) (Port, error) {
		return nil, busy
	}))

	err := dev.Connect(context.Background())
	assert.ErrorIs(t, err, ErrTransportOpen)
	assert.ErrorIs(t, err, busy)
	assert.False(t, dev.IsConnected())
}

func TestConnectPassesBaudRate(t *testing.T) {
	p := newFakePort()
	p.respond = hueScript
	var gotAddr string
	var gotBaud int
	dev := NewDevice("COM3",
		WithProbeInterval(time.Hour),
		WithPortOpener(func(addr string, baud int) (Port, error) {
			gotAddr, gotBaud = addr, baud
			return p, nil
		}),
	)

	require.NoError(t, dev.Connect(context.Background()))
	defer dev.Disconnect()

	assert.Equal(t, "COM3", gotAddr)
	assert.Equal(t, 256000, gotBaud)
}

func TestConnectWriteErrorFailsConnect(t *testing.T) {
	p := newFakePort()
	p.respond = hueScript
	broken := errors.New("cable pulled")
	p.writeErr = func(data []byte) error {
		if data[0] == byte(CmdInit) {
			return broken
		}
		return nil
	}
	dev := newTestDevice(p)

	err := dev.Connect(context.Background())
	assert.ErrorIs(t, err, ErrWrite)
	assert.ErrorIs(t, err, broken)
	assert.False(t, dev.IsConnected())
	assert.True(t, p.wasClosed())
}

func TestConnectReadErrorFailsConnect(t *testing.T) {
	p := newFakePort()
	gone := errors.New("device unplugged")
	p.readErr <- gone
	dev := newTestDevice(p)

	err := dev.Connect(context.Background())
	assert.ErrorIs(t, err, ErrRead)
	assert.ErrorIs(t, err, gone)
	assert.True(t, p.wasClosed())
}

func TestConnectTimeout(t *testing.T) {
	p := newFakePort()
	dev := newTestDevice(p,
		WithProbeInterval(5*time.Millisecond),
		WithConnectTimeout(40*time.Millisecond),
	)

	err := dev.Connect(context.Background())
	assert.ErrorIs(t, err, ErrHandshakeTimeout)
	assert.False(t, dev.IsConnected())
	assert.True(t, p.wasClosed())

	for _, w := range p.written() {
		assert.Equal(t, []byte{0xC0}, w)
	}
}

func TestConnectContextCancelled(t *testing.T) {
	p := newFakePort()
	dev := newTestDevice(p)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	err := dev.Connect(ctx)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.NotErrorIs(t, err, ErrHandshakeTimeout)
	assert.True(t, p.wasClosed())
}

func TestConnectIgnoresProbeEchoUntilTrailer(t *testing.T) {
	p := newFakePort()
	p.respond = func(p *fakePort, data []byte) {
		switch data[0] {
		case byte(CmdProbe):
			p.push([]byte{0x01})
		case byte(CmdInit):
			// 0xC0 first wins over 0x56 last.
			p.push([]byte{0xC0, 0x56})
		case byte(CmdAckResponse):
			p.push([]byte{0x56})
		}
	}
	dev := newTestDevice(p)

	require.NoError(t, dev.Connect(context.Background()))
	defer dev.Disconnect()

	assert.Equal(t, [][]byte{{0xC0}, {0x8D, 0x01}, {0x8C, 0x00}}, p.written())
}

func TestDisconnectNeverConnected(t *testing.T) {
	dev := NewDevice("/dev/ttyTEST")
	assert.NoError(t, dev.Disconnect())
}

func TestDisconnectStrict(t *testing.T) {
	dev := NewDevice("/dev/ttyTEST", WithStrictDisconnect(true))
	assert.ErrorIs(t, dev.Disconnect(), ErrNotConnected)
}

func TestDisconnectClosesPort(t *testing.T) {
	p := newFakePort()
	p.respond = hueScript
	dev := newTestDevice(p)
	require.NoError(t, dev.Connect(context.Background()))

	// Data after the handshake is drained, not fed to the state machine.
	p.push([]byte{0x01, 0x02, 0x56})

	require.NoError(t, dev.Disconnect())
	assert.False(t, dev.IsConnected())
	assert.True(t, p.wasClosed())
	assert.NoError(t, dev.Disconnect())
}

func TestReconnectOpensFreshPort(t *testing.T) {
	first, second := newFakePort(), newFakePort()
	first.respond, second.respond = hueScript, hueScript
	ports := []*fakePort{first, second}
	dev := NewDevice("/dev/ttyTEST",
		WithProbeInterval(time.Hour),
		WithPortOpener(func(string, int) (Port, error) {
			p := ports[0]
			ports = ports[1:]
			return p, nil
		}),
	)

	require.NoError(t, dev.Connect(context.Background()))
	s1 := dev.Session()
	require.NoError(t, dev.Connect(context.Background()))
	defer dev.Disconnect()

	assert.True(t, first.wasClosed())
	assert.False(t, second.wasClosed())
	assert.NotEqual(t, s1, dev.Session())
	assert.True(t, dev.IsConnected())
}

func TestSendRawWithoutPort(t *testing.T) {
	dev := NewDevice("/dev/ttyTEST")
	assert.ErrorIs(t, dev.SendRaw([]byte{0x00}), ErrNotConnected)
}

func TestSendFrameNotConnected(t *testing.T) {
	opened := false
	dev := NewDevice("/dev/ttyTEST", WithPortOpener(func(string, int) (Port, error) {
		opened = true
		return newFakePort(), nil
	}))

	assert.ErrorIs(t, dev.SendFrame(ChannelBoth, ModeFixed), ErrNotConnected)
	assert.ErrorIs(t, dev.Update(context.Background(), ChannelBoth, ModeFixed), ErrNotConnected)
	assert.False(t, opened)
	assert.Zero(t, dev.FramesSent())
}

func TestSendFrameAfterFailedConnect(t *testing.T) {
	p := newFakePort()
	dev := newTestDevice(p, WithConnectTimeout(10*time.Millisecond))
	require.Error(t, dev.Connect(context.Background()))
	before := len(p.written())

	assert.ErrorIs(t, dev.SendFrame(ChannelOne, ModeFixed), ErrNotConnected)
	assert.Len(t, p.written(), before)
}

func TestUpdateWritesFrame(t *testing.T) {
	p := newFakePort()
	p.respond = hueScript
	dev := newTestDevice(p)
	require.NoError(t, dev.Connect(context.Background()))
	defer dev.Disconnect()

	require.NoError(t, dev.SetAll(Red))
	require.NoError(t, dev.SetLED(1, Colour{Red: 100, Blue: 255}))
	require.NoError(t, dev.Update(context.Background(), ChannelTwo, ModeBreathing))

	writes := p.written()
	frame := writes[len(writes)-1]
	require.Len(t, frame, FrameSize)
	assert.Equal(t, []byte{0x4B, 0x02, 0x07, 0x01, 0x02}, frame[:5])
	assert.Equal(t, []byte{0x00, 0xFF, 0x00}, frame[5:8])
	assert.Equal(t, []byte{0x00, 100, 0xFF}, frame[8:11])
	assert.Equal(t, uint64(1), dev.FramesSent())
}

func TestUpdateWaitsSettlePeriod(t *testing.T) {
	p := newFakePort()
	p.respond = hueScript
	dev := newTestDevice(p, WithWaitPeriod(30*time.Millisecond))
	require.NoError(t, dev.Connect(context.Background()))
	defer dev.Disconnect()

	start := time.Now()
	require.NoError(t, dev.Update(context.Background(), ChannelBoth, ModeFixed))
	assert.GreaterOrEqual(t, time.Since(start), 30*time.Millisecond)
}

func TestUpdateSettleCancelled(t *testing.T) {
	p := newFakePort()
	p.respond = hueScript
	dev := newTestDevice(p)
	dev.SetWaitPeriod(time.Hour)
	require.NoError(t, dev.Connect(context.Background()))
	defer dev.Disconnect()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	err := dev.Update(ctx, ChannelBoth, ModeFixed)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Equal(t, uint64(1), dev.FramesSent(), "frame is written before the settle wait")
}

func TestFillAndOff(t *testing.T) {
	p := newFakePort()
	p.respond = hueScript
	dev := newTestDevice(p)
	require.NoError(t, dev.Connect(context.Background()))
	defer dev.Disconnect()

	require.NoError(t, dev.Fill(context.Background(), ChannelOne, ModeFixed, Blue))
	require.NoError(t, dev.Off(context.Background(), ChannelOne))

	writes := p.written()
	fill, off := writes[len(writes)-2], writes[len(writes)-1]
	assert.Equal(t, []byte{0x00, 0x00, 0xFF}, fill[5:8])
	assert.Equal(t, make([]byte, PayloadSize), off[5:])
	assert.Equal(t, byte(ModeFixed), off[2])
}

func TestFillInvalidColourSendsNothing(t *testing.T) {
	p := newFakePort()
	p.respond = hueScript
	dev := newTestDevice(p)
	require.NoError(t, dev.Connect(context.Background()))
	defer dev.Disconnect()
	before := len(p.written())

	err := dev.Fill(context.Background(), ChannelBoth, ModeFixed, Colour{Red: 300})
	assert.ErrorIs(t, err, ErrInvalidColour)
	assert.Len(t, p.written(), before)
}

func TestWaitPeriod(t *testing.T) {
	dev := NewDevice("/dev/ttyTEST")
	assert.Equal(t, DefaultWaitPeriod, dev.WaitPeriod())

	dev.SetWaitPeriod(time.Second)
	assert.Equal(t, time.Second, dev.WaitPeriod())

	dev.SetWaitPeriod(-time.Second)
	assert.Equal(t, time.Second, dev.WaitPeriod())
}

func TestDeviceLEDReadBack(t *testing.T) {
	dev := NewDevice("/dev/ttyTEST")
	require.NoError(t, dev.SetGradient(Red, Blue))
	require.NoError(t, dev.SetLEDs([]Colour{White}))

	c, err := dev.LED(0)
	require.NoError(t, err)
	assert.Equal(t, White, c)

	c, err = dev.LED(39)
	require.NoError(t, err)
	assert.Equal(t, Blue, c)

	dev.Reset()
	c, err = dev.LED(0)
	require.NoError(t, err)
	assert.Equal(t, Off, c)
}
