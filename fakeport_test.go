package hueplus

import (
	"errors"
	"sync"
)

var errPortClosed = errors.New("port closed")

// fakePort is an in-memory Port. Writes are recorded; respond is called
// after every successful write and may queue inbound chunks with push.
type fakePort struct {
	mu      sync.Mutex
	writes  [][]byte
	drains  int
	resets  int
	isClose bool

	inbound   chan []byte
	readErr   chan error
	closed    chan struct{}
	closeOnce sync.Once

	respond  func(p *fakePort, data []byte)
	writeErr func(data []byte) error
}

func newFakePort() *fakePort {
	return &fakePort{
		inbound: make(chan []byte, 64),
		readErr: make(chan error, 1),
		closed:  make(chan struct{}),
	}
}

// opener returns a PortOpener handing out p.
func (p *fakePort) opener() PortOpener {
	return func(string, int) (Port, error) { return p, nil }
}

func (p *fakePort) push(chunks ...[]byte) {
	for _, c := range chunks {
		p.inbound <- c
	}
}

func (p *fakePort) Read(b []byte) (int, error) {
	select {
	case c := <-p.inbound:
		return copy(b, c), nil
	case err := <-p.readErr:
		return 0, err
	case <-p.closed:
		return 0, errPortClosed
	}
}

func (p *fakePort) Write(b []byte) (int, error) {
	if p.writeErr != nil {
		if err := p.writeErr(b); err != nil {
			return 0, err
		}
	}
	p.mu.Lock()
	p.writes = append(p.writes, append([]byte(nil), b...))
	p.mu.Unlock()

	if p.respond != nil {
		p.respond(p, b)
	}
	return len(b), nil
}

func (p *fakePort) Drain() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.drains++
	return nil
}

func (p *fakePort) ResetInputBuffer() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.resets++
	return nil
}

func (p *fakePort) ResetOutputBuffer() error { return nil }

func (p *fakePort) Close() error {
	p.closeOnce.Do(func() {
		p.mu.Lock()
		p.isClose = true
		p.mu.Unlock()
		close(p.closed)
	})
	return nil
}

func (p *fakePort) written() [][]byte {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([][]byte, len(p.writes))
	copy(out, p.writes)
	return out
}

func (p *fakePort) wasClosed() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.isClose
}

// hueScript answers like a healthy HUE+: 0x01 to the probe, a 0xC0-led
// chunk to init, and a status burst ending in 0x56 to the ack response.
func hueScript(p *fakePort, data []byte) {
	switch data[0] {
	case byte(CmdProbe):
		p.push([]byte{0x01})
	case byte(CmdInit):
		p.push([]byte{0xC0, 0x00, 0x00})
	case byte(CmdAckResponse):
		p.push([]byte{0x03, 0x10, 0x22}, []byte{0x41, 0x56})
	}
}
