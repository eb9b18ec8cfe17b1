package hueplus

// handshake is the connection state machine. It never touches the port:
// every method returns the bytes to write, and the event loop in Connect
// does the writing. Timer ticks and inbound chunks must be fed from a
// single goroutine.
type handshake struct {
	state   ConnState
	probing bool // probe ticker active
}

// step is the outcome of feeding one event into the handshake.
type step struct {
	reply     []byte // bytes to write, nil for none
	stopProbe bool   // the probe ticker must be stopped before reply is written
	anomaly   bool   // first answer was not the expected 0x01
	ready     bool   // state just became StateReady
}

// start moves idle → probing and returns the first probe.
func (h *handshake) start() []byte {
	h.state = StateProbing
	h.probing = true
	return buildProbe()
}

// tick returns a probe while probing, nil otherwise.
func (h *handshake) tick() []byte {
	if h.state != StateProbing || !h.probing {
		return nil
	}
	return buildProbe()
}

// feed processes one inbound chunk.
//
// In probing, any data stops the probe ticker and triggers the init
// command; a first byte other than 0x01 is flagged but tolerated. In
// awaitingInit, a chunk starting with 0xC0 is answered with 0x8C 0x00,
// otherwise a chunk ending with 0x56 completes the handshake.
func (h *handshake) feed(chunk []byte) step {
	if len(chunk) == 0 {
		return step{}
	}

	switch h.state {
	case StateProbing:
		h.probing = false
		h.state = StateAwaitingInit
		return step{
			reply:     buildInit(),
			stopProbe: true,
			anomaly:   !isAck(chunk),
		}

	case StateAwaitingInit:
		if isProbeEcho(chunk) {
			return step{reply: buildAckResponse()}
		}
		if isReadyTrailer(chunk) {
			h.state = StateReady
			return step{ready: true}
		}
	}

	return step{}
}
