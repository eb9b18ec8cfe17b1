package hueplus

import (
	"fmt"
	"io"

	"go.bug.st/serial"
)

// Port is the byte duplex a Device talks through. go.bug.st/serial ports
// satisfy it directly.
type Port interface {
	io.ReadWriteCloser

	// Drain blocks until every written byte has left the host.
	Drain() error

	// ResetInputBuffer discards received bytes not yet read.
	ResetInputBuffer() error

	// ResetOutputBuffer discards written bytes not yet sent.
	ResetOutputBuffer() error
}

// PortOpener opens the transport at address.
type PortOpener func(address string, baudRate int) (Port, error)

var _ Port = (serial.Port)(nil)

// OpenSerialPort opens a serial port at 8N1 with the given baud rate. It is
// the default PortOpener.
func OpenSerialPort(address string, baudRate int) (Port, error) {
	mode := &serial.Mode{
		BaudRate: baudRate,
		DataBits: 8,
		Parity:   serial.NoParity,
		StopBits: serial.OneStopBit,
	}
	port, err := serial.Open(address, mode)
	if err != nil {
		return nil, fmt.Errorf("open serial port %s: %w", address, err)
	}
	return port, nil
}

// resetPort discards anything buffered in either direction.
func resetPort(port Port) error {
	if err := port.ResetInputBuffer(); err != nil {
		return fmt.Errorf("reset input buffer: %w", err)
	}
	if err := port.ResetOutputBuffer(); err != nil {
		return fmt.Errorf("reset output buffer: %w", err)
	}
	return nil
}
