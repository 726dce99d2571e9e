package serialmux

import (
	"fmt"

	"go.bug.st/serial"
)

// NewRealSerialMux creates a SerialMux instance backed by the GPS receiver's
// serial port at the given path.
func NewRealSerialMux(path string, opts PortOptions) (*SerialMux[serial.Port], error) {
	mode, err := opts.SerialMode()
	if err != nil {
		return nil, err
	}

	port, err := serial.Open(path, mode)
	if err != nil {
		return nil, fmt.Errorf("failed to open gps port %s: %w", path, err)
	}

	return NewSerialMux[serial.Port](port), nil
}
