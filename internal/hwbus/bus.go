// Package hwbus serialises access to the I2C bus shared by every onboard chip.
//
// Callers never hold the raw bus. Every transaction runs inside WithLock, so
// register reads from different sensors and PWM writes from the actuators
// never interleave on the wire. The lock is held only for the duration of one
// transaction; waits between transactions (ADC conversion, pacing) happen
// outside it.
package hwbus

import (
	"errors"
	"fmt"
	"sync"

	"periph.io/x/conn/v3/i2c"
	"periph.io/x/conn/v3/i2c/i2creg"
	host "periph.io/x/host/v3"

	"github.com/banshee-data/rover/internal/monitoring"
)

// ErrClosed is returned for transactions attempted after Close.
var ErrClosed = errors.New("hwbus: bus closed")

// Bus is the lock-guarded owner of the physical I2C bus.
type Bus struct {
	mu     sync.Mutex
	bus    i2c.Bus
	closer func() error
	closed bool
}

// Open initialises the host drivers and opens the named I2C bus. An empty
// name selects the first bus available. Failure here is meant to be fatal to
// the caller: no real sensor or actuator can operate without the bus.
func Open(name string) (*Bus, error) {
	monitoring.Logf("[I2C] preparing bus %q ...", name)
	if _, err := host.Init(); err != nil {
		return nil, fmt.Errorf("failed to initialise host drivers: %w", err)
	}
	bc, err := i2creg.Open(name)
	if err != nil {
		return nil, fmt.Errorf("failed to open i2c bus %q: %w", name, err)
	}
	monitoring.Logf("[I2C] bus %s ready", bc)
	b := New(bc)
	b.closer = bc.Close
	return b, nil
}

// New wraps an already opened bus. Tests pass a fake i2c.Bus here.
func New(bus i2c.Bus) *Bus {
	return &Bus{bus: bus}
}

// WithLock runs fn with exclusive access to the bus.
func (b *Bus) WithLock(fn func(bus i2c.Bus) error) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return ErrClosed
	}
	return fn(b.bus)
}

// Tx performs one write-then-read transaction with the device at addr.
func (b *Bus) Tx(addr uint16, w, r []byte) error {
	return b.WithLock(func(bus i2c.Bus) error {
		return bus.Tx(addr, w, r)
	})
}

// ReadReg reads len(buf) bytes starting at register reg.
func (b *Bus) ReadReg(addr uint16, reg byte, buf []byte) error {
	if err := b.Tx(addr, []byte{reg}, buf); err != nil {
		return fmt.Errorf("read reg 0x%02x at 0x%02x: %w", reg, addr, err)
	}
	return nil
}

// WriteReg writes data starting at register reg.
func (b *Bus) WriteReg(addr uint16, reg byte, data ...byte) error {
	w := append([]byte{reg}, data...)
	if err := b.Tx(addr, w, nil); err != nil {
		return fmt.Errorf("write reg 0x%02x at 0x%02x: %w", reg, addr, err)
	}
	return nil
}

// Close releases the bus. It waits for any in-flight transaction and is safe
// to call more than once.
func (b *Bus) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return nil
	}
	b.closed = true
	if b.closer != nil {
		return b.closer()
	}
	return nil
}
