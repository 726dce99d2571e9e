package sensors

import (
	"context"
	"encoding/binary"
	"fmt"
	"time"

	"github.com/banshee-data/rover/internal/telemetry"
	"github.com/banshee-data/rover/internal/timeutil"
)

// ADS1115 registers and the single-shot AIN0, ±4.096V, 128SPS configuration.
const (
	AnalogAddress = 0x48

	adsRegConversion = 0x00
	adsRegConfig     = 0x01

	adsConfigHi   = 0xc3 // OS=1, MUX=AIN0/GND, PGA=±4.096V, single-shot
	adsConfigLo   = 0x83 // 128SPS, comparator off
	adsFullScale  = 4.096
	adsConvDelay  = 9 * time.Millisecond
	adsReadyMask  = 0x80
	adsCountRange = 32768.0
)

// Analog measures battery voltage through a resistor divider on an ADS1115.
type Analog struct {
	bus     Bus
	addr    uint16
	divider float64
	clock   timeutil.Clock
}

// NewAnalog returns a battery reader. divider is the ratio of battery volts
// to ADC input volts.
func NewAnalog(bus Bus, addr uint16, divider float64, clock timeutil.Clock) *Analog {
	if clock == nil {
		clock = timeutil.RealClock{}
	}
	if divider <= 0 {
		divider = 1
	}
	return &Analog{bus: bus, addr: addr, divider: divider, clock: clock}
}

// Poll starts a conversion, waits for it without holding the bus, then
// reads the result.
func (a *Analog) Poll(ctx context.Context) (telemetry.Reading, error) {
	if err := a.bus.WriteReg(a.addr, adsRegConfig, adsConfigHi, adsConfigLo); err != nil {
		return nil, fmt.Errorf("analog: start conversion: %w", err)
	}

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-a.clock.After(adsConvDelay):
	}

	cfg := make([]byte, 2)
	if err := a.bus.ReadReg(a.addr, adsRegConfig, cfg); err != nil {
		return nil, fmt.Errorf("analog: %w", err)
	}
	if cfg[0]&adsReadyMask == 0 {
		return nil, ErrNotReady
	}

	raw := make([]byte, 2)
	if err := a.bus.ReadReg(a.addr, adsRegConversion, raw); err != nil {
		return nil, fmt.Errorf("analog: %w", err)
	}
	counts := float64(int16(binary.BigEndian.Uint16(raw)))
	return telemetry.AnalogSample{
		BatteryVoltage: counts * adsFullScale / adsCountRange * a.divider,
	}, nil
}
