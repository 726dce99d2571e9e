package sensors

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"

	"github.com/banshee-data/rover/internal/telemetry"
)

// QMC5883L registers.
const (
	MagAddress = 0x0d

	qmcRegData    = 0x00
	qmcRegStatus  = 0x06
	qmcRegControl = 0x09
	qmcRegReset   = 0x0b

	qmcContinuous = 0x1d // OSR 512, 8G, 200Hz, continuous
	qmcDataReady  = 0x01
	qmcOverflow   = 0x02
)

// ErrMagOverflow is returned when an axis saturated during measurement.
var ErrMagOverflow = errors.New("mag: axis overflow")

// Mag reads a QMC5883L compass in continuous mode.
type Mag struct {
	bus         Bus
	addr        uint16
	declination float64
}

// NewMag resets the chip and starts continuous measurement. declination in
// degrees is added to the magnetic heading.
func NewMag(bus Bus, addr uint16, declination float64) (*Mag, error) {
	if err := bus.WriteReg(addr, qmcRegReset, 0x01); err != nil {
		return nil, fmt.Errorf("mag: reset: %w", err)
	}
	if err := bus.WriteReg(addr, qmcRegControl, qmcContinuous); err != nil {
		return nil, fmt.Errorf("mag: configure: %w", err)
	}
	return &Mag{bus: bus, addr: addr, declination: declination}, nil
}

func (m *Mag) Poll(ctx context.Context) (telemetry.Reading, error) {
	// data and status registers are contiguous, so one transaction reads both
	buf := make([]byte, qmcRegStatus-qmcRegData+1)
	if err := m.bus.ReadReg(m.addr, qmcRegData, buf); err != nil {
		return nil, fmt.Errorf("mag: %w", err)
	}
	status := buf[qmcRegStatus]
	if status&qmcOverflow != 0 {
		return nil, ErrMagOverflow
	}
	if status&qmcDataReady == 0 {
		return nil, ErrNoData
	}

	var raw [3]int16
	for i := range raw {
		raw[i] = int16(binary.LittleEndian.Uint16(buf[2*i:]))
	}
	return decodeHeading(raw, m.declination)
}

func decodeHeading(raw [3]int16, declination float64) (telemetry.Reading, error) {
	x, y := float64(raw[0]), float64(raw[1])
	if floats.Norm([]float64{x, y, float64(raw[2])}, 2) == 0 {
		return nil, errors.New("mag: zero field vector")
	}
	return telemetry.MagSample{
		Heading: normalizeHeading(math.Atan2(y, x)*radToDeg + declination),
		Raw:     raw,
	}, nil
}
