package actuators

import (
	"fmt"
	"math"
	"time"
)

// PCA9685 registers.
const (
	PWMAddress = 0x40

	pcaRegMode1    = 0x00
	pcaRegLED0     = 0x06
	pcaRegPrescale = 0xfe

	pcaMode1Sleep   = 0x10
	pcaMode1AutoInc = 0x20
	pcaMode1Restart = 0x80

	pcaOscillatorHz = 25_000_000
	pcaSteps        = 4096

	// ServoFrequency is the PWM frame rate expected by hobby ESCs and servos.
	ServoFrequency = 50
)

// Bus is the register-level access the PWM controller needs.
type Bus interface {
	WriteReg(addr uint16, reg byte, data ...byte) error
}

// PWM is a PCA9685 configured for servo pulses. Motor and Steering each own
// one channel of the same controller.
type PWM struct {
	bus     Bus
	addr    uint16
	periodU float64 // frame period in µs
}

// NewPWM puts the controller to sleep, programs the prescaler for
// ServoFrequency and restarts it with register auto-increment.
func NewPWM(bus Bus, addr uint16) (*PWM, error) {
	prescale := byte(math.Round(pcaOscillatorHz/(pcaSteps*ServoFrequency)) - 1)
	steps := []struct {
		reg  byte
		data byte
	}{
		{pcaRegMode1, pcaMode1Sleep},
		{pcaRegPrescale, prescale},
		{pcaRegMode1, pcaMode1AutoInc},
	}
	for _, s := range steps {
		if err := bus.WriteReg(addr, s.reg, s.data); err != nil {
			return nil, fmt.Errorf("pca9685 init: %w", err)
		}
	}
	// oscillator needs 500µs after leaving sleep
	time.Sleep(500 * time.Microsecond)
	if err := bus.WriteReg(addr, pcaRegMode1, pcaMode1AutoInc|pcaMode1Restart); err != nil {
		return nil, fmt.Errorf("pca9685 restart: %w", err)
	}
	return &PWM{bus: bus, addr: addr, periodU: 1e6 / ServoFrequency}, nil
}

// SetPulse sets channel ch to a pulse width of us microseconds per frame.
func (p *PWM) SetPulse(ch int, us float64) error {
	if ch < 0 || ch > 15 {
		return fmt.Errorf("pca9685: channel %d: %w", ch, ErrOutOfRange)
	}
	if us < 0 || us > p.periodU {
		return fmt.Errorf("pca9685: pulse %.0fµs: %w", us, ErrOutOfRange)
	}
	off := uint16(math.Round(us * pcaSteps / p.periodU))
	reg := byte(pcaRegLED0 + 4*ch)
	return p.bus.WriteReg(p.addr, reg, 0, 0, byte(off), byte(off>>8))
}
