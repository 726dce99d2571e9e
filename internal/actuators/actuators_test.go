package actuators

import (
	"encoding/binary"
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/banshee-data/rover/internal/hwbus"
	"github.com/banshee-data/rover/internal/monitoring"
)

func init() {
	monitoring.SetLogger(nil)
}

func channelOff(fake *hwbus.FakeBus, ch int) uint16 {
	reg := byte(pcaRegLED0 + 4*ch)
	return binary.LittleEndian.Uint16([]byte{fake.Register(PWMAddress, reg+2), fake.Register(PWMAddress, reg+3)})
}

func newTestPWM(t *testing.T) (*PWM, *hwbus.FakeBus) {
	t.Helper()
	fake := hwbus.NewFakeBus()
	pwm, err := NewPWM(hwbus.New(fake), PWMAddress)
	require.NoError(t, err)
	return pwm, fake
}

func TestNewPWM_ProgramsPrescaler(t *testing.T) {
	_, fake := newTestPWM(t)
	assert.Equal(t, byte(121), fake.Register(PWMAddress, pcaRegPrescale))
	assert.Equal(t, byte(pcaMode1AutoInc|pcaMode1Restart), fake.Register(PWMAddress, pcaRegMode1))

	writes := fake.Writes()
	require.GreaterOrEqual(t, len(writes), 2)
	assert.Equal(t, []byte{pcaRegMode1, pcaMode1Sleep}, writes[0].Data, "prescaler may only be written while asleep")
}

func TestPWMMotor(t *testing.T) {
	pwm, fake := newTestPWM(t)
	m, err := NewPWMMotor(pwm, 0)
	require.NoError(t, err)
	assert.Equal(t, uint16(307), channelOff(fake, 0), "armed at neutral")

	tests := []struct {
		speed float64
		want  uint16
	}{
		{1, 410},
		{-1, 205},
		{0, 307},
	}
	for _, tt := range tests {
		require.NoError(t, m.SetSpeed(tt.speed))
		assert.Equal(t, tt.want, channelOff(fake, 0), "speed %v", tt.speed)
	}

	require.NoError(t, m.SetSpeed(1))
	m.SafeStop()
	assert.Equal(t, uint16(307), channelOff(fake, 0))
}

func TestPWMSteering(t *testing.T) {
	pwm, fake := newTestPWM(t)
	s, err := NewPWMSteering(pwm, 1, 1500, 400)
	require.NoError(t, err)

	require.NoError(t, s.SetSteer(1))
	assert.Equal(t, uint16(389), channelOff(fake, 1)) // 1900µs
	assert.Equal(t, uint16(0), channelOff(fake, 0), "motor channel untouched")

	s.SafeStop()
	assert.Equal(t, uint16(307), channelOff(fake, 1))
}

func TestOutOfRange(t *testing.T) {
	pwm, _ := newTestPWM(t)
	m, err := NewPWMMotor(pwm, 0)
	require.NoError(t, err)
	s, err := NewPWMSteering(pwm, 1, 1500, 400)
	require.NoError(t, err)

	for _, v := range []float64{1.01, -2, math.NaN(), math.Inf(1)} {
		assert.ErrorIs(t, m.SetSpeed(v), ErrOutOfRange)
		assert.ErrorIs(t, s.SetSteer(v), ErrOutOfRange)
		assert.ErrorIs(t, NewSimMotor().SetSpeed(v), ErrOutOfRange)
		assert.ErrorIs(t, NewSimSteering().SetSteer(v), ErrOutOfRange)
	}
	assert.ErrorIs(t, pwm.SetPulse(16, 1500), ErrOutOfRange)
	assert.ErrorIs(t, pwm.SetPulse(0, 25000), ErrOutOfRange)
}

func TestSafeStopSwallowsBusErrors(t *testing.T) {
	pwm, fake := newTestPWM(t)
	m, err := NewPWMMotor(pwm, 0)
	require.NoError(t, err)

	fake.FailDevice(PWMAddress, errors.New("nack"))
	assert.Error(t, m.SetSpeed(0.5))
	assert.NotPanics(t, m.SafeStop)
}

func TestSimActuators(t *testing.T) {
	m := NewSimMotor()
	s := NewSimSteering()

	require.NoError(t, m.SetSpeed(0.5))
	require.NoError(t, s.SetSteer(-0.3))
	assert.Equal(t, 0.5, m.Speed())
	assert.Equal(t, -0.3, s.Steer())

	m.SafeStop()
	s.SafeStop()
	assert.Equal(t, 0.0, m.Speed())
	assert.Equal(t, 0.0, s.Steer())
	assert.Equal(t, 1, m.Stops())
	assert.Equal(t, 1, s.Stops())
}

var (
	_ Motor    = (*PWMMotor)(nil)
	_ Motor    = (*SimMotor)(nil)
	_ Steering = (*PWMSteering)(nil)
	_ Steering = (*SimSteering)(nil)
)
