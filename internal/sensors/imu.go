package sensors

import (
	"context"
	"encoding/binary"
	"fmt"
	"math"
	"time"

	"gonum.org/v1/gonum/floats"

	"github.com/banshee-data/rover/internal/telemetry"
	"github.com/banshee-data/rover/internal/timeutil"
)

// MPU-6050 registers.
const (
	IMUAddress = 0x68
	// WHO_AM_I reads 0x68 whatever the AD0 strap selects.
	mpuWhoAmI = 0x68

	mpuRegPwrMgmt1 = 0x6b
	mpuRegWhoAmI   = 0x75
	mpuRegAccelX   = 0x3b

	mpuAccelLSBPerG  = 16384.0 // ±2g
	mpuGyroLSBPerDps = 131.0   // ±250°/s
)

// IMU reads orientation from an MPU-6050 on the shared bus. Roll and pitch
// come from the accelerometer; yaw is integrated from the gyro Z rate.
type IMU struct {
	bus   Bus
	addr  uint16
	clock timeutil.Clock

	yaw  float64
	last time.Time
}

// NewIMU wakes the chip and checks its identity.
func NewIMU(bus Bus, addr uint16, clock timeutil.Clock) (*IMU, error) {
	if clock == nil {
		clock = timeutil.RealClock{}
	}
	who := make([]byte, 1)
	if err := bus.ReadReg(addr, mpuRegWhoAmI, who); err != nil {
		return nil, fmt.Errorf("imu: %w", err)
	}
	if who[0] != mpuWhoAmI {
		return nil, fmt.Errorf("imu: unexpected WHO_AM_I 0x%02x", who[0])
	}
	if err := bus.WriteReg(addr, mpuRegPwrMgmt1, 0x00); err != nil {
		return nil, fmt.Errorf("imu: wake: %w", err)
	}
	return &IMU{bus: bus, addr: addr, clock: clock}, nil
}

func (m *IMU) Poll(ctx context.Context) (telemetry.Reading, error) {
	buf := make([]byte, 14)
	if err := m.bus.ReadReg(m.addr, mpuRegAccelX, buf); err != nil {
		return nil, fmt.Errorf("imu: %w", err)
	}
	word := func(i int) float64 { return float64(int16(binary.BigEndian.Uint16(buf[i:]))) }

	ax, ay, az := word(0)/mpuAccelLSBPerG, word(2)/mpuAccelLSBPerG, word(4)/mpuAccelLSBPerG
	temp := word(6)/340 + 36.53
	gz := word(12) / mpuGyroLSBPerDps

	now := m.clock.Now()
	if !m.last.IsZero() {
		m.yaw = normalizeHeading(m.yaw + gz*now.Sub(m.last).Seconds())
	}
	m.last = now

	return telemetry.ImuSample{
		Roll:        math.Atan2(ay, az) * radToDeg,
		Pitch:       math.Atan2(-ax, floats.Norm([]float64{ay, az}, 2)) * radToDeg,
		Yaw:         m.yaw,
		Temperature: temp,
	}, nil
}
