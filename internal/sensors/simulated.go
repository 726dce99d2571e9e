package sensors

import (
	"context"
	"math"
	"math/rand/v2"
	"time"

	"github.com/banshee-data/rover/internal/telemetry"
	"github.com/banshee-data/rover/internal/timeutil"
)

// SimGPS synthesises a receiver wandering around a home position. Like a
// real receiver it blocks until the next fix, alternating position and
// velocity sentences.
type SimGPS struct {
	Interval time.Duration
	clock    timeutil.Clock
	lat, lon float64
	course   float64
	next     telemetry.Kind
}

// NewSimGPS starts the simulated receiver at lat, lon.
func NewSimGPS(lat, lon float64, clock timeutil.Clock) *SimGPS {
	if clock == nil {
		clock = timeutil.RealClock{}
	}
	return &SimGPS{Interval: time.Second, clock: clock, lat: lat, lon: lon, next: telemetry.KindGpsFix}
}

func (g *SimGPS) Poll(ctx context.Context) (telemetry.Reading, error) {
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-g.clock.After(g.Interval / 2):
	}

	if g.next == telemetry.KindGpsVelocity {
		g.next = telemetry.KindGpsFix
		return telemetry.GpsVelocity{Course: g.course, Speed: 2 + rand.Float64()}, nil
	}

	g.next = telemetry.KindGpsVelocity
	g.course = normalizeHeading(g.course + (rand.Float64()-0.5)*10)
	step := 0.00001 * (0.5 + rand.Float64())
	g.lat += step * math.Cos(g.course*degToRad)
	g.lon += step * math.Sin(g.course*degToRad)
	return telemetry.GpsFix{
		Latitude:   g.lat,
		Longitude:  g.lon,
		Quality:    "1",
		Satellites: 6 + rand.IntN(6),
	}, nil
}

// SimIMU produces a gentle roll/pitch oscillation with a slow yaw drift.
type SimIMU struct {
	clock timeutil.Clock
	start time.Time
}

func NewSimIMU(clock timeutil.Clock) *SimIMU {
	if clock == nil {
		clock = timeutil.RealClock{}
	}
	return &SimIMU{clock: clock, start: clock.Now()}
}

func (s *SimIMU) Poll(ctx context.Context) (telemetry.Reading, error) {
	t := s.clock.Since(s.start).Seconds()
	return telemetry.ImuSample{
		Roll:        3 * math.Sin(t*0.7),
		Pitch:       2 * math.Sin(t*0.4+1),
		Yaw:         normalizeHeading(t * 5),
		Temperature: 31 + rand.Float64(),
	}, nil
}

// SimAnalog is a battery that discharges slowly from full charge.
type SimAnalog struct {
	voltage float64
}

func NewSimAnalog() *SimAnalog {
	return &SimAnalog{voltage: 12.6}
}

func (s *SimAnalog) Poll(ctx context.Context) (telemetry.Reading, error) {
	s.voltage -= 0.0005
	if s.voltage < 10.5 {
		s.voltage = 12.6
	}
	return telemetry.AnalogSample{BatteryVoltage: s.voltage + (rand.Float64()-0.5)*0.02}, nil
}

// SimMag is a compass whose heading drifts randomly.
type SimMag struct {
	heading float64
}

func NewSimMag() *SimMag {
	return &SimMag{heading: rand.Float64() * 360}
}

func (s *SimMag) Poll(ctx context.Context) (telemetry.Reading, error) {
	s.heading = normalizeHeading(s.heading + (rand.Float64()-0.5)*4)
	rad := s.heading * degToRad
	raw := [3]int16{int16(3000 * math.Cos(rad)), int16(3000 * math.Sin(rad)), -1200}
	return telemetry.MagSample{Heading: s.heading, Raw: raw}, nil
}
