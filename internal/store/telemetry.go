package store

import (
	"context"
	"fmt"

	"github.com/banshee-data/rover/internal/telemetry"
)

// Append stores r in the table for its kind. It is the pipeline sink.
func (s *Store) Append(ctx context.Context, r telemetry.Reading) error {
	switch v := r.(type) {
	case telemetry.GpsFix:
		return s.AppendGpsFix(ctx, v)
	case telemetry.GpsVelocity:
		return s.AppendGpsVelocity(ctx, v)
	case telemetry.ImuSample:
		return s.AppendImu(ctx, v)
	case telemetry.AnalogSample:
		return s.AppendAnalog(ctx, v)
	case telemetry.MagSample:
		return s.AppendMag(ctx, v)
	case telemetry.SignalQuality:
		return s.AppendSignal(ctx, v)
	default:
		return fmt.Errorf("store: unsupported reading %T", r)
	}
}

func (s *Store) exec(ctx context.Context, kind telemetry.Kind, query string, args ...interface{}) error {
	args = append([]interface{}{s.now().UnixNano()}, args...)
	if _, err := s.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("append %s: %w", kind, err)
	}
	return nil
}

func (s *Store) AppendGpsFix(ctx context.Context, f telemetry.GpsFix) error {
	return s.exec(ctx, telemetry.KindGpsFix,
		`INSERT INTO gps_fix (recorded_at, latitude, longitude, quality, satellites) VALUES (?, ?, ?, ?, ?)`,
		f.Latitude, f.Longitude, f.Quality, f.Satellites)
}

func (s *Store) AppendGpsVelocity(ctx context.Context, v telemetry.GpsVelocity) error {
	return s.exec(ctx, telemetry.KindGpsVelocity,
		`INSERT INTO gps_velocity (recorded_at, course, speed) VALUES (?, ?, ?)`,
		v.Course, v.Speed)
}

func (s *Store) AppendImu(ctx context.Context, m telemetry.ImuSample) error {
	return s.exec(ctx, telemetry.KindImu,
		`INSERT INTO imu (recorded_at, roll, pitch, yaw, temperature) VALUES (?, ?, ?, ?, ?)`,
		m.Roll, m.Pitch, m.Yaw, m.Temperature)
}

func (s *Store) AppendAnalog(ctx context.Context, a telemetry.AnalogSample) error {
	return s.exec(ctx, telemetry.KindAnalog,
		`INSERT INTO analog (recorded_at, battery_voltage) VALUES (?, ?)`,
		a.BatteryVoltage)
}

func (s *Store) AppendMag(ctx context.Context, m telemetry.MagSample) error {
	return s.exec(ctx, telemetry.KindMag,
		`INSERT INTO mag (recorded_at, heading, raw_x, raw_y, raw_z) VALUES (?, ?, ?, ?, ?)`,
		m.Heading, m.Raw[0], m.Raw[1], m.Raw[2])
}

func (s *Store) AppendSignal(ctx context.Context, q telemetry.SignalQuality) error {
	return s.exec(ctx, telemetry.KindSignal,
		`INSERT INTO modem (recorded_at, signal_percent) VALUES (?, ?)`,
		q.Percent)
}
