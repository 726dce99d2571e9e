package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/banshee-data/rover/internal/telemetry"
)

// Sample is a stored reading with the time it was appended.
type Sample[T telemetry.Reading] struct {
	RecordedAt time.Time `json:"recorded_at"`
	Reading    T         `json:"reading"`
}

// Latest holds the most recent sample of every kind. Kinds with no rows yet
// are nil.
type Latest struct {
	GpsFix      *Sample[telemetry.GpsFix]        `json:"gps_fix,omitempty"`
	GpsVelocity *Sample[telemetry.GpsVelocity]   `json:"gps_velocity,omitempty"`
	Imu         *Sample[telemetry.ImuSample]     `json:"imu,omitempty"`
	Analog      *Sample[telemetry.AnalogSample]  `json:"analog,omitempty"`
	Mag         *Sample[telemetry.MagSample]     `json:"mag,omitempty"`
	Signal      *Sample[telemetry.SignalQuality] `json:"modem,omitempty"`
}

// latestRow scans the newest row of a table into dest. It reports false
// when the table is empty.
func (s *Store) latestRow(ctx context.Context, query string, recordedAt *int64, dest ...interface{}) (bool, error) {
	err := s.QueryRowContext(ctx, query).Scan(append([]interface{}{recordedAt}, dest...)...)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	return err == nil, err
}

// LatestReadings returns the newest stored sample of each kind.
func (s *Store) LatestReadings(ctx context.Context) (Latest, error) {
	var (
		out Latest
		ts  int64
	)

	var fix telemetry.GpsFix
	ok, err := s.latestRow(ctx,
		`SELECT recorded_at, latitude, longitude, quality, satellites FROM gps_fix ORDER BY id DESC LIMIT 1`,
		&ts, &fix.Latitude, &fix.Longitude, &fix.Quality, &fix.Satellites)
	if err != nil {
		return out, fmt.Errorf("latest gps_fix: %w", err)
	}
	if ok {
		out.GpsFix = &Sample[telemetry.GpsFix]{time.Unix(0, ts), fix}
	}

	var vel telemetry.GpsVelocity
	if ok, err = s.latestRow(ctx,
		`SELECT recorded_at, course, speed FROM gps_velocity ORDER BY id DESC LIMIT 1`,
		&ts, &vel.Course, &vel.Speed); err != nil {
		return out, fmt.Errorf("latest gps_velocity: %w", err)
	}
	if ok {
		out.GpsVelocity = &Sample[telemetry.GpsVelocity]{time.Unix(0, ts), vel}
	}

	var imu telemetry.ImuSample
	if ok, err = s.latestRow(ctx,
		`SELECT recorded_at, roll, pitch, yaw, temperature FROM imu ORDER BY id DESC LIMIT 1`,
		&ts, &imu.Roll, &imu.Pitch, &imu.Yaw, &imu.Temperature); err != nil {
		return out, fmt.Errorf("latest imu: %w", err)
	}
	if ok {
		out.Imu = &Sample[telemetry.ImuSample]{time.Unix(0, ts), imu}
	}

	var analog telemetry.AnalogSample
	if ok, err = s.latestRow(ctx,
		`SELECT recorded_at, battery_voltage FROM analog ORDER BY id DESC LIMIT 1`,
		&ts, &analog.BatteryVoltage); err != nil {
		return out, fmt.Errorf("latest analog: %w", err)
	}
	if ok {
		out.Analog = &Sample[telemetry.AnalogSample]{time.Unix(0, ts), analog}
	}

	var mag telemetry.MagSample
	if ok, err = s.latestRow(ctx,
		`SELECT recorded_at, heading, raw_x, raw_y, raw_z FROM mag ORDER BY id DESC LIMIT 1`,
		&ts, &mag.Heading, &mag.Raw[0], &mag.Raw[1], &mag.Raw[2]); err != nil {
		return out, fmt.Errorf("latest mag: %w", err)
	}
	if ok {
		out.Mag = &Sample[telemetry.MagSample]{time.Unix(0, ts), mag}
	}

	var sig telemetry.SignalQuality
	if ok, err = s.latestRow(ctx,
		`SELECT recorded_at, signal_percent FROM modem ORDER BY id DESC LIMIT 1`,
		&ts, &sig.Percent); err != nil {
		return out, fmt.Errorf("latest modem: %w", err)
	}
	if ok {
		out.Signal = &Sample[telemetry.SignalQuality]{time.Unix(0, ts), sig}
	}

	return out, nil
}

// RecentAnalog returns up to limit battery samples recorded at or after
// since, oldest first.
func (s *Store) RecentAnalog(ctx context.Context, since time.Time, limit int) ([]Sample[telemetry.AnalogSample], error) {
	rows, err := s.QueryContext(ctx,
		`SELECT recorded_at, battery_voltage FROM (
			SELECT id, recorded_at, battery_voltage FROM analog
			WHERE recorded_at >= ? ORDER BY id DESC LIMIT ?
		) ORDER BY id ASC`,
		since.UnixNano(), limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Sample[telemetry.AnalogSample]
	for rows.Next() {
		var (
			ts int64
			a  telemetry.AnalogSample
		)
		if err := rows.Scan(&ts, &a.BatteryVoltage); err != nil {
			return nil, err
		}
		out = append(out, Sample[telemetry.AnalogSample]{time.Unix(0, ts), a})
	}
	return out, rows.Err()
}
