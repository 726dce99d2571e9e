// Package telemetry defines the readings produced by the onboard sensors.
// A Reading is immutable once produced: the pipeline that polled it hands it
// to the store and never touches it again.
package telemetry

import "fmt"

// Kind identifies the variant of a Reading and the table it is stored in.
type Kind string

const (
	KindGpsFix      Kind = "gps_fix"
	KindGpsVelocity Kind = "gps_velocity"
	KindImu         Kind = "imu"
	KindAnalog      Kind = "analog"
	KindMag         Kind = "mag"
	KindSignal      Kind = "modem"
)

// Kinds lists every reading kind in storage order.
var Kinds = []Kind{KindGpsFix, KindGpsVelocity, KindImu, KindAnalog, KindMag, KindSignal}

// Reading is one sample from a sensor. The concrete type is one of the
// value types in this package.
type Reading interface {
	Kind() Kind
}

// GpsFix is a position fix decoded from a GGA sentence.
type GpsFix struct {
	Latitude   float64 `json:"latitude"`
	Longitude  float64 `json:"longitude"`
	Quality    string  `json:"quality"`
	Satellites int     `json:"satellites"`
}

func (GpsFix) Kind() Kind { return KindGpsFix }

func (f GpsFix) String() string {
	return fmt.Sprintf("fix lat=%.6f lon=%.6f q=%s sats=%d", f.Latitude, f.Longitude, f.Quality, f.Satellites)
}

// GpsVelocity is course over ground (degrees true) and ground speed (km/h)
// decoded from a VTG sentence.
type GpsVelocity struct {
	Course float64 `json:"course"`
	Speed  float64 `json:"speed"`
}

func (GpsVelocity) Kind() Kind { return KindGpsVelocity }

// ImuSample carries orientation in degrees and the die temperature in °C.
type ImuSample struct {
	Roll        float64 `json:"roll"`
	Pitch       float64 `json:"pitch"`
	Yaw         float64 `json:"yaw"`
	Temperature float64 `json:"temperature"`
}

func (ImuSample) Kind() Kind { return KindImu }

// AnalogSample is the battery voltage measured through the divider.
type AnalogSample struct {
	BatteryVoltage float64 `json:"battery_voltage"`
}

func (AnalogSample) Kind() Kind { return KindAnalog }

// MagSample is a compass heading in degrees [0,360) and the raw axis counts.
type MagSample struct {
	Heading float64  `json:"heading"`
	Raw     [3]int16 `json:"raw"`
}

func (MagSample) Kind() Kind { return KindMag }

// SignalQuality is the modem's reported signal quality.
type SignalQuality struct {
	Percent uint32 `json:"percent"`
}

func (SignalQuality) Kind() Kind { return KindSignal }
