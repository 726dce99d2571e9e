// Package config loads the rover's YAML configuration. Every field is a
// pointer so an omitted key falls back to the default returned by its Get*
// accessor, which keeps partial config files safe.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/banshee-data/rover/internal/serialmux"
)

const maxFileSize = 1 * 1024 * 1024 // 1MB

// Config is the root configuration.
type Config struct {
	Listen  *string `yaml:"listen,omitempty"`
	DBPath  *string `yaml:"db,omitempty"`
	LogFile *string `yaml:"log_file,omitempty"`
	I2CBus  *string `yaml:"i2c_bus,omitempty"`

	GPS       GPSConfig      `yaml:"gps"`
	Sensors   SensorConfig   `yaml:"sensors"`
	Actuators ActuatorConfig `yaml:"actuators"`
	Control   ControlConfig  `yaml:"control"`
	Modem     ModemConfig    `yaml:"modem"`
}

type GPSConfig struct {
	Port   *string               `yaml:"port,omitempty"`
	Serial serialmux.PortOptions `yaml:"serial"`
	// Replay is an NMEA log replayed through the decoder when the
	// simulated sensors are built in.
	Replay  *string  `yaml:"replay,omitempty"`
	HomeLat *float64 `yaml:"home_lat,omitempty"`
	HomeLon *float64 `yaml:"home_lon,omitempty"`
}

type SensorConfig struct {
	IMUInterval    *string  `yaml:"imu_interval,omitempty"`    // duration string like "50ms"
	AnalogInterval *string  `yaml:"analog_interval,omitempty"` // duration string like "500ms"
	MagInterval    *string  `yaml:"mag_interval,omitempty"`    // duration string like "300ms"
	BatteryDivider *float64 `yaml:"battery_divider,omitempty"`
	Declination    *float64 `yaml:"declination,omitempty"`
}

type ActuatorConfig struct {
	PWMAddress       *int     `yaml:"pwm_address,omitempty"`
	MotorChannel     *int     `yaml:"motor_channel,omitempty"`
	SteeringChannel  *int     `yaml:"steering_channel,omitempty"`
	SteeringCenterUs *float64 `yaml:"steering_center_us,omitempty"`
	SteeringRangeUs  *float64 `yaml:"steering_range_us,omitempty"`
}

type ControlConfig struct {
	RetryDelay *string `yaml:"retry_delay,omitempty"`
}

type ModemConfig struct {
	Path     *string `yaml:"path,omitempty"`
	Interval *string `yaml:"interval,omitempty"`
}

// Load reads a Config from a .yaml or .yml file. Unknown keys are rejected.
func Load(path string) (*Config, error) {
	cleanPath := filepath.Clean(path)
	if ext := filepath.Ext(cleanPath); ext != ".yaml" && ext != ".yml" {
		return nil, fmt.Errorf("config file must have .yaml or .yml extension, got %q", ext)
	}

	fileInfo, err := os.Stat(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to stat config file: %w", err)
	}
	if fileInfo.Size() > maxFileSize {
		return nil, fmt.Errorf("config file too large: %d bytes (max %d)", fileInfo.Size(), maxFileSize)
	}

	data, err := os.ReadFile(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := &Config{}
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("failed to parse config YAML: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// Validate checks the values that are set.
func (c *Config) Validate() error {
	durations := []struct {
		name string
		v    *string
	}{
		{"sensors.imu_interval", c.Sensors.IMUInterval},
		{"sensors.analog_interval", c.Sensors.AnalogInterval},
		{"sensors.mag_interval", c.Sensors.MagInterval},
		{"control.retry_delay", c.Control.RetryDelay},
		{"modem.interval", c.Modem.Interval},
	}
	for _, d := range durations {
		if d.v == nil || *d.v == "" {
			continue
		}
		parsed, err := time.ParseDuration(*d.v)
		if err != nil {
			return fmt.Errorf("invalid %s '%s': %w", d.name, *d.v, err)
		}
		if parsed <= 0 {
			return fmt.Errorf("%s must be positive, got %s", d.name, *d.v)
		}
	}

	if _, err := c.GPS.Serial.Normalize(); err != nil {
		return fmt.Errorf("gps.serial: %w", err)
	}
	if d := c.GetBatteryDivider(); d <= 0 {
		return fmt.Errorf("sensors.battery_divider must be positive, got %f", d)
	}

	if a := c.GetPWMAddress(); a < 0x03 || a > 0x77 {
		return fmt.Errorf("actuators.pwm_address 0x%02x is not a 7-bit device address", a)
	}
	motor, steer := c.GetMotorChannel(), c.GetSteeringChannel()
	for _, ch := range []int{motor, steer} {
		if ch < 0 || ch > 15 {
			return fmt.Errorf("actuator channel must be between 0 and 15, got %d", ch)
		}
	}
	if motor == steer {
		return fmt.Errorf("motor and steering share channel %d", motor)
	}
	center, rng := c.GetSteeringCenterUs(), c.GetSteeringRangeUs()
	if rng <= 0 || center-rng < 500 || center+rng > 2500 {
		return fmt.Errorf("steering pulse %.0f±%.0fµs outside 500-2500µs", center, rng)
	}
	return nil
}

func stringOr(p *string, def string) string {
	if p == nil || *p == "" {
		return def
	}
	return *p
}

func durationOr(p *string, def time.Duration) time.Duration {
	if p == nil || *p == "" {
		return def
	}
	d, err := time.ParseDuration(*p)
	if err != nil {
		return def // default on parse error
	}
	return d
}

func floatOr(p *float64, def float64) float64 {
	if p == nil {
		return def
	}
	return *p
}

func intOr(p *int, def int) int {
	if p == nil {
		return def
	}
	return *p
}

func (c *Config) GetListen() string  { return stringOr(c.Listen, ":8080") }
func (c *Config) GetDBPath() string  { return stringOr(c.DBPath, "rover.db") }
func (c *Config) GetLogFile() string { return stringOr(c.LogFile, "") }

// GetI2CBus returns the bus name; empty selects the first bus found.
func (c *Config) GetI2CBus() string { return stringOr(c.I2CBus, "") }

func (c *Config) GetGPSPort() string   { return stringOr(c.GPS.Port, "/dev/ttyAMA0") }
func (c *Config) GetGPSReplay() string { return stringOr(c.GPS.Replay, "") }

// GetHome is the simulated receiver's starting position.
func (c *Config) GetHome() (lat, lon float64) {
	return floatOr(c.GPS.HomeLat, 47.2184), floatOr(c.GPS.HomeLon, -1.5536)
}

func (c *Config) GetIMUInterval() time.Duration {
	return durationOr(c.Sensors.IMUInterval, 50*time.Millisecond)
}

func (c *Config) GetAnalogInterval() time.Duration {
	return durationOr(c.Sensors.AnalogInterval, 500*time.Millisecond)
}

func (c *Config) GetMagInterval() time.Duration {
	return durationOr(c.Sensors.MagInterval, 300*time.Millisecond)
}

// GetBatteryDivider is battery volts per ADC input volt.
func (c *Config) GetBatteryDivider() float64 { return floatOr(c.Sensors.BatteryDivider, 4) }
func (c *Config) GetDeclination() float64    { return floatOr(c.Sensors.Declination, 0) }

func (c *Config) GetPWMAddress() int      { return intOr(c.Actuators.PWMAddress, 0x40) }
func (c *Config) GetMotorChannel() int    { return intOr(c.Actuators.MotorChannel, 0) }
func (c *Config) GetSteeringChannel() int { return intOr(c.Actuators.SteeringChannel, 1) }

func (c *Config) GetSteeringCenterUs() float64 {
	return floatOr(c.Actuators.SteeringCenterUs, 1500)
}

func (c *Config) GetSteeringRangeUs() float64 {
	return floatOr(c.Actuators.SteeringRangeUs, 400)
}

func (c *Config) GetRetryDelay() time.Duration {
	return durationOr(c.Control.RetryDelay, 500*time.Millisecond)
}

func (c *Config) GetModemPath() string { return stringOr(c.Modem.Path, "") }

func (c *Config) GetModemInterval() time.Duration {
	return durationOr(c.Modem.Interval, 500*time.Millisecond)
}
