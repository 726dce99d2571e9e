//go:build real_sensors

package main

import (
	"context"
	"fmt"
	"io"
	"net/http"

	"github.com/banshee-data/rover/internal/config"
	"github.com/banshee-data/rover/internal/sensors"
	"github.com/banshee-data/rover/internal/serialmux"
	"github.com/banshee-data/rover/internal/status"
)

func newSensors(cfg *config.Config, bus *sharedBus) (*sensorSet, error) {
	b, err := bus.Get()
	if err != nil {
		return nil, fmt.Errorf("open i2c bus: %w", err)
	}

	opts, err := cfg.GPS.Serial.Normalize()
	if err != nil {
		return nil, err
	}
	gps, err := serialmux.NewRealSerialMux(cfg.GetGPSPort(), opts)
	if err != nil {
		return nil, err
	}
	if err := gps.Initialize(); err != nil {
		gps.Close()
		return nil, fmt.Errorf("initialise gps: %w", err)
	}

	imu, err := sensors.NewIMU(b, sensors.IMUAddress, nil)
	if err != nil {
		gps.Close()
		return nil, err
	}
	mag, err := sensors.NewMag(b, sensors.MagAddress, cfg.GetDeclination())
	if err != nil {
		gps.Close()
		return nil, err
	}
	modem, err := status.NewModemManager(cfg.GetModemPath())
	if err != nil {
		gps.Close()
		return nil, err
	}

	return &sensorSet{
		GPS:    sensors.NewGPS(gps),
		IMU:    imu,
		Analog: sensors.NewAnalog(b, sensors.AnalogAddress, cfg.GetBatteryDivider(), nil),
		Mag:    mag,
		Modem:  modem,
		tasks: map[string]func(ctx context.Context) error{
			"gps-serial": gps.Monitor,
		},
		adminRoutes: []func(*http.ServeMux){gps.AttachAdminRoutes},
		closers:     []io.Closer{gps, modem},
	}, nil
}
