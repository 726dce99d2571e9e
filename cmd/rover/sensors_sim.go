//go:build !real_sensors

package main

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/banshee-data/rover/internal/config"
	"github.com/banshee-data/rover/internal/monitoring"
	"github.com/banshee-data/rover/internal/sensors"
	"github.com/banshee-data/rover/internal/serialmux"
	"github.com/banshee-data/rover/internal/status"
)

// replayInterval is the pause between replayed NMEA lines.
const replayInterval = 200 * time.Millisecond

func newSensors(cfg *config.Config, _ *sharedBus) (*sensorSet, error) {
	set := &sensorSet{
		IMU:    sensors.NewSimIMU(nil),
		Analog: sensors.NewSimAnalog(),
		Mag:    sensors.NewSimMag(),
		Modem:  status.SimProvider{},
	}

	replay := cfg.GetGPSReplay()
	if replay == "" {
		lat, lon := cfg.GetHome()
		set.GPS = sensors.NewSimGPS(lat, lon, nil)
		monitoring.Logf("[GPS] simulated receiver at %.5f,%.5f", lat, lon)
		return set, nil
	}

	lines, err := readReplay(replay)
	if err != nil {
		return nil, err
	}
	mux := serialmux.NewMockSerialMux(lines, replayInterval)
	set.GPS = sensors.NewGPS(mux)
	set.tasks = map[string]func(ctx context.Context) error{"gps-replay": mux.Monitor}
	set.adminRoutes = []func(*http.ServeMux){mux.AttachAdminRoutes}
	set.closers = []io.Closer{mux}
	monitoring.Logf("[GPS] replaying %d lines from %s", len(lines), replay)
	return set, nil
}

func readReplay(path string) ([]string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read gps replay: %w", err)
	}
	var lines []string
	for _, l := range strings.Split(string(data), "\n") {
		if l = strings.TrimSpace(l); l != "" {
			lines = append(lines, l)
		}
	}
	if len(lines) == 0 {
		return nil, fmt.Errorf("gps replay %s is empty", path)
	}
	return lines, nil
}
