package sensors

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/banshee-data/rover/internal/serialmux"
	"github.com/banshee-data/rover/internal/telemetry"
)

const (
	testGGA = "$GPGGA,123519,4807.038,N,01131.000,E,1,08,0.9,545.4,M,46.9,M,,*47"
	testVTG = "$GPVTG,054.7,T,034.4,M,005.5,N,010.2,K*48"
	testRMC = "$GPRMC,123519,A,4807.038,N,01131.000,E,022.4,084.4,230394,003.1,W*6A"
)

func startGPS(t *testing.T) (*GPS, *serialmux.TestableSerialPort) {
	t.Helper()
	port := serialmux.NewTestableSerialPort()
	mux := serialmux.NewSerialMux(port)
	ctx, cancel := context.WithCancel(context.Background())
	go mux.Monitor(ctx)
	gps := NewGPS(mux)
	t.Cleanup(func() {
		cancel()
		mux.Close()
	})
	return gps, port
}

func TestGPS_DecodesFixAndVelocity(t *testing.T) {
	gps, port := startGPS(t)
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	port.AddLine(testRMC) // skipped
	port.AddLine(testGGA)
	port.AddLine(testVTG)

	r, err := gps.Poll(ctx)
	require.NoError(t, err)
	fix, ok := r.(telemetry.GpsFix)
	require.True(t, ok, "first reading should be a fix, got %T", r)
	assert.InDelta(t, 48.1173, fix.Latitude, 1e-4)
	assert.InDelta(t, 11.5167, fix.Longitude, 1e-4)
	assert.Equal(t, 8, fix.Satellites)

	r, err = gps.Poll(ctx)
	require.NoError(t, err)
	vel, ok := r.(telemetry.GpsVelocity)
	require.True(t, ok, "second reading should be a velocity, got %T", r)
	assert.InDelta(t, 54.7, vel.Course, 1e-9)
	assert.InDelta(t, 10.2, vel.Speed, 1e-9)
}

func TestGPS_BadChecksumIsDecodeError(t *testing.T) {
	gps, port := startGPS(t)
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	port.AddLine("$GPGGA,123519,4807.038,N,01131.000,E,1,08,0.9,545.4,M,46.9,M,,*00")
	_, err := gps.Poll(ctx)
	assert.Error(t, err)
	assert.NotErrorIs(t, err, ErrNoData)
}

func TestGPS_PollHonoursCancellation(t *testing.T) {
	gps, _ := startGPS(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := gps.Poll(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestGPS_ClosedSource(t *testing.T) {
	mux := serialmux.NewSerialMux(serialmux.NewTestableSerialPort())
	gps := NewGPS(mux)
	require.NoError(t, gps.Close())

	_, err := gps.Poll(context.Background())
	if !errors.Is(err, ErrClosed) {
		t.Errorf("Poll() after close = %v, want ErrClosed", err)
	}
}
