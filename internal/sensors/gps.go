package sensors

import (
	"context"
	"fmt"

	nmea "github.com/adrianmo/go-nmea"

	"github.com/banshee-data/rover/internal/serialmux"
	"github.com/banshee-data/rover/internal/telemetry"
)

// GPS decodes GGA and VTG sentences from the receiver's serial mux.
type GPS struct {
	mux   serialmux.SerialMuxInterface
	id    string
	lines chan string
}

// NewGPS subscribes to the mux. The mux must be monitored by the caller.
func NewGPS(mux serialmux.SerialMuxInterface) *GPS {
	id, lines := mux.Subscribe()
	return &GPS{mux: mux, id: id, lines: lines}
}

// Poll blocks until a position or velocity sentence arrives. Other sentences
// are skipped.
func (g *GPS) Poll(ctx context.Context) (telemetry.Reading, error) {
	for {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case line, ok := <-g.lines:
			if !ok {
				return nil, ErrClosed
			}
			if serialmux.ClassifySentence(line) == serialmux.SentenceUnknown {
				continue
			}
			return decodeSentence(line)
		}
	}
}

// Close stops the subscription.
func (g *GPS) Close() error {
	g.mux.Unsubscribe(g.id)
	return nil
}

func decodeSentence(line string) (telemetry.Reading, error) {
	s, err := nmea.Parse(line)
	if err != nil {
		return nil, fmt.Errorf("gps: decode %q: %w", line, err)
	}
	switch m := s.(type) {
	case nmea.GGA:
		return telemetry.GpsFix{
			Latitude:   m.Latitude,
			Longitude:  m.Longitude,
			Quality:    m.FixQuality,
			Satellites: int(m.NumSatellites),
		}, nil
	case nmea.VTG:
		return telemetry.GpsVelocity{
			Course: m.TrueTrack,
			Speed:  m.GroundSpeedKPH,
		}, nil
	}
	return nil, ErrNoData
}
