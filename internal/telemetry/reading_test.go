package telemetry

import "testing"

func TestReadingKinds(t *testing.T) {
	tests := []struct {
		reading Reading
		want    Kind
	}{
		{GpsFix{}, KindGpsFix},
		{GpsVelocity{}, KindGpsVelocity},
		{ImuSample{}, KindImu},
		{AnalogSample{}, KindAnalog},
		{MagSample{}, KindMag},
		{SignalQuality{}, KindSignal},
	}

	seen := make(map[Kind]bool)
	for _, tt := range tests {
		if got := tt.reading.Kind(); got != tt.want {
			t.Errorf("%T.Kind() = %q, want %q", tt.reading, got, tt.want)
		}
		seen[tt.want] = true
	}
	for _, k := range Kinds {
		if !seen[k] {
			t.Errorf("kind %q has no reading type", k)
		}
	}
}

func TestGpsFixString(t *testing.T) {
	f := GpsFix{Latitude: 48.1, Longitude: -1.6, Quality: "1", Satellites: 7}
	want := "fix lat=48.100000 lon=-1.600000 q=1 sats=7"
	if got := f.String(); got != want {
		t.Errorf("String() = %q, want %q", got, want)
	}
}
