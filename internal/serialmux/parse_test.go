package serialmux

import "testing"

func TestClassifySentence(t *testing.T) {
	tests := []struct {
		line string
		want string
	}{
		{"$GPGGA,123519,4807.038,N,01131.000,E,1,08,0.9,545.4,M,46.9,M,,*47", SentenceGGA},
		{"$GNGGA,123519,4807.038,N,01131.000,E,1,08,0.9,545.4,M,46.9,M,,*59", SentenceGGA},
		{"$GPVTG,054.7,T,034.4,M,005.5,N,010.2,K*48", SentenceVTG},
		{"$GPRMC,123519,A,4807.038,N,01131.000,E,022.4,084.4,230394,003.1,W*6A", SentenceUnknown},
		{"$PMTK001,220,3*30", SentenceUnknown},
		{"garbage", SentenceUnknown},
		{"", SentenceUnknown},
		{"$GP", SentenceUnknown},
	}
	for _, tt := range tests {
		if got := ClassifySentence(tt.line); got != tt.want {
			t.Errorf("ClassifySentence(%q) = %q, want %q", tt.line, got, tt.want)
		}
	}
}
