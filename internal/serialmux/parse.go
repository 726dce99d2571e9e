package serialmux

import "strings"

const (
	SentenceGGA     = "GGA"
	SentenceVTG     = "VTG"
	SentenceUnknown = "unknown"
)

// ClassifySentence returns the sentence type of an NMEA line regardless of
// talker ID ($GPGGA, $GNGGA, ...). Lines that are not NMEA sentences are
// reported as SentenceUnknown.
func ClassifySentence(line string) string {
	if len(line) < 6 || (line[0] != '$' && line[0] != '!') {
		return SentenceUnknown
	}
	head, _, _ := strings.Cut(line[1:], ",")
	if len(head) < 5 {
		return SentenceUnknown
	}
	switch kind := head[len(head)-3:]; kind {
	case SentenceGGA, SentenceVTG:
		return kind
	}
	return SentenceUnknown
}
