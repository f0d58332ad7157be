package recurrence

import (
	"fmt"
	"strings"
	"time"
)

// clockLayouts are the accepted wall clock spellings, most specific first.
var clockLayouts = []string{"15:04:05", "15:04", "3:04:05PM", "3:04PM", "3:04 PM", "3:04:05 PM"}

// ParseClock parses a wall clock time and returns its offset from midnight.
func ParseClock(raw string) (time.Duration, error) {
	value := strings.ToUpper(strings.TrimSpace(raw))
	for _, layout := range clockLayouts {
		t, err := time.Parse(layout, value)
		if err != nil {
			continue
		}
		return time.Duration(t.Hour())*time.Hour +
			time.Duration(t.Minute())*time.Minute +
			time.Duration(t.Second())*time.Second, nil
	}
	return 0, fmt.Errorf("invalid time %q: expected HH:MM or HH:MM:SS", raw)
}

// FormatClock renders an offset from midnight as HH:MM:SS.
func FormatClock(d time.Duration) string {
	h := int(d / time.Hour)
	m := int(d % time.Hour / time.Minute)
	s := int(d % time.Minute / time.Second)
	return fmt.Sprintf("%02d:%02d:%02d", h, m, s)
}

// NormalizeClock canonicalises any accepted spelling to HH:MM:SS.
func NormalizeClock(raw string) (string, error) {
	d, err := ParseClock(raw)
	if err != nil {
		return "", err
	}
	return FormatClock(d), nil
}
