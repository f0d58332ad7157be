package recurrence

import (
	"fmt"
	"sort"
	"strings"

	"github.com/noah-isme/academic-registrar-api/internal/models"
)

// NormalizeMeeting canonicalises a meeting in place: clocks become HH:MM:SS,
// the modality defaults to onsite, the repeat frequency defaults to weekly and
// exception dates are sorted and de-duplicated. It rejects shapes the
// expander cannot handle.
func NormalizeMeeting(m *models.SectionMeeting) error {
	if m.DayOfWeek < 0 || m.DayOfWeek > 6 {
		return fmt.Errorf("day_of_week %d out of range 0-6", m.DayOfWeek)
	}

	start, err := ParseClock(m.StartTime)
	if err != nil {
		return fmt.Errorf("start_time: %w", err)
	}
	end, err := ParseClock(m.EndTime)
	if err != nil {
		return fmt.Errorf("end_time: %w", err)
	}
	if end <= start {
		return fmt.Errorf("end_time %s must be after start_time %s", FormatClock(end), FormatClock(start))
	}
	m.StartTime = FormatClock(start)
	m.EndTime = FormatClock(end)

	m.Modality = models.Modality(strings.ToUpper(strings.TrimSpace(string(m.Modality))))
	if m.Modality == "" {
		m.Modality = models.ModalityOnsite
	}
	if !m.Modality.Valid() {
		return fmt.Errorf("unknown modality %q", m.Modality)
	}

	if m.RoomID != nil && *m.RoomID <= 0 {
		return fmt.Errorf("room_id must be positive")
	}

	if m.Repeat != nil {
		rule := m.Repeat
		rule.Frequency = strings.ToUpper(strings.TrimSpace(rule.Frequency))
		if rule.Frequency == "" {
			rule.Frequency = models.FrequencyWeekly
		}
		if rule.Frequency != models.FrequencyWeekly {
			return fmt.Errorf("unsupported repeat frequency %q", rule.Frequency)
		}
		rule.Exceptions = uniqueDates(rule.Exceptions)
	}
	return nil
}

func uniqueDates(dates []models.Date) []models.Date {
	if len(dates) == 0 {
		return nil
	}
	sorted := append([]models.Date(nil), dates...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Before(sorted[j]) })

	out := sorted[:1]
	for _, d := range sorted[1:] {
		if !d.Equal(out[len(out)-1]) {
			out = append(out, d)
		}
	}
	return out
}
