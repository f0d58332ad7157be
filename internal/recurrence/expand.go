// Package recurrence expands weekly meetings into concrete occurrences and
// tests them for overlap. Everything here is pure and safe for concurrent use.
package recurrence

import (
	"time"

	"github.com/noah-isme/academic-registrar-api/internal/models"
)

// Series is the expansion of one meeting across a term.
type Series struct {
	// First is the first date on the meeting's weekday on or after term start.
	First models.Date
	// Until is the last date the series may reach: the earlier of term end and
	// the repeat rule's until.
	Until models.Date
	// Exceptions are the excluded dates that fall on a walked date.
	Exceptions  []models.Date
	Occurrences []models.Occurrence
	// Clamped is set when the rule's until lies past the term end and was ignored.
	Clamped  bool
	Location *time.Location
}

// Empty reports whether the series has no occurrences.
func (s Series) Empty() bool {
	return len(s.Occurrences) == 0
}

// Plan expands meeting m within term t. A bound earlier than the first
// occurrence yields an empty series, not an error.
func Plan(m models.SectionMeeting, t models.Term) (Series, error) {
	loc, err := t.Location()
	if err != nil {
		return Series{}, err
	}
	start, err := ParseClock(m.StartTime)
	if err != nil {
		return Series{}, err
	}
	end, err := ParseClock(m.EndTime)
	if err != nil {
		return Series{}, err
	}

	series := Series{
		First:    FirstOnOrAfter(t.StartDate, m.Weekday()),
		Until:    t.EndDate,
		Location: loc,
	}

	skip := map[models.Date]struct{}{}
	if m.Repeat != nil {
		if u := m.Repeat.Until; u != nil {
			if u.After(t.EndDate) {
				series.Clamped = true
			} else {
				series.Until = *u
			}
		}
		for _, d := range m.Repeat.Exceptions {
			skip[d] = struct{}{}
		}
	}

	for d := series.First; !d.After(series.Until); d = d.AddDays(7) {
		if _, excluded := skip[d]; excluded {
			series.Exceptions = append(series.Exceptions, d)
			continue
		}
		series.Occurrences = append(series.Occurrences, models.Occurrence{
			Start: d.At(loc, start),
			End:   d.At(loc, end),
		})
	}
	return series, nil
}

// Expand returns only the occurrences of m within t.
func Expand(m models.SectionMeeting, t models.Term) ([]models.Occurrence, error) {
	series, err := Plan(m, t)
	if err != nil {
		return nil, err
	}
	return series.Occurrences, nil
}

// FirstOnOrAfter advances d by 0-6 days to the next date falling on wd.
func FirstOnOrAfter(d models.Date, wd time.Weekday) models.Date {
	delta := (int(wd) - int(d.Weekday()) + 7) % 7
	return d.AddDays(delta)
}
