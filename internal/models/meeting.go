package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"
)

// Modality is how a meeting is delivered.
type Modality string

const (
	ModalityOnsite Modality = "ONSITE"
	ModalityOnline Modality = "ONLINE"
	ModalityHybrid Modality = "HYBRID"
)

// Valid reports whether m is a known modality.
func (m Modality) Valid() bool {
	switch m {
	case ModalityOnsite, ModalityOnline, ModalityHybrid:
		return true
	}
	return false
}

// FrequencyWeekly is the only supported repeat frequency.
const FrequencyWeekly = "WEEKLY"

// RepeatRule bounds and thins a weekly series.
type RepeatRule struct {
	Frequency  string `json:"frequency"`
	Until      *Date  `json:"until,omitempty"`
	Exceptions []Date `json:"exceptions,omitempty"`
}

// Scan implements sql.Scanner for the JSONB column.
func (r *RepeatRule) Scan(src interface{}) error {
	var raw []byte
	switch v := src.(type) {
	case nil:
		return nil
	case []byte:
		raw = v
	case string:
		raw = []byte(v)
	default:
		return fmt.Errorf("cannot scan %T into RepeatRule", src)
	}
	return json.Unmarshal(raw, r)
}

// Value implements driver.Valuer.
func (r RepeatRule) Value() (driver.Value, error) {
	b, err := json.Marshal(r)
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

// SectionMeeting is a weekly recurring class slot. Times are wall clock values
// in HH:MM:SS form, interpreted in the term's timezone.
type SectionMeeting struct {
	ID         string      `db:"id" json:"id"`
	SectionID  string      `db:"section_id" json:"section_id"`
	TermID     string      `db:"term_id" json:"term_id"`
	DayOfWeek  int         `db:"day_of_week" json:"day_of_week"`
	StartTime  string      `db:"start_time" json:"start_time"`
	EndTime    string      `db:"end_time" json:"end_time"`
	RoomID     *int64      `db:"room_id" json:"room_id,omitempty"`
	Modality   Modality    `db:"modality" json:"modality"`
	Repeat     *RepeatRule `db:"repeat_rule" json:"repeat,omitempty"`
	CreatedAt  time.Time   `db:"created_at" json:"created_at"`
	UpdatedAt  time.Time   `db:"updated_at" json:"updated_at"`
	RoomName   *string     `db:"room_name" json:"room_name,omitempty"`
	CourseCode string      `db:"course_code" json:"course_code,omitempty"`
}

// Weekday returns the meeting day as a time.Weekday (0 = Sunday).
func (m *SectionMeeting) Weekday() time.Weekday {
	return time.Weekday(m.DayOfWeek)
}

// Occurrence is one concrete instance of a meeting.
type Occurrence struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

// Overlaps reports a half-open overlap on the same calendar day. Back to back
// occurrences do not overlap.
func (o Occurrence) Overlaps(other Occurrence) bool {
	if !DateOf(o.Start).Equal(DateOf(other.Start)) {
		return false
	}
	return o.Start.Before(other.End) && other.Start.Before(o.End)
}
