package dto

import "github.com/noah-isme/academic-registrar-api/internal/models"

// RepeatRequest bounds and thins a weekly meeting.
type RepeatRequest struct {
	Frequency  string   `json:"frequency" validate:"omitempty,oneof=WEEKLY weekly"`
	Until      *string  `json:"until" validate:"omitempty,datetime=2006-01-02"`
	Exceptions []string `json:"exceptions" validate:"omitempty,dive,datetime=2006-01-02"`
}

// MeetingRequest creates or replaces a section meeting.
type MeetingRequest struct {
	DayOfWeek *int           `json:"day_of_week" validate:"required,weekday"`
	StartTime string         `json:"start_time" validate:"required,hhmm"`
	EndTime   string         `json:"end_time" validate:"required,hhmm"`
	RoomID    *int64         `json:"room_id" validate:"omitempty,min=1"`
	Modality  string         `json:"modality" validate:"omitempty,modality"`
	Repeat    *RepeatRequest `json:"repeat" validate:"omitempty"`
}

// ConflictMeetingRequest checks a candidate meeting of a section. MeetingID is
// set when the candidate replaces an existing meeting.
type ConflictMeetingRequest struct {
	SectionID string `json:"section_id" validate:"required"`
	MeetingID string `json:"meeting_id"`
	MeetingRequest
}

// MeetingResponse returns the stored meeting with non-fatal warnings.
type MeetingResponse struct {
	Meeting  *models.SectionMeeting `json:"meeting"`
	Warnings []models.Warning       `json:"warnings,omitempty"`
}

// OccurrencesResponse lists the expanded occurrences of a meeting.
type OccurrencesResponse struct {
	MeetingID   string              `json:"meeting_id"`
	Timezone    string              `json:"timezone"`
	Until       string              `json:"until"`
	Exceptions  []models.Date       `json:"exceptions,omitempty"`
	Occurrences []models.Occurrence `json:"occurrences"`
}
