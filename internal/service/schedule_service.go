package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/academic-registrar-api/internal/dto"
	"github.com/noah-isme/academic-registrar-api/internal/models"
	"github.com/noah-isme/academic-registrar-api/internal/recurrence"
	appErrors "github.com/noah-isme/academic-registrar-api/pkg/errors"
)

type meetingStore interface {
	FindByID(ctx context.Context, id string) (*models.SectionMeeting, error)
	ListBySection(ctx context.Context, sectionID string) ([]models.SectionMeeting, error)
	Create(ctx context.Context, meeting *models.SectionMeeting) error
	Update(ctx context.Context, meeting *models.SectionMeeting) error
	Delete(ctx context.Context, id string) error
}

type roomReader interface {
	FindByID(ctx context.Context, id int64) (*models.Room, error)
}

// ScheduleService administers section meetings. Every write is checked for
// room and teacher conflicts and invalidates the term's cached matrices.
type ScheduleService struct {
	meetings  meetingStore
	sections  sectionReader
	terms     termReader
	rooms     roomReader
	conflicts *ConflictService
	validator *validator.Validate
	logger    *zap.Logger
}

// NewScheduleService constructs ScheduleService.
func NewScheduleService(meetings meetingStore, sections sectionReader, terms termReader, rooms roomReader, conflicts *ConflictService, validate *validator.Validate, logger *zap.Logger) *ScheduleService {
	if validate == nil {
		validate = NewValidator()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ScheduleService{
		meetings:  meetings,
		sections:  sections,
		terms:     terms,
		rooms:     rooms,
		conflicts: conflicts,
		validator: validate,
		logger:    logger,
	}
}

// ListMeetings returns the meetings of a section.
func (s *ScheduleService) ListMeetings(ctx context.Context, sectionID string) ([]models.SectionMeeting, error) {
	if _, err := s.sections.FindByID(ctx, sectionID); err != nil {
		return nil, lookupError(err, "section")
	}
	meetings, err := s.meetings.ListBySection(ctx, sectionID)
	if err != nil {
		return nil, internalError(err, "failed to list meetings")
	}
	return meetings, nil
}

// CreateMeeting adds a weekly meeting to a section.
func (s *ScheduleService) CreateMeeting(ctx context.Context, sectionID string, req dto.MeetingRequest) (*models.SectionMeeting, []models.Warning, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, nil, validationError(err, "invalid meeting payload")
	}
	section, term, err := s.editableSection(ctx, sectionID)
	if err != nil {
		return nil, nil, err
	}

	meeting, err := MeetingFromRequest(req)
	if err != nil {
		return nil, nil, err
	}
	meeting.SectionID = section.ID
	meeting.TermID = term.ID

	warnings, err := s.prepare(ctx, *term, &meeting)
	if err != nil {
		return nil, nil, err
	}
	if err := s.meetings.Create(ctx, &meeting); err != nil {
		return nil, nil, internalError(err, "failed to create meeting")
	}

	s.conflicts.InvalidateTerm(ctx, term.ID)
	s.logger.Sugar().Infow("meeting created", "meeting_id", meeting.ID, "section_id", section.ID, "warnings", len(warnings))
	return &meeting, warnings, nil
}

// UpdateMeeting replaces the schedule of an existing meeting.
func (s *ScheduleService) UpdateMeeting(ctx context.Context, id string, req dto.MeetingRequest) (*models.SectionMeeting, []models.Warning, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, nil, validationError(err, "invalid meeting payload")
	}
	existing, err := s.meetings.FindByID(ctx, id)
	if err != nil {
		return nil, nil, lookupError(err, "meeting")
	}
	_, term, err := s.editableSection(ctx, existing.SectionID)
	if err != nil {
		return nil, nil, err
	}

	meeting, err := MeetingFromRequest(req)
	if err != nil {
		return nil, nil, err
	}
	meeting.ID = existing.ID
	meeting.SectionID = existing.SectionID
	meeting.TermID = term.ID
	meeting.CreatedAt = existing.CreatedAt

	warnings, err := s.prepare(ctx, *term, &meeting)
	if err != nil {
		return nil, nil, err
	}
	if err := s.meetings.Update(ctx, &meeting); err != nil {
		return nil, nil, lookupError(err, "meeting")
	}

	s.conflicts.InvalidateTerm(ctx, term.ID)
	s.logger.Sugar().Infow("meeting updated", "meeting_id", meeting.ID, "section_id", meeting.SectionID)
	return &meeting, warnings, nil
}

// DeleteMeeting removes a meeting.
func (s *ScheduleService) DeleteMeeting(ctx context.Context, id string) error {
	existing, err := s.meetings.FindByID(ctx, id)
	if err != nil {
		return lookupError(err, "meeting")
	}
	_, term, err := s.editableSection(ctx, existing.SectionID)
	if err != nil {
		return err
	}
	if err := s.meetings.Delete(ctx, id); err != nil {
		return lookupError(err, "meeting")
	}
	s.conflicts.InvalidateTerm(ctx, term.ID)
	s.logger.Sugar().Infow("meeting deleted", "meeting_id", id, "section_id", existing.SectionID)
	return nil
}

// Occurrences expands a stored meeting across its term.
func (s *ScheduleService) Occurrences(ctx context.Context, meetingID string) (*dto.OccurrencesResponse, error) {
	meeting, err := s.meetings.FindByID(ctx, meetingID)
	if err != nil {
		return nil, lookupError(err, "meeting")
	}
	term, err := s.terms.FindByID(ctx, meeting.TermID)
	if err != nil {
		return nil, lookupError(err, "term")
	}
	series, err := recurrence.Plan(*meeting, *term)
	if err != nil {
		return nil, internalError(err, "failed to expand meeting")
	}
	occurrences := series.Occurrences
	if occurrences == nil {
		occurrences = []models.Occurrence{}
	}
	return &dto.OccurrencesResponse{
		MeetingID:   meeting.ID,
		Timezone:    series.Location.String(),
		Until:       series.Until.String(),
		Exceptions:  series.Exceptions,
		Occurrences: occurrences,
	}, nil
}

func (s *ScheduleService) editableSection(ctx context.Context, sectionID string) (*models.Section, *models.Term, error) {
	section, err := s.sections.FindByID(ctx, sectionID)
	if err != nil {
		return nil, nil, lookupError(err, "section")
	}
	term, err := s.terms.FindByID(ctx, section.TermID)
	if err != nil {
		return nil, nil, lookupError(err, "term")
	}
	if !term.Editable() {
		return nil, nil, appErrors.ErrTermLocked
	}
	return section, term, nil
}

// prepare normalizes the meeting, verifies its room and rejects it when it
// conflicts with existing bookings.
func (s *ScheduleService) prepare(ctx context.Context, term models.Term, meeting *models.SectionMeeting) ([]models.Warning, error) {
	if err := recurrence.NormalizeMeeting(meeting); err != nil {
		return nil, validationError(err, "invalid meeting")
	}
	if meeting.RoomID != nil {
		room, err := s.rooms.FindByID(ctx, *meeting.RoomID)
		if err != nil {
			return nil, lookupError(err, "room")
		}
		name := room.Name
		meeting.RoomName = &name
	}

	series, err := recurrence.Plan(*meeting, term)
	if err != nil {
		return nil, internalError(err, "failed to expand meeting")
	}

	report, err := s.conflicts.checkMeeting(ctx, term, *meeting)
	if err != nil {
		return nil, err
	}
	if !report.Empty() {
		return nil, appErrors.WithDetails(appErrors.ErrConflictDetected, report)
	}
	return meetingWarnings(*meeting, term, series), nil
}

// MeetingFromRequest converts the request payload into a meeting. Dates are
// parsed here; clocks and modality are canonicalised by normalization.
func MeetingFromRequest(req dto.MeetingRequest) (models.SectionMeeting, error) {
	meeting := models.SectionMeeting{
		StartTime: req.StartTime,
		EndTime:   req.EndTime,
		RoomID:    req.RoomID,
		Modality:  models.Modality(strings.ToUpper(req.Modality)),
	}
	if req.DayOfWeek != nil {
		meeting.DayOfWeek = *req.DayOfWeek
	}
	if req.Repeat == nil {
		return meeting, nil
	}

	rule := &models.RepeatRule{Frequency: req.Repeat.Frequency}
	if req.Repeat.Until != nil {
		until, err := models.ParseDate(*req.Repeat.Until)
		if err != nil {
			return meeting, validationError(err, "invalid repeat until")
		}
		rule.Until = &until
	}
	for _, raw := range req.Repeat.Exceptions {
		d, err := models.ParseDate(raw)
		if err != nil {
			return meeting, validationError(err, "invalid repeat exception")
		}
		rule.Exceptions = append(rule.Exceptions, d)
	}
	meeting.Repeat = rule
	return meeting, nil
}

func meetingWarnings(m models.SectionMeeting, term models.Term, series recurrence.Series) []models.Warning {
	var warnings []models.Warning
	if series.Clamped {
		warnings = append(warnings, models.Warning{
			Code:    models.WarningUntilClamped,
			Message: fmt.Sprintf("repeat until %s is after term end %s; the term end applies", m.Repeat.Until, term.EndDate),
		})
	}
	if m.Repeat != nil {
		for _, d := range m.Repeat.Exceptions {
			switch {
			case d.Before(term.StartDate) || d.After(term.EndDate):
				warnings = append(warnings, models.Warning{
					Code:    models.WarningExceptionOutsideTerm,
					Message: fmt.Sprintf("exception %s is outside the term", d),
				})
			case d.Weekday() != m.Weekday():
				warnings = append(warnings, models.Warning{
					Code:    models.WarningExceptionNotOnMeetingDay,
					Message: fmt.Sprintf("exception %s is a %s, the meeting is on %s", d, d.Weekday(), m.Weekday()),
				})
			}
		}
	}
	if series.Empty() {
		warnings = append(warnings, models.Warning{
			Code:    models.WarningNoOccurrences,
			Message: "meeting has no occurrences within the term",
		})
	}
	return warnings
}

// CheckConflicts validates a candidate meeting and reports what it would
// collide with, without storing anything.
func (s *ScheduleService) CheckConflicts(ctx context.Context, req dto.ConflictMeetingRequest) (*models.ConflictReport, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, validationError(err, "invalid meeting payload")
	}
	candidate, err := MeetingFromRequest(req.MeetingRequest)
	if err != nil {
		return nil, err
	}
	candidate.ID = req.MeetingID
	candidate.SectionID = req.SectionID
	return s.conflicts.CheckMeeting(ctx, candidate)
}
