package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	ics "github.com/arran4/golang-ical"
	"go.uber.org/zap"

	"github.com/noah-isme/academic-registrar-api/internal/models"
	"github.com/noah-isme/academic-registrar-api/internal/recurrence"
	appErrors "github.com/noah-isme/academic-registrar-api/pkg/errors"
)

const (
	icalLocalFormat = "20060102T150405"
	icalUTCFormat   = "20060102T150405Z"

	defaultUIDDomain = "registrar.local"
)

var icalWeekdays = [...]string{"SU", "MO", "TU", "WE", "TH", "FR", "SA"}

type meetingLister interface {
	ListBySection(ctx context.Context, sectionID string) ([]models.SectionMeeting, error)
}

type studentEnrollmentLister interface {
	ListCurrentByStudentTerm(ctx context.Context, studentID, termID string) ([]models.EnrollmentDetail, error)
}

// CalendarOptions are the identity headers of exported calendars.
type CalendarOptions struct {
	ProductID string
	UIDDomain string
}

// CalendarEntry is one meeting to render. Confirmed selects STATUS:CONFIRMED
// over TENTATIVE.
type CalendarEntry struct {
	Section   models.Section
	Meeting   models.SectionMeeting
	Confirmed bool
}

// CalendarDocument is everything RenderCalendar needs.
type CalendarDocument struct {
	Name    string
	Term    models.Term
	Entries []CalendarEntry
	Stamp   time.Time
}

// CalendarFile is a rendered calendar ready for download.
type CalendarFile struct {
	Filename string
	Body     []byte
}

// CalendarExportService renders section and student timetables as iCalendar.
type CalendarExportService struct {
	sections    sectionReader
	terms       termReader
	users       userReader
	meetings    meetingLister
	enrollments studentEnrollmentLister
	opts        CalendarOptions
	logger      *zap.Logger
	now         func() time.Time
}

// NewCalendarExportService constructs CalendarExportService.
func NewCalendarExportService(sections sectionReader, terms termReader, users userReader, meetings meetingLister, enrollments studentEnrollmentLister, opts CalendarOptions, logger *zap.Logger) *CalendarExportService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if opts.UIDDomain == "" {
		opts.UIDDomain = defaultUIDDomain
	}
	return &CalendarExportService{
		sections:    sections,
		terms:       terms,
		users:       users,
		meetings:    meetings,
		enrollments: enrollments,
		opts:        opts,
		logger:      logger,
		now:         time.Now,
	}
}

// ExportSection renders every meeting of a section. Meetings are confirmed
// while the section is open.
func (s *CalendarExportService) ExportSection(ctx context.Context, sectionID string) (*CalendarFile, error) {
	section, err := s.sections.FindByID(ctx, sectionID)
	if err != nil {
		return nil, lookupError(err, "section")
	}
	term, err := s.terms.FindByID(ctx, section.TermID)
	if err != nil {
		return nil, lookupError(err, "term")
	}
	meetings, err := s.meetings.ListBySection(ctx, section.ID)
	if err != nil {
		return nil, internalError(err, "failed to load section meetings")
	}

	doc := CalendarDocument{
		Name:  fmt.Sprintf("%s %s", section.DisplayName(), term.Name),
		Term:  *term,
		Stamp: s.now(),
	}
	for _, m := range meetings {
		doc.Entries = append(doc.Entries, CalendarEntry{
			Section:   *section,
			Meeting:   m,
			Confirmed: section.Status == models.SectionStatusOpen,
		})
	}

	body, err := RenderCalendar(doc, s.opts)
	if err != nil {
		return nil, internalError(err, "failed to render calendar")
	}
	return &CalendarFile{Filename: fileSlug(section.DisplayName()) + ".ics", Body: body}, nil
}

// ExportStudent renders a student's active and waitlisted sections in a term.
func (s *CalendarExportService) ExportStudent(ctx context.Context, actor models.Actor, studentID, termID string) (*CalendarFile, error) {
	if termID == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "term_id is required")
	}
	if actor.Role == models.RoleStudent && actor.UserID != studentID {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "cannot export another student's calendar")
	}
	student, err := s.users.FindByID(ctx, studentID)
	if err != nil {
		return nil, lookupError(err, "student")
	}
	term, err := s.terms.FindByID(ctx, termID)
	if err != nil {
		return nil, lookupError(err, "term")
	}
	enrollments, err := s.enrollments.ListCurrentByStudentTerm(ctx, studentID, termID)
	if err != nil {
		return nil, internalError(err, "failed to load student enrollments")
	}

	doc := CalendarDocument{
		Name:  fmt.Sprintf("%s %s", student.FullName, term.Name),
		Term:  *term,
		Stamp: s.now(),
	}
	for _, e := range enrollments {
		section, err := s.sections.FindByID(ctx, e.SectionID)
		if err != nil {
			return nil, lookupError(err, "section")
		}
		meetings, err := s.meetings.ListBySection(ctx, e.SectionID)
		if err != nil {
			return nil, internalError(err, "failed to load section meetings")
		}
		for _, m := range meetings {
			doc.Entries = append(doc.Entries, CalendarEntry{
				Section:   *section,
				Meeting:   m,
				Confirmed: e.Status == models.EnrollmentStatusActive,
			})
		}
	}

	body, err := RenderCalendar(doc, s.opts)
	if err != nil {
		return nil, internalError(err, "failed to render calendar")
	}
	return &CalendarFile{Filename: fileSlug(student.FullName+" "+term.Name) + ".ics", Body: body}, nil
}

// RenderCalendar builds a VCALENDAR with one weekly VEVENT per meeting.
// Meetings without occurrences in the term are left out.
func RenderCalendar(doc CalendarDocument, opts CalendarOptions) ([]byte, error) {
	loc, err := doc.Term.Location()
	if err != nil {
		return nil, err
	}
	if opts.UIDDomain == "" {
		opts.UIDDomain = defaultUIDDomain
	}
	stamp := doc.Stamp
	if stamp.IsZero() {
		stamp = time.Now()
	}

	cal := ics.NewCalendar()
	if opts.ProductID != "" {
		cal.SetProductId(opts.ProductID)
	}
	cal.SetMethod(ics.MethodPublish)
	cal.SetXWRCalName(doc.Name)
	cal.SetXWRTimezone(loc.String())

	for _, entry := range doc.Entries {
		meeting := entry.Meeting
		series, err := recurrence.Plan(meeting, doc.Term)
		if err != nil {
			return nil, fmt.Errorf("meeting %s: %w", meeting.ID, err)
		}
		if series.Empty() {
			continue
		}
		start, err := recurrence.ParseClock(meeting.StartTime)
		if err != nil {
			return nil, fmt.Errorf("meeting %s: %w", meeting.ID, err)
		}
		first := series.Occurrences[0]
		last := series.Occurrences[len(series.Occurrences)-1]
		firstDay := models.DateOf(first.Start.In(loc))
		lastDay := models.DateOf(last.Start.In(loc))

		event := cal.AddEvent(fmt.Sprintf("section-%s-meeting-%s@%s", entry.Section.ID, meeting.ID, opts.UIDDomain))
		event.SetDtStampTime(stamp.UTC())
		event.SetProperty(ics.ComponentPropertyDtStart, first.Start.In(loc).Format(icalLocalFormat), tzid(loc))
		event.SetProperty(ics.ComponentPropertyDtEnd, first.End.In(loc).Format(icalLocalFormat), tzid(loc))
		event.AddRrule(fmt.Sprintf("FREQ=WEEKLY;BYDAY=%s;UNTIL=%s",
			icalWeekdays[meeting.DayOfWeek], last.Start.UTC().Format(icalUTCFormat)))
		// Exceptions outside [first, last] are already excluded by DTSTART and UNTIL.
		for _, d := range series.Exceptions {
			if d.After(firstDay) && d.Before(lastDay) {
				event.AddProperty(ics.ComponentPropertyExdate, d.At(loc, start).Format(icalLocalFormat), tzid(loc))
			}
		}

		event.SetSummary(summaryOf(entry.Section))
		event.SetLocation(locationOf(meeting))
		event.SetDescription(fmt.Sprintf("Section %s, %s meeting", entry.Section.DisplayName(), strings.ToLower(string(meeting.Modality))))
		if entry.Confirmed {
			event.SetStatus(ics.ObjectStatusConfirmed)
		} else {
			event.SetStatus(ics.ObjectStatusTentative)
		}
	}

	return []byte(crlf(cal.Serialize())), nil
}

func tzid(loc *time.Location) ics.PropertyParameter {
	return ics.WithTZID(loc.String())
}

func summaryOf(section models.Section) string {
	if section.CourseTitle == "" {
		return section.DisplayName()
	}
	return section.DisplayName() + " " + section.CourseTitle
}

func locationOf(m models.SectionMeeting) string {
	if m.Modality == models.ModalityOnline {
		return "Online"
	}
	if m.RoomName != nil && *m.RoomName != "" {
		return *m.RoomName
	}
	if m.RoomID != nil {
		return fmt.Sprintf("Room %d", *m.RoomID)
	}
	return "TBA"
}

// crlf forces CRLF line endings whatever the serializer emitted.
func crlf(s string) string {
	s = strings.ReplaceAll(s, "\r\n", "\n")
	return strings.ReplaceAll(s, "\n", "\r\n")
}

func fileSlug(name string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(strings.TrimSpace(name)) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9', r == '-', r == '_':
			b.WriteRune(r)
		default:
			b.WriteRune('-')
		}
	}
	slug := strings.Trim(b.String(), "-")
	if slug == "" {
		return "calendar"
	}
	return slug
}
