package service

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/academic-registrar-api/internal/models"
	"github.com/noah-isme/academic-registrar-api/internal/recurrence"
)

type sectionTermReader interface {
	FindBySection(ctx context.Context, sectionID string) (*models.Term, error)
}

type meetingBookingReader interface {
	ListBySection(ctx context.Context, sectionID string) ([]models.SectionMeeting, error)
	ListRoomBookings(ctx context.Context, termID string, roomID int64, dayOfWeek int, excludeMeetingID string) ([]models.SectionMeeting, error)
	ListUserBookings(ctx context.Context, termID, userID string, dayOfWeek int, excludeSectionID, excludeMeetingID string) ([]models.TeacherBooking, error)
}

type appointmentLister interface {
	ListBySection(ctx context.Context, sectionID string) ([]models.Appointment, error)
}

// ConflictService detects room and teacher double-booking within a term.
// Candidates are expanded into occurrences and compared only against bookings
// pre-filtered by room or user, weekday and term.
type ConflictService struct {
	terms        sectionTermReader
	meetings     meetingBookingReader
	appointments appointmentLister
	cache        *CacheService
	cacheTTL     time.Duration
	metrics      *MetricsService
	logger       *zap.Logger
}

// NewConflictService constructs a ConflictService. cache and metrics may be nil.
func NewConflictService(terms sectionTermReader, meetings meetingBookingReader, appointments appointmentLister, cache *CacheService, cacheTTL time.Duration, metrics *MetricsService, logger *zap.Logger) *ConflictService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ConflictService{
		terms:        terms,
		meetings:     meetings,
		appointments: appointments,
		cache:        cache,
		cacheTTL:     cacheTTL,
		metrics:      metrics,
		logger:       logger,
	}
}

// CheckMeeting reports bookings that overlap candidate. candidate.ID, when
// set, is the meeting being edited and is excluded from the search.
func (s *ConflictService) CheckMeeting(ctx context.Context, candidate models.SectionMeeting) (*models.ConflictReport, error) {
	if err := recurrence.NormalizeMeeting(&candidate); err != nil {
		return nil, validationError(err, "invalid meeting")
	}
	term, err := s.terms.FindBySection(ctx, candidate.SectionID)
	if err != nil {
		return nil, lookupError(err, "section")
	}
	return s.checkMeeting(ctx, *term, candidate)
}

func (s *ConflictService) checkMeeting(ctx context.Context, term models.Term, candidate models.SectionMeeting) (*models.ConflictReport, error) {
	start := time.Now()
	report := models.NewConflictReport()

	occurrences, err := recurrence.Expand(candidate, term)
	if err != nil {
		return nil, internalError(err, "failed to expand meeting")
	}
	if len(occurrences) > 0 {
		exp := newExpansionCache(term)
		if report.Room, err = s.roomConflicts(ctx, term, candidate, occurrences, exp); err != nil {
			return nil, err
		}

		appts, err := s.appointments.ListBySection(ctx, candidate.SectionID)
		if err != nil {
			return nil, internalError(err, "failed to load section appointments")
		}
		for _, appt := range appts {
			overlaps, err := s.teacherOverlaps(ctx, term, appt.UserID, candidate.DayOfWeek, occurrences, "", candidate.ID, exp)
			if err != nil {
				return nil, err
			}
			if len(overlaps) > 0 {
				report.Teacher = append(report.Teacher, models.TeacherConflict{UserID: appt.UserID, Role: appt.Role, Overlaps: overlaps})
			}
		}
	}

	s.metrics.ObserveConflictCheck("meeting", len(report.Room)+len(report.Teacher), time.Since(start))
	return report, nil
}

// CheckAppointment reports meetings of other sections the candidate user
// already teaches that overlap the target section's meetings.
func (s *ConflictService) CheckAppointment(ctx context.Context, candidate models.Appointment) (*models.ConflictReport, error) {
	term, err := s.terms.FindBySection(ctx, candidate.SectionID)
	if err != nil {
		return nil, lookupError(err, "section")
	}
	return s.checkAppointment(ctx, *term, candidate)
}

func (s *ConflictService) checkAppointment(ctx context.Context, term models.Term, candidate models.Appointment) (*models.ConflictReport, error) {
	start := time.Now()
	report := models.NewConflictReport()

	meetings, err := s.meetings.ListBySection(ctx, candidate.SectionID)
	if err != nil {
		return nil, internalError(err, "failed to load section meetings")
	}

	exp := newExpansionCache(term)
	conflict := models.TeacherConflict{UserID: candidate.UserID, Role: candidate.Role}
	seen := map[string]struct{}{}
	add := func(booking models.ConflictBooking) {
		if _, dup := seen[booking.MeetingID]; dup {
			return
		}
		seen[booking.MeetingID] = struct{}{}
		conflict.Overlaps = append(conflict.Overlaps, booking)
	}

	expanded := make([][]models.Occurrence, len(meetings))
	for i, meeting := range meetings {
		occurrences, err := exp.expand(meeting)
		if err != nil {
			return nil, err
		}
		expanded[i] = occurrences
		overlaps, err := s.teacherOverlaps(ctx, term, candidate.UserID, meeting.DayOfWeek, occurrences, candidate.SectionID, "", exp)
		if err != nil {
			return nil, err
		}
		for _, booking := range overlaps {
			add(booking)
		}
	}

	// The appointee teaches every meeting of the section, so overlapping
	// meetings inside it are double bookings too, as CheckMeeting reports them.
	for i := range meetings {
		if len(expanded[i]) == 0 {
			continue
		}
		index := recurrence.NewIndex(expanded[i])
		for j := i + 1; j < len(meetings); j++ {
			if meetings[i].DayOfWeek != meetings[j].DayOfWeek || !index.Overlaps(expanded[j]) {
				continue
			}
			for _, m := range []models.SectionMeeting{meetings[i], meetings[j]} {
				booking := models.BookingOf(m)
				booking.Role = candidate.Role
				add(booking)
			}
		}
	}
	if len(conflict.Overlaps) > 0 {
		report.Teacher = append(report.Teacher, conflict)
	}

	s.metrics.ObserveConflictCheck("appointment", len(report.Teacher), time.Since(start))
	return report, nil
}

// SectionMatrix aggregates room conflicts of every meeting of the section and
// teacher conflicts of every appointment, de-duplicated. Results are cached
// per term and section until a schedule write in the term invalidates them.
func (s *ConflictService) SectionMatrix(ctx context.Context, sectionID string) (*models.ConflictReport, error) {
	term, err := s.terms.FindBySection(ctx, sectionID)
	if err != nil {
		return nil, lookupError(err, "section")
	}

	key := conflictCacheKey(term.ID, sectionID)
	var cached models.ConflictReport
	if s.cache.Get(ctx, key, &cached) {
		return &cached, nil
	}

	meetings, err := s.meetings.ListBySection(ctx, sectionID)
	if err != nil {
		return nil, internalError(err, "failed to load section meetings")
	}

	report := models.NewConflictReport()
	exp := newExpansionCache(*term)
	seenRoom := map[string]struct{}{}
	for _, meeting := range meetings {
		occurrences, err := exp.expand(meeting)
		if err != nil {
			return nil, err
		}
		bookings, err := s.roomConflicts(ctx, *term, meeting, occurrences, exp)
		if err != nil {
			return nil, err
		}
		for _, booking := range bookings {
			if _, dup := seenRoom[booking.MeetingID]; dup {
				continue
			}
			seenRoom[booking.MeetingID] = struct{}{}
			report.Room = append(report.Room, booking)
		}
	}

	appts, err := s.appointments.ListBySection(ctx, sectionID)
	if err != nil {
		return nil, internalError(err, "failed to load section appointments")
	}
	for _, appt := range appts {
		teacherReport, err := s.checkAppointment(ctx, *term, appt)
		if err != nil {
			return nil, err
		}
		report.Teacher = append(report.Teacher, teacherReport.Teacher...)
	}

	s.cache.Set(ctx, key, report, s.cacheTTL)
	return report, nil
}

// InvalidateTerm drops cached matrices of every section in the term.
func (s *ConflictService) InvalidateTerm(ctx context.Context, termID string) {
	s.cache.Invalidate(ctx, conflictCachePattern(termID))
}

func (s *ConflictService) roomConflicts(ctx context.Context, term models.Term, candidate models.SectionMeeting, occurrences []models.Occurrence, exp *expansionCache) ([]models.ConflictBooking, error) {
	if candidate.RoomID == nil || candidate.Modality == models.ModalityOnline {
		return []models.ConflictBooking{}, nil
	}
	others, err := s.meetings.ListRoomBookings(ctx, term.ID, *candidate.RoomID, candidate.DayOfWeek, candidate.ID)
	if err != nil {
		return nil, internalError(err, "failed to load room bookings")
	}

	index := recurrence.NewIndex(occurrences)
	conflicts := []models.ConflictBooking{}
	for _, other := range others {
		if other.Modality == models.ModalityOnline {
			continue
		}
		otherOcc, err := exp.expand(other)
		if err != nil {
			return nil, err
		}
		if index.Overlaps(otherOcc) {
			conflicts = append(conflicts, models.BookingOf(other))
		}
	}
	return conflicts, nil
}

func (s *ConflictService) teacherOverlaps(ctx context.Context, term models.Term, userID string, dayOfWeek int, occurrences []models.Occurrence, excludeSectionID, excludeMeetingID string, exp *expansionCache) ([]models.ConflictBooking, error) {
	if len(occurrences) == 0 {
		return nil, nil
	}
	bookings, err := s.meetings.ListUserBookings(ctx, term.ID, userID, dayOfWeek, excludeSectionID, excludeMeetingID)
	if err != nil {
		return nil, internalError(err, "failed to load teacher bookings")
	}

	index := recurrence.NewIndex(occurrences)
	var overlaps []models.ConflictBooking
	for _, booking := range bookings {
		otherOcc, err := exp.expand(booking.SectionMeeting)
		if err != nil {
			return nil, err
		}
		if index.Overlaps(otherOcc) {
			entry := models.BookingOf(booking.SectionMeeting)
			entry.Role = booking.Role
			overlaps = append(overlaps, entry)
		}
	}
	return overlaps, nil
}

// expansionCache memoises meeting expansion within a single check.
type expansionCache struct {
	term models.Term
	byID map[string][]models.Occurrence
}

func newExpansionCache(term models.Term) *expansionCache {
	return &expansionCache{term: term, byID: map[string][]models.Occurrence{}}
}

func (c *expansionCache) expand(m models.SectionMeeting) ([]models.Occurrence, error) {
	if occ, ok := c.byID[m.ID]; ok && m.ID != "" {
		return occ, nil
	}
	occ, err := recurrence.Expand(m, c.term)
	if err != nil {
		return nil, internalError(err, "failed to expand meeting")
	}
	if m.ID != "" {
		c.byID[m.ID] = occ
	}
	return occ, nil
}
