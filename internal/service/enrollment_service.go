package service

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/academic-registrar-api/internal/dto"
	"github.com/noah-isme/academic-registrar-api/internal/models"
	"github.com/noah-isme/academic-registrar-api/internal/repository"
	appErrors "github.com/noah-isme/academic-registrar-api/pkg/errors"
	"github.com/noah-isme/academic-registrar-api/pkg/events"
)

type enrollmentRepository interface {
	FindByID(ctx context.Context, id string) (*models.SectionEnrollment, error)
	FindDetailByID(ctx context.Context, id string) (*models.EnrollmentDetail, error)
	List(ctx context.Context, filter models.EnrollmentFilter) ([]models.EnrollmentDetail, int, error)
	ExistsOpen(ctx context.Context, studentID, sectionID string) (bool, error)
	WithSectionLock(ctx context.Context, sectionID string, fn func(repository.SeatLedger) error) error
}

type sectionReader interface {
	FindByID(ctx context.Context, id string) (*models.Section, error)
}

type termReader interface {
	FindByID(ctx context.Context, id string) (*models.Term, error)
}

type userReader interface {
	FindByID(ctx context.Context, id string) (*models.User, error)
}

type prerequisiteChecker interface {
	Missing(ctx context.Context, studentID, courseID string) ([]models.MissingPrerequisite, error)
}

type promotionDispatcher interface {
	EnqueuePromotion(ctx context.Context, sectionID string) error
}

// EnrollmentService is the capacity and waitlist state machine. Seat
// decisions run under the section lock; events and promotion dispatch happen
// only after the write has committed.
type EnrollmentService struct {
	repo          enrollmentRepository
	sections      sectionReader
	terms         termReader
	users         userReader
	prerequisites prerequisiteChecker
	promotions    promotionDispatcher
	publisher     events.Publisher
	metrics       *MetricsService
	validator     *validator.Validate
	logger        *zap.Logger
	now           func() time.Time
}

// NewEnrollmentService constructs EnrollmentService.
func NewEnrollmentService(repo enrollmentRepository, sections sectionReader, terms termReader, users userReader, prerequisites prerequisiteChecker, publisher events.Publisher, metrics *MetricsService, validate *validator.Validate, logger *zap.Logger) *EnrollmentService {
	if validate == nil {
		validate = NewValidator()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if publisher == nil {
		publisher = events.NewLogPublisher(logger)
	}
	return &EnrollmentService{
		repo:          repo,
		sections:      sections,
		terms:         terms,
		users:         users,
		prerequisites: prerequisites,
		publisher:     publisher,
		metrics:       metrics,
		validator:     validate,
		logger:        logger,
		now:           time.Now,
	}
}

// SetPromotionDispatcher wires the queue that receives freed-seat tasks.
func (s *EnrollmentService) SetPromotionDispatcher(d promotionDispatcher) {
	s.promotions = d
}

// Get returns an enrollment. Students may only read their own.
func (s *EnrollmentService) Get(ctx context.Context, actor models.Actor, id string) (*models.EnrollmentDetail, error) {
	detail, err := s.repo.FindDetailByID(ctx, id)
	if err != nil {
		return nil, lookupError(err, "enrollment")
	}
	if actor.Role == models.RoleStudent && detail.StudentID != actor.UserID {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "cannot view another student's enrollment")
	}
	return detail, nil
}

// List returns enrollments with pagination metadata.
func (s *EnrollmentService) List(ctx context.Context, filter models.EnrollmentFilter) ([]models.EnrollmentDetail, *models.Pagination, error) {
	if filter.Status != "" && !filter.Status.Valid() {
		return nil, nil, appErrors.Clone(appErrors.ErrValidation, "unknown enrollment status")
	}
	if filter.SectionID != "" {
		if _, err := s.sections.FindByID(ctx, filter.SectionID); err != nil {
			return nil, nil, lookupError(err, "section")
		}
	}
	enrollments, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, internalError(err, "failed to list enrollments")
	}
	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 || size > 500 {
		size = 50
	}
	return enrollments, &models.Pagination{Page: page, PageSize: size, TotalCount: total}, nil
}

// Enroll registers req.StudentID in the section. The student becomes active
// while seats remain, waitlisted while the waitlist has room, and is rejected
// with WAITLIST_FULL otherwise.
func (s *EnrollmentService) Enroll(ctx context.Context, actor models.Actor, sectionID string, req dto.EnrollRequest) (*models.SectionEnrollment, error) {
	enrollment, err := s.enroll(ctx, actor, sectionID, req)
	if err != nil {
		s.metrics.RecordEnrollment("enroll", errorCode(err))
		return nil, err
	}
	s.metrics.RecordEnrollment("enroll", string(enrollment.Status))
	return enrollment, nil
}

func (s *EnrollmentService) enroll(ctx context.Context, actor models.Actor, sectionID string, req dto.EnrollRequest) (*models.SectionEnrollment, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, validationError(err, "invalid enrollment payload")
	}
	role := models.EnrollmentRole(strings.ToUpper(string(req.Role)))
	if role == "" {
		role = models.EnrollmentRoleStudent
	}
	if actor.Role == models.RoleStudent && actor.UserID != req.StudentID {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "students may only enroll themselves")
	}

	section, err := s.sections.FindByID(ctx, sectionID)
	if err != nil {
		return nil, lookupError(err, "section")
	}
	term, err := s.terms.FindByID(ctx, section.TermID)
	if err != nil {
		return nil, lookupError(err, "term")
	}
	if _, err := s.users.FindByID(ctx, req.StudentID); err != nil {
		return nil, lookupError(err, "student")
	}
	if section.Status != models.SectionStatusOpen {
		return nil, appErrors.ErrSectionClosed
	}

	open, err := term.AddDropOpen(s.now())
	if err != nil {
		return nil, internalError(err, "failed to evaluate add/drop window")
	}
	if !open {
		return nil, appErrors.WithDetails(appErrors.ErrWindowClosed, map[string]string{
			"add_drop_start": term.AddDropStart.String(),
			"add_drop_end":   term.AddDropEnd.String(),
		})
	}

	exists, err := s.repo.ExistsOpen(ctx, req.StudentID, section.ID)
	if err != nil {
		return nil, internalError(err, "failed to check existing enrollment")
	}
	if exists {
		return nil, appErrors.ErrDuplicateEnrollment
	}

	if role != models.EnrollmentRoleAuditor {
		missing, err := s.prerequisites.Missing(ctx, req.StudentID, section.CourseID)
		if err != nil {
			return nil, err
		}
		if len(missing) > 0 {
			return nil, appErrors.WithDetails(appErrors.ErrMissingPrerequisite, missing)
		}
	}

	var created *models.SectionEnrollment
	err = s.repo.WithSectionLock(ctx, section.ID, func(ledger repository.SeatLedger) error {
		counts, err := ledger.CountSeats(ctx)
		if err != nil {
			return err
		}
		now := s.now().UTC()
		enrollment := &models.SectionEnrollment{StudentID: req.StudentID, Role: role}
		switch {
		case counts.Active < section.Capacity:
			enrollment.Status = models.EnrollmentStatusActive
			enrollment.EnrolledAt = &now
		case counts.Waitlisted < section.WaitlistCapacity:
			enrollment.Status = models.EnrollmentStatusWaitlisted
			enrollment.WaitlistedAt = &now
		default:
			return appErrors.ErrWaitlistFull
		}
		if err := ledger.Insert(ctx, enrollment); err != nil {
			return err
		}
		created = enrollment
		return nil
	})
	if err != nil {
		return nil, s.lockError(err)
	}

	s.logger.Sugar().Infow("enrollment created",
		"enrollment_id", created.ID, "section_id", section.ID, "student_id", created.StudentID, "status", created.Status)
	s.publish(ctx, models.EventEnrollmentCreated, section, created, "", actor.UserID)
	return created, nil
}

// Withdraw drops an enrollment. Freeing an active seat schedules a promotion
// task; the waitlist is never promoted inline.
func (s *EnrollmentService) Withdraw(ctx context.Context, actor models.Actor, id string) (*models.SectionEnrollment, error) {
	current, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, lookupError(err, "enrollment")
	}
	if actor.Role == models.RoleStudent && current.StudentID != actor.UserID {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "cannot withdraw another student's enrollment")
	}
	section, err := s.sections.FindByID(ctx, current.SectionID)
	if err != nil {
		return nil, lookupError(err, "section")
	}
	if !actor.Role.IsStaff() {
		term, err := s.terms.FindByID(ctx, section.TermID)
		if err != nil {
			return nil, lookupError(err, "term")
		}
		open, err := term.AddDropOpen(s.now())
		if err != nil {
			return nil, internalError(err, "failed to evaluate add/drop window")
		}
		if !open {
			return nil, appErrors.ErrWindowClosed
		}
	}

	updated, previous, err := s.transition(ctx, section, id, models.EnrollmentStatusDropped)
	if err != nil {
		s.metrics.RecordEnrollment("withdraw", errorCode(err))
		return nil, err
	}
	s.metrics.RecordEnrollment("withdraw", string(updated.Status))
	s.logger.Sugar().Infow("enrollment withdrawn", "enrollment_id", id, "section_id", section.ID, "previous_status", previous)

	if previous == models.EnrollmentStatusActive {
		s.dispatchPromotion(ctx, section.ID)
	}
	return updated, nil
}

// Override moves an enrollment to req.Status on behalf of staff. Illegal
// transitions are rejected; promoting to active still requires a free seat.
func (s *EnrollmentService) Override(ctx context.Context, actor models.Actor, id string, req dto.OverrideRequest) (*models.SectionEnrollment, error) {
	req.Status = models.EnrollmentStatus(strings.ToUpper(string(req.Status)))
	if err := s.validator.Struct(req); err != nil {
		return nil, validationError(err, "invalid override payload")
	}
	if !actor.Role.IsStaff() {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "only registrar staff may override enrollments")
	}

	current, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, lookupError(err, "enrollment")
	}
	section, err := s.sections.FindByID(ctx, current.SectionID)
	if err != nil {
		return nil, lookupError(err, "section")
	}

	updated, previous, err := s.transition(ctx, section, id, req.Status)
	if err != nil {
		s.metrics.RecordEnrollment("override", errorCode(err))
		return nil, err
	}
	s.metrics.RecordEnrollment("override", string(updated.Status))
	s.logger.Sugar().Infow("enrollment overridden",
		"enrollment_id", id, "section_id", section.ID, "from", previous, "to", updated.Status,
		"actor_id", actor.UserID, "reason", req.Reason)

	s.publish(ctx, models.EventEnrollmentOverridden, section, updated, previous, actor.UserID)
	if previous == models.EnrollmentStatusActive {
		s.dispatchPromotion(ctx, section.ID)
	}
	return updated, nil
}

// transition applies a status change inside the section lock and returns the
// updated record with its previous status.
func (s *EnrollmentService) transition(ctx context.Context, section *models.Section, id string, target models.EnrollmentStatus) (*models.SectionEnrollment, models.EnrollmentStatus, error) {
	var (
		updated  *models.SectionEnrollment
		previous models.EnrollmentStatus
	)
	err := s.repo.WithSectionLock(ctx, section.ID, func(ledger repository.SeatLedger) error {
		current, err := ledger.FindForUpdate(ctx, id)
		if err != nil {
			return err
		}
		if !current.Status.CanTransitionTo(target) {
			return appErrors.WithDetails(appErrors.ErrIllegalTransition, map[string]models.EnrollmentStatus{
				"from": current.Status,
				"to":   target,
			})
		}

		now := s.now().UTC()
		switch target {
		case models.EnrollmentStatusActive:
			counts, err := ledger.CountSeats(ctx)
			if err != nil {
				return err
			}
			if counts.Active >= section.Capacity {
				return appErrors.ErrCapacityExceeded
			}
			current.EnrolledAt = &now
			current.WaitlistedAt = nil
		case models.EnrollmentStatusDropped:
			current.DroppedAt = &now
		}

		previous = current.Status
		current.Status = target
		if err := ledger.UpdateStatus(ctx, current); err != nil {
			return err
		}
		updated = current
		return nil
	})
	if err != nil {
		return nil, "", s.lockError(err)
	}
	return updated, previous, nil
}

// PromoteNextFromWaitlist activates the longest-waiting enrollment when the
// section has a free seat. It returns nil, nil when there is nothing to do.
func (s *EnrollmentService) PromoteNextFromWaitlist(ctx context.Context, sectionID string) (*models.SectionEnrollment, error) {
	section, err := s.sections.FindByID(ctx, sectionID)
	if err != nil {
		return nil, lookupError(err, "section")
	}
	if section.Status == models.SectionStatusCancelled {
		return nil, nil
	}

	var promoted *models.SectionEnrollment
	err = s.repo.WithSectionLock(ctx, section.ID, func(ledger repository.SeatLedger) error {
		promoted = nil
		counts, err := ledger.CountSeats(ctx)
		if err != nil {
			return err
		}
		if counts.Active >= section.Capacity {
			return nil
		}
		head, err := ledger.NextWaitlisted(ctx)
		if errors.Is(err, sql.ErrNoRows) {
			return nil
		}
		if err != nil {
			return err
		}

		now := s.now().UTC()
		head.Status = models.EnrollmentStatusActive
		head.EnrolledAt = &now
		head.WaitlistedAt = nil
		if err := ledger.UpdateStatus(ctx, head); err != nil {
			return err
		}
		promoted = head
		return nil
	})
	if err != nil {
		return nil, s.lockError(err)
	}
	if promoted == nil {
		return nil, nil
	}

	s.logger.Sugar().Infow("waitlist promoted", "enrollment_id", promoted.ID, "section_id", section.ID, "student_id", promoted.StudentID)
	s.publish(ctx, models.EventWaitlistPromoted, section, promoted, models.EnrollmentStatusWaitlisted, models.SystemActor.UserID)
	return promoted, nil
}

func (s *EnrollmentService) dispatchPromotion(ctx context.Context, sectionID string) {
	if s.promotions == nil {
		s.logger.Warn("no promotion dispatcher configured", zap.String("section_id", sectionID))
		return
	}
	if err := s.promotions.EnqueuePromotion(ctx, sectionID); err != nil {
		// The seat stays free; startup recovery re-enqueues the section.
		s.logger.Error("failed to enqueue promotion", zap.String("section_id", sectionID), zap.Error(err))
	}
}

func (s *EnrollmentService) publish(ctx context.Context, eventType string, section *models.Section, e *models.SectionEnrollment, previous models.EnrollmentStatus, actorID string) {
	event := models.EnrollmentEvent{
		EnrollmentID:   e.ID,
		StudentID:      e.StudentID,
		SectionID:      section.ID,
		CourseID:       section.CourseID,
		TermID:         section.TermID,
		Status:         e.Status,
		PreviousStatus: previous,
		ActorID:        actorID,
		OccurredAt:     s.now().UTC(),
	}
	if err := s.publisher.Publish(ctx, eventType, event); err != nil {
		s.metrics.RecordEventFailure(eventType)
		s.logger.Warn("failed to publish event", zap.String("type", eventType), zap.String("enrollment_id", e.ID), zap.Error(err))
	}
}

// lockError translates failures from inside the section lock.
func (s *EnrollmentService) lockError(err error) error {
	var appErr *appErrors.Error
	switch {
	case errors.As(err, &appErr):
		return appErr
	case errors.Is(err, repository.ErrDuplicate):
		return appErrors.ErrDuplicateEnrollment
	case errors.Is(err, sql.ErrNoRows):
		return appErrors.Clone(appErrors.ErrNotFound, "enrollment or section not found")
	default:
		return internalError(err, "failed to update section enrollments")
	}
}

func errorCode(err error) string {
	var appErr *appErrors.Error
	if errors.As(err, &appErr) {
		return appErr.Code
	}
	return appErrors.ErrInternal.Code
}
