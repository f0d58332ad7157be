package service

import (
	"context"
	"errors"
	"strings"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/academic-registrar-api/internal/dto"
	"github.com/noah-isme/academic-registrar-api/internal/models"
	"github.com/noah-isme/academic-registrar-api/internal/repository"
	appErrors "github.com/noah-isme/academic-registrar-api/pkg/errors"
)

type appointmentStore interface {
	FindByID(ctx context.Context, id string) (*models.Appointment, error)
	ListBySection(ctx context.Context, sectionID string) ([]models.Appointment, error)
	CreateWithinLoad(ctx context.Context, appt *models.Appointment) error
	UpdateWithinLoad(ctx context.Context, appt *models.Appointment) error
	Delete(ctx context.Context, id string) error
}

// AppointmentService administers lecturer and TA appointments. The summed
// load of a section never exceeds 100 percent.
type AppointmentService struct {
	appointments appointmentStore
	sections     sectionReader
	terms        termReader
	users        userReader
	conflicts    *ConflictService
	validator    *validator.Validate
	logger       *zap.Logger
}

// NewAppointmentService constructs AppointmentService.
func NewAppointmentService(appointments appointmentStore, sections sectionReader, terms termReader, users userReader, conflicts *ConflictService, validate *validator.Validate, logger *zap.Logger) *AppointmentService {
	if validate == nil {
		validate = NewValidator()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AppointmentService{
		appointments: appointments,
		sections:     sections,
		terms:        terms,
		users:        users,
		conflicts:    conflicts,
		validator:    validate,
		logger:       logger,
	}
}

// List returns the appointments of a section.
func (s *AppointmentService) List(ctx context.Context, sectionID string) ([]models.Appointment, error) {
	if _, err := s.sections.FindByID(ctx, sectionID); err != nil {
		return nil, lookupError(err, "section")
	}
	appts, err := s.appointments.ListBySection(ctx, sectionID)
	if err != nil {
		return nil, internalError(err, "failed to list appointments")
	}
	return appts, nil
}

// Create appoints a user to a section.
func (s *AppointmentService) Create(ctx context.Context, sectionID string, req dto.AppointmentRequest) (*models.Appointment, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, validationError(err, "invalid appointment payload")
	}
	section, term, err := s.editableSection(ctx, sectionID)
	if err != nil {
		return nil, err
	}
	user, err := s.users.FindByID(ctx, req.UserID)
	if err != nil {
		return nil, lookupError(err, "user")
	}
	if user.Role == models.RoleStudent {
		return nil, appErrors.Clone(appErrors.ErrValidation, "students cannot be appointed to teach")
	}

	appt := &models.Appointment{
		SectionID:   section.ID,
		TermID:      term.ID,
		UserID:      user.ID,
		Role:        models.AppointmentRole(strings.ToUpper(req.Role)),
		LoadPercent: req.LoadPercent,
	}
	if err := s.rejectConflicts(ctx, *term, *appt); err != nil {
		return nil, err
	}
	if err := s.appointments.CreateWithinLoad(ctx, appt); err != nil {
		return nil, s.writeError(err)
	}

	s.conflicts.InvalidateTerm(ctx, term.ID)
	s.logger.Sugar().Infow("appointment created", "appointment_id", appt.ID, "section_id", section.ID, "user_id", appt.UserID, "load_percent", appt.LoadPercent)
	return appt, nil
}

// Update changes the role or load of an appointment.
func (s *AppointmentService) Update(ctx context.Context, id string, req dto.UpdateAppointmentRequest) (*models.Appointment, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, validationError(err, "invalid appointment payload")
	}
	appt, err := s.appointments.FindByID(ctx, id)
	if err != nil {
		return nil, lookupError(err, "appointment")
	}
	_, term, err := s.editableSection(ctx, appt.SectionID)
	if err != nil {
		return nil, err
	}

	appt.Role = models.AppointmentRole(strings.ToUpper(req.Role))
	appt.LoadPercent = req.LoadPercent
	if err := s.appointments.UpdateWithinLoad(ctx, appt); err != nil {
		return nil, s.writeError(err)
	}

	s.conflicts.InvalidateTerm(ctx, term.ID)
	s.logger.Sugar().Infow("appointment updated", "appointment_id", appt.ID, "section_id", appt.SectionID, "load_percent", appt.LoadPercent)
	return appt, nil
}

// Delete removes an appointment.
func (s *AppointmentService) Delete(ctx context.Context, id string) error {
	appt, err := s.appointments.FindByID(ctx, id)
	if err != nil {
		return lookupError(err, "appointment")
	}
	_, term, err := s.editableSection(ctx, appt.SectionID)
	if err != nil {
		return err
	}
	if err := s.appointments.Delete(ctx, id); err != nil {
		return lookupError(err, "appointment")
	}
	s.conflicts.InvalidateTerm(ctx, term.ID)
	s.logger.Sugar().Infow("appointment deleted", "appointment_id", id, "section_id", appt.SectionID)
	return nil
}

func (s *AppointmentService) editableSection(ctx context.Context, sectionID string) (*models.Section, *models.Term, error) {
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

func (s *AppointmentService) rejectConflicts(ctx context.Context, term models.Term, appt models.Appointment) error {
	report, err := s.conflicts.checkAppointment(ctx, term, appt)
	if err != nil {
		return err
	}
	if !report.Empty() {
		return appErrors.WithDetails(appErrors.ErrConflictDetected, report)
	}
	return nil
}

func (s *AppointmentService) writeError(err error) error {
	switch {
	case errors.Is(err, repository.ErrLoadExceeded):
		return appErrors.ErrLoadExceeded
	case errors.Is(err, repository.ErrDuplicate):
		return appErrors.Clone(appErrors.ErrConflict, "user is already appointed to this section")
	default:
		return lookupError(err, "appointment")
	}
}

// CheckConflicts reports teacher double bookings the candidate appointment
// would cause.
func (s *AppointmentService) CheckConflicts(ctx context.Context, req dto.ConflictAppointmentRequest) (*models.ConflictReport, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, validationError(err, "invalid appointment payload")
	}
	if _, err := s.users.FindByID(ctx, req.UserID); err != nil {
		return nil, lookupError(err, "user")
	}
	return s.conflicts.CheckAppointment(ctx, models.Appointment{
		SectionID: req.SectionID,
		UserID:    req.UserID,
		Role:      models.AppointmentRole(strings.ToUpper(req.Role)),
	})
}
