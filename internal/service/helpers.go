package service

import (
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/noah-isme/academic-registrar-api/internal/models"
	"github.com/noah-isme/academic-registrar-api/internal/recurrence"
	appErrors "github.com/noah-isme/academic-registrar-api/pkg/errors"
)

// NewValidator returns a validator with the registrar's custom tags:
// hhmm (wall clock), weekday, modality and appointment_role.
func NewValidator() *validator.Validate {
	v := validator.New()
	_ = v.RegisterValidation("hhmm", func(fl validator.FieldLevel) bool {
		_, err := recurrence.ParseClock(fl.Field().String())
		return err == nil
	})
	_ = v.RegisterValidation("modality", func(fl validator.FieldLevel) bool {
		raw := strings.ToUpper(strings.TrimSpace(fl.Field().String()))
		return raw == "" || models.Modality(raw).Valid()
	})
	_ = v.RegisterValidation("weekday", func(fl validator.FieldLevel) bool {
		day := fl.Field().Int()
		return day >= 0 && day <= 6
	})
	_ = v.RegisterValidation("appointment_role", func(fl validator.FieldLevel) bool {
		switch models.AppointmentRole(strings.ToUpper(fl.Field().String())) {
		case models.AppointmentRoleLecturer, models.AppointmentRoleTA:
			return true
		}
		return false
	})
	return v
}

func internalError(err error, message string) *appErrors.Error {
	return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, message)
}

func validationError(err error, message string) *appErrors.Error {
	return appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, message)
}

// lookupError maps sql.ErrNoRows to NOT_FOUND for entity and anything else to
// an internal error.
func lookupError(err error, entity string) error {
	if errors.Is(err, sql.ErrNoRows) {
		return appErrors.Clone(appErrors.ErrNotFound, entity+" not found")
	}
	var appErr *appErrors.Error
	if errors.As(err, &appErr) {
		return appErr
	}
	return internalError(err, fmt.Sprintf("failed to load %s", entity))
}

func conflictCachePattern(termID string) string {
	return fmt.Sprintf("conflicts:term:%s:*", termID)
}

func conflictCacheKey(termID, sectionID string) string {
	return fmt.Sprintf("conflicts:term:%s:section:%s", termID, sectionID)
}
