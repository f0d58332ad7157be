package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/academic-registrar-api/internal/dto"
	"github.com/noah-isme/academic-registrar-api/internal/middleware"
	"github.com/noah-isme/academic-registrar-api/internal/models"
	appErrors "github.com/noah-isme/academic-registrar-api/pkg/errors"
)

type enrollmentServiceMock struct {
	enrollResp *models.SectionEnrollment
	enrollErr  error
	listResp   []models.EnrollmentDetail
	lastActor  models.Actor
	lastID     string
	lastReq    dto.EnrollRequest
	lastFilter models.EnrollmentFilter
	override   dto.OverrideRequest
}

func (m *enrollmentServiceMock) Enroll(ctx context.Context, actor models.Actor, sectionID string, req dto.EnrollRequest) (*models.SectionEnrollment, error) {
	m.lastActor, m.lastID, m.lastReq = actor, sectionID, req
	return m.enrollResp, m.enrollErr
}

func (m *enrollmentServiceMock) Get(ctx context.Context, actor models.Actor, id string) (*models.EnrollmentDetail, error) {
	m.lastActor, m.lastID = actor, id
	return &models.EnrollmentDetail{SectionEnrollment: models.SectionEnrollment{ID: id}}, nil
}

func (m *enrollmentServiceMock) List(ctx context.Context, filter models.EnrollmentFilter) ([]models.EnrollmentDetail, *models.Pagination, error) {
	m.lastFilter = filter
	return m.listResp, &models.Pagination{Page: 1, PageSize: 50, TotalCount: len(m.listResp)}, nil
}

func (m *enrollmentServiceMock) Withdraw(ctx context.Context, actor models.Actor, id string) (*models.SectionEnrollment, error) {
	m.lastActor, m.lastID = actor, id
	return &models.SectionEnrollment{ID: id, Status: models.EnrollmentStatusDropped}, nil
}

func (m *enrollmentServiceMock) Override(ctx context.Context, actor models.Actor, id string, req dto.OverrideRequest) (*models.SectionEnrollment, error) {
	m.lastActor, m.lastID, m.override = actor, id, req
	return &models.SectionEnrollment{ID: id, Status: req.Status}, nil
}

func newTestContext(method, target string, body []byte, claims *models.JWTClaims) (*gin.Context, *httptest.ResponseRecorder) {
	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	req, _ := http.NewRequest(method, target, bytes.NewReader(body))
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	c.Request = req
	if claims != nil {
		c.Set(middleware.ContextUserKey, claims)
	}
	return c, w
}

var studentClaims = &models.JWTClaims{UserID: "stu-1", Role: models.RoleStudent}

func TestEnrollmentHandlerEnroll(t *testing.T) {
	mockSvc := &enrollmentServiceMock{enrollResp: &models.SectionEnrollment{ID: "enr-1", Status: models.EnrollmentStatusWaitlisted}}
	h := NewEnrollmentHandler(mockSvc)

	payload, _ := json.Marshal(dto.EnrollRequest{StudentID: "stu-1"})
	c, w := newTestContext(http.MethodPost, "/sections/s1/enrollments", payload, studentClaims)
	c.Params = gin.Params{{Key: "id", Value: "s1"}}

	h.Enroll(c)
	require.Equal(t, http.StatusCreated, w.Code)
	assert.Equal(t, "s1", mockSvc.lastID)
	assert.Equal(t, models.Actor{UserID: "stu-1", Role: models.RoleStudent}, mockSvc.lastActor)
	assert.Contains(t, w.Body.String(), `"status":"WAITLISTED"`)
}

func TestEnrollmentHandlerEnrollErrors(t *testing.T) {
	h := NewEnrollmentHandler(&enrollmentServiceMock{})
	c, w := newTestContext(http.MethodPost, "/sections/s1/enrollments", []byte(`{}`), nil)
	h.Enroll(c)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	c, w = newTestContext(http.MethodPost, "/sections/s1/enrollments", []byte(`{"student_id":`), studentClaims)
	h.Enroll(c)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	full := &enrollmentServiceMock{enrollErr: appErrors.ErrWaitlistFull}
	c, w = newTestContext(http.MethodPost, "/sections/s1/enrollments", []byte(`{"student_id":"stu-1"}`), studentClaims)
	NewEnrollmentHandler(full).Enroll(c)
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Contains(t, w.Body.String(), `"code":"WAITLIST_FULL"`)

	missing := &enrollmentServiceMock{enrollErr: appErrors.WithDetails(appErrors.ErrMissingPrerequisite, []models.MissingPrerequisite{{CourseID: "cs101", CourseCode: "CS101"}})}
	c, w = newTestContext(http.MethodPost, "/sections/s1/enrollments", []byte(`{"student_id":"stu-1"}`), studentClaims)
	NewEnrollmentHandler(missing).Enroll(c)
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
	assert.Contains(t, w.Body.String(), `"CS101"`)
}

func TestEnrollmentHandlerListBySection(t *testing.T) {
	mockSvc := &enrollmentServiceMock{listResp: []models.EnrollmentDetail{{SectionEnrollment: models.SectionEnrollment{ID: "enr-1"}}}}
	h := NewEnrollmentHandler(mockSvc)

	c, w := newTestContext(http.MethodGet, "/sections/s1/enrollments?status=waitlisted&page=2&page_size=10", nil, &models.JWTClaims{UserID: "r", Role: models.RoleRegistrar})
	c.Params = gin.Params{{Key: "id", Value: "s1"}}
	h.ListBySection(c)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, models.EnrollmentFilter{SectionID: "s1", Status: models.EnrollmentStatusWaitlisted, Page: 2, PageSize: 10}, mockSvc.lastFilter)
	assert.Contains(t, w.Body.String(), `"total_count":1`)
}

func TestEnrollmentHandlerWithdrawAndOverride(t *testing.T) {
	mockSvc := &enrollmentServiceMock{}
	h := NewEnrollmentHandler(mockSvc)

	c, w := newTestContext(http.MethodPost, "/enrollments/enr-1/withdraw", nil, studentClaims)
	c.Params = gin.Params{{Key: "id", Value: "enr-1"}}
	h.Withdraw(c)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "enr-1", mockSvc.lastID)

	admin := &models.JWTClaims{UserID: "admin", Role: models.RoleAdmin}
	c, w = newTestContext(http.MethodPost, "/enrollments/enr-1/override", []byte(`{"status":"COMPLETED","reason":"graded"}`), admin)
	c.Params = gin.Params{{Key: "id", Value: "enr-1"}}
	h.Override(c)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, dto.OverrideRequest{Status: models.EnrollmentStatusCompleted, Reason: "graded"}, mockSvc.override)
}
