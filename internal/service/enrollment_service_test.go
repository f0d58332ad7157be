package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/academic-registrar-api/internal/dto"
	"github.com/noah-isme/academic-registrar-api/internal/models"
	appErrors "github.com/noah-isme/academic-registrar-api/pkg/errors"
)

func enroll(t *testing.T, f *enrollmentFixture, sectionID, studentID string) (*models.SectionEnrollment, error) {
	t.Helper()
	return f.svc.Enroll(context.Background(), registrarActor, sectionID, dto.EnrollRequest{StudentID: studentID})
}

func TestEnrollFillsSeatsThenWaitlistThenRejects(t *testing.T) {
	f := newEnrollmentFixture(testSection("s1", 1, 1))

	first, err := enroll(t, f, "s1", "stu-1")
	require.NoError(t, err)
	assert.Equal(t, models.EnrollmentStatusActive, first.Status)
	require.NotNil(t, first.EnrolledAt)
	assert.Nil(t, first.WaitlistedAt)

	second, err := enroll(t, f, "s1", "stu-2")
	require.NoError(t, err)
	assert.Equal(t, models.EnrollmentStatusWaitlisted, second.Status)
	require.NotNil(t, second.WaitlistedAt)

	_, err = enroll(t, f, "s1", "stu-3")
	assert.ErrorIs(t, err, appErrors.ErrWaitlistFull)

	created := f.publisher.ofType(models.EventEnrollmentCreated)
	require.Len(t, created, 2)
	assert.Equal(t, "course-s1", created[0].Payload.CourseID)
	assert.Equal(t, "term-1", created[0].Payload.TermID)
	assert.Len(t, f.store.all(), 2)
}

func TestEnrollWaitlistAdmitsUpToCapacity(t *testing.T) {
	f := newEnrollmentFixture(testSection("s1", 1, 2))

	statuses := []models.EnrollmentStatus{}
	for i := 1; i <= 3; i++ {
		e, err := enroll(t, f, "s1", fmt.Sprintf("stu-%d", i))
		require.NoError(t, err)
		statuses = append(statuses, e.Status)
	}
	assert.Equal(t, []models.EnrollmentStatus{
		models.EnrollmentStatusActive,
		models.EnrollmentStatusWaitlisted,
		models.EnrollmentStatusWaitlisted,
	}, statuses)

	_, err := enroll(t, f, "s1", "stu-4")
	assert.ErrorIs(t, err, appErrors.ErrWaitlistFull)
}

func TestEnrollRejectsDuplicate(t *testing.T) {
	f := newEnrollmentFixture(testSection("s1", 5, 0))

	_, err := enroll(t, f, "s1", "stu-1")
	require.NoError(t, err)

	_, err = enroll(t, f, "s1", "stu-1")
	assert.ErrorIs(t, err, appErrors.ErrDuplicateEnrollment)
	assert.Len(t, f.store.all(), 1)
}

func TestEnrollAllowsNewRecordAfterDrop(t *testing.T) {
	f := newEnrollmentFixture(testSection("s1", 5, 0))
	ctx := context.Background()

	first, err := enroll(t, f, "s1", "stu-1")
	require.NoError(t, err)
	_, err = f.svc.Withdraw(ctx, studentActor("stu-1"), first.ID)
	require.NoError(t, err)

	second, err := enroll(t, f, "s1", "stu-1")
	require.NoError(t, err)
	assert.NotEqual(t, first.ID, second.ID)
	assert.Equal(t, models.EnrollmentStatusActive, second.Status)
}

func TestEnrollPrerequisiteGating(t *testing.T) {
	f := newEnrollmentFixture(testSection("s1", 5, 0))
	minimum := "C"
	f.prereqs.prereqs["course-s1"] = []models.CoursePrerequisite{{
		CourseID:             "course-s1",
		PrerequisiteCourseID: "course-intro",
		PrerequisiteCode:     "CS100",
		PrerequisiteTitle:    "Intro",
		MinimumGrade:         &minimum,
	}}

	_, err := enroll(t, f, "s1", "stu-1")
	require.Error(t, err)
	assert.ErrorIs(t, err, appErrors.ErrMissingPrerequisite)
	var appErr *appErrors.Error
	require.True(t, errors.As(err, &appErr))
	missing, ok := appErr.Details.([]models.MissingPrerequisite)
	require.True(t, ok)
	require.Len(t, missing, 1)
	assert.Equal(t, "CS100", missing[0].CourseCode)

	f.prereqs.publish(models.Transcript{StudentID: "stu-1", CourseID: "course-intro", FinalGrade: "D"})
	_, err = enroll(t, f, "s1", "stu-1")
	assert.ErrorIs(t, err, appErrors.ErrMissingPrerequisite)

	f.prereqs.publish(models.Transcript{StudentID: "stu-1", CourseID: "course-intro", FinalGrade: "B"})
	e, err := enroll(t, f, "s1", "stu-1")
	require.NoError(t, err)
	assert.Equal(t, models.EnrollmentStatusActive, e.Status)
}

func TestEnrollAuditorSkipsPrerequisites(t *testing.T) {
	f := newEnrollmentFixture(testSection("s1", 5, 0))
	f.prereqs.prereqs["course-s1"] = []models.CoursePrerequisite{{CourseID: "course-s1", PrerequisiteCourseID: "course-intro"}}

	e, err := f.svc.Enroll(context.Background(), registrarActor, "s1", dto.EnrollRequest{StudentID: "stu-1", Role: "auditor"})
	require.NoError(t, err)
	assert.Equal(t, models.EnrollmentRoleAuditor, e.Role)
}

func TestEnrollGuards(t *testing.T) {
	closed := testSection("closed", 5, 0)
	closed.Status = models.SectionStatusClosed

	tests := []struct {
		name    string
		actor   models.Actor
		section string
		student string
		now     time.Time
		want    *appErrors.Error
	}{
		{name: "unknown section", actor: registrarActor, section: "missing", student: "stu-1", want: appErrors.ErrNotFound},
		{name: "unknown student", actor: registrarActor, section: "s1", student: "ghost", want: appErrors.ErrNotFound},
		{name: "closed section", actor: registrarActor, section: "closed", student: "stu-1", want: appErrors.ErrSectionClosed},
		{name: "window not open yet", actor: registrarActor, section: "s1", student: "stu-1", now: time.Date(2025, 1, 5, 23, 59, 0, 0, time.UTC), want: appErrors.ErrWindowClosed},
		{name: "window closed", actor: registrarActor, section: "s1", student: "stu-1", now: time.Date(2025, 1, 18, 0, 0, 0, 0, time.UTC), want: appErrors.ErrWindowClosed},
		{name: "student enrolling someone else", actor: studentActor("stu-2"), section: "s1", student: "stu-1", want: appErrors.ErrForbidden},
		{name: "missing student id", actor: registrarActor, section: "s1", student: "", want: appErrors.ErrValidation},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			f := newEnrollmentFixture(testSection("s1", 5, 0), closed)
			if !tc.now.IsZero() {
				now := tc.now
				f.svc.now = func() time.Time { return now }
			}
			_, err := f.svc.Enroll(context.Background(), tc.actor, tc.section, dto.EnrollRequest{StudentID: tc.student})
			assert.ErrorIs(t, err, tc.want)
			assert.Empty(t, f.store.all())
		})
	}
}

func TestEnrollWindowIsInclusiveOnLastDay(t *testing.T) {
	f := newEnrollmentFixture(testSection("s1", 5, 0))
	f.svc.now = func() time.Time { return time.Date(2025, 1, 17, 23, 59, 0, 0, time.UTC) }

	_, err := enroll(t, f, "s1", "stu-1")
	assert.NoError(t, err)
}

func TestWithdrawActiveSchedulesPromotion(t *testing.T) {
	f := newEnrollmentFixture(testSection("s1", 1, 1))
	ctx := context.Background()

	active, err := enroll(t, f, "s1", "stu-1")
	require.NoError(t, err)
	waiting, err := enroll(t, f, "s1", "stu-2")
	require.NoError(t, err)

	dropped, err := f.svc.Withdraw(ctx, studentActor("stu-1"), active.ID)
	require.NoError(t, err)
	assert.Equal(t, models.EnrollmentStatusDropped, dropped.Status)
	require.NotNil(t, dropped.DroppedAt)
	assert.Equal(t, []string{"s1"}, f.dispatcher.sections)

	// Withdrawal never promotes inline.
	stored, err := f.store.FindByID(ctx, waiting.ID)
	require.NoError(t, err)
	assert.Equal(t, models.EnrollmentStatusWaitlisted, stored.Status)

	_, err = f.svc.Withdraw(ctx, studentActor("stu-2"), waiting.ID)
	require.NoError(t, err)
	assert.Len(t, f.dispatcher.sections, 1, "dropping a waitlisted record frees no seat")
}

func TestWithdrawGuards(t *testing.T) {
	f := newEnrollmentFixture(testSection("s1", 5, 0))
	ctx := context.Background()
	e, err := enroll(t, f, "s1", "stu-1")
	require.NoError(t, err)

	_, err = f.svc.Withdraw(ctx, studentActor("stu-2"), e.ID)
	assert.ErrorIs(t, err, appErrors.ErrForbidden)

	_, err = f.svc.Withdraw(ctx, studentActor("stu-1"), "missing")
	assert.ErrorIs(t, err, appErrors.ErrNotFound)

	f.svc.now = func() time.Time { return time.Date(2025, 2, 1, 9, 0, 0, 0, time.UTC) }
	_, err = f.svc.Withdraw(ctx, studentActor("stu-1"), e.ID)
	assert.ErrorIs(t, err, appErrors.ErrWindowClosed)

	dropped, err := f.svc.Withdraw(ctx, registrarActor, e.ID)
	require.NoError(t, err)
	assert.Equal(t, models.EnrollmentStatusDropped, dropped.Status)

	_, err = f.svc.Withdraw(ctx, registrarActor, e.ID)
	assert.ErrorIs(t, err, appErrors.ErrIllegalTransition)
}

func TestPromoteNextFromWaitlist(t *testing.T) {
	f := newEnrollmentFixture(testSection("s1", 1, 2))
	ctx := context.Background()

	active, err := enroll(t, f, "s1", "stu-1")
	require.NoError(t, err)
	waiting, err := enroll(t, f, "s1", "stu-2")
	require.NoError(t, err)

	promoted, err := f.svc.PromoteNextFromWaitlist(ctx, "s1")
	require.NoError(t, err)
	assert.Nil(t, promoted, "no seat is free yet")

	_, err = f.svc.Withdraw(ctx, studentActor("stu-1"), active.ID)
	require.NoError(t, err)

	promoted, err = f.svc.PromoteNextFromWaitlist(ctx, "s1")
	require.NoError(t, err)
	require.NotNil(t, promoted)
	assert.Equal(t, waiting.ID, promoted.ID)
	assert.Equal(t, models.EnrollmentStatusActive, promoted.Status)
	assert.NotNil(t, promoted.EnrolledAt)
	assert.Nil(t, promoted.WaitlistedAt)

	again, err := f.svc.PromoteNextFromWaitlist(ctx, "s1")
	require.NoError(t, err)
	assert.Nil(t, again)

	events := f.publisher.ofType(models.EventWaitlistPromoted)
	require.Len(t, events, 1)
	assert.Equal(t, "stu-2", events[0].Payload.StudentID)
	assert.Equal(t, models.EnrollmentStatusWaitlisted, events[0].Payload.PreviousStatus)
}

func TestPromoteNextFromWaitlistIsFIFO(t *testing.T) {
	f := newEnrollmentFixture(testSection("s1", 1, 3))
	ctx := context.Background()
	base := time.Date(2025, 1, 8, 9, 0, 0, 0, time.UTC)

	at := func(offset time.Duration) {
		ts := base.Add(offset)
		f.svc.now = func() time.Time { return ts }
	}

	at(0)
	active, err := enroll(t, f, "s1", "stu-1")
	require.NoError(t, err)
	at(time.Minute)
	first, err := enroll(t, f, "s1", "stu-2")
	require.NoError(t, err)
	at(2 * time.Minute)
	_, err = enroll(t, f, "s1", "stu-3")
	require.NoError(t, err)

	at(time.Hour)
	_, err = f.svc.Withdraw(ctx, studentActor("stu-1"), active.ID)
	require.NoError(t, err)

	promoted, err := f.svc.PromoteNextFromWaitlist(ctx, "s1")
	require.NoError(t, err)
	require.NotNil(t, promoted)
	assert.Equal(t, first.ID, promoted.ID)
}

func TestPromoteSkipsCancelledAndUnknownSections(t *testing.T) {
	cancelled := testSection("gone", 1, 1)
	cancelled.Status = models.SectionStatusCancelled
	f := newEnrollmentFixture(cancelled)

	promoted, err := f.svc.PromoteNextFromWaitlist(context.Background(), "gone")
	require.NoError(t, err)
	assert.Nil(t, promoted)

	_, err = f.svc.PromoteNextFromWaitlist(context.Background(), "missing")
	assert.ErrorIs(t, err, appErrors.ErrNotFound)
}

func TestOverrideTransitions(t *testing.T) {
	f := newEnrollmentFixture(testSection("s1", 1, 1))
	ctx := context.Background()

	active, err := enroll(t, f, "s1", "stu-1")
	require.NoError(t, err)
	waiting, err := enroll(t, f, "s1", "stu-2")
	require.NoError(t, err)

	_, err = f.svc.Override(ctx, lecturerActor, active.ID, dto.OverrideRequest{Status: models.EnrollmentStatusCompleted})
	assert.ErrorIs(t, err, appErrors.ErrForbidden)

	_, err = f.svc.Override(ctx, registrarActor, waiting.ID, dto.OverrideRequest{Status: models.EnrollmentStatusCompleted})
	assert.ErrorIs(t, err, appErrors.ErrIllegalTransition)

	_, err = f.svc.Override(ctx, registrarActor, waiting.ID, dto.OverrideRequest{Status: models.EnrollmentStatusActive})
	assert.ErrorIs(t, err, appErrors.ErrCapacityExceeded)

	_, err = f.svc.Override(ctx, registrarActor, active.ID, dto.OverrideRequest{Status: "waitlisted"})
	assert.ErrorIs(t, err, appErrors.ErrValidation)

	completed, err := f.svc.Override(ctx, registrarActor, active.ID, dto.OverrideRequest{Status: "completed", Reason: "final grade posted"})
	require.NoError(t, err)
	assert.Equal(t, models.EnrollmentStatusCompleted, completed.Status)
	assert.Equal(t, []string{"s1"}, f.dispatcher.sections)

	overridden := f.publisher.ofType(models.EventEnrollmentOverridden)
	require.Len(t, overridden, 1)
	assert.Equal(t, models.EnrollmentStatusActive, overridden[0].Payload.PreviousStatus)
	assert.Equal(t, registrarActor.UserID, overridden[0].Payload.ActorID)

	promoted, err := f.svc.Override(ctx, registrarActor, waiting.ID, dto.OverrideRequest{Status: models.EnrollmentStatusActive})
	require.NoError(t, err)
	assert.Equal(t, models.EnrollmentStatusActive, promoted.Status)
	assert.Nil(t, promoted.WaitlistedAt)
}

func TestConcurrentEnrollNeverOversells(t *testing.T) {
	f := newEnrollmentFixture(testSection("s1", 5, 3))

	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		results = map[string]int{}
	)
	for i := 1; i <= 40; i++ {
		wg.Add(1)
		go func(student string) {
			defer wg.Done()
			e, err := f.svc.Enroll(context.Background(), registrarActor, "s1", dto.EnrollRequest{StudentID: student})
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				results[errorCode(err)]++
				return
			}
			results[string(e.Status)]++
		}(fmt.Sprintf("stu-%d", i))
	}
	wg.Wait()

	assert.Equal(t, 5, results[string(models.EnrollmentStatusActive)])
	assert.Equal(t, 3, results[string(models.EnrollmentStatusWaitlisted)])
	assert.Equal(t, 32, results[appErrors.ErrWaitlistFull.Code])
}

func TestConcurrentDuplicateEnrollCreatesOneRecord(t *testing.T) {
	f := newEnrollmentFixture(testSection("s1", 10, 0))

	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		successes int
		dupes     int
	)
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := enroll(t, f, "s1", "stu-1")
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				successes++
			case errors.Is(err, appErrors.ErrDuplicateEnrollment):
				dupes++
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, successes)
	assert.Equal(t, 9, dupes)
	assert.Len(t, f.store.all(), 1)
}

func TestEnrollLockFailureLeavesNoRecord(t *testing.T) {
	f := newEnrollmentFixture(testSection("s1", 5, 0))
	f.store.lockErr = errors.New("lock timeout")

	_, err := enroll(t, f, "s1", "stu-1")
	assert.ErrorIs(t, err, appErrors.ErrInternal)
	assert.Empty(t, f.store.all())
	assert.Empty(t, f.publisher.ofType(models.EventEnrollmentCreated))
}

func TestGetHidesOtherStudentsEnrollments(t *testing.T) {
	f := newEnrollmentFixture(testSection("s1", 5, 0))
	e, err := enroll(t, f, "s1", "stu-1")
	require.NoError(t, err)

	detail, err := f.svc.Get(context.Background(), studentActor("stu-1"), e.ID)
	require.NoError(t, err)
	assert.Equal(t, "Student 1", detail.StudentName)

	_, err = f.svc.Get(context.Background(), studentActor("stu-2"), e.ID)
	assert.ErrorIs(t, err, appErrors.ErrForbidden)
}
