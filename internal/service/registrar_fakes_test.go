package service

import (
	"context"
	"database/sql"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/noah-isme/academic-registrar-api/internal/models"
	"github.com/noah-isme/academic-registrar-api/internal/repository"
	"github.com/noah-isme/academic-registrar-api/pkg/jobs"
)

type fakeSections struct {
	mu       sync.Mutex
	sections map[string]*models.Section
}

func newFakeSections(sections ...*models.Section) *fakeSections {
	f := &fakeSections{sections: map[string]*models.Section{}}
	for _, s := range sections {
		f.sections[s.ID] = s
	}
	return f
}

func (f *fakeSections) FindByID(ctx context.Context, id string) (*models.Section, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	s, ok := f.sections[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	copied := *s
	return &copied, nil
}

type fakeTerms struct {
	terms    map[string]*models.Term
	sections *fakeSections
}

func (f *fakeTerms) FindByID(ctx context.Context, id string) (*models.Term, error) {
	t, ok := f.terms[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	copied := *t
	return &copied, nil
}

func (f *fakeTerms) FindBySection(ctx context.Context, sectionID string) (*models.Term, error) {
	section, err := f.sections.FindByID(ctx, sectionID)
	if err != nil {
		return nil, err
	}
	return f.FindByID(ctx, section.TermID)
}

type fakeUsers map[string]*models.User

func (f fakeUsers) FindByID(ctx context.Context, id string) (*models.User, error) {
	u, ok := f[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return u, nil
}

type fakePrerequisiteRepo struct {
	mu          sync.Mutex
	prereqs     map[string][]models.CoursePrerequisite
	transcripts []models.Transcript
	err         error
}

func (f *fakePrerequisiteRepo) ListByCourse(ctx context.Context, courseID string) ([]models.CoursePrerequisite, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.prereqs[courseID], nil
}

func (f *fakePrerequisiteRepo) ListPublishedTranscripts(ctx context.Context, studentID string, courseIDs []string) ([]models.Transcript, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	wanted := map[string]bool{}
	for _, id := range courseIDs {
		wanted[id] = true
	}
	var out []models.Transcript
	for _, t := range f.transcripts {
		if t.StudentID == studentID && wanted[t.CourseID] && t.PublishedAt != nil {
			out = append(out, t)
		}
	}
	return out, nil
}

func (f *fakePrerequisiteRepo) publish(t models.Transcript) {
	f.mu.Lock()
	defer f.mu.Unlock()
	now := time.Now()
	t.PublishedAt = &now
	f.transcripts = append(f.transcripts, t)
}

// memoryEnrollments is an in-memory enrollment store with per-section locks.
// Writes made inside WithSectionLock only become visible when fn succeeds.
type memoryEnrollments struct {
	mu      sync.Mutex
	rows    map[string]*models.SectionEnrollment
	users   fakeUsers
	seq     int
	lockMu  sync.Mutex
	locks   map[string]*sync.Mutex
	lockErr error
}

func newMemoryEnrollments(users fakeUsers) *memoryEnrollments {
	return &memoryEnrollments{rows: map[string]*models.SectionEnrollment{}, users: users, locks: map[string]*sync.Mutex{}}
}

func (m *memoryEnrollments) sectionLock(sectionID string) *sync.Mutex {
	m.lockMu.Lock()
	defer m.lockMu.Unlock()
	l, ok := m.locks[sectionID]
	if !ok {
		l = &sync.Mutex{}
		m.locks[sectionID] = l
	}
	return l
}

func (m *memoryEnrollments) FindByID(ctx context.Context, id string) (*models.SectionEnrollment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	row, ok := m.rows[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	copied := *row
	return &copied, nil
}

func (m *memoryEnrollments) FindDetailByID(ctx context.Context, id string) (*models.EnrollmentDetail, error) {
	row, err := m.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	return m.detail(*row), nil
}

func (m *memoryEnrollments) detail(row models.SectionEnrollment) *models.EnrollmentDetail {
	d := &models.EnrollmentDetail{SectionEnrollment: row}
	if u, ok := m.users[row.StudentID]; ok {
		d.StudentName, d.StudentEmail = u.FullName, u.Email
	}
	return d
}

func (m *memoryEnrollments) List(ctx context.Context, filter models.EnrollmentFilter) ([]models.EnrollmentDetail, int, error) {
	m.mu.Lock()
	var rows []models.SectionEnrollment
	for _, row := range m.rows {
		if filter.SectionID != "" && row.SectionID != filter.SectionID {
			continue
		}
		if filter.StudentID != "" && row.StudentID != filter.StudentID {
			continue
		}
		if filter.Status != "" && row.Status != filter.Status {
			continue
		}
		rows = append(rows, *row)
	}
	m.mu.Unlock()

	sort.Slice(rows, func(i, j int) bool { return rows[i].CreatedAt.Before(rows[j].CreatedAt) })
	out := make([]models.EnrollmentDetail, 0, len(rows))
	for _, row := range rows {
		out = append(out, *m.detail(row))
	}
	return out, len(out), nil
}

func (m *memoryEnrollments) ExistsOpen(ctx context.Context, studentID, sectionID string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, row := range m.rows {
		if row.StudentID == studentID && row.SectionID == sectionID && row.Status.Open() {
			return true, nil
		}
	}
	return false, nil
}

func (m *memoryEnrollments) ListCurrentByStudentTerm(ctx context.Context, studentID, termID string) ([]models.EnrollmentDetail, error) {
	all, _, _ := m.List(ctx, models.EnrollmentFilter{StudentID: studentID})
	var out []models.EnrollmentDetail
	for _, e := range all {
		if e.Status == models.EnrollmentStatusActive || e.Status == models.EnrollmentStatusWaitlisted {
			out = append(out, e)
		}
	}
	return out, nil
}

func (m *memoryEnrollments) WithSectionLock(ctx context.Context, sectionID string, fn func(repository.SeatLedger) error) error {
	if m.lockErr != nil {
		return m.lockErr
	}
	lock := m.sectionLock(sectionID)
	lock.Lock()
	defer lock.Unlock()

	ledger := &memoryLedger{store: m, sectionID: sectionID, staged: map[string]*models.SectionEnrollment{}}
	if err := fn(ledger); err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	for id, row := range ledger.staged {
		m.rows[id] = row
	}
	return nil
}

func (m *memoryEnrollments) all() []models.SectionEnrollment {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]models.SectionEnrollment, 0, len(m.rows))
	for _, row := range m.rows {
		out = append(out, *row)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out
}

type memoryLedger struct {
	store     *memoryEnrollments
	sectionID string
	staged    map[string]*models.SectionEnrollment
}

func (l *memoryLedger) SectionID() string { return l.sectionID }

// view merges committed rows of the section with staged writes.
func (l *memoryLedger) view() map[string]models.SectionEnrollment {
	l.store.mu.Lock()
	defer l.store.mu.Unlock()
	out := map[string]models.SectionEnrollment{}
	for id, row := range l.store.rows {
		if row.SectionID == l.sectionID {
			out[id] = *row
		}
	}
	for id, row := range l.staged {
		out[id] = *row
	}
	return out
}

func (l *memoryLedger) CountSeats(ctx context.Context) (models.SeatCounts, error) {
	var counts models.SeatCounts
	for _, row := range l.view() {
		switch row.Status {
		case models.EnrollmentStatusActive:
			counts.Active++
		case models.EnrollmentStatusWaitlisted:
			counts.Waitlisted++
		}
	}
	return counts, nil
}

func (l *memoryLedger) Insert(ctx context.Context, e *models.SectionEnrollment) error {
	for _, row := range l.view() {
		if row.StudentID == e.StudentID && row.Status.Open() {
			return repository.ErrDuplicate
		}
	}
	l.store.mu.Lock()
	l.store.seq++
	seq := l.store.seq
	l.store.mu.Unlock()

	e.ID = fmt.Sprintf("enr-%04d", seq)
	e.SectionID = l.sectionID
	e.CreatedAt = time.Unix(0, int64(seq)).UTC()
	e.UpdatedAt = e.CreatedAt
	copied := *e
	l.staged[e.ID] = &copied
	return nil
}

func (l *memoryLedger) FindForUpdate(ctx context.Context, id string) (*models.SectionEnrollment, error) {
	row, ok := l.view()[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return &row, nil
}

func (l *memoryLedger) NextWaitlisted(ctx context.Context) (*models.SectionEnrollment, error) {
	var queue []models.SectionEnrollment
	for _, row := range l.view() {
		if row.Status == models.EnrollmentStatusWaitlisted {
			queue = append(queue, row)
		}
	}
	if len(queue) == 0 {
		return nil, sql.ErrNoRows
	}
	sort.Slice(queue, func(i, j int) bool {
		a, b := queue[i], queue[j]
		if !a.WaitlistedAt.Equal(*b.WaitlistedAt) {
			return a.WaitlistedAt.Before(*b.WaitlistedAt)
		}
		if !a.CreatedAt.Equal(b.CreatedAt) {
			return a.CreatedAt.Before(b.CreatedAt)
		}
		return a.ID < b.ID
	})
	head := queue[0]
	return &head, nil
}

func (l *memoryLedger) UpdateStatus(ctx context.Context, e *models.SectionEnrollment) error {
	if _, ok := l.view()[e.ID]; !ok {
		return sql.ErrNoRows
	}
	copied := *e
	l.staged[e.ID] = &copied
	return nil
}

type recordedEvent struct {
	Type    string
	Payload models.EnrollmentEvent
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []recordedEvent
	err    error
}

func (p *recordingPublisher) Publish(ctx context.Context, eventType string, payload interface{}) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if event, ok := payload.(models.EnrollmentEvent); ok {
		p.events = append(p.events, recordedEvent{Type: eventType, Payload: event})
	}
	return p.err
}

func (p *recordingPublisher) Close() error { return nil }

func (p *recordingPublisher) ofType(eventType string) []recordedEvent {
	p.mu.Lock()
	defer p.mu.Unlock()
	var out []recordedEvent
	for _, e := range p.events {
		if e.Type == eventType {
			out = append(out, e)
		}
	}
	return out
}

type recordingDispatcher struct {
	mu       sync.Mutex
	sections []string
	err      error
}

func (d *recordingDispatcher) EnqueuePromotion(ctx context.Context, sectionID string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.sections = append(d.sections, sectionID)
	return d.err
}

type recordingQueue struct {
	jobs []jobs.Job
	err  error
}

func (q *recordingQueue) Enqueue(ctx context.Context, job jobs.Job) error {
	if q.err != nil {
		return q.err
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	q.jobs = append(q.jobs, job)
	return nil
}

// enrollmentFixture wires an EnrollmentService over in-memory stores.
type enrollmentFixture struct {
	svc        *EnrollmentService
	sections   *fakeSections
	terms      *fakeTerms
	users      fakeUsers
	store      *memoryEnrollments
	prereqs    *fakePrerequisiteRepo
	publisher  *recordingPublisher
	dispatcher *recordingDispatcher
	now        time.Time
}

var (
	registrarActor = models.Actor{UserID: "staff-1", Role: models.RoleRegistrar}
	lecturerActor  = models.Actor{UserID: "lect-1", Role: models.RoleLecturer}
)

func studentActor(id string) models.Actor {
	return models.Actor{UserID: id, Role: models.RoleStudent}
}

func testTerm() *models.Term {
	return &models.Term{
		ID:           "term-1",
		BranchID:     "branch-1",
		Name:         "Spring 2025",
		StartDate:    models.MustDate("2025-01-06"),
		EndDate:      models.MustDate("2025-04-25"),
		AddDropStart: models.MustDate("2025-01-06"),
		AddDropEnd:   models.MustDate("2025-01-17"),
		Status:       models.TermStatusActive,
		Timezone:     "UTC",
	}
}

func testSection(id string, capacity, waitlist int) *models.Section {
	return &models.Section{
		ID:               id,
		CourseID:         "course-" + id,
		TermID:           "term-1",
		Code:             "A",
		CourseCode:       "CS" + id,
		CourseTitle:      "Course " + id,
		Capacity:         capacity,
		WaitlistCapacity: waitlist,
		Status:           models.SectionStatusOpen,
	}
}

func newEnrollmentFixture(sections ...*models.Section) *enrollmentFixture {
	users := fakeUsers{}
	for i := 1; i <= 64; i++ {
		id := fmt.Sprintf("stu-%d", i)
		users[id] = &models.User{ID: id, FullName: fmt.Sprintf("Student %d", i), Email: id + "@example.edu", Role: models.RoleStudent}
	}

	fsections := newFakeSections(sections...)
	terms := &fakeTerms{terms: map[string]*models.Term{"term-1": testTerm()}, sections: fsections}
	store := newMemoryEnrollments(users)
	prereqs := &fakePrerequisiteRepo{prereqs: map[string][]models.CoursePrerequisite{}}
	publisher := &recordingPublisher{}
	dispatcher := &recordingDispatcher{}

	svc := NewEnrollmentService(store, fsections, terms, users, NewPrerequisiteService(prereqs, nil), publisher, nil, nil, nil)
	svc.SetPromotionDispatcher(dispatcher)
	now := time.Date(2025, 1, 8, 10, 0, 0, 0, time.UTC)
	svc.now = func() time.Time { return now }

	return &enrollmentFixture{
		svc:        svc,
		sections:   fsections,
		terms:      terms,
		users:      users,
		store:      store,
		prereqs:    prereqs,
		publisher:  publisher,
		dispatcher: dispatcher,
		now:        now,
	}
}
